package protocol

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

const schemaBaseURL = "https://monsterworkshop.game/protocol/"

var (
	schemaOnce sync.Once
	schemaErr  error
	schemas    map[string]*jsonschema.Schema
)

func compileSchemas() {
	schemas = map[string]*jsonschema.Schema{}
	entries, err := schemaFS.ReadDir("schemas")
	if err != nil {
		schemaErr = err
		return
	}
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	for _, e := range entries {
		b, err := schemaFS.ReadFile("schemas/" + e.Name())
		if err != nil {
			schemaErr = err
			return
		}
		if err := c.AddResource(schemaBaseURL+e.Name(), bytes.NewReader(b)); err != nil {
			schemaErr = fmt.Errorf("%s: %w", e.Name(), err)
			return
		}
	}
	for _, e := range entries {
		s, err := c.Compile(schemaBaseURL + e.Name())
		if err != nil {
			schemaErr = fmt.Errorf("compile %s: %w", e.Name(), err)
			return
		}
		msgType := strings.ToUpper(strings.TrimSuffix(e.Name(), ".schema.json"))
		schemas[msgType] = s
	}
}

// Validate checks a raw frame against the schema registered for msgType.
// Types without a schema pass.
func Validate(msgType string, raw []byte) error {
	schemaOnce.Do(compileSchemas)
	if schemaErr != nil {
		return schemaErr
	}
	s := schemas[msgType]
	if s == nil {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	return s.Validate(v)
}
