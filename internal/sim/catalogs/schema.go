package catalogs

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

const schemaBaseURL = "https://monsterworkshop.game/schemas/"

var (
	schemaOnce sync.Once
	schemaErr  error
	compiled   map[string]*jsonschema.Schema
)

// schemaFor maps a data file name to its schema file name.
func schemaFor(dataFile string) string {
	return strings.TrimSuffix(dataFile, ".json") + ".schema.json"
}

func loadSchemas() {
	compiled = map[string]*jsonschema.Schema{}
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
		compiled[e.Name()] = s
	}
}

func validateSchema(dataFile string, raw []byte) error {
	schemaOnce.Do(loadSchemas)
	if schemaErr != nil {
		return schemaErr
	}
	s := compiled[schemaFor(dataFile)]
	if s == nil {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	return s.Validate(v)
}
