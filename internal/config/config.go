// Package config reads process configuration from the environment. Binaries
// use these values as flag defaults, so an explicit flag always wins.
package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Server configures cmd/server.
type Server struct {
	Addr      string `env:"MW_ADDR" envDefault:":8080"`
	WorldID   string `env:"MW_WORLD_ID" envDefault:"world_1"`
	Seed      int64  `env:"MW_SEED" envDefault:"1337"`
	ConfigDir string `env:"MW_CONFIG_DIR" envDefault:"./configs"`
	DataDir   string `env:"MW_DATA_DIR" envDefault:"./data"`

	// Empty paths resolve inside ConfigDir.
	TuningPath string `env:"MW_TUNING"`
	ZonesPath  string `env:"MW_ZONES"`

	// ResumeFrom picks the startup source: "snapshot", "store" or "none".
	ResumeFrom string `env:"MW_RESUME_FROM" envDefault:"snapshot"`

	DisableIndex bool `env:"MW_DISABLE_INDEX"`
	DisableStore bool `env:"MW_DISABLE_STORE"`

	EnableDebugHTTP bool `env:"MW_ENABLE_DEBUG_HTTP"`
	EnablePprofHTTP bool `env:"MW_ENABLE_PPROF_HTTP"`
}

// Replay configures cmd/replay.
type Replay struct {
	DataDir   string `env:"MW_DATA_DIR" envDefault:"./data"`
	ConfigDir string `env:"MW_CONFIG_DIR" envDefault:"./configs"`
	WorldID   string `env:"MW_WORLD_ID" envDefault:"world_1"`
}

// Admin configures cmd/admin.
type Admin struct {
	DataDir  string `env:"MW_DATA_DIR" envDefault:"./data"`
	WorldID  string `env:"MW_WORLD_ID" envDefault:"world_1"`
	DebugURL string `env:"MW_DEBUG_URL" envDefault:"http://127.0.0.1:8080"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func LoadServer() (Server, error) {
	var c Server
	if err := ParseEnv(&c); err != nil {
		return c, err
	}
	return c, c.Validate()
}

func (c Server) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.ResumeFrom)) {
	case "snapshot", "store", "none":
	default:
		return fmt.Errorf("MW_RESUME_FROM: unknown source %q", c.ResumeFrom)
	}
	if strings.TrimSpace(c.WorldID) == "" {
		return fmt.Errorf("MW_WORLD_ID: empty")
	}
	return nil
}
