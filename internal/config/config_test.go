package config

import "testing"

func TestLoadServer_Defaults(t *testing.T) {
	c, err := LoadServer()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Addr != ":8080" || c.WorldID != "world_1" || c.Seed != 1337 || c.ResumeFrom != "snapshot" {
		t.Fatalf("defaults: %+v", c)
	}
	if c.EnableDebugHTTP {
		t.Fatalf("debug http enabled by default")
	}
}

func TestLoadServer_Overrides(t *testing.T) {
	t.Setenv("MW_ADDR", "127.0.0.1:9000")
	t.Setenv("MW_SEED", "7")
	t.Setenv("MW_ENABLE_DEBUG_HTTP", "true")
	t.Setenv("MW_RESUME_FROM", "store")
	c, err := LoadServer()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Addr != "127.0.0.1:9000" || c.Seed != 7 || !c.EnableDebugHTTP || c.ResumeFrom != "store" {
		t.Fatalf("overrides: %+v", c)
	}
}

func TestLoadServer_Rejects(t *testing.T) {
	t.Setenv("MW_SEED", "not-a-number")
	if _, err := LoadServer(); err == nil {
		t.Fatalf("bad seed accepted")
	}
	t.Setenv("MW_SEED", "1")
	t.Setenv("MW_RESUME_FROM", "tape")
	if _, err := LoadServer(); err == nil {
		t.Fatalf("bad resume source accepted")
	}
}

func TestParseEnv_Admin(t *testing.T) {
	t.Setenv("MW_DEBUG_URL", "http://127.0.0.1:1")
	var a Admin
	if err := ParseEnv(&a); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if a.DebugURL != "http://127.0.0.1:1" || a.DataDir != "./data" {
		t.Fatalf("admin: %+v", a)
	}
}
