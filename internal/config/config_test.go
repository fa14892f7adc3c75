package config

import (
	"os"
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"
)

func env(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func TestFromArgsDefaults(t *testing.T) {
	c := qt.New(t)
	cfg, err := FromArgs(nil, env(nil))
	c.Assert(err, qt.IsNil)
	c.Assert(cfg, qt.DeepEquals, Default())
	c.Assert(cfg.Hold, qt.IsFalse)
	c.Assert(cfg.SkipRelational, qt.IsFalse)
}

func TestFromArgsEnvironment(t *testing.T) {
	c := qt.New(t)
	cfg, err := FromArgs(nil, env(map[string]string{
		EnvHold:       "1",
		EnvSkipPG:     "1",
		EnvRoot:       "/srv/harness",
		EnvStatusAddr: ":9090",
	}))
	c.Assert(err, qt.IsNil)
	c.Assert(cfg.Hold, qt.IsTrue)
	c.Assert(cfg.SkipRelational, qt.IsTrue)
	c.Assert(cfg.Root, qt.Equals, "/srv/harness")
	c.Assert(cfg.StatusAddr, qt.Equals, ":9090")
}

func TestFlagsOverrideEnvironment(t *testing.T) {
	c := qt.New(t)
	cfg, err := FromArgs(
		[]string{"--hold=false", "--skip-pg", "--log-level", "debug"},
		env(map[string]string{EnvHold: "1", EnvSkipPG: "0", EnvLogLevel: "warn"}),
	)
	c.Assert(err, qt.IsNil)
	c.Assert(cfg.Hold, qt.IsFalse)
	c.Assert(cfg.SkipRelational, qt.IsTrue)
	c.Assert(cfg.LogLevel, qt.Equals, "debug")
}

func TestEnvironmentZeroDisables(t *testing.T) {
	c := qt.New(t)
	cfg, err := FromArgs(nil, env(map[string]string{EnvHold: "0"}))
	c.Assert(err, qt.IsNil)
	c.Assert(cfg.Hold, qt.IsFalse)
}

func TestConfigFile(t *testing.T) {
	c := qt.New(t)
	path := filepath.Join(c.TempDir(), "harness.json")
	err := os.WriteFile(path, []byte(`{
		"skipRelational": true,
		"document": {"image": "mongo:7.0"},
		"phase2Scripts": ["all-queries.js"]
	}`), 0644)
	c.Assert(err, qt.IsNil)

	cfg, err := FromArgs([]string{"--config", path}, env(nil))
	c.Assert(err, qt.IsNil)
	c.Assert(cfg.SkipRelational, qt.IsTrue)
	c.Assert(cfg.Document.Image, qt.Equals, "mongo:7.0")
	c.Assert(cfg.Document.Database, qt.Equals, "tp2_ind500")
	c.Assert(cfg.Phase1Scripts, qt.DeepEquals, Default().Phase1Scripts)
	c.Assert(cfg.Phase2Scripts, qt.DeepEquals, []string{"all-queries.js"})

	// Environment still wins over the file.
	cfg, err = FromArgs(nil, env(map[string]string{EnvConfig: path, EnvSkipPG: "0"}))
	c.Assert(err, qt.IsNil)
	c.Assert(cfg.SkipRelational, qt.IsFalse)
}

func TestConfigFileErrors(t *testing.T) {
	c := qt.New(t)
	_, err := FromArgs([]string{"--config", filepath.Join(c.TempDir(), "missing.json")}, env(nil))
	c.Assert(err, qt.ErrorMatches, "reading config file: .*")

	path := filepath.Join(c.TempDir(), "bad.json")
	c.Assert(os.WriteFile(path, []byte("{"), 0644), qt.IsNil)
	_, err = FromArgs([]string{"--config", path}, env(nil))
	c.Assert(err, qt.ErrorMatches, "parsing config file: .*")
}

func TestFromArgsRejectsPositional(t *testing.T) {
	c := qt.New(t)
	_, err := FromArgs([]string{"extra"}, env(nil))
	c.Assert(err, qt.ErrorMatches, `unexpected arguments: \[extra\]`)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		err    string
	}{{
		name:   "log level",
		mutate: func(c *Config) { c.LogLevel = "trace" },
		err:    `invalid log level "trace": .*`,
	}, {
		name:   "empty script",
		mutate: func(c *Config) { c.Phase1Scripts = []string{"a.js", " "} },
		err:    "script 1 has an empty name",
	}, {
		name:   "prefix",
		mutate: func(c *Config) { c.ExportPrefix = "" },
		err:    "export prefix is required",
	}, {
		name:   "image",
		mutate: func(c *Config) { c.Document.Image = "" },
		err:    "engine images are required",
	}, {
		name:   "attempts",
		mutate: func(c *Config) { c.StartAttempts = -1 },
		err:    "start attempts must be at least 1, got -1",
	}}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c := qt.New(t)
			cfg := Default()
			test.mutate(&cfg)
			c.Assert(cfg.Validate(), qt.ErrorMatches, test.err)
		})
	}
}
