package config

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/juju/errors"
	"github.com/juju/gnuflag"
)

// Config is the immutable run configuration. It is resolved once at
// startup and passed explicitly to the orchestrator and its stages.
type Config struct {
	// Root is the directory holding dump/, data/, scripts/ and artifacts/.
	Root string `json:"root"`

	// Execution modes
	Hold           bool `json:"hold"`           // keep the document engine up after the run
	SkipRelational bool `json:"skipRelational"` // reuse data/ from a prior run

	Relational RelationalConfig `json:"relational"`
	Document   DocumentConfig   `json:"document"`

	// Transformation scripts, in execution order
	Phase1Scripts []string `json:"phase1Scripts"`
	Phase2Scripts []string `json:"phase2Scripts"`

	// ExportPrefix marks collections exported as CSV artifacts.
	ExportPrefix string `json:"exportPrefix"`

	// StartAttempts bounds engine provisioning attempts. 1 disables retry.
	StartAttempts int `json:"startAttempts"`

	TrackingDB string `json:"trackingDb"` // relative paths resolve against Root
	StatusAddr string `json:"statusAddr"` // inspection API address while holding, empty disables it
	LogLevel   string `json:"logLevel"`
}

// RelationalConfig describes the relational engine container.
type RelationalConfig struct {
	Image    string `json:"image"`
	Database string `json:"database"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// DocumentConfig describes the document engine container.
type DocumentConfig struct {
	Image    string `json:"image"`
	Database string `json:"database"`
}

// Environment variables read by FromArgs.
const (
	EnvHold       = "HOLD"
	EnvSkipPG     = "SKIP_PG"
	EnvConfig     = "HARNESS_CONFIG"
	EnvRoot       = "HARNESS_ROOT"
	EnvLogLevel   = "LOG_LEVEL"
	EnvStatusAddr = "STATUS_ADDR"
)

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Root: ".",
		Relational: RelationalConfig{
			Image:    "postgres:17",
			Database: "tp1_ind500",
			Username: "postgres",
			Password: "postgres",
		},
		Document: DocumentConfig{
			Image:    "mongo:6.0",
			Database: "tp2_ind500",
		},
		Phase1Scripts: []string{"build-modeled.js", "normalize.js", "create-indexes.js"},
		Phase2Scripts: []string{"all-queries.js", "advanced-queries.js"},
		ExportPrefix:  "__csv_",
		StartAttempts: 1,
		TrackingDB:    "artifacts/harness.db",
		LogLevel:      "info",
	}
}

// Load reads a JSON configuration file over the defaults. An empty path
// returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Annotate(err, "reading config file")
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Annotate(err, "parsing config file")
	}
	cfg.applyDefaults()
	return cfg, nil
}

// applyDefaults fills fields a config file explicitly emptied.
func (c *Config) applyDefaults() {
	def := Default()
	if c.Root == "" {
		c.Root = def.Root
	}
	if c.Relational.Image == "" {
		c.Relational.Image = def.Relational.Image
	}
	if c.Relational.Database == "" {
		c.Relational.Database = def.Relational.Database
	}
	if c.Relational.Username == "" {
		c.Relational.Username = def.Relational.Username
	}
	if c.Relational.Password == "" {
		c.Relational.Password = def.Relational.Password
	}
	if c.Document.Image == "" {
		c.Document.Image = def.Document.Image
	}
	if c.Document.Database == "" {
		c.Document.Database = def.Document.Database
	}
	if c.ExportPrefix == "" {
		c.ExportPrefix = def.ExportPrefix
	}
	if c.StartAttempts == 0 {
		c.StartAttempts = def.StartAttempts
	}
	if c.TrackingDB == "" {
		c.TrackingDB = def.TrackingDB
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
}

// Validate validates the configuration
func (c Config) Validate() error {
	if c.Root == "" {
		return errors.New("root directory is required")
	}
	if c.Relational.Image == "" || c.Document.Image == "" {
		return errors.New("engine images are required")
	}
	if c.Relational.Database == "" || c.Document.Database == "" {
		return errors.New("database names are required")
	}
	if c.ExportPrefix == "" {
		return errors.New("export prefix is required")
	}
	if c.StartAttempts < 1 {
		return errors.Errorf("start attempts must be at least 1, got %d", c.StartAttempts)
	}
	for _, scripts := range [][]string{c.Phase1Scripts, c.Phase2Scripts} {
		for i, s := range scripts {
			if strings.TrimSpace(s) == "" {
				return errors.Errorf("script %d has an empty name", i)
			}
		}
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return errors.Errorf("invalid log level %q: must be 'debug', 'info', 'warn' or 'error'", c.LogLevel)
	}
	return nil
}

// FromArgs resolves the configuration from the command line and the
// environment. Precedence, lowest first: defaults, config file,
// environment, flags explicitly set on the command line.
func FromArgs(args []string, getenv func(string) string) (Config, error) {
	var (
		configPath = getenv(EnvConfig)
		flags      Config
	)
	fs := gnuflag.NewFlagSet("harness", gnuflag.ContinueOnError)
	fs.StringVar(&configPath, "config", configPath, "path to a JSON configuration file")
	fs.StringVar(&flags.Root, "root", "", "directory holding dump/, data/, scripts/ and artifacts/")
	fs.BoolVar(&flags.Hold, "hold", false, "keep the document engine running after the pipeline")
	fs.BoolVar(&flags.SkipRelational, "skip-pg", false, "skip the relational phase and reuse data/")
	fs.StringVar(&flags.LogLevel, "log-level", "", "log level: debug, info, warn, error")
	fs.StringVar(&flags.StatusAddr, "status-addr", "", "serve the inspection API on this address while holding")
	if err := fs.Parse(true, args); err != nil {
		return Config{}, errors.Trace(err)
	}
	if fs.NArg() > 0 {
		return Config{}, errors.Errorf("unexpected arguments: %v", fs.Args())
	}

	cfg, err := Load(configPath)
	if err != nil {
		return Config{}, errors.Trace(err)
	}
	cfg = cfg.withEnv(getenv)

	fs.Visit(func(f *gnuflag.Flag) {
		switch f.Name {
		case "root":
			cfg.Root = flags.Root
		case "hold":
			cfg.Hold = flags.Hold
		case "skip-pg":
			cfg.SkipRelational = flags.SkipRelational
		case "log-level":
			cfg.LogLevel = flags.LogLevel
		case "status-addr":
			cfg.StatusAddr = flags.StatusAddr
		}
	})

	if err := cfg.Validate(); err != nil {
		return Config{}, errors.Trace(err)
	}
	return cfg, nil
}

func (c Config) withEnv(getenv func(string) string) Config {
	if v, ok := lookupBool(getenv, EnvHold); ok {
		c.Hold = v
	}
	if v, ok := lookupBool(getenv, EnvSkipPG); ok {
		c.SkipRelational = v
	}
	if v := getenv(EnvRoot); v != "" {
		c.Root = v
	}
	if v := getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := getenv(EnvStatusAddr); v != "" {
		c.StatusAddr = v
	}
	return c
}

// lookupBool reads a "1"/"0" style switch. Unset variables are ignored.
func lookupBool(getenv func(string) string, key string) (bool, bool) {
	v := strings.TrimSpace(getenv(key))
	if v == "" {
		return false, false
	}
	return v == "1" || strings.EqualFold(v, "true"), true
}
