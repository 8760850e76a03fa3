package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/andeslee444/Project-H/internal/safety"
)

// DefaultBaseDir is the project directory the original cleanup script
// was written against. Overridable via config file or the -dir flag.
const DefaultBaseDir = "/Users/andeslee/Documents/Cursor-Projects/Project-H/frontend"

// DefaultFiles is the built-in manifest of temporary files to remove,
// relative to the base directory.
var DefaultFiles = []string{
	// SQL files
	"FIX_DATABASE_NOW.sql",
	"FIX_RLS_POLICIES_HIPAA_COMPLIANT.sql",
	"DISCOVER_REAL_SCHEMA.sql",
	"SIMPLE_FIX_JUST_MAKE_IT_WORK.sql",
	"REAL_FIX_BASED_ON_ACTUAL_SCHEMA.sql",
	"fix-rls-policies.sql",
	"update-patient-phones.sql",

	// HTML files
	"update-patient-phones.html",
	"waitlist-preview.html",
	"debug-supabase.html",

	// JS files
	"debug-integration-test.js",
	"debug-test.js",
	"debug-supabase-hang.js",
	"run-seed-now.js",
	"execute-rls-fixes.js",
	"update-all-patient-phones.js",

	// Temporary documentation
	"SUMMARY_FIXES_COMPLETE.md",
	"SUPABASE_RLS_FIX_INSTRUCTIONS.md",
	"cleanup-temp-files.sh",

	// Public test file
	"public/test-supabase.html",

	// Earlier cleanup scripts
	"perform-cleanup.sh",
	"cleanup.js",
}

// DefaultGlobPatterns are resolved against the base directory at run time.
var DefaultGlobPatterns = []string{"test-*.html"}

type PrometheusCfg struct {
	Port int `yaml:"port" json:"port"` // 0 disables the metrics endpoint
}

type LoggingCfg struct {
	Path         string `yaml:"path" json:"path"`                   // Optional log file; empty means stdout only
	RotationDays int    `yaml:"rotation_days" json:"rotation_days"` // Days to keep logs before rotation
}

type Config struct {
	BaseDir      string        `yaml:"base_dir" json:"base_dir"`
	Files        []string      `yaml:"files" json:"files"`
	GlobPatterns []string      `yaml:"glob_patterns" json:"glob_patterns"`
	RemoveSelf   bool          `yaml:"remove_self" json:"remove_self"`
	DatabasePath string        `yaml:"database_path" json:"database_path"` // SQLite removal history; empty disables
	Prometheus   PrometheusCfg `yaml:"prometheus" json:"prometheus"`
	Logging      LoggingCfg    `yaml:"logging" json:"logging"`
}

var (
	errInvalidBaseDir  = errors.New("base_dir must be absolute")
	errEmptyEntry      = errors.New("file entry must not be empty")
	errAbsoluteEntry   = errors.New("file entry must be relative to base_dir")
	errTraversalEntry  = errors.New("file entry must not contain \"..\"")
	errInvalidPattern  = errors.New("invalid glob pattern")
	errAbsolutePattern = errors.New("glob pattern must be relative to base_dir")
)

// Default returns the configuration the tool runs with when no config
// file is given: the original script's manifest against its original
// project directory.
func Default() *Config {
	cfg := &Config{
		BaseDir:      DefaultBaseDir,
		Files:        append([]string(nil), DefaultFiles...),
		GlobPatterns: append([]string(nil), DefaultGlobPatterns...),
		RemoveSelf:   true,
	}
	cfg.Logging.RotationDays = 30
	return cfg
}

func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg, err := decode(f)
	if err != nil {
		return nil, err
	}
	if err := cfg.validateAndDefault(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(r io.Reader) (*Config, error) {
	// Start from defaults so a partial config file only overrides what
	// it names. RemoveSelf must stay explicit: a file that omits it
	// keeps the original self-destructing behavior.
	cfg := Default()
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(cfg); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return cfg, nil
}

func (c *Config) validateAndDefault() error {
	if c.BaseDir == "" {
		c.BaseDir = DefaultBaseDir
	}
	cp, err := cleanAbsolute(c.BaseDir)
	if err != nil {
		return err
	}
	c.BaseDir = cp

	if c.Files == nil {
		c.Files = append([]string(nil), DefaultFiles...)
	}
	if c.GlobPatterns == nil {
		c.GlobPatterns = append([]string(nil), DefaultGlobPatterns...)
	}

	for _, f := range c.Files {
		if strings.TrimSpace(f) == "" {
			return errEmptyEntry
		}
		if filepath.IsAbs(f) {
			return fmt.Errorf("%w: %s", errAbsoluteEntry, f)
		}
		if safety.HasTraversal(f) {
			return fmt.Errorf("%w: %s", errTraversalEntry, f)
		}
	}

	for _, p := range c.GlobPatterns {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("%w: empty pattern", errInvalidPattern)
		}
		if filepath.IsAbs(p) {
			return fmt.Errorf("%w: %s", errAbsolutePattern, p)
		}
		if safety.HasTraversal(p) {
			return fmt.Errorf("%w: %s", errInvalidPattern, p)
		}
		if _, err := filepath.Match(p, ""); err != nil {
			return fmt.Errorf("%w: %s", errInvalidPattern, p)
		}
	}

	if c.Logging.RotationDays <= 0 {
		c.Logging.RotationDays = 30
	}

	return nil
}

func cleanAbsolute(p string) (string, error) {
	if p == "" {
		return "", errInvalidBaseDir
	}
	cp := filepath.Clean(p)
	if !filepath.IsAbs(cp) {
		return "", fmt.Errorf("%w: %s", errInvalidBaseDir, p)
	}
	return cp, nil
}

func (c *Config) PrometheusAddress() string {
	return fmt.Sprintf(":%d", c.Prometheus.Port)
}
