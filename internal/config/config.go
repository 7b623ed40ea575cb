package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendMySQL = "mysql"
)

// Config holds all configuration for the application
type Config struct {
	// Project settings
	ProjectPath   string   `yaml:"project_path"`
	Roots         []string `yaml:"roots"`
	PathsToIgnore []string `yaml:"paths_to_ignore"`
	IgnoreGlobs   []string `yaml:"ignore_globs"`
	Workers       int      `yaml:"workers"`

	// Persisted state
	StateDir    string      `yaml:"state_dir"`
	StateFormat string      `yaml:"state_format"`
	Store       StoreConfig `yaml:"store"`

	// Output settings
	ReportFile string `yaml:"report_file"`

	// Execution settings
	TickInterval time.Duration `yaml:"tick_interval"`

	LogLevel    string `yaml:"log_level"`
	MetricsAddr string `yaml:"metrics_addr"`

	// Command flags
	Flags Flags `yaml:"-"`
}

// StoreConfig selects and configures the persisted-state backend.
type StoreConfig struct {
	Backend  string      `yaml:"backend"`
	Key      string      `yaml:"key"`
	File     string      `yaml:"file"`
	RedisURL string      `yaml:"redis_url"`
	MySQL    MySQLConfig `yaml:"mysql"`
}

// MySQLConfig holds the connection settings of the mysql backend.
type MySQLConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	Table    string `yaml:"table"`
}

// Flags holds command-line flags
type Flags struct {
	ConfigFile   string
	ProjectPath  string
	NameFilter   string
	Backend      string
	StateFormat  string
	LogLevel     string
	MetricsAddr  string
	TickInterval time.Duration
	Yes          bool
}

// New creates a new Config with defaults
func New() *Config {
	cfg := &Config{
		ProjectPath: DefaultProjectPath,
		Workers:     DefaultWorkers,
		StateDir:    DefaultStateDir,
		StateFormat: DefaultStateFormat,
		Store: StoreConfig{
			Backend:  DefaultStoreBackend,
			Key:      DefaultStoreKey,
			File:     DefaultStoreFile,
			RedisURL: DefaultRedisURL,
			MySQL: MySQLConfig{
				Host:     "127.0.0.1",
				Port:     "3306",
				User:     "root",
				Database: "testmgr",
				Table:    DefaultMySQLTable,
			},
		},
		ReportFile:   DefaultReportFile,
		TickInterval: DefaultTickInterval,
		LogLevel:     DefaultLogLevel,
	}
	// Copy default slices so callers can't modify the package defaults
	cfg.Roots = append([]string(nil), DefaultRoots...)
	cfg.PathsToIgnore = append([]string(nil), DefaultPathsToIgnore...)
	return cfg
}

// Load builds the configuration: defaults, then the config file, then the environment
// (including the project .env file), then flags.
func Load(flags Flags) (*Config, error) {
	cfg := New()
	cfg.Flags = flags
	if flags.ProjectPath != "" {
		cfg.ProjectPath = flags.ProjectPath
	}

	file := flags.ConfigFile
	if file == "" {
		file = filepath.Join(cfg.ProjectPath, DefaultConfigFile)
	}
	if err := cfg.loadFile(file, flags.ConfigFile != ""); err != nil {
		return nil, err
	}
	if flags.ProjectPath != "" {
		cfg.ProjectPath = flags.ProjectPath
	}

	// .env file might not exist, that's okay - use environment variables
	_ = godotenv.Load(filepath.Join(cfg.ProjectPath, DefaultEnvFile))
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	cfg.applyFlags(flags)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string, required bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// applyEnv applies TESTMGR_* overrides, and the DB_* variables for the mysql backend.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("TESTMGR_PROJECT_PATH", &c.ProjectPath)
	str("TESTMGR_STORE", &c.Store.Backend)
	str("TESTMGR_STORE_KEY", &c.Store.Key)
	str("TESTMGR_STORE_FILE", &c.Store.File)
	str("TESTMGR_REDIS_URL", &c.Store.RedisURL)
	str("TESTMGR_STATE_DIR", &c.StateDir)
	str("TESTMGR_STATE_FORMAT", &c.StateFormat)
	str("TESTMGR_LOG_LEVEL", &c.LogLevel)
	str("TESTMGR_METRICS_ADDR", &c.MetricsAddr)

	str("DB_HOST", &c.Store.MySQL.Host)
	str("DB_PORT", &c.Store.MySQL.Port)
	str("DB_USERNAME", &c.Store.MySQL.User)
	str("DB_PASSWORD", &c.Store.MySQL.Password)
	str("DB_DATABASE", &c.Store.MySQL.Database)

	if v, ok := lookup("TESTMGR_ROOTS"); ok && v != "" {
		c.Roots = splitList(v)
	}
	if v, ok := lookup("TESTMGR_TICK_INTERVAL"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("TESTMGR_TICK_INTERVAL: %w", err)
		}
		c.TickInterval = d
	}
	if v, ok := lookup("TESTMGR_WORKERS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TESTMGR_WORKERS: %w", err)
		}
		c.Workers = n
	}
	return nil
}

func (c *Config) applyFlags(flags Flags) {
	if flags.Backend != "" {
		c.Store.Backend = flags.Backend
	}
	if flags.StateFormat != "" {
		c.StateFormat = flags.StateFormat
	}
	if flags.LogLevel != "" {
		c.LogLevel = flags.LogLevel
	}
	if flags.MetricsAddr != "" {
		c.MetricsAddr = flags.MetricsAddr
	}
	if flags.TickInterval > 0 {
		c.TickInterval = flags.TickInterval
	}
}

// Validate checks the values that would otherwise fail late.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendFile, BackendRedis, BackendMySQL:
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	if c.Store.Key == "" {
		return errors.New("store key must not be empty")
	}
	if len(c.Roots) == 0 {
		return errors.New("at least one source root is required")
	}
	if c.TickInterval < 0 {
		return fmt.Errorf("tick interval must not be negative, got %s", c.TickInterval)
	}
	if c.Workers < 1 {
		c.Workers = 1
	}
	return nil
}

// GetRoots returns the source roots as absolute directories.
func (c *Config) GetRoots() []string {
	roots := make([]string, 0, len(c.Roots))
	for _, r := range c.Roots {
		roots = append(roots, c.abs(r))
	}
	return roots
}

// GetStateDir returns the directory holding prefs and reports.
func (c *Config) GetStateDir() string {
	return c.abs(c.StateDir)
}

// GetStorePath returns the prefs file used by the file backend.
func (c *Config) GetStorePath() string {
	if filepath.IsAbs(c.Store.File) {
		return c.Store.File
	}
	return filepath.Join(c.GetStateDir(), c.Store.File)
}

// GetReportPath returns the full path to the report of the last run.
// Resolves to an absolute path so run and report always read/write the same file regardless of cwd.
func (c *Config) GetReportPath() string {
	if filepath.IsAbs(c.ReportFile) {
		return c.ReportFile
	}
	return filepath.Join(c.GetStateDir(), c.ReportFile)
}

func (c *Config) abs(p string) string {
	if !filepath.IsAbs(p) {
		p = filepath.Join(c.ProjectPath, p)
	}
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
