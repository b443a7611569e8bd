// Package config holds the dashboard settings. Values come from built-in
// defaults, an optional YAML file, MATCHDASH_* environment variables and
// command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var ErrInvalid = errors.New("invalid config")

type Config struct {
	// input
	Inputs []string `yaml:"inputs"`
	Format string   `yaml:"format"`

	// engine
	PageSize int     `yaml:"pageSize"`
	Beta     float64 `yaml:"beta"`

	// render
	TopK        int           `yaml:"topK"`
	FullRefresh time.Duration `yaml:"fullRefresh"`
	PartialSize int           `yaml:"partialSize"`
	ViewSplit   int           `yaml:"viewSplit"`
	LogScale    bool          `yaml:"logScale"`
	AltScreen   bool          `yaml:"altScreen"`

	StatsEnabled bool `yaml:"stats"`
	StatsWindow  int  `yaml:"statsWindow"`

	// logging
	LogLevel  string `yaml:"logLevel"`
	LogFormat string `yaml:"logFormat"`
	LogFile   string `yaml:"logFile"`

	MetricsAddr string `yaml:"metricsAddr"`
}

func Default() Config {
	return Config{
		Format:   "",
		PageSize: 30,
		Beta:     1,

		TopK:        50,
		FullRefresh: 2 * time.Second,
		PartialSize: 0,
		ViewSplit:   40,
		AltScreen:   true,

		StatsEnabled: true,
		StatsWindow:  256,

		LogLevel:  "info",
		LogFormat: "text",
	}
}

// Load returns the defaults overlaid with the YAML file at path, if any, and
// the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	if err := applyEnvOverrides(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("MATCHDASH_INPUTS"); v != "" {
		cfg.Inputs = strings.Split(v, ",")
	}
	if v := os.Getenv("MATCHDASH_FORMAT"); v != "" {
		cfg.Format = v
	}
	if v := os.Getenv("MATCHDASH_PAGE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: MATCHDASH_PAGE_SIZE=%q", ErrInvalid, v)
		}
		cfg.PageSize = n
	}
	if v := os.Getenv("MATCHDASH_BETA"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%w: MATCHDASH_BETA=%q", ErrInvalid, v)
		}
		cfg.Beta = f
	}
	if v := os.Getenv("MATCHDASH_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("MATCHDASH_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := os.Getenv("MATCHDASH_LOG_FILE"); v != "" {
		cfg.LogFile = v
	}
	if v := os.Getenv("MATCHDASH_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
	return nil
}

// RegisterFlags binds every setting to fs with the current values as
// defaults. -in may be repeated.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.Func("in", "Read evaluation records from this file (repeatable)", func(v string) error {
		c.Inputs = append(c.Inputs, v)
		return nil
	})
	fs.StringVar(&c.Format, "format", c.Format, "Input format: csv, json (default: by file extension)")
	fs.IntVar(&c.PageSize, "page-size", c.PageSize, "Rows per data table page")
	fs.Float64Var(&c.Beta, "beta", c.Beta, "Beta of the F-measure")
	fs.IntVar(&c.TopK, "k", c.TopK, "Show at most K values per facet")
	fs.DurationVar(&c.FullRefresh, "full-refresh", c.FullRefresh, "How often to fully re-rank facet values (0 = always)")
	fs.IntVar(&c.PartialSize, "partial-size", c.PartialSize, "How many facet values to re-rank between full refreshes (0 = all visible)")
	fs.IntVar(&c.ViewSplit, "view-split", c.ViewSplit, "Split the view at this % of the total screen width [20,80]")
	fs.BoolVar(&c.LogScale, "log-scale", c.LogScale, "Use a logarithmic Y axis for the confidence plot")
	fs.BoolVar(&c.AltScreen, "alt-screen", c.AltScreen, "Use the terminal alternate screen buffer")
	fs.BoolVar(&c.StatsEnabled, "stats", c.StatsEnabled, "Show interaction latency stats")
	fs.IntVar(&c.StatsWindow, "stats-window", c.StatsWindow, "Number of recent samples kept per metric")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level: debug, info, warn, error")
	fs.StringVar(&c.LogFormat, "log-format", c.LogFormat, "Log format: text, json")
	fs.StringVar(&c.LogFile, "log-file", c.LogFile, "Write logs to this file (default: discard)")
	fs.StringVar(&c.MetricsAddr, "metrics-addr", c.MetricsAddr, "Serve Prometheus metrics on this address (empty = off)")
}

// Parse loads the file named by -config, then applies the remaining flags.
// Positional arguments are taken as further inputs.
func Parse(name string, args []string) (Config, error) {
	cfg, err := Load(configPath(args))
	if err != nil {
		return cfg, err
	}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.String("config", "", "Read settings from this YAML file")
	cfg.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	cfg.Inputs = append(cfg.Inputs, fs.Args()...)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func configPath(args []string) string {
	for i, a := range args {
		if a == "--" {
			break
		}
		name, value, hasValue := strings.Cut(strings.TrimLeft(a, "-"), "=")
		if !strings.HasPrefix(a, "-") || name != "config" {
			continue
		}
		if hasValue {
			return value
		}
		if i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

// Validate rejects unusable settings and clamps cosmetic ones.
func (c *Config) Validate() error {
	if len(c.Inputs) == 0 {
		return fmt.Errorf("%w: at least one -in file is required", ErrInvalid)
	}
	switch c.Format {
	case "", "csv", "json":
	default:
		return fmt.Errorf("%w: -format must be csv or json (got %q)", ErrInvalid, c.Format)
	}
	if c.PageSize < 1 {
		return fmt.Errorf("%w: -page-size must be >= 1", ErrInvalid)
	}
	if c.Beta <= 0 {
		return fmt.Errorf("%w: -beta must be > 0", ErrInvalid)
	}
	if c.TopK < 1 {
		return fmt.Errorf("%w: -k must be >= 1", ErrInvalid)
	}
	if c.FullRefresh < 0 {
		return fmt.Errorf("%w: -full-refresh must be >= 0", ErrInvalid)
	}
	if c.PartialSize < 0 {
		return fmt.Errorf("%w: -partial-size must be >= 0", ErrInvalid)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: -log-format must be text or json (got %q)", ErrInvalid, c.LogFormat)
	}

	c.ViewSplit = min(80, max(20, c.ViewSplit))
	if c.StatsWindow < 16 {
		c.StatsWindow = 16
	}
	return nil
}
