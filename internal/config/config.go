// Package config loads mockset.yaml or mockset.toml.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// DefaultNames are the file names Discover looks for, in order.
var DefaultNames = []string{"mockset.yaml", "mockset.yml", "mockset.toml"}

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

type Config struct {
	Data     DataConfig     `yaml:"data" toml:"data"`
	Overlays OverlaysConfig `yaml:"overlays" toml:"overlays"`
	Store    StoreConfig    `yaml:"store" toml:"store"`
	Output   OutputConfig   `yaml:"output" toml:"output"`
	Watch    WatchConfig    `yaml:"watch" toml:"watch"`

	// Path is the file the config was read from; empty for defaults.
	Path string `yaml:"-" toml:"-"`
}

type DataConfig struct {
	Root    string `yaml:"root" toml:"root"`
	Version string `yaml:"version" toml:"version"`
}

// OverlaysConfig sets the stack used when a command is given none.
type OverlaysConfig struct {
	Stack  []string `yaml:"stack" toml:"stack"`
	Client string   `yaml:"client" toml:"client"`
}

type StoreConfig struct {
	Path string `yaml:"path" toml:"path"`
}

type OutputConfig struct {
	// MaxErrors caps the errors printed per failed check.
	MaxErrors int    `yaml:"max_errors" toml:"max_errors"`
	Format    string `yaml:"format" toml:"format"`
}

type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce" toml:"debounce"`
}

// Default returns a config with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads the config at path. The format follows the extension: .yaml
// and .yml decode strictly with yaml.v3, .toml with BurntSushi/toml. Unknown
// keys are errors in both. Relative paths in the file are resolved against
// the file's directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	case ".toml":
		md, err := toml.Decode(string(data), &cfg)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("%s: unknown key %q", path, undecoded[0].String())
		}
	default:
		return nil, fmt.Errorf("%s: unsupported config format %q (want .yaml, .yml or .toml)", path, ext)
	}

	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	base := filepath.Dir(path)
	cfg.Data.Root = resolve(base, cfg.Data.Root)
	cfg.Store.Path = resolve(base, cfg.Store.Path)
	cfg.Path = path
	return &cfg, nil
}

// Discover returns the first of DefaultNames present in dir.
func Discover(dir string) (string, bool) {
	for _, name := range DefaultNames {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

// Resolve loads the explicitly named config, or else the one discovered in
// dir, or else the defaults. A missing explicit file is an error.
func Resolve(explicit, dir string) (*Config, error) {
	if explicit != "" {
		cfg, err := Load(explicit)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config file not found: %s", explicit)
		}
		return cfg, err
	}
	if path, ok := Discover(dir); ok {
		return Load(path)
	}
	return Default(), nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Data.Root) == "" {
		cfg.Data.Root = "data"
	}
	if strings.TrimSpace(cfg.Data.Version) == "" {
		cfg.Data.Version = "latest"
	}
	if strings.TrimSpace(cfg.Store.Path) == "" {
		cfg.Store.Path = "mockset.db"
	}
	if cfg.Output.MaxErrors == 0 {
		cfg.Output.MaxErrors = 10
	}
	if strings.TrimSpace(cfg.Output.Format) == "" {
		cfg.Output.Format = FormatText
	}
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 300 * time.Millisecond
	}
}

func validate(cfg *Config) error {
	if cfg.Output.MaxErrors < 0 {
		return fmt.Errorf("output.max_errors must be positive, got %d", cfg.Output.MaxErrors)
	}
	format := strings.ToLower(strings.TrimSpace(cfg.Output.Format))
	if format != FormatText && format != FormatJSON {
		return fmt.Errorf("output.format must be one of: text, json; got %q", cfg.Output.Format)
	}
	cfg.Output.Format = format

	if cfg.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative, got %s", cfg.Watch.Debounce)
	}

	seen := make(map[string]bool, len(cfg.Overlays.Stack))
	for i, name := range cfg.Overlays.Stack {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("overlays.stack[%d] must not be empty", i)
		}
		if seen[name] {
			return fmt.Errorf("overlays.stack lists %q twice", name)
		}
		seen[name] = true
	}
	return nil
}

func resolve(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}
