package config

import (
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/pkg/errors"
)

type Config struct {
	Exclusions    ExclusionsConfig    `koanf:"exclusions"`
	Filters       FiltersConfig       `koanf:"filters"`
	Performance   PerformanceConfig   `koanf:"performance"`
	Checksum      ChecksumConfig      `koanf:"checksum"`
	Notifications NotificationsConfig `koanf:"notifications"`
}

// ExclusionsConfig controls which directory entries are dropped during a
// scan. Names and Prefixes match against base names only; Patterns are
// regular expressions matched against the slash-separated relative path.
type ExclusionsConfig struct {
	Names    []string `koanf:"names"`
	Prefixes []string `koanf:"prefixes"`
	Patterns []string `koanf:"patterns"`
}

// FiltersConfig holds user expressions evaluated against scanned files.
// A file matching any ignore expression is dropped from the result.
type FiltersConfig struct {
	Ignore []string `koanf:"ignore"`
}

type PerformanceConfig struct {
	Workers    int    `koanf:"workers"`
	BufferSize string `koanf:"buffer_size"`
	IOLimit    string `koanf:"io_limit"`
}

type ChecksumConfig struct {
	Algorithm string `koanf:"algorithm"`
}

// Load reads the configuration file at configFilePath, layered over the
// built-in defaults. A missing file is not an error; a malformed one is.
func Load(configFilePath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, errors.Wrap(err, "load default configuration")
	}

	if _, err := os.Stat(configFilePath); err == nil {
		if err := k.Load(file.Provider(configFilePath), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "load configuration file: %q", configFilePath)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "stat configuration file: %q", configFilePath)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshal configuration")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"exclusions.names":        []string{".DS_Store"},
		"exclusions.prefixes":     []string{"._"},
		"performance.workers":     8,
		"performance.buffer_size": "1MiB",
		"checksum.algorithm":      "blake3",
	}
}

func (c *Config) validate() error {
	if _, err := c.ReadBufferSize(); err != nil {
		return err
	}

	if _, err := c.IOLimit(); err != nil {
		return err
	}

	return nil
}

// ReadBufferSize returns performance.buffer_size in bytes.
func (c *Config) ReadBufferSize() (int, error) {
	n, err := humanize.ParseBytes(c.Performance.BufferSize)
	if err != nil {
		return 0, errors.Wrapf(err, "parse performance.buffer_size: %q", c.Performance.BufferSize)
	}

	if n == 0 {
		return 0, errors.Errorf("performance.buffer_size must be at least one byte: %q", c.Performance.BufferSize)
	}

	return int(n), nil
}

// IOLimit returns performance.io_limit in bytes per second, 0 when unset.
func (c *Config) IOLimit() (uint64, error) {
	if c.Performance.IOLimit == "" {
		return 0, nil
	}

	n, err := humanize.ParseBytes(c.Performance.IOLimit)
	if err != nil {
		return 0, errors.Wrapf(err, "parse performance.io_limit: %q", c.Performance.IOLimit)
	}

	return n, nil
}

// GetDefaultConfigDirectory returns the directory the config file is looked
// up in: the current directory when it already holds one, otherwise the
// platform config dir for appName.
func GetDefaultConfigDirectory(appName string, configFileName string) string {
	if dir, err := os.Getwd(); err == nil {
		if _, err := os.Stat(filepath.Join(dir, configFileName)); err == nil {
			return dir
		}
	}

	if configDir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(configDir, appName)
	}

	return "."
}
