package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	EnvPrefix      = "STORYGEN"
	configName     = "storygen"
	defaultEnvFile = ".env"
)

// Loader resolves Config from flags, STORYGEN_* environment variables,
// an optional YAML file and defaults, in that order of precedence.
type Loader struct {
	v           *viper.Viper
	envFile     string
	searchPaths []string
}

type Option func(*Loader)

// WithEnvFile loads extra environment variables from path. Existing
// variables are not overwritten. A missing file is ignored.
func WithEnvFile(path string) Option {
	return func(l *Loader) {
		l.envFile = path
	}
}

// WithSearchPaths replaces the directories searched for storygen.yaml.
func WithSearchPaths(paths ...string) Option {
	return func(l *Loader) {
		l.searchPaths = paths
	}
}

func NewLoader(flags *pflag.FlagSet, opts ...Option) (*Loader, error) {
	l := &Loader{
		v:           viper.New(),
		envFile:     defaultEnvFile,
		searchPaths: defaultSearchPaths(),
	}
	for _, opt := range opts {
		opt(l)
	}

	if err := loadEnvFile(l.envFile); err != nil {
		return nil, err
	}

	for k, val := range Defaults {
		l.v.SetDefault(k, val)
	}

	l.v.SetEnvPrefix(EnvPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	l.v.AutomaticEnv()

	if flags != nil {
		if err := l.v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("config: bind flags: %w", err)
		}
	}

	if err := l.readConfigFile(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Loader) readConfigFile() error {
	if explicit := strings.TrimSpace(l.v.GetString("config")); explicit != "" {
		l.v.SetConfigFile(explicit)
		if err := l.v.ReadInConfig(); err != nil {
			return fmt.Errorf("config: read %q: %w", explicit, err)
		}
		return nil
	}

	l.v.SetConfigName(configName)
	for _, p := range l.searchPaths {
		l.v.AddConfigPath(p)
	}
	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("config: read config file: %w", err)
		}
	}
	return nil
}

// ConfigFileUsed returns the YAML file that was read, if any.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// ApplyRemoteDefaults installs shared defaults (e.g. from SSM). They replace
// the built-in defaults but lose to the config file, environment and flags.
// Unknown keys are ignored and returned.
func (l *Loader) ApplyRemoteDefaults(values map[string]string) (ignored []string) {
	for k, val := range values {
		key := strings.ToLower(strings.TrimSpace(k))
		if !remoteKeys[key] {
			ignored = append(ignored, k)
			continue
		}
		l.v.SetDefault(key, val)
	}
	return ignored
}

// Load unmarshals and validates the current configuration.
func (l *Loader) Load() (*Config, error) {
	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	cfg.Output = strings.ToLower(strings.TrimSpace(cfg.Output))
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadEnvFile(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("config: load %s: %w", path, err)
	}
	return nil
}

func defaultSearchPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", configName))
	}
	return paths
}
