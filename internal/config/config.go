package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"storygen/internal/integrations/ollama"
	"storygen/internal/render"
	"storygen/internal/storage"
	"storygen/internal/usecase"
)

// Config is the resolved configuration for one storygen invocation.
// Keys match the CLI flag names.
type Config struct {
	Role    string `mapstructure:"role"`
	Feature string `mapstructure:"feature"`
	Benefit string `mapstructure:"benefit"`

	Output string `mapstructure:"output"`
	Save   bool   `mapstructure:"save"`
	OutDir string `mapstructure:"outdir"`
	Pretty bool   `mapstructure:"pretty"`

	OllamaURL string        `mapstructure:"ollama-url"`
	Model     string        `mapstructure:"model"`
	Timeout   time.Duration `mapstructure:"timeout"`

	ParamPrefix  string `mapstructure:"param-prefix"`
	ArchiveTable string `mapstructure:"archive-table"`

	LogLevel  string `mapstructure:"log-level"`
	LogFormat string `mapstructure:"log-format"`
}

// Defaults are the built-in values, lowest precedence.
var Defaults = map[string]any{
	"role":          "",
	"feature":       "",
	"benefit":       "",
	"save":          false,
	"pretty":        false,
	"param-prefix":  "",
	"archive-table": "",
	"output":        string(render.FormatMarkdown),
	"outdir":        storage.DefaultDir,
	"ollama-url":    ollama.DefaultURL,
	"model":         usecase.DefaultModel,
	"timeout":       ollama.DefaultTimeout,
	"log-level":     "warn",
	"log-format":    "console",
}

// remoteKeys are the SSM parameter names accepted as shared defaults.
var remoteKeys = map[string]bool{
	"ollama-url": true,
	"model":      true,
	"timeout":    true,
	"outdir":     true,
	"output":     true,
}

// Format returns the parsed output format.
func (c *Config) Format() render.Format {
	f, _ := render.ParseFormat(c.Output)
	return f
}

func validateConfig(c *Config) error {
	var problems []string
	if _, err := render.ParseFormat(c.Output); err != nil {
		problems = append(problems, err.Error())
	}
	if strings.TrimSpace(c.OllamaURL) == "" {
		problems = append(problems, "ollama-url must not be empty")
	}
	if strings.TrimSpace(c.Model) == "" {
		problems = append(problems, "model must not be empty")
	}
	if c.Timeout <= 0 {
		problems = append(problems, fmt.Sprintf("timeout must be positive, got %s", c.Timeout))
	}
	if strings.TrimSpace(c.OutDir) == "" {
		problems = append(problems, "outdir must not be empty")
	}
	if len(problems) > 0 {
		return errors.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}
