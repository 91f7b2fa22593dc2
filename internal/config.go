package internal

import (
	"log/slog"

	"github.com/kelseyhightower/envconfig"
)

// Config holds settings shared by the tools, read from GITOPS_* environment
// variables.
type Config struct {
	// RulesFile overrides the embedded namespacing rules.
	RulesFile string `split_words:"true"`
	// LogLevel is the minimum level of messages logged.
	LogLevel slog.Level `split_words:"true" default:"INFO"`
	// MetricsFile is where counters are written on exit, if set.
	MetricsFile string `split_words:"true"`
	// TemplatesDir overrides the embedded secret templates.
	TemplatesDir string `split_words:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process("gitops", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadRules loads the configured namespacing rules, warning about rules that
// will never be consulted.
func (c Config) LoadRules(logger *slog.Logger) (*Rules, error) {
	var (
		rules *Rules
		err   error
	)
	if c.RulesFile != "" {
		rules, err = LoadRulesFile(c.RulesFile)
	} else {
		rules, err = DefaultRules()
	}
	if err != nil {
		return nil, err
	}
	for _, gk := range rules.Duplicates() {
		logger.Warn("duplicate namespacing rule, only the first applies", "group", gk.Group, "kind", gk.Kind)
	}
	return rules, nil
}
