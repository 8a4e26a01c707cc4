// Package config loads dslint configuration from defaults, dslint.yaml,
// DSLINT_ environment variables and command-line flags, in increasing order
// of precedence.
package config

import (
	"github.com/leapstack-labs/dslint/internal/cli/output"
	"github.com/leapstack-labs/dslint/pkg/dataset"
	"github.com/leapstack-labs/dslint/pkg/identity"
)

// Config holds all CLI configuration options.
type Config struct {
	OutputFormat  string           `koanf:"output"`
	Verbose       bool             `koanf:"verbose"`
	Jobs          int              `koanf:"jobs"`
	DataRoot      string           `koanf:"data_root"`
	SampleSize    int              `koanf:"sample_size"`
	SampleSeed    uint64           `koanf:"sample_seed"`
	MaxAliasDepth int              `koanf:"max_alias_depth"`
	MeanAsMedian  bool             `koanf:"mean_as_median"`
	Lint          LintConfig       `koanf:"lint"`
	Contracts     []ContractConfig `koanf:"contracts"`
	Loaders       []LoaderAlias    `koanf:"loaders"`

	// ProjectRoot is the directory of the config file, or the working
	// directory when there is none. Relative paths resolve against it.
	ProjectRoot string `koanf:"-"`
}

// LintConfig configures rule selection.
type LintConfig struct {
	Disabled []string                  `koanf:"disabled"`
	Severity map[string]string         `koanf:"severity"`
	Rules    map[string]map[string]any `koanf:"rules"`
}

// ContractConfig declares the preconditions of one callable.
type ContractConfig struct {
	Identity      string   `koanf:"identity"`
	Params        []string `koanf:"params"`
	Datasets      []string `koanf:"datasets"`
	Preconditions []string `koanf:"preconditions"`
}

// LoaderAlias serves Identity with the built-in loader named by Target.
// It is a list entry rather than a map key because identities contain dots.
type LoaderAlias struct {
	Identity string `koanf:"identity"`
	Target   string `koanf:"target"`
}

// Default configuration values.
const (
	DefaultOutput        = string(output.ModeAuto)
	DefaultJobs          = 4
	DefaultDataRoot      = "."
	DefaultSampleSize    = dataset.DefaultSampleSize
	DefaultMaxAliasDepth = identity.DefaultMaxDepth
)

// Defaults returns the configuration used when nothing else is set.
func Defaults() *Config {
	return &Config{
		OutputFormat:  DefaultOutput,
		Jobs:          DefaultJobs,
		DataRoot:      DefaultDataRoot,
		SampleSize:    DefaultSampleSize,
		MaxAliasDepth: DefaultMaxAliasDepth,
	}
}

func defaultsMap() map[string]any {
	return map[string]any{
		"output":          DefaultOutput,
		"verbose":         false,
		"jobs":            DefaultJobs,
		"data_root":       DefaultDataRoot,
		"sample_size":     DefaultSampleSize,
		"sample_seed":     0,
		"max_alias_depth": DefaultMaxAliasDepth,
		"mean_as_median":  false,
	}
}
