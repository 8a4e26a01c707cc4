package config

import (
	"log/slog"
	"strings"

	"github.com/leapstack-labs/dslint/pkg/adapter"
	"github.com/leapstack-labs/dslint/pkg/adapters"
	"github.com/leapstack-labs/dslint/pkg/contract"
	"github.com/leapstack-labs/dslint/pkg/dataset"
	"github.com/leapstack-labs/dslint/pkg/lint"
	"github.com/leapstack-labs/dslint/pkg/lint/rules/data"
	"github.com/leapstack-labs/dslint/pkg/loader"
)

// LintRuleConfig builds the analyzer configuration. Unknown severities are
// skipped; Validate reports them.
func (c *Config) LintRuleConfig() *lint.Config {
	cfg := lint.NewConfig()
	for _, id := range c.Lint.Disabled {
		cfg.Disable(strings.TrimSpace(id))
	}
	for id, sev := range c.Lint.Severity {
		if s, ok := lint.ParseSeverity(sev); ok {
			cfg.SetSeverity(id, s)
		}
	}
	for id, opts := range c.Lint.Rules {
		cfg.SetRuleOptions(id, opts)
	}
	return cfg
}

// ContractRules returns the built-in contracts followed by the configured
// ones. A configured contract replaces a built-in one with the same identity.
func (c *Config) ContractRules() []contract.Rule {
	rules := contract.DefaultRules()
	for _, cc := range c.Contracts {
		rules = append(rules, contract.Rule{
			Identity:      cc.Identity,
			Params:        cc.Params,
			Datasets:      cc.Datasets,
			Preconditions: cc.Preconditions,
		})
	}
	return rules
}

// Statistics returns the statistic table the configuration selects.
func (c *Config) Statistics() *dataset.Statistics {
	if c.MeanAsMedian {
		return dataset.DefaultStatistics(dataset.WithMeanAsMedian())
	}
	return dataset.DefaultStatistics()
}

// LoaderRegistry returns the built-in loaders reading below DataRoot, plus
// the configured aliases.
func (c *Config) LoaderRegistry(logger *slog.Logger) (*loader.Registry, error) {
	reg := loader.NewRegistry(&loader.Env{
		DataRoot: c.DataRoot,
		Adapters: adapters.Default(),
		Sampling: adapter.Sampling{Size: c.SampleSize, Seed: c.SampleSeed},
		Logger:   logger,
	}, loader.Pandas())
	if len(c.Loaders) == 0 {
		return reg, nil
	}
	aliases := make(map[string]string, len(c.Loaders))
	for _, a := range c.Loaders {
		aliases[a.Identity] = a.Target
	}
	return reg.WithAliases(aliases)
}

// DataEnv returns the environment of the data rules.
func (c *Config) DataEnv(logger *slog.Logger) (data.Env, error) {
	loaders, err := c.LoaderRegistry(logger)
	if err != nil {
		return data.Env{}, err
	}
	return data.Env{
		Loaders:       loaders,
		Contracts:     c.ContractRules(),
		Statistics:    c.Statistics(),
		SampleSize:    c.SampleSize,
		SampleSeed:    c.SampleSeed,
		MaxAliasDepth: c.MaxAliasDepth,
	}, nil
}
