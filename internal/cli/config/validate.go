package config

import (
	"errors"
	"fmt"
	"slices"

	"github.com/leapstack-labs/dslint/internal/cli/output"
	"github.com/leapstack-labs/dslint/pkg/contract"
	"github.com/leapstack-labs/dslint/pkg/lint"
	"github.com/leapstack-labs/dslint/pkg/loader"
)

// Validate checks if the configuration is valid. It reports every problem
// it finds.
func (c *Config) Validate() error {
	var errs []error

	if mode, err := output.ParseMode(c.OutputFormat); err != nil || !slices.Contains(output.Modes, mode) {
		errs = append(errs, fmt.Errorf("output: unknown mode %q (want auto, text, markdown or json)", c.OutputFormat))
	}
	if c.Jobs <= 0 {
		errs = append(errs, fmt.Errorf("jobs must be positive, got %d", c.Jobs))
	}
	if c.SampleSize <= 0 {
		errs = append(errs, fmt.Errorf("sample_size must be positive, got %d", c.SampleSize))
	}
	if c.MaxAliasDepth <= 0 {
		errs = append(errs, fmt.Errorf("max_alias_depth must be positive, got %d", c.MaxAliasDepth))
	}

	for id, sev := range c.Lint.Severity {
		if _, ok := lint.ParseSeverity(sev); !ok {
			errs = append(errs, fmt.Errorf("lint.severity.%s: unknown severity %q", id, sev))
		}
	}

	if _, err := contract.NewRegistry(c.ContractRules()); err != nil {
		errs = append(errs, fmt.Errorf("contracts: %w", err))
	}

	builtin := loader.Pandas()
	for i, alias := range c.Loaders {
		switch {
		case alias.Identity == "":
			errs = append(errs, fmt.Errorf("loaders[%d]: identity is required", i))
		case builtin[alias.Target] == nil:
			errs = append(errs, fmt.Errorf("loaders[%d]: unknown loader %q for %s", i, alias.Target, alias.Identity))
		}
	}

	return errors.Join(errs...)
}
