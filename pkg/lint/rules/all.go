package rules

import (
	"github.com/leapstack-labs/dslint/pkg/lint"
	"github.com/leapstack-labs/dslint/pkg/lint/rules/data"
	"github.com/leapstack-labs/dslint/pkg/lint/rules/reproducibility"
)

// All returns every rule, wired to env.
func All(env data.Env) []lint.RuleDef {
	return []lint.RuleDef{
		data.DataAPIConflict(env),
		reproducibility.RandomState,
	}
}

// NewRegistry returns a registry holding All(env).
func NewRegistry(env data.Env) (*lint.Registry, error) {
	return lint.NewRegistry(All(env)...)
}
