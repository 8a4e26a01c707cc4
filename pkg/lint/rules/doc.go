// Package rules assembles the dslint rule set.
//
// Rules are organized by category:
//   - data: rules that check datasets against the APIs consuming them (W52xx)
//   - reproducibility: rules about controlling randomness (W55xx)
//
// Rules are plain values; All builds the full set for a loader and contract
// environment, and the caller wraps it in a lint.Registry.
package rules
