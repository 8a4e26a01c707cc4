package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/dslint/pkg/contract"
	"github.com/leapstack-labs/dslint/pkg/dataset"
	"github.com/leapstack-labs/dslint/pkg/lint"
)

const sampleConfig = `
output: json
jobs: 2
data_root: data
sample_size: 100
mean_as_median: true
lint:
  disabled: [W5506]
  severity:
    W5200: error
  rules:
    W5200:
      scale_threshold: 20
contracts:
  - identity: mylib.Model.fit
    params: [X, y]
    datasets: [X]
    preconditions: [range_is_equal]
loaders:
  - identity: mylib.read_table
    target: pandas.read_csv
`

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "dslint.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Cleanup(ResetConfig)
	dir := t.TempDir()
	t.Chdir(dir)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Empty(t, ConfigFileUsed())
	assert.Equal(t, DefaultOutput, cfg.OutputFormat)
	assert.Equal(t, DefaultJobs, cfg.Jobs)
	assert.Equal(t, dataset.DefaultSampleSize, cfg.SampleSize)
	assert.Equal(t, DefaultMaxAliasDepth, cfg.MaxAliasDepth)
	assert.False(t, cfg.MeanAsMedian)
	assert.True(t, filepath.IsAbs(cfg.DataRoot))
}

func TestLoadConfig_File(t *testing.T) {
	t.Cleanup(ResetConfig)
	dir := t.TempDir()
	path := writeConfig(t, dir, sampleConfig)

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)

	assert.Equal(t, path, ConfigFileUsed())
	assert.Equal(t, "json", cfg.OutputFormat)
	assert.Equal(t, 2, cfg.Jobs)
	assert.Equal(t, 100, cfg.SampleSize)
	assert.True(t, cfg.MeanAsMedian)
	assert.Equal(t, filepath.Join(dir, "data"), cfg.DataRoot)
	assert.Equal(t, []string{"W5506"}, cfg.Lint.Disabled)
	assert.Equal(t, "error", cfg.Lint.Severity["W5200"])
	require.Len(t, cfg.Contracts, 1)
	assert.Equal(t, "mylib.Model.fit", cfg.Contracts[0].Identity)
	assert.Equal(t, []LoaderAlias{{Identity: "mylib.read_table", Target: "pandas.read_csv"}}, cfg.Loaders)

	lintCfg := cfg.LintRuleConfig()
	assert.True(t, lintCfg.IsDisabled("W5506"))
	assert.Equal(t, lint.SeverityError, lintCfg.GetSeverity("W5200", lint.SeverityWarning))
	var w5200 struct {
		ScaleThreshold float64 `mapstructure:"scale_threshold"`
	}
	require.NoError(t, lint.DecodeOptions(lintCfg.GetRuleOptions("W5200"), &w5200))
	assert.InDelta(t, 20.0, w5200.ScaleThreshold, 1e-9)
}

func TestLoadConfig_SearchesUpward(t *testing.T) {
	t.Cleanup(ResetConfig)
	root := t.TempDir()
	writeConfig(t, root, "jobs: 7\n")
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o750))
	t.Chdir(nested)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Jobs)
	assert.Equal(t, root, filepath.Dir(ConfigFileUsed()))
}

func TestLoadConfig_Precedence(t *testing.T) {
	t.Cleanup(ResetConfig)
	dir := t.TempDir()
	path := writeConfig(t, dir, "jobs: 2\nsample_size: 50\nmax_alias_depth: 8\n")
	t.Setenv("DSLINT_SAMPLE_SIZE", "60")
	t.Setenv("DSLINT_JOBS", "3")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("jobs", 1, "")
	flags.Int("max-alias-depth", 32, "")
	require.NoError(t, flags.Parse([]string{"--jobs", "9"}))

	cfg, err := LoadConfig(path, flags)
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Jobs, "flag beats env")
	assert.Equal(t, 60, cfg.SampleSize, "env beats file")
	assert.Equal(t, 8, cfg.MaxAliasDepth, "unchanged flags do not override the file")
}

func TestLoadConfig_ExpandsDataRoot(t *testing.T) {
	t.Cleanup(ResetConfig)
	dir := t.TempDir()
	data := t.TempDir()
	t.Setenv("DSLINT_TEST_DATA", data)
	path := writeConfig(t, dir, "data_root: ${DSLINT_TEST_DATA}\n")

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)
	assert.Equal(t, data, cfg.DataRoot)
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Cleanup(ResetConfig)
	path := writeConfig(t, t.TempDir(), "sample_size: 0\n")
	_, err := LoadConfig(path, nil)
	assert.ErrorContains(t, err, "sample_size")

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errSub string
	}{
		{"defaults", func(*Config) {}, ""},
		{"yaml output is not a global mode", func(c *Config) { c.OutputFormat = "yaml" }, "output"},
		{"unknown output", func(c *Config) { c.OutputFormat = "html" }, "output"},
		{"zero jobs", func(c *Config) { c.Jobs = 0 }, "jobs"},
		{"negative sample size", func(c *Config) { c.SampleSize = -1 }, "sample_size"},
		{"zero depth", func(c *Config) { c.MaxAliasDepth = 0 }, "max_alias_depth"},
		{"bad severity", func(c *Config) { c.Lint.Severity = map[string]string{"W5200": "fatal"} }, "W5200"},
		{"unknown precondition", func(c *Config) {
			c.Contracts = []ContractConfig{{Identity: "m.fit", Params: []string{"X"}, Datasets: []string{"X"}, Preconditions: []string{"is_sorted"}}}
		}, "is_sorted"},
		{"dataset not a param", func(c *Config) {
			c.Contracts = []ContractConfig{{Identity: "m.fit", Params: []string{"X"}, Datasets: []string{"Z"}}}
		}, "not a parameter"},
		{"unknown loader target", func(c *Config) {
			c.Loaders = []LoaderAlias{{Identity: "m.read", Target: "numpy.loadtxt"}}
		}, "numpy.loadtxt"},
		{"loader without identity", func(c *Config) {
			c.Loaders = []LoaderAlias{{Target: "pandas.read_csv"}}
		}, "identity is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errSub == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.errSub)
		})
	}
}

func TestConfig_ContractRules(t *testing.T) {
	cfg := Defaults()
	cfg.Contracts = []ContractConfig{{
		Identity:      "sklearn.svm.SVC.fit",
		Params:        []string{"X"},
		Datasets:      []string{"X"},
		Preconditions: []string{contract.ScaleIsEqual},
	}}

	reg, err := contract.NewRegistry(cfg.ContractRules())
	require.NoError(t, err)
	for _, r := range reg.Rules() {
		if r.Identity == "sklearn.svm.SVC.fit" {
			assert.Equal(t, []string{contract.ScaleIsEqual}, r.Preconditions, "configured contract replaces the built-in one")
		}
	}
	assert.True(t, reg.Has("sklearn.svm.LinearSVC.fit"))
}

func TestConfig_DataEnv(t *testing.T) {
	cfg := Defaults()
	cfg.MeanAsMedian = true
	cfg.Loaders = []LoaderAlias{{Identity: "mylib.read_table", Target: "pandas.read_csv"}}

	env, err := cfg.DataEnv(nil)
	require.NoError(t, err)
	_, ok := env.Loaders.Lookup("mylib.read_table")
	assert.True(t, ok)
	_, ok = env.Loaders.Lookup("pandas.read_parquet")
	assert.True(t, ok)
	assert.Equal(t, cfg.SampleSize, env.SampleSize)

	mean, ok := env.Statistics.Lookup(dataset.StatMean)
	require.True(t, ok)
	assert.InDelta(t, 2.0, mean([]float64{1, 2, 10}), 1e-9, "mean_as_median computes the median")

	cfg.Loaders = []LoaderAlias{{Identity: "x", Target: "nope"}}
	_, err = cfg.DataEnv(nil)
	assert.Error(t, err)
}

func TestGetLogger(t *testing.T) {
	assert.NotNil(t, GetLogger(context.Background()))

	logger := NewLogger(os.Stderr, true)
	assert.Same(t, logger, GetLogger(WithLogger(context.Background(), logger)))
}
