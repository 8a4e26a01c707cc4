package duckdb

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/leapstack-labs/dslint/pkg/adapter"
)

// Params holds DuckDB-specific configuration.
// Parsed from adapter.Config.Params using mapstructure.
type Params struct {
	// Extensions to install and load (e.g., "httpfs" for s3:// CSV paths)
	Extensions []string `mapstructure:"extensions"`

	// Secrets for cloud storage authentication
	Secrets []SecretConfig `mapstructure:"secrets"`

	// Settings to apply at session level (e.g., memory_limit, threads)
	Settings map[string]string `mapstructure:"settings"`
}

// SecretConfig defines a DuckDB secret for cloud storage.
type SecretConfig struct {
	// Type: "s3", "gcs", "azure", "r2", "huggingface"
	Type string `mapstructure:"type"`

	// Provider: "config", "credential_chain", ...
	Provider string `mapstructure:"provider"`

	// Region for S3 buckets
	Region string `mapstructure:"region,omitempty"`

	// KeyID and Secret for explicit credentials (prefer credential_chain)
	KeyID  string `mapstructure:"key_id,omitempty"`
	Secret string `mapstructure:"secret,omitempty"`

	// Endpoint for S3-compatible services (MinIO, etc.)
	Endpoint string `mapstructure:"endpoint,omitempty"`
}

// ParseParams decodes adapter params into Params.
func ParseParams(params map[string]any) (*Params, error) {
	out := &Params{}
	if len(params) == 0 {
		return out, nil
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(params); err != nil {
		return nil, fmt.Errorf("invalid duckdb params: %w", err)
	}
	return out, nil
}

// setupStatements returns the statements that apply p to a fresh session,
// in a deterministic order.
func (p *Params) setupStatements() ([]string, error) {
	var stmts []string
	for _, ext := range p.Extensions {
		if !isIdent(ext) {
			return nil, fmt.Errorf("invalid extension name %q", ext)
		}
		stmts = append(stmts, "INSTALL "+ext, "LOAD "+ext)
	}

	keys := make([]string, 0, len(p.Settings))
	for k := range p.Settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !isIdent(k) {
			return nil, fmt.Errorf("invalid setting name %q", k)
		}
		stmts = append(stmts, fmt.Sprintf("SET %s = %s", k, adapter.QuoteLiteral(p.Settings[k])))
	}

	for i, s := range p.Secrets {
		if s.Type == "" {
			return nil, fmt.Errorf("secret %d: type is required", i)
		}
		stmts = append(stmts, s.createStatement(i))
	}
	return stmts, nil
}

func (s SecretConfig) createStatement(i int) string {
	opts := []string{"TYPE " + s.Type}
	add := func(key, value string) {
		if value != "" {
			opts = append(opts, key+" "+adapter.QuoteLiteral(value))
		}
	}
	if s.Provider != "" {
		opts = append(opts, "PROVIDER "+s.Provider)
	}
	add("REGION", s.Region)
	add("KEY_ID", s.KeyID)
	add("SECRET", s.Secret)
	add("ENDPOINT", s.Endpoint)
	return fmt.Sprintf("CREATE OR REPLACE SECRET dslint_secret_%d (%s)", i, strings.Join(opts, ", "))
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') && (r < '0' || r > '9') && r != '_' {
			return false
		}
	}
	return true
}
