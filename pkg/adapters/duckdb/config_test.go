package duckdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseParams(t *testing.T) {
	tests := []struct {
		name    string
		input   map[string]any
		want    *Params
		wantErr bool
	}{
		{
			name:  "nil params returns empty struct",
			input: nil,
			want:  &Params{},
		},
		{
			name: "extensions only",
			input: map[string]any{
				"extensions": []any{"httpfs", "json"},
			},
			want: &Params{
				Extensions: []string{"httpfs", "json"},
			},
		},
		{
			name: "settings are weakly typed",
			input: map[string]any{
				"settings": map[string]any{
					"memory_limit": "4GB",
					"threads":      4,
				},
			},
			want: &Params{
				Settings: map[string]string{
					"memory_limit": "4GB",
					"threads":      "4",
				},
			},
		},
		{
			name: "secrets",
			input: map[string]any{
				"secrets": []any{
					map[string]any{
						"type":     "s3",
						"provider": "credential_chain",
						"region":   "us-west-2",
					},
				},
			},
			want: &Params{
				Secrets: []SecretConfig{
					{Type: "s3", Provider: "credential_chain", Region: "us-west-2"},
				},
			},
		},
		{
			name: "unknown key",
			input: map[string]any{
				"extention": []any{"httpfs"},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseParams(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParams_SetupStatements(t *testing.T) {
	p := &Params{
		Extensions: []string{"httpfs"},
		Settings:   map[string]string{"threads": "2", "memory_limit": "1GB"},
		Secrets: []SecretConfig{
			{Type: "s3", Provider: "config", KeyID: "id", Secret: "it's"},
		},
	}

	stmts, err := p.setupStatements()
	require.NoError(t, err)
	assert.Equal(t, []string{
		"INSTALL httpfs",
		"LOAD httpfs",
		"SET memory_limit = '1GB'",
		"SET threads = '2'",
		"CREATE OR REPLACE SECRET dslint_secret_0 (TYPE s3, PROVIDER config, KEY_ID 'id', SECRET 'it''s')",
	}, stmts)

	_, err = (&Params{Extensions: []string{"httpfs; DROP"}}).setupStatements()
	assert.Error(t, err)

	_, err = (&Params{Secrets: []SecretConfig{{}}}).setupStatements()
	assert.Error(t, err)
}
