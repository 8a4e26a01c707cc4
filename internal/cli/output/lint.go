package output

import (
	"time"

	"github.com/google/uuid"
)

// LintOutput is the JSON document written by `dslint lint --format json`.
type LintOutput struct {
	RunID     string           `json:"run_id"`
	StartedAt time.Time        `json:"started_at"`
	Summary   LintSummary      `json:"summary"`
	Files     []LintFileResult `json:"files"`
}

// NewLintOutput starts a report with a fresh run ID.
func NewLintOutput(started time.Time) *LintOutput {
	return &LintOutput{
		RunID:     uuid.NewString(),
		StartedAt: started.UTC(),
		Files:     []LintFileResult{},
	}
}

// LintSummary counts diagnostics by severity.
type LintSummary struct {
	FilesAnalyzed int `json:"files_analyzed"`
	TotalIssues   int `json:"total_issues"`
	Errors        int `json:"errors"`
	Warnings      int `json:"warnings"`
	Info          int `json:"info"`
	Hints         int `json:"hints"`
}

// LintFileResult holds one file's diagnostics.
type LintFileResult struct {
	Path        string           `json:"path"`
	Diagnostics []LintDiagnostic `json:"diagnostics"`
}

// LintDiagnostic is one reported issue.
type LintDiagnostic struct {
	RuleID           string `json:"rule_id"`
	Symbol           string `json:"symbol"`
	Severity         string `json:"severity"`
	Message          string `json:"message"`
	Line             int    `json:"line"`
	Column           int    `json:"column"`
	DocumentationURL string `json:"documentation_url,omitempty"`
}
