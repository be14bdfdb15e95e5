// Package policy evaluates upload admission rules with OPA.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/v1/rego"
)

// Decisions returned by the upload policy.
const (
	DecisionAllow = "allow"
	DecisionBlock = "block"
)

// UploadInput is the document the policy is evaluated against.
type UploadInput struct {
	FileName     string `json:"file_name"`
	FileType     string `json:"file_type"`
	FileSize     int64  `json:"file_size"`
	Company      string `json:"company"`
	DocumentType string `json:"document_type"`
	MaxBytes     int64  `json:"max_bytes"`
}

// Decision is the outcome of one evaluation.
type Decision struct {
	Decision string `json:"decision"`
	Reason   string `json:"reason,omitempty"`
}

// Allowed reports whether the upload may proceed.
func (d Decision) Allowed() bool {
	return d.Decision != DecisionBlock
}

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.upload_policy.result"),
		rego.Module("upload_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// Evaluate checks an upload against the policy. An undefined result is
// treated as allow.
func (e *Engine) Evaluate(ctx context.Context, input UploadInput) (Decision, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return Decision{}, fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return Decision{Decision: DecisionAllow, Reason: "default"}, nil
	}

	obj, ok := results[0].Expressions[0].Value.(map[string]interface{})
	if !ok {
		return Decision{}, fmt.Errorf("unexpected policy result type %T", results[0].Expressions[0].Value)
	}

	d := Decision{Decision: DecisionAllow}
	if s, ok := obj["decision"].(string); ok {
		d.Decision = s
	}
	if s, ok := obj["reason"].(string); ok {
		d.Reason = s
	}
	return d, nil
}

// DefaultPolicy is the default upload policy. A file matching no rule is
// allowed. When several rules match, the smallest reason string is reported.
const DefaultPolicy = `
package upload_policy

import rego.v1

blocked_types := {
	"application/x-msdownload",
	"application/x-executable",
	"application/x-sh",
	"application/java-archive",
}

reasons contains "file name is required" if {
	trim_space(input.file_name) == ""
}

reasons contains "file exceeds the upload size limit" if {
	input.max_bytes > 0
	input.file_size > input.max_bytes
}

reasons contains "executable files cannot be analyzed" if {
	lower(input.file_type) in blocked_types
}

reasons contains "executable files cannot be analyzed" if {
	some ext in {".exe", ".sh", ".bat", ".jar"}
	endswith(lower(input.file_name), ext)
}

default result := {"decision": "allow"}

result := {"decision": "block", "reason": min(reasons)} if {
	count(reasons) > 0
}
`
