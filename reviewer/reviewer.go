// Package reviewer produces automated review outcomes for audit
// criteria from extracted submission documents.
package reviewer

import (
	"context"
	"fmt"
	"strings"

	"github.com/hazyhaar/pruefbuch/docsource"
)

// Outcomes recorded by automated review.
const (
	OutcomeOK           = "ok"
	OutcomeFail         = "fail"
	OutcomeReviewNeeded = "review_needed"
)

// Result is one automated review verdict.
type Result struct {
	Outcome string `json:"outcome"`
	Note    string `json:"note,omitempty"`
}

// Reviewer judges one criterion against a submission document.
type Reviewer interface {
	Review(ctx context.Context, criterionID string, doc *docsource.Document) (Result, error)
}

// Rule describes what a submission must and must not contain for one
// criterion.
type Rule struct {
	CriterionID string   `json:"criterion_id" yaml:"criterion_id"`
	RequireAll  []string `json:"require_all,omitempty" yaml:"require_all,omitempty"`
	RequireAny  []string `json:"require_any,omitempty" yaml:"require_any,omitempty"`
	Forbid      []string `json:"forbid,omitempty" yaml:"forbid,omitempty"`
}

// KeywordReviewer checks rule keywords against the document text,
// case-insensitively. Criteria without a rule come back as
// review_needed so a human sees them.
type KeywordReviewer struct {
	rules map[string]Rule
}

// NewKeywordReviewer builds a reviewer from a rule list. Duplicate
// criterion ids are an error.
func NewKeywordReviewer(rules []Rule) (*KeywordReviewer, error) {
	m := make(map[string]Rule, len(rules))
	for _, r := range rules {
		if r.CriterionID == "" {
			return nil, fmt.Errorf("reviewer: rule without criterion id")
		}
		if _, dup := m[r.CriterionID]; dup {
			return nil, fmt.Errorf("reviewer: duplicate rule for %q", r.CriterionID)
		}
		m[r.CriterionID] = r
	}
	return &KeywordReviewer{rules: m}, nil
}

func (k *KeywordReviewer) Review(ctx context.Context, criterionID string, doc *docsource.Document) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	rule, ok := k.rules[criterionID]
	if !ok {
		return Result{
			Outcome: OutcomeReviewNeeded,
			Note:    "no automated rule for this criterion",
		}, nil
	}

	text := strings.ToLower(doc.RawText)

	for _, kw := range rule.Forbid {
		if strings.Contains(text, strings.ToLower(kw)) {
			return Result{
				Outcome: OutcomeFail,
				Note:    fmt.Sprintf("forbidden term %q found", kw),
			}, nil
		}
	}

	var missing []string
	for _, kw := range rule.RequireAll {
		if !strings.Contains(text, strings.ToLower(kw)) {
			missing = append(missing, kw)
		}
	}
	if len(missing) > 0 {
		return Result{
			Outcome: OutcomeReviewNeeded,
			Note:    fmt.Sprintf("missing terms: %s", strings.Join(missing, ", ")),
		}, nil
	}

	if len(rule.RequireAny) > 0 {
		found := false
		for _, kw := range rule.RequireAny {
			if strings.Contains(text, strings.ToLower(kw)) {
				found = true
				break
			}
		}
		if !found {
			return Result{
				Outcome: OutcomeReviewNeeded,
				Note:    fmt.Sprintf("none of: %s", strings.Join(rule.RequireAny, ", ")),
			}, nil
		}
	}

	return Result{Outcome: OutcomeOK}, nil
}
