// Package policy evaluates review policy rules for a check item. The rules
// are centralized and pure; the engine only fetches the item and applies
// them, producing the result the evidence snapshot records verbatim.
package policy

import (
	"context"

	"sealproof/internal/evidence"
	"sealproof/internal/review"
	"sealproof/pkg/domain"
	dErrors "sealproof/pkg/domain-errors"
)

// Version identifies the rule set recorded in evidence snapshots. Bump it
// whenever a rule changes so historical snapshots name the rules that
// actually ran.
const Version = "review-policy.v1"

// Rule names recorded in RulesTriggered.
const (
	RuleAmountThreshold = "amount_over_dual_control_threshold"
	RuleHighRisk        = "high_risk_item"
	RuleMissingImages   = "missing_image_hashes"
)

// Engine applies the review rule set to check items.
type Engine struct {
	items     review.CheckItemReader
	threshold domain.Amount
}

func NewEngine(items review.CheckItemReader, threshold domain.Amount) *Engine {
	return &Engine{items: items, threshold: threshold}
}

// Evaluate fetches the item and applies the rule chain.
func (e *Engine) Evaluate(ctx context.Context, checkItemID domain.CheckItemID, action string) (evidence.PolicyResult, error) {
	item, err := e.items.GetCheckItem(ctx, checkItemID)
	if err != nil {
		return evidence.PolicyResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "policy: check item lookup failed")
	}
	return Apply(item, action, e.threshold), nil
}

// Apply runs the rule chain. Pure domain logic: no I/O, no side effects.
// Rule priority:
//  1. Amount threshold - any approval at or over it needs a second pair of eyes
//  2. Risk level - high-risk items always need one
//  3. Image completeness - flagged as evidence, does not force dual control
func Apply(item *review.CheckItem, action string, threshold domain.Amount) evidence.PolicyResult {
	result := evidence.PolicyResult{
		PolicyVersion:  Version,
		RulesTriggered: []string{},
	}

	if item.Amount.GreaterOrEqual(threshold) {
		result.RulesTriggered = append(result.RulesTriggered, RuleAmountThreshold)
		result.RiskScore += 40
		if action == string(review.ActionApprove) {
			result.DualControlRequired = true
		}
	}

	if item.RiskLevel == "high" {
		result.RulesTriggered = append(result.RulesTriggered, RuleHighRisk)
		result.RiskScore += 40
		if action == string(review.ActionApprove) {
			result.DualControlRequired = true
		}
	}

	if len(item.ImageHashes) < 2 {
		result.RulesTriggered = append(result.RulesTriggered, RuleMissingImages)
		result.RiskScore += 20
	}

	return result
}
