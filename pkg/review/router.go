// Package review maps a validated extraction to its terminal routing
// decision. The engine never retries; re-extraction is a separate,
// externally triggered run.
package review

import (
	"github.com/paperglass/paperglass/config"
	"github.com/paperglass/paperglass/pkg/invoice"
	"github.com/paperglass/paperglass/pkg/logging"
)

// Router applies the transition rules in order: blocking validation issues
// first, then the confidence thresholds.
type Router struct {
	autoApprove  float64
	manualReview float64
	logger       logging.Logger
}

func NewRouter(t config.Thresholds, logger logging.Logger) *Router {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Router{
		autoApprove:  t.AutoApprove,
		manualReview: t.ManualReview,
		logger:       logger,
	}
}

// Route decides the processing outcome. Any error-kind issue forces
// ManualCorrection regardless of confidence.
func (r *Router) Route(confidence float64, issues []invoice.ValidationIssue) invoice.ProcessingDecision {
	decision := r.decide(confidence, issues)
	r.logger.Info("routing decided",
		logging.F("decision", string(decision)),
		logging.F("confidence", confidence),
		logging.F("issues", len(issues)))
	return decision
}

func (r *Router) decide(confidence float64, issues []invoice.ValidationIssue) invoice.ProcessingDecision {
	switch {
	case invoice.HasErrors(issues):
		return invoice.DecisionManualCorrection
	case confidence >= r.autoApprove:
		return invoice.DecisionAutoApprove
	case confidence >= r.manualReview:
		return invoice.DecisionManualReview
	default:
		return invoice.DecisionManualCorrection
	}
}
