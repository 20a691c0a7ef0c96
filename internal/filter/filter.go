// Package filter runs candidates through an ordered chain of LLM-backed
// quality checks.
//
// Checks run in a fixed order and short-circuit on the first rejection, so a
// candidate rejected at stage k never costs a call at stage k+1. Model output
// that cannot be parsed as a verdict rejects the candidate: the chain fails
// closed, never open.
package filter

import (
	"context"
	"log/slog"
	"strings"

	"aus-news/internal/models"
)

// Verdict is the outcome of one check for one candidate.
type Verdict struct {
	OK     bool
	Reason string
}

// Pass is the accepting verdict.
var Pass = Verdict{OK: true}

// Reject builds a rejecting verdict with the given reason.
func Reject(reason string) Verdict {
	return Verdict{Reason: reason}
}

// Check is a single filter stage. prior carries the raw answers of earlier
// stages keyed by check name, for checks that want the accumulated context.
type Check interface {
	Name() string
	Evaluate(ctx context.Context, cand models.Candidate, prior map[string]string) (Verdict, error)
}

// Chain is a fixed ordered list of checks.
type Chain struct {
	checks []Check
	logger *slog.Logger
}

// NewChain builds a chain running the given checks in order.
func NewChain(logger *slog.Logger, checks ...Check) *Chain {
	return &Chain{checks: checks, logger: logger}
}

// Run filters candidates, returning the order-preserved subsequence that
// passed every check. A transport error inside a check rejects the candidate
// rather than aborting the batch.
func (c *Chain) Run(ctx context.Context, candidates []models.Candidate) []models.Candidate {
	var passed []models.Candidate
	for _, cand := range candidates {
		if c.admit(ctx, cand) {
			passed = append(passed, cand)
		}
	}
	return passed
}

func (c *Chain) admit(ctx context.Context, cand models.Candidate) bool {
	prior := make(map[string]string, len(c.checks))
	for _, check := range c.checks {
		verdict, err := check.Evaluate(ctx, cand, prior)
		if err != nil {
			c.logger.Warn("check errored, rejecting candidate",
				"check", check.Name(), "url", cand.SourceURL, "error", err)
			return false
		}
		if !verdict.OK {
			c.logger.Info("candidate rejected",
				"check", check.Name(), "reason", verdict.Reason, "url", cand.SourceURL)
			return false
		}
		prior[check.Name()] = verdict.Reason
	}
	return true
}

// parseYesNo maps a model response onto a verdict. Anything that is not a
// clear yes or no is a rejection with reason "unparseable".
func parseYesNo(response, rejectReason string) Verdict {
	answer := strings.ToUpper(strings.TrimSpace(response))
	answer = strings.Trim(answer, ".!\"'")
	switch answer {
	case "YES":
		return Verdict{OK: true, Reason: "yes"}
	case "NO":
		return Reject(rejectReason)
	default:
		return Reject("unparseable")
	}
}
