package filter

import (
	"context"
	"strings"

	"aus-news/internal/ai"
	"aus-news/internal/models"
)

// LLM is the completion surface the stock checks need. *ai.Client satisfies
// it.
type LLM interface {
	Complete(ctx context.Context, system, user string, maxTokens int) (string, error)
}

const checkMaxTokens = 10

// PaywallCheck rejects candidates whose scraped body is a paywall notice or
// placeholder page instead of article content.
type PaywallCheck struct {
	llm LLM
}

// NewPaywallCheck creates the paywall detection stage.
func NewPaywallCheck(llm LLM) *PaywallCheck { return &PaywallCheck{llm: llm} }

func (c *PaywallCheck) Name() string { return "paywall" }

func (c *PaywallCheck) Evaluate(ctx context.Context, cand models.Candidate, _ map[string]string) (Verdict, error) {
	resp, err := c.llm.Complete(ctx, ai.PaywallCheckPrompt, checkInput(cand), checkMaxTokens)
	if err != nil {
		return Verdict{}, err
	}
	return parseYesNo(resp, "paywall"), nil
}

// RelevanceCheck rejects candidates with no Australian angle.
type RelevanceCheck struct {
	llm LLM
}

// NewRelevanceCheck creates the topical relevance stage.
func NewRelevanceCheck(llm LLM) *RelevanceCheck { return &RelevanceCheck{llm: llm} }

func (c *RelevanceCheck) Name() string { return "relevance" }

func (c *RelevanceCheck) Evaluate(ctx context.Context, cand models.Candidate, _ map[string]string) (Verdict, error) {
	resp, err := c.llm.Complete(ctx, ai.RelevanceCheckPrompt, checkInput(cand), checkMaxTokens)
	if err != nil {
		return Verdict{}, err
	}
	return parseYesNo(resp, "not relevant"), nil
}

// FactualCheck rejects candidates that carry no verifiable news facts.
type FactualCheck struct {
	llm LLM
}

// NewFactualCheck creates the factual content stage.
func NewFactualCheck(llm LLM) *FactualCheck { return &FactualCheck{llm: llm} }

func (c *FactualCheck) Name() string { return "factual" }

func (c *FactualCheck) Evaluate(ctx context.Context, cand models.Candidate, _ map[string]string) (Verdict, error) {
	resp, err := c.llm.Complete(ctx, ai.FactualCheckPrompt, checkInput(cand), checkMaxTokens)
	if err != nil {
		return Verdict{}, err
	}
	return parseYesNo(resp, "no factual content"), nil
}

// checkInput renders the candidate the way every stock check sees it: title
// plus a bounded slice of the body.
func checkInput(cand models.Candidate) string {
	body := cand.Body
	if len(body) > 4000 {
		body = body[:4000]
	}
	var b strings.Builder
	b.WriteString("Title: ")
	b.WriteString(cand.Title)
	b.WriteString("\n\n")
	b.WriteString(body)
	return b.String()
}
