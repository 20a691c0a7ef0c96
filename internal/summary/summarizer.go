// Package summary produces the bounded spoken-word summary for each
// surviving candidate.
package summary

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"aus-news/internal/ai"
	"aus-news/internal/models"
)

// ErrSummarizationFailed indicates the model returned empty or unusable
// output. The candidate is dropped from the batch; the batch continues.
var ErrSummarizationFailed = errors.New("summarization failed")

// LLM is the completion surface the summarizer needs. *ai.Client satisfies
// it.
type LLM interface {
	Complete(ctx context.Context, system, user string, maxTokens int) (string, error)
}

// Summarizer turns a candidate into an approximately 60-word summary.
type Summarizer struct {
	llm       LLM
	maxTokens int
}

// New creates a summarizer. maxTokens bounds the completion length.
func New(llm LLM, maxTokens int) *Summarizer {
	return &Summarizer{llm: llm, maxTokens: maxTokens}
}

// Summarize returns the summary text for the candidate. Discussion
// candidates (those carrying comments) are summarized post-plus-comments.
func (s *Summarizer) Summarize(ctx context.Context, cand models.Candidate) (string, error) {
	prompt := ai.SummaryPrompt
	input := cand.Body
	if len(cand.Comments) > 0 {
		prompt = ai.DiscussionSummaryPrompt
		input = discussionInput(cand)
	}

	text, err := s.llm.Complete(ctx, prompt, input, s.maxTokens)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSummarizationFailed, err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: empty model output", ErrSummarizationFailed)
	}
	return text, nil
}

// discussionInput combines the post with its top comments, the shape the
// discussion prompt expects.
func discussionInput(cand models.Candidate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n\nPost: %s\n\n", cand.Title, cand.Body)
	if len(cand.Comments) > 0 {
		b.WriteString("Top Comments:\n")
		for i, comment := range cand.Comments {
			if i == 3 {
				break
			}
			fmt.Fprintf(&b, "%d. %s\n", i+1, comment.Body)
		}
	}
	return b.String()
}
