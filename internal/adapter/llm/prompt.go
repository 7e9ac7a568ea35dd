// Package llm holds the optional answer augmenters: thin clients for hosted
// language models that rephrase a composed answer without changing its numbers.
package llm

import (
	"errors"
	"fmt"
	"strings"

	"github.com/couchcryptid/float-query-service/internal/domain"
)

// ErrEmptyCompletion is returned when a provider answers with no usable text.
var ErrEmptyCompletion = errors.New("llm: empty completion")

// ErrDroppedValue is returned when a rewrite loses the computed value.
var ErrDroppedValue = errors.New("llm: rewrite dropped a computed value")

const systemPrompt = "You are a friendly oceanographer explaining ARGO float data to a curious member of the public."

const maxOutputTokens = 256

// buildPrompt renders the rewrite instruction for one answer.
func buildPrompt(text string, ac domain.AugmentContext) string {
	var b strings.Builder
	b.WriteString("As a friendly oceanographer, rewrite this answer in two or three conversational sentences. ")
	b.WriteString("Keep every number and unit exactly as written and do not add new measurements.\n\n")
	if ac.Query != "" {
		fmt.Fprintf(&b, "Question: %s\n", ac.Query)
	}
	fmt.Fprintf(&b, "Answer: %s\n", text)
	return b.String()
}

// checkRewrite rejects completions that are blank or lose a number the draft
// stated: the scalar value, or the range of every profile series.
func checkRewrite(out string, ac domain.AugmentContext) (string, error) {
	out = strings.TrimSpace(out)
	if out == "" {
		return "", ErrEmptyCompletion
	}
	for _, v := range ac.Result.KeyValues() {
		if !strings.Contains(out, v) {
			return "", fmt.Errorf("%w: %s", ErrDroppedValue, v)
		}
	}
	return out, nil
}
