package services

import (
	"strings"

	"github.com/custodia-labs/docrag/internal/core/ports/driven"
)

// NoContextAnswer is returned when retrieval finds nothing to ground an answer on.
const NoContextAnswer = "I couldn't find any relevant information in your documents to answer this question. " +
	"Try rephrasing the question or ingesting documents that cover the topic."

const defaultAnswerSystemPrompt = `You are a careful assistant that answers questions using only the provided document excerpts.

Rules:
1. Base every statement on the excerpts. If they do not contain the answer, say so plainly.
2. Cite the excerpts you use with their bracketed numbers, e.g. [1] or [2][3].
3. Do not invent document names, numbers or quotes.
4. Be concise and precise.`

const defaultAnswerUserPrompt = `Document excerpts:

%s
Question: %s

Answer:`

const defaultSummarisePrompt = `Summarise the document "%s" in a few short paragraphs.
Capture its purpose, the key points and any obligations, dates or amounts it mentions.

Content:
%s

Summary:`

// DefaultPrompts returns the built-in prompt templates keyed by prompt name.
func DefaultPrompts() map[string]string {
	return map[string]string{
		driven.PromptAnswerSystem: defaultAnswerSystemPrompt,
		driven.PromptAnswerUser:   defaultAnswerUserPrompt,
		driven.PromptSummarise:    defaultSummarisePrompt,
	}
}

// loadPrompt returns the named template from store, falling back to the
// built-in default when the store is nil, fails, or the template does not
// carry exactly the expected number of %s verbs. A negative count means the
// template is used verbatim and is not checked.
func loadPrompt(store driven.PromptStore, name string, placeholders int) string {
	fallback := DefaultPrompts()[name]
	if store == nil {
		return fallback
	}
	tmpl, err := store.Load(name)
	if err != nil || strings.TrimSpace(tmpl) == "" {
		return fallback
	}
	if placeholders >= 0 && (strings.Count(tmpl, "%s") != placeholders || strings.Count(tmpl, "%") != placeholders) {
		return fallback
	}
	return tmpl
}
