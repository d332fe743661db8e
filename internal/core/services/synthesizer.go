package services

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
	"github.com/custodia-labs/docrag/internal/logger"
)

// citationPattern matches [1] and [1, 3] style references.
var citationPattern = regexp.MustCompile(`\[(\d+(?:\s*,\s*\d+)*)\]`)

// AnswerSynthesizer generates an answer grounded in retrieved chunks.
//
// Sources are always a subset of the chunks it was given. With no chunks it
// answers with NoContextAnswer and never calls the model.
type AnswerSynthesizer struct {
	llm         driven.LLMService
	prompts     driven.PromptStore
	temperature float64
	maxTokens   int
}

// SynthesizerOption configures an AnswerSynthesizer.
type SynthesizerOption func(*AnswerSynthesizer)

// WithPromptStore loads prompt templates from store.
func WithPromptStore(store driven.PromptStore) SynthesizerOption {
	return func(s *AnswerSynthesizer) {
		s.prompts = store
	}
}

// WithGenerationLimits sets the sampling temperature and answer token cap.
func WithGenerationLimits(temperature float64, maxTokens int) SynthesizerOption {
	return func(s *AnswerSynthesizer) {
		if temperature >= 0 {
			s.temperature = temperature
		}
		if maxTokens > 0 {
			s.maxTokens = maxTokens
		}
	}
}

// NewAnswerSynthesizer creates a synthesizer. llm may be nil.
func NewAnswerSynthesizer(llm driven.LLMService, opts ...SynthesizerOption) *AnswerSynthesizer {
	s := &AnswerSynthesizer{
		llm:         llm,
		temperature: domain.DefaultTemperature,
		maxTokens:   domain.DefaultMaxTokens,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Synthesize answers question from the retrieved hits.
func (s *AnswerSynthesizer) Synthesize(
	ctx context.Context, question string, hits []domain.ScoredChunk,
) (*domain.AnswerRecord, error) {
	logger.Section("Synthesize")

	if len(hits) == 0 {
		logger.Debug("No context, returning canned answer")
		return &domain.AnswerRecord{Answer: NoContextAnswer, Sources: []domain.SourceChunk{}}, nil
	}
	if s.llm == nil {
		return nil, domain.NewStageError(domain.StageGenerate, domain.ErrLLMUnavailable,
			"no language model configured", nil)
	}

	messages := []driven.ChatMessage{
		{Role: driven.RoleSystem, Content: loadPrompt(s.prompts, driven.PromptAnswerSystem, -1)},
		{Role: driven.RoleUser, Content: fmt.Sprintf(
			loadPrompt(s.prompts, driven.PromptAnswerUser, 2), FormatContext(hits), question)},
	}

	answer, err := s.llm.Chat(ctx, messages, driven.ChatOptions{
		Temperature: s.temperature,
		MaxTokens:   s.maxTokens,
	})
	if err != nil {
		return nil, stageError(domain.StageGenerate, domain.ErrGeneration, "language model", err)
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return nil, domain.NewStageError(domain.StageGenerate, domain.ErrGeneration,
			"language model returned an empty answer", nil)
	}

	cited := Citations(answer, len(hits))
	sources := make([]domain.SourceChunk, 0, len(cited))
	for _, n := range cited {
		sources = append(sources, domain.NewSourceChunk(hits[n-1]))
	}

	logger.Debugw("answer generated", "model", s.llm.ModelName(), "sources", len(sources))
	return &domain.AnswerRecord{Answer: answer, Sources: sources}, nil
}

// FormatContext renders chunks as numbered, provenance-tagged excerpts.
func FormatContext(chunks []domain.ScoredChunk) string {
	var b strings.Builder
	for i, sc := range chunks {
		name := sc.Chunk.Filename
		if name == "" {
			name = sc.Chunk.DocumentID
		}
		fmt.Fprintf(&b, "[%d] Document: %s (chunk %d, relevance %.2f)\n%s\n\n",
			i+1, name, sc.Chunk.Index, sc.Score, strings.TrimSpace(sc.Chunk.Text))
	}
	return b.String()
}

// Citations returns the excerpt numbers referenced in answer, ascending and
// deduplicated, ignoring numbers outside 1..n. When the answer cites nothing
// every excerpt is returned.
func Citations(answer string, n int) []int {
	seen := make(map[int]bool)
	var out []int
	for _, m := range citationPattern.FindAllStringSubmatch(answer, -1) {
		for _, part := range strings.Split(m[1], ",") {
			k, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil || k < 1 || k > n || seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, k)
		}
	}
	if len(out) == 0 {
		out = make([]int, n)
		for i := range out {
			out[i] = i + 1
		}
		return out
	}
	sort.Ints(out)
	return out
}
