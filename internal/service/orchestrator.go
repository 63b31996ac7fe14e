package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/QIRoss/ai-orchestrator/internal/config"
	"github.com/QIRoss/ai-orchestrator/internal/model"
	"github.com/QIRoss/ai-orchestrator/internal/ollama"
	"github.com/QIRoss/ai-orchestrator/internal/pkg/apperrors"
	"github.com/QIRoss/ai-orchestrator/internal/pkg/logger"
	"github.com/QIRoss/ai-orchestrator/internal/pkg/metrics"
	"github.com/oklog/ulid/v2"
)

// Generator is the slice of the model server client the orchestrator
// needs.
type Generator interface {
	Generate(ctx context.Context, modelName, prompt string) (*ollama.GenerateResult, error)
}

// maxIndexedInput caps how much of the input text is copied into the
// log record. The model still sees the full text.
const maxIndexedInput = 1000

const defaultTargetLang = "English"

// Orchestrator runs one text operation end to end: validate, check the
// daily quota, consult the response cache, call the model server, then
// account usage and emit exactly one log record for the request.
type Orchestrator struct {
	gen          Generator
	cache        ResponseCache // nil disables caching
	usage        UsageRepo
	indexer      *Indexer
	defaultModel string
	maxTextChars int
}

func NewOrchestrator(gen Generator, cache ResponseCache, usage UsageRepo, indexer *Indexer, cfg *config.Config) *Orchestrator {
	return &Orchestrator{
		gen:          gen,
		cache:        cache,
		usage:        usage,
		indexer:      indexer,
		defaultModel: cfg.Ollama.DefaultModel,
		maxTextChars: cfg.Limits.MaxTextChars,
	}
}

func (s *Orchestrator) Process(ctx context.Context, op model.Operation, client *model.APIClient, req model.TextRequest, requestID string) (*model.GenerationResult, error) {
	start := time.Now()

	// 1. Validate before anything leaves the process.
	if err := s.checkRequest(req); err != nil {
		return nil, err
	}

	modelName := strings.TrimSpace(req.Model)
	if modelName == "" {
		modelName = s.defaultModel
	}

	// 2. Daily quota.
	if err := s.checkQuota(ctx, client); err != nil {
		return nil, err
	}

	// 3. Build the prompt and consult the cache. Generation runs at
	// near-zero temperature, so equal inputs produce equal outputs.
	prompt := buildPrompt(op, req)
	key := CacheKey(string(op), modelName, req.TargetLang, req.Text)

	var gen *ollama.GenerateResult
	cached := false
	if s.cache != nil {
		if text, ok := s.cache.Get(ctx, key); ok {
			metrics.CacheRequests.WithLabelValues("hit").Inc()
			gen = &ollama.GenerateResult{Text: text}
			cached = true
		} else {
			metrics.CacheRequests.WithLabelValues("miss").Inc()
		}
	}

	// 4. Model call on a cache miss. A failed call still produces a
	// log record, so the index tells the whole story.
	if gen == nil {
		var err error
		gen, err = s.gen.Generate(ctx, modelName, prompt)
		if err != nil {
			s.record(op, client, req, modelName, requestID, nil, false, start, err)
			return nil, err
		}
		if s.cache != nil && gen.Text != "" {
			s.cache.Set(ctx, key, gen.Text)
		}
		metrics.TokensGenerated.WithLabelValues(modelName).Add(float64(gen.TokensOut))
	}

	// 5. Account usage and emit the record.
	if err := s.usage.AddDailyUsage(ctx, client.ID, 1, int64(gen.TokensOut)); err != nil {
		logger.Warn("usage accounting failed", "client", client.ID, "error", err.Error())
	}
	s.record(op, client, req, modelName, requestID, gen, cached, start, nil)

	return &model.GenerationResult{
		Text:      gen.Text,
		Model:     modelName,
		Cached:    cached,
		TokensIn:  gen.TokensIn,
		TokensOut: gen.TokensOut,
		LatencyMs: time.Since(start).Milliseconds(),
	}, nil
}

func (s *Orchestrator) checkRequest(req model.TextRequest) error {
	if strings.TrimSpace(req.Text) == "" {
		metrics.RequestRejects.WithLabelValues("validation").Inc()
		return apperrors.NewInvalidRequest("text is required")
	}
	if s.maxTextChars > 0 && len(req.Text) > s.maxTextChars {
		metrics.RequestRejects.WithLabelValues("validation").Inc()
		return apperrors.NewInvalidRequest(fmt.Sprintf("text exceeds %d characters", s.maxTextChars))
	}
	return nil
}

// checkQuota enforces the client's daily caps. An unreachable usage
// store skips the check rather than failing the request; the counters
// are bookkeeping, not the product.
func (s *Orchestrator) checkQuota(ctx context.Context, client *model.APIClient) error {
	q := client.Quota
	if q.DailyRequests <= 0 && q.DailyTokens <= 0 {
		return nil
	}

	requests, tokens, err := s.usage.GetDailyUsage(ctx, client.ID)
	if err != nil {
		logger.Warn("quota check skipped, usage store unavailable", "client", client.ID, "error", err.Error())
		return nil
	}

	if q.DailyRequests > 0 && requests+1 > q.DailyRequests {
		metrics.RequestRejects.WithLabelValues("daily_request_limit").Inc()
		return apperrors.New(apperrors.ErrQuotaExceeded,
			fmt.Sprintf("daily request limit exceeded (curr: %d, max: %d)", requests, q.DailyRequests), nil)
	}
	if q.DailyTokens > 0 && tokens > q.DailyTokens {
		metrics.RequestRejects.WithLabelValues("daily_token_limit").Inc()
		return apperrors.New(apperrors.ErrQuotaExceeded,
			fmt.Sprintf("daily token limit exceeded (curr: %d, max: %d)", tokens, q.DailyTokens), nil)
	}
	return nil
}

func (s *Orchestrator) record(op model.Operation, client *model.APIClient, req model.TextRequest, modelName, requestID string, gen *ollama.GenerateResult, cached bool, start time.Time, callErr error) {
	rec := &model.RequestLog{
		ID:        ulid.Make().String(),
		RequestID: requestID,
		ClientID:  client.ID,
		Endpoint:  string(op),
		Model:     modelName,
		Status:    model.StatusOK,
		CacheHit:  cached,
		InputText: truncateText(req.Text, maxIndexedInput),
		LatencyMs: time.Since(start).Milliseconds(),
		Timestamp: start.UTC(),
	}
	if callErr != nil {
		rec.Status = model.StatusError
		rec.Error = callErr.Error()
	} else {
		rec.OutputText = gen.Text
		rec.TokensIn = gen.TokensIn
		rec.TokensOut = gen.TokensOut
	}
	s.indexer.Enqueue(rec)
}

func buildPrompt(op model.Operation, req model.TextRequest) string {
	switch op {
	case model.OpTranslate:
		lang := strings.TrimSpace(req.TargetLang)
		if lang == "" {
			lang = defaultTargetLang
		}
		return fmt.Sprintf("Translate the following text to %s:\n\n%s\n\nTranslation:", lang, req.Text)
	case model.OpSentiment:
		return fmt.Sprintf("Analyze the sentiment of the following text. Answer with exactly one word: positive, negative, or neutral.\n\n%s\n\nSentiment:", req.Text)
	default:
		return fmt.Sprintf("Summarize the following text concisely and clearly:\n\n%s\n\nSummary:", req.Text)
	}
}

// truncateText cuts at a byte limit without splitting a UTF-8 rune.
func truncateText(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
