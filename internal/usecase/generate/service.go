package generate

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/chefmate-cloud/chefmate/internal/domain"
	"github.com/chefmate-cloud/chefmate/internal/metrics"
)

// Request describes one recipe generation call.
type Request struct {
	DishName    string
	Categories  []string
	Language    string
	ServingSize int
}

// Response carries the validated recipe plus call metadata. Duration is
// measured from the first attempt's start, so it includes retry
// overhead.
type Response struct {
	Recipe       domain.Recipe
	DurationMS   int64
	Attempts     int
	RAGUsed      bool
	RAGRecipes   int
	StoreOutcome domain.StoreOutcome
}

// Config bounds the attempt loop.
type Config struct {
	// Retries is the number of retries after the first attempt.
	Retries        int
	RequestTimeout time.Duration
}

// Service orchestrates recipe generation: context retrieval, prompt
// assembly, the timed attempt loop with classified retries, and
// persistence of the result.
type Service struct {
	provider domain.Provider
	builder  ContextBuilder
	store    RecipeStore
	cfg      Config
	logger   *zap.Logger

	rng   *rand.Rand
	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// New creates a generation orchestrator.
func New(provider domain.Provider, builder ContextBuilder, store RecipeStore, cfg Config, logger *zap.Logger) *Service {
	return &Service{
		provider: provider,
		builder:  builder,
		store:    store,
		cfg:      cfg,
		logger:   logger,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		sleep:    sleepCtx,
		now:      time.Now,
	}
}

// Generate runs the full loop for one dish. Retrieval degradation never
// fails the request; provider exhaustion and timeouts surface as a
// single synthesized error naming the provider, the attempt count and a
// remedy.
func (s *Service) Generate(ctx context.Context, req *Request) (*Response, error) {
	if strings.TrimSpace(req.DishName) == "" {
		return nil, errors.New("dish name is required")
	}

	language, err := domain.NormalizeLanguage(req.Language)
	if err != nil {
		return nil, err
	}
	categories := domain.NormalizeCategories(req.Categories)

	retrieved := s.builder.RetrieveContext(ctx, req.DishName, categories)
	prompt := buildPrompt(req.DishName, categories, language, req.ServingSize, retrieved.Context)

	start := s.now()
	recipe, attempts, err := s.attemptLoop(ctx, prompt)
	duration := s.now().Sub(start)

	metrics.GenerationDuration.WithLabelValues(s.provider.Name()).Observe(duration.Seconds())
	if err != nil {
		metrics.GenerationRequestsTotal.WithLabelValues(s.provider.Name(), "error").Inc()
		return nil, err
	}
	metrics.GenerationRequestsTotal.WithLabelValues(s.provider.Name(), "success").Inc()

	s.logger.Info("recipe generated",
		zap.String("dish_name", recipe.DishName),
		zap.String("provider", s.provider.Name()),
		zap.Int("attempts", attempts),
		zap.Duration("duration", duration))

	outcome := s.persist(ctx, &recipe, categories, language)

	return &Response{
		Recipe:       recipe,
		DurationMS:   duration.Milliseconds(),
		Attempts:     attempts,
		RAGUsed:      retrieved.RecipesFound > 0,
		RAGRecipes:   retrieved.RecipesFound,
		StoreOutcome: outcome,
	}, nil
}

// attemptLoop is the attempt state machine: try, classify, back off,
// try again, until success, a terminal failure or attempt exhaustion.
func (s *Service) attemptLoop(ctx context.Context, prompt string) (domain.Recipe, int, error) {
	maxAttempts := s.cfg.Retries + 1
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	var lastDecision decision

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		recipe, err := s.attempt(ctx, prompt)
		if err == nil {
			return recipe, attempt, nil
		}

		lastErr = err
		lastDecision = classify(err)
		metrics.GenerationRetriesTotal.WithLabelValues(
			s.provider.Name(), string(lastDecision.kind)).Inc()

		if !lastDecision.retryable {
			s.logger.Warn("terminal generation failure",
				zap.String("provider", s.provider.Name()),
				zap.Int("attempt", attempt),
				zap.String("kind", string(lastDecision.kind)),
				zap.Error(err))
			return domain.Recipe{}, attempt, s.exhausted(attempt, lastDecision, err)
		}
		if attempt == maxAttempts {
			break
		}

		delay := backoffDelay(attempt, lastDecision, s.rng)
		s.logger.Warn("generation attempt failed, backing off",
			zap.String("provider", s.provider.Name()),
			zap.Int("attempt", attempt),
			zap.String("kind", string(lastDecision.kind)),
			zap.Duration("delay", delay),
			zap.Error(err))

		if err := s.sleep(ctx, delay); err != nil {
			return domain.Recipe{}, attempt, s.exhausted(attempt, decision{kind: failureTimeout}, err)
		}
	}

	return domain.Recipe{}, maxAttempts, s.exhausted(maxAttempts, lastDecision, lastErr)
}

// attempt runs one timed provider call and validates the structure of
// what came back. Validation failures count as malformed output so the
// loop treats them as transient.
func (s *Service) attempt(ctx context.Context, prompt string) (domain.Recipe, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()

	recipe, err := s.provider.GenerateRecipe(attemptCtx, prompt)
	if err != nil {
		return domain.Recipe{}, err
	}
	if err := recipe.Validate(); err != nil {
		return domain.Recipe{}, err
	}
	return recipe, nil
}

// exhausted synthesizes the single caller-facing error after the loop
// gives up.
func (s *Service) exhausted(attempts int, d decision, lastErr error) error {
	return fmt.Errorf("recipe generation with %s failed after %d attempt(s): %w (%s)",
		s.provider.Name(), attempts, lastErr, d.kind.hint())
}

// persist stores the generated recipe. Storage failure never fails the
// user-visible request; the outcome says what happened.
func (s *Service) persist(ctx context.Context, recipe *domain.Recipe, categories []string, language string) domain.StoreOutcome {
	outcome, err := s.store.AddRecipe(ctx, recipe, categories, language)
	if err != nil {
		s.logger.Error("failed to store generated recipe",
			zap.String("dish_name", recipe.DishName), zap.Error(err))
		return domain.StoreOutcomeFailed
	}
	switch outcome {
	case domain.StoreOutcomeSkippedQuota:
		s.logger.Warn("recipe not stored, embedding quota exhausted",
			zap.String("dish_name", recipe.DishName))
	case domain.StoreOutcomeUnavailable:
		s.logger.Warn("recipe not stored, vector store unavailable",
			zap.String("dish_name", recipe.DishName))
	}
	return outcome
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
