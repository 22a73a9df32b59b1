package service

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/edulens/quizfeedback-api/internal/prompt"
	"github.com/edulens/quizfeedback-api/pkg/ai"
	"github.com/edulens/quizfeedback-api/pkg/retrieval"
)

// Retriever narrows the retrieval client surface used by the query service.
type Retriever interface {
	FetchRelevantResults(ctx context.Context, courseID int64, query string, opts retrieval.QueryOptions) ([]retrieval.Match, error)
}

// Answer is the outcome of a course question. Found is false when the index
// held nothing relevant; that is a valid outcome, not a failure.
type Answer struct {
	Found    bool              `json:"found"`
	Answer   string            `json:"answer,omitempty"`
	Evidence []retrieval.Match `json:"evidence,omitempty"`
}

// QueryService answers free-text course questions grounded in retrieved
// course material.
type QueryService interface {
	Ask(ctx context.Context, courseID int64, question string, topK int) (Answer, error)
}

type queryService struct {
	retriever Retriever
	completer ai.Completer
	cache     *redis.Client
	cacheTTL  time.Duration
	topK      int
	logger    zerolog.Logger
}

// NewQueryService builds the question-answering service. The redis client may
// be nil, which disables the answer cache.
func NewQueryService(retriever Retriever, completer ai.Completer, cache *redis.Client, cacheTTL time.Duration, topK int, logger zerolog.Logger) QueryService {
	if topK <= 0 {
		topK = 3
	}
	return &queryService{
		retriever: retriever,
		completer: completer,
		cache:     cache,
		cacheTTL:  cacheTTL,
		topK:      topK,
		logger:    logger.With().Str("component", "query_service").Logger(),
	}
}

// Ask retrieves course material relevant to the question, builds a grounded
// prompt, and returns the model's answer together with the evidence passages.
func (s *queryService) Ask(ctx context.Context, courseID int64, question string, topK int) (Answer, error) {
	if topK <= 0 {
		topK = s.topK
	}

	cacheKey := answerCacheKey(courseID, question, topK)
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var answer Answer
			if unmarshalErr := json.Unmarshal([]byte(cached), &answer); unmarshalErr == nil {
				s.logger.Debug().Int64("course_id", courseID).Msg("answer cache hit")
				return answer, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read answer cache")
		}
	}

	matches, err := s.retriever.FetchRelevantResults(ctx, courseID, question, retrieval.QueryOptions{TopK: topK})
	if err != nil {
		return Answer{}, err
	}

	if len(matches) == 0 {
		s.logger.Info().Int64("course_id", courseID).Msg("no relevant course material found")
		return Answer{Found: false}, nil
	}

	passages := make([]string, 0, len(matches))
	for _, match := range matches {
		passages = append(passages, match.Text)
	}

	response, err := s.completer.GenerateResponse(ctx, prompt.QueryResponsePrompt(question, strings.Join(passages, "\n")))
	if err != nil {
		return Answer{}, err
	}

	answer := Answer{Found: true, Answer: response, Evidence: matches}

	if s.cache != nil {
		if payload, err := json.Marshal(answer); err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store answer cache")
			}
		}
	}

	return answer, nil
}

func answerCacheKey(courseID int64, question string, topK int) string {
	digest := sha256.Sum256([]byte(question))
	return fmt.Sprintf("answer:course:%d:k%d:%x", courseID, topK, digest[:16])
}
