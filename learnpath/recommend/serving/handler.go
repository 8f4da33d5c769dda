package serving

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ZanzyTHEbar/learnpath/learnpath/recommend/service"
)

// Handler turns raw request payloads into encoded responses
type Handler struct {
	decoder  *PayloadDecoder
	fallback *FallbackRecommender
	semantic service.ScoreSemantic
	logger   zerolog.Logger
}

// NewHandler creates a handler. semantic is echoed in every live response.
func NewHandler(decoder *PayloadDecoder, fallback *FallbackRecommender, semantic service.ScoreSemantic, logger zerolog.Logger) *Handler {
	return &Handler{
		decoder:  decoder,
		fallback: fallback,
		semantic: semantic,
		logger:   logger.With().Str("component", "handler").Logger(),
	}
}

// Handle serves one payload
func (h *Handler) Handle(ctx context.Context, payload []byte) ([]byte, error) {
	start := time.Now()
	requestID := uuid.NewString()

	req, err := h.decoder.Decode(payload)
	if err != nil {
		h.logger.Info().Err(err).Str("request_id", requestID).Msg("rejected payload")
		return nil, err
	}

	recs, source, err := h.fallback.Recommend(ctx, req.LearnerID, req.Profile(), req.K)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", requestID, err)
	}

	resp := Response{
		RequestID:       requestID,
		LearnerID:       req.LearnerID,
		Source:          source,
		Recommendations: recs,
	}
	if source == SourceLive {
		resp.ScoreSemantic = h.semantic
	}

	h.logger.Debug().
		Str("request_id", requestID).
		Str("learner_id", req.LearnerID).
		Str("source", string(source)).
		Int("returned", len(recs)).
		Dur("duration", time.Since(start)).
		Msg("served recommendations")

	return EncodeResponse(resp)
}

// ExitCode maps a failure onto a process exit status for CLI callers
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, service.ErrInvalidProfile):
		return 2
	case errors.Is(err, service.ErrRetrievalUnavailable):
		return 3
	case errors.Is(err, service.ErrDimensionMismatch):
		return 4
	default:
		return 1
	}
}
