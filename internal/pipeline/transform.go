package pipeline

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
)

// AssessmentTransformer implements Transformer by decoding an
// AssessmentRequest and running it through an Assessor.
type AssessmentTransformer struct {
	assessor *Assessor
	logger   *slog.Logger
}

// NewTransformer creates an AssessmentTransformer.
func NewTransformer(assessor *Assessor, logger *slog.Logger) *AssessmentTransformer {
	return &AssessmentTransformer{
		assessor: assessor,
		logger:   logger,
	}
}

func (t *AssessmentTransformer) Transform(ctx context.Context, raw domain.RawEvent) (domain.RiskAssessment, error) {
	var req domain.AssessmentRequest
	if err := json.Unmarshal(raw.Value, &req); err != nil {
		return domain.RiskAssessment{}, &domain.InvalidRequestError{Err: err}
	}
	if req.RequestID == "" && len(raw.Key) > 0 {
		req.RequestID = string(raw.Key)
	}

	result, err := t.assessor.Assess(ctx, req)
	if err != nil {
		return domain.RiskAssessment{}, err
	}
	t.logger.Debug("request assessed", "request_id", req.RequestID, "assessment_id", result.ID, "tier", result.Tier)
	return result, nil
}
