package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/ahrav/go-concord/infrastructure/units"
	"github.com/ahrav/go-concord/internal/domain"
	"github.com/ahrav/go-concord/internal/ports"
)

// Error kinds reported in ErrorResponse.Kind.
const (
	KindMalformedRequest = "malformed_request"
	KindRequestTooLarge  = "request_too_large"
	KindRateLimited      = "rate_limited"
	KindInvalidWeight    = "invalid_weight"
	KindShapeMismatch    = "shape_mismatch"
	KindDegenerateInput  = "degenerate_input"
	KindInvalidInput     = "invalid_input"
	KindLimitExceeded    = "limit_exceeded"
	KindUnavailable      = "unavailable"
	KindInternal         = "internal"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`

	// DecisionMaker is the 1-based ordinal of the decision-maker at fault.
	DecisionMaker int `json:"decision_maker,omitempty"`

	// Criterion names the criterion at fault.
	Criterion string `json:"criterion,omitempty"`

	// Stage is the graph stage that rejected the input.
	Stage string `json:"stage,omitempty"`
}

var errMalformedRequest = errors.New("malformed request")

// classify maps an error to a status code and response body.
func classify(err error) (int, ErrorResponse) {
	resp := ErrorResponse{Error: err.Error()}

	var stageErr *ports.StageError
	if errors.As(err, &stageErr) {
		resp.Stage = stageErr.Stage
	}

	var (
		tooLarge  *http.MaxBytesError
		weightErr *domain.InvalidWeightError
		shapeErr  *domain.ShapeMismatchError
		degenErr  *domain.DegenerateInputError
		nameErr   *domain.DuplicateCriterionError
	)
	switch {
	case errors.As(err, &tooLarge):
		resp.Kind = KindRequestTooLarge
		return http.StatusRequestEntityTooLarge, resp
	case errors.Is(err, errMalformedRequest):
		resp.Kind = KindMalformedRequest
		return http.StatusBadRequest, resp
	case errors.Is(err, ports.ErrRateLimited):
		resp.Kind = KindRateLimited
		return http.StatusTooManyRequests, resp
	case errors.As(err, &weightErr):
		resp.Kind = KindInvalidWeight
		resp.DecisionMaker = weightErr.DecisionMaker
		resp.Criterion = weightErr.Criterion
	case errors.As(err, &shapeErr):
		resp.Kind = KindShapeMismatch
		resp.DecisionMaker = shapeErr.DecisionMaker
		resp.Criterion = shapeErr.Criterion
	case errors.As(err, &degenErr):
		resp.Kind = KindDegenerateInput
		resp.DecisionMaker = degenErr.DecisionMaker
	case errors.As(err, &nameErr):
		resp.Kind = KindInvalidInput
		resp.Criterion = nameErr.Name
	case errors.Is(err, domain.ErrInvalidInput):
		resp.Kind = KindInvalidInput
	case errors.Is(err, units.ErrLimitExceeded):
		resp.Kind = KindLimitExceeded
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		resp.Kind = KindUnavailable
		return http.StatusServiceUnavailable, resp
	default:
		return http.StatusInternalServerError, ErrorResponse{Error: "internal error", Kind: KindInternal}
	}
	return http.StatusUnprocessableEntity, resp
}
