package services

import (
	"net/http"

	domainagg "github.com/yungbote/waxfeed-backend/internal/domain/aggregates"
	"github.com/yungbote/waxfeed-backend/internal/platform/apierr"
)

// aggregateAPIError maps aggregate error codes onto HTTP statuses.
func aggregateAPIError(err error, fallbackCode string) error {
	if err == nil {
		return nil
	}
	switch domainagg.CodeOf(err) {
	case domainagg.CodeValidation:
		return apierr.New(http.StatusBadRequest, "invalid_request", err)
	case domainagg.CodeNotFound:
		return apierr.New(http.StatusNotFound, "not_found", err)
	case domainagg.CodeConflict:
		return apierr.New(http.StatusConflict, "conflict", err)
	case domainagg.CodeInvariantViolation:
		return apierr.New(http.StatusConflict, "wax_account_frozen", err)
	case domainagg.CodePreconditionFailed:
		return apierr.New(http.StatusPreconditionFailed, "precondition_failed", err)
	case domainagg.CodeRetryable:
		return apierr.New(http.StatusServiceUnavailable, "retry_later", err)
	default:
		return apierr.New(http.StatusInternalServerError, fallbackCode, err)
	}
}
