package github

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-github/v63/github"

	apperrors "github.com/coolwithyou/studiobaton.live-sub000/internal/errors"
)

// emptyRepositoryMessage is what the API answers when listing commits of a repository
// that has no commits yet.
const emptyRepositoryMessage = "git repository is empty"

// IsEmptyOrMissing reports whether err means "nothing to collect here": the repository
// or branch does not exist (404) or the repository has no commits (409 "Git Repository
// is empty"). Young and emptied repositories are normal, not failures.
func IsEmptyOrMissing(err error) bool {
	if err == nil {
		return false
	}

	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		switch ghErr.Response.StatusCode {
		case http.StatusNotFound:
			return true
		case http.StatusConflict:
			return strings.Contains(strings.ToLower(ghErr.Message), emptyRepositoryMessage)
		}
	}

	return strings.Contains(strings.ToLower(err.Error()), emptyRepositoryMessage)
}

// IsRateLimited reports whether err is a primary or secondary rate-limit rejection.
func IsRateLimited(err error) bool {
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return true
	}
	var abuseErr *github.AbuseRateLimitError
	return errors.As(err, &abuseErr)
}

// wrapError annotates a provider failure. Rate limits and rejected credentials become
// typed application errors.
func wrapError(err error, format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	if IsRateLimited(err) {
		return apperrors.NewRateLimitError(rateReset(err), fmt.Errorf("%s: %w", msg, err))
	}
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil && ghErr.Response.StatusCode == http.StatusUnauthorized {
		return apperrors.NewUnauthorizedError(msg, err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func rateReset(err error) time.Time {
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) && !rateErr.Rate.Reset.Time.IsZero() {
		return rateErr.Rate.Reset.Time
	}
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return time.Now().Add(abuseErr.GetRetryAfter())
	}
	return time.Now().Add(time.Minute)
}

// ValidationError represents invalid input to GitHub client methods
type ValidationError struct {
	Field string
	Value string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: invalid %s: %s", e.Field, e.Value)
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, value string) error {
	return &ValidationError{
		Field: field,
		Value: value,
	}
}
