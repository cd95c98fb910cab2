package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeValidation represents missing or malformed card input
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeScrape represents a failed scrape (catch-all around the browser pipeline)
	ErrorTypeScrape ErrorType = "scrape"
	// ErrorTypeNavigation represents page navigation failures, including timeouts
	ErrorTypeNavigation ErrorType = "navigation"
	// ErrorTypeRateLimit represents rate limiting errors
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeCache represents cache-related errors
	ErrorTypeCache ErrorType = "cache"
	// ErrorTypePublisher represents publisher-related errors
	ErrorTypePublisher ErrorType = "publisher"
	// ErrorTypeStore represents card metadata store errors
	ErrorTypeStore ErrorType = "store"
	// ErrorTypeNotFound represents a card that does not exist in the store
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
)

var (
	// ErrNavigationTimeout is returned by drivers when the page did not settle in time
	ErrNavigationTimeout = stderrors.New("navigation timeout")
	// ErrRateLimited is returned by drivers when the marketplace refuses further requests
	ErrRateLimited = stderrors.New("rate limited")
)

// ScrapeError represents a scraper-specific error
type ScrapeError struct {
	Type    ErrorType
	Source  string
	Message string
	Err     error
	Time    time.Time
}

// Error implements the error interface
func (e *ScrapeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.Source, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Source, e.Message)
}

// Unwrap returns the underlying error
func (e *ScrapeError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the whole operation may be attempted again
func (e *ScrapeError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeNavigation:
		return true
	case ErrorTypeScrape:
		var inner *ScrapeError
		if stderrors.As(e.Err, &inner) {
			return inner.IsRetryable()
		}
		return stderrors.Is(e.Err, ErrNavigationTimeout)
	default:
		return false
	}
}

// New creates a new ScrapeError
func New(errType ErrorType, source, message string, err error) *ScrapeError {
	return &ScrapeError{
		Type:    errType,
		Source:  source,
		Message: message,
		Err:     err,
		Time:    time.Now(),
	}
}

// NewValidation creates a new validation error
func NewValidation(source, message string) *ScrapeError {
	return New(ErrorTypeValidation, source, message, nil)
}

// NewScrapeFailed wraps any failure that happened while a browser session was in use.
// The message carries the cause so it survives serialisation to clients.
func NewScrapeFailed(source string, err error) *ScrapeError {
	msg := "Scraping failed"
	if err != nil {
		msg = fmt.Sprintf("Scraping failed: %s", Cause(err))
	}
	return New(ErrorTypeScrape, source, msg, err)
}

// NewNavigation creates a new navigation error
func NewNavigation(source, message string, err error) *ScrapeError {
	return New(ErrorTypeNavigation, source, message, err)
}

// NewRateLimit creates a new rate limit error
func NewRateLimit(source string, duration time.Duration) *ScrapeError {
	message := fmt.Sprintf("rate limited for %v", duration)
	return New(ErrorTypeRateLimit, source, message, ErrRateLimited)
}

// NewCache creates a new cache error
func NewCache(source, message string, err error) *ScrapeError {
	return New(ErrorTypeCache, source, message, err)
}

// NewPublisher creates a new publisher error
func NewPublisher(source, message string, err error) *ScrapeError {
	return New(ErrorTypePublisher, source, message, err)
}

// NewStore creates a new store error
func NewStore(source, message string, err error) *ScrapeError {
	return New(ErrorTypeStore, source, message, err)
}

// NewNotFound creates a new not found error
func NewNotFound(source, message string) *ScrapeError {
	return New(ErrorTypeNotFound, source, message, nil)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *ScrapeError {
	return New(ErrorTypeConfiguration, "", message, err)
}

// TypeOf returns the type of the outermost ScrapeError in err's chain, or "" if none.
func TypeOf(err error) ErrorType {
	var se *ScrapeError
	if stderrors.As(err, &se) {
		return se.Type
	}
	return ""
}

// IsValidation reports whether err is a validation error
func IsValidation(err error) bool {
	return TypeOf(err) == ErrorTypeValidation
}

// IsScrapeFailed reports whether err is a ScrapeFailed error
func IsScrapeFailed(err error) bool {
	return TypeOf(err) == ErrorTypeScrape
}

// Cause returns the human readable message of err without the type/source decoration.
func Cause(err error) string {
	var se *ScrapeError
	if stderrors.As(err, &se) {
		if se.Err != nil {
			return fmt.Sprintf("%s: %s", se.Message, Cause(se.Err))
		}
		return se.Message
	}
	return err.Error()
}
