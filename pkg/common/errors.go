package common

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// AuthError indicates invalid or expired credentials. It is fatal: the run
// aborts before any items are processed.
type AuthError struct {
	Vendor  string
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s authentication failed: %s", e.Vendor, e.Message)
}

// ConfigError indicates an unusable configuration. Fatal, like AuthError.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// NewConfigError creates a ConfigError with the given message.
func NewConfigError(message string) error {
	return &ConfigError{Message: message}
}

// RateLimitError indicates the vendor is throttling requests. Recoverable via
// bounded retry with backoff.
type RateLimitError struct {
	Vendor     string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s rate limit exceeded, retry after %s", e.Vendor, e.RetryAfter)
	}
	return fmt.Sprintf("%s rate limit exceeded", e.Vendor)
}

// TransientNetworkError wraps a network-level failure worth retrying.
type TransientNetworkError struct {
	Op  string
	Err error
}

func (e *TransientNetworkError) Error() string {
	return fmt.Sprintf("transient network error during %s: %v", e.Op, e.Err)
}

func (e *TransientNetworkError) Unwrap() error { return e.Err }

// DownloadError wraps a terminal download failure for one item.
type DownloadError struct {
	Filename string
	Err      error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("failed to download %s: %v", e.Filename, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// UploadError wraps a terminal upload failure for one item.
type UploadError struct {
	Filename string
	Err      error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("failed to upload %s: %v", e.Filename, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// DuplicateError indicates the destination already holds matching content.
// It is mapped to a skip, never a failure.
type DuplicateError struct {
	Filename string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s already exists in the destination", e.Filename)
}

// NotFoundError indicates a resource vanished upstream. Retrying cannot
// change the outcome.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Kind)
}

// QuotaExceededError indicates the destination rejected an upload for lack of
// storage. AccountWide means no further upload can succeed this run.
type QuotaExceededError struct {
	Message     string
	AccountWide bool
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("storage quota exceeded: %s", e.Message)
}

// IsAuth reports whether err is an authentication failure.
func IsAuth(err error) bool {
	var target *AuthError
	return errors.As(err, &target)
}

// IsRateLimit reports whether err is a rate-limit response.
func IsRateLimit(err error) bool {
	var target *RateLimitError
	return errors.As(err, &target)
}

// IsDuplicate reports whether err means the content already exists.
func IsDuplicate(err error) bool {
	var target *DuplicateError
	return errors.As(err, &target)
}

// IsNotFound reports whether err is a missing-resource response.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsQuotaExceeded reports whether err is a storage quota rejection.
func IsQuotaExceeded(err error) bool {
	var target *QuotaExceededError
	return errors.As(err, &target)
}

// IsAccountQuota reports whether err is a quota rejection that applies to the
// whole account rather than a single item.
func IsAccountQuota(err error) bool {
	var target *QuotaExceededError
	return errors.As(err, &target) && target.AccountWide
}

// IsTransient reports whether err is worth another attempt. Typed transient
// errors are recognized first; the string check catches wrapped errors from
// the HTTP stack that carry no type.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var target *TransientNetworkError
	if errors.As(err, &target) {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "connection") ||
		strings.Contains(msg, "reset") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "unavailable")
}
