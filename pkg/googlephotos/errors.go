package googlephotos

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/bstardust/gphotos-amazon-transfer/pkg/common"
)

// apiError is a non-2xx response that maps to no specific error type.
type apiError struct {
	Status int
	Op     string
	Body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("google photos %s returned HTTP %d: %s", e.Op, e.Status, e.Body)
}

// responseError classifies a non-2xx response into the shared error taxonomy.
func responseError(resp *http.Response, op string) error {
	body := readBodySnippet(resp.Body)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &common.AuthError{
			Vendor:  "google",
			Message: fmt.Sprintf("%s rejected with HTTP %d: %s", op, resp.StatusCode, body),
		}
	case resp.StatusCode == http.StatusTooManyRequests:
		return &common.RateLimitError{Vendor: "google", RetryAfter: parseRetryAfter(resp)}
	case resp.StatusCode == http.StatusNotFound:
		return &common.NotFoundError{Kind: op}
	case resp.StatusCode >= 500:
		return &common.TransientNetworkError{
			Op:  op,
			Err: &apiError{Status: resp.StatusCode, Op: op, Body: body},
		}
	default:
		return &apiError{Status: resp.StatusCode, Op: op, Body: body}
	}
}

func parseRetryAfter(resp *http.Response) time.Duration {
	if raw := resp.Header.Get("Retry-After"); raw != "" {
		if seconds, err := strconv.Atoi(raw); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return 0
}

func readBodySnippet(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 512))
	if err != nil {
		return ""
	}
	return string(data)
}
