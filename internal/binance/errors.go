package binance

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is a non-retriable error response from the Binance API.
// Code and Message carry the exchange's own error payload, e.g.
// {"code": -1013, "msg": "Invalid quantity."}.
type APIError struct {
	Status  int    `json:"-"`
	Code    int64  `json:"code"`
	Message string `json:"msg"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("binance: status %d code %d: %s", e.Status, e.Code, e.Message)
}

// IsRateLimit reports whether err is a rate-limit rejection (HTTP 429, or
// Binance's 418 auto-ban response).
func IsRateLimit(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status == http.StatusTooManyRequests || apiErr.Status == 418
	}
	return false
}

// IsInvalidRequest reports whether err is a client-side rejection that will
// not succeed on retry (bad symbol, bad quantity, bad signature).
func IsInvalidRequest(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 400 && apiErr.Status < 500 &&
			apiErr.Status != http.StatusTooManyRequests && apiErr.Status != 418
	}
	return false
}

// IsTransient reports whether err is worth retrying: server-side failures,
// rate limits, and network errors that never produced an API response.
func IsTransient(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500 || IsRateLimit(err)
	}
	// No structured response at all means the request never made it through.
	return err != nil
}
