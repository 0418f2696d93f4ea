package jsonrpc

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/kismp123/bugchainindexer-go/internal/indexerr"
)

// classify implements the first-match-wins failure classification from
// spec §4.2. httpStatus is 0 when no HTTP response was received at all
// (dial/network-level failure).
func classify(err error, httpStatus int, bodyMsg string) (kind indexerr.Kind, markSlow, markTempFailed, markPermFailed bool) {
	msg := strings.ToLower(bodyMsg)
	if err != nil {
		msg += " " + strings.ToLower(err.Error())
	}

	if errors.Is(err, context.DeadlineExceeded) || strings.Contains(msg, "timeout") || strings.Contains(msg, "econnaborted") {
		return indexerr.KindTransient, true, false, false
	}

	if httpStatus == http.StatusUnauthorized || httpStatus == http.StatusForbidden ||
		strings.Contains(msg, "unauthorized") ||
		strings.Contains(msg, "api key disabled") ||
		strings.Contains(msg, "sanctioned") ||
		strings.Contains(msg, "certificate") ||
		strings.Contains(msg, "must be authenticated") ||
		strings.Contains(msg, "please specify an address") {
		return indexerr.KindPermanent, false, false, true
	}

	if strings.Contains(msg, "method not found") ||
		strings.Contains(msg, "enotfound") ||
		strings.Contains(msg, "econnrefused") ||
		strings.Contains(msg, "econnreset") ||
		strings.Contains(msg, "malformed") {
		return indexerr.KindTransient, true, true, false
	}

	if strings.Contains(msg, "gas") {
		return indexerr.KindTransient, false, true, false
	}

	if httpStatus == http.StatusTooManyRequests || strings.Contains(msg, "rate limit") {
		return indexerr.KindRateLimited, false, false, false
	}

	return indexerr.KindTransient, false, true, false
}

// isSocketError reports whether err/msg indicates the socket-class
// failures the batch read engine (§4.5) treats with the aggressive 0.3
// shrink factor: "socket hang up", ECONNRESET, or a timeout. The spec
// enumerates "timeout" in that same list, so it is classified as a socket
// error here even though §4.2's endpoint classification treats plain
// timeouts as merely "slow" (see DESIGN.md Open Question decisions).
func isSocketError(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "socket hang up") ||
		strings.Contains(msg, "econnreset") ||
		strings.Contains(msg, "timeout")
}

// IsSocketError is the exported form used by internal/batchread to decide
// the shrink factor on chunk failure (spec §4.5 step 3).
func IsSocketError(err error) bool {
	if err == nil {
		return false
	}
	return isSocketError(err.Error())
}
