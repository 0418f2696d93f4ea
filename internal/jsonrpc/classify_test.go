package jsonrpc

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kismp123/bugchainindexer-go/internal/indexerr"
)

func TestClassifyTimeout(t *testing.T) {
	kind, slow, temp, perm := classify(context.DeadlineExceeded, 0, "")
	assert.Equal(t, indexerr.KindTransient, kind)
	assert.True(t, slow)
	assert.False(t, temp)
	assert.False(t, perm)
}

func TestClassifyUnauthorizedIsPermanent(t *testing.T) {
	kind, slow, temp, perm := classify(errors.New("boom"), http.StatusUnauthorized, "")
	assert.Equal(t, indexerr.KindPermanent, kind)
	assert.False(t, slow)
	assert.False(t, temp)
	assert.True(t, perm)
}

func TestClassifyAPIKeyDisabledIsPermanent(t *testing.T) {
	_, _, _, perm := classify(nil, http.StatusOK, "API key disabled")
	assert.True(t, perm)
}

func TestClassifyMethodNotFoundIsTransientAndTemp(t *testing.T) {
	kind, slow, temp, perm := classify(nil, http.StatusOK, "Method not found")
	assert.Equal(t, indexerr.KindTransient, kind)
	assert.True(t, slow)
	assert.True(t, temp)
	assert.False(t, perm)
}

func TestClassifyGasErrorMarksTempOnly(t *testing.T) {
	kind, slow, temp, perm := classify(nil, http.StatusOK, "intrinsic gas too low")
	assert.Equal(t, indexerr.KindTransient, kind)
	assert.False(t, slow)
	assert.True(t, temp)
	assert.False(t, perm)
}

func TestClassifyRateLimited(t *testing.T) {
	kind, slow, temp, perm := classify(nil, http.StatusTooManyRequests, "")
	assert.Equal(t, indexerr.KindRateLimited, kind)
	assert.False(t, slow)
	assert.False(t, temp)
	assert.False(t, perm)

	kind, _, _, _ = classify(nil, http.StatusOK, "rate limit exceeded")
	assert.Equal(t, indexerr.KindRateLimited, kind)
}

func TestClassifyUnknownDefaultsToTransientTemp(t *testing.T) {
	kind, slow, temp, perm := classify(errors.New("something weird"), http.StatusOK, "")
	assert.Equal(t, indexerr.KindTransient, kind)
	assert.False(t, slow)
	assert.True(t, temp)
	assert.False(t, perm)
}

func TestIsSocketErrorVariants(t *testing.T) {
	assert.True(t, isSocketError("socket hang up"))
	assert.True(t, isSocketError("ECONNRESET"))
	assert.True(t, isSocketError("request timeout"))
	assert.False(t, isSocketError("unauthorized"))
}

func TestIsSocketErrorNilErr(t *testing.T) {
	assert.False(t, IsSocketError(nil))
	assert.True(t, IsSocketError(errors.New("socket hang up")))
}
