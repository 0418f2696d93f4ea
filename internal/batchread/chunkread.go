// Package batchread implements the chunkOperation loop (C6, spec §4.5):
// calls on-chain aggregator operations in optimizer-governed chunks with
// automatic shrink-on-failure, degrade-to-singleton, and order-preserving
// sentinel results. Grounded on geth-16-concurrency's worker-pool-over-a-
// block-range pattern, generalized from fixed workers to adaptive chunk
// sizing, and geth-08-abigen's aggregator eth_call idiom
// (abi.Pack/bind.BoundContract) used by the Aggregator methods in
// aggregator.go.
package batchread

import (
	"context"
	"fmt"
	"time"

	"github.com/kismp123/bugchainindexer-go/internal/jsonrpc"
	"github.com/kismp123/bugchainindexer-go/internal/optimizer"
	"github.com/kismp123/bugchainindexer-go/internal/retry"
)

// Op calls the underlying aggregator/RPC for one chunk of addresses and
// returns one result per input address, in order.
type Op[T any] func(ctx context.Context, chunk []string) ([]T, error)

// SingleOp is the single-address fallback used when a chunk degrades to
// per-address calls after repeated failure.
type SingleOp[T any] func(ctx context.Context, addr string) (T, error)

const socketErrorSleepMin = 1 * time.Second
const socketErrorSleepMax = 2 * time.Second

// Run executes op over items in adaptively-sized chunks, preserving
// input order and length (spec §4.5 invariant: "for input address list A
// of length N, return N results preserving order").
func Run[T any](ctx context.Context, items []string, session *optimizer.Session, targetDurationMs float64, minSize, maxSize int, op Op[T], single SingleOp[T], sentinel T) ([]T, int) {
	out := make([]T, 0, len(items))
	failures := 0

	rec := session.Recommend()
	size := clamp(rec.Initial, minSize, maxSize)
	if size <= 0 {
		size = minSize
	}

	idx := 0
	for idx < len(items) {
		end := idx + size
		if end > len(items) {
			end = len(items)
		}
		chunk := items[idx:end]

		start := time.Now()
		results, err := op(ctx, chunk)
		durationMs := float64(time.Since(start).Milliseconds())

		if err == nil && len(results) == len(chunk) {
			out = append(out, results...)
			session.RecordOutcome(optimizer.Outcome{ChunkSize: len(chunk), DurationMs: durationMs, Success: true})
			idx += len(chunk) // advance by actual chunk size used, never the new size
			size = optimizer.AdjustForDuration(size, durationMs, targetDurationMs, minSize, maxSize)
			continue
		}

		isSocket := jsonrpc.IsSocketError(err)
		session.RecordOutcome(optimizer.Outcome{ChunkSize: len(chunk), DurationMs: durationMs, Success: false, IsSocketError: isSocket})
		if isSocket {
			retry.JitteredSleep(ctx, socketErrorSleepMin, socketErrorSleepMax)
		}

		shrunk := optimizer.ShrinkForFailure(size, isSocket, minSize)
		retryResults, retryErr := op(ctx, chunk[:min(len(chunk), shrunk)])
		if retryErr == nil && len(retryResults) == min(len(chunk), shrunk) {
			out = append(out, retryResults...)
			idx += len(retryResults)
			size = shrunk
			continue
		}

		// Repeated failure within this chunk: degrade to single-address
		// calls so one bad address never blocks the whole chunk.
		for _, addr := range chunk {
			v, err := single(ctx, addr)
			if err != nil {
				out = append(out, sentinel)
				failures++
				continue
			}
			out = append(out, v)
		}
		idx += len(chunk)
		size = shrunk
	}

	return out, failures
}

// RunParallel2D is the getTokenBalance-shaped operation (spec §4.5):
// result length must equal len(holders) * len(tokens). On mismatch it
// retries up to 3 times with linear backoff; a persistent mismatch
// surfaces as a hard ShapeMismatch error (never persisted).
func RunParallel2D(ctx context.Context, holders, tokens []string, call func(ctx context.Context, holders, tokens []string) ([]string, error)) ([]string, error) {
	want := len(holders) * len(tokens)
	const maxAttempts = 3
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err := call(ctx, holders, tokens)
		if err == nil && len(result) == want {
			return result, nil
		}
		if err != nil {
			lastErr = err
		} else {
			lastErr = fmt.Errorf("shape mismatch: got %d want %d", len(result), want)
		}
		if attempt == maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
		}
	}
	return nil, fmt.Errorf("getTokenBalance shape mismatch after %d attempts: %w", maxAttempts, lastErr)
}

func clamp(v, lo, hi int) int {
	if hi > 0 && v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
