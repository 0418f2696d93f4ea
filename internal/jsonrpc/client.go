package jsonrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kismp123/bugchainindexer-go/internal/indexerr"
	"github.com/kismp123/bugchainindexer-go/internal/metrics"
	"github.com/kismp123/bugchainindexer-go/internal/retry"
	"github.com/kismp123/bugchainindexer-go/internal/rpcstate"
	"github.com/kismp123/bugchainindexer-go/internal/scheduler"
)

const (
	perEndpointTimeout = 25 * time.Second
	wallClockCap       = 120 * time.Second
	globalRetries      = 3
)

// Client is the node-RPC backend: it rotates across a network's configured
// endpoint list honoring rpcstate, and exposes a forced-switch control
// channel for scanner-level watchdogs (spec §4.2, Design Notes row 6).
type Client struct {
	network   string
	endpoints []string
	state     *rpcstate.Store
	http      *http.Client
	log       *zap.Logger

	idCounter int64
	forceNext atomic.Bool

	sched *scheduler.Queue
}

// WithScheduler routes every Call through the given admission queue (spec
// §4.1's node-RPC FIFO queue) instead of dispatching immediately. Returns
// the same Client for chaining at construction time.
func (c *Client) WithScheduler(q *scheduler.Queue) *Client {
	c.sched = q
	return c
}

// NewClient constructs a node-RPC client for one network.
func NewClient(network string, endpoints []string, state *rpcstate.Store, log *zap.Logger) *Client {
	return &Client{
		network:   network,
		endpoints: endpoints,
		state:     state,
		http:      &http.Client{Timeout: perEndpointTimeout},
		log:       log,
	}
}

// ForceNextRPC marks the currently-favored endpoint slow+temporarily-failed
// so the next Call advances rotation, per spec §4.2: "required because
// scanner timeouts may fire before axios-level timeouts."
func (c *Client) ForceNextRPC() {
	c.forceNext.Store(true)
}

func (c *Client) nextRequestID() string {
	n := atomic.AddInt64(&c.idCounter, 1)
	return fmt.Sprintf("%s-%d", c.network, n)
}

// orderedEndpoints implements spec §4.2's selection order: filter
// permanently/temporarily failed, partition fast/slow, shuffle each group,
// fast first then slow. Resets temporary state if empty, then permanent
// state as a last resort (emitting a warning).
func (c *Client) orderedEndpoints() []string {
	fast, slow := c.state.Partition(c.network, c.endpoints)
	if len(fast) == 0 && len(slow) == 0 {
		c.state.ResetTemporary(c.network)
		fast, slow = c.state.Partition(c.network, c.endpoints)
	}
	if len(fast) == 0 && len(slow) == 0 {
		c.log.Warn("all endpoints exhausted, resetting permanent failure state", zap.String("network", c.network))
		c.state.ResetPermanent(c.network)
		fast, slow = c.state.Partition(c.network, c.endpoints)
	}
	rand.Shuffle(len(fast), func(i, j int) { fast[i], fast[j] = fast[j], fast[i] })
	rand.Shuffle(len(slow), func(i, j int) { slow[i], slow[j] = slow[j], slow[i] })
	return append(fast, slow...)
}

// Call performs one JSON-RPC request, rotating endpoints and retrying
// globally per spec §4.2. When a scheduler is configured (WithScheduler),
// the request is admitted through its FIFO queue first.
func (c *Client) Call(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	if c.sched != nil {
		v, err := c.sched.Enqueue(ctx, func(ctx context.Context) (any, error) {
			return c.callLocked(ctx, method, params...)
		}).Wait(ctx)
		if err != nil {
			return nil, err
		}
		result, _ := v.(json.RawMessage)
		return result, nil
	}
	return c.callLocked(ctx, method, params...)
}

func (c *Client) callLocked(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, wallClockCap)
	defer cancel()

	var result json.RawMessage
	var lastErr error
	for attempt := 1; attempt <= globalRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result, lastErr = c.callOnce(ctx, method, params)
		if lastErr == nil {
			return result, nil
		}
		if indexerr.KindOf(lastErr) == indexerr.KindPermanent {
			return nil, lastErr
		}
		if attempt == globalRetries {
			break
		}
		d := retry.RPCGlobalBackoff(attempt, indexerr.KindOf(lastErr))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(d):
		}
	}
	return nil, lastErr
}

func (c *Client) callOnce(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	endpoints := c.orderedEndpoints()
	if c.forceNext.CompareAndSwap(true, false) && len(endpoints) > 1 {
		current := endpoints[0]
		c.state.MarkSlow(c.network, current)
		c.state.MarkTemporarilyFailed(c.network, current)
		endpoints = endpoints[1:]
	}
	var lastErr error
	for _, ep := range endpoints {
		result, httpStatus, bodyMsg, err := c.post(ctx, ep, method, params)
		if err == nil {
			metrics.EndpointStatus.WithLabelValues(c.network, redact(ep)).Set(float64(rpcstate.StatusHealthy))
			return result, nil
		}
		kind, slow, temp, perm := classify(err, httpStatus, bodyMsg)
		if slow {
			c.state.MarkSlow(c.network, ep)
		}
		if temp {
			c.state.MarkTemporarilyFailed(c.network, ep)
		}
		if perm {
			c.state.MarkPermanentlyFailed(c.network, ep)
			c.log.Warn("endpoint permanently failed", zap.String("network", c.network), zap.String("endpoint", redact(ep)), zap.Error(err))
		}
		metrics.EndpointStatus.WithLabelValues(c.network, redact(ep)).Set(float64(c.state.Status(c.network, ep)))
		lastErr = indexerr.New(kind, "jsonrpc.Call:"+method, err)
	}
	if lastErr == nil {
		lastErr = indexerr.New(indexerr.KindTransient, "jsonrpc.Call:"+method, fmt.Errorf("no endpoints available"))
	}
	return nil, lastErr
}

func (c *Client) post(ctx context.Context, endpoint, method string, params []any) (result json.RawMessage, httpStatus int, bodyMsg string, err error) {
	return doPost(ctx, c.http, endpoint, c.nextRequestID(), method, params)
}

// doPost performs a single JSON-RPC HTTP round trip. Shared by the
// node-RPC Client and the single-endpoint ProviderClient so the wire
// format and response interpretation stay in one place.
func doPost(ctx context.Context, client *http.Client, endpoint, id, method string, params []any) (result json.RawMessage, httpStatus int, bodyMsg string, err error) {
	req := request{JSONRPC: "2.0", ID: id, Method: method, Params: params}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, 0, "", err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, 0, "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, "", err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, string(body), fmt.Errorf("http %d", resp.StatusCode)
	}

	var rpcResp response
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return nil, resp.StatusCode, string(body), fmt.Errorf("malformed response: %w", err)
	}
	if rpcResp.Error != nil {
		return nil, resp.StatusCode, rpcResp.Error.Message, rpcResp.Error
	}
	return rpcResp.Result, resp.StatusCode, "", nil
}

func redact(url string) string {
	// Never log full endpoint URLs: many carry API keys as path segments.
	if len(url) > 24 {
		return url[:24] + "..."
	}
	return url
}
