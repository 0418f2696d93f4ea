package jsonrpc

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kismp123/bugchainindexer-go/internal/indexerr"
	"github.com/kismp123/bugchainindexer-go/internal/retry"
)

// ProviderClient is the provider-primary backend from spec §4.2: a single
// canonical endpoint (a direct provider URL, or a local proxy URL), used
// for calls that must be routed through one provider — getLogs, tier
// detection, and optimizer-governed chunked batch reads.
type ProviderClient struct {
	network  string
	endpoint string
	http     *http.Client
	log      *zap.Logger
	counter  int64
}

func NewProviderClient(network, endpoint string, log *zap.Logger) *ProviderClient {
	return &ProviderClient{
		network:  network,
		endpoint: endpoint,
		http:     &http.Client{Timeout: perEndpointTimeout},
		log:      log,
	}
}

func (p *ProviderClient) Call(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, wallClockCap)
	defer cancel()

	var lastErr error
	for attempt := 1; attempt <= globalRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p.counter++
		id := requestID(p.network, p.counter)
		result, httpStatus, bodyMsg, err := doPost(ctx, p.http, p.endpoint, id, method, params)
		if err == nil {
			return result, nil
		}
		kind, _, _, perm := classify(err, httpStatus, bodyMsg)
		lastErr = indexerr.New(kind, "provider.Call:"+method, err)
		if perm {
			return nil, lastErr
		}
		if attempt == globalRetries {
			break
		}
		d := retry.RPCGlobalBackoff(attempt, kind)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(d):
		}
	}
	return nil, lastErr
}

func requestID(network string, n int64) string {
	return network + "-" + itoa(n)
}

func itoa(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

