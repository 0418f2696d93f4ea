// Package jsonrpc implements the JSON-RPC 2.0 client layer from spec §4.2:
// endpoint rotation, tiered failure classification, retry with backoff
// (2s×attempt, exponential for rate-limit errors), and a forced-switch
// control channel for scanner-level watchdogs. Grounded on geth-13-trace_solution's raw
// client.Client().CallContext(...) call (the teacher reaching past
// ethclient's typed wrappers for an unwrapped method) and
// geth-02-rpc-basics' dial-with-context idiom.
package jsonrpc

import "encoding/json"

type request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      string          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string { return e.Message }
