package jsonrpc

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
)

// Caller is satisfied by both the node-RPC Client and the ProviderClient,
// letting the rest of the pipeline depend on the method contract from
// spec §4.2 rather than a concrete backend.
type Caller interface {
	Call(ctx context.Context, method string, params ...any) (json.RawMessage, error)
}

func toBlockParam(n *big.Int) string {
	if n == nil {
		return "latest"
	}
	return fmt.Sprintf("0x%x", n)
}

// GetBlockNumber calls eth_blockNumber.
func GetBlockNumber(ctx context.Context, c Caller) (uint64, error) {
	raw, err := c.Call(ctx, "eth_blockNumber")
	if err != nil {
		return 0, err
	}
	return decodeQuantity(raw)
}

// GetBlockByNumber calls eth_getBlockByNumber.
func GetBlockByNumber(ctx context.Context, c Caller, number *big.Int, includeTx bool) (json.RawMessage, error) {
	return c.Call(ctx, "eth_getBlockByNumber", toBlockParam(number), includeTx)
}

// LogFilter mirrors the eth_getLogs filter object.
type LogFilter struct {
	FromBlock *big.Int
	ToBlock   *big.Int
	Address   []string
	Topics    [][]string
}

func (f LogFilter) toParam() map[string]any {
	m := map[string]any{
		"fromBlock": toBlockParam(f.FromBlock),
		"toBlock":   toBlockParam(f.ToBlock),
	}
	if len(f.Address) > 0 {
		m["address"] = f.Address
	}
	if len(f.Topics) > 0 {
		m["topics"] = f.Topics
	}
	return m
}

// Log mirrors the eth_getLogs result object.
type Log struct {
	Address         string   `json:"address"`
	Topics          []string `json:"topics"`
	Data            string   `json:"data"`
	BlockNumber     uint64   `json:"-"`
	BlockNumberHex  string   `json:"blockNumber"`
	TransactionHash string   `json:"transactionHash"`
	LogIndex        uint     `json:"-"`
	LogIndexHex     string   `json:"logIndex"`
}

// GetLogs calls eth_getLogs and decodes the result array.
func GetLogs(ctx context.Context, c Caller, filter LogFilter) ([]Log, error) {
	raw, err := c.Call(ctx, "eth_getLogs", filter.toParam())
	if err != nil {
		return nil, err
	}
	var logs []Log
	if err := json.Unmarshal(raw, &logs); err != nil {
		return nil, err
	}
	for i := range logs {
		if n, err := decodeQuantity(json.RawMessage(`"` + logs[i].BlockNumberHex + `"`)); err == nil {
			logs[i].BlockNumber = n
		}
		if n, err := decodeQuantity(json.RawMessage(`"` + logs[i].LogIndexHex + `"`)); err == nil {
			logs[i].LogIndex = uint(n)
		}
	}
	return logs, nil
}

// GetCode calls eth_getCode at the latest block.
func GetCode(ctx context.Context, c Caller, address string) (string, error) {
	raw, err := c.Call(ctx, "eth_getCode", address, "latest")
	if err != nil {
		return "", err
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", err
	}
	return s, nil
}

// GetBalance calls eth_getBalance at the latest block.
func GetBalance(ctx context.Context, c Caller, address string) (*big.Int, error) {
	raw, err := c.Call(ctx, "eth_getBalance", address, "latest")
	if err != nil {
		return nil, err
	}
	return decodeBigInt(raw)
}

// GetTransactionReceipt calls eth_getTransactionReceipt.
func GetTransactionReceipt(ctx context.Context, c Caller, txHash string) (json.RawMessage, error) {
	return c.Call(ctx, "eth_getTransactionReceipt", txHash)
}

// GetTransactionByHash calls eth_getTransactionByHash.
func GetTransactionByHash(ctx context.Context, c Caller, txHash string) (json.RawMessage, error) {
	return c.Call(ctx, "eth_getTransactionByHash", txHash)
}

// EthCall calls eth_call at the latest block.
func EthCall(ctx context.Context, c Caller, to string, data string) (string, error) {
	raw, err := c.Call(ctx, "eth_call", map[string]any{"to": to, "data": data}, "latest")
	if err != nil {
		return "", err
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", err
	}
	return s, nil
}

func decodeQuantity(raw json.RawMessage) (uint64, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, err
	}
	n := new(big.Int)
	if _, ok := n.SetString(trimHexPrefix(s), 16); !ok {
		return 0, fmt.Errorf("invalid quantity %q", s)
	}
	return n.Uint64(), nil
}

func decodeBigInt(raw json.RawMessage) (*big.Int, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	n := new(big.Int)
	if _, ok := n.SetString(trimHexPrefix(s), 16); !ok {
		return nil, fmt.Errorf("invalid quantity %q", s)
	}
	return n, nil
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}
