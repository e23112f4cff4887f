package outcome

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// RawTransaction is the subset of a getTransaction RPC result the classifier
// reads. Field names follow the RPC JSON schema.
type RawTransaction struct {
	Slot        uint64      `json:"slot"`
	BlockTime   *int64      `json:"blockTime,omitempty"`
	Meta        RawMeta     `json:"meta"`
	Transaction RawEnvelope `json:"transaction"`
}

// RawMeta carries balances, token balances, logs and loaded addresses.
// PreBalances and PostBalances are indexed positionally against the resolved
// account keys.
type RawMeta struct {
	Err               any                `json:"err"`
	Fee               uint64             `json:"fee"`
	PreBalances       []uint64           `json:"preBalances"`
	PostBalances      []uint64           `json:"postBalances"`
	PreTokenBalances  []RawTokenBalance  `json:"preTokenBalances"`
	PostTokenBalances []RawTokenBalance  `json:"postTokenBalances"`
	LogMessages       []string           `json:"logMessages"`
	LoadedAddresses   RawLoadedAddresses `json:"loadedAddresses"`
}

// RawTokenBalance is one token-balance snapshot entry.
type RawTokenBalance struct {
	AccountIndex  int              `json:"accountIndex"`
	Mint          string           `json:"mint"`
	Owner         string           `json:"owner,omitempty"`
	ProgramID     string           `json:"programId,omitempty"`
	UITokenAmount RawUITokenAmount `json:"uiTokenAmount"`
}

// RawUITokenAmount is the amount record attached to a token balance.
// UIAmount is nil when the node omits the floating display amount.
type RawUITokenAmount struct {
	Amount         string   `json:"amount"`
	Decimals       uint8    `json:"decimals"`
	UIAmount       *float64 `json:"uiAmount"`
	UIAmountString string   `json:"uiAmountString"`
}

// RawLoadedAddresses are accounts referenced through address lookup tables.
type RawLoadedAddresses struct {
	Readonly []string `json:"readonly"`
	Writable []string `json:"writable"`
}

// RawEnvelope wraps the transaction message.
type RawEnvelope struct {
	Message RawMessage `json:"message"`
}

// RawMessage holds the directly listed account keys. Index 0 is the fee payer.
type RawMessage struct {
	AccountKeys []string `json:"accountKeys"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// DecodeRawTransaction decodes a raw record from either a bare result object
// or a full JSON-RPC response envelope.
func DecodeRawTransaction(data []byte) (*RawTransaction, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, ErrTransactionNotFound
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("failed to decode transaction record: %w", err)
	}

	if _, ok := probe["jsonrpc"]; ok {
		var resp rpcResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			return nil, fmt.Errorf("failed to decode rpc response: %w", err)
		}
		if resp.Error != nil {
			return nil, fmt.Errorf("rpc error %d: %s", resp.Error.Code, resp.Error.Message)
		}
		return DecodeRawTransaction(resp.Result)
	}

	var raw RawTransaction
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode transaction record: %w", err)
	}
	return &raw, nil
}

// ResolvedAccountKeys returns the account keys extended with the writable and
// then the readonly loaded addresses. This is the list balances and token
// account indices refer to. The record itself is left untouched.
func (r *RawTransaction) ResolvedAccountKeys() []string {
	keys := r.Transaction.Message.AccountKeys
	loaded := r.Meta.LoadedAddresses
	out := make([]string, 0, len(keys)+len(loaded.Writable)+len(loaded.Readonly))
	out = append(out, keys...)
	out = append(out, loaded.Writable...)
	out = append(out, loaded.Readonly...)
	return out
}

// Failed reports whether the transaction executed with an error.
// Failed transactions still move fees, so they are classified like any other.
func (r *RawTransaction) Failed() bool {
	return r.Meta.Err != nil
}

func (r *RawTransaction) validate() error {
	if r.Transaction.Message.AccountKeys == nil {
		return structuralf("transaction.message.accountKeys", -1, "required array is absent")
	}
	if len(r.Transaction.Message.AccountKeys) == 0 {
		return structuralf("transaction.message.accountKeys", 0, "signer key is missing")
	}
	if r.Meta.PreBalances == nil {
		return structuralf("meta.preBalances", -1, "required array is absent")
	}
	if r.Meta.PostBalances == nil {
		return structuralf("meta.postBalances", -1, "required array is absent")
	}
	return nil
}
