package solana

import (
	"fmt"

	"github.com/brojonat/dustwatch/service/outcome"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// FromRPCResult converts a decoded getTransaction result into the raw record
// the classifier reads. The transaction envelope is decoded to recover the
// statically listed account keys; loaded addresses come from the meta.
func FromRPCResult(result *rpc.GetTransactionResult) (*outcome.RawTransaction, error) {
	if result == nil {
		return nil, outcome.ErrTransactionNotFound
	}
	if result.Meta == nil {
		return nil, fmt.Errorf("%w: transaction meta is absent", outcome.ErrMalformedRecord)
	}
	if result.Transaction == nil {
		return nil, fmt.Errorf("%w: transaction envelope is absent", outcome.ErrMalformedRecord)
	}

	tx, err := result.Transaction.GetTransaction()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode transaction envelope: %v", outcome.ErrMalformedRecord, err)
	}

	meta := result.Meta
	raw := &outcome.RawTransaction{
		Slot: result.Slot,
		Meta: outcome.RawMeta{
			Err:          meta.Err,
			Fee:          meta.Fee,
			PreBalances:  meta.PreBalances,
			PostBalances: meta.PostBalances,
			LogMessages:  meta.LogMessages,
			LoadedAddresses: outcome.RawLoadedAddresses{
				Writable: keyStrings(meta.LoadedAddresses.Writable),
				Readonly: keyStrings(meta.LoadedAddresses.ReadOnly),
			},
		},
		Transaction: outcome.RawEnvelope{
			Message: outcome.RawMessage{AccountKeys: keyStrings(tx.Message.AccountKeys)},
		},
	}
	if result.BlockTime != nil {
		bt := int64(*result.BlockTime)
		raw.BlockTime = &bt
	}

	if raw.Meta.PreTokenBalances, err = tokenBalances("meta.preTokenBalances", meta.PreTokenBalances); err != nil {
		return nil, err
	}
	if raw.Meta.PostTokenBalances, err = tokenBalances("meta.postTokenBalances", meta.PostTokenBalances); err != nil {
		return nil, err
	}

	return raw, nil
}

func tokenBalances(field string, in []rpc.TokenBalance) ([]outcome.RawTokenBalance, error) {
	out := make([]outcome.RawTokenBalance, 0, len(in))
	for i, tb := range in {
		if tb.UiTokenAmount == nil {
			return nil, fmt.Errorf("%w: %s[%d]: uiTokenAmount is absent", outcome.ErrMalformedRecord, field, i)
		}
		entry := outcome.RawTokenBalance{
			AccountIndex: int(tb.AccountIndex),
			Mint:         tb.Mint.String(),
			UITokenAmount: outcome.RawUITokenAmount{
				Amount:         tb.UiTokenAmount.Amount,
				Decimals:       tb.UiTokenAmount.Decimals,
				UIAmount:       tb.UiTokenAmount.UiAmount,
				UIAmountString: tb.UiTokenAmount.UiAmountString,
			},
		}
		if tb.Owner != nil {
			entry.Owner = tb.Owner.String()
		}
		if tb.ProgramId != nil {
			entry.ProgramID = tb.ProgramId.String()
		}
		out = append(out, entry)
	}
	return out, nil
}

func keyStrings(keys solana.PublicKeySlice) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.String()
	}
	return out
}
