package outcome

import (
	"fmt"
	"math"
	"sort"
)

// maxDecimals is the largest decimal count for which 10^decimals fits uint64.
const maxDecimals = 19

// minorUnitLimit is 2^64, the first value a uint64 cannot hold.
const minorUnitLimit float64 = 1 << 64

// TokenMovement is one token account's balance change, keyed by the token
// account (ATA) address.
type TokenMovement struct {
	ATAAddress             string `json:"ata_address"`
	AccountIndex           uint8  `json:"account_index"`
	PreTokenBalanceAmount  uint64 `json:"pre_token_balance_amount"`
	PostTokenBalanceAmount uint64 `json:"post_token_balance_amount"`
	MintDecimals           uint8  `json:"mint_decimals"`
	AmountTransacted       uint64 `json:"amount_transacted"`
	LowValue               bool   `json:"low_value"`
	UIStringAmount         string `json:"ui_string_amount"`
}

// tokenResolution is the resolver output consumed by the native classifier.
type tokenResolution struct {
	movements map[string]TokenMovement
	mints     map[string]struct{}
}

// sortedMints returns the deduplicated mint addresses in ascending order.
func (t tokenResolution) sortedMints() []string {
	out := make([]string, 0, len(t.mints))
	for mint := range t.mints {
		out = append(out, mint)
	}
	sort.Strings(out)
	return out
}

// resolveTokens pairs pre[i] with post[i] and derives one movement per token
// account. Pairs must agree on account index and mint.
func (c *Classifier) resolveTokens(keys []string, pre, post []RawTokenBalance) (tokenResolution, error) {
	res := tokenResolution{
		movements: make(map[string]TokenMovement, len(pre)),
		mints:     make(map[string]struct{}, len(pre)),
	}

	if len(pre) != len(post) {
		return res, structuralf("meta.postTokenBalances", -1,
			"length %d does not match preTokenBalances length %d", len(post), len(pre))
	}

	for i, before := range pre {
		after := post[i]
		if after.AccountIndex != before.AccountIndex || after.Mint != before.Mint {
			return res, structuralf("meta.postTokenBalances", i,
				"entry (account %d, mint %s) is not paired with preTokenBalances entry (account %d, mint %s)",
				after.AccountIndex, after.Mint, before.AccountIndex, before.Mint)
		}

		if before.AccountIndex < 0 || before.AccountIndex >= len(keys) {
			return res, structuralf("meta.preTokenBalances", i,
				"accountIndex %d out of range (%d account keys)", before.AccountIndex, len(keys))
		}
		index, err := accountIndex(before.AccountIndex)
		if err != nil {
			return res, err
		}
		ataAddress := keys[before.AccountIndex]

		res.mints[before.Mint] = struct{}{}

		decimals := before.UITokenAmount.Decimals
		if decimals > maxDecimals {
			return res, structuralf("meta.preTokenBalances", i,
				"decimals %d exceeds supported maximum %d", decimals, maxDecimals)
		}
		unit := pow10(decimals)

		preAmount, err := normalizeUIAmount(before.UITokenAmount.UIAmount, decimals)
		if err != nil {
			return res, structuralf("meta.preTokenBalances", i, "%v", err)
		}
		postAmount, err := normalizeUIAmount(after.UITokenAmount.UIAmount, decimals)
		if err != nil {
			return res, structuralf("meta.postTokenBalances", i, "%v", err)
		}

		amount := absDiff(postAmount, preAmount)
		res.movements[ataAddress] = TokenMovement{
			ATAAddress:             ataAddress,
			AccountIndex:           index,
			PreTokenBalanceAmount:  preAmount,
			PostTokenBalanceAmount: postAmount,
			MintDecimals:           decimals,
			AmountTransacted:       amount,
			LowValue:               isLowValue(amount, unit, c.cfg.TokenLowValueUnits),
			UIStringAmount:         before.UITokenAmount.UIAmountString,
		}
	}

	return res, nil
}

// normalizeUIAmount converts a floating display amount into integer minor
// units: |round(ui * 10^decimals)|. A missing amount counts as zero.
//
// The result is only as precise as float64. Tokens with many decimals (or
// very large balances) lose low-order digits; the display amount the node
// returns has the same limit, so the loss is accepted here.
func normalizeUIAmount(ui *float64, decimals uint8) (uint64, error) {
	if ui == nil {
		return 0, nil
	}
	scaled := math.Abs(math.Round(*ui * math.Pow10(int(decimals))))
	if math.IsNaN(scaled) || scaled >= minorUnitLimit {
		return 0, fmt.Errorf("uiAmount %v with %d decimals does not fit 64-bit minor units", *ui, decimals)
	}
	return uint64(scaled), nil
}

func isLowValue(amount, unit, units uint64) bool {
	if units != 0 && unit > math.MaxUint64/units {
		return true
	}
	return amount < unit*units
}

func pow10(decimals uint8) uint64 {
	p := uint64(1)
	for range decimals {
		p *= 10
	}
	return p
}

func absDiff(a, b uint64) uint64 {
	if a > b {
		return a - b
	}
	return b - a
}
