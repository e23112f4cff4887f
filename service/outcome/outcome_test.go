package outcome

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSigner = "SignerWa11et1111111111111111111111111111111"
	testUSDC   = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
)

func float64Ptr(f float64) *float64 { return &f }

func newTestClassifier(t *testing.T) *Classifier {
	t.Helper()
	c, err := New(DefaultConfig())
	require.NoError(t, err)
	return c
}

func rawWith(keys []string, pre, post []uint64) *RawTransaction {
	return &RawTransaction{
		Slot: 100,
		Meta: RawMeta{
			PreBalances:  pre,
			PostBalances: post,
		},
		Transaction: RawEnvelope{Message: RawMessage{AccountKeys: keys}},
	}
}

func tokenBalance(index int, mint string, ui *float64, decimals uint8, uiString string) RawTokenBalance {
	return RawTokenBalance{
		AccountIndex: index,
		Mint:         mint,
		Owner:        testSigner,
		ProgramID:    "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA",
		UITokenAmount: RawUITokenAmount{
			Decimals:       decimals,
			UIAmount:       ui,
			UIAmountString: uiString,
		},
	}
}

func TestParse_EndToEnd(t *testing.T) {
	c := newTestClassifier(t)
	raw := rawWith(
		[]string{"Signer", "A", "B"},
		[]uint64{1_000_000_000, 0, 2_039_280},
		[]uint64{999_995_000, 0, 2_039_280},
	)
	raw.Meta.LogMessages = []string{"Program X success"}

	out, err := c.Parse(raw)
	require.NoError(t, err)

	assert.Equal(t, "Signer", out.Signer.Address)
	assert.Equal(t, uint8(0), out.Signer.Index)
	assert.Equal(t, uint64(5000), out.Signer.AmountTransacted)
	assert.False(t, out.Signer.Spam)

	require.Len(t, out.NativeAccounts, 2)
	assert.Equal(t, "A", out.NativeAccounts[0].Address)
	assert.Equal(t, uint8(1), out.NativeAccounts[0].Index)
	assert.Equal(t, uint64(0), out.NativeAccounts[0].AmountTransacted)
	assert.True(t, out.NativeAccounts[0].Spam)

	assert.Equal(t, "B", out.NativeAccounts[1].Address)
	assert.Equal(t, uint8(2), out.NativeAccounts[1].Index)
	assert.Equal(t, uint64(2_039_280), out.NativeAccounts[1].PreBalance)
	assert.Equal(t, uint64(0), out.NativeAccounts[1].AmountTransacted)
	assert.True(t, out.NativeAccounts[1].Spam)

	assert.Empty(t, out.TokenAccounts)
	require.Len(t, out.Logs, 1)
	assert.False(t, out.Logs[0].HasInvalidChars)
	assert.Empty(t, out.Logs[0].InvalidChars)
}

func TestParse_SignerClamping(t *testing.T) {
	c := newTestClassifier(t)
	raw := rawWith([]string{"Signer"}, []uint64{1_000_000_000}, []uint64{1_000_005_000})

	out, err := c.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), out.Signer.AmountTransacted)
	assert.False(t, out.Signer.Spam)
}

func TestParse_NativeClamping(t *testing.T) {
	c := newTestClassifier(t)
	raw := rawWith(
		[]string{"Signer", "Receiver"},
		[]uint64{10_000, 90_000},
		[]uint64{5_000, 10_000},
	)

	out, err := c.Parse(raw)
	require.NoError(t, err)
	require.Len(t, out.NativeAccounts, 1)
	assert.Equal(t, uint64(0), out.NativeAccounts[0].AmountTransacted)
	assert.True(t, out.NativeAccounts[0].Spam)
}

func TestParse_SpamThresholdBoundary(t *testing.T) {
	tests := []struct {
		name     string
		received uint64
		spam     bool
	}{
		{name: "exactly threshold", received: 5000, spam: false},
		{name: "one below threshold", received: 4999, spam: true},
		{name: "nothing received", received: 0, spam: true},
		{name: "well above threshold", received: 1_000_000, spam: false},
	}

	c := newTestClassifier(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := rawWith(
				[]string{"Signer", "Receiver"},
				[]uint64{10_000_000, 1_000},
				[]uint64{9_000_000, 1_000 + tt.received},
			)
			out, err := c.Parse(raw)
			require.NoError(t, err)
			require.Len(t, out.NativeAccounts, 1)
			assert.Equal(t, tt.received, out.NativeAccounts[0].AmountTransacted)
			assert.Equal(t, tt.spam, out.NativeAccounts[0].Spam)
		})
	}
}

func TestParse_AlternateThreshold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NativeSpamThreshold = 100
	c, err := New(cfg)
	require.NoError(t, err)

	raw := rawWith([]string{"Signer", "Receiver"}, []uint64{10_000, 0}, []uint64{9_000, 100})
	out, err := c.Parse(raw)
	require.NoError(t, err)
	require.Len(t, out.NativeAccounts, 1)
	assert.False(t, out.NativeAccounts[0].Spam)
}

func TestParse_ExcludesNativePrograms(t *testing.T) {
	c := newTestClassifier(t)
	raw := rawWith(
		[]string{"Signer", "11111111111111111111111111111111", "ComputeBudget111111111111111111111111111111", "Receiver"},
		[]uint64{10_000_000, 1, 1, 0},
		[]uint64{9_000_000, 1, 1, 1_000_000},
	)

	out, err := c.Parse(raw)
	require.NoError(t, err)
	require.Len(t, out.NativeAccounts, 1)
	assert.Equal(t, "Receiver", out.NativeAccounts[0].Address)
	assert.Equal(t, uint8(3), out.NativeAccounts[0].Index)
	assert.Equal(t, uint64(1_000_000), out.NativeAccounts[0].AmountTransacted)
}

func TestParse_ExcludesTokenAccountsAndMints(t *testing.T) {
	c := newTestClassifier(t)
	raw := rawWith(
		[]string{"Signer", "TokenAccount", testUSDC, "Receiver"},
		[]uint64{10_000_000, 2_039_280, 1_461_600, 0},
		[]uint64{9_000_000, 2_039_280, 1_461_600, 0},
	)
	raw.Meta.PreTokenBalances = []RawTokenBalance{tokenBalance(1, testUSDC, float64Ptr(1), 6, "1")}
	raw.Meta.PostTokenBalances = []RawTokenBalance{tokenBalance(1, testUSDC, float64Ptr(3), 6, "3")}

	out, err := c.Parse(raw)
	require.NoError(t, err)

	for _, m := range out.NativeAccounts {
		assert.NotEqual(t, "TokenAccount", m.Address)
		assert.NotEqual(t, testUSDC, m.Address)
	}
	require.Len(t, out.NativeAccounts, 1)
	assert.Equal(t, "Receiver", out.NativeAccounts[0].Address)

	require.Contains(t, out.TokenAccounts, "TokenAccount")
	assert.Equal(t, []string{testUSDC}, out.Mints)
}

func TestTransactionOutcome_MintsSurviveJSON(t *testing.T) {
	raw := rawWith([]string{testSigner, "TokenAccount", testUSDC}, []uint64{1, 1, 1}, []uint64{1, 1, 1})
	raw.Meta.PreTokenBalances = []RawTokenBalance{tokenBalance(1, testUSDC, float64Ptr(1), 6, "1")}
	raw.Meta.PostTokenBalances = []RawTokenBalance{tokenBalance(1, testUSDC, float64Ptr(2), 6, "2")}

	out, err := newTestClassifier(t).Parse(raw)
	require.NoError(t, err)

	data, err := json.Marshal(out)
	require.NoError(t, err)
	var stored TransactionOutcome
	require.NoError(t, json.Unmarshal(data, &stored))
	assert.Equal(t, []string{testUSDC}, stored.Mints)

	noTokens, err := newTestClassifier(t).Parse(rawWith([]string{testSigner}, []uint64{1}, []uint64{1}))
	require.NoError(t, err)
	data, err = json.Marshal(noTokens)
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"mints"`)
}

func TestParse_KeepsDuplicateAddresses(t *testing.T) {
	c := newTestClassifier(t)
	raw := rawWith(
		[]string{"Signer", "Receiver", "Receiver"},
		[]uint64{10_000_000, 0, 0},
		[]uint64{9_000_000, 10_000, 20_000},
	)

	out, err := c.Parse(raw)
	require.NoError(t, err)
	require.Len(t, out.NativeAccounts, 2)
	assert.Equal(t, uint8(1), out.NativeAccounts[0].Index)
	assert.Equal(t, uint8(2), out.NativeAccounts[1].Index)
	assert.Equal(t, uint64(20_000), out.NativeAccounts[1].AmountTransacted)
}

func TestParse_LoadedAddressesOrder(t *testing.T) {
	c := newTestClassifier(t)
	raw := rawWith(
		[]string{"Signer", "Direct"},
		[]uint64{10_000_000, 0, 0, 0},
		[]uint64{9_000_000, 10_000, 20_000, 30_000},
	)
	raw.Meta.LoadedAddresses = RawLoadedAddresses{
		Readonly: []string{"LoadedReadonly"},
		Writable: []string{"LoadedWritable"},
	}

	out, err := c.Parse(raw)
	require.NoError(t, err)
	require.Len(t, out.NativeAccounts, 3)
	assert.Equal(t, "Direct", out.NativeAccounts[0].Address)
	assert.Equal(t, "LoadedWritable", out.NativeAccounts[1].Address)
	assert.Equal(t, uint64(20_000), out.NativeAccounts[1].AmountTransacted)
	assert.Equal(t, "LoadedReadonly", out.NativeAccounts[2].Address)
	assert.Equal(t, uint64(30_000), out.NativeAccounts[2].AmountTransacted)

	// the record itself is not extended
	assert.Len(t, raw.Transaction.Message.AccountKeys, 2)
}

func TestParse_TokenLowValueBoundary(t *testing.T) {
	tests := []struct {
		name     string
		pre      *float64
		post     *float64
		amount   uint64
		lowValue bool
	}{
		{name: "exactly one unit", pre: float64Ptr(2), post: float64Ptr(3), amount: 1_000_000, lowValue: false},
		{name: "one minor unit short", pre: float64Ptr(0), post: float64Ptr(0.999999), amount: 999_999, lowValue: true},
		{name: "decrease counts as movement", pre: float64Ptr(5), post: float64Ptr(2.5), amount: 2_500_000, lowValue: false},
		{name: "missing amounts are zero", pre: nil, post: nil, amount: 0, lowValue: true},
		{name: "missing pre amount", pre: nil, post: float64Ptr(1.5), amount: 1_500_000, lowValue: false},
	}

	c := newTestClassifier(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := rawWith([]string{"Signer", "ATA"}, []uint64{10_000_000, 2_039_280}, []uint64{9_995_000, 2_039_280})
			raw.Meta.PreTokenBalances = []RawTokenBalance{tokenBalance(1, testUSDC, tt.pre, 6, "pre")}
			raw.Meta.PostTokenBalances = []RawTokenBalance{tokenBalance(1, testUSDC, tt.post, 6, "post")}

			out, err := c.Parse(raw)
			require.NoError(t, err)
			require.Contains(t, out.TokenAccounts, "ATA")

			m := out.TokenAccounts["ATA"]
			assert.Equal(t, "ATA", m.ATAAddress)
			assert.Equal(t, uint8(1), m.AccountIndex)
			assert.Equal(t, uint8(6), m.MintDecimals)
			assert.Equal(t, tt.amount, m.AmountTransacted)
			assert.Equal(t, tt.lowValue, m.LowValue)
			assert.Equal(t, "pre", m.UIStringAmount)
		})
	}
}

func TestParse_TokenNormalizedAmounts(t *testing.T) {
	c := newTestClassifier(t)
	raw := rawWith([]string{"Signer", "ATA"}, []uint64{10_000_000, 0}, []uint64{9_995_000, 0})
	raw.Meta.PreTokenBalances = []RawTokenBalance{tokenBalance(1, testUSDC, float64Ptr(12.5), 6, "12.5")}
	raw.Meta.PostTokenBalances = []RawTokenBalance{tokenBalance(1, testUSDC, float64Ptr(10.25), 6, "10.25")}

	out, err := c.Parse(raw)
	require.NoError(t, err)

	m := out.TokenAccounts["ATA"]
	assert.Equal(t, uint64(12_500_000), m.PreTokenBalanceAmount)
	assert.Equal(t, uint64(10_250_000), m.PostTokenBalanceAmount)
	assert.Equal(t, uint64(2_250_000), m.AmountTransacted)
	assert.Equal(t, "12.5", m.UIStringAmount)
}

func TestParse_TokenAlternateLowValueUnits(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TokenLowValueUnits = 10
	c, err := New(cfg)
	require.NoError(t, err)

	raw := rawWith([]string{"Signer", "ATA"}, []uint64{10_000_000, 0}, []uint64{9_995_000, 0})
	raw.Meta.PreTokenBalances = []RawTokenBalance{tokenBalance(1, testUSDC, float64Ptr(0), 2, "0")}
	raw.Meta.PostTokenBalances = []RawTokenBalance{tokenBalance(1, testUSDC, float64Ptr(9.99), 2, "9.99")}

	out, err := c.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, uint64(999), out.TokenAccounts["ATA"].AmountTransacted)
	assert.True(t, out.TokenAccounts["ATA"].LowValue)
}

func TestParse_Idempotent(t *testing.T) {
	c := newTestClassifier(t)
	data := []byte(`{
		"slot": 42,
		"blockTime": 1700000000,
		"meta": {
			"err": null,
			"fee": 5000,
			"preBalances": [1000000000, 0, 2039280, 1461600],
			"postBalances": [999995000, 4000, 2039280, 1461600],
			"preTokenBalances": [{"accountIndex": 2, "mint": "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", "owner": "A", "programId": "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA", "uiTokenAmount": {"amount": "0", "decimals": 6, "uiAmount": null, "uiAmountString": "0"}}],
			"postTokenBalances": [{"accountIndex": 2, "mint": "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", "owner": "A", "programId": "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA", "uiTokenAmount": {"amount": "10", "decimals": 6, "uiAmount": 0.00001, "uiAmountString": "0.00001"}}],
			"logMessages": ["Program 11111111111111111111111111111111 invoke [1]", "Program log: Transfer"],
			"loadedAddresses": {"readonly": [], "writable": []}
		},
		"transaction": {"message": {"accountKeys": ["Signer", "A", "ATA", "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"]}}
	}`)

	first, err := DecodeRawTransaction(data)
	require.NoError(t, err)
	second, err := DecodeRawTransaction(data)
	require.NoError(t, err)

	out1, err := c.Parse(first)
	require.NoError(t, err)
	out2, err := c.Parse(second)
	require.NoError(t, err)

	assert.Equal(t, out1, out2)

	json1, err := json.Marshal(out1)
	require.NoError(t, err)
	json2, err := json.Marshal(out2)
	require.NoError(t, err)
	assert.JSONEq(t, string(json1), string(json2))

	assert.Equal(t, 2, out1.SpamCount())
	assert.Equal(t, 1, out1.LowValueCount())
	assert.Equal(t, 1, out1.SuspiciousLogCount())
}

func TestParse_StructuralErrors(t *testing.T) {
	tests := []struct {
		name  string
		raw   func() *RawTransaction
		field string
	}{
		{
			name: "missing account keys",
			raw: func() *RawTransaction {
				return rawWith(nil, []uint64{1}, []uint64{1})
			},
			field: "transaction.message.accountKeys",
		},
		{
			name: "empty account keys",
			raw: func() *RawTransaction {
				return rawWith([]string{}, []uint64{1}, []uint64{1})
			},
			field: "transaction.message.accountKeys",
		},
		{
			name: "missing pre balances",
			raw: func() *RawTransaction {
				return rawWith([]string{"Signer"}, nil, []uint64{1})
			},
			field: "meta.preBalances",
		},
		{
			name: "signer balance missing",
			raw: func() *RawTransaction {
				return rawWith([]string{"Signer"}, []uint64{}, []uint64{1})
			},
			field: "meta.preBalances",
		},
		{
			name: "native balance out of range",
			raw: func() *RawTransaction {
				return rawWith([]string{"Signer", "Receiver"}, []uint64{1, 2}, []uint64{1})
			},
			field: "meta.postBalances",
		},
		{
			name: "token account index out of range",
			raw: func() *RawTransaction {
				raw := rawWith([]string{"Signer"}, []uint64{1}, []uint64{1})
				raw.Meta.PreTokenBalances = []RawTokenBalance{tokenBalance(5, testUSDC, nil, 6, "0")}
				raw.Meta.PostTokenBalances = []RawTokenBalance{tokenBalance(5, testUSDC, nil, 6, "0")}
				return raw
			},
			field: "meta.preTokenBalances",
		},
		{
			name: "token snapshot lengths differ",
			raw: func() *RawTransaction {
				raw := rawWith([]string{"Signer", "ATA"}, []uint64{1, 1}, []uint64{1, 1})
				raw.Meta.PreTokenBalances = []RawTokenBalance{tokenBalance(1, testUSDC, nil, 6, "0")}
				return raw
			},
			field: "meta.postTokenBalances",
		},
		{
			name: "token snapshots not paired",
			raw: func() *RawTransaction {
				raw := rawWith([]string{"Signer", "ATA1", "ATA2"}, []uint64{1, 1, 1}, []uint64{1, 1, 1})
				raw.Meta.PreTokenBalances = []RawTokenBalance{
					tokenBalance(1, testUSDC, nil, 6, "0"),
					tokenBalance(2, testUSDC, nil, 6, "0"),
				}
				raw.Meta.PostTokenBalances = []RawTokenBalance{
					tokenBalance(2, testUSDC, nil, 6, "0"),
					tokenBalance(1, testUSDC, nil, 6, "0"),
				}
				return raw
			},
			field: "meta.postTokenBalances",
		},
		{
			name: "decimals too large",
			raw: func() *RawTransaction {
				raw := rawWith([]string{"Signer", "ATA"}, []uint64{1, 1}, []uint64{1, 1})
				raw.Meta.PreTokenBalances = []RawTokenBalance{tokenBalance(1, testUSDC, nil, 20, "0")}
				raw.Meta.PostTokenBalances = []RawTokenBalance{tokenBalance(1, testUSDC, nil, 20, "0")}
				return raw
			},
			field: "meta.preTokenBalances",
		},
		{
			name: "ui amount overflows minor units",
			raw: func() *RawTransaction {
				raw := rawWith([]string{"Signer", "ATA"}, []uint64{1, 1}, []uint64{1, 1})
				raw.Meta.PreTokenBalances = []RawTokenBalance{tokenBalance(1, testUSDC, nil, 9, "0")}
				raw.Meta.PostTokenBalances = []RawTokenBalance{tokenBalance(1, testUSDC, float64Ptr(1e12), 9, "1e12")}
				return raw
			},
			field: "meta.postTokenBalances",
		},
	}

	c := newTestClassifier(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := c.Parse(tt.raw())
			require.Error(t, err)
			assert.Nil(t, out)
			assert.True(t, errors.Is(err, ErrMalformedRecord))

			var structural *StructuralError
			require.True(t, errors.As(err, &structural))
			assert.Equal(t, tt.field, structural.Field)
		})
	}
}

func TestParse_TokenAmountAboveInt64(t *testing.T) {
	// 1e10 tokens at 9 decimals is 1e19 minor units: above 2^63, below 2^64.
	raw := rawWith([]string{testSigner, "ATA"}, []uint64{1, 1}, []uint64{1, 1})
	raw.Meta.PreTokenBalances = []RawTokenBalance{tokenBalance(1, testUSDC, nil, 9, "0")}
	raw.Meta.PostTokenBalances = []RawTokenBalance{tokenBalance(1, testUSDC, float64Ptr(1e10), 9, "10000000000")}

	out, err := newTestClassifier(t).Parse(raw)
	require.NoError(t, err)

	mv, ok := out.TokenAccounts["ATA"]
	require.True(t, ok)
	assert.Equal(t, uint64(10_000_000_000_000_000_000), mv.PostTokenBalanceAmount)
	assert.Equal(t, uint64(10_000_000_000_000_000_000), mv.AmountTransacted)
	assert.False(t, mv.LowValue)
}

func TestNormalizeUIAmount_Bounds(t *testing.T) {
	tests := []struct {
		name     string
		ui       *float64
		decimals uint8
		want     uint64
		wantErr  bool
	}{
		{name: "missing", ui: nil, decimals: 6, want: 0},
		{name: "negative display amount", ui: float64Ptr(-1.5), decimals: 6, want: 1_500_000},
		{name: "above int64", ui: float64Ptr(1e10), decimals: 9, want: 10_000_000_000_000_000_000},
		{name: "beyond uint64", ui: float64Ptr(1e12), decimals: 9, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := normalizeUIAmount(tt.ui, tt.decimals)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_IndexBeyondEightBits(t *testing.T) {
	c := newTestClassifier(t)
	keys := make([]string, 300)
	balances := make([]uint64, 300)
	for i := range keys {
		keys[i] = "Account"
	}
	keys[0] = "Signer"

	out, err := c.Parse(rawWith(keys, balances, balances))
	require.Error(t, err)
	assert.Nil(t, out)
	assert.ErrorIs(t, err, ErrMalformedRecord)
	assert.Contains(t, err.Error(), "8-bit")
}

func TestParse_NilRecord(t *testing.T) {
	c := newTestClassifier(t)
	_, err := c.Parse(nil)
	assert.ErrorIs(t, err, ErrTransactionNotFound)
}

func TestSpammed(t *testing.T) {
	c := newTestClassifier(t)
	raw := rawWith(
		[]string{"Signer", "Dust", "Real", "ATA2", "ATA1"},
		[]uint64{10_000_000, 0, 0, 0, 0},
		[]uint64{9_000_000, 1, 1_000_000, 0, 0},
	)
	raw.Meta.PreTokenBalances = []RawTokenBalance{
		tokenBalance(3, testUSDC, float64Ptr(0), 6, "0"),
		tokenBalance(4, testUSDC, float64Ptr(0), 6, "0"),
	}
	raw.Meta.PostTokenBalances = []RawTokenBalance{
		tokenBalance(3, testUSDC, float64Ptr(0.01), 6, "0.01"),
		tokenBalance(4, testUSDC, float64Ptr(0.02), 6, "0.02"),
	}

	out, err := c.Parse(raw)
	require.NoError(t, err)

	spammed := out.Spammed()
	require.Len(t, spammed.NativeAccounts, 1)
	assert.Equal(t, "Dust", spammed.NativeAccounts[0].Address)
	require.Len(t, spammed.TokenAccounts, 2)
	assert.Equal(t, "ATA1", spammed.TokenAccounts[0].ATAAddress)
	assert.Equal(t, "ATA2", spammed.TokenAccounts[1].ATAAddress)
	assert.Equal(t, 3, out.SpamCount())
}

func TestNew_InvalidNativeProgram(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NativePrograms = append(cfg.NativePrograms, "not-a-key")
	_, err := New(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not-a-key")
}

func TestDefaultConfig_IsCopy(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NativePrograms[0] = "changed"
	assert.Equal(t, "11111111111111111111111111111111", DefaultConfig().NativePrograms[0])
	assert.NoError(t, DefaultConfig().Validate())
}
