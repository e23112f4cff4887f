package main

import (
	"encoding/json"
	"math"
	"os"
	"strings"
	"testing"

	"github.com/brojonat/dustwatch/service/outcome"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyCommand_File(t *testing.T) {
	output, err := runApp(t, "", "classify", "--file", "testdata/dust_tx.json")
	require.NoError(t, err)

	assert.Contains(t, output, testSigner)
	assert.Contains(t, output, "0.001 -> 0.000994999 SOL (moved 0.000005001)")
	assert.Contains(t, output, "Flagged:     1 spam, 1 low value, 1 suspicious logs")
	assert.Contains(t, output, testRecipient)
	assert.Contains(t, output, testTokenAcct)
	assert.Contains(t, output, "0.1")
	assert.Contains(t, output, "low value")
	assert.Contains(t, output, "Suspicious logs:")
}

func TestClassifyCommand_JSON(t *testing.T) {
	output, err := runApp(t, "", "--json", "classify", "--file", "testdata/dust_tx.json")
	require.NoError(t, err)

	var out outcome.TransactionOutcome
	require.NoError(t, json.Unmarshal([]byte(output), &out))
	assert.Equal(t, testSigner, out.Signer.Address)
	assert.Equal(t, uint64(5001), out.Signer.AmountTransacted)
	assert.Equal(t, 2, out.SpamCount())
	require.Contains(t, out.TokenAccounts, testTokenAcct)
	assert.Equal(t, uint64(100000), out.TokenAccounts[testTokenAcct].AmountTransacted)
}

func TestClassifyCommand_Stdin(t *testing.T) {
	data, err := os.ReadFile("testdata/dust_tx.json")
	require.NoError(t, err)

	output, err := runApp(t, string(data), "classify", "--file", "-", "--jq", ".signer.address")
	require.NoError(t, err)
	assert.Equal(t, `"`+testSigner+`"`+"\n", output)
}

func TestClassifyCommand_JQ(t *testing.T) {
	output, err := runApp(t, "",
		"classify", "--file", "testdata/dust_tx.json",
		"--jq", ".native_accounts[] | select(.spam) | .address",
		"--jq", "[.token_accounts[] | .low_value]",
	)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(output), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, `"`+testRecipient+`"`, lines[0])
	assert.Equal(t, `[true]`, lines[1])
}

func TestClassifyCommand_Thresholds(t *testing.T) {
	// Lowering both thresholds to zero flags nothing
	output, err := runApp(t, "",
		"classify", "--file", "testdata/dust_tx.json",
		"--spam-threshold", "0",
		"--jq", "[.native_accounts[] | select(.spam)] | length",
	)
	require.NoError(t, err)
	assert.Equal(t, "0\n", output)

	_, err = runApp(t, "", "classify", "--file", "testdata/dust_tx.json", "--low-value-units", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "low value units")
}

func TestClassifyCommand_Errors(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		contains string
	}{
		{name: "no input", args: []string{"classify"}, contains: "requires a transaction signature or --file"},
		{name: "missing file", args: []string{"classify", "--file", "testdata/nope.json"}, contains: "failed to read record"},
		{name: "bad jq", args: []string{"classify", "--file", "testdata/dust_tx.json", "--jq", ".["}, contains: "failed to parse jq filter"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runApp(t, "", tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestClassifyCommand_NullRecord(t *testing.T) {
	_, err := runApp(t, `{"jsonrpc":"2.0","id":1,"result":null}`, "classify", "--file", "-")
	require.Error(t, err)
	assert.ErrorIs(t, err, outcome.ErrTransactionNotFound)
}

func TestFormatTokenAmount(t *testing.T) {
	tests := []struct {
		amount   uint64
		decimals uint8
		expected string
	}{
		{0, 9, "0"},
		{1, 9, "0.000000001"},
		{1_500_000_000, 9, "1.5"},
		{100_000, 6, "0.1"},
		{42, 0, "42"},
		{math.MaxUint64, 0, "18446744073709551615"},
		{math.MaxUint64, 19, "1.8446744073709551615"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, formatTokenAmount(tt.amount, tt.decimals))
	}
	assert.Equal(t, "0.000005", formatLamports(5000))
}

func TestATACommand(t *testing.T) {
	first, err := runApp(t, "", "ata", testSigner, testUSDCMint)
	require.NoError(t, err)
	ata := strings.TrimSpace(first)
	assert.NotEmpty(t, ata)

	// Derivation is deterministic and matches the JSON form
	output, err := runApp(t, "", "--json", "ata", testSigner, testUSDCMint)
	require.NoError(t, err)
	var result map[string]string
	require.NoError(t, json.Unmarshal([]byte(output), &result))
	assert.Equal(t, ata, result["ata"])

	other, err := deriveATA(testRecipient, testUSDCMint)
	require.NoError(t, err)
	assert.NotEqual(t, ata, other)

	_, err = runApp(t, "", "ata", "not-an-address", testUSDCMint)
	assert.ErrorContains(t, err, "invalid wallet address")
	_, err = runApp(t, "", "ata", testSigner)
	assert.ErrorContains(t, err, "requires exactly two arguments")
}
