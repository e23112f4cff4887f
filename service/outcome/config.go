package outcome

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

const (
	// DefaultNativeSpamThreshold is the lamport amount below which a native
	// movement is flagged as spam. It sits above the base network fee and above
	// the rent needed to create an associated token account, so genuine
	// transfers normally exceed it.
	DefaultNativeSpamThreshold uint64 = 5000

	// DefaultTokenLowValueUnits is the number of whole display units below which
	// a token movement is flagged as low value.
	DefaultTokenLowValueUnits uint64 = 1
)

// nativePrograms are infrastructure accounts that never represent a user transfer.
var nativePrograms = []string{
	"11111111111111111111111111111111",             // System Program
	"ComputeBudget111111111111111111111111111111",  // Compute Budget
	"Vote111111111111111111111111111111111111111",  // Vote
	"Stake11111111111111111111111111111111111111",  // Stake
	"Config1111111111111111111111111111111111111",  // Config
	"AddressLookupTab1e1111111111111111111111111",  // Address Lookup Table
	"BPFLoader1111111111111111111111111111111111",  // BPF Loader (deprecated)
	"BPFLoader2111111111111111111111111111111111",  // BPF Loader
	"BPFLoaderUpgradeab1e11111111111111111111111",  // BPF Upgradeable Loader
	"Ed25519SigVerify111111111111111111111111111",  // Ed25519
	"KeccakSecp256k11111111111111111111111111111",  // Secp256k1
	"Feature111111111111111111111111111111111111",  // Feature
	"TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA",  // SPL Token
	"TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb",  // Token-2022
	"ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL", // Associated Token Account
	"MemoSq4gqABAXKb96qnH8TysNcWxMyWCqXgDLGmfcHr",  // SPL Memo
	"Memo1UhkJRfHyvLMcVucJwxXeuD728EqVDDwQDxFMNo",  // Memo (legacy)
	"SysvarC1ock11111111111111111111111111111111",  // Clock
	"SysvarRent111111111111111111111111111111111",  // Rent
	"SysvarRecentB1ockHashes11111111111111111111",  // Recent Blockhashes
	"SysvarEpochSchedu1e111111111111111111111111",  // Epoch Schedule
	"SysvarFees111111111111111111111111111111111",  // Fees
	"SysvarRewards111111111111111111111111111111",  // Rewards
	"SysvarS1otHashes111111111111111111111111111",  // Slot Hashes
	"SysvarS1otHistory11111111111111111111111111",  // Slot History
	"SysvarStakeHistory1111111111111111111111111",  // Stake History
	"Sysvar1nstructions1111111111111111111111111",  // Instructions
}

// Config holds the constant tables the classifier works against.
// They are injected at construction so alternate thresholds can be used in
// tests and per deployment.
type Config struct {
	// NativePrograms are addresses excluded from native movement classification.
	NativePrograms []string

	// NativeSpamThreshold in lamports; movements strictly below it are spam.
	NativeSpamThreshold uint64

	// TokenLowValueUnits in whole display units; token movements strictly below
	// TokenLowValueUnits * 10^decimals minor units are low value.
	TokenLowValueUnits uint64
}

// DefaultConfig returns the production tables.
func DefaultConfig() Config {
	programs := make([]string, len(nativePrograms))
	copy(programs, nativePrograms)
	return Config{
		NativePrograms:      programs,
		NativeSpamThreshold: DefaultNativeSpamThreshold,
		TokenLowValueUnits:  DefaultTokenLowValueUnits,
	}
}

// Validate checks that every native program entry is a valid public key.
func (c Config) Validate() error {
	var errs []error
	for _, addr := range c.NativePrograms {
		if _, err := solana.PublicKeyFromBase58(addr); err != nil {
			errs = append(errs, fmt.Errorf("native program %q: %w", addr, err))
		}
	}
	if c.TokenLowValueUnits == 0 {
		errs = append(errs, fmt.Errorf("token low value units must be at least 1"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("classifier configuration invalid: %v", errs)
	}
	return nil
}
