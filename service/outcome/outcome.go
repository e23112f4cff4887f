package outcome

import "sort"

// TransactionOutcome is the classification of one transaction.
type TransactionOutcome struct {
	Signer         NativeMovement           `json:"signer"`
	NativeAccounts []NativeMovement         `json:"native_accounts"`
	TokenAccounts  map[string]TokenMovement `json:"token_accounts"`
	Logs           []LogEntry               `json:"logs"`
	// Mints holds the deduplicated mints of the token balances, sorted.
	Mints []string `json:"mints,omitempty"`
}

// Spammed holds the flagged movements of an outcome.
type Spammed struct {
	NativeAccounts []NativeMovement `json:"native_accounts"`
	TokenAccounts  []TokenMovement  `json:"token_accounts"`
}

// Classifier turns raw transaction records into outcomes. It holds only the
// immutable tables from Config and is safe for concurrent use.
type Classifier struct {
	cfg            Config
	nativePrograms map[string]struct{}
}

// New creates a Classifier from cfg.
func New(cfg Config) (*Classifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	programs := make(map[string]struct{}, len(cfg.NativePrograms))
	for _, addr := range cfg.NativePrograms {
		programs[addr] = struct{}{}
	}
	return &Classifier{cfg: cfg, nativePrograms: programs}, nil
}

// MustNew is like New but panics on an invalid Config.
func MustNew(cfg Config) *Classifier {
	c, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return c
}

// Parse classifies raw. Loaded addresses are appended to the account keys
// (writable, then readonly) before any positional lookup. Either the whole
// outcome is returned or a *StructuralError; there is no partial result.
func (c *Classifier) Parse(raw *RawTransaction) (*TransactionOutcome, error) {
	if raw == nil {
		return nil, ErrTransactionNotFound
	}
	if err := raw.validate(); err != nil {
		return nil, err
	}

	keys := raw.ResolvedAccountKeys()
	meta := raw.Meta

	signer, err := classifySigner(keys, meta.PreBalances, meta.PostBalances)
	if err != nil {
		return nil, err
	}

	tokens, err := c.resolveTokens(keys, meta.PreTokenBalances, meta.PostTokenBalances)
	if err != nil {
		return nil, err
	}

	natives, err := c.classifyNative(keys, meta.PreBalances, meta.PostBalances, tokens.movements, tokens.mints)
	if err != nil {
		return nil, err
	}

	return &TransactionOutcome{
		Signer:         signer,
		NativeAccounts: natives,
		TokenAccounts:  tokens.movements,
		Logs:           sanitizeLogs(meta.LogMessages),
		Mints:          tokens.sortedMints(),
	}, nil
}

// SpamCount is the number of spam native movements plus low-value token movements.
func (o *TransactionOutcome) SpamCount() int {
	s := o.Spammed()
	return len(s.NativeAccounts) + len(s.TokenAccounts)
}

// Spammed returns the flagged movements. Token movements are ordered by address.
func (o *TransactionOutcome) Spammed() Spammed {
	out := Spammed{
		NativeAccounts: []NativeMovement{},
		TokenAccounts:  []TokenMovement{},
	}
	for _, m := range o.NativeAccounts {
		if m.Spam {
			out.NativeAccounts = append(out.NativeAccounts, m)
		}
	}
	for _, m := range o.TokenAccounts {
		if m.LowValue {
			out.TokenAccounts = append(out.TokenAccounts, m)
		}
	}
	sort.Slice(out.TokenAccounts, func(i, j int) bool {
		return out.TokenAccounts[i].ATAAddress < out.TokenAccounts[j].ATAAddress
	})
	return out
}

// LowValueCount is the number of low-value token movements.
func (o *TransactionOutcome) LowValueCount() int {
	n := 0
	for _, m := range o.TokenAccounts {
		if m.LowValue {
			n++
		}
	}
	return n
}

// SuspiciousLogCount is the number of log lines with disallowed characters.
func (o *TransactionOutcome) SuspiciousLogCount() int {
	n := 0
	for _, l := range o.Logs {
		if l.HasInvalidChars {
			n++
		}
	}
	return n
}
