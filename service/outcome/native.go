package outcome

import "math"

// NativeMovement is one account's lamport balance change.
type NativeMovement struct {
	Address          string `json:"address"`
	Index            uint8  `json:"index"`
	PreBalance       uint64 `json:"pre_balance"`
	PostBalance      uint64 `json:"post_balance"`
	AmountTransacted uint64 `json:"amount_transacted"`
	Spam             bool   `json:"spam"`
}

// classifySigner derives the fee payer's movement. The signer pays, so the
// transacted amount is the decrease; fees are never spam.
func classifySigner(keys []string, pre, post []uint64) (NativeMovement, error) {
	preBalance, postBalance, err := balancesAt(0, pre, post)
	if err != nil {
		return NativeMovement{}, err
	}
	return NativeMovement{
		Address:          keys[0],
		Index:            0,
		PreBalance:       preBalance,
		PostBalance:      postBalance,
		AmountTransacted: saturatingSub(preBalance, postBalance),
		Spam:             false,
	}, nil
}

// classifyNative derives the movement of every account after the signer that
// is not a native program, a token account or a mint. Key order is preserved
// and repeated addresses are kept.
func (c *Classifier) classifyNative(keys []string, pre, post []uint64, tokens map[string]TokenMovement, mints map[string]struct{}) ([]NativeMovement, error) {
	movements := make([]NativeMovement, 0, len(keys))
	for i := 1; i < len(keys); i++ {
		address := keys[i]
		if c.isExcluded(address, tokens, mints) {
			continue
		}

		index, err := accountIndex(i)
		if err != nil {
			return nil, err
		}
		preBalance, postBalance, err := balancesAt(i, pre, post)
		if err != nil {
			return nil, err
		}

		amount := saturatingSub(postBalance, preBalance)
		movements = append(movements, NativeMovement{
			Address:          address,
			Index:            index,
			PreBalance:       preBalance,
			PostBalance:      postBalance,
			AmountTransacted: amount,
			Spam:             amount < c.cfg.NativeSpamThreshold,
		})
	}
	return movements, nil
}

func (c *Classifier) isExcluded(address string, tokens map[string]TokenMovement, mints map[string]struct{}) bool {
	if _, ok := c.nativePrograms[address]; ok {
		return true
	}
	if _, ok := tokens[address]; ok {
		return true
	}
	_, ok := mints[address]
	return ok
}

func balancesAt(i int, pre, post []uint64) (uint64, uint64, error) {
	if i >= len(pre) {
		return 0, 0, structuralf("meta.preBalances", i, "index out of range (len %d)", len(pre))
	}
	if i >= len(post) {
		return 0, 0, structuralf("meta.postBalances", i, "index out of range (len %d)", len(post))
	}
	return pre[i], post[i], nil
}

// accountIndex narrows a key position to the 8-bit output field.
func accountIndex(i int) (uint8, error) {
	if i < 0 || i > math.MaxUint8 {
		return 0, structuralf("transaction.message.accountKeys", i, "position does not fit an 8-bit account index")
	}
	return uint8(i), nil
}

func saturatingSub(a, b uint64) uint64 {
	if b > a {
		return 0
	}
	return a - b
}
