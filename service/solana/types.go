package solana

import (
	"time"

	"github.com/gagliardetto/solana-go/rpc"
)

// SignatureInfo is one entry of a wallet's signature history.
type SignatureInfo struct {
	Signature string    `json:"signature"`
	Slot      uint64    `json:"slot"`
	BlockTime time.Time `json:"block_time"`
	Failed    bool      `json:"failed"`
}

// signatureToDomain converts an RPC TransactionSignature to a SignatureInfo.
func signatureToDomain(sig *rpc.TransactionSignature) SignatureInfo {
	info := SignatureInfo{
		Signature: sig.Signature.String(),
		Slot:      sig.Slot,
		Failed:    sig.Err != nil,
	}
	if sig.BlockTime != nil {
		info.BlockTime = sig.BlockTime.Time()
	}
	return info
}
