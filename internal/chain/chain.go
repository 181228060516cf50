package chain

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
)

const (
	KindEVM    = "evm"
	KindSolana = "solana"
)

// EVMClient is the subset of ethclient.Client used for transaction lookups.
type EVMClient interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

// SolanaClient is the subset of the solana-go rpc client used for lookups.
type SolanaClient interface {
	GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, transactionSignatures ...solana.Signature) (*solanarpc.GetSignatureStatusesResult, error)
}

// TxStatus is the on-chain view of one transaction.
type TxStatus struct {
	Chain                 string `json:"chain"`
	Signature             string `json:"signature"`
	Found                 bool   `json:"found"`
	Success               bool   `json:"success"`
	Confirmations         uint64 `json:"confirmations"`
	RequiredConfirmations uint64 `json:"required_confirmations"`
	Finalized             bool   `json:"finalized"`
	FailureReason         string `json:"failure_reason,omitempty"`
}

func (s *TxStatus) IsConfirmed() bool {
	if !s.Found || !s.Success {
		return false
	}
	return s.Finalized || s.Confirmations >= s.RequiredConfirmations
}

func (s *TxStatus) IsFailed() bool {
	return s.Found && !s.Success
}
