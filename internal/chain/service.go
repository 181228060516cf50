package chain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"

	apperrors "github.com/frahmantamala/paylink/internal"
	"github.com/frahmantamala/paylink/internal/rpc"
)

// Service looks up transaction status through the failover routers.
type Service struct {
	evm      *rpc.Router[EVMClient]
	solana   *rpc.Router[SolanaClient]
	required map[string]uint64
	logger   *slog.Logger
}

func NewService(evmRouter *rpc.Router[EVMClient], solanaRouter *rpc.Router[SolanaClient], required map[string]uint64, logger *slog.Logger) *Service {
	if required == nil {
		required = map[string]uint64{}
	}
	return &Service{
		evm:      evmRouter,
		solana:   solanaRouter,
		required: required,
		logger:   logger,
	}
}

// NewServiceFromConfig dials every configured endpoint. EVM clients connect
// lazily over HTTP so a dead endpoint does not fail startup.
func NewServiceFromConfig(ctx context.Context, cfg apperrors.RPCConfig, logger *slog.Logger) (*Service, error) {
	evmRouter := rpc.NewRouter[EVMClient](logger, cfg.CandidateTimeout)
	solanaRouter := rpc.NewRouter[SolanaClient](logger, cfg.CandidateTimeout)
	required := make(map[string]uint64, len(cfg.Chains))

	for name, chainCfg := range cfg.Chains {
		name = strings.ToLower(name)
		required[name] = chainCfg.RequiredConfirmations

		switch chainCfg.Kind {
		case KindEVM:
			endpoints := make([]rpc.Endpoint[EVMClient], 0, len(chainCfg.Endpoints))
			for _, url := range chainCfg.Endpoints {
				client, err := ethclient.DialContext(ctx, url)
				if err != nil {
					return nil, fmt.Errorf("failed to dial %s endpoint %s: %w", name, url, err)
				}
				endpoints = append(endpoints, rpc.Endpoint[EVMClient]{URL: url, Client: client})
			}
			evmRouter.Register(name, endpoints)
		case KindSolana:
			endpoints := make([]rpc.Endpoint[SolanaClient], 0, len(chainCfg.Endpoints))
			for _, url := range chainCfg.Endpoints {
				endpoints = append(endpoints, rpc.Endpoint[SolanaClient]{URL: url, Client: solanarpc.New(url)})
			}
			solanaRouter.Register(name, endpoints)
		default:
			return nil, fmt.Errorf("chain %s: unknown kind %q", name, chainCfg.Kind)
		}

		logger.Info("rpc endpoints registered",
			"chain", name,
			"kind", chainCfg.Kind,
			"endpoints", len(chainCfg.Endpoints))
	}

	return NewService(evmRouter, solanaRouter, required, logger), nil
}

func (s *Service) Supports(chain string) bool {
	chain = strings.ToLower(chain)
	return s.evm.Has(chain) || s.solana.Has(chain)
}

// TransactionStatus returns the on-chain status of signature on chain.
// Unknown chains yield UNSUPPORTED_CHAIN; exhausted routers yield
// BLOCKCHAIN_UNAVAILABLE.
func (s *Service) TransactionStatus(ctx context.Context, chain, signature string) (*TxStatus, error) {
	chain = strings.ToLower(strings.TrimSpace(chain))
	signature = strings.TrimSpace(signature)

	var (
		status *TxStatus
		err    error
	)
	switch {
	case s.evm.Has(chain):
		status, err = s.evmStatus(ctx, chain, signature)
	case s.solana.Has(chain):
		status, err = s.solanaStatus(ctx, chain, signature)
	default:
		return nil, apperrors.ErrUnsupportedChain
	}
	if err != nil {
		var exhausted *rpc.ExhaustedError
		if errors.As(err, &exhausted) {
			s.logger.Error("all rpc endpoints failed",
				"chain", chain,
				"signature", signature,
				"attempts", exhausted.Attempts,
				"error", exhausted.Last)
			return nil, exhausted.AppError()
		}
		return nil, err
	}

	status.Chain = chain
	status.Signature = signature
	status.RequiredConfirmations = s.required[chain]
	return status, nil
}

func (s *Service) evmStatus(ctx context.Context, chain, signature string) (*TxStatus, error) {
	if !strings.HasPrefix(signature, "0x") || len(signature) != 66 {
		return nil, apperrors.NewValidationFieldError("signature", "signature must be a 0x-prefixed 32 byte hash", apperrors.ErrCodeValidationFailed)
	}
	hash := common.HexToHash(signature)

	return rpc.Execute(ctx, s.evm, chain, func(ctx context.Context, client EVMClient) (*TxStatus, error) {
		receipt, err := client.TransactionReceipt(ctx, hash)
		if errors.Is(err, ethereum.NotFound) {
			return &TxStatus{Found: false}, nil
		}
		if err != nil {
			return nil, err
		}

		head, err := client.BlockNumber(ctx)
		if err != nil {
			return nil, err
		}

		status := &TxStatus{
			Found:   true,
			Success: receipt.Status == types.ReceiptStatusSuccessful,
		}
		if receipt.BlockNumber != nil && head >= receipt.BlockNumber.Uint64() {
			status.Confirmations = head - receipt.BlockNumber.Uint64() + 1
		}
		if !status.Success {
			status.FailureReason = "transaction reverted"
		}
		return status, nil
	})
}

func (s *Service) solanaStatus(ctx context.Context, chain, signature string) (*TxStatus, error) {
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return nil, apperrors.NewValidationFieldError("signature", "signature must be a base58 transaction signature", apperrors.ErrCodeValidationFailed)
	}

	return rpc.Execute(ctx, s.solana, chain, func(ctx context.Context, client SolanaClient) (*TxStatus, error) {
		out, err := client.GetSignatureStatuses(ctx, true, sig)
		if err != nil {
			return nil, err
		}
		if out == nil || len(out.Value) == 0 || out.Value[0] == nil {
			return &TxStatus{Found: false}, nil
		}

		result := out.Value[0]
		status := &TxStatus{
			Found:     true,
			Success:   result.Err == nil,
			Finalized: result.ConfirmationStatus == solanarpc.ConfirmationStatusFinalized,
		}
		if result.Confirmations != nil {
			status.Confirmations = *result.Confirmations
		}
		if !status.Success {
			status.FailureReason = fmt.Sprintf("transaction error: %v", result.Err)
		}
		return status, nil
	})
}
