package eth

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"
)

// ReceiptReader is the subset of ethclient needed to await a transaction
type ReceiptReader interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// PollInterval is how often WaitForReceipt asks for the receipt
var PollInterval = time.Second

// WaitForReceipt blocks until hash is mined (one confirmation) or ctx ends.
// There is no timeout of its own.
func WaitForReceipt(ctx context.Context, r ReceiptReader, hash common.Hash, log *logrus.Logger) (*types.Receipt, error) {
	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	for {
		receipt, err := r.TransactionReceipt(ctx, hash)
		if err == nil && receipt != nil {
			return receipt, nil
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			log.Warnf("Failed to fetch receipt for %s: %v", hash.Hex(), err)
		} else {
			log.Debugf("Transaction %s not yet mined", hash.Hex())
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
