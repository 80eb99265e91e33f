package chain

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Reader 校验支付所需的链上读取接口，*ethclient.Client 满足该接口
type Reader interface {
	BlockNumber(ctx context.Context) (uint64, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Confirmations 回执所在区块到最新区块的确认数，包含回执所在区块
func Confirmations(latest, receiptBlock uint64) uint64 {
	if latest < receiptBlock {
		return 0
	}
	return latest - receiptBlock + 1
}
