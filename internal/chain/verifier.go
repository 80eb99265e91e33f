package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/UPool-Fun/UPool-sub000/internal/model"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Verifier 链上支付校验器
type Verifier struct {
	reader        Reader
	token         *Contract
	confirmations uint64
}

// NewVerifier 创建校验器；token 为零地址时接受任意 ERC-20
func NewVerifier(reader Reader, token common.Address, confirmations uint64) (*Verifier, error) {
	contract, err := NewContract(token)
	if err != nil {
		return nil, err
	}
	return &Verifier{reader: reader, token: contract, confirmations: confirmations}, nil
}

// VerifyTransfer 校验交易成功、确认数足够，且包含向 to 转账不少于 minAmount 的 Transfer 事件
func (v *Verifier) VerifyTransfer(ctx context.Context, txHash common.Hash, to common.Address, minAmount int64) (Transfer, error) {
	receipt, err := v.reader.TransactionReceipt(ctx, txHash)
	if err != nil {
		return Transfer{}, fmt.Errorf("get receipt %s: %w", txHash.Hex(), err)
	}
	if receipt == nil {
		return Transfer{}, fmt.Errorf("%w: receipt %s not found", model.ErrPaymentNotVerified, txHash.Hex())
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return Transfer{}, fmt.Errorf("%w: transaction %s failed", model.ErrPaymentNotVerified, txHash.Hex())
	}

	if v.confirmations > 0 && receipt.BlockNumber != nil {
		latest, err := v.reader.BlockNumber(ctx)
		if err != nil {
			return Transfer{}, fmt.Errorf("get block number: %w", err)
		}
		if got := Confirmations(latest, receipt.BlockNumber.Uint64()); got < v.confirmations {
			return Transfer{}, fmt.Errorf("%w: %d of %d confirmations", model.ErrPaymentNotVerified, got, v.confirmations)
		}
	}

	want := big.NewInt(minAmount)
	for _, log := range receipt.Logs {
		if log == nil {
			continue
		}
		transfer, ok, err := v.token.ParseTransfer(*log)
		if err != nil {
			return Transfer{}, err
		}
		if ok && transfer.To == to && transfer.Value.Cmp(want) >= 0 {
			return transfer, nil
		}
	}
	return Transfer{}, fmt.Errorf("%w: no transfer of %d to %s in %s", model.ErrPaymentNotVerified, minAmount, to.Hex(), txHash.Hex())
}
