package chain

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/UPool-Fun/UPool-sub000/internal/model"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	token    = common.HexToAddress("0x00000000000000000000000000000000000070c0")
	payer    = common.HexToAddress("0x0000000000000000000000000000000000000a11")
	poolAddr = common.HexToAddress("0x0000000000000000000000000000000000000f00")
	txHash   = common.HexToHash("0x01")
)

type fakeReader struct {
	latest   uint64
	receipts map[common.Hash]*types.Receipt
	err      error
}

func (f *fakeReader) BlockNumber(context.Context) (uint64, error) {
	return f.latest, nil
}

func (f *fakeReader) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.receipts[hash], nil
}

func transferLog(contract, from, to common.Address, value int64) *types.Log {
	return &types.Log{
		Address: contract,
		Topics: []common.Hash{
			crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)")),
			common.BytesToHash(from.Bytes()),
			common.BytesToHash(to.Bytes()),
		},
		Data:        common.LeftPadBytes(big.NewInt(value).Bytes(), 32),
		TxHash:      txHash,
		BlockNumber: 100,
	}
}

func receipt(status uint64, logs ...*types.Log) *types.Receipt {
	return &types.Receipt{Status: status, BlockNumber: big.NewInt(100), Logs: logs}
}

func TestVerifyTransfer(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		receipt *types.Receipt
		latest  uint64
		amount  int64
		wantErr error
	}{
		{name: "matching transfer", receipt: receipt(types.ReceiptStatusSuccessful, transferLog(token, payer, poolAddr, 500)), latest: 102, amount: 500},
		{name: "overpayment accepted", receipt: receipt(types.ReceiptStatusSuccessful, transferLog(token, payer, poolAddr, 900)), latest: 102, amount: 500},
		{name: "missing receipt", receipt: nil, latest: 102, amount: 500, wantErr: model.ErrPaymentNotVerified},
		{name: "reverted transaction", receipt: receipt(types.ReceiptStatusFailed, transferLog(token, payer, poolAddr, 500)), latest: 102, amount: 500, wantErr: model.ErrPaymentNotVerified},
		{name: "not enough confirmations", receipt: receipt(types.ReceiptStatusSuccessful, transferLog(token, payer, poolAddr, 500)), latest: 101, amount: 500, wantErr: model.ErrPaymentNotVerified},
		{name: "underpayment", receipt: receipt(types.ReceiptStatusSuccessful, transferLog(token, payer, poolAddr, 499)), latest: 102, amount: 500, wantErr: model.ErrPaymentNotVerified},
		{name: "wrong recipient", receipt: receipt(types.ReceiptStatusSuccessful, transferLog(token, payer, payer, 500)), latest: 102, amount: 500, wantErr: model.ErrPaymentNotVerified},
		{name: "other token", receipt: receipt(types.ReceiptStatusSuccessful, transferLog(payer, payer, poolAddr, 500)), latest: 102, amount: 500, wantErr: model.ErrPaymentNotVerified},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := &fakeReader{latest: tt.latest, receipts: map[common.Hash]*types.Receipt{}}
			if tt.receipt != nil {
				reader.receipts[txHash] = tt.receipt
			}
			v, err := NewVerifier(reader, token, 3)
			require.NoError(t, err)

			transfer, err := v.VerifyTransfer(ctx, txHash, poolAddr, tt.amount)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, payer, transfer.From)
			assert.Equal(t, poolAddr, transfer.To)
			assert.Equal(t, token, transfer.Token)
		})
	}
}

func TestVerifyTransferReaderError(t *testing.T) {
	v, err := NewVerifier(&fakeReader{err: errors.New("rpc down")}, token, 1)
	require.NoError(t, err)

	_, err = v.VerifyTransfer(context.Background(), txHash, poolAddr, 1)
	require.Error(t, err)
	assert.NotErrorIs(t, err, model.ErrPaymentNotVerified)
}

func TestParseTransferSkipsOtherEvents(t *testing.T) {
	c, err := NewContract(common.Address{})
	require.NoError(t, err)

	_, ok, err := c.ParseTransfer(types.Log{Topics: []common.Hash{common.HexToHash("0xdead")}})
	require.NoError(t, err)
	assert.False(t, ok)

	transfer, ok, err := c.ParseTransfer(*transferLog(payer, payer, poolAddr, 7))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(7), transfer.Value.Int64())
}

func TestConfirmations(t *testing.T) {
	assert.Equal(t, uint64(0), Confirmations(99, 100))
	assert.Equal(t, uint64(1), Confirmations(100, 100))
	assert.Equal(t, uint64(3), Confirmations(102, 100))
}
