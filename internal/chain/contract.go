package chain

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ERC-20 Transfer 事件 ABI
const erc20ABI = `[
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "name": "from", "type": "address"},
			{"indexed": true, "name": "to", "type": "address"},
			{"indexed": false, "name": "value", "type": "uint256"}
		],
		"name": "Transfer",
		"type": "event"
	}
]`

// Transfer 解析后的代币转账
type Transfer struct {
	Token       common.Address
	From        common.Address
	To          common.Address
	Value       *big.Int
	TxHash      common.Hash
	BlockNumber uint64
	LogIndex    uint
}

// Contract 代币合约工具类
type Contract struct {
	address common.Address // 合约地址，零地址表示接受任意代币
	abi     abi.ABI
}

// NewContract 创建代币合约实例
func NewContract(address common.Address) (*Contract, error) {
	parsedABI, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ABI: %w", err)
	}
	return &Contract{address: address, abi: parsedABI}, nil
}

// GetAddress 获取合约地址
func (c *Contract) GetAddress() common.Address {
	return c.address
}

// TransferTopic Transfer 事件签名
func (c *Contract) TransferTopic() common.Hash {
	return c.abi.Events["Transfer"].ID
}

// ParseTransfer 解析 Transfer 日志，不是 Transfer 事件时返回 false
func (c *Contract) ParseTransfer(log types.Log) (Transfer, bool, error) {
	if len(log.Topics) == 0 || log.Topics[0] != c.TransferTopic() {
		return Transfer{}, false, nil
	}
	if c.address != (common.Address{}) && log.Address != c.address {
		return Transfer{}, false, nil
	}
	if len(log.Topics) < 3 {
		return Transfer{}, false, fmt.Errorf("invalid Transfer event: insufficient topics")
	}

	values, err := c.abi.Unpack("Transfer", log.Data)
	if err != nil {
		return Transfer{}, false, fmt.Errorf("failed to unpack Transfer data: %w", err)
	}
	value, ok := values[0].(*big.Int)
	if !ok {
		return Transfer{}, false, fmt.Errorf("unexpected Transfer value type %T", values[0])
	}

	return Transfer{
		Token:       log.Address,
		From:        common.BytesToAddress(log.Topics[1].Bytes()),
		To:          common.BytesToAddress(log.Topics[2].Bytes()),
		Value:       value,
		TxHash:      log.TxHash,
		BlockNumber: log.BlockNumber,
		LogIndex:    log.Index,
	}, true, nil
}
