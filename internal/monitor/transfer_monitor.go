package monitor

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/UPool-Fun/UPool-sub000/internal/chain"
	"github.com/UPool-Fun/UPool-sub000/internal/logger"
	"github.com/UPool-Fun/UPool-sub000/internal/model"
	"github.com/UPool-Fun/UPool-sub000/internal/registry"
	"github.com/UPool-Fun/UPool-sub000/internal/relay"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Origin 扫描得到的支付确认来源标识
const Origin = "monitor"

const (
	defaultBatchBlocks = 500
	defaultInterval    = 30 * time.Second
	maxBackoff         = 5 * time.Minute
)

// LogReader 扫描所需的链上读取接口，*ethclient.Client 满足该接口
type LogReader interface {
	BlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
}

// Processor 接收支付确认的中继
type Processor interface {
	Process(ctx context.Context, origin string, batch []relay.PaymentConfirmation) []relay.Result
}

// PoolSource 返回当前接受贡献的资金池地址
type PoolSource func() []common.Address

// Options 扫描参数
type Options struct {
	StartBlock    uint64 // 为 0 时从首次扫描时的安全高度开始
	Confirmations uint64
	BatchBlocks   uint64
	Interval      time.Duration
}

// TransferMonitor 按区块区间扫描打给资金池的代币转账，并作为链上贡献提交给中继
type TransferMonitor struct {
	reader    LogReader
	contract  *chain.Contract
	pools     PoolSource
	processor Processor
	opts      Options

	mu         sync.RWMutex
	nextBlock  uint64
	started    bool
	retryCount int
	backoff    time.Duration
	recorded   int
}

// NewTransferMonitor 创建转账扫描器
func NewTransferMonitor(reader LogReader, token common.Address, pools PoolSource, processor Processor, opts Options) (*TransferMonitor, error) {
	if reader == nil || pools == nil || processor == nil {
		return nil, errors.New("transfer monitor requires a reader, a pool source and a processor")
	}
	if model.IsZeroAddress(token) {
		return nil, fmt.Errorf("%w: token contract", model.ErrInvalidAddress)
	}
	contract, err := chain.NewContract(token)
	if err != nil {
		return nil, err
	}
	if opts.BatchBlocks == 0 {
		opts.BatchBlocks = defaultBatchBlocks
	}
	if opts.Interval <= 0 {
		opts.Interval = defaultInterval
	}
	if opts.Confirmations == 0 {
		opts.Confirmations = 1
	}

	return &TransferMonitor{
		reader:    reader,
		contract:  contract,
		pools:     pools,
		processor: processor,
		opts:      opts,
		nextBlock: opts.StartBlock,
		started:   opts.StartBlock > 0,
	}, nil
}

// ActivePools 注册表中已登记且处于进行中状态的资金池
func ActivePools(reg *registry.Registry) PoolSource {
	return func() []common.Address {
		var out []common.Address
		for _, e := range reg.Pools() {
			if e.Status() == model.PoolStatusActive && reg.IsRegistered(e.Ref()) {
				out = append(out, e.Ref())
			}
		}
		return out
	}
}

// Run 按间隔扫描直到 ctx 取消，出错时退避
func (m *TransferMonitor) Run(ctx context.Context) {
	logger.Info("Starting transfer monitor for token %s", m.contract.GetAddress().Hex())
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Transfer monitor stopped")
			return
		case <-timer.C:
		}

		wait := m.opts.Interval
		if _, err := m.ScanOnce(ctx); err != nil {
			if ctx.Err() != nil {
				continue
			}
			wait = m.handleError(err)
		} else {
			m.resetBackoff()
		}
		timer.Reset(wait)
	}
}

// ScanOnce 扫描到当前安全高度，返回记录成功的贡献数
func (m *TransferMonitor) ScanOnce(ctx context.Context) (int, error) {
	latest, err := m.reader.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get block number: %w", err)
	}
	if latest+1 < m.opts.Confirmations {
		return 0, nil
	}
	safeHead := latest + 1 - m.opts.Confirmations

	m.mu.Lock()
	if !m.started {
		m.nextBlock = safeHead
		m.started = true
		logger.Info("Transfer monitor starting from block %d", safeHead)
	}
	from := m.nextBlock
	m.mu.Unlock()

	if from > safeHead {
		return 0, nil
	}

	pools := m.pools()
	if len(pools) == 0 {
		m.advance(safeHead + 1)
		return 0, nil
	}

	recorded := 0
	for batchFrom := from; batchFrom <= safeHead; batchFrom += m.opts.BatchBlocks {
		batchTo := batchFrom + m.opts.BatchBlocks - 1
		if batchTo > safeHead {
			batchTo = safeHead
		}

		n, err := m.scanRange(ctx, pools, batchFrom, batchTo)
		recorded += n
		if err != nil {
			return recorded, err
		}
		m.advance(batchTo + 1)
	}
	return recorded, nil
}

func (m *TransferMonitor) scanRange(ctx context.Context, pools []common.Address, from, to uint64) (int, error) {
	recipients := make([]common.Hash, len(pools))
	for i, p := range pools {
		recipients[i] = common.BytesToHash(p.Bytes())
	}

	logs, err := m.reader.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: []common.Address{m.contract.GetAddress()},
		Topics:    [][]common.Hash{{m.contract.TransferTopic()}, nil, recipients},
	})
	if err != nil {
		if isRateLimitError(err) {
			logger.Warn("Rate limited while scanning blocks %d-%d", from, to)
		}
		return 0, fmt.Errorf("error getting logs for blocks %d-%d: %w", from, to, err)
	}
	if len(logs) == 0 {
		logger.Debug("No pool transfers in blocks %d-%d", from, to)
		return 0, nil
	}

	batch := make([]relay.PaymentConfirmation, 0, len(logs))
	for _, l := range logs {
		if l.Removed {
			continue
		}
		t, ok, err := m.contract.ParseTransfer(l)
		if err != nil {
			logger.Warn("Skipping malformed transfer log %s/%d: %v", l.TxHash.Hex(), l.Index, err)
			continue
		}
		if !ok || t.Value.Sign() <= 0 || !t.Value.IsInt64() {
			continue
		}
		batch = append(batch, relay.PaymentConfirmation{
			Pool:        t.To,
			Contributor: t.From,
			Amount:      t.Value.Int64(),
			TxRef:       t.TxHash.Hex(),
			Source:      relay.SourceOnchain,
		})
	}
	if len(batch) == 0 {
		return 0, nil
	}

	recorded := 0
	for _, res := range m.processor.Process(ctx, Origin, batch) {
		if res.Recorded {
			recorded++
			continue
		}
		// 重复扫描同一区间时已记录的交易会被拒绝
		logger.Debug("Transfer %s to pool %s not recorded: %s", res.TxRef, res.Pool.Hex(), res.Error)
	}

	m.mu.Lock()
	m.recorded += recorded
	m.mu.Unlock()
	logger.Info("Blocks %d-%d: %d pool transfers, %d recorded", from, to, len(batch), recorded)
	return recorded, nil
}

func (m *TransferMonitor) advance(next uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if next > m.nextBlock {
		m.nextBlock = next
	}
}

// handleError 记录错误并返回下次扫描前的等待时间
func (m *TransferMonitor) handleError(err error) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.retryCount++
	if m.retryCount > 5 {
		m.backoff = maxBackoff
	} else {
		m.backoff = time.Duration(m.retryCount) * 10 * time.Second
	}
	logger.Error("Transfer monitor encountered error (retry %d): %v", m.retryCount, err)
	return m.backoff
}

func (m *TransferMonitor) resetBackoff() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retryCount = 0
	m.backoff = 0
}

// NextBlock 下一个待扫描的区块
func (m *TransferMonitor) NextBlock() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.nextBlock
}

// GetStatus 获取扫描状态
func (m *TransferMonitor) GetStatus() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return map[string]interface{}{
		"token":         m.contract.GetAddress().Hex(),
		"next_block":    m.nextBlock,
		"started":       m.started,
		"confirmations": m.opts.Confirmations,
		"recorded":      m.recorded,
		"retry_count":   m.retryCount,
	}
}

func isRateLimitError(err error) bool {
	return strings.Contains(err.Error(), "Too Many Requests") || strings.Contains(err.Error(), "429")
}
