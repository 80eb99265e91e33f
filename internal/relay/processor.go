package relay

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/UPool-Fun/UPool-sub000/internal/chain"
	"github.com/UPool-Fun/UPool-sub000/internal/logger"
	"github.com/UPool-Fun/UPool-sub000/internal/model"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// 支付来源
const (
	SourceCard    = "card"
	SourceManual  = "manual"
	SourceOnchain = "onchain"
)

// Processor 按来源规范化并校验支付确认
type Processor interface {
	Source() string
	Prepare(ctx context.Context, c PaymentConfirmation) (PaymentConfirmation, error)
}

// ProcessorManager 支付来源处理器管理器
type ProcessorManager struct {
	mu         sync.RWMutex
	processors map[string]Processor
}

// NewProcessorManager 创建处理器管理器；verifier 为 nil 时链上支付不可用
func NewProcessorManager(verifier TransferVerifier) *ProcessorManager {
	manager := &ProcessorManager{processors: make(map[string]Processor)}
	manager.RegisterProcessor(CardProcessor{})
	manager.RegisterProcessor(ManualProcessor{})
	if verifier != nil {
		manager.RegisterProcessor(&OnchainProcessor{verifier: verifier})
	}

	logger.Info("ProcessorManager initialized with %d processors", len(manager.processors))
	return manager
}

// RegisterProcessor 注册处理器
func (pm *ProcessorManager) RegisterProcessor(p Processor) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.processors[p.Source()] = p
}

// GetProcessor 获取指定来源的处理器
func (pm *ProcessorManager) GetProcessor(source string) (Processor, bool) {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	p, ok := pm.processors[source]
	return p, ok
}

// Prepare 选择处理器处理支付确认
func (pm *ProcessorManager) Prepare(ctx context.Context, c PaymentConfirmation) (PaymentConfirmation, error) {
	source := strings.ToLower(strings.TrimSpace(c.Source))
	p, ok := pm.GetProcessor(source)
	if !ok {
		return c, fmt.Errorf("%w: %q", model.ErrUnsupportedSource, c.Source)
	}
	c.Source = source
	c.TxRef = strings.TrimSpace(c.TxRef)
	c.IdentityTag = strings.TrimSpace(c.IdentityTag)
	return p.Prepare(ctx, c)
}

// CardProcessor 支付服务商结账
type CardProcessor struct{}

func (CardProcessor) Source() string { return SourceCard }

// Prepare 要求服务商支付引用
func (CardProcessor) Prepare(_ context.Context, c PaymentConfirmation) (PaymentConfirmation, error) {
	if c.TxRef == "" {
		return c, fmt.Errorf("%w: card payment requires a provider reference", model.ErrInvalidConfig)
	}
	return c, nil
}

// ManualProcessor 运营方手工录入
type ManualProcessor struct{}

func (ManualProcessor) Source() string { return SourceManual }

func (ManualProcessor) Prepare(_ context.Context, c PaymentConfirmation) (PaymentConfirmation, error) {
	if c.TxRef == "" {
		return c, fmt.Errorf("%w: manual entry requires a reference", model.ErrInvalidConfig)
	}
	return c, nil
}

// TransferVerifier 链上转账校验
type TransferVerifier interface {
	VerifyTransfer(ctx context.Context, txHash common.Hash, to common.Address, minAmount int64) (chain.Transfer, error)
}

// OnchainProcessor 链上代币转账
type OnchainProcessor struct {
	verifier TransferVerifier
}

func (*OnchainProcessor) Source() string { return SourceOnchain }

// Prepare 校验交易哈希，确认转账打给资金池且付款方就是贡献者
func (p *OnchainProcessor) Prepare(ctx context.Context, c PaymentConfirmation) (PaymentConfirmation, error) {
	raw, err := hexutil.Decode(c.TxRef)
	if err != nil || len(raw) != common.HashLength {
		return c, fmt.Errorf("%w: %q is not a transaction hash", model.ErrInvalidConfig, c.TxRef)
	}
	hash := common.BytesToHash(raw)
	transfer, err := p.verifier.VerifyTransfer(ctx, hash, c.Pool, c.Amount)
	if err != nil {
		return c, err
	}
	// 投票权重归属付款地址
	if transfer.From != c.Contributor {
		return c, fmt.Errorf("%w: transfer sent by %s, claimed contributor %s",
			model.ErrPaymentNotVerified, transfer.From.Hex(), c.Contributor.Hex())
	}
	// 统一为小写，避免同一交易大小写不同被重复记录
	c.TxRef = hash.Hex()
	return c, nil
}
