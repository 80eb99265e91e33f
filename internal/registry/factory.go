package registry

import (
	"context"
	"encoding/binary"
	"fmt"
	"regexp"

	"github.com/UPool-Fun/UPool-sub000/internal/model"
	"github.com/UPool-Fun/UPool-sub000/internal/pool"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var vanityPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,63}$`)

// CreatePoolInput 创建资金池请求
type CreatePoolInput struct {
	Config       model.PoolConfig
	Creator      common.Address
	Milestones   []model.MilestoneInput
	TemplateName string
	FeePaid      int64
}

// CreatePoolResult 创建结果
type CreatePoolResult struct {
	Pool   common.Address   `json:"pool"`
	TxRef  common.Hash      `json:"txRef"`
	Config model.PoolConfig `json:"config"`
}

// CreatePool 校验配置、占用 vanity 名称、实例化资金池引擎并登记
//
// 所有校验在写入事件前完成，失败时注册表和名称索引都不变。
func (r *Registry) CreatePool(ctx context.Context, in CreatePoolInput) (CreatePoolResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cfg := in.Config
	if in.TemplateName != "" {
		tpl, ok := r.templates[in.TemplateName]
		if !ok {
			return CreatePoolResult{}, fmt.Errorf("%w: %s", model.ErrTemplateNotFound, in.TemplateName)
		}
		if !tpl.Active {
			return CreatePoolResult{}, fmt.Errorf("%w: %s", model.ErrTemplateInactive, in.TemplateName)
		}
		cfg = MergeTemplate(cfg, *tpl)
	}

	if in.FeePaid < r.creationFee {
		return CreatePoolResult{}, fmt.Errorf("%w: paid %d, required %d", model.ErrInsufficientCreationFee, in.FeePaid, r.creationFee)
	}
	if !vanityPattern.MatchString(cfg.VanityURL) {
		return CreatePoolResult{}, fmt.Errorf("%w: %q", model.ErrInvalidVanityURL, cfg.VanityURL)
	}
	if _, taken := r.vanity[cfg.VanityURL]; taken {
		return CreatePoolResult{}, fmt.Errorf("%w: %s", model.ErrVanityURLTaken, cfg.VanityURL)
	}
	if err := pool.ValidateMilestones(in.Milestones); err != nil {
		return CreatePoolResult{}, err
	}
	if err := pool.ValidateConfig(cfg); err != nil {
		return CreatePoolResult{}, err
	}

	ref, nonce := r.nextPoolAddress()
	if err := r.checkRegister(ref, in.Creator, r.creationFee, model.ErrInsufficientCreationFee); err != nil {
		return CreatePoolResult{}, err
	}

	p := poolCreated{
		Pool:       ref,
		Creator:    in.Creator,
		Operator:   r.operator,
		Config:     cfg,
		Milestones: in.Milestones,
		Template:   in.TemplateName,
		Nonce:      nonce,
		TxRef:      creationTxRef(ref, in.Creator, nonce),
		Fee:        r.creationFee,
	}
	if err := r.commit(ctx, EventPoolCreated, p); err != nil {
		return CreatePoolResult{}, err
	}
	return CreatePoolResult{Pool: ref, TxRef: p.TxRef, Config: cfg}, nil
}

// nextPoolAddress 从当前 nonce 开始推导资金池地址，跳过已被直接登记或已占用的地址
func (r *Registry) nextPoolAddress() (common.Address, uint64) {
	nonce := r.nonce
	for {
		ref := crypto.CreateAddress(r.factory, nonce)
		_, registered := r.registered[ref]
		_, exists := r.engines[ref]
		if !registered && !exists {
			return ref, nonce
		}
		nonce++
	}
}

// creationTxRef 创建交易引用：keccak256(pool || creator || nonce)
func creationTxRef(ref, creator common.Address, nonce uint64) common.Hash {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], nonce)
	return crypto.Keccak256Hash(ref.Bytes(), creator.Bytes(), n[:])
}

// MergeTemplate 把模板叠加到调用方配置上
//
// 模板优先：RiskStrategy（模板非空时）、ApprovalMethod 与 ApprovalThreshold（模板设置了审批方式时一并覆盖）。
// 其他字段始终以调用方为准。
func MergeTemplate(cfg model.PoolConfig, tpl model.Template) model.PoolConfig {
	if tpl.RiskStrategy != "" {
		cfg.RiskStrategy = tpl.RiskStrategy
	}
	if tpl.ApprovalMethod != "" {
		cfg.ApprovalMethod = tpl.ApprovalMethod
		cfg.ApprovalThreshold = tpl.ApprovalThreshold
	}
	return cfg
}

// GetPoolByVanityURL 按 vanity 名称查找资金池
func (r *Registry) GetPoolByVanityURL(slug string) (common.Address, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ref, ok := r.vanity[slug]
	if !ok {
		return common.Address{}, fmt.Errorf("%w: vanity %s", model.ErrPoolNotFound, slug)
	}
	return ref, nil
}

// IsVanityURLAvailable vanity 名称是否可用，区分大小写
func (r *Registry) IsVanityURLAvailable(slug string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !vanityPattern.MatchString(slug) {
		return false
	}
	_, taken := r.vanity[slug]
	return !taken
}

// Pool 获取工厂创建的资金池引擎；从目录移除的资金池仍可访问
func (r *Registry) Pool(ref common.Address) (*pool.Engine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.engines[ref]
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrPoolNotFound, ref.Hex())
	}
	return e, nil
}

// Pools 工厂创建的所有资金池引擎，按创建顺序
func (r *Registry) Pools() []*pool.Engine {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*pool.Engine, 0, len(r.engineOrder))
	for _, ref := range r.engineOrder {
		out = append(out, r.engines[ref])
	}
	return out
}

// Nonce 下一个资金池使用的 nonce
func (r *Registry) Nonce() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.nonce
}
