// Package registry 维护全局资金池目录，并负责按配置和模板创建新的资金池。
//
// 注册表与工厂共用一把全局锁：创建费余额、每个创建者的池数量、vanity 名称索引
// 只在这把锁内修改。每次成功的写操作先写入全局事件流 (journal.GlobalStream)，再应用到内存。
package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/UPool-Fun/UPool-sub000/internal/journal"
	"github.com/UPool-Fun/UPool-sub000/internal/logger"
	"github.com/UPool-Fun/UPool-sub000/internal/model"
	"github.com/UPool-Fun/UPool-sub000/internal/pool"
	"github.com/ethereum/go-ethereum/common"
)

// 默认配置
const (
	DefaultCreationFee        int64 = 0
	DefaultMaxPoolsPerCreator       = 10
)

// Config 注册表初始配置
type Config struct {
	Owner              common.Address
	Treasury           common.Address
	FactoryAddress     common.Address
	Operator           common.Address // 新建资金池的运营方，为空时使用 Owner
	CreationFee        int64
	MaxPoolsPerCreator int
}

// Option 注册表选项
type Option func(*Registry)

// WithClock 设置时间来源
func WithClock(clock pool.Clock) Option {
	return func(r *Registry) {
		if clock != nil {
			r.now = clock
		}
	}
}

// WithPoolJournal 设置资金池引擎使用的事件日志，默认与注册表共用
func WithPoolJournal(j journal.Journal) Option {
	return func(r *Registry) {
		if j != nil {
			r.poolJournal = j
		}
	}
}

// Registry 资金池注册表与工厂
type Registry struct {
	mu sync.RWMutex

	owner       common.Address
	treasury    common.Address
	factory     common.Address
	operator    common.Address
	creationFee int64
	maxPools    int
	paused      bool

	feeBalance         int64
	totalFeesCollected int64

	entries      []model.RegistryEntry
	registered   map[common.Address]struct{}
	creatorPools map[common.Address][]common.Address

	vanity        map[string]common.Address
	templates     map[string]*model.Template
	templateOrder []string
	engines       map[common.Address]*pool.Engine
	engineOrder   []common.Address
	nonce         uint64

	seq         int64
	lastAt      time.Time
	journal     journal.Journal
	poolJournal journal.Journal
	now         pool.Clock
}

// New 创建注册表
func New(cfg Config, j journal.Journal, opts ...Option) (*Registry, error) {
	if model.IsZeroAddress(cfg.Owner) {
		return nil, fmt.Errorf("%w: owner", model.ErrInvalidAddress)
	}
	if model.IsZeroAddress(cfg.Treasury) {
		return nil, model.ErrInvalidTreasury
	}
	if model.IsZeroAddress(cfg.FactoryAddress) {
		return nil, fmt.Errorf("%w: factory", model.ErrInvalidAddress)
	}
	if cfg.CreationFee < 0 {
		return nil, fmt.Errorf("%w: creation fee %d", model.ErrInvalidAmount, cfg.CreationFee)
	}
	if cfg.MaxPoolsPerCreator == 0 {
		cfg.MaxPoolsPerCreator = DefaultMaxPoolsPerCreator
	}
	if cfg.MaxPoolsPerCreator < 0 {
		return nil, fmt.Errorf("%w: %d", model.ErrInvalidMaxPools, cfg.MaxPoolsPerCreator)
	}
	if model.IsZeroAddress(cfg.Operator) {
		cfg.Operator = cfg.Owner
	}
	if j == nil {
		j = journal.Nop{}
	}

	r := &Registry{
		owner:        cfg.Owner,
		treasury:     cfg.Treasury,
		factory:      cfg.FactoryAddress,
		operator:     cfg.Operator,
		creationFee:  cfg.CreationFee,
		maxPools:     cfg.MaxPoolsPerCreator,
		registered:   make(map[common.Address]struct{}),
		creatorPools: make(map[common.Address][]common.Address),
		vanity:       make(map[string]common.Address),
		templates:    make(map[string]*model.Template),
		engines:      make(map[common.Address]*pool.Engine),
		journal:      j,
		poolJournal:  j,
		now:          func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

func (r *Registry) onlyOwner(caller common.Address) error {
	if caller != r.owner {
		return fmt.Errorf("%w: %s", model.ErrUnauthorized, caller.Hex())
	}
	return nil
}

// Register 直接登记一个外部创建的资金池
//
// 检查顺序：暂停、地址、费用、重复、创建者上限。
func (r *Registry) Register(ctx context.Context, ref, creator common.Address, feePaid int64) (model.RegistryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkRegister(ref, creator, feePaid, model.ErrInsufficientFee); err != nil {
		return model.RegistryEntry{}, err
	}
	if err := r.commit(ctx, EventPoolRegistered, poolRegistered{Pool: ref, Creator: creator, Fee: feePaid}); err != nil {
		return model.RegistryEntry{}, err
	}
	return r.entries[len(r.entries)-1], nil
}

func (r *Registry) checkRegister(ref, creator common.Address, feePaid int64, feeErr error) error {
	if r.paused {
		return model.ErrPaused
	}
	if model.IsZeroAddress(ref) {
		return model.ErrInvalidPoolAddress
	}
	if model.IsZeroAddress(creator) {
		return fmt.Errorf("%w: creator", model.ErrInvalidAddress)
	}
	if feePaid < r.creationFee {
		return fmt.Errorf("%w: paid %d, required %d", feeErr, feePaid, r.creationFee)
	}
	if _, ok := r.registered[ref]; ok {
		return fmt.Errorf("%w: %s", model.ErrPoolAlreadyRegistered, ref.Hex())
	}
	if len(r.creatorPools[creator]) >= r.maxPools {
		return fmt.Errorf("%w: %s has %d pools", model.ErrMaxPoolsExceeded, creator.Hex(), len(r.creatorPools[creator]))
	}
	return nil
}

// Remove 从目录中移除资金池，仅 Owner 可调用
//
// 创建者的池数量随之减一；vanity 名称不会释放。
func (r *Registry) Remove(ctx context.Context, caller, ref common.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.onlyOwner(caller); err != nil {
		return err
	}
	if _, ok := r.registered[ref]; !ok {
		return fmt.Errorf("%w: %s", model.ErrPoolNotRegistered, ref.Hex())
	}
	return r.commit(ctx, EventPoolRemoved, poolRemoved{Pool: ref})
}

// UpdateCreationFee 修改创建费
func (r *Registry) UpdateCreationFee(ctx context.Context, caller common.Address, fee int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.onlyOwner(caller); err != nil {
		return err
	}
	if fee < 0 {
		return fmt.Errorf("%w: creation fee %d", model.ErrInvalidAmount, fee)
	}
	return r.commit(ctx, EventCreationFeeUpdated, creationFeeUpdated{Fee: fee})
}

// UpdateMaxPoolsPerCreator 修改每个创建者的资金池上限，已超出上限的创建者不受影响
func (r *Registry) UpdateMaxPoolsPerCreator(ctx context.Context, caller common.Address, max int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.onlyOwner(caller); err != nil {
		return err
	}
	if max <= 0 {
		return fmt.Errorf("%w: %d", model.ErrInvalidMaxPools, max)
	}
	return r.commit(ctx, EventMaxPoolsUpdated, maxPoolsUpdated{Max: max})
}

// UpdateTreasury 修改收费地址
func (r *Registry) UpdateTreasury(ctx context.Context, caller, treasury common.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.onlyOwner(caller); err != nil {
		return err
	}
	if model.IsZeroAddress(treasury) {
		return model.ErrInvalidTreasury
	}
	return r.commit(ctx, EventTreasuryUpdated, treasuryUpdated{Treasury: treasury})
}

// WithdrawFees 把累计的创建费全部转到收费地址
func (r *Registry) WithdrawFees(ctx context.Context, caller common.Address) (model.FeeWithdrawal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.onlyOwner(caller); err != nil {
		return model.FeeWithdrawal{}, err
	}
	if r.feeBalance == 0 {
		return model.FeeWithdrawal{}, model.ErrNoFeesToWithdraw
	}

	p := feesWithdrawn{Treasury: r.treasury, Amount: r.feeBalance}
	if err := r.commit(ctx, EventFeesWithdrawn, p); err != nil {
		return model.FeeWithdrawal{}, err
	}

	logger.Info("Registry fees withdrawn: %d to %s", p.Amount, p.Treasury.Hex())
	return model.FeeWithdrawal{Treasury: p.Treasury, Amount: p.Amount, WithdrawnAt: r.lastAt}, nil
}

// Pause 暂停注册，读操作不受影响
func (r *Registry) Pause(ctx context.Context, caller common.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.onlyOwner(caller); err != nil {
		return err
	}
	if r.paused {
		return model.ErrPaused
	}
	return r.commit(ctx, EventPaused, pauseChanged{By: caller})
}

// Unpause 恢复注册
func (r *Registry) Unpause(ctx context.Context, caller common.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.onlyOwner(caller); err != nil {
		return err
	}
	if !r.paused {
		return model.ErrNotPaused
	}
	return r.commit(ctx, EventUnpaused, pauseChanged{By: caller})
}

// TransferOwnership 转移所有权
func (r *Registry) TransferOwnership(ctx context.Context, caller, newOwner common.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.onlyOwner(caller); err != nil {
		return err
	}
	if model.IsZeroAddress(newOwner) {
		return fmt.Errorf("%w: new owner", model.ErrInvalidAddress)
	}
	return r.commit(ctx, EventOwnershipTransferred, ownershipTransferred{From: caller, To: newOwner})
}

// GetPoolsPaginated 分页查询资金池
//
// offset 超出总数时返回空列表；最后一页只返回剩余条目。
func (r *Registry) GetPoolsPaginated(offset, limit int) ([]model.RegistryEntry, int) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total := len(r.entries)
	if offset < 0 {
		offset = 0
	}
	if offset >= total || limit <= 0 {
		return []model.RegistryEntry{}, total
	}
	end := offset + limit
	if end > total || end < offset {
		end = total
	}
	out := make([]model.RegistryEntry, end-offset)
	copy(out, r.entries[offset:end])
	return out, total
}

// GetCreatorPools 创建者当前登记的资金池
func (r *Registry) GetCreatorPools(creator common.Address) []common.Address {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pools := r.creatorPools[creator]
	out := make([]common.Address, len(pools))
	copy(out, pools)
	return out
}

// IsRegistered 资金池是否已登记
func (r *Registry) IsRegistered(ref common.Address) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.registered[ref]
	return ok
}

// Entry 获取登记条目
func (r *Registry) Entry(ref common.Address) (model.RegistryEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.entries {
		if e.Pool == ref {
			return e, nil
		}
	}
	return model.RegistryEntry{}, fmt.Errorf("%w: %s", model.ErrPoolNotRegistered, ref.Hex())
}

// TotalPools 当前登记的资金池数量
func (r *Registry) TotalPools() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// FeeBalance 待提取的创建费
func (r *Registry) FeeBalance() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.feeBalance
}

// CreationFee 当前创建费
func (r *Registry) CreationFee() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.creationFee
}

// MaxPoolsPerCreator 每个创建者的资金池上限
func (r *Registry) MaxPoolsPerCreator() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.maxPools
}

// Treasury 收费地址
func (r *Registry) Treasury() common.Address {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.treasury
}

// Owner 所有者
func (r *Registry) Owner() common.Address {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.owner
}

// Paused 是否暂停
func (r *Registry) Paused() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.paused
}

// Seq 全局事件流已应用的序号
func (r *Registry) Seq() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.seq
}

// Stats 注册表统计
func (r *Registry) Stats() model.RegistryStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return model.RegistryStats{
		Owner:              r.owner,
		Treasury:           r.treasury,
		CreationFee:        r.creationFee,
		MaxPoolsPerCreator: r.maxPools,
		TotalPools:         len(r.entries),
		FeeBalance:         r.feeBalance,
		TotalFeesCollected: r.totalFeesCollected,
		Paused:             r.paused,
	}
}
