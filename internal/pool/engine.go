// Package pool 实现单个资金池的状态机：成员账本、贡献账本、里程碑生命周期、加权投票和放款计算。
//
// Engine 的每个写操作都在自身的写锁内完成：先校验，再把事件写入日志，最后应用到内存状态。
// 校验失败或日志写入失败时状态不变。读操作在读锁下返回快照副本。
package pool

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/UPool-Fun/UPool-sub000/internal/calc"
	"github.com/UPool-Fun/UPool-sub000/internal/journal"
	"github.com/UPool-Fun/UPool-sub000/internal/model"
	"github.com/ethereum/go-ethereum/common"
)

// Clock 时间来源
type Clock func() time.Time

// Params 创建资金池所需参数
type Params struct {
	Ref        common.Address
	Creator    common.Address
	Operator   common.Address
	Config     model.PoolConfig
	Milestones []model.MilestoneInput
	CreatedAt  time.Time
}

// Option 引擎选项
type Option func(*Engine)

// WithClock 设置时间来源
func WithClock(clock Clock) Option {
	return func(e *Engine) {
		if clock != nil {
			e.now = clock
		}
	}
}

// Engine 资金池状态机
type Engine struct {
	mu sync.RWMutex

	ref       common.Address
	cfg       model.PoolConfig
	creator   common.Address
	operator  common.Address
	submitter common.Address
	status    model.PoolStatus

	milestones    []model.Milestone
	members       map[common.Address]*model.Member
	memberOrder   []common.Address
	contributions []model.Contribution
	txRefs        map[string]struct{}
	voters        map[int]map[common.Address]struct{}
	releases      []model.Release
	totalRaised   int64

	createdAt time.Time
	updatedAt time.Time

	stream  string
	seq     int64
	journal journal.Journal
	now     Clock
}

// New 创建资金池引擎，初始状态为 Draft，创建者自动成为贡献为 0 的成员
func New(p Params, j journal.Journal, opts ...Option) (*Engine, error) {
	if model.IsZeroAddress(p.Ref) {
		return nil, model.ErrInvalidPoolAddress
	}
	if model.IsZeroAddress(p.Creator) {
		return nil, fmt.Errorf("%w: creator", model.ErrInvalidAddress)
	}
	if err := ValidateConfig(p.Config); err != nil {
		return nil, err
	}
	if err := ValidateMilestones(p.Milestones); err != nil {
		return nil, err
	}
	if j == nil {
		j = journal.Nop{}
	}

	e := &Engine{
		ref:      p.Ref,
		cfg:      p.Config,
		creator:  p.Creator,
		operator: p.Operator,
		status:   model.PoolStatusDraft,
		members:  make(map[common.Address]*model.Member),
		txRefs:   make(map[string]struct{}),
		voters:   make(map[int]map[common.Address]struct{}),
		stream:   journal.PoolStream(p.Ref),
		journal:  j,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}

	e.createdAt = p.CreatedAt
	if e.createdAt.IsZero() {
		e.createdAt = e.now()
	}
	e.updatedAt = e.createdAt

	for _, in := range p.Milestones {
		e.appendMilestone(in)
	}

	// 创建者是隐式成员
	e.members[p.Creator] = &model.Member{
		Address:  p.Creator,
		JoinedAt: e.createdAt,
		Active:   true,
	}
	e.memberOrder = append(e.memberOrder, p.Creator)

	return e, nil
}

func (e *Engine) appendMilestone(in model.MilestoneInput) {
	e.milestones = append(e.milestones, model.Milestone{
		ID:          len(e.milestones),
		Title:       in.Title,
		Description: in.Description,
		Percentage:  in.Percentage,
		Amount:      calc.BasisPointShare(e.cfg.FundingGoal, in.Percentage),
		Status:      model.MilestoneStatusLocked,
	})
}

// Ref 资金池地址
func (e *Engine) Ref() common.Address {
	return e.ref
}

// Creator 创建者地址
func (e *Engine) Creator() common.Address {
	return e.creator
}

// Config 资金池配置
func (e *Engine) Config() model.PoolConfig {
	return e.cfg
}

// Status 当前状态
func (e *Engine) Status() model.PoolStatus {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.status
}

// Seq 已应用的事件序号
func (e *Engine) Seq() int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.seq
}

// PoolData 资金池快照
func (e *Engine) PoolData() model.PoolData {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return model.PoolData{
		Ref:         e.ref,
		Config:      e.cfg,
		Creator:     e.creator,
		Operator:    e.operator,
		Submitter:   e.submitter,
		Status:      e.status,
		TotalRaised: e.totalRaised,
		CreatedAt:   e.createdAt,
		UpdatedAt:   e.updatedAt,
	}
}

// Stats 资金池统计信息
func (e *Engine) Stats() model.PoolStats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	stats := model.PoolStats{
		Ref:               e.ref,
		Status:            e.status,
		TotalRaised:       e.totalRaised,
		FundingGoal:       e.cfg.FundingGoal,
		ProgressBp:        calc.FundingProgressBp(e.totalRaised, e.cfg.FundingGoal),
		MemberCount:       len(e.members),
		ContributionCount: len(e.contributions),
		MilestoneCount:    len(e.milestones),
		TotalVotingWeight: e.totalActiveWeight(),
	}
	for _, m := range e.milestones {
		switch m.Status {
		case model.MilestoneStatusApproved:
			stats.ApprovedMilestones++
		case model.MilestoneStatusPendingVote:
			stats.PendingMilestones++
		}
	}
	for _, r := range e.releases {
		stats.ReleasedTotal += r.GrossAmount
		stats.PlatformFeesTotal += r.PlatformFee
	}
	if next := e.nextUnresolved(); next >= 0 {
		stats.CurrentMilestoneID = next
		stats.HasCurrentMilestone = true
	}
	return stats
}

// Milestones 所有里程碑
func (e *Engine) Milestones() []model.Milestone {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]model.Milestone, len(e.milestones))
	copy(out, e.milestones)
	return out
}

// Milestone 获取单个里程碑
func (e *Engine) Milestone(id int) (model.Milestone, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if id < 0 || id >= len(e.milestones) {
		return model.Milestone{}, model.ErrMilestoneNotFound
	}
	return e.milestones[id], nil
}

// NextMilestone 下一个可以提交证明或正在投票的里程碑
func (e *Engine) NextMilestone() (int, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	next := e.nextUnresolved()
	return next, next >= 0
}

// Members 所有成员，按加入顺序
func (e *Engine) Members() []model.Member {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]model.Member, 0, len(e.memberOrder))
	for _, addr := range e.memberOrder {
		out = append(out, *e.members[addr])
	}
	return out
}

// Member 获取单个成员
func (e *Engine) Member(addr common.Address) (model.Member, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	m, ok := e.members[addr]
	if !ok {
		return model.Member{}, false
	}
	return *m, true
}

// Contributions 所有贡献记录，按记录顺序
func (e *Engine) Contributions() []model.Contribution {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]model.Contribution, len(e.contributions))
	copy(out, e.contributions)
	return out
}

// Releases 所有放款记录
func (e *Engine) Releases() []model.Release {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]model.Release, len(e.releases))
	copy(out, e.releases)
	return out
}

// HasVoted 成员在当前投票轮次是否已投票
func (e *Engine) HasVoted(id int, voter common.Address) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	_, ok := e.voters[id][voter]
	return ok
}

// Voters 当前投票轮次已投票的成员
func (e *Engine) Voters(id int) []common.Address {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]common.Address, 0, len(e.voters[id]))
	for addr := range e.voters[id] {
		out = append(out, addr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hex() < out[j].Hex() })
	return out
}

// nextUnresolved 第一个未通过的里程碑下标，全部通过时返回 -1
func (e *Engine) nextUnresolved() int {
	for i, m := range e.milestones {
		if m.Status != model.MilestoneStatusApproved {
			return i
		}
	}
	return -1
}

func (e *Engine) milestoneSum() int64 {
	var sum int64
	for _, m := range e.milestones {
		sum += m.Percentage
	}
	return sum
}

func (e *Engine) totalActiveWeight() int64 {
	var total int64
	for _, m := range e.members {
		if m.Active {
			total += m.VotingWeight
		}
	}
	return total
}

// remainingWeight 当前轮次尚未投票的有效成员权重之和
func (e *Engine) remainingWeight(id int) int64 {
	voted := e.voters[id]
	var remaining int64
	for addr, m := range e.members {
		if !m.Active {
			continue
		}
		if _, ok := voted[addr]; ok {
			continue
		}
		remaining += m.VotingWeight
	}
	return remaining
}

func (e *Engine) releasedGross() int64 {
	var total int64
	for _, r := range e.releases {
		total += r.GrossAmount
	}
	return total
}
