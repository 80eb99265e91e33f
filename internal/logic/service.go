package logic

import (
	"context"

	"github.com/UPool-Fun/UPool-sub000/internal/logger"
	"github.com/UPool-Fun/UPool-sub000/internal/metrics"
	"github.com/UPool-Fun/UPool-sub000/internal/model"
	"github.com/UPool-Fun/UPool-sub000/internal/pool"
	"github.com/UPool-Fun/UPool-sub000/internal/registry"
	"github.com/ethereum/go-ethereum/common"
)

// ContributionInput 记录贡献的参数
type ContributionInput struct {
	Contributor common.Address
	Amount      int64
	TxRef       string
	Source      string
	IdentityTag string
}

// Service 对外操作入口：转发到注册表和资金池引擎，并记录指标
type Service struct {
	reg         *registry.Registry
	metrics     *metrics.Collector
	withdrawals *FeeWithdrawalLogic
}

// NewService 创建服务；withdrawals 为 nil 时不持久化提取记录
func NewService(reg *registry.Registry, m *metrics.Collector, withdrawals *FeeWithdrawalLogic) *Service {
	if m == nil {
		m = metrics.GetCollector()
	}
	s := &Service{reg: reg, metrics: m, withdrawals: withdrawals}
	s.refreshRegistry()
	return s
}

// Registry 底层注册表，供只读查询
func (s *Service) Registry() *registry.Registry {
	return s.reg
}

// Pool 获取资金池引擎
func (s *Service) Pool(ref common.Address) (*pool.Engine, error) {
	return s.reg.Pool(ref)
}

func (s *Service) observe(operation string, err error) {
	s.metrics.RecordOperation(operation, err)
}

func (s *Service) refreshRegistry() {
	s.metrics.UpdateRegistry(s.reg.TotalPools(), s.reg.FeeBalance())
}

// CreatePool 通过工厂创建资金池
func (s *Service) CreatePool(ctx context.Context, in registry.CreatePoolInput) (registry.CreatePoolResult, error) {
	res, err := s.reg.CreatePool(ctx, in)
	s.observe("create_pool", err)
	if err != nil {
		return res, err
	}
	s.metrics.PoolsCreated.Inc()
	s.refreshRegistry()
	return res, nil
}

// RegisterPool 直接登记外部创建的资金池
func (s *Service) RegisterPool(ctx context.Context, ref, creator common.Address, feePaid int64) (model.RegistryEntry, error) {
	entry, err := s.reg.Register(ctx, ref, creator, feePaid)
	s.observe("register_pool", err)
	if err == nil {
		s.refreshRegistry()
	}
	return entry, err
}

// RemovePool 从注册表移除资金池
func (s *Service) RemovePool(ctx context.Context, caller, ref common.Address) error {
	err := s.reg.Remove(ctx, caller, ref)
	s.observe("remove_pool", err)
	if err == nil {
		s.refreshRegistry()
	}
	return err
}

// UpdateCreationFee 更新创建费
func (s *Service) UpdateCreationFee(ctx context.Context, caller common.Address, fee int64) error {
	err := s.reg.UpdateCreationFee(ctx, caller, fee)
	s.observe("update_creation_fee", err)
	return err
}

// UpdateMaxPoolsPerCreator 更新每个创建者的资金池上限
func (s *Service) UpdateMaxPoolsPerCreator(ctx context.Context, caller common.Address, max int) error {
	err := s.reg.UpdateMaxPoolsPerCreator(ctx, caller, max)
	s.observe("update_max_pools", err)
	return err
}

// UpdateTreasury 更新国库地址
func (s *Service) UpdateTreasury(ctx context.Context, caller, treasury common.Address) error {
	err := s.reg.UpdateTreasury(ctx, caller, treasury)
	s.observe("update_treasury", err)
	return err
}

// Pause 暂停注册表
func (s *Service) Pause(ctx context.Context, caller common.Address) error {
	err := s.reg.Pause(ctx, caller)
	s.observe("pause", err)
	return err
}

// Unpause 恢复注册表
func (s *Service) Unpause(ctx context.Context, caller common.Address) error {
	err := s.reg.Unpause(ctx, caller)
	s.observe("unpause", err)
	return err
}

// TransferOwnership 转移注册表所有权
func (s *Service) TransferOwnership(ctx context.Context, caller, newOwner common.Address) error {
	err := s.reg.TransferOwnership(ctx, caller, newOwner)
	s.observe("transfer_ownership", err)
	return err
}

// WithdrawFees 提取平台费并保存提取记录
func (s *Service) WithdrawFees(ctx context.Context, caller common.Address, trigger string) (model.FeeWithdrawal, error) {
	w, err := s.reg.WithdrawFees(ctx, caller)
	s.observe("withdraw_fees", err)
	if err != nil {
		return w, err
	}
	s.refreshRegistry()

	// 提取已写入事件日志，记录表只用于查询，失败不回滚
	if s.withdrawals != nil {
		if _, err := s.withdrawals.CreateFeeWithdrawal(w, trigger); err != nil {
			logger.Error("Failed to persist fee withdrawal of %d to %s: %v", w.Amount, w.Treasury.Hex(), err)
		}
	}
	return w, nil
}

// AddTemplate 添加资金池模板
func (s *Service) AddTemplate(ctx context.Context, caller common.Address, tpl model.Template) (model.Template, error) {
	out, err := s.reg.AddTemplate(ctx, caller, tpl)
	s.observe("add_template", err)
	return out, err
}

// UpdateTemplateStatus 启用或停用模板
func (s *Service) UpdateTemplateStatus(ctx context.Context, caller common.Address, name string, active bool) error {
	err := s.reg.UpdateTemplateStatus(ctx, caller, name, active)
	s.observe("update_template_status", err)
	return err
}

// RecordContribution 记录一笔已确认的支付
func (s *Service) RecordContribution(ctx context.Context, ref common.Address, in ContributionInput) (model.Contribution, error) {
	engine, err := s.reg.Pool(ref)
	if err != nil {
		s.observe("record_contribution", err)
		return model.Contribution{}, err
	}
	c, err := engine.RecordContribution(ctx, in.Contributor, in.Amount, in.TxRef, in.Source, in.IdentityTag)
	s.observe("record_contribution", err)
	if err != nil {
		return c, err
	}
	s.metrics.RecordContribution(c.Source, engine.Config().Currency, c.Amount)
	return c, nil
}

// AddMilestone 草稿阶段追加里程碑
func (s *Service) AddMilestone(ctx context.Context, ref, caller common.Address, in model.MilestoneInput) (model.Milestone, error) {
	engine, err := s.reg.Pool(ref)
	if err != nil {
		s.observe("add_milestone", err)
		return model.Milestone{}, err
	}
	m, err := engine.AddMilestone(ctx, caller, in)
	s.observe("add_milestone", err)
	return m, err
}

// DesignateSubmitter 指定证明提交人
func (s *Service) DesignateSubmitter(ctx context.Context, ref, caller, submitter common.Address) error {
	engine, err := s.reg.Pool(ref)
	if err == nil {
		err = engine.DesignateSubmitter(ctx, caller, submitter)
	}
	s.observe("designate_submitter", err)
	return err
}

// SubmitMilestoneProof 提交里程碑证明
func (s *Service) SubmitMilestoneProof(ctx context.Context, ref, caller common.Address, id int, proofURL, proofDescription string) (model.Milestone, error) {
	engine, err := s.reg.Pool(ref)
	if err != nil {
		s.observe("submit_proof", err)
		return model.Milestone{}, err
	}
	m, err := engine.SubmitMilestoneProof(ctx, caller, id, proofURL, proofDescription)
	s.observe("submit_proof", err)
	return m, err
}

// VoteOnMilestone 成员投票
func (s *Service) VoteOnMilestone(ctx context.Context, ref, voter common.Address, id int, inFavor bool) (model.Milestone, error) {
	engine, err := s.reg.Pool(ref)
	if err != nil {
		s.observe("vote", err)
		return model.Milestone{}, err
	}
	m, err := engine.VoteOnMilestone(ctx, voter, id, inFavor)
	s.observe("vote", err)
	if err != nil {
		return m, err
	}
	s.metrics.RecordVote(inFavor)
	s.recordResolution(engine, m)
	return m, nil
}

// ApproveMilestone 创建者审批通过
func (s *Service) ApproveMilestone(ctx context.Context, ref, caller common.Address, id int) (model.Milestone, error) {
	engine, err := s.reg.Pool(ref)
	if err != nil {
		s.observe("approve_milestone", err)
		return model.Milestone{}, err
	}
	m, err := engine.ApproveMilestone(ctx, caller, id)
	s.observe("approve_milestone", err)
	if err == nil {
		s.recordResolution(engine, m)
	}
	return m, err
}

// RejectMilestone 创建者审批拒绝
func (s *Service) RejectMilestone(ctx context.Context, ref, caller common.Address, id int) (model.Milestone, error) {
	engine, err := s.reg.Pool(ref)
	if err != nil {
		s.observe("reject_milestone", err)
		return model.Milestone{}, err
	}
	m, err := engine.RejectMilestone(ctx, caller, id)
	s.observe("reject_milestone", err)
	if err == nil {
		s.recordResolution(engine, m)
	}
	return m, err
}

// UpdatePoolStatus 运营方推进资金池状态
func (s *Service) UpdatePoolStatus(ctx context.Context, ref, caller common.Address, to model.PoolStatus) error {
	engine, err := s.reg.Pool(ref)
	if err == nil {
		err = engine.UpdatePoolStatus(ctx, caller, to)
	}
	s.observe("update_pool_status", err)
	return err
}

func (s *Service) recordResolution(engine *pool.Engine, m model.Milestone) {
	switch m.Status {
	case model.MilestoneStatusApproved:
		var released int64
		for _, r := range engine.Releases() {
			if r.MilestoneID == m.ID {
				released = r.GrossAmount
			}
		}
		s.metrics.RecordMilestoneResolved(string(m.Status), released)
	case model.MilestoneStatusRejected:
		s.metrics.RecordMilestoneResolved(string(m.Status), 0)
	}
}
