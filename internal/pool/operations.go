package pool

import (
	"context"
	"fmt"
	"strings"

	"github.com/UPool-Fun/UPool-sub000/internal/model"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// DefaultSource 未指定来源时的贡献来源标记
const DefaultSource = "manual"

// RecordContribution 记录一笔已确认的贡献
//
// 新贡献者自动成为成员；记录后按新的总额重算所有成员的投票权重。
func (e *Engine) RecordContribution(ctx context.Context, contributor common.Address, amount int64, txRef, source, identityTag string) (model.Contribution, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.status != model.PoolStatusActive {
		return model.Contribution{}, fmt.Errorf("%w: status %s", model.ErrPoolNotActive, e.status)
	}
	if model.IsZeroAddress(contributor) {
		return model.Contribution{}, fmt.Errorf("%w: contributor", model.ErrInvalidAddress)
	}
	if amount <= 0 {
		return model.Contribution{}, fmt.Errorf("%w: %d", model.ErrInvalidAmount, amount)
	}
	txRef = strings.TrimSpace(txRef)
	if txRef == "" {
		return model.Contribution{}, fmt.Errorf("%w: empty transaction reference", model.ErrInvalidConfig)
	}
	if _, ok := e.txRefs[txRef]; ok {
		return model.Contribution{}, fmt.Errorf("%w: %s", model.ErrDuplicateContribution, txRef)
	}
	if source == "" {
		source = DefaultSource
	}

	p := contributionRecorded{
		ID:          uuid.NewString(),
		Contributor: contributor,
		Amount:      amount,
		TxRef:       txRef,
		Source:      source,
		IdentityTag: identityTag,
	}
	if err := e.commit(ctx, EventContributionRecorded, p); err != nil {
		return model.Contribution{}, err
	}
	return e.contributions[len(e.contributions)-1], nil
}

// AddMilestone 草稿状态下由创建者追加里程碑
func (e *Engine) AddMilestone(ctx context.Context, caller common.Address, in model.MilestoneInput) (model.Milestone, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.creator {
		return model.Milestone{}, model.ErrOnlyCreator
	}
	if e.status != model.PoolStatusDraft {
		return model.Milestone{}, fmt.Errorf("%w: status %s", model.ErrPoolNotDraft, e.status)
	}
	if err := validateMilestone(in); err != nil {
		return model.Milestone{}, err
	}
	if sum := e.milestoneSum() + in.Percentage; sum > model.MaxBasisPoints {
		return model.Milestone{}, fmt.Errorf("%w: total would be %d", model.ErrInvalidMilestoneSum, sum)
	}

	if err := e.commit(ctx, EventMilestoneAdded, milestoneAdded{Milestone: in}); err != nil {
		return model.Milestone{}, err
	}
	return e.milestones[len(e.milestones)-1], nil
}

// DesignateSubmitter 创建者指定可以代为提交证明的地址，传入空地址表示取消
func (e *Engine) DesignateSubmitter(ctx context.Context, caller, submitter common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.creator {
		return model.ErrOnlyCreator
	}
	return e.commit(ctx, EventSubmitterDesignated, submitterDesignated{Submitter: submitter})
}

// SubmitMilestoneProof 提交里程碑完成证明，开启新的投票轮次
//
// 里程碑必须严格按顺序处理：只有第一个未通过的里程碑可以提交。
func (e *Engine) SubmitMilestoneProof(ctx context.Context, caller common.Address, id int, proofURL, proofDescription string) (model.Milestone, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.canSubmit(caller) {
		return model.Milestone{}, model.ErrOnlyCreator
	}
	if e.status != model.PoolStatusActive {
		return model.Milestone{}, fmt.Errorf("%w: status %s", model.ErrPoolNotActive, e.status)
	}
	proofURL = strings.TrimSpace(proofURL)
	if proofURL == "" {
		return model.Milestone{}, fmt.Errorf("%w: empty proof url", model.ErrInvalidProof)
	}
	if id < 0 || id >= len(e.milestones) {
		return model.Milestone{}, model.ErrMilestoneNotFound
	}
	if st := e.milestones[id].Status; st != model.MilestoneStatusLocked {
		return model.Milestone{}, fmt.Errorf("%w: milestone %d is %s", model.ErrInvalidMilestoneState, id, st)
	}
	if next := e.nextUnresolved(); id != next {
		return model.Milestone{}, fmt.Errorf("%w: milestone %d submitted, next is %d", model.ErrOutOfOrderMilestone, id, next)
	}

	p := proofSubmitted{
		MilestoneID:      id,
		ProofURL:         proofURL,
		ProofDescription: proofDescription,
		Submitter:        caller,
	}
	if err := e.commit(ctx, EventProofSubmitted, p); err != nil {
		return model.Milestone{}, err
	}
	return e.milestones[id], nil
}

func (e *Engine) canSubmit(caller common.Address) bool {
	if caller == e.creator {
		return true
	}
	return !model.IsZeroAddress(e.submitter) && caller == e.submitter
}

// VoteOnMilestone 成员按当前权重对里程碑投票
//
// 每个成员在每个投票轮次只能投一次。投票后立即判定：通过则里程碑 Approved，
// 剩余权重全部赞成也无法通过则 Rejected。
func (e *Engine) VoteOnMilestone(ctx context.Context, voter common.Address, id int, inFavor bool) (model.Milestone, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.status != model.PoolStatusActive {
		return model.Milestone{}, fmt.Errorf("%w: status %s", model.ErrPoolNotActive, e.status)
	}
	if id < 0 || id >= len(e.milestones) {
		return model.Milestone{}, model.ErrMilestoneNotFound
	}
	if st := e.milestones[id].Status; st != model.MilestoneStatusPendingVote {
		return model.Milestone{}, fmt.Errorf("%w: milestone %d is %s", model.ErrInvalidMilestoneState, id, st)
	}
	member, ok := e.members[voter]
	if !ok || !member.Active || member.VotingWeight <= 0 {
		return model.Milestone{}, fmt.Errorf("%w: %s", model.ErrNotMember, voter.Hex())
	}
	if _, voted := e.voters[id][voter]; voted {
		return model.Milestone{}, fmt.Errorf("%w: %s on milestone %d", model.ErrAlreadyVoted, voter.Hex(), id)
	}

	p := voteCast{
		MilestoneID: id,
		Voter:       voter,
		InFavor:     inFavor,
		Weight:      member.VotingWeight,
	}
	if err := e.commit(ctx, EventVoteCast, p); err != nil {
		return model.Milestone{}, err
	}
	return e.milestones[id], nil
}

// ApproveMilestone CreatorOnly 模式下创建者直接审批通过
func (e *Engine) ApproveMilestone(ctx context.Context, caller common.Address, id int) (model.Milestone, error) {
	return e.decide(ctx, caller, id, EventMilestoneApproved)
}

// RejectMilestone CreatorOnly 模式下创建者直接拒绝
func (e *Engine) RejectMilestone(ctx context.Context, caller common.Address, id int) (model.Milestone, error) {
	return e.decide(ctx, caller, id, EventMilestoneRejected)
}

func (e *Engine) decide(ctx context.Context, caller common.Address, id int, eventType string) (model.Milestone, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.creator {
		return model.Milestone{}, model.ErrOnlyCreator
	}
	if e.cfg.ApprovalMethod != model.ApprovalCreatorOnly {
		return model.Milestone{}, fmt.Errorf("%w: method is %s", model.ErrNotCreatorOnly, e.cfg.ApprovalMethod)
	}
	if e.status != model.PoolStatusActive {
		return model.Milestone{}, fmt.Errorf("%w: status %s", model.ErrPoolNotActive, e.status)
	}
	if id < 0 || id >= len(e.milestones) {
		return model.Milestone{}, model.ErrMilestoneNotFound
	}
	if st := e.milestones[id].Status; st != model.MilestoneStatusPendingVote {
		return model.Milestone{}, fmt.Errorf("%w: milestone %d is %s", model.ErrInvalidMilestoneState, id, st)
	}

	if err := e.commit(ctx, eventType, milestoneDecided{MilestoneID: id, By: caller}); err != nil {
		return model.Milestone{}, err
	}
	return e.milestones[id], nil
}

// UpdatePoolStatus 运营方推动资金池状态迁移
//
// 离开 Draft（取消除外）要求里程碑百分比之和正好为 10000。
func (e *Engine) UpdatePoolStatus(ctx context.Context, caller common.Address, to model.PoolStatus) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if model.IsZeroAddress(e.operator) || caller != e.operator {
		return model.ErrUnauthorized
	}
	if !to.Valid() || !CanTransition(e.status, to) {
		return fmt.Errorf("%w: %s -> %s", model.ErrInvalidTransition, e.status, to)
	}
	if e.status == model.PoolStatusDraft && to != model.PoolStatusCancelled {
		if sum := e.milestoneSum(); sum != model.MaxBasisPoints {
			return fmt.Errorf("%w: got %d", model.ErrInvalidMilestoneSum, sum)
		}
	}

	return e.commit(ctx, EventStatusChanged, statusChanged{From: e.status, To: to, By: caller})
}
