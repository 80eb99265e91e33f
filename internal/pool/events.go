package pool

import (
	"context"
	"fmt"
	"time"

	"github.com/UPool-Fun/UPool-sub000/internal/calc"
	"github.com/UPool-Fun/UPool-sub000/internal/journal"
	"github.com/UPool-Fun/UPool-sub000/internal/logger"
	"github.com/UPool-Fun/UPool-sub000/internal/model"
	"github.com/ethereum/go-ethereum/common"
)

// 资金池事件类型
const (
	EventContributionRecorded = "ContributionRecorded"
	EventMilestoneAdded       = "MilestoneAdded"
	EventSubmitterDesignated  = "SubmitterDesignated"
	EventProofSubmitted       = "MilestoneProofSubmitted"
	EventVoteCast             = "MilestoneVoteCast"
	EventMilestoneApproved    = "MilestoneApproved"
	EventMilestoneRejected    = "MilestoneRejected"
	EventStatusChanged        = "PoolStatusChanged"
)

type contributionRecorded struct {
	ID          string         `json:"id"`
	Contributor common.Address `json:"contributor"`
	Amount      int64          `json:"amount"`
	TxRef       string         `json:"txRef"`
	Source      string         `json:"source"`
	IdentityTag string         `json:"identityTag,omitempty"`
}

type milestoneAdded struct {
	Milestone model.MilestoneInput `json:"milestone"`
}

type submitterDesignated struct {
	Submitter common.Address `json:"submitter"`
}

type proofSubmitted struct {
	MilestoneID      int            `json:"milestoneId"`
	ProofURL         string         `json:"proofUrl"`
	ProofDescription string         `json:"proofDescription"`
	Submitter        common.Address `json:"submitter"`
}

type voteCast struct {
	MilestoneID int            `json:"milestoneId"`
	Voter       common.Address `json:"voter"`
	InFavor     bool           `json:"inFavor"`
	Weight      int64          `json:"weight"`
}

type milestoneDecided struct {
	MilestoneID int            `json:"milestoneId"`
	By          common.Address `json:"by"`
}

type statusChanged struct {
	From model.PoolStatus `json:"from"`
	To   model.PoolStatus `json:"to"`
	By   common.Address   `json:"by"`
}

// commit 写入日志后应用事件，调用方必须持有写锁
func (e *Engine) commit(ctx context.Context, eventType string, payload any) error {
	ev, err := journal.New(e.stream, e.seq+1, eventType, payload, e.now())
	if err != nil {
		return err
	}
	if err := e.journal.Append(ctx, ev); err != nil {
		return fmt.Errorf("append %s: %w", eventType, err)
	}
	return e.apply(ev)
}

// Replay 按顺序重放事件流，重建内存状态
func (e *Engine) Replay(events []journal.Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, ev := range events {
		if ev.Seq != e.seq+1 {
			return fmt.Errorf("%w: pool %s expected seq %d, got %d", journal.ErrSeqConflict, e.ref.Hex(), e.seq+1, ev.Seq)
		}
		if err := e.apply(ev); err != nil {
			return err
		}
	}
	return nil
}

// apply 应用单个事件，不做业务校验
func (e *Engine) apply(ev journal.Event) error {
	switch ev.Type {
	case EventContributionRecorded:
		var p contributionRecorded
		if err := ev.Decode(&p); err != nil {
			return err
		}
		e.applyContribution(p, ev.At)
	case EventMilestoneAdded:
		var p milestoneAdded
		if err := ev.Decode(&p); err != nil {
			return err
		}
		e.appendMilestone(p.Milestone)
	case EventSubmitterDesignated:
		var p submitterDesignated
		if err := ev.Decode(&p); err != nil {
			return err
		}
		e.submitter = p.Submitter
	case EventProofSubmitted:
		var p proofSubmitted
		if err := ev.Decode(&p); err != nil {
			return err
		}
		e.applyProof(p, ev.At)
	case EventVoteCast:
		var p voteCast
		if err := ev.Decode(&p); err != nil {
			return err
		}
		e.applyVote(p, ev)
	case EventMilestoneApproved:
		var p milestoneDecided
		if err := ev.Decode(&p); err != nil {
			return err
		}
		e.approve(p.MilestoneID, ev)
	case EventMilestoneRejected:
		var p milestoneDecided
		if err := ev.Decode(&p); err != nil {
			return err
		}
		e.reject(p.MilestoneID)
	case EventStatusChanged:
		var p statusChanged
		if err := ev.Decode(&p); err != nil {
			return err
		}
		e.status = p.To
	default:
		return fmt.Errorf("unknown pool event type %q", ev.Type)
	}

	e.seq = ev.Seq
	e.updatedAt = ev.At
	return nil
}

func (e *Engine) applyContribution(p contributionRecorded, at time.Time) {
	e.contributions = append(e.contributions, model.Contribution{
		ID:          p.ID,
		Contributor: p.Contributor,
		Amount:      p.Amount,
		Timestamp:   at,
		TxRef:       p.TxRef,
		Source:      p.Source,
		IdentityTag: p.IdentityTag,
	})
	e.txRefs[p.TxRef] = struct{}{}
	e.totalRaised += p.Amount

	member, ok := e.members[p.Contributor]
	if !ok {
		member = &model.Member{
			Address:  p.Contributor,
			JoinedAt: at,
			Active:   true,
		}
		e.members[p.Contributor] = member
		e.memberOrder = append(e.memberOrder, p.Contributor)
	}
	if p.IdentityTag != "" {
		member.IdentityTag = p.IdentityTag
	}
	member.Contributed += p.Amount
	member.Contributions++

	// 权重相对于当前总额，每次贡献都要全部重算
	for _, m := range e.members {
		m.VotingWeight = calc.WeightBp(m.Contributed, e.totalRaised)
	}
}

func (e *Engine) applyProof(p proofSubmitted, at time.Time) {
	m := &e.milestones[p.MilestoneID]
	submittedAt := at
	m.Status = model.MilestoneStatusPendingVote
	m.ProofURL = p.ProofURL
	m.ProofDescription = p.ProofDescription
	m.Submitter = p.Submitter
	m.SubmittedAt = &submittedAt
	m.VotesFor = 0
	m.VotesAgainst = 0
	m.Round++
	e.voters[p.MilestoneID] = make(map[common.Address]struct{})
}

func (e *Engine) applyVote(p voteCast, ev journal.Event) {
	m := &e.milestones[p.MilestoneID]
	if e.voters[p.MilestoneID] == nil {
		e.voters[p.MilestoneID] = make(map[common.Address]struct{})
	}
	e.voters[p.MilestoneID][p.Voter] = struct{}{}

	weight := e.members[p.Voter].VotingWeight
	if p.InFavor {
		m.VotesFor += weight
	} else {
		m.VotesAgainst += weight
	}

	// CreatorOnly 只记录票数，由创建者单独审批
	if e.cfg.ApprovalMethod == model.ApprovalCreatorOnly {
		return
	}

	total := e.totalActiveWeight()
	if calc.VotePassed(m.VotesFor, m.VotesAgainst, e.cfg.ApprovalMethod, e.cfg.ApprovalThreshold, total) {
		e.approve(p.MilestoneID, ev)
		return
	}
	remaining := e.remainingWeight(p.MilestoneID)
	if !calc.CanStillPass(m.VotesFor, m.VotesAgainst, remaining, e.cfg.ApprovalMethod, e.cfg.ApprovalThreshold, total) {
		e.reject(p.MilestoneID)
	}
}

// approve 里程碑通过并生成放款记录；下一个里程碑保持 Locked，可以提交证明
func (e *Engine) approve(id int, ev journal.Event) {
	m := &e.milestones[id]
	approvedAt := ev.At
	m.Status = model.MilestoneStatusApproved
	m.ApprovedAt = &approvedAt

	gross := m.Amount
	if available := e.totalRaised - e.releasedGross(); gross > available {
		gross = available
	}
	if gross < 0 {
		gross = 0
	}
	fee := calc.BasisPointShare(gross, e.cfg.PlatformFeeRate)
	e.releases = append(e.releases, model.Release{
		ID:            ev.ID,
		MilestoneID:   id,
		GrossAmount:   gross,
		PlatformFee:   fee,
		CreatorAmount: gross - fee,
		FeeRecipient:  e.cfg.PlatformFeeTo,
		Recipient:     e.creator,
		ReleasedAt:    approvedAt,
	})

	logger.Info("Pool %s milestone %d approved, releasing %d (fee %d)", e.ref.Hex(), id, gross, fee)
}

func (e *Engine) reject(id int) {
	e.milestones[id].Status = model.MilestoneStatusRejected
	logger.Info("Pool %s milestone %d rejected", e.ref.Hex(), id)
}
