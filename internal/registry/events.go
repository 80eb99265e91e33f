package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/UPool-Fun/UPool-sub000/internal/journal"
	"github.com/UPool-Fun/UPool-sub000/internal/logger"
	"github.com/UPool-Fun/UPool-sub000/internal/model"
	"github.com/UPool-Fun/UPool-sub000/internal/pool"
	"github.com/ethereum/go-ethereum/common"
)

// 全局事件类型
const (
	EventPoolRegistered       = "PoolRegistered"
	EventPoolCreated          = "PoolCreated"
	EventPoolRemoved          = "PoolRemoved"
	EventCreationFeeUpdated   = "CreationFeeUpdated"
	EventMaxPoolsUpdated      = "MaxPoolsPerCreatorUpdated"
	EventTreasuryUpdated      = "TreasuryUpdated"
	EventFeesWithdrawn        = "FeesWithdrawn"
	EventPaused               = "Paused"
	EventUnpaused             = "Unpaused"
	EventOwnershipTransferred = "OwnershipTransferred"
	EventTemplateAdded        = "TemplateAdded"
	EventTemplateStatus       = "TemplateStatusUpdated"
)

type poolRegistered struct {
	Pool    common.Address `json:"pool"`
	Creator common.Address `json:"creator"`
	Fee     int64          `json:"fee"`
}

type poolCreated struct {
	Pool       common.Address         `json:"pool"`
	Creator    common.Address         `json:"creator"`
	Operator   common.Address         `json:"operator"`
	Config     model.PoolConfig       `json:"config"`
	Milestones []model.MilestoneInput `json:"milestones"`
	Template   string                 `json:"template,omitempty"`
	Nonce      uint64                 `json:"nonce"`
	TxRef      common.Hash            `json:"txRef"`
	Fee        int64                  `json:"fee"`
}

type poolRemoved struct {
	Pool common.Address `json:"pool"`
}

type creationFeeUpdated struct {
	Fee int64 `json:"fee"`
}

type maxPoolsUpdated struct {
	Max int `json:"max"`
}

type treasuryUpdated struct {
	Treasury common.Address `json:"treasury"`
}

type feesWithdrawn struct {
	Treasury common.Address `json:"treasury"`
	Amount   int64          `json:"amount"`
}

type pauseChanged struct {
	By common.Address `json:"by"`
}

type ownershipTransferred struct {
	From common.Address `json:"from"`
	To   common.Address `json:"to"`
}

type templateAdded struct {
	Template model.Template `json:"template"`
}

type templateStatus struct {
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// commit 写入全局事件流后应用，调用方必须持有写锁
func (r *Registry) commit(ctx context.Context, eventType string, payload any) error {
	ev, err := journal.New(journal.GlobalStream, r.seq+1, eventType, payload, r.now())
	if err != nil {
		return err
	}
	if err := r.journal.Append(ctx, ev); err != nil {
		return fmt.Errorf("append %s: %w", eventType, err)
	}
	return r.apply(ev)
}

// Replay 重放全局事件流，重建注册表、模板和资金池引擎（引擎自身的事件需另行重放）
func (r *Registry) Replay(events []journal.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ev := range events {
		if ev.Seq != r.seq+1 {
			return fmt.Errorf("%w: registry expected seq %d, got %d", journal.ErrSeqConflict, r.seq+1, ev.Seq)
		}
		if err := r.apply(ev); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) apply(ev journal.Event) error {
	var err error
	switch ev.Type {
	case EventPoolRegistered:
		var p poolRegistered
		if err = ev.Decode(&p); err == nil {
			r.addEntry(p.Pool, p.Creator, p.Fee, ev.At)
		}
	case EventPoolCreated:
		var p poolCreated
		if err = ev.Decode(&p); err == nil {
			err = r.applyPoolCreated(p, ev.At)
		}
	case EventPoolRemoved:
		var p poolRemoved
		if err = ev.Decode(&p); err == nil {
			r.removeEntry(p.Pool)
		}
	case EventCreationFeeUpdated:
		var p creationFeeUpdated
		if err = ev.Decode(&p); err == nil {
			r.creationFee = p.Fee
		}
	case EventMaxPoolsUpdated:
		var p maxPoolsUpdated
		if err = ev.Decode(&p); err == nil {
			r.maxPools = p.Max
		}
	case EventTreasuryUpdated:
		var p treasuryUpdated
		if err = ev.Decode(&p); err == nil {
			r.treasury = p.Treasury
		}
	case EventFeesWithdrawn:
		var p feesWithdrawn
		if err = ev.Decode(&p); err == nil {
			r.feeBalance -= p.Amount
		}
	case EventPaused:
		r.paused = true
	case EventUnpaused:
		r.paused = false
	case EventOwnershipTransferred:
		var p ownershipTransferred
		if err = ev.Decode(&p); err == nil {
			r.owner = p.To
		}
	case EventTemplateAdded:
		var p templateAdded
		if err = ev.Decode(&p); err == nil {
			tpl := p.Template
			r.templates[tpl.Name] = &tpl
			r.templateOrder = append(r.templateOrder, tpl.Name)
		}
	case EventTemplateStatus:
		var p templateStatus
		if err = ev.Decode(&p); err == nil {
			if tpl, ok := r.templates[p.Name]; ok {
				tpl.Active = p.Active
			}
		}
	default:
		err = fmt.Errorf("unknown registry event type %q", ev.Type)
	}
	if err != nil {
		return err
	}

	r.seq = ev.Seq
	r.lastAt = ev.At
	return nil
}

func (r *Registry) addEntry(ref, creator common.Address, fee int64, at time.Time) {
	r.entries = append(r.entries, model.RegistryEntry{Pool: ref, Creator: creator, RegisteredAt: at})
	r.registered[ref] = struct{}{}
	r.creatorPools[creator] = append(r.creatorPools[creator], ref)
	r.feeBalance += fee
	r.totalFeesCollected += fee
}

func (r *Registry) removeEntry(ref common.Address) {
	var creator common.Address
	for i, e := range r.entries {
		if e.Pool == ref {
			creator = e.Creator
			r.entries = append(r.entries[:i:i], r.entries[i+1:]...)
			break
		}
	}
	delete(r.registered, ref)

	pools := r.creatorPools[creator]
	for i, p := range pools {
		if p == ref {
			r.creatorPools[creator] = append(pools[:i:i], pools[i+1:]...)
			break
		}
	}
	if len(r.creatorPools[creator]) == 0 {
		delete(r.creatorPools, creator)
	}
}

func (r *Registry) applyPoolCreated(p poolCreated, at time.Time) error {
	engine, err := pool.New(pool.Params{
		Ref:        p.Pool,
		Creator:    p.Creator,
		Operator:   p.Operator,
		Config:     p.Config,
		Milestones: p.Milestones,
		CreatedAt:  at,
	}, r.poolJournal, pool.WithClock(r.now))
	if err != nil {
		return fmt.Errorf("instantiate pool %s: %w", p.Pool.Hex(), err)
	}

	r.engines[p.Pool] = engine
	r.engineOrder = append(r.engineOrder, p.Pool)
	if p.Config.VanityURL != "" {
		r.vanity[p.Config.VanityURL] = p.Pool
	}
	if p.Nonce >= r.nonce {
		r.nonce = p.Nonce + 1
	}
	r.addEntry(p.Pool, p.Creator, p.Fee, at)

	logger.Info("Pool %s created by %s (vanity %q, tx %s)", p.Pool.Hex(), p.Creator.Hex(), p.Config.VanityURL, p.TxRef.Hex())
	return nil
}
