// Package relay 把外部已确认的支付批量转换为资金池贡献记录。
package relay

import (
	"context"
	"fmt"
	"sync"

	"github.com/UPool-Fun/UPool-sub000/internal/logger"
	"github.com/UPool-Fun/UPool-sub000/internal/logic"
	"github.com/UPool-Fun/UPool-sub000/internal/metrics"
	"github.com/UPool-Fun/UPool-sub000/internal/model"
	"github.com/ethereum/go-ethereum/common"
	"github.com/panjf2000/ants/v2"
)

// DefaultWorkers 默认协程池大小
const DefaultWorkers = 16

// PaymentConfirmation 已确认的支付
type PaymentConfirmation struct {
	Pool        common.Address `json:"pool"`
	Contributor common.Address `json:"contributor"`
	Amount      int64          `json:"amount"`
	TxRef       string         `json:"txRef"`
	Source      string         `json:"source"`
	IdentityTag string         `json:"identityTag,omitempty"`
}

// Result 单笔支付的处理结果，与输入一一对应
type Result struct {
	Pool           common.Address  `json:"pool"`
	TxRef          string          `json:"txRef"`
	Recorded       bool            `json:"recorded"`
	ContributionID string          `json:"contributionId,omitempty"`
	Error          string          `json:"error,omitempty"`
	Kind           model.ErrorKind `json:"kind,omitempty"`
}

// Recorder 贡献写入接口，由 logic.Service 实现
type Recorder interface {
	RecordContribution(ctx context.Context, ref common.Address, in logic.ContributionInput) (model.Contribution, error)
}

// Relay 支付中继
type Relay struct {
	recorder   Recorder
	processors *ProcessorManager
	pool       *ants.Pool
	metrics    *metrics.Collector
}

// New 创建中继
func New(recorder Recorder, processors *ProcessorManager, workers int, m *metrics.Collector) (*Relay, error) {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if m == nil {
		m = metrics.GetCollector()
	}
	p, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("failed to create relay pool: %w", err)
	}
	return &Relay{recorder: recorder, processors: processors, pool: p, metrics: m}, nil
}

// Release 释放协程池
func (r *Relay) Release() {
	r.pool.Release()
}

// Process 处理一批支付确认。同一资金池的确认按输入顺序串行处理，不同资金池并发处理。
func (r *Relay) Process(ctx context.Context, origin string, batch []PaymentConfirmation) []Result {
	results := make([]Result, len(batch))
	if len(batch) == 0 {
		return results
	}
	r.metrics.RecordRelayBatch(origin, len(batch))

	groups := make(map[common.Address][]int)
	var order []common.Address
	for i, c := range batch {
		if _, ok := groups[c.Pool]; !ok {
			order = append(order, c.Pool)
		}
		groups[c.Pool] = append(groups[c.Pool], i)
	}

	var wg sync.WaitGroup
	for _, ref := range order {
		indexes := groups[ref]
		wg.Add(1)
		err := r.pool.Submit(func() {
			defer wg.Done()
			for _, i := range indexes {
				results[i] = r.processOne(ctx, batch[i])
			}
		})
		if err != nil {
			wg.Done()
			logger.Error("Failed to submit relay task for pool %s: %v", ref.Hex(), err)
			for _, i := range indexes {
				results[i] = failed(batch[i], err)
			}
		}
	}
	wg.Wait()

	recorded := 0
	for _, res := range results {
		if res.Recorded {
			recorded++
		}
	}
	logger.Info("Relay batch from %s: %d of %d confirmations recorded across %d pools", origin, recorded, len(batch), len(order))
	return results
}

func (r *Relay) processOne(ctx context.Context, c PaymentConfirmation) Result {
	if err := ctx.Err(); err != nil {
		return failed(c, err)
	}
	prepared, err := r.processors.Prepare(ctx, c)
	if err != nil {
		return failed(c, err)
	}
	contribution, err := r.recorder.RecordContribution(ctx, prepared.Pool, logic.ContributionInput{
		Contributor: prepared.Contributor,
		Amount:      prepared.Amount,
		TxRef:       prepared.TxRef,
		Source:      prepared.Source,
		IdentityTag: prepared.IdentityTag,
	})
	if err != nil {
		return failed(prepared, err)
	}
	return Result{Pool: prepared.Pool, TxRef: prepared.TxRef, Recorded: true, ContributionID: contribution.ID}
}

func failed(c PaymentConfirmation, err error) Result {
	return Result{Pool: c.Pool, TxRef: c.TxRef, Error: err.Error(), Kind: model.KindOf(err)}
}
