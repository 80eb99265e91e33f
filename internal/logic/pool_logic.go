package logic

import (
	"errors"
	"fmt"

	"github.com/UPool-Fun/UPool-sub000/internal/model"
	"github.com/UPool-Fun/UPool-sub000/internal/pool"
	"github.com/UPool-Fun/UPool-sub000/internal/registry"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PoolLogic 资金池读模型，把内存状态同步到数据库供查询
type PoolLogic struct {
	db *gorm.DB
}

// NewPoolLogic 创建资金池业务逻辑
func NewPoolLogic(db *gorm.DB) *PoolLogic {
	return &PoolLogic{db: db}
}

// SyncPool 把单个资金池的快照写入读模型
func (p *PoolLogic) SyncPool(engine *pool.Engine) error {
	data := engine.PoolData()
	stats := engine.Stats()
	ref := data.Ref.Hex()

	tx := p.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	row := toPoolModel(data, stats)
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "ref"}},
		UpdateAll: true,
	}).Create(&row).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("同步资金池失败: %w", err)
	}

	if milestones := engine.Milestones(); len(milestones) > 0 {
		rows := make([]model.PoolMilestoneModel, 0, len(milestones))
		for _, m := range milestones {
			rows = append(rows, toMilestoneModel(ref, m))
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "pool_ref"}, {Name: "milestone_id"}},
			UpdateAll: true,
		}).Create(&rows).Error; err != nil {
			tx.Rollback()
			return fmt.Errorf("同步里程碑失败: %w", err)
		}
	}

	if members := engine.Members(); len(members) > 0 {
		rows := make([]model.PoolMemberModel, 0, len(members))
		for _, m := range members {
			rows = append(rows, model.PoolMemberModel{
				PoolRef:      ref,
				Address:      m.Address.Hex(),
				IdentityTag:  m.IdentityTag,
				Contributed:  m.Contributed,
				VotingWeight: m.VotingWeight,
				IsActive:     m.Active,
				JoinTime:     m.JoinedAt,
			})
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "pool_ref"}, {Name: "address"}},
			UpdateAll: true,
		}).Create(&rows).Error; err != nil {
			tx.Rollback()
			return fmt.Errorf("同步成员失败: %w", err)
		}
	}

	// 贡献和放款记录不可变，已存在的跳过
	if contributions := engine.Contributions(); len(contributions) > 0 {
		rows := make([]model.PoolContributionModel, 0, len(contributions))
		for _, c := range contributions {
			rows = append(rows, model.PoolContributionModel{
				ContributionId: c.ID,
				PoolRef:        ref,
				Amount:         c.Amount,
				Address:        c.Contributor.Hex(),
				TxRef:          c.TxRef,
				Source:         c.Source,
				IdentityTag:    c.IdentityTag,
				ContributedAt:  c.Timestamp,
			})
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
			tx.Rollback()
			return fmt.Errorf("同步贡献记录失败: %w", err)
		}
	}

	if releases := engine.Releases(); len(releases) > 0 {
		rows := make([]model.ReleaseRecordModel, 0, len(releases))
		for _, r := range releases {
			rows = append(rows, model.ReleaseRecordModel{
				ReleaseId:     r.ID,
				PoolRef:       ref,
				MilestoneId:   r.MilestoneID,
				GrossAmount:   r.GrossAmount,
				PlatformFee:   r.PlatformFee,
				CreatorAmount: r.CreatorAmount,
				FeeRecipient:  r.FeeRecipient.Hex(),
				Recipient:     r.Recipient.Hex(),
				ReleasedAt:    r.ReleasedAt,
			})
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
			tx.Rollback()
			return fmt.Errorf("同步放款记录失败: %w", err)
		}
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("提交事务失败: %w", err)
	}
	return nil
}

// SyncAll 同步注册表下的所有资金池，返回成功数量
func (p *PoolLogic) SyncAll(reg *registry.Registry) (int, error) {
	synced := 0
	var errs []error
	for _, engine := range reg.Pools() {
		if err := p.SyncPool(engine); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", engine.Ref().Hex(), err))
			continue
		}
		synced++
	}
	return synced, errors.Join(errs...)
}

// GetPools 分页获取资金池列表
func (p *PoolLogic) GetPools(status model.PoolStatus, creator string, page, pageSize int) ([]model.PoolModel, int64, error) {
	var pools []model.PoolModel
	var total int64

	query := p.db.Model(&model.PoolModel{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if creator != "" {
		query = query.Where("creator_address = ?", creator)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("获取资金池总数失败: %w", err)
	}

	offset := (page - 1) * pageSize
	if err := query.Offset(offset).Limit(pageSize).Order("pool_created_at DESC").Find(&pools).Error; err != nil {
		return nil, 0, fmt.Errorf("获取资金池列表失败: %w", err)
	}

	return pools, total, nil
}

// GetPoolMilestones 获取资金池的里程碑
func (p *PoolLogic) GetPoolMilestones(ref string) ([]model.PoolMilestoneModel, error) {
	var milestones []model.PoolMilestoneModel
	if err := p.db.Where("pool_ref = ?", ref).Order("milestone_id ASC").Find(&milestones).Error; err != nil {
		return nil, fmt.Errorf("获取里程碑失败: %w", err)
	}
	return milestones, nil
}

// GetPoolReleases 获取资金池的放款记录
func (p *PoolLogic) GetPoolReleases(ref string) ([]model.ReleaseRecordModel, error) {
	var releases []model.ReleaseRecordModel
	if err := p.db.Where("pool_ref = ?", ref).Order("released_at ASC").Find(&releases).Error; err != nil {
		return nil, fmt.Errorf("获取放款记录失败: %w", err)
	}
	return releases, nil
}

// GetPoolStatsSummary 获取全部资金池的汇总统计
func (p *PoolLogic) GetPoolStatsSummary() (map[string]interface{}, error) {
	var stats struct {
		TotalPools    int64
		ActivePools   int64
		TotalRaised   int64
		ReleasedTotal int64
	}

	if err := p.db.Model(&model.PoolModel{}).Count(&stats.TotalPools).Error; err != nil {
		return nil, fmt.Errorf("获取资金池总数失败: %w", err)
	}
	if err := p.db.Model(&model.PoolModel{}).Where("status = ?", model.PoolStatusActive).Count(&stats.ActivePools).Error; err != nil {
		return nil, fmt.Errorf("获取进行中资金池数量失败: %w", err)
	}
	if err := p.db.Model(&model.PoolModel{}).Select("COALESCE(SUM(total_raised), 0)").Scan(&stats.TotalRaised).Error; err != nil {
		return nil, fmt.Errorf("获取总筹款失败: %w", err)
	}
	if err := p.db.Model(&model.ReleaseRecordModel{}).Select("COALESCE(SUM(gross_amount), 0)").Scan(&stats.ReleasedTotal).Error; err != nil {
		return nil, fmt.Errorf("获取总放款失败: %w", err)
	}

	return map[string]interface{}{
		"total_pools":    stats.TotalPools,
		"active_pools":   stats.ActivePools,
		"total_raised":   stats.TotalRaised,
		"released_total": stats.ReleasedTotal,
	}, nil
}

func toPoolModel(data model.PoolData, stats model.PoolStats) model.PoolModel {
	cfg := data.Config
	return model.PoolModel{
		Ref:               data.Ref.Hex(),
		Title:             cfg.Title,
		Description:       cfg.Description,
		PoolName:          cfg.PoolName,
		VanityURL:         cfg.VanityURL,
		Visibility:        string(cfg.Visibility),
		FundingGoal:       cfg.FundingGoal,
		TotalRaised:       data.TotalRaised,
		Currency:          cfg.Currency,
		PlatformFeeRate:   cfg.PlatformFeeRate,
		ProgressBp:        stats.ProgressBp,
		ReleasedTotal:     stats.ReleasedTotal,
		ApprovalMethod:    string(cfg.ApprovalMethod),
		ApprovalThreshold: cfg.ApprovalThreshold,
		RiskStrategy:      cfg.RiskStrategy,
		Status:            data.Status,
		CreatorAddress:    data.Creator.Hex(),
		PoolCreatedAt:     data.CreatedAt,
	}
}

func toMilestoneModel(ref string, m model.Milestone) model.PoolMilestoneModel {
	return model.PoolMilestoneModel{
		PoolRef:          ref,
		MilestoneId:      m.ID,
		Title:            m.Title,
		Description:      m.Description,
		Percentage:       m.Percentage,
		Amount:           m.Amount,
		Status:           string(m.Status),
		ProofURL:         m.ProofURL,
		ProofDescription: m.ProofDescription,
		VotesFor:         m.VotesFor,
		VotesAgainst:     m.VotesAgainst,
		SubmittedAt:      m.SubmittedAt,
		ApprovedAt:       m.ApprovedAt,
	}
}
