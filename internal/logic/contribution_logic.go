package logic

import (
	"fmt"

	"github.com/UPool-Fun/UPool-sub000/internal/model"
	"gorm.io/gorm"
)

// ContributionLogic 贡献和成员查询
type ContributionLogic struct {
	db *gorm.DB
}

// NewContributionLogic 创建贡献业务逻辑
func NewContributionLogic(db *gorm.DB) *ContributionLogic {
	return &ContributionLogic{db: db}
}

// GetPoolContributions 分页获取资金池的贡献记录
func (c *ContributionLogic) GetPoolContributions(ref string, page, pageSize int) ([]model.PoolContributionModel, int64, error) {
	var records []model.PoolContributionModel
	var total int64

	if err := c.db.Model(&model.PoolContributionModel{}).Where("pool_ref = ?", ref).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("获取贡献记录总数失败: %w", err)
	}

	offset := (page - 1) * pageSize
	if err := c.db.Where("pool_ref = ?", ref).
		Offset(offset).
		Limit(pageSize).
		Order("contributed_at DESC").
		Find(&records).Error; err != nil {
		return nil, 0, fmt.Errorf("获取贡献记录失败: %w", err)
	}

	return records, total, nil
}

// GetContributorRecords 获取某地址在所有资金池的贡献
func (c *ContributionLogic) GetContributorRecords(address string, page, pageSize int) ([]model.PoolContributionModel, int64, error) {
	var records []model.PoolContributionModel
	var total int64

	if err := c.db.Model(&model.PoolContributionModel{}).Where("address = ?", address).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("获取贡献记录总数失败: %w", err)
	}

	offset := (page - 1) * pageSize
	if err := c.db.Where("address = ?", address).
		Offset(offset).
		Limit(pageSize).
		Order("contributed_at DESC").
		Find(&records).Error; err != nil {
		return nil, 0, fmt.Errorf("获取贡献记录失败: %w", err)
	}

	return records, total, nil
}

// GetPoolMembers 获取资金池成员，按贡献降序
func (c *ContributionLogic) GetPoolMembers(ref string) ([]model.PoolMemberModel, error) {
	var members []model.PoolMemberModel
	if err := c.db.Where("pool_ref = ?", ref).Order("contributed DESC, join_time ASC").Find(&members).Error; err != nil {
		return nil, fmt.Errorf("获取成员失败: %w", err)
	}
	return members, nil
}

// GetContributionStats 获取资金池贡献统计
func (c *ContributionLogic) GetContributionStats(ref string) (map[string]interface{}, error) {
	var stats struct {
		TotalContributions int64
		TotalAmount        int64
		UniqueContributors int64
	}

	query := c.db.Model(&model.PoolContributionModel{}).Where("pool_ref = ?", ref)

	if err := query.Count(&stats.TotalContributions).Error; err != nil {
		return nil, fmt.Errorf("获取总贡献记录数失败: %w", err)
	}
	if err := c.db.Model(&model.PoolContributionModel{}).Where("pool_ref = ?", ref).
		Select("COALESCE(SUM(amount), 0)").Scan(&stats.TotalAmount).Error; err != nil {
		return nil, fmt.Errorf("获取总贡献金额失败: %w", err)
	}
	if err := c.db.Model(&model.PoolContributionModel{}).Where("pool_ref = ?", ref).
		Distinct("address").Count(&stats.UniqueContributors).Error; err != nil {
		return nil, fmt.Errorf("获取唯一贡献者数量失败: %w", err)
	}

	return map[string]interface{}{
		"total_contributions": stats.TotalContributions,
		"total_amount":        stats.TotalAmount,
		"unique_contributors": stats.UniqueContributors,
	}, nil
}
