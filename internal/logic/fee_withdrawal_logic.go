package logic

import (
	"errors"
	"fmt"

	"github.com/UPool-Fun/UPool-sub000/internal/model"
	"gorm.io/gorm"
)

// 提取触发方式
const (
	TriggerManual    = "manual"
	TriggerScheduled = "scheduled"
)

// FeeWithdrawalLogic 平台费提取记录
type FeeWithdrawalLogic struct {
	db *gorm.DB
}

// NewFeeWithdrawalLogic 创建平台费提取业务逻辑
func NewFeeWithdrawalLogic(db *gorm.DB) *FeeWithdrawalLogic {
	return &FeeWithdrawalLogic{db: db}
}

// CreateFeeWithdrawal 保存一次提取
func (f *FeeWithdrawalLogic) CreateFeeWithdrawal(w model.FeeWithdrawal, trigger string) (*model.FeeWithdrawalModel, error) {
	if err := f.validateFeeWithdrawal(w, trigger); err != nil {
		return nil, err
	}

	record := &model.FeeWithdrawalModel{
		Treasury:    w.Treasury.Hex(),
		Amount:      w.Amount,
		WithdrawnAt: w.WithdrawnAt,
		Trigger:     trigger,
	}
	if err := f.db.Create(record).Error; err != nil {
		return nil, fmt.Errorf("创建提取记录失败: %w", err)
	}
	return record, nil
}

// GetFeeWithdrawals 分页获取提取记录
func (f *FeeWithdrawalLogic) GetFeeWithdrawals(page, pageSize int) ([]model.FeeWithdrawalModel, int64, error) {
	var records []model.FeeWithdrawalModel
	var total int64

	if err := f.db.Model(&model.FeeWithdrawalModel{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("获取提取记录总数失败: %w", err)
	}

	offset := (page - 1) * pageSize
	if err := f.db.Offset(offset).Limit(pageSize).Order("withdrawn_at DESC").Find(&records).Error; err != nil {
		return nil, 0, fmt.Errorf("获取提取记录失败: %w", err)
	}

	return records, total, nil
}

// GetTotalWithdrawn 累计提取金额
func (f *FeeWithdrawalLogic) GetTotalWithdrawn() (int64, error) {
	var total int64
	if err := f.db.Model(&model.FeeWithdrawalModel{}).Select("COALESCE(SUM(amount), 0)").Scan(&total).Error; err != nil {
		return 0, fmt.Errorf("获取累计提取金额失败: %w", err)
	}
	return total, nil
}

func (f *FeeWithdrawalLogic) validateFeeWithdrawal(w model.FeeWithdrawal, trigger string) error {
	if model.IsZeroAddress(w.Treasury) {
		return errors.New("国库地址不能为空")
	}
	if w.Amount <= 0 {
		return errors.New("提取金额必须大于0")
	}
	if trigger != TriggerManual && trigger != TriggerScheduled {
		return fmt.Errorf("无效的触发方式: %s", trigger)
	}
	return nil
}
