package handler

import (
	"github.com/UPool-Fun/UPool-sub000/internal/model"
	"github.com/UPool-Fun/UPool-sub000/internal/relay"
	"github.com/ethereum/go-ethereum/common"
)

// 通用响应结构
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Kind    string      `json:"kind,omitempty"`
	Data    interface{} `json:"data"`
}

// 分页信息结构
type Pagination struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
	Total  int `json:"total"`
}

// 资金池相关请求

// CreatePoolRequest 创建资金池请求，创建者取自 X-Caller-Address
type CreatePoolRequest struct {
	Config       model.PoolConfig       `json:"config"`
	Milestones   []model.MilestoneInput `json:"milestones"`
	TemplateName string                 `json:"templateName"`
	FeePaid      int64                  `json:"feePaid" binding:"gte=0"`
}

// MilestoneRequest 追加里程碑请求
type MilestoneRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Percentage  int64  `json:"percentage" binding:"required,gt=0"`
}

// SubmitterRequest 指定证明提交人请求
type SubmitterRequest struct {
	Submitter common.Address `json:"submitter"`
}

// ProofRequest 提交里程碑证明请求
type ProofRequest struct {
	ProofURL         string `json:"proofUrl" binding:"required"`
	ProofDescription string `json:"proofDescription"`
}

// VoteRequest 投票请求
type VoteRequest struct {
	InFavor *bool `json:"inFavor" binding:"required"`
}

// StatusRequest 资金池状态变更请求
type StatusRequest struct {
	Status model.PoolStatus `json:"status" binding:"required,pool_status"`
}

// 注册表相关请求

// RegisterPoolRequest 直接登记资金池请求
type RegisterPoolRequest struct {
	Pool    common.Address `json:"pool"`
	Creator common.Address `json:"creator"`
	FeePaid int64          `json:"feePaid" binding:"gte=0"`
}

// CreationFeeRequest 更新创建费请求
type CreationFeeRequest struct {
	Fee *int64 `json:"fee" binding:"required,gte=0"`
}

// MaxPoolsRequest 更新资金池上限请求
type MaxPoolsRequest struct {
	Max int `json:"max"`
}

// AddressRequest 单地址请求（国库、新所有者）
type AddressRequest struct {
	Address common.Address `json:"address"`
}

// TemplateRequest 添加模板请求
type TemplateRequest struct {
	Name              string               `json:"name" binding:"required"`
	Description       string               `json:"description"`
	RiskStrategy      string               `json:"riskStrategy"`
	ApprovalMethod    model.ApprovalMethod `json:"approvalMethod" binding:"omitempty,approval_method"`
	ApprovalThreshold int64                `json:"approvalThreshold"`
}

// TemplateStatusRequest 模板启停请求
type TemplateStatusRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// RelayRequest 支付确认批次
type RelayRequest struct {
	Confirmations []relay.PaymentConfirmation `json:"confirmations" binding:"required,min=1"`
}

// 响应模型

// PoolResponse 资金池详情
type PoolResponse struct {
	Pool               model.PoolData    `json:"pool"`
	Stats              model.PoolStats   `json:"stats"`
	Milestones         []model.Milestone `json:"milestones"`
	FundingGoalDisplay string            `json:"fundingGoalDisplay"`
	TotalRaisedDisplay string            `json:"totalRaisedDisplay"`
	Registered         bool              `json:"registered"`
}

// PoolListResponse 资金池分页列表
type PoolListResponse struct {
	Pools      []model.RegistryEntry `json:"pools"`
	Pagination Pagination            `json:"pagination"`
}

// VanityResponse 短链接查询结果
type VanityResponse struct {
	Slug      string         `json:"slug"`
	Pool      common.Address `json:"pool,omitempty"`
	Available bool           `json:"available"`
}

// RelayResponse 中继处理结果
type RelayResponse struct {
	Recorded int            `json:"recorded"`
	Failed   int            `json:"failed"`
	Results  []relay.Result `json:"results"`
}
