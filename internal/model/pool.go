package model

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// MaxBasisPoints 100% 对应的基点数
const MaxBasisPoints int64 = 10000

// PoolStatus 资金池状态
type PoolStatus string

const (
	PoolStatusDraft             PoolStatus = "draft"              // 草稿
	PoolStatusPendingPayment    PoolStatus = "pending_payment"    // 待支付
	PoolStatusPaymentProcessing PoolStatus = "payment_processing" // 支付处理中
	PoolStatusActive            PoolStatus = "active"             // 进行中
	PoolStatusCompleted         PoolStatus = "completed"          // 已完成
	PoolStatusCancelled         PoolStatus = "cancelled"          // 已取消
)

// Valid 检查状态是否合法
func (s PoolStatus) Valid() bool {
	switch s {
	case PoolStatusDraft, PoolStatusPendingPayment, PoolStatusPaymentProcessing,
		PoolStatusActive, PoolStatusCompleted, PoolStatusCancelled:
		return true
	}
	return false
}

// Visibility 资金池可见性
type Visibility string

const (
	VisibilityPrivate  Visibility = "private"
	VisibilityLinkOnly Visibility = "link_only"
	VisibilityPublic   Visibility = "public"
)

// Valid 检查可见性是否合法
func (v Visibility) Valid() bool {
	return v == VisibilityPrivate || v == VisibilityLinkOnly || v == VisibilityPublic
}

// ApprovalMethod 里程碑审批方式
type ApprovalMethod string

const (
	ApprovalMajority            ApprovalMethod = "majority"             // 赞成权重大于反对权重
	ApprovalPercentageThreshold ApprovalMethod = "percentage_threshold" // 赞成比例达到阈值（基点）
	ApprovalMinimumCount        ApprovalMethod = "minimum_count"        // 赞成权重达到阈值
	ApprovalCreatorOnly         ApprovalMethod = "creator_only"         // 仅创建者审批
)

// Valid 检查审批方式是否合法
func (m ApprovalMethod) Valid() bool {
	switch m {
	case ApprovalMajority, ApprovalPercentageThreshold, ApprovalMinimumCount, ApprovalCreatorOnly:
		return true
	}
	return false
}

// MilestoneStatus 里程碑状态
type MilestoneStatus string

const (
	MilestoneStatusLocked      MilestoneStatus = "locked"       // 未解锁/待提交证明
	MilestoneStatusPendingVote MilestoneStatus = "pending_vote" // 投票中
	MilestoneStatusApproved    MilestoneStatus = "approved"     // 已通过
	MilestoneStatusRejected    MilestoneStatus = "rejected"     // 已拒绝
)

// PoolConfig 资金池配置，创建后不可修改
type PoolConfig struct {
	Title             string         `json:"title"`
	Description       string         `json:"description"`
	FundingGoal       int64          `json:"fundingGoal"`
	Currency          string         `json:"currency"`
	PlatformFeeRate   int64          `json:"platformFeeRate"`
	PlatformFeeTo     common.Address `json:"platformFeeRecipient"`
	Visibility        Visibility     `json:"visibility"`
	ApprovalMethod    ApprovalMethod `json:"approvalMethod"`
	ApprovalThreshold int64          `json:"approvalThreshold"`
	PoolName          string         `json:"poolName"`
	VanityURL         string         `json:"vanityUrl"`
	RiskStrategy      string         `json:"riskStrategy"`
}

// MilestoneInput 创建里程碑的输入
type MilestoneInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Percentage  int64  `json:"percentage"`
}

// Milestone 里程碑
type Milestone struct {
	ID               int             `json:"id"`
	Title            string          `json:"title"`
	Description      string          `json:"description"`
	Percentage       int64           `json:"percentage"`
	Amount           int64           `json:"amount"`
	Status           MilestoneStatus `json:"status"`
	ProofURL         string          `json:"proofUrl"`
	ProofDescription string          `json:"proofDescription"`
	VotesFor         int64           `json:"votesFor"`
	VotesAgainst     int64           `json:"votesAgainst"`
	Round            int             `json:"round"`
	SubmittedAt      *time.Time      `json:"submittedAt,omitempty"`
	ApprovedAt       *time.Time      `json:"approvedAt,omitempty"`
	Submitter        common.Address  `json:"submitter"`
}

// Member 资金池成员
type Member struct {
	Address       common.Address `json:"address"`
	IdentityTag   string         `json:"identityTag,omitempty"`
	Contributed   int64          `json:"contributed"`
	JoinedAt      time.Time      `json:"joinedAt"`
	Active        bool           `json:"active"`
	VotingWeight  int64          `json:"votingWeight"`
	Contributions int            `json:"contributions"`
}

// Contribution 贡献记录，写入后不可修改
type Contribution struct {
	ID          string         `json:"id"`
	Contributor common.Address `json:"contributor"`
	Amount      int64          `json:"amount"`
	Timestamp   time.Time      `json:"timestamp"`
	TxRef       string         `json:"txRef"`
	Source      string         `json:"source"`
	IdentityTag string         `json:"identityTag,omitempty"`
}

// Release 里程碑放款记录
type Release struct {
	ID            string         `json:"id"`
	MilestoneID   int            `json:"milestoneId"`
	GrossAmount   int64          `json:"grossAmount"`
	PlatformFee   int64          `json:"platformFee"`
	CreatorAmount int64          `json:"creatorAmount"`
	FeeRecipient  common.Address `json:"feeRecipient"`
	Recipient     common.Address `json:"recipient"`
	ReleasedAt    time.Time      `json:"releasedAt"`
}

// PoolData 资金池快照
type PoolData struct {
	Ref         common.Address `json:"ref"`
	Config      PoolConfig     `json:"config"`
	Creator     common.Address `json:"creator"`
	Operator    common.Address `json:"operator"`
	Submitter   common.Address `json:"submitter"`
	Status      PoolStatus     `json:"status"`
	TotalRaised int64          `json:"totalRaised"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// PoolStats 资金池统计信息
type PoolStats struct {
	Ref                 common.Address `json:"ref"`
	Status              PoolStatus     `json:"status"`
	TotalRaised         int64          `json:"totalRaised"`
	FundingGoal         int64          `json:"fundingGoal"`
	ProgressBp          int64          `json:"progressBp"`
	MemberCount         int            `json:"memberCount"`
	ContributionCount   int            `json:"contributionCount"`
	MilestoneCount      int            `json:"milestoneCount"`
	ApprovedMilestones  int            `json:"approvedMilestones"`
	PendingMilestones   int            `json:"pendingMilestones"`
	TotalVotingWeight   int64          `json:"totalVotingWeight"`
	ReleasedTotal       int64          `json:"releasedTotal"`
	PlatformFeesTotal   int64          `json:"platformFeesTotal"`
	CurrentMilestoneID  int            `json:"currentMilestoneId"`
	HasCurrentMilestone bool           `json:"hasCurrentMilestone"`
}

// RegistryEntry 注册表条目
type RegistryEntry struct {
	Pool         common.Address `json:"pool"`
	Creator      common.Address `json:"creator"`
	RegisteredAt time.Time      `json:"registeredAt"`
}

// Template 资金池模板
type Template struct {
	Name              string         `json:"name"`
	Description       string         `json:"description"`
	RiskStrategy      string         `json:"riskStrategy"`
	ApprovalMethod    ApprovalMethod `json:"approvalMethod"`
	ApprovalThreshold int64          `json:"approvalThreshold"`
	Active            bool           `json:"active"`
	CreatedAt         time.Time      `json:"createdAt"`
}

// FeeWithdrawal 平台费提取记录
type FeeWithdrawal struct {
	Treasury    common.Address `json:"treasury"`
	Amount      int64          `json:"amount"`
	WithdrawnAt time.Time      `json:"withdrawnAt"`
}

// RegistryStats 注册表统计信息
type RegistryStats struct {
	Owner              common.Address `json:"owner"`
	Treasury           common.Address `json:"treasury"`
	CreationFee        int64          `json:"creationFee"`
	MaxPoolsPerCreator int            `json:"maxPoolsPerCreator"`
	TotalPools         int            `json:"totalPools"`
	FeeBalance         int64          `json:"feeBalance"`
	TotalFeesCollected int64          `json:"totalFeesCollected"`
	Paused             bool           `json:"paused"`
}

// IsZeroAddress 检查地址是否为空地址
func IsZeroAddress(addr common.Address) bool {
	return addr == (common.Address{})
}
