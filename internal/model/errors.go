package model

import "errors"

// 配置错误：非法费用、非法地址、重复名称、百分比之和错误等
var (
	ErrInsufficientFee         = errors.New("insufficient fee")
	ErrInsufficientCreationFee = errors.New("insufficient creation fee")
	ErrInvalidPoolAddress      = errors.New("invalid pool address")
	ErrInvalidAddress          = errors.New("invalid address")
	ErrInvalidTreasury         = errors.New("invalid treasury address")
	ErrPoolAlreadyRegistered   = errors.New("pool already registered")
	ErrVanityURLTaken          = errors.New("vanity url taken")
	ErrInvalidVanityURL        = errors.New("invalid vanity url")
	ErrInvalidMilestoneSum     = errors.New("milestone percentages must sum to 10000 basis points")
	ErrInvalidMilestone        = errors.New("invalid milestone")
	ErrInvalidFeeRate          = errors.New("platform fee rate out of range")
	ErrInvalidConfig           = errors.New("invalid pool config")
	ErrInvalidApprovalMethod   = errors.New("invalid approval method")
	ErrInvalidThreshold        = errors.New("invalid approval threshold")
	ErrInvalidAmount           = errors.New("invalid amount")
	ErrInvalidProof            = errors.New("invalid proof")
	ErrInvalidMaxPools         = errors.New("invalid max pools per creator")
	ErrDuplicateContribution   = errors.New("duplicate contribution reference")
	ErrTemplateExists          = errors.New("template already exists")
	ErrUnsupportedSource       = errors.New("unsupported contribution source")
	ErrPaymentNotVerified      = errors.New("payment not verified")
)

// 权限错误
var (
	ErrUnauthorized = errors.New("ownable: unauthorized account")
	ErrOnlyCreator  = errors.New("only creator")
)

// 状态错误：池状态不对、里程碑顺序错误、重复投票等
var (
	ErrPaused                = errors.New("registry paused")
	ErrNotPaused             = errors.New("registry not paused")
	ErrPoolNotActive         = errors.New("pool not active")
	ErrPoolNotDraft          = errors.New("pool not in draft")
	ErrInvalidTransition     = errors.New("invalid pool status transition")
	ErrInvalidMilestoneState = errors.New("invalid milestone state")
	ErrOutOfOrderMilestone   = errors.New("out of order milestone")
	ErrAlreadyVoted          = errors.New("already voted")
	ErrNotMember             = errors.New("not an active member")
	ErrNotCreatorOnly        = errors.New("approval method is not creator only")
	ErrTemplateInactive      = errors.New("template inactive")
	ErrNoFeesToWithdraw      = errors.New("no fees to withdraw")
)

// 容量错误
var (
	ErrMaxPoolsExceeded = errors.New("max pools per creator exceeded")
)

// 不存在错误
var (
	ErrPoolNotRegistered = errors.New("pool not registered")
	ErrPoolNotFound      = errors.New("pool not found")
	ErrMilestoneNotFound = errors.New("milestone not found")
	ErrTemplateNotFound  = errors.New("template not found")
)

// ErrorKind 错误分类
type ErrorKind string

const (
	KindConfiguration ErrorKind = "configuration"
	KindAuthorization ErrorKind = "authorization"
	KindState         ErrorKind = "state"
	KindCapacity      ErrorKind = "capacity"
	KindNotFound      ErrorKind = "not_found"
	KindInternal      ErrorKind = "internal"
)

var errorKinds = map[error]ErrorKind{
	ErrInsufficientFee:         KindConfiguration,
	ErrInsufficientCreationFee: KindConfiguration,
	ErrInvalidPoolAddress:      KindConfiguration,
	ErrInvalidAddress:          KindConfiguration,
	ErrInvalidTreasury:         KindConfiguration,
	ErrPoolAlreadyRegistered:   KindConfiguration,
	ErrVanityURLTaken:          KindConfiguration,
	ErrInvalidVanityURL:        KindConfiguration,
	ErrInvalidMilestoneSum:     KindConfiguration,
	ErrInvalidMilestone:        KindConfiguration,
	ErrInvalidFeeRate:          KindConfiguration,
	ErrInvalidConfig:           KindConfiguration,
	ErrInvalidApprovalMethod:   KindConfiguration,
	ErrInvalidThreshold:        KindConfiguration,
	ErrInvalidAmount:           KindConfiguration,
	ErrInvalidProof:            KindConfiguration,
	ErrInvalidMaxPools:         KindConfiguration,
	ErrDuplicateContribution:   KindConfiguration,
	ErrTemplateExists:          KindConfiguration,
	ErrUnsupportedSource:       KindConfiguration,
	ErrPaymentNotVerified:      KindConfiguration,

	ErrUnauthorized: KindAuthorization,
	ErrOnlyCreator:  KindAuthorization,

	ErrPaused:                KindState,
	ErrNotPaused:             KindState,
	ErrPoolNotActive:         KindState,
	ErrPoolNotDraft:          KindState,
	ErrInvalidTransition:     KindState,
	ErrInvalidMilestoneState: KindState,
	ErrOutOfOrderMilestone:   KindState,
	ErrAlreadyVoted:          KindState,
	ErrNotMember:             KindState,
	ErrNotCreatorOnly:        KindState,
	ErrTemplateInactive:      KindState,
	ErrNoFeesToWithdraw:      KindState,

	ErrMaxPoolsExceeded: KindCapacity,

	ErrPoolNotRegistered: KindNotFound,
	ErrPoolNotFound:      KindNotFound,
	ErrMilestoneNotFound: KindNotFound,
	ErrTemplateNotFound:  KindNotFound,
}

// KindOf 返回错误所属的分类，未知错误归为 internal
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	for target, kind := range errorKinds {
		if errors.Is(err, target) {
			return kind
		}
	}
	return KindInternal
}
