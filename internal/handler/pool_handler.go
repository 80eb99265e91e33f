package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/UPool-Fun/UPool-sub000/internal/calc"
	"github.com/UPool-Fun/UPool-sub000/internal/logic"
	"github.com/UPool-Fun/UPool-sub000/internal/model"
	"github.com/UPool-Fun/UPool-sub000/internal/pool"
	"github.com/UPool-Fun/UPool-sub000/internal/registry"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

type PoolHandler struct {
	svc *logic.Service
}

func NewPoolHandler(svc *logic.Service) *PoolHandler {
	return &PoolHandler{svc: svc}
}

func (h *PoolHandler) engine(c *gin.Context) (*pool.Engine, bool) {
	ref, err := addressParam(c, "ref")
	if err != nil {
		HandleError(c, err)
		return nil, false
	}
	engine, err := h.svc.Pool(ref)
	if err != nil {
		HandleError(c, err)
		return nil, false
	}
	return engine, true
}

// CreatePool 创建资金池
func (h *PoolHandler) CreatePool(c *gin.Context) {
	var req CreatePoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.svc.CreatePool(c.Request.Context(), registry.CreatePoolInput{
		Config:       req.Config,
		Creator:      caller(c),
		Milestones:   req.Milestones,
		TemplateName: req.TemplateName,
		FeePaid:      req.FeePaid,
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusCreated, "资金池创建成功", res)
}

// GetPools 分页获取注册表中的资金池
func (h *PoolHandler) GetPools(c *gin.Context) {
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageLimit)))
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > maxPageLimit {
		limit = defaultPageLimit
	}

	entries, total := h.svc.Registry().GetPoolsPaginated(offset, limit)
	SuccessResponse(c, http.StatusOK, "ok", PoolListResponse{
		Pools:      entries,
		Pagination: Pagination{Offset: offset, Limit: limit, Total: total},
	})
}

// GetPool 获取资金池详情
func (h *PoolHandler) GetPool(c *gin.Context) {
	engine, ok := h.engine(c)
	if !ok {
		return
	}
	data := engine.PoolData()
	decimals := calc.CurrencyDecimals(data.Config.Currency)
	SuccessResponse(c, http.StatusOK, "ok", PoolResponse{
		Pool:               data,
		Stats:              engine.Stats(),
		Milestones:         engine.Milestones(),
		FundingGoalDisplay: calc.FormatAmount(data.Config.FundingGoal, decimals),
		TotalRaisedDisplay: calc.FormatAmount(data.TotalRaised, decimals),
		Registered:         h.svc.Registry().IsRegistered(data.Ref),
	})
}

// GetPoolStats 获取资金池统计
func (h *PoolHandler) GetPoolStats(c *gin.Context) {
	if engine, ok := h.engine(c); ok {
		SuccessResponse(c, http.StatusOK, "ok", engine.Stats())
	}
}

func (h *PoolHandler) GetMilestones(c *gin.Context) {
	if engine, ok := h.engine(c); ok {
		SuccessResponse(c, http.StatusOK, "ok", engine.Milestones())
	}
}

func (h *PoolHandler) GetMembers(c *gin.Context) {
	if engine, ok := h.engine(c); ok {
		SuccessResponse(c, http.StatusOK, "ok", engine.Members())
	}
}

func (h *PoolHandler) GetContributions(c *gin.Context) {
	if engine, ok := h.engine(c); ok {
		SuccessResponse(c, http.StatusOK, "ok", engine.Contributions())
	}
}

func (h *PoolHandler) GetReleases(c *gin.Context) {
	if engine, ok := h.engine(c); ok {
		SuccessResponse(c, http.StatusOK, "ok", engine.Releases())
	}
}

// AddMilestone 草稿阶段追加里程碑
func (h *PoolHandler) AddMilestone(c *gin.Context) {
	ref, err := addressParam(c, "ref")
	if err != nil {
		HandleError(c, err)
		return
	}
	var req MilestoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	m, err := h.svc.AddMilestone(c.Request.Context(), ref, caller(c), model.MilestoneInput{
		Title:       req.Title,
		Description: req.Description,
		Percentage:  req.Percentage,
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusCreated, "里程碑添加成功", m)
}

// DesignateSubmitter 指定证明提交人
func (h *PoolHandler) DesignateSubmitter(c *gin.Context) {
	ref, err := addressParam(c, "ref")
	if err != nil {
		HandleError(c, err)
		return
	}
	var req SubmitterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.svc.DesignateSubmitter(c.Request.Context(), ref, caller(c), req.Submitter); err != nil {
		HandleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "提交人已更新", nil)
}

// SubmitProof 提交里程碑证明
func (h *PoolHandler) SubmitProof(c *gin.Context) {
	ref, err := addressParam(c, "ref")
	if err != nil {
		HandleError(c, err)
		return
	}
	id, err := milestoneParam(c)
	if err != nil {
		HandleError(c, err)
		return
	}
	var req ProofRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	m, err := h.svc.SubmitMilestoneProof(c.Request.Context(), ref, caller(c), id, req.ProofURL, req.ProofDescription)
	if err != nil {
		HandleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "证明已提交", m)
}

// Vote 成员投票
func (h *PoolHandler) Vote(c *gin.Context) {
	ref, err := addressParam(c, "ref")
	if err != nil {
		HandleError(c, err)
		return
	}
	id, err := milestoneParam(c)
	if err != nil {
		HandleError(c, err)
		return
	}
	var req VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	m, err := h.svc.VoteOnMilestone(c.Request.Context(), ref, caller(c), id, *req.InFavor)
	if err != nil {
		HandleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "投票成功", m)
}

// Approve 创建者审批通过
func (h *PoolHandler) Approve(c *gin.Context) {
	h.decide(c, h.svc.ApproveMilestone)
}

// Reject 创建者审批拒绝
func (h *PoolHandler) Reject(c *gin.Context) {
	h.decide(c, h.svc.RejectMilestone)
}

func (h *PoolHandler) decide(c *gin.Context, fn decision) {
	ref, err := addressParam(c, "ref")
	if err != nil {
		HandleError(c, err)
		return
	}
	id, err := milestoneParam(c)
	if err != nil {
		HandleError(c, err)
		return
	}
	m, err := fn(c.Request.Context(), ref, caller(c), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "ok", m)
}

// UpdateStatus 运营方推进资金池状态
func (h *PoolHandler) UpdateStatus(c *gin.Context) {
	ref, err := addressParam(c, "ref")
	if err != nil {
		HandleError(c, err)
		return
	}
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.svc.UpdatePoolStatus(c.Request.Context(), ref, caller(c), req.Status); err != nil {
		HandleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "状态已更新", gin.H{"status": req.Status})
}

// GetByVanity 根据短链接查询资金池
func (h *PoolHandler) GetByVanity(c *gin.Context) {
	slug := c.Param("slug")
	ref, err := h.svc.Registry().GetPoolByVanityURL(slug)
	if err != nil {
		HandleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "ok", VanityResponse{Slug: slug, Pool: ref})
}

// VanityAvailable 短链接是否可用
func (h *PoolHandler) VanityAvailable(c *gin.Context) {
	slug := c.Param("slug")
	SuccessResponse(c, http.StatusOK, "ok", VanityResponse{
		Slug:      slug,
		Available: h.svc.Registry().IsVanityURLAvailable(slug),
	})
}

// GetCreatorPools 获取创建者的资金池
func (h *PoolHandler) GetCreatorPools(c *gin.Context) {
	creator, err := addressParam(c, "address")
	if err != nil {
		HandleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "ok", h.svc.Registry().GetCreatorPools(creator))
}

type decision func(ctx context.Context, ref, caller common.Address, id int) (model.Milestone, error)
