package handler

import (
	"net/http"

	"github.com/UPool-Fun/UPool-sub000/internal/logic"
	"github.com/UPool-Fun/UPool-sub000/internal/model"
	"github.com/gin-gonic/gin"
)

type RegistryHandler struct {
	svc *logic.Service
}

func NewRegistryHandler(svc *logic.Service) *RegistryHandler {
	return &RegistryHandler{svc: svc}
}

// GetRegistry 获取注册表状态
func (h *RegistryHandler) GetRegistry(c *gin.Context) {
	SuccessResponse(c, http.StatusOK, "ok", h.svc.Registry().Stats())
}

// RegisterPool 直接登记外部部署的资金池
func (h *RegistryHandler) RegisterPool(c *gin.Context) {
	var req RegisterPoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	entry, err := h.svc.RegisterPool(c.Request.Context(), req.Pool, req.Creator, req.FeePaid)
	if err != nil {
		HandleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusCreated, "资金池登记成功", entry)
}

// RemovePool 移除资金池
func (h *RegistryHandler) RemovePool(c *gin.Context) {
	ref, err := addressParam(c, "ref")
	if err != nil {
		HandleError(c, err)
		return
	}
	if err := h.svc.RemovePool(c.Request.Context(), caller(c), ref); err != nil {
		HandleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "资金池已移除", nil)
}

func (h *RegistryHandler) UpdateCreationFee(c *gin.Context) {
	var req CreationFeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.svc.UpdateCreationFee(c.Request.Context(), caller(c), *req.Fee); err != nil {
		HandleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "创建费已更新", gin.H{"creationFee": *req.Fee})
}

func (h *RegistryHandler) UpdateMaxPools(c *gin.Context) {
	var req MaxPoolsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.svc.UpdateMaxPoolsPerCreator(c.Request.Context(), caller(c), req.Max); err != nil {
		HandleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "资金池上限已更新", gin.H{"maxPoolsPerCreator": req.Max})
}

func (h *RegistryHandler) UpdateTreasury(c *gin.Context) {
	var req AddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.svc.UpdateTreasury(c.Request.Context(), caller(c), req.Address); err != nil {
		HandleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "国库地址已更新", gin.H{"treasury": req.Address})
}

func (h *RegistryHandler) Pause(c *gin.Context) {
	if err := h.svc.Pause(c.Request.Context(), caller(c)); err != nil {
		HandleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "注册表已暂停", nil)
}

func (h *RegistryHandler) Unpause(c *gin.Context) {
	if err := h.svc.Unpause(c.Request.Context(), caller(c)); err != nil {
		HandleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "注册表已恢复", nil)
}

// WithdrawFees 手动提取平台费
func (h *RegistryHandler) WithdrawFees(c *gin.Context) {
	w, err := h.svc.WithdrawFees(c.Request.Context(), caller(c), logic.TriggerManual)
	if err != nil {
		HandleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "平台费已提取", w)
}

// TransferOwnership 转移注册表所有权
func (h *RegistryHandler) TransferOwnership(c *gin.Context) {
	var req AddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.svc.TransferOwnership(c.Request.Context(), caller(c), req.Address); err != nil {
		HandleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "所有权已转移", gin.H{"owner": req.Address})
}

func (h *RegistryHandler) GetTemplates(c *gin.Context) {
	SuccessResponse(c, http.StatusOK, "ok", h.svc.Registry().Templates())
}

// AddTemplate 添加资金池模板
func (h *RegistryHandler) AddTemplate(c *gin.Context) {
	var req TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	tpl, err := h.svc.AddTemplate(c.Request.Context(), caller(c), model.Template{
		Name:              req.Name,
		Description:       req.Description,
		RiskStrategy:      req.RiskStrategy,
		ApprovalMethod:    req.ApprovalMethod,
		ApprovalThreshold: req.ApprovalThreshold,
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusCreated, "模板添加成功", tpl)
}

func (h *RegistryHandler) UpdateTemplateStatus(c *gin.Context) {
	var req TemplateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	name := c.Param("name")
	if err := h.svc.UpdateTemplateStatus(c.Request.Context(), caller(c), name, *req.Active); err != nil {
		HandleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "模板状态已更新", gin.H{"name": name, "active": *req.Active})
}
