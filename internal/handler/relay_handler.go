package handler

import (
	"crypto/subtle"
	"net/http"

	"github.com/UPool-Fun/UPool-sub000/internal/model"
	"github.com/UPool-Fun/UPool-sub000/internal/relay"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RelayTokenHeader 支付确认提交方凭证
const RelayTokenHeader = "X-Relay-Token"

type RelayHandler struct {
	relay *relay.Relay
}

func NewRelayHandler(r *relay.Relay) *RelayHandler {
	return &RelayHandler{relay: r}
}

// RequireRelayToken 校验中继凭证，未配置凭证时拒绝所有请求
func RequireRelayToken(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader(RelayTokenHeader)
		if token == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			ErrorResponse(c, http.StatusUnauthorized, "invalid relay token")
			c.Abort()
			return
		}
		c.Next()
	}
}

// SubmitContributions 批量提交支付确认
func (h *RelayHandler) SubmitContributions(c *gin.Context) {
	var req RelayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	results := h.relay.Process(c.Request.Context(), "http", req.Confirmations)
	resp := RelayResponse{Results: results}
	for _, r := range results {
		if r.Recorded {
			resp.Recorded++
		} else {
			resp.Failed++
		}
	}
	SuccessResponse(c, http.StatusOK, "ok", resp)
}

// RateLimit 中继入口限流，limiter 为空时不限流
func RateLimit(limiter *rate.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter != nil && !limiter.Allow() {
			c.JSON(http.StatusTooManyRequests, Response{
				Success: false,
				Message: "relay rate limit exceeded",
				Kind:    string(model.KindCapacity),
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
