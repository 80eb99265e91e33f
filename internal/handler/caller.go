package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/UPool-Fun/UPool-sub000/internal/model"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
)

// CallerHeader 调用方身份，由外部钱包连接层注入
const CallerHeader = "X-Caller-Address"

const callerKey = "caller"

// RequireCaller 解析调用方地址，缺失时返回 401
func RequireCaller() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(CallerHeader)
		if !common.IsHexAddress(raw) {
			ErrorResponse(c, http.StatusUnauthorized, errMissingCaller.Error())
			c.Abort()
			return
		}
		c.Set(callerKey, common.HexToAddress(raw))
		c.Next()
	}
}

func caller(c *gin.Context) common.Address {
	if v, ok := c.Get(callerKey); ok {
		if addr, ok := v.(common.Address); ok {
			return addr
		}
	}
	return common.Address{}
}

func addressParam(c *gin.Context, name string) (common.Address, error) {
	raw := c.Param(name)
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("%w: %q", model.ErrInvalidAddress, raw)
	}
	return common.HexToAddress(raw), nil
}

func milestoneParam(c *gin.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id < 0 {
		return 0, fmt.Errorf("%w: id %q", model.ErrMilestoneNotFound, c.Param("id"))
	}
	return id, nil
}
