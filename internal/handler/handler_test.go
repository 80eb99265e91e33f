package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/UPool-Fun/UPool-sub000/internal/model"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestStatusForKind(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("wrap: %w", model.ErrVanityURLTaken), http.StatusBadRequest},
		{model.ErrOnlyCreator, http.StatusForbidden},
		{model.ErrAlreadyVoted, http.StatusConflict},
		{model.ErrMaxPoolsExceeded, http.StatusTooManyRequests},
		{model.ErrTemplateNotFound, http.StatusNotFound},
		{errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusForKind(model.KindOf(tt.err)), tt.err.Error())
	}
}

func TestHandleErrorHidesInternalErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	HandleError(c, errors.New("connection refused to 10.0.0.1"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "10.0.0.1")
}

func TestRequireCaller(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/whoami", RequireCaller(), func(c *gin.Context) {
		c.String(http.StatusOK, caller(c).Hex())
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set(CallerHeader, "0x0000000000000000000000000000000000000a11")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, common.HexToAddress("0x0000000000000000000000000000000000000a11").Hex(), w.Body.String())
}

func TestRequireRelayToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/open", RequireRelayToken(""), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.POST("/guarded", RequireRelayToken("s3"), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/open", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/guarded", nil)
	req.Header.Set(RelayTokenHeader, "s3")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/relay", RateLimit(rate.NewLimiter(rate.Every(time.Hour), 1)), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/relay", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/relay", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), string(model.KindCapacity))
}

func TestRegisterValidationsReportsFailures(t *testing.T) {
	v := validator.New()
	require.NoError(t, registerValidations(v, customValidations))
	assert.NoError(t, v.Var("majority", "approval_method"))
	assert.Error(t, v.Var("unanimous", "approval_method"))
	assert.NoError(t, v.Var("active", "pool_status"))

	err := registerValidations(validator.New(), map[string]validator.Func{
		"": func(validator.FieldLevel) bool { return true },
	})
	assert.Error(t, err)
}

func TestCustomValidators(t *testing.T) {
	gin.SetMode(gin.TestMode)
	RegisterValidators()
	r := gin.New()
	r.PUT("/status", func(c *gin.Context) {
		var req StatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.Status(http.StatusBadRequest)
			return
		}
		c.Status(http.StatusNoContent)
	})

	for body, want := range map[string]int{
		`{"status":"active"}`:   http.StatusNoContent,
		`{"status":"archived"}`: http.StatusBadRequest,
	} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/status", strings.NewReader(body)))
		assert.Equal(t, want, w.Code, body)
	}
}
