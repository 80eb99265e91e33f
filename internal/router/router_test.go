package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/UPool-Fun/UPool-sub000/internal/handler"
	"github.com/UPool-Fun/UPool-sub000/internal/journal"
	"github.com/UPool-Fun/UPool-sub000/internal/logic"
	"github.com/UPool-Fun/UPool-sub000/internal/metrics"
	"github.com/UPool-Fun/UPool-sub000/internal/model"
	"github.com/UPool-Fun/UPool-sub000/internal/registry"
	"github.com/UPool-Fun/UPool-sub000/internal/relay"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	owner    = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	treasury = common.HexToAddress("0x00000000000000000000000000000000000000bb")
	factory  = common.HexToAddress("0x00000000000000000000000000000000000000cc")
	creator  = common.HexToAddress("0x0000000000000000000000000000000000000c01")
	alice    = common.HexToAddress("0x0000000000000000000000000000000000000a11")
)

const relayToken = "secret"

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Kind    string          `json:"kind"`
	Data    json.RawMessage `json:"data"`
}

func newEngine(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	reg, err := registry.New(registry.Config{Owner: owner, Treasury: treasury, FactoryAddress: factory}, journal.NewMemory())
	require.NoError(t, err)
	m := metrics.NewCollector()
	svc := logic.NewService(reg, m, nil)
	rl, err := relay.New(svc, relay.NewProcessorManager(nil), 2, m)
	require.NoError(t, err)
	t.Cleanup(rl.Release)

	return Setup(Deps{Service: svc, Relay: rl, Metrics: m, RelayToken: relayToken})
}

func do(t *testing.T, r *gin.Engine, method, path string, caller *common.Address, body any, headers ...string) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if caller != nil {
		req.Header.Set(handler.CallerHeader, caller.Hex())
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w.Code, env
}

func createPool(t *testing.T, r *gin.Engine) common.Address {
	t.Helper()
	code, env := do(t, r, http.MethodPost, "/api/v1/pools", &creator, handler.CreatePoolRequest{
		Config: model.PoolConfig{
			Title:          "Community garden",
			FundingGoal:    1000,
			Currency:       "USDC",
			ApprovalMethod: model.ApprovalCreatorOnly,
			VanityURL:      "garden",
		},
		Milestones: []model.MilestoneInput{{Title: "Build", Percentage: 10_000}},
	})
	require.Equal(t, http.StatusCreated, code, env.Message)

	var res registry.CreatePoolResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	return res.Pool
}

func TestHealthAndMetrics(t *testing.T) {
	r := newEngine(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "upool_api_requests_total")
}

func TestPoolLifecycleOverHTTP(t *testing.T) {
	r := newEngine(t)
	ref := createPool(t, r)
	base := "/api/v1/pools/" + ref.Hex()

	code, env := do(t, r, http.MethodGet, "/api/v1/vanity/garden", nil, nil)
	require.Equal(t, http.StatusOK, code)
	var vanity handler.VanityResponse
	require.NoError(t, json.Unmarshal(env.Data, &vanity))
	assert.Equal(t, ref, vanity.Pool)

	code, env = do(t, r, http.MethodGet, "/api/v1/vanity/garden/available", nil, nil)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &vanity))
	assert.False(t, vanity.Available)

	// 非运营方不能推进状态
	code, env = do(t, r, http.MethodPut, base+"/status", &creator, handler.StatusRequest{Status: model.PoolStatusPendingPayment})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, string(model.KindAuthorization), env.Kind)

	for _, s := range []model.PoolStatus{model.PoolStatusPendingPayment, model.PoolStatusActive} {
		code, env = do(t, r, http.MethodPut, base+"/status", &owner, handler.StatusRequest{Status: s})
		require.Equal(t, http.StatusOK, code, env.Message)
	}

	batch := handler.RelayRequest{Confirmations: []relay.PaymentConfirmation{
		{Pool: ref, Contributor: alice, Amount: 1000, TxRef: "pi_1", Source: "card"},
	}}
	code, _ = do(t, r, http.MethodPost, "/api/v1/relay/contributions", nil, batch)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, env = do(t, r, http.MethodPost, "/api/v1/relay/contributions", nil, batch, handler.RelayTokenHeader, relayToken)
	require.Equal(t, http.StatusOK, code)
	var relayed handler.RelayResponse
	require.NoError(t, json.Unmarshal(env.Data, &relayed))
	assert.Equal(t, 1, relayed.Recorded)
	assert.Zero(t, relayed.Failed)

	code, env = do(t, r, http.MethodPost, base+"/milestones/0/proof", &creator, handler.ProofRequest{ProofURL: "https://example.org/proof"})
	require.Equal(t, http.StatusOK, code, env.Message)

	code, env = do(t, r, http.MethodPost, base+"/milestones/0/approve", &creator, nil)
	require.Equal(t, http.StatusOK, code, env.Message)
	var m model.Milestone
	require.NoError(t, json.Unmarshal(env.Data, &m))
	assert.Equal(t, model.MilestoneStatusApproved, m.Status)

	code, env = do(t, r, http.MethodGet, base, nil, nil)
	require.Equal(t, http.StatusOK, code)
	var detail handler.PoolResponse
	require.NoError(t, json.Unmarshal(env.Data, &detail))
	assert.Equal(t, int64(1000), detail.Stats.TotalRaised)
	assert.Equal(t, "0.001000", detail.TotalRaisedDisplay)
	assert.True(t, detail.Registered)

	code, env = do(t, r, http.MethodGet, base+"/releases", nil, nil)
	require.Equal(t, http.StatusOK, code)
	var releases []model.Release
	require.NoError(t, json.Unmarshal(env.Data, &releases))
	assert.Len(t, releases, 1)
}

func TestPoolErrors(t *testing.T) {
	r := newEngine(t)

	code, env := do(t, r, http.MethodPost, "/api/v1/pools", nil, handler.CreatePoolRequest{})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.False(t, env.Success)

	code, env = do(t, r, http.MethodGet, "/api/v1/pools/not-an-address", nil, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, string(model.KindConfiguration), env.Kind)

	code, env = do(t, r, http.MethodGet, "/api/v1/pools/"+alice.Hex(), nil, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, string(model.KindNotFound), env.Kind)

	ref := createPool(t, r)
	code, env = do(t, r, http.MethodPost, "/api/v1/pools/"+ref.Hex()+"/milestones/abc/proof", &creator, handler.ProofRequest{ProofURL: "x"})
	assert.Equal(t, http.StatusNotFound, code, env.Message)

	code, _ = do(t, r, http.MethodPost, "/api/v1/pools/"+ref.Hex()+"/milestones/0/votes", &alice, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestRegistryAdministration(t *testing.T) {
	r := newEngine(t)

	code, env := do(t, r, http.MethodPost, "/api/v1/registry/pause", &alice, nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, string(model.KindAuthorization), env.Kind)

	fee := int64(25)
	code, env = do(t, r, http.MethodPut, "/api/v1/registry/creation-fee", &owner, handler.CreationFeeRequest{Fee: &fee})
	require.Equal(t, http.StatusOK, code, env.Message)

	// 创建费不足
	code, env = do(t, r, http.MethodPost, "/api/v1/pools", &creator, handler.CreatePoolRequest{
		Config: model.PoolConfig{
			Title:          "Underpaid",
			FundingGoal:    100,
			Currency:       "EUR",
			ApprovalMethod: model.ApprovalMajority,
		},
		Milestones: []model.MilestoneInput{{Title: "All", Percentage: 10_000}},
		FeePaid:    10,
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.Message, model.ErrInsufficientCreationFee.Error())

	code, _ = do(t, r, http.MethodPost, "/api/v1/registry/pause", &owner, nil)
	require.Equal(t, http.StatusOK, code)
	code, env = do(t, r, http.MethodPost, "/api/v1/registry/pause", &owner, nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, string(model.KindState), env.Kind)

	code, env = do(t, r, http.MethodGet, "/api/v1/registry", nil, nil)
	require.Equal(t, http.StatusOK, code)
	var stats model.RegistryStats
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.True(t, stats.Paused)
	assert.Equal(t, int64(25), stats.CreationFee)

	code, _ = do(t, r, http.MethodPost, "/api/v1/registry/unpause", &owner, nil)
	require.Equal(t, http.StatusOK, code)

	code, env = do(t, r, http.MethodPost, "/api/v1/registry/withdraw", &owner, nil)
	assert.Equal(t, http.StatusConflict, code, env.Message)
}

func TestTemplates(t *testing.T) {
	r := newEngine(t)

	code, env := do(t, r, http.MethodPost, "/api/v1/templates", &owner, handler.TemplateRequest{
		Name:              "conservative",
		RiskStrategy:      "low",
		ApprovalMethod:    model.ApprovalPercentageThreshold,
		ApprovalThreshold: 6000,
	})
	require.Equal(t, http.StatusCreated, code, env.Message)

	inactive := false
	code, env = do(t, r, http.MethodPut, "/api/v1/templates/conservative/status", &owner, handler.TemplateStatusRequest{Active: &inactive})
	require.Equal(t, http.StatusOK, code, env.Message)

	code, env = do(t, r, http.MethodGet, "/api/v1/templates", nil, nil)
	require.Equal(t, http.StatusOK, code)
	var templates []model.Template
	require.NoError(t, json.Unmarshal(env.Data, &templates))
	require.Len(t, templates, 1)
	assert.False(t, templates[0].Active)
}
