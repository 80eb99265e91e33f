package chain

import (
	"context"
	"fmt"
	"sync"

	"github.com/UPool-Fun/UPool-sub000/internal/config"
	"github.com/UPool-Fun/UPool-sub000/internal/logger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Manager 单链管理器
type Manager struct {
	mu       sync.RWMutex
	client   *ethclient.Client
	verifier *Verifier
	config   config.ChainConfig
}

// NewManager 连接链节点并创建支付校验器
func NewManager(ctx context.Context, cfg config.ChainConfig) (*Manager, error) {
	if cfg.RpcUrl == "" {
		return nil, fmt.Errorf("no RPC URL configured")
	}
	if cfg.TokenAddress != "" && !common.IsHexAddress(cfg.TokenAddress) {
		return nil, fmt.Errorf("invalid token address %q", cfg.TokenAddress)
	}

	logger.Info("Creating chain client connection (chain id: %d)", cfg.ChainId)
	client, err := ethclient.DialContext(ctx, cfg.RpcUrl)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	if err := testClientConnection(ctx, client); err != nil {
		client.Close()
		return nil, fmt.Errorf("client connection test failed: %w", err)
	}

	verifier, err := NewVerifier(client, common.HexToAddress(cfg.TokenAddress), cfg.Confirmations)
	if err != nil {
		client.Close()
		return nil, err
	}

	logger.Info("Successfully created chain client")
	return &Manager{client: client, verifier: verifier, config: cfg}, nil
}

func testClientConnection(ctx context.Context, client *ethclient.Client) error {
	if _, err := client.BlockNumber(ctx); err != nil {
		return fmt.Errorf("failed to get block number: %w", err)
	}
	return nil
}

// GetVerifier 获取支付校验器
func (m *Manager) GetVerifier() *Verifier {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.verifier
}

// GetClient 获取链客户端
func (m *Manager) GetClient() *ethclient.Client {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.client
}

// GetTokenAddress 获取代币合约地址
func (m *Manager) GetTokenAddress() common.Address {
	return common.HexToAddress(m.config.TokenAddress)
}

// GetConfirmations 获取所需确认数
func (m *Manager) GetConfirmations() uint64 {
	return m.config.Confirmations
}

// GetChainId 获取链ID
func (m *Manager) GetChainId() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config.ChainId
}

// GetHealthStatus 获取健康状态
func (m *Manager) GetHealthStatus(ctx context.Context) map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	health := map[string]interface{}{
		"chain_id":      m.config.ChainId,
		"token":         m.config.TokenAddress,
		"confirmations": m.config.Confirmations,
		"client_status": "connected",
	}
	if m.client == nil {
		health["client_status"] = "not_initialized"
	} else if _, err := m.client.BlockNumber(ctx); err != nil {
		health["client_status"] = "disconnected"
	}
	return health
}

// Close 关闭管理器
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.client != nil {
		m.client.Close()
		m.client = nil
	}

	logger.Info("Chain manager closed")
	return nil
}
