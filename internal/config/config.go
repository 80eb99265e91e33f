package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/UPool-Fun/UPool-sub000/internal/logger"
	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀，例如 UPOOL_DATABASE_HOST
const EnvPrefix = "UPOOL"

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Registry RegistryConfig `mapstructure:"registry"`
	Relay    RelayConfig    `mapstructure:"relay"`
	Chain    ChainConfig    `mapstructure:"chain"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Task     TaskConfig     `mapstructure:"task"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"` // postgres, sqlite
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	Path     string `mapstructure:"path"` // sqlite 文件路径，":memory:" 表示内存库
	LogLevel string `mapstructure:"log_level"`
}

// RegistryConfig 注册表与工厂配置
type RegistryConfig struct {
	Owner              string `mapstructure:"owner"`           // 所有者地址
	Operator           string `mapstructure:"operator"`        // 资金池运营方地址，为空时使用所有者
	FactoryAddress     string `mapstructure:"factory_address"` // 工厂地址，用于推导资金池地址
	Treasury           string `mapstructure:"treasury"`        // 收费地址
	CreationFee        int64  `mapstructure:"creation_fee"`
	MaxPoolsPerCreator int    `mapstructure:"max_pools_per_creator"`
}

// RelayConfig 支付确认中继配置
type RelayConfig struct {
	Token   string `mapstructure:"token"`   // X-Relay-Token
	Workers int    `mapstructure:"workers"` // 协程池大小

	RateLimit float64 `mapstructure:"rate_limit"` // 每秒批次数，0 表示不限流
	RateBurst int     `mapstructure:"rate_burst"`
}

// ChainConfig 链上支付校验配置
type ChainConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	ChainId       int64  `mapstructure:"chain_id"`
	RpcUrl        string `mapstructure:"rpc_url"`
	TokenAddress  string `mapstructure:"token_address"` // ERC-20 代币合约
	Confirmations uint64 `mapstructure:"confirmations"`

	// 转账扫描，自动将打给资金池的代币转账记为贡献
	MonitorEnabled bool          `mapstructure:"monitor_enabled"`
	StartBlock     uint64        `mapstructure:"start_block"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	BatchBlocks    uint64        `mapstructure:"batch_blocks"`
}

// KafkaConfig 消息队列配置
type KafkaConfig struct {
	Enabled       bool     `mapstructure:"enabled"`
	Brokers       []string `mapstructure:"brokers"`
	EventsTopic   string   `mapstructure:"events_topic"`
	PaymentsTopic string   `mapstructure:"payments_topic"`
	GroupId       string   `mapstructure:"group_id"`
}

type TaskConfig struct {
	FeeSweepInterval time.Duration `mapstructure:"fee_sweep_interval"`
	SnapshotInterval time.Duration `mapstructure:"snapshot_interval"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`  // 日志级别: debug, info, warn, error, fatal
	Output     string `mapstructure:"output"` // 输出目标: stdout, stderr, file
	File       string `mapstructure:"file"`   // 日志文件路径（当output为file时使用）
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// Logger 转换为日志器配置
func (l LogConfig) Logger() logger.Config {
	return logger.Config{
		Level:      l.Level,
		Output:     l.Output,
		File:       l.File,
		MaxSize:    l.MaxSize,
		MaxBackups: l.MaxBackups,
		MaxAge:     l.MaxAge,
		Compress:   l.Compress,
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "upool")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.path", "upool.db")
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("registry.owner", "")
	v.SetDefault("registry.operator", "")
	v.SetDefault("registry.factory_address", "")
	v.SetDefault("registry.treasury", "")
	v.SetDefault("registry.creation_fee", 0)
	v.SetDefault("registry.max_pools_per_creator", 10)
	v.SetDefault("relay.token", "")
	v.SetDefault("relay.workers", 16)
	v.SetDefault("relay.rate_limit", 20)
	v.SetDefault("relay.rate_burst", 40)
	v.SetDefault("chain.enabled", false)
	v.SetDefault("chain.chain_id", 8453)
	v.SetDefault("chain.rpc_url", "")
	v.SetDefault("chain.token_address", "")
	v.SetDefault("chain.confirmations", 12)
	v.SetDefault("chain.monitor_enabled", false)
	v.SetDefault("chain.start_block", 0)
	v.SetDefault("chain.poll_interval", "30s")
	v.SetDefault("chain.batch_blocks", 500)
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.events_topic", "upool.events")
	v.SetDefault("kafka.payments_topic", "upool.payments")
	v.SetDefault("kafka.group_id", "upool-relay")
	v.SetDefault("task.fee_sweep_interval", "24h")
	v.SetDefault("task.snapshot_interval", "1m")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.file", "logs/app.log")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 7)
	v.SetDefault("log.max_age", 30)
	v.SetDefault("log.compress", true)
}

// Load 读取配置文件和环境变量；path 为空时在默认目录查找 config.yaml
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/upool")
	}

	// 自动读取环境变量
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if path != "" {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		logger.Warn("Warning: Could not read config file: %v", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	return &cfg, nil
}
