package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix 是所有环境变量覆盖项的前缀，例如 CCIP_SERVER_ADDRESS。
const EnvPrefix = "CCIP"

// Config 描述了 ccipd 与 ccipctl 在启动阶段需要加载的全部配置。
type Config struct {
	Server     ServerConfig      `mapstructure:"server"`
	Logging    LoggingConfig     `mapstructure:"logging"`
	Chains     ChainsConfig      `mapstructure:"chains"`
	Registry   RegistryConfig    `mapstructure:"registry"`
	Dispatcher DispatcherConfig  `mapstructure:"dispatcher"`
	Submitter  SubmitterConfig   `mapstructure:"submitter"`
	Solana     SolanaConfig      `mapstructure:"solana"`
	Transfer   TransferConfig    `mapstructure:"transfer"`
	Methods    map[string]string `mapstructure:"methods"`
	Poller     PollerConfig      `mapstructure:"poller"`
	Alerting   AlertingConfig    `mapstructure:"alerting"`
}

// ServerConfig 控制 HTTP API 的监听地址与超时。
type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoggingConfig 对应 pkg/logger 的初始化参数。
type LoggingConfig struct {
	Level       string      `mapstructure:"level"`
	Format      string      `mapstructure:"format"`
	OutputPaths []string    `mapstructure:"output_paths"`
	Audit       AuditConfig `mapstructure:"audit"`
}

// AuditConfig 控制审计日志文件及其轮转。
type AuditConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// ChainsConfig 指向链选择器表，为空时使用内置的测试网表。
type ChainsConfig struct {
	Path string `mapstructure:"path"`
}

// RegistryConfig 选择转账状态表的存储后端及超时策略。
type RegistryConfig struct {
	Driver string      `mapstructure:"driver"`
	MySQL  MySQLConfig `mapstructure:"mysql"`
	Redis  RedisConfig `mapstructure:"redis"`
	// TimeoutAfter 为 0 时不做超时标注。
	TimeoutAfter time.Duration `mapstructure:"timeout_after"`
	// LateResult 为 accept 或 reject，决定超时后到达的结果是否覆盖 timeout。
	LateResult string `mapstructure:"late_result"`
}

// MySQLConfig 描述 MySQL 连接池。
type MySQLConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// RedisConfig 描述 Redis 连接以及记录的 key 前缀与 TTL。
type RedisConfig struct {
	Address   string        `mapstructure:"address"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	KeyPrefix string        `mapstructure:"key_prefix"`
	TTL       time.Duration `mapstructure:"ttl"`
}

// DispatcherConfig 选择任务队列并控制 worker 数量。
type DispatcherConfig struct {
	Driver        string         `mapstructure:"driver"`
	Workers       int            `mapstructure:"workers"`
	QueueSize     int            `mapstructure:"queue_size"`
	SubmitTimeout time.Duration  `mapstructure:"submit_timeout"`
	Redis         RedisQueue     `mapstructure:"redis"`
	RabbitMQ      RabbitMQConfig `mapstructure:"rabbitmq"`
}

// RedisQueue 描述基于 Redis list 的任务队列。
type RedisQueue struct {
	Address   string        `mapstructure:"address"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	Queue     string        `mapstructure:"queue"`
	BlockWait time.Duration `mapstructure:"block_wait"`
}

// RabbitMQConfig 描述 RabbitMQ 队列。
type RabbitMQConfig struct {
	URL      string `mapstructure:"url"`
	Queue    string `mapstructure:"queue"`
	Prefetch int    `mapstructure:"prefetch"`
	Durable  bool   `mapstructure:"durable"`
}

// SubmitterConfig 选择执行路径：进程内签名（svm）或外部命令（command）。
type SubmitterConfig struct {
	Mode           string        `mapstructure:"mode"`
	ComputeUnits   uint32        `mapstructure:"compute_units"`
	ConfirmTimeout time.Duration `mapstructure:"confirm_timeout"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	Command        CommandConfig `mapstructure:"command"`
}

// CommandConfig 描述外部签名进程的调用方式，参数支持 {mint} 等占位符。
type CommandConfig struct {
	Name    string   `mapstructure:"name"`
	Args    []string `mapstructure:"args"`
	WorkDir string   `mapstructure:"workdir"`
	Env     []string `mapstructure:"env"`
}

// SolanaConfig 包含 RPC 地址与签名密钥。RPCURLs 为空时使用链表中的地址。
// Authority 只在 command 模式下、且本地没有私钥时用于推导账户。
type SolanaConfig struct {
	Chain       string   `mapstructure:"chain"`
	RPCURLs     []string `mapstructure:"rpc_urls"`
	Commitment  string   `mapstructure:"commitment"`
	PrivateKey  string   `mapstructure:"private_key"`
	KeypairPath string   `mapstructure:"keypair_path"`
	Authority   string   `mapstructure:"authority"`
}

// TransferConfig 是转账执行参数的默认值。
type TransferConfig struct {
	FeeToken                 string `mapstructure:"fee_token"`
	GasLimit                 uint64 `mapstructure:"gas_limit"`
	AllowOutOfOrderExecution bool   `mapstructure:"allow_out_of_order_execution"`
	DefaultReceiver          string `mapstructure:"default_receiver"`
}

// PollerConfig 控制客户端状态轮询。
type PollerConfig struct {
	Interval     time.Duration `mapstructure:"interval"`
	MaxAttempts  int           `mapstructure:"max_attempts"`
	InitialDelay time.Duration `mapstructure:"initial_delay"`
}

// AlertingConfig 控制失败告警。
// WebhookURL 为空时只写日志。
type AlertingConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	WebhookURL     string        `mapstructure:"webhook_url"`
	WebhookTimeout time.Duration `mapstructure:"webhook_timeout"`
}

// 旧版脚本使用的环境变量，继续兼容。
var legacyEnv = map[string]string{
	"solana.rpc_urls":     "SOLANA_RPC_URL",
	"solana.private_key":  "SOLANA_PRIVATE_KEY",
	"solana.keypair_path": "SOLANA_KEYPAIR_PATH",
}

// Load 读取配置。path 为空时只使用默认值与环境变量；path 所在目录与当前目录下的
// .env 文件会先被加载，已存在的环境变量不会被覆盖。
func Load(path string) (*Config, error) {
	if err := loadDotEnv(path); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		if err := v.BindEnv(key, envName(key), legacy); err != nil {
			return nil, fmt.Errorf("绑定环境变量失败: %w", err)
		}
	}

	if strings.TrimSpace(path) != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadDotEnv(path string) error {
	candidates := []string{".env"}
	if strings.TrimSpace(path) != "" {
		if local := filepath.Join(filepath.Dir(path), ".env"); local != ".env" {
			candidates = append(candidates, local)
		}
	}
	for _, candidate := range candidates {
		if err := godotenv.Load(candidate); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("加载 %s 失败: %w", candidate, err)
		}
	}
	return nil
}

func envName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output_paths", []string{"stdout"})
	v.SetDefault("logging.audit.enabled", false)
	v.SetDefault("logging.audit.path", "logs/audit.log")
	v.SetDefault("logging.audit.max_size_mb", 100)
	v.SetDefault("logging.audit.max_backups", 7)
	v.SetDefault("logging.audit.max_age_days", 30)
	v.SetDefault("logging.audit.compress", false)

	v.SetDefault("chains.path", "")

	v.SetDefault("registry.driver", "memory")
	v.SetDefault("registry.mysql.dsn", "")
	v.SetDefault("registry.mysql.max_open_conns", 10)
	v.SetDefault("registry.mysql.max_idle_conns", 5)
	v.SetDefault("registry.mysql.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("registry.mysql.conn_max_idle_time", 5*time.Minute)
	v.SetDefault("registry.redis.address", "")
	v.SetDefault("registry.redis.password", "")
	v.SetDefault("registry.redis.db", 0)
	v.SetDefault("registry.redis.key_prefix", "ccip:transfer:")
	v.SetDefault("registry.redis.ttl", time.Duration(0))
	v.SetDefault("registry.timeout_after", time.Duration(0))
	v.SetDefault("registry.late_result", "accept")

	v.SetDefault("dispatcher.driver", "memory")
	v.SetDefault("dispatcher.workers", 4)
	v.SetDefault("dispatcher.queue_size", 64)
	v.SetDefault("dispatcher.submit_timeout", 5*time.Minute)
	v.SetDefault("dispatcher.redis.address", "")
	v.SetDefault("dispatcher.redis.password", "")
	v.SetDefault("dispatcher.redis.db", 0)
	v.SetDefault("dispatcher.redis.queue", "ccip:jobs")
	v.SetDefault("dispatcher.redis.block_wait", 5*time.Second)
	v.SetDefault("dispatcher.rabbitmq.url", "")
	v.SetDefault("dispatcher.rabbitmq.queue", "ccip.jobs")
	v.SetDefault("dispatcher.rabbitmq.prefetch", 4)
	v.SetDefault("dispatcher.rabbitmq.durable", true)

	v.SetDefault("submitter.mode", "svm")
	v.SetDefault("submitter.compute_units", 1_400_000)
	v.SetDefault("submitter.confirm_timeout", 90*time.Second)
	v.SetDefault("submitter.poll_interval", time.Second)
	v.SetDefault("submitter.command.name", "yarn")
	v.SetDefault("submitter.command.args", []string{
		"svm:token-transfer", "--",
		"--token-mint", "{mint}",
		"--token-amount", "{amount}",
		"--receiver", "{receiver}",
	})
	v.SetDefault("submitter.command.workdir", "")
	v.SetDefault("submitter.command.env", []string{})

	v.SetDefault("solana.chain", "solana-devnet")
	v.SetDefault("solana.rpc_urls", []string{})
	v.SetDefault("solana.commitment", "confirmed")
	v.SetDefault("solana.private_key", "")
	v.SetDefault("solana.keypair_path", "")
	v.SetDefault("solana.authority", "")

	v.SetDefault("transfer.fee_token", "NATIVE")
	v.SetDefault("transfer.gas_limit", 0)
	v.SetDefault("transfer.allow_out_of_order_execution", true)
	v.SetDefault("transfer.default_receiver", "")

	v.SetDefault("methods", map[string]string{})

	v.SetDefault("poller.interval", 5*time.Second)
	v.SetDefault("poller.max_attempts", 60)
	v.SetDefault("poller.initial_delay", 2*time.Second)

	v.SetDefault("alerting.enabled", true)
	v.SetDefault("alerting.webhook_url", "")
	v.SetDefault("alerting.webhook_timeout", 5*time.Second)
}

func (c *Config) normalize() {
	c.Registry.Driver = strings.ToLower(strings.TrimSpace(c.Registry.Driver))
	c.Registry.LateResult = strings.ToLower(strings.TrimSpace(c.Registry.LateResult))
	c.Dispatcher.Driver = strings.ToLower(strings.TrimSpace(c.Dispatcher.Driver))
	c.Submitter.Mode = strings.ToLower(strings.TrimSpace(c.Submitter.Mode))
	if c.Submitter.Mode == "solana" {
		c.Submitter.Mode = "svm"
	}
	c.Transfer.FeeToken = strings.ToUpper(strings.TrimSpace(c.Transfer.FeeToken))
	c.Solana.RPCURLs = splitList(c.Solana.RPCURLs)
	if c.Dispatcher.Workers <= 0 {
		c.Dispatcher.Workers = 1
	}
	if c.Poller.MaxAttempts <= 0 {
		c.Poller.MaxAttempts = 60
	}
}

// splitList 兼容以逗号分隔的单个环境变量值。
func splitList(values []string) []string {
	var out []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Validate 检查枚举型配置项以及各驱动所需的连接信息。
func (c *Config) Validate() error {
	var errs []error
	switch c.Registry.Driver {
	case "memory":
	case "redis":
		if c.Registry.Redis.Address == "" {
			errs = append(errs, errors.New("registry.redis.address 不能为空"))
		}
	case "mysql":
		if c.Registry.MySQL.DSN == "" {
			errs = append(errs, errors.New("registry.mysql.dsn 不能为空"))
		}
	default:
		errs = append(errs, fmt.Errorf("未知的 registry.driver %q", c.Registry.Driver))
	}
	switch c.Registry.LateResult {
	case "", "accept", "reject":
	default:
		errs = append(errs, fmt.Errorf("registry.late_result 必须是 accept 或 reject，实际为 %q", c.Registry.LateResult))
	}
	if c.Registry.TimeoutAfter < 0 {
		errs = append(errs, errors.New("registry.timeout_after 不能为负数"))
	}

	switch c.Dispatcher.Driver {
	case "memory":
	case "redis":
		if c.Dispatcher.Redis.Address == "" {
			errs = append(errs, errors.New("dispatcher.redis.address 不能为空"))
		}
	case "rabbitmq":
		if c.Dispatcher.RabbitMQ.URL == "" {
			errs = append(errs, errors.New("dispatcher.rabbitmq.url 不能为空"))
		}
	default:
		errs = append(errs, fmt.Errorf("未知的 dispatcher.driver %q", c.Dispatcher.Driver))
	}

	switch c.Submitter.Mode {
	case "svm":
	case "command":
		if strings.TrimSpace(c.Submitter.Command.Name) == "" {
			errs = append(errs, errors.New("submitter.command.name 不能为空"))
		}
	default:
		errs = append(errs, fmt.Errorf("submitter.mode 必须是 svm 或 command，实际为 %q", c.Submitter.Mode))
	}

	switch c.Transfer.FeeToken {
	case "", "NATIVE", "LINK":
	default:
		errs = append(errs, fmt.Errorf("transfer.fee_token 必须是 NATIVE 或 LINK，实际为 %q", c.Transfer.FeeToken))
	}
	if c.Poller.Interval < 0 || c.Poller.InitialDelay < 0 {
		errs = append(errs, errors.New("poller 的时间间隔不能为负数"))
	}
	return errors.Join(errs...)
}
