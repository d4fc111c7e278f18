package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"CCIP-Bridge/internal/ccip/accounts"
	"CCIP-Bridge/internal/ccip/codec"
	"CCIP-Bridge/internal/config"
	"CCIP-Bridge/internal/observability/alerting"
	"CCIP-Bridge/internal/svm"
	"CCIP-Bridge/internal/transfer"
	"CCIP-Bridge/internal/web3"
	"CCIP-Bridge/pkg/logger"
)

func loggerConfig(cfg config.LoggingConfig) logger.Config {
	return logger.Config{
		Level:       cfg.Level,
		Format:      cfg.Format,
		OutputPaths: cfg.OutputPaths,
		Audit: logger.AuditConfig{
			Enabled:    cfg.Audit.Enabled,
			Path:       cfg.Audit.Path,
			MaxSizeMB:  cfg.Audit.MaxSizeMB,
			MaxBackups: cfg.Audit.MaxBackups,
			MaxAgeDays: cfg.Audit.MaxAgeDays,
			Compress:   cfg.Audit.Compress,
		},
	}
}

func sourceChain(chains *web3.Registry, name string) (*web3.Chain, error) {
	chain, ok := chains.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("源链 %q 不在链表中", name)
	}
	if chain.Family != web3.FamilySVM || chain.Programs == nil {
		return nil, fmt.Errorf("源链 %s 不是配置了 CCIP 程序的 SVM 链", chain.Key)
	}
	return chain, nil
}

// newCodec 用配置中的十六进制判别码覆盖默认值。
func newCodec(methods map[string]string) (*codec.Codec, error) {
	overrides := make(map[codec.Method]codec.Discriminator, len(methods))
	for name, raw := range methods {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		d, err := codec.ParseDiscriminator(raw)
		if err != nil {
			return nil, fmt.Errorf("methods.%s: %w", name, err)
		}
		overrides[codec.Method(strings.ToLower(name))] = d
	}
	return codec.New(overrides)
}

func newRPCClient(cfg config.SolanaConfig, source *web3.Chain) (*svm.RPCClient, error) {
	urls := cfg.RPCURLs
	if len(urls) == 0 {
		urls = source.RPCURLs
	}
	return svm.NewRPCClient(urls, rpc.CommitmentType(cfg.Commitment))
}

func newLookupTableReader(client svm.RPC, resolver *accounts.Resolver) transfer.LookupTableSource {
	return svm.NewLookupTableReader(client, resolver)
}

// newSubmitter 根据 submitter.mode 构造执行路径，并返回参与账户推导的签名公钥。
func newSubmitter(cfg *config.Config, source *web3.Chain, client svm.RPC) (transfer.Submitter, solana.PublicKey, error) {
	switch cfg.Submitter.Mode {
	case "svm":
		signer, err := svm.LoadSigner(cfg.Solana.PrivateKey, cfg.Solana.KeypairPath)
		if err != nil {
			return nil, solana.PublicKey{}, fmt.Errorf("加载 Solana 签名密钥失败: %w", err)
		}
		submitter, err := svm.NewSubmitter(client, svm.SubmitterConfig{
			Chain:          source,
			Signer:         signer,
			ComputeUnits:   cfg.Submitter.ComputeUnits,
			ConfirmTimeout: cfg.Submitter.ConfirmTimeout,
			PollInterval:   cfg.Submitter.PollInterval,
		})
		if err != nil {
			return nil, solana.PublicKey{}, err
		}
		return submitter, submitter.Authority(), nil
	case "command":
		authority, err := commandAuthority(cfg.Solana)
		if err != nil {
			return nil, solana.PublicKey{}, err
		}
		submitter, err := transfer.NewCommandSubmitter(transfer.CommandConfig{
			Name:    cfg.Submitter.Command.Name,
			Args:    cfg.Submitter.Command.Args,
			WorkDir: cfg.Submitter.Command.WorkDir,
			Env:     cfg.Submitter.Command.Env,
		})
		if err != nil {
			return nil, solana.PublicKey{}, err
		}
		return submitter, authority, nil
	default:
		return nil, solana.PublicKey{}, fmt.Errorf("未知的 submitter.mode %q", cfg.Submitter.Mode)
	}
}

// commandAuthority 在外部命令模式下确定签名公钥：优先显式配置，其次本地密钥。
func commandAuthority(cfg config.SolanaConfig) (solana.PublicKey, error) {
	if raw := strings.TrimSpace(cfg.Authority); raw != "" {
		key, err := solana.PublicKeyFromBase58(raw)
		if err != nil {
			return solana.PublicKey{}, fmt.Errorf("solana.authority: %w", err)
		}
		return key, nil
	}
	signer, err := svm.LoadSigner(cfg.PrivateKey, cfg.KeypairPath)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("command 模式需要 solana.authority 或可用的本地密钥: %w", err)
	}
	return signer.PublicKey(), nil
}

func transferDefaults(cfg config.TransferConfig) (transfer.Params, error) {
	params := transfer.DefaultParams()
	token, ok, err := transfer.ParseFeeToken(cfg.FeeToken)
	if err != nil {
		return transfer.Params{}, err
	}
	if ok {
		params.FeeToken = token
	}
	params.GasLimit = cfg.GasLimit
	params.AllowOutOfOrderExecution = cfg.AllowOutOfOrderExecution
	return params, nil
}

func openStore(ctx context.Context, cfg config.RegistryConfig) (transfer.Store, error) {
	switch cfg.Driver {
	case "", "memory":
		return transfer.NewMemoryStore(), nil
	case "redis":
		return transfer.NewRedisStore(transfer.RedisStoreConfig{
			Address:   cfg.Redis.Address,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
			TTL:       cfg.Redis.TTL,
		})
	case "mysql":
		return transfer.NewMySQLStore(ctx, transfer.MySQLConfig{
			DSN:             cfg.MySQL.DSN,
			MaxOpenConns:    cfg.MySQL.MaxOpenConns,
			MaxIdleConns:    cfg.MySQL.MaxIdleConns,
			ConnMaxLifetime: cfg.MySQL.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.MySQL.ConnMaxIdleTime,
		})
	default:
		return nil, fmt.Errorf("未知的 registry 驱动: %s", cfg.Driver)
	}
}

func openQueue(cfg config.DispatcherConfig) (transfer.Queue, error) {
	switch cfg.Driver {
	case "", "memory":
		return transfer.NewMemoryQueue(cfg.QueueSize), nil
	case "redis":
		return transfer.NewRedisQueue(transfer.RedisQueueConfig{
			Address:   cfg.Redis.Address,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			Queue:     cfg.Redis.Queue,
			BlockWait: cfg.Redis.BlockWait,
		})
	case "rabbitmq":
		return transfer.NewRabbitMQQueue(transfer.RabbitMQConfig{
			URL:      cfg.RabbitMQ.URL,
			Queue:    cfg.RabbitMQ.Queue,
			Prefetch: cfg.RabbitMQ.Prefetch,
			Durable:  cfg.RabbitMQ.Durable,
		})
	default:
		return nil, fmt.Errorf("未知的队列驱动: %s", cfg.Driver)
	}
}

func newAlerter(cfg config.AlertingConfig) *alerting.FanoutDispatcher {
	notifiers := []alerting.Notifier{&alerting.LogNotifier{Logger: logger.Named("alert")}}
	if cfg.WebhookURL != "" {
		notifiers = append(notifiers, &alerting.WebhookNotifier{
			URL:    cfg.WebhookURL,
			Client: &http.Client{Timeout: cfg.WebhookTimeout},
		})
	}
	return alerting.NewFanout(notifiers...)
}
