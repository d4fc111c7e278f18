package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"golang.org/x/sync/errgroup"

	"CCIP-Bridge/internal/api"
	"CCIP-Bridge/internal/ccip/accounts"
	"CCIP-Bridge/internal/config"
	"CCIP-Bridge/internal/observability/metrics"
	"CCIP-Bridge/internal/transfer"
	"CCIP-Bridge/internal/web3"
	"CCIP-Bridge/pkg/logger"
)

// main 是 ccipd 守护进程的入口：HTTP API 与派发 worker 运行在同一进程中。
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalf("ccipd 运行失败: %v", err)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(configPath())
	if err != nil {
		return err
	}
	if err := logger.Init(loggerConfig(cfg.Logging)); err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	metrics.Register()

	chains, err := web3.LoadRegistry(cfg.Chains.Path)
	if err != nil {
		return err
	}
	source, err := sourceChain(chains, cfg.Solana.Chain)
	if err != nil {
		return err
	}

	c, err := newCodec(cfg.Methods)
	if err != nil {
		return err
	}
	resolver := accounts.NewResolver(accounts.WithCacheObserver(metrics.ObservePDACache))

	rpcClient, err := newRPCClient(cfg.Solana, source)
	if err != nil {
		return err
	}
	submitter, authority, err := newSubmitter(cfg, source, rpcClient)
	if err != nil {
		return err
	}
	defaults, err := transferDefaults(cfg.Transfer)
	if err != nil {
		return err
	}
	builder, err := transfer.NewBuilder(chains, c, resolver, transfer.BuilderConfig{
		Defaults:        defaults,
		DefaultReceiver: cfg.Transfer.DefaultReceiver,
		Authority:       authority,
		LookupTables:    newLookupTableReader(rpcClient, resolver),
	})
	if err != nil {
		return err
	}

	store, err := openStore(ctx, cfg.Registry)
	if err != nil {
		return err
	}
	queue, err := openQueue(cfg.Dispatcher)
	if err != nil {
		_ = store.Close()
		return err
	}
	latePolicy, err := transfer.ParseLateResultPolicy(cfg.Registry.LateResult)
	if err != nil {
		_ = store.Close()
		_ = queue.Close()
		return err
	}

	dispatcherOpts := []transfer.DispatcherOption{
		transfer.WithDispatcherLogger(logger.Named("dispatcher")),
		transfer.WithWorkerCount(cfg.Dispatcher.Workers),
		transfer.WithSubmitTimeout(cfg.Dispatcher.SubmitTimeout),
		transfer.WithLateResultPolicy(latePolicy),
		transfer.WithResultDeadline(cfg.Registry.TimeoutAfter),
	}
	if cfg.Alerting.Enabled {
		dispatcherOpts = append(dispatcherOpts, transfer.WithAlertDispatcher(newAlerter(cfg.Alerting)))
	}
	dispatcher := transfer.NewDispatcher(store, queue, submitter, dispatcherOpts...)

	service, err := transfer.NewService(builder, dispatcher, store, transfer.WithTimeoutAfter(cfg.Registry.TimeoutAfter))
	if err != nil {
		_ = store.Close()
		_ = queue.Close()
		return err
	}
	defer func() {
		if err := service.Close(); err != nil {
			logger.L().Warn("关闭转账服务失败", slog.Any("error", err))
		}
	}()

	server := api.NewServer(api.Config{
		Address:         cfg.Server.Address,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, service, chains)

	logger.L().Info("ccipd starting",
		slog.String("source_chain", source.Key),
		slog.String("submitter", cfg.Submitter.Mode),
		slog.String("authority", authority.String()),
		slog.String("registry", cfg.Registry.Driver),
		slog.String("queue", cfg.Dispatcher.Driver),
		slog.Int("workers", cfg.Dispatcher.Workers),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := dispatcher.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return server.Start(gctx)
	})
	return g.Wait()
}

// configPath 优先使用 CCIP_CONFIG，其次是存在时的 configs/ccip.yaml。
func configPath() string {
	if path := os.Getenv("CCIP_CONFIG"); path != "" {
		return path
	}
	path := filepath.Join("configs", "ccip.yaml")
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return ""
}
