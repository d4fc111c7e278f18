package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"CCIP-Bridge/internal/observability/metrics"
	"CCIP-Bridge/internal/transfer"
	"CCIP-Bridge/internal/web3"
	"CCIP-Bridge/pkg/logger"
)

// Transfers 是 API 依赖的转账服务能力，由 transfer.Service 实现。
type Transfers interface {
	Submit(ctx context.Context, intent transfer.Intent, opts *transfer.Options) (*transfer.Record, error)
	Get(ctx context.Context, id string) (*transfer.Record, error)
	List(ctx context.Context, opts ...transfer.ListOption) ([]*transfer.Record, error)
	Stats(ctx context.Context, opts ...transfer.ListOption) (transfer.Stats, error)
}

// Config 控制 HTTP 服务的监听地址与超时。
type Config struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Server 负责暴露 REST 接口。
type Server struct {
	cfg       Config
	transfers Transfers
	chains    *web3.Registry
	logger    *slog.Logger
}

// NewServer 构造 API 服务实例。
func NewServer(cfg Config, transfers Transfers, chains *web3.Registry) *Server {
	if cfg.Address == "" {
		cfg.Address = ":8080"
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}
	return &Server{cfg: cfg, transfers: transfers, chains: chains, logger: logger.Named("api")}
}

// Handler 返回挂载了全部路由与中间件的 http.Handler。
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/transfers", s.handleSubmitTransfer)
		r.Get("/transfers", s.handleTransfers)
		r.Get("/transfers/{id}", s.handleTransferDetail)
		r.Get("/chains", s.handleChains)
	})
	return r
}

// Start 启动 HTTP 服务，直到上下文取消或出现错误。
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.Address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	s.logger.Info("api listening", slog.String("address", s.cfg.Address))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("api shutdown incomplete", slog.Any("error", err))
		}
		return nil
	case err, ok := <-errCh:
		if !ok {
			return nil
		}
		return err
	}
}
