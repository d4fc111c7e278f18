package transfer

import (
	"context"
	stdErrors "errors"
	"log/slog"
	"time"

	xerrors "CCIP-Bridge/internal/errors"
	"CCIP-Bridge/internal/observability/metrics"
	"CCIP-Bridge/pkg/logger"
)

// ServiceOption 定义 Service 的可选配置。
type ServiceOption func(*Service)

// WithTimeoutAfter 配置超时标注阈值，0 表示不标注。
func WithTimeoutAfter(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d > 0 {
			s.timeoutAfter = d
		}
	}
}

// WithClock 替换时间来源，主要用于测试。
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// Service 将 Builder、Dispatcher 与 Store 组合为对外的转账入口。
type Service struct {
	builder      *Builder
	dispatcher   *Dispatcher
	store        Store
	timeoutAfter time.Duration
	now          func() time.Time
}

// NewService 构造 Service。
func NewService(builder *Builder, dispatcher *Dispatcher, store Store, opts ...ServiceOption) (*Service, error) {
	if builder == nil || dispatcher == nil || store == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "转账服务依赖未初始化")
	}
	s := &Service{builder: builder, dispatcher: dispatcher, store: store, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Submit 构造转账请求并派发，返回 processing 状态的记录快照。
// 构造阶段的错误同步返回，此时不会写入注册表。
func (s *Service) Submit(ctx context.Context, intent Intent, opts *Options) (*Record, error) {
	req, err := s.builder.Build(ctx, intent, opts)
	if err != nil {
		logger.L().Info("转账请求被拒绝",
			slog.String("source", intent.SourceChain),
			slog.String("destination", intent.DestinationChain),
			slog.String("code", string(xerrors.CodeOf(err))),
			slog.Any("error", err),
		)
		return nil, err
	}
	record, err := s.dispatcher.Submit(ctx, req.Job())
	if err != nil {
		return nil, err
	}
	metrics.ObserveTransferSubmitted(req.Source.Key, req.Destination.Key)
	return record, nil
}

// Get 查询转账记录。开启超时标注后，超过阈值仍未完成的记录以 timeout 返回；
// 标注只作用于返回的副本，注册表中的记录保持不变。
func (s *Service) Get(ctx context.Context, id string) (*Record, error) {
	record, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.annotate(record), nil
}

func (s *Service) annotate(record *Record) *Record {
	if !pastDeadline(record, s.timeoutAfter, s.now()) {
		return record
	}
	view := record.Clone()
	markTimeout(view, s.timeoutAfter)
	return view
}

// List 返回符合条件的转账记录。
func (s *Service) List(ctx context.Context, opts ...ListOption) ([]*Record, error) {
	records, err := s.store.List(ctx, buildListOptions(opts))
	if err != nil {
		return nil, err
	}
	for i, record := range records {
		records[i] = s.annotate(record)
	}
	return records, nil
}

// Stats 汇总转账状态分布。
func (s *Service) Stats(ctx context.Context, opts ...ListOption) (Stats, error) {
	return s.store.Stats(ctx, buildListOptions(opts))
}

// Close 依次关闭派发器与注册表。
func (s *Service) Close() error {
	return stdErrors.Join(s.dispatcher.Close(), s.store.Close())
}
