package transfer

import (
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	xerrors "CCIP-Bridge/internal/errors"
	"CCIP-Bridge/internal/observability/alerting"
	"CCIP-Bridge/internal/observability/metrics"
	"CCIP-Bridge/pkg/logger"
)

// LateResultPolicy 决定派发结果晚于 timeout 标注到达时的处理方式。
type LateResultPolicy string

const (
	// LateResultAccept 允许 success/error 覆盖 timeout。
	LateResultAccept LateResultPolicy = "accept"
	// LateResultReject 将 timeout 视为冻结状态，丢弃迟到的结果。
	LateResultReject LateResultPolicy = "reject"
)

// ParseLateResultPolicy 解析配置值，空字符串等价于 accept。
func ParseLateResultPolicy(raw string) (LateResultPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", string(LateResultAccept):
		return LateResultAccept, nil
	case string(LateResultReject):
		return LateResultReject, nil
	default:
		return "", xerrors.Newf(xerrors.CodeInvalidArgument, "late_result 只能是 accept 或 reject，实际为 %q", raw)
	}
}

// Dispatcher 负责登记 processing 记录、投递 Job，并在工作协程中调用 Submitter
// 完成执行后对注册表做唯一一次终态写入。派发器不做自动重试。
type Dispatcher struct {
	store         Store
	producer      Producer
	consumer      Consumer
	submitter     Submitter
	workerCount   int
	submitTimeout time.Duration
	lateResult    LateResultPolicy
	deadline      time.Duration
	now           func() time.Time
	logger        *slog.Logger
	alerter       alerting.Dispatcher
}

// DispatcherOption 定义可选配置。
type DispatcherOption func(*Dispatcher)

// WithDispatcherLogger 指定日志输出。
func WithDispatcherLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithWorkerCount 设置消费协程数量。
func WithWorkerCount(workers int) DispatcherOption {
	return func(d *Dispatcher) {
		if workers > 0 {
			d.workerCount = workers
		}
	}
}

// WithSubmitTimeout 限制单次提交的最长时间，0 表示不限制。
func WithSubmitTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		d.submitTimeout = timeout
	}
}

// WithLateResultPolicy 配置迟到结果的处理策略。
func WithLateResultPolicy(policy LateResultPolicy) DispatcherOption {
	return func(d *Dispatcher) {
		d.lateResult = policy
	}
}

// WithResultDeadline 设置结果的截止时间（自记录创建起算），0 表示不限制。
// 仅在 reject 策略下生效：截止后到达的结果被丢弃，记录写为 timeout。
func WithResultDeadline(after time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if after > 0 {
			d.deadline = after
		}
	}
}

// WithAlertDispatcher 配置告警派发器。
func WithAlertDispatcher(dispatcher alerting.Dispatcher) DispatcherOption {
	return func(d *Dispatcher) {
		d.alerter = dispatcher
	}
}

// NewDispatcher 构造 Dispatcher。
func NewDispatcher(store Store, queue Queue, submitter Submitter, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		store:       store,
		producer:    queue,
		consumer:    queue,
		submitter:   submitter,
		workerCount: 1,
		lateResult:  LateResultAccept,
		now:         time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	if d.workerCount <= 0 {
		d.workerCount = 1
	}
	return d
}

// Submit 登记 processing 记录并投递 Job 后立即返回，不等待执行结果。
func (d *Dispatcher) Submit(ctx context.Context, job Job) (*Record, error) {
	if d.store == nil || d.producer == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "派发器未初始化")
	}
	if err := job.Validate(); err != nil {
		return nil, err
	}
	record := &Record{
		ID:        job.ID,
		Status:    StatusProcessing,
		Message:   "transfer submitted",
		Intent:    job.Intent,
		Params:    job.Params,
		Route:     job.Route,
		TokenMint: job.TokenMint,
	}
	if err := d.store.Create(ctx, record); err != nil {
		return nil, err
	}
	if err := d.producer.Publish(ctx, job); err != nil {
		wrapped := xerrors.Wrap(CodeDispatchFailure, err, "发布转账任务到队列失败", xerrors.WithMetadata(MetadataTransferID, job.ID))
		logger.L().Error("转账入队失败", slog.Any("error", err), slog.String("transfer_id", job.ID))
		if _, storeErr := d.store.Update(ctx, job.ID, failWith(wrapped, "")); storeErr != nil {
			logger.L().Error("回写失败状态出错", slog.Any("error", storeErr), slog.String("transfer_id", job.ID))
		}
		return nil, wrapped
	}
	logger.Audit().Info("转账已派发",
		slog.String("transfer_id", job.ID),
		slog.String("status", string(StatusProcessing)),
		slog.String("route", job.Route),
		slog.String("token", job.TokenMint),
		slog.Uint64("amount", job.Amount),
	)
	return record, nil
}

// Start 启动消费循环，直到 ctx 取消。
func (d *Dispatcher) Start(ctx context.Context) error {
	if d.consumer == nil {
		return xerrors.New(xerrors.CodeInitializationFailure, "未配置任务消费者")
	}
	if d.submitter == nil {
		return xerrors.New(xerrors.CodeInitializationFailure, "未配置 Submitter")
	}
	return d.consumer.Consume(ctx, d.workerCount, d.handle)
}

// Close 释放队列资源。
func (d *Dispatcher) Close() error {
	if d.producer != nil {
		return d.producer.Close()
	}
	return nil
}

func (d *Dispatcher) handle(ctx context.Context, job Job) error {
	current, err := d.store.Get(ctx, job.ID)
	if err != nil {
		logger.L().Error("读取转账记录失败", slog.Any("error", err), slog.String("transfer_id", job.ID))
		return err
	}
	if current.Status.Final() {
		d.logDebug("跳过已完成的转账", slog.String("transfer_id", job.ID), slog.String("status", string(current.Status)))
		return nil
	}
	if current.Status == StatusTimeout && d.lateResult == LateResultReject {
		d.logDebug("跳过已超时的转账", slog.String("transfer_id", job.ID))
		return nil
	}
	if d.lateResult == LateResultReject && d.expired(current) {
		return d.expire(ctx, job)
	}
	// 提交开始前仍可响应关停；开始后不再取消。
	if err := ctx.Err(); err != nil {
		return err
	}

	// 已广播的交易无法撤回，提交与终态写入都脱离消费者上下文，只受各自超时约束。
	detached := context.WithoutCancel(ctx)
	done := metrics.TransferStarted()
	outcome, submitErr := d.submit(detached, job)

	var dropped bool
	mutate := d.guardLate(succeedWith(outcome), &dropped)
	status := StatusSuccess
	if submitErr != nil {
		status = StatusError
		logs := ""
		if outcome != nil {
			logs = outcome.Logs
		}
		mutate = d.guardLate(failWith(submitErr, logs), &dropped)
	}
	done(string(status))

	writeCtx, cancel := context.WithTimeout(detached, 10*time.Second)
	defer cancel()
	if _, err := d.store.Update(writeCtx, job.ID, mutate); err != nil {
		if stdErrors.Is(err, ErrTransferFinalized) {
			logger.Audit().Warn("丢弃迟到的转账结果",
				slog.String("transfer_id", job.ID),
				slog.String("status", string(status)),
				slog.String("reason", xerrors.Reason(err)),
			)
			return nil
		}
		logger.L().Error("写入转账终态失败", slog.Any("error", err), slog.String("transfer_id", job.ID))
		d.emitAlert(detached, job, xerrors.CodeOf(err), err, "complete")
		return err
	}
	if dropped {
		logger.Audit().Warn("丢弃迟到的转账结果",
			slog.String("transfer_id", job.ID),
			slog.String("status", string(StatusTimeout)),
			slog.String("discarded", string(status)),
		)
		return nil
	}

	if submitErr != nil {
		code := xerrors.CodeOf(submitErr)
		logger.Audit().Warn("转账执行失败",
			slog.String("transfer_id", job.ID),
			slog.String("status", string(StatusError)),
			slog.String("route", job.Route),
			slog.String("error", submitErr.Error()),
			slog.String("error_code", string(code)),
		)
		d.emitAlert(detached, job, code, submitErr, "submit")
		return nil
	}
	attrs := []any{
		slog.String("transfer_id", job.ID),
		slog.String("status", string(StatusSuccess)),
		slog.String("route", job.Route),
	}
	if outcome != nil {
		attrs = append(attrs, slog.String("tx_signature", outcome.TxSignature))
		if outcome.MessageID != nil {
			attrs = append(attrs, slog.String("message_id", outcome.MessageID.Hex()))
		}
	}
	logger.Audit().Info("转账执行成功", attrs...)
	return nil
}

// submit 调用 Submitter，并将 panic 与无类型错误统一为 DISPATCH_FAILURE。
func (d *Dispatcher) submit(ctx context.Context, job Job) (outcome *Outcome, err error) {
	if d.submitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.submitTimeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			outcome, err = nil, xerrors.Newf(CodeDispatchFailure, "submitter panic: %v", r)
		}
	}()
	outcome, err = d.submitter.Submit(ctx, job)
	if err != nil {
		if _, ok := xerrors.From(err); !ok {
			err = xerrors.Wrap(CodeDispatchFailure, err, "submit transfer")
		}
		return outcome, err
	}
	if outcome == nil {
		return nil, xerrors.New(CodeDispatchFailure, "submitter returned no outcome")
	}
	return outcome, nil
}

func succeedWith(outcome *Outcome) Mutator {
	return func(record *Record) error {
		record.Status = StatusSuccess
		record.Message = "transfer completed"
		record.ErrorCode = ""
		if outcome != nil {
			record.MessageID = outcome.MessageID
			record.TxSignature = outcome.TxSignature
			record.ExplorerURL = outcome.ExplorerURL
			record.Logs = outcome.Logs
		}
		return nil
	}
}

func failWith(cause error, logs string) Mutator {
	return func(record *Record) error {
		record.Status = StatusError
		record.Message = xerrors.Reason(cause)
		if record.Message == "" {
			record.Message = "transfer failed"
		}
		record.ErrorCode = string(xerrors.CodeOf(cause))
		if logs != "" {
			record.Logs = logs
		}
		return nil
	}
}

// guardLate 在 reject 策略下拦截迟到的结果：已是 timeout 的记录拒绝写入，
// 超过截止时间的记录改写为 timeout，并通过 dropped 告知调用方。
func (d *Dispatcher) guardLate(next Mutator, dropped *bool) Mutator {
	return func(record *Record) error {
		*dropped = false
		if d.lateResult != LateResultReject {
			return next(record)
		}
		if record.Status == StatusTimeout {
			return xerrors.Newf(CodeTransferFinalized, "transfer %s was marked timeout", record.ID)
		}
		if d.expired(record) {
			*dropped = true
			markTimeout(record, d.deadline)
			return nil
		}
		return next(record)
	}
}

func (d *Dispatcher) expired(record *Record) bool {
	return pastDeadline(record, d.deadline, d.now())
}

// expire 将排队期间已超过截止时间的记录写为 timeout，不再提交。
func (d *Dispatcher) expire(ctx context.Context, job Job) error {
	_, err := d.store.Update(ctx, job.ID, func(record *Record) error {
		if record.Status.Final() || record.Status == StatusTimeout {
			return xerrors.Newf(CodeTransferFinalized, "transfer %s is already %s", record.ID, record.Status)
		}
		markTimeout(record, d.deadline)
		return nil
	})
	if err != nil {
		if stdErrors.Is(err, ErrTransferFinalized) {
			return nil
		}
		logger.L().Error("写入超时状态失败", slog.Any("error", err), slog.String("transfer_id", job.ID))
		return err
	}
	logger.Audit().Warn("转账超过截止时间，未提交",
		slog.String("transfer_id", job.ID),
		slog.String("status", string(StatusTimeout)),
		slog.String("route", job.Route),
	)
	return nil
}

func (d *Dispatcher) logDebug(msg string, attrs ...slog.Attr) {
	if d.logger != nil {
		args := make([]any, len(attrs))
		for i, attr := range attrs {
			args[i] = attr
		}
		d.logger.Debug(msg, args...)
	}
}

func (d *Dispatcher) emitAlert(ctx context.Context, job Job, code xerrors.Code, cause error, stage string) {
	if d == nil || d.alerter == nil || !xerrors.ShouldAlert(cause) {
		return
	}
	attrs := xerrors.AttributesOf(code)
	metadata := map[string]string{"token": job.TokenMint, "amount": fmt.Sprint(job.Amount)}
	if cause != nil {
		metadata["cause"] = cause.Error()
	}
	event := alerting.Event{
		Code:       code,
		Message:    xerrors.Reason(cause),
		Severity:   attrs.Severity,
		TransferID: job.ID,
		Route:      job.Route,
		Stage:      stage,
		Metadata:   metadata,
		OccurredAt: time.Now(),
	}
	if err := d.alerter.Notify(ctx, event); err != nil {
		logger.L().Error("告警通知失败",
			slog.Any("error", err),
			slog.String("transfer_id", job.ID),
			slog.String("stage", stage),
		)
	}
}
