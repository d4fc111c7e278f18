package transfer

import (
	"time"

	"github.com/ethereum/go-ethereum/common"

	xerrors "CCIP-Bridge/internal/errors"
)

// Status 表示转账记录在生命周期中的状态。
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusSuccess    Status = "success"
	StatusError      Status = "error"
	StatusTimeout    Status = "timeout"
)

// Final 判断状态是否为注册表拥有的终态。timeout 只是观察结果，不是终态。
func (s Status) Final() bool {
	return s == StatusSuccess || s == StatusError
}

// IsValidStatus 检查给定状态是否为支持的枚举值。
func IsValidStatus(status Status) bool {
	switch status {
	case StatusPending, StatusProcessing, StatusSuccess, StatusError, StatusTimeout:
		return true
	default:
		return false
	}
}

// Record 是状态注册表中的一条转账记录。
type Record struct {
	ID          string       `json:"id"`
	Status      Status       `json:"status"`
	Message     string       `json:"message,omitempty"`
	Intent      Intent       `json:"intent"`
	Params      Params       `json:"params"`
	Route       string       `json:"route,omitempty"`
	TokenMint   string       `json:"tokenMint,omitempty"`
	MessageID   *common.Hash `json:"onChainMessageId,omitempty"`
	TxSignature string       `json:"txSignature,omitempty"`
	ExplorerURL string       `json:"explorerUrl,omitempty"`
	Logs        string       `json:"logs,omitempty"`
	ErrorCode   string       `json:"errorCode,omitempty"`
	CreatedAt   int64        `json:"createdAt"`
	UpdatedAt   int64        `json:"updatedAt"`
}

// Clone 返回记录的深拷贝。
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	clone := *r
	if r.MessageID != nil {
		id := *r.MessageID
		clone.MessageID = &id
	}
	return &clone
}

// Mutator 在原子替换语义下修改一条记录的副本。
type Mutator func(record *Record) error

// pastDeadline 判断未完成的记录是否已超过 after 指定的期限，after 为 0 时永不过期。
func pastDeadline(record *Record, after time.Duration, now time.Time) bool {
	if after <= 0 || record.Status.Final() || record.Status == StatusTimeout {
		return false
	}
	return now.After(time.UnixMilli(record.CreatedAt).Add(after))
}

func markTimeout(record *Record, after time.Duration) {
	record.Status = StatusTimeout
	record.Message = "transfer did not complete within " + after.String()
	record.ErrorCode = ""
}

// nowMillis 是记录时间戳的统一来源。
func nowMillis() int64 {
	return time.Now().UnixMilli()
}

// prepareCreate 校验新记录并填充时间戳。
func prepareCreate(record *Record) (*Record, error) {
	if record == nil {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "record 不能为空")
	}
	if record.ID == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "转账 ID 不能为空")
	}
	if !IsValidStatus(record.Status) {
		return nil, xerrors.Newf(xerrors.CodeInvalidArgument, "非法的转账状态 %q", record.Status)
	}
	now := nowMillis()
	if record.CreatedAt == 0 {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	return record.Clone(), nil
}

// applyMutation 在 current 的副本上执行 mutate，并保证终态不可变、ID 与创建时间不被改写。
func applyMutation(current *Record, mutate Mutator) (*Record, error) {
	if current.Status.Final() {
		return nil, xerrors.Newf(CodeTransferFinalized, "transfer %s is already %s", current.ID, current.Status)
	}
	next := current.Clone()
	if err := mutate(next); err != nil {
		return nil, err
	}
	if !IsValidStatus(next.Status) {
		return nil, xerrors.Newf(xerrors.CodeInvalidArgument, "非法的转账状态 %q", next.Status)
	}
	next.ID = current.ID
	next.CreatedAt = current.CreatedAt
	next.UpdatedAt = nowMillis()
	if next.UpdatedAt < current.UpdatedAt {
		next.UpdatedAt = current.UpdatedAt
	}
	return next, nil
}

func notFound(id string) error {
	return xerrors.Newf(CodeTransferNotFound, "transfer %s not found", id)
}

func conflict(id string) error {
	return xerrors.Newf(CodeTransferConflict, "transfer %s already exists", id)
}
