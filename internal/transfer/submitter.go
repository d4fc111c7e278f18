package transfer

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// Outcome 是一次提交的结果。失败时 Submitter 仍可返回非空 Outcome 以携带已采集的日志。
type Outcome struct {
	MessageID   *common.Hash
	TxSignature string
	ExplorerURL string
	Logs        string
}

// Submitter 负责签名并广播一条转账指令，可以是进程内实现，也可以是外部进程适配器。
type Submitter interface {
	Submit(ctx context.Context, job Job) (*Outcome, error)
}

// SubmitterFunc 将普通函数适配为 Submitter。
type SubmitterFunc func(ctx context.Context, job Job) (*Outcome, error)

// Submit 实现 Submitter 接口。
func (f SubmitterFunc) Submit(ctx context.Context, job Job) (*Outcome, error) {
	return f(ctx, job)
}
