package transfer

import (
	"encoding/json"

	"CCIP-Bridge/internal/ccip/codec"
	xerrors "CCIP-Bridge/internal/errors"
)

// Job 是派发给工作协程的一次转账执行单元，可被序列化后经由外部队列传递。
type Job struct {
	ID          string                    `json:"id"`
	Intent      Intent                    `json:"intent"`
	Params      Params                    `json:"params"`
	Route       string                    `json:"route"`
	TokenMint   string                    `json:"tokenMint"`
	Amount      uint64                    `json:"amount"`
	Instruction *codec.EncodedInstruction `json:"instruction"`
}

// Validate 检查 Job 是否可以派发。
func (j Job) Validate() error {
	if j.ID == "" {
		return xerrors.New(xerrors.CodeInvalidArgument, "job 缺少转账 ID")
	}
	if j.Instruction == nil {
		return xerrors.Newf(xerrors.CodeInvalidArgument, "job %s 缺少指令", j.ID)
	}
	return nil
}

func encodeJob(job Job) ([]byte, error) {
	payload, err := json.Marshal(job)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeQueueFailure, err, "编码 job 失败")
	}
	return payload, nil
}

func decodeJob(raw []byte) (Job, error) {
	var job Job
	if err := json.Unmarshal(raw, &job); err != nil {
		return Job{}, xerrors.Wrap(xerrors.CodeQueueFailure, err, "解析 job 失败")
	}
	return job, job.Validate()
}
