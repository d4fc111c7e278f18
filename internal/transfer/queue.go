package transfer

import (
	"context"
)

// Handler 处理来自队列的 Job。
type Handler func(ctx context.Context, job Job) error

// Producer 负责向队列投递 Job。
type Producer interface {
	Publish(ctx context.Context, job Job) error
	Close() error
}

// Consumer 负责从队列中消费 Job。实现不得在 handler 返回错误时重新投递，
// 重复执行可能导致重复的链上转账；唯一的例外是关停时 handler 在提交前
// 返回的上下文错误。ctx 取消后 Consume 须等待进行中的 handler 返回。
type Consumer interface {
	Consume(ctx context.Context, workerCount int, handler Handler) error
	Close() error
}

// Queue 同时具备生产者与消费者能力。
type Queue interface {
	Producer
	Consumer
}
