package transfer

import "context"

// Store 是转账状态注册表的抽象。
//
// 同一 ID 的写入遵循单写者约定：Create 由派发入口调用，Update 由派发器的
// 完成回调调用，读取方只调用 Get 与 List。Update 对单条记录具备原子替换语义，
// 且拒绝修改已处于 success 或 error 的记录。
type Store interface {
	Create(ctx context.Context, record *Record) error
	Get(ctx context.Context, id string) (*Record, error)
	Update(ctx context.Context, id string, mutate Mutator) (*Record, error)
	List(ctx context.Context, opts ListOptions) ([]*Record, error)
	Stats(ctx context.Context, opts ListOptions) (Stats, error)
	Close() error
}
