package transfer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"CCIP-Bridge/pkg/logger"
)

// RedisQueueConfig 描述 Redis 队列的连接参数。
type RedisQueueConfig struct {
	Address   string
	Password  string
	DB        int
	Queue     string
	BlockWait time.Duration
}

// RedisQueue 使用 Redis list 实现任务队列。
type RedisQueue struct {
	client *redis.Client
	queue  string
	wait   time.Duration
}

// NewRedisQueue 创建 Redis 队列实例。
func NewRedisQueue(cfg RedisQueueConfig) (*RedisQueue, error) {
	if cfg.Address == "" {
		return nil, errors.New("Redis address 不能为空")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("连接 Redis 失败: %w", err)
	}
	return newRedisQueue(client, cfg), nil
}

func newRedisQueue(client *redis.Client, cfg RedisQueueConfig) *RedisQueue {
	queue := cfg.Queue
	if queue == "" {
		queue = "ccip:jobs"
	}
	wait := cfg.BlockWait
	if wait <= 0 {
		wait = 5 * time.Second
	}
	return &RedisQueue{client: client, queue: queue, wait: wait}
}

// Publish 将 Job 投递到 Redis。
func (q *RedisQueue) Publish(ctx context.Context, job Job) error {
	payload, err := encodeJob(job)
	if err != nil {
		return err
	}
	if err := q.client.LPush(ctx, q.queue, payload).Err(); err != nil {
		return fmt.Errorf("Redis 发布任务失败: %w", err)
	}
	return nil
}

// Consume 通过 BRPOP 从 Redis 获取 Job。处理失败的 Job 不会被重新投递，
// 关停时尚未提交的 Job 除外。
func (q *RedisQueue) Consume(ctx context.Context, workerCount int, handler Handler) error {
	if workerCount <= 0 {
		workerCount = 1
	}
	pollCtx, stop := context.WithCancel(ctx)
	defer stop()

	var (
		wg       sync.WaitGroup
		failOnce sync.Once
		failure  error
	)
	fail := func(err error) {
		failOnce.Do(func() { failure = err })
		stop()
	}
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for pollCtx.Err() == nil {
				values, err := q.client.BRPop(pollCtx, q.wait, q.queue).Result()
				if err != nil {
					if errors.Is(err, redis.Nil) {
						continue
					}
					if pollCtx.Err() != nil {
						return
					}
					if errors.Is(err, redis.ErrClosed) {
						fail(err)
						return
					}
					fail(fmt.Errorf("Redis 取任务失败: %w", err))
					return
				}
				if len(values) != 2 {
					continue
				}
				job, err := decodeJob([]byte(values[1]))
				if err != nil {
					logger.L().Error("丢弃无法解析的 job", slog.Any("error", err), slog.String("queue", q.queue))
					continue
				}
				if handlerErr := handler(ctx, job); handlerErr != nil {
					if ctx.Err() != nil && errors.Is(handlerErr, ctx.Err()) {
						q.requeue(ctx, values[1], job.ID)
						continue
					}
					logger.L().Warn("job 处理失败", slog.Any("error", handlerErr), slog.String("transfer_id", job.ID))
				}
			}
		}()
	}
	// 等待进行中的 handler 返回后再退出。
	wg.Wait()
	if failure != nil {
		return failure
	}
	return ctx.Err()
}

// requeue 将关停时尚未提交的 Job 放回队列尾部，下次启动时最先取出。
func (q *RedisQueue) requeue(ctx context.Context, payload, id string) {
	pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := q.client.RPush(pushCtx, q.queue, payload).Err(); err != nil {
		logger.L().Error("关停时放回 job 失败", slog.Any("error", err), slog.String("transfer_id", id))
	}
}

// Close 关闭 Redis 连接。
func (q *RedisQueue) Close() error {
	if q == nil || q.client == nil {
		return nil
	}
	return q.client.Close()
}
