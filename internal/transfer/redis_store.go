package transfer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	xerrors "CCIP-Bridge/internal/errors"
)

// RedisStoreConfig 描述 Redis 注册表的连接参数。
type RedisStoreConfig struct {
	Address   string
	Password  string
	DB        int
	KeyPrefix string
	// TTL 为 0 时记录永久保存。
	TTL time.Duration
}

// RedisStore 使用 Redis 保存转账记录。每条记录是一个 JSON 字符串，
// 另有一个按 updated_at 排序的 ZSET 作为列表索引。
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

const redisUpdateAttempts = 8

// NewRedisStore 创建 RedisStore 并检查连通性。
func NewRedisStore(cfg RedisStoreConfig) (*RedisStore, error) {
	if cfg.Address == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "Redis address 不能为空")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "连接 Redis 失败")
	}
	return newRedisStore(client, cfg), nil
}

func newRedisStore(client *redis.Client, cfg RedisStoreConfig) *RedisStore {
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "ccip"
	}
	return &RedisStore{client: client, prefix: prefix, ttl: cfg.TTL}
}

func (s *RedisStore) recordKey(id string) string { return s.prefix + ":transfer:" + id }
func (s *RedisStore) indexKey() string           { return s.prefix + ":transfers" }

// Create 使用 SETNX 保证同一 ID 只创建一次。
func (s *RedisStore) Create(ctx context.Context, record *Record) error {
	clone, err := prepareCreate(record)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(clone)
	if err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "编码转账记录失败")
	}
	ok, err := s.client.SetNX(ctx, s.recordKey(clone.ID), payload, s.ttl).Result()
	if err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "写入 Redis 失败")
	}
	if !ok {
		return conflict(clone.ID)
	}
	if err := s.client.ZAdd(ctx, s.indexKey(), redis.Z{Score: float64(clone.UpdatedAt), Member: clone.ID}).Err(); err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "写入 Redis 索引失败")
	}
	return nil
}

// Get 读取记录。
func (s *RedisStore) Get(ctx context.Context, id string) (*Record, error) {
	raw, err := s.client.Get(ctx, s.recordKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, notFound(id)
		}
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "读取 Redis 失败")
	}
	return decodeRecord(raw)
}

// Update 通过 WATCH/MULTI 实现按 ID 的乐观原子替换。
func (s *RedisStore) Update(ctx context.Context, id string, mutate Mutator) (*Record, error) {
	key := s.recordKey(id)
	var updated *Record

	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return notFound(id)
			}
			return xerrors.Wrap(xerrors.CodeStorageFailure, err, "读取 Redis 失败")
		}
		current, err := decodeRecord(raw)
		if err != nil {
			return err
		}
		next, err := applyMutation(current, mutate)
		if err != nil {
			return err
		}
		payload, err := json.Marshal(next)
		if err != nil {
			return xerrors.Wrap(xerrors.CodeStorageFailure, err, "编码转账记录失败")
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, redis.KeepTTL)
			pipe.ZAdd(ctx, s.indexKey(), redis.Z{Score: float64(next.UpdatedAt), Member: id})
			return nil
		})
		if err != nil {
			return err
		}
		updated = next
		return nil
	}

	for attempt := 0; attempt < redisUpdateAttempts; attempt++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return updated, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if _, ok := xerrors.From(err); ok {
			return nil, err
		}
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "更新 Redis 记录失败")
	}
	return nil, xerrors.Newf(xerrors.CodeStorageFailure, "transfer %s: too many concurrent updates", id)
}

// List 按索引顺序读取记录并在内存中过滤。
func (s *RedisStore) List(ctx context.Context, opts ListOptions) ([]*Record, error) {
	opts.applyDefaults()
	records, err := s.scan(ctx, opts)
	if err != nil {
		return nil, err
	}
	filtered := records[:0]
	for _, record := range records {
		if matchesListFilters(record, opts) {
			filtered = append(filtered, record)
		}
	}
	sortRecords(filtered, opts.Order)
	return paginate(filtered, opts), nil
}

// Stats 统计符合过滤条件的记录。
func (s *RedisStore) Stats(ctx context.Context, opts ListOptions) (Stats, error) {
	opts.applyDefaults()
	records, err := s.scan(ctx, opts)
	if err != nil {
		return Stats{}, err
	}
	stats := Stats{}
	for _, record := range records {
		if matchesListFilters(record, opts) {
			stats.add(record)
		}
	}
	return stats, nil
}

func (s *RedisStore) scan(ctx context.Context, opts ListOptions) ([]*Record, error) {
	ids, err := s.client.ZRangeByScore(ctx, s.indexKey(), scoreRange(opts)).Result()
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "读取 Redis 索引失败")
	}
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.recordKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "批量读取 Redis 失败")
	}
	records := make([]*Record, 0, len(values))
	var stale []any
	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			// 记录已过期，顺手清理索引。
			stale = append(stale, ids[i])
			continue
		}
		record, err := decodeRecord([]byte(raw))
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if len(stale) > 0 {
		_ = s.client.ZRem(ctx, s.indexKey(), stale...).Err()
	}
	return records, nil
}

func scoreRange(opts ListOptions) *redis.ZRangeBy {
	by := &redis.ZRangeBy{Min: "-inf", Max: "+inf"}
	if opts.UpdatedGTE > 0 {
		by.Min = strconv.FormatInt(opts.UpdatedGTE, 10)
	}
	if opts.UpdatedLTE > 0 {
		by.Max = strconv.FormatInt(opts.UpdatedLTE, 10)
	}
	return by
}

func decodeRecord(raw []byte) (*Record, error) {
	var record Record
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, fmt.Sprintf("解析转账记录失败: %d bytes", len(raw)))
	}
	return &record, nil
}

// Close 关闭 Redis 连接。
func (s *RedisStore) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

var _ Store = (*RedisStore)(nil)
