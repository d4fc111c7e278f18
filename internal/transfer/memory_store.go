package transfer

import (
	"context"
	"sync"
)

// MemoryStore 以内存方式保存转账记录，适用于测试与单进程部署。进程重启后状态丢失。
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
}

// NewMemoryStore 创建 MemoryStore。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*Record)}
}

// Create 实现 Store 接口。
func (m *MemoryStore) Create(_ context.Context, record *Record) error {
	clone, err := prepareCreate(record)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[clone.ID]; ok {
		return conflict(clone.ID)
	}
	m.records[clone.ID] = clone
	return nil
}

// Get 返回记录副本。
func (m *MemoryStore) Get(_ context.Context, id string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	record, ok := m.records[id]
	if !ok {
		return nil, notFound(id)
	}
	return record.Clone(), nil
}

// Update 在写锁内对记录执行原子替换。
func (m *MemoryStore) Update(_ context.Context, id string, mutate Mutator) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.records[id]
	if !ok {
		return nil, notFound(id)
	}
	next, err := applyMutation(current, mutate)
	if err != nil {
		return nil, err
	}
	m.records[id] = next
	return next.Clone(), nil
}

// List 返回符合过滤条件的记录。
func (m *MemoryStore) List(_ context.Context, opts ListOptions) ([]*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	opts.applyDefaults()
	results := make([]*Record, 0, len(m.records))
	for _, record := range m.records {
		if matchesListFilters(record, opts) {
			results = append(results, record.Clone())
		}
	}
	sortRecords(results, opts.Order)
	return paginate(results, opts), nil
}

// Stats 统计符合过滤条件的记录数量与更新时间范围。
func (m *MemoryStore) Stats(_ context.Context, opts ListOptions) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	opts.applyDefaults()
	stats := Stats{}
	for _, record := range m.records {
		if matchesListFilters(record, opts) {
			stats.add(record)
		}
	}
	return stats, nil
}

// Close 对内存存储无需操作。
func (m *MemoryStore) Close() error {
	return nil
}

var _ Store = (*MemoryStore)(nil)
