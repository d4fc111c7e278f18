package transfer

// Stats 聚合了转账状态的统计信息，常用于仪表盘或健康检查。
type Stats struct {
	Total           int   `json:"total"`
	Pending         int   `json:"pending"`
	Processing      int   `json:"processing"`
	Success         int   `json:"success"`
	Error           int   `json:"error"`
	Timeout         int   `json:"timeout"`
	OldestUpdatedAt int64 `json:"oldest_updated_at,omitempty"`
	NewestUpdatedAt int64 `json:"newest_updated_at,omitempty"`
}

func (s *Stats) add(record *Record) {
	s.Total++
	switch record.Status {
	case StatusPending:
		s.Pending++
	case StatusProcessing:
		s.Processing++
	case StatusSuccess:
		s.Success++
	case StatusError:
		s.Error++
	case StatusTimeout:
		s.Timeout++
	}
	if record.UpdatedAt > s.NewestUpdatedAt {
		s.NewestUpdatedAt = record.UpdatedAt
	}
	if s.OldestUpdatedAt == 0 || (record.UpdatedAt != 0 && record.UpdatedAt < s.OldestUpdatedAt) {
		s.OldestUpdatedAt = record.UpdatedAt
	}
}
