package transfer

import (
	"sort"
	"strings"
	"time"
)

// SortOrder defines how results should be ordered when listing transfers.
type SortOrder int

const (
	// SortByUpdatedDesc orders records by UpdatedAt descending (most recent first).
	SortByUpdatedDesc SortOrder = iota
	// SortByUpdatedAsc orders records by UpdatedAt ascending (oldest first).
	SortByUpdatedAsc
)

// ListOptions controls how records are selected when querying the store.
// Timestamps are unix milliseconds.
type ListOptions struct {
	Limit      int
	Offset     int
	Statuses   []Status
	UpdatedGTE int64
	UpdatedLTE int64
	Order      SortOrder
	Query      string
}

func (opts *ListOptions) applyDefaults() {
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}
	if opts.Statuses != nil {
		opts.Statuses = normalizeStatuses(opts.Statuses)
	}
	if opts.Order != SortByUpdatedAsc {
		opts.Order = SortByUpdatedDesc
	}
	opts.Query = strings.TrimSpace(opts.Query)
}

// ListOption mutates ListOptions.
type ListOption func(*ListOptions)

// WithLimit limits the number of records returned.
func WithLimit(limit int) ListOption {
	return func(opts *ListOptions) {
		opts.Limit = limit
	}
}

// WithOffset skips the first n matching records.
func WithOffset(offset int) ListOption {
	return func(opts *ListOptions) {
		opts.Offset = offset
	}
}

// WithStatuses filters records by the provided statuses.
func WithStatuses(statuses ...Status) ListOption {
	return func(opts *ListOptions) {
		opts.Statuses = append(opts.Statuses[:0], statuses...)
	}
}

// WithUpdatedSince filters records updated at or after ts.
func WithUpdatedSince(ts time.Time) ListOption {
	return func(opts *ListOptions) {
		if ts.IsZero() {
			opts.UpdatedGTE = 0
			return
		}
		opts.UpdatedGTE = ts.UnixMilli()
	}
}

// WithUpdatedUntil filters records updated at or before ts.
func WithUpdatedUntil(ts time.Time) ListOption {
	return func(opts *ListOptions) {
		if ts.IsZero() {
			opts.UpdatedLTE = 0
			return
		}
		opts.UpdatedLTE = ts.UnixMilli()
	}
}

// WithSortOrder changes the returned order.
func WithSortOrder(order SortOrder) ListOption {
	return func(opts *ListOptions) {
		opts.Order = order
	}
}

// WithQuery matches id, route, token, receiver and message id substrings.
func WithQuery(query string) ListOption {
	return func(opts *ListOptions) {
		opts.Query = query
	}
}

func buildListOptions(opts []ListOption) ListOptions {
	options := ListOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	options.applyDefaults()
	return options
}

func normalizeStatuses(input []Status) []Status {
	if len(input) == 0 {
		return nil
	}
	seen := make(map[Status]struct{}, len(input))
	result := make([]Status, 0, len(input))
	for _, status := range input {
		if !IsValidStatus(status) {
			continue
		}
		if _, ok := seen[status]; ok {
			continue
		}
		seen[status] = struct{}{}
		result = append(result, status)
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

func matchesListFilters(record *Record, opts ListOptions) bool {
	if len(opts.Statuses) > 0 {
		matched := false
		for _, status := range opts.Statuses {
			if record.Status == status {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	if opts.UpdatedGTE > 0 && record.UpdatedAt < opts.UpdatedGTE {
		return false
	}
	if opts.UpdatedLTE > 0 && record.UpdatedAt > opts.UpdatedLTE {
		return false
	}
	if opts.Query != "" && !recordMatchesQuery(record, opts.Query) {
		return false
	}
	return true
}

func recordMatchesQuery(record *Record, query string) bool {
	query = strings.ToLower(query)
	fields := []string{
		record.ID,
		record.Route,
		record.Intent.Token,
		record.TokenMint,
		record.Intent.Receiver,
		record.TxSignature,
	}
	if record.MessageID != nil {
		fields = append(fields, record.MessageID.Hex())
	}
	for _, field := range fields {
		if strings.Contains(strings.ToLower(field), query) {
			return true
		}
	}
	return false
}

// sortRecords orders records by UpdatedAt, then CreatedAt, then ID.
func sortRecords(records []*Record, order SortOrder) {
	less := func(a, b *Record) bool {
		if a.UpdatedAt == b.UpdatedAt {
			if a.CreatedAt == b.CreatedAt {
				return a.ID < b.ID
			}
			return a.CreatedAt < b.CreatedAt
		}
		return a.UpdatedAt < b.UpdatedAt
	}
	sort.Slice(records, func(i, j int) bool {
		if order == SortByUpdatedAsc {
			return less(records[i], records[j])
		}
		return less(records[j], records[i])
	})
}

func paginate(records []*Record, opts ListOptions) []*Record {
	if opts.Offset >= len(records) {
		return []*Record{}
	}
	records = records[opts.Offset:]
	if len(records) > opts.Limit {
		records = records[:opts.Limit]
	}
	return records
}
