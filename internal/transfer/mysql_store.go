package transfer

import (
	"context"
	"database/sql"
	stdErrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-sql-driver/mysql"

	xerrors "CCIP-Bridge/internal/errors"
)

// MySQLConfig 描述 MySQL 注册表的连接参数。
type MySQLConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// MySQLStore 使用 MySQL 记录转账状态，适合需要跨进程重启保留状态的部署。
type MySQLStore struct {
	db *sql.DB
}

// NewMySQLStore 打开连接、执行内嵌迁移并返回 MySQLStore。
func NewMySQLStore(ctx context.Context, cfg MySQLConfig) (*MySQLStore, error) {
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}
	store := &MySQLStore{db: db}
	if err := store.runMigrations(ctx); err != nil {
		_ = db.Close()
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "执行数据库迁移失败")
	}
	return store, nil
}

func openDatabase(ctx context.Context, cfg MySQLConfig) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "MySQL DSN 不能为空")
	}

	db, err := sql.Open("mysql", cfg.DSN)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "连接 MySQL 失败")
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	} else {
		db.SetMaxOpenConns(20)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	} else {
		db.SetMaxIdleConns(10)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	} else {
		db.SetConnMaxLifetime(30 * time.Minute)
	}
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "无法连接到 MySQL")
	}
	return db, nil
}

const recordColumns = `id, status, message, source_chain, destination_chain, token, amount, receiver,
        fee_token, gas_limit, allow_out_of_order, route, token_mint, message_id, tx_signature,
        explorer_url, logs, error_code, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var (
		record    Record
		message   sql.NullString
		logs      sql.NullString
		messageID string
		feeToken  string
	)
	if err := row.Scan(
		&record.ID,
		&record.Status,
		&message,
		&record.Intent.SourceChain,
		&record.Intent.DestinationChain,
		&record.Intent.Token,
		&record.Intent.Amount,
		&record.Intent.Receiver,
		&feeToken,
		&record.Params.GasLimit,
		&record.Params.AllowOutOfOrderExecution,
		&record.Route,
		&record.TokenMint,
		&messageID,
		&record.TxSignature,
		&record.ExplorerURL,
		&logs,
		&record.ErrorCode,
		&record.CreatedAt,
		&record.UpdatedAt,
	); err != nil {
		return nil, err
	}
	record.Message = message.String
	record.Logs = logs.String
	record.Params.FeeToken = FeeToken(feeToken)
	if messageID != "" {
		hash := common.HexToHash(messageID)
		record.MessageID = &hash
	}
	return &record, nil
}

func recordArgs(record *Record) []any {
	messageID := ""
	if record.MessageID != nil {
		messageID = record.MessageID.Hex()
	}
	return []any{
		record.Status,
		record.Message,
		record.Intent.SourceChain,
		record.Intent.DestinationChain,
		record.Intent.Token,
		record.Intent.Amount,
		record.Intent.Receiver,
		string(record.Params.FeeToken),
		record.Params.GasLimit,
		record.Params.AllowOutOfOrderExecution,
		record.Route,
		record.TokenMint,
		messageID,
		record.TxSignature,
		record.ExplorerURL,
		record.Logs,
		record.ErrorCode,
		record.CreatedAt,
		record.UpdatedAt,
	}
}

// Create 插入新的转账记录。
func (s *MySQLStore) Create(ctx context.Context, record *Record) error {
	clone, err := prepareCreate(record)
	if err != nil {
		return err
	}
	const stmt = `INSERT INTO transfer_records (` + recordColumns + `)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	args := append([]any{clone.ID}, recordArgs(clone)...)
	if _, err := s.db.ExecContext(ctx, stmt, args...); err != nil {
		var mysqlErr *mysql.MySQLError
		if stdErrors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
			return conflict(clone.ID)
		}
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "插入转账记录失败")
	}
	return nil
}

// Get 查询指定记录。
func (s *MySQLStore) Get(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM transfer_records WHERE id = ?`, id)
	record, err := scanRecord(row)
	if err != nil {
		if stdErrors.Is(err, sql.ErrNoRows) {
			return nil, notFound(id)
		}
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "查询转账记录失败")
	}
	return record, nil
}

// Update 在事务中以 SELECT ... FOR UPDATE 锁定行后执行替换。
func (s *MySQLStore) Update(ctx context.Context, id string, mutate Mutator) (*Record, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "开启事务失败")
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM transfer_records WHERE id = ? FOR UPDATE`, id)
	current, err := scanRecord(row)
	if err != nil {
		if stdErrors.Is(err, sql.ErrNoRows) {
			return nil, notFound(id)
		}
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "锁定转账记录失败")
	}
	next, err := applyMutation(current, mutate)
	if err != nil {
		return nil, err
	}

	const stmt = `UPDATE transfer_records SET status = ?, message = ?, source_chain = ?, destination_chain = ?,
        token = ?, amount = ?, receiver = ?, fee_token = ?, gas_limit = ?, allow_out_of_order = ?, route = ?,
        token_mint = ?, message_id = ?, tx_signature = ?, explorer_url = ?, logs = ?, error_code = ?,
        created_at = ?, updated_at = ? WHERE id = ?`
	args := append(recordArgs(next), id)
	if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "更新转账记录失败")
	}
	if err := tx.Commit(); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "提交事务失败")
	}
	return next, nil
}

// List 返回符合过滤条件的记录。
func (s *MySQLStore) List(ctx context.Context, opts ListOptions) ([]*Record, error) {
	opts.applyDefaults()

	query := `SELECT ` + recordColumns + ` FROM transfer_records`
	clause, filterArgs := buildFilterClause(opts)
	if clause != "" {
		query += " WHERE " + clause
	}
	order := " ORDER BY updated_at DESC, created_at DESC, id DESC"
	if opts.Order == SortByUpdatedAsc {
		order = " ORDER BY updated_at ASC, created_at ASC, id ASC"
	}
	query += order + " LIMIT ? OFFSET ?"
	args := append(filterArgs, opts.Limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "查询转账列表失败")
	}
	defer rows.Close()

	records := make([]*Record, 0, opts.Limit)
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "解析转账记录失败")
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "遍历转账记录失败")
	}
	return records, nil
}

// Stats 返回符合过滤条件的聚合信息。
func (s *MySQLStore) Stats(ctx context.Context, opts ListOptions) (Stats, error) {
	opts.applyDefaults()

	query := `SELECT
        COUNT(*),
        COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
        COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
        COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
        COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
        COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
        COALESCE(MIN(updated_at), 0),
        COALESCE(MAX(updated_at), 0)
        FROM transfer_records`
	clause, filterArgs := buildFilterClause(opts)
	if clause != "" {
		query += " WHERE " + clause
	}
	args := []any{
		string(StatusPending), string(StatusProcessing), string(StatusSuccess),
		string(StatusError), string(StatusTimeout),
	}
	args = append(args, filterArgs...)

	var stats Stats
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&stats.Total,
		&stats.Pending,
		&stats.Processing,
		&stats.Success,
		&stats.Error,
		&stats.Timeout,
		&stats.OldestUpdatedAt,
		&stats.NewestUpdatedAt,
	); err != nil {
		return Stats{}, xerrors.Wrap(xerrors.CodeStorageFailure, err, "查询转账统计失败")
	}
	if stats.Total == 0 {
		stats.OldestUpdatedAt = 0
		stats.NewestUpdatedAt = 0
	}
	return stats, nil
}

// Close 关闭底层数据库连接。
func (s *MySQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func buildFilterClause(opts ListOptions) (string, []any) {
	conditions := make([]string, 0, 4)
	args := make([]any, 0, 8)

	if len(opts.Statuses) > 0 {
		placeholders := make([]string, 0, len(opts.Statuses))
		for _, status := range opts.Statuses {
			placeholders = append(placeholders, "?")
			args = append(args, string(status))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if opts.UpdatedGTE > 0 {
		conditions = append(conditions, "updated_at >= ?")
		args = append(args, opts.UpdatedGTE)
	}
	if opts.UpdatedLTE > 0 {
		conditions = append(conditions, "updated_at <= ?")
		args = append(args, opts.UpdatedLTE)
	}
	if opts.Query != "" {
		pattern := "%" + opts.Query + "%"
		conditions = append(conditions, "(id LIKE ? OR route LIKE ? OR token LIKE ? OR token_mint LIKE ? OR receiver LIKE ? OR tx_signature LIKE ? OR message_id LIKE ?)")
		for i := 0; i < 7; i++ {
			args = append(args, pattern)
		}
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return strings.Join(conditions, " AND "), args
}

var _ Store = (*MySQLStore)(nil)
