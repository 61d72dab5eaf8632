package budget

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteStore persists spend counters in a SQLite database so budget
// ceilings survive process restarts. One row exists per (connector, month)
// pair and additions use an upsert, so concurrent writers through the single
// connection accumulate correctly.
type SQLiteStore struct {
	db *sql.DB

	addStmt   *sql.Stmt
	spentStmt *sql.Stmt
	pruneStmt *sql.Stmt
}

// NewSQLiteStore opens or creates the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite budget store: path cannot be empty")
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open budget database: %w", err)
	}

	// SQLite only supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize budget schema: %w", err)
	}
	if err := s.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare budget statements: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS budget_spend (
		connector TEXT NOT NULL,
		month TEXT NOT NULL,
		spent_usd REAL NOT NULL DEFAULT 0,
		PRIMARY KEY (connector, month)
	);

	CREATE INDEX IF NOT EXISTS idx_budget_month ON budget_spend(month);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) prepareStatements() error {
	var err error

	s.addStmt, err = s.db.Prepare(`
		INSERT INTO budget_spend (connector, month, spent_usd)
		VALUES (?, ?, ?)
		ON CONFLICT (connector, month) DO UPDATE SET
			spent_usd = spent_usd + excluded.spent_usd
	`)
	if err != nil {
		return err
	}

	s.spentStmt, err = s.db.Prepare(`
		SELECT spent_usd FROM budget_spend WHERE connector = ? AND month = ?
	`)
	if err != nil {
		return err
	}

	s.pruneStmt, err = s.db.Prepare(`
		DELETE FROM budget_spend WHERE month < ?
	`)
	return err
}

// Add records spend for the connector in the month.
func (s *SQLiteStore) Add(ctx context.Context, connector, month string, usd float64) error {
	_, err := s.addStmt.ExecContext(ctx, connector, month, usd)
	if err != nil {
		return fmt.Errorf("failed to record budget spend: %w", err)
	}
	return nil
}

// Spent returns the accumulated spend for the connector in the month.
func (s *SQLiteStore) Spent(ctx context.Context, connector, month string) (float64, error) {
	var spent float64
	err := s.spentStmt.QueryRowContext(ctx, connector, month).Scan(&spent)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read budget spend: %w", err)
	}
	return spent, nil
}

// Prune discards months before keepFrom.
func (s *SQLiteStore) Prune(ctx context.Context, keepFrom string) (int, error) {
	res, err := s.pruneStmt.ExecContext(ctx, keepFrom)
	if err != nil {
		return 0, fmt.Errorf("failed to prune budget records: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return int(n), nil
}

// Close closes the prepared statements and the database.
func (s *SQLiteStore) Close() error {
	for _, stmt := range []*sql.Stmt{s.addStmt, s.spentStmt, s.pruneStmt} {
		if stmt != nil {
			stmt.Close()
		}
	}
	return s.db.Close()
}
