// Package store provides durable SQLite persistence for injections,
// callbacks, and the join-based findings view that correlates them.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// ErrDuplicateID is returned when an injection insert reuses an existing
// correlation ID.
var ErrDuplicateID = errors.New("store: duplicate correlation ID")

// InjectionRecord is one payload transmission, keyed by its correlation ID.
// Records are immutable once written.
type InjectionRecord struct {
	ID         string  // correlation ID, 16 lowercase hex chars
	TargetURL  string  // full URL after parameter mutation
	Parameter  string  // location-qualified name, e.g. "query:q"
	Payload    string  // final substituted payload
	Context    string  // optional vulnerability-class tag, drives severity
	InjectedAt float64 // wall-clock seconds since epoch, fractional
}

// CallbackRecord is one out-of-band interaction attributed to an injection.
type CallbackRecord struct {
	ID            int64
	CorrelationID string
	SourceIP      string
	RequestPath   string // HTTP path, or "DNS:<qname>" for DNS callbacks
	Headers       map[string]string
	Body          []byte
	ReceivedAt    float64
}

// Store is the SQLite-backed persistence layer. It is safe for concurrent
// use; SQLite itself serializes writers through the single connection.
type Store struct {
	db   *sql.DB
	path string
}

// DefaultPath returns the default database location, ~/.ricochet/ricochet.db,
// creating the parent directory if needed.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	dir := filepath.Join(home, ".ricochet")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create data directory: %w", err)
	}
	return filepath.Join(dir, "ricochet.db"), nil
}

// Open opens (or creates) the database at path and initializes the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	// Pragmas in the DSN so every pool connection is configured.
	dsn := path + "?" + url.Values{
		"_pragma": []string{
			"busy_timeout(5000)",
			"journal_mode(WAL)",
			"synchronous(NORMAL)",
			"foreign_keys(ON)",
		},
	}.Encode()
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite works best with a single writer connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &Store{db: db, path: path}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	log.Debug().Str("path", path).Msg("Injection store opened")
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS injections (
		id TEXT PRIMARY KEY,
		target_url TEXT NOT NULL,
		parameter TEXT NOT NULL,
		payload TEXT NOT NULL,
		context TEXT,
		injected_at REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS callbacks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		correlation_id TEXT NOT NULL,
		source_ip TEXT,
		request_path TEXT,
		headers TEXT,
		body BLOB,
		received_at REAL NOT NULL,
		FOREIGN KEY (correlation_id) REFERENCES injections(id)
	);

	CREATE INDEX IF NOT EXISTS idx_callbacks_correlation
	ON callbacks(correlation_id);

	CREATE INDEX IF NOT EXISTS idx_injections_timestamp
	ON injections(injected_at);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("initialize schema: %w", err)
	}
	return nil
}

// RecordInjection inserts an injection row. It fails with ErrDuplicateID if
// the correlation ID already exists.
func (s *Store) RecordInjection(rec InjectionRecord) error {
	var context sql.NullString
	if rec.Context != "" {
		context = sql.NullString{String: rec.Context, Valid: true}
	}

	_, err := s.db.Exec(`
		INSERT INTO injections (id, target_url, parameter, payload, context, injected_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.TargetURL, rec.Parameter, rec.Payload, context, rec.InjectedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateID, rec.ID)
		}
		return fmt.Errorf("record injection: %w", err)
	}
	return nil
}

// GetInjection returns the injection with the given correlation ID, or nil
// if none exists.
func (s *Store) GetInjection(correlationID string) (*InjectionRecord, error) {
	row := s.db.QueryRow(`
		SELECT id, target_url, parameter, payload, context, injected_at
		FROM injections WHERE id = ?`, correlationID)

	rec, err := scanInjection(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get injection: %w", err)
	}
	return rec, nil
}

// ListInjections returns up to limit injections, newest first. A limit of
// zero or less means no limit.
func (s *Store) ListInjections(limit int) ([]InjectionRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(`
		SELECT id, target_url, parameter, payload, context, injected_at
		FROM injections ORDER BY injected_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list injections: %w", err)
	}
	defer rows.Close()

	var records []InjectionRecord
	for rows.Next() {
		rec, err := scanInjection(rows)
		if err != nil {
			return nil, fmt.Errorf("list injections: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list injections: %w", err)
	}
	return records, nil
}

// RecordCallback inserts a callback row if (and only if) the correlation ID
// refers to an existing injection. It returns false, with no insert, for
// unknown IDs. The existence check and the insert run in one transaction so
// a concurrent injector cannot slip a new row between them.
func (s *Store) RecordCallback(correlationID, sourceIP, requestPath string, headers map[string]string, body []byte) (bool, error) {
	headerJSON, err := json.Marshal(headers)
	if err != nil {
		return false, fmt.Errorf("encode callback headers: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return false, fmt.Errorf("record callback: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRow(`SELECT 1 FROM injections WHERE id = ?`, correlationID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("record callback: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO callbacks (correlation_id, source_ip, request_path, headers, body, received_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		correlationID, sourceIP, requestPath, string(headerJSON), body, nowSeconds(),
	)
	if err != nil {
		return false, fmt.Errorf("record callback: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("record callback: %w", err)
	}
	return true, nil
}

// CallbacksForInjection returns all callbacks for a correlation ID, newest
// first.
func (s *Store) CallbacksForInjection(correlationID string) ([]CallbackRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, correlation_id, source_ip, request_path, headers, body, received_at
		FROM callbacks
		WHERE correlation_id = ?
		ORDER BY received_at DESC`, correlationID)
	if err != nil {
		return nil, fmt.Errorf("get callbacks: %w", err)
	}
	defer rows.Close()

	var records []CallbackRecord
	for rows.Next() {
		rec, err := scanCallback(rows)
		if err != nil {
			return nil, fmt.Errorf("get callbacks: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get callbacks: %w", err)
	}
	return records, nil
}

// FindingFilter narrows the findings join.
type FindingFilter struct {
	// Since, when set, keeps only callbacks with received_at strictly
	// greater than the value. Strict comparison is what prevents
	// duplicates across polling batches.
	Since *float64

	// MinSeverity drops findings below the threshold. The severity is
	// derived from the injection context after the query, so the filter
	// is applied post-query.
	MinSeverity Severity
}

// Findings joins injections and callbacks on the correlation ID and returns
// one Finding per pair, ordered newest callback first.
func (s *Store) Findings(filter FindingFilter) ([]Finding, error) {
	query := `
		SELECT i.id, i.target_url, i.parameter, i.payload, i.context, i.injected_at,
		       c.id, c.source_ip, c.request_path, c.headers, c.body, c.received_at
		FROM injections i
		JOIN callbacks c ON i.id = c.correlation_id`
	args := []any{}
	if filter.Since != nil {
		query += ` WHERE c.received_at > ?`
		args = append(args, *filter.Since)
	}
	query += ` ORDER BY c.received_at DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query findings: %w", err)
	}
	defer rows.Close()

	var findings []Finding
	for rows.Next() {
		var (
			f          Finding
			context    sql.NullString
			sourceIP   sql.NullString
			path       sql.NullString
			headerJSON sql.NullString
		)
		err := rows.Scan(
			&f.CorrelationID, &f.TargetURL, &f.Parameter, &f.Payload, &context, &f.InjectedAt,
			&f.CallbackID, &sourceIP, &path, &headerJSON, &f.CallbackBody, &f.ReceivedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan finding: %w", err)
		}
		f.Context = context.String
		f.SourceIP = sourceIP.String
		f.RequestPath = path.String
		f.CallbackHeaders = decodeHeaders(headerJSON.String)
		f.DelaySeconds = f.ReceivedAt - f.InjectedAt

		if f.Severity() < filter.MinSeverity {
			continue
		}
		findings = append(findings, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query findings: %w", err)
	}
	return findings, nil
}

// InjectionWithCallbacks pairs an injection with its callback count.
type InjectionWithCallbacks struct {
	Injection     InjectionRecord
	CallbackCount int
	LastCallback  float64
}

// InjectionsWithCallbacks returns every injection that has received at least
// one callback, ordered by most recent callback first.
func (s *Store) InjectionsWithCallbacks() ([]InjectionWithCallbacks, error) {
	rows, err := s.db.Query(`
		SELECT i.id, i.target_url, i.parameter, i.payload, i.context, i.injected_at,
		       COUNT(c.id), MAX(c.received_at)
		FROM injections i
		JOIN callbacks c ON i.id = c.correlation_id
		GROUP BY i.id
		ORDER BY MAX(c.received_at) DESC`)
	if err != nil {
		return nil, fmt.Errorf("query injections with callbacks: %w", err)
	}
	defer rows.Close()

	var results []InjectionWithCallbacks
	for rows.Next() {
		var (
			item    InjectionWithCallbacks
			context sql.NullString
		)
		err := rows.Scan(
			&item.Injection.ID, &item.Injection.TargetURL, &item.Injection.Parameter,
			&item.Injection.Payload, &context, &item.Injection.InjectedAt,
			&item.CallbackCount, &item.LastCallback,
		)
		if err != nil {
			return nil, fmt.Errorf("scan injection with callbacks: %w", err)
		}
		item.Injection.Context = context.String
		results = append(results, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query injections with callbacks: %w", err)
	}
	return results, nil
}

// Reset deletes all injections and callbacks. Administrative use only.
func (s *Store) Reset() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("reset store: %w", err)
	}
	defer tx.Rollback()

	// Callbacks first so the foreign key constraint holds throughout.
	if _, err := tx.Exec(`DELETE FROM callbacks`); err != nil {
		return fmt.Errorf("reset store: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM injections`); err != nil {
		return fmt.Errorf("reset store: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("reset store: %w", err)
	}

	log.Info().Str("path", s.path).Msg("Store reset")
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInjection(row rowScanner) (*InjectionRecord, error) {
	var (
		rec     InjectionRecord
		context sql.NullString
	)
	err := row.Scan(&rec.ID, &rec.TargetURL, &rec.Parameter, &rec.Payload, &context, &rec.InjectedAt)
	if err != nil {
		return nil, err
	}
	rec.Context = context.String
	return &rec, nil
}

func scanCallback(row rowScanner) (CallbackRecord, error) {
	var (
		rec        CallbackRecord
		sourceIP   sql.NullString
		path       sql.NullString
		headerJSON sql.NullString
	)
	err := row.Scan(&rec.ID, &rec.CorrelationID, &sourceIP, &path, &headerJSON, &rec.Body, &rec.ReceivedAt)
	if err != nil {
		return rec, err
	}
	rec.SourceIP = sourceIP.String
	rec.RequestPath = path.String
	rec.Headers = decodeHeaders(headerJSON.String)
	return rec, nil
}

func decodeHeaders(raw string) map[string]string {
	headers := make(map[string]string)
	if raw == "" {
		return headers
	}
	if err := json.Unmarshal([]byte(raw), &headers); err != nil {
		log.Warn().Err(err).Msg("Undecodable callback headers in store")
	}
	return headers
}

func isUniqueViolation(err error) bool {
	// modernc.org/sqlite reports constraint failures in the error text;
	// SQLITE_CONSTRAINT_PRIMARYKEY is extended code 1555.
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "constraint failed") && strings.Contains(msg, "1555")
}

func nowSeconds() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}
