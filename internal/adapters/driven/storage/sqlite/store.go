package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/quarry-search/quarry/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/quarry-search/quarry/internal/core/domain"
	"github.com/quarry-search/quarry/internal/core/ports/driven"
)

// Store is a unified SQLite-based storage that provides access to
// all metadata store interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.quarry/data/metadata.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".quarry", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "metadata.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// ConnectorStore returns a ConnectorStore interface backed by this store.
func (s *Store) ConnectorStore() driven.ConnectorStore {
	return &connectorStore{store: s}
}

// CredentialStore returns a CredentialStore interface backed by this store.
func (s *Store) CredentialStore() driven.CredentialStore {
	return &credentialStore{store: s}
}

// CCPairStore returns a CCPairStore interface backed by this store.
func (s *Store) CCPairStore() driven.CCPairStore {
	return &ccpairStore{store: s}
}

// DocumentStore returns a DocumentStore interface backed by this store.
func (s *Store) DocumentStore() driven.DocumentStore {
	return &documentStore{store: s}
}

// AttemptStore returns an AttemptStore interface backed by this store.
func (s *Store) AttemptStore() driven.AttemptStore {
	return &attemptStore{store: s}
}

// SchedulerStore returns a SchedulerStore interface backed by this store.
func (s *Store) SchedulerStore() driven.SchedulerStore {
	return &schedulerStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Connector Store ====================

// connectorStore implements driven.ConnectorStore.
type connectorStore struct {
	store *Store
}

var _ driven.ConnectorStore = (*connectorStore)(nil)

// Save stores or updates a connector.
func (s *connectorStore) Save(ctx context.Context, connector domain.Connector) error {
	configJSON, err := json.Marshal(connector.Config)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}

	now := time.Now().UTC()
	if connector.CreatedAt.IsZero() {
		connector.CreatedAt = now
	}
	connector.UpdatedAt = now

	var indexingStart interface{}
	if connector.IndexingStart != nil {
		indexingStart = connector.IndexingStart.UTC().Format(time.RFC3339)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO connectors (id, source, name, config, refresh_interval_seconds,
			prune_interval_seconds, schedule, indexing_start, disabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			source = excluded.source,
			name = excluded.name,
			config = excluded.config,
			refresh_interval_seconds = excluded.refresh_interval_seconds,
			prune_interval_seconds = excluded.prune_interval_seconds,
			schedule = excluded.schedule,
			indexing_start = excluded.indexing_start,
			disabled = excluded.disabled,
			updated_at = excluded.updated_at
	`, connector.ID, connector.Source, connector.Name, string(configJSON),
		int64(connector.RefreshInterval.Seconds()), int64(connector.PruneInterval.Seconds()),
		nullString(connector.Schedule), indexingStart, boolToInt(connector.Disabled),
		connector.CreatedAt, connector.UpdatedAt)

	if err != nil {
		return fmt.Errorf("saving connector: %w", err)
	}
	return nil
}

// Get retrieves a connector by ID.
func (s *connectorStore) Get(ctx context.Context, id string) (*domain.Connector, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, source, name, config, refresh_interval_seconds, prune_interval_seconds,
			schedule, indexing_start, disabled, created_at, updated_at
		FROM connectors WHERE id = ?
	`, id)

	connector, err := scanConnector(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return connector, nil
}

// List returns all configured connectors.
func (s *connectorStore) List(ctx context.Context) ([]domain.Connector, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, source, name, config, refresh_interval_seconds, prune_interval_seconds,
			schedule, indexing_start, disabled, created_at, updated_at
		FROM connectors
	`)
	if err != nil {
		return nil, fmt.Errorf("querying connectors: %w", err)
	}
	defer rows.Close()

	var connectors []domain.Connector //nolint:prealloc // size unknown from query
	for rows.Next() {
		connector, err := scanConnector(rows.Scan)
		if err != nil {
			return nil, err
		}
		connectors = append(connectors, *connector)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating connectors: %w", err)
	}
	return connectors, nil
}

// Delete removes a connector.
func (s *connectorStore) Delete(ctx context.Context, id string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM connectors WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting connector: %w", err)
	}
	return nil
}

// scanConnector scans a connector row via the given scan function.
func scanConnector(scan func(dest ...any) error) (*domain.Connector, error) {
	var connector domain.Connector
	var configJSON string
	var refreshSeconds, pruneSeconds int64
	var schedule, indexingStart sql.NullString
	var disabled int
	var createdAt, updatedAt sql.NullTime

	if err := scan(&connector.ID, &connector.Source, &connector.Name, &configJSON,
		&refreshSeconds, &pruneSeconds, &schedule, &indexingStart, &disabled,
		&createdAt, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scanning connector: %w", err)
	}

	if err := json.Unmarshal([]byte(configJSON), &connector.Config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	connector.RefreshInterval = time.Duration(refreshSeconds) * time.Second
	connector.PruneInterval = time.Duration(pruneSeconds) * time.Second
	connector.Schedule = schedule.String
	if t := parseNullableTime(indexingStart); !t.IsZero() {
		connector.IndexingStart = &t
	}
	connector.Disabled = disabled == 1
	if createdAt.Valid {
		connector.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		connector.UpdatedAt = updatedAt.Time
	}
	return &connector, nil
}

// ==================== Credential Store ====================

// credentialStore implements driven.CredentialStore.
type credentialStore struct {
	store *Store
}

var _ driven.CredentialStore = (*credentialStore)(nil)

// credentialPayload is the JSON shape of the payload column. Token
// refresh rewrites this column in place; the row identity is stable.
type credentialPayload struct {
	OAuth  *domain.OAuthPayload  `json:"oauth,omitempty"`
	Static *domain.StaticPayload `json:"static,omitempty"`
}

// Save stores or updates a credential.
func (s *credentialStore) Save(ctx context.Context, cred domain.Credential) error {
	payloadJSON, err := json.Marshal(credentialPayload{OAuth: cred.OAuth, Static: cred.Static})
	if err != nil {
		return fmt.Errorf("marshalling payload: %w", err)
	}

	now := time.Now().UTC()
	if cred.CreatedAt.IsZero() {
		cred.CreatedAt = now
	}
	if cred.UpdatedAt.IsZero() {
		cred.UpdatedAt = now
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO credentials (id, source, shared, payload, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			source = excluded.source,
			shared = excluded.shared,
			payload = excluded.payload,
			updated_at = excluded.updated_at
	`, cred.ID, cred.Source, boolToInt(cred.Shared), string(payloadJSON),
		cred.CreatedAt, cred.UpdatedAt)

	if err != nil {
		return fmt.Errorf("saving credential: %w", err)
	}
	return nil
}

// Get retrieves a credential by ID.
func (s *credentialStore) Get(ctx context.Context, id string) (*domain.Credential, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, source, shared, payload, created_at, updated_at
		FROM credentials WHERE id = ?
	`, id)

	cred, err := scanCredential(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return cred, nil
}

// List returns all credentials.
func (s *credentialStore) List(ctx context.Context) ([]domain.Credential, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, source, shared, payload, created_at, updated_at
		FROM credentials
	`)
	if err != nil {
		return nil, fmt.Errorf("querying credentials: %w", err)
	}
	defer rows.Close()

	var creds []domain.Credential //nolint:prealloc // size unknown from query
	for rows.Next() {
		cred, err := scanCredential(rows.Scan)
		if err != nil {
			return nil, err
		}
		creds = append(creds, *cred)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating credentials: %w", err)
	}
	return creds, nil
}

// Delete removes a credential. A credential still referenced by any
// pair is protected and ErrCredentialInUse is returned.
func (s *credentialStore) Delete(ctx context.Context, id string) error {
	var refs int
	row := s.store.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM cc_pairs WHERE credential_id = ?", id)
	if err := row.Scan(&refs); err != nil {
		return fmt.Errorf("counting credential references: %w", err)
	}
	if refs > 0 {
		return domain.ErrCredentialInUse
	}

	_, err := s.store.db.ExecContext(ctx, "DELETE FROM credentials WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting credential: %w", err)
	}
	return nil
}

// scanCredential scans a credential row via the given scan function.
func scanCredential(scan func(dest ...any) error) (*domain.Credential, error) {
	var cred domain.Credential
	var shared int
	var payloadJSON string
	var createdAt, updatedAt sql.NullTime

	if err := scan(&cred.ID, &cred.Source, &shared, &payloadJSON, &createdAt, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scanning credential: %w", err)
	}

	var payload credentialPayload
	if err := json.Unmarshal([]byte(payloadJSON), &payload); err != nil {
		return nil, fmt.Errorf("unmarshaling payload: %w", err)
	}

	cred.Shared = shared == 1
	cred.OAuth = payload.OAuth
	cred.Static = payload.Static
	if createdAt.Valid {
		cred.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		cred.UpdatedAt = updatedAt.Time
	}
	return &cred, nil
}

// ==================== CCPair Store ====================

// ccpairStore implements driven.CCPairStore.
type ccpairStore struct {
	store *Store
}

var _ driven.CCPairStore = (*ccpairStore)(nil)

// Save stores or updates a pair.
func (s *ccpairStore) Save(ctx context.Context, pair domain.CCPair) error {
	now := time.Now().UTC()
	if pair.CreatedAt.IsZero() {
		pair.CreatedAt = now
	}
	pair.UpdatedAt = now

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO cc_pairs (id, connector_id, credential_id, status,
			last_successful_index_time, last_attempt_status, total_docs_indexed,
			failure_streak, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			connector_id = excluded.connector_id,
			credential_id = excluded.credential_id,
			status = excluded.status,
			last_successful_index_time = excluded.last_successful_index_time,
			last_attempt_status = excluded.last_attempt_status,
			total_docs_indexed = excluded.total_docs_indexed,
			failure_streak = excluded.failure_streak,
			updated_at = excluded.updated_at
	`, pair.ID, pair.ConnectorID, nullString(pair.CredentialID), string(pair.Status),
		formatNullableTime(pair.LastSuccessfulIndexTime), nullString(string(pair.LastAttemptStatus)),
		pair.TotalDocsIndexed, pair.FailureStreak, pair.CreatedAt, pair.UpdatedAt)

	if err != nil {
		return fmt.Errorf("saving pair: %w", err)
	}
	return nil
}

// Get retrieves a pair by ID.
func (s *ccpairStore) Get(ctx context.Context, id string) (*domain.CCPair, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, connector_id, credential_id, status, last_successful_index_time,
			last_attempt_status, total_docs_indexed, failure_streak, created_at, updated_at
		FROM cc_pairs WHERE id = ?
	`, id)

	pair, err := scanCCPair(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return pair, nil
}

// List returns all pairs.
func (s *ccpairStore) List(ctx context.Context) ([]domain.CCPair, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, connector_id, credential_id, status, last_successful_index_time,
			last_attempt_status, total_docs_indexed, failure_streak, created_at, updated_at
		FROM cc_pairs
	`)
	if err != nil {
		return nil, fmt.Errorf("querying pairs: %w", err)
	}
	defer rows.Close()

	var pairs []domain.CCPair //nolint:prealloc // size unknown from query
	for rows.Next() {
		pair, err := scanCCPair(rows.Scan)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, *pair)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating pairs: %w", err)
	}
	return pairs, nil
}

// Delete removes a pair. Document associations cascade; orphaned
// documents are cleaned up by the next prune of their remaining pairs.
func (s *ccpairStore) Delete(ctx context.Context, id string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM cc_pairs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting pair: %w", err)
	}
	return nil
}

// scanCCPair scans a pair row via the given scan function.
func scanCCPair(scan func(dest ...any) error) (*domain.CCPair, error) {
	var pair domain.CCPair
	var status string
	var credentialID, lastIndexTime, lastAttemptStatus sql.NullString
	var createdAt, updatedAt sql.NullTime

	if err := scan(&pair.ID, &pair.ConnectorID, &credentialID, &status,
		&lastIndexTime, &lastAttemptStatus, &pair.TotalDocsIndexed,
		&pair.FailureStreak, &createdAt, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scanning pair: %w", err)
	}

	pair.CredentialID = credentialID.String
	pair.Status = domain.CCPairStatus(status)
	pair.LastSuccessfulIndexTime = parseNullableTime(lastIndexTime)
	if lastAttemptStatus.Valid {
		pair.LastAttemptStatus = domain.AttemptStatus(lastAttemptStatus.String)
	}
	if createdAt.Valid {
		pair.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		pair.UpdatedAt = updatedAt.Time
	}
	return &pair, nil
}

// ==================== Helper Functions ====================

// formatNullableTime formats a time to RFC3339 string, or returns nil for zero time.
func formatNullableTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// parseNullableTime parses a nullable RFC3339 string to time.Time.
// Returns zero time if the string is empty or invalid.
func parseNullableTime(s sql.NullString) time.Time {
	if !s.Valid || s.String == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return time.Time{}
	}
	return t
}

// nullString returns nil for empty strings, otherwise the string.
func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// boolToInt converts a bool to 1 (true) or 0 (false).
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
