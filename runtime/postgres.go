package runtime

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"

	"github.com/formflow/formflow-go/form"
	"github.com/formflow/formflow-go/options"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresStore implements SubmissionStore and FormStore on PostgreSQL with
// a pgx pool and goose-managed schema.
type PostgresStore struct {
	pool   *pgxpool.Pool
	config *PostgresConfig
	types  *options.Registry
}

// PostgresConfig configures the PostgreSQL storage backend.
type PostgresConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxConnections  int           `yaml:"max_connections"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
	AutoMigrate     bool          `yaml:"auto_migrate"`
}

// NewPostgresStore opens a connection pool, pings it, and optionally runs
// the embedded migrations.
func NewPostgresStore(ctx context.Context, config *PostgresConfig) (*PostgresStore, error) {
	if config.MaxConnections == 0 {
		config.MaxConnections = 25
	}
	if config.ConnMaxLifetime == 0 {
		config.ConnMaxLifetime = time.Hour
	}
	if config.ConnMaxIdleTime == 0 {
		config.ConnMaxIdleTime = 30 * time.Minute
	}

	poolConfig, err := pgxpool.ParseConfig(config.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}
	poolConfig.MaxConns = int32(config.MaxConnections)
	poolConfig.MaxConnLifetime = config.ConnMaxLifetime
	poolConfig.MaxConnIdleTime = config.ConnMaxIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &PostgresStore{pool: pool, config: config, types: options.Builtin()}
	if config.AutoMigrate {
		if err := store.runMigrations(); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}
	return store, nil
}

// runMigrations applies the embedded goose migrations over a database/sql
// connection, which is what goose expects.
func (p *PostgresStore) runMigrations() error {
	db, err := sql.Open("postgres", p.config.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (p *PostgresStore) Close() {
	p.pool.Close()
}

func (p *PostgresStore) CreateSubmission(ctx context.Context, formSlug string) (*Submission, error) {
	sub := &Submission{
		ID:     uuid.NewString(),
		Form:   formSlug,
		Status: StatusInProgress,
		Data:   form.AnswerMap{},
	}
	row := p.pool.QueryRow(ctx,
		`INSERT INTO submissions (id, form_slug, status, data)
		 VALUES ($1, $2, $3, '{}'::jsonb)
		 RETURNING created_at, updated_at`,
		sub.ID, sub.Form, sub.Status)
	if err := row.Scan(&sub.CreatedAt, &sub.UpdatedAt); err != nil {
		return nil, fmt.Errorf("failed to create submission: %w", err)
	}
	return sub, nil
}

func (p *PostgresStore) GetSubmission(ctx context.Context, id string) (*Submission, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT id, form_slug, status, data, created_at, updated_at
		 FROM submissions WHERE id = $1`, id)
	return scanSubmission(row, id)
}

func (p *PostgresStore) UpdateSubmission(ctx context.Context, id string, partial form.AnswerMap) (*Submission, error) {
	current, err := p.GetSubmission(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status == StatusComplete {
		return nil, ErrCompleted
	}

	merged := mergeAnswers(current.Data, partial)
	data, err := json.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("failed to encode answers: %w", err)
	}
	row := p.pool.QueryRow(ctx,
		`UPDATE submissions SET data = $2, updated_at = now()
		 WHERE id = $1 AND status = $3
		 RETURNING id, form_slug, status, data, created_at, updated_at`,
		id, data, StatusInProgress)
	return scanSubmission(row, id)
}

func (p *PostgresStore) SubmitForm(ctx context.Context, id string, full form.AnswerMap) (*Submission, error) {
	data, err := json.Marshal(full)
	if err != nil {
		return nil, fmt.Errorf("failed to encode answers: %w", err)
	}
	row := p.pool.QueryRow(ctx,
		`UPDATE submissions SET data = $2, status = $3, updated_at = now()
		 WHERE id = $1 AND status = $4
		 RETURNING id, form_slug, status, data, created_at, updated_at`,
		id, data, StatusComplete, StatusInProgress)
	sub, err := scanSubmission(row, id)
	if errors.Is(err, ErrNotFound) {
		// Either unknown or already completed; disambiguate for the caller.
		if existing, getErr := p.GetSubmission(ctx, id); getErr == nil && existing.Status == StatusComplete {
			return nil, ErrCompleted
		}
	}
	return sub, err
}

func (p *PostgresStore) ListSubmissions(ctx context.Context, formSlug string) ([]*Submission, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, form_slug, status, data, created_at, updated_at
		 FROM submissions
		 WHERE ($1 = '' OR form_slug = $1)
		 ORDER BY created_at`, formSlug)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	defer rows.Close()

	var out []*Submission
	for rows.Next() {
		sub, err := scanSubmission(rows, "")
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func (p *PostgresStore) HealthCheck(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *PostgresStore) GetForm(ctx context.Context, slug string) (*form.Definition, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT definition FROM form_versions
		 WHERE form_slug = $1 ORDER BY version DESC LIMIT 1`, slug)
	return scanDefinition(row, slug)
}

func (p *PostgresStore) GetDraftForm(ctx context.Context, slug string) (*form.Definition, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT definition FROM form_drafts WHERE slug = $1`, slug)
	return scanDefinition(row, slug)
}

// PutDraft stores or replaces the working copy of a form.
func (p *PostgresStore) PutDraft(ctx context.Context, def *form.Definition) error {
	if err := def.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("failed to encode definition: %w", err)
	}
	_, err = p.pool.Exec(ctx,
		`INSERT INTO form_drafts (slug, definition, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (slug) DO UPDATE SET definition = $2, updated_at = now()`,
		def.Slug, data)
	if err != nil {
		return fmt.Errorf("failed to store draft: %w", err)
	}
	return nil
}

func (p *PostgresStore) PublishForm(ctx context.Context, slug, notes string) (*FormVersion, error) {
	def, err := p.GetDraftForm(ctx, slug)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(def)
	if err != nil {
		return nil, fmt.Errorf("failed to encode definition: %w", err)
	}

	version := &FormVersion{Form: slug, Notes: notes, Definition: def}
	row := p.pool.QueryRow(ctx,
		`INSERT INTO form_versions (form_slug, version, notes, definition)
		 VALUES ($1,
		         COALESCE((SELECT MAX(version) FROM form_versions WHERE form_slug = $1), 0) + 1,
		         $2, $3)
		 RETURNING version, created_at`,
		slug, notes, data)
	if err := row.Scan(&version.Version, &version.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to publish form: %w", err)
	}
	return version, nil
}

func (p *PostgresStore) ListForms(ctx context.Context) ([]string, error) {
	rows, err := p.pool.Query(ctx, `SELECT slug FROM form_drafts ORDER BY slug`)
	if err != nil {
		return nil, fmt.Errorf("failed to list forms: %w", err)
	}
	defer rows.Close()

	var slugs []string
	for rows.Next() {
		var slug string
		if err := rows.Scan(&slug); err != nil {
			return nil, err
		}
		slugs = append(slugs, slug)
	}
	return slugs, rows.Err()
}

func (p *PostgresStore) QuestionTypes(ctx context.Context) (*options.Registry, error) {
	return p.types, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubmission(row rowScanner, id string) (*Submission, error) {
	sub := &Submission{}
	var data []byte
	err := row.Scan(&sub.ID, &sub.Form, &sub.Status, &data, &sub.CreatedAt, &sub.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("submission %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan submission: %w", err)
	}
	if err := json.Unmarshal(data, &sub.Data); err != nil {
		return nil, fmt.Errorf("failed to decode answers: %w", err)
	}
	return sub, nil
}

func scanDefinition(row rowScanner, slug string) (*form.Definition, error) {
	var data []byte
	err := row.Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("form %s: %w", slug, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan form: %w", err)
	}
	def := &form.Definition{}
	if err := json.Unmarshal(data, def); err != nil {
		return nil, fmt.Errorf("failed to decode form definition: %w", err)
	}
	return def, nil
}
