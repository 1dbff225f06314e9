package tablesource

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-erd/pkg/config"
	"github.com/ekaya-inc/ekaya-erd/pkg/logging"
	"github.com/ekaya-inc/ekaya-erd/pkg/models"
)

const postgresDefaultSchema = "public"

func init() {
	Register(Registration{
		Info: SourceInfo{
			Type:        "postgres",
			DisplayName: "PostgreSQL",
			Description: "Tables of one PostgreSQL schema, sampled",
		},
		Factory: func(ctx context.Context, opts Options, logger *zap.Logger) (Source, error) {
			return NewPostgresSource(ctx, opts, logger)
		},
	})
}

// PostgresSource loads tables from PostgreSQL through a pgx pool.
type PostgresSource struct {
	pool   *pgxpool.Pool
	opts   Options
	logger *zap.Logger
}

// NewPostgresSource connects to the database named by opts.Location (a URL or
// key/value DSN). localhost is rewritten when running inside Docker.
func NewPostgresSource(ctx context.Context, opts Options, logger *zap.Logger) (*PostgresSource, error) {
	if opts.Location == "" {
		return nil, fmt.Errorf("postgres source requires a connection string")
	}

	poolCfg, err := pgxpool.ParseConfig(opts.Location)
	if err != nil {
		return nil, fmt.Errorf("parse postgres connection string: %s", logging.SanitizeError(err))
	}
	poolCfg.ConnConfig.Host = config.ResolveHostForDocker(poolCfg.ConnConfig.Host)
	poolCfg.MaxConns = 4

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %s", logging.SanitizeError(err))
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect postgres: %s", logging.SanitizeError(err))
	}

	logger = logger.Named("postgres-source")
	logger.Debug("Connected", zap.String("dsn", logging.SanitizeConnectionString(opts.Location)))

	return &PostgresSource{
		pool:   pool,
		opts:   opts,
		logger: logger,
	}, nil
}

func (s *PostgresSource) schema() string {
	if s.opts.Schema != "" {
		return s.opts.Schema
	}
	return postgresDefaultSchema
}

// ListTables returns the base tables of the configured schema, sorted by name.
func (s *PostgresSource) ListTables(ctx context.Context) ([]string, error) {
	const query = `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_type = 'BASE TABLE'
		  AND table_schema = $1
		ORDER BY table_name
	`

	rows, err := s.pool.Query(ctx, query, s.schema())
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table: %w", err)
		}
		if s.opts.wants(name) {
			names = append(names, name)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tables: %w", err)
	}
	return names, nil
}

// LoadTables implements Source.
func (s *PostgresSource) LoadTables(ctx context.Context) (models.TableSet, error) {
	names, err := s.ListTables(ctx)
	if err != nil {
		return nil, err
	}

	tables := make(models.TableSet, 0, len(names))
	for _, name := range names {
		t, err := s.loadTable(ctx, name)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}

	s.logger.Debug("Loaded tables",
		zap.String("schema", s.schema()),
		zap.Int("tables", len(tables)),
		zap.Int("max_rows", s.opts.MaxRows))
	return tables, nil
}

func (s *PostgresSource) loadTable(ctx context.Context, name string) (*models.Table, error) {
	query := "SELECT * FROM " + pgx.Identifier{s.schema(), name}.Sanitize()
	var args []any
	if s.opts.MaxRows > 0 {
		query += " LIMIT $1"
		args = append(args, s.opts.MaxRows)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sample table %s: %w", name, err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	table := &models.Table{Name: name, Columns: make([]models.Column, len(fields))}
	for i, f := range fields {
		table.Columns[i].Name = f.Name
	}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read row of %s: %w", name, err)
		}
		for i, v := range values {
			table.Columns[i].Values = append(table.Columns[i].Values, toValue(v, false))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows of %s: %w", name, err)
	}
	s.opts.markSample(table)
	return table, nil
}

// Close implements Source.
func (s *PostgresSource) Close() error {
	s.pool.Close()
	return nil
}
