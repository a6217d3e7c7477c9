package repo

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"
	"strconv"
	"strings"

	"nextflow/internal/metrics"
)

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

func (d dialect) placeholder(n int) string {
	if d == dialectPostgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

func (d dialect) String() string {
	if d == dialectPostgres {
		return "postgres"
	}
	return "sqlite"
}

// Store owns the database handle and hands out the entity accessors.
type Store struct {
	db      *sql.DB
	dialect dialect
	logger  *slog.Logger
	metrics *metrics.Metrics

	users        *UserTable
	plans        *PlanTable
	clients      *ClientTable
	invoices     *InvoiceTable
	servers      *ServerTable
	templates    *TemplateTable
	messages     *MessageTable
	transactions *TransactionTable
}

// Open connects to the record store. PostgreSQL URLs go through pgx; any
// other value is treated as a SQLite file path.
func Open(ctx context.Context, databaseURL, schema string, logger *slog.Logger, m *metrics.Metrics) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	url := strings.TrimSpace(databaseURL)

	var (
		db  *sql.DB
		d   dialect
		err error
	)
	if strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://") {
		db, err = openPostgres(ctx, url, schema)
		d = dialectPostgres
	} else {
		db, err = openSQLite(ctx, url)
		d = dialectSQLite
	}
	if err != nil {
		return nil, err
	}

	s := newStore(db, d, logger, m)
	s.logger.Info("record store opened", "dialect", d.String())
	return s, nil
}

func newStore(db *sql.DB, d dialect, logger *slog.Logger, m *metrics.Metrics) *Store {
	s := &Store{
		db:      db,
		dialect: d,
		logger:  logger.With("component", "repo"),
		metrics: m,
	}
	s.users = newUserTable(s)
	s.plans = newPlanTable(s)
	s.clients = newClientTable(s)
	s.invoices = newInvoiceTable(s)
	s.servers = newServerTable(s)
	s.templates = newTemplateTable(s)
	s.messages = newMessageTable(s)
	s.transactions = newTransactionTable(s)
	return s
}

// Close releases the database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping ensures the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// RunMigrations applies schema migrations on the connected database.
func (s *Store) RunMigrations(ctx context.Context, filesystem fs.FS) error {
	if err := ApplyMigrations(ctx, s.db, filesystem); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func (s *Store) Users() *UserTable               { return s.users }
func (s *Store) Plans() *PlanTable               { return s.plans }
func (s *Store) Clients() *ClientTable           { return s.clients }
func (s *Store) Invoices() *InvoiceTable         { return s.invoices }
func (s *Store) Servers() *ServerTable           { return s.servers }
func (s *Store) Templates() *TemplateTable       { return s.templates }
func (s *Store) Messages() *MessageTable         { return s.messages }
func (s *Store) Transactions() *TransactionTable { return s.transactions }
