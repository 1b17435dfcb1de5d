// Package sqldb implements the storage contract on a relational
// database through GORM. One implementation serves sqlite, postgres
// and mysql; the dialector is the only thing that differs. Sequence
// allocation locks a counter row, so concurrent processes sharing the
// database still get collision-free numbers.
package sqldb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/mbardeau/factura/pkg/config"
	"github.com/mbardeau/factura/pkg/models"
	"github.com/mbardeau/factura/pkg/storage"
)

func init() {
	storage.Register(config.BackendSQLite, Open)
	storage.Register(config.BackendPostgres, Open)
	storage.Register(config.BackendMySQL, Open)
}

// Store wraps one GORM connection pool.
type Store struct {
	db  *gorm.DB
	log zerolog.Logger
}

// Open connects to the database named by cfg.Backend, retrying while
// the server comes up, and migrates the schema.
func Open(cfg config.Settings, log zerolog.Logger) (storage.Store, error) {
	dialector, retries, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	gormLevel := gormlogger.Silent
	if cfg.Log.Level == "debug" {
		gormLevel = gormlogger.Info
	}
	gormCfg := &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormLevel),
		TranslateError: true,
	}

	var db *gorm.DB
	for attempt := 0; attempt < retries; attempt++ {
		db, err = gorm.Open(dialector, gormCfg)
		if err == nil {
			break
		}
		log.Warn().Err(err).Int("attempt", attempt+1).Msg("database connection failed, retrying")
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: connect %s: %v", models.ErrBackendUnavailable, cfg.Backend, err)
	}

	if pingErr := db.Exec("SELECT 1").Error; pingErr != nil {
		return nil, fmt.Errorf("%w: ping: %v", models.ErrBackendUnavailable, pingErr)
	}

	if err := migrate(db); err != nil {
		return nil, err
	}

	return &Store{
		db:  db,
		log: log.With().Str("backend", cfg.Backend).Logger(),
	}, nil
}

func dialectorFor(cfg config.Settings) (gorm.Dialector, int, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		return sqlite.Open(cfg.SQLitePath()), 1, nil
	case config.BackendPostgres:
		return postgres.Open(cfg.DatabaseURL), 10, nil
	case config.BackendMySQL:
		return mysql.Open(cfg.DatabaseURL), 10, nil
	default:
		return nil, 0, fmt.Errorf("sqldb does not serve backend %q", cfg.Backend)
	}
}

func migrate(db *gorm.DB) error {
	toMigrate := []interface{}{
		&models.Client{},
		&models.Product{},
		&models.Company{},
		&models.PaymentNote{},
		&models.Invoice{},
		&models.InvoiceLine{},
		&models.Payment{},
		&models.CreditNote{},
		&models.AuditLogEntry{},
		&sequenceCounter{},
	}
	for _, m := range toMigrate {
		if err := db.AutoMigrate(m); err != nil {
			return fmt.Errorf("automigrate %T: %w", m, err)
		}
	}
	for _, table := range []string{"invoices", "sequence_counters"} {
		if !db.Migrator().HasTable(table) {
			return errors.New("missing table after migration: " + table)
		}
	}
	return nil
}

func (s *Store) Invoices() storage.InvoiceRepository         { return &invoiceRepo{db: s.db} }
func (s *Store) CreditNotes() storage.CreditNoteRepository   { return &creditNoteRepo{db: s.db} }
func (s *Store) Payments() storage.PaymentRepository         { return &paymentRepo{db: s.db} }
func (s *Store) Clients() storage.ClientRepository           { return &clientRepo{db: s.db} }
func (s *Store) Products() storage.ProductRepository         { return &productRepo{db: s.db} }
func (s *Store) Companies() storage.CompanyRepository        { return &companyRepo{db: s.db} }
func (s *Store) PaymentNotes() storage.PaymentNoteRepository { return &paymentNoteRepo{db: s.db} }
func (s *Store) AuditLogs() storage.AuditLogRepository       { return &auditRepo{db: s.db} }
func (s *Store) Sequences() storage.SequenceSource           { return &sequenceSource{db: s.db} }

// DB exposes the underlying handle for tests.
func (s *Store) DB() *gorm.DB { return s.db }

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrBackendUnavailable, err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", models.ErrBackendUnavailable, err)
	}
	return nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// notFound converts gorm's record-not-found to the domain sentinel,
// keeping the entity and key in the message.
func notFound(err error, entity string, key any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %v: %w", entity, key, models.ErrNotFound)
	}
	return err
}
