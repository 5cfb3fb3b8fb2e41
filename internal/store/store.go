// Package store persists converted coverage reports in SQLite or libSQL.
package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fortio.org/safecast"
	"github.com/google/uuid"
	libsql "github.com/tursodatabase/libsql-client-go/libsql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/zjy-dev/covingest/internal/coverage"
)

// ErrNotFound means no report has the requested ID.
var ErrNotFound = errors.New("report not found")

const insertBatchSize = 500

// Options configures Open.
type Options struct {
	// DSN is a SQLite file path, ":memory:", or a libsql://, http:// or
	// https:// URL.
	DSN string
	// AuthToken authenticates remote libSQL databases.
	AuthToken string
	// Debug logs every statement.
	Debug bool
}

// Store saves and loads reports.
type Store struct {
	db *gorm.DB
}

// Stored is a report read back from the store.
type Stored struct {
	ID        string
	Name      string
	Format    coverage.Format
	CreatedAt time.Time
	Report    *coverage.Report
}

// Entry describes a stored report without its regions.
type Entry struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Format      string    `json:"format"`
	RegionCount uint32    `json:"regions"`
	CreatedAt   time.Time `json:"created_at"`
}

// Open connects to the database and runs migrations.
func Open(opts Options) (*Store, error) {
	db, err := Connect(opts)
	if err != nil {
		return nil, err
	}
	return New(db), nil
}

// New wraps an open, migrated connection.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Connect establishes a database connection and runs migrations.
func Connect(opts Options) (*gorm.DB, error) {
	dsn := opts.DSN
	if dsn == "" {
		return nil, errors.New("database dsn is empty")
	}

	if !isURL(dsn) && dsn != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	config := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)}
	if opts.Debug {
		config.Logger = gormlogger.Default.LogMode(gormlogger.Info)
	}

	var (
		dialector gorm.Dialector
		conn      *sql.DB
	)
	if isURL(dsn) {
		var (
			connector driver.Connector
			err       error
		)
		if opts.AuthToken != "" {
			connector, err = libsql.NewConnector(dsn, libsql.WithAuthToken(opts.AuthToken))
		} else {
			connector, err = libsql.NewConnector(dsn)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create libsql connector: %w", err)
		}

		conn = sql.OpenDB(connector)
		dialector = sqlite.New(sqlite.Config{
			DriverName: "libsql",
			Conn:       conn,
			DSN:        dsn,
		})
	} else {
		dialector = sqlite.Open(dsn)
	}

	db, err := gorm.Open(dialector, config)
	if err != nil {
		if conn != nil {
			conn.Close()
		}
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	if sqlDB, err := db.DB(); err == nil && dsn == ":memory:" {
		// Every connection would otherwise see its own empty database.
		sqlDB.SetMaxOpenConns(1)
	}

	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return db, nil
}

func isURL(dsn string) bool {
	for _, scheme := range []string{"http://", "https://", "libsql://"} {
		if strings.HasPrefix(dsn, scheme) {
			return true
		}
	}
	return false
}

// Migrate creates or updates the schema.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&ReportRecord{}, &RegionRecord{})
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Save persists a report and returns its new ID.
func (s *Store) Save(ctx context.Context, name string, format coverage.Format, report *coverage.Report) (string, error) {
	count, err := safecast.Conv[uint32](len(report.Regions))
	if err != nil {
		return "", fmt.Errorf("report has too many regions: %w", err)
	}

	record := ReportRecord{
		ID:          uuid.NewString(),
		Name:        name,
		Format:      format.String(),
		RegionCount: count,
	}
	regions := make([]RegionRecord, len(report.Regions))
	for i, r := range report.Regions {
		regions[i] = RegionRecord{
			ReportID:   record.ID,
			Seq:        uint32(i),
			File:       r.File,
			FromLine:   r.From.Line,
			FromColumn: r.From.Column,
			ToLine:     r.To.Line,
			ToColumn:   r.To.Column,
			Statements: r.Statements,
			Executions: r.Executions,
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Regions").Create(&record).Error; err != nil {
			return fmt.Errorf("failed to insert report: %w", err)
		}
		if len(regions) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(&regions, insertBatchSize).Error; err != nil {
			return fmt.Errorf("failed to insert regions: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return record.ID, nil
}

// Load reads a report back with its regions in their original order.
func (s *Store) Load(ctx context.Context, id string) (*Stored, error) {
	var record ReportRecord
	err := s.db.WithContext(ctx).
		Preload("Regions", func(db *gorm.DB) *gorm.DB { return db.Order("seq") }).
		Where("id = ?", id).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load report: %w", err)
	}

	format, err := coverage.ParseFormat(record.Format)
	if err != nil {
		return nil, fmt.Errorf("stored report %s: %w", id, err)
	}

	paths := coverage.NewPathTable()
	regions := make([]coverage.Region, len(record.Regions))
	for i, r := range record.Regions {
		regions[i] = coverage.Region{
			File:       paths.Intern(r.File),
			From:       coverage.Position{Line: r.FromLine, Column: r.FromColumn},
			To:         coverage.Position{Line: r.ToLine, Column: r.ToColumn},
			Statements: r.Statements,
			Executions: r.Executions,
		}
	}

	return &Stored{
		ID:        record.ID,
		Name:      record.Name,
		Format:    format,
		CreatedAt: record.CreatedAt,
		Report:    &coverage.Report{Regions: regions},
	}, nil
}

// List returns stored reports, newest first. A non-positive limit means all.
func (s *Store) List(ctx context.Context, name string, limit int) ([]Entry, error) {
	query := s.db.WithContext(ctx).Model(&ReportRecord{}).Order("created_at DESC, id")
	if name != "" {
		query = query.Where("name = ?", name)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var records []ReportRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}

	entries := make([]Entry, len(records))
	for i, r := range records {
		entries[i] = Entry{
			ID:          r.ID,
			Name:        r.Name,
			Format:      r.Format,
			RegionCount: r.RegionCount,
			CreatedAt:   r.CreatedAt,
		}
	}
	return entries, nil
}

// Delete removes a report and its regions.
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("report_id = ?", id).Delete(&RegionRecord{}).Error; err != nil {
			return fmt.Errorf("failed to delete regions: %w", err)
		}
		result := tx.Where("id = ?", id).Delete(&ReportRecord{})
		if result.Error != nil {
			return fmt.Errorf("failed to delete report: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil
	})
}
