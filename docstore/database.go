package docstore

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/did-method-plc/go-diddoc"
	slogGorm "github.com/orandin/slog-gorm"
	"go.opentelemetry.io/otel/metric"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// docDB wraps diddoc.Document to provide SQL Scanner/Valuer for GORM storage.
// The canonical JSON encoding is stored.
type docDB diddoc.Document

// stored documents may carry key fields which lost a conflict when first parsed.
// FirstKeyWins re-selects the same winner, and is lossless for every other document.
var storedDocDecoder = diddoc.Decoder{KeyPolicy: diddoc.FirstKeyWins}

func (d docDB) GormDataType() string {
	return "text"
}

func (d docDB) Value() (driver.Value, error) {
	doc := diddoc.Document(d)
	b, err := doc.Encode()
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (d *docDB) Scan(value interface{}) error {
	var bytes []byte
	switch v := value.(type) {
	case string:
		bytes = []byte(v)
	case []byte:
		bytes = v
	default:
		return fmt.Errorf("unsupported type for docDB: %T", value)
	}
	doc, err := storedDocDecoder.Parse(bytes)
	if err != nil {
		DocLoadFailuresCounter.Add(context.Background(), 1, metric.WithAttributes(StoreGorm))
		return err
	}
	*d = docDB(*doc)
	return nil
}

// DocumentRecord is one stored document, keyed by the document id
type DocumentRecord struct {
	DID       string    `gorm:"column:did;primaryKey"`
	CID       string    `gorm:"column:cid;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
	DocData   docDB     `gorm:"column:doc_data;not null"`
}

func (DocumentRecord) TableName() string {
	return "documents"
}

// GormDocStore implements DocStore using a database backend
type GormDocStore struct {
	db *gorm.DB
}

var _ DocStore = (*GormDocStore)(nil)

// NewGormDocStoreWithDialector creates a new database-backed document store with a custom dialector
func NewGormDocStoreWithDialector(dialector gorm.Dialector, logger *slog.Logger) (*GormDocStore, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
		Logger: slogGorm.New(
			slogGorm.WithHandler(logger.With("component", "docstore").Handler()),
			slogGorm.WithTraceAll(),
			slogGorm.SetLogLevel(slogGorm.DefaultLogType, slog.LevelDebug),
			slogGorm.SetLogLevel(slogGorm.SlowQueryLogType, slog.LevelWarn),
			slogGorm.SetLogLevel(slogGorm.ErrorLogType, slog.LevelError),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&DocumentRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return &GormDocStore{
		db: db,
	}, nil
}

func NewGormDocStoreWithSqlite(dbPath string, logger *slog.Logger) (*GormDocStore, error) {
	return NewGormDocStoreWithDialector(
		sqlite.Open(dbPath+"?mode=rwc&cache=shared&_journal_mode=WAL"),
		logger,
	)
}

func NewGormDocStoreWithPostgres(dsn string, logger *slog.Logger) (*GormDocStore, error) {
	return NewGormDocStoreWithDialector(
		postgres.Open(dsn),
		logger,
	)
}

// NewGormDocStore picks a backend from the URL scheme: "sqlite://<path>", or "postgres://..." (also "postgresql://").
func NewGormDocStore(dbURL string, logger *slog.Logger) (*GormDocStore, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	switch u.Scheme {
	case "sqlite":
		path := strings.TrimPrefix(dbURL, "sqlite://")
		if path == "" {
			return nil, fmt.Errorf("sqlite database URL has no path: %s", dbURL)
		}
		logger.Info("using database", "type", "sqlite", "path", path)
		if strings.Contains(path, "?") {
			// caller supplied their own connection options
			return NewGormDocStoreWithDialector(sqlite.Open(path), logger)
		}
		return NewGormDocStoreWithSqlite(path, logger)
	case "postgres", "postgresql":
		logger.Info("using database", "type", "postgres", "host", u.Host)
		return NewGormDocStoreWithPostgres(dbURL, logger)
	default:
		return nil, fmt.Errorf("unsupported database URL scheme: %q", u.Scheme)
	}
}

func (db *GormDocStore) Close() error {
	sqlDB, err := db.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (db *GormDocStore) GetDoc(ctx context.Context, subject diddoc.Subject) (*DocEntry, error) {
	var rec DocumentRecord
	result := db.db.WithContext(ctx).Where("did = ?", subject.String()).Take(&rec)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("database error: %w", result.Error)
	}

	doc := diddoc.Document(rec.DocData)
	return &DocEntry{
		Subject:   diddoc.Subject(rec.DID),
		CID:       rec.CID,
		UpdatedAt: rec.UpdatedAt,
		Doc:       &doc,
	}, nil
}

func (db *GormDocStore) PutDoc(ctx context.Context, doc *diddoc.Document) (*DocEntry, error) {
	entry, err := newEntry(doc)
	if err != nil {
		return nil, err
	}

	// upsert
	result := db.db.WithContext(ctx).Clauses(clause.OnConflict{
		UpdateAll: true,
	}).Create(&DocumentRecord{
		DID:       entry.Subject.String(),
		CID:       entry.CID,
		UpdatedAt: entry.UpdatedAt,
		DocData:   docDB(*doc),
	})
	if result.Error != nil {
		return nil, fmt.Errorf("failed to store document: %w", result.Error)
	}

	DocsPutCounter.Add(ctx, 1, metric.WithAttributes(StoreGorm))
	return entry, nil
}

func (db *GormDocStore) DeleteDoc(ctx context.Context, subject diddoc.Subject) error {
	result := db.db.WithContext(ctx).Where("did = ?", subject.String()).Delete(&DocumentRecord{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete document: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, subject)
	}
	DocsDeletedCounter.Add(ctx, 1, metric.WithAttributes(StoreGorm))
	return nil
}

func (db *GormDocStore) ListSubjects(ctx context.Context, after string, limit int) ([]diddoc.Subject, error) {
	var dids []string
	result := db.db.WithContext(ctx).
		Model(&DocumentRecord{}).
		Where("did > ?", after).
		Order("did ASC").
		Limit(clampLimit(limit)).
		Pluck("did", &dids)
	if result.Error != nil {
		return nil, fmt.Errorf("database error: %w", result.Error)
	}

	subjects := make([]diddoc.Subject, 0, len(dids))
	for _, did := range dids {
		subjects = append(subjects, diddoc.Subject(did))
	}
	return subjects, nil
}
