package indexer

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"nftlend/core/events"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

var errNilEvent = errors.New("indexer: event must not be nil")

// Store persists the event stream and serves history queries. It satisfies
// events.Emitter so it can sit directly behind the protocol.
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
	nowFn  func() time.Time

	mu  sync.Mutex
	seq uint64
}

// Open connects to the given driver and migrates the schema.
func Open(driver, dsn string, logger *slog.Logger) (*Store, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case DriverSQLite:
		dialector = sqlite.Open(dsn)
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("indexer: unsupported driver %q", driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("indexer: open %s: %w", driver, err)
	}
	return New(db, logger)
}

// New wraps an existing connection.
func New(db *gorm.DB, logger *slog.Logger) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("indexer: db must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := db.AutoMigrate(&EventRecord{}); err != nil {
		return nil, fmt.Errorf("indexer: migrate: %w", err)
	}
	var last EventRecord
	err := db.Order("sequence desc").Limit(1).Find(&last).Error
	if err != nil {
		return nil, fmt.Errorf("indexer: load sequence: %w", err)
	}
	return &Store{db: db, logger: logger, nowFn: time.Now, seq: last.Sequence}, nil
}

// Emit implements events.Emitter. Write failures are logged; the protocol
// state has already committed by the time events are published.
func (s *Store) Emit(evt events.Event) {
	if _, err := s.Record(evt); err != nil {
		s.logger.Error("index event",
			slog.String("component", "indexer"),
			slog.Any("error", err))
	}
}

// Record stores evt and returns the persisted row.
func (s *Store) Record(evt events.Event) (*EventRecord, error) {
	if evt == nil {
		return nil, errNilEvent
	}
	attrs := map[string]string{}
	if payload, ok := evt.(events.Payload); ok && payload.Event() != nil {
		attrs = payload.Event().Attributes
	}
	encoded, err := json.Marshal(attrs)
	if err != nil {
		return nil, err
	}
	eventType := evt.EventType()
	module := eventType
	if idx := strings.IndexByte(eventType, '.'); idx > 0 {
		module = eventType[:idx]
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	record := &EventRecord{
		ID:         uuid.New(),
		Sequence:   s.seq + 1,
		Type:       eventType,
		Module:     module,
		Mint:       attrs["mint"],
		Attributes: string(encoded),
		CreatedAt:  s.nowFn().UTC(),
	}
	if err := s.db.Create(record).Error; err != nil {
		return nil, fmt.Errorf("indexer: insert: %w", err)
	}
	s.seq = record.Sequence
	return record, nil
}

// List returns matching records in publication order.
func (s *Store) List(filter Filter) ([]EventRecord, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	query := s.db.Model(&EventRecord{}).Where("sequence > ?", filter.After)
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.Module != "" {
		query = query.Where("module = ?", filter.Module)
	}
	if filter.Mint != "" {
		query = query.Where("mint = ?", filter.Mint)
	}
	var records []EventRecord
	if err := query.Order("sequence asc").Limit(limit).Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// DecodeAttributes returns the attribute map of a record.
func (r EventRecord) DecodeAttributes() (map[string]string, error) {
	attrs := map[string]string{}
	if r.Attributes == "" {
		return attrs, nil
	}
	if err := json.Unmarshal([]byte(r.Attributes), &attrs); err != nil {
		return nil, err
	}
	return attrs, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
