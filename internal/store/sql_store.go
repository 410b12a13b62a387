package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sqlite "github.com/glebarez/sqlite"
	gorm "gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/cwbudde/tycho/internal/opt"
	"github.com/cwbudde/tycho/internal/runner"
)

// runRecord is the table row behind SQLStore. Summary columns are kept for
// listing; Data holds the complete Run as JSON.
type runRecord struct {
	ID            string `gorm:"primaryKey"`
	State         string `gorm:"index"`
	Problem       string `gorm:"index"`
	Algorithm     string
	Objective     float64
	Iterations    int
	Termination   string
	ExecutionTime time.Duration
	CreatedAt     time.Time `gorm:"index"`
	Data          []byte    `gorm:"type:blob"`
}

func (runRecord) TableName() string {
	return "runs"
}

// SQLStore implements the Store interface on a SQLite database through gorm.
// It is an alternative to FSStore for keeping many runs in one file.
type SQLStore struct {
	db *gorm.DB
}

// NewSQLStore opens (or creates) the SQLite database at path and migrates
// its schema.
func NewSQLStore(path string) (*SQLStore, error) {
	if path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}

	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve raw database: %w", err)
	}
	// SQLite allows a single writer.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&runRecord{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return &SQLStore{db: db}, nil
}

// Close releases the database connection.
func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to retrieve raw database: %w", err)
	}
	return sqlDB.Close()
}

// SaveRun inserts or replaces a run record.
func (s *SQLStore) SaveRun(run *Run) error {
	if run == nil {
		return fmt.Errorf("run cannot be nil")
	}
	if err := run.Validate(); err != nil {
		return err
	}

	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to serialize run: %w", err)
	}

	rec := runRecord{
		ID:            run.ID,
		State:         run.State,
		Problem:       string(run.Config.Problem),
		Algorithm:     string(run.Config.Algorithm),
		Objective:     run.Outcome.Objective,
		Iterations:    run.Outcome.Iterations,
		Termination:   string(run.Outcome.Termination),
		ExecutionTime: run.Outcome.ExecutionTime,
		CreatedAt:     run.CreatedAt,
		Data:          data,
	}
	if result := s.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&rec); result.Error != nil {
		return fmt.Errorf("failed to save run: %w", result.Error)
	}

	slog.Debug("Run saved", "run_id", run.ID, "store", "sql")
	return nil
}

// LoadRun retrieves the run with the given ID.
func (s *SQLStore) LoadRun(id string) (*Run, error) {
	if id == "" {
		return nil, fmt.Errorf("run ID cannot be empty")
	}

	var rec runRecord
	if err := s.db.First(&rec, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{ID: id}
		}
		return nil, fmt.Errorf("failed to load run: %w", err)
	}

	var run Run
	if err := json.Unmarshal(rec.Data, &run); err != nil {
		return nil, fmt.Errorf("failed to deserialize run: %w", err)
	}
	return &run, nil
}

// ListRuns returns summaries of all stored runs, newest first.
func (s *SQLStore) ListRuns() ([]RunInfo, error) {
	var recs []runRecord
	if err := s.db.Omit("data").Order("created_at desc").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	infos := make([]RunInfo, len(recs))
	for i, rec := range recs {
		infos[i] = rec.toInfo()
	}
	return infos, nil
}

// DeleteRun removes the run record.
func (s *SQLStore) DeleteRun(id string) error {
	if id == "" {
		return fmt.Errorf("run ID cannot be empty")
	}

	result := s.db.Delete(&runRecord{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete run: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return &NotFoundError{ID: id}
	}

	slog.Debug("Run deleted", "run_id", id, "store", "sql")
	return nil
}

func (r runRecord) toInfo() RunInfo {
	return RunInfo{
		ID:            r.ID,
		State:         r.State,
		Problem:       runner.Problem(r.Problem),
		Algorithm:     runner.Algorithm(r.Algorithm),
		Objective:     r.Objective,
		Iterations:    r.Iterations,
		Termination:   opt.Termination(r.Termination),
		ExecutionTime: r.ExecutionTime,
		CreatedAt:     r.CreatedAt,
	}
}
