package storage

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/san-kum/cablesim/internal/joint"
	"github.com/san-kum/cablesim/internal/sim"
)

const indexFile = "index.db"

// RunSummary is one row of the run index.
type RunSummary struct {
	ID          string    `gorm:"primaryKey"`
	Scenario    string    `gorm:"index"`
	Timestamp   time.Time `gorm:"index"`
	Steps       int
	Events      int
	Snapped     bool
	PeakTension float64
	MaxStretch  float64
}

// Index is a queryable SQLite summary of the runs in a store. The run
// directories stay the source of truth; Rebuild recreates the index from
// them.
type Index struct {
	db *gorm.DB
}

func OpenIndex(path string) (*Index, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	if err := db.AutoMigrate(&RunSummary{}); err != nil {
		return nil, fmt.Errorf("migrate index: %w", err)
	}
	return &Index{db: db}, nil
}

// OpenIndex opens the index kept next to the run directories.
func (s *Store) OpenIndex() (*Index, error) {
	if err := s.Init(); err != nil {
		return nil, err
	}
	return OpenIndex(filepath.Join(s.baseDir, indexFile))
}

func (ix *Index) Close() error {
	sqlDB, err := ix.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Summarize reduces run metadata to an index row. A run counts as snapped
// when any unlink was caused by physical overload.
func Summarize(meta RunMetadata) RunSummary {
	sum := RunSummary{
		ID:          meta.ID,
		Scenario:    meta.Scenario,
		Timestamp:   meta.Timestamp,
		Steps:       meta.Steps,
		Events:      len(meta.Events),
		PeakTension: meta.Metrics["peak_tension"],
		MaxStretch:  meta.Metrics["max_stretch"],
	}
	for _, ev := range meta.Events {
		if ev.Kind == sim.EventUnlink && ev.Detail == joint.CausePhysics.String() {
			sum.Snapped = true
		}
	}
	return sum
}

// Record inserts or replaces the row for a run.
func (ix *Index) Record(meta RunMetadata) error {
	sum := Summarize(meta)
	return ix.db.Save(&sum).Error
}

type Query struct {
	Scenario    string
	SnappedOnly bool
	Limit       int
}

// Find returns matching runs, oldest first.
func (ix *Index) Find(q Query) ([]RunSummary, error) {
	tx := ix.db.Model(&RunSummary{})
	if q.Scenario != "" {
		tx = tx.Where("scenario = ?", q.Scenario)
	}
	if q.SnappedOnly {
		tx = tx.Where("snapped = ?", true)
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}
	var out []RunSummary
	if err := tx.Order("timestamp").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Rebuild replaces the index contents with the runs found in st.
func (ix *Index) Rebuild(st *Store) (int, error) {
	runs, err := st.List()
	if err != nil {
		return 0, err
	}
	err = ix.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&RunSummary{}).Error; err != nil {
			return err
		}
		for _, meta := range runs {
			sum := Summarize(meta)
			if err := tx.Create(&sum).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("rebuild index: %w", err)
	}
	return len(runs), nil
}
