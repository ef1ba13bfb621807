package logsink

import (
	"strings"

	"github.com/yanun0323/errors"
	"gorm.io/gorm"
)

// LogRow is the persisted shape of one telemetry row.
type LogRow struct {
	ID    uint   `gorm:"primaryKey;autoIncrement"`
	RunID string `gorm:"size:64;index:idx_run_log"`
	Log   string `gorm:"size:32;index:idx_run_log"`
	Seq   int    `gorm:"not null"`
	Cells string `gorm:"type:text"`
}

func (LogRow) TableName() string { return "sim_log_rows" }

// Postgres appends rows of one log to a shared table, keyed by run ID.
type Postgres struct {
	db    *gorm.DB
	runID string
	log   string
	seq   int
}

func (p *Postgres) Write(row []string) error {
	p.seq++
	r := LogRow{
		RunID: p.runID,
		Log:   p.log,
		Seq:   p.seq,
		Cells: strings.Join(row, ","),
	}
	if err := p.db.Create(&r).Error; err != nil {
		return errors.Wrapf(err, "insert %s row", p.log)
	}
	return nil
}

func (p *Postgres) Close() error { return nil }

// PostgresFactory migrates the log table once and scopes every sink it
// builds to the given run ID.
func PostgresFactory(db *gorm.DB, runID string) (Factory, error) {
	if db == nil {
		return nil, errors.New("postgres factory: nil db")
	}
	if err := db.AutoMigrate(&LogRow{}); err != nil {
		return nil, errors.Wrap(err, "migrate sim_log_rows")
	}
	return func(name string) (Sink, error) {
		return &Postgres{db: db, runID: runID, log: name}, nil
	}, nil
}
