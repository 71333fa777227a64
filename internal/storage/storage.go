package storage

import (
	"time"

	"github.com/dmelnik/buildgate/internal/models"
)

// Storage defines the interface for persisting scan runs
type Storage interface {
	// SaveReport stores a complete aggregate report
	SaveReport(report *models.AggregateReport) error

	// LoadReport loads a report from a specific timestamp
	LoadReport(timestamp time.Time) (*models.AggregateReport, error)

	// GetLatestRun retrieves the most recent aggregate report
	GetLatestRun() (*models.AggregateReport, error)

	// GetLastNRuns retrieves the last N aggregate reports
	GetLastNRuns(n int) ([]*models.AggregateReport, error)

	// ListRuns returns all available run timestamps
	ListRuns() ([]time.Time, error)
}
