package service

import (
	"database/sql"

	"github.com/stockfolio/performance-backend/internal/database"
	"github.com/stockfolio/performance-backend/internal/version"
)

// SystemService reports process health and version information.
type SystemService struct {
	db *sql.DB
}

// NewSystemService creates a new SystemService.
func NewSystemService(db *sql.DB) *SystemService {
	return &SystemService{db: db}
}

// CheckHealth verifies database connectivity.
func (s *SystemService) CheckHealth() error {
	return database.HealthCheck(s.db)
}

// VersionInfo describes the running build and schema.
type VersionInfo struct {
	AppVersion    string
	SchemaVersion int64
}

// CheckVersion returns the application version and applied schema version.
func (s *SystemService) CheckVersion() (VersionInfo, error) {
	schema, err := database.SchemaVersion(s.db)
	if err != nil {
		return VersionInfo{}, err
	}
	return VersionInfo{
		AppVersion:    version.Version,
		SchemaVersion: schema,
	}, nil
}
