package database

import (
	"github.com/frostdev-ops/satwatch/internal/database/repositories"
	"github.com/frostdev-ops/satwatch/internal/database/sqlite"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

// Repositories holds all repository instances
type Repositories struct {
	Telemetry repositories.TelemetryRepository
}

// NewRepositories creates all repository instances
func NewRepositories(db *sqlx.DB, log *logrus.Logger) *Repositories {
	return &Repositories{
		Telemetry: sqlite.NewTelemetryRepository(db, log),
	}
}
