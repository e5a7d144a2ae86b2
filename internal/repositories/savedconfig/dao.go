package savedconfig

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/Ramsey-B/enygma/pkg/database"
	"github.com/Ramsey-B/enygma/pkg/persistence"
)

const (
	savedConfigurationsTable = "saved_configurations"
)

// SavedConfigurationRow is a saved configuration as stored. Payload holds the
// whole encoded configuration so reads go through persistence.Decode.
type SavedConfigurationRow struct {
	Name      string                          `db:"name"`
	Version   int                             `db:"version"`
	SavedAt   int64                           `db:"saved_at"`
	Payload   database.JSONB[json.RawMessage] `db:"payload"`
	CreatedAt sql.NullTime                    `db:"created_at"`
	UpdatedAt sql.NullTime                    `db:"updated_at"`
}

var savedConfigurationStruct = database.NewStruct(new(SavedConfigurationRow))

// FromConfiguration converts a configuration to a database row.
func FromConfiguration(cfg persistence.SavedConfiguration, now time.Time) (*SavedConfigurationRow, error) {
	data, err := persistence.Encode(cfg)
	if err != nil {
		return nil, err
	}
	return &SavedConfigurationRow{
		Name:      cfg.Name,
		Version:   cfg.State.Version,
		SavedAt:   cfg.Timestamp,
		Payload:   database.JSONB[json.RawMessage]{Data: data},
		CreatedAt: sql.NullTime{Time: now, Valid: true},
		UpdatedAt: sql.NullTime{Time: now, Valid: true},
	}, nil
}

// ToConfiguration decodes the stored payload, migrating older versions.
func ToConfiguration(row *SavedConfigurationRow) (persistence.SavedConfiguration, error) {
	return persistence.Decode(row.Payload.Data)
}

// Now returns the current time in UTC
func Now() time.Time {
	return time.Now().UTC()
}
