package savedconfig

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/enygma/pkg/database"
	chainerrors "github.com/Ramsey-B/enygma/pkg/errors"
	"github.com/Ramsey-B/enygma/pkg/persistence"
	"github.com/Ramsey-B/enygma/pkg/tracing"
)

var _ persistence.Store = (*Repository)(nil)

// Repository keeps saved configurations in Postgres.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
	now    func() time.Time
}

// NewRepository creates a new saved configuration repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
		now:    Now,
	}
}

// Save inserts the configuration or replaces the one with the same name.
func (r *Repository) Save(ctx context.Context, cfg persistence.SavedConfiguration) error {
	ctx, span := tracing.StartSpan(ctx, "SavedConfigRepository.Save")
	defer span.End()

	if err := persistence.ValidateName(cfg.Name); err != nil {
		return err
	}

	row, err := FromConfiguration(cfg, r.now())
	if err != nil {
		return err
	}

	ib := savedConfigurationStruct.InsertInto(savedConfigurationsTable, row)
	ib.OnConflictUpdate([]string{"name"}, "version", "saved_at", "payload", "updated_at")
	query, args := ib.Build()

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"name":    cfg.Name,
		"version": cfg.State.Version,
	}).Debug("Saving configuration")

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to save configuration")
		return err
	}
	return nil
}

// Load returns false when the name is unknown, the query fails or the stored
// payload is corrupt.
func (r *Repository) Load(ctx context.Context, name string) (persistence.SavedConfiguration, bool) {
	ctx, span := tracing.StartSpan(ctx, "SavedConfigRepository.Load")
	defer span.End()

	sb := savedConfigurationStruct.SelectFrom(savedConfigurationsTable)
	sb.Where(sb.Equal("name", name))
	query, args := sb.Build()

	var row SavedConfigurationRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			r.logger.WithContext(ctx).WithError(err).WithField("name", name).Error("Failed to load configuration")
		}
		return persistence.SavedConfiguration{}, false
	}

	cfg, err := ToConfiguration(&row)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("name", name).Warn("Ignoring corrupt saved configuration")
		return persistence.SavedConfiguration{}, false
	}
	return cfg, true
}

// List returns the saved names in order.
func (r *Repository) List(ctx context.Context) ([]string, error) {
	ctx, span := tracing.StartSpan(ctx, "SavedConfigRepository.List")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select("name").From(savedConfigurationsTable).OrderBy("name")
	query, args := sb.Build()

	names := []string{}
	if err := r.db.SelectContext(ctx, &names, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list configurations")
		return nil, err
	}
	return names, nil
}

func (r *Repository) Delete(ctx context.Context, name string) error {
	ctx, span := tracing.StartSpan(ctx, "SavedConfigRepository.Delete")
	defer span.End()

	db := savedConfigurationStruct.DeleteFrom(savedConfigurationsTable)
	db.Where(db.Equal("name", name))
	query, args := db.Build()

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to delete configuration")
		return err
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return chainerrors.NewChainError(chainerrors.CodeNotFound, "saved configuration not found").AddField("name")
	}
	return nil
}
