package repository

import (
	"context"
	"time"

	"vaultd/internal/models"
)

// Repository is the persistence surface behind the vault service. The
// database is a read-model and audit trail; the in-memory cores stay
// authoritative, so every write here is best-effort from the caller's
// point of view.
type Repository interface {
	// Strategy mirror.
	UpsertStrategyRecord(ctx context.Context, item *models.StrategyRecord) error
	ListStrategyRecords(ctx context.Context) ([]models.StrategyRecord, error)
	DeleteStrategyRecord(ctx context.Context, chainID, protoID uint64) error

	// Event journal.
	InsertVaultEvent(ctx context.Context, item *models.VaultEvent) error
	ListVaultEvents(ctx context.Context, params ListVaultEventsParams) ([]models.VaultEvent, error)
	CountVaultEvents(ctx context.Context, params ListVaultEventsParams) (int64, error)
	DeleteVaultEventsBefore(ctx context.Context, before time.Time) (int64, error)

	// Rate history.
	InsertRateSample(ctx context.Context, item *models.RateSample) error
	ListRateSamples(ctx context.Context, params ListRateSamplesParams) ([]models.RateSample, error)
}

type ListVaultEventsParams struct {
	Limit   int
	Offset  int
	Kind    *string
	Caller  *string
	Since   *time.Time
	Until   *time.Time
	OrderBy string
	Asc     *bool
}

type ListRateSamplesParams struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}
