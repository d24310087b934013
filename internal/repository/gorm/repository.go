package gormrepository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"vaultd/internal/models"
	"vaultd/internal/repository"
)

// Store is the gorm-backed Repository. All methods tolerate a nil receiver
// or nil db so the service can run without persistence configured.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// --- strategy mirror ---------------------------------------------------------

func (s *Store) UpsertStrategyRecord(ctx context.Context, item *models.StrategyRecord) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	if item.ChainID == 0 || item.ProtoID == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "chain_id"}, {Name: "proto_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name",
			"address",
			"min_amount",
			"max_amount",
			"fee_bps",
			"enabled",
			"metadata",
			"updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) ListStrategyRecords(ctx context.Context) ([]models.StrategyRecord, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.StrategyRecord
	if err := s.db.WithContext(ctx).
		Model(&models.StrategyRecord{}).
		Order("chain_id asc, proto_id asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) DeleteStrategyRecord(ctx context.Context, chainID, protoID uint64) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).
		Where("chain_id = ? AND proto_id = ?", chainID, protoID).
		Delete(&models.StrategyRecord{}).Error
}

// --- event journal -----------------------------------------------------------

func (s *Store) InsertVaultEvent(ctx context.Context, item *models.VaultEvent) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) ListVaultEvents(ctx context.Context, params repository.ListVaultEventsParams) ([]models.VaultEvent, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.eventQuery(ctx, params)
	query = applyOrder(query, params.OrderBy, params.Asc, "created_at")
	limit := normalizeLimit(params.Limit, 100)
	offset := normalizeOffset(params.Offset)
	var items []models.VaultEvent
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountVaultEvents(ctx context.Context, params repository.ListVaultEventsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var count int64
	if err := s.eventQuery(ctx, params).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) eventQuery(ctx context.Context, params repository.ListVaultEventsParams) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&models.VaultEvent{})
	if params.Kind != nil && strings.TrimSpace(*params.Kind) != "" {
		query = query.Where("kind = ?", strings.TrimSpace(*params.Kind))
	}
	if params.Caller != nil && strings.TrimSpace(*params.Caller) != "" {
		query = query.Where("caller = ?", strings.TrimSpace(*params.Caller))
	}
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("created_at >= ?", *params.Since)
	}
	if params.Until != nil && !params.Until.IsZero() {
		query = query.Where("created_at < ?", *params.Until)
	}
	return query
}

func (s *Store) DeleteVaultEventsBefore(ctx context.Context, before time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	if before.IsZero() {
		return 0, nil
	}
	res := s.db.WithContext(ctx).
		Where("created_at < ?", before).
		Delete(&models.VaultEvent{})
	return res.RowsAffected, res.Error
}

// --- rate history ------------------------------------------------------------

func (s *Store) InsertRateSample(ctx context.Context, item *models.RateSample) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	if item.SampledAt.IsZero() {
		item.SampledAt = time.Now().UTC()
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) ListRateSamples(ctx context.Context, params repository.ListRateSamplesParams) ([]models.RateSample, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.RateSample{})
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("sampled_at >= ?", *params.Since)
	}
	if params.Until != nil && !params.Until.IsZero() {
		query = query.Where("sampled_at < ?", *params.Until)
	}
	limit := normalizeLimit(params.Limit, 200)
	offset := normalizeOffset(params.Offset)
	var items []models.RateSample
	if err := query.Order("sampled_at desc").Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- helpers -----------------------------------------------------------------

func applyOrder(query *gorm.DB, orderBy string, asc *bool, fallback string) *gorm.DB {
	column := strings.TrimSpace(orderBy)
	if column == "" {
		column = fallback
	}
	direction := "desc"
	if asc != nil && *asc {
		direction = "asc"
	}
	return query.Order(column + " " + direction)
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 500 {
		return 500
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
