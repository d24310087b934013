package service

import (
	"context"
	"encoding/json"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"vaultd/internal/identity"
	"vaultd/internal/models"
	"vaultd/internal/registry"
	"vaultd/internal/repository"
	"vaultd/internal/roles"
	"vaultd/internal/stream"
	"vaultd/internal/token"
	"vaultd/internal/vault"
)

// VaultService composes the accounting cores with persistence and the event
// stream. Core operations are authoritative and synchronous; journaling,
// mirroring and broadcasting happen after the fact and never fail the
// operation.
type VaultService struct {
	Roles    *roles.Manager
	Registry *registry.Registry
	Vault    *vault.Vault
	Shares   *token.Ledger
	Repo     repository.Repository
	Stream   *stream.Hub
	Logger   *zap.Logger
}

// Summary is the aggregate accounting view served to clients.
type Summary struct {
	TotalUnderlying uint64  `json:"totalUnderlying"`
	TotalShares     uint64  `json:"totalShares"`
	ExchangeRate    uint64  `json:"exchangeRate"`
	DepositFeeBps   uint32  `json:"depositFeeBps"`
	WithdrawFeeBps  uint32  `json:"withdrawFeeBps"`
	Cap             *uint64 `json:"cap,omitempty"`
	Paused          bool    `json:"paused"`
	FeeMode         string  `json:"feeMode"`
}

// --- accounting --------------------------------------------------------------

func (s *VaultService) Deposit(ctx context.Context, caller identity.Identity, amount uint64) (uint64, error) {
	minted, err := s.Vault.Deposit(caller, amount)
	if err != nil {
		return 0, err
	}
	s.record(ctx, models.EventDeposit, caller, map[string]any{
		"amount":       amount,
		"sharesMinted": minted,
		"exchangeRate": s.Vault.ExchangeRate(),
	})
	return minted, nil
}

func (s *VaultService) Withdraw(ctx context.Context, caller identity.Identity, shares uint64) (uint64, error) {
	amount, err := s.Vault.Withdraw(caller, shares)
	if err != nil {
		return 0, err
	}
	s.record(ctx, models.EventWithdraw, caller, map[string]any{
		"sharesBurned": shares,
		"amountOut":    amount,
		"exchangeRate": s.Vault.ExchangeRate(),
	})
	return amount, nil
}

func (s *VaultService) UpdateVirtualYield(ctx context.Context, caller identity.Identity, delta int64) (uint64, error) {
	total, err := s.Vault.UpdateVirtualYield(caller, delta)
	if err != nil {
		return 0, err
	}
	s.record(ctx, models.EventYieldUpdate, caller, map[string]any{
		"delta":           delta,
		"totalUnderlying": total,
		"exchangeRate":    s.Vault.ExchangeRate(),
	})
	return total, nil
}

func (s *VaultService) SetDepositFee(ctx context.Context, caller identity.Identity, bps uint32) (uint32, error) {
	got, err := s.Vault.SetDepositFee(caller, bps)
	if err != nil {
		return 0, err
	}
	s.record(ctx, models.EventFeeChange, caller, map[string]any{"fee": "deposit", "bps": got})
	return got, nil
}

func (s *VaultService) SetWithdrawFee(ctx context.Context, caller identity.Identity, bps uint32) (uint32, error) {
	got, err := s.Vault.SetWithdrawFee(caller, bps)
	if err != nil {
		return 0, err
	}
	s.record(ctx, models.EventFeeChange, caller, map[string]any{"fee": "withdraw", "bps": got})
	return got, nil
}

func (s *VaultService) SetCap(ctx context.Context, caller identity.Identity, cap *uint64) (*uint64, error) {
	got, err := s.Vault.SetCap(caller, cap)
	if err != nil {
		return nil, err
	}
	payload := map[string]any{"capped": got != nil}
	if got != nil {
		payload["cap"] = *got
	}
	s.record(ctx, models.EventCapChange, caller, payload)
	return got, nil
}

func (s *VaultService) RequestStrategyChange(ctx context.Context, caller identity.Identity, fromChain, fromProto, toChain, toProto, amount uint64, reasonCode uint32) error {
	if err := s.Vault.RequestStrategyChange(caller, fromChain, fromProto, toChain, toProto, amount, reasonCode); err != nil {
		return err
	}
	s.record(ctx, models.EventStrategyRequest, caller, map[string]any{
		"fromChainId": fromChain,
		"fromProtoId": fromProto,
		"toChainId":   toChain,
		"toProtoId":   toProto,
		"amount":      amount,
		"reasonCode":  reasonCode,
	})
	return nil
}

func (s *VaultService) Summarize() Summary {
	depBps, wdBps := s.Vault.Fees()
	return Summary{
		TotalUnderlying: s.Vault.TotalUnderlying(),
		TotalShares:     s.Vault.TotalShares(),
		ExchangeRate:    s.Vault.ExchangeRate(),
		DepositFeeBps:   depBps,
		WithdrawFeeBps:  wdBps,
		Cap:             s.Vault.Cap(),
		Paused:          s.Roles.IsPaused(),
		FeeMode:         s.Vault.FeeMode().String(),
	}
}

// --- pause & roles -----------------------------------------------------------

func (s *VaultService) SetPaused(ctx context.Context, caller identity.Identity, paused bool) (bool, error) {
	got, err := s.Roles.SetPaused(caller, paused)
	if err != nil {
		return false, err
	}
	s.record(ctx, models.EventPauseChange, caller, map[string]any{"paused": got})
	return got, nil
}

func (s *VaultService) EmergencyPause(ctx context.Context, caller identity.Identity) (bool, error) {
	got, err := s.Roles.EmergencyPause(caller)
	if err != nil {
		return false, err
	}
	s.record(ctx, models.EventPauseChange, caller, map[string]any{"paused": got, "emergency": true})
	return got, nil
}

func (s *VaultService) Unpause(ctx context.Context, caller identity.Identity) (bool, error) {
	got, err := s.Roles.Unpause(caller)
	if err != nil {
		return false, err
	}
	s.record(ctx, models.EventPauseChange, caller, map[string]any{"paused": got})
	return got, nil
}

func (s *VaultService) SetAdmin(ctx context.Context, caller, newAdmin identity.Identity) (identity.Identity, error) {
	got, err := s.Roles.SetAdmin(caller, newAdmin)
	if err != nil {
		return "", err
	}
	s.record(ctx, models.EventAdminTransfer, caller, map[string]any{"newAdmin": got.String()})
	return got, nil
}

func (s *VaultService) AddKeeper(ctx context.Context, caller, id identity.Identity) error {
	if _, err := s.Roles.AddKeeper(caller, id); err != nil {
		return err
	}
	s.recordRoleChange(ctx, caller, "keeper", "add", id)
	return nil
}

func (s *VaultService) RemoveKeeper(ctx context.Context, caller, id identity.Identity) error {
	if _, err := s.Roles.RemoveKeeper(caller, id); err != nil {
		return err
	}
	s.recordRoleChange(ctx, caller, "keeper", "remove", id)
	return nil
}

func (s *VaultService) AddPauser(ctx context.Context, caller, id identity.Identity) error {
	if _, err := s.Roles.AddPauser(caller, id); err != nil {
		return err
	}
	s.recordRoleChange(ctx, caller, "pauser", "add", id)
	return nil
}

func (s *VaultService) RemovePauser(ctx context.Context, caller, id identity.Identity) error {
	if _, err := s.Roles.RemovePauser(caller, id); err != nil {
		return err
	}
	s.recordRoleChange(ctx, caller, "pauser", "remove", id)
	return nil
}

func (s *VaultService) recordRoleChange(ctx context.Context, caller identity.Identity, role, action string, subject identity.Identity) {
	s.record(ctx, models.EventRoleChange, caller, map[string]any{
		"role":    role,
		"action":  action,
		"subject": subject.String(),
	})
}

// --- strategy registry -------------------------------------------------------

func (s *VaultService) AddStrategy(ctx context.Context, caller identity.Identity, params registry.AddParams) (registry.Key, error) {
	key, err := s.Registry.AddStrategy(caller, params)
	if err != nil {
		return registry.Key{}, err
	}
	s.mirrorStrategy(ctx, key)
	s.record(ctx, models.EventStrategyChange, caller, map[string]any{
		"action":  "add",
		"chainId": key.ChainID,
		"protoId": key.ProtoID,
		"name":    params.Name,
	})
	return key, nil
}

func (s *VaultService) EnableStrategy(ctx context.Context, caller identity.Identity, chainID, protoID uint64) error {
	if err := s.Registry.EnableStrategy(caller, chainID, protoID); err != nil {
		return err
	}
	s.mirrorStrategy(ctx, registry.Key{ChainID: chainID, ProtoID: protoID})
	s.record(ctx, models.EventStrategyChange, caller, map[string]any{
		"action": "enable", "chainId": chainID, "protoId": protoID,
	})
	return nil
}

func (s *VaultService) DisableStrategy(ctx context.Context, caller identity.Identity, chainID, protoID uint64) error {
	if err := s.Registry.DisableStrategy(caller, chainID, protoID); err != nil {
		return err
	}
	s.mirrorStrategy(ctx, registry.Key{ChainID: chainID, ProtoID: protoID})
	s.record(ctx, models.EventStrategyChange, caller, map[string]any{
		"action": "disable", "chainId": chainID, "protoId": protoID,
	})
	return nil
}

func (s *VaultService) UpdateStrategyParams(ctx context.Context, caller identity.Identity, chainID, protoID, newMin, newMax uint64, newFee uint32) error {
	if err := s.Registry.UpdateStrategyParams(caller, chainID, protoID, newMin, newMax, newFee); err != nil {
		return err
	}
	s.mirrorStrategy(ctx, registry.Key{ChainID: chainID, ProtoID: protoID})
	s.record(ctx, models.EventStrategyChange, caller, map[string]any{
		"action": "update_params", "chainId": chainID, "protoId": protoID,
	})
	return nil
}

func (s *VaultService) SetStrategyMetadata(ctx context.Context, caller identity.Identity, chainID, protoID uint64, meta registry.Metadata) error {
	if err := s.Registry.SetStrategyMetadata(caller, chainID, protoID, meta); err != nil {
		return err
	}
	s.mirrorStrategy(ctx, registry.Key{ChainID: chainID, ProtoID: protoID})
	s.record(ctx, models.EventStrategyChange, caller, map[string]any{
		"action": "set_metadata", "chainId": chainID, "protoId": protoID,
	})
	return nil
}

// mirrorStrategy copies the authoritative registry entry into the database.
func (s *VaultService) mirrorStrategy(ctx context.Context, key registry.Key) {
	if s.Repo == nil {
		return
	}
	strat, ok := s.Registry.GetStrategy(key.ChainID, key.ProtoID)
	if !ok {
		return
	}
	record := &models.StrategyRecord{
		ChainID:   strat.ChainID,
		ProtoID:   strat.ProtoID,
		Name:      strat.Name,
		MinAmount: strat.MinAmount,
		MaxAmount: strat.MaxAmount,
		FeeBps:    strat.FeeBps,
		Enabled:   strat.Enabled,
	}
	if strat.Address != nil {
		addr := strat.Address.String()
		record.Address = &addr
	}
	if strat.Metadata != nil {
		if raw, err := json.Marshal(strat.Metadata); err == nil {
			record.Metadata = datatypes.JSON(raw)
		}
	}
	if err := s.Repo.UpsertStrategyRecord(ctx, record); err != nil && s.Logger != nil {
		s.Logger.Warn("strategy mirror upsert failed",
			zap.Uint64("chain_id", key.ChainID),
			zap.Uint64("proto_id", key.ProtoID),
			zap.Error(err))
	}
}

// RestoreStrategies loads the mirrored registry rows back into the in-memory
// registry at boot. Invalid rows are skipped.
func (s *VaultService) RestoreStrategies(ctx context.Context) (int, error) {
	if s.Repo == nil {
		return 0, nil
	}
	records, err := s.Repo.ListStrategyRecords(ctx)
	if err != nil {
		return 0, err
	}
	items := make([]registry.Strategy, 0, len(records))
	for _, rec := range records {
		strat := registry.Strategy{
			Key:       registry.Key{ChainID: rec.ChainID, ProtoID: rec.ProtoID},
			Name:      rec.Name,
			MinAmount: rec.MinAmount,
			MaxAmount: rec.MaxAmount,
			FeeBps:    rec.FeeBps,
			Enabled:   rec.Enabled,
		}
		if rec.Address != nil {
			addr := identity.Identity(*rec.Address)
			strat.Address = &addr
		}
		if len(rec.Metadata) > 0 {
			var meta registry.Metadata
			if err := json.Unmarshal(rec.Metadata, &meta); err == nil {
				strat.Metadata = &meta
			}
		}
		items = append(items, strat)
	}
	restored := s.Registry.Restore(items)
	if s.Logger != nil {
		s.Logger.Info("strategy registry restored",
			zap.Int("rows", len(records)),
			zap.Int("restored", restored))
	}
	return restored, nil
}

// --- history & maintenance ---------------------------------------------------

func (s *VaultService) ListEvents(ctx context.Context, params repository.ListVaultEventsParams) ([]models.VaultEvent, int64, error) {
	if s.Repo == nil {
		return nil, 0, nil
	}
	total, err := s.Repo.CountVaultEvents(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	items, err := s.Repo.ListVaultEvents(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *VaultService) ListRateSamples(ctx context.Context, params repository.ListRateSamplesParams) ([]models.RateSample, error) {
	if s.Repo == nil {
		return nil, nil
	}
	return s.Repo.ListRateSamples(ctx, params)
}

// SnapshotRate persists the current exchange rate; invoked by the cron
// runner.
func (s *VaultService) SnapshotRate(ctx context.Context) error {
	if s.Repo == nil {
		return nil
	}
	rate := s.Vault.ExchangeRate()
	sample := &models.RateSample{
		Rate:            decimal.NewFromBigInt(new(big.Int).SetUint64(rate), -6),
		TotalUnderlying: s.Vault.TotalUnderlying(),
		TotalShares:     s.Vault.TotalShares(),
		SampledAt:       time.Now().UTC(),
	}
	return s.Repo.InsertRateSample(ctx, sample)
}

// PruneJournal deletes journal rows older than the retention window.
func (s *VaultService) PruneJournal(ctx context.Context, retention time.Duration) (int64, error) {
	if s.Repo == nil || retention <= 0 {
		return 0, nil
	}
	return s.Repo.DeleteVaultEventsBefore(ctx, time.Now().UTC().Add(-retention))
}

// record journals and broadcasts one completed operation. Best-effort.
func (s *VaultService) record(ctx context.Context, kind string, caller identity.Identity, payload map[string]any) {
	if s.Repo != nil {
		raw, err := json.Marshal(payload)
		if err == nil {
			err = s.Repo.InsertVaultEvent(ctx, &models.VaultEvent{
				Kind:    kind,
				Caller:  caller.String(),
				Payload: datatypes.JSON(raw),
			})
		}
		if err != nil && s.Logger != nil {
			s.Logger.Warn("journal insert failed", zap.String("kind", kind), zap.Error(err))
		}
	}
	if s.Stream != nil {
		s.Stream.Broadcast(stream.Event{
			Kind:    kind,
			Caller:  caller.String(),
			Payload: payload,
		})
	}
}
