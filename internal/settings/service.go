package settings

import (
	"context"
	"fmt"

	"github.com/VSyncglobal/gruppy-backend-sub000/pkg/logger"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Service resolves setting snapshots per operation.
type Service interface {
	Snapshot(ctx context.Context) (Snapshot, error)
	SnapshotTx(ctx context.Context, tx *gorm.DB) (Snapshot, error)
}

type service struct {
	repo SettingRepository
	logg *logger.Logger
}

// NewService builds the settings resolver.
func NewService(repo SettingRepository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("setting repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, logg: logg}, nil
}

// Snapshot reads the current settings outside any transaction.
func (s *service) Snapshot(ctx context.Context) (Snapshot, error) {
	return s.load(ctx, s.repo)
}

// SnapshotTx reads the current settings inside the caller's transaction.
func (s *service) SnapshotTx(ctx context.Context, tx *gorm.DB) (Snapshot, error) {
	return s.load(ctx, s.repo.WithTx(tx))
}

func (s *service) load(ctx context.Context, repo SettingRepository) (Snapshot, error) {
	snapshot := Defaults()
	rows, err := repo.FindByKeys(ctx, []string{
		KeyExchangeRate,
		KeyRiskMargin,
		KeyPlatformMargin,
		KeyPlatformFeeRate,
		KeyMemberSavingsRate,
	})
	if err != nil {
		return Snapshot{}, fmt.Errorf("load settings: %w", err)
	}
	for _, row := range rows {
		value, err := decimal.NewFromString(row.Value)
		if err != nil {
			logCtx := s.logg.WithFields(ctx, map[string]any{"key": row.Key, "value": row.Value})
			s.logg.Warn(logCtx, "setting value is not numeric; using default")
			continue
		}
		switch row.Key {
		case KeyExchangeRate:
			snapshot.ExchangeRate = value
		case KeyRiskMargin:
			snapshot.RiskMargin = value
		case KeyPlatformMargin:
			snapshot.PlatformMargin = value
		case KeyPlatformFeeRate:
			snapshot.PlatformFeeRate = value
		case KeyMemberSavingsRate:
			snapshot.MemberSavingsRate = value
		}
	}
	return snapshot, nil
}
