package profile

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/postforge-backend/internal/domain"
	"github.com/yungbote/postforge-backend/internal/pkg/logger"
)

type ManualOverrideRepo interface {
	GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*domain.ManualOverrides, error)
	Upsert(ctx context.Context, tx *gorm.DB, userID uuid.UUID, ov *domain.ManualOverrides) error
}

type manualOverrideRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewManualOverrideRepo(db *gorm.DB, baseLog *logger.Logger) ManualOverrideRepo {
	return &manualOverrideRepo{db: db, log: baseLog.With("repo", "ManualOverrideRepo")}
}

// GetByUserID returns the zero ManualOverrides (nothing pinned) when
// the user has no override row.
func (mr *manualOverrideRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*domain.ManualOverrides, error) {
	transaction := tx
	if transaction == nil {
		transaction = mr.db
	}

	var results []*domain.ManualOverrideRecord
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Limit(1).
		Find(&results).Error; err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return &domain.ManualOverrides{}, nil
	}
	return results[0].DecodeDoc()
}

func (mr *manualOverrideRepo) Upsert(ctx context.Context, tx *gorm.DB, userID uuid.UUID, ov *domain.ManualOverrides) error {
	transaction := tx
	if transaction == nil {
		transaction = mr.db
	}

	raw, err := domain.EncodeOverrides(ov)
	if err != nil {
		return err
	}
	now := time.Now().UTC()

	var existing []*domain.ManualOverrideRecord
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Limit(1).
		Find(&existing).Error; err != nil {
		return err
	}
	if len(existing) > 0 {
		return transaction.WithContext(ctx).
			Model(&domain.ManualOverrideRecord{}).
			Where("user_id = ?", userID).
			Updates(map[string]interface{}{"doc": raw, "updated_at": now}).Error
	}
	row := &domain.ManualOverrideRecord{
		ID:        uuid.New(),
		UserID:    userID,
		Doc:       raw,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return transaction.WithContext(ctx).Create(row).Error
}
