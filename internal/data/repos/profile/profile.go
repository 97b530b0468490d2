package profile

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/postforge-backend/internal/domain"
	"github.com/yungbote/postforge-backend/internal/pkg/logger"
)

// ErrAtomicIncrementUnsupported is returned by IncrementIterations on
// dialects without a server-side jsonb increment; callers fall back to
// the conditional-write path.
var ErrAtomicIncrementUnsupported = errors.New("store does not support atomic jsonb increment")

// StyleProfileRepo is the atomic document store for voice profiles.
// All mutation goes through ConditionalUpdate (version-checked) or
// IncrementIterations (server-side atomic); there is no unconditional
// write path.
type StyleProfileRepo interface {
	GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*domain.StyleProfileRecord, error)
	Create(ctx context.Context, tx *gorm.DB, userID uuid.UUID, doc *domain.StyleProfile) (*domain.StyleProfileRecord, error)

	// ConditionalUpdate persists doc iff the stored version still equals
	// expectedVersion, bumping version and last_updated. Returns false
	// when another writer got there first. "Profile absent" must be
	// detected by a preceding GetByUserID; a conditional update against
	// a missing row also reports false.
	ConditionalUpdate(ctx context.Context, tx *gorm.DB, userID uuid.UUID, expectedVersion int64, doc *domain.StyleProfile, now time.Time) (bool, error)

	// IncrementIterations bumps learningIterations inside the stored doc
	// in a single server-side statement where the dialect supports it.
	IncrementIterations(ctx context.Context, tx *gorm.DB, userID uuid.UUID, delta int, now time.Time) (bool, error)
}

type styleProfileRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStyleProfileRepo(db *gorm.DB, baseLog *logger.Logger) StyleProfileRepo {
	return &styleProfileRepo{db: db, log: baseLog.With("repo", "StyleProfileRepo")}
}

func (pr *styleProfileRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*domain.StyleProfileRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	var results []*domain.StyleProfileRecord
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Limit(1).
		Find(&results).Error; err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}

func (pr *styleProfileRepo) Create(ctx context.Context, tx *gorm.DB, userID uuid.UUID, doc *domain.StyleProfile) (*domain.StyleProfileRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	raw, err := domain.EncodeStyleProfile(doc)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	row := &domain.StyleProfileRecord{
		ID:          uuid.New(),
		UserID:      userID,
		Doc:         raw,
		Version:     1,
		LastUpdated: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := transaction.WithContext(ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

func (pr *styleProfileRepo) ConditionalUpdate(ctx context.Context, tx *gorm.DB, userID uuid.UUID, expectedVersion int64, doc *domain.StyleProfile, now time.Time) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	raw, err := domain.EncodeStyleProfile(doc)
	if err != nil {
		return false, err
	}

	res := transaction.WithContext(ctx).
		Model(&domain.StyleProfileRecord{}).
		Where("user_id = ? AND version = ?", userID, expectedVersion).
		Updates(map[string]interface{}{
			"doc":          raw,
			"version":      gorm.Expr("version + 1"),
			"last_updated": now,
			"updated_at":   now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (pr *styleProfileRepo) IncrementIterations(ctx context.Context, tx *gorm.DB, userID uuid.UUID, delta int, now time.Time) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	if transaction.Dialector.Name() != "postgres" {
		return false, ErrAtomicIncrementUnsupported
	}

	stamp := now.UTC().Format(time.RFC3339Nano)
	res := transaction.WithContext(ctx).Exec(`
		UPDATE user_style_profile
		SET doc = jsonb_set(
			jsonb_set(doc, '{learningIterations}', to_jsonb((doc->>'learningIterations')::bigint + ?)),
			'{lastUpdated}', to_jsonb(?::text)),
		    version = version + 1,
		    last_updated = ?,
		    updated_at = ?
		WHERE user_id = ? AND deleted_at IS NULL
		  AND (doc->>'learningIterations')::bigint + ? >= 0`,
		delta, stamp, now, now, userID, delta)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
