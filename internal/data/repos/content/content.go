package content

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/postforge-backend/internal/domain"
	"github.com/yungbote/postforge-backend/internal/pkg/logger"
)

// DefaultEditCap bounds how many edit-metadata-bearing posts are kept
// per user; the oldest excess has its metadata cleared while the post
// itself survives.
const DefaultEditCap = 50

// GeneratedPostRepo stores generated content and the edit metadata
// that feeds pattern detection.
type GeneratedPostRepo interface {
	Create(ctx context.Context, tx *gorm.DB, posts []*domain.GeneratedPost) ([]*domain.GeneratedPost, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, postIDs []uuid.UUID) ([]*domain.GeneratedPost, error)

	// RecordEdit attaches edit metadata to a post. The metadata is
	// immutable afterwards; only the learning_processed flag changes.
	RecordEdit(ctx context.Context, tx *gorm.DB, postID uuid.UUID, meta *domain.EditMetadata) error

	GetRecentEdits(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*domain.GeneratedPost, error)
	GetUnprocessedEdits(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*domain.GeneratedPost, error)
	MarkEditsAsProcessed(ctx context.Context, tx *gorm.DB, postIDs []uuid.UUID) (int64, error)
	GetEditCount(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, error)
	GetProcessedEditCount(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, error)
	GetFirstEditTime(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*time.Time, error)
	PruneOldEditMetadata(ctx context.Context, tx *gorm.DB, userID uuid.UUID, cap int) (int64, error)
	AggregateEditPatterns(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) (*PatternSummary, error)
}

type generatedPostRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewGeneratedPostRepo(db *gorm.DB, baseLog *logger.Logger) GeneratedPostRepo {
	return &generatedPostRepo{db: db, log: baseLog.With("repo", "GeneratedPostRepo")}
}

func (gr *generatedPostRepo) Create(ctx context.Context, tx *gorm.DB, posts []*domain.GeneratedPost) ([]*domain.GeneratedPost, error) {
	transaction := tx
	if transaction == nil {
		transaction = gr.db
	}
	if len(posts) == 0 {
		return []*domain.GeneratedPost{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

func (gr *generatedPostRepo) GetByIDs(ctx context.Context, tx *gorm.DB, postIDs []uuid.UUID) ([]*domain.GeneratedPost, error) {
	transaction := tx
	if transaction == nil {
		transaction = gr.db
	}

	var results []*domain.GeneratedPost
	if len(postIDs) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("id IN ?", postIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (gr *generatedPostRepo) RecordEdit(ctx context.Context, tx *gorm.DB, postID uuid.UUID, meta *domain.EditMetadata) error {
	transaction := tx
	if transaction == nil {
		transaction = gr.db
	}

	raw, err := domain.EncodeEditMetadata(meta)
	if err != nil {
		return err
	}
	ts := meta.EditTimestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return transaction.WithContext(ctx).
		Model(&domain.GeneratedPost{}).
		Where("id = ?", postID).
		Updates(map[string]interface{}{
			"edit_metadata":      raw,
			"edit_timestamp":     ts,
			"learning_processed": false,
			"updated_at":         time.Now().UTC(),
		}).Error
}

func (gr *generatedPostRepo) GetRecentEdits(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*domain.GeneratedPost, error) {
	transaction := tx
	if transaction == nil {
		transaction = gr.db
	}
	if limit <= 0 {
		limit = DefaultEditCap
	}

	var results []*domain.GeneratedPost
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND edit_metadata IS NOT NULL", userID).
		Order("edit_timestamp DESC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (gr *generatedPostRepo) GetUnprocessedEdits(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*domain.GeneratedPost, error) {
	transaction := tx
	if transaction == nil {
		transaction = gr.db
	}

	var results []*domain.GeneratedPost
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND edit_metadata IS NOT NULL AND learning_processed = ?", userID, false).
		Order("edit_timestamp DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// MarkEditsAsProcessed flips learning_processed exactly once per post;
// already-processed or metadata-less ids contribute 0 to the count.
func (gr *generatedPostRepo) MarkEditsAsProcessed(ctx context.Context, tx *gorm.DB, postIDs []uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = gr.db
	}
	if len(postIDs) == 0 {
		return 0, nil
	}

	res := transaction.WithContext(ctx).
		Model(&domain.GeneratedPost{}).
		Where("id IN ? AND edit_metadata IS NOT NULL AND learning_processed = ?", postIDs, false).
		Updates(map[string]interface{}{
			"learning_processed": true,
			"updated_at":         time.Now().UTC(),
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (gr *generatedPostRepo) GetEditCount(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = gr.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&domain.GeneratedPost{}).
		Where("user_id = ? AND edit_metadata IS NOT NULL", userID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (gr *generatedPostRepo) GetProcessedEditCount(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = gr.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&domain.GeneratedPost{}).
		Where("user_id = ? AND learning_processed = ?", userID, true).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// GetFirstEditTime returns the timestamp of the user's earliest
// surviving edit, or nil when none exists.
func (gr *generatedPostRepo) GetFirstEditTime(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*time.Time, error) {
	transaction := tx
	if transaction == nil {
		transaction = gr.db
	}

	var results []*domain.GeneratedPost
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND edit_timestamp IS NOT NULL", userID).
		Order("edit_timestamp ASC").
		Limit(1).
		Find(&results).Error; err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0].EditTimestamp, nil
}

// PruneOldEditMetadata clears edit metadata on the oldest posts over
// cap, by edit_timestamp. The posts themselves remain queryable.
func (gr *generatedPostRepo) PruneOldEditMetadata(ctx context.Context, tx *gorm.DB, userID uuid.UUID, cap int) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = gr.db
	}
	if cap <= 0 {
		cap = DefaultEditCap
	}

	count, err := gr.GetEditCount(ctx, transaction, userID)
	if err != nil {
		return 0, err
	}
	excess := count - int64(cap)
	if excess <= 0 {
		return 0, nil
	}

	var oldest []*domain.GeneratedPost
	if err := transaction.WithContext(ctx).
		Select("id").
		Where("user_id = ? AND edit_metadata IS NOT NULL", userID).
		Order("edit_timestamp ASC").
		Limit(int(excess)).
		Find(&oldest).Error; err != nil {
		return 0, err
	}
	ids := make([]uuid.UUID, 0, len(oldest))
	for _, p := range oldest {
		ids = append(ids, p.ID)
	}

	res := transaction.WithContext(ctx).
		Model(&domain.GeneratedPost{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"edit_metadata":  nil,
			"edit_timestamp": nil,
			"updated_at":     time.Now().UTC(),
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
