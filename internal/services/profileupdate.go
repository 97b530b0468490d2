package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	redisclients "github.com/yungbote/postforge-backend/internal/clients/redis"
	"github.com/yungbote/postforge-backend/internal/data/repos/profile"
	"github.com/yungbote/postforge-backend/internal/domain"
	"github.com/yungbote/postforge-backend/internal/pkg/apperr"
	"github.com/yungbote/postforge-backend/internal/pkg/logger"
)

const (
	DefaultMaxRetries  = 5
	DefaultBackoffBase = 25 * time.Millisecond
	DefaultLockTTL     = 10 * time.Second
	DefaultLockWait    = 2 * time.Second
)

var tracer = otel.Tracer("github.com/yungbote/postforge-backend/internal/services")

// UpdateResult reports a committed profile state. Retries counts the
// optimistic-write attempts that lost the version race before the
// winning one.
type UpdateResult struct {
	Profile *domain.StyleProfile
	Version int64
	Retries int
}

// ProfileUpdateService is the sole write path for voice profiles.
// Every mutation is a version-checked conditional write; concurrent
// callers never silently clobber each other and the committed doc
// always satisfies the range invariants.
type ProfileUpdateService interface {
	UpdateField(ctx context.Context, userID uuid.UUID, fieldPath string, value interface{}, useLock bool) (*UpdateResult, error)
	IncrementField(ctx context.Context, userID uuid.UUID, fieldPath string, delta int, useLock bool) (*UpdateResult, error)

	// UpdateProfileAtomic applies a batch as one logical unit: one
	// invalid operation rejects the whole batch with no write.
	UpdateProfileAtomic(ctx context.Context, userID uuid.UUID, ops []FieldOp, useLock bool) (*UpdateResult, error)

	// ApplyProfile runs an arbitrary mutation under the same retry and
	// validation discipline; the learning pipeline commits through it.
	ApplyProfile(ctx context.Context, userID uuid.UUID, mutate func(*domain.StyleProfile) error, useLock bool) (*UpdateResult, error)

	CreateProfile(ctx context.Context, userID uuid.UUID, doc *domain.StyleProfile) (*UpdateResult, error)
	GetProfile(ctx context.Context, userID uuid.UUID) (*UpdateResult, error)
}

type profileUpdateService struct {
	db       *gorm.DB
	log      *logger.Logger
	users    profile.UserRepo
	profiles profile.StyleProfileRepo
	lock     redisclients.Lock
	cache    redisclients.Cache

	maxRetries  int
	backoffBase time.Duration
	lockTTL     time.Duration
	lockWait    time.Duration
}

func NewProfileUpdateService(
	db *gorm.DB,
	baseLog *logger.Logger,
	users profile.UserRepo,
	profiles profile.StyleProfileRepo,
	lock redisclients.Lock,
	cache redisclients.Cache,
) ProfileUpdateService {
	return &profileUpdateService{
		db:          db,
		log:         baseLog.With("service", "ProfileUpdateService"),
		users:       users,
		profiles:    profiles,
		lock:        lock,
		cache:       cache,
		maxRetries:  DefaultMaxRetries,
		backoffBase: DefaultBackoffBase,
		lockTTL:     DefaultLockTTL,
		lockWait:    DefaultLockWait,
	}
}

func AnalyticsCacheKey(userID uuid.UUID) string {
	return "analytics:user:" + userID.String()
}

func (s *profileUpdateService) UpdateField(ctx context.Context, userID uuid.UUID, fieldPath string, value interface{}, useLock bool) (*UpdateResult, error) {
	return s.UpdateProfileAtomic(ctx, userID, []FieldOp{{Field: fieldPath, Value: value, Op: OpSet}}, useLock)
}

func (s *profileUpdateService) IncrementField(ctx context.Context, userID uuid.UUID, fieldPath string, delta int, useLock bool) (*UpdateResult, error) {
	op := FieldOp{Field: fieldPath, Value: delta, Op: OpIncrement}
	if err := validateFieldOp(op); err != nil {
		return nil, apperr.New(apperr.KindValidation, err)
	}

	// learningIterations has a genuinely atomic store-side increment on
	// postgres; other fields (and other dialects) go through the
	// conditional-write path.
	if fieldPath == "learningIterations" && !useLock {
		matched, err := s.profiles.IncrementIterations(ctx, nil, userID, delta, time.Now().UTC())
		if err == nil && matched {
			return s.finishCommit(ctx, userID, 0)
		}
		if err != nil && !errors.Is(err, profile.ErrAtomicIncrementUnsupported) {
			return nil, apperr.New(apperr.KindInternal, err)
		}
		// matched == false covers both a missing row and the store-side
		// range guard refusing a negative result; the conditional-write
		// path below re-reads and classifies which one it was.
	}

	return s.UpdateProfileAtomic(ctx, userID, []FieldOp{op}, useLock)
}

func (s *profileUpdateService) UpdateProfileAtomic(ctx context.Context, userID uuid.UUID, ops []FieldOp, useLock bool) (*UpdateResult, error) {
	if len(ops) == 0 {
		return nil, apperr.Newf(apperr.KindValidation, "no operations provided")
	}
	// All-or-nothing: reject the batch before any store interaction.
	for _, op := range ops {
		if err := validateFieldOp(op); err != nil {
			return nil, apperr.New(apperr.KindValidation, err)
		}
	}
	return s.ApplyProfile(ctx, userID, func(p *domain.StyleProfile) error {
		for _, op := range ops {
			if err := applyFieldOp(p, op); err != nil {
				return err
			}
		}
		return nil
	}, useLock)
}

func (s *profileUpdateService) ApplyProfile(ctx context.Context, userID uuid.UUID, mutate func(*domain.StyleProfile) error, useLock bool) (*UpdateResult, error) {
	if userID == uuid.Nil {
		return nil, apperr.Newf(apperr.KindValidation, "missing user id")
	}
	if mutate == nil {
		return nil, apperr.Newf(apperr.KindValidation, "missing mutation")
	}

	ctx, span := tracer.Start(ctx, "profile.apply",
		trace.WithAttributes(attribute.String("user.id", userID.String()), attribute.Bool("lock", useLock)))
	defer span.End()

	if useLock {
		if s.lock == nil {
			return nil, apperr.Newf(apperr.KindLock, "distributed lock not configured")
		}
		token, ok, err := s.lock.Acquire(ctx, userID.String(), s.lockTTL, s.lockWait)
		if err != nil {
			return nil, apperr.New(apperr.KindLock, err)
		}
		if !ok {
			return nil, apperr.Newf(apperr.KindLock, "could not acquire profile lock for user within %s", s.lockWait)
		}
		defer func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := s.lock.Release(releaseCtx, userID.String(), token); err != nil {
				s.log.Warn("profile lock release failed", "user_id", userID.String(), "error", err)
			}
		}()
	}

	return s.commitWithRetry(ctx, userID, mutate)
}

func (s *profileUpdateService) commitWithRetry(ctx context.Context, userID uuid.UUID, mutate func(*domain.StyleProfile) error) (*UpdateResult, error) {
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		rec, err := s.profiles.GetByUserID(ctx, nil, userID)
		if err != nil {
			return nil, apperr.New(apperr.KindInternal, err)
		}
		if rec == nil {
			return nil, s.classifyMissing(ctx, userID)
		}

		doc, err := rec.DecodeDoc()
		if err != nil {
			return nil, apperr.New(apperr.KindInternal, err)
		}
		next := doc.Clone()
		if err := mutate(next); err != nil {
			return nil, apperr.New(apperr.KindValidation, err)
		}
		if err := next.Validate(); err != nil {
			return nil, apperr.New(apperr.KindValidation, err)
		}

		now := time.Now().UTC()
		next.LastUpdated = now
		matched, err := s.profiles.ConditionalUpdate(ctx, nil, userID, rec.Version, next, now)
		if err != nil {
			return nil, apperr.New(apperr.KindInternal, err)
		}
		if matched {
			if s.cache != nil {
				if err := s.cache.Invalidate(ctx, AnalyticsCacheKey(userID)); err != nil {
					s.log.Warn("analytics cache invalidation failed", "user_id", userID.String(), "error", err)
				}
			}
			// Report the doc we just wrote; re-reading would race with
			// the next writer.
			return &UpdateResult{Profile: next, Version: rec.Version + 1, Retries: attempt}, nil
		}

		if attempt == s.maxRetries {
			break
		}
		if err := s.backoff(ctx, attempt); err != nil {
			return nil, apperr.New(apperr.KindConcurrency, err)
		}
	}
	s.log.Warn("profile update exhausted optimistic retries", "user_id", userID.String(), "max_retries", s.maxRetries)
	return nil, apperr.Newf(apperr.KindConcurrency, "max retries (%d) exceeded updating profile", s.maxRetries)
}

// backoff sleeps 2^attempt * base, honoring cancellation.
func (s *profileUpdateService) backoff(ctx context.Context, attempt int) error {
	d := s.backoffBase << uint(attempt)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// classifyMissing distinguishes "user does not exist" from "user has
// no profile yet" so callers can branch without exceptions.
func (s *profileUpdateService) classifyMissing(ctx context.Context, userID uuid.UUID) error {
	user, err := s.users.GetByID(ctx, nil, userID)
	if err != nil {
		return apperr.New(apperr.KindInternal, err)
	}
	if user == nil {
		return apperr.Newf(apperr.KindNotFound, "user %s not found", userID)
	}
	return apperr.Newf(apperr.KindNoProfile, "user %s has no style profile", userID)
}

// finishCommit re-reads the committed row for its version and drops
// any cached analytics for the user (invalidate-on-write).
func (s *profileUpdateService) finishCommit(ctx context.Context, userID uuid.UUID, retries int) (*UpdateResult, error) {
	rec, err := s.profiles.GetByUserID(ctx, nil, userID)
	if err != nil {
		return nil, apperr.New(apperr.KindInternal, err)
	}
	if rec == nil {
		return nil, s.classifyMissing(ctx, userID)
	}
	doc, err := rec.DecodeDoc()
	if err != nil {
		return nil, apperr.New(apperr.KindInternal, err)
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, AnalyticsCacheKey(userID)); err != nil {
			s.log.Warn("analytics cache invalidation failed", "user_id", userID.String(), "error", err)
		}
	}
	return &UpdateResult{Profile: doc, Version: rec.Version, Retries: retries}, nil
}

func (s *profileUpdateService) CreateProfile(ctx context.Context, userID uuid.UUID, doc *domain.StyleProfile) (*UpdateResult, error) {
	if userID == uuid.Nil {
		return nil, apperr.Newf(apperr.KindValidation, "missing user id")
	}
	if doc == nil {
		return nil, apperr.Newf(apperr.KindValidation, "missing profile document")
	}
	doc = doc.Clone()
	doc.Normalize()
	doc.LastUpdated = time.Now().UTC()
	if err := doc.Validate(); err != nil {
		return nil, apperr.New(apperr.KindValidation, err)
	}

	user, err := s.users.GetByID(ctx, nil, userID)
	if err != nil {
		return nil, apperr.New(apperr.KindInternal, err)
	}
	if user == nil {
		return nil, apperr.Newf(apperr.KindNotFound, "user %s not found", userID)
	}
	existing, err := s.profiles.GetByUserID(ctx, nil, userID)
	if err != nil {
		return nil, apperr.New(apperr.KindInternal, err)
	}
	if existing != nil {
		return nil, apperr.Newf(apperr.KindValidation, "user %s already has a style profile", userID)
	}

	rec, err := s.profiles.Create(ctx, nil, userID, doc)
	if err != nil {
		return nil, apperr.New(apperr.KindInternal, err)
	}
	if s.cache != nil {
		_ = s.cache.Invalidate(ctx, AnalyticsCacheKey(userID))
	}
	return &UpdateResult{Profile: doc, Version: rec.Version}, nil
}

func (s *profileUpdateService) GetProfile(ctx context.Context, userID uuid.UUID) (*UpdateResult, error) {
	rec, err := s.profiles.GetByUserID(ctx, nil, userID)
	if err != nil {
		return nil, apperr.New(apperr.KindInternal, err)
	}
	if rec == nil {
		return nil, s.classifyMissing(ctx, userID)
	}
	doc, err := rec.DecodeDoc()
	if err != nil {
		return nil, apperr.New(apperr.KindInternal, err)
	}
	return &UpdateResult{Profile: doc, Version: rec.Version}, nil
}
