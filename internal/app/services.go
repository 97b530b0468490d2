package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/postforge-backend/internal/pkg/logger"
	"github.com/yungbote/postforge-backend/internal/services"
)

type Services struct {
	ProfileUpdate    services.ProfileUpdateService
	PatternDetection services.PatternDetectionService
	Learning         services.LearningService
	Evolution        services.EvolutionService
	Throttle         *services.LearningThrottle
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, reposet Repos, clientset Clients) Services {
	log.Info("Wiring services...")

	throttle := services.NewLearningThrottle(cfg.LearningInterval)
	profileUpdate := services.NewProfileUpdateService(db, log, reposet.User, reposet.StyleProfile, clientset.Lock, clientset.Cache)
	patternDetection := services.NewPatternDetectionService(db, log, reposet.GeneratedPost)
	learning := services.NewLearningService(db, log, reposet.GeneratedPost, reposet.ManualOverride, patternDetection, profileUpdate, throttle, cfg.EditMetadataCap)
	evolution := services.NewEvolutionService(db, log, reposet.StyleProfile, reposet.GeneratedPost, clientset.Cache)

	return Services{
		ProfileUpdate:    profileUpdate,
		PatternDetection: patternDetection,
		Learning:         learning,
		Evolution:        evolution,
		Throttle:         throttle,
	}
}
