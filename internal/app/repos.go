package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/postforge-backend/internal/data/repos/content"
	"github.com/yungbote/postforge-backend/internal/data/repos/profile"
	"github.com/yungbote/postforge-backend/internal/pkg/logger"
)

type Repos struct {
	User           profile.UserRepo
	StyleProfile   profile.StyleProfileRepo
	ManualOverride profile.ManualOverrideRepo
	GeneratedPost  content.GeneratedPostRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:           profile.NewUserRepo(db, log),
		StyleProfile:   profile.NewStyleProfileRepo(db, log),
		ManualOverride: profile.NewManualOverrideRepo(db, log),
		GeneratedPost:  content.NewGeneratedPostRepo(db, log),
	}
}
