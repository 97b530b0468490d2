package app

import (
	"time"

	"github.com/yungbote/postforge-backend/internal/pkg/logger"
	"github.com/yungbote/postforge-backend/internal/utils"
)

type Config struct {
	LearningInterval time.Duration
	FlushInterval    time.Duration
	EditMetadataCap  int
}

func LoadConfig(log *logger.Logger) Config {
	learningIntervalSeconds := utils.GetEnvAsInt("LEARNING_MIN_INTERVAL_SECONDS", 300, log)
	flushIntervalSeconds := utils.GetEnvAsInt("LEARNING_FLUSH_INTERVAL_SECONDS", 60, log)
	editMetadataCap := utils.GetEnvAsInt("EDIT_METADATA_CAP", 50, log)
	return Config{
		LearningInterval: time.Duration(learningIntervalSeconds) * time.Second,
		FlushInterval:    time.Duration(flushIntervalSeconds) * time.Second,
		EditMetadataCap:  editMetadataCap,
	}
}
