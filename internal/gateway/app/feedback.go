package app

import (
	"fmt"
	"log/slog"

	"codelab/internal/gateway/config"
	feedbackrepo "codelab/internal/gateway/repository/feedback"
)

func newFeedbackRelay(cfg *config.Config, logger *slog.Logger) (feedbackrepo.Relay, error) {
	if !cfg.Feedback.Enabled || !cfg.Feedback.S3.Enabled() {
		logger.Info("feedback relay: in-memory", "enabled", cfg.Feedback.Enabled)
		return feedbackrepo.NewMemoryRelay(), nil
	}
	s3Cfg := feedbackrepo.S3Config{
		Endpoint:  cfg.Feedback.S3.Endpoint,
		Region:    cfg.Feedback.S3.Region,
		AccessKey: cfg.Feedback.S3.AccessKey,
		SecretKey: cfg.Feedback.S3.SecretKey,
		Bucket:    cfg.Feedback.S3.Bucket,
		UseSSL:    cfg.Feedback.S3.UseSSL,
	}
	relay, err := feedbackrepo.NewS3Relay(s3Cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize feedback s3 relay: %w", err)
	}
	logger.Info("feedback relay: s3", "bucket", s3Cfg.Bucket, "endpoint", s3Cfg.Endpoint)
	return relay, nil
}
