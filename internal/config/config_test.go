package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadUsesDefaultsAndYAMLOverrides(t *testing.T) {
	clearConfigEnv(t)

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")
	yaml := `
generation:
  allowed_steps: [10, 20, 30]
  max_guidance: 15
quota:
  daily_limit: 25
  ip_window: 30m
inference:
  endpoint_id: ep-123
  poll_interval: 2s
moderation:
  blocked_keywords: ["gore"]
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if len(cfg.Generation.AllowedSteps) != 3 || cfg.Generation.AllowedSteps[2] != 30 {
		t.Fatalf("unexpected allowed steps: %v", cfg.Generation.AllowedSteps)
	}
	if cfg.Generation.MaxGuidance != 15 {
		t.Fatalf("unexpected max guidance: %v", cfg.Generation.MaxGuidance)
	}
	if cfg.Quota.DailyLimit != 25 {
		t.Fatalf("unexpected daily limit: %d", cfg.Quota.DailyLimit)
	}
	if cfg.Quota.IPWindow != 30*time.Minute {
		t.Fatalf("unexpected ip window: %s", cfg.Quota.IPWindow)
	}
	if cfg.Inference.PollInterval != 2*time.Second {
		t.Fatalf("unexpected poll interval: %s", cfg.Inference.PollInterval)
	}
	if len(cfg.Moderation.BlockedKeywords) != 1 || cfg.Moderation.BlockedKeywords[0] != "gore" {
		t.Fatalf("unexpected blocked keywords: %v", cfg.Moderation.BlockedKeywords)
	}

	if cfg.Quota.PremiumDailyLimit != 50 {
		t.Fatalf("premium_daily_limit default should stay 50")
	}
	if cfg.Inference.MaxWait != 8*time.Minute {
		t.Fatalf("max_wait default should stay 8m")
	}
	if cfg.Inference.Configured() {
		t.Fatalf("inference must stay unconfigured without api key")
	}
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load config with missing file: %v", err)
	}

	if cfg.Quota.DailyLimit != 10 || cfg.Quota.IPLimit != 20 {
		t.Fatalf("unexpected quota defaults: daily=%d ip=%d", cfg.Quota.DailyLimit, cfg.Quota.IPLimit)
	}
	if cfg.Generation.PromptMinLength != 3 || cfg.Generation.PromptMaxLength != 1000 {
		t.Fatalf("unexpected prompt bounds: %d-%d", cfg.Generation.PromptMinLength, cfg.Generation.PromptMaxLength)
	}
	if len(cfg.Generation.AllowedDimensions) != 4 {
		t.Fatalf("unexpected allowed dimensions: %v", cfg.Generation.AllowedDimensions)
	}
	if len(cfg.Generation.AllowedSteps) != 0 {
		t.Fatalf("allowed steps must default to range mode, got %v", cfg.Generation.AllowedSteps)
	}
	if cfg.Inference.PollInterval != 5*time.Second {
		t.Fatalf("unexpected poll interval default: %s", cfg.Inference.PollInterval)
	}
	if cfg.HTTP.RequestTimeout <= cfg.Inference.MaxWait {
		t.Fatalf("request timeout %s must exceed max wait %s", cfg.HTTP.RequestTimeout, cfg.Inference.MaxWait)
	}
	if cfg.Costs.PerImage != 0.003 {
		t.Fatalf("unexpected cost per image: %v", cfg.Costs.PerImage)
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("INFERENCE_API_KEY", "key")
	t.Setenv("INFERENCE_ENDPOINT_ID", "endpoint")
	t.Setenv("QUOTA_DAILY_LIMIT", "3")
	t.Setenv("ALERT_TELEGRAM_CHAT_ID", "-100123")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if !cfg.Inference.Configured() {
		t.Fatalf("expected inference to be configured from env")
	}
	if cfg.Quota.DailyLimit != 3 {
		t.Fatalf("unexpected daily limit: %d", cfg.Quota.DailyLimit)
	}
	if cfg.Alerts.TelegramChatID != -100123 {
		t.Fatalf("unexpected telegram chat id: %d", cfg.Alerts.TelegramChatID)
	}
}

func TestLoadRejectsInvalidEnvDuration(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("INFERENCE_MAX_WAIT", "soon")

	if _, err := Load(""); err == nil {
		t.Fatalf("expected error for invalid duration")
	}
}

func TestLoadRejectsDefaultSecretInProduction(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("APP_ENV", "prod")

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatalf("expected error when jwt secret is left at default in production")
	}
}

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_ENV",
		"HTTP_ADDR",
		"HTTP_REQUEST_TIMEOUT",
		"HTTP_WRITE_TIMEOUT",
		"LOG_LEVEL",
		"POSTGRES_DSN",
		"REDIS_ADDR",
		"REDIS_PASSWORD",
		"REDIS_DB",
		"S3_ENDPOINT",
		"S3_ACCESS_KEY",
		"S3_SECRET_KEY",
		"S3_BUCKET",
		"S3_PUBLIC_BASE_URL",
		"S3_USE_SSL",
		"JWT_SECRET",
		"AUTH_REQUIRE_VERIFIED_EMAIL",
		"INFERENCE_BASE_URL",
		"INFERENCE_API_KEY",
		"INFERENCE_ENDPOINT_ID",
		"INFERENCE_MAX_WAIT",
		"INFERENCE_POLL_INTERVAL",
		"QUOTA_DAILY_LIMIT",
		"QUOTA_PREMIUM_DAILY_LIMIT",
		"QUOTA_IP_LIMIT",
		"MODERATION_AI_ENABLED",
		"OPENAI_API_KEY",
		"OPENAI_BASE_URL",
		"ALERT_WEBHOOK_URL",
		"ALERT_TELEGRAM_TOKEN",
		"ALERT_TELEGRAM_CHAT_ID",
		"MAINTENANCE_INTERVAL",
	} {
		t.Setenv(key, "")
	}
}
