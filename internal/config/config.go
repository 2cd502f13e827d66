package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"go-omr-engine/pkg/models"
)

// Config is the per-session configuration, loaded once and treated as
// immutable for the session's lifetime.
type Config struct {
	AnswerKeyFile    string
	ArtifactDir      string
	Workers          int
	AzureAccountName string
	AzureAccountKey  string
	AzureContainer   string

	Options models.ProcessingOptions
}

// LoadFromEnv builds a session configuration from the environment with
// typed defaults, validating everything up front.
func LoadFromEnv() (*Config, error) {
	opts := models.DefaultProcessingOptions()
	opts.ConfidenceThreshold = parseFloatOrDefault("OMR_CONFIDENCE_THRESHOLD", opts.ConfidenceThreshold)
	opts.FillThreshold = parseFloatOrDefault("OMR_FILL_THRESHOLD", opts.FillThreshold)
	opts.OptionsPerQuestion = parseIntOrDefault("OMR_OPTIONS_PER_QUESTION", opts.OptionsPerQuestion)
	opts.QuestionsPerSubject = parseIntOrDefault("OMR_QUESTIONS_PER_SUBJECT", opts.QuestionsPerSubject)
	opts.SubjectMaxScore = parseFloatOrDefault("OMR_SUBJECT_MAX_SCORE", opts.SubjectMaxScore)
	if subjects := os.Getenv("OMR_SUBJECTS"); subjects != "" {
		opts.Subjects = splitAndTrim(subjects)
	}

	cfg := &Config{
		AnswerKeyFile:    getEnvOrDefault("OMR_ANSWER_KEYS", "config/answer_keys.json"),
		ArtifactDir:      getEnvOrDefault("OMR_ARTIFACT_DIR", "processed"),
		Workers:          parseIntOrDefault("OMR_WORKERS", 0),
		AzureAccountName: os.Getenv("OMR_AZURE_ACCOUNT"),
		AzureAccountKey:  os.Getenv("OMR_AZURE_KEY"),
		AzureContainer:   getEnvOrDefault("OMR_AZURE_CONTAINER", "omr-artifacts"),
		Options:          opts,
	}

	if cfg.Options.ConfidenceThreshold < 0 || cfg.Options.ConfidenceThreshold > 1 {
		return nil, fmt.Errorf("OMR_CONFIDENCE_THRESHOLD must be in [0,1] (got %g)", cfg.Options.ConfidenceThreshold)
	}
	if cfg.Options.FillThreshold <= 0 || cfg.Options.FillThreshold >= 1 {
		return nil, fmt.Errorf("OMR_FILL_THRESHOLD must be in (0,1) (got %g)", cfg.Options.FillThreshold)
	}
	if cfg.Options.OptionsPerQuestion < 2 {
		return nil, fmt.Errorf("OMR_OPTIONS_PER_QUESTION must be >= 2 (got %d)", cfg.Options.OptionsPerQuestion)
	}
	if cfg.Options.QuestionsPerSubject < 1 {
		return nil, fmt.Errorf("OMR_QUESTIONS_PER_SUBJECT must be >= 1 (got %d)", cfg.Options.QuestionsPerSubject)
	}
	if len(cfg.Options.Subjects) == 0 {
		return nil, fmt.Errorf("OMR_SUBJECTS must name at least one subject")
	}
	if cfg.Workers < 0 {
		return nil, fmt.Errorf("OMR_WORKERS must be >= 0 (got %d)", cfg.Workers)
	}
	return cfg, nil
}

// AzureConfigured reports whether blob artifact storage can be used.
func (c *Config) AzureConfigured() bool {
	return c.AzureAccountName != "" && c.AzureAccountKey != ""
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func parseFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return f
		}
	}
	return defaultValue
}
