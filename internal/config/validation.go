// Package config provides configuration management for the betting service.
package config

import (
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"

	"github.com/siggy2543/mysportsbet-sub000/internal/models"
)

// CustomValidator wraps the validator with custom validation rules
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a new validator with custom validation functions
func NewValidator() *CustomValidator {
	v := validator.New()

	// Register custom validation functions
	_ = v.RegisterValidation("environment", validateEnvironment)
	_ = v.RegisterValidation("loglevel", validateLogLevel)
	_ = v.RegisterValidation("markets", validateMarkets)

	return &CustomValidator{validator: v}
}

// Validate validates the entire configuration
func Validate(cfg *Config) error {
	cv := NewValidator()
	return cv.Validate(cfg)
}

// Validate validates the configuration using registered validation rules
func (cv *CustomValidator) Validate(cfg *Config) error {
	err := cv.validator.Struct(cfg)
	if err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			return formatValidationErrors(validationErrors)
		}
		return fmt.Errorf("validation failed: %w", err)
	}

	// Additional cross-field validations
	if err := validateCrossField(cfg); err != nil {
		return err
	}

	return nil
}

// validateEnvironment validates the environment field
func validateEnvironment(fl validator.FieldLevel) bool {
	env := fl.Field().String()
	switch env {
	case "development", "staging", "production":
		return true
	default:
		return false
	}
}

// validateLogLevel validates the log level field
func validateLogLevel(fl validator.FieldLevel) bool {
	level := fl.Field().String()
	switch level {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

// validateMarkets validates that every configured market is a supported market type
func validateMarkets(fl validator.FieldLevel) bool {
	markets, ok := fl.Field().Interface().([]string)
	if !ok {
		return false
	}
	for _, m := range markets {
		if !models.MarketType(m).Valid() {
			return false
		}
	}
	return true
}

// validateCrossField applies validations that span multiple fields
func validateCrossField(cfg *Config) error {
	// Ensemble weights are configuration, not derived at request time,
	// and must cover exactly the four sub-model kinds and sum to 1.
	kinds := []models.ModelKind{
		models.ModelSequence,
		models.ModelFeedForward,
		models.ModelGradient,
		models.ModelBagged,
	}
	sum := 0.0
	for _, kind := range kinds {
		w, ok := cfg.Ensemble.Weights[string(kind)]
		if !ok {
			return fmt.Errorf("ensemble.weights missing entry for %q", kind)
		}
		if w <= 0 || w >= 1 {
			return fmt.Errorf("ensemble.weights[%q] must be in (0, 1), got %v", kind, w)
		}
		sum += w
	}
	if len(cfg.Ensemble.Weights) != len(kinds) {
		return fmt.Errorf("ensemble.weights has %d entries, want %d", len(cfg.Ensemble.Weights), len(kinds))
	}
	if math.Abs(sum-1.0) > 1e-6 {
		return fmt.Errorf("ensemble.weights must sum to 1.0, got %v", sum)
	}

	// The sport table is validated at startup; surface problems here so a
	// typo'd sport key fails fast instead of falling back silently.
	if _, err := cfg.SportTable(); err != nil {
		return fmt.Errorf("invalid sports table: %w", err)
	}

	if cfg.Calibration.RecomputeBatchSize > cfg.Calibration.MinSampleSize {
		return fmt.Errorf(
			"calibration.recompute_batch_size (%d) must not exceed min_sample_size (%d)",
			cfg.Calibration.RecomputeBatchSize, cfg.Calibration.MinSampleSize,
		)
	}

	return nil
}

// formatValidationErrors converts validator errors into a readable message
func formatValidationErrors(errs validator.ValidationErrors) error {
	msg := "configuration validation failed:"
	for _, e := range errs {
		msg += fmt.Sprintf("\n  - field %q failed on the %q rule", e.Namespace(), e.Tag())
	}
	return fmt.Errorf("%s", msg)
}
