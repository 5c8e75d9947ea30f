package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom rules.
//
// Log level normalization is handled in ApplyDefaults, not here.
// Validation accepts both uppercase and lowercase log levels.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	if err := validateCustomRules(cfg); err != nil {
		return err
	}

	return nil
}

// validateCustomRules performs validation that cannot be expressed in tags.
func validateCustomRules(cfg *Config) error {
	if cfg.Container.Type == "badger" {
		inMemory, _ := cfg.Container.Badger["in_memory"].(bool)
		path, _ := cfg.Container.Badger["db_path"].(string)
		if !inMemory && path == "" {
			return fmt.Errorf("container.badger: db_path is required unless in_memory is set")
		}
	}

	if cfg.Engine.Burst > 0 && cfg.Engine.RequestsPerSecond == 0 {
		return fmt.Errorf("engine: burst is set but requests_per_second is unlimited")
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		if len(validationErrs) > 0 {
			e := validationErrs[0]
			return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
				e.Namespace(), e.Tag(), e.Value())
		}
	}
	return err
}
