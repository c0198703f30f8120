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
// This function uses go-playground/validator for declarative validation
// via struct tags, with additional custom validation for rules that cannot
// be expressed in tags.
//
// Note: Log level normalization is handled in ApplyDefaults, not here.
// Validation accepts both uppercase and lowercase log levels.
//
// Returns an error describing validation failures.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}
	return validateCustomRules(cfg)
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	// The selected store's required options must be present up front, so a
	// misconfiguration fails at startup rather than at first use.
	switch cfg.Content.Type {
	case "filesystem":
		if s, _ := cfg.Content.Filesystem["path"].(string); s == "" {
			return fmt.Errorf("content.filesystem: path is required")
		}
	case "s3":
		if s, _ := cfg.Content.S3["bucket"].(string); s == "" {
			return fmt.Errorf("content.s3: bucket is required")
		}
		if s, _ := cfg.Content.S3["region"].(string); s == "" {
			return fmt.Errorf("content.s3: region is required")
		}
	}

	if cfg.Metadata.Type == "badger" {
		inMemory, _ := cfg.Metadata.Badger["in_memory"].(bool)
		if s, _ := cfg.Metadata.Badger["db_path"].(string); s == "" && !inMemory {
			return fmt.Errorf("metadata.badger: db_path is required unless in_memory is set")
		}
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
