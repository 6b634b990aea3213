package config

import (
	"fmt"
	"net/url"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// schemeForType maps backend types to the URI scheme they serve.
var schemeForType = map[string]string{
	"memory": "mem",
	"badger": "drift",
	"s3":     "s3",
}

// Validate validates the configuration using struct tags and custom rules.
//
// This function uses go-playground/validator for declarative validation via
// struct tags, with additional custom validation for rules that cannot be
// expressed in tags.
//
// Note: Log level normalization is handled in ApplyDefaults, not here.
// Validation accepts both uppercase and lowercase log levels.
//
// Returns an error describing validation failures.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	if err := validateCustomRules(cfg); err != nil {
		return err
	}

	return nil
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	if len(cfg.Backends) == 0 {
		return fmt.Errorf("backends: at least one backend must be configured")
	}

	// One factory per scheme; two backends of the same type would collide
	// at registration time, so reject them here with a better message.
	schemes := make(map[string]bool)
	for i, backend := range cfg.Backends {
		u, err := url.Parse(backend.URI)
		if err != nil {
			return fmt.Errorf("backends[%d]: malformed uri %q: %w", i, backend.URI, err)
		}
		want := schemeForType[backend.Type]
		if u.Scheme != want {
			return fmt.Errorf("backends[%d]: uri scheme %q does not match type %q (want %q)",
				i, u.Scheme, backend.Type, want)
		}
		if schemes[u.Scheme] {
			return fmt.Errorf("backends[%d]: duplicate backend for scheme %q", i, u.Scheme)
		}
		schemes[u.Scheme] = true

		if backend.Type == "s3" && u.Host == "" {
			return fmt.Errorf("backends[%d]: s3 uri must carry the bucket as authority", i)
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
