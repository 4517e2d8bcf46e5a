package vocab

import (
	"fmt"
	"strings"

	"github.com/toyz/docmeta/internal/annotations"
	"github.com/toyz/docmeta/internal/errors"
)

var httpMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "HEAD", "OPTIONS"}

// ValidateHTTPMethod validates HTTP method names, case-insensitively
func ValidateHTTPMethod(v interface{}) error {
	method, err := annotations.ConvertToString(v)
	if err != nil {
		return err
	}
	for _, valid := range httpMethods {
		if strings.EqualFold(method, valid) {
			return nil
		}
	}
	return errors.NewValidationError("method", "one of "+strings.Join(httpMethods, ", "), fmt.Sprintf("'%s'", method))
}

// ValidateURLPath validates URL path format
func ValidateURLPath(v interface{}) error {
	path, err := annotations.ConvertToString(v)
	if err != nil {
		return err
	}
	if !strings.HasPrefix(path, "/") {
		return errors.NewValidationErrorWithValue("path", path, "must start with '/'").
			WithSuggestion(fmt.Sprintf("Use \"/%s\"", path))
	}
	return nil
}

// ValidateURLPaths validates every path of a list
func ValidateURLPaths(v interface{}) error {
	paths, err := annotations.ConvertToStringSlice(v)
	if err != nil {
		return err
	}
	for _, path := range paths {
		if path == "" {
			return errors.NewValidationErrorWithValue("routes", path, "route pattern cannot be empty")
		}
		if err := ValidateURLPath(path); err != nil {
			return err
		}
	}
	return nil
}

// ValidateMode validates service lifecycle mode (Singleton/Transient)
func ValidateMode(v interface{}) error {
	mode, err := annotations.ConvertToString(v)
	if err != nil {
		return err
	}
	if mode != Singleton && mode != Transient {
		return errors.NewValidationError("mode", "'Singleton' or 'Transient'", fmt.Sprintf("'%s'", mode))
	}
	return nil
}

// ValidateInit validates initialization mode (Same/Background)
func ValidateInit(v interface{}) error {
	mode, err := annotations.ConvertToString(v)
	if err != nil {
		return err
	}
	if mode != InitSame && mode != InitBackground {
		return errors.NewValidationError("init", "'Same' or 'Background'", fmt.Sprintf("'%s'", mode))
	}
	return nil
}

// ValidateName rejects empty names
func ValidateName(v interface{}) error {
	name, err := annotations.ConvertToString(v)
	if err != nil {
		return err
	}
	if strings.TrimSpace(name) == "" {
		return errors.NewValidationErrorWithValue("name", name, "cannot be empty")
	}
	return nil
}

func validatePriority(priority int) error {
	if priority < 0 {
		return errors.NewValidationErrorWithValue("priority", priority, "must not be negative")
	}
	return nil
}
