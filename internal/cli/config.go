package cli

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/mod/module"

	"github.com/toyz/docmeta/internal/errors"
)

// Config holds the configuration for an inspection run
type Config struct {
	// Directories is the list of directories to scan for annotated Go files.
	// A trailing "/..." scans the directory and its subdirectories.
	Directories []string

	// ModuleName replaces the module path declared by go.mod when import
	// paths are derived. Empty uses go.mod.
	ModuleName string

	// Verbose enables detailed logging and error reporting
	Verbose bool

	// Strict surfaces every resolution error, including annotations that
	// fell back to generic values
	Strict bool

	// TypeNameAttributes lists attribute names whose values are resolved
	// as type references
	TypeNameAttributes []string
}

// attributeNameSpecials cannot appear in an attribute key
const attributeNameSpecials = "(){}[],=\"'@"

// Validate checks the settings that do not depend on the file system
func (c Config) Validate() error {
	if len(c.Directories) == 0 {
		return errors.WrapConfigurationError("directories", fmt.Errorf("no directories given")).
			WithSuggestion("Pass at least one package directory, for example ./...")
	}

	if c.ModuleName != "" {
		if err := module.CheckImportPath(c.ModuleName); err != nil {
			return errors.WrapConfigurationError("module", err).
				WithContext("value", c.ModuleName).
				WithSuggestion("Use a Go import path such as github.com/myorg/myapp")
		}
	}

	for _, name := range c.TypeNameAttributes {
		if strings.ContainsAny(name, attributeNameSpecials) || strings.IndexFunc(name, unicode.IsSpace) >= 0 {
			return errors.WrapConfigurationError("type-attrs", fmt.Errorf("%q is not an attribute name", name)).
				WithContext("value", name).
				WithSuggestion("List bare attribute names separated by commas, for example type,typeName")
		}
	}
	return nil
}
