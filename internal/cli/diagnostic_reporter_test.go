package cli

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/toyz/docmeta/internal/errors"
)

func TestDiagnosticReporter_ReportWarning(t *testing.T) {
	var buf bytes.Buffer
	reporter := NewDiagnosticReporter(false, &buf)

	reporter.ReportWarning("This is a test warning")
	assert.Contains(t, buf.String(), "! ")
	assert.Contains(t, buf.String(), "This is a test warning\n")
}

func TestDiagnosticReporter_ReportError(t *testing.T) {
	missing := errors.NewMissingAttributeError("path", "vocab.Route", "app.UserController::Show()")
	err := errors.NewHydrationError("vocab.Route", "app.UserController::Show()", true, missing)

	t.Run("docmeta error", func(t *testing.T) {
		var buf bytes.Buffer
		NewDiagnosticReporter(false, &buf).ReportError(err)
		output := buf.String()

		assert.Contains(t, output, "Annotation Hydration Error")
		assert.Contains(t, output, "Message: failed to hydrate vocab.Route")
		assert.Contains(t, output, "Annotation: vocab.Route")
		assert.Contains(t, output, "Declaration: app.UserController::Show()")
		assert.Contains(t, output, "Parameter: path")
		assert.Contains(t, output, "1. Add path=... to the annotation arguments")
		assert.Contains(t, output, `@vocab.Route(GET, "/users")`)
		assert.Contains(t, output, "Run with --verbose")
		assert.NotContains(t, output, "Error Chain:")
	})

	t.Run("verbose chain", func(t *testing.T) {
		var buf bytes.Buffer
		NewDiagnosticReporter(true, &buf).ReportError(err)
		output := buf.String()

		assert.Contains(t, output, "Error Chain:")
		assert.Contains(t, output, "1. [HydrationError]")
		assert.Contains(t, output, "2. [MissingRequiredAttribute]")
		assert.NotContains(t, output, "Run with --verbose")
	})

	t.Run("location", func(t *testing.T) {
		var buf bytes.Buffer
		loc := errors.SourceLocation{File: "users.php", Line: 3}
		NewDiagnosticReporter(false, &buf).ReportError(errors.NewUnbalancedImportGroupError(`use A\{B;`, loc))

		assert.Contains(t, buf.String(), "Unbalanced Import Group")
		assert.Contains(t, buf.String(), "Location: users.php:3")
		assert.Contains(t, buf.String(), "Import groups must open with a prefix")
	})

	t.Run("plain error", func(t *testing.T) {
		var buf bytes.Buffer
		NewDiagnosticReporter(false, &buf).ReportError(fmt.Errorf("no Go files found"))
		assert.Equal(t, "\nERROR: no Go files found\n\n", buf.String())
	})

	t.Run("multiple errors", func(t *testing.T) {
		errs := &errors.MultipleErrors{}
		errs.Add(fmt.Errorf("first"))
		errs.Add(errors.WrapFileSystemError("read", "/tmp/x", fmt.Errorf("denied")))

		var buf bytes.Buffer
		NewDiagnosticReporter(false, &buf).ReportError(errs)
		output := buf.String()

		assert.Contains(t, output, "ERROR: 2 problems found")
		assert.Contains(t, output, "[1/2] first")
		assert.Contains(t, output, "[2/2] ")
		assert.Contains(t, output, "File System Error")
		assert.Contains(t, output, "Path: /tmp/x")
		assert.Contains(t, output, "Operation: read")
	})

	t.Run("nil", func(t *testing.T) {
		var buf bytes.Buffer
		NewDiagnosticReporter(false, &buf).ReportError(nil)
		assert.Empty(t, buf.String())
	})
}

func TestFormatContextKey(t *testing.T) {
	assert.Equal(t, "Annotation", formatContextKey("annotation_type"))
	assert.Equal(t, "Declaration", formatContextKey("host"))
	assert.Equal(t, "Setting Name", formatContextKey("setting_name"))
}
