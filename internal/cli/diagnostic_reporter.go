package cli

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/toyz/docmeta/internal/errors"
)

// DiagnosticReporter provides user-friendly error reporting
type DiagnosticReporter struct {
	verbose bool
	out     io.Writer
}

// NewDiagnosticReporter creates a reporter writing to out, stderr when nil
func NewDiagnosticReporter(verbose bool, out io.Writer) *DiagnosticReporter {
	if out == nil {
		out = os.Stderr
	}
	return &DiagnosticReporter{
		verbose: verbose,
		out:     out,
	}
}

// ReportWarning prints a one-line warning
func (r *DiagnosticReporter) ReportWarning(message string) {
	color.New(color.FgYellow, color.Bold).Fprint(r.out, "! ")
	fmt.Fprintf(r.out, "%s\n", message)
}

// ReportError reports err, each collected error separately when err holds several
func (r *DiagnosticReporter) ReportError(err error) {
	if err == nil {
		return
	}

	var multi *errors.MultipleErrors
	if stderrors.As(err, &multi) && len(multi.Errors) > 1 {
		fmt.Fprintf(r.out, "\nERROR: %d problems found\n", len(multi.Errors))
		for i, inner := range multi.Errors {
			fmt.Fprintf(r.out, "\n[%d/%d] ", i+1, len(multi.Errors))
			r.reportOne(inner)
		}
		return
	}
	if multi != nil && len(multi.Errors) == 1 {
		err = multi.Errors[0]
	}

	fmt.Fprintf(r.out, "\nERROR: ")
	r.reportOne(err)
}

func (r *DiagnosticReporter) reportOne(err error) {
	var de errors.DocmetaError
	if !stderrors.As(err, &de) {
		fmt.Fprintf(r.out, "%s\n\n", err.Error())
		return
	}

	r.printErrorHeader(de.ErrorCode())
	fmt.Fprintf(r.out, "Message: %s\n\n", err.Error())

	if loc := de.Location(); !loc.IsEmpty() {
		fmt.Fprintf(r.out, "Location: %s\n\n", loc.String())
	}

	context := collectContext(err)
	if len(context) > 0 {
		r.printContext(context)
	}

	if suggestions := collectSuggestions(err); len(suggestions) > 0 {
		r.printSuggestions(suggestions)
	}

	r.printAdditionalHelp(errors.CodeOf(err), err)

	if r.verbose {
		r.printErrorChain(err)
	}
}

// printErrorHeader prints a formatted error header based on error code
func (r *DiagnosticReporter) printErrorHeader(code errors.ErrorCode) {
	var title string
	switch code {
	case errors.HostDeclarationNotFoundCode:
		title = "Declaration Not Found"
	case errors.MalformedValueCode:
		title = "Malformed Annotation Value"
	case errors.MissingRequiredAttributeCode:
		title = "Missing Required Attribute"
	case errors.UnbalancedImportGroupCode:
		title = "Unbalanced Import Group"
	case errors.RegistrationErrorCode:
		title = "Registration Error"
	case errors.HydrationErrorCode:
		title = "Annotation Hydration Error"
	case errors.ValidationErrorCode:
		title = "Validation Error"
	case errors.ConfigurationErrorCode:
		title = "Configuration Error"
	case errors.FileSystemErrorCode:
		title = "File System Error"
	case errors.PackageLoadErrorCode:
		title = "Package Load Error"
	default:
		title = "Unknown Error"
	}

	color.New(color.FgRed, color.Bold).Fprintf(r.out, "%s\n", title)
	fmt.Fprintf(r.out, "%s\n\n", strings.Repeat("-", len(title)))
}

// collectContext merges the context of every error in the chain, outer
// errors winning
func collectContext(err error) map[string]interface{} {
	context := make(map[string]interface{})
	for err != nil {
		if de, ok := err.(errors.DocmetaError); ok {
			for k, v := range de.Context() {
				if _, exists := context[k]; !exists {
					context[k] = v
				}
			}
		}
		err = stderrors.Unwrap(err)
	}
	return context
}

// collectSuggestions gathers the suggestions of every error in the chain
func collectSuggestions(err error) []string {
	var suggestions []string
	seen := make(map[string]bool)
	for err != nil {
		if de, ok := err.(errors.DocmetaError); ok {
			for _, s := range de.Suggestions() {
				if !seen[s] {
					seen[s] = true
					suggestions = append(suggestions, s)
				}
			}
		}
		err = stderrors.Unwrap(err)
	}
	return suggestions
}

// printContext prints context information, well-known keys first
func (r *DiagnosticReporter) printContext(context map[string]interface{}) {
	fmt.Fprintf(r.out, "Context:\n")

	importantKeys := []string{"annotation_type", "host", "parameter", "type", "member", "path"}
	printed := make(map[string]bool)

	for _, key := range importantKeys {
		if value, exists := context[key]; exists {
			fmt.Fprintf(r.out, "   %s: %v\n", formatContextKey(key), value)
			printed[key] = true
		}
	}

	rest := make([]string, 0, len(context))
	for key := range context {
		if !printed[key] {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)
	for _, key := range rest {
		fmt.Fprintf(r.out, "   %s: %v\n", formatContextKey(key), context[key])
	}

	fmt.Fprintf(r.out, "\n")
}

// formatContextKey formats context keys to be more readable
func formatContextKey(key string) string {
	switch key {
	case "annotation_type":
		return "Annotation"
	case "host":
		return "Declaration"
	default:
		parts := strings.Split(key, "_")
		for i, part := range parts {
			if len(part) > 0 {
				parts[i] = strings.ToUpper(part[:1]) + part[1:]
			}
		}
		return strings.Join(parts, " ")
	}
}

// printSuggestions prints actionable suggestions
func (r *DiagnosticReporter) printSuggestions(suggestions []string) {
	fmt.Fprintf(r.out, "Suggestions:\n")

	for i, suggestion := range suggestions {
		lines := strings.Split(suggestion, "\n")
		fmt.Fprintf(r.out, "   %d. %s\n", i+1, lines[0])
		for _, line := range lines[1:] {
			if strings.TrimSpace(line) != "" {
				fmt.Fprintf(r.out, "      %s\n", line)
			}
		}
	}

	fmt.Fprintf(r.out, "\n")
}

// printAdditionalHelp prints help for the most common error kinds
func (r *DiagnosticReporter) printAdditionalHelp(code errors.ErrorCode, err error) {
	switch {
	case errors.HasCode(err, errors.MissingRequiredAttributeCode):
		fmt.Fprintf(r.out, "Required attributes may be named, or given positionally in declaration order:\n")
		fmt.Fprintf(r.out, "  @vocab.Route(method=\"GET\", path=\"/users\")\n")
		fmt.Fprintf(r.out, "  @vocab.Route(GET, \"/users\")\n\n")

	case errors.HasCode(err, errors.MalformedValueCode):
		fmt.Fprintf(r.out, "Annotation Value Syntax:\n")
		fmt.Fprintf(r.out, "  - Values are parenthesized: @Name(key=\"value\", flag=true)\n")
		fmt.Fprintf(r.out, "  - Lists use braces: middleware={Auth, Logging}\n")
		fmt.Fprintf(r.out, "  - Parentheses, braces and quotes must balance\n\n")

	case code == errors.UnbalancedImportGroupCode:
		fmt.Fprintf(r.out, "Import groups must open with a prefix, e.g. use App\\Models\\{User, Post};\n\n")
	}

	if !r.verbose {
		fmt.Fprintf(r.out, "Run with --verbose for the full error chain\n\n")
	}
}

// printErrorChain prints every error wrapped by err
func (r *DiagnosticReporter) printErrorChain(err error) {
	fmt.Fprintf(r.out, "Error Chain:\n")
	level := 1
	for err != nil {
		code := "-"
		if de, ok := err.(errors.DocmetaError); ok {
			code = de.ErrorCode().String()
		}
		fmt.Fprintf(r.out, "    %d. [%s] %s\n", level, code, err.Error())
		err = stderrors.Unwrap(err)
		level++
	}
	fmt.Fprintf(r.out, "\n")
}
