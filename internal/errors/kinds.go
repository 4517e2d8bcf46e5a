package errors

import "fmt"

// Error kinds raised by the tokenizer, value parser, alias resolver and hydrator.
// Each wraps a BaseError so callers can inspect it with errors.As.

// HostDeclarationNotFoundError is raised when the host cannot supply a declaration
type HostDeclarationNotFoundError struct {
	*BaseError
	TypeName string // enclosing type
	Member   string // member name, empty for the type itself
}

// NewHostDeclarationNotFoundError creates a host lookup error
func NewHostDeclarationNotFoundError(typeName, member string) *HostDeclarationNotFoundError {
	target := typeName
	if member != "" {
		target = fmt.Sprintf("%s::%s", typeName, member)
	}
	err := &HostDeclarationNotFoundError{
		BaseError: Newf(HostDeclarationNotFoundCode, "declaration '%s' not found", target),
		TypeName:  typeName,
		Member:    member,
	}
	err.WithContext("type", typeName)
	if member != "" {
		err.WithContext("member", member)
	}
	return err
}

// MalformedValueError is raised when an annotation value cannot be normalized
// into a structured literal
type MalformedValueError struct {
	*BaseError
	Raw        string // original value text
	Normalized string // text handed to the strict parser
}

// NewMalformedValueError creates a value-language error
func NewMalformedValueError(raw, normalized string, cause error) *MalformedValueError {
	err := &MalformedValueError{
		BaseError:  Wrap(MalformedValueCode, "malformed annotation value", cause),
		Raw:        raw,
		Normalized: normalized,
	}
	err.WithSuggestion("Values use the form (key=\"string\", flag=true, list={a, b}) with balanced parentheses and braces")
	return err
}

// MissingAttributeError is raised when a typed annotation lacks a required input
type MissingAttributeError struct {
	*BaseError
	Parameter      string // required parameter name
	AnnotationType string // fully-qualified annotation type
	Host           string // host declaration the annotation is attached to
}

// NewMissingAttributeError creates a missing required attribute error
func NewMissingAttributeError(parameter, annotationType, host string) *MissingAttributeError {
	err := &MissingAttributeError{
		BaseError: Newf(MissingRequiredAttributeCode,
			"annotation %s on %s requires attribute '%s'", annotationType, host, parameter),
		Parameter:      parameter,
		AnnotationType: annotationType,
		Host:           host,
	}
	err.WithContext("parameter", parameter).
		WithContext("annotation_type", annotationType).
		WithContext("host", host).
		WithSuggestion(fmt.Sprintf("Add %s=... to the annotation arguments", parameter))
	return err
}

// UnbalancedImportGroupError is raised when an import group closes without
// a matching opening prefix
type UnbalancedImportGroupError struct {
	*BaseError
	Statement string // import statement being scanned
}

// NewUnbalancedImportGroupError creates an import scanning error
func NewUnbalancedImportGroupError(statement string, loc SourceLocation) *UnbalancedImportGroupError {
	err := &UnbalancedImportGroupError{
		BaseError: Newf(UnbalancedImportGroupCode, "import group closed without an opening prefix in '%s'", statement),
		Statement: statement,
	}
	err.WithLocation(loc)
	return err
}

// RegistrationError represents an error during annotation type registration
type RegistrationError struct {
	*BaseError
	TypeName string
}

// NewRegistrationError creates a registration error for a typed annotation
func NewRegistrationError(typeName, reason string) *RegistrationError {
	return &RegistrationError{
		BaseError: Newf(RegistrationErrorCode, "failed to register annotation type '%s': %s", typeName, reason),
		TypeName:  typeName,
	}
}

// HydrationError is raised when constructing or populating a typed annotation fails.
// Privileged marks errors from the first-party vocabulary, which are always fatal.
type HydrationError struct {
	*BaseError
	AnnotationType string
	Host           string
	Privileged     bool
}

// NewHydrationError wraps a construction or assignment failure
func NewHydrationError(annotationType, host string, privileged bool, cause error) *HydrationError {
	err := &HydrationError{
		BaseError:      Wrapf(HydrationErrorCode, cause, "failed to hydrate %s on %s", annotationType, host),
		AnnotationType: annotationType,
		Host:           host,
		Privileged:     privileged,
	}
	err.WithContext("annotation_type", annotationType).WithContext("host", host)
	return err
}

// IsPrivileged reports whether err escaped hydration because its annotation
// type belongs to the privileged vocabulary
func IsPrivileged(err error) bool {
	return walk(err, func(err error) bool {
		he, ok := err.(*HydrationError)
		return ok && he.Privileged
	})
}

// HasCode reports whether any error in err's tree carries code
func HasCode(err error, code ErrorCode) bool {
	return walk(err, func(err error) bool {
		de, ok := err.(DocmetaError)
		return ok && de.ErrorCode() == code
	})
}

// walk visits err and everything it wraps, depth first, until match holds
func walk(err error, match func(error) bool) bool {
	for err != nil {
		if match(err) {
			return true
		}
		switch u := err.(type) {
		case interface{ Unwrap() []error }:
			for _, inner := range u.Unwrap() {
				if walk(inner, match) {
					return true
				}
			}
			return false
		case interface{ Unwrap() error }:
			err = u.Unwrap()
		default:
			return false
		}
	}
	return false
}
