package engine

// Logger receives the engine's diagnostics. *diagnostics.System satisfies it.
type Logger interface {
	Debug(format string, args ...interface{})
	Warn(format string, args ...interface{})
}

// Config holds the configuration for the resolution engine
type Config struct {
	// Silent records errors in the last-error slot and returns an empty
	// result instead of the error. Host lookup failures and privileged
	// vocabulary errors are returned in either mode.
	Silent bool

	// TypeNameAttributes lists attribute names whose values are resolved
	// as type references through the alias table
	TypeNameAttributes []string

	// Logger receives fallbacks and recorded errors. Nil disables logging.
	Logger Logger
}

// DefaultConfig returns the configuration used when none is given: silent
// mode on, no type-name attributes, no logging
func DefaultConfig() Config {
	return Config{Silent: true}
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Warn(string, ...interface{})  {}
