// Package vocab is the first-party annotation vocabulary. Its types are
// registered as privileged, so a malformed vocab annotation is an error
// rather than a silent generic fallback.
//
// In Go sources the vocabulary is usually imported for its name only:
//
//	import _ "github.com/toyz/docmeta/pkg/vocab"
//
//	// @vocab.Controller(prefix="/users", middleware={Auth})
//	type UserController struct {
//		// @vocab.Inject
//		Store *Store
//	}
//
//	// @vocab.Route(GET, "/users/{id}")
//	// @vocab.Param(id, type=uuid.UUID)
//	func (c *UserController) Show() {}
package vocab

// DefaultPriority is the priority of controllers and middleware that do not set one
const DefaultPriority = 100

// Route marks a method as an HTTP handler
type Route struct {
	Method      string   `validate:"oneof=GET POST PUT DELETE PATCH HEAD OPTIONS"`
	Path        string   `validate:"startswith=/"`
	Middleware  []string `validate:"dive,required"`
	PassContext bool
}

// Controller marks a type whose routes share a prefix and middleware
type Controller struct {
	Prefix     string   `validate:"omitempty,startswith=/"`
	Middleware []string `validate:"dive,required"`
	Priority   int      `validate:"gte=0"`
}

// SetPriority sets the registration priority; lower registers first
func (c *Controller) SetPriority(priority int) error {
	if err := validatePriority(priority); err != nil {
		return err
	}
	c.Priority = priority
	return nil
}

// Middleware marks a type as request middleware
type Middleware struct {
	Name     string
	Global   bool
	Priority int      `validate:"gte=0"`
	Routes   []string `validate:"dive,startswith=/"`
}

// SetPriority sets the ordering of global middleware; lower runs first
func (m *Middleware) SetPriority(priority int) error {
	if err := validatePriority(priority); err != nil {
		return err
	}
	m.Priority = priority
	return nil
}

// Lifecycle modes of a Service
const (
	Singleton = "Singleton"
	Transient = "Transient"
)

// Init modes of a Service
const (
	InitSame       = "Same"
	InitBackground = "Background"
)

// Service marks a type as an injectable service
type Service struct {
	Mode   string `validate:"oneof=Singleton Transient"`
	Init   string `validate:"oneof=Same Background"`
	Manual string
}

// SetMode sets the lifecycle mode, Singleton or Transient
func (s *Service) SetMode(mode string) error {
	if err := ValidateMode(mode); err != nil {
		return err
	}
	s.Mode = mode
	return nil
}

// SetInit sets the init mode, Same or Background
func (s *Service) SetInit(init string) error {
	if err := ValidateInit(init); err != nil {
		return err
	}
	s.Init = init
	return nil
}

// Implements names the interface a service is provided as
type Implements struct {
	Name string
}

// Inject marks a field for dependency injection, optionally by name
type Inject struct {
	Name string
}

// Init marks a lifecycle start method
type Init struct{}

// RouteParser marks a function that parses path parameters of TypeName
type RouteParser struct {
	TypeName string `validate:"required"`
}

// Param documents one handler parameter
type Param struct {
	Name        string `validate:"required"`
	Type        string
	Description string
}
