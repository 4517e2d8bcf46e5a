package vocab

import (
	"strings"

	"github.com/toyz/docmeta/internal/annotations"
	"github.com/toyz/docmeta/internal/errors"
)

const (
	// DefaultNamespace is the import path the vocabulary registers under
	DefaultNamespace = "github.com/toyz/docmeta/pkg/vocab"

	// DefaultSeparator joins DefaultNamespace and a short type name
	DefaultSeparator = "."
)

// TypeNameAttributes are the vocabulary attributes whose values name types
var TypeNameAttributes = []string{"type", "typeName"}

// Register adds every vocabulary schema to reg, qualified by namespace and
// sep. An empty namespace registers the short names.
func Register(reg annotations.Registry, namespace, sep string) error {
	errs := &errors.MultipleErrors{}
	for _, schema := range Schemas(namespace, sep) {
		if err := reg.Register(schema); err != nil {
			errs.Add(err)
		}
	}
	return errs.ErrOrNil()
}

// Schemas returns the vocabulary schemas qualified by namespace and sep
func Schemas(namespace, sep string) []annotations.TypeSchema {
	schemas := []annotations.TypeSchema{
		routeSchema(),
		controllerSchema(),
		middlewareSchema(),
		serviceSchema(),
		implementsSchema(),
		injectSchema(),
		initSchema(),
		routeParserSchema(),
		paramSchema(),
	}
	for i := range schemas {
		schemas[i].Name = Qualify(namespace, sep, schemas[i].Name)
		schemas[i].Privileged = true
		schemas[i].Validate = checkStruct
	}
	return schemas
}

// Qualify joins namespace and a short vocabulary name
func Qualify(namespace, sep, name string) string {
	if namespace == "" {
		return name
	}
	return strings.TrimSuffix(namespace, sep) + sep + name
}

func validated(b annotations.FieldBinding, validator func(interface{}) error) annotations.FieldBinding {
	b.Validator = validator
	return b
}

func routeSchema() annotations.TypeSchema {
	return annotations.TypeSchema{
		Name:        "Route",
		Description: "HTTP route handler",
		Required: []annotations.ParameterSpec{
			{Name: "method", Type: annotations.StringType, Description: "HTTP method", Validator: ValidateHTTPMethod},
			{Name: "path", Type: annotations.StringType, Description: "URL path pattern", Validator: ValidateURLPath},
		},
		Construct: func(args []interface{}) (interface{}, error) {
			return &Route{
				Method: strings.ToUpper(args[0].(string)),
				Path:   args[1].(string),
			}, nil
		},
		Fields: map[string]annotations.FieldBinding{
			"middleware": annotations.Bind(annotations.ConvertToStringSlice, func(r *Route, v []string) {
				r.Middleware = v
			}),
			"passContext": annotations.Bind(annotations.ConvertToBool, func(r *Route, v bool) {
				r.PassContext = v
			}),
		},
		Examples: []string{
			`@vocab.Route(GET, "/users")`,
			`@vocab.Route(method="POST", path="/users", middleware={Auth, Logging})`,
			`@vocab.Route(GET, "/health", passContext=true)`,
		},
	}
}

func controllerSchema() annotations.TypeSchema {
	return annotations.TypeSchema{
		Name:        "Controller",
		Description: "HTTP controller with shared route prefix and middleware",
		Construct: func([]interface{}) (interface{}, error) {
			return &Controller{Priority: DefaultPriority}, nil
		},
		Fields: map[string]annotations.FieldBinding{
			"prefix": validated(annotations.Bind(annotations.ConvertToString, func(c *Controller, v string) {
				c.Prefix = v
			}), ValidateURLPath),
			"middleware": annotations.Bind(annotations.ConvertToStringSlice, func(c *Controller, v []string) {
				c.Middleware = v
			}),
		},
		Setters: map[string]annotations.FieldBinding{
			"Priority": annotations.BindError(annotations.ConvertToInt, (*Controller).SetPriority),
		},
		Examples: []string{
			`@vocab.Controller`,
			`@vocab.Controller(prefix="/api/v1", middleware={Auth}, priority=10)`,
		},
	}
}

func middlewareSchema() annotations.TypeSchema {
	setName := func(m *Middleware, v string) { m.Name = v }
	return annotations.TypeSchema{
		Name:        "Middleware",
		Description: "HTTP middleware, optionally global or limited to route patterns",
		Construct: func([]interface{}) (interface{}, error) {
			return &Middleware{Priority: DefaultPriority}, nil
		},
		Fields: map[string]annotations.FieldBinding{
			"name":  validated(annotations.Bind(annotations.ConvertToString, setName), ValidateName),
			"value": validated(annotations.Bind(annotations.ConvertToString, setName), ValidateName),
			"global": annotations.Bind(annotations.ConvertToBool, func(m *Middleware, v bool) {
				m.Global = v
			}),
			"routes": validated(annotations.Bind(annotations.ConvertToStringSlice, func(m *Middleware, v []string) {
				m.Routes = v
			}), ValidateURLPaths),
		},
		Setters: map[string]annotations.FieldBinding{
			"Priority": annotations.BindError(annotations.ConvertToInt, (*Middleware).SetPriority),
		},
		Examples: []string{
			`@vocab.Middleware(Auth)`,
			`@vocab.Middleware(name="Logging", global=true, priority=1)`,
			`@vocab.Middleware(name="Admin", routes={"/admin/*"})`,
		},
	}
}

func serviceSchema() annotations.TypeSchema {
	return annotations.TypeSchema{
		Name:        "Service",
		Description: "injectable service with lifecycle management",
		Construct: func([]interface{}) (interface{}, error) {
			return &Service{Mode: Singleton, Init: InitSame}, nil
		},
		Fields: map[string]annotations.FieldBinding{
			"manual": annotations.Bind(annotations.ConvertToString, func(s *Service, v string) {
				s.Manual = v
			}),
		},
		Setters: map[string]annotations.FieldBinding{
			"Mode": annotations.BindError(annotations.ConvertToString, (*Service).SetMode),
			"Init": annotations.BindError(annotations.ConvertToString, (*Service).SetInit),
		},
		Examples: []string{
			`@vocab.Service`,
			`@vocab.Service(mode=Transient)`,
			`@vocab.Service(init=Background, manual="NewCache")`,
		},
	}
}

func implementsSchema() annotations.TypeSchema {
	setName := func(i *Implements, v string) { i.Name = v }
	return annotations.TypeSchema{
		Name:        "Implements",
		Description: "interface a service is provided as",
		Construct: func([]interface{}) (interface{}, error) {
			return &Implements{}, nil
		},
		Fields: map[string]annotations.FieldBinding{
			"name":  annotations.Bind(annotations.ConvertToString, setName),
			"value": annotations.Bind(annotations.ConvertToString, setName),
		},
		Examples: []string{`@vocab.Implements(UserRepository)`},
	}
}

func injectSchema() annotations.TypeSchema {
	setName := func(i *Inject, v string) { i.Name = v }
	return annotations.TypeSchema{
		Name:        "Inject",
		Description: "field filled by dependency injection",
		Construct: func([]interface{}) (interface{}, error) {
			return &Inject{}, nil
		},
		Fields: map[string]annotations.FieldBinding{
			"name":  annotations.Bind(annotations.ConvertToString, setName),
			"value": annotations.Bind(annotations.ConvertToString, setName),
		},
		Examples: []string{`@vocab.Inject`, `@vocab.Inject(primary)`},
	}
}

func initSchema() annotations.TypeSchema {
	return annotations.TypeSchema{
		Name:        "Init",
		Description: "lifecycle start method",
		Construct: func([]interface{}) (interface{}, error) {
			return &Init{}, nil
		},
		Examples: []string{`@vocab.Init`},
	}
}

func routeParserSchema() annotations.TypeSchema {
	return annotations.TypeSchema{
		Name:        "RouteParser",
		Description: "parser for path parameters of a custom type",
		Required: []annotations.ParameterSpec{
			{Name: "typeName", Type: annotations.StringType, Description: "parsed type", Validator: ValidateName},
		},
		Construct: func(args []interface{}) (interface{}, error) {
			return &RouteParser{TypeName: args[0].(string)}, nil
		},
		Examples: []string{`@vocab.RouteParser(uuid.UUID)`, `@vocab.RouteParser(typeName="time.Time")`},
	}
}

func paramSchema() annotations.TypeSchema {
	return annotations.TypeSchema{
		Name:        "Param",
		Description: "documents one handler parameter",
		Required: []annotations.ParameterSpec{
			{Name: "name", Type: annotations.StringType, Description: "parameter name", Validator: ValidateName},
		},
		Construct: func(args []interface{}) (interface{}, error) {
			return &Param{Name: args[0].(string)}, nil
		},
		Fields: map[string]annotations.FieldBinding{
			"type": annotations.Bind(annotations.ConvertToString, func(p *Param, v string) {
				p.Type = v
			}),
			"description": annotations.Bind(annotations.ConvertToString, func(p *Param, v string) {
				p.Description = v
			}),
		},
		Examples: []string{`@vocab.Param(id, type=uuid.UUID, description="user identifier")`},
	}
}
