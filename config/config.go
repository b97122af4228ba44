package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"
)

var (
	// ErrUnknownParam is returned when a parameter is not defined in a Space.
	ErrUnknownParam = errors.New("config: unknown parameter")
	// ErrDomain is returned when a value is outside of its parameter domain.
	ErrDomain = errors.New("config: value out of domain")
	// ErrCycle is returned when a condition makes a parameter depend on itself.
	ErrCycle = errors.New("config: condition cycle")
)

// Param is a named hyperparameter with a domain and a default value.
type Param interface {
	// Name returns parameter name
	Name() string
	// Default returns parameter default value
	Default() any
	// Validate checks v belongs to the parameter domain and returns it normalized
	Validate(v any) (any, error)
}

// IntParam is an integer hyperparameter in a closed range.
type IntParam struct {
	name         string
	lower, upper int
	def          int
}

// Int creates new integer parameter with domain [lower, upper].
// It panics if def is outside of the domain.
func Int(name string, lower, upper, def int) *IntParam {
	if def < lower || def > upper {
		panic(fmt.Sprintf("config: default %d of %q outside [%d, %d]", def, name, lower, upper))
	}

	return &IntParam{name: name, lower: lower, upper: upper, def: def}
}

// Name returns parameter name.
func (p *IntParam) Name() string { return p.name }

// Default returns parameter default value.
func (p *IntParam) Default() any { return p.def }

// Bounds returns parameter domain bounds.
func (p *IntParam) Bounds() (lower, upper int) { return p.lower, p.upper }

// Validate checks v is an integer within the parameter bounds.
func (p *IntParam) Validate(v any) (any, error) {
	var i int
	switch val := v.(type) {
	case int:
		i = val
	case int64:
		i = int(val)
	case float64:
		if val != float64(int(val)) {
			return nil, fmt.Errorf("%w: %q expects integer, got %v", ErrDomain, p.name, v)
		}
		i = int(val)
	default:
		return nil, fmt.Errorf("%w: %q expects integer, got %T", ErrDomain, p.name, v)
	}

	if i < p.lower || i > p.upper {
		return nil, fmt.Errorf("%w: %q = %d outside [%d, %d]", ErrDomain, p.name, i, p.lower, p.upper)
	}

	return i, nil
}

// FloatParam is a real valued hyperparameter in a closed range.
type FloatParam struct {
	name         string
	lower, upper float64
	def          float64
}

// Float creates new real parameter with domain [lower, upper].
// It panics if def is outside of the domain.
func Float(name string, lower, upper, def float64) *FloatParam {
	if def < lower || def > upper {
		panic(fmt.Sprintf("config: default %v of %q outside [%v, %v]", def, name, lower, upper))
	}

	return &FloatParam{name: name, lower: lower, upper: upper, def: def}
}

// Name returns parameter name.
func (p *FloatParam) Name() string { return p.name }

// Default returns parameter default value.
func (p *FloatParam) Default() any { return p.def }

// Validate checks v is a number within the parameter bounds.
func (p *FloatParam) Validate(v any) (any, error) {
	var f float64
	switch val := v.(type) {
	case float64:
		f = val
	case int:
		f = float64(val)
	default:
		return nil, fmt.Errorf("%w: %q expects number, got %T", ErrDomain, p.name, v)
	}

	if f < p.lower || f > p.upper {
		return nil, fmt.Errorf("%w: %q = %v outside [%v, %v]", ErrDomain, p.name, f, p.lower, p.upper)
	}

	return f, nil
}

// CategoricalParam is a string hyperparameter taking one of a fixed set of choices.
type CategoricalParam struct {
	name    string
	choices []string
	def     string
}

// Categorical creates new categorical parameter.
// It panics if def is not one of choices.
func Categorical(name string, choices []string, def string) *CategoricalParam {
	p := &CategoricalParam{name: name, choices: append([]string(nil), choices...), def: def}
	if !p.has(def) {
		panic(fmt.Sprintf("config: default %q of %q not in %v", def, name, choices))
	}

	return p
}

func (p *CategoricalParam) has(v string) bool {
	for _, c := range p.choices {
		if c == v {
			return true
		}
	}

	return false
}

// Name returns parameter name.
func (p *CategoricalParam) Name() string { return p.name }

// Default returns parameter default value.
func (p *CategoricalParam) Default() any { return p.def }

// Choices returns parameter choices.
func (p *CategoricalParam) Choices() []string { return append([]string(nil), p.choices...) }

// Validate checks v is one of the parameter choices.
func (p *CategoricalParam) Validate(v any) (any, error) {
	var s string
	switch val := v.(type) {
	case string:
		s = val
	case bool:
		// YAML decodes unquoted true/false as booleans
		s = strconv.FormatBool(val)
	default:
		return nil, fmt.Errorf("%w: %q expects string, got %T", ErrDomain, p.name, v)
	}

	if !p.has(s) {
		return nil, fmt.Errorf("%w: %q = %q not in %v", ErrDomain, p.name, s, p.choices)
	}

	return s, nil
}

// EqualsCondition activates Child only when categorical Parent equals Value.
type EqualsCondition struct {
	Child  string
	Parent string
	Value  string
}

// Space is a declarative space of named hyperparameters.
type Space struct {
	params map[string]Param
	order  []string
	conds  map[string]EqualsCondition
}

// NewSpace creates new Space holding params and returns it.
// It panics if two parameters share a name.
func NewSpace(params ...Param) *Space {
	s := &Space{
		params: make(map[string]Param),
		conds:  make(map[string]EqualsCondition),
	}

	for _, p := range params {
		if err := s.Add(p); err != nil {
			panic(err)
		}
	}

	return s
}

// Add adds parameter p to the space.
// It returns error if the space already has a parameter with the same name.
func (s *Space) Add(p Param) error {
	if _, ok := s.params[p.Name()]; ok {
		return fmt.Errorf("config: duplicate parameter %q", p.Name())
	}
	s.params[p.Name()] = p
	s.order = append(s.order, p.Name())

	return nil
}

// AddCondition adds conditional activation c to the space.
// It returns error if c refers to unknown parameters, its parent is not categorical
// or c would make Child conditional on itself.
func (s *Space) AddCondition(c EqualsCondition) error {
	if _, ok := s.params[c.Child]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownParam, c.Child)
	}

	parent, ok := s.params[c.Parent].(*CategoricalParam)
	if !ok {
		return fmt.Errorf("config: condition parent %q is not a categorical parameter", c.Parent)
	}

	if !parent.has(c.Value) {
		return fmt.Errorf("%w: condition value %q not in %v", ErrDomain, c.Value, parent.choices)
	}

	for p := c.Parent; ; {
		if p == c.Child {
			return fmt.Errorf("%w: %q depends on itself", ErrCycle, c.Child)
		}
		pc, ok := s.conds[p]
		if !ok {
			break
		}
		p = pc.Parent
	}
	s.conds[c.Child] = c

	return nil
}

// Param returns parameter name.
func (s *Space) Param(name string) (Param, bool) {
	p, ok := s.params[name]
	return p, ok
}

// Names returns parameter names in the order they were added.
func (s *Space) Names() []string {
	return append([]string(nil), s.order...)
}

// Default returns new Configuration holding parameter defaults.
func (s *Space) Default() *Configuration {
	vals := make(map[string]any, len(s.params))
	for name, p := range s.params {
		vals[name] = p.Default()
	}

	return &Configuration{space: s, values: vals}
}

// Validate checks every active parameter of cfg holds a value from its domain.
func (s *Space) Validate(cfg *Configuration) error {
	if cfg == nil {
		return fmt.Errorf("config: nil configuration")
	}

	for _, name := range s.order {
		if !s.active(cfg.values, name) {
			continue
		}
		v, ok := cfg.values[name]
		if !ok {
			return fmt.Errorf("%w: %q has no value", ErrDomain, name)
		}
		if _, err := s.params[name].Validate(v); err != nil {
			return err
		}
	}

	for name := range cfg.values {
		if _, ok := s.params[name]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownParam, name)
		}
	}

	return nil
}

func (s *Space) active(vals map[string]any, name string) bool {
	c, ok := s.conds[name]
	if !ok {
		return true
	}

	if !s.active(vals, c.Parent) {
		return false
	}

	return vals[c.Parent] == c.Value
}

// Configuration maps parameter names of a Space to values.
type Configuration struct {
	space  *Space
	values map[string]any
}

// Space returns configuration space.
func (c *Configuration) Space() *Space { return c.space }

// Set sets parameter name to v.
// It returns error if name is unknown or v is outside of the parameter domain.
func (c *Configuration) Set(name string, v any) error {
	p, ok := c.space.params[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownParam, name)
	}

	val, err := p.Validate(v)
	if err != nil {
		return err
	}
	c.values[name] = val

	return nil
}

// IsActive returns true if parameter name is active given the current values.
func (c *Configuration) IsActive(name string) bool {
	if _, ok := c.space.params[name]; !ok {
		return false
	}

	return c.space.active(c.values, name)
}

// Get returns value of parameter name if it is active.
func (c *Configuration) Get(name string) (any, bool) {
	if !c.IsActive(name) {
		return nil, false
	}
	v, ok := c.values[name]

	return v, ok
}

// Int returns integer value of parameter name.
func (c *Configuration) Int(name string) (int, error) {
	v, ok := c.Get(name)
	if !ok {
		return 0, fmt.Errorf("%w: %q is not active", ErrUnknownParam, name)
	}

	i, ok := v.(int)
	if !ok {
		return 0, fmt.Errorf("%w: %q is %T, not int", ErrDomain, name, v)
	}

	return i, nil
}

// Float returns real value of parameter name.
func (c *Configuration) Float(name string) (float64, error) {
	v, ok := c.Get(name)
	if !ok {
		return 0, fmt.Errorf("%w: %q is not active", ErrUnknownParam, name)
	}

	f, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("%w: %q is %T, not float64", ErrDomain, name, v)
	}

	return f, nil
}

// String returns string value of parameter name.
func (c *Configuration) String(name string) (string, error) {
	v, ok := c.Get(name)
	if !ok {
		return "", fmt.Errorf("%w: %q is not active", ErrUnknownParam, name)
	}

	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %q is %T, not string", ErrDomain, name, v)
	}

	return s, nil
}

// Values returns a copy of all active parameter values.
func (c *Configuration) Values() map[string]any {
	vals := make(map[string]any)
	for name, v := range c.values {
		if c.space.active(c.values, name) {
			vals[name] = v
		}
	}

	return vals
}

// MarshalYAML implements yaml.Marshaler. Only active parameters are encoded.
func (c *Configuration) MarshalYAML() (interface{}, error) {
	vals := c.Values()
	names := make([]string, 0, len(vals))
	for name := range vals {
		names = append(names, name)
	}
	sort.Strings(names)

	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, name := range names {
		var val yaml.Node
		if err := val.Encode(vals[name]); err != nil {
			return nil, err
		}
		node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: name}, &val)
	}

	return node, nil
}

// Parse decodes YAML data into a Configuration of space s.
// Parameters missing from data keep their defaults.
func Parse(data []byte, s *Space) (*Configuration, error) {
	raw := make(map[string]any)
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	cfg := s.Default()
	for name, v := range raw {
		if err := cfg.Set(name, v); err != nil {
			return nil, err
		}
	}

	if err := s.Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Load reads YAML configuration of space s from path.
func Load(path string, s *Space) (*Configuration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return Parse(data, s)
}

// Save writes YAML encoded configuration cfg to path.
func Save(path string, cfg *Configuration) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
