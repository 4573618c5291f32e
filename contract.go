package tzcall

import (
	"sort"
)

// DefaultEntrypoint is the entrypoint used when a call names none.
const DefaultEntrypoint = "default"

// Contract wraps a deployed contract for building calls against its
// parameter type.
type Contract struct {
	address     string
	paramType   *Type
	entrypoints map[string]*Type
	encoder     *Encoder
}

// ContractOption configures a Contract.
type ContractOption func(*Contract)

// WithEncoder sets the Encoder used for call arguments.
func WithEncoder(e *Encoder) ContractOption {
	return func(c *Contract) {
		if e != nil {
			c.encoder = e
		}
	}
}

// NewContract creates a Contract wrapper from its address and parameter type.
func NewContract(address string, paramType *Type, opts ...ContractOption) *Contract {
	c := &Contract{
		address:     address,
		paramType:   paramType,
		entrypoints: ParseEntrypoints(paramType),
		encoder:     defaultEncoder,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewContractFromScript creates a Contract from the source of its script.
func NewContractFromScript(address, script string, opts ...ContractOption) (*Contract, error) {
	code, err := ParseScript(script)
	if err != nil {
		return nil, err
	}
	param, ok := ScriptSection(code, "parameter")
	if !ok {
		return nil, &ParseError{Section: "parameter"}
	}
	t, err := ParseType(param)
	if err != nil {
		return nil, err
	}
	return NewContract(address, t, opts...), nil
}

// Address returns the contract address.
func (c *Contract) Address() string {
	return c.address
}

// ParameterType returns the full parameter type.
func (c *Contract) ParameterType() *Type {
	return c.paramType
}

// Invoke creates a Call to the named entrypoint, encoding arg against the
// entrypoint's type. An empty name selects the default entrypoint.
func (c *Contract) Invoke(entrypoint string, arg any) (*Call, error) {
	if entrypoint == "" {
		entrypoint = DefaultEntrypoint
	}
	t, ok := c.entrypoints[entrypoint]
	if !ok {
		return nil, &EntrypointNotFoundError{Contract: c.address, Entrypoint: entrypoint}
	}
	return newCall(c, entrypoint, t, arg)
}

// MustInvoke is like Invoke but panics on error.
func (c *Contract) MustInvoke(entrypoint string, arg any) *Call {
	call, err := c.Invoke(entrypoint, arg)
	if err != nil {
		panic(err)
	}
	return call
}

// HasEntrypoint returns true if the contract has an entrypoint with the given name.
func (c *Contract) HasEntrypoint(name string) bool {
	_, ok := c.entrypoints[name]
	return ok
}

// EntrypointType returns the parameter type of the named entrypoint.
func (c *Contract) EntrypointType(name string) (*Type, bool) {
	t, ok := c.entrypoints[name]
	return t, ok
}

// EntrypointNames returns all entrypoint names in sorted order.
func (c *Contract) EntrypointNames() []string {
	names := make([]string, 0, len(c.entrypoints))
	for name := range c.entrypoints {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParseEntrypoints collects the entrypoints of a parameter type: every
// %field annotation found on the root or within nested or branches. The
// root is also reachable as "default" unless a branch claims that name.
func ParseEntrypoints(paramType *Type) map[string]*Type {
	eps := make(map[string]*Type)
	if paramType == nil {
		return eps
	}
	var walk func(t *Type)
	walk = func(t *Type) {
		if name := t.FieldName(); name != "" {
			if _, dup := eps[name]; !dup {
				eps[name] = t
			}
		}
		if t.Prim == TOr {
			walk(t.Args[0])
			walk(t.Args[1])
		}
	}
	walk(paramType)
	if _, ok := eps[DefaultEntrypoint]; !ok {
		eps[DefaultEntrypoint] = paramType
	}
	return eps
}
