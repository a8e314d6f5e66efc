package pybridge

import (
	"fmt"
	"sort"

	"github.com/google/jsonschema-go/jsonschema"
)

// Schema is a JSON Schema object describing a method's result shape.
type Schema = jsonschema.Schema

// MethodSpec declares one remote method in a module's contract.
type MethodSpec struct {
	// Returns is the JSON Schema every yielded value must satisfy.
	// If nil, values are exposed without shape validation.
	Returns *Schema

	// Stream marks the method as generator-backed: its values are exposed
	// as a stream rather than collapsed to a single result.
	Stream bool
}

// method is a resolved contract entry.
type method struct {
	name   string
	stream bool
	shape  *jsonschema.Resolved
}

// Contract is the declared surface of a remote module: the set of callable
// methods and the shape of what each returns.
//
// The contract is the dispatch boundary: invoking a name it does not
// declare is a configuration error, never a silent no-op. All schemas are
// resolved at construction time so a bad declaration fails here rather
// than on the first call.
type Contract struct {
	methods map[string]*method
}

// NewContract builds a contract from method declarations.
//
// Returns an error if a method name is empty or a declared schema does not
// resolve.
func NewContract(specs map[string]MethodSpec) (*Contract, error) {
	methods := make(map[string]*method, len(specs))

	for name, spec := range specs {
		if name == "" {
			return nil, fmt.Errorf("contract declares a method with an empty name")
		}

		m := &method{
			name:   name,
			stream: spec.Stream,
		}

		if spec.Returns != nil {
			resolved, err := spec.Returns.Resolve(nil)
			if err != nil {
				return nil, fmt.Errorf("resolve result schema for method %q: %w", name, err)
			}

			m.shape = resolved
		}

		methods[name] = m
	}

	return &Contract{methods: methods}, nil
}

// Methods returns the declared method names, sorted.
func (c *Contract) Methods() []string {
	names := make([]string, 0, len(c.methods))
	for name := range c.methods {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Streams reports whether the named method is declared as generator-backed.
// Undeclared names report false.
func (c *Contract) Streams(name string) bool {
	m, ok := c.methods[name]

	return ok && m.stream
}

// Declares reports whether the contract declares the given method.
func (c *Contract) Declares(name string) bool {
	_, ok := c.methods[name]

	return ok
}

// lookup returns the resolved entry for a method name.
func (c *Contract) lookup(name string) (*method, bool) {
	m, ok := c.methods[name]

	return m, ok
}
