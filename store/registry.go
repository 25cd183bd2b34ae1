package store

import (
	"fmt"
	"sort"
)

// Kind names a logical document kind. Concrete kinds are stored verbatim in the
// "type" attribute; abstract kinds name a family of concrete kinds.
type Kind string

// Container describes a physical collection and its partition key attribute.
type Container struct {
	// Name is the logical container name (e.g., "users").
	Name string

	// PartitionKey is the attribute that co-locates documents (e.g., "userId").
	PartitionKey string
}

// KindSpec registers a document kind.
type KindSpec struct {
	// Kind is the kind name (e.g., "ReceivedGroupMessage").
	Kind Kind

	// Container is the name of the container holding documents of this kind.
	Container string

	// Parent is the abstract family this kind belongs to, if any.
	Parent Kind

	// Abstract kinds are never stored; they expand to their concrete descendants.
	Abstract bool
}

// Registry holds the containers and kinds known to a Store.
type Registry struct {
	containers map[string]Container
	kinds      map[Kind]KindSpec
	concrete   map[Kind][]string
}

// NewRegistry creates a new empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		containers: make(map[string]Container),
		kinds:      make(map[Kind]KindSpec),
		concrete:   make(map[Kind][]string),
	}
}

// RegisterContainer adds a container to the registry.
func (r *Registry) RegisterContainer(c Container) {
	r.containers[c.Name] = c
}

// Register adds a kind to the registry. The container and parent must already
// be registered; violating that is a programming error and panics.
func (r *Registry) Register(spec KindSpec) {
	if _, ok := r.containers[spec.Container]; !ok {
		panic(fmt.Sprintf("store: kind %s references unknown container %q", spec.Kind, spec.Container))
	}
	if spec.Parent != "" {
		parent, ok := r.kinds[spec.Parent]
		if !ok {
			panic(fmt.Sprintf("store: kind %s references unknown parent %s", spec.Kind, spec.Parent))
		}
		if parent.Container != spec.Container {
			panic(fmt.Sprintf("store: kind %s and parent %s live in different containers", spec.Kind, spec.Parent))
		}
	}
	r.kinds[spec.Kind] = spec

	// Expand once at registration: a concrete kind is added to itself and to
	// every ancestor family.
	if spec.Abstract {
		if _, ok := r.concrete[spec.Kind]; !ok {
			r.concrete[spec.Kind] = []string{}
		}
		return
	}
	for k := spec.Kind; k != ""; k = r.kinds[k].Parent {
		r.concrete[k] = append(r.concrete[k], string(spec.Kind))
	}
}

// ConcreteTypes returns the concrete type names a kind expands to.
func (r *Registry) ConcreteTypes(kind Kind) []string {
	types, ok := r.concrete[kind]
	if !ok {
		panic(fmt.Sprintf("store: unknown kind %s", kind))
	}
	return types
}

// ContainerOf returns the container holding documents of the given kind.
// Unknown kinds panic.
func (r *Registry) ContainerOf(kind Kind) Container {
	spec, ok := r.kinds[kind]
	if !ok {
		panic(fmt.Sprintf("store: kind %s does not have an associated partition key", kind))
	}
	return r.containers[spec.Container]
}

// PartitionKeyOf returns the partition key attribute name for the given kind.
func (r *Registry) PartitionKeyOf(kind Kind) string {
	return r.ContainerOf(kind).PartitionKey
}

// IsA reports whether the concrete type name belongs to the kind's family.
func (r *Registry) IsA(typeName string, kind Kind) bool {
	for _, t := range r.ConcreteTypes(kind) {
		if t == typeName {
			return true
		}
	}
	return false
}

// Containers returns all registered containers ordered by name.
func (r *Registry) Containers() []Container {
	out := make([]Container, 0, len(r.containers))
	for _, c := range r.containers {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
