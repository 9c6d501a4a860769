package resource

import (
	"encoding/json"
	"maps"
	"strings"

	"github.com/diwise/notification-client/pkg/jsonapi/document"
	"github.com/diwise/notification-client/pkg/jsonapi/errors"
)

// Arity tells whether a relationship holds at most one or any number of resources.
type Arity int

const (
	One Arity = iota
	Many
)

type Relation struct {
	Target string
	Arity  Arity
}

// Spec declares the attributes (with their defaults) and the relationships of a
// resource type.
type Spec struct {
	Type       string
	Attributes map[string]any
	Relations  map[string]Relation
}

type Resource interface {
	Type() string
	ID() string
	HasID() bool
	SetID(id string) error

	Get(attribute string) (any, error)
	SetAttributes(values map[string]any) error
	Update(values map[string]any)
	Changes() map[string]any

	SetMeta(meta map[string]any)
	Meta(key string) (any, bool)

	Add(relationship string, related ...Resource) error
	SetRelations(relations map[string][]Resource)
	One(relationship string) (Resource, error)
	Many(relationship string) ([]Resource, error)

	ToData() document.Payload
}

var _ Resource = (*Base)(nil)

// Base implements Resource on top of a Spec. Concrete resource types embed it.
type Base struct {
	spec Spec

	id        *string
	populated bool
	values    map[string]any
	meta      map[string]any
	relations map[string][]Resource
}

func New(spec Spec) *Base {
	return &Base{
		spec:      spec,
		values:    map[string]any{},
		meta:      map[string]any{},
		relations: map[string][]Resource{},
	}
}

func (b *Base) Type() string {
	return b.spec.Type
}

func (b *Base) ID() string {
	if b.id == nil {
		return ""
	}
	return *b.id
}

func (b *Base) HasID() bool {
	return b.id != nil && *b.id != ""
}

func (b *Base) SetID(id string) error {
	if b.id != nil {
		return errors.NewResourceAlreadyPopulatedError(b.spec.Type, "id")
	}

	b.id = &id
	return nil
}

func (b *Base) Get(attribute string) (any, error) {
	attribute = normalize(attribute)

	defaultValue, ok := b.spec.Attributes[attribute]
	if !ok {
		return nil, errors.NewResourceAttributeUndefinedError(b.spec.Type, attribute)
	}

	if value, ok := b.values[attribute]; ok {
		return value, nil
	}

	return defaultValue, nil
}

// SetAttributes populates the attribute values once. Attributes not declared
// in the resource Spec are dropped.
func (b *Base) SetAttributes(values map[string]any) error {
	if b.populated || len(b.values) > 0 {
		return errors.NewResourceAlreadyPopulatedError(b.spec.Type, "attributes")
	}

	b.populated = true
	b.merge(values)

	return nil
}

// Update merges declared attributes into the values written so far.
func (b *Base) Update(values map[string]any) {
	b.merge(values)
}

// Changes returns every value written since the resource was created.
func (b *Base) Changes() map[string]any {
	return maps.Clone(b.values)
}

func (b *Base) merge(values map[string]any) {
	for k, v := range values {
		k = normalize(k)
		if _, ok := b.spec.Attributes[k]; ok {
			b.values[k] = v
		}
	}
}

func (b *Base) SetMeta(meta map[string]any) {
	b.meta = maps.Clone(meta)
	if b.meta == nil {
		b.meta = map[string]any{}
	}
}

func (b *Base) Meta(key string) (any, bool) {
	v, ok := b.meta[key]
	return v, ok
}

// Add appends related resources regardless of the declared arity.
func (b *Base) Add(relationship string, related ...Resource) error {
	if _, ok := b.spec.Relations[relationship]; !ok {
		return errors.NewResourceRelationshipUndefinedError(b.spec.Type, relationship)
	}

	b.relations[relationship] = append(b.relations[relationship], related...)
	return nil
}

func (b *Base) SetRelations(relations map[string][]Resource) {
	b.relations = make(map[string][]Resource, len(b.spec.Relations))

	for name := range b.spec.Relations {
		related, ok := relations[name]
		if !ok {
			related = []Resource{}
		}
		b.relations[name] = related
	}
}

// One returns the first related resource, or nil if there is none.
func (b *Base) One(relationship string) (Resource, error) {
	related, err := b.Many(relationship)
	if err != nil {
		return nil, err
	}

	if len(related) == 0 {
		return nil, nil
	}

	return related[0], nil
}

// Many returns all related resources. The result is never nil.
func (b *Base) Many(relationship string) ([]Resource, error) {
	if _, ok := b.spec.Relations[relationship]; !ok {
		return nil, errors.NewResourceRelationshipUndefinedError(b.spec.Type, relationship)
	}

	related := b.relations[relationship]
	if related == nil {
		return []Resource{}, nil
	}

	return related, nil
}

func (b *Base) ToData() document.Payload {
	attributes := maps.Clone(b.spec.Attributes)
	if attributes == nil {
		attributes = map[string]any{}
	}
	maps.Copy(attributes, b.values)

	node := document.PayloadNode{
		Type:       b.spec.Type,
		ID:         b.ID(),
		Attributes: attributes,
	}

	for name, relation := range b.spec.Relations {
		refs := []document.Identifier{}
		for _, r := range b.relations[name] {
			if r != nil && r.HasID() {
				refs = append(refs, document.Identifier{Type: r.Type(), ID: r.ID()})
			}
		}

		// unsaved resources can not be referenced
		if len(refs) == 0 {
			continue
		}

		if node.Relationships == nil {
			node.Relationships = map[string]document.Relationship{}
		}

		if relation.Arity == One {
			node.Relationships[name] = document.ToOne(refs[0])
		} else {
			node.Relationships[name] = document.ToMany(refs)
		}
	}

	return document.Payload{Data: node}
}

func (b *Base) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.ToData())
}

func normalize(name string) string {
	return strings.ReplaceAll(name, "_", "-")
}
