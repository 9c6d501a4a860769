package resource

import (
	"maps"
	"slices"

	"github.com/diwise/notification-client/pkg/jsonapi/errors"
)

// Constructor returns a new, empty resource.
type Constructor func() Resource

// Factory maps resource type names to constructors.
type Factory struct {
	constructors map[string]Constructor
}

func NewFactory(constructors map[string]Constructor) *Factory {
	return &Factory{
		constructors: maps.Clone(constructors),
	}
}

// Generic returns a Constructor for resources without a dedicated Go type.
func Generic(spec Spec) Constructor {
	return func() Resource {
		return New(spec)
	}
}

func (f *Factory) Make(resourceType string) (Resource, error) {
	constructor, ok := f.constructors[resourceType]
	if !ok {
		return nil, errors.NewResourceTypeUnmappedError(resourceType)
	}

	return constructor(), nil
}

func (f *Factory) Types() []string {
	return slices.Sorted(maps.Keys(f.constructors))
}
