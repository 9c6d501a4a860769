package resource

import (
	"github.com/diwise/notification-client/pkg/jsonapi/document"
	"github.com/diwise/notification-client/pkg/jsonapi/errors"
)

// Result holds the primary resource(s) of a hydrated document, shaped like
// the document's primary data.
type Result struct {
	one       bool
	resources []Resource
}

func (r *Result) IsOne() bool {
	return r.one
}

// One returns the primary resource of a single resource document, nil otherwise.
func (r *Result) One() Resource {
	if !r.one || len(r.resources) == 0 {
		return nil
	}
	return r.resources[0]
}

// Many returns the primary resources, in document order, of a collection
// document, nil otherwise.
func (r *Result) Many() []Resource {
	if r.one {
		return nil
	}
	return r.resources
}

// Hydrate builds the graph of resources described by a document. Every node is
// first given an empty shell, keyed by type and id, before any shell is filled,
// so that references (cyclic ones included) resolve to the same instance.
func Hydrate(doc *document.Document, factory *Factory) (*Result, error) {
	nodes := doc.AllNodes()
	identity := make(map[string]Resource, len(nodes))

	for _, n := range nodes {
		if _, ok := identity[n.Key()]; ok {
			continue
		}

		r, err := factory.Make(n.Type)
		if err != nil {
			return nil, err
		}

		identity[n.Key()] = r
	}

	filled := make(map[string]bool, len(identity))

	for _, n := range nodes {
		// duplicate nodes share the shell of the first occurrence
		if filled[n.Key()] {
			continue
		}
		filled[n.Key()] = true

		err := fill(identity[n.Key()], n, identity)
		if err != nil {
			return nil, err
		}
	}

	primary := doc.PrimaryResources().Nodes
	result := &Result{
		one:       doc.IsOne(),
		resources: make([]Resource, 0, len(primary)),
	}

	for _, p := range primary {
		result.resources = append(result.resources, identity[p.Key()])
	}

	return result, nil
}

func fill(r Resource, n document.Node, identity map[string]Resource) error {
	if err := r.SetID(n.ID); err != nil {
		return err
	}

	if err := r.SetAttributes(n.Attributes); err != nil {
		return err
	}

	r.SetMeta(n.Meta)

	relations := make(map[string][]Resource, len(n.Relationships))

	for name, refs := range n.Relationships {
		related := make([]Resource, 0, len(refs))

		for _, ref := range refs {
			rr, ok := identity[ref.Key()]
			if !ok {
				return errors.NewReferencedResourceMissingError(ref.Key())
			}
			related = append(related, rr)
		}

		relations[name] = related
	}

	r.SetRelations(relations)

	return nil
}
