package document

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/diwise/notification-client/pkg/jsonapi/errors"
)

const ContentType string = "application/vnd.api+json"

// Identifier is a (type, id) pair referencing a single resource.
type Identifier struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

func (i Identifier) Key() string {
	return Key(i.Type, i.ID)
}

// Key builds the identity key of a resource.
func Key(resourceType, resourceID string) string {
	return resourceType + "." + resourceID
}

// Node is the structural view of a single resource object in a document.
type Node struct {
	Type          string
	ID            string
	Attributes    map[string]any
	Meta          map[string]any
	Relationships map[string][]Identifier
}

func (n Node) Key() string {
	return Key(n.Type, n.ID)
}

// Collection is a list of nodes together with the meta that applies to them.
type Collection struct {
	Nodes []Node
	Meta  map[string]any
}

// Document is a parsed JSON:API document. The primary data is either a single
// node or a list of nodes, independent of how many nodes are included.
type Document struct {
	one      bool
	primary  []Node
	included []Node
	meta     map[string]any
}

func (d *Document) IsOne() bool {
	return d.one
}

func (d *Document) IsMany() bool {
	return !d.one
}

// AllNodes returns the primary nodes followed by the included ones. Duplicates are kept.
func (d *Document) AllNodes() []Node {
	nodes := make([]Node, 0, len(d.primary)+len(d.included))
	nodes = append(nodes, d.primary...)
	return append(nodes, d.included...)
}

func (d *Document) PrimaryResources() Collection {
	return Collection{Nodes: d.primary, Meta: d.meta}
}

func (d *Document) IncludedResources() Collection {
	return Collection{Nodes: d.included, Meta: map[string]any{}}
}

func (d *Document) Meta() map[string]any {
	return d.meta
}

type rawRelationship struct {
	Data json.RawMessage `json:"data"`
}

type rawNode struct {
	Type          string                     `json:"type"`
	ID            string                     `json:"id"`
	Attributes    map[string]any             `json:"attributes"`
	Meta          map[string]any             `json:"meta"`
	Relationships map[string]rawRelationship `json:"relationships"`
}

// Parse decodes a response body into a Document.
func Parse(body []byte) (*Document, error) {
	envelope := struct {
		Data     json.RawMessage `json:"data"`
		Included []rawNode       `json:"included"`
		Meta     map[string]any  `json:"meta"`
	}{}

	err := json.Unmarshal(body, &envelope)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal document: %s (%w)", err.Error(), errors.ErrMalformedDocument)
	}

	data := bytes.TrimSpace(envelope.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, fmt.Errorf("document has no primary data (%w)", errors.ErrMalformedDocument)
	}

	doc := &Document{
		meta: envelope.Meta,
	}

	if doc.meta == nil {
		doc.meta = map[string]any{}
	}

	var primary []rawNode

	switch data[0] {
	case '{':
		var n rawNode
		if err = json.Unmarshal(data, &n); err != nil {
			return nil, fmt.Errorf("failed to unmarshal primary data: %s (%w)", err.Error(), errors.ErrMalformedDocument)
		}
		doc.one = true
		primary = []rawNode{n}
	case '[':
		if err = json.Unmarshal(data, &primary); err != nil {
			return nil, fmt.Errorf("failed to unmarshal primary data: %s (%w)", err.Error(), errors.ErrMalformedDocument)
		}
	default:
		return nil, fmt.Errorf("primary data must be an object or an array (%w)", errors.ErrMalformedDocument)
	}

	if doc.primary, err = toNodes(primary); err != nil {
		return nil, err
	}

	if doc.included, err = toNodes(envelope.Included); err != nil {
		return nil, err
	}

	return doc, nil
}

func toNodes(raw []rawNode) ([]Node, error) {
	nodes := make([]Node, 0, len(raw))

	for _, r := range raw {
		n, err := r.toNode()
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}

	return nodes, nil
}

func (r rawNode) toNode() (Node, error) {
	if r.Type == "" || r.ID == "" {
		return Node{}, fmt.Errorf("resource object without type or id (%w)", errors.ErrMalformedDocument)
	}

	n := Node{
		Type:          r.Type,
		ID:            r.ID,
		Attributes:    r.Attributes,
		Meta:          r.Meta,
		Relationships: make(map[string][]Identifier, len(r.Relationships)),
	}

	if n.Attributes == nil {
		n.Attributes = map[string]any{}
	}

	if n.Meta == nil {
		n.Meta = map[string]any{}
	}

	for name, rel := range r.Relationships {
		refs, err := identifiersFrom(rel.Data)
		if err != nil {
			return Node{}, fmt.Errorf("relationship %s of %s: %w", name, n.Key(), err)
		}
		n.Relationships[name] = refs
	}

	return n, nil
}

// identifiersFrom accepts the linkage of a to-one or a to-many relationship. A
// relationship without linkage, or with a null one, resolves to no identifiers.
func identifiersFrom(data json.RawMessage) ([]Identifier, error) {
	data = bytes.TrimSpace(data)

	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return []Identifier{}, nil
	}

	var refs []Identifier

	if data[0] == '[' {
		if err := json.Unmarshal(data, &refs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal linkage: %s (%w)", err.Error(), errors.ErrMalformedDocument)
		}
	} else {
		var ref Identifier
		if err := json.Unmarshal(data, &ref); err != nil {
			return nil, fmt.Errorf("failed to unmarshal linkage: %s (%w)", err.Error(), errors.ErrMalformedDocument)
		}
		refs = []Identifier{ref}
	}

	for _, ref := range refs {
		if ref.Type == "" || ref.ID == "" {
			return nil, fmt.Errorf("linkage without type or id (%w)", errors.ErrMalformedDocument)
		}
	}

	return refs, nil
}
