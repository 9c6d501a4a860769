package document

// Payload is the document sent when creating or updating a resource.
type Payload struct {
	Data PayloadNode `json:"data"`
}

type PayloadNode struct {
	Type          string                  `json:"type"`
	ID            string                  `json:"id,omitempty"`
	Attributes    map[string]any          `json:"attributes"`
	Relationships map[string]Relationship `json:"relationships,omitempty"`
}

// Relationship carries the linkage of a relationship, either a single
// Identifier (to-one) or a []Identifier (to-many).
type Relationship struct {
	Data any `json:"data"`
}

func ToOne(ref Identifier) Relationship {
	return Relationship{Data: ref}
}

func ToMany(refs []Identifier) Relationship {
	return Relationship{Data: refs}
}
