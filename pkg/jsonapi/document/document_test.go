package document

import (
	"encoding/json"
	"errors"
	"testing"

	jsonapierrors "github.com/diwise/notification-client/pkg/jsonapi/errors"
	"github.com/matryer/is"
)

func TestParseSinglePrimaryDocument(t *testing.T) {
	is := is.New(t)

	doc, err := Parse([]byte(targetWithNotificationJSON))
	is.NoErr(err)

	is.True(doc.IsOne())
	is.True(!doc.IsMany())

	primary := doc.PrimaryResources()
	is.Equal(len(primary.Nodes), 1) // should wrap the single node in a list
	is.Equal(primary.Nodes[0].Key(), "notification-targets.5")
	is.Equal(primary.Meta["total"], float64(1))

	included := doc.IncludedResources()
	is.Equal(len(included.Nodes), 1)
	is.Equal(included.Nodes[0].Attributes["url"], "http://x")

	refs := primary.Nodes[0].Relationships["notification"]
	is.Equal(len(refs), 1)
	is.Equal(refs[0], Identifier{Type: "notifications", ID: "9"})
}

func TestParseManyPrimaryDocumentWithSingleElement(t *testing.T) {
	is := is.New(t)

	doc, err := Parse([]byte(`{"data":[{"type":"users","id":"1","attributes":{"name":"a"}}]}`))
	is.NoErr(err)

	is.True(doc.IsMany()) // a list with one element is still many
	is.Equal(len(doc.PrimaryResources().Nodes), 1)
}

func TestAllNodesKeepsPositionalDuplicates(t *testing.T) {
	is := is.New(t)

	doc, err := Parse([]byte(`{
		"data":[{"type":"users","id":"1"},{"type":"users","id":"2"}],
		"included":[{"type":"users","id":"1"},{"type":"sites","id":"wiki"}]
	}`))
	is.NoErr(err)

	keys := []string{}
	for _, n := range doc.AllNodes() {
		keys = append(keys, n.Key())
	}

	is.Equal(keys, []string{"users.1", "users.2", "users.1", "sites.wiki"})
}

func TestParseRelationshipLinkageVariants(t *testing.T) {
	is := is.New(t)

	doc, err := Parse([]byte(`{"data":{"type":"users","id":"1","relationships":{
		"notifications":{"data":[{"type":"notifications","id":"1"},{"type":"notifications","id":"2"}]},
		"site":{"data":null},
		"notification-targets":{"links":{"related":"/users/1/notification-targets"}}
	}}}`))
	is.NoErr(err)

	rels := doc.PrimaryResources().Nodes[0].Relationships
	is.Equal(len(rels["notifications"]), 2)
	is.Equal(len(rels["site"]), 0)                 // null linkage means no related resource
	is.Equal(len(rels["notification-targets"]), 0) // links only relationships carry no linkage
}

func TestParseFailsOnMalformedDocuments(t *testing.T) {
	is := is.New(t)

	bodies := []string{
		`this is not json`,
		`{"meta":{"total":0}}`,
		`{"data":null}`,
		`{"data":"users"}`,
		`{"data":{"type":"users"}}`,
		`{"data":{"type":"users","id":"1","relationships":{"site":{"data":{"type":"sites"}}}}}`,
	}

	for _, body := range bodies {
		_, err := Parse([]byte(body))
		is.True(errors.Is(err, jsonapierrors.ErrMalformedDocument)) // document should be rejected
	}
}

func TestPayloadMarshalling(t *testing.T) {
	is := is.New(t)

	p := Payload{
		Data: PayloadNode{
			Type:       "notification-targets",
			Attributes: map[string]any{"dismissed-at": nil},
			Relationships: map[string]Relationship{
				"notification": ToOne(Identifier{Type: "notifications", ID: "9"}),
				"users":        ToMany([]Identifier{{Type: "users", ID: "1"}}),
			},
		},
	}

	b, err := json.Marshal(p)
	is.NoErr(err)
	is.Equal(string(b), `{"data":{"type":"notification-targets","attributes":{"dismissed-at":null},"relationships":{"notification":{"data":{"type":"notifications","id":"9"}},"users":{"data":[{"type":"users","id":"1"}]}}}}`)
}

const targetWithNotificationJSON string = `{
	"data": {
		"type": "notification-targets",
		"id": "5",
		"attributes": {"dismissed-at": 0},
		"relationships": {
			"notification": {"data": {"type": "notifications", "id": "9"}}
		}
	},
	"included": [
		{"type": "notifications", "id": "9", "attributes": {"type": "x", "message": "[]", "url": "http://x"}}
	],
	"meta": {"total": 1}
}`
