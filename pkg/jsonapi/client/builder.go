package client

import (
	"fmt"
	"maps"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/diwise/notification-client/pkg/jsonapi/errors"
	"github.com/diwise/notification-client/pkg/jsonapi/resource"
)

type segment struct {
	name   string
	anchor resource.Resource
}

type pagination struct {
	limit  int
	offset int
}

// RequestBuilder accumulates the path segments and query parameters of a
// single request. Compiling the path, which every terminal call does, clears
// the accumulated state. A builder must not be shared between requests that
// are in flight at the same time.
type RequestBuilder struct {
	client *jaClient

	segments []segment
	includes []string
	filters  map[string]string
	page     *pagination
	err      error
}

func newRequestBuilder(c *jaClient) *RequestBuilder {
	b := &RequestBuilder{client: c}
	b.reset()
	return b
}

func (b *RequestBuilder) reset() {
	b.segments = []segment{}
	b.includes = []string{}
	b.filters = map[string]string{}
	b.page = nil
	b.err = nil
}

// Resource appends a path segment for a resource type, optionally anchored to
// a single resource whose id follows the type in the path. Underscores in the
// name are replaced by hyphens. Invalid anchors are reported by the terminal call.
func (b *RequestBuilder) Resource(name string, anchor ...any) *RequestBuilder {
	s := segment{name: strings.ReplaceAll(name, "_", "-")}

	if len(anchor) > 1 {
		b.fail(errors.NewClientResourceCallError(
			fmt.Sprintf("%s accepts at most one anchor resource, got %d", name, len(anchor)),
		))
		return b
	}

	if len(anchor) == 1 && !isEmpty(anchor[0]) {
		r, ok := anchor[0].(resource.Resource)
		if !ok {
			b.fail(errors.NewClientResourceCallError(
				fmt.Sprintf("%s accepts a resource as anchor, got %T", name, anchor[0]),
			))
			return b
		}
		s.anchor = r
	}

	b.segments = append(b.segments, s)
	return b
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}

	str, ok := v.(string)
	return ok && str == ""
}

func (b *RequestBuilder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

func (b *RequestBuilder) Include(names ...string) *RequestBuilder {
	for _, name := range names {
		if name != "" && !slices.Contains(b.includes, name) {
			b.includes = append(b.includes, name)
		}
	}
	return b
}

func (b *RequestBuilder) Filter(filters map[string]string) *RequestBuilder {
	maps.Copy(b.filters, filters)
	return b
}

// Page replaces any pagination set earlier.
func (b *RequestBuilder) Page(limit, offset int) *RequestBuilder {
	b.page = &pagination{limit: limit, offset: offset}
	return b
}

// CompilePath returns the path, and query if any, of the accumulated request
// with an optional trailing id, and clears the builder.
func (b *RequestBuilder) CompilePath(id string) (string, error) {
	defer b.reset()

	if b.err != nil {
		return "", b.err
	}

	parts := make([]string, 0, len(b.segments)*2+1)
	for _, s := range b.segments {
		parts = append(parts, s.name)
		if s.anchor != nil {
			parts = append(parts, s.anchor.ID())
		}
	}
	parts = append(parts, id)

	path := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			path = append(path, url.PathEscape(p))
		}
	}

	query := b.query()
	if query == "" {
		return strings.Join(path, "/"), nil
	}

	return strings.Join(path, "/") + "?" + query, nil
}

func (b *RequestBuilder) query() string {
	params := make([]string, 0, len(b.filters)+3)

	if len(b.includes) > 0 {
		escaped := make([]string, 0, len(b.includes))
		for _, i := range b.includes {
			escaped = append(escaped, url.QueryEscape(i))
		}
		params = append(params, "include="+strings.Join(escaped, ","))
	}

	if b.page != nil {
		params = append(params,
			"page[limit]="+strconv.Itoa(b.page.limit),
			"page[offset]="+strconv.Itoa(b.page.offset),
		)
	}

	for _, k := range slices.Sorted(maps.Keys(b.filters)) {
		params = append(params, fmt.Sprintf("filter[%s]=%s", url.QueryEscape(k), url.QueryEscape(b.filters[k])))
	}

	return strings.Join(params, "&")
}
