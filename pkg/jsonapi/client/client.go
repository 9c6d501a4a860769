package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/diwise/notification-client/pkg/jsonapi/document"
	"github.com/diwise/notification-client/pkg/jsonapi/errors"
	"github.com/diwise/notification-client/pkg/jsonapi/resource"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type Client interface {
	// Resource starts a new request at the given resource type.
	Resource(name string, anchor ...any) *RequestBuilder
	Update(ctx context.Context, r resource.Resource) (resource.Resource, error)
	Send(ctx context.Context, method, path string, payload any) (*Response, error)
}

func Debug(enabled string) func(*jaClient) {
	return func(c *jaClient) {
		c.debug = (enabled == "true")
	}
}

func APIKey(key string) func(*jaClient) {
	return func(c *jaClient) {
		c.apiKey = key
	}
}

func Header(name, value string) func(*jaClient) {
	return func(c *jaClient) {
		c.headers[name] = append(c.headers[name], value)
	}
}

func HTTPClient(httpClient *http.Client) func(*jaClient) {
	return func(c *jaClient) {
		c.httpClient = httpClient
	}
}

// UseTransport replaces the HTTP transport. Endpoint, api key, headers and
// http client settings are then ignored.
func UseTransport(t Transport) func(*jaClient) {
	return func(c *jaClient) {
		c.transport = t
	}
}

func NewClient(endpoint string, factory *resource.Factory, options ...func(*jaClient)) Client {
	c := &jaClient{
		endpoint: endpoint,
		factory:  factory,
		headers:  map[string][]string{},
		debug:    false,
	}

	for _, option := range options {
		option(c)
	}

	if c.transport == nil {
		c.transport = newHTTPTransport(c)
	}

	return c
}

const (
	TraceAttributeResourcePath string = "resource-path"
	TraceAttributeResourceID   string = "resource-id"
)

var tracer = otel.Tracer("notification-client")

type jaClient struct {
	endpoint   string
	apiKey     string
	headers    map[string][]string
	debug      bool
	httpClient *http.Client

	factory   *resource.Factory
	transport Transport
}

func (c *jaClient) Resource(name string, anchor ...any) *RequestBuilder {
	return newRequestBuilder(c).Resource(name, anchor...)
}

// All fetches the collection addressed by the builder.
func (b *RequestBuilder) All(ctx context.Context) ([]resource.Resource, error) {
	var err error

	path, err := b.CompilePath("")
	if err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "index-resources",
		trace.WithAttributes(attribute.String(TraceAttributeResourcePath, path)),
	)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	response, err := b.client.transport.Send(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	doc, err := expectDocument(response, errors.OperationIndex, http.StatusOK, false)
	if err != nil {
		return nil, err
	}

	result, err := resource.Hydrate(doc, b.client.factory)
	if err != nil {
		return nil, err
	}

	return result.Many(), nil
}

// Find fetches the single resource with the given id below the path addressed by the builder.
func (b *RequestBuilder) Find(ctx context.Context, id string) (resource.Resource, error) {
	var err error

	path, err := b.CompilePath(id)
	if err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "read-resource",
		trace.WithAttributes(attribute.String(TraceAttributeResourcePath, path)),
		trace.WithAttributes(attribute.String(TraceAttributeResourceID, id)),
	)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	response, err := b.client.transport.Send(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	doc, err := expectDocument(response, errors.OperationRead, http.StatusOK, true)
	if err != nil {
		return nil, err
	}

	result, err := resource.Hydrate(doc, b.client.factory)
	if err != nil {
		return nil, err
	}

	return result.One(), nil
}

// Create posts the resource to the path addressed by the builder and returns
// the resource created by the service.
func (b *RequestBuilder) Create(ctx context.Context, r resource.Resource) (resource.Resource, error) {
	var err error

	path, err := b.CompilePath("")
	if err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "create-resource",
		trace.WithAttributes(attribute.String(TraceAttributeResourcePath, path)),
	)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	body, err := json.Marshal(r.ToData())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", r.Type(), err)
	}

	response, err := b.client.transport.Send(ctx, http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}

	doc, err := expectDocument(response, errors.OperationCreate, http.StatusCreated, true)
	if err != nil {
		return nil, err
	}

	result, err := resource.Hydrate(doc, b.client.factory)
	if err != nil {
		return nil, err
	}

	return result.One(), nil
}

// Update patches the resource at its own path. A 204 response returns the
// same, unmodified, resource instance.
func (c *jaClient) Update(ctx context.Context, r resource.Resource) (resource.Resource, error) {
	var err error

	if !r.HasID() {
		return nil, errors.NewClientResourceCallError(fmt.Sprintf("can not update %s without an id", r.Type()))
	}

	path := r.Type() + "/" + r.ID()

	ctx, span := tracer.Start(ctx, "update-resource",
		trace.WithAttributes(attribute.String(TraceAttributeResourcePath, r.Type())),
		trace.WithAttributes(attribute.String(TraceAttributeResourceID, r.ID())),
	)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	body, err := json.Marshal(r.ToData())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", r.Type(), err)
	}

	response, err := c.transport.Send(ctx, http.MethodPatch, path, body)
	if err != nil {
		return nil, err
	}

	if response.StatusCode == http.StatusNoContent && !response.HasDocument() {
		return r, nil
	}

	doc, err := expectDocument(response, errors.OperationUpdate, http.StatusOK, true)
	if err != nil {
		return nil, err
	}

	result, err := resource.Hydrate(doc, c.factory)
	if err != nil {
		return nil, err
	}

	return result.One(), nil
}

// Send issues a request outside of the builder. The payload, if not nil, is
// marshalled to JSON. The response is returned as is, whatever its status code.
func (c *jaClient) Send(ctx context.Context, method, path string, payload any) (*Response, error) {
	var err error

	ctx, span := tracer.Start(ctx, "send-request",
		trace.WithAttributes(attribute.String(TraceAttributeResourcePath, path)),
	)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	var body []byte
	if payload != nil {
		body, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal payload: %w", err)
		}
	}

	response, err := c.transport.Send(ctx, method, path, body)
	return response, err
}

func expectDocument(response *Response, op errors.Operation, statusCode int, one bool) (*document.Document, error) {
	if response.StatusCode != statusCode || !response.HasDocument() {
		return nil, errors.NewRequestUnsuccessfulError(op, response.StatusCode, response.Body)
	}

	doc, err := response.Document()
	if err != nil {
		return nil, err
	}

	if doc.IsOne() != one {
		return nil, errors.NewRequestUnsuccessfulError(op, response.StatusCode, nil)
	}

	return doc, nil
}
