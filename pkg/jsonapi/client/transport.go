package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"strings"

	"github.com/diwise/notification-client/pkg/jsonapi/document"
	"github.com/diwise/notification-client/pkg/jsonapi/errors"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Transport sends a request for a path relative to the service endpoint and
// returns the complete response. Timeouts, retries and cancellation are up to
// the implementation.
type Transport interface {
	Send(ctx context.Context, method, path string, body []byte) (*Response, error)
}

type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (r *Response) HasDocument() bool {
	return len(bytes.TrimSpace(r.Body)) > 0
}

func (r *Response) Document() (*document.Document, error) {
	if !r.HasDocument() {
		return nil, errors.NewDocumentMissingError(r.StatusCode)
	}

	return document.Parse(r.Body)
}

type httpTransport struct {
	baseURL    string
	apiKey     string
	headers    map[string][]string
	debug      bool
	httpClient *http.Client
}

func newHTTPTransport(c *jaClient) *httpTransport {
	httpClient := c.httpClient
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}

	return &httpTransport{
		baseURL:    strings.TrimSuffix(c.endpoint, "/"),
		apiKey:     c.apiKey,
		headers:    c.headers,
		debug:      c.debug,
		httpClient: httpClient,
	}
}

func (t *httpTransport) Send(ctx context.Context, method, path string, body []byte) (*Response, error) {
	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}

	endpoint := t.baseURL + "/" + strings.TrimPrefix(path, "/")

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %s (%w)", err.Error(), errors.ErrInternal)
	}

	req.Header.Set("Accept", document.ContentType)
	req.Header.Set("Content-Type", document.ContentType)
	req.Header.Set("X-Request-Id", uuid.NewString())

	if t.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.apiKey)
	}

	for header, headerValue := range t.headers {
		for _, val := range headerValue {
			req.Header.Add(header, val)
		}
	}

	log := logging.GetFromContext(ctx)
	log.Debug("sending request", "method", method, "path", path)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %s (%w)", err.Error(), errors.ErrRequest)
	}

	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %s (%w)", err.Error(), errors.ErrBadResponse)
	}

	if t.debug && resp.StatusCode >= http.StatusMultipleChoices {
		if resp.StatusCode != http.StatusUnauthorized && resp.StatusCode != http.StatusNotFound {
			reqbytes, _ := httputil.DumpRequest(req, false)
			respbytes, _ := httputil.DumpResponse(resp, false)

			if resp.StatusCode >= http.StatusBadRequest {
				log.Error("request failed", "request", string(reqbytes), "response", string(respbytes))
			} else {
				log.Warn("unexpected response", "request", string(reqbytes), "response", string(respbytes))
			}
		}
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       respBody,
	}, nil
}
