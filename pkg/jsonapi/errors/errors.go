package errors

import (
	"encoding/json"
	"fmt"
	"strings"
)

var ErrInternal = fmt.Errorf("internal error")
var ErrRequest = fmt.Errorf("request error")
var ErrBadResponse = fmt.Errorf("bad response")

var ErrMalformedDocument = fmt.Errorf("malformed document")
var ErrDocumentMissing = fmt.Errorf("document missing")
var ErrReferencedResourceMissing = fmt.Errorf("referenced resource missing")

var ErrResourceTypeUnmapped = fmt.Errorf("resource type unmapped")
var ErrResourceAttributeUndefined = fmt.Errorf("resource attribute undefined")
var ErrResourceRelationshipUndefined = fmt.Errorf("resource relationship undefined")
var ErrResourceAlreadyPopulated = fmt.Errorf("resource already populated")

var ErrClientResourceCall = fmt.Errorf("invalid client resource call")
var ErrRequestUnsuccessful = fmt.Errorf("api request unsuccessful")

type myError struct {
	msg    string
	target error
}

func (m myError) Error() string        { return m.msg }
func (m myError) Is(target error) bool { return target == m.target }

func NewResourceTypeUnmappedError(resourceType string) error {
	return &myError{
		msg:    fmt.Sprintf("resource type %q is not mapped to a resource", resourceType),
		target: ErrResourceTypeUnmapped,
	}
}

func NewResourceAttributeUndefinedError(resourceType, attribute string) error {
	return &myError{
		msg:    fmt.Sprintf("attribute %q is not defined for %s", attribute, resourceType),
		target: ErrResourceAttributeUndefined,
	}
}

func NewResourceRelationshipUndefinedError(resourceType, relationship string) error {
	return &myError{
		msg:    fmt.Sprintf("relationship %q is not defined for %s", relationship, resourceType),
		target: ErrResourceRelationshipUndefined,
	}
}

func NewResourceAlreadyPopulatedError(resourceType, what string) error {
	return &myError{
		msg:    fmt.Sprintf("%s of %s has already been populated", what, resourceType),
		target: ErrResourceAlreadyPopulated,
	}
}

func NewReferencedResourceMissingError(key string) error {
	return &myError{
		msg:    fmt.Sprintf("referenced resource %s is neither primary nor included in the document", key),
		target: ErrReferencedResourceMissing,
	}
}

func NewClientResourceCallError(msg string) error {
	return &myError{
		msg:    msg,
		target: ErrClientResourceCall,
	}
}

func NewDocumentMissingError(statusCode int) error {
	return &myError{
		msg:    fmt.Sprintf("response with status code %d carries no document", statusCode),
		target: ErrDocumentMissing,
	}
}

// Operation names the verb contract a response failed to satisfy.
type Operation string

const (
	OperationIndex  Operation = "index"
	OperationRead   Operation = "read"
	OperationCreate Operation = "create"
	OperationUpdate Operation = "update"
)

// ErrorObject is a single member of a JSON:API error document.
type ErrorObject struct {
	Status string `json:"status,omitempty"`
	Code   string `json:"code,omitempty"`
	Title  string `json:"title,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// RequestUnsuccessfulError reports a response whose status code or document shape
// did not match what the issued operation requires.
type RequestUnsuccessfulError struct {
	Operation  Operation
	StatusCode int
	Details    []ErrorObject
}

func (e *RequestUnsuccessfulError) Error() string {
	msg := fmt.Sprintf("%s request unsuccessful (status code %d)", e.Operation, e.StatusCode)

	if len(e.Details) > 0 {
		details := make([]string, 0, len(e.Details))
		for _, d := range e.Details {
			details = append(details, strings.TrimSpace(d.Title+" "+d.Detail))
		}
		msg += ": " + strings.Join(details, "; ")
	}

	return msg
}

func (e *RequestUnsuccessfulError) Is(target error) bool { return target == ErrRequestUnsuccessful }

func NewRequestUnsuccessfulError(op Operation, statusCode int, body []byte) error {
	return &RequestUnsuccessfulError{
		Operation:  op,
		StatusCode: statusCode,
		Details:    errorObjectsFrom(body),
	}
}

func errorObjectsFrom(body []byte) []ErrorObject {
	if len(body) == 0 {
		return nil
	}

	report := &struct {
		Errors []ErrorObject `json:"errors"`
	}{}

	// error documents are optional, anything else is ignored
	if err := json.Unmarshal(body, report); err != nil {
		return nil
	}

	return report.Errors
}
