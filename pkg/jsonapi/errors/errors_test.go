package errors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/matryer/is"
)

func TestRequestUnsuccessfulErrorMatchesSentinel(t *testing.T) {
	is := is.New(t)

	err := NewRequestUnsuccessfulError(OperationRead, http.StatusOK, nil)

	is.True(errors.Is(err, ErrRequestUnsuccessful))
	is.True(!errors.Is(err, ErrDocumentMissing)) // should only match its own sentinel

	var rue *RequestUnsuccessfulError
	is.True(errors.As(err, &rue))
	is.Equal(rue.Operation, OperationRead)
	is.Equal(err.Error(), "read request unsuccessful (status code 200)")
}

func TestRequestUnsuccessfulErrorIncludesErrorDocument(t *testing.T) {
	is := is.New(t)

	body := []byte(`{"errors":[{"status":"422","title":"Invalid attribute","detail":"type must not be empty"}]}`)
	err := NewRequestUnsuccessfulError(OperationCreate, http.StatusUnprocessableEntity, body)

	var rue *RequestUnsuccessfulError
	is.True(errors.As(err, &rue))
	is.Equal(len(rue.Details), 1) // should parse the single error object
	is.Equal(rue.Details[0].Status, "422")
	is.Equal(err.Error(), "create request unsuccessful (status code 422): Invalid attribute type must not be empty")
}

func TestRequestUnsuccessfulErrorIgnoresNonJSONBody(t *testing.T) {
	is := is.New(t)

	err := NewRequestUnsuccessfulError(OperationIndex, http.StatusBadGateway, []byte("<html>bad gateway</html>"))

	var rue *RequestUnsuccessfulError
	is.True(errors.As(err, &rue))
	is.Equal(len(rue.Details), 0)
}

func TestMappingErrorsMatchTheirSentinels(t *testing.T) {
	is := is.New(t)

	is.True(errors.Is(NewResourceTypeUnmappedError("comments"), ErrResourceTypeUnmapped))
	is.True(errors.Is(NewResourceAttributeUndefinedError("users", "age"), ErrResourceAttributeUndefined))
	is.True(errors.Is(NewResourceRelationshipUndefinedError("users", "friends"), ErrResourceRelationshipUndefined))
	is.True(errors.Is(NewResourceAlreadyPopulatedError("users", "id"), ErrResourceAlreadyPopulated))
	is.True(errors.Is(NewReferencedResourceMissingError("users.1"), ErrReferencedResourceMissing))
	is.True(errors.Is(NewClientResourceCallError("bad call"), ErrClientResourceCall))
	is.True(errors.Is(NewDocumentMissingError(204), ErrDocumentMissing))
}
