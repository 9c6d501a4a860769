package problems

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/matryer/is"
)

func TestWriteResponse(t *testing.T) {
	is := is.New(t)
	w := httptest.NewRecorder()

	ReportNotFoundError(w, "no such notification target")

	is.Equal(w.Code, http.StatusNotFound)
	is.Equal(w.Header().Get("Content-Type"), ProblemReportContentType)

	report := struct {
		Type   string `json:"type"`
		Title  string `json:"title"`
		Status int    `json:"status"`
		Detail string `json:"detail"`
	}{}
	is.NoErr(json.Unmarshal(w.Body.Bytes(), &report))

	is.Equal(report.Type, "https://diwise.io/notification-relay/errors/ResourceNotFound")
	is.Equal(report.Status, http.StatusNotFound)
	is.Equal(report.Detail, "no such notification target")
}

func TestResponseCodes(t *testing.T) {
	is := is.New(t)

	is.Equal(NewBadRequestData("").ResponseCode(), http.StatusBadRequest)
	is.Equal(NewInvalidRequest("").ResponseCode(), http.StatusBadRequest)
	is.Equal(NewUnauthorizedRequest("").ResponseCode(), http.StatusUnauthorized)
	is.Equal(NewUpstreamError("").ResponseCode(), http.StatusBadGateway)
	is.Equal(NewServiceUnavailable("").ResponseCode(), http.StatusServiceUnavailable)
	is.Equal(NewInternalError("").ResponseCode(), http.StatusInternalServerError)
}
