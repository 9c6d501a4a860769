package notifications

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/diwise/notification-client/pkg/jsonapi/client"
	jsonapierrors "github.com/diwise/notification-client/pkg/jsonapi/errors"
	testutils "github.com/diwise/service-chassis/pkg/test/http"
	"github.com/diwise/service-chassis/pkg/test/http/expects"
	"github.com/diwise/service-chassis/pkg/test/http/response"
	"github.com/matryer/is"
)

var Expects = testutils.Expects
var Returns = testutils.Returns
var anyInput = expects.AnyInput
var method = expects.RequestMethod
var path = expects.RequestPath
var bodyContaining = expects.RequestBodyContaining
var queryParamEquals = expects.QueryParamEquals

var jsonapiContentType = response.ContentType("application/vnd.api+json")

func newTestService(url string) Service {
	svc := NewService(client.NewClient(url, NewFactory()))
	svc.(*service).now = func() time.Time { return time.Unix(1700000000, 0) }
	return svc
}

func TestNotifyCreatesNotificationWithTargets(t *testing.T) {
	is := is.New(t)

	s := testutils.NewMockServiceThat(
		Expects(
			is,
			method(http.MethodPost),
			path("/notifications"),
			bodyContaining(`"message":"[\"Ada\",2]"`),
			bodyContaining(`"agent":{"data":{"type":"users","id":"1"}}`),
			bodyContaining(`"targets":{"data":[{"type":"users","id":"3"},{"type":"users","id":"4"}]}`),
		),
		Returns(
			jsonapiContentType,
			response.Code(http.StatusCreated),
			response.Body([]byte(`{"data":{"type":"notifications","id":"42","attributes":{"type":"mention","message":"[\"Ada\",2]"}}}`)),
		),
	)
	defer s.Close()

	n, err := newTestService(s.URL()).Notify(context.Background(), Notice{
		Type:       "mention",
		Parameters: []any{"Ada", 2},
		AgentID:    "1",
		TargetIDs:  []string{"3", "4"},
	})
	is.NoErr(err)

	is.Equal(n.ID(), "42")
	is.Equal(n.NotificationType(), "mention")
	is.Equal(s.RequestCount(), 1)
}

func TestNotifyRejectsInvalidNotices(t *testing.T) {
	is := is.New(t)

	s := testutils.NewMockServiceThat(Expects(is, anyInput()), Returns(response.Code(http.StatusCreated)))
	defer s.Close()

	svc := newTestService(s.URL())

	_, err := svc.Notify(context.Background(), Notice{Type: "mention"})
	is.True(errors.Is(err, ErrInvalidNotice)) // at least one target is required

	_, err = svc.Notify(context.Background(), Notice{TargetIDs: []string{"3"}})
	is.True(errors.Is(err, ErrInvalidNotice)) // the type is required

	_, err = svc.Notify(context.Background(), Notice{Type: "mention", TargetIDs: []string{"3"}, Parameters: []any{func() {}}})
	is.True(errors.Is(err, ErrInvalidNotice)) // parameters must be json encodable

	is.Equal(s.RequestCount(), 0)
}

func TestBroadcastAcceptsAnySuccessStatus(t *testing.T) {
	is := is.New(t)

	s := testutils.NewMockServiceThat(
		Expects(
			is,
			method(http.MethodPost),
			path("/notification-broadcasts"),
			bodyContaining(`"group":"sysops"`),
			bodyContaining(`"site":{"data":{"type":"sites","id":"en"}}`),
		),
		Returns(response.Code(http.StatusAccepted)),
	)
	defer s.Close()

	err := newTestService(s.URL()).Broadcast(context.Background(), Notice{Type: "maintenance", SiteID: "en", Group: "sysops"})
	is.NoErr(err)
	is.Equal(s.RequestCount(), 1)
}

func TestBroadcastFailsOnErrorStatus(t *testing.T) {
	is := is.New(t)

	s := testutils.NewMockServiceThat(
		Expects(is, anyInput()),
		Returns(
			jsonapiContentType,
			response.Code(http.StatusBadGateway),
			response.Body([]byte(`{"errors":[{"status":"502","title":"upstream unavailable"}]}`)),
		),
	)
	defer s.Close()

	err := newTestService(s.URL()).Broadcast(context.Background(), Notice{Type: "maintenance"})
	is.True(errors.Is(err, jsonapierrors.ErrRequestUnsuccessful))
}

func TestUnreadQueriesUndismissedTargetsOfTheUser(t *testing.T) {
	is := is.New(t)

	s := testutils.NewMockServiceThat(
		Expects(
			is,
			method(http.MethodGet),
			path("/users/1/notification-targets"),
			queryParamEquals("include", "notification"),
			queryParamEquals("filter[dismissed]", "false"),
			queryParamEquals("page[limit]", "10"),
			queryParamEquals("page[offset]", "20"),
		),
		Returns(
			jsonapiContentType,
			response.Code(http.StatusOK),
			response.Body([]byte(unreadJSON)),
		),
	)
	defer s.Close()

	targets, err := newTestService(s.URL()).Unread(context.Background(), "1", Page{Limit: 10, Offset: 20})
	is.NoErr(err)

	is.Equal(len(targets), 2)
	is.Equal(targets[0].ID(), "5")
	is.True(targets[0].Notification() == targets[1].Notification()) // both targets share notifications.9
	is.Equal(targets[0].Notification().URL(), "http://x")
}

func TestFindTargetReadsASingleTarget(t *testing.T) {
	is := is.New(t)

	s := testutils.NewMockServiceThat(
		Expects(
			is,
			method(http.MethodGet),
			path("/users/1/notification-targets/5"),
			queryParamEquals("include", "notification"),
		),
		Returns(
			jsonapiContentType,
			response.Code(http.StatusOK),
			response.Body([]byte(`{"data":{"type":"notification-targets","id":"5","attributes":{"dismissed-at":0}}}`)),
		),
	)
	defer s.Close()

	target, err := newTestService(s.URL()).FindTarget(context.Background(), "1", "5")
	is.NoErr(err)
	is.Equal(target.ID(), "5")
	is.True(!target.IsDismissed())
}

func TestDismissPatchesTheTarget(t *testing.T) {
	is := is.New(t)

	s := testutils.NewMockServiceThat(
		Expects(
			is,
			method(http.MethodPatch),
			path("/notification-targets/5"),
			bodyContaining(`"dismissed-at":1700000000`),
		),
		Returns(response.Code(http.StatusNoContent)),
	)
	defer s.Close()

	target := NewNotificationTarget()
	is.NoErr(target.SetID("5"))

	dismissed, err := newTestService(s.URL()).Dismiss(context.Background(), target)
	is.NoErr(err)

	is.True(dismissed == target) // no content should keep the instance
	is.True(dismissed.IsDismissed())
}

func TestDismissAllPostsADismissal(t *testing.T) {
	is := is.New(t)

	s := testutils.NewMockServiceThat(
		Expects(
			is,
			method(http.MethodPost),
			path("/notification-dismissals"),
			bodyContaining(`"dismissed-at":1700000000`),
			bodyContaining(`"user":{"data":{"type":"users","id":"1"}}`),
			bodyContaining(`"site":{"data":{"type":"sites","id":"en"}}`),
		),
		Returns(response.Code(http.StatusNoContent)),
	)
	defer s.Close()

	err := newTestService(s.URL()).DismissAll(context.Background(), "1", "en")
	is.NoErr(err)
	is.Equal(s.RequestCount(), 1)
}

const unreadJSON string = `{
	"data": [
		{"type": "notification-targets", "id": "5", "attributes": {"dismissed-at": 0},
		 "relationships": {"notification": {"data": {"type": "notifications", "id": "9"}}}},
		{"type": "notification-targets", "id": "6", "attributes": {"dismissed-at": 0},
		 "relationships": {"notification": {"data": {"type": "notifications", "id": "9"}}}}
	],
	"included": [
		{"type": "notifications", "id": "9", "attributes": {"type": "x", "message": "[]", "url": "http://x"}}
	],
	"meta": {"total": 2}
}`
