package relayapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/diwise/notification-client/internal/pkg/application/relay"
	"github.com/diwise/notification-client/internal/pkg/presentation/api/relay-api/auth"
	"github.com/diwise/notification-client/internal/pkg/presentation/api/relay-api/problems"
	"github.com/diwise/notification-client/pkg/notifications"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const maxPageLimit int = 100

// NewNotifyHandler handles POST requests that create a notification for a set of users
func NewNotifyHandler(app relay.Notifier, authenticator auth.Enticator) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var err error

		ctx := r.Context()

		labeler, _ := otelhttp.LabelerFromContext(ctx)
		defer func() { addLabelIfError(err, labeler) }()

		n := relay.Notification{}
		err = json.NewDecoder(r.Body).Decode(&n)
		if err != nil {
			problems.ReportNewInvalidRequest(w, fmt.Sprintf("unable to decode request payload: %s", err.Error()))
			return
		}

		ctx, span := tracer.Start(ctx, "notify",
			trace.WithAttributes(attribute.String(TraceAttributeSite, n.Site)),
		)
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

		if !checkAccess(ctx, w, r, authenticator, n.Site) {
			err = auth.ErrAccessDenied
			return
		}

		log := logging.GetFromContext(ctx)

		result, err := app.Notify(ctx, n)
		if err != nil {
			log.Error("failed to notify", "err", err.Error())
			mapRelayToProblem(w, err)
			return
		}

		body, _ := json.Marshal(map[string]string{"id": result.ID()})

		w.Header().Add("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write(body)
	})
}

// NewBroadcastHandler handles POST requests for broadcasts, which are queued and answered with 202
func NewBroadcastHandler(app relay.Notifier, authenticator auth.Enticator) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var err error

		ctx := r.Context()

		labeler, _ := otelhttp.LabelerFromContext(ctx)
		defer func() { addLabelIfError(err, labeler) }()

		n := relay.Notification{}
		err = json.NewDecoder(r.Body).Decode(&n)
		if err != nil {
			problems.ReportNewInvalidRequest(w, fmt.Sprintf("unable to decode request payload: %s", err.Error()))
			return
		}

		ctx, span := tracer.Start(ctx, "broadcast",
			trace.WithAttributes(attribute.String(TraceAttributeSite, n.Site)),
		)
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

		if !checkAccess(ctx, w, r, authenticator, n.Site) {
			err = auth.ErrAccessDenied
			return
		}

		err = app.Broadcast(ctx, n)
		if err != nil {
			logging.GetFromContext(ctx).Error("failed to queue broadcast", "err", err.Error())
			mapRelayToProblem(w, err)
			return
		}

		w.WriteHeader(http.StatusAccepted)
	})
}

// NewUnreadHandler handles GET requests for the undismissed notifications of a user
func NewUnreadHandler(app relay.Inbox, authenticator auth.Enticator) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var err error

		ctx := r.Context()
		userID := chi.URLParam(r, "userId")

		labeler, _ := otelhttp.LabelerFromContext(ctx)
		defer func() { addLabelIfError(err, labeler) }()

		ctx, span := tracer.Start(ctx, "unread",
			trace.WithAttributes(attribute.String(TraceAttributeUserID, userID)),
		)
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

		if !checkAccess(ctx, w, r, authenticator, "") {
			err = auth.ErrAccessDenied
			return
		}

		page, err := pageFromQuery(r)
		if err != nil {
			problems.ReportNewBadRequestData(w, err.Error())
			return
		}

		log := logging.GetFromContext(ctx)

		unread, err := app.Unread(ctx, userID, page)
		if err != nil {
			log.Error("failed to retrieve unread notifications", "err", err.Error())
			mapRelayToProblem(w, err)
			return
		}

		body, err := json.Marshal(unread)
		if err != nil {
			log.Error("failed to marshal unread notifications", "err", err.Error())
			problems.ReportNewInternalError(w, err.Error())
			return
		}

		w.Header().Add("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(body)
	})
}

// NewDismissHandler handles PATCH requests that dismiss a single notification of a user
func NewDismissHandler(app relay.Inbox, authenticator auth.Enticator) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var err error

		ctx := r.Context()
		userID := chi.URLParam(r, "userId")
		targetID := chi.URLParam(r, "targetId")

		labeler, _ := otelhttp.LabelerFromContext(ctx)
		defer func() { addLabelIfError(err, labeler) }()

		ctx, span := tracer.Start(ctx, "dismiss",
			trace.WithAttributes(
				attribute.String(TraceAttributeUserID, userID),
				attribute.String(TraceAttributeTargetID, targetID),
			),
		)
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

		if !checkAccess(ctx, w, r, authenticator, "") {
			err = auth.ErrAccessDenied
			return
		}

		err = app.Dismiss(ctx, userID, targetID)
		if err != nil {
			logging.GetFromContext(ctx).Error("failed to dismiss notification", "err", err.Error())
			mapRelayToProblem(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	})
}

// NewDismissAllHandler handles DELETE requests that dismiss every notification
// of a user, optionally limited to the site given in the query
func NewDismissAllHandler(app relay.Inbox, authenticator auth.Enticator) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var err error

		ctx := r.Context()
		userID := chi.URLParam(r, "userId")
		site := r.URL.Query().Get("site")

		labeler, _ := otelhttp.LabelerFromContext(ctx)
		defer func() { addLabelIfError(err, labeler) }()

		ctx, span := tracer.Start(ctx, "dismiss-all",
			trace.WithAttributes(
				attribute.String(TraceAttributeUserID, userID),
				attribute.String(TraceAttributeSite, site),
			),
		)
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

		if !checkAccess(ctx, w, r, authenticator, site) {
			err = auth.ErrAccessDenied
			return
		}

		err = app.DismissAll(ctx, userID, site)
		if err != nil {
			logging.GetFromContext(ctx).Error("failed to queue dismissal", "err", err.Error())
			mapRelayToProblem(w, err)
			return
		}

		w.WriteHeader(http.StatusAccepted)
	})
}

func pageFromQuery(r *http.Request) (notifications.Page, error) {
	page := notifications.Page{}
	query := r.URL.Query()

	if limit := query.Get("limit"); limit != "" {
		l, err := strconv.Atoi(limit)
		if err != nil || l < 1 || l > maxPageLimit {
			return page, fmt.Errorf("limit must be a number between 1 and %d", maxPageLimit)
		}
		page.Limit = l
	}

	if offset := query.Get("offset"); offset != "" {
		o, err := strconv.Atoi(offset)
		if err != nil || o < 0 {
			return page, fmt.Errorf("offset must be a positive number")
		}
		page.Offset = o
	}

	return page, nil
}
