package relayapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/diwise/notification-client/internal/pkg/application/dispatcher"
	"github.com/diwise/notification-client/internal/pkg/application/relay"
	"github.com/diwise/notification-client/internal/pkg/presentation/api/relay-api/auth"
	"github.com/diwise/notification-client/internal/pkg/presentation/api/relay-api/problems"
	jsonapierrors "github.com/diwise/notification-client/pkg/jsonapi/errors"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	TraceAttributeSite     string = "site"
	TraceAttributeUserID   string = "user-id"
	TraceAttributeTargetID string = "target-id"
)

var tracer = otel.Tracer("notification-relay/api")

func RegisterHandlers(ctx context.Context, r chi.Router, policies io.Reader, app relay.NotificationRelay) error {

	authenticator, err := auth.NewAuthenticator(ctx, policies)
	if err != nil {
		return fmt.Errorf("failed to create api authenticator: %w", err)
	}

	r.Route("/api/v0", func(r chi.Router) {
		r.Use(
			Logger(logging.GetFromContext(ctx)),
			RequiredContentTypes([]string{"application/json"}),
		)

		r.Post("/notifications", NewNotifyHandler(app, authenticator))
		r.Post("/broadcasts", NewBroadcastHandler(app, authenticator))

		r.Route("/users/{userId}/notifications", func(r chi.Router) {
			r.Get("/", NewUnreadHandler(app, authenticator))
			r.Delete("/", NewDismissAllHandler(app, authenticator))
			r.Patch("/{targetId}", NewDismissHandler(app, authenticator))
		})
	})

	return nil
}

func Logger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			_, ctx, _ = o11y.AddTraceIDToLoggerAndStoreInContext(
				trace.SpanFromContext(ctx),
				logger,
				ctx)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func RequiredContentTypes(validTypes []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			contentType := r.Header.Get("Content-Type")
			isValidContentType := true

			if len(contentType) > 0 {
				isValidContentType = false

				for _, t := range validTypes {
					if strings.HasPrefix(contentType, t) {
						isValidContentType = true
						break
					}
				}
			}

			if isValidContentType {
				next.ServeHTTP(w, r)
			} else {
				http.Error(w, "unsupported media type", http.StatusUnsupportedMediaType)
			}
		})
	}
}

// checkAccess reports a problem and returns false if the request is not authorized.
func checkAccess(ctx context.Context, w http.ResponseWriter, r *http.Request, authenticator auth.Enticator, site string) bool {
	err := authenticator.CheckAccess(ctx, r, site)
	if err != nil {
		logging.GetFromContext(ctx).Warn("access not granted", "err", err.Error())
		problems.ReportUnauthorizedRequest(w, "access not granted")
		return false
	}

	return true
}

func mapRelayToProblem(w http.ResponseWriter, err error) {
	var (
		unknownSite    relay.UnknownSiteError
		notAllowed     relay.NotAllowedError
		invalidRequest relay.InvalidRequestError
		notFound       relay.NotFoundError
	)

	switch {
	case errors.As(err, &unknownSite), errors.As(err, &notAllowed):
		problems.ReportNewBadRequestData(w, err.Error())
	case errors.As(err, &invalidRequest):
		problems.ReportNewInvalidRequest(w, err.Error())
	case errors.As(err, &notFound):
		problems.ReportNotFoundError(w, err.Error())
	case errors.Is(err, dispatcher.ErrNotStarted):
		problems.ReportServiceUnavailable(w, err.Error())
	case errors.Is(err, jsonapierrors.ErrRequestUnsuccessful),
		errors.Is(err, jsonapierrors.ErrRequest),
		errors.Is(err, jsonapierrors.ErrBadResponse),
		errors.Is(err, jsonapierrors.ErrMalformedDocument),
		errors.Is(err, jsonapierrors.ErrReferencedResourceMissing),
		errors.Is(err, jsonapierrors.ErrResourceTypeUnmapped):
		problems.ReportUpstreamError(w, err.Error())
	default:
		problems.ReportNewInternalError(w, err.Error())
	}
}

func addLabelIfError(err error, labeler *otelhttp.Labeler) {
	if err != nil && labeler != nil {
		labeler.Add(attribute.Bool("error", true))
	}
}
