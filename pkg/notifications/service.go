package notifications

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/diwise/notification-client/pkg/jsonapi/client"
	"github.com/diwise/notification-client/pkg/jsonapi/errors"
	"github.com/diwise/notification-client/pkg/jsonapi/resource"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var ErrInvalidNotice = fmt.Errorf("invalid notice")

var tracer = otel.Tracer("notification-service")

// Notice is the plain data needed to send a notification or a broadcast.
type Notice struct {
	Type       string
	Parameters []any
	URL        string
	AgentID    string
	SiteID     string

	// TargetIDs are the ids of the users to notify. Ignored by broadcasts.
	TargetIDs []string
	// Group restricts a broadcast to the members of a user group.
	Group string
}

func (n Notice) Validate() error {
	if n.Type == "" {
		return fmt.Errorf("notification type must not be empty (%w)", ErrInvalidNotice)
	}

	if _, err := encodeMessage(n.Parameters); err != nil {
		return fmt.Errorf("message parameters could not be encoded: %s (%w)", err.Error(), ErrInvalidNotice)
	}

	return nil
}

type Page struct {
	Limit  int
	Offset int
}

type Service interface {
	Notify(ctx context.Context, notice Notice) (*Notification, error)
	Broadcast(ctx context.Context, notice Notice) error
	Unread(ctx context.Context, userID string, page Page) ([]*NotificationTarget, error)
	FindTarget(ctx context.Context, userID, targetID string) (*NotificationTarget, error)
	Dismiss(ctx context.Context, target *NotificationTarget) (*NotificationTarget, error)
	DismissAll(ctx context.Context, userID, siteID string) error
}

func NewService(c client.Client) Service {
	return &service{
		client: c,
		now:    time.Now,
	}
}

type service struct {
	client client.Client
	now    func() time.Time
}

func (s *service) Notify(ctx context.Context, notice Notice) (*Notification, error) {
	var err error

	ctx, span := tracer.Start(ctx, "notify",
		trace.WithAttributes(attribute.String("notification-type", notice.Type)),
	)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	if err = notice.Validate(); err != nil {
		return nil, err
	}

	if len(notice.TargetIDs) == 0 {
		err = fmt.Errorf("notification %s has no targets (%w)", notice.Type, ErrInvalidNotice)
		return nil, err
	}

	message, _ := encodeMessage(notice.Parameters)

	n := NewNotification()
	n.Update(map[string]any{
		"type":    notice.Type,
		"message": message,
		"url":     notice.URL,
	})

	if err = addRelations(n, notice, "targets"); err != nil {
		return nil, err
	}

	created, err := s.client.Resource(TypeNotification).Create(ctx, n)
	if err != nil {
		return nil, err
	}

	notification, ok := created.(*Notification)
	if !ok {
		err = fmt.Errorf("unexpected resource type %s in response (%w)", created.Type(), errors.ErrBadResponse)
		return nil, err
	}

	logging.GetFromContext(ctx).Debug("notification created", "id", notification.ID(), "type", notice.Type, "targets", len(notice.TargetIDs))

	return notification, nil
}

func (s *service) Broadcast(ctx context.Context, notice Notice) error {
	var err error

	ctx, span := tracer.Start(ctx, "broadcast",
		trace.WithAttributes(attribute.String("notification-type", notice.Type)),
	)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	if err = notice.Validate(); err != nil {
		return err
	}

	message, _ := encodeMessage(notice.Parameters)

	b := NewNotificationBroadcast()
	b.Update(map[string]any{
		"type":    notice.Type,
		"message": message,
		"url":     notice.URL,
		"group":   notice.Group,
	})

	if err = addRelations(b, notice); err != nil {
		return err
	}

	err = s.sendAndForget(ctx, TypeNotificationBroadcast, b)
	return err
}

func (s *service) Unread(ctx context.Context, userID string, page Page) ([]*NotificationTarget, error) {
	var err error

	ctx, span := tracer.Start(ctx, "unread",
		trace.WithAttributes(attribute.String("user-id", userID)),
	)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	b := s.client.Resource(TypeUser, UserRef(userID)).
		Resource(TypeNotificationTarget).
		Include("notification").
		Filter(map[string]string{"dismissed": "false"})

	if page.Limit > 0 {
		b = b.Page(page.Limit, page.Offset)
	}

	all, err := b.All(ctx)
	if err != nil {
		return nil, err
	}

	targets := make([]*NotificationTarget, 0, len(all))
	for _, r := range all {
		t, ok := r.(*NotificationTarget)
		if !ok {
			err = fmt.Errorf("unexpected resource type %s in response (%w)", r.Type(), errors.ErrBadResponse)
			return nil, err
		}
		targets = append(targets, t)
	}

	return targets, nil
}

func (s *service) FindTarget(ctx context.Context, userID, targetID string) (*NotificationTarget, error) {
	var err error

	ctx, span := tracer.Start(ctx, "find-target",
		trace.WithAttributes(attribute.String("user-id", userID)),
	)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	r, err := s.client.Resource(TypeUser, UserRef(userID)).
		Resource(TypeNotificationTarget).
		Include("notification").
		Find(ctx, targetID)
	if err != nil {
		return nil, err
	}

	target, ok := r.(*NotificationTarget)
	if !ok {
		err = fmt.Errorf("unexpected resource type %s in response (%w)", r.Type(), errors.ErrBadResponse)
		return nil, err
	}

	return target, nil
}

// Dismiss marks the target as dismissed now. The returned target is the same
// instance when the service answers without a document.
func (s *service) Dismiss(ctx context.Context, target *NotificationTarget) (*NotificationTarget, error) {
	var err error

	ctx, span := tracer.Start(ctx, "dismiss",
		trace.WithAttributes(attribute.String("target-id", target.ID())),
	)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	target.Update(map[string]any{"dismissed-at": s.now().Unix()})

	updated, err := s.client.Update(ctx, target)
	if err != nil {
		return nil, err
	}

	t, ok := updated.(*NotificationTarget)
	if !ok {
		err = fmt.Errorf("unexpected resource type %s in response (%w)", updated.Type(), errors.ErrBadResponse)
		return nil, err
	}

	return t, nil
}

func (s *service) DismissAll(ctx context.Context, userID, siteID string) error {
	var err error

	ctx, span := tracer.Start(ctx, "dismiss-all",
		trace.WithAttributes(attribute.String("user-id", userID)),
	)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	d := NewNotificationDismissal()
	d.Update(map[string]any{"dismissed-at": s.now().Unix()})

	if err = d.Add("user", UserRef(userID)); err != nil {
		return err
	}

	if siteID != "" {
		if err = d.Add("site", SiteRef(siteID)); err != nil {
			return err
		}
	}

	err = s.sendAndForget(ctx, TypeNotificationDismissal, d)
	return err
}

func (s *service) sendAndForget(ctx context.Context, path string, r resource.Resource) error {
	response, err := s.client.Send(ctx, http.MethodPost, path, r.ToData())
	if err != nil {
		return err
	}

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return errors.NewRequestUnsuccessfulError(errors.OperationCreate, response.StatusCode, response.Body)
	}

	return nil
}

func addRelations(r resource.Resource, notice Notice, targets ...string) error {
	if notice.AgentID != "" {
		if err := r.Add("agent", UserRef(notice.AgentID)); err != nil {
			return err
		}
	}

	if notice.SiteID != "" {
		if err := r.Add("site", SiteRef(notice.SiteID)); err != nil {
			return err
		}
	}

	for _, relationship := range targets {
		for _, id := range notice.TargetIDs {
			if err := r.Add(relationship, UserRef(id)); err != nil {
				return err
			}
		}
	}

	return nil
}
