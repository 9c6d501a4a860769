package relay

import (
	"context"

	"github.com/diwise/notification-client/internal/pkg/application/dispatcher"
	"github.com/diwise/notification-client/pkg/notifications"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
)

// Notification is the plain data a producer hands to the relay.
type Notification struct {
	Site       string   `json:"site"`
	Type       string   `json:"type"`
	Parameters []any    `json:"parameters"`
	URL        string   `json:"url"`
	Agent      string   `json:"agent"`
	Targets    []string `json:"targets"`
	Group      string   `json:"group"`
}

type Notifier interface {
	Notify(ctx context.Context, n Notification) (*NotifyResult, error)
	Broadcast(ctx context.Context, n Notification) error
}

type Inbox interface {
	Unread(ctx context.Context, userID string, page notifications.Page) ([]UnreadNotification, error)
	Dismiss(ctx context.Context, userID, targetID string) error
	DismissAll(ctx context.Context, userID, siteKey string) error
}

type NotificationRelay interface {
	Notifier
	Inbox
}

type relayApp struct {
	cfg        *Config
	svc        notifications.Service
	dispatcher dispatcher.Dispatcher
}

func New(cfg *Config, svc notifications.Service, d dispatcher.Dispatcher) NotificationRelay {
	return &relayApp{
		cfg:        cfg,
		svc:        svc,
		dispatcher: d,
	}
}

func (app *relayApp) Notify(ctx context.Context, n Notification) (*NotifyResult, error) {
	notice, err := app.noticeFor(n)
	if err != nil {
		return nil, err
	}

	notification, err := app.svc.Notify(ctx, notice)
	if err != nil {
		return nil, translateError(err)
	}

	return NewNotifyResult(notification.ID()), nil
}

// Broadcast validates the notification and queues it for delivery.
func (app *relayApp) Broadcast(ctx context.Context, n Notification) error {
	notice, err := app.noticeFor(n)
	if err != nil {
		return err
	}

	if err = notice.Validate(); err != nil {
		return translateError(err)
	}

	return app.dispatcher.Dispatch(ctx, "broadcast", func(ctx context.Context) error {
		return app.svc.Broadcast(ctx, notice)
	})
}

func (app *relayApp) Unread(ctx context.Context, userID string, page notifications.Page) ([]UnreadNotification, error) {
	targets, err := app.svc.Unread(ctx, userID, page)
	if err != nil {
		return nil, translateError(err)
	}

	logger := logging.GetFromContext(ctx)
	unread := make([]UnreadNotification, 0, len(targets))

	for _, t := range targets {
		n := t.Notification()
		if n == nil {
			logger.Warn("notification target without notification", "target", t.ID())
			continue
		}

		parameters, err := n.MessageParameters()
		if err != nil {
			logger.Warn("failed to decode message parameters", "notification", n.ID(), "err", err.Error())
			parameters = []any{}
		}

		u := UnreadNotification{
			ID:         t.ID(),
			Type:       n.NotificationType(),
			Parameters: parameters,
			URL:        n.URL(),
		}

		if agent := n.Agent(); agent != nil {
			u.Agent = agent.ID()
		}

		if createdAt, ok := n.CreatedAt(); ok {
			u.CreatedAt = &createdAt
		}

		unread = append(unread, u)
	}

	return unread, nil
}

// Dismiss dismisses a single notification target. Dismissing a target twice
// is not an error.
func (app *relayApp) Dismiss(ctx context.Context, userID, targetID string) error {
	target, err := app.svc.FindTarget(ctx, userID, targetID)
	if err != nil {
		return translateError(err)
	}

	if target.IsDismissed() {
		return nil
	}

	_, err = app.svc.Dismiss(ctx, target)
	return translateError(err)
}

// DismissAll queues the dismissal of every notification of the user, on the
// given site or on all sites if siteKey is empty.
func (app *relayApp) DismissAll(ctx context.Context, userID, siteKey string) error {
	siteID := ""

	if siteKey != "" {
		site, ok := app.cfg.Site(siteKey)
		if !ok {
			return NewUnknownSiteError(siteKey)
		}
		siteID = site.ID
	}

	return app.dispatcher.Dispatch(ctx, "dismiss-all", func(ctx context.Context) error {
		return app.svc.DismissAll(ctx, userID, siteID)
	})
}

func (app *relayApp) noticeFor(n Notification) (notifications.Notice, error) {
	site, ok := app.cfg.Site(n.Site)
	if !ok {
		return notifications.Notice{}, NewUnknownSiteError(n.Site)
	}

	if !site.Allows(n.Type) {
		return notifications.Notice{}, NewNotAllowedError(n.Site, n.Type)
	}

	return notifications.Notice{
		Type:       n.Type,
		Parameters: n.Parameters,
		URL:        n.URL,
		AgentID:    n.Agent,
		SiteID:     site.ID,
		TargetIDs:  n.Targets,
		Group:      n.Group,
	}, nil
}
