package notifications

import (
	"encoding/json"
	"time"

	"github.com/diwise/notification-client/pkg/jsonapi/resource"
)

const (
	TypeNotification          string = "notifications"
	TypeNotificationBroadcast string = "notification-broadcasts"
	TypeNotificationDismissal string = "notification-dismissals"
	TypeNotificationTarget    string = "notification-targets"
	TypeSite                  string = "sites"
	TypeUser                  string = "users"
)

var notificationSpec = resource.Spec{
	Type: TypeNotification,
	Attributes: map[string]any{
		"type":       "",
		"message":    "[]",
		"url":        "",
		"created-at": nil,
	},
	Relations: map[string]resource.Relation{
		"agent":   {Target: TypeUser, Arity: resource.One},
		"site":    {Target: TypeSite, Arity: resource.One},
		"targets": {Target: TypeUser, Arity: resource.Many},
	},
}

var notificationBroadcastSpec = resource.Spec{
	Type: TypeNotificationBroadcast,
	Attributes: map[string]any{
		"type":    "",
		"message": "[]",
		"url":     "",
		"group":   "",
	},
	Relations: map[string]resource.Relation{
		"agent": {Target: TypeUser, Arity: resource.One},
		"site":  {Target: TypeSite, Arity: resource.One},
	},
}

var notificationDismissalSpec = resource.Spec{
	Type: TypeNotificationDismissal,
	Attributes: map[string]any{
		"dismissed-at": nil,
	},
	Relations: map[string]resource.Relation{
		"user": {Target: TypeUser, Arity: resource.One},
		"site": {Target: TypeSite, Arity: resource.One},
	},
}

var notificationTargetSpec = resource.Spec{
	Type: TypeNotificationTarget,
	Attributes: map[string]any{
		"dismissed-at": nil,
		"created-at":   nil,
	},
	Relations: map[string]resource.Relation{
		"notification": {Target: TypeNotification, Arity: resource.One},
		"user":         {Target: TypeUser, Arity: resource.One},
	},
}

var siteSpec = resource.Spec{
	Type: TypeSite,
	Attributes: map[string]any{
		"key":  "",
		"name": "",
		"url":  "",
	},
	Relations: map[string]resource.Relation{
		"notifications": {Target: TypeNotification, Arity: resource.Many},
	},
}

var userSpec = resource.Spec{
	Type: TypeUser,
	Attributes: map[string]any{
		"name": "",
	},
	Relations: map[string]resource.Relation{
		"notifications":        {Target: TypeNotification, Arity: resource.Many},
		"notification-targets": {Target: TypeNotificationTarget, Arity: resource.Many},
	},
}

// NewFactory returns a factory for every resource type of the notification service.
func NewFactory() *resource.Factory {
	return resource.NewFactory(map[string]resource.Constructor{
		TypeNotification:          func() resource.Resource { return NewNotification() },
		TypeNotificationBroadcast: func() resource.Resource { return NewNotificationBroadcast() },
		TypeNotificationDismissal: func() resource.Resource { return NewNotificationDismissal() },
		TypeNotificationTarget:    func() resource.Resource { return NewNotificationTarget() },
		TypeSite:                  func() resource.Resource { return NewSite() },
		TypeUser:                  func() resource.Resource { return NewUser() },
	})
}

type Notification struct {
	*resource.Base
}

func NewNotification() *Notification {
	return &Notification{Base: resource.New(notificationSpec)}
}

func (n *Notification) NotificationType() string {
	return stringAttribute(n, "type")
}

// Message returns the JSON encoded message parameters.
func (n *Notification) Message() string {
	return stringAttribute(n, "message")
}

func (n *Notification) MessageParameters() ([]any, error) {
	return decodeMessage(n.Message())
}

func (n *Notification) URL() string {
	return stringAttribute(n, "url")
}

func (n *Notification) CreatedAt() (time.Time, bool) {
	return timeAttribute(n, "created-at")
}

func (n *Notification) Agent() *User {
	return one[*User](n, "agent")
}

func (n *Notification) Site() *Site {
	return one[*Site](n, "site")
}

func (n *Notification) Targets() []*User {
	return many[*User](n, "targets")
}

type NotificationBroadcast struct {
	*resource.Base
}

func NewNotificationBroadcast() *NotificationBroadcast {
	return &NotificationBroadcast{Base: resource.New(notificationBroadcastSpec)}
}

func (b *NotificationBroadcast) NotificationType() string {
	return stringAttribute(b, "type")
}

func (b *NotificationBroadcast) Group() string {
	return stringAttribute(b, "group")
}

func (b *NotificationBroadcast) Agent() *User {
	return one[*User](b, "agent")
}

func (b *NotificationBroadcast) Site() *Site {
	return one[*Site](b, "site")
}

type NotificationDismissal struct {
	*resource.Base
}

func NewNotificationDismissal() *NotificationDismissal {
	return &NotificationDismissal{Base: resource.New(notificationDismissalSpec)}
}

func (d *NotificationDismissal) DismissedAt() (time.Time, bool) {
	return timeAttribute(d, "dismissed-at")
}

func (d *NotificationDismissal) User() *User {
	return one[*User](d, "user")
}

func (d *NotificationDismissal) Site() *Site {
	return one[*Site](d, "site")
}

// NotificationTarget is the delivery of a notification to a single user.
type NotificationTarget struct {
	*resource.Base
}

func NewNotificationTarget() *NotificationTarget {
	return &NotificationTarget{Base: resource.New(notificationTargetSpec)}
}

// DismissedAt returns false while the target is undismissed. The service
// reports undismissed targets with a zero timestamp.
func (t *NotificationTarget) DismissedAt() (time.Time, bool) {
	return timeAttribute(t, "dismissed-at")
}

func (t *NotificationTarget) IsDismissed() bool {
	_, ok := t.DismissedAt()
	return ok
}

func (t *NotificationTarget) CreatedAt() (time.Time, bool) {
	return timeAttribute(t, "created-at")
}

func (t *NotificationTarget) Notification() *Notification {
	return one[*Notification](t, "notification")
}

func (t *NotificationTarget) User() *User {
	return one[*User](t, "user")
}

type Site struct {
	*resource.Base
}

func NewSite() *Site {
	return &Site{Base: resource.New(siteSpec)}
}

func (s *Site) Key() string {
	return stringAttribute(s, "key")
}

func (s *Site) Name() string {
	return stringAttribute(s, "name")
}

func (s *Site) URL() string {
	return stringAttribute(s, "url")
}

func (s *Site) Notifications() []*Notification {
	return many[*Notification](s, "notifications")
}

type User struct {
	*resource.Base
}

func NewUser() *User {
	return &User{Base: resource.New(userSpec)}
}

func (u *User) Name() string {
	return stringAttribute(u, "name")
}

func (u *User) Notifications() []*Notification {
	return many[*Notification](u, "notifications")
}

func (u *User) NotificationTargets() []*NotificationTarget {
	return many[*NotificationTarget](u, "notification-targets")
}

// UserRef returns an unpopulated user that can be used as a relation or a
// path anchor.
func UserRef(id string) *User {
	u := NewUser()
	_ = u.SetID(id)
	return u
}

func SiteRef(id string) *Site {
	s := NewSite()
	_ = s.SetID(id)
	return s
}

func one[T resource.Resource](r resource.Resource, relationship string) T {
	var zero T

	related, err := r.One(relationship)
	if err != nil || related == nil {
		return zero
	}

	t, ok := related.(T)
	if !ok {
		return zero
	}

	return t
}

func many[T resource.Resource](r resource.Resource, relationship string) []T {
	related, err := r.Many(relationship)
	if err != nil {
		return []T{}
	}

	result := make([]T, 0, len(related))
	for _, rr := range related {
		if t, ok := rr.(T); ok {
			result = append(result, t)
		}
	}

	return result
}

func stringAttribute(r resource.Resource, attribute string) string {
	v, err := r.Get(attribute)
	if err != nil {
		return ""
	}

	s, _ := v.(string)
	return s
}

// timeAttribute accepts unix timestamps, as sent by the service, and RFC 3339
// strings. Zero timestamps count as unset.
func timeAttribute(r resource.Resource, attribute string) (time.Time, bool) {
	v, err := r.Get(attribute)
	if err != nil || v == nil {
		return time.Time{}, false
	}

	var seconds int64

	switch t := v.(type) {
	case float64:
		seconds = int64(t)
	case int64:
		seconds = t
	case int:
		seconds = int64(t)
	case json.Number:
		seconds, err = t.Int64()
		if err != nil {
			return time.Time{}, false
		}
	case string:
		ts, err := time.Parse(time.RFC3339, t)
		if err != nil {
			return time.Time{}, false
		}
		return ts.UTC(), true
	default:
		return time.Time{}, false
	}

	if seconds == 0 {
		return time.Time{}, false
	}

	return time.Unix(seconds, 0).UTC(), true
}

func encodeMessage(parameters []any) (string, error) {
	if parameters == nil {
		return "[]", nil
	}

	b, err := json.Marshal(parameters)
	if err != nil {
		return "", err
	}

	return string(b), nil
}

func decodeMessage(message string) ([]any, error) {
	if message == "" {
		return []any{}, nil
	}

	parameters := []any{}
	err := json.Unmarshal([]byte(message), &parameters)
	if err != nil {
		return nil, err
	}

	return parameters, nil
}
