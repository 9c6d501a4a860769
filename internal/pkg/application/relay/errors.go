package relay

import (
	"errors"
	"fmt"
	"net/http"

	jsonapierrors "github.com/diwise/notification-client/pkg/jsonapi/errors"
	"github.com/diwise/notification-client/pkg/notifications"
)

type InvalidRequestError struct {
	msg string
}

func NewInvalidRequestError(msg string) InvalidRequestError {
	return InvalidRequestError{msg: msg}
}

func (ire InvalidRequestError) Error() string {
	return ire.msg
}

type NotAllowedError struct {
	site             string
	notificationType string
}

func NewNotAllowedError(site, notificationType string) NotAllowedError {
	return NotAllowedError{site: site, notificationType: notificationType}
}

func (nae NotAllowedError) Error() string {
	return fmt.Sprintf("site \"%s\" may not send notifications of type \"%s\"", nae.site, nae.notificationType)
}

type NotFoundError struct {
	msg string
}

func NewNotFoundError(msg string) NotFoundError {
	return NotFoundError{msg: msg}
}

func (nfe NotFoundError) Error() string {
	return nfe.msg
}

type UnknownSiteError struct {
	site string
}

func NewUnknownSiteError(site string) UnknownSiteError {
	return UnknownSiteError{site: site}
}

func (use UnknownSiteError) Error() string {
	return fmt.Sprintf("unknown site \"%s\"", use.site)
}

// translateError maps failures reported by the notification service to the
// errors of this package. Anything it does not recognise is returned as is.
func translateError(err error) error {
	if errors.Is(err, notifications.ErrInvalidNotice) {
		return NewInvalidRequestError(err.Error())
	}

	var rue *jsonapierrors.RequestUnsuccessfulError
	if !errors.As(err, &rue) {
		return err
	}

	switch rue.StatusCode {
	case http.StatusNotFound:
		return NewNotFoundError(rue.Error())
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return NewInvalidRequestError(rue.Error())
	}

	return err
}
