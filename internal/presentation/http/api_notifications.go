package http

import (
	"context"
	stdhttp "net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"landai/app/internal/platform/notify"
)

type notificationsOutput struct {
	Body struct {
		Notifications []notify.Notice `json:"notifications"`
	}
}

type dismissNotificationInput struct {
	NoticeID string `path:"noticeId" doc:"Notice identifier"`
}

func (s *Server) registerNotificationRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "drain-notifications",
		Method:      stdhttp.MethodGet,
		Path:        "/api/notifications",
		Summary:     "Fetch and clear pending notices",
		Tags:        []string{"notifications"},
	}, s.drainNotificationsHandler)

	huma.Register(s.api, huma.Operation{
		OperationID:   "dismiss-notification",
		Method:        stdhttp.MethodDelete,
		Path:          "/api/notifications/{noticeId}",
		Summary:       "Dismiss a pending notice",
		Tags:          []string{"notifications"},
		DefaultStatus: stdhttp.StatusNoContent,
	}, s.dismissNotificationHandler)
}

func (s *Server) drainNotificationsHandler(ctx context.Context, _ *struct{}) (*notificationsOutput, error) {
	user, err := s.requireUser(ctx)
	if err != nil {
		return nil, err
	}

	output := &notificationsOutput{}
	output.Body.Notifications = s.notifications.Drain(user.ID)
	return output, nil
}

func (s *Server) dismissNotificationHandler(ctx context.Context, input *dismissNotificationInput) (*struct{}, error) {
	user, err := s.requireUser(ctx)
	if err != nil {
		return nil, err
	}

	if !s.notifications.Dismiss(user.ID, strings.TrimSpace(input.NoticeID)) {
		return nil, huma.Error404NotFound("Notice not found")
	}
	return nil, nil
}
