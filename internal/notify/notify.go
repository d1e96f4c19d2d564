package notify

import (
	"context"

	"github.com/mbeoliero/kit/log"

	"github.com/mbeoliero/nexochat/internal/entity"
	"github.com/mbeoliero/nexochat/pkg/constant"
)

// Data is the routing payload attached to a notification
type Data struct {
	Type           string `json:"type"`
	ConversationId string `json:"conversationId"`
}

// Notification is a local alert for an incoming message
type Notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Data  Data   `json:"data"`
}

// Dispatcher shows local notifications
type Dispatcher interface {
	Notify(ctx context.Context, n Notification) error
}

// Func adapts a function to Dispatcher
type Func func(ctx context.Context, n Notification) error

func (f Func) Notify(ctx context.Context, n Notification) error {
	return f(ctx, n)
}

// LogDispatcher writes notifications to the log
type LogDispatcher struct{}

func (LogDispatcher) Notify(ctx context.Context, n Notification) error {
	log.CtxInfo(ctx, "notification: title=%s, body=%s, conversation_id=%s", n.Title, n.Body, n.Data.ConversationId)
	return nil
}

// Nop drops every notification
type Nop struct{}

func (Nop) Notify(context.Context, Notification) error { return nil }

// MessageNotification builds the alert shown for msg
func MessageNotification(msg *entity.Message) Notification {
	title := msg.Sender.DisplayName()
	if title == "" {
		title = constant.DefaultNotificationTitle
	}
	body := msg.Content
	if body == "" {
		body = constant.DefaultNotificationBody
	}
	return Notification{
		Title: title,
		Body:  body,
		Data: Data{
			Type:           constant.NotificationTypeMessage,
			ConversationId: msg.ChatId,
		},
	}
}
