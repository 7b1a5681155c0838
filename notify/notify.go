//go:generate go run go.uber.org/mock/mockgen -source=notify.go -destination=../mocks/mock_notify.go -package=mocks

package notify

import (
	"context"
	"errors"
	"log/slog"

	"firebase.google.com/go/v4/messaging"
	"github.com/go-playground/validator/v10"
	"github.com/klipach/cuchat/contract"
	"github.com/klipach/cuchat/log"
	"github.com/klipach/cuchat/push"
	"github.com/klipach/cuchat/store"
)

const (
	ErrorMsgLogField     = "errorMsg"
	userIDLogField       = "userID"
	nearbyUserIDLogField = "nearbyUserID"
	senderIDLogField     = "senderID"
	receiverIDLogField   = "receiverID"
	chatIDLogField       = "chatID"
	messageIDLogField    = "messageID"
	clickActionLogField  = "clickAction"
	staleTokenLogField   = "staleToken"
	defaultSenderName    = "Someone"
	nearbyTitle          = "Someone is nearby!"
	nearbyBodyFormat     = "%s is now in your vicinity"
	chatIDDataKey        = "chat_id"
	userIDDataKey        = "user_id"
)

var validate = validator.New()

type Store interface {
	User(ctx context.Context, userID string) (*contract.User, error)
	Chat(ctx context.Context, chatID string) (*contract.Chat, error)
}

type Sender interface {
	Send(ctx context.Context, msg *messaging.Message) (string, error)
}

// Service reacts to calls and document creation with at most one push send.
// Invocations share nothing but the clients.
type Service struct {
	store  Store
	sender Sender
}

func NewService(store Store, sender Sender) *Service {
	return &Service{
		store:  store,
		sender: sender,
	}
}

// logLookupFailure logs why an event handler stopped after a read.
func logLookupFailure(logger *slog.Logger, what string, err error) {
	if errors.Is(err, store.ErrNotFound) {
		logger.Info(what + " document does not exist")
		return
	}
	logger.Error("error while reading "+what+" document", slog.String(ErrorMsgLogField, err.Error()))
}

func logSendFailure(logger *slog.Logger, msg string, err error) {
	logger.Error(msg,
		slog.String(ErrorMsgLogField, err.Error()),
		slog.Bool(staleTokenLogField, push.IsStaleToken(err)),
	)
}

func loggerFrom(ctx context.Context, attrs ...any) *slog.Logger {
	return log.LoggerFromContext(ctx).With(attrs...)
}
