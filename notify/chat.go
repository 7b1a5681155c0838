package notify

import (
	"context"
	"log/slog"

	"github.com/klipach/cuchat/contract"
	"github.com/klipach/cuchat/push"
	"github.com/samber/lo"
)

// NotifyChatMessage tells the receiver of a new chat message about it.
//
// The receiver is skipped while marked online, whichever chat they have open.
// The client only records a global presence flag, so a receiver looking at a
// different chat gets no notification either.
func (s *Service) NotifyChatMessage(ctx context.Context, chatID string, msg contract.Message) {
	logger := loggerFrom(ctx,
		slog.String(chatIDLogField, chatID),
		slog.String(senderIDLogField, msg.SenderID),
		slog.String(receiverIDLogField, msg.ReceiverID),
	)

	if _, err := s.store.Chat(ctx, chatID); err != nil {
		logLookupFailure(logger, "chat", err)
		return
	}

	receiver, err := s.store.User(ctx, msg.ReceiverID)
	if err != nil {
		logLookupFailure(logger, "receiver", err)
		return
	}
	if receiver.IsOnline {
		logger.Info("receiver is online, not sending notification")
		return
	}
	sender, err := s.store.User(ctx, msg.SenderID)
	if err != nil {
		logLookupFailure(logger, "sender", err)
		return
	}

	title := lo.CoalesceOrEmpty(sender.Username, defaultSenderName)
	data := map[string]string{
		push.ClickActionKey: contract.ClickActionChat,
		chatIDDataKey:       chatID,
		userIDDataKey:       msg.SenderID,
	}

	messageID, err := s.sender.Send(ctx, push.NewMessage(receiver.FCMToken, title, msg.Content, data))
	if err != nil {
		logSendFailure(logger, "error while sending chat notification", err)
		return
	}
	logger.Info("successfully sent chat notification", slog.String(messageIDLogField, messageID))
}
