package notify

import (
	"context"
	"errors"
	"log/slog"

	"github.com/klipach/cuchat/callable"
	"github.com/klipach/cuchat/contract"
	"github.com/klipach/cuchat/push"
	"github.com/klipach/cuchat/store"
	"github.com/samber/lo"
)

// SendNotification pushes a caller-composed notification to req.ReceiverID.
// Every failure is returned as a *callable.Error and no send happens before
// all preconditions hold.
func (s *Service) SendNotification(ctx context.Context, callerUID string, req contract.NotificationRequest) (*contract.NotificationResponse, error) {
	if callerUID == "" {
		return nil, callable.Errorf(callable.Unauthenticated, "The function must be called while authenticated.")
	}
	if err := validate.Struct(req); err != nil {
		return nil, callable.Errorf(callable.InvalidArgument, "invalid request: %v", err)
	}
	logger := loggerFrom(ctx,
		slog.String(userIDLogField, callerUID),
		slog.String(receiverIDLogField, req.ReceiverID),
	)

	receiver, err := s.store.User(ctx, req.ReceiverID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, callable.Errorf(callable.NotFound, "The specified user does not exist.")
		}
		logger.Error("error while reading receiver", slog.String(ErrorMsgLogField, err.Error()))
		return nil, callable.Errorf(callable.Internal, "%s", err.Error())
	}
	if receiver.FCMToken == "" {
		return nil, callable.Errorf(callable.FailedPrecondition, "The specified user does not have an FCM token.")
	}

	clickAction := lo.CoalesceOrEmpty(req.ClickAction, contract.ClickActionMain)
	// additionalData is applied last and may replace click_action
	data := lo.Assign(
		map[string]string{push.ClickActionKey: clickAction},
		push.StringData(req.AdditionalData),
	)

	messageID, err := s.sender.Send(ctx, push.NewMessage(receiver.FCMToken, req.Title, req.Body, data))
	if err != nil {
		logSendFailure(logger, "error while sending notification", err)
		return nil, callable.Errorf(callable.Internal, "%s", err.Error())
	}
	logger.Info("successfully sent message",
		slog.String(messageIDLogField, messageID),
		slog.String(clickActionLogField, data[push.ClickActionKey]),
	)

	return &contract.NotificationResponse{
		Success:   true,
		MessageID: messageID,
	}, nil
}
