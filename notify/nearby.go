package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/klipach/cuchat/contract"
	"github.com/klipach/cuchat/push"
	"github.com/samber/lo"
)

// NotifyNearbyUser tells userID that nearbyUserID is in their vicinity.
func (s *Service) NotifyNearbyUser(ctx context.Context, userID, nearbyUserID string) {
	logger := loggerFrom(ctx,
		slog.String(userIDLogField, userID),
		slog.String(nearbyUserIDLogField, nearbyUserID),
	)

	user, err := s.store.User(ctx, userID)
	if err != nil {
		logLookupFailure(logger, "user", err)
		return
	}
	nearbyUser, err := s.store.User(ctx, nearbyUserID)
	if err != nil {
		logLookupFailure(logger, "nearby user", err)
		return
	}
	body := fmt.Sprintf(nearbyBodyFormat, lo.CoalesceOrEmpty(nearbyUser.Username, defaultSenderName))
	data := map[string]string{
		push.ClickActionKey: contract.ClickActionMap,
		userIDDataKey:       nearbyUserID,
	}

	messageID, err := s.sender.Send(ctx, push.NewMessage(user.FCMToken, nearbyTitle, body, data))
	if err != nil {
		logSendFailure(logger, "error while sending nearby user notification", err)
		return
	}
	logger.Info("successfully sent nearby user notification", slog.String(messageIDLogField, messageID))
}
