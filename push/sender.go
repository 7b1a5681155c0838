package push

import (
	"context"

	"firebase.google.com/go/v4/messaging"
)

// FCMSender delivers messages through Firebase Cloud Messaging.
type FCMSender struct {
	client *messaging.Client
	dryRun bool
}

func NewFCMSender(client *messaging.Client, dryRun bool) *FCMSender {
	return &FCMSender{
		client: client,
		dryRun: dryRun,
	}
}

// Send issues exactly one send call and returns the FCM message id.
func (s *FCMSender) Send(ctx context.Context, msg *messaging.Message) (string, error) {
	if s.dryRun {
		return s.client.SendDryRun(ctx, msg)
	}
	return s.client.Send(ctx, msg)
}

// IsStaleToken reports whether FCM rejected the token as no longer registered.
func IsStaleToken(err error) bool {
	return err != nil && messaging.IsUnregistered(err)
}
