package push

import (
	"fmt"

	"firebase.google.com/go/v4/messaging"
)

const (
	defaultSound = "default"
	highPriority = "high"

	ClickActionKey = "click_action"
)

// NewMessage builds a high priority notification for a single device token.
// Android and APNs get the platform default sound, vibration and lights.
func NewMessage(token, title, body string, data map[string]string) *messaging.Message {
	return &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			Priority: highPriority,
			Notification: &messaging.AndroidNotification{
				Sound:                 defaultSound,
				DefaultSound:          true,
				DefaultVibrateTimings: true,
				DefaultLightSettings:  true,
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Sound: defaultSound,
				},
			},
		},
	}
}

// StringData converts arbitrary JSON values to the string-only map FCM accepts.
func StringData(values map[string]any) map[string]string {
	result := make(map[string]string, len(values))
	for k, v := range values {
		switch val := v.(type) {
		case nil:
			continue
		case string:
			result[k] = val
		default:
			result[k] = fmt.Sprint(val)
		}
	}
	return result
}
