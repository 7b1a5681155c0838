package contract

// click actions understood by the Android client
const (
	ClickActionMain = "MAIN_ACTIVITY"
	ClickActionChat = "CHAT_ACTIVITY"
	ClickActionMap  = "MAP_FRAGMENT"
)

type NotificationRequest struct {
	ReceiverID     string         `json:"receiverId" validate:"required"`
	Title          string         `json:"title"`
	Body           string         `json:"body"`
	ClickAction    string         `json:"clickAction,omitempty"`
	AdditionalData map[string]any `json:"additionalData,omitempty"`
}

type NotificationResponse struct {
	Success   bool   `json:"success"`
	MessageID string `json:"messageId"`
}
