package contract

type User struct {
	Username        string `firestore:"username"`
	Email           string `firestore:"email"`
	ProfileImageURL string `firestore:"profileImageUrl"`
	Status          string `firestore:"status"`
	FCMToken        string `firestore:"fcmToken"`
	IsOnline        bool   `firestore:"isOnline"`
	LastSeen        int64  `firestore:"lastSeen"`
}

type Chat struct {
	ChatID               string   `firestore:"chatId"`
	User1ID              string   `firestore:"user1Id"`
	User2ID              string   `firestore:"user2Id"`
	Participants         []string `firestore:"participants"`
	LastMessageContent   string   `firestore:"lastMessageContent"`
	LastMessageTimestamp int64    `firestore:"lastMessageTimestamp"`
}

type Message struct {
	SenderID        string `firestore:"senderId"`
	ReceiverID      string `firestore:"receiverId"`
	Content         string `firestore:"content"`
	Timestamp       int64  `firestore:"timestamp"`
	Seen            bool   `firestore:"seen"`
	IsSystemMessage bool   `firestore:"isSystemMessage"`
}
