package store

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/klipach/cuchat/contract"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	DefaultUsersCollection = "users"
	DefaultChatsCollection = "chats"
)

var ErrNotFound = errors.New("document not found")

// FirestoreStore reads the documents written by the Android client.
type FirestoreStore struct {
	client *firestore.Client
	users  string
	chats  string
}

func NewFirestoreStore(client *firestore.Client, usersCollection, chatsCollection string) *FirestoreStore {
	if usersCollection == "" {
		usersCollection = DefaultUsersCollection
	}
	if chatsCollection == "" {
		chatsCollection = DefaultChatsCollection
	}
	return &FirestoreStore{
		client: client,
		users:  usersCollection,
		chats:  chatsCollection,
	}
}

func (s *FirestoreStore) User(ctx context.Context, userID string) (*contract.User, error) {
	user := &contract.User{}
	if err := s.get(ctx, s.users, userID, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *FirestoreStore) Chat(ctx context.Context, chatID string) (*contract.Chat, error) {
	chat := &contract.Chat{}
	if err := s.get(ctx, s.chats, chatID, chat); err != nil {
		return nil, err
	}
	return chat, nil
}

func (s *FirestoreStore) get(ctx context.Context, collection, id string, dst any) error {
	if id == "" {
		return fmt.Errorf("%s: empty id: %w", collection, ErrNotFound)
	}
	doc, err := s.client.Collection(collection).Doc(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
		}
		return fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	if !doc.Exists() {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	if err := doc.DataTo(dst); err != nil {
		return fmt.Errorf("decode %s/%s: %w", collection, id, err)
	}
	return nil
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}
