package cuchat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"firebase.google.com/go/v4/auth"
	"firebase.google.com/go/v4/messaging"
	"github.com/klipach/cuchat/config"
	"github.com/klipach/cuchat/contract"
	"github.com/klipach/cuchat/event"
	"github.com/klipach/cuchat/log"
	"github.com/klipach/cuchat/mocks"
	"github.com/klipach/cuchat/notify"
	"github.com/klipach/cuchat/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type staticVerifier map[string]string

func (v staticVerifier) VerifyIDToken(_ context.Context, idToken string) (*auth.Token, error) {
	if uid, ok := v[idToken]; ok {
		return &auth.Token{UID: uid}, nil
	}
	return nil, errors.New("invalid token")
}

func newTestApp(t *testing.T) (*app, *mocks.MockStore, *mocks.MockSender, *bytes.Buffer) {
	ctrl := gomock.NewController(t)
	mockStore := mocks.NewMockStore(ctrl)
	mockSender := mocks.NewMockSender(ctrl)
	var logs bytes.Buffer
	return &app{
		projectID: "cuchat-test",
		logger:    slog.New(log.NewCloudLoggingHandler(&logs, slog.LevelDebug)),
		verifier:  staticVerifier{"alice-id-token": "alice"},
		service:   notify.NewService(mockStore, mockSender),
	}, mockStore, mockSender, &logs
}

func callableRequest(t *testing.T, idToken string, data any) *http.Request {
	t.Helper()
	body, err := json.Marshal(map[string]any{"data": data})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/SendNotification", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(log.TraceHeader, "4bf92f3577b34da6a3ce929d0e0e4736/1;o=1")
	if idToken != "" {
		req.Header.Set("Authorization", "Bearer "+idToken)
	}
	return req
}

func TestSendNotificationHandler(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		a, mockStore, mockSender, logs := newTestApp(t)
		mockStore.EXPECT().User(gomock.Any(), "bob").Return(&contract.User{FCMToken: "bob-token"}, nil)
		mockSender.EXPECT().
			Send(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, msg *messaging.Message) (string, error) {
				assert.Equal(t, "bob-token", msg.Token)
				return "projects/cuchat-test/messages/42", nil
			})

		rec := httptest.NewRecorder()
		a.sendNotification(rec, callableRequest(t, "alice-id-token", map[string]any{
			"receiverId": "bob",
			"title":      "Hi",
			"body":       "ping",
		}))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"result":{"success":true,"messageId":"projects/cuchat-test/messages/42"}}`, rec.Body.String())
		assert.Contains(t, logs.String(), `"logging.googleapis.com/trace":"projects/cuchat-test/traces/4bf92f3577b34da6a3ce929d0e0e4736"`)
		assert.Contains(t, logs.String(), `"userID":"alice"`)
	})

	tests := []struct {
		name           string
		idToken        string
		data           any
		setup          func(s *mocks.MockStore)
		expectedStatus int
		expectedError  string
	}{
		{
			name:           "missing auth",
			idToken:        "",
			data:           map[string]any{"receiverId": "bob"},
			expectedStatus: http.StatusUnauthorized,
			expectedError:  "UNAUTHENTICATED",
		},
		{
			name:           "rejected auth",
			idToken:        "forged",
			data:           map[string]any{"receiverId": "bob"},
			expectedStatus: http.StatusUnauthorized,
			expectedError:  "UNAUTHENTICATED",
		},
		{
			name:           "missing receiver",
			idToken:        "alice-id-token",
			data:           map[string]any{"title": "Hi"},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "INVALID_ARGUMENT",
		},
		{
			name:    "unknown receiver",
			idToken: "alice-id-token",
			data:    map[string]any{"receiverId": "ghost"},
			setup: func(s *mocks.MockStore) {
				s.EXPECT().User(gomock.Any(), "ghost").Return(nil, store.ErrNotFound)
			},
			expectedStatus: http.StatusNotFound,
			expectedError:  "NOT_FOUND",
		},
		{
			name:    "receiver without token",
			idToken: "alice-id-token",
			data:    map[string]any{"receiverId": "bob"},
			setup: func(s *mocks.MockStore) {
				s.EXPECT().User(gomock.Any(), "bob").Return(&contract.User{Username: "Bob"}, nil)
			},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "FAILED_PRECONDITION",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, mockStore, mockSender, _ := newTestApp(t)
			if tt.setup != nil {
				tt.setup(mockStore)
			}
			mockSender.EXPECT().Send(gomock.Any(), gomock.Any()).Times(0)

			rec := httptest.NewRecorder()
			a.sendNotification(rec, callableRequest(t, tt.idToken, tt.data))

			assert.Equal(t, tt.expectedStatus, rec.Code)
			var body struct {
				Error struct {
					Status string `json:"status"`
				} `json:"error"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.expectedError, body.Error.Status)
		})
	}
}

func firestoreEvent(t *testing.T, name string, fields string) event.FirestoreEvent {
	t.Helper()
	payload := `{"oldValue":{},"updateMask":{},"value":{"name":"` + name + `","fields":` + fields + `}}`
	var e event.FirestoreEvent
	require.NoError(t, json.NewDecoder(strings.NewReader(payload)).Decode(&e))
	return e
}

func TestSendChatNotificationEvent(t *testing.T) {
	t.Run("dispatches the created message", func(t *testing.T) {
		a, mockStore, mockSender, _ := newTestApp(t)
		e := firestoreEvent(t,
			"projects/cuchat-test/databases/(default)/documents/chats/c1/messages/m1",
			`{"senderId":{"stringValue":"alice"},"receiverId":{"stringValue":"bob"},"content":{"stringValue":"hey"}}`,
		)

		mockStore.EXPECT().Chat(gomock.Any(), "c1").Return(&contract.Chat{ChatID: "c1"}, nil)
		mockStore.EXPECT().User(gomock.Any(), "bob").Return(&contract.User{FCMToken: "bob-token"}, nil)
		mockStore.EXPECT().User(gomock.Any(), "alice").Return(&contract.User{Username: "Alice"}, nil)
		mockSender.EXPECT().
			Send(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, msg *messaging.Message) (string, error) {
				assert.Equal(t, "Alice", msg.Notification.Title)
				assert.Equal(t, "hey", msg.Notification.Body)
				assert.Equal(t, "c1", msg.Data["chat_id"])
				return "m-1", nil
			}).
			Times(1)

		a.sendChatNotification(context.Background(), e)
	})

	t.Run("ignores documents outside the chat messages path", func(t *testing.T) {
		a, _, mockSender, logs := newTestApp(t)
		e := firestoreEvent(t,
			"projects/cuchat-test/databases/(default)/documents/groups/g1/messages/m1",
			`{"senderId":{"stringValue":"alice"}}`,
		)
		mockSender.EXPECT().Send(gomock.Any(), gomock.Any()).Times(0)

		a.sendChatNotification(context.Background(), e)

		assert.Contains(t, logs.String(), "error while parsing document name")
	})
}

func TestSendNearbyUserNotificationEvent(t *testing.T) {
	a, mockStore, mockSender, _ := newTestApp(t)
	e := firestoreEvent(t,
		"projects/cuchat-test/databases/(default)/documents/users/u1/nearbyUsers/u2",
		`{}`,
	)

	mockStore.EXPECT().User(gomock.Any(), "u1").Return(&contract.User{FCMToken: "u1-token"}, nil)
	mockStore.EXPECT().User(gomock.Any(), "u2").Return(&contract.User{Username: "Victor"}, nil)
	mockSender.EXPECT().
		Send(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, msg *messaging.Message) (string, error) {
			assert.Equal(t, "u1-token", msg.Token)
			assert.Equal(t, "Victor is now in your vicinity", msg.Notification.Body)
			return "m-1", nil
		}).
		Times(1)

	a.sendNearbyUserNotification(context.Background(), e)
}

func TestAppLoader(t *testing.T) {
	t.Run("retries after a failed build", func(t *testing.T) {
		built, _, _, _ := newTestApp(t)
		calls := 0
		loader := &appLoader{build: func(context.Context) (*app, error) {
			calls++
			if _, err := config.Load(); err != nil {
				return nil, err
			}
			return built, nil
		}}

		t.Setenv("LOG_LEVEL", "bogus")
		a, err := loader.load()
		require.Error(t, err)
		assert.Nil(t, a)

		t.Setenv("LOG_LEVEL", "info")
		a, err = loader.load()
		require.NoError(t, err)
		assert.Same(t, built, a)

		a, err = loader.load()
		require.NoError(t, err)
		assert.Same(t, built, a)
		assert.Equal(t, 2, calls)
	})

	t.Run("does not cache a failed initialization", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "bogus")
		calls := 0
		loader := &appLoader{build: func(ctx context.Context) (*app, error) {
			calls++
			return newApp(ctx)
		}}

		for range 2 {
			a, err := loader.load()
			require.Error(t, err)
			assert.Nil(t, a)
		}
		assert.Equal(t, 2, calls)
	})
}

func TestInvocationsFlushLogs(t *testing.T) {
	a, mockStore, mockSender, _ := newTestApp(t)
	flushed := 0
	a.flush = func() error {
		flushed++
		return nil
	}

	mockStore.EXPECT().User(gomock.Any(), "u1").Return(nil, store.ErrNotFound)
	mockStore.EXPECT().User(gomock.Any(), "u2").Return(&contract.User{}, nil).AnyTimes()
	mockSender.EXPECT().Send(gomock.Any(), gomock.Any()).Times(0)
	a.sendNearbyUserNotification(context.Background(), firestoreEvent(t,
		"projects/cuchat-test/databases/(default)/documents/users/u1/nearbyUsers/u2",
		`{}`,
	))
	assert.Equal(t, 1, flushed)

	a.sendChatNotification(context.Background(), firestoreEvent(t,
		"projects/cuchat-test/databases/(default)/documents/groups/g1",
		`{}`,
	))
	assert.Equal(t, 2, flushed)

	rec := httptest.NewRecorder()
	a.sendNotification(rec, callableRequest(t, "", map[string]any{"receiverId": "bob"}))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, 3, flushed)
}
