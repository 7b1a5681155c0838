package cuchat

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"cloud.google.com/go/compute/metadata"
	"cloud.google.com/go/logging"
	firebase "firebase.google.com/go/v4"
	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/google/uuid"
	"github.com/klipach/cuchat/auth"
	"github.com/klipach/cuchat/callable"
	"github.com/klipach/cuchat/config"
	"github.com/klipach/cuchat/contract"
	"github.com/klipach/cuchat/event"
	"github.com/klipach/cuchat/log"
	"github.com/klipach/cuchat/notify"
	"github.com/klipach/cuchat/push"
	"github.com/klipach/cuchat/store"
)

const (
	invocationIDLogField = "invocationID"
	functionLogField     = "function"
	documentLogField     = "document"

	chatMessageDocument = "chats/{chatId}/messages/{messageId}"
	nearbyUserDocument  = "users/{userId}/nearbyUsers/{nearbyUserId}"
)

// app holds the clients shared by all invocations of one instance.
type app struct {
	projectID string
	logger    *slog.Logger
	verifier  auth.TokenVerifier
	service   *notify.Service
	// flush pushes buffered log entries out before the instance may freeze.
	flush func() error
}

// appLoader keeps the first app that builds successfully.
// A failed build is attempted again on the next invocation.
type appLoader struct {
	mu    sync.Mutex
	app   *app
	build func(context.Context) (*app, error)
}

func (l *appLoader) load() (*app, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.app != nil {
		return l.app, nil
	}
	a, err := l.build(context.Background())
	if err != nil {
		return nil, err
	}
	l.app = a
	return a, nil
}

var instance = &appLoader{build: newApp}

func loadApp() (*app, error) {
	return instance.load()
}

func init() {
	functions.HTTP("SendNotification", SendNotification)
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	projectID := cfg.ProjectID
	if projectID == "" {
		projectID, err = metadata.ProjectIDWithContext(ctx)
		if err != nil {
			return nil, fmt.Errorf("resolve project id: %w", err)
		}
	}

	logger, flush, err := newLogger(ctx, cfg, projectID)
	if err != nil {
		return nil, err
	}

	fbApp, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID})
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	firestoreClient, err := fbApp.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firestore client: %w", err)
	}
	messagingClient, err := fbApp.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("init messaging client: %w", err)
	}
	authClient, err := fbApp.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("init auth client: %w", err)
	}

	return &app{
		projectID: projectID,
		logger:    logger,
		flush:     flush,
		verifier:  authClient,
		service: notify.NewService(
			store.NewFirestoreStore(firestoreClient, cfg.UsersCollection, cfg.ChatsCollection),
			push.NewFCMSender(messagingClient, cfg.FCMDryRun),
		),
	}, nil
}

func newLogger(ctx context.Context, cfg *config.Config, projectID string) (*slog.Logger, func() error, error) {
	level := log.ParseLevel(cfg.LogLevel)
	if cfg.LogSink != config.LogSinkAPI {
		return slog.New(log.NewCloudLoggingHandler(os.Stdout, level)), nil, nil
	}
	client, err := logging.NewClient(ctx, projectID)
	if err != nil {
		return nil, nil, fmt.Errorf("init logging client: %w", err)
	}
	client.OnError = func(err error) {
		fmt.Fprintf(os.Stderr, "error while sending log entries: %v\n", err)
	}
	handler := log.NewAPIHandler(client.Logger(cfg.LogName), level)
	return slog.New(handler), handler.Flush, nil
}

func (a *app) flushLogs() {
	if a.flush == nil {
		return
	}
	if err := a.flush(); err != nil {
		fmt.Fprintf(os.Stderr, "error while flushing log entries: %v\n", err)
	}
}

// invocation scopes the logger to a single function call.
func (a *app) invocation(ctx context.Context, function string) (context.Context, *slog.Logger) {
	logger := a.logger.With(
		slog.String(invocationIDLogField, uuid.NewString()),
		slog.String(functionLogField, function),
	)
	return log.WithLogger(ctx, logger), logger
}

// SendNotification is the callable HTTPS function used by the client to push
// a notification to another user.
func SendNotification(w http.ResponseWriter, r *http.Request) {
	a, err := loadApp()
	if err != nil {
		log.LoggerFromContext(r.Context()).Error("error while initializing", slog.String(notify.ErrorMsgLogField, err.Error()))
		_ = callable.WriteError(w, callable.Errorf(callable.Internal, "service unavailable"))
		return
	}
	a.sendNotification(w, r)
}

// SendChatNotification is triggered by document.create on chats/{chatId}/messages/{messageId}.
func SendChatNotification(ctx context.Context, e event.FirestoreEvent) error {
	a, err := loadApp()
	if err != nil {
		log.LoggerFromContext(ctx).Error("error while initializing", slog.String(notify.ErrorMsgLogField, err.Error()))
		return nil
	}
	a.sendChatNotification(ctx, e)
	return nil
}

// SendNearbyUserNotification is triggered by document.create on users/{userId}/nearbyUsers/{nearbyUserId}.
func SendNearbyUserNotification(ctx context.Context, e event.FirestoreEvent) error {
	a, err := loadApp()
	if err != nil {
		log.LoggerFromContext(ctx).Error("error while initializing", slog.String(notify.ErrorMsgLogField, err.Error()))
		return nil
	}
	a.sendNearbyUserNotification(ctx, e)
	return nil
}

func (a *app) sendNotification(w http.ResponseWriter, r *http.Request) {
	defer a.flushLogs()
	ctx := log.WithTrace(r.Context(), log.TraceFromHeader(a.projectID, r.Header.Get(log.TraceHeader)))
	ctx, logger := a.invocation(ctx, "SendNotification")
	logger.InfoContext(ctx, "sendNotification function called")

	token, err := auth.Authenticate(ctx, a.verifier, r)
	if err != nil {
		logger.WarnContext(ctx, "error while authenticating", slog.String(notify.ErrorMsgLogField, err.Error()))
		a.writeError(ctx, w, callable.Errorf(callable.Unauthenticated, "The function must be called while authenticated."))
		return
	}

	var req contract.NotificationRequest
	if err := callable.Decode(r, &req); err != nil {
		logger.ErrorContext(ctx, "error while decoding request", slog.String(notify.ErrorMsgLogField, err.Error()))
		a.writeError(ctx, w, err)
		return
	}

	resp, err := a.service.SendNotification(ctx, token.UID, req)
	if err != nil {
		logger.ErrorContext(ctx, "error sending notification", slog.String(notify.ErrorMsgLogField, err.Error()))
		a.writeError(ctx, w, err)
		return
	}
	if err := callable.WriteResult(w, resp); err != nil {
		logger.ErrorContext(ctx, "error while writing response", slog.String(notify.ErrorMsgLogField, err.Error()))
	}
}

func (a *app) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	if werr := callable.WriteError(w, err); werr != nil {
		log.LoggerFromContext(ctx).ErrorContext(ctx, "error while writing response", slog.String(notify.ErrorMsgLogField, werr.Error()))
	}
}

func (a *app) sendChatNotification(ctx context.Context, e event.FirestoreEvent) {
	defer a.flushLogs()
	ctx, logger := a.invocation(ctx, "SendChatNotification")
	params, err := event.PathParams(chatMessageDocument, e.Value.Name)
	if err != nil {
		logger.ErrorContext(ctx, "error while parsing document name",
			slog.String(documentLogField, e.Value.Name),
			slog.String(notify.ErrorMsgLogField, err.Error()),
		)
		return
	}
	a.service.NotifyChatMessage(ctx, params["chatId"], e.Value.Message())
}

func (a *app) sendNearbyUserNotification(ctx context.Context, e event.FirestoreEvent) {
	defer a.flushLogs()
	ctx, logger := a.invocation(ctx, "SendNearbyUserNotification")
	params, err := event.PathParams(nearbyUserDocument, e.Value.Name)
	if err != nil {
		logger.ErrorContext(ctx, "error while parsing document name",
			slog.String(documentLogField, e.Value.Name),
			slog.String(notify.ErrorMsgLogField, err.Error()),
		)
		return
	}
	a.service.NotifyNearbyUser(ctx, params["userId"], params["nearbyUserId"])
}
