package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/rx3lixir/kanal/internal/db"
	"github.com/rx3lixir/kanal/pkg/jwt"
)

// PresenceTracker is the slice of the presence cache the handlers
// need. Failures are treated as cache misses, never as request errors.
type PresenceTracker interface {
	SetStatus(ctx context.Context, username, status string) error
	GetStatus(ctx context.Context, username string) (string, error)
	MarkOnline(ctx context.Context, username string) error
	IsOnline(ctx context.Context, username string) (bool, error)
}

// Mailer sends the email-confirmation message.
type Mailer interface {
	SendConfirmationEmail(to, username, token string) error
}

// BlobStore holds opaque attachment payloads.
type BlobStore interface {
	UploadAttachment(ctx context.Context, data []byte, contentType string) (string, error)
	GetPresignedURL(ctx context.Context, objectName string, expiry time.Duration) (string, error)
}

type Server struct {
	users      db.UserStore
	calls      db.CallStore
	signals    db.SignalingStore
	messages   db.MessageStore
	groups     db.GroupStore
	tokens     *jwt.Service
	presence   PresenceTracker
	mail       Mailer
	blobs      BlobStore
	log        *log.Logger
	httpServer *http.Server
}

func New(
	addr string,
	store *db.PostgresStore,
	tokens *jwt.Service,
	presence PresenceTracker,
	mail Mailer,
	blobs BlobStore,
	logger *log.Logger,
) *Server {
	s := &Server{
		users:    store,
		calls:    store,
		signals:  store,
		messages: store,
		groups:   store,
		tokens:   tokens,
		presence: presence,
		mail:     mail,
		blobs:    blobs,
		log:      logger,
	}

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.setupRoutes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
