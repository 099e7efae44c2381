package bridge

import (
	"errors"
	"fmt"
	"sync"

	"github.com/bitrise-io/go-utils/v2/log"

	"github.com/keshan-spec/drivelife-app-core/background"
	"github.com/keshan-spec/drivelife-app-core/upload"
)

// ErrAuthRequired means a createPost message arrived without a populated
// user identifier; no upload batch is started.
var ErrAuthRequired = errors.New("authentication required")

// Notifier is the outbound side of the bridge. On success the web content
// is reloaded so it can reflect the new post; failures are surfaced as a
// retry-capable native alert, not routed through the web content.
type Notifier interface {
	ReloadContent()
	ShowRetryableError(message string)
}

// BatchStarter launches upload batches. Implemented by background.Runner.
type BatchStarter interface {
	Start(req background.Request, onProgress upload.ProgressFunc, onDone func(background.Result)) error
}

// Handler dispatches inbound bridge messages to the native layer.
type Handler struct {
	runner   BatchStarter
	notifier Notifier
	logger   log.Logger

	mu   sync.Mutex
	auth AuthData
}

// NewHandler creates a bridge message handler.
func NewHandler(runner BatchStarter, notifier Notifier, logger log.Logger) *Handler {
	return &Handler{
		runner:   runner,
		notifier: notifier,
		logger:   logger,
	}
}

// Handle decodes and dispatches one raw inbound message.
func (h *Handler) Handle(raw []byte) error {
	msg, err := ParseMessage(raw)
	if err != nil {
		return err
	}

	switch msg.Type {
	case TypeAuthData:
		h.setAuth(*msg.Auth)
		h.logger.Debugf("Bridge auth data updated")
		return nil
	case TypeSignOut:
		h.setAuth(AuthData{})
		h.logger.Debugf("Bridge auth data cleared")
		return nil
	case TypeCreatePost:
		return h.handleCreatePost(*msg.CreatePost)
	default:
		return fmt.Errorf("unhandled bridge message type %q", msg.Type)
	}
}

// UserID returns the currently authenticated user, or empty.
func (h *Handler) UserID() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.auth.UserID
}

func (h *Handler) setAuth(auth AuthData) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.auth = auth
}

func (h *Handler) handleCreatePost(payload CreatePostPayload) error {
	userID := payload.UserID
	if userID == "" {
		userID = h.UserID()
	}
	if userID == "" {
		h.notifier.ShowRetryableError("Please sign in to create a post.")
		return ErrAuthRequired
	}

	err := h.runner.Start(background.Request{
		UserID:         userID,
		Caption:        payload.Caption,
		Location:       payload.Location,
		TaggedEntities: payload.TaggedEntities,
		Items:          payload.Media,
	}, nil, func(result background.Result) {
		if result.Err != nil {
			h.notifier.ShowRetryableError("Your post could not be created. Please try again.")
			return
		}
		h.notifier.ReloadContent()
	})
	if err != nil {
		if errors.Is(err, background.ErrConcurrentUpload) {
			h.notifier.ShowRetryableError("Another post is still uploading. Please wait for it to finish.")
		}
		return err
	}

	return nil
}
