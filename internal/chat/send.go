package chat

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rubihq/chat-sync/internal/models"
)

// SendMessage submits a new message for the active scope. A provisional
// entry is handed to the engine loop for immediate display; the
// change-stream echo is the authority for the final id, timestamp and
// position, not the write's return value. On write failure the provisional
// entry is marked failed and stays visible for user retry; there is no
// automatic retry.
func (e *Engine) SendMessage(ctx context.Context, content string, att *models.Attachment) (models.Message, error) {
	if strings.TrimSpace(content) == "" && att == nil {
		return models.Message{}, models.ErrEmptySubmission
	}

	// Generation before scope: if a switch lands in between, the stamp is
	// stale and the loop drops the provisional instead of leaking it into the
	// new scope.
	gen := e.gen.Load()
	scope := e.Scope()
	token := uuid.NewString()

	provisional := models.Message{
		AuthorID:    e.selfID,
		Content:     content,
		Attachment:  att,
		RoomID:      scope.RoomID,
		ClientToken: token,
		CreatedAt:   time.Now(),
		Status:      models.StatusPending,
	}
	e.post(provisionalQueued{genStamp{gen}, provisional})

	// Bounded wait for the confirming echo. The timer event is stamped with
	// the generation active at send time, so a scope switch defuses it.
	time.AfterFunc(e.reconcileTimeout, func() {
		e.post(reconcileExpired{genStamp{gen}, token})
	})

	// Sending always clears the local typing state.
	e.SetComposing(ctx, false)

	if _, err := e.messages.CreateMessage(ctx, provisional); err != nil {
		// Posted, not applied directly: the loop sees the provisional first.
		e.post(sendFailed{genStamp{gen}, token})
		return provisional, &models.RemoteWriteError{Op: "send message", Err: err}
	}
	return provisional, nil
}

// SendReaction upserts the local user's reaction on a message. A repeat call
// with a different emoji overwrites the previous one. The local index is
// updated optimistically; the stream echo re-applies it idempotently.
func (e *Engine) SendReaction(ctx context.Context, messageID, emoji string) error {
	if messageID == "" || emoji == "" {
		return models.ErrEmptySubmission
	}
	r := models.Reaction{
		MessageID: messageID,
		AuthorID:  e.selfID,
		Emoji:     emoji,
	}
	e.post(reactionQueued{genStamp{e.gen.Load()}, r})
	if err := e.reactionsAPI.UpsertReaction(ctx, r); err != nil {
		return &models.RemoteWriteError{Op: "upsert reaction", Err: err}
	}
	return nil
}

// SetComposing publishes the local typing state. The signal is edge
// triggered: callers report the "has content" boolean on every change and
// only transitions reach the presence channel.
func (e *Engine) SetComposing(ctx context.Context, composing bool) {
	e.composeMu.Lock()
	if e.composing == composing {
		e.composeMu.Unlock()
		return
	}
	e.composing = composing
	e.composeMu.Unlock()

	e.post(composeChanged{genStamp{e.gen.Load()}, composing})
}
