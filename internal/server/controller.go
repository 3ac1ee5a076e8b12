package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rubihq/chat-sync/internal/chat"
	"github.com/rubihq/chat-sync/internal/config"
	"github.com/rubihq/chat-sync/internal/models"
	"github.com/rubihq/chat-sync/internal/repo/assist"
)

type Controller interface {
	Health(c echo.Context) error
	ListMessages(c echo.Context) error
	SendMessage(c echo.Context) error
	SendReaction(c echo.Context) error
	UploadAttachment(c echo.Context) error
	SendVoice(c echo.Context) error
	Assist(c echo.Context) error
	SetScope(c echo.Context) error
	GetTyping(c echo.Context) error
	SetTyping(c echo.Context) error
}

type controller struct {
	selfID      string
	engine      *chat.Engine
	attachments *chat.Attachments
	profiles    *chat.Profiles
	assist      *assist.Client
}

func NewHandler(
	conf *config.Config,
	engine *chat.Engine,
	attachments *chat.Attachments,
	profiles *chat.Profiles,
	assistClient *assist.Client,
) Controller {
	return &controller{
		selfID:      conf.Chat.UserID,
		engine:      engine,
		attachments: attachments,
		profiles:    profiles,
		assist:      assistClient,
	}
}

func (h *controller) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":   "healthy",
		"service":  "chat-sync",
		"degraded": h.engine.Degraded(),
	})
}

type messageView struct {
	models.Message
	Reactions  []models.Reaction `json:"reactions,omitempty"`
	AuthorName string            `json:"author_name,omitempty"`
}

type messagesResponse struct {
	Scope    models.Scope  `json:"scope"`
	Degraded bool          `json:"degraded"`
	Messages []messageView `json:"messages"`
}

func (h *controller) ListMessages(c echo.Context) error {
	ctx := c.Request().Context()
	msgs := h.engine.Messages()

	views := make([]messageView, len(msgs))
	for i, m := range msgs {
		view := messageView{Message: m}
		if m.ID != "" {
			view.Reactions = h.engine.ReactionsFor(m.ID)
		}
		if profile, err := h.profiles.Get(ctx, m.AuthorID); err == nil {
			view.AuthorName = profile.DisplayName
		}
		views[i] = view
	}

	return c.JSON(http.StatusOK, messagesResponse{
		Scope:    h.engine.Scope(),
		Degraded: h.engine.Degraded(),
		Messages: views,
	})
}

type sendMessageRequest struct {
	Content    string             `json:"content"`
	Attachment *models.Attachment `json:"attachment,omitempty"`
}

func (h *controller) SendMessage(c echo.Context) error {
	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	msg, err := h.engine.SendMessage(c.Request().Context(), req.Content, req.Attachment)
	if err != nil {
		return sendError(err)
	}
	return c.JSON(http.StatusAccepted, msg)
}

type sendReactionRequest struct {
	MessageID string `json:"message_id" validate:"required"`
	Emoji     string `json:"emoji" validate:"required"`
}

func (h *controller) SendReaction(c echo.Context) error {
	var req sendReactionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.engine.SendReaction(c.Request().Context(), req.MessageID, req.Emoji); err != nil {
		return sendError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *controller) UploadAttachment(c echo.Context) error {
	att, err := h.readUpload(c, "file")
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, att)
}

// SendVoice runs the voice flow end to end: upload the clip, transcribe it,
// then send the transcript as a message carrying the audio attachment.
func (h *controller) SendVoice(c echo.Context) error {
	ctx := c.Request().Context()

	att, err := h.readUpload(c, "audio")
	if err != nil {
		return err
	}

	transcript, err := h.assist.Transcribe(ctx, att.URL)
	if err != nil {
		if errors.Is(err, assist.ErrDisabled) {
			return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}

	msg, err := h.engine.SendMessage(ctx, transcript, att)
	if err != nil {
		return sendError(err)
	}
	return c.JSON(http.StatusAccepted, msg)
}

type assistRequest struct {
	Prompt string `json:"prompt" validate:"required"`
}

type assistResponse struct {
	Text string `json:"text"`
}

func (h *controller) Assist(c echo.Context) error {
	var req assistRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	text, err := h.assist.Complete(c.Request().Context(), req.Prompt)
	if err != nil {
		if errors.Is(err, assist.ErrDisabled) {
			return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusOK, assistResponse{Text: text})
}

func (h *controller) SetScope(c echo.Context) error {
	var scope models.Scope
	if err := c.Bind(&scope); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	h.engine.SetScope(scope)
	return c.JSON(http.StatusOK, scope)
}

type typingView struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name,omitempty"`
}

func (h *controller) GetTyping(c echo.Context) error {
	ctx := c.Request().Context()
	userIDs := h.engine.TypingUsers()

	views := make([]typingView, len(userIDs))
	for i, id := range userIDs {
		views[i] = typingView{UserID: id}
		if profile, err := h.profiles.Get(ctx, id); err == nil {
			views[i].DisplayName = profile.DisplayName
		}
	}
	return c.JSON(http.StatusOK, map[string]any{"typing": views})
}

type setTypingRequest struct {
	Typing bool `json:"typing"`
}

func (h *controller) SetTyping(c echo.Context) error {
	var req setTypingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	h.engine.SetComposing(c.Request().Context(), req.Typing)
	return c.NoContent(http.StatusNoContent)
}

func (h *controller) readUpload(c echo.Context, field string) (*models.Attachment, error) {
	fileHeader, err := c.FormFile(field)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "missing form file "+field)
	}
	src, err := fileHeader.Open()
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	defer src.Close()
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	contentType := fileHeader.Header.Get("Content-Type")
	att, err := h.attachments.Upload(c.Request().Context(), h.selfID, fileHeader.Filename, data, contentType)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return att, nil
}

func sendError(err error) error {
	switch {
	case errors.Is(err, models.ErrEmptySubmission):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
}
