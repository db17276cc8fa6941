package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/BradenHooton/inspireokc/internal/models"
	"github.com/BradenHooton/inspireokc/internal/services"
	pkghttp "github.com/BradenHooton/inspireokc/pkg/http"
)

// ChatStreamer relays a conversation to the language model
type ChatStreamer interface {
	Stream(ctx context.Context, messages []models.ChatMessage, emit func(delta string) error) error
}

// ChatRequest is the body of POST /api/chat
type ChatRequest struct {
	Messages []models.ChatMessage `json:"messages" validate:"required,min=1,max=50,dive"`
}

type chatDelta struct {
	Content string `json:"content"`
}

type chatChoice struct {
	Delta chatDelta `json:"delta"`
}

type chatFrame struct {
	Choices []chatChoice `json:"choices"`
}

// ChatHandler streams assistant replies as server-sent events
type ChatHandler struct {
	chat   ChatStreamer
	logger *slog.Logger
}

// NewChatHandler creates a new ChatHandler
func NewChatHandler(chat ChatStreamer, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{chat: chat, logger: logger}
}

// Stream handles POST /api/chat.
//
// Each upstream delta is written as
//
//	data: {"choices":[{"delta":{"content":"..."}}]}
//
// and a successful reply ends with "data: [DONE]". Failures before the first
// byte are reported as JSON errors; later failures end the stream without [DONE].
func (h *ChatHandler) Stream(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		pkghttp.WriteBadRequest(w, "invalid request body")
		return
	}
	if err := ValidateRequest(&req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	rc := http.NewResponseController(w)
	started := false
	start := func() {
		if started {
			return
		}
		started = true
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)
	}

	emit := func(delta string) error {
		start()
		frame, err := json.Marshal(chatFrame{Choices: []chatChoice{{Delta: chatDelta{Content: delta}}}})
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", frame); err != nil {
			return err
		}
		return rc.Flush()
	}

	err := h.chat.Stream(r.Context(), req.Messages, emit)
	if err != nil {
		if !started {
			if errors.Is(err, models.ErrUpstream) {
				h.logger.Warn("chat upstream unavailable", slog.Any("error", err))
				pkghttp.WriteBadGateway(w, "The assistant is unavailable right now. Please try again.")
				return
			}
			writeServiceError(w, h.logger, err)
			return
		}
		h.logger.Warn("chat stream ended early",
			slog.Int("messages", len(req.Messages)),
			slog.Any("error", err))
		return
	}

	start()
	_, _ = fmt.Fprint(w, "data: [DONE]\n\n")
	_ = rc.Flush()
}

var _ ChatStreamer = (*services.ChatProxyService)(nil)
