package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/iho/ledgerbot/internal/adapter/http/dto"
	"github.com/iho/ledgerbot/internal/adapter/http/middleware"
	"github.com/iho/ledgerbot/internal/domain"
	"github.com/iho/ledgerbot/internal/usecase"
)

// invalidMessageReply answers bodies without usable content.
const invalidMessageReply = "Please send a valid message."

// maxChatBody bounds the chat request body.
const maxChatBody = 16 << 10

// ChatService answers one chat turn.
type ChatService interface {
	Reply(ctx context.Context, in usecase.ChatInput) usecase.ChatReply
}

// ChatHandler handles chat messages.
type ChatHandler struct {
	chat ChatService
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(chat ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

// Send answers a chat envelope with a bot envelope. When the caller is
// authenticated the token subject replaces the envelope sender.
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req dto.ChatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxChatBody)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, domain.NewBotMessage(invalidMessageReply))
		return
	}

	if req.Blank() {
		writeJSON(w, http.StatusOK, domain.NewBotMessage(invalidMessageReply))
		return
	}

	in := req.ToUseCaseInput()
	if p, ok := middleware.PrincipalFromContext(r.Context()); ok {
		in.Sender = p.Subject
	}

	reply := h.chat.Reply(r.Context(), in)
	if reply.TransferID != "" {
		w.Header().Set("X-Transfer-Id", reply.TransferID)
	}

	writeJSON(w, http.StatusOK, reply.Message())
}
