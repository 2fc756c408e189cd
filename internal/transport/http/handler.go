// Package httptransport is the thin HTTP layer: it decodes query requests,
// delegates to the bot service and encodes its channel-neutral responses.
// No business logic lives here.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"auditchat/pkg/domain"
	dErrors "auditchat/pkg/domain-errors"
	"auditchat/pkg/platform/httputil"
	"auditchat/pkg/requestcontext"
)

// Bot is the message-processing capability this layer fronts.
type Bot interface {
	ProcessMessage(ctx context.Context, text string, conv *domain.ConversationContext) domain.Response
}

// QueryRequest is the POST /v1/query body.
type QueryRequest struct {
	Text      string `json:"text"`
	UserID    string `json:"user_id,omitempty"`
	ChannelID string `json:"channel_id,omitempty"`
}

// Handler handles the query endpoint.
type Handler struct {
	bot    Bot
	logger *slog.Logger
}

// NewHandler creates the query handler.
func NewHandler(bot Bot, logger *slog.Logger) *Handler {
	return &Handler{bot: bot, logger: logger}
}

// Register registers the query routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/query", h.handleQuery)
}

func (h *Handler) handleQuery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req QueryRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.logger.WarnContext(ctx, "invalid query request",
			"request_id", requestcontext.RequestID(ctx), "error", err)
		httputil.WriteError(w, err)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "text is required"))
		return
	}

	if req.ChannelID != "" {
		ctx = requestcontext.WithChannelID(ctx, req.ChannelID)
	}
	conv := &domain.ConversationContext{
		PlatformUserID: req.UserID,
		ChannelID:      req.ChannelID,
	}

	// The response carries its own success flag; transport always answers 200
	// once the request itself is well formed.
	resp := h.bot.ProcessMessage(ctx, req.Text, conv)
	httputil.WriteJSON(w, http.StatusOK, resp)
}
