package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/prn-tf/overflow-admin/internal/domain"
	"github.com/prn-tf/overflow-admin/internal/service"
)

// ContentHandler serves hide and unhide for questions, answers and replies.
type ContentHandler struct {
	visibility *service.VisibilityService
	validate   *validator.Validate
	logger     zerolog.Logger
}

// NewContentHandler creates a new ContentHandler.
func NewContentHandler(visibility *service.VisibilityService, logger zerolog.Logger) *ContentHandler {
	return &ContentHandler{
		visibility: visibility,
		validate:   newValidator(),
		logger:     logger.With().Str("handler", "content").Logger(),
	}
}

// RegisterRoutes registers content routes. {kind} is questions, answers or replies.
func (h *ContentHandler) RegisterRoutes(r chi.Router) {
	r.Post("/{kind}/{id}/hide", h.handleHide)
	r.Post("/{kind}/{id}/unhide", h.handleUnhide)
}

type hideRequest struct {
	Reason    string `json:"reason" validate:"required,max=500"`
	SendEmail bool   `json:"sendEmail"`
}

func (h *ContentHandler) handleHide(w http.ResponseWriter, r *http.Request) {
	kind, err := domain.ParseContentKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	var req hideRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	content, err := h.visibility.Hide(r.Context(), service.HideInput{
		Kind:      kind,
		ContentID: chi.URLParam(r, "id"),
		Reason:    req.Reason,
		SendEmail: req.SendEmail,
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, content)
}

func (h *ContentHandler) handleUnhide(w http.ResponseWriter, r *http.Request) {
	kind, err := domain.ParseContentKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	content, err := h.visibility.Unhide(r.Context(), kind, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, content)
}
