package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/prn-tf/overflow-admin/internal/domain"
	"github.com/prn-tf/overflow-admin/internal/service"
)

// SweepTrigger runs one expiry sweep on demand.
type SweepTrigger interface {
	Tick(ctx context.Context) service.TickResult
}

// ModerationHandler serves the user ban endpoints.
type ModerationHandler struct {
	moderation *service.ModerationService
	sweeper    SweepTrigger
	validate   *validator.Validate
	config     ModerationHandlerConfig
	logger     zerolog.Logger
}

// ModerationHandlerConfig controls how ban requests are interpreted.
type ModerationHandlerConfig struct {
	// TestBansEnabled turns a banDuration equal to TestBanSentinel into a
	// short test ban instead of a ban measured in days.
	TestBansEnabled bool
	TestBanSentinel int
}

// NewModerationHandler creates a new ModerationHandler.
func NewModerationHandler(moderation *service.ModerationService, sweeper SweepTrigger, config ModerationHandlerConfig, logger zerolog.Logger) *ModerationHandler {
	return &ModerationHandler{
		moderation: moderation,
		sweeper:    sweeper,
		validate:   newValidator(),
		config:     config,
		logger:     logger.With().Str("handler", "moderation").Logger(),
	}
}

// RegisterRoutes registers moderation routes.
func (h *ModerationHandler) RegisterRoutes(r chi.Router) {
	// Static segments first so chi does not read them as user IDs.
	r.Post("/users/auto-unban", h.handleAutoUnban)
	r.Get("/users/temporary-bans", h.handleTemporaryBans)

	r.Get("/users/{id}", h.handleGetUser)
	r.Post("/users/{id}/ban", h.handleBan)
	r.Post("/users/{id}/unban", h.handleUnban)
}

type banRequest struct {
	Reason      string `json:"reason" validate:"required,max=500"`
	SendEmail   *bool  `json:"sendEmail"`
	BanDuration *int   `json:"banDuration" validate:"omitempty,min=0,max=36500"`
}

type unbanRequest struct {
	SendEmail *bool `json:"sendEmail"`
}

type userResponse struct {
	Message string       `json:"message"`
	User    *domain.User `json:"user"`
}

type autoUnbanResponse struct {
	Count         int      `json:"count"`
	UnbannedUsers []string `json:"unbannedUsers"`
}

type temporaryBansResponse struct {
	Data  []*domain.User `json:"data"`
	Total int            `json:"total"`
}

func (h *ModerationHandler) handleBan(w http.ResponseWriter, r *http.Request) {
	var req banRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	input := service.BanInput{
		UserID:    chi.URLParam(r, "id"),
		Reason:    req.Reason,
		SendEmail: boolOr(req.SendEmail, true),
	}
	if req.BanDuration != nil {
		input.DurationDays = *req.BanDuration
		if h.config.TestBansEnabled && *req.BanDuration == h.config.TestBanSentinel {
			input.DurationDays = 0
			input.TestBan = true
		}
	}

	out, err := h.moderation.Ban(r.Context(), input)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, userResponse{Message: out.Message, User: out.User})
}

func (h *ModerationHandler) handleUnban(w http.ResponseWriter, r *http.Request) {
	var req unbanRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	out, err := h.moderation.Unban(r.Context(), service.UnbanInput{
		UserID:    chi.URLParam(r, "id"),
		SendEmail: boolOr(req.SendEmail, true),
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, userResponse{Message: out.Message, User: out.User})
}

// handleAutoUnban runs a scheduler tick, so manual sweeps take the same lock
// as the timer loop.
func (h *ModerationHandler) handleAutoUnban(w http.ResponseWriter, r *http.Request) {
	res := h.sweeper.Tick(r.Context())
	if res.Err != nil {
		writeServiceError(w, h.logger, res.Err)
		return
	}
	if res.Skipped {
		writeError(w, http.StatusConflict, "auto-unban is already running")
		return
	}

	writeJSON(w, http.StatusOK, autoUnbanResponse{Count: res.Result.Count, UnbannedUsers: res.Result.UnbannedUsers})
}

func (h *ModerationHandler) handleTemporaryBans(w http.ResponseWriter, r *http.Request) {
	users, err := h.moderation.ListTemporaryBans(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, temporaryBansResponse{Data: users, Total: len(users)})
}

func (h *ModerationHandler) handleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.moderation.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
