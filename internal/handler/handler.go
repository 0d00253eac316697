package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"payfriend/internal/deferred"
	"payfriend/internal/models"
	"payfriend/internal/service"
	"payfriend/internal/session"
	"payfriend/internal/transport"
	"payfriend/internal/validation"
)

// Handler provides HTTP handlers for the API.
type Handler struct {
	facade      service.Facade
	sessions    *session.Store
	logger      *slog.Logger
	maxBodySize int64
}

// NewHandlerOptions holds options for creating a handler.
type NewHandlerOptions struct {
	MaxBodySize int64
	Logger      *slog.Logger
}

// DefaultHandlerOptions returns default handler options.
func DefaultHandlerOptions() NewHandlerOptions {
	return NewHandlerOptions{
		MaxBodySize: 64 << 10,
		Logger:      slog.Default(),
	}
}

// NewHandler creates a new handler instance.
func NewHandler(facade service.Facade, sessions *session.Store) *Handler {
	return NewHandlerWithOptions(facade, sessions, DefaultHandlerOptions())
}

// NewHandlerWithOptions creates a new handler instance with custom options.
func NewHandlerWithOptions(facade service.Facade, sessions *session.Store, opts NewHandlerOptions) *Handler {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.MaxBodySize <= 0 {
		opts.MaxBodySize = DefaultHandlerOptions().MaxBodySize
	}
	return &Handler{
		facade:      facade,
		sessions:    sessions,
		logger:      opts.Logger,
		maxBodySize: opts.MaxBodySize,
	}
}

// GetOffers handles GET /api/v1/offers
func (h *Handler) GetOffers(w http.ResponseWriter, r *http.Request) {
	offers, err := h.facade.GetOffers(r.Context())
	if err != nil {
		h.respondFacadeError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, offers)
}

// GetMiniApps handles GET /api/v1/mini-apps
func (h *Handler) GetMiniApps(w http.ResponseWriter, r *http.Request) {
	apps, err := h.facade.GetMiniApps(r.Context())
	if err != nil {
		h.respondFacadeError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, apps)
}

// GetCreditScore handles GET /api/v1/credit-score
func (h *Handler) GetCreditScore(w http.ResponseWriter, r *http.Request) {
	report, err := h.facade.GetCreditScore(r.Context())
	if err != nil {
		h.respondFacadeError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, report)
}

// GetHome handles GET /api/v1/home. The three fetches run concurrently; any
// failure fails the whole response.
func (h *Handler) GetHome(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	offers := deferred.Go(ctx, h.facade.GetOffers)
	apps := deferred.Go(ctx, h.facade.GetMiniApps)
	score := deferred.Go(ctx, h.facade.GetCreditScore)

	var home models.HomeScreen
	var err error
	if home.Offers, err = offers.Await(ctx); err != nil {
		h.respondFacadeError(w, r, err)
		return
	}
	if home.MiniApps, err = apps.Await(ctx); err != nil {
		h.respondFacadeError(w, r, err)
		return
	}
	if home.CreditScore, err = score.Await(ctx); err != nil {
		h.respondFacadeError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, home)
}

// StartSession handles POST /api/v1/session
func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	var req models.StartSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err == io.EOF {
			h.respondError(w, http.StatusBadRequest, "request body is required")
			return
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.respondError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		h.respondError(w, http.StatusBadRequest, "invalid JSON in request body")
		return
	}

	req.UserID = validation.SanitizeString(req.UserID)
	if err := validation.ValidateStartSession(req); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess, err := h.sessions.Start(r.Context(), req.UserID, req.AccessToken)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to start session", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to start session")
		return
	}

	sess.AccessToken = ""
	h.respondJSON(w, http.StatusCreated, sess)
}

// Logout handles POST /api/v1/session/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.facade.Logout(r.Context()); err != nil {
		h.respondFacadeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// respondFacadeError keeps backend client errors visible to the caller and
// reports everything else as a bad gateway. The error detail, which may carry
// a backend body, stays in the log.
func (h *Handler) respondFacadeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusBadGateway
	if s := transport.StatusOf(err); s >= 400 {
		status = s
	}
	h.logger.WarnContext(r.Context(), "facade call failed",
		"path", r.URL.Path,
		"status", status,
		"error", err,
	)
	h.respondError(w, status, http.StatusText(status))
}

// respondJSON sends a JSON response with the given status code.
func (h *Handler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

// respondError sends an error response with the given status code and message.
func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, models.ErrorResponse{Error: message})
}
