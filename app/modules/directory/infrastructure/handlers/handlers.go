package directoryhandlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	authhandlers "github.com/Black-And-White-Club/club-ladder/app/modules/auth/infrastructure/handlers"
	directorydomain "github.com/Black-And-White-Club/club-ladder/app/modules/directory/domain"
	"github.com/Black-And-White-Club/club-ladder/app/shared/apperrors"
	"github.com/Black-And-White-Club/club-ladder/app/shared/httpx"
	"github.com/go-chi/chi/v5"
)

// Service is the slice of the directory the handlers need.
type Service interface {
	directorydomain.Directory
	RegisterPlayer(ctx context.Context, p directorydomain.Player) error
}

// DirectoryHandlers serves /api/players.
type DirectoryHandlers struct {
	service Service
	logger  *slog.Logger
}

func NewDirectoryHandlers(service Service, logger *slog.Logger) *DirectoryHandlers {
	return &DirectoryHandlers{service: service, logger: logger}
}

// Register mounts the routes on an authenticated router.
func (h *DirectoryHandlers) Register(r chi.Router) {
	r.Route("/api/players", func(r chi.Router) {
		r.Put("/me", h.UpdateMe)
		r.Get("/{playerID}", h.GetPlayer)
	})
}

type profileRequest struct {
	Name      string  `json:"name"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}

// GetPlayer handles GET /api/players/{playerID}.
func (h *DirectoryHandlers) GetPlayer(w http.ResponseWriter, r *http.Request) {
	playerID, err := httpx.UUIDParam(r, "playerID")
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	player, err := h.service.GetPlayer(r.Context(), playerID)
	if err != nil {
		if errors.Is(err, directorydomain.ErrPlayerNotFound) {
			err = apperrors.NotFound("player %s not found", playerID)
		}
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, player)
}

// UpdateMe handles PUT /api/players/me, creating the caller's profile on
// first use. The rating is owned by the match module and kept as stored.
func (h *DirectoryHandlers) UpdateMe(w http.ResponseWriter, r *http.Request) {
	callerID, err := authhandlers.CallerID(r)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	var req profileRequest
	if err := httpx.ReadJSON(w, r, &req); err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		httpx.WriteError(w, r, h.logger, apperrors.Validation("name is required"))
		return
	}

	player := directorydomain.Player{ID: callerID, Name: name, AvatarURL: req.AvatarURL}
	existing, err := h.service.GetPlayer(r.Context(), callerID)
	switch {
	case err == nil:
		player.Rating = existing.Rating
	case !errors.Is(err, directorydomain.ErrPlayerNotFound):
		httpx.WriteError(w, r, h.logger, err)
		return
	}

	if err := h.service.RegisterPlayer(r.Context(), player); err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, player)
}
