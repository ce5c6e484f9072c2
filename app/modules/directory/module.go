package directory

import (
	"context"

	directoryservice "github.com/Black-And-White-Club/club-ladder/app/modules/directory/application"
	directoryhandlers "github.com/Black-And-White-Club/club-ladder/app/modules/directory/infrastructure/handlers"
	directorydb "github.com/Black-And-White-Club/club-ladder/app/modules/directory/infrastructure/repositories"
	"github.com/Black-And-White-Club/club-ladder/app/observability"
	"github.com/go-chi/chi/v5"
	"github.com/uptrace/bun"
)

// Module is the player directory the ladder and match modules read profiles
// from.
type Module struct {
	Service  *directoryservice.DirectoryService
	handlers *directoryhandlers.DirectoryHandlers
}

func NewDirectoryModule(ctx context.Context, obs observability.Observability, db *bun.DB) *Module {
	obs.Logger.InfoContext(ctx, "directory.NewDirectoryModule initializing")

	service := directoryservice.NewDirectoryService(directorydb.NewRepository(db), obs.Logger, db)
	return &Module{
		Service:  service,
		handlers: directoryhandlers.NewDirectoryHandlers(service, obs.Logger),
	}
}

// RegisterRoutes mounts /api/players on an authenticated router.
func (m *Module) RegisterRoutes(r chi.Router) {
	m.handlers.Register(r)
}
