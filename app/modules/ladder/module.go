package ladder

import (
	"context"

	"github.com/Black-And-White-Club/club-ladder/app/modules/activity"
	directorydomain "github.com/Black-And-White-Club/club-ladder/app/modules/directory/domain"
	ladderservice "github.com/Black-And-White-Club/club-ladder/app/modules/ladder/application"
	ladderhandlers "github.com/Black-And-White-Club/club-ladder/app/modules/ladder/infrastructure/handlers"
	ladderdb "github.com/Black-And-White-Club/club-ladder/app/modules/ladder/infrastructure/repositories"
	ladderrouter "github.com/Black-And-White-Club/club-ladder/app/modules/ladder/infrastructure/router"
	"github.com/Black-And-White-Club/club-ladder/app/observability"
	"github.com/go-chi/chi/v5"
	"github.com/uptrace/bun"
)

// Module represents the ladder module.
type Module struct {
	LadderService ladderservice.Service
	handlers      *ladderhandlers.LadderHandlers
	observability observability.Observability
}

// NewLadderModule creates and initializes a new ladder module.
func NewLadderModule(
	ctx context.Context,
	obs observability.Observability,
	directory directorydomain.Directory,
	sink activity.Sink,
	db *bun.DB,
) *Module {
	logger := obs.Logger
	logger.InfoContext(ctx, "ladder.NewLadderModule initializing")

	repo := ladderdb.NewRepository(db)
	metrics := observability.NewPrometheusMetrics(obs.Registry, "ladder")
	service := ladderservice.NewLadderService(repo, directory, sink, logger, metrics, obs.Tracer, db)

	return &Module{
		LadderService: service,
		handlers:      ladderhandlers.NewLadderHandlers(service, logger),
		observability: obs,
	}
}

// RegisterRoutes mounts /api/ladder on an authenticated router.
func (m *Module) RegisterRoutes(r chi.Router) {
	ladderrouter.Register(r, m.handlers)
}
