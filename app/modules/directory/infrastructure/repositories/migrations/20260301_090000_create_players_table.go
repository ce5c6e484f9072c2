package directorymigrations

import (
	"context"
	"fmt"

	directorydb "github.com/Black-And-White-Club/club-ladder/app/modules/directory/infrastructure/repositories"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating players table...")
		_, err := db.NewCreateTable().Model((*directorydb.Player)(nil)).IfNotExists().Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to create players table: %w", err)
		}
		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping players table...")
		_, err := db.NewDropTable().Model((*directorydb.Player)(nil)).IfExists().Cascade().Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to drop players table: %w", err)
		}
		return nil
	})
}
