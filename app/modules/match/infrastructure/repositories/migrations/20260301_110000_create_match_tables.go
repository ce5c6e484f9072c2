package matchmigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating matches, match_participants and player_ratings tables...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS matches (
					id UUID PRIMARY KEY,
					creator_id UUID NOT NULL,
					max_players INTEGER NOT NULL CHECK (max_players >= 4),
					current_players INTEGER NOT NULL CHECK (current_players <= max_players),
					skill_min DOUBLE PRECISION NOT NULL,
					skill_max DOUBLE PRECISION NOT NULL,
					venue TEXT,
					scheduled_at TIMESTAMPTZ,
					status TEXT NOT NULL CHECK (status IN ('open', 'full', 'completed')),
					result_status TEXT CHECK (result_status IN ('pending_verification', 'verified', 'disputed')),
					scores JSONB,
					score_submitted_at TIMESTAMPTZ,
					verified_by UUID,
					verified_at TIMESTAMPTZ,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					CONSTRAINT matches_skill_band CHECK (skill_min <= skill_max)
				);
				CREATE INDEX IF NOT EXISTS idx_matches_pending_verification
					ON matches(score_submitted_at) WHERE result_status = 'pending_verification';
			`); err != nil {
				return fmt.Errorf("failed to create matches table: %w", err)
			}

			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS match_participants (
					match_id UUID NOT NULL REFERENCES matches(id) ON DELETE CASCADE,
					player_id UUID NOT NULL,
					status TEXT NOT NULL CHECK (status IN ('pending', 'accepted')),
					team TEXT CHECK (team IN ('A', 'B')),
					result_confirmed BOOLEAN,
					joined_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					PRIMARY KEY (match_id, player_id)
				);
				CREATE INDEX IF NOT EXISTS idx_match_participants_player ON match_participants(player_id);
			`); err != nil {
				return fmt.Errorf("failed to create match_participants table: %w", err)
			}

			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS player_ratings (
					player_id UUID PRIMARY KEY,
					skill_level DOUBLE PRECISION NOT NULL CHECK (skill_level BETWEEN 1.0 AND 7.0),
					matches_played INTEGER NOT NULL DEFAULT 0,
					matches_won INTEGER NOT NULL DEFAULT 0,
					reliability_percentage INTEGER NOT NULL DEFAULT 0
						CHECK (reliability_percentage BETWEEN 0 AND 100),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
			`); err != nil {
				return fmt.Errorf("failed to create player_ratings table: %w", err)
			}

			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping match tables...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				DROP TABLE IF EXISTS player_ratings;
				DROP TABLE IF EXISTS match_participants;
				DROP TABLE IF EXISTS matches;
			`); err != nil {
				return fmt.Errorf("failed to drop match tables: %w", err)
			}
			return nil
		})
	})
}
