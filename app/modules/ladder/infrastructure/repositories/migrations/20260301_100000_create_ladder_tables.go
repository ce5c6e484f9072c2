package laddermigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating ladder_teams, ladder_challenges and ladder_challenge_history tables...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			// Rank uniqueness is checked at commit so a rotation can pass
			// through intermediate states inside its transaction.
			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS ladder_teams (
					id UUID PRIMARY KEY,
					club_id UUID NOT NULL,
					tier TEXT NOT NULL,
					name TEXT NOT NULL,
					rank INTEGER NOT NULL CHECK (rank > 0),
					points INTEGER NOT NULL DEFAULT 0,
					status TEXT NOT NULL DEFAULT 'active'
						CHECK (status IN ('active', 'challenging', 'defending')),
					matches_played INTEGER NOT NULL DEFAULT 0,
					matches_won INTEGER NOT NULL DEFAULT 0,
					player1_id UUID NOT NULL,
					player2_id UUID NOT NULL,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					CONSTRAINT ladder_teams_pool_rank_key UNIQUE (club_id, tier, rank)
						DEFERRABLE INITIALLY DEFERRED,
					CONSTRAINT ladder_teams_distinct_players CHECK (player1_id <> player2_id)
				);
				CREATE INDEX IF NOT EXISTS idx_ladder_teams_player1 ON ladder_teams(club_id, tier, player1_id);
				CREATE INDEX IF NOT EXISTS idx_ladder_teams_player2 ON ladder_teams(club_id, tier, player2_id);
			`); err != nil {
				return fmt.Errorf("failed to create ladder_teams table: %w", err)
			}

			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS ladder_challenges (
					id UUID PRIMARY KEY,
					club_id UUID NOT NULL,
					tier TEXT NOT NULL,
					challenger_team_id UUID NOT NULL REFERENCES ladder_teams(id),
					defender_team_id UUID NOT NULL REFERENCES ladder_teams(id),
					challenger_rank INTEGER NOT NULL,
					defender_rank INTEGER NOT NULL,
					status TEXT NOT NULL
						CHECK (status IN ('pending', 'accepted', 'pending_verification', 'completed', 'disputed', 'declined')),
					result TEXT CHECK (result IN ('challenger_won', 'defender_won')),
					scores JSONB,
					scheduled_date DATE,
					scheduled_time TEXT,
					venue TEXT,
					submitted_by UUID,
					completed_at TIMESTAMPTZ,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
				CREATE INDEX IF NOT EXISTS idx_ladder_challenges_challenger ON ladder_challenges(challenger_team_id, status);
				CREATE INDEX IF NOT EXISTS idx_ladder_challenges_defender ON ladder_challenges(defender_team_id, status);
			`); err != nil {
				return fmt.Errorf("failed to create ladder_challenges table: %w", err)
			}

			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS ladder_challenge_history (
					id BIGSERIAL PRIMARY KEY,
					challenge_id UUID NOT NULL UNIQUE REFERENCES ladder_challenges(id),
					club_id UUID NOT NULL,
					tier TEXT NOT NULL,
					challenger_team_id UUID NOT NULL,
					defender_team_id UUID NOT NULL,
					result TEXT NOT NULL,
					forfeit BOOLEAN NOT NULL DEFAULT FALSE,
					challenger_rank_before INTEGER NOT NULL,
					challenger_rank_after INTEGER NOT NULL,
					defender_rank_before INTEGER NOT NULL,
					defender_rank_after INTEGER NOT NULL,
					scores JSONB NOT NULL,
					recorded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
				CREATE INDEX IF NOT EXISTS idx_ladder_history_challenger ON ladder_challenge_history(challenger_team_id, recorded_at DESC);
				CREATE INDEX IF NOT EXISTS idx_ladder_history_defender ON ladder_challenge_history(defender_team_id, recorded_at DESC);
			`); err != nil {
				return fmt.Errorf("failed to create ladder_challenge_history table: %w", err)
			}

			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping ladder tables...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				DROP TABLE IF EXISTS ladder_challenge_history;
				DROP TABLE IF EXISTS ladder_challenges;
				DROP TABLE IF EXISTS ladder_teams;
			`); err != nil {
				return fmt.Errorf("failed to drop ladder tables: %w", err)
			}
			return nil
		})
	})
}
