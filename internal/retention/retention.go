// Package retention prunes aged audit data on a schedule.
package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// RunRetentionJob deletes audit events older than the retention window.
func RunRetentionJob(ctx context.Context, pool *pgxpool.Pool, auditRetentionDays int) error {
	start := time.Now()
	cutoff := time.Now().UTC().AddDate(0, 0, -auditRetentionDays)

	tag, err := pool.Exec(ctx, `
		DELETE FROM audit_events
		WHERE created_at < $1
	`, cutoff)
	if err != nil {
		return fmt.Errorf("failed to prune audit events: %w", err)
	}

	log.Info().
		Int64("deleted", tag.RowsAffected()).
		Time("cutoff", cutoff).
		Dur("duration", time.Since(start)).
		Msg("Audit retention job completed")

	return nil
}
