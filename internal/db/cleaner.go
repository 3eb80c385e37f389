package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// PurgeRevealed deletes commitments that were revealed before now-retention.
// Open commitments are never purged.
func PurgeRevealed(ctx context.Context, db *sql.DB, retention time.Duration, now time.Time) (int64, error) {
	cutoff := now.Add(-retention).Unix()
	res, err := db.ExecContext(ctx, `
		DELETE FROM commitments
		 WHERE revealed = true
		   AND revealed_at < $1
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// StartRevealedCleaner purges old revealed commitments on the given cron
// spec (for example "@every 1h") until ctx is done.
func StartRevealedCleaner(
	ctx context.Context,
	db *sql.DB,
	spec string,
	retention time.Duration,
	log *zap.Logger,
) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		rows, err := PurgeRevealed(ctx, db, retention, time.Now())
		if err != nil {
			log.Error("failed to purge revealed commitments", zap.Error(err))
			return
		}
		if rows > 0 {
			log.Info("purged revealed commitments", zap.Int64("removed", rows))
		}
	})
	if err != nil {
		return nil, err
	}

	c.Start()
	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
	}()
	return c, nil
}
