package auth

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const DefaultSweepInterval = time.Hour

// StartSweeper purges expired tokens every interval until ctx is done.
func (s *Service) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	go s.sweepLoop(ctx, interval)
}

func (s *Service) sweepLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.SweepExpired(ctx)
			if err != nil {
				s.logger.Warn("sweep expired tokens", zap.Error(err))
				continue
			}
			if n > 0 {
				s.logger.Info("swept expired tokens", zap.Int64("count", n))
			}
		}
	}
}

// SweepExpired deletes tokens past their expiry and reports how many went.
// Cached copies expire on their own TTL.
func (s *Service) SweepExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM client_tokens WHERE expires_at <= ?`, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired tokens: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}
