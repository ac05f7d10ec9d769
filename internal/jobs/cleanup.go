package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/platform/blobstore"
	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/platform/dateutil"
)

const DefaultRetentionDays = 30

// Cleanup removes report artifacts older than the retention period,
// including orphans left by a failed report upsert.
type Cleanup struct {
	store         blobstore.Store
	zone          *dateutil.Zone
	retentionDays int
	logger        zerolog.Logger
}

func NewCleanup(store blobstore.Store, zone *dateutil.Zone, retentionDays int, logger zerolog.Logger) *Cleanup {
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}
	return &Cleanup{
		store:         store,
		zone:          zone,
		retentionDays: retentionDays,
		logger:        logger.With().Str("job", CleanupJob).Logger(),
	}
}

func (c *Cleanup) Cutoff() time.Time {
	return c.zone.Now().AddDate(0, 0, -c.retentionDays)
}

func (c *Cleanup) Execute(ctx context.Context) error {
	cutoff := c.Cutoff()
	removed, err := c.store.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		return err
	}
	c.logger.Info().Time("cutoff", cutoff).Int("removed", removed).Msg("report artifacts purged")
	return nil
}
