package eventlog

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

// MultiStore appends every entry to a primary store and mirrors it to any
// number of secondary stores.  Only the primary store decides whether an
// append succeeded.
type MultiStore struct {
	primary   Store
	secondary []Store
	// mirrorErrors counts failed appends to secondary stores
	mirrorErrors atomic.Int64
}

// NewMultiStore returns a store writing to primary and mirroring to secondary
func NewMultiStore(primary Store, secondary ...Store) *MultiStore {
	return &MultiStore{
		primary:   primary,
		secondary: secondary,
	}
}

// Append writes the entry to the primary store and returns its error.  When
// the primary write fails the entry is not mirrored.  Secondary failures are
// logged and counted but not returned, so the cooldown window follows the
// primary log.
func (m *MultiStore) Append(ctx context.Context, e Entry) error {

	if err := m.primary.Append(ctx, e); err != nil {
		return err
	}

	for i, s := range m.secondary {
		if err := s.Append(ctx, e); err != nil {
			m.mirrorErrors.Add(1)
			log.Warn().Err(err).Int("store", i).Str("id", e.ID.String()).
				Msg("Failed to mirror speed event")
		}
	}

	return nil
}

// MirrorErrors returns the number of failed secondary appends
func (m *MultiStore) MirrorErrors() int64 {
	return m.mirrorErrors.Load()
}

// Close closes all stores
func (m *MultiStore) Close() error {

	errs := []error{m.primary.Close()}

	for _, s := range m.secondary {
		errs = append(errs, s.Close())
	}

	return errors.Join(errs...)
}
