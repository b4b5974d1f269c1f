package loadkit

import (
	"context"
	"sync"

	"github.com/aretw0/loadkit/pkg/domain"
)

// Await runs start, which is expected to begin one image load (LoadFiles, LoadURLs or
// LoadImageObject), and blocks until that load has ended. It returns the journal record of
// the load, or domain.ErrRecordNotFound when start began no image load (a state document).
// When the journal cannot return the record, the one carried by load-end is returned instead.
// When ctx is done first ctx.Err() is returned; a load started with ctx is aborted with it.
func (c *Controller) Await(ctx context.Context, start func(ctx context.Context) error) (domain.LoadRecord, error) {
	var mu sync.Mutex
	var loadID string
	ended := make(chan domain.EndEvent, 16)

	startID := c.AddEventListener(domain.EventLoadStart, func(e domain.Event) {
		mu.Lock()
		defer mu.Unlock()
		loadID = e.(domain.StartEvent).LoadID
	})
	defer c.RemoveEventListener(domain.EventLoadStart, startID)

	endID := c.AddEventListener(domain.EventLoadEnd, func(e domain.Event) {
		select {
		case ended <- e.(domain.EndEvent):
		default:
		}
	})
	defer c.RemoveEventListener(domain.EventLoadEnd, endID)

	if err := start(ctx); err != nil {
		return domain.LoadRecord{}, err
	}

	// load-start is fired synchronously by start, so loadID is ours
	mu.Lock()
	id := loadID
	mu.Unlock()
	if id == "" {
		return domain.LoadRecord{}, domain.ErrRecordNotFound
	}

	for {
		select {
		case <-ctx.Done():
			return domain.LoadRecord{}, ctx.Err()
		case end := <-ended:
			if end.LoadID != id {
				continue
			}
			rec, err := c.journal.Get(context.WithoutCancel(ctx), id)
			if err != nil {
				c.logger.Warn("journal read failed, using the load-end record", "load_id", id, "error", err)
				return end.Record, nil
			}
			return rec, nil
		}
	}
}
