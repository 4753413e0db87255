package registry

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/gx-tool/gx/internal/domain"
)

// maxPrewarmConcurrency bounds how many simultaneous AllTags requests the
// prewarm pass issues, matching the teacher's parallelism knob for its
// own step resolution.
const maxPrewarmConcurrency = 8

// PrewarmAllTags calls AllTags for every id from a bounded pool of
// goroutines, populating g's allTagsCache so later AllTags calls for
// those ids are served from memory. The cache holds its mutex while a
// fetch runs, so the fetches themselves happen one at a time. No command
// calls it; the sequential reconciliation engines (tidy, upgrade) do not
// go through it.
func (g *GitHubRegistry) PrewarmAllTags(ctx context.Context, ids []domain.ActionId) error {
	sem := semaphore.NewWeighted(maxPrewarmConcurrency)
	group, gctx := errgroup.WithContext(ctx)

	for _, id := range ids {
		id := id
		if err := sem.Acquire(gctx, 1); err != nil {
			return err
		}
		group.Go(func() error {
			defer sem.Release(1)
			_, _ = g.AllTags(id) // best-effort prewarm; a failure here just means no cache hit later
			return nil
		})
	}

	return group.Wait()
}
