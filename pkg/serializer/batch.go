package serializer

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/EchoTools/tagcache/pkg/cache"
	"github.com/EchoTools/tagcache/pkg/tagdata"
)

// Job is one structure instance to serialize in a batch.
type Job struct {
	Name   string
	Object *tagdata.Struct
}

// Result is the outcome of one Job. Exactly one of Blob and Err is set.
type Result struct {
	Name string
	Blob *cache.Blob
	Err  error
}

// SerializeAll serializes jobs on up to workers goroutines. A failing job does
// not stop the others; its error is logged and kept in its Result. Jobs that
// have not started when ctx is cancelled fail with the context error, which is
// also returned.
func (s *Serializer) SerializeAll(ctx context.Context, jobs []Job, target cache.Target, workers int) ([]Result, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	results := make([]Result, len(jobs))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)

	for i, job := range jobs {
		i, job := i, job
		eg.Go(func() error {
			results[i].Name = job.Name
			if err := egCtx.Err(); err != nil {
				results[i].Err = err
				return nil
			}

			blob, err := s.Serialize(job.Object, target)
			if err != nil {
				s.log.WithError(err).WithField("name", job.Name).Warn("serialize failed")
				results[i].Err = err
				return nil
			}
			results[i].Blob = blob
			return nil
		})
	}

	// Workers never return errors; failures live in results.
	_ = eg.Wait()
	return results, ctx.Err()
}
