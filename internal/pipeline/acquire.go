package pipeline

import (
	"context"
	"sync"

	"github.com/avetisov/stratus/internal/model"
	"github.com/avetisov/stratus/internal/provider"
)

// acquire fetches from every provider concurrently. Each failure becomes a
// tagged failed observation in place, so the slice always has one entry per
// configured provider and consensus sees exactly who answered.
func (p *Pipeline) acquire(ctx context.Context, location string) []model.Observation {
	observations := make([]model.Observation, len(p.providers))

	var wg sync.WaitGroup
	for i, prov := range p.providers {
		wg.Add(1)
		go func(i int, prov provider.Provider) {
			defer wg.Done()

			obs, err := prov.Fetch(ctx, location)
			if err != nil {
				observations[i] = model.NewFailedObservation(prov.Name(), provider.ClassifyError(err), err.Error())
				return
			}
			observations[i] = obs
		}(i, prov)
	}
	wg.Wait()

	return observations
}
