package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"straintrack-data/internal/domain"
	"straintrack-data/internal/repository"

	"github.com/google/uuid"
)

// regionResolver maps region names to stable ids, creating unknown regions on
// first sight. The per-run cache guarantees a name resolves at most once per
// run; the store's unique constraint on the name is the backstop when another
// run races the create.
type regionResolver struct {
	regions repository.RegionsRepo
	cache   map[string]string
}

func newRegionResolver(regions repository.RegionsRepo) *regionResolver {
	return &regionResolver{regions: regions, cache: map[string]string{}}
}

func (r *regionResolver) Resolve(ctx context.Context, name string) (string, error) {
	if id, ok := r.cache[name]; ok {
		return id, nil
	}

	region, err := r.regions.GetRegionByName(ctx, name)
	if err != nil {
		return "", err
	}
	if region == nil {
		created := &domain.Region{
			RegionID:  uuid.NewString(),
			Name:      name,
			CreatedAt: time.Now().UTC(),
		}
		switch err := r.regions.CreateRegion(ctx, created); {
		case err == nil:
			region = created
		case errors.Is(err, repository.ErrDuplicateRegion):
			// Another run won the create; fold into its row.
			region, err = r.regions.GetRegionByName(ctx, name)
			if err != nil {
				return "", err
			}
			if region == nil {
				return "", fmt.Errorf("region %q missing after duplicate create", name)
			}
		default:
			return "", err
		}
	}

	r.cache[name] = region.RegionID
	return region.RegionID, nil
}
