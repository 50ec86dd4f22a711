package cache

import (
	"context"

	"github.com/garyjia/perdin/internal/application/port"
	"github.com/garyjia/perdin/internal/domain/entity"
)

// CityRepository is a read-through cache in front of another CityRepository.
// Writes go to the underlying repository first and then invalidate.
type CityRepository struct {
	port.CityRepository
	cache port.CityCache
}

// NewCityRepository wraps repo with cache
func NewCityRepository(repo port.CityRepository, cache port.CityCache) *CityRepository {
	return &CityRepository{CityRepository: repo, cache: cache}
}

func (r *CityRepository) GetByID(ctx context.Context, id int64) (*entity.City, error) {
	if city, ok := r.cache.Get(ctx, id); ok {
		return city, nil
	}
	city, err := r.CityRepository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.cache.Set(ctx, city)
	return city, nil
}

func (r *CityRepository) List(ctx context.Context) ([]*entity.City, error) {
	if cities, ok := r.cache.GetAll(ctx); ok {
		return cities, nil
	}
	cities, err := r.CityRepository.List(ctx)
	if err != nil {
		return nil, err
	}
	r.cache.SetAll(ctx, cities)
	return cities, nil
}

func (r *CityRepository) Create(ctx context.Context, city *entity.City) error {
	if err := r.CityRepository.Create(ctx, city); err != nil {
		return err
	}
	r.cache.Invalidate(ctx, 0)
	return nil
}

func (r *CityRepository) Update(ctx context.Context, city *entity.City) error {
	if err := r.CityRepository.Update(ctx, city); err != nil {
		return err
	}
	r.cache.Invalidate(ctx, city.ID)
	return nil
}

func (r *CityRepository) Delete(ctx context.Context, id int64) error {
	if err := r.CityRepository.Delete(ctx, id); err != nil {
		return err
	}
	r.cache.Invalidate(ctx, id)
	return nil
}

var _ port.CityRepository = (*CityRepository)(nil)
