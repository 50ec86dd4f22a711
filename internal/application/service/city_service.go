package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/garyjia/perdin/internal/application/port"
	"github.com/garyjia/perdin/internal/domain/access"
	"github.com/garyjia/perdin/internal/domain/entity"
	"github.com/garyjia/perdin/pkg/utils"
)

const maxCityFieldLength = 255

// CityInput is the editable part of a city
type CityInput struct {
	Name      string   `json:"name"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Province  string   `json:"province"`
	Island    string   `json:"island"`
	Foreign   bool     `json:"foreign"`
}

// CityService manages the city reference table
type CityService interface {
	List(ctx context.Context, caller access.Identity) ([]*entity.City, error)
	Get(ctx context.Context, caller access.Identity, id int64) (*entity.City, error)
	Create(ctx context.Context, caller access.Identity, input CityInput) (*entity.City, error)
	Update(ctx context.Context, caller access.Identity, id int64, input CityInput) (*entity.City, error)
	// Delete fails with ErrCityInUse while any trip references the city
	Delete(ctx context.Context, caller access.Identity, id int64) error
}

type cityServiceImpl struct {
	cityRepo port.CityRepository
	policy   *access.Policy
	logger   Logger
}

// NewCityService creates a new CityService
func NewCityService(cityRepo port.CityRepository, policy *access.Policy, logger Logger) CityService {
	return &cityServiceImpl{
		cityRepo: cityRepo,
		policy:   policy,
		logger:   logger,
	}
}

func (s *cityServiceImpl) List(ctx context.Context, caller access.Identity) ([]*entity.City, error) {
	if err := authenticated(caller); err != nil {
		return nil, err
	}
	return s.cityRepo.List(ctx)
}

func (s *cityServiceImpl) Get(ctx context.Context, caller access.Identity, id int64) (*entity.City, error) {
	if err := authenticated(caller); err != nil {
		return nil, err
	}
	return s.cityRepo.GetByID(ctx, id)
}

func (s *cityServiceImpl) Create(ctx context.Context, caller access.Identity, input CityInput) (*entity.City, error) {
	if err := authorize(s.policy, caller, access.CapManageCity); err != nil {
		return nil, err
	}

	city, err := cityFromInput(input)
	if err != nil {
		return nil, err
	}

	if err := s.cityRepo.Create(ctx, city); err != nil {
		return nil, err
	}

	s.logger.Info("City created", "city_id", city.ID, "name", city.Name, "actor_id", caller.UserID)
	return city, nil
}

func (s *cityServiceImpl) Update(ctx context.Context, caller access.Identity, id int64, input CityInput) (*entity.City, error) {
	if err := authorize(s.policy, caller, access.CapManageCity); err != nil {
		return nil, err
	}

	existing, err := s.cityRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	city, err := cityFromInput(input)
	if err != nil {
		return nil, err
	}
	city.ID = existing.ID
	city.CreatedAt = existing.CreatedAt

	if err := s.cityRepo.Update(ctx, city); err != nil {
		return nil, err
	}

	s.logger.Info("City updated", "city_id", id, "actor_id", caller.UserID)
	return city, nil
}

func (s *cityServiceImpl) Delete(ctx context.Context, caller access.Identity, id int64) error {
	if err := authorize(s.policy, caller, access.CapManageCity); err != nil {
		return err
	}

	referenced, err := s.cityRepo.IsReferenced(ctx, id)
	if err != nil {
		return err
	}
	if referenced {
		return fmt.Errorf("city %d: %w", id, ErrCityInUse)
	}

	err = s.cityRepo.Delete(ctx, id)
	if errors.Is(err, port.ErrReferenced) {
		// a trip was submitted between the check and the delete
		return fmt.Errorf("city %d: %w", id, ErrCityInUse)
	}
	if err != nil {
		return err
	}

	s.logger.Info("City deleted", "city_id", id, "actor_id", caller.UserID)
	return nil
}

func cityFromInput(input CityInput) (*entity.City, error) {
	v := newValidationError()

	name := strings.TrimSpace(input.Name)
	province := strings.TrimSpace(input.Province)
	island := strings.TrimSpace(input.Island)

	v.check("name", utils.ValidateRequired(name, maxCityFieldLength))
	v.check("province", utils.ValidateRequired(province, maxCityFieldLength))
	v.check("island", utils.ValidateRequired(island, maxCityFieldLength))

	if input.Latitude == nil {
		v.add("latitude", "is required")
	} else {
		v.check("latitude", utils.ValidateLatitude(*input.Latitude))
	}
	if input.Longitude == nil {
		v.add("longitude", "is required")
	} else {
		v.check("longitude", utils.ValidateLongitude(*input.Longitude))
	}

	if err := v.orNil(); err != nil {
		return nil, err
	}

	return &entity.City{
		Name:      name,
		Latitude:  *input.Latitude,
		Longitude: *input.Longitude,
		Province:  province,
		Island:    island,
		Foreign:   input.Foreign,
	}, nil
}
