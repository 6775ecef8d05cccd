package services

import (
	"context"

	"github.com/musicclub/apiserver/types"
)

type EquipmentRepository interface {
	List(ctx context.Context) ([]types.Equipment, error)
	Get(ctx context.Context, id int) (types.Equipment, error)
	Create(ctx context.Context, item types.Equipment) (types.Equipment, error)
	Update(ctx context.Context, item types.Equipment) error
	Delete(ctx context.Context, id int) error
}

type EquipmentService struct {
	repo EquipmentRepository
}

func NewEquipmentService(repo EquipmentRepository) *EquipmentService {
	return &EquipmentService{repo: repo}
}

func (s *EquipmentService) List(ctx context.Context) ([]types.Equipment, error) {
	return s.repo.List(ctx)
}

func (s *EquipmentService) Get(ctx context.Context, id int) (types.Equipment, error) {
	return s.repo.Get(ctx, id)
}

func (s *EquipmentService) Create(ctx context.Context, item types.Equipment) (types.Equipment, error) {
	item, err := validateEquipment(item)
	if err != nil {
		return types.Equipment{}, err
	}
	return s.repo.Create(ctx, item)
}

func (s *EquipmentService) Update(ctx context.Context, id int, item types.Equipment) (types.Equipment, error) {
	item, err := validateEquipment(item)
	if err != nil {
		return types.Equipment{}, err
	}
	item.ID = id
	if err := s.repo.Update(ctx, item); err != nil {
		return types.Equipment{}, err
	}
	return s.repo.Get(ctx, id)
}

func (s *EquipmentService) Delete(ctx context.Context, id int) error {
	return s.repo.Delete(ctx, id)
}

func validateEquipment(item types.Equipment) (types.Equipment, error) {
	var err error
	if item.Name, err = required("name", item.Name); err != nil {
		return item, err
	}
	if item.Code, err = required("code", item.Code); err != nil {
		return item, err
	}
	if item.Status, err = required("status", item.Status); err != nil {
		return item, err
	}
	return item, nil
}
