package store

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/musicclub/apiserver/types"
)

// EquipmentRepository handles persistence for the equipment inventory.
type EquipmentRepository struct {
	db *sqlx.DB
}

func NewEquipmentRepository(db *sqlx.DB) *EquipmentRepository {
	return &EquipmentRepository{db: db}
}

const equipmentSelect = `SELECT id, name, code, status, created_at, updated_at FROM equipments`

func (r *EquipmentRepository) List(ctx context.Context) ([]types.Equipment, error) {
	items := make([]types.Equipment, 0)
	if err := r.db.SelectContext(ctx, &items, equipmentSelect+` ORDER BY id DESC`); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *EquipmentRepository) Get(ctx context.Context, id int) (types.Equipment, error) {
	var item types.Equipment
	if err := r.db.GetContext(ctx, &item, equipmentSelect+` WHERE id = $1`, id); err != nil {
		return types.Equipment{}, notFound(err)
	}
	return item, nil
}

func (r *EquipmentRepository) Create(ctx context.Context, item types.Equipment) (types.Equipment, error) {
	now := time.Now()
	const query = `
		INSERT INTO equipments (name, code, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query, item.Name, item.Code, item.Status, now).Scan(&item.ID); err != nil {
		return types.Equipment{}, translate(err)
	}
	item.CreatedAt = now
	item.UpdatedAt = now
	return item, nil
}

func (r *EquipmentRepository) Update(ctx context.Context, item types.Equipment) error {
	const query = `UPDATE equipments SET name = $1, code = $2, status = $3, updated_at = $4 WHERE id = $5`
	result, err := r.db.ExecContext(ctx, query, item.Name, item.Code, item.Status, time.Now(), item.ID)
	if err != nil {
		return err
	}
	return expectAffected(result)
}

func (r *EquipmentRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM equipments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectAffected(result)
}
