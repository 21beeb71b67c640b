package db

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FindByID loads one row of T by primary key. It returns
// gorm.ErrRecordNotFound when the row is missing.
func FindByID[T any](ctx context.Context, conn *gorm.DB, id uuid.UUID, preload ...string) (*T, error) {
	q := conn.WithContext(ctx)
	for _, assoc := range preload {
		q = q.Preload(assoc)
	}
	var row T
	if err := q.First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// FindByIDs loads rows of T keyed by id. Missing ids are absent from the map.
func FindByIDs[T any](ctx context.Context, conn *gorm.DB, ids []uuid.UUID, idOf func(T) uuid.UUID, preload ...string) (map[uuid.UUID]T, error) {
	out := make(map[uuid.UUID]T, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	q := conn.WithContext(ctx)
	for _, assoc := range preload {
		q = q.Preload(assoc)
	}
	var rows []T
	if err := q.Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[idOf(row)] = row
	}
	return out, nil
}
