package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/goliatone/go-market-gate/gate"
	"github.com/goliatone/go-market-gate/internal/model"
)

// FlagRepository keeps feature flags in the feature_flags table. Values are
// msgpack encoded so maps, numbers and strings round trip with their types.
type FlagRepository struct {
	db bun.IDB
}

var _ gate.FlagBackend = (*FlagRepository)(nil)

// NewFlagRepository builds a FlagRepository.
func NewFlagRepository(db bun.IDB) *FlagRepository {
	return &FlagRepository{db: db}
}

// LoadFlag implements gate.FlagBackend.
func (r *FlagRepository) LoadFlag(ctx context.Context, key string) (any, bool, error) {
	flag := new(model.FeatureFlag)
	err := r.db.NewSelect().Model(flag).Where("name = ?", key).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load flag %s: %w", key, err)
	}

	var value any
	if err := msgpack.Unmarshal(flag.Value, &value); err != nil {
		return nil, false, fmt.Errorf("decode flag %s: %w", key, err)
	}
	return value, true, nil
}

// SaveFlag implements gate.FlagBackend.
func (r *FlagRepository) SaveFlag(ctx context.Context, key string, value any) error {
	data, err := msgpack.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode flag %s: %w", key, err)
	}

	flag := &model.FeatureFlag{Key: key, Value: data, UpdatedAt: time.Now().UTC()}
	_, err = r.db.NewInsert().
		Model(flag).
		On("CONFLICT (name) DO UPDATE").
		Set("value = EXCLUDED.value").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("save flag %s: %w", key, err)
	}
	return nil
}
