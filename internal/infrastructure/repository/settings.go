package repository

import (
	"context"
	"sort"
	"time"

	"github.com/example/nazareth-shop/internal/domain/settings"
	"github.com/example/nazareth-shop/internal/infrastructure/store"
)

type SettingsRepository struct {
	db *store.DB
}

func NewSettingsRepository(db *store.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

func (r *SettingsRepository) All(ctx context.Context) (map[string]string, error) {
	var rows []struct {
		Key   string `db:"setting_key"`
		Value string `db:"setting_value"`
	}
	if err := r.db.Select(ctx, &rows, "SELECT setting_key, setting_value FROM system_settings"); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rows))
	for _, row := range rows {
		out[row.Key] = row.Value
	}
	return out, nil
}

// Put upserts every value in one transaction.
func (r *SettingsRepository) Put(ctx context.Context, values map[string]string, at time.Time) error {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return r.db.WithinTx(ctx, func(ctx context.Context) error {
		for _, k := range keys {
			if _, err := r.db.Exec(ctx,
				`INSERT INTO system_settings (setting_key, setting_value, updated_at) VALUES (?, ?, ?)
				 ON CONFLICT (setting_key) DO UPDATE SET setting_value = excluded.setting_value, updated_at = excluded.updated_at`,
				k, values[k], store.ToMillis(at),
			); err != nil {
				return err
			}
		}
		return nil
	})
}

var _ settings.Repository = (*SettingsRepository)(nil)
