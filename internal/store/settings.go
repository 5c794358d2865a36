package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cesargomez89/ytmanager/internal/domain"
)

type SettingsRepo struct {
	db *DB
}

func NewSettingsRepo(db *DB) *SettingsRepo {
	return &SettingsRepo{db: db}
}

func (r *SettingsRepo) Get(key string) (string, error) {
	var value string
	err := r.db.Get(&value, "SELECT value FROM settings WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

func (r *SettingsRepo) Set(key, value string) error {
	_, err := r.db.Exec(`
		INSERT INTO settings (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now())
	return err
}

func (r *SettingsRepo) Delete(key string) error {
	_, err := r.db.Exec("DELETE FROM settings WHERE key = ?", key)
	return err
}

// ListPrefix returns every setting whose key starts with prefix, keyed by
// the remainder of the key.
func (r *SettingsRepo) ListPrefix(prefix string) (map[string]string, error) {
	type row struct {
		Key   string `db:"key"`
		Value string `db:"value"`
	}
	var rows []row
	if err := r.db.Select(&rows, "SELECT key, value FROM settings WHERE substr(key, 1, ?) = ?", len(prefix), prefix); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rows))
	for _, row := range rows {
		out[strings.TrimPrefix(row.Key, prefix)] = row.Value
	}
	return out, nil
}

func (r *SettingsRepo) GetUserPreferences(userID int64) (*domain.UserPreferences, error) {
	raw, err := r.Get(userPreferencesKey(userID))
	if err != nil {
		return nil, err
	}
	prefs := &domain.UserPreferences{}
	if raw == "" {
		return prefs, nil
	}
	if err := json.Unmarshal([]byte(raw), prefs); err != nil {
		return nil, fmt.Errorf("invalid preferences for user %d: %w", userID, err)
	}
	return prefs, nil
}

func (r *SettingsRepo) SetUserPreferences(userID int64, prefs *domain.UserPreferences) error {
	data, err := json.Marshal(prefs)
	if err != nil {
		return err
	}
	return r.Set(userPreferencesKey(userID), string(data))
}

func userPreferencesKey(userID int64) string {
	return fmt.Sprintf("%s%d", SettingUserPreferencesPrefix, userID)
}

const (
	SettingProviderConfigPrefix  = "provider_config:"
	SettingUserPreferencesPrefix = "user_preferences:"
)
