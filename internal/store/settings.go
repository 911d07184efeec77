package store

import (
	"database/sql"
	"errors"
	"strconv"

	"github.com/rrocketmann/Hanvas/internal/capture"
	"github.com/rrocketmann/Hanvas/internal/detector"
	"github.com/rrocketmann/Hanvas/internal/gesture"
)

// Settings keys.
const (
	keyExtensionRatio = "classifier.extension_ratio"
	keyOpenMin        = "classifier.open_min"
	keyFistMax        = "classifier.fist_max"
	keyCameraID       = "capture.camera_id"
	keyMaxHands       = "detector.max_hands"
)

// Settings is the persisted application configuration.
type Settings struct {
	Classifier gesture.Config `json:"classifier"`
	CameraID   int            `json:"camera_id"`
	MaxHands   int            `json:"max_hands"`
}

// DefaultSettings returns the stock configuration.
func DefaultSettings() Settings {
	return Settings{
		Classifier: gesture.DefaultConfig(),
		CameraID:   capture.DefaultConstraints().DeviceID,
		MaxHands:   detector.DefaultOptions().MaxHands,
	}
}

// SettingsRepository provides access to the persisted settings.
type SettingsRepository struct {
	db *sql.DB
}

// Settings returns the settings repository for this store.
func (s *Store) Settings() *SettingsRepository {
	return &SettingsRepository{db: s.db}
}

// Load reads the persisted settings, falling back to defaults for any key
// that has never been saved.
func (r *SettingsRepository) Load() (*Settings, error) {
	settings := DefaultSettings()

	if v, err := r.getFloat(keyExtensionRatio); err == nil {
		settings.Classifier.ExtensionRatio = v
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	intKeys := []struct {
		key string
		dst *int
	}{
		{keyOpenMin, &settings.Classifier.OpenMin},
		{keyFistMax, &settings.Classifier.FistMax},
		{keyCameraID, &settings.CameraID},
		{keyMaxHands, &settings.MaxHands},
	}
	for _, k := range intKeys {
		v, err := r.getInt(k.key)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		*k.dst = v
	}

	return &settings, nil
}

// Save persists the settings.
func (r *SettingsRepository) Save(settings *Settings) error {
	pairs := map[string]string{
		keyExtensionRatio: strconv.FormatFloat(settings.Classifier.ExtensionRatio, 'g', -1, 64),
		keyOpenMin:        strconv.Itoa(settings.Classifier.OpenMin),
		keyFistMax:        strconv.Itoa(settings.Classifier.FistMax),
		keyCameraID:       strconv.Itoa(settings.CameraID),
		keyMaxHands:       strconv.Itoa(settings.MaxHands),
	}

	for key, value := range pairs {
		if err := r.set(key, value); err != nil {
			return err
		}
	}
	return nil
}

func (r *SettingsRepository) get(key string) (string, error) {
	var value string
	err := r.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return value, nil
}

func (r *SettingsRepository) getFloat(key string) (float64, error) {
	value, err := r.get(key)
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(value, 64)
}

func (r *SettingsRepository) getInt(key string) (int, error) {
	value, err := r.get(key)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(value)
}

func (r *SettingsRepository) set(key, value string) error {
	_, err := r.db.Exec(
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		key, value,
	)
	return err
}
