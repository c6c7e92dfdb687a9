package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-pkgz/repeater/v2"
	"github.com/jmoiron/sqlx"

	"github.com/pantryscope/pantryscope/pkg/domain"
)

// PreferenceRepository handles the durable per-user preference memory.
// Each preference is a (user_id, preference_key) row with a frequency
// counter; re-asserting the same key bumps the counter instead of
// creating a duplicate row.
type PreferenceRepository struct {
	db *sqlx.DB
}

// preferenceSQL represents a preference row for SQL operations. The
// timestamp column is an ISO-8601 string, kept as text so descending
// lexicographic order matches descending chronological order.
type preferenceSQL struct {
	UserID    string `db:"user_id"`
	Key       string `db:"preference_key"`
	Value     string `db:"preference_value"`
	Frequency int    `db:"frequency"`
	Timestamp string `db:"timestamp"`
}

// NewPreferenceRepository creates a new preference repository
func NewPreferenceRepository(db *sqlx.DB) *PreferenceRepository {
	return &PreferenceRepository{db: db}
}

// Save upserts the (userID, key) record in a single atomic statement.
// First insert starts frequency at 1; a conflicting key overwrites the
// value, increments frequency and refreshes the timestamp. The write is
// retried on SQLite lock errors.
func (r *PreferenceRepository) Save(ctx context.Context, userID, key, value string) error {
	if userID == "" {
		return fmt.Errorf("save preference: empty user id")
	}
	if key == "" {
		return fmt.Errorf("save preference: empty key")
	}

	retrier := repeater.NewBackoff(5, 50*time.Millisecond, repeater.WithMaxDelay(2*time.Second))

	return retrier.Do(ctx, func() error {
		query := `
			INSERT INTO preferences (user_id, preference_key, preference_value, frequency, timestamp)
			VALUES (?, ?, ?, 1, strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
			ON CONFLICT(user_id, preference_key) DO UPDATE SET
				preference_value = excluded.preference_value,
				frequency = frequency + 1,
				timestamp = excluded.timestamp
		`
		_, err := r.db.ExecContext(ctx, query, userID, key, value)
		if err != nil {
			if isLockError(err) {
				return err // retry
			}
			return &criticalError{err: fmt.Errorf("save preference: %w", err)}
		}
		return nil
	})
}

// GetAll returns all preferences for a user ordered by descending
// frequency, then descending timestamp. An unknown user yields an empty
// slice, not an error.
func (r *PreferenceRepository) GetAll(ctx context.Context, userID string) ([]domain.Preference, error) {
	query := `
		SELECT user_id, preference_key, preference_value, frequency, timestamp
		FROM preferences
		WHERE user_id = ?
		ORDER BY frequency DESC, timestamp DESC, preference_key
	`

	var rows []preferenceSQL
	if err := r.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, fmt.Errorf("get preferences: %w", err)
	}

	prefs := make([]domain.Preference, len(rows))
	for i, row := range rows {
		prefs[i] = toDomainPreference(&row)
	}
	return prefs, nil
}

// GetByCategory returns the stored values whose key carries the category
// prefix, preserving the GetAll ordering.
func (r *PreferenceRepository) GetByCategory(ctx context.Context, userID string, category domain.Category) ([]string, error) {
	// underscore is a LIKE wildcard, escape it in the prefix
	query := `
		SELECT preference_value
		FROM preferences
		WHERE user_id = ? AND preference_key LIKE ? ESCAPE '\'
		ORDER BY frequency DESC, timestamp DESC, preference_key
	`
	pattern := string(category) + `\_%`

	var values []string
	if err := r.db.SelectContext(ctx, &values, query, userID, pattern); err != nil {
		return nil, fmt.Errorf("get preferences by category: %w", err)
	}
	return values, nil
}

// toDomainPreference converts preferenceSQL to domain.Preference
func toDomainPreference(row *preferenceSQL) domain.Preference {
	pref := domain.Preference{
		UserID:    row.UserID,
		Key:       row.Key,
		Value:     row.Value,
		Frequency: row.Frequency,
	}
	if ts, err := time.Parse(time.RFC3339, row.Timestamp); err == nil {
		pref.UpdatedAt = ts
	}
	return pref
}
