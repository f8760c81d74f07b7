package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Preferences is the persisted key-value store of one dashboard client.
type Preferences struct {
	store    *Store
	clientID string
}

// Preferences returns the preference store for a client id.
func (s *Store) Preferences(clientID string) *Preferences {
	return &Preferences{store: s, clientID: clientID}
}

// Get returns the stored value for key. ok is false when nothing was stored.
func (p *Preferences) Get(key string) (value string, ok bool, err error) {
	err = p.store.db.QueryRow(
		`SELECT value FROM preferences WHERE client_id = ? AND key = ?`,
		p.clientID, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get preference %s: %w", key, err)
	}
	return value, true, nil
}

func (p *Preferences) Set(key, value string) error {
	err := withRetry(func() error {
		_, err := p.store.db.Exec(`
			INSERT INTO preferences (client_id, key, value, updated_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(client_id, key) DO UPDATE SET
				value = excluded.value,
				updated_at = excluded.updated_at
		`, p.clientID, key, value, time.Now().UTC())
		return err
	})
	if err != nil {
		return fmt.Errorf("set preference %s: %w", key, err)
	}
	return nil
}
