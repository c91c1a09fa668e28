package credstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"casedesk/internal/util"
)

// SQL keeps storage rows for every browser client of the BFF. Values are
// AES-GCM encrypted; the table never holds a bearer token in clear text.
type SQL struct {
	db     *sql.DB
	driver string
	key    []byte
}

func NewSQL(db *sql.DB, driver, secret string) *SQL {
	return &SQL{db: db, driver: driver, key: util.DeriveKey(secret, "client-store")}
}

// ForClient returns the storage view of a single client.
func (s *SQL) ForClient(clientID string) Storage {
	return &clientStorage{s: s, clientID: clientID}
}

func (s *SQL) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// PurgeBefore drops rows of clients that have not written since cutoff.
func (s *SQL) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM client_storage WHERE updated_at < %s`, s.ph(1)), cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *SQL) ph(i int) string {
	if strings.Contains(s.driver, "pgx") || strings.Contains(s.driver, "postgres") {
		return fmt.Sprintf("$%d", i)
	}
	return "?"
}

type clientStorage struct {
	s        *SQL
	clientID string
}

func (c *clientStorage) Get(ctx context.Context, key string) (string, bool, error) {
	if err := validKey(key); err != nil {
		return "", false, err
	}
	var enc string
	q := fmt.Sprintf(`SELECT value FROM client_storage WHERE client_id=%s AND storage_key=%s`, c.s.ph(1), c.s.ph(2))
	err := c.s.db.QueryRowContext(ctx, q, c.clientID, key).Scan(&enc)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	v, err := util.DecryptString(c.s.key, enc)
	if err != nil {
		return "", false, fmt.Errorf("decrypt %s: %w", key, err)
	}
	return v, true, nil
}

func (c *clientStorage) Set(ctx context.Context, key, value string) error {
	if err := validKey(key); err != nil {
		return err
	}
	enc, err := util.EncryptString(c.s.key, value)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	updateQ := fmt.Sprintf(`UPDATE client_storage SET value=%s, updated_at=%s WHERE client_id=%s AND storage_key=%s`,
		c.s.ph(1), c.s.ph(2), c.s.ph(3), c.s.ph(4))
	res, err := c.s.db.ExecContext(ctx, updateQ, enc, now, c.clientID, key)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows > 0 {
		return nil
	}
	insertQ := fmt.Sprintf(`INSERT INTO client_storage (client_id, storage_key, value, updated_at) VALUES (%s,%s,%s,%s)`,
		c.s.ph(1), c.s.ph(2), c.s.ph(3), c.s.ph(4))
	if _, err := c.s.db.ExecContext(ctx, insertQ, c.clientID, key, enc, now); err != nil {
		lower := strings.ToLower(err.Error())
		if strings.Contains(lower, "duplicate") || strings.Contains(lower, "unique") {
			_, err = c.s.db.ExecContext(ctx, updateQ, enc, now, c.clientID, key)
		}
		return err
	}
	return nil
}

func (c *clientStorage) Remove(ctx context.Context, key string) error {
	if err := validKey(key); err != nil {
		return err
	}
	q := fmt.Sprintf(`DELETE FROM client_storage WHERE client_id=%s AND storage_key=%s`, c.s.ph(1), c.s.ph(2))
	_, err := c.s.db.ExecContext(ctx, q, c.clientID, key)
	return err
}
