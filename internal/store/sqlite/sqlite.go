// Package sqlite implements the catalog store on modernc.org/sqlite,
// a cgo-free driver. Used for local development and tests.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/mediacatalog/catalog/internal/model"
	"github.com/mediacatalog/catalog/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS works (
    id         TEXT PRIMARY KEY,
    version    INTEGER NOT NULL,
    alias      TEXT,
    owner_user TEXT,
    owner_org  TEXT,
    public     INTEGER NOT NULL DEFAULT 0,
    doc        TEXT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS works_alias_key ON works(alias) WHERE alias IS NOT NULL;
CREATE INDEX IF NOT EXISTS works_owner_user ON works(owner_user);
CREATE INDEX IF NOT EXISTS works_owner_org ON works(owner_org);

CREATE TABLE IF NOT EXISTS media (
    id         TEXT PRIMARY KEY,
    version    INTEGER NOT NULL,
    owner_user TEXT,
    owner_org  TEXT,
    public     INTEGER NOT NULL DEFAULT 0,
    doc        TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS users (
    id      TEXT PRIMARY KEY,
    version INTEGER NOT NULL,
    alias   TEXT,
    doc     TEXT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS users_alias_key ON users(alias) WHERE alias IS NOT NULL;

CREATE TABLE IF NOT EXISTS organisations (
    id      TEXT PRIMARY KEY,
    version INTEGER NOT NULL,
    alias   TEXT,
    doc     TEXT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS organisations_alias_key ON organisations(alias) WHERE alias IS NOT NULL;

CREATE TABLE IF NOT EXISTS event_log (
    seq         INTEGER PRIMARY KEY AUTOINCREMENT,
    object_id   TEXT NOT NULL,
    object_type TEXT NOT NULL,
    published   INTEGER NOT NULL DEFAULT 0,
    batch       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS event_log_object ON event_log(object_id, seq);
CREATE INDEX IF NOT EXISTS event_log_unpublished ON event_log(published, seq);
`

// Open opens (and creates, for file or :memory: paths) a SQLite store.
func Open(path string) (store.Store, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// The driver serializes access per connection; a single connection
	// avoids table-lock errors from concurrent writers.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &sqliteStore{db: db}, nil
}

// NewWithDB wraps an existing connection, creating the schema.
func NewWithDB(db *sql.DB) (store.Store, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, err
	}
	return &sqliteStore{db: db}, nil
}

type sqliteStore struct{ db *sql.DB }

func (s *sqliteStore) Works() store.Works                 { return &works{db: s.db} }
func (s *sqliteStore) Media() store.Media                 { return &media{db: s.db} }
func (s *sqliteStore) Users() store.Users                 { return &users{db: s.db} }
func (s *sqliteStore) Organisations() store.Organisations { return &organisations{db: s.db} }
func (s *sqliteStore) Events() store.Events               { return &eventLog{db: s.db} }

// HealthPing reports connectivity.
func (s *sqliteStore) HealthPing(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *sqliteStore) Insert(ctx context.Context, agg model.Aggregate, event *model.EventBatch) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := insertAggregate(ctx, tx, agg); err != nil {
		return translateDuplicate(err)
	}
	if event != nil {
		if err := appendEventTx(ctx, tx, event); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *sqliteStore) ConditionalSave(ctx context.Context, agg model.Aggregate, expectedVersion int64, event *model.EventBatch) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	n, err := updateAggregate(ctx, tx, agg, expectedVersion)
	if err != nil {
		return 0, translateDuplicate(err)
	}
	if n == 1 && event != nil {
		if err := appendEventTx(ctx, tx, event); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *sqliteStore) Remove(ctx context.Context, agg model.Aggregate, event *model.EventBatch) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, tableFor(agg)), agg.AggregateID()); err != nil {
		return err
	}
	if event != nil {
		if err := appendEventTx(ctx, tx, event); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *sqliteStore) AppendEvent(ctx context.Context, event *model.EventBatch) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if err := appendEventTx(ctx, tx, event); err != nil {
		return err
	}
	return tx.Commit()
}

func tableFor(agg model.Aggregate) string {
	switch agg.AggregateType() {
	case model.TypeWork:
		return "works"
	case model.TypeMedia:
		return "media"
	case model.TypeUser:
		return "users"
	default:
		return "organisations"
	}
}

func insertAggregate(ctx context.Context, tx *sql.Tx, agg model.Aggregate) error {
	doc, err := json.Marshal(agg)
	if err != nil {
		return err
	}
	switch a := agg.(type) {
	case *model.Work:
		_, err = tx.ExecContext(ctx, `
            INSERT INTO works (id, version, alias, owner_user, owner_org, public, doc)
            VALUES (?,?,?,?,?,?,?)`,
			a.ID, a.Version, nullIfEmpty(a.Alias), nullIfEmpty(a.Owner.User),
			nullIfEmpty(a.Owner.Org), boolInt(a.Public), string(doc))
	case *model.Media:
		_, err = tx.ExecContext(ctx, `
            INSERT INTO media (id, version, owner_user, owner_org, public, doc)
            VALUES (?,?,?,?,?,?)`,
			a.ID, a.Version, nullIfEmpty(a.Owner.User), nullIfEmpty(a.Owner.Org),
			boolInt(a.Public), string(doc))
	case *model.User:
		_, err = tx.ExecContext(ctx, `
            INSERT INTO users (id, version, alias, doc) VALUES (?,?,?,?)`,
			a.ID, a.Version, nullIfEmpty(a.Alias), string(doc))
	case *model.Organisation:
		_, err = tx.ExecContext(ctx, `
            INSERT INTO organisations (id, version, alias, doc) VALUES (?,?,?,?)`,
			a.ID, a.Version, nullIfEmpty(a.Alias), string(doc))
	default:
		err = fmt.Errorf("unknown aggregate type %T", agg)
	}
	return err
}

func updateAggregate(ctx context.Context, tx *sql.Tx, agg model.Aggregate, expectedVersion int64) (int64, error) {
	doc, err := json.Marshal(agg)
	if err != nil {
		return 0, err
	}
	var res sql.Result
	switch a := agg.(type) {
	case *model.Work:
		res, err = tx.ExecContext(ctx, `
            UPDATE works SET version=?, alias=?, owner_user=?, owner_org=?, public=?, doc=?
            WHERE id=? AND version=?`,
			a.Version, nullIfEmpty(a.Alias), nullIfEmpty(a.Owner.User),
			nullIfEmpty(a.Owner.Org), boolInt(a.Public), string(doc), a.ID, expectedVersion)
	case *model.Media:
		res, err = tx.ExecContext(ctx, `
            UPDATE media SET version=?, owner_user=?, owner_org=?, public=?, doc=?
            WHERE id=? AND version=?`,
			a.Version, nullIfEmpty(a.Owner.User), nullIfEmpty(a.Owner.Org),
			boolInt(a.Public), string(doc), a.ID, expectedVersion)
	case *model.User:
		res, err = tx.ExecContext(ctx, `
            UPDATE users SET version=?, alias=?, doc=? WHERE id=? AND version=?`,
			a.Version, nullIfEmpty(a.Alias), string(doc), a.ID, expectedVersion)
	case *model.Organisation:
		res, err = tx.ExecContext(ctx, `
            UPDATE organisations SET version=?, alias=?, doc=? WHERE id=? AND version=?`,
			a.Version, nullIfEmpty(a.Alias), string(doc), a.ID, expectedVersion)
	default:
		return 0, fmt.Errorf("unknown aggregate type %T", agg)
	}
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func appendEventTx(ctx context.Context, tx *sql.Tx, b *model.EventBatch) error {
	raw, err := json.Marshal(b)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
        INSERT INTO event_log (object_id, object_type, published, batch)
        VALUES (?,?,0,?)`, b.Object, b.Type, string(raw))
	return err
}

// translateDuplicate turns the driver's unique-violation message into a
// typed DuplicateKeyError with the offending table and column parsed
// best-effort from "UNIQUE constraint failed: works.alias".
func translateDuplicate(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if !strings.Contains(msg, "UNIQUE constraint failed") {
		return err
	}
	dup := &model.DuplicateKeyError{Err: err}
	if i := strings.LastIndex(msg, "failed: "); i >= 0 {
		target := strings.TrimSpace(msg[i+len("failed: "):])
		if j := strings.IndexAny(target, " ("); j > 0 {
			target = target[:j]
		}
		if j := strings.Index(target, "."); j > 0 {
			dup.Collection = target[:j]
			dup.Property = target[j+1:]
		} else {
			dup.Collection = target
		}
	}
	return dup
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// --- Works ---

type works struct{ db *sql.DB }

func (w *works) FindByID(ctx context.Context, id string) (*model.Work, error) {
	return scanWork(w.db.QueryRowContext(ctx, `SELECT doc FROM works WHERE id=?`, id), id)
}

func (w *works) FindByAlias(ctx context.Context, alias string) (*model.Work, error) {
	return scanWork(w.db.QueryRowContext(ctx, `SELECT doc FROM works WHERE alias=?`, alias), alias)
}

func (w *works) ListByOwnerUser(ctx context.Context, userID string) ([]*model.Work, error) {
	return listWorks(ctx, w.db, `SELECT doc FROM works WHERE owner_user=? ORDER BY id`, userID)
}

func (w *works) ListByOwnerOrg(ctx context.Context, orgID string) ([]*model.Work, error) {
	return listWorks(ctx, w.db, `SELECT doc FROM works WHERE owner_org=? ORDER BY id`, orgID)
}

func scanWork(row *sql.Row, key string) (*model.Work, error) {
	var doc string
	if err := row.Scan(&doc); err != nil {
		if err == sql.ErrNoRows {
			return nil, model.NewWorkNotFound(key)
		}
		return nil, err
	}
	var out model.Work
	if err := json.Unmarshal([]byte(doc), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func listWorks(ctx context.Context, db *sql.DB, query string, arg interface{}) ([]*model.Work, error) {
	rows, err := db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Work
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var w model.Work
		if err := json.Unmarshal([]byte(doc), &w); err != nil {
			return nil, err
		}
		out = append(out, &w)
	}
	return out, rows.Err()
}

// --- Media ---

type media struct{ db *sql.DB }

func (m *media) FindByID(ctx context.Context, id string) (*model.Media, error) {
	var doc string
	err := m.db.QueryRowContext(ctx, `SELECT doc FROM media WHERE id=?`, id).Scan(&doc)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, model.NewMediaNotFound(id)
		}
		return nil, err
	}
	var out model.Media
	if err := json.Unmarshal([]byte(doc), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// --- Users ---

type users struct{ db *sql.DB }

func (u *users) FindByID(ctx context.Context, id string) (*model.User, error) {
	return scanUser(u.db.QueryRowContext(ctx, `SELECT doc FROM users WHERE id=?`, id), id)
}

func (u *users) FindByAlias(ctx context.Context, alias string) (*model.User, error) {
	return scanUser(u.db.QueryRowContext(ctx, `SELECT doc FROM users WHERE alias=?`, alias), alias)
}

func scanUser(row *sql.Row, key string) (*model.User, error) {
	var doc string
	if err := row.Scan(&doc); err != nil {
		if err == sql.ErrNoRows {
			return nil, model.NewUserNotFound(key)
		}
		return nil, err
	}
	var out model.User
	if err := json.Unmarshal([]byte(doc), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// --- Organisations ---

type organisations struct{ db *sql.DB }

func (o *organisations) FindByID(ctx context.Context, id string) (*model.Organisation, error) {
	return scanOrg(o.db.QueryRowContext(ctx, `SELECT doc FROM organisations WHERE id=?`, id), id)
}

func (o *organisations) FindByAlias(ctx context.Context, alias string) (*model.Organisation, error) {
	return scanOrg(o.db.QueryRowContext(ctx, `SELECT doc FROM organisations WHERE alias=?`, alias), alias)
}

func scanOrg(row *sql.Row, key string) (*model.Organisation, error) {
	var doc string
	if err := row.Scan(&doc); err != nil {
		if err == sql.ErrNoRows {
			return nil, model.NewOrganisationNotFound(key)
		}
		return nil, err
	}
	var out model.Organisation
	if err := json.Unmarshal([]byte(doc), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// --- Event log ---

type eventLog struct{ db *sql.DB }

func (e *eventLog) Append(ctx context.Context, b *model.EventBatch) error {
	raw, err := json.Marshal(b)
	if err != nil {
		return err
	}
	_, err = e.db.ExecContext(ctx, `
        INSERT INTO event_log (object_id, object_type, published, batch)
        VALUES (?,?,0,?)`, b.Object, b.Type, string(raw))
	return err
}

func (e *eventLog) ListByObject(ctx context.Context, objectID string, limit int) ([]*model.EventBatch, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := e.db.QueryContext(ctx, `
        SELECT batch FROM event_log WHERE object_id=? ORDER BY seq LIMIT ?`, objectID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.EventBatch
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var b model.EventBatch
		if err := json.Unmarshal([]byte(raw), &b); err != nil {
			return nil, err
		}
		out = append(out, &b)
	}
	return out, rows.Err()
}

func (e *eventLog) FetchUnpublished(ctx context.Context, limit int) ([]*store.StoredBatch, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := e.db.QueryContext(ctx, `
        SELECT seq, batch FROM event_log WHERE published=0 ORDER BY seq LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*store.StoredBatch
	for rows.Next() {
		var sb store.StoredBatch
		var raw string
		if err := rows.Scan(&sb.Seq, &raw); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(raw), &sb.Batch); err != nil {
			return nil, err
		}
		out = append(out, &sb)
	}
	return out, rows.Err()
}

func (e *eventLog) MarkPublished(ctx context.Context, seq int64) error {
	_, err := e.db.ExecContext(ctx, `UPDATE event_log SET published=1 WHERE seq=?`, seq)
	return err
}
