// Package postgres implements the catalog store on PostgreSQL using
// the pgx driver through database/sql.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/mediacatalog/catalog/internal/model"
	"github.com/mediacatalog/catalog/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS works (
    id         TEXT PRIMARY KEY,
    version    BIGINT NOT NULL,
    alias      TEXT,
    owner_user TEXT,
    owner_org  TEXT,
    public     BOOLEAN NOT NULL DEFAULT false,
    doc        JSONB NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS works_alias_key ON works(alias) WHERE alias IS NOT NULL;
CREATE INDEX IF NOT EXISTS works_owner_user ON works(owner_user);
CREATE INDEX IF NOT EXISTS works_owner_org ON works(owner_org);

CREATE TABLE IF NOT EXISTS media (
    id         TEXT PRIMARY KEY,
    version    BIGINT NOT NULL,
    owner_user TEXT,
    owner_org  TEXT,
    public     BOOLEAN NOT NULL DEFAULT false,
    doc        JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS users (
    id      TEXT PRIMARY KEY,
    version BIGINT NOT NULL,
    alias   TEXT,
    doc     JSONB NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS users_alias_key ON users(alias) WHERE alias IS NOT NULL;

CREATE TABLE IF NOT EXISTS organisations (
    id      TEXT PRIMARY KEY,
    version BIGINT NOT NULL,
    alias   TEXT,
    doc     JSONB NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS organisations_alias_key ON organisations(alias) WHERE alias IS NOT NULL;

CREATE TABLE IF NOT EXISTS event_log (
    seq         BIGSERIAL PRIMARY KEY,
    object_id   TEXT NOT NULL,
    object_type TEXT NOT NULL,
    published   BOOLEAN NOT NULL DEFAULT false,
    batch       JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS event_log_object ON event_log(object_id, seq);
CREATE INDEX IF NOT EXISTS event_log_unpublished ON event_log(seq) WHERE NOT published;
`

// Open connects with the given DSN and ensures the schema exists.
func Open(ctx context.Context, dsn string) (store.Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn is empty")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &pgStore{db: db}, nil
}

// NewWithDB wraps an existing connection, creating the schema.
func NewWithDB(ctx context.Context, db *sql.DB) (store.Store, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, err
	}
	return &pgStore{db: db}, nil
}

type pgStore struct{ db *sql.DB }

func (s *pgStore) Works() store.Works                 { return &works{db: s.db} }
func (s *pgStore) Media() store.Media                 { return &media{db: s.db} }
func (s *pgStore) Users() store.Users                 { return &users{db: s.db} }
func (s *pgStore) Organisations() store.Organisations { return &organisations{db: s.db} }
func (s *pgStore) Events() store.Events               { return &eventLog{db: s.db} }

func (s *pgStore) HealthPing(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *pgStore) Insert(ctx context.Context, agg model.Aggregate, event *model.EventBatch) error {
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

func (s *pgStore) ConditionalSave(ctx context.Context, agg model.Aggregate, expectedVersion int64, event *model.EventBatch) (int64, error) {
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

func (s *pgStore) Remove(ctx context.Context, agg model.Aggregate, event *model.EventBatch) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, tableFor(agg)), agg.AggregateID()); err != nil {
		return err
	}
	if event != nil {
		if err := appendEventTx(ctx, tx, event); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *pgStore) AppendEvent(ctx context.Context, event *model.EventBatch) error {
	raw, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
        INSERT INTO event_log (object_id, object_type, published, batch)
        VALUES ($1,$2,false,$3)`, event.Object, event.Type, raw)
	return err
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
            VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			a.ID, a.Version, nullIfEmpty(a.Alias), nullIfEmpty(a.Owner.User),
			nullIfEmpty(a.Owner.Org), a.Public, doc)
	case *model.Media:
		_, err = tx.ExecContext(ctx, `
            INSERT INTO media (id, version, owner_user, owner_org, public, doc)
            VALUES ($1,$2,$3,$4,$5,$6)`,
			a.ID, a.Version, nullIfEmpty(a.Owner.User), nullIfEmpty(a.Owner.Org),
			a.Public, doc)
	case *model.User:
		_, err = tx.ExecContext(ctx, `
            INSERT INTO users (id, version, alias, doc) VALUES ($1,$2,$3,$4)`,
			a.ID, a.Version, nullIfEmpty(a.Alias), doc)
	case *model.Organisation:
		_, err = tx.ExecContext(ctx, `
            INSERT INTO organisations (id, version, alias, doc) VALUES ($1,$2,$3,$4)`,
			a.ID, a.Version, nullIfEmpty(a.Alias), doc)
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
            UPDATE works SET version=$1, alias=$2, owner_user=$3, owner_org=$4, public=$5, doc=$6
            WHERE id=$7 AND version=$8`,
			a.Version, nullIfEmpty(a.Alias), nullIfEmpty(a.Owner.User),
			nullIfEmpty(a.Owner.Org), a.Public, doc, a.ID, expectedVersion)
	case *model.Media:
		res, err = tx.ExecContext(ctx, `
            UPDATE media SET version=$1, owner_user=$2, owner_org=$3, public=$4, doc=$5
            WHERE id=$6 AND version=$7`,
			a.Version, nullIfEmpty(a.Owner.User), nullIfEmpty(a.Owner.Org),
			a.Public, doc, a.ID, expectedVersion)
	case *model.User:
		res, err = tx.ExecContext(ctx, `
            UPDATE users SET version=$1, alias=$2, doc=$3 WHERE id=$4 AND version=$5`,
			a.Version, nullIfEmpty(a.Alias), doc, a.ID, expectedVersion)
	case *model.Organisation:
		res, err = tx.ExecContext(ctx, `
            UPDATE organisations SET version=$1, alias=$2, doc=$3 WHERE id=$4 AND version=$5`,
			a.Version, nullIfEmpty(a.Alias), doc, a.ID, expectedVersion)
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
        VALUES ($1,$2,false,$3)`, b.Object, b.Type, raw)
	return err
}

// translateDuplicate maps a unique violation (SQLSTATE 23505) to a
// typed DuplicateKeyError, parsing table and column from the index
// name, e.g. works_alias_key.
func translateDuplicate(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return err
	}
	dup := &model.DuplicateKeyError{Err: err}
	name := strings.TrimSuffix(pgErr.ConstraintName, "_key")
	if i := strings.Index(name, "_"); i > 0 {
		dup.Collection = name[:i]
		dup.Property = name[i+1:]
	} else {
		dup.Collection = name
	}
	return dup
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// --- Works ---

type works struct{ db *sql.DB }

func (w *works) FindByID(ctx context.Context, id string) (*model.Work, error) {
	return scanWork(w.db.QueryRowContext(ctx, `SELECT doc FROM works WHERE id=$1`, id), id)
}

func (w *works) FindByAlias(ctx context.Context, alias string) (*model.Work, error) {
	return scanWork(w.db.QueryRowContext(ctx, `SELECT doc FROM works WHERE alias=$1`, alias), alias)
}

func (w *works) ListByOwnerUser(ctx context.Context, userID string) ([]*model.Work, error) {
	return listWorks(ctx, w.db, `SELECT doc FROM works WHERE owner_user=$1 ORDER BY id`, userID)
}

func (w *works) ListByOwnerOrg(ctx context.Context, orgID string) ([]*model.Work, error) {
	return listWorks(ctx, w.db, `SELECT doc FROM works WHERE owner_org=$1 ORDER BY id`, orgID)
}

func scanWork(row *sql.Row, key string) (*model.Work, error) {
	var doc []byte
	if err := row.Scan(&doc); err != nil {
		if err == sql.ErrNoRows {
			return nil, model.NewWorkNotFound(key)
		}
		return nil, err
	}
	var out model.Work
	if err := json.Unmarshal(doc, &out); err != nil {
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
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var w model.Work
		if err := json.Unmarshal(doc, &w); err != nil {
			return nil, err
		}
		out = append(out, &w)
	}
	return out, rows.Err()
}

// --- Media ---

type media struct{ db *sql.DB }

func (m *media) FindByID(ctx context.Context, id string) (*model.Media, error) {
	var doc []byte
	err := m.db.QueryRowContext(ctx, `SELECT doc FROM media WHERE id=$1`, id).Scan(&doc)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, model.NewMediaNotFound(id)
		}
		return nil, err
	}
	var out model.Media
	if err := json.Unmarshal(doc, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// --- Users ---

type users struct{ db *sql.DB }

func (u *users) FindByID(ctx context.Context, id string) (*model.User, error) {
	return scanUser(u.db.QueryRowContext(ctx, `SELECT doc FROM users WHERE id=$1`, id), id)
}

func (u *users) FindByAlias(ctx context.Context, alias string) (*model.User, error) {
	return scanUser(u.db.QueryRowContext(ctx, `SELECT doc FROM users WHERE alias=$1`, alias), alias)
}

func scanUser(row *sql.Row, key string) (*model.User, error) {
	var doc []byte
	if err := row.Scan(&doc); err != nil {
		if err == sql.ErrNoRows {
			return nil, model.NewUserNotFound(key)
		}
		return nil, err
	}
	var out model.User
	if err := json.Unmarshal(doc, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// --- Organisations ---

type organisations struct{ db *sql.DB }

func (o *organisations) FindByID(ctx context.Context, id string) (*model.Organisation, error) {
	return scanOrg(o.db.QueryRowContext(ctx, `SELECT doc FROM organisations WHERE id=$1`, id), id)
}

func (o *organisations) FindByAlias(ctx context.Context, alias string) (*model.Organisation, error) {
	return scanOrg(o.db.QueryRowContext(ctx, `SELECT doc FROM organisations WHERE alias=$1`, alias), alias)
}

func scanOrg(row *sql.Row, key string) (*model.Organisation, error) {
	var doc []byte
	if err := row.Scan(&doc); err != nil {
		if err == sql.ErrNoRows {
			return nil, model.NewOrganisationNotFound(key)
		}
		return nil, err
	}
	var out model.Organisation
	if err := json.Unmarshal(doc, &out); err != nil {
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
        VALUES ($1,$2,false,$3)`, b.Object, b.Type, raw)
	return err
}

func (e *eventLog) ListByObject(ctx context.Context, objectID string, limit int) ([]*model.EventBatch, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := e.db.QueryContext(ctx, `
        SELECT batch FROM event_log WHERE object_id=$1 ORDER BY seq LIMIT $2`, objectID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.EventBatch
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var b model.EventBatch
		if err := json.Unmarshal(raw, &b); err != nil {
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
        SELECT seq, batch FROM event_log WHERE NOT published ORDER BY seq LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*store.StoredBatch
	for rows.Next() {
		var sb store.StoredBatch
		var raw []byte
		if err := rows.Scan(&sb.Seq, &raw); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &sb.Batch); err != nil {
			return nil, err
		}
		out = append(out, &sb)
	}
	return out, rows.Err()
}

func (e *eventLog) MarkPublished(ctx context.Context, seq int64) error {
	_, err := e.db.ExecContext(ctx, `UPDATE event_log SET published=true WHERE seq=$1`, seq)
	return err
}
