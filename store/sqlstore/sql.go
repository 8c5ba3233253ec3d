// Package sqlstore implements rpq.Store as a document store on SQL databases.
//
// Each collection is a table of (seq, id, doc) rows. doc holds the document as JSON, id is a UUID, and seq
// gives list results a stable insertion order. SQLite (modernc.org/sqlite) and PostgreSQL (pgx) are supported.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"  // dialect registration
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	jsoniter "github.com/json-iterator/go"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/jeremywhuff/rpq"
)

const (
	DriverSQLite = "sqlite"
	DriverPgx    = "pgx"

	dialectSQLite   = "sqlite3"
	dialectPostgres = "postgres"

	colSeq = "seq"
	colID  = "id"
	colDoc = "doc"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

type Store struct {
	db          *sql.DB
	dialectName string
	dialect     goqu.DialectWrapper
}

var _ rpq.Store = (*Store)(nil)

// Open opens a database with one of DriverSQLite or DriverPgx. In-memory SQLite databases are limited to a
// single connection, since every connection would otherwise see its own empty database.
func Open(driver string, dsn string) (*Store, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if driver == DriverSQLite && strings.Contains(dsn, ":memory:") {
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlstore: ping %s: %w", driver, err)
	}

	s, err := New(db, driver)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an open database. driver selects the SQL dialect.
func New(db *sql.DB, driver string) (*Store, error) {
	var name string
	switch driver {
	case DriverSQLite:
		name = dialectSQLite
	case DriverPgx:
		name = dialectPostgres
	default:
		return nil, fmt.Errorf("sqlstore: unsupported driver %q", driver)
	}
	return &Store{db: db, dialectName: name, dialect: goqu.Dialect(name)}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureCollection creates the table backing a collection if it does not exist yet.
func (s *Store) EnsureCollection(ctx context.Context, name string) error {
	if !identPattern.MatchString(name) {
		return fmt.Errorf("sqlstore: invalid collection name %q", name)
	}

	ddl := `CREATE TABLE IF NOT EXISTS "%s" (seq INTEGER PRIMARY KEY AUTOINCREMENT, id TEXT NOT NULL UNIQUE, doc TEXT NOT NULL)`
	if s.dialectName == dialectPostgres {
		ddl = `CREATE TABLE IF NOT EXISTS "%s" (seq BIGSERIAL PRIMARY KEY, id TEXT NOT NULL UNIQUE, doc JSONB NOT NULL)`
	}

	_, err := s.db.ExecContext(ctx, fmt.Sprintf(ddl, name))
	return err
}

func (s *Store) IDField() string {
	return colID
}

func (s *Store) ParseID(id string) (any, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}
	return u.String(), nil
}

func (s *Store) Find(ctx context.Context, collection string, filters []rpq.Filter, skip, limit int64) ([]rpq.Document, error) {
	ds := s.dialect.From(collection).
		Select(colID, colDoc).
		Order(goqu.C(colSeq).Asc()).
		Offset(uint(skip)).
		Limit(uint(limit))

	if len(filters) > 0 {
		where, err := Translate(s.dialectName, filters)
		if err != nil {
			return nil, err
		}
		ds = ds.Where(where)
	}

	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := make([]rpq.Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}

func (s *Store) Count(ctx context.Context, collection string, filters []rpq.Filter) (int64, error) {
	ds := s.dialect.From(collection).Select(goqu.COUNT(goqu.Star()))

	if len(filters) > 0 {
		where, err := Translate(s.dialectName, filters)
		if err != nil {
			return 0, err
		}
		ds = ds.Where(where)
	}

	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return 0, err
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) FindOne(ctx context.Context, collection string, id any) (rpq.Document, error) {
	return s.findOne(ctx, s.db, collection, id, false)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) findOne(ctx context.Context, q queryer, collection string, id any, forUpdate bool) (rpq.Document, error) {
	ds := s.dialect.From(collection).
		Select(colID, colDoc).
		Where(goqu.C(colID).Eq(id)).
		Limit(1)
	if forUpdate && s.dialectName == dialectPostgres {
		ds = ds.ForUpdate(exp.Wait)
	}

	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return nil, err
	}

	doc, err := scanDocument(q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, rpq.ErrNoDocument
	}
	return doc, err
}

func (s *Store) InsertOne(ctx context.Context, collection string, doc rpq.Document) (any, error) {
	id := uuid.NewString()

	b, err := marshalDocument(doc)
	if err != nil {
		return nil, err
	}

	query, args, err := s.dialect.Insert(collection).
		Rows(goqu.Record{colID: id, colDoc: string(b)}).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, err
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return nil, err
	}
	return id, nil
}

// FindOneAndUpdate merges set into the stored document and returns the document after the update.
func (s *Store) FindOneAndUpdate(ctx context.Context, collection string, id any, set rpq.Document) (rpq.Document, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback() //nolint:errcheck

	doc, err := s.findOne(ctx, tx, collection, id, true)
	if err != nil {
		return nil, err
	}
	for k, v := range set {
		doc[k] = v
	}

	b, err := marshalDocument(doc)
	if err != nil {
		return nil, err
	}

	query, args, err := s.dialect.Update(collection).
		Set(goqu.Record{colDoc: string(b)}).
		Where(goqu.C(colID).Eq(id)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	// Round-trip through JSON so the result has the same shape as a fresh read.
	return unmarshalDocument(rpq.FormatID(id), b)
}

func (s *Store) DeleteOne(ctx context.Context, collection string, id any) (bool, error) {
	query, args, err := s.dialect.Delete(collection).
		Where(goqu.C(colID).Eq(id)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return false, err
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (rpq.Document, error) {
	var (
		id  string
		raw []byte
	)
	if err := row.Scan(&id, &raw); err != nil {
		return nil, err
	}
	return unmarshalDocument(id, raw)
}

func unmarshalDocument(id string, raw []byte) (rpq.Document, error) {
	doc := rpq.Document{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("sqlstore: decode document %s: %w", id, err)
	}
	doc[colID] = id
	return doc, nil
}

// marshalDocument encodes doc without its id, which lives in its own column.
func marshalDocument(doc rpq.Document) ([]byte, error) {
	body := make(rpq.Document, len(doc))
	for k, v := range doc {
		if k != colID {
			body[k] = v
		}
	}
	return json.Marshal(body)
}
