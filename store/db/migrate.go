package db

import (
	"bytes"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"text/template"

	sq "github.com/Masterminds/squirrel"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/tsenart/nap"
)

//go:embed schema/*.sql
var embedFiles embed.FS

type Driver string

const (
	DriverSqlite   Driver = "sqlite3"
	DriverPostgres Driver = "postgres"
)

func (d Driver) Placeholder() sq.PlaceholderFormat {
	if d == DriverPostgres {
		return sq.Dollar
	}

	return sq.Question
}

type MigrateData struct {
	Driver Driver
}

func (d MigrateData) BlobType() string {
	if d.Driver == DriverPostgres {
		return "BYTEA"
	}

	return "BLOB"
}

// Open connects to the database and applies the embedded schema.
func Open(driver Driver, dsn string) (*nap.DB, error) {
	conn, err := nap.Open(string(driver), dsn)
	if err != nil {
		return nil, err
	}

	// sqlite serializes writers, one connection avoids SQLITE_BUSY inside transactions
	if driver == DriverSqlite {
		conn.SetMaxOpenConns(1)
	}

	if err := Migrate(conn.Master(), MigrateData{Driver: driver}); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return conn, nil
}

// Migrate run migration with embed schemes.
func Migrate(db *sql.DB, data MigrateData) error {
	d, err := iofs.New(&templateFS{
		data: data,
		FS:   embedFiles,
	}, "schema")
	if err != nil {
		return err
	}

	var driver database.Driver
	switch data.Driver {
	case DriverSqlite:
		driver, err = sqlite3.WithInstance(db, &sqlite3.Config{})
	case DriverPostgres:
		driver, err = postgres.WithInstance(db, &postgres.Config{})
	default:
		return fmt.Errorf("unsupported db driver %q", data.Driver)
	}

	if err != nil {
		return err
	}

	m, err := migrate.NewWithInstance("iofs", d, string(data.Driver), driver)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	return nil
}

type templateFile struct {
	io.ReadCloser
	info *fileInfoWithSize
}

func (t *templateFile) Stat() (fs.FileInfo, error) {
	return t.info, nil
}

// templateFS renders every schema file through text/template so one
// schema serves both drivers.
type templateFS struct {
	data any
	embed.FS
}

func (t *templateFS) Open(name string) (fs.File, error) {
	file, err := t.FS.Open(name)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, err
	}

	if info.IsDir() {
		return t.FS.Open(name)
	}

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}

	tmpl, err := template.New(info.Name()).Parse(string(content))
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, t.data); err != nil {
		return nil, err
	}

	return &templateFile{
		ReadCloser: io.NopCloser(bytes.NewReader(buf.Bytes())),
		info:       &fileInfoWithSize{info, int64(buf.Len())},
	}, nil
}

type fileInfoWithSize struct {
	fs.FileInfo
	size int64
}

func (f *fileInfoWithSize) Size() int64 {
	return f.size
}
