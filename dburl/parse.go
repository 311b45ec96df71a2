// Package dburl maps database URLs onto database/sql driver names and
// connection strings.
package dburl

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Supported database dialects
const (
	DialectPostgres = "postgres"
	DialectMySQL    = "mysql"
	DialectSQLite   = "sqlite"
)

var (
	ErrUnknownDialect = errors.New("unknown database dialect")
	ErrInvalidURL     = errors.New("invalid database URL")
)

var drivers = map[string]string{
	DialectPostgres: "pgx",
	DialectMySQL:    "mysql",
	DialectSQLite:   "sqlite",
}

// InferDialect returns the dialect ("postgres", "mysql", or "sqlite")
// based on the URL scheme.
func InferDialect(dbURL string) (string, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	return dialectOf(u)
}

func dialectOf(u *url.URL) (string, error) {
	scheme := strings.ToLower(u.Scheme)
	switch scheme {
	case "postgres", "postgresql":
		return DialectPostgres, nil
	case "mysql":
		return DialectMySQL, nil
	case "sqlite", "sqlite3", "file":
		return DialectSQLite, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownDialect, scheme)
	}
}

// DriverName returns the database/sql driver registered for dialect.
func DriverName(dialect string) (string, error) {
	name, ok := drivers[dialect]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownDialect, dialect)
	}
	return name, nil
}

// DSN converts dbURL into the connection string its driver expects and
// returns it with the dialect.
//
//	postgres://user:pw@host:5432/db  -> unchanged (pgx accepts URLs)
//	mysql://user:pw@host:3306/db?x=1 -> user:pw@tcp(host:3306)/db?x=1
//	sqlite:///abs/path.db            -> /abs/path.db
//	sqlite:rel.db, sqlite::memory:   -> rel.db, :memory:
func DSN(dbURL string) (dsn, dialect string, err error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	dialect, err = dialectOf(u)
	if err != nil {
		return "", "", err
	}

	switch dialect {
	case DialectPostgres:
		return dbURL, dialect, nil
	case DialectMySQL:
		dsn, err = mysqlDSN(u)
		return dsn, dialect, err
	default:
		dsn, err = sqliteDSN(u)
		return dsn, dialect, err
	}
}

func mysqlDSN(u *url.URL) (string, error) {
	if u.Host == "" {
		return "", fmt.Errorf("%w: mysql URL %q has no host", ErrInvalidURL, Redact(u.String()))
	}
	var b strings.Builder
	if u.User != nil {
		b.WriteString(u.User.Username())
		if pw, ok := u.User.Password(); ok {
			b.WriteString(":" + pw)
		}
		b.WriteString("@")
	}
	fmt.Fprintf(&b, "tcp(%s)/%s", u.Host, strings.TrimPrefix(u.Path, "/"))
	if u.RawQuery != "" {
		b.WriteString("?" + u.RawQuery)
	}
	return b.String(), nil
}

func sqliteDSN(u *url.URL) (string, error) {
	path := u.Opaque
	if path == "" {
		path = u.Host + u.Path
	}
	if path == "" {
		return "", fmt.Errorf("%w: sqlite URL has no path", ErrInvalidURL)
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return path, nil
}

// ParseDatabaseName extracts the database name from a URL.
// Returns an empty string if no database name is present.
func ParseDatabaseName(dbURL string) string {
	u, err := url.Parse(dbURL)
	if err != nil {
		return ""
	}
	if u.Opaque != "" {
		return u.Opaque
	}
	return strings.TrimPrefix(u.Path, "/")
}

// Redact replaces the password in dbURL, for logging.
func Redact(dbURL string) string {
	u, err := url.Parse(dbURL)
	if err != nil {
		return "<invalid url>"
	}
	return u.Redacted()
}
