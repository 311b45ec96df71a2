// Package sqlschema describes the columns of a live SQL table as
// fields.Field values, so rows for the table can be generated with
// fields.FromFields.
package sqlschema

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/shipq/conjecture/dburl"
	"github.com/shipq/conjecture/fields"
)

// ErrTableNotFound is returned when a table has no visible columns.
var ErrTableNotFound = errors.New("table not found")

// Open connects to the database named by dbURL and returns it with its
// dialect. SQLite handles are limited to one connection so in-memory
// databases stay shared.
func Open(ctx context.Context, dbURL string) (*sql.DB, string, error) {
	dsn, dialect, err := dburl.DSN(dbURL)
	if err != nil {
		return nil, "", err
	}
	driver, err := dburl.DriverName(dialect)
	if err != nil {
		return nil, "", err
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open %s database: %w", dialect, err)
	}
	if dialect == dburl.DialectSQLite {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, "", fmt.Errorf("failed to ping %s: %w", dburl.Redact(dbURL), err)
	}
	return db, dialect, nil
}

// column is the dialect-neutral view of one row of column metadata.
type column struct {
	name      string
	sqlType   string
	nullable  bool
	auto      bool
	maxLength sql.NullInt64
	precision sql.NullInt64
	scale     sql.NullInt64
}

// Columns returns a Field for each column of table, in declaration order.
func Columns(ctx context.Context, db *sql.DB, dialect, table string) ([]fields.Field, error) {
	var (
		cols []column
		err  error
	)
	switch dialect {
	case dburl.DialectSQLite:
		cols, err = sqliteColumns(ctx, db, table)
	case dburl.DialectPostgres:
		cols, err = postgresColumns(ctx, db, table)
	case dburl.DialectMySQL:
		cols, err = mysqlColumns(ctx, db, table)
	default:
		return nil, fmt.Errorf("%w: %q", dburl.ErrUnknownDialect, dialect)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", table, err)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}

	out := make([]fields.Field, len(cols))
	for i, c := range cols {
		out[i] = toField(dialect, c)
	}
	return out, nil
}

func sqliteColumns(ctx context.Context, db *sql.DB, table string) ([]column, error) {
	rows, err := db.QueryContext(ctx, `SELECT name, type, "notnull", pk FROM pragma_table_info(?) ORDER BY cid`, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []column
	for rows.Next() {
		var (
			c       column
			notNull bool
			pk      int
		)
		if err := rows.Scan(&c.name, &c.sqlType, &notNull, &pk); err != nil {
			return nil, err
		}
		// INTEGER PRIMARY KEY aliases the rowid.
		c.auto = pk == 1 && strings.EqualFold(strings.TrimSpace(c.sqlType), "integer")
		c.nullable = !notNull && pk == 0
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

func postgresColumns(ctx context.Context, db *sql.DB, table string) ([]column, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT column_name, data_type, is_nullable, character_maximum_length,
		       numeric_precision, numeric_scale,
		       COALESCE(column_default, ''), is_identity
		FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1
		ORDER BY ordinal_position`, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []column
	for rows.Next() {
		var (
			c                  column
			nullable, identity string
			def                string
		)
		if err := rows.Scan(&c.name, &c.sqlType, &nullable, &c.maxLength, &c.precision, &c.scale, &def, &identity); err != nil {
			return nil, err
		}
		c.nullable = nullable == "YES"
		c.auto = identity == "YES" || strings.HasPrefix(def, "nextval(")
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

func mysqlColumns(ctx context.Context, db *sql.DB, table string) ([]column, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT column_name, column_type, is_nullable, character_maximum_length,
		       numeric_precision, numeric_scale, extra
		FROM information_schema.columns
		WHERE table_schema = DATABASE() AND table_name = ?
		ORDER BY ordinal_position`, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []column
	for rows.Next() {
		var (
			c               column
			nullable, extra string
		)
		if err := rows.Scan(&c.name, &c.sqlType, &nullable, &c.maxLength, &c.precision, &c.scale, &extra); err != nil {
			return nil, err
		}
		c.nullable = nullable == "YES"
		c.auto = strings.Contains(strings.ToLower(extra), "auto_increment")
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

// =============================================================================
// Type Mapping
// =============================================================================

var kindsByType = map[string]fields.Kind{
	"smallint":                    fields.KindSmallInteger,
	"int2":                        fields.KindSmallInteger,
	"tinyint":                     fields.KindSmallInteger,
	"int":                         fields.KindInteger,
	"integer":                     fields.KindInteger,
	"int4":                        fields.KindInteger,
	"mediumint":                   fields.KindInteger,
	"bigint":                      fields.KindBigInteger,
	"int8":                        fields.KindBigInteger,
	"bool":                        fields.KindBoolean,
	"boolean":                     fields.KindBoolean,
	"char":                        fields.KindChar,
	"character":                   fields.KindChar,
	"varchar":                     fields.KindChar,
	"character varying":           fields.KindChar,
	"nchar":                       fields.KindChar,
	"nvarchar":                    fields.KindChar,
	"text":                        fields.KindText,
	"tinytext":                    fields.KindText,
	"mediumtext":                  fields.KindText,
	"longtext":                    fields.KindText,
	"clob":                        fields.KindText,
	"citext":                      fields.KindText,
	"blob":                        fields.KindBinary,
	"tinyblob":                    fields.KindBinary,
	"mediumblob":                  fields.KindBinary,
	"longblob":                    fields.KindBinary,
	"bytea":                       fields.KindBinary,
	"binary":                      fields.KindBinary,
	"varbinary":                   fields.KindBinary,
	"uuid":                        fields.KindUUID,
	"inet":                        fields.KindIP,
	"numeric":                     fields.KindDecimal,
	"decimal":                     fields.KindDecimal,
	"real":                        fields.KindFloat,
	"float":                       fields.KindFloat,
	"float4":                      fields.KindFloat,
	"float8":                      fields.KindFloat,
	"double":                      fields.KindFloat,
	"double precision":            fields.KindFloat,
	"date":                        fields.KindDate,
	"datetime":                    fields.KindDateTime,
	"timestamp":                   fields.KindDateTime,
	"timestamptz":                 fields.KindDateTime,
	"timestamp with time zone":    fields.KindDateTime,
	"timestamp without time zone": fields.KindDateTime,
	"time":                        fields.KindTime,
	"time without time zone":      fields.KindTime,
	"interval":                    fields.KindDuration,
}

var unsignedKinds = map[fields.Kind]fields.Kind{
	fields.KindSmallInteger: fields.KindPositiveSmallInt,
	fields.KindInteger:      fields.KindPositiveInteger,
}

// parseType splits a declared type such as "decimal(10,2) unsigned" into
// its lower-cased base name, its arguments and the unsigned flag.
func parseType(sqlType string) (base string, args []string, unsigned bool) {
	t := strings.ToLower(strings.TrimSpace(sqlType))
	if rest, ok := strings.CutSuffix(t, " unsigned"); ok {
		t, unsigned = rest, true
	}
	base, argList, ok := strings.Cut(t, "(")
	base = strings.TrimSpace(base)
	if !ok {
		return base, nil, unsigned
	}
	argList, _, _ = strings.Cut(argList, ")")
	for a := range strings.SplitSeq(argList, ",") {
		args = append(args, strings.TrimSpace(a))
	}
	return base, args, unsigned
}

// KindForType maps a declared SQL type onto a field kind. Unknown types
// fall back to SQLite's affinity rules for the sqlite dialect, and to a
// kind named after the type otherwise, which a caller can Register.
func KindForType(dialect, sqlType string) fields.Kind {
	base, args, unsigned := parseType(sqlType)
	if base == "tinyint" && len(args) == 1 && args[0] == "1" && dialect == dburl.DialectMySQL {
		return fields.KindBoolean
	}
	if kind, ok := kindsByType[base]; ok {
		if unsigned {
			if u, ok := unsignedKinds[kind]; ok {
				return u
			}
		}
		return kind
	}
	if dialect == dburl.DialectSQLite {
		return sqliteAffinity(base)
	}
	return fields.Kind(base)
}

func sqliteAffinity(base string) fields.Kind {
	switch {
	case strings.Contains(base, "int"):
		return fields.KindBigInteger
	case strings.Contains(base, "char"), strings.Contains(base, "clob"), strings.Contains(base, "text"):
		return fields.KindText
	case base == "", strings.Contains(base, "blob"):
		return fields.KindBinary
	case strings.Contains(base, "real"), strings.Contains(base, "floa"), strings.Contains(base, "doub"):
		return fields.KindFloat
	}
	return fields.KindDecimal
}

func toField(dialect string, c column) fields.Field {
	f := fields.Field{
		Name:    c.name,
		Kind:    KindForType(dialect, c.sqlType),
		Null:    c.nullable,
		Dialect: dialect,
	}
	if c.auto {
		f.Kind = fields.KindAuto
		return f
	}

	base, args, _ := parseType(c.sqlType)
	switch f.Kind {
	case fields.KindChar:
		if c.maxLength.Valid {
			f.MaxLength = int(c.maxLength.Int64)
		} else if n, ok := intArg(args, 0); ok {
			f.MaxLength = n
		}
	case fields.KindDecimal:
		f.MaxDigits, f.DecimalPlaces = decimalBounds(c, args)
		if f.MaxDigits == 0 {
			f.Kind = fields.KindFloat
		}
	}
	if dialect == dburl.DialectMySQL && base == "enum" {
		f.Kind = fields.KindChar
		for _, a := range args {
			f.Choices = append(f.Choices, fields.Choice{Value: strings.Trim(a, "'")})
		}
	}
	return f
}

// decimalBounds returns the precision and scale of a decimal column,
// clamped to what fields.Decimal supports. Zero precision means unknown.
func decimalBounds(c column, args []string) (digits, places int) {
	if c.precision.Valid {
		digits = int(c.precision.Int64)
	} else if n, ok := intArg(args, 0); ok {
		digits = n
	}
	if c.scale.Valid {
		places = int(c.scale.Int64)
	} else if n, ok := intArg(args, 1); ok {
		places = n
	}
	if digits > 18 {
		places = max(0, places-(digits-18))
		digits = 18
	}
	return digits, min(places, digits)
}

func intArg(args []string, i int) (int, bool) {
	if i >= len(args) {
		return 0, false
	}
	n, err := strconv.Atoi(args[i])
	return n, err == nil
}
