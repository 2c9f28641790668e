package postgres

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/gosuda/fieldops/internal/domain"
)

const (
	dateTimeLayout = "2006-01-02 15:04:05"
	dateLayout     = "2006-01-02"
)

// Accepted input layouts for date and datetime columns, tried in order.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	dateTimeLayout,
	"2006-01-02 15:04",
	dateLayout,
}

var (
	psql          = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	schemaPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)
	likeEscaper   = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
)

// ValidSchema reports whether name can be used as a tenant schema.
func ValidSchema(name string) bool {
	return schemaPattern.MatchString(name)
}

// QueryBuilder turns partial records into schema-qualified statements. Date
// and datetime columns are rendered with the calendar fields of loc.
type QueryBuilder struct {
	loc *time.Location
}

func NewQueryBuilder(loc *time.Location) *QueryBuilder {
	if loc == nil {
		loc = time.Local
	}
	return &QueryBuilder{loc: loc}
}

// Location returns the zone used for date formatting and day boundaries.
func (b *QueryBuilder) Location() *time.Location {
	return b.loc
}

// FormatLiteral renders value as the SQL literal stored for key:
// NULL for nil, decimal text for numbers, and a single-quoted string with
// embedded quotes doubled for text. Strings on datetime columns become
// 'YYYY-MM-DD HH:MM:SS' and on date columns 'YYYY-MM-DD'.
func (b *QueryBuilder) FormatLiteral(e domain.Entity, key string, value any) (string, error) {
	v, err := b.normalize(e, key, value)
	if err != nil {
		return "", err
	}
	return literal(v), nil
}

func literal(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case string:
		return "'" + strings.ReplaceAll(x, "'", "''") + "'"
	default:
		// normalize never returns anything else.
		return "NULL"
	}
}

// normalize converts a decoded payload value into the value bound for key.
// The result is always nil, int64, float64 or string.
func (b *QueryBuilder) normalize(e domain.Entity, key string, value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case string:
		if e.IsDateTime(key) || e.IsDate(key) {
			if t, ok := b.parseTime(v); ok {
				if e.IsDateTime(key) {
					return t.In(b.loc).Format(dateTimeLayout), nil
				}
				return t.In(b.loc).Format(dateLayout), nil
			}
		}
		return v, nil
	case float64:
		return numeric(key, v)
	case float32:
		return numeric(key, float64(v))
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n, nil
		}
		f, err := v.Float64()
		if err != nil {
			return nil, domain.Invalid(key, "invalid number %q", v.String())
		}
		return numeric(key, f)
	default:
		return nil, domain.Invalid(key, "unsupported data type %s", typeName(value))
	}
}

func numeric(key string, f float64) (any, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, domain.Invalid(key, "unsupported number %v", f)
	}
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return int64(f), nil
	}
	return f, nil
}

func typeName(v any) string {
	switch v.(type) {
	case bool:
		return "boolean"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func (b *QueryBuilder) parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, b.loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatDateTime renders t the way datetime columns are stored.
func (b *QueryBuilder) FormatDateTime(t time.Time) string {
	return t.In(b.loc).Format(dateTimeLayout)
}

// DayBounds returns [start of day, start of next day) for day in the
// builder's location.
func (b *QueryBuilder) DayBounds(day time.Time) (time.Time, time.Time) {
	d := day.In(b.loc)
	start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, b.loc)
	return start, start.AddDate(0, 0, 1)
}

func (b *QueryBuilder) table(schema string, e domain.Entity) (string, error) {
	if !ValidSchema(schema) {
		return "", domain.Invalid("schema", "invalid tenant schema %q", schema)
	}
	return pgx.Identifier{schema, e.Table}.Sanitize(), nil
}

func column(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func payloadColumns(rec domain.Record) ([]string, error) {
	if len(rec) == 0 {
		return nil, &domain.ValidationError{Reason: "payload must contain at least one column"}
	}
	keys := rec.Keys()
	for _, k := range keys {
		if !domain.ValidColumn(k) {
			return nil, domain.Invalid(k, "invalid column name")
		}
	}
	return keys, nil
}

// insertParts validates rec and returns the quoted columns with their bound
// values, in sorted column order.
func (b *QueryBuilder) insertParts(schema string, e domain.Entity, rec domain.Record) (string, []string, []any, error) {
	table, err := b.table(schema, e)
	if err != nil {
		return "", nil, nil, err
	}
	keys, err := payloadColumns(rec)
	if err != nil {
		return "", nil, nil, err
	}

	cols := make([]string, len(keys))
	vals := make([]any, len(keys))
	for i, k := range keys {
		v, err := b.normalize(e, k, rec[k])
		if err != nil {
			return "", nil, nil, err
		}
		cols[i] = column(k)
		vals[i] = v
	}
	return table, cols, vals, nil
}

// Insert builds INSERT INTO "schema"."table" (...) VALUES ($1, ...) RETURNING *.
func (b *QueryBuilder) Insert(schema string, e domain.Entity, rec domain.Record) (string, []any, error) {
	table, cols, vals, err := b.insertParts(schema, e, rec)
	if err != nil {
		return "", nil, err
	}
	return psql.Insert(table).Columns(cols...).Values(vals...).Suffix("RETURNING *").ToSql()
}

// RenderInsert returns the INSERT with every value inlined as a literal.
func (b *QueryBuilder) RenderInsert(schema string, e domain.Entity, rec domain.Record) (string, error) {
	table, cols, vals, err := b.insertParts(schema, e, rec)
	if err != nil {
		return "", err
	}
	exprs := make([]any, len(vals))
	for i, v := range vals {
		exprs[i] = sq.Expr(literal(v))
	}
	query, _, err := sq.Insert(table).Columns(cols...).Values(exprs...).Suffix("RETURNING *").ToSql()
	return query, err
}

func (b *QueryBuilder) updateParts(schema string, e domain.Entity, rec domain.Record) (string, []string, []any, error) {
	if _, ok := rec[e.PrimaryKey]; ok {
		return "", nil, nil, domain.Invalid(e.PrimaryKey, "primary key cannot be updated")
	}
	return b.insertParts(schema, e, rec)
}

// Update builds UPDATE "schema"."table" SET "col" = $1, ... WHERE "pk" = $n.
func (b *QueryBuilder) Update(schema string, e domain.Entity, id int64, rec domain.Record) (string, []any, error) {
	table, cols, vals, err := b.updateParts(schema, e, rec)
	if err != nil {
		return "", nil, err
	}
	q := psql.Update(table)
	for i, c := range cols {
		q = q.Set(c, vals[i])
	}
	return q.Where(sq.Eq{column(e.PrimaryKey): id}).ToSql()
}

// RenderUpdate returns the UPDATE with every value inlined as a literal.
func (b *QueryBuilder) RenderUpdate(schema string, e domain.Entity, id int64, rec domain.Record) (string, error) {
	table, cols, vals, err := b.updateParts(schema, e, rec)
	if err != nil {
		return "", err
	}
	q := sq.Update(table)
	for i, c := range cols {
		q = q.Set(c, sq.Expr(literal(vals[i])))
	}
	query, _, err := q.Where(fmt.Sprintf("%s = '%d'", column(e.PrimaryKey), id)).ToSql()
	return query, err
}

func (b *QueryBuilder) from(schema string, e domain.Entity) (sq.SelectBuilder, error) {
	table, err := b.table(schema, e)
	if err != nil {
		return sq.SelectBuilder{}, err
	}
	return psql.Select("*").From(table), nil
}

func paged(q sq.SelectBuilder, orderBy string, page domain.Page) sq.SelectBuilder {
	return q.OrderBy(orderBy).Limit(uint64(page.Limit)).Offset(uint64(page.Offset)) //nolint:gosec // normalized by PagePolicy
}

func (b *QueryBuilder) where(e domain.Entity, filter domain.Filter) (sq.Eq, error) {
	eq := sq.Eq{}
	for k, v := range filter {
		if !domain.ValidColumn(k) {
			return nil, domain.Invalid(k, "invalid column name")
		}
		nv, err := b.normalize(e, k, v)
		if err != nil {
			return nil, err
		}
		eq[column(k)] = nv
	}
	return eq, nil
}

// Select builds a filtered, primary-key ordered, paginated SELECT.
func (b *QueryBuilder) Select(schema string, e domain.Entity, filter domain.Filter, page domain.Page) (string, []any, error) {
	q, err := b.from(schema, e)
	if err != nil {
		return "", nil, err
	}
	if len(filter) > 0 {
		eq, err := b.where(e, filter)
		if err != nil {
			return "", nil, err
		}
		q = q.Where(eq)
	}
	return paged(q, column(e.PrimaryKey), page).ToSql()
}

// SelectByID builds SELECT * ... WHERE "pk" = $1 LIMIT 1.
func (b *QueryBuilder) SelectByID(schema string, e domain.Entity, id int64) (string, []any, error) {
	q, err := b.from(schema, e)
	if err != nil {
		return "", nil, err
	}
	return q.Where(sq.Eq{column(e.PrimaryKey): id}).Limit(1).ToSql()
}

// Delete builds DELETE FROM ... WHERE "pk" = $1.
func (b *QueryBuilder) Delete(schema string, e domain.Entity, id int64) (string, []any, error) {
	table, err := b.table(schema, e)
	if err != nil {
		return "", nil, err
	}
	return psql.Delete(table).Where(sq.Eq{column(e.PrimaryKey): id}).ToSql()
}

// Contains builds a case-insensitive substring match over any of columns.
func Contains(term string, columns ...string) sq.Sqlizer {
	pattern := "%" + likeEscaper.Replace(term) + "%"
	or := make(sq.Or, 0, len(columns))
	for _, c := range columns {
		or = append(or, sq.ILike{column(c): pattern})
	}
	return or
}
