package postgres

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/fieldops/internal/domain"
)

func utcBuilder() *QueryBuilder {
	return NewQueryBuilder(time.UTC)
}

func TestFormatLiteral(t *testing.T) {
	t.Parallel()

	qb := utcBuilder()
	tests := []struct {
		name   string
		entity domain.Entity
		key    string
		value  any
		want   string
	}{
		{name: "null", entity: domain.Clients, key: "x", value: nil, want: "NULL"},
		{name: "integer", entity: domain.Clients, key: "cuid", value: float64(42), want: "42"},
		{name: "fraction", entity: domain.Invoices, key: "invamount", value: 12.5, want: "12.5"},
		{name: "negative", entity: domain.Invoices, key: "invamount", value: -3, want: "-3"},
		{name: "plain string", entity: domain.Clients, key: "cname", value: "Acme", want: "'Acme'"},
		{name: "embedded quote", entity: domain.Clients, key: "cname", value: "O'Brien", want: "'O''Brien'"},
		{name: "datetime column", entity: domain.Clients, key: "cadate", value: "2024-03-01T10:15:00Z", want: "'2024-03-01 10:15:00'"},
		{name: "datetime without zone", entity: domain.Tasks, key: "tdts", value: "2024-03-01T08:00", want: "'2024-03-01 08:00:00'"},
		{name: "datetime with offset", entity: domain.Events, key: "estartdts", value: "2024-03-01T23:30:00-02:00", want: "'2024-03-02 01:30:00'"},
		{name: "date column", entity: domain.Leads, key: "lstatusdate", value: "2024-03-01T10:15:00Z", want: "'2024-03-01'"},
		{name: "date column plain date", entity: domain.Buildings, key: "binstall", value: "2023-12-31", want: "'2023-12-31'"},
		{name: "unparseable date stays text", entity: domain.Leads, key: "ladate", value: "soon", want: "'soon'"},
		{name: "date-like text on plain column", entity: domain.Clients, key: "cname", value: "2024-03-01", want: "'2024-03-01'"},
		{name: "json number", entity: domain.Invoices, key: "invamount", value: json.Number("7"), want: "7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := qb.FormatLiteral(tt.entity, tt.key, tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatLiteral_UsesConfiguredLocation(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("UTC+2", 2*60*60)
	qb := NewQueryBuilder(loc)

	got, err := qb.FormatLiteral(domain.Clients, "cadate", "2024-03-01T23:15:00Z")
	require.NoError(t, err)
	assert.Equal(t, "'2024-03-02 01:15:00'", got)

	got, err = qb.FormatLiteral(domain.Clients, "cadate", "2024-03-01 09:00:00")
	require.NoError(t, err)
	assert.Equal(t, "'2024-03-01 09:00:00'", got)
}

func TestFormatLiteral_UnsupportedTypes(t *testing.T) {
	t.Parallel()

	qb := utcBuilder()
	tests := []struct {
		name   string
		value  any
		reason string
	}{
		{name: "boolean", value: true, reason: "unsupported data type boolean"},
		{name: "object", value: map[string]any{"a": 1}, reason: "unsupported data type object"},
		{name: "array", value: []any{1, 2}, reason: "unsupported data type array"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := qb.FormatLiteral(domain.Leads, "lname", tt.value)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrValidation))

			var ve *domain.ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, "lname", ve.Key)
			assert.Equal(t, tt.reason, ve.Reason)
		})
	}
}

func TestInsert(t *testing.T) {
	t.Parallel()

	qb := utcBuilder()
	query, args, err := qb.Insert("acme", domain.Clients, domain.Record{
		"cname":  "O'Brien",
		"cadate": "2024-03-01T10:15:00Z",
		"cuid":   float64(7),
		"cnote":  nil,
	})
	require.NoError(t, err)

	assert.Equal(t,
		`INSERT INTO "acme"."PQ_client" ("cadate","cname","cnote","cuid") VALUES ($1,$2,$3,$4) RETURNING *`,
		query)
	assert.Equal(t, []any{"2024-03-01 10:15:00", "O'Brien", nil, int64(7)}, args)
}

func TestRenderInsert(t *testing.T) {
	t.Parallel()

	qb := utcBuilder()
	query, err := qb.RenderInsert("acme", domain.Clients, domain.Record{
		"cname":  "O'Brien",
		"cadate": "2024-03-01T10:15:00Z",
		"cnote":  nil,
	})
	require.NoError(t, err)
	assert.Equal(t,
		`INSERT INTO "acme"."PQ_client" ("cadate","cname","cnote") VALUES ('2024-03-01 10:15:00','O''Brien',NULL) RETURNING *`,
		query)
}

func TestUpdate(t *testing.T) {
	t.Parallel()

	qb := utcBuilder()
	query, args, err := qb.Update("acme", domain.Tasks, 12, domain.Record{
		"tdesc": "call back",
		"tdts":  "2024-05-06T09:30:00Z",
	})
	require.NoError(t, err)

	assert.Equal(t, `UPDATE "acme"."PQ_tasks" SET "tdesc" = $1, "tdts" = $2 WHERE "tid" = $3`, query)
	assert.Equal(t, []any{"call back", "2024-05-06 09:30:00", int64(12)}, args)
}

func TestRenderUpdate(t *testing.T) {
	t.Parallel()

	qb := utcBuilder()
	query, err := qb.RenderUpdate("acme", domain.Leads, 5, domain.Record{"lname": "it's", "lscore": 3})
	require.NoError(t, err)
	assert.Equal(t, `UPDATE "acme"."PQ_leads" SET "lname" = 'it''s', "lscore" = 3 WHERE "lid" = '5'`, query)
}

func TestUpdate_RejectsPrimaryKey(t *testing.T) {
	t.Parallel()

	_, _, err := utcBuilder().Update("acme", domain.Leads, 5, domain.Record{"lid": 6, "lname": "x"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestSelect(t *testing.T) {
	t.Parallel()

	qb := utcBuilder()

	t.Run("paged", func(t *testing.T) {
		t.Parallel()
		query, args, err := qb.Select("acme", domain.Leads, nil, domain.Page{Limit: 50, Offset: 100})
		require.NoError(t, err)
		assert.Equal(t, `SELECT * FROM "acme"."PQ_leads" ORDER BY "lid" LIMIT 50 OFFSET 100`, query)
		assert.Empty(t, args)
	})

	t.Run("filtered", func(t *testing.T) {
		t.Parallel()
		query, args, err := qb.Select("acme", domain.Tasks, domain.Filter{"tjid": int64(9)}, domain.Page{Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, `SELECT * FROM "acme"."PQ_tasks" WHERE "tjid" = $1 ORDER BY "tid" LIMIT 10 OFFSET 0`, query)
		assert.Equal(t, []any{int64(9)}, args)
	})

	t.Run("bad filter column", func(t *testing.T) {
		t.Parallel()
		_, _, err := qb.Select("acme", domain.Tasks, domain.Filter{"tjid; drop": 1}, domain.Page{Limit: 10})
		assert.True(t, errors.Is(err, domain.ErrValidation))
	})
}

func TestSelectByIDAndDelete(t *testing.T) {
	t.Parallel()

	qb := utcBuilder()

	query, args, err := qb.SelectByID("tenant_7", domain.Invoices, 3)
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "tenant_7"."PQ_invoice" WHERE "invid" = $1 LIMIT 1`, query)
	assert.Equal(t, []any{int64(3)}, args)

	query, args, err = qb.Delete("tenant_7", domain.Invoices, 3)
	require.NoError(t, err)
	assert.Equal(t, `DELETE FROM "tenant_7"."PQ_invoice" WHERE "invid" = $1`, query)
	assert.Equal(t, []any{int64(3)}, args)
}

func TestBuilder_Validation(t *testing.T) {
	t.Parallel()

	qb := utcBuilder()
	tests := []struct {
		name   string
		schema string
		rec    domain.Record
	}{
		{name: "empty payload", schema: "acme", rec: domain.Record{}},
		{name: "nil payload", schema: "acme", rec: nil},
		{name: "bad column", schema: "acme", rec: domain.Record{`lname" = 1; --`: "x"}},
		{name: "uppercase column", schema: "acme", rec: domain.Record{"LName": "x"}},
		{name: "bad schema", schema: `acme"; drop`, rec: domain.Record{"lname": "x"}},
		{name: "empty schema", schema: "", rec: domain.Record{"lname": "x"}},
		{name: "boolean value", schema: "acme", rec: domain.Record{"lname": false}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, _, err := qb.Insert(tt.schema, domain.Leads, tt.rec)
			assert.True(t, errors.Is(err, domain.ErrValidation), "insert: %v", err)

			_, _, err = qb.Update(tt.schema, domain.Leads, 1, tt.rec)
			assert.True(t, errors.Is(err, domain.ErrValidation), "update: %v", err)
		})
	}
}

func TestValidSchema(t *testing.T) {
	t.Parallel()

	assert.True(t, ValidSchema("acme"))
	assert.True(t, ValidSchema("_tenant_01"))
	assert.True(t, ValidSchema("Tenant01"))
	assert.False(t, ValidSchema(""))
	assert.False(t, ValidSchema("1acme"))
	assert.False(t, ValidSchema("acme.public"))
	assert.False(t, ValidSchema("acme-co"))
}

func TestDayBounds(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("UTC-5", -5*60*60)
	qb := NewQueryBuilder(loc)

	start, end := qb.DayBounds(time.Date(2024, 3, 2, 3, 0, 0, 0, time.UTC))
	assert.Equal(t, "2024-03-01 00:00:00", qb.FormatDateTime(start))
	assert.Equal(t, "2024-03-02 00:00:00", qb.FormatDateTime(end))
}

func TestContains(t *testing.T) {
	t.Parallel()

	query, args, err := Contains("50%_o\\ff", "ufirstn", "ulastn").ToSql()
	require.NoError(t, err)
	assert.Equal(t, `("ufirstn" ILIKE ? OR "ulastn" ILIKE ?)`, query)
	assert.Equal(t, []any{`%50\%\_o\\ff%`, `%50\%\_o\\ff%`}, args)
}

func TestInsertPhoto(t *testing.T) {
	t.Parallel()

	qb := utcBuilder()

	t.Run("ordered within job", func(t *testing.T) {
		t.Parallel()
		query, args, err := qb.InsertPhoto("acme", domain.Record{
			"pjobid":     float64(4),
			"photoname":  "roof01",
			"photoorder": 99,
		})
		require.NoError(t, err)
		assert.Equal(t,
			`INSERT INTO "acme"."PQ_photos" ("photoname","pjobid","photoorder") VALUES ($1,$2,(SELECT COALESCE(MAX("photoorder"), 0) + 1 FROM "acme"."PQ_photos" WHERE ("pjobid" = $3))) RETURNING *`,
			query)
		assert.Equal(t, []any{"roof01", int64(4), int64(4)}, args)
	})

	t.Run("no group starts at one", func(t *testing.T) {
		t.Parallel()
		query, args, err := qb.InsertPhoto("acme", domain.Record{"photoname": "x"})
		require.NoError(t, err)
		assert.Equal(t, `INSERT INTO "acme"."PQ_photos" ("photoname","photoorder") VALUES ($1,1) RETURNING *`, query)
		assert.Equal(t, []any{"x"}, args)
	})
}
