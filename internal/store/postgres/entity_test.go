package postgres

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/fieldops/internal/domain"
)

// ---------------------------------------------------------------------------
// fakes
// ---------------------------------------------------------------------------

type call struct {
	sql  string
	args []any
}

type fakeDB struct {
	queryFn func(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	execFn  func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	calls   []call
}

func (f *fakeDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	f.calls = append(f.calls, call{sql: sql, args: args})
	if f.queryFn != nil {
		return f.queryFn(ctx, sql, args...)
	}
	return newRows(nil), nil
}

func (f *fakeDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.calls = append(f.calls, call{sql: sql, args: args})
	if f.execFn != nil {
		return f.execFn(ctx, sql, args...)
	}
	return pgconn.NewCommandTag("UPDATE 1"), nil
}

// fakeRows serves a fixed result set; every row uses the keys of the first.
type fakeRows struct {
	cols []string
	data [][]any
	pos  int
}

func newRows(recs []map[string]any) *fakeRows {
	r := &fakeRows{pos: -1}
	if len(recs) == 0 {
		return r
	}
	for k := range recs[0] {
		r.cols = append(r.cols, k)
	}
	for _, rec := range recs {
		vals := make([]any, len(r.cols))
		for i, c := range r.cols {
			vals[i] = rec[c]
		}
		r.data = append(r.data, vals)
	}
	return r
}

func (r *fakeRows) Close()                        {}
func (r *fakeRows) Err() error                    { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag { return pgconn.NewCommandTag("SELECT") }
func (r *fakeRows) Conn() *pgx.Conn               { return nil }
func (r *fakeRows) RawValues() [][]byte           { return nil }

func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription {
	fds := make([]pgconn.FieldDescription, len(r.cols))
	for i, c := range r.cols {
		fds[i] = pgconn.FieldDescription{Name: c}
	}
	return fds
}

// Scan only supports the RowScanner path taken by pgx.RowToMap.
func (r *fakeRows) Scan(dest ...any) error {
	if len(dest) == 1 {
		if rs, ok := dest[0].(pgx.RowScanner); ok {
			return rs.ScanRow(r)
		}
	}
	return errors.New("fakeRows: unsupported scan target")
}

func (r *fakeRows) Next() bool {
	r.pos++
	return r.pos < len(r.data)
}

func (r *fakeRows) Values() ([]any, error) {
	return r.data[r.pos], nil
}

func testStore(db *fakeDB) *Store {
	return newStore(db, Options{QueryTimeout: time.Second, Location: time.UTC})
}

// ---------------------------------------------------------------------------
// EntityRepo
// ---------------------------------------------------------------------------

func TestEntityRepo_FindByID(t *testing.T) {
	t.Parallel()

	db := &fakeDB{queryFn: func(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
		return newRows([]map[string]any{{"lid": int64(5), "lname": "Roof"}}), nil
	}}
	s := testStore(db)

	got, err := s.Leads().FindByID(context.Background(), "acme", 5)
	require.NoError(t, err)
	assert.Equal(t, domain.Record{"lid": int64(5), "lname": "Roof"}, got)

	require.Len(t, db.calls, 1)
	assert.Contains(t, db.calls[0].sql, `"acme"."PQ_leads"`)
	assert.Equal(t, []any{int64(5)}, db.calls[0].args)
}

func TestEntityRepo_FindByID_NotFound(t *testing.T) {
	t.Parallel()

	s := testStore(&fakeDB{})

	_, err := s.Clients().FindByID(context.Background(), "acme", 404)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.True(t, strings.HasPrefix(err.Error(), "clientRepo.FindByID"))
}

func TestEntityRepo_QueryError(t *testing.T) {
	t.Parallel()

	boom := errors.New("connection reset")
	db := &fakeDB{queryFn: func(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
		return nil, boom
	}}
	s := testStore(db)

	_, err := s.Invoices().FindAll(context.Background(), "acme", domain.Page{Limit: 10})
	assert.ErrorIs(t, err, boom)
	assert.False(t, errors.Is(err, domain.ErrNotFound))
}

func TestEntityRepo_NoRowsMapsToNotFound(t *testing.T) {
	t.Parallel()

	db := &fakeDB{queryFn: func(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
		return nil, pgx.ErrNoRows
	}}

	_, err := testStore(db).Buildings().FindByID(context.Background(), "acme", 1)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestEntityRepo_Create(t *testing.T) {
	t.Parallel()

	db := &fakeDB{queryFn: func(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
		return newRows([]map[string]any{{"eid": int64(1), "etitle": "Walkthrough"}}), nil
	}}

	got, err := testStore(db).Events().Create(context.Background(), "acme", domain.Record{
		"etitle":    "Walkthrough",
		"estartdts": "2024-03-01T10:15:00Z",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), got["eid"])

	require.Len(t, db.calls, 1)
	assert.True(t, strings.HasPrefix(db.calls[0].sql, `INSERT INTO "acme"."PQ_events"`))
	assert.Equal(t, []any{"2024-03-01 10:15:00", "Walkthrough"}, db.calls[0].args)
}

func TestEntityRepo_CreateValidation(t *testing.T) {
	t.Parallel()

	db := &fakeDB{}
	_, err := testStore(db).Events().Create(context.Background(), "acme", domain.Record{})
	assert.True(t, errors.Is(err, domain.ErrValidation))
	assert.Empty(t, db.calls)
}

func TestEntityRepo_UpdateRefetches(t *testing.T) {
	t.Parallel()

	db := &fakeDB{queryFn: func(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
		return newRows([]map[string]any{{"tid": int64(3), "tdesc": "updated", "tnote": "kept"}}), nil
	}}

	got, err := testStore(db).Tasks().Update(context.Background(), "acme", 3, domain.Record{"tdesc": "updated"})
	require.NoError(t, err)
	assert.Equal(t, "kept", got["tnote"])

	require.Len(t, db.calls, 2)
	assert.True(t, strings.HasPrefix(db.calls[0].sql, `UPDATE "acme"."PQ_tasks"`))
	assert.True(t, strings.HasPrefix(db.calls[1].sql, `SELECT * FROM "acme"."PQ_tasks"`))
}

func TestEntityRepo_ZeroRowsAffected(t *testing.T) {
	t.Parallel()

	db := &fakeDB{execFn: func(_ context.Context, _ string, _ ...any) (pgconn.CommandTag, error) {
		return pgconn.NewCommandTag("UPDATE 0"), nil
	}}
	s := testStore(db)

	_, err := s.Contingencies().Update(context.Background(), "acme", 9, domain.Record{"ctname": "x"})
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	err = s.Contingencies().Delete(context.Background(), "acme", 9)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	// the failed update must not re-read
	for _, c := range db.calls {
		assert.False(t, strings.HasPrefix(c.sql, "SELECT"))
	}
}

func TestEntityRepo_Delete(t *testing.T) {
	t.Parallel()

	db := &fakeDB{execFn: func(_ context.Context, _ string, _ ...any) (pgconn.CommandTag, error) {
		return pgconn.NewCommandTag("DELETE 1"), nil
	}}

	err := testStore(db).LeadPhotos().Delete(context.Background(), "acme", 2)
	require.NoError(t, err)
	require.Len(t, db.calls, 1)
	assert.Equal(t, `DELETE FROM "acme"."PQ_leadPhotos" WHERE "lpid" = $1`, db.calls[0].sql)
}

func TestEntityRepo_AppliesTimeout(t *testing.T) {
	t.Parallel()

	var deadline time.Time
	db := &fakeDB{queryFn: func(ctx context.Context, _ string, _ ...any) (pgx.Rows, error) {
		deadline, _ = ctx.Deadline()
		return newRows(nil), nil
	}}

	_, err := testStore(db).Companies().FindAll(context.Background(), "acme", domain.Page{Limit: 1})
	require.NoError(t, err)
	assert.False(t, deadline.IsZero())
	assert.WithinDuration(t, time.Now().Add(time.Second), deadline, time.Second)
}

func TestEntityRepo_ContextCanceled(t *testing.T) {
	t.Parallel()

	db := &fakeDB{queryFn: func(ctx context.Context, _ string, _ ...any) (pgx.Rows, error) {
		return nil, ctx.Err()
	}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testStore(db).Users().FindAll(ctx, "acme", domain.Page{Limit: 1})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRepoName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "leadPhotoRepo", repoName(domain.LeadPhotos))
	assert.Equal(t, "userRepo", repoName(domain.Users))
}

// ---------------------------------------------------------------------------
// specialised repositories
// ---------------------------------------------------------------------------

func TestUserRepo_GetByLogin(t *testing.T) {
	t.Parallel()

	db := &fakeDB{queryFn: func(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
		return newRows([]map[string]any{{"uid": int32(8), "ulogin": "jo", "upass": "$2a$10$hash", "ufirstn": "Jo"}}), nil
	}}

	u, err := testStore(db).Users().GetByLogin(context.Background(), "acme", "jo")
	require.NoError(t, err)
	assert.Equal(t, int64(8), u.UID)
	assert.Equal(t, "$2a$10$hash", u.PasswordHash)
	assert.NotContains(t, u.Record, "upass")

	assert.Equal(t, `SELECT * FROM "acme"."PQ_user" WHERE "ulogin" = $1 LIMIT 1`, db.calls[0].sql)
	assert.Equal(t, []any{"jo"}, db.calls[0].args)
}

func TestUserRepo_SetPassword(t *testing.T) {
	t.Parallel()

	db := &fakeDB{}
	err := testStore(db).Users().SetPassword(context.Background(), "acme", 8, "newhash")
	require.NoError(t, err)
	assert.Equal(t, `UPDATE "acme"."PQ_user" SET "upass" = $1 WHERE "uid" = $2`, db.calls[0].sql)
	assert.Equal(t, []any{"newhash", int64(8)}, db.calls[0].args)
}

func TestUserRepo_ListInspections(t *testing.T) {
	t.Parallel()

	db := &fakeDB{}
	_, err := testStore(db).Users().ListInspections(context.Background(), "acme", 8, domain.Page{Limit: 20, Offset: 40})
	require.NoError(t, err)

	sql := db.calls[0].sql
	assert.Contains(t, sql, `FROM "acme"."PQ_inspections" AS inspection`)
	assert.Contains(t, sql, `LEFT JOIN "acme"."PQ_leads" AS lead ON inspection.inlid = lead.lid`)
	assert.Contains(t, sql, `LEFT JOIN "acme"."PQ_job" AS job ON inspection.injid = job.jid`)
	assert.Contains(t, sql, "ORDER BY inspection.inid LIMIT 20 OFFSET 40")
	assert.Equal(t, []any{int64(8), int64(8), int64(8)}, db.calls[0].args)
}

func TestUserRepo_Search(t *testing.T) {
	t.Parallel()

	db := &fakeDB{}
	_, err := testStore(db).Users().Search(context.Background(), "acme", "ann", domain.Page{Limit: 5})
	require.NoError(t, err)
	assert.Contains(t, db.calls[0].sql, `("ufirstn" ILIKE $1 OR "ulastn" ILIKE $2)`)
}

func TestTaskRepo_ListDueOn(t *testing.T) {
	t.Parallel()

	db := &fakeDB{}
	day := time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)
	_, err := testStore(db).Tasks().ListDueOn(context.Background(), "acme", 4, day)
	require.NoError(t, err)

	assert.Contains(t, db.calls[0].sql, `("tuid" = $1 AND "tdts" >= $2 AND "tdts" < $3)`)
	assert.Contains(t, db.calls[0].sql, `ORDER BY "tdts", "tid"`)
	assert.Equal(t, []any{int64(4), "2024-03-01 00:00:00", "2024-03-02 00:00:00"}, db.calls[0].args)
}

func TestEventRepo_ListByUserOn(t *testing.T) {
	t.Parallel()

	db := &fakeDB{}
	day := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	_, err := testStore(db).Events().ListByUserOn(context.Background(), "acme", 2, day)
	require.NoError(t, err)
	assert.Equal(t, []any{int64(2), "2024-12-31 00:00:00", "2025-01-01 00:00:00"}, db.calls[0].args)
}

func TestTaskRepo_ListByAssignee(t *testing.T) {
	t.Parallel()

	db := &fakeDB{queryFn: func(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
		return newRows([]map[string]any{{"tid": int64(1), "job": map[string]any{"jid": float64(3)}, "claim": nil, "workorder": nil}}), nil
	}}
	got, err := testStore(db).Tasks().ListByAssignee(context.Background(), "acme", 4, domain.Page{Limit: 10, Offset: 20})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, map[string]any{"jid": float64(3)}, got[0]["job"])
	assert.Nil(t, got[0]["claim"])

	sql := db.calls[0].sql
	assert.Contains(t, sql, "SELECT task.*, to_jsonb(job) AS job, to_jsonb(claim) AS claim, to_jsonb(workorder) AS workorder")
	assert.Contains(t, sql, `FROM "acme"."PQ_tasks" AS task`)
	assert.Contains(t, sql, `LEFT JOIN "acme"."PQ_job" AS job ON task.tjid = job.jid`)
	assert.Contains(t, sql, `LEFT JOIN "acme"."PQ_insuranceClaims" AS claim ON task.ticid = claim.icid`)
	assert.Contains(t, sql, `LEFT JOIN "acme"."PQ_workOrders" AS workorder ON task.twoid = workorder.woid`)
	assert.Contains(t, sql, "WHERE task.tuid = $1 ORDER BY task.tid LIMIT 10 OFFSET 20")
	assert.Equal(t, []any{int64(4)}, db.calls[0].args)
}

func TestEventRepo_ListByUser(t *testing.T) {
	t.Parallel()

	db := &fakeDB{}
	_, err := testStore(db).Events().ListByUser(context.Background(), "acme", 2, domain.Page{Limit: 50})
	require.NoError(t, err)

	sql := db.calls[0].sql
	assert.Contains(t, sql, "SELECT event.*, to_jsonb(job) AS job, to_jsonb(client) AS client, to_jsonb(lead) AS lead")
	assert.Contains(t, sql, `LEFT JOIN "acme"."PQ_job" AS job ON event.ejid = job.jid`)
	assert.Contains(t, sql, `LEFT JOIN "acme"."PQ_client" AS client ON event.ecid = client.cid`)
	assert.Contains(t, sql, `LEFT JOIN "acme"."PQ_leads" AS lead ON event.elid = lead.lid`)
	assert.Contains(t, sql, "WHERE event.euid = $1 ORDER BY event.eid LIMIT 50 OFFSET 0")
	assert.Equal(t, []any{int64(2)}, db.calls[0].args)
}

func TestJoinLists_RejectBadSchema(t *testing.T) {
	t.Parallel()

	db := &fakeDB{}
	s := testStore(db)

	_, err := s.Events().ListByUser(context.Background(), `acme"; DROP`, 2, domain.Page{Limit: 5})
	require.ErrorIs(t, err, domain.ErrValidation)
	_, err = s.Tasks().ListByAssignee(context.Background(), "", 2, domain.Page{Limit: 5})
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Empty(t, db.calls)
}

func TestPhotoRepo_Insert(t *testing.T) {
	t.Parallel()

	db := &fakeDB{queryFn: func(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
		return newRows([]map[string]any{{"photoid": int64(77), "photoorder": int64(3)}}), nil
	}}

	got, err := testStore(db).Photos().Insert(context.Background(), "acme", domain.Record{"pwoid": int64(6), "photoname": "a"})
	require.NoError(t, err)
	assert.Equal(t, int64(77), got["photoid"])
	assert.Contains(t, db.calls[0].sql, `WHERE ("pwoid" = $3)`)
}

func TestStore_TenantSchemaIsolation(t *testing.T) {
	t.Parallel()

	db := &fakeDB{}
	s := testStore(db)

	_, _ = s.Leads().FindAll(context.Background(), "tenant_a", domain.Page{Limit: 1})
	_, _ = s.Leads().FindAll(context.Background(), "tenant_b", domain.Page{Limit: 1})

	require.Len(t, db.calls, 2)
	assert.Contains(t, db.calls[0].sql, `"tenant_a"."PQ_leads"`)
	assert.NotContains(t, db.calls[0].sql, "tenant_b")
	assert.Contains(t, db.calls[1].sql, `"tenant_b"."PQ_leads"`)
}
