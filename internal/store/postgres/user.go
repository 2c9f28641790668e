package postgres

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/gosuda/fieldops/internal/domain"
)

type UserRepo struct {
	*EntityRepo
}

func NewUserRepo(db querier, qb *QueryBuilder, opts Options) *UserRepo {
	return &UserRepo{EntityRepo: NewEntityRepo(db, qb, domain.Users, opts.QueryTimeout)}
}

func (r *UserRepo) GetByLogin(ctx context.Context, schema, login string) (*domain.User, error) {
	q, err := r.qb.from(schema, domain.Users)
	if err != nil {
		return nil, r.wrap("GetByLogin", err)
	}
	query, args, err := q.Where(sq.Eq{column(domain.UserLoginColumn): login}).Limit(1).ToSql()
	if err != nil {
		return nil, r.wrap("GetByLogin", err)
	}

	rec, err := r.queryOne(ctx, "GetByLogin", query, args)
	if err != nil {
		return nil, err
	}
	return toUser(rec, "userRepo.GetByLogin")
}

func (r *UserRepo) GetByUID(ctx context.Context, schema string, uid int64) (*domain.User, error) {
	rec, err := r.FindByID(ctx, schema, uid)
	if err != nil {
		return nil, err
	}
	return toUser(rec, "userRepo.GetByUID")
}

func (r *UserRepo) SetPassword(ctx context.Context, schema string, uid int64, hash string) error {
	query, args, err := r.qb.Update(schema, domain.Users, uid, domain.Record{domain.UserPasswordColumn: hash})
	if err != nil {
		return r.wrap("SetPassword", err)
	}
	return r.execOne(ctx, "SetPassword", query, args)
}

func (r *UserRepo) Search(ctx context.Context, schema, query string, page domain.Page) ([]domain.Record, error) {
	return r.selectWhere(ctx, "Search", schema, Contains(query, "ufirstn", "ulastn"), "", page)
}

func (r *UserRepo) ListInspections(ctx context.Context, schema string, uid int64, page domain.Page) ([]domain.Record, error) {
	const op = "ListInspections"

	table, err := joinTables(schema)
	if err != nil {
		return nil, r.wrap(op, err)
	}

	q := psql.Select("inspection.*").
		From(table(domain.Inspections) + " AS inspection").
		LeftJoin(table(domain.Leads) + " AS lead ON inspection.inlid = lead.lid").
		LeftJoin(table(domain.Clients) + " AS client ON inspection.incid = client.cid").
		LeftJoin(table(domain.Jobs) + " AS job ON inspection.injid = job.jid").
		Where(sq.Or{
			sq.Eq{"lead.luid": uid},
			sq.Eq{"client.cuid": uid},
			sq.Eq{"job.juid": uid},
		})

	query, args, err := paged(q, "inspection.inid", page).ToSql()
	if err != nil {
		return nil, r.wrap(op, err)
	}
	return r.queryAll(ctx, op, query, args)
}

// joinTables returns a formatter for schema-qualified table names used in
// hand-written joins.
func joinTables(schema string) (func(domain.Entity) string, error) {
	if !ValidSchema(schema) {
		return nil, domain.Invalid("schema", "invalid tenant schema %q", schema)
	}
	return func(e domain.Entity) string { return pgx.Identifier{schema, e.Table}.Sanitize() }, nil
}

func toUser(rec domain.Record, caller string) (*domain.User, error) {
	uid, ok := rec.Int64("uid")
	if !ok {
		return nil, fmt.Errorf("%s: row has no integer uid", caller)
	}
	login, _ := rec.String(domain.UserLoginColumn)
	hash, _ := rec.String(domain.UserPasswordColumn)

	return &domain.User{
		UID:          uid,
		Login:        login,
		PasswordHash: hash,
		Record:       domain.PublicUser(rec),
	}, nil
}
