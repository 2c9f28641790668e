package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/fieldops/internal/domain"
	"github.com/gosuda/fieldops/internal/metrics"
)

// querier is the subset of *pgxpool.Pool used by the repositories.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// EntityRepo implements domain.EntityRepository for one entity. All SQL is
// schema-qualified and every statement runs under the configured timeout.
type EntityRepo struct {
	db      querier
	qb      *QueryBuilder
	entity  domain.Entity
	timeout time.Duration
	name    string
}

func NewEntityRepo(db querier, qb *QueryBuilder, e domain.Entity, timeout time.Duration) *EntityRepo {
	return &EntityRepo{
		db:      db,
		qb:      qb,
		entity:  e,
		timeout: timeout,
		name:    repoName(e),
	}
}

// repoName turns "lead photo" into "leadPhotoRepo" for error prefixes.
func repoName(e domain.Entity) string {
	parts := strings.Fields(e.Name)
	for i := 1; i < len(parts); i++ {
		parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
	}
	return strings.Join(parts, "") + "Repo"
}

func (r *EntityRepo) FindAll(ctx context.Context, schema string, page domain.Page) ([]domain.Record, error) {
	return r.find(ctx, "FindAll", schema, nil, page)
}

func (r *EntityRepo) FindBy(ctx context.Context, schema string, filter domain.Filter, page domain.Page) ([]domain.Record, error) {
	return r.find(ctx, "FindBy", schema, filter, page)
}

func (r *EntityRepo) find(ctx context.Context, op, schema string, filter domain.Filter, page domain.Page) ([]domain.Record, error) {
	query, args, err := r.qb.Select(schema, r.entity, filter, page)
	if err != nil {
		return nil, r.wrap(op, err)
	}
	return r.queryAll(ctx, op, query, args)
}

func (r *EntityRepo) FindByID(ctx context.Context, schema string, id int64) (domain.Record, error) {
	query, args, err := r.qb.SelectByID(schema, r.entity, id)
	if err != nil {
		return nil, r.wrap("FindByID", err)
	}
	return r.queryOne(ctx, "FindByID", query, args)
}

func (r *EntityRepo) Create(ctx context.Context, schema string, rec domain.Record) (domain.Record, error) {
	query, args, err := r.qb.Insert(schema, r.entity, rec)
	if err != nil {
		return nil, r.wrap("Create", err)
	}
	r.debugStatement(schema, func() (string, error) { return r.qb.RenderInsert(schema, r.entity, rec) })

	return r.queryOne(ctx, "Create", query, args)
}

// Update writes the changed columns, then re-reads the row by primary key.
func (r *EntityRepo) Update(ctx context.Context, schema string, id int64, rec domain.Record) (domain.Record, error) {
	query, args, err := r.qb.Update(schema, r.entity, id, rec)
	if err != nil {
		return nil, r.wrap("Update", err)
	}
	r.debugStatement(schema, func() (string, error) { return r.qb.RenderUpdate(schema, r.entity, id, rec) })

	if err := r.execOne(ctx, "Update", query, args); err != nil {
		return nil, err
	}

	return r.FindByID(ctx, schema, id)
}

func (r *EntityRepo) Delete(ctx context.Context, schema string, id int64) error {
	query, args, err := r.qb.Delete(schema, r.entity, id)
	if err != nil {
		return r.wrap("Delete", err)
	}
	return r.execOne(ctx, "Delete", query, args)
}

// selectWhere runs SELECT * with an arbitrary predicate, ordered by orderBy.
func (r *EntityRepo) selectWhere(ctx context.Context, op, schema string, pred sq.Sqlizer, orderBy string, page domain.Page) ([]domain.Record, error) {
	q, err := r.qb.from(schema, r.entity)
	if err != nil {
		return nil, r.wrap(op, err)
	}
	if orderBy == "" {
		orderBy = column(r.entity.PrimaryKey)
	}
	query, args, err := paged(q.Where(pred), orderBy, page).ToSql()
	if err != nil {
		return nil, r.wrap(op, err)
	}
	return r.queryAll(ctx, op, query, args)
}

func (r *EntityRepo) queryAll(ctx context.Context, op, query string, args []any) ([]domain.Record, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()
	defer r.observe(op, time.Now())

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, r.wrap(op, err)
	}

	recs, err := collectRecords(rows)
	if err != nil {
		return nil, r.wrap(op, err)
	}
	return recs, nil
}

func (r *EntityRepo) queryOne(ctx context.Context, op, query string, args []any) (domain.Record, error) {
	recs, err := r.queryAll(ctx, op, query, args)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, r.wrap(op, domain.ErrNotFound)
	}
	return recs[0], nil
}

func (r *EntityRepo) execOne(ctx context.Context, op, query string, args []any) error {
	ctx, cancel := r.bound(ctx)
	defer cancel()
	defer r.observe(op, time.Now())

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return r.wrap(op, err)
	}
	if tag.RowsAffected() == 0 {
		return r.wrap(op, domain.ErrNotFound)
	}
	return nil
}

func (r *EntityRepo) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.timeout)
}

func (r *EntityRepo) observe(op string, start time.Time) {
	metrics.ObserveDBOperation(r.entity.Name, op, time.Since(start))
}

func (r *EntityRepo) wrap(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		err = domain.ErrNotFound
	}
	return fmt.Errorf("%s.%s: %w", r.name, op, err)
}

// debugStatement logs the literal form of a write when debug logging is on.
func (r *EntityRepo) debugStatement(schema string, render func() (string, error)) {
	ev := log.Debug()
	if !ev.Enabled() {
		return
	}
	stmt, err := render()
	if err != nil {
		ev.Discard()
		return
	}
	ev.Str("schema", schema).Str("table", r.entity.Table).Str("sql", stmt).Msg("store: statement")
}

func collectRecords(rows pgx.Rows) ([]domain.Record, error) {
	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, err
	}
	recs := make([]domain.Record, len(maps))
	for i, m := range maps {
		recs[i] = domain.Record(m)
	}
	return recs, nil
}
