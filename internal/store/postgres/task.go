package postgres

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/gosuda/fieldops/internal/domain"
)

// dayLimit caps the rows returned by single-day calendar queries.
var dayLimit = domain.Page{Limit: 1000}

type TaskRepo struct {
	*EntityRepo
}

func NewTaskRepo(db querier, qb *QueryBuilder, opts Options) *TaskRepo {
	return &TaskRepo{EntityRepo: NewEntityRepo(db, qb, domain.Tasks, opts.QueryTimeout)}
}

func (r *TaskRepo) ListDueOn(ctx context.Context, schema string, assigneeID int64, day time.Time) ([]domain.Record, error) {
	return r.selectWhere(ctx, "ListDueOn", schema,
		r.onDay(domain.TaskAssigneeColumn, assigneeID, domain.TaskDueColumn, day),
		column(domain.TaskDueColumn)+", "+column(domain.Tasks.PrimaryKey),
		dayLimit,
	)
}

func (r *TaskRepo) ListByAssignee(ctx context.Context, schema string, assigneeID int64, page domain.Page) ([]domain.Record, error) {
	const op = "ListByAssignee"

	table, err := joinTables(schema)
	if err != nil {
		return nil, r.wrap(op, err)
	}

	q := psql.Select("task.*", "to_jsonb(job) AS job", "to_jsonb(claim) AS claim", "to_jsonb(workorder) AS workorder").
		From(table(domain.Tasks) + " AS task").
		LeftJoin(table(domain.Jobs) + " AS job ON task.tjid = job.jid").
		LeftJoin(table(domain.InsuranceClaims) + " AS claim ON task.ticid = claim.icid").
		LeftJoin(table(domain.WorkOrders) + " AS workorder ON task.twoid = workorder.woid").
		Where(sq.Eq{"task.tuid": assigneeID})

	query, args, err := paged(q, "task.tid", page).ToSql()
	if err != nil {
		return nil, r.wrap(op, err)
	}
	return r.queryAll(ctx, op, query, args)
}

type EventRepo struct {
	*EntityRepo
}

func NewEventRepo(db querier, qb *QueryBuilder, opts Options) *EventRepo {
	return &EventRepo{EntityRepo: NewEntityRepo(db, qb, domain.Events, opts.QueryTimeout)}
}

func (r *EventRepo) ListByUserOn(ctx context.Context, schema string, userID int64, day time.Time) ([]domain.Record, error) {
	return r.selectWhere(ctx, "ListByUserOn", schema,
		r.onDay(domain.EventUserColumn, userID, domain.EventStartColumn, day),
		column(domain.EventStartColumn)+", "+column(domain.Events.PrimaryKey),
		dayLimit,
	)
}

func (r *EventRepo) ListByUser(ctx context.Context, schema string, userID int64, page domain.Page) ([]domain.Record, error) {
	const op = "ListByUser"

	table, err := joinTables(schema)
	if err != nil {
		return nil, r.wrap(op, err)
	}

	q := psql.Select("event.*", "to_jsonb(job) AS job", "to_jsonb(client) AS client", "to_jsonb(lead) AS lead").
		From(table(domain.Events) + " AS event").
		LeftJoin(table(domain.Jobs) + " AS job ON event.ejid = job.jid").
		LeftJoin(table(domain.Clients) + " AS client ON event.ecid = client.cid").
		LeftJoin(table(domain.Leads) + " AS lead ON event.elid = lead.lid").
		Where(sq.Eq{"event.euid": userID})

	query, args, err := paged(q, "event.eid", page).ToSql()
	if err != nil {
		return nil, r.wrap(op, err)
	}
	return r.queryAll(ctx, op, query, args)
}

// onDay matches owner = id and start <= ts < next day, with the bounds
// rendered the same way datetime columns are written.
func (r *EntityRepo) onDay(ownerColumn string, id int64, tsColumn string, day time.Time) sq.Sqlizer {
	start, end := r.qb.DayBounds(day)
	return sq.And{
		sq.Eq{column(ownerColumn): id},
		sq.GtOrEq{column(tsColumn): r.qb.FormatDateTime(start)},
		sq.Lt{column(tsColumn): r.qb.FormatDateTime(end)},
	}
}

type CompanyRepo struct {
	*EntityRepo
}

func NewCompanyRepo(db querier, qb *QueryBuilder, opts Options) *CompanyRepo {
	return &CompanyRepo{EntityRepo: NewEntityRepo(db, qb, domain.Companies, opts.QueryTimeout)}
}

func (r *CompanyRepo) SearchByName(ctx context.Context, schema, name string, page domain.Page) ([]domain.Record, error) {
	return r.selectWhere(ctx, "SearchByName", schema, Contains(name, "coname"), "", page)
}
