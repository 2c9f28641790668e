package postgres

import (
	"context"

	sq "github.com/Masterminds/squirrel"

	"github.com/gosuda/fieldops/internal/domain"
)

type PhotoRepo struct {
	*EntityRepo
}

func NewPhotoRepo(db querier, qb *QueryBuilder, opts Options) *PhotoRepo {
	return &PhotoRepo{EntityRepo: NewEntityRepo(db, qb, domain.Photos, opts.QueryTimeout)}
}

// Insert stores photo metadata with photoorder set to one past the highest
// order already used by the same job or work order.
func (r *PhotoRepo) Insert(ctx context.Context, schema string, rec domain.Record) (domain.Record, error) {
	query, args, err := r.qb.InsertPhoto(schema, rec)
	if err != nil {
		return nil, r.wrap("Insert", err)
	}
	return r.queryOne(ctx, "Insert", query, args)
}

// InsertPhoto builds the photo metadata INSERT. Any client-supplied
// photoorder is replaced by the computed one.
func (b *QueryBuilder) InsertPhoto(schema string, rec domain.Record) (string, []any, error) {
	rec = rec.Without(domain.PhotoOrderColumn)
	table, cols, vals, err := b.insertParts(schema, domain.Photos, rec)
	if err != nil {
		return "", nil, err
	}

	order, err := b.nextPhotoOrder(table, rec)
	if err != nil {
		return "", nil, err
	}
	cols = append(cols, column(domain.PhotoOrderColumn))
	vals = append(vals, order)

	return psql.Insert(table).Columns(cols...).Values(vals...).Suffix("RETURNING *").ToSql()
}

func (b *QueryBuilder) nextPhotoOrder(table string, rec domain.Record) (sq.Sqlizer, error) {
	var group sq.Or
	for _, c := range []string{domain.PhotoJobColumn, domain.PhotoWorkOrderColumn} {
		if v, ok := rec[c]; ok && v != nil {
			nv, err := b.normalize(domain.Photos, c, v)
			if err != nil {
				return nil, err
			}
			group = append(group, sq.Eq{column(c): nv})
		}
	}
	if len(group) == 0 {
		return sq.Expr("1"), nil
	}

	sub, subArgs, err := sq.Select("COALESCE(MAX(" + column(domain.PhotoOrderColumn) + "), 0) + 1").
		From(table).
		Where(group).
		ToSql()
	if err != nil {
		return nil, err
	}
	return sq.Expr("("+sub+")", subArgs...), nil
}
