package v1

import (
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/fieldops/internal/domain"
)

// Options carries the request-independent settings handlers depend on.
type Options struct {
	Pages          domain.PagePolicy
	Location       *time.Location
	UploadMaxBytes int64
	Now            func() time.Time
}

func (o Options) location() *time.Location {
	if o.Location == nil {
		return time.Local
	}
	return o.Location
}

// today is the current calendar day in the configured location.
func (o Options) today() time.Time {
	now := time.Now
	if o.Now != nil {
		now = o.Now
	}
	return now().In(o.location())
}

func (o Options) pages() domain.PagePolicy {
	if o.Pages.DefaultLimit < 1 {
		return domain.DefaultPagePolicy
	}
	return o.Pages
}

// PageParams are the pagination query parameters shared by every list
// operation. Presence is tracked apart from the value so an explicit zero
// can be told from an absent parameter.
type PageParams struct {
	Page   int `query:"page" minimum:"0" maximum:"1000000" doc:"1-based page number"`
	Limit  int `query:"limit" minimum:"0" doc:"Maximum rows to return"`
	Offset int `query:"offset" minimum:"0" doc:"Rows to skip"`

	hasPage   bool
	hasLimit  bool
	hasOffset bool
}

func (p *PageParams) Resolve(ctx huma.Context) []error {
	p.hasPage = ctx.Query("page") != ""
	p.hasLimit = ctx.Query("limit") != ""
	p.hasOffset = ctx.Query("offset") != ""
	return nil
}

func (p *PageParams) page(policy domain.PagePolicy) domain.Page {
	return policy.Normalize(domain.PageRequest{
		Page:      p.Page,
		Limit:     p.Limit,
		Offset:    p.Offset,
		HasPage:   p.hasPage,
		HasLimit:  p.hasLimit,
		HasOffset: p.hasOffset,
	})
}

type ListInput struct {
	PageParams
}

type RecordIDInput struct {
	ID int64 `path:"id" doc:"Primary key"`
}

// RecordIDPageInput addresses a record's related rows.
type RecordIDPageInput struct {
	ID int64 `path:"id" doc:"Primary key"`
	PageParams
}

type CreateRecordInput struct {
	Body domain.Record
}

type UpdateRecordInput struct {
	ID   int64 `path:"id" doc:"Primary key"`
	Body domain.Record
}

type RecordOutput struct {
	Body domain.Record
}

type RecordsOutput struct {
	Body []domain.Record
}

type DeletedOutput struct {
	Body struct {
		Deleted bool `json:"deleted"`
	}
}

func recordsOutput(recs []domain.Record, public func(domain.Record) domain.Record) *RecordsOutput {
	out := &RecordsOutput{Body: make([]domain.Record, 0, len(recs))}
	for _, r := range recs {
		if public != nil {
			r = public(r)
		}
		out.Body = append(out.Body, r)
	}
	return out
}
