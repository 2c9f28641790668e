package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/fieldops/internal/domain"
)

const dayLayout = "2006-01-02"

type EventsOnDateInput struct {
	UserID int64  `path:"userId" doc:"Owning user ID"`
	Date   string `query:"date" required:"true" doc:"Calendar day, YYYY-MM-DD"`
}

func registerEventRoutes(api huma.API, store DataStore, opts Options) {
	registerCRUD(api, store, opts, resource{
		entity: domain.Events,
		path:   "/events",
		tag:    "Events",
		repo:   func(s DataStore) domain.EntityRepository { return s.Events() },
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-events-on-date",
		Method:      http.MethodGet,
		Path:        "/events/user/{userId}/date",
		Summary:     "List a user's events starting on a day",
		Tags:        []string{"Events"},
	}, func(ctx context.Context, input *EventsOnDateInput) (*RecordsOutput, error) {
		schema, err := tenantSchema(ctx)
		if err != nil {
			return nil, err
		}

		day, err := time.ParseInLocation(dayLayout, input.Date, opts.location())
		if err != nil {
			return nil, huma.Error400BadRequest("date: expected YYYY-MM-DD")
		}

		recs, err := store.Events().ListByUserOn(ctx, schema, input.UserID, day)
		if err != nil {
			return nil, storeError(err, "list", "events")
		}
		return recordsOutput(recs, nil), nil
	})
}
