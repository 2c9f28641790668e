package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/sync/errgroup"

	"github.com/gosuda/fieldops/internal/domain"
)

type SearchUsersInput struct {
	Query string `query:"query" required:"true" minLength:"1" doc:"Matched against first and last name"`
	PageParams
}

type ClientsAndLeadsOutput struct {
	Body struct {
		Clients []domain.Record `json:"clients"`
		Leads   []domain.Record `json:"leads"`
	}
}

// rejectPassword keeps raw passwords out of generic user writes; they only
// change through the reset-password flow, which hashes them.
func rejectPassword(rec domain.Record) error {
	if _, ok := rec[domain.UserPasswordColumn]; ok {
		return domain.Invalid(domain.UserPasswordColumn, "use /auth/reset-password to change passwords")
	}
	return nil
}

// RegisterUserRoutes mounts the user directory and the per-user
// relationship lists.
func RegisterUserRoutes(api huma.API, store DataStore, opts Options) {
	huma.Register(api, huma.Operation{
		OperationID: "search-users",
		Method:      http.MethodGet,
		Path:        "/users/search",
		Summary:     "Search users by name",
		Tags:        []string{"Users"},
	}, func(ctx context.Context, input *SearchUsersInput) (*RecordsOutput, error) {
		schema, err := tenantSchema(ctx)
		if err != nil {
			return nil, err
		}

		recs, err := store.Users().Search(ctx, schema, input.Query, input.page(opts.pages()))
		if err != nil {
			return nil, storeError(err, "search", "users")
		}
		return recordsOutput(recs, domain.PublicUser), nil
	})

	registerCRUD(api, store, opts, resource{
		entity:     domain.Users,
		path:       "/users",
		tag:        "Users",
		repo:       func(s DataStore) domain.EntityRepository { return s.Users() },
		noCreate:   true,
		public:     domain.PublicUser,
		checkWrite: rejectPassword,
	})

	related := []struct {
		suffix string
		repo   func(DataStore) domain.EntityRepository
		column string
	}{
		{"leads", DataStore.Leads, domain.LeadOwnerColumn},
		{"invoices", DataStore.Invoices, domain.InvoiceOwnerColumn},
		{"clients", DataStore.Clients, domain.ClientOwnerColumn},
	}
	for _, rel := range related {
		huma.Register(api, huma.Operation{
			OperationID: "list-user-" + rel.suffix,
			Method:      http.MethodGet,
			Path:        "/users/{id}/" + rel.suffix,
			Summary:     "List a user's " + rel.suffix,
			Tags:        []string{"Users"},
		}, func(ctx context.Context, input *RecordIDPageInput) (*RecordsOutput, error) {
			return listBy(ctx, rel.repo(store), rel.column, input.ID, input.page(opts.pages()), rel.suffix)
		})
	}

	// Events and tasks carry their linked rows as nested objects.
	joined := []struct {
		suffix string
		list   func(ctx context.Context, schema string, id int64, page domain.Page) ([]domain.Record, error)
	}{
		{"events", func(ctx context.Context, schema string, id int64, page domain.Page) ([]domain.Record, error) {
			return store.Events().ListByUser(ctx, schema, id, page)
		}},
		{"tasks", func(ctx context.Context, schema string, id int64, page domain.Page) ([]domain.Record, error) {
			return store.Tasks().ListByAssignee(ctx, schema, id, page)
		}},
	}
	for _, j := range joined {
		huma.Register(api, huma.Operation{
			OperationID: "list-user-" + j.suffix,
			Method:      http.MethodGet,
			Path:        "/users/{id}/" + j.suffix,
			Summary:     "List a user's " + j.suffix + " with linked records",
			Tags:        []string{"Users"},
		}, func(ctx context.Context, input *RecordIDPageInput) (*RecordsOutput, error) {
			schema, err := tenantSchema(ctx)
			if err != nil {
				return nil, err
			}

			recs, err := j.list(ctx, schema, input.ID, input.page(opts.pages()))
			if err != nil {
				return nil, storeError(err, "list", j.suffix)
			}
			return recordsOutput(recs, nil), nil
		})
	}

	huma.Register(api, huma.Operation{
		OperationID: "list-user-inspections",
		Method:      http.MethodGet,
		Path:        "/users/{id}/inspections",
		Summary:     "List inspections reachable from a user's leads, clients and jobs",
		Tags:        []string{"Users"},
	}, func(ctx context.Context, input *RecordIDPageInput) (*RecordsOutput, error) {
		schema, err := tenantSchema(ctx)
		if err != nil {
			return nil, err
		}

		recs, err := store.Users().ListInspections(ctx, schema, input.ID, input.page(opts.pages()))
		if err != nil {
			return nil, storeError(err, "list", "inspections")
		}
		return recordsOutput(recs, nil), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-user-clients-and-leads",
		Method:      http.MethodGet,
		Path:        "/users/{id}/clients-and-leads",
		Summary:     "List a user's clients and leads together",
		Tags:        []string{"Users"},
	}, func(ctx context.Context, input *RecordIDPageInput) (*ClientsAndLeadsOutput, error) {
		schema, err := tenantSchema(ctx)
		if err != nil {
			return nil, err
		}
		page := input.page(opts.pages())

		var clients, leads []domain.Record
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			clients, err = store.Clients().FindBy(gctx, schema, domain.Filter{domain.ClientOwnerColumn: input.ID}, page)
			return err
		})
		g.Go(func() error {
			var err error
			leads, err = store.Leads().FindBy(gctx, schema, domain.Filter{domain.LeadOwnerColumn: input.ID}, page)
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, storeError(err, "list", "clients and leads")
		}

		out := &ClientsAndLeadsOutput{}
		out.Body.Clients = recordsOutput(clients, nil).Body
		out.Body.Leads = recordsOutput(leads, nil).Body
		return out, nil
	})
}
