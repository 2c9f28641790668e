package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/fieldops/internal/domain"
)

type UserRecordsInput struct {
	UserID int64 `path:"userId" doc:"Owning user ID"`
	PageParams
}

type CompanyNameInput struct {
	Name string `path:"coname" minLength:"1" doc:"Company name fragment"`
	PageParams
}

// RegisterResourceRoutes mounts the standard CRUD resources and their
// resource-specific lookups.
func RegisterResourceRoutes(api huma.API, store DataStore, opts Options) {
	for _, res := range []resource{
		{entity: domain.Leads, path: "/leads", tag: "Leads", repo: DataStore.Leads},
		{entity: domain.Clients, path: "/clients", tag: "Clients", repo: DataStore.Clients},
		{entity: domain.Buildings, path: "/buildings", tag: "Buildings", repo: DataStore.Buildings},
		{entity: domain.Inspections, path: "/inspections", tag: "Inspections", repo: DataStore.Inspections},
		{entity: domain.Contingencies, path: "/contingencies", tag: "Contingencies", repo: DataStore.Contingencies},
		{entity: domain.LeadPhotos, path: "/lead-photos", tag: "Lead Photos", repo: DataStore.LeadPhotos},
		{entity: domain.Invoices, path: "/invoices", tag: "Invoices", repo: DataStore.Invoices},
		{entity: domain.Companies, path: "/companies", tag: "Companies", repo: func(s DataStore) domain.EntityRepository {
			return s.Companies()
		}},
	} {
		registerCRUD(api, store, opts, res)
	}

	huma.Register(api, huma.Operation{
		OperationID: "list-invoices-by-user",
		Method:      http.MethodGet,
		Path:        "/invoices/user/{userId}",
		Summary:     "List a user's invoices",
		Tags:        []string{"Invoices"},
	}, func(ctx context.Context, input *UserRecordsInput) (*RecordsOutput, error) {
		return listBy(ctx, store.Invoices(), domain.InvoiceOwnerColumn, input.UserID, input.page(opts.pages()), "invoices")
	})

	huma.Register(api, huma.Operation{
		OperationID: "search-companies",
		Method:      http.MethodGet,
		Path:        "/companies/coname/{coname}",
		Summary:     "Find companies by name",
		Tags:        []string{"Companies"},
	}, func(ctx context.Context, input *CompanyNameInput) (*RecordsOutput, error) {
		schema, err := tenantSchema(ctx)
		if err != nil {
			return nil, err
		}

		recs, err := store.Companies().SearchByName(ctx, schema, input.Name, input.page(opts.pages()))
		if err != nil {
			return nil, storeError(err, "list", "companies")
		}
		return recordsOutput(recs, nil), nil
	})

	registerTaskRoutes(api, store, opts)
	registerEventRoutes(api, store, opts)
}
