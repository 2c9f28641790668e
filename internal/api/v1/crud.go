package v1

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/fieldops/internal/domain"
)

// resource describes one tenant-scoped table exposed with the standard
// list/create/get/update/delete shape.
type resource struct {
	entity domain.Entity
	path   string
	tag    string
	repo   func(DataStore) domain.EntityRepository

	// Optional hooks.
	noCreate   bool
	public     func(domain.Record) domain.Record
	checkWrite func(domain.Record) error
}

func (r resource) slug() string {
	return strings.TrimPrefix(r.path, "/")
}

// plural is the resource name used in "failed to list ..." messages.
func (r resource) plural() string {
	return strings.ReplaceAll(r.slug(), "-", " ")
}

func (r resource) out(rec domain.Record) *RecordOutput {
	if r.public != nil {
		rec = r.public(rec)
	}
	return &RecordOutput{Body: rec}
}

func registerCRUD(api huma.API, store DataStore, opts Options, res resource) {
	name := res.entity.Name

	huma.Register(api, huma.Operation{
		OperationID: "list-" + res.slug(),
		Method:      http.MethodGet,
		Path:        res.path,
		Summary:     "List " + res.plural(),
		Tags:        []string{res.tag},
	}, func(ctx context.Context, input *ListInput) (*RecordsOutput, error) {
		schema, err := tenantSchema(ctx)
		if err != nil {
			return nil, err
		}

		recs, err := res.repo(store).FindAll(ctx, schema, input.page(opts.pages()))
		if err != nil {
			return nil, storeError(err, "list", res.plural())
		}
		return recordsOutput(recs, res.public), nil
	})

	if !res.noCreate {
		create := func(ctx context.Context, input *CreateRecordInput) (*RecordOutput, error) {
			schema, err := tenantSchema(ctx)
			if err != nil {
				return nil, err
			}
			if res.checkWrite != nil {
				if err := res.checkWrite(input.Body); err != nil {
					return nil, storeError(err, "create", name)
				}
			}

			rec, err := res.repo(store).Create(ctx, schema, input.Body)
			if err != nil {
				return nil, storeError(err, "create", name)
			}
			return res.out(rec), nil
		}

		huma.Register(api, huma.Operation{
			OperationID:   "create-" + res.slug(),
			Method:        http.MethodPost,
			Path:          res.path,
			Summary:       "Create a " + name,
			Tags:          []string{res.tag},
			DefaultStatus: http.StatusCreated,
		}, create)

		huma.Register(api, huma.Operation{
			OperationID:   "create-" + res.slug() + "-alias",
			Method:        http.MethodPost,
			Path:          res.path + "/create",
			Summary:       "Create a " + name,
			Tags:          []string{res.tag},
			DefaultStatus: http.StatusCreated,
		}, create)
	}

	huma.Register(api, huma.Operation{
		OperationID: "get-" + res.slug(),
		Method:      http.MethodGet,
		Path:        res.path + "/{id}",
		Summary:     "Get a " + name + " by ID",
		Tags:        []string{res.tag},
	}, func(ctx context.Context, input *RecordIDInput) (*RecordOutput, error) {
		schema, err := tenantSchema(ctx)
		if err != nil {
			return nil, err
		}

		rec, err := res.repo(store).FindByID(ctx, schema, input.ID)
		if err != nil {
			return nil, storeError(err, "get", name)
		}
		return res.out(rec), nil
	})

	update := func(ctx context.Context, input *UpdateRecordInput) (*RecordOutput, error) {
		schema, err := tenantSchema(ctx)
		if err != nil {
			return nil, err
		}
		if res.checkWrite != nil {
			if err := res.checkWrite(input.Body); err != nil {
				return nil, storeError(err, "update", name)
			}
		}

		rec, err := res.repo(store).Update(ctx, schema, input.ID, input.Body)
		if err != nil {
			return nil, storeError(err, "update", name)
		}
		return res.out(rec), nil
	}

	huma.Register(api, huma.Operation{
		OperationID: "update-" + res.slug(),
		Method:      http.MethodPut,
		Path:        res.path + "/{id}",
		Summary:     "Update a " + name,
		Tags:        []string{res.tag},
	}, update)

	huma.Register(api, huma.Operation{
		OperationID: "patch-" + res.slug(),
		Method:      http.MethodPatch,
		Path:        res.path + "/{id}",
		Summary:     "Partially update a " + name,
		Tags:        []string{res.tag},
	}, update)

	huma.Register(api, huma.Operation{
		OperationID: "delete-" + res.slug(),
		Method:      http.MethodDelete,
		Path:        res.path + "/{id}",
		Summary:     "Delete a " + name,
		Tags:        []string{res.tag},
	}, func(ctx context.Context, input *RecordIDInput) (*DeletedOutput, error) {
		schema, err := tenantSchema(ctx)
		if err != nil {
			return nil, err
		}

		if err := res.repo(store).Delete(ctx, schema, input.ID); err != nil {
			return nil, storeError(err, "delete", name)
		}

		out := &DeletedOutput{}
		out.Body.Deleted = true
		return out, nil
	})
}

// listBy runs an equality-filtered list on repo for the caller's schema.
func listBy(ctx context.Context, repo domain.EntityRepository, column string, id int64, page domain.Page, resource string) (*RecordsOutput, error) {
	schema, err := tenantSchema(ctx)
	if err != nil {
		return nil, err
	}

	recs, err := repo.FindBy(ctx, schema, domain.Filter{column: id}, page)
	if err != nil {
		return nil, storeError(err, "list", resource)
	}
	return recordsOutput(recs, nil), nil
}
