package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/fieldops/internal/domain"
)

type TasksByJobInput struct {
	JobID int64 `path:"tjid" doc:"Job ID"`
	PageParams
}

type TasksByOrderInput struct {
	OrderID int64 `path:"twoid" doc:"Work order ID"`
	PageParams
}

type TasksByAssigneeInput struct {
	UserID int64 `path:"tuid" doc:"Assigned user ID"`
	PageParams
}

type TasksByAssignerInput struct {
	UserID int64 `path:"tassuid" doc:"Assigning user ID"`
	PageParams
}

type TasksTodayInput struct {
	UserID int64 `path:"tuid" doc:"Assigned user ID"`
}

func tasksRepo(s DataStore) domain.EntityRepository { return s.Tasks() }

func registerTaskRoutes(api huma.API, store DataStore, opts Options) {
	registerCRUD(api, store, opts, resource{entity: domain.Tasks, path: "/tasks", tag: "Tasks", repo: tasksRepo})

	huma.Register(api, huma.Operation{
		OperationID: "list-tasks-by-job",
		Method:      http.MethodGet,
		Path:        "/tasks/job/{tjid}",
		Summary:     "List tasks for a job",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *TasksByJobInput) (*RecordsOutput, error) {
		return listBy(ctx, store.Tasks(), domain.TaskJobColumn, input.JobID, input.page(opts.pages()), "tasks")
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-tasks-by-order",
		Method:      http.MethodGet,
		Path:        "/tasks/order/{twoid}",
		Summary:     "List tasks for a work order",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *TasksByOrderInput) (*RecordsOutput, error) {
		return listBy(ctx, store.Tasks(), domain.TaskWorkOrderColumn, input.OrderID, input.page(opts.pages()), "tasks")
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-tasks-by-assignee",
		Method:      http.MethodGet,
		Path:        "/tasks/user/{tuid}",
		Summary:     "List tasks assigned to a user",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *TasksByAssigneeInput) (*RecordsOutput, error) {
		return listBy(ctx, store.Tasks(), domain.TaskAssigneeColumn, input.UserID, input.page(opts.pages()), "tasks")
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-tasks-by-assigner",
		Method:      http.MethodGet,
		Path:        "/tasks/assigner/{tassuid}",
		Summary:     "List tasks a user assigned",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *TasksByAssignerInput) (*RecordsOutput, error) {
		return listBy(ctx, store.Tasks(), domain.TaskAssignerColumn, input.UserID, input.page(opts.pages()), "tasks")
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-tasks-due-today",
		Method:      http.MethodGet,
		Path:        "/tasks/user/{tuid}/today",
		Summary:     "List a user's tasks due today",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *TasksTodayInput) (*RecordsOutput, error) {
		schema, err := tenantSchema(ctx)
		if err != nil {
			return nil, err
		}

		recs, err := store.Tasks().ListDueOn(ctx, schema, input.UserID, opts.today())
		if err != nil {
			return nil, storeError(err, "list", "tasks")
		}
		return recordsOutput(recs, nil), nil
	})
}
