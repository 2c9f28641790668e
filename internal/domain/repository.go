package domain

import "context"

// EntityRepository is the CRUD contract shared by every tenant-scoped
// resource. Every call names the tenant schema explicitly.
type EntityRepository interface {
	FindAll(ctx context.Context, schema string, page Page) ([]Record, error)
	FindByID(ctx context.Context, schema string, id int64) (Record, error)
	FindBy(ctx context.Context, schema string, filter Filter, page Page) ([]Record, error)
	Create(ctx context.Context, schema string, rec Record) (Record, error)
	// Update applies the partial record and returns the row as re-read
	// after the write.
	Update(ctx context.Context, schema string, id int64, rec Record) (Record, error)
	Delete(ctx context.Context, schema string, id int64) error
}

type CompanyRepository interface {
	EntityRepository
	SearchByName(ctx context.Context, schema, name string, page Page) ([]Record, error)
}

// Photo grouping columns on PQ_photos.
const (
	PhotoJobColumn       = "pjobid"
	PhotoWorkOrderColumn = "pwoid"
	PhotoOrderColumn     = "photoorder"
	PhotoNameColumn      = "photoname"
	PhotoExtColumn       = "photoext"
	PhotoTimestampColumn = "photodts"
)

// PhotoRepository stores job photo metadata. Insert assigns the next
// photoorder within the photo's job or work order.
type PhotoRepository interface {
	Insert(ctx context.Context, schema string, rec Record) (Record, error)
	Delete(ctx context.Context, schema string, id int64) error
}
