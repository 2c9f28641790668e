package v1

import (
	"context"

	"github.com/gosuda/fieldops/internal/auth"
	"github.com/gosuda/fieldops/internal/domain"
	"github.com/gosuda/fieldops/internal/upload"
)

// DataStore abstracts the repository accessor pattern for handler testing.
// *postgres.Store satisfies this interface.
type DataStore interface {
	Users() domain.UserRepository
	Leads() domain.EntityRepository
	Clients() domain.EntityRepository
	Buildings() domain.EntityRepository
	Companies() domain.CompanyRepository
	Invoices() domain.EntityRepository
	Inspections() domain.EntityRepository
	Tasks() domain.TaskRepository
	Events() domain.EventRepository
	Contingencies() domain.EntityRepository
	LeadPhotos() domain.EntityRepository
}

// AuthService abstracts authentication operations for handler testing.
// *auth.Service satisfies this interface.
type AuthService interface {
	Login(ctx context.Context, schema, username, password string, uid *int64) (*auth.TokenPair, error)
	Register(ctx context.Context, schema string, rec domain.Record) (domain.Record, error)
	Refresh(ctx context.Context, refreshToken, schema string) (*auth.TokenPair, error)
	ResetPassword(ctx context.Context, caller auth.Identity, schema, username, password string) error
}

// PhotoUploader stores an uploaded photo and its metadata row.
// *upload.Uploader satisfies this interface.
type PhotoUploader interface {
	Upload(ctx context.Context, schema string, p upload.Photo) (domain.Record, error)
}
