package domain

import "context"

// Credential columns on PQ_user.
const (
	UserLoginColumn    = "ulogin"
	UserPasswordColumn = "upass"
)

// Ownership columns used by the per-user relationship lists.
const (
	LeadOwnerColumn    = "luid"
	InvoiceOwnerColumn = "invuid"
	ClientOwnerColumn  = "cuid"
)

// User is the authentication view of a PQ_user row. Record holds the full
// row with the password hash removed.
type User struct {
	UID          int64
	Login        string
	PasswordHash string
	Record       Record
}

type UserRepository interface {
	EntityRepository
	GetByLogin(ctx context.Context, schema, login string) (*User, error)
	GetByUID(ctx context.Context, schema string, uid int64) (*User, error)
	SetPassword(ctx context.Context, schema string, uid int64, hash string) error
	// Search matches query against first and last names, case-insensitively.
	Search(ctx context.Context, schema, query string, page Page) ([]Record, error)
	// ListInspections returns inspections reachable from the user through
	// their leads, clients or jobs.
	ListInspections(ctx context.Context, schema string, uid int64, page Page) ([]Record, error)
}

// PublicUser strips credentials from a PQ_user row before it leaves the
// service.
func PublicUser(r Record) Record {
	if r == nil {
		return nil
	}
	return r.Without(UserPasswordColumn)
}
