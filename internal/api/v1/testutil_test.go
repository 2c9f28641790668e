package v1_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	v1 "github.com/gosuda/fieldops/internal/api/v1"
	"github.com/gosuda/fieldops/internal/auth"
	"github.com/gosuda/fieldops/internal/domain"
	"github.com/gosuda/fieldops/internal/server/middleware"
	"github.com/gosuda/fieldops/internal/upload"
)

// ---------------------------------------------------------------------------
// Context helpers: inject the caller identity into context for DoCtx
// ---------------------------------------------------------------------------

var caller = auth.Identity{UID: 42, Username: "jdoe", Schema: "acme"}

func schemaCtx() context.Context {
	return middleware.WithIdentity(context.Background(), caller)
}

var fixedNow = time.Date(2024, 3, 1, 23, 30, 0, 0, time.UTC)

func testOptions() v1.Options {
	return v1.Options{
		Pages:    domain.PagePolicy{DefaultLimit: 50, MaxLimit: 200},
		Location: time.UTC,
		Now:      func() time.Time { return fixedNow },
	}
}

// ---------------------------------------------------------------------------
// Mock DataStore
// ---------------------------------------------------------------------------

type mockDataStore struct {
	users         *mockUserRepo
	leads         *mockEntityRepo
	clients       *mockEntityRepo
	buildings     *mockEntityRepo
	companies     *mockCompanyRepo
	invoices      *mockEntityRepo
	inspections   *mockEntityRepo
	tasks         *mockTaskRepo
	events        *mockEventRepo
	contingencies *mockEntityRepo
	leadPhotos    *mockEntityRepo
}

func (m *mockDataStore) Users() domain.UserRepository           { return m.users }
func (m *mockDataStore) Leads() domain.EntityRepository         { return m.leads }
func (m *mockDataStore) Clients() domain.EntityRepository       { return m.clients }
func (m *mockDataStore) Buildings() domain.EntityRepository     { return m.buildings }
func (m *mockDataStore) Companies() domain.CompanyRepository    { return m.companies }
func (m *mockDataStore) Invoices() domain.EntityRepository      { return m.invoices }
func (m *mockDataStore) Inspections() domain.EntityRepository   { return m.inspections }
func (m *mockDataStore) Tasks() domain.TaskRepository           { return m.tasks }
func (m *mockDataStore) Events() domain.EventRepository         { return m.events }
func (m *mockDataStore) Contingencies() domain.EntityRepository { return m.contingencies }
func (m *mockDataStore) LeadPhotos() domain.EntityRepository    { return m.leadPhotos }

// newMockStore returns a store whose repositories are all empty mocks, so
// a test only sets the funcs it exercises.
func newMockStore() *mockDataStore {
	return &mockDataStore{
		users:         &mockUserRepo{},
		leads:         &mockEntityRepo{},
		clients:       &mockEntityRepo{},
		buildings:     &mockEntityRepo{},
		companies:     &mockCompanyRepo{},
		invoices:      &mockEntityRepo{},
		inspections:   &mockEntityRepo{},
		tasks:         &mockTaskRepo{},
		events:        &mockEventRepo{},
		contingencies: &mockEntityRepo{},
		leadPhotos:    &mockEntityRepo{},
	}
}

// ---------------------------------------------------------------------------
// Mock EntityRepository
// ---------------------------------------------------------------------------

type mockEntityRepo struct {
	findAllFunc  func(ctx context.Context, schema string, page domain.Page) ([]domain.Record, error)
	findByIDFunc func(ctx context.Context, schema string, id int64) (domain.Record, error)
	findByFunc   func(ctx context.Context, schema string, filter domain.Filter, page domain.Page) ([]domain.Record, error)
	createFunc   func(ctx context.Context, schema string, rec domain.Record) (domain.Record, error)
	updateFunc   func(ctx context.Context, schema string, id int64, rec domain.Record) (domain.Record, error)
	deleteFunc   func(ctx context.Context, schema string, id int64) error
}

func (m *mockEntityRepo) FindAll(ctx context.Context, schema string, page domain.Page) ([]domain.Record, error) {
	return m.findAllFunc(ctx, schema, page)
}

func (m *mockEntityRepo) FindByID(ctx context.Context, schema string, id int64) (domain.Record, error) {
	return m.findByIDFunc(ctx, schema, id)
}

func (m *mockEntityRepo) FindBy(ctx context.Context, schema string, filter domain.Filter, page domain.Page) ([]domain.Record, error) {
	return m.findByFunc(ctx, schema, filter, page)
}

func (m *mockEntityRepo) Create(ctx context.Context, schema string, rec domain.Record) (domain.Record, error) {
	return m.createFunc(ctx, schema, rec)
}

func (m *mockEntityRepo) Update(ctx context.Context, schema string, id int64, rec domain.Record) (domain.Record, error) {
	return m.updateFunc(ctx, schema, id, rec)
}

func (m *mockEntityRepo) Delete(ctx context.Context, schema string, id int64) error {
	return m.deleteFunc(ctx, schema, id)
}

// ---------------------------------------------------------------------------
// Mock resource-specific repositories
// ---------------------------------------------------------------------------

type mockUserRepo struct {
	mockEntityRepo
	getByLoginFunc      func(ctx context.Context, schema, login string) (*domain.User, error)
	getByUIDFunc        func(ctx context.Context, schema string, uid int64) (*domain.User, error)
	setPasswordFunc     func(ctx context.Context, schema string, uid int64, hash string) error
	searchFunc          func(ctx context.Context, schema, query string, page domain.Page) ([]domain.Record, error)
	listInspectionsFunc func(ctx context.Context, schema string, uid int64, page domain.Page) ([]domain.Record, error)
}

func (m *mockUserRepo) GetByLogin(ctx context.Context, schema, login string) (*domain.User, error) {
	return m.getByLoginFunc(ctx, schema, login)
}

func (m *mockUserRepo) GetByUID(ctx context.Context, schema string, uid int64) (*domain.User, error) {
	return m.getByUIDFunc(ctx, schema, uid)
}

func (m *mockUserRepo) SetPassword(ctx context.Context, schema string, uid int64, hash string) error {
	return m.setPasswordFunc(ctx, schema, uid, hash)
}

func (m *mockUserRepo) Search(ctx context.Context, schema, query string, page domain.Page) ([]domain.Record, error) {
	return m.searchFunc(ctx, schema, query, page)
}

func (m *mockUserRepo) ListInspections(ctx context.Context, schema string, uid int64, page domain.Page) ([]domain.Record, error) {
	return m.listInspectionsFunc(ctx, schema, uid, page)
}

type mockTaskRepo struct {
	mockEntityRepo
	listDueOnFunc      func(ctx context.Context, schema string, assigneeID int64, day time.Time) ([]domain.Record, error)
	listByAssigneeFunc func(ctx context.Context, schema string, assigneeID int64, page domain.Page) ([]domain.Record, error)
}

func (m *mockTaskRepo) ListDueOn(ctx context.Context, schema string, assigneeID int64, day time.Time) ([]domain.Record, error) {
	return m.listDueOnFunc(ctx, schema, assigneeID, day)
}

func (m *mockTaskRepo) ListByAssignee(ctx context.Context, schema string, assigneeID int64, page domain.Page) ([]domain.Record, error) {
	return m.listByAssigneeFunc(ctx, schema, assigneeID, page)
}

type mockEventRepo struct {
	mockEntityRepo
	listByUserOnFunc func(ctx context.Context, schema string, userID int64, day time.Time) ([]domain.Record, error)
	listByUserFunc   func(ctx context.Context, schema string, userID int64, page domain.Page) ([]domain.Record, error)
}

func (m *mockEventRepo) ListByUserOn(ctx context.Context, schema string, userID int64, day time.Time) ([]domain.Record, error) {
	return m.listByUserOnFunc(ctx, schema, userID, day)
}

func (m *mockEventRepo) ListByUser(ctx context.Context, schema string, userID int64, page domain.Page) ([]domain.Record, error) {
	return m.listByUserFunc(ctx, schema, userID, page)
}

type mockCompanyRepo struct {
	mockEntityRepo
	searchByNameFunc func(ctx context.Context, schema, name string, page domain.Page) ([]domain.Record, error)
}

func (m *mockCompanyRepo) SearchByName(ctx context.Context, schema, name string, page domain.Page) ([]domain.Record, error) {
	return m.searchByNameFunc(ctx, schema, name, page)
}

// ---------------------------------------------------------------------------
// Mock AuthService
// ---------------------------------------------------------------------------

type mockAuthService struct {
	loginFunc         func(ctx context.Context, schema, username, password string, uid *int64) (*auth.TokenPair, error)
	registerFunc      func(ctx context.Context, schema string, rec domain.Record) (domain.Record, error)
	refreshFunc       func(ctx context.Context, refreshToken, schema string) (*auth.TokenPair, error)
	resetPasswordFunc func(ctx context.Context, caller auth.Identity, schema, username, password string) error
}

func (m *mockAuthService) Login(ctx context.Context, schema, username, password string, uid *int64) (*auth.TokenPair, error) {
	return m.loginFunc(ctx, schema, username, password, uid)
}

func (m *mockAuthService) Register(ctx context.Context, schema string, rec domain.Record) (domain.Record, error) {
	return m.registerFunc(ctx, schema, rec)
}

func (m *mockAuthService) Refresh(ctx context.Context, refreshToken, schema string) (*auth.TokenPair, error) {
	return m.refreshFunc(ctx, refreshToken, schema)
}

func (m *mockAuthService) ResetPassword(ctx context.Context, caller auth.Identity, schema, username, password string) error {
	return m.resetPasswordFunc(ctx, caller, schema, username, password)
}

// ---------------------------------------------------------------------------
// Mock PhotoUploader
// ---------------------------------------------------------------------------

type mockUploader struct {
	uploadFunc func(ctx context.Context, schema string, p upload.Photo) (domain.Record, error)
}

func (m *mockUploader) Upload(ctx context.Context, schema string, p upload.Photo) (domain.Record, error) {
	return m.uploadFunc(ctx, schema, p)
}

// decodeBody decodes a JSON object response. Struct bodies carry huma's
// $schema link, so tests compare fields rather than whole documents.
func decodeBody(t *testing.T, resp *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}
