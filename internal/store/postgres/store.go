package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/fieldops/internal/domain"
)

// Options tunes the pool and the repositories built on it.
type Options struct {
	MaxConns     int32
	QueryTimeout time.Duration
	Location     *time.Location
}

type Store struct {
	pool          *pgxpool.Pool
	users         *UserRepo
	leads         *EntityRepo
	clients       *EntityRepo
	buildings     *EntityRepo
	companies     *CompanyRepo
	invoices      *EntityRepo
	inspections   *EntityRepo
	tasks         *TaskRepo
	events        *EventRepo
	contingencies *EntityRepo
	leadPhotos    *EntityRepo
	photos        *PhotoRepo
}

func New(ctx context.Context, dsn string, opts Options) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: parse config: %w", err)
	}

	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	err = pool.Ping(pingCtx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres.New: ping: %w", err)
	}

	s := newStore(pool, opts)
	s.pool = pool
	return s, nil
}

func newStore(db querier, opts Options) *Store {
	qb := NewQueryBuilder(opts.Location)
	entity := func(e domain.Entity) *EntityRepo {
		return NewEntityRepo(db, qb, e, opts.QueryTimeout)
	}

	return &Store{
		users:         NewUserRepo(db, qb, opts),
		leads:         entity(domain.Leads),
		clients:       entity(domain.Clients),
		buildings:     entity(domain.Buildings),
		companies:     NewCompanyRepo(db, qb, opts),
		invoices:      entity(domain.Invoices),
		inspections:   entity(domain.Inspections),
		tasks:         NewTaskRepo(db, qb, opts),
		events:        NewEventRepo(db, qb, opts),
		contingencies: entity(domain.Contingencies),
		leadPhotos:    entity(domain.LeadPhotos),
		photos:        NewPhotoRepo(db, qb, opts),
	}
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ping checks database reachability for readiness checks.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres.Ping: %w", err)
	}
	return nil
}

func (s *Store) Users() domain.UserRepository           { return s.users }
func (s *Store) Leads() domain.EntityRepository         { return s.leads }
func (s *Store) Clients() domain.EntityRepository       { return s.clients }
func (s *Store) Buildings() domain.EntityRepository     { return s.buildings }
func (s *Store) Companies() domain.CompanyRepository    { return s.companies }
func (s *Store) Invoices() domain.EntityRepository      { return s.invoices }
func (s *Store) Inspections() domain.EntityRepository   { return s.inspections }
func (s *Store) Tasks() domain.TaskRepository           { return s.tasks }
func (s *Store) Events() domain.EventRepository         { return s.events }
func (s *Store) Contingencies() domain.EntityRepository { return s.contingencies }
func (s *Store) LeadPhotos() domain.EntityRepository    { return s.leadPhotos }
func (s *Store) Photos() domain.PhotoRepository         { return s.photos }
