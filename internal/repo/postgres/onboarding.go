package postgres

import (
	"context"

	"github.com/TharinduDesh/incidenthub/internal/domain/job"
	"github.com/TharinduDesh/incidenthub/internal/domain/user"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Onboarding commits a new user row and its verification-email job in
// one transaction. The worker can only ever see the job if the user
// exists, and a failed insert leaves neither behind.
type Onboarding struct {
	pool  *pgxpool.Pool
	users *UsersRepo
	jobs  *JobsRepo
}

func NewOnboarding(pool *pgxpool.Pool, users *UsersRepo, jobs *JobsRepo) *Onboarding {
	return &Onboarding{pool: pool, users: users, jobs: jobs}
}

// CreateUserWithJob inserts the user and, when jobReq is non-nil,
// enqueues the job in the same transaction.
func (o *Onboarding) CreateUserWithJob(ctx context.Context, u user.User, jobReq *job.CreateRequest) error {
	tx, err := o.pool.BeginTx(ctx, pgx.TxOptions{})

	if err != nil {
		return err
	}

	defer func() { _ = tx.Rollback(ctx) }()

	if err := o.users.CreateTx(ctx, tx, u); err != nil {
		return err
	}

	if jobReq != nil {
		if _, err := o.jobs.CreateTx(ctx, tx, *jobReq); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}
