package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/TharinduDesh/incidenthub/internal/domain/incident"
	"github.com/TharinduDesh/incidenthub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const incidentColumns = `id, short_id, title, description, category, status, team,
	reporter_name, reporter_email, contact_number, address,
	occurred_at, created_at, updated_at`

type IncidentsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewIncidentsRepo(pool *pgxpool.Pool, prom *observability.Prom) *IncidentsRepo {
	return &IncidentsRepo{pool: pool, prom: prom}
}

func (r *IncidentsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func (r *IncidentsRepo) Create(ctx context.Context, req incident.CreateRequest) (incident.Incident, error) {
	inc := incident.NewFromCreateRequest(req)

	err := r.observe("incidents.create", func() error {
		_, err := r.pool.Exec(ctx, `INSERT INTO incidents (
			id, short_id, title, description, category, status, team,
			reporter_name, reporter_email, contact_number, address,
			occurred_at, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
			inc.ID, inc.ShortID, inc.Title, inc.Description, string(inc.Category),
			string(inc.Status), inc.Team,
			inc.ReporterName, inc.ReporterEmail, inc.ContactNumber, inc.Address,
			inc.OccurredAt, inc.CreatedAt, inc.UpdatedAt,
		)
		return err
	})

	if err != nil {
		return incident.Incident{}, err
	}

	return inc, nil
}

func (r *IncidentsRepo) List(ctx context.Context, filter incident.ListFilter) ([]incident.Incident, int, error) {
	baseQuery := `SELECT ` + incidentColumns + `,
		COUNT(*) OVER() AS total
	FROM incidents`

	var conds []string
	var args []interface{}

	argsPosition := 1

	if filter.ReporterEmail != nil {
		conds = append(conds, fmt.Sprintf("reporter_email = $%d", argsPosition))
		args = append(args, *filter.ReporterEmail)
		argsPosition++
	}

	if filter.Category != nil {
		conds = append(conds, fmt.Sprintf("category = $%d", argsPosition))
		args = append(args, string(*filter.Category))
		argsPosition++
	}

	if filter.Status != nil {
		conds = append(conds, fmt.Sprintf("status = $%d", argsPosition))
		args = append(args, string(*filter.Status))
		argsPosition++
	}

	// Free text matches title, description or the short handle.
	if filter.Search != nil {
		conds = append(conds, fmt.Sprintf(
			"(title ILIKE $%d OR description ILIKE $%d OR short_id ILIKE $%d)",
			argsPosition, argsPosition, argsPosition))
		args = append(args, "%"+*filter.Search+"%")
		argsPosition++
	}

	query := baseQuery

	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	// stable ordering for pagination
	query += fmt.Sprintf(" ORDER BY created_at DESC, id ASC LIMIT $%d OFFSET $%d", argsPosition, argsPosition+1)

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	args = append(args, limit, filter.Offset)

	output := make([]incident.Incident, 0, limit)
	total := 0

	err := r.observe("incidents.list", func() error {
		rows, err := r.pool.Query(ctx, query, args...)

		if err != nil {
			return err
		}

		defer rows.Close()

		for rows.Next() {
			var inc incident.Incident
			var t int

			inc, t, err = scanIncidentWithTotal(rows)

			if err != nil {
				return err
			}

			total = t
			output = append(output, inc)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, 0, err
	}

	return output, total, nil
}

func (r *IncidentsRepo) GetByID(ctx context.Context, id string) (incident.Incident, error) {
	var inc incident.Incident
	var err error

	err = r.observe("incidents.get_by_id", func() error {
		row := r.pool.QueryRow(ctx, `SELECT `+incidentColumns+` FROM incidents WHERE id = $1`, id)
		inc, err = scanIncident(row)
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return incident.Incident{}, incident.ErrNotFound
		}
		return incident.Incident{}, err
	}

	return inc, nil
}

func (r *IncidentsRepo) UpdateStatus(ctx context.Context, id string, status incident.Status) (incident.Incident, error) {
	var inc incident.Incident
	var err error

	err = r.observe("incidents.update_status", func() error {
		row := r.pool.QueryRow(ctx, `
			UPDATE incidents
			SET status = $2, updated_at = NOW()
			WHERE id = $1
			RETURNING `+incidentColumns,
			id, string(status))
		inc, err = scanIncident(row)
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return incident.Incident{}, incident.ErrNotFound
		}
		return incident.Incident{}, err
	}

	return inc, nil
}

func (r *IncidentsRepo) UpdateAssignment(ctx context.Context, id string, status incident.Status, team string) (incident.Incident, error) {
	var inc incident.Incident
	var err error

	err = r.observe("incidents.update_assignment", func() error {
		row := r.pool.QueryRow(ctx, `
			UPDATE incidents
			SET status = $2, team = $3, updated_at = NOW()
			WHERE id = $1
			RETURNING `+incidentColumns,
			id, string(status), team)
		inc, err = scanIncident(row)
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return incident.Incident{}, incident.ErrNotFound
		}
		return incident.Incident{}, err
	}

	return inc, nil
}

// GroupCount is one bucket of an aggregation.
type GroupCount struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

func (r *IncidentsRepo) CountByCategory(ctx context.Context) ([]GroupCount, error) {
	return r.groupCount(ctx, "incidents.count_by_category", "category")
}

func (r *IncidentsRepo) CountByStatus(ctx context.Context) ([]GroupCount, error) {
	return r.groupCount(ctx, "incidents.count_by_status", "status")
}

func (r *IncidentsRepo) groupCount(ctx context.Context, op, column string) ([]GroupCount, error) {
	out := []GroupCount{}

	// column is one of two compile-time constants, never user input.
	query := `SELECT ` + column + `, COUNT(*) FROM incidents GROUP BY ` + column + ` ORDER BY ` + column

	err := r.observe(op, func() error {
		rows, err := r.pool.Query(ctx, query)

		if err != nil {
			return err
		}

		defer rows.Close()

		for rows.Next() {
			var g GroupCount

			if err := rows.Scan(&g.Key, &g.Count); err != nil {
				return err
			}

			out = append(out, g)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return out, nil
}

func (r *IncidentsRepo) CountWithStatus(ctx context.Context, status incident.Status) (int, error) {
	var n int

	err := r.observe("incidents.count_with_status", func() error {
		return r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM incidents WHERE status = $1`, string(status)).Scan(&n)
	})

	if err != nil {
		return 0, err
	}

	return n, nil
}

func scanIncident(row pgx.Row) (incident.Incident, error) {
	var inc incident.Incident
	var category, status string

	err := row.Scan(
		&inc.ID, &inc.ShortID, &inc.Title, &inc.Description, &category, &status, &inc.Team,
		&inc.ReporterName, &inc.ReporterEmail, &inc.ContactNumber, &inc.Address,
		&inc.OccurredAt, &inc.CreatedAt, &inc.UpdatedAt,
	)

	if err != nil {
		return incident.Incident{}, err
	}

	inc.Category = incident.Category(category)
	inc.Status = incident.Status(status)

	return inc, nil
}

func scanIncidentWithTotal(rows pgx.Rows) (incident.Incident, int, error) {
	var inc incident.Incident
	var category, status string
	var total int

	err := rows.Scan(
		&inc.ID, &inc.ShortID, &inc.Title, &inc.Description, &category, &status, &inc.Team,
		&inc.ReporterName, &inc.ReporterEmail, &inc.ContactNumber, &inc.Address,
		&inc.OccurredAt, &inc.CreatedAt, &inc.UpdatedAt,
		&total,
	)

	if err != nil {
		return incident.Incident{}, 0, err
	}

	inc.Category = incident.Category(category)
	inc.Status = incident.Status(status)

	return inc, total, nil
}
