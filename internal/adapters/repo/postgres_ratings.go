package repo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"bmdb-api/internal/domain"
	"bmdb-api/internal/infra/metrics"
)

// SetProjectRating реализует domain.RatingRepo.
func (p *Postgres) SetProjectRating(ctx context.Context, user domain.User, projectID string, rating int) (string, error) {
	var id string
	err := p.withUserTx(ctx, user, "set_project_rating", func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, `SELECT set_project_rating($1::uuid, $2)::text`, projectID, rating).Scan(&id)
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// RatingAggregate реализует domain.RatingRepo.
func (p *Postgres) RatingAggregate(ctx context.Context, projectID string) (domain.RatingAggregate, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	row := p.pool.QueryRow(ctx, `
SELECT project_id::text, avg_rating::float8, rating_count
FROM project_rating_aggregates
WHERE project_id = $1::uuid
`, projectID)
	aggregate, err := scanAggregate(row)
	if errors.Is(err, pgx.ErrNoRows) {
		metrics.ObserveNetworkRequest("postgres", "rating_aggregate_get", "project_rating_aggregates", start, nil)
		return domain.RatingAggregate{}, domain.ErrNotFound
	}
	metrics.ObserveNetworkRequest("postgres", "rating_aggregate_get", "project_rating_aggregates", start, err)
	if err != nil {
		return domain.RatingAggregate{}, err
	}
	return aggregate, nil
}

// UserRating реализует domain.RatingRepo.
func (p *Postgres) UserRating(ctx context.Context, projectID, userID string) (int, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	var rating int
	err := p.pool.QueryRow(ctx, `
SELECT rating FROM project_ratings
WHERE project_id = $1::uuid AND user_id = $2::uuid
`, projectID, userID).Scan(&rating)
	if errors.Is(err, pgx.ErrNoRows) {
		metrics.ObserveNetworkRequest("postgres", "user_rating_get", "project_ratings", start, nil)
		return 0, domain.ErrNotFound
	}
	metrics.ObserveNetworkRequest("postgres", "user_rating_get", "project_ratings", start, err)
	if err != nil {
		return 0, err
	}
	return rating, nil
}

// RatingDistribution реализует domain.RatingRepo.
func (p *Postgres) RatingDistribution(ctx context.Context, projectID string) (map[int]int, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT rating, count(*)
FROM project_ratings
WHERE project_id = $1::uuid
GROUP BY rating
`, projectID)
	metrics.ObserveNetworkRequest("postgres", "rating_distribution", "project_ratings", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int]int)
	for rows.Next() {
		var rating, count int
		if err := rows.Scan(&rating, &count); err != nil {
			return nil, err
		}
		out[rating] = count
	}
	return out, rows.Err()
}
