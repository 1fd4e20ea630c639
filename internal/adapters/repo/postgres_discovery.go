package repo

import (
	"context"
	"time"

	"bmdb-api/internal/domain"
	"bmdb-api/internal/infra/metrics"
)

// ListDiscoverableProjects реализует domain.DiscoveryFetcher.
func (p *Postgres) ListDiscoverableProjects(ctx context.Context) ([]domain.Project, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT id::text, title, slug, description, poster_url, project_type, published_at
FROM projects
WHERE status = 'PUBLISHED' AND is_removed = false AND published_at IS NOT NULL
ORDER BY published_at DESC, id
`)
	metrics.ObserveNetworkRequest("postgres", "projects_list_discoverable", "projects", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []domain.Project
	for rows.Next() {
		var (
			project     domain.Project
			projectType string
		)
		if err := rows.Scan(&project.ID, &project.Title, &project.Slug, &project.Description, &project.PosterURL, &projectType, &project.PublishedAt); err != nil {
			return nil, err
		}
		project.ProjectType = domain.ProjectType(projectType)
		projects = append(projects, project)
	}
	return projects, rows.Err()
}

// RatingAggregates реализует domain.DiscoveryFetcher.
func (p *Postgres) RatingAggregates(ctx context.Context, projectIDs []string) (map[string]domain.RatingAggregate, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT project_id::text, avg_rating::float8, rating_count
FROM project_rating_aggregates
WHERE project_id = ANY($1::uuid[])
`, projectIDs)
	metrics.ObserveNetworkRequest("postgres", "rating_aggregates_list", "project_rating_aggregates", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]domain.RatingAggregate, len(projectIDs))
	for rows.Next() {
		aggregate, err := scanAggregate(rows)
		if err != nil {
			return nil, err
		}
		out[aggregate.ProjectID] = aggregate
	}
	return out, rows.Err()
}

// VisibleCommentCounts реализует domain.DiscoveryFetcher.
func (p *Postgres) VisibleCommentCounts(ctx context.Context, projectIDs []string) (map[string]int, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT project_id::text, count(*)
FROM project_comments
WHERE status = 'VISIBLE' AND project_id = ANY($1::uuid[])
GROUP BY project_id
`, projectIDs)
	metrics.ObserveNetworkRequest("postgres", "comment_counts", "project_comments", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCounts(rows, len(projectIDs))
}

// RecentActivity реализует domain.DiscoveryFetcher.
func (p *Postgres) RecentActivity(ctx context.Context, projectIDs []string, since time.Time) (domain.ActivityScores, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT project_id::text, count(*)
FROM (
    SELECT project_id FROM project_ratings
    WHERE project_id = ANY($1::uuid[]) AND created_at >= $2
    UNION ALL
    SELECT project_id FROM project_comments
    WHERE project_id = ANY($1::uuid[]) AND status = 'VISIBLE' AND created_at >= $2
) AS activity
GROUP BY project_id
`, projectIDs, since)
	metrics.ObserveNetworkRequest("postgres", "recent_activity", "project_ratings,project_comments", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts, err := scanCounts(rows, len(projectIDs))
	if err != nil {
		return nil, err
	}
	return domain.ActivityScores(counts), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

type rowsScanner interface {
	rowScanner
	Next() bool
	Err() error
}

func scanAggregate(row rowScanner) (domain.RatingAggregate, error) {
	var (
		aggregate domain.RatingAggregate
		avg       *float64
		count     *int
	)
	if err := row.Scan(&aggregate.ProjectID, &avg, &count); err != nil {
		return domain.RatingAggregate{}, err
	}
	if avg != nil {
		aggregate.AvgRating = *avg
	}
	if count != nil {
		aggregate.RatingCount = *count
	}
	return aggregate, nil
}

func scanCounts(rows rowsScanner, capacity int) (map[string]int, error) {
	out := make(map[string]int, capacity)
	for rows.Next() {
		var (
			id    string
			count int
		)
		if err := rows.Scan(&id, &count); err != nil {
			return nil, err
		}
		out[id] = count
	}
	return out, rows.Err()
}
