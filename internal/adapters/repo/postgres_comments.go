package repo

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"bmdb-api/internal/domain"
	"bmdb-api/internal/infra/metrics"
)

// CreateProjectComment реализует domain.CommentRepo.
func (p *Postgres) CreateProjectComment(ctx context.Context, user domain.User, projectID, body string) (string, error) {
	var id string
	err := p.withUserTx(ctx, user, "create_project_comment", func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, `SELECT create_project_comment($1::uuid, $2)::text`, projectID, body).Scan(&id)
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// EditProjectComment реализует domain.CommentRepo.
func (p *Postgres) EditProjectComment(ctx context.Context, user domain.User, commentID, body string) error {
	return p.withUserTx(ctx, user, "edit_project_comment", func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `SELECT edit_project_comment($1::uuid, $2)`, commentID, body)
		return err
	})
}

// RemoveProjectComment реализует domain.CommentRepo. Пустая причина передаётся как NULL.
func (p *Postgres) RemoveProjectComment(ctx context.Context, user domain.User, commentID string, reason *string) error {
	if reason != nil && *reason == "" {
		reason = nil
	}
	return p.withUserTx(ctx, user, "remove_project_comment", func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `SELECT remove_project_comment($1::uuid, $2)`, commentID, reason)
		return err
	})
}

// ListVisibleComments реализует domain.CommentRepo.
func (p *Postgres) ListVisibleComments(ctx context.Context, projectID string, before *time.Time, limit int) ([]domain.Comment, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT c.id::text, c.body, c.status, c.created_at, c.updated_at, c.user_id::text,
       pr.username, pr.display_name, pr.avatar_url
FROM project_comments c
LEFT JOIN profiles pr ON pr.id = c.user_id
WHERE c.project_id = $1::uuid
  AND c.status = 'VISIBLE'
  AND ($2::timestamptz IS NULL OR c.created_at < $2)
ORDER BY c.created_at DESC
LIMIT $3
`, projectID, before, limit)
	metrics.ObserveNetworkRequest("postgres", "comments_list_visible", "project_comments", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comments := make([]domain.Comment, 0, limit)
	for rows.Next() {
		var (
			comment   domain.Comment
			status    string
			updatedAt *time.Time
		)
		if err := rows.Scan(
			&comment.ID, &comment.Body, &status, &comment.CreatedAt, &updatedAt, &comment.UserID,
			&comment.Profile.Username, &comment.Profile.DisplayName, &comment.Profile.AvatarURL,
		); err != nil {
			return nil, err
		}
		comment.Status = domain.CommentStatus(status)
		comment.CreatedAt = comment.CreatedAt.UTC()
		comment.UpdatedAt = comment.CreatedAt
		if updatedAt != nil {
			comment.UpdatedAt = updatedAt.UTC()
		}
		comments = append(comments, comment)
	}
	return comments, rows.Err()
}
