package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"bmdb-api/internal/domain"
	"bmdb-api/internal/infra/metrics"
)

// Postgres реализует репозитории на основе pgxpool.
type Postgres struct {
	pool *pgxpool.Pool
}

var (
	_ domain.DiscoveryFetcher   = (*Postgres)(nil)
	_ domain.RatingRepo         = (*Postgres)(nil)
	_ domain.CommentRepo        = (*Postgres)(nil)
	_ domain.BusinessMetricRepo = (*Postgres)(nil)
)

// NewPostgres создаёт адаптер БД.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) connCtxWithParent(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		return context.WithTimeout(context.Background(), 5*time.Second)
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, 5*time.Second)
}

// Ping проверяет доступность БД.
func (p *Postgres) Ping(ctx context.Context) error {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	err := p.pool.Ping(ctx)
	metrics.ObserveNetworkRequest("postgres", "ping", "pool", start, err)
	return err
}

// RecordBusinessMetric сохраняет бизнесовую метрику в БД.
func (p *Postgres) RecordBusinessMetric(ctx context.Context, metric domain.BusinessMetric) error {
	if metric.Event == "" {
		return nil
	}
	if metric.OccurredAt.IsZero() {
		metric.OccurredAt = time.Now().UTC()
	}

	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	var payload []byte
	if metric.Metadata != nil {
		if data, err := json.Marshal(metric.Metadata); err == nil {
			payload = data
		}
	}

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
INSERT INTO business_metrics (event, user_id, project_id, metadata, occurred_at)
VALUES ($1, $2::uuid, $3::uuid, $4, $5)
`, metric.Event, metric.UserID, metric.ProjectID, payload, metric.OccurredAt)
	metrics.ObserveNetworkRequest("postgres", "business_metrics_insert", "business_metrics", start, err)
	return err
}

// withUserTx выполняет fn в транзакции, где auth.uid() и роль соответствуют пользователю.
// Так хранимые процедуры и RLS видят вызывающего, как при запросе через PostgREST.
func (p *Postgres) withUserTx(ctx context.Context, user domain.User, op string, fn func(tx pgx.Tx) error) error {
	claims, err := userClaimsJSON(user)
	if err != nil {
		return fmt.Errorf("claims: %w", err)
	}

	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	metrics.ObserveNetworkRequest("postgres", "begin_tx", op, start, err)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	start = time.Now()
	_, err = tx.Exec(ctx, `
SELECT set_config('request.jwt.claims', $1, true),
       set_config('request.jwt.claim.sub', $2, true),
       set_config('role', $3, true)
`, claims, user.ID, user.Role.PostgresRole())
	metrics.ObserveNetworkRequest("postgres", "set_claims", op, start, err)
	if err != nil {
		return err
	}

	start = time.Now()
	err = fn(tx)
	metrics.ObserveNetworkRequest("postgres", "rpc", op, start, err)
	if err != nil {
		return classifyProcedureError(op, err)
	}

	start = time.Now()
	err = tx.Commit(ctx)
	metrics.ObserveNetworkRequest("postgres", "commit", op, start, err)
	if err != nil {
		return classifyProcedureError(op, err)
	}
	return nil
}

func userClaimsJSON(user domain.User) (string, error) {
	claims := make(map[string]any, len(user.Claims)+2)
	for k, v := range user.Claims {
		claims[k] = v
	}
	claims["sub"] = user.ID
	claims["role"] = user.Role.PostgresRole()
	raw, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// Классы SQLSTATE, которые означают проблемы инфраструктуры, а не отказ процедуры.
var infrastructureSQLStateClasses = []string{"08", "53", "57", "58", "XX"}

// classifyProcedureError превращает ошибки процедуры в domain.StoreRejection.
// Сбои соединения и сервера возвращаются как есть.
func classifyProcedureError(op string, err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return fmt.Errorf("%s: %w", op, err)
	}
	for _, class := range infrastructureSQLStateClasses {
		if strings.HasPrefix(pgErr.Code, class) {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	metrics.IncStoreRejection(op)
	return &domain.StoreRejection{Op: op, Message: pgErr.Message, Code: pgErr.Code}
}
