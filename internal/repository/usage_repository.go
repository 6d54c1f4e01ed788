package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/citytransit/transit-service/internal/domain"
)

// DailyUsage is a per-day use count.
type DailyUsage struct {
	Day   time.Time
	Count int64
}

// RouteUsage pairs a route with its use count in a period.
type RouteUsage struct {
	RouteID       string
	RouteName     string
	TransportType domain.TransportType
	Count         int64
}

// UsageRepository persists the append-only transit usage log.
type UsageRepository interface {
	Create(ctx context.Context, usage *domain.TicketUsage) error
	Delete(ctx context.Context, id string) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketUsage, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.TicketUsage, int64, error)
	CountBetween(ctx context.Context, start, end time.Time) (int64, error)
	DailyCounts(ctx context.Context, start, end time.Time) ([]DailyUsage, error)
	PopularRoutes(ctx context.Context, start, end time.Time, limit int) ([]RouteUsage, error)
	CountByTransportType(ctx context.Context, start, end time.Time) (map[domain.TransportType]int64, error)
}

type usageRepository struct {
	pool *pgxpool.Pool
}

// NewUsageRepository instantiates repository.
func NewUsageRepository(pool *pgxpool.Pool) UsageRepository {
	return &usageRepository{pool: pool}
}

const usageColumns = "id, ticket_id, route_id, transport_type, boarding_stop, destination_stop, used_at"

func (r *usageRepository) Create(ctx context.Context, usage *domain.TicketUsage) error {
	const query = `
        INSERT INTO ticket_usages (ticket_id, route_id, transport_type, boarding_stop, destination_stop, used_at)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id`
	return r.pool.QueryRow(ctx, query,
		usage.TicketID,
		usage.RouteID,
		usage.TransportType,
		usage.BoardingStop,
		usage.DestinationStop,
		usage.UsedAt,
	).Scan(&usage.ID)
}

func (r *usageRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM ticket_usages WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *usageRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketUsage, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM ticket_usages WHERE ticket_id=$1
        ORDER BY used_at DESC`, usageColumns)
	return r.list(ctx, query, ticketID)
}

func (r *usageRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.TicketUsage, int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx, `
        SELECT COUNT(*)
        FROM ticket_usages u
        JOIN tickets t ON t.id = u.ticket_id
        WHERE t.user_id=$1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}
	const query = `
        SELECT u.id, u.ticket_id, u.route_id, u.transport_type, u.boarding_stop, u.destination_stop, u.used_at
        FROM ticket_usages u
        JOIN tickets t ON t.id = u.ticket_id
        WHERE t.user_id=$1
        ORDER BY u.used_at DESC
        LIMIT $2 OFFSET $3`
	usages, err := r.list(ctx, query, userID, clampLimit(limit), clampOffset(offset))
	if err != nil {
		return nil, 0, err
	}
	return usages, total, nil
}

func (r *usageRepository) CountBetween(ctx context.Context, start, end time.Time) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM ticket_usages WHERE used_at >= $1 AND used_at < $2`,
		start, end,
	).Scan(&count)
	return count, err
}

func (r *usageRepository) DailyCounts(ctx context.Context, start, end time.Time) ([]DailyUsage, error) {
	const query = `
        SELECT date_trunc('day', used_at) AS day, COUNT(*)
        FROM ticket_usages
        WHERE used_at >= $1 AND used_at < $2
        GROUP BY day
        ORDER BY day ASC`
	rows, err := r.pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []DailyUsage
	for rows.Next() {
		var d DailyUsage
		if err := rows.Scan(&d.Day, &d.Count); err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	return result, rows.Err()
}

func (r *usageRepository) PopularRoutes(ctx context.Context, start, end time.Time, limit int) ([]RouteUsage, error) {
	const query = `
        SELECT rt.id, rt.route_name, rt.transport_type, COUNT(u.id) AS uses
        FROM ticket_usages u
        JOIN routes rt ON rt.id = u.route_id
        WHERE u.used_at >= $1 AND u.used_at < $2
        GROUP BY rt.id, rt.route_name, rt.transport_type
        ORDER BY uses DESC, rt.route_name ASC
        LIMIT $3`
	rows, err := r.pool.Query(ctx, query, start, end, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []RouteUsage
	for rows.Next() {
		var u RouteUsage
		if err := rows.Scan(&u.RouteID, &u.RouteName, &u.TransportType, &u.Count); err != nil {
			return nil, err
		}
		result = append(result, u)
	}
	return result, rows.Err()
}

func (r *usageRepository) CountByTransportType(ctx context.Context, start, end time.Time) (map[domain.TransportType]int64, error) {
	const query = `
        SELECT transport_type, COUNT(*)
        FROM ticket_usages
        WHERE used_at >= $1 AND used_at < $2
        GROUP BY transport_type`
	rows, err := r.pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.TransportType]int64)
	for rows.Next() {
		var tt domain.TransportType
		var count int64
		if err := rows.Scan(&tt, &count); err != nil {
			return nil, err
		}
		counts[tt] = count
	}
	return counts, rows.Err()
}

func (r *usageRepository) list(ctx context.Context, query string, args ...any) ([]domain.TicketUsage, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var usages []domain.TicketUsage
	for rows.Next() {
		var usage domain.TicketUsage
		if err := rows.Scan(
			&usage.ID,
			&usage.TicketID,
			&usage.RouteID,
			&usage.TransportType,
			&usage.BoardingStop,
			&usage.DestinationStop,
			&usage.UsedAt,
		); err != nil {
			return nil, err
		}
		usages = append(usages, usage)
	}
	return usages, rows.Err()
}
