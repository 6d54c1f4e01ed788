package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/citytransit/transit-service/internal/domain"
)

// RouteRepository encapsulates route persistence.
type RouteRepository interface {
	Create(ctx context.Context, route *domain.Route) error
	Update(ctx context.Context, route *domain.Route) error
	GetByID(ctx context.Context, id string) (*domain.Route, error)
	GetActiveByID(ctx context.Context, id string) (*domain.Route, error)
	GetActiveByName(ctx context.Context, name string) (*domain.Route, error)
	ListActive(ctx context.Context) ([]domain.Route, error)
	ListActivePaged(ctx context.Context, limit, offset int) ([]domain.Route, int64, error)
	ListAll(ctx context.Context, limit, offset int) ([]domain.Route, int64, error)
	SearchActive(ctx context.Context, term string) ([]domain.Route, error)
	ListByTransportType(ctx context.Context, transportType domain.TransportType) ([]domain.Route, error)
	ListByStop(ctx context.Context, stop string) ([]domain.Route, error)
	CountByTransportType(ctx context.Context) (map[domain.TransportType]int64, error)
	Count(ctx context.Context) (int64, error)
}

type routeRepository struct {
	pool *pgxpool.Pool
}

// NewRouteRepository instantiates repository.
func NewRouteRepository(pool *pgxpool.Pool) RouteRepository {
	return &routeRepository{pool: pool}
}

const routeColumns = `id, route_name, description, transport_type, stops,
       operating_start_time, operating_end_time, active, created_at, updated_at`

func (r *routeRepository) Create(ctx context.Context, route *domain.Route) error {
	const query = `
        INSERT INTO routes (route_name, description, transport_type, stops, operating_start_time, operating_end_time, active)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		route.RouteName,
		route.Description,
		route.TransportType,
		route.Stops,
		route.OperatingStartTime,
		route.OperatingEndTime,
		route.Active,
	).Scan(&route.ID, &route.CreatedAt, &route.UpdatedAt)
}

func (r *routeRepository) Update(ctx context.Context, route *domain.Route) error {
	const query = `
        UPDATE routes SET route_name=$1, description=$2, transport_type=$3, stops=$4,
            operating_start_time=$5, operating_end_time=$6, active=$7, updated_at=NOW()
        WHERE id=$8`
	cmd, err := r.pool.Exec(ctx, query,
		route.RouteName,
		route.Description,
		route.TransportType,
		route.Stops,
		route.OperatingStartTime,
		route.OperatingEndTime,
		route.Active,
		route.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *routeRepository) GetByID(ctx context.Context, id string) (*domain.Route, error) {
	query := fmt.Sprintf(`SELECT %s FROM routes WHERE id=$1`, routeColumns)
	return r.fetchSingle(ctx, query, id)
}

func (r *routeRepository) GetActiveByID(ctx context.Context, id string) (*domain.Route, error) {
	query := fmt.Sprintf(`SELECT %s FROM routes WHERE id=$1 AND active`, routeColumns)
	return r.fetchSingle(ctx, query, id)
}

func (r *routeRepository) GetActiveByName(ctx context.Context, name string) (*domain.Route, error) {
	query := fmt.Sprintf(`SELECT %s FROM routes WHERE LOWER(route_name)=LOWER($1) AND active`, routeColumns)
	return r.fetchSingle(ctx, query, name)
}

func (r *routeRepository) ListActive(ctx context.Context) ([]domain.Route, error) {
	query := fmt.Sprintf(`SELECT %s FROM routes WHERE active ORDER BY route_name ASC`, routeColumns)
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRoutes(rows)
}

func (r *routeRepository) ListActivePaged(ctx context.Context, limit, offset int) ([]domain.Route, int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM routes WHERE active`).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM routes WHERE active ORDER BY route_name ASC LIMIT $1 OFFSET $2`, routeColumns)
	rows, err := r.pool.Query(ctx, query, clampLimit(limit), clampOffset(offset))
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	routes, err := scanRoutes(rows)
	return routes, total, err
}

func (r *routeRepository) ListAll(ctx context.Context, limit, offset int) ([]domain.Route, int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM routes`).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM routes ORDER BY route_name ASC LIMIT $1 OFFSET $2`, routeColumns)
	rows, err := r.pool.Query(ctx, query, clampLimit(limit), clampOffset(offset))
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	routes, err := scanRoutes(rows)
	return routes, total, err
}

func (r *routeRepository) SearchActive(ctx context.Context, term string) ([]domain.Route, error) {
	pattern := "%" + strings.ToLower(strings.TrimSpace(term)) + "%"
	query := fmt.Sprintf(`
        SELECT %s FROM routes
        WHERE active AND (LOWER(route_name) LIKE $1 OR LOWER(description) LIKE $1)
        ORDER BY route_name ASC`, routeColumns)
	rows, err := r.pool.Query(ctx, query, pattern)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRoutes(rows)
}

func (r *routeRepository) ListByTransportType(ctx context.Context, transportType domain.TransportType) ([]domain.Route, error) {
	query := fmt.Sprintf(`SELECT %s FROM routes WHERE active AND transport_type=$1 ORDER BY route_name ASC`, routeColumns)
	rows, err := r.pool.Query(ctx, query, transportType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRoutes(rows)
}

func (r *routeRepository) ListByStop(ctx context.Context, stop string) ([]domain.Route, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM routes
        WHERE active AND EXISTS (
            SELECT 1 FROM unnest(stops) AS s WHERE LOWER(TRIM(s)) = LOWER(TRIM($1))
        )
        ORDER BY route_name ASC`, routeColumns)
	rows, err := r.pool.Query(ctx, query, stop)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRoutes(rows)
}

func (r *routeRepository) CountByTransportType(ctx context.Context) (map[domain.TransportType]int64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT transport_type, COUNT(*) FROM routes WHERE active GROUP BY transport_type`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.TransportType]int64)
	for rows.Next() {
		var transportType domain.TransportType
		var count int64
		if err := rows.Scan(&transportType, &count); err != nil {
			return nil, err
		}
		counts[transportType] = count
	}
	return counts, rows.Err()
}

func (r *routeRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM routes`).Scan(&count)
	return count, err
}

func (r *routeRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Route, error) {
	var route domain.Route
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&route.ID,
		&route.RouteName,
		&route.Description,
		&route.TransportType,
		&route.Stops,
		&route.OperatingStartTime,
		&route.OperatingEndTime,
		&route.Active,
		&route.CreatedAt,
		&route.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &route, nil
}

func scanRoutes(rows pgx.Rows) ([]domain.Route, error) {
	var result []domain.Route
	for rows.Next() {
		var route domain.Route
		if err := rows.Scan(
			&route.ID,
			&route.RouteName,
			&route.Description,
			&route.TransportType,
			&route.Stops,
			&route.OperatingStartTime,
			&route.OperatingEndTime,
			&route.Active,
			&route.CreatedAt,
			&route.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, route)
	}
	return result, rows.Err()
}
