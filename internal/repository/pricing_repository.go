package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/citytransit/transit-service/internal/domain"
)

// PricingRepository encapsulates ticket pricing persistence. At most one
// row per ticket type is active; replaced rows stay as history.
type PricingRepository interface {
	Create(ctx context.Context, pricing *domain.TicketPricing) error
	Update(ctx context.Context, pricing *domain.TicketPricing) error
	GetActiveByType(ctx context.Context, ticketType domain.TicketType) (*domain.TicketPricing, error)
	ListActive(ctx context.Context) ([]domain.TicketPricing, error)
	ListAll(ctx context.Context) ([]domain.TicketPricing, error)
	HistoryByType(ctx context.Context, ticketType domain.TicketType) ([]domain.TicketPricing, error)
}

type pricingRepository struct {
	pool *pgxpool.Pool
}

// NewPricingRepository instantiates repository.
func NewPricingRepository(pool *pgxpool.Pool) PricingRepository {
	return &pricingRepository{pool: pool}
}

const pricingColumns = "id, ticket_type, price, description, active, created_at, updated_at"

func (r *pricingRepository) Create(ctx context.Context, pricing *domain.TicketPricing) error {
	const query = `
        INSERT INTO ticket_pricing (ticket_type, price, description, active)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		pricing.TicketType,
		pricing.Price,
		pricing.Description,
		pricing.Active,
	).Scan(&pricing.ID, &pricing.CreatedAt, &pricing.UpdatedAt)
}

func (r *pricingRepository) Update(ctx context.Context, pricing *domain.TicketPricing) error {
	const query = `
        UPDATE ticket_pricing SET price=$1, description=$2, active=$3, updated_at=NOW()
        WHERE id=$4`
	cmd, err := r.pool.Exec(ctx, query,
		pricing.Price,
		pricing.Description,
		pricing.Active,
		pricing.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *pricingRepository) GetActiveByType(ctx context.Context, ticketType domain.TicketType) (*domain.TicketPricing, error) {
	query := fmt.Sprintf(`SELECT %s FROM ticket_pricing WHERE ticket_type=$1 AND active`, pricingColumns)
	return r.fetchSingle(ctx, query, ticketType)
}

func (r *pricingRepository) ListActive(ctx context.Context) ([]domain.TicketPricing, error) {
	query := fmt.Sprintf(`SELECT %s FROM ticket_pricing WHERE active ORDER BY ticket_type ASC`, pricingColumns)
	return r.list(ctx, query)
}

func (r *pricingRepository) ListAll(ctx context.Context) ([]domain.TicketPricing, error) {
	query := fmt.Sprintf(`SELECT %s FROM ticket_pricing ORDER BY ticket_type ASC, created_at DESC`, pricingColumns)
	return r.list(ctx, query)
}

func (r *pricingRepository) HistoryByType(ctx context.Context, ticketType domain.TicketType) ([]domain.TicketPricing, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM ticket_pricing WHERE ticket_type=$1
        ORDER BY created_at DESC`, pricingColumns)
	return r.list(ctx, query, ticketType)
}

func (r *pricingRepository) fetchSingle(ctx context.Context, query string, args ...any) (*domain.TicketPricing, error) {
	var pricing domain.TicketPricing
	if err := r.pool.QueryRow(ctx, query, args...).Scan(
		&pricing.ID,
		&pricing.TicketType,
		&pricing.Price,
		&pricing.Description,
		&pricing.Active,
		&pricing.CreatedAt,
		&pricing.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &pricing, nil
}

func (r *pricingRepository) list(ctx context.Context, query string, args ...any) ([]domain.TicketPricing, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketPricing
	for rows.Next() {
		var pricing domain.TicketPricing
		if err := rows.Scan(
			&pricing.ID,
			&pricing.TicketType,
			&pricing.Price,
			&pricing.Description,
			&pricing.Active,
			&pricing.CreatedAt,
			&pricing.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, pricing)
	}
	return result, rows.Err()
}
