package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/citytransit/transit-service/internal/domain"
)

// ErrDuplicatePass signals that the user already holds a valid unlimited
// pass and a second one may not be purchased.
var ErrDuplicatePass = errors.New("user already holds a valid pass")

// TicketFilter narrows admin ticket listings. Zero-valued fields are
// ignored.
type TicketFilter struct {
	UserID        string
	Status        domain.TicketStatus
	TicketType    domain.TicketType
	PurchasedFrom *time.Time
	PurchasedTo   *time.Time
	Limit         int
	Offset        int
}

// TypeSales is a per-type sales aggregate.
type TypeSales struct {
	TicketType domain.TicketType
	Count      int64
	Revenue    decimal.Decimal
}

// TopPurchaser pairs a user with their ticket count in a period.
type TopPurchaser struct {
	UserID   string
	Email    string
	FullName string
	Count    int64
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	PurchaseUnlimited(ctx context.Context, ticket *domain.Ticket, now time.Time) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	GetByNumber(ctx context.Context, number string) (*domain.Ticket, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.Ticket, int64, error)
	ListUserValid(ctx context.Context, userID string, now time.Time) ([]domain.Ticket, error)
	ListUserValidRides(ctx context.Context, userID string, now time.Time) ([]domain.Ticket, error)
	ListUserValidPasses(ctx context.Context, userID string, now time.Time) ([]domain.Ticket, error)
	UserHasValidPass(ctx context.Context, userID string, now time.Time) (bool, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, int64, error)
	MarkExpired(ctx context.Context, now time.Time) (int64, error)
	CountByStatus(ctx context.Context) (map[domain.TicketStatus]int64, error)
	Count(ctx context.Context) (int64, error)
	CountPurchasedBetween(ctx context.Context, start, end time.Time) (int64, error)
	RevenueBetween(ctx context.Context, start, end time.Time) (decimal.Decimal, error)
	SalesByType(ctx context.Context, start, end time.Time) ([]TypeSales, error)
	TopPurchasers(ctx context.Context, start, end time.Time, limit int) ([]TopPurchaser, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = "id, user_id, ticket_number, ticket_type, price, status, purchase_date, valid_from, valid_until, used_date, created_at, updated_at"

// Candidate windows in SQL use valid_from <= now so that rows at the exact
// lower bound still surface; the entity predicate stays authoritative for
// any use decision.
const validWindow = "status='ACTIVE' AND valid_from <= $2 AND valid_until > $2"

// IsUniqueViolation reports whether err is a unique-constraint violation,
// optionally on a specific constraint.
func IsUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

const insertTicketQuery = `
    INSERT INTO tickets (user_id, ticket_number, ticket_type, price, status, purchase_date, valid_from, valid_until, used_date)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
    RETURNING id, created_at, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	return r.pool.QueryRow(ctx, insertTicketQuery,
		ticket.UserID,
		ticket.TicketNumber,
		ticket.TicketType,
		ticket.Price,
		ticket.Status,
		ticket.PurchaseDate,
		ticket.ValidFrom,
		ticket.ValidUntil,
		ticket.UsedDate,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

// PurchaseUnlimited inserts an unlimited pass after re-checking, inside a
// transaction holding a per-user advisory lock, that the user does not
// already hold a valid one. Two concurrent purchases by the same user
// serialize on the lock, so the second one sees the first and fails with
// ErrDuplicatePass.
func (r *ticketRepository) PurchaseUnlimited(ctx context.Context, ticket *domain.Ticket, now time.Time) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1::text))`, ticket.UserID); err != nil {
			return err
		}
		var exists bool
		query := fmt.Sprintf(`
            SELECT EXISTS (
                SELECT 1 FROM tickets
                WHERE user_id=$1 AND ticket_type IN ('MONTHLY','YEARLY') AND %s
            )`, validWindow)
		if err := tx.QueryRow(ctx, query, ticket.UserID, now).Scan(&exists); err != nil {
			return err
		}
		if exists {
			return ErrDuplicatePass
		}
		return tx.QueryRow(ctx, insertTicketQuery,
			ticket.UserID,
			ticket.TicketNumber,
			ticket.TicketType,
			ticket.Price,
			ticket.Status,
			ticket.PurchaseDate,
			ticket.ValidFrom,
			ticket.ValidUntil,
			ticket.UsedDate,
		).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
	})
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET status=$1, used_date=$2, updated_at=NOW()
        WHERE id=$3`
	cmd, err := r.pool.Exec(ctx, query, ticket.Status, ticket.UsedDate, ticket.ID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE id=$1`, ticketColumns)
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) GetByNumber(ctx context.Context, number string) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE ticket_number=$1`, ticketColumns)
	return r.fetchSingle(ctx, query, number)
}

func (r *ticketRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.Ticket, int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tickets WHERE user_id=$1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := fmt.Sprintf(`
        SELECT %s FROM tickets WHERE user_id=$1
        ORDER BY purchase_date DESC
        LIMIT $2 OFFSET $3`, ticketColumns)
	tickets, err := r.list(ctx, query, userID, clampLimit(limit), clampOffset(offset))
	if err != nil {
		return nil, 0, err
	}
	return tickets, total, nil
}

func (r *ticketRepository) ListUserValid(ctx context.Context, userID string, now time.Time) ([]domain.Ticket, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM tickets
        WHERE user_id=$1 AND %s
        ORDER BY purchase_date DESC`, ticketColumns, validWindow)
	return r.list(ctx, query, userID, now)
}

func (r *ticketRepository) ListUserValidRides(ctx context.Context, userID string, now time.Time) ([]domain.Ticket, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM tickets
        WHERE user_id=$1 AND %s AND ticket_type='RIDE' AND used_date IS NULL
        ORDER BY purchase_date DESC`, ticketColumns, validWindow)
	return r.list(ctx, query, userID, now)
}

func (r *ticketRepository) ListUserValidPasses(ctx context.Context, userID string, now time.Time) ([]domain.Ticket, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM tickets
        WHERE user_id=$1 AND %s AND ticket_type IN ('MONTHLY','YEARLY')
        ORDER BY purchase_date DESC`, ticketColumns, validWindow)
	return r.list(ctx, query, userID, now)
}

func (r *ticketRepository) UserHasValidPass(ctx context.Context, userID string, now time.Time) (bool, error) {
	var exists bool
	query := fmt.Sprintf(`
        SELECT EXISTS (
            SELECT 1 FROM tickets
            WHERE user_id=$1 AND ticket_type IN ('MONTHLY','YEARLY') AND %s
        )`, validWindow)
	err := r.pool.QueryRow(ctx, query, userID, now).Scan(&exists)
	return exists, err
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, int64, error) {
	builder := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

	conds := sq.And{}
	if filter.UserID != "" {
		conds = append(conds, sq.Eq{"user_id": filter.UserID})
	}
	if filter.Status != "" {
		conds = append(conds, sq.Eq{"status": filter.Status})
	}
	if filter.TicketType != "" {
		conds = append(conds, sq.Eq{"ticket_type": filter.TicketType})
	}
	if filter.PurchasedFrom != nil {
		conds = append(conds, sq.GtOrEq{"purchase_date": *filter.PurchasedFrom})
	}
	if filter.PurchasedTo != nil {
		conds = append(conds, sq.Lt{"purchase_date": *filter.PurchasedTo})
	}

	countQuery := builder.Select("COUNT(*)").From("tickets")
	if len(conds) > 0 {
		countQuery = countQuery.Where(conds)
	}
	countSQL, countArgs, err := countQuery.ToSql()
	if err != nil {
		return nil, 0, err
	}
	var total int64
	if err := r.pool.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	listQuery := builder.Select(ticketColumns).From("tickets")
	if len(conds) > 0 {
		listQuery = listQuery.Where(conds)
	}
	listSQL, listArgs, err := listQuery.
		OrderBy("purchase_date DESC").
		Limit(uint64(clampLimit(filter.Limit))).
		Offset(uint64(clampOffset(filter.Offset))).
		ToSql()
	if err != nil {
		return nil, 0, err
	}
	tickets, err := r.list(ctx, listSQL, listArgs...)
	if err != nil {
		return nil, 0, err
	}
	return tickets, total, nil
}

// MarkExpired flips every ACTIVE ticket whose window has elapsed to
// EXPIRED and returns how many rows changed.
func (r *ticketRepository) MarkExpired(ctx context.Context, now time.Time) (int64, error) {
	const query = `
        UPDATE tickets SET status='EXPIRED', updated_at=NOW()
        WHERE status='ACTIVE' AND valid_until <= $1`
	cmd, err := r.pool.Exec(ctx, query, now)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *ticketRepository) CountByStatus(ctx context.Context) (map[domain.TicketStatus]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM tickets GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.TicketStatus]int64)
	for rows.Next() {
		var status domain.TicketStatus
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func (r *ticketRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tickets`).Scan(&count)
	return count, err
}

func (r *ticketRepository) CountPurchasedBetween(ctx context.Context, start, end time.Time) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM tickets WHERE purchase_date >= $1 AND purchase_date < $2`,
		start, end,
	).Scan(&count)
	return count, err
}

func (r *ticketRepository) RevenueBetween(ctx context.Context, start, end time.Time) (decimal.Decimal, error) {
	var revenue decimal.Decimal
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(price), 0) FROM tickets WHERE purchase_date >= $1 AND purchase_date < $2`,
		start, end,
	).Scan(&revenue)
	return revenue, err
}

func (r *ticketRepository) SalesByType(ctx context.Context, start, end time.Time) ([]TypeSales, error) {
	const query = `
        SELECT ticket_type, COUNT(*), COALESCE(SUM(price), 0)
        FROM tickets
        WHERE purchase_date >= $1 AND purchase_date < $2
        GROUP BY ticket_type
        ORDER BY ticket_type ASC`
	rows, err := r.pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sales []TypeSales
	for rows.Next() {
		var s TypeSales
		if err := rows.Scan(&s.TicketType, &s.Count, &s.Revenue); err != nil {
			return nil, err
		}
		sales = append(sales, s)
	}
	return sales, rows.Err()
}

func (r *ticketRepository) TopPurchasers(ctx context.Context, start, end time.Time, limit int) ([]TopPurchaser, error) {
	const query = `
        SELECT u.id, u.email, u.full_name, COUNT(t.id) AS tickets
        FROM tickets t
        JOIN users u ON u.id = t.user_id
        WHERE t.purchase_date >= $1 AND t.purchase_date < $2
        GROUP BY u.id, u.email, u.full_name
        ORDER BY tickets DESC, u.email ASC
        LIMIT $3`
	rows, err := r.pool.Query(ctx, query, start, end, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []TopPurchaser
	for rows.Next() {
		var p TopPurchaser
		if err := rows.Scan(&p.UserID, &p.Email, &p.FullName, &p.Count); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, args ...any) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, query, args...).Scan(
		&ticket.ID,
		&ticket.UserID,
		&ticket.TicketNumber,
		&ticket.TicketType,
		&ticket.Price,
		&ticket.Status,
		&ticket.PurchaseDate,
		&ticket.ValidFrom,
		&ticket.ValidUntil,
		&ticket.UsedDate,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) list(ctx context.Context, query string, args ...any) ([]domain.Ticket, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tickets []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.UserID,
			&ticket.TicketNumber,
			&ticket.TicketType,
			&ticket.Price,
			&ticket.Status,
			&ticket.PurchaseDate,
			&ticket.ValidFrom,
			&ticket.ValidUntil,
			&ticket.UsedDate,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
		); err != nil {
			return nil, err
		}
		tickets = append(tickets, ticket)
	}
	return tickets, rows.Err()
}
