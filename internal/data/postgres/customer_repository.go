// Package postgres provides PostgreSQL implementations of the domain repositories.
// The customer store is read-only from the ledger's point of view.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/petropulse-loyalty-ledger/internal/domain/customer"
	"github.com/petropulse-loyalty-ledger/internal/platform/persistence"
	"github.com/shopspring/decimal"
)

const customerColumns = `id, name, COALESCE(email, ''), COALESCE(phone, ''), status, loyalty_points, created_at`

// CustomerRepository implements the customer.Repository interface for PostgreSQL
type CustomerRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewCustomerRepository creates a new PostgreSQL customer repository
func NewCustomerRepository(logger *slog.Logger, db *persistence.PostgresDB) customer.Repository {
	return &CustomerRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// List returns every customer ordered by creation time
func (r *CustomerRepository) List(ctx context.Context) ([]*customer.Customer, error) {
	query := `
		SELECT ` + customerColumns + `
		FROM customers
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.querier.Query(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list customers", "error", err)
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	defer rows.Close()

	var customers []*customer.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			r.logger.Error("Failed to scan customer", "error", err)
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		customers = append(customers, c)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over customers", "error", err)
		return nil, fmt.Errorf("error iterating over customers: %w", err)
	}

	return customers, nil
}

// GetByID retrieves a customer by its ID
func (r *CustomerRepository) GetByID(ctx context.Context, id uuid.UUID) (*customer.Customer, error) {
	query := `
		SELECT ` + customerColumns + `
		FROM customers
		WHERE id = $1
	`

	c, err := scanCustomer(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, customer.ErrCustomerNotFound{CustomerID: id}
		}
		r.logger.Error("Failed to get customer", "customer_id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}

	return c, nil
}

// GetPurchases returns the customer's fuel purchases ordered by purchase time.
// Purchases without precomputed points earn one point per currency unit.
func (r *CustomerRepository) GetPurchases(ctx context.Context, customerID uuid.UUID) ([]*customer.Purchase, error) {
	query := `
		SELECT id, customer_id, fuel_type, liters::text, amount::text, points_earned, purchased_at
		FROM fuel_purchases
		WHERE customer_id = $1
		ORDER BY purchased_at ASC, id ASC
	`

	rows, err := r.querier.Query(ctx, query, customerID)
	if err != nil {
		r.logger.Error("Failed to get purchases", "customer_id", customerID.String(), "error", err)
		return nil, fmt.Errorf("failed to get purchases: %w", err)
	}
	defer rows.Close()

	var purchases []*customer.Purchase
	for rows.Next() {
		var (
			p            customer.Purchase
			liters       string
			amount       string
			pointsEarned *int64
		)
		if err := rows.Scan(&p.ID, &p.CustomerID, &p.FuelType, &liters, &amount, &pointsEarned, &p.Date); err != nil {
			r.logger.Error("Failed to scan purchase", "customer_id", customerID.String(), "error", err)
			return nil, fmt.Errorf("failed to scan purchase: %w", err)
		}

		if p.Liters, err = decimal.NewFromString(liters); err != nil {
			return nil, fmt.Errorf("invalid liters %q on purchase %s: %w", liters, p.ID, err)
		}
		if p.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("invalid amount %q on purchase %s: %w", amount, p.ID, err)
		}
		if pointsEarned != nil {
			p.PointsEarned = *pointsEarned
		} else {
			p.PointsEarned = customer.PointsForAmount(p.Amount)
		}

		purchases = append(purchases, &p)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over purchases", "customer_id", customerID.String(), "error", err)
		return nil, fmt.Errorf("error iterating over purchases: %w", err)
	}

	return purchases, nil
}

func scanCustomer(row pgx.Row) (*customer.Customer, error) {
	var (
		c      customer.Customer
		status string
	)
	if err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &status, &c.LoyaltyPoints, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.Status = customer.ParseStatus(status)
	return &c, nil
}
