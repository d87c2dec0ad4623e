package customer

import (
	"context"

	"github.com/google/uuid"
)

// Repository provides read access to customer profiles and their purchase history
type Repository interface {
	List(ctx context.Context) ([]*Customer, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Customer, error)

	// GetPurchases returns the customer's purchases ordered by date ascending
	GetPurchases(ctx context.Context, customerID uuid.UUID) ([]*Purchase, error)
}

// ErrCustomerNotFound indicates missing customer
type ErrCustomerNotFound struct {
	CustomerID uuid.UUID
}

func (e ErrCustomerNotFound) Error() string {
	return "customer not found: " + e.CustomerID.String()
}

// Is matches any ErrCustomerNotFound when the target carries no customer ID
func (e ErrCustomerNotFound) Is(target error) bool {
	t, ok := target.(ErrCustomerNotFound)
	if !ok {
		return false
	}
	if t.CustomerID == uuid.Nil {
		return true
	}
	return e.CustomerID == t.CustomerID
}
