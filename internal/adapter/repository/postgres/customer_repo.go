package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/iho/ledgerbot/internal/domain"
	"github.com/iho/ledgerbot/internal/infrastructure/postgres/generated"
)

// CustomerRepository implements usecase.CustomerRepository.
type CustomerRepository struct {
	queries *generated.Queries
}

// NewCustomerRepository creates a new CustomerRepository.
func NewCustomerRepository(db generated.DBTX) *CustomerRepository {
	return &CustomerRepository{queries: generated.New(db)}
}

// GetByID retrieves a customer by ID.
func (r *CustomerRepository) GetByID(ctx context.Context, id string) (*domain.Customer, error) {
	row, err := r.queries.GetCustomerByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCustomerNotFound
		}
		return nil, err
	}

	return &domain.Customer{
		ID:        row.ID,
		Email:     row.Email,
		FirstName: row.FirstName,
		LastName:  row.LastName,
		CreatedAt: row.CreatedAt.Time,
	}, nil
}
