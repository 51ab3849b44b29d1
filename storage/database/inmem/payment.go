package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/campus/core/payment"
)

type paymentRepository struct {
	db *DB
}

var _ payment.Repository = (*paymentRepository)(nil) // interface compliance check

func NewPaymentRepository(db *DB) *paymentRepository {
	return &paymentRepository{db: db}
}

func (repo *paymentRepository) CreatePayment(_ context.Context, p payment.Payment) (payment.Payment, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	p.ID = repo.db.nextID("payments")
	repo.db.payments[p.ID] = p
	return p, nil
}

func (repo *paymentRepository) QueryPayments(_ context.Context, filter payment.QueryFilter) ([]payment.Payment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	payments := make([]payment.Payment, 0)
	for _, p := range values(repo.db.payments) {
		if filter.Match(p) {
			payments = append(payments, p)
		}
	}
	sort.SliceStable(payments, func(i, j int) bool {
		a, b := payments[i], payments[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
	return payments, nil
}
