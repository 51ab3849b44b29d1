package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core/payment"
)

type paymentRepository struct {
	db *sqlx.DB
}

var _ payment.Repository = (*paymentRepository)(nil) // interface compliance check

func NewPaymentRepository(db *sqlx.DB) *paymentRepository {
	return &paymentRepository{db: db}
}

func (repo *paymentRepository) CreatePayment(ctx context.Context, p payment.Payment) (payment.Payment, error) {
	id, err := insert(ctx, repo.db, `INSERT INTO student_payments (student_id, contract_amount, paid_amount,
		payment_date, academic_year, note, created_at) VALUES (:student_id, :contract_amount, :paid_amount,
		:payment_date, :academic_year, :note, :created_at) RETURNING id`, p)
	if err != nil {
		return payment.Payment{}, errors.Wrap(err, "inserting payment")
	}
	p.ID = id
	return p, nil
}

func (repo *paymentRepository) QueryPayments(ctx context.Context, filter payment.QueryFilter) ([]payment.Payment, error) {
	var w where
	if filter.StudentIDs != nil {
		w.add("student_id = ANY(?)", pq.Array(filter.StudentIDs))
	}
	payments := []payment.Payment{}
	q := repo.db.Rebind(`SELECT id, student_id, contract_amount, paid_amount, payment_date, academic_year, note,
		created_at FROM student_payments` + w.String() + ` ORDER BY created_at DESC, id DESC`)
	err := repo.db.SelectContext(ctx, &payments, q, w.args...)
	return payments, errors.Wrap(err, "selecting payments")
}
