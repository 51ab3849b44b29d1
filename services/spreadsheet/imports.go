package spreadsheet

import (
	"fmt"
	"io"

	"github.com/trezcool/campus/core/payment"
	"github.com/trezcool/campus/core/user"
)

// Import layouts, by column.
var (
	StudentColumns = []interface{}{"Full name", "Email", "Phone", "Student code", "Group", "Enrollment year", "Password"}
	PaymentColumns = []interface{}{"Student code", "Contract amount", "Paid amount", "Payment date", "Academic year", "Note"}
)

// ReadStudents parses a students import. Rows that cannot be parsed are reported in the returned messages.
func ReadStudents(r io.Reader) ([]user.StudentRow, []string, error) {
	rows, err := readRows(r)
	if err != nil {
		return nil, nil, err
	}
	students := make([]user.StudentRow, 0, len(rows))
	var problems []string
	for _, row := range rows {
		year, err := row.integer(5)
		if err != nil {
			problems = append(problems, fmt.Sprintf("row %d: %v", row.num, err))
			continue
		}
		students = append(students, user.StudentRow{
			Row:            row.num,
			Name:           row.str(0),
			Email:          row.str(1),
			Phone:          row.str(2),
			StudentCode:    row.str(3),
			GroupName:      row.str(4),
			EnrollmentYear: year,
			Password:       row.str(6),
		})
	}
	return students, problems, nil
}

// ReadPayments parses a payments import. Rows that cannot be parsed are reported in the returned messages.
func ReadPayments(r io.Reader) ([]payment.ImportRow, []string, error) {
	rows, err := readRows(r)
	if err != nil {
		return nil, nil, err
	}
	payments := make([]payment.ImportRow, 0, len(rows))
	var problems []string
	for _, row := range rows {
		contract, err := row.amount(1)
		if err != nil {
			problems = append(problems, fmt.Sprintf("row %d: %v", row.num, err))
			continue
		}
		paid, err := row.amount(2)
		if err != nil {
			problems = append(problems, fmt.Sprintf("row %d: %v", row.num, err))
			continue
		}
		date, err := row.date(3)
		if err != nil {
			problems = append(problems, fmt.Sprintf("row %d: %v", row.num, err))
			continue
		}
		payments = append(payments, payment.ImportRow{
			Row:            row.num,
			StudentCode:    row.str(0),
			ContractAmount: contract,
			PaidAmount:     paid,
			PaymentDate:    date,
			AcademicYear:   row.str(4),
			Note:           row.str(5),
		})
	}
	return payments, problems, nil
}
