package payment

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/campus/core"
)

const dateLayout = "2006-01-02"

// Payment is one contract payment of a student. Amounts are in the smallest currency unit.
type Payment struct {
	ID             int       `json:"id" db:"id"`
	StudentID      int       `json:"student_id" db:"student_id"`
	ContractAmount int64     `json:"contract_amount" db:"contract_amount"`
	PaidAmount     int64     `json:"paid_amount" db:"paid_amount"`
	PaymentDate    time.Time `json:"payment_date" db:"payment_date"`
	AcademicYear   string    `json:"academic_year" db:"academic_year"`
	Note           string    `json:"note" db:"note"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// Percentage is the share of the contract covered by this payment; 0 without a contract.
func (p Payment) Percentage() float64 {
	return percentage(p.PaidAmount, p.ContractAmount)
}

func (p Payment) Remaining() int64 {
	return p.ContractAmount - p.PaidAmount
}

func percentage(paid, contract int64) float64 {
	if contract <= 0 {
		return 0
	}
	return float64(paid) / float64(contract) * 100
}

// Row is a payment with the student details lists and exports show.
type Row struct {
	Payment
	StudentName string  `json:"student_name"`
	StudentCode string  `json:"student_code"`
	GroupID     int     `json:"group_id"`
	GroupName   string  `json:"group_name"`
	CourseYear  int     `json:"course_year"`
	Percent     float64 `json:"percentage"`
}

// Form records a payment.
type Form struct {
	StudentID      int    `json:"student_id" validate:"required,min=1"`
	ContractAmount int64  `json:"contract_amount" validate:"min=0"`
	PaidAmount     int64  `json:"paid_amount" validate:"min=0"`
	PaymentDate    string `json:"payment_date" validate:"omitempty,datetime=2006-01-02"`
	AcademicYear   string `json:"academic_year" validate:"omitempty,acadyear"`
	Note           string `json:"note" validate:"omitempty,max=500"`
}

func (f *Form) Validate(validate *validator.Validate) error {
	f.PaymentDate = core.CleanString(f.PaymentDate)
	f.AcademicYear = core.CleanString(f.AcademicYear)
	f.Note = core.CleanString(f.Note)
	return validate.Struct(f)
}

// ListFilter narrows payment lists and exports.
type ListFilter struct {
	Search     string `query:"search"`
	GroupID    int    `query:"group"`
	FacultyID  int    `query:"faculty"`
	CourseYear int    `query:"course"`
}

type QueryFilter struct {
	StudentIDs []int // nil: every student
}

func (f QueryFilter) Match(p Payment) bool {
	return f.StudentIDs == nil || core.ContainsInt(f.StudentIDs, p.StudentID)
}

// Stats

// Payment completion buckets
const (
	Bucket0   = "0%"
	Bucket25  = "25%"
	Bucket50  = "50%"
	Bucket75  = "75%"
	Bucket100 = "100%"
)

// BucketOf files a completion percentage: up to 25% counts as "0%", (25, 50] as "25%",
// (50, 75] as "50%", (75, 100) as "75%" and 100% or more as "100%".
func BucketOf(pct float64) string {
	switch {
	case pct <= 25:
		return Bucket0
	case pct <= 50:
		return Bucket25
	case pct <= 75:
		return Bucket50
	case pct < 100:
		return Bucket75
	default:
		return Bucket100
	}
}

type CourseStats struct {
	CourseYear int            `json:"course_year"`
	Buckets    map[string]int `json:"buckets"`
	Total      int            `json:"total"`
}

func newCourseStats(year int) *CourseStats {
	return &CourseStats{
		CourseYear: year,
		Buckets:    map[string]int{Bucket0: 0, Bucket25: 0, Bucket50: 0, Bucket75: 0, Bucket100: 0},
	}
}

type Stats struct {
	TotalContract int64         `json:"total_contract"`
	TotalPaid     int64         `json:"total_paid"`
	ByCourse      []CourseStats `json:"by_course"` // sorted by course year
}

// StudentSummary is a student's payment record.
type StudentSummary struct {
	StudentID     int       `json:"student_id"`
	StudentName   string    `json:"student_name"`
	StudentCode   string    `json:"student_code"`
	Payments      []Payment `json:"payments"`
	TotalContract int64     `json:"total_contract"`
	TotalPaid     int64     `json:"total_paid"`
	Remaining     int64     `json:"remaining"`
	Percentage    float64   `json:"percentage"`
}

// ImportRow is one spreadsheet row of a payments import.
type ImportRow struct {
	Row            int
	StudentCode    string
	ContractAmount int64
	PaidAmount     int64
	PaymentDate    string
	AcademicYear   string
	Note           string
}
