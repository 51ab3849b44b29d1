package spreadsheet

import (
	"io"
	"math"

	"github.com/trezcool/campus/core/academics"
	"github.com/trezcool/campus/core/payment"
	"github.com/trezcool/campus/core/user"
)

// Names resolves the ids referenced by exported rows.
type Names struct {
	Groups   map[int]string
	Subjects map[int]string
	Users    map[int]string
}

// WriteStudents exports students, one per row.
func WriteStudents(w io.Writer, students []user.User, names Names) error {
	sh, err := newSheet("Students",
		[]interface{}{"#", "Full name", "Email", "Phone", "Student code", "Group", "Enrollment year", "Active"},
		5, 30, 30, 16, 16, 12, 16, 8)
	if err != nil {
		return err
	}
	for i, s := range students {
		var year interface{}
		if s.EnrollmentYear != 0 {
			year = s.EnrollmentYear
		}
		err = sh.append([]interface{}{
			i + 1, s.Name, s.Email, s.Phone, s.StudentCode, names.Groups[s.GroupID], year, yesNo(s.IsActive),
		})
		if err != nil {
			return err
		}
	}
	return sh.writeTo(w)
}

// WriteSchedule exports schedule entries in the order given.
func WriteSchedule(w io.Writer, entries []academics.ScheduleEntry, names Names) error {
	sh, err := newSheet("Schedule",
		[]interface{}{"Day", "Start", "End", "Subject", "Group", "Teacher", "Type", "Room", "Link"},
		12, 8, 8, 30, 12, 25, 10, 10, 30)
	if err != nil {
		return err
	}
	for _, se := range entries {
		err = sh.append([]interface{}{
			se.Weekday(), se.StartTime, se.EndTime, names.Subjects[se.SubjectID], names.Groups[se.GroupID],
			names.Users[se.TeacherID], string(se.LessonType), se.Room, se.Link,
		})
		if err != nil {
			return err
		}
	}
	return sh.writeTo(w)
}

// WriteContracts exports payment rows.
func WriteContracts(w io.Writer, rows []payment.Row) error {
	sh, err := newSheet("Contracts",
		[]interface{}{"#", "Student", "Student code", "Group", "Course", "Contract", "Paid", "Remaining", "%",
			"Payment date", "Academic year", "Note"},
		5, 30, 16, 12, 8, 14, 14, 14, 8, 14, 12, 30)
	if err != nil {
		return err
	}
	for i, r := range rows {
		err = sh.append([]interface{}{
			i + 1, r.StudentName, r.StudentCode, r.GroupName, r.CourseYear, r.ContractAmount, r.PaidAmount,
			r.Remaining(), math.Round(r.Percent*10) / 10, r.PaymentDate.Format(dateLayout), r.AcademicYear, r.Note,
		})
		if err != nil {
			return err
		}
	}
	return sh.writeTo(w)
}

// WritePaymentSample writes an empty payments import with one example row.
func WritePaymentSample(w io.Writer) error {
	sh, err := newSheet("Payments", PaymentColumns, 16, 16, 16, 14, 14, 30)
	if err != nil {
		return err
	}
	if err = sh.append([]interface{}{"ST-0001", 12000000, 6000000, "2024-09-15", "2024-2025", "first installment"}); err != nil {
		return err
	}
	return sh.writeTo(w)
}

// WriteStudentSample writes an empty students import with one example row.
func WriteStudentSample(w io.Writer) error {
	sh, err := newSheet("Students", StudentColumns, 30, 30, 16, 16, 12, 16, 16)
	if err != nil {
		return err
	}
	if err = sh.append([]interface{}{"Jane Doe", "jane.doe@example.com", "+998901234567", "ST-0001", "CS-101", 2024, ""}); err != nil {
		return err
	}
	return sh.writeTo(w)
}
