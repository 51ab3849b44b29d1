package spreadsheet

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/campus/core/academics"
	"github.com/trezcool/campus/core/payment"
	"github.com/trezcool/campus/core/user"
)

func workbook(t *testing.T, rows ...[]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	name := f.GetSheetList()[0]
	for i, r := range rows {
		r := r
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(name, cell, &r))
	}
	buf := new(bytes.Buffer)
	require.NoError(t, f.Write(buf))
	return buf
}

func TestReadPayments(t *testing.T) {
	buf := workbook(t,
		PaymentColumns,
		[]interface{}{"ST-1", 1000000, 250000, "2024-09-01", "2024-2025", "first"},
		[]interface{}{"", "  "}, // blank rows are skipped
		[]interface{}{"ST-2", "1 200 000", "600,000.40", "15.10.2024", "2024-2025"},
		[]interface{}{"ST-3", "a lot", 10, "2024-09-01"},
		[]interface{}{"ST-4", 10, 10, "someday"},
	)

	rows, problems, err := ReadPayments(buf)
	require.NoError(t, err)
	assert.Equal(t, []payment.ImportRow{
		{Row: 2, StudentCode: "ST-1", ContractAmount: 1000000, PaidAmount: 250000, PaymentDate: "2024-09-01",
			AcademicYear: "2024-2025", Note: "first"},
		{Row: 4, StudentCode: "ST-2", ContractAmount: 1200000, PaidAmount: 600000, PaymentDate: "2024-10-15",
			AcademicYear: "2024-2025"},
	}, rows)
	assert.Equal(t, []string{`row 5: invalid amount "a lot"`, `row 6: invalid date "someday"`}, problems)
}

func TestReadStudents(t *testing.T) {
	buf := workbook(t,
		StudentColumns,
		[]interface{}{"Jane Doe", "jane@test.test", "", "ST-1", "CS-101", 2023, "secret-pwd"},
		[]interface{}{"John Doe", "john@test.test", "+1", "ST-2", "", "twenty"},
	)

	rows, problems, err := ReadStudents(buf)
	require.NoError(t, err)
	assert.Equal(t, []user.StudentRow{{
		Row: 2, Name: "Jane Doe", Email: "jane@test.test", StudentCode: "ST-1", GroupName: "CS-101",
		EnrollmentYear: 2023, Password: "secret-pwd",
	}}, rows)
	assert.Equal(t, []string{`row 3: invalid number "twenty"`}, problems)
}

func TestReadRows_notAWorkbook(t *testing.T) {
	_, _, err := ReadPayments(bytes.NewBufferString("name,amount\n"))
	assert.Error(t, err)
}

func TestSamplesRoundTrip(t *testing.T) {
	buf := new(bytes.Buffer)
	require.NoError(t, WritePaymentSample(buf))
	payments, problems, err := ReadPayments(buf)
	require.NoError(t, err)
	assert.Empty(t, problems)
	if assert.Len(t, payments, 1) {
		assert.Equal(t, "ST-0001", payments[0].StudentCode)
		assert.Equal(t, int64(6000000), payments[0].PaidAmount)
		assert.Equal(t, "2024-09-15", payments[0].PaymentDate)
	}

	buf.Reset()
	require.NoError(t, WriteStudentSample(buf))
	students, problems, err := ReadStudents(buf)
	require.NoError(t, err)
	assert.Empty(t, problems)
	if assert.Len(t, students, 1) {
		assert.Equal(t, 2024, students[0].EnrollmentYear)
	}
}

func TestWriteExports(t *testing.T) {
	names := Names{
		Groups:   map[int]string{1: "CS-101"},
		Subjects: map[int]string{1: "Algebra"},
		Users:    map[int]string{7: "Prof. X"},
	}

	buf := new(bytes.Buffer)
	require.NoError(t, WriteStudents(buf, []user.User{
		{ID: 3, Name: "Jane", Email: "jane@test.test", GroupID: 1, StudentCode: "ST-1", IsActive: true},
	}, names))
	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	rows, err := f.GetRows("Students")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"1", "Jane", "jane@test.test", "", "ST-1", "CS-101", "", "yes"}, rows[1])

	buf.Reset()
	require.NoError(t, WriteSchedule(buf, []academics.ScheduleEntry{
		{SubjectID: 1, GroupID: 1, TeacherID: 7, DayOfWeek: 2, StartTime: "08:30", EndTime: "09:50",
			LessonType: academics.Lecture, Room: "A-1"},
	}, names))
	f, err = excelize.OpenReader(buf)
	require.NoError(t, err)
	rows, err = f.GetRows("Schedule")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Wednesday", "08:30", "09:50", "Algebra", "CS-101", "Prof. X", "lecture", "A-1"}, rows[1])

	buf.Reset()
	date := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, WriteContracts(buf, []payment.Row{{
		Payment:     payment.Payment{ContractAmount: 1000, PaidAmount: 250, PaymentDate: date, AcademicYear: "2024-2025"},
		StudentName: "Jane", StudentCode: "ST-1", GroupName: "CS-101", CourseYear: 1, Percent: 25,
	}}))
	f, err = excelize.OpenReader(buf)
	require.NoError(t, err)
	rows, err = f.GetRows("Contracts")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"1", "Jane", "ST-1", "CS-101", "1", "1000", "250", "750", "25", "2024-09-01", "2024-2025"}, rows[1])
}

func TestFilename(t *testing.T) {
	now := time.Date(2024, 1, 31, 15, 45, 0, 0, time.UTC)
	assert.Equal(t, "students_20240131_154500.xlsx", Filename("students", now))
	assert.Equal(t, "students_Computer_Science_20240131_154500.xlsx", Filename("students", now, "Computer Science", " "))
}
