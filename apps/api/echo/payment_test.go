package echoapi

import (
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/campus/core/payment"
)

func Test_paymentApi(t *testing.T) {
	app := setup(t)
	c := app.seedCampus(t)
	cashierToken := app.token(t, c.cashier)
	studentToken := app.token(t, c.student)

	record := func(paid int64, date string) []byte {
		return marshalObj(t, payment.Form{
			StudentID: c.student.ID, ContractAmount: 10000000, PaidAmount: paid,
			PaymentDate: date, AcademicYear: "2024-2025",
		})
	}
	summaryPath := "/api/payments/students/" + strconv.Itoa(c.student.ID)

	runHTTPTests(t, app, []httpTest{
		{name: "students cannot list", path: "/api/payments", token: studentToken, wantCode: http.StatusForbidden},
		{
			name: "deans cannot record", method: http.MethodPost, path: "/api/payments", token: app.token(t, c.dean),
			body: record(100, ""), wantCode: http.StatusForbidden,
		},
		{
			name: "not a student", method: http.MethodPost, path: "/api/payments", token: cashierToken,
			body:     marshalObj(t, payment.Form{StudentID: c.lecturer.ID, ContractAmount: 10, PaidAmount: 1}),
			wantCode: http.StatusBadRequest, wantData: []byte(`{"student_id": "payments can only be recorded for students"}`),
		},
		{
			name: "unknown student", method: http.MethodPost, path: "/api/payments", token: cashierToken,
			body:     marshalObj(t, payment.Form{StudentID: 9999, ContractAmount: 10, PaidAmount: 1}),
			wantCode: http.StatusBadRequest, wantData: []byte(`{"student_id": "student not found"}`),
		},
		{name: "bad date", method: http.MethodPost, path: "/api/payments", token: cashierToken, body: record(100, "01/09/2024"), wantCode: http.StatusBadRequest},
		{name: "first payment", method: http.MethodPost, path: "/api/payments", token: cashierToken, body: record(3000000, "2024-09-01"), wantCode: http.StatusCreated},
		{name: "second payment", method: http.MethodPost, path: "/api/payments", token: cashierToken, body: record(3000000, "2025-02-01"), wantCode: http.StatusCreated},
	})

	t.Run("summary", func(t *testing.T) {
		rec := app.do(newAuthRequest(http.MethodGet, summaryPath, studentToken))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var sum payment.StudentSummary
		decode(t, rec, &sum)
		assert.Len(t, sum.Payments, 2)
		assert.Equal(t, int64(10000000), sum.TotalContract)
		assert.Equal(t, int64(6000000), sum.TotalPaid)
		assert.Equal(t, int64(4000000), sum.Remaining)
		assert.InDelta(t, 60, sum.Percentage, 0.001)

		runHTTPTests(t, app, []httpTest{
			{name: "other students", path: summaryPath, token: app.token(t, c.outsider), wantCode: http.StatusForbidden},
			{name: "dean of the faculty", path: summaryPath, token: app.token(t, c.dean)},
			{name: "teachers", path: summaryPath, token: app.token(t, c.lecturer), wantCode: http.StatusForbidden},
		})
	})

	t.Run("list", func(t *testing.T) {
		rec := app.do(newAuthRequest(http.MethodGet, "/api/payments?search=S-001", cashierToken))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var rows []payment.Row
		decode(t, rec, &rows)
		require.Len(t, rows, 2)
		assert.Equal(t, "CS-101", rows[0].GroupName)
		assert.InDelta(t, 30, rows[0].Percent, 0.001)

		path := "/api/payments?group=" + strconv.Itoa(c.other.ID)
		checkCodeAndData(t, httpTest{wantData: []byte(`[]`)}, app.do(newAuthRequest(http.MethodGet, path, cashierToken)))
	})

	t.Run("stats", func(t *testing.T) {
		rec := app.do(newAuthRequest(http.MethodGet, "/api/payments/stats", app.token(t, c.dean)))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var st payment.Stats
		decode(t, rec, &st)
		assert.Equal(t, int64(20000000), st.TotalContract)
		assert.Equal(t, int64(6000000), st.TotalPaid)
		require.Len(t, st.ByCourse, 1)
		assert.Equal(t, 1, st.ByCourse[0].CourseYear)
		assert.Equal(t, 2, st.ByCourse[0].Total)
		assert.Equal(t, 2, st.ByCourse[0].Buckets[payment.Bucket25])
	})

	t.Run("export", func(t *testing.T) {
		path := "/api/payments/export?faculty=" + strconv.Itoa(c.faculty.ID)
		rec := app.do(newAuthRequest(http.MethodGet, path, cashierToken))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "contracts_CS")
		assert.NotZero(t, rec.Body.Len())
	})
}
