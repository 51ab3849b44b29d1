package echoapi

import (
	"context"
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/campus/core/academics"
	"github.com/trezcool/campus/core/announcement"
	"github.com/trezcool/campus/core/report"
	"github.com/trezcool/campus/core/user"
)

func Test_academicsApi_structure(t *testing.T) {
	app := setup(t)
	c := app.seedCampus(t)
	adminToken := app.token(t, c.admin)
	deanToken := app.token(t, c.dean)

	runHTTPTests(t, app, []httpTest{
		{
			name: "deans cannot add faculties", method: http.MethodPost, path: "/api/faculties", token: deanToken,
			body: []byte(`{"name": "Mathematics", "code": "MATH"}`), wantCode: http.StatusForbidden,
		},
		{
			name: "duplicate faculty code", method: http.MethodPost, path: "/api/faculties", token: adminToken,
			body:     []byte(`{"name": "Computing", "code": " cs "}`),
			wantCode: http.StatusBadRequest, wantData: []byte(`{"code": "a faculty with this code already exists"}`),
		},
		{
			name: "faculty", method: http.MethodPost, path: "/api/faculties", token: adminToken,
			body: []byte(`{"name": "Mathematics", "code": "math"}`), wantCode: http.StatusCreated,
		},
		{
			name: "duplicate group name", method: http.MethodPost, path: "/api/groups", token: deanToken,
			body:     []byte(`{"name": "cs-101", "course_year": 1}`),
			wantCode: http.StatusBadRequest, wantData: []byte(`{"name": "a group with this name already exists in the faculty"}`),
		},
		{
			name: "teachers cannot add groups", method: http.MethodPost, path: "/api/groups", token: app.token(t, c.lecturer),
			body: []byte(`{"name": "CS-301", "course_year": 3}`), wantCode: http.StatusForbidden,
		},
		{
			name: "bad education type", method: http.MethodPost, path: "/api/groups", token: deanToken,
			body:     []byte(`{"name": "CS-201", "course_year": 2, "education_type": "online"}`),
			wantCode: http.StatusBadRequest, wantData: []byte(`{"education_type": "education_type must be one of: full_time, part_time, evening"}`),
		},
	})

	t.Run("deans add groups to their own faculty", func(t *testing.T) {
		rec := app.do(newAuthRequest(http.MethodPost, "/api/groups", deanToken, []byte(`{"name": "cs-201", "course_year": 2, "faculty_id": 9999}`)))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var g academics.Group
		decode(t, rec, &g)
		assert.Equal(t, "CS-201", g.Name)
		assert.Equal(t, c.faculty.ID, g.FacultyID)
		assert.Equal(t, academics.FullTime, g.EducationType)
	})

	t.Run("visible groups and subjects", func(t *testing.T) {
		rec := app.do(newAuthRequest(http.MethodGet, "/api/groups", app.token(t, c.student)))
		require.Equal(t, http.StatusOK, rec.Code)
		var groups []academics.Group
		decode(t, rec, &groups)
		require.Len(t, groups, 1)
		assert.Equal(t, c.group.ID, groups[0].ID)

		rec = app.do(newAuthRequest(http.MethodGet, "/api/subjects", app.token(t, c.tutor)))
		require.Equal(t, http.StatusOK, rec.Code)
		var subjects []academics.Subject
		decode(t, rec, &subjects)
		require.Len(t, subjects, 1)
		assert.Equal(t, c.subject.ID, subjects[0].ID)

		rec = app.do(newAuthRequest(http.MethodGet, "/api/subjects", app.token(t, c.outsider)))
		checkCodeAndData(t, httpTest{wantData: []byte(`[]`)}, rec)
	})
}

func Test_academicsApi_teacherAssignments(t *testing.T) {
	app := setup(t)
	c := app.seedCampus(t)
	deanToken := app.token(t, c.dean)

	form := func(teacher user.User, group academics.Group, lt academics.LessonType) []byte {
		return marshalObj(t, academics.TeacherAssignmentForm{
			TeacherID: teacher.ID, SubjectID: c.subject.ID, GroupID: group.ID,
			LessonType: lt, AcademicYear: "2024-2025", Semester: 1,
		})
	}

	runHTTPTests(t, app, []httpTest{
		{
			name: "not a teacher", method: http.MethodPost, path: "/api/teacher-assignments", token: deanToken,
			body:     form(c.student, c.other, academics.Lecture),
			wantCode: http.StatusBadRequest, wantData: []byte(`{"teacher_id": "user is not a teacher"}`),
		},
		{
			name: "slot taken", method: http.MethodPost, path: "/api/teacher-assignments", token: deanToken,
			body:     form(c.tutor, c.group, academics.Lecture),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, httpErr{Error: "a teacher is already assigned to this subject, group and lesson type for the term"}),
		},
		{
			name: "bad academic year", method: http.MethodPost, path: "/api/teacher-assignments", token: deanToken,
			body: marshalObj(t, academics.TeacherAssignmentForm{
				TeacherID: c.tutor.ID, SubjectID: c.subject.ID, GroupID: c.other.ID,
				LessonType: academics.Lecture, AcademicYear: "2024-2026", Semester: 1,
			}),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"academic_year": "academic_year must be formatted as YYYY-YYYY with consecutive years"}`),
		},
		{
			name: "students cannot assign", method: http.MethodPost, path: "/api/teacher-assignments", token: app.token(t, c.student),
			body: form(c.tutor, c.other, academics.Lecture), wantCode: http.StatusForbidden,
		},
	})

	t.Run("binding opens the subject to the group", func(t *testing.T) {
		outsiderToken := app.token(t, c.outsider)
		subjectPath := "/api/subjects/" + strconv.Itoa(c.subject.ID)
		rec := app.do(newAuthRequest(http.MethodGet, subjectPath, outsiderToken))
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = app.do(newAuthRequest(http.MethodPost, "/api/teacher-assignments", deanToken, form(c.tutor, c.other, academics.Lecture)))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var ta academics.TeacherAssignment
		decode(t, rec, &ta)
		assert.Equal(t, c.dean.ID, ta.AssignedBy)

		rec = app.do(newAuthRequest(http.MethodGet, subjectPath, outsiderToken))
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		// and closes it again
		rec = app.do(newAuthRequest(http.MethodDelete, "/api/teacher-assignments/"+strconv.Itoa(ta.ID), deanToken))
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
		rec = app.do(newAuthRequest(http.MethodGet, subjectPath, outsiderToken))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func Test_academicsApi_schedule(t *testing.T) {
	app := setup(t)
	c := app.seedCampus(t)
	deanToken := app.token(t, c.dean)

	entry := func(start, end string) []byte {
		return marshalObj(t, academics.ScheduleForm{
			SubjectID: c.subject.ID, GroupID: c.group.ID, TeacherID: c.lecturer.ID,
			DayOfWeek: 0, StartTime: start, EndTime: end, LessonType: academics.Lecture, Room: "A-12",
		})
	}

	runHTTPTests(t, app, []httpTest{
		{
			name: "ends before it starts", method: http.MethodPost, path: "/api/schedule", token: deanToken,
			body: entry("10:00", "09:00"), wantCode: http.StatusBadRequest,
			wantData: []byte(`{"end_time": "end time must be after start time"}`),
		},
		{name: "bad clock", method: http.MethodPost, path: "/api/schedule", token: deanToken, body: entry("9am", "10:00"), wantCode: http.StatusBadRequest},
		{name: "entry", method: http.MethodPost, path: "/api/schedule", token: deanToken, body: entry("09:00", "10:20"), wantCode: http.StatusCreated},
		{name: "outsider sees nothing", path: "/api/schedule", token: app.token(t, c.outsider), wantData: []byte(`[]`)},
	})

	for _, usr := range []user.User{c.student, c.lecturer, c.dean} {
		rec := app.do(newAuthRequest(http.MethodGet, "/api/schedule", app.token(t, usr)))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var entries []academics.ScheduleEntry
		decode(t, rec, &entries)
		assert.Len(t, entries, 1, usr.Name)
	}

	rec := app.do(newAuthRequest(http.MethodGet, "/api/schedule/export", app.token(t, c.student)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "schedule_Sam_Student_")
}

func Test_deanApi_students(t *testing.T) {
	app := setup(t)
	c := app.seedCampus(t)
	deanToken := app.token(t, c.dean)

	newStudent := func(groupID int, email string) []byte {
		return marshalObj(t, user.NewUser{
			Name: "Nina New", Email: email, GroupID: groupID, StudentCode: "S-" + email[:3],
			Password: testPassword, PasswordConfirm: testPassword,
		})
	}
	foreign, err := app.repos.acad.CreateFaculty(context.Background(), academics.Faculty{Name: "Law", Code: "LAW"})
	require.NoError(t, err)
	foreignGroup, err := app.repos.acad.CreateGroup(context.Background(), academics.Group{Name: "LAW-1", FacultyID: foreign.ID, CourseYear: 1})
	require.NoError(t, err)

	runHTTPTests(t, app, []httpTest{
		{name: "deans only", path: "/api/dean/students", token: app.token(t, c.admin), wantCode: http.StatusForbidden},
		{
			name: "group of another faculty", method: http.MethodPost, path: "/api/dean/students", token: deanToken,
			body: newStudent(foreignGroup.ID, "law@campus.test"), wantCode: http.StatusForbidden,
		},
		{
			name: "student", method: http.MethodPost, path: "/api/dean/students", token: deanToken,
			body: newStudent(c.group.ID, "nina@campus.test"), wantCode: http.StatusCreated,
		},
		{name: "import needs a workbook", method: http.MethodPost, path: "/api/dean/students/import", token: deanToken, wantCode: http.StatusBadRequest},
	})

	rec := app.do(newAuthRequest(http.MethodGet, "/api/dean/students?search=nina", deanToken))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var students []user.User
	decode(t, rec, &students)
	require.Len(t, students, 1)
	assert.Equal(t, user.RoleStudent, students[0].Role)
	assert.Equal(t, c.group.ID, students[0].GroupID)

	rec = app.do(newAuthRequest(http.MethodGet, "/api/dean/students/import/sample", deanToken))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func Test_announcementApi(t *testing.T) {
	app := setup(t)
	c := app.seedCampus(t)
	deanToken := app.token(t, c.dean)

	post := func(token string, form announcement.Form) announcement.Announcement {
		t.Helper()
		rec := app.do(newAuthRequest(http.MethodPost, "/api/announcements", token, marshalObj(t, form)))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var a announcement.Announcement
		decode(t, rec, &a)
		return a
	}
	forAll := post(app.token(t, c.admin), announcement.Form{Title: "Welcome", Content: "Term starts Monday"})
	forTeachers := post(deanToken, announcement.Form{Title: "Staff meeting", Content: "Room 3", TargetRoles: []string{"Teacher"}})
	urgent := post(app.token(t, c.admin), announcement.Form{Title: "Exams", Content: "Schedule out", IsImportant: true})

	titles := func(usr user.User) []int {
		rec := app.do(newAuthRequest(http.MethodGet, "/api/announcements", app.token(t, usr)))
		require.Equal(t, http.StatusOK, rec.Code)
		var list []announcement.Announcement
		decode(t, rec, &list)
		ids := make([]int, len(list))
		for i, a := range list {
			ids[i] = a.ID
		}
		return ids
	}
	assert.Equal(t, []int{urgent.ID, forAll.ID}, titles(c.student))
	assert.Equal(t, []int{urgent.ID, forTeachers.ID, forAll.ID}, titles(c.lecturer))
	assert.Equal(t, c.faculty.ID, forTeachers.FacultyID)

	runHTTPTests(t, app, []httpTest{
		{
			name: "unknown role", method: http.MethodPost, path: "/api/announcements", token: deanToken,
			body: []byte(`{"title": "x", "content": "y", "target_roles": ["janitor"]}`), wantCode: http.StatusBadRequest,
		},
		{
			name: "teachers cannot post", method: http.MethodPost, path: "/api/announcements", token: app.token(t, c.lecturer),
			body: []byte(`{"title": "x", "content": "y"}`), wantCode: http.StatusForbidden,
		},
		{name: "deans delete only their own", method: http.MethodDelete, path: "/api/announcements/" + strconv.Itoa(forAll.ID), token: deanToken, wantCode: http.StatusForbidden},
		{name: "own", method: http.MethodDelete, path: "/api/announcements/" + strconv.Itoa(forTeachers.ID), token: deanToken, wantCode: http.StatusNoContent},
		{name: "gone", method: http.MethodDelete, path: "/api/announcements/" + strconv.Itoa(forTeachers.ID), token: deanToken, wantCode: http.StatusNotFound},
	})
}

func Test_reportApi(t *testing.T) {
	app := setup(t)
	c := app.seedCampus(t)

	t.Run("dashboard", func(t *testing.T) {
		rec := app.do(newAuthRequest(http.MethodGet, "/api/dashboard/stats", app.token(t, c.admin)))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var st report.SystemStats
		decode(t, rec, &st)
		assert.Equal(t, 7, st.Users)
		assert.Equal(t, 2, st.Students)
		assert.Equal(t, 2, st.Teachers)
		assert.Equal(t, 1, st.Faculties)
		assert.Equal(t, 2, st.Groups)

		rec = app.do(newAuthRequest(http.MethodGet, "/api/dashboard/stats", app.token(t, c.student)))
		checkCodeAndData(t, httpTest{wantData: []byte(`{}`)}, rec)
	})

	t.Run("faculty", func(t *testing.T) {
		rec := app.do(newAuthRequest(http.MethodGet, "/api/reports/faculty", app.token(t, c.dean)))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var rep report.FacultyReport
		decode(t, rec, &rep)
		assert.Equal(t, c.faculty.ID, rep.Faculty.ID)
		assert.Equal(t, 2, rep.Students)
		assert.Equal(t, 2, rep.Teachers)
		assert.Equal(t, 1, rep.Subjects)
		require.Len(t, rep.Groups, 2)
		assert.Equal(t, "CS-101", rep.Groups[0].Name)
		assert.Equal(t, 1, rep.Groups[0].Subjects)

		runHTTPTests(t, app, []httpTest{
			{name: "teachers", path: "/api/reports/faculty", token: app.token(t, c.lecturer), wantCode: http.StatusForbidden},
			{name: "admin picks", path: "/api/reports/faculty?faculty_id=" + strconv.Itoa(c.faculty.ID), token: app.token(t, c.admin)},
			{name: "admin without faculty", path: "/api/reports/faculty", token: app.token(t, c.admin), wantCode: http.StatusNotFound},
		})
	})
}
