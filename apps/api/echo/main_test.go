package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/academics"
	"github.com/trezcool/campus/core/access"
	"github.com/trezcool/campus/core/announcement"
	"github.com/trezcool/campus/core/coursework"
	"github.com/trezcool/campus/core/lesson"
	"github.com/trezcool/campus/core/messaging"
	"github.com/trezcool/campus/core/payment"
	"github.com/trezcool/campus/core/report"
	"github.com/trezcool/campus/core/user"
	appfs "github.com/trezcool/campus/fs"
	emailsvc "github.com/trezcool/campus/services/email"
	"github.com/trezcool/campus/services/filestore"
	logsvc "github.com/trezcool/campus/services/logger"
	inmemdb "github.com/trezcool/campus/storage/database/inmem"
)

const testPassword = "Str0ng-Passw0rd!"

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type (
	testRepos struct {
		users      user.Repository
		acad       academics.Repository
		lessons    lesson.Repository
		coursework coursework.Repository
		payments   payment.Repository
	}

	testApp struct {
		*server
		repos testRepos
	}

	// campus is a small faculty: one group taught one subject by a lecture and a practice teacher.
	campus struct {
		faculty  academics.Faculty
		group    academics.Group
		other    academics.Group
		subject  academics.Subject
		admin    user.User
		dean     user.User
		lecturer user.User
		tutor    user.User
		student  user.User
		outsider user.User // student of the other group
		cashier  user.User
	}
)

func setup(t *testing.T) *testApp {
	t.Helper()

	conf := core.NewTestConfig()
	conf.Uploads.Root = t.TempDir()
	logger := logsvc.NewNopLogger()

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	academics.InitValidators(validate, translator)
	lesson.InitValidators(validate, translator)
	core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, conf, logger)

	db := inmemdb.Open()
	repos := testRepos{
		users:      inmemdb.NewUserRepository(db),
		acad:       inmemdb.NewAcademicsRepository(db),
		lessons:    inmemdb.NewLessonRepository(db),
		coursework: inmemdb.NewCourseworkRepository(db),
		payments:   inmemdb.NewPaymentRepository(db),
	}
	files := filestore.New(conf.Uploads.Root, logger)

	acadSvc := academics.NewService(repos.acad, nil)
	usrSvc := user.NewService(repos.users, acadSvc, emailsvc.NewConsoleServiceMock(conf, logger), validate, conf, logger)
	acadSvc.SetUserFinder(usrSvc)
	policy := access.NewEvaluator(acadSvc)

	s := newServer(ServerDeps{
		Conf:            conf,
		Logger:          logger,
		Validate:        validate,
		Translator:      translator,
		Files:           files,
		UserSvc:         usrSvc,
		AcademicsSvc:    acadSvc,
		LessonSvc:       lesson.NewService(repos.lessons, acadSvc, policy, files, validate, conf, logger),
		CourseworkSvc:   coursework.NewService(repos.coursework, acadSvc, usrSvc, policy, files, validate, conf),
		MessagingSvc:    messaging.NewService(inmemdb.NewMessageRepository(db), policy, usrSvc, validate),
		AnnouncementSvc: announcement.NewService(inmemdb.NewAnnouncementRepository(db), validate),
		PaymentSvc:      payment.NewService(repos.payments, usrSvc, acadSvc, validate),
		ReportSvc:       report.NewService(inmemdb.NewReportRepository(db), acadSvc),
	})
	return &testApp{server: s, repos: repos}
}

func (app *testApp) createUser(t *testing.T, usr user.User) user.User {
	t.Helper()
	usr.IsActive = true
	usr.CreatedAt = time.Now().UTC()
	usr.UpdatedAt = usr.CreatedAt
	require.NoError(t, usr.SetPassword(testPassword))
	usr, err := app.repos.users.CreateUser(context.Background(), usr)
	require.NoError(t, err)
	return usr
}

func (app *testApp) assignTeacher(t *testing.T, teacher user.User, subject academics.Subject, group academics.Group, lt academics.LessonType) {
	t.Helper()
	_, err := app.repos.acad.CreateTeacherAssignment(context.Background(), academics.TeacherAssignment{
		TeacherID:    teacher.ID,
		SubjectID:    subject.ID,
		GroupID:      group.ID,
		LessonType:   lt,
		AcademicYear: "2024-2025",
		Semester:     1,
	})
	require.NoError(t, err)
}

func (app *testApp) seedCampus(t *testing.T) campus {
	t.Helper()
	ctx := context.Background()
	var c campus
	var err error

	c.faculty, err = app.repos.acad.CreateFaculty(ctx, academics.Faculty{Name: "Computer Science", Code: "CS"})
	require.NoError(t, err)
	c.group, err = app.repos.acad.CreateGroup(ctx, academics.Group{Name: "CS-101", FacultyID: c.faculty.ID, CourseYear: 1, EducationType: academics.FullTime})
	require.NoError(t, err)
	c.other, err = app.repos.acad.CreateGroup(ctx, academics.Group{Name: "CS-102", FacultyID: c.faculty.ID, CourseYear: 1, EducationType: academics.FullTime})
	require.NoError(t, err)
	c.subject, err = app.repos.acad.CreateSubject(ctx, academics.Subject{Name: "Algorithms", Code: "ALG", FacultyID: c.faculty.ID, Credits: 3})
	require.NoError(t, err)

	c.admin = app.createUser(t, user.User{Name: "Ada Admin", Email: "admin@campus.test", Role: user.RoleAdmin})
	c.dean = app.createUser(t, user.User{Name: "Dina Dean", Email: "dean@campus.test", Role: user.RoleDean, FacultyID: c.faculty.ID})
	c.lecturer = app.createUser(t, user.User{Name: "Leo Lecturer", Email: "leo@campus.test", Role: user.RoleTeacher})
	c.tutor = app.createUser(t, user.User{Name: "Tess Tutor", Email: "tess@campus.test", Role: user.RoleTeacher})
	c.student = app.createUser(t, user.User{Name: "Sam Student", Email: "sam@campus.test", Role: user.RoleStudent, GroupID: c.group.ID, StudentCode: "S-001"})
	c.outsider = app.createUser(t, user.User{Name: "Olga Other", Email: "olga@campus.test", Role: user.RoleStudent, GroupID: c.other.ID, StudentCode: "S-002"})
	c.cashier = app.createUser(t, user.User{Name: "Cary Cashier", Email: "cary@campus.test", Role: user.RoleAccounting})

	app.assignTeacher(t, c.lecturer, c.subject, c.group, academics.Lecture)
	app.assignTeacher(t, c.tutor, c.subject, c.group, academics.Practice)
	return c
}

func (app *testApp) token(t *testing.T, usr user.User) string {
	t.Helper()
	token, err := app.tokens.tokenFor(usr)
	require.NoError(t, err)
	return token
}

// do serves the request and returns the recorded response.
func (app *testApp) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, req)
	return rec
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) *http.Request {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

// newUploadRequest builds a multipart request carrying fields and a single file.
func newUploadRequest(t *testing.T, method, path, token string, fields map[string]string, fileField, fileName string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileField != "" {
		fw, err := mw.CreateFormFile(fileField, fileName)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func newRequest(method, path string, data ...[]byte) *http.Request {
	return newAuthRequest(method, path, "", data...)
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	require.NoError(t, err)
	return data
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func runHTTPTests(t *testing.T, app *testApp, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			rec := app.do(newAuthRequest(method, tt.path, tt.token, tt.body))
			checkCodeAndData(t, tt, rec)
		})
	}
}

// checkCodeAndData compares the body only when wantData is set.
func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	wantCode := tt.wantCode
	if wantCode == 0 {
		wantCode = http.StatusOK
	}
	assert.Equal(t, wantCode, rec.Code, rec.Body.String())
	if tt.wantData != nil {
		assert.JSONEq(t, string(tt.wantData), rec.Body.String())
	}
}
