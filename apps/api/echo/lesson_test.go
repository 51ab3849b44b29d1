package echoapi

import (
	"context"
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/campus/core/academics"
	"github.com/trezcool/campus/core/lesson"
	"github.com/trezcool/campus/core/user"
)

func (app *testApp) createLesson(t *testing.T, subject academics.Subject, order int, title, videoURL string) lesson.Lesson {
	t.Helper()
	l, err := app.repos.lessons.CreateLesson(context.Background(), lesson.Lesson{
		SubjectID:  subject.ID,
		LessonType: academics.Lecture,
		Order:      order,
		Title:      title,
		VideoURL:   videoURL,
	})
	require.NoError(t, err)
	return l
}

func lessonPath(l lesson.Lesson, action string) string {
	p := "/api/lessons/" + strconv.Itoa(l.ID)
	if action != "" {
		p += "/" + action
	}
	return p
}

func Test_lessonApi_progression(t *testing.T) {
	app := setup(t)
	c := app.seedCampus(t)
	studentToken := app.token(t, c.student)

	first := app.createLesson(t, c.subject, 1, "Big O", "https://youtu.be/abcdef123")
	reading := app.createLesson(t, c.subject, 2, "Reading list", "")
	second := app.createLesson(t, c.subject, 3, "Sorting", "https://youtu.be/ghijkl456")

	subjectLessons := func(t *testing.T) map[int]lesson.Status {
		rec := app.do(newAuthRequest(http.MethodGet, "/api/subjects/"+strconv.Itoa(c.subject.ID), studentToken))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var detail SubjectDetail
		decode(t, rec, &detail)
		byID := make(map[int]lesson.Status, len(detail.Lessons))
		for _, st := range detail.Lessons {
			byID[st.ID] = st
		}
		return byID
	}

	t.Run("only the first video lesson is open", func(t *testing.T) {
		statuses := subjectLessons(t)
		require.Len(t, statuses, 3)
		assert.False(t, statuses[first.ID].IsLocked)
		assert.False(t, statuses[reading.ID].IsLocked)
		assert.True(t, statuses[second.ID].IsLocked)
		assert.Equal(t, lesson.NotStarted, statuses[first.ID].State)

		rec := app.do(newAuthRequest(http.MethodPost, lessonPath(second, "watch"), studentToken))
		assert.Equal(t, http.StatusForbidden, rec.Code)
		rec = app.do(newAuthRequest(http.MethodPost, lessonPath(reading, "watch"), studentToken))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("attention check before opening", func(t *testing.T) {
		rec := app.do(newAuthRequest(http.MethodPost, lessonPath(first, "attention-check"), studentToken))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("three attention checks complete a lesson", func(t *testing.T) {
		rec := app.do(newAuthRequest(http.MethodPost, lessonPath(first, "watch"), studentToken))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var session lesson.WatchSession
		decode(t, rec, &session)
		require.NotNil(t, session.View)
		require.NotNil(t, session.NextLesson)
		assert.Equal(t, second.ID, session.NextLesson.ID)

		for want := 1; want <= 2; want++ {
			rec = app.do(newAuthRequest(http.MethodPost, lessonPath(first, "attention-check"), studentToken))
			require.Equal(t, http.StatusOK, rec.Code)
			checkCodeAndData(t, httpTest{wantData: []byte(`{"attention_checks_passed": ` + strconv.Itoa(want) + `, "is_completed": false, "next_lesson": null}`)}, rec)
		}

		rec = app.do(newAuthRequest(http.MethodPost, lessonPath(first, "attention-check"), studentToken))
		require.Equal(t, http.StatusOK, rec.Code)
		var res lesson.AttentionResult
		decode(t, rec, &res)
		assert.Equal(t, 3, res.AttentionChecksPassed)
		assert.True(t, res.IsCompleted)
		require.NotNil(t, res.NextLesson)
		assert.Equal(t, second.ID, res.NextLesson.ID)
		assert.Equal(t, lessonPath(second, ""), res.NextLesson.URL)

		// counting goes on; the lesson stays completed and no next lesson is offered again
		rec = app.do(newAuthRequest(http.MethodPost, lessonPath(first, "attention-check"), studentToken))
		require.Equal(t, http.StatusOK, rec.Code)
		checkCodeAndData(t, httpTest{wantData: []byte(`{"attention_checks_passed": 4, "is_completed": true, "next_lesson": null}`)}, rec)
	})

	t.Run("the next video lesson unlocks", func(t *testing.T) {
		statuses := subjectLessons(t)
		assert.Equal(t, lesson.Completed, statuses[first.ID].State)
		assert.False(t, statuses[second.ID].IsLocked)

		rec := app.do(newAuthRequest(http.MethodPost, lessonPath(second, "watch"), studentToken))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("watch time never decreases", func(t *testing.T) {
		runHTTPTests(t, app, []httpTest{
			{
				name: "record", method: http.MethodPost, path: lessonPath(second, "watch-time"), token: studentToken,
				body: []byte(`{"watch_duration": 120}`), wantData: []byte(`{"watch_duration": 120, "is_completed": false}`),
			},
			{
				name: "lower value", method: http.MethodPost, path: lessonPath(second, "watch-time"), token: studentToken,
				body: []byte(`{"watch_duration": 30}`), wantData: []byte(`{"watch_duration": 120, "is_completed": false}`),
			},
			{
				name: "negative", method: http.MethodPost, path: lessonPath(second, "watch-time"), token: studentToken,
				body: []byte(`{"watch_duration": -1}`), wantCode: http.StatusBadRequest,
				wantData: []byte(`{"watch_duration": "watch_duration must be 0 or greater"}`),
			},
			{
				name: "teachers do not watch", method: http.MethodPost, path: lessonPath(second, "watch-time"), token: app.token(t, c.lecturer),
				body: []byte(`{"watch_duration": 10}`), wantCode: http.StatusForbidden,
			},
		})
	})

	t.Run("other groups cannot see the subject", func(t *testing.T) {
		rec := app.do(newAuthRequest(http.MethodGet, lessonPath(first, ""), app.token(t, c.outsider)))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func Test_lessonApi_create(t *testing.T) {
	app := setup(t)
	c := app.seedCampus(t)
	path := "/api/subjects/" + strconv.Itoa(c.subject.ID) + "/lessons"
	stranger := app.createUser(t, user.User{Name: "Stan Stranger", Email: "stan@campus.test", Role: user.RoleTeacher})

	runHTTPTests(t, app, []httpTest{
		{
			name: "students cannot author", method: http.MethodPost, path: path, token: app.token(t, c.student),
			body: []byte(`{"title": "Mine"}`), wantCode: http.StatusForbidden,
		},
		{
			name: "bad video url", method: http.MethodPost, path: path, token: app.token(t, c.lecturer),
			body: []byte(`{"title": "Graphs", "video_url": "https://example.com/v"}`), wantCode: http.StatusBadRequest,
		},
		{
			name: "lesson file required", method: http.MethodPost, path: path, token: app.token(t, c.lecturer),
			body: []byte(`{"title": "Graphs", "video_url": "https://www.youtube.com/watch?v=abcdef123"}`),
			wantCode: http.StatusBadRequest, wantData: []byte(`{"file": "a lesson file is required"}`),
		},
		{
			name: "other teachers", method: http.MethodPost, path: path, token: app.token(t, stranger),
			body: []byte(`{"title": "Graphs"}`), wantCode: http.StatusForbidden,
		},
	})

	t.Run("multipart with a lesson file", func(t *testing.T) {
		fields := map[string]string{"title": "Trees", "lesson_type": "lecture"}
		req := newUploadRequest(t, http.MethodPost, path, app.token(t, c.lecturer), fields, "file", "trees.pdf", []byte("%PDF-1.4 trees"))
		rec := app.do(req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var l lesson.Lesson
		decode(t, rec, &l)
		assert.Equal(t, "Trees", l.Title)
		require.NotEmpty(t, l.LessonFile)

		// lesson files are served to whoever may view the subject
		filePath := "/api/uploads/lesson_files/" + l.LessonFile
		rec = app.do(newAuthRequest(http.MethodGet, filePath, app.token(t, c.student)))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "%PDF-1.4 trees", rec.Body.String())

		runHTTPTests(t, app, []httpTest{
			{name: "lecturer", path: filePath, token: app.token(t, c.lecturer), wantCode: http.StatusOK},
			{name: "dean of the faculty", path: filePath, token: app.token(t, c.dean), wantCode: http.StatusOK},
			{name: "student of another group", path: filePath, token: app.token(t, c.outsider), wantCode: http.StatusForbidden},
			{name: "accounting", path: filePath, token: app.token(t, c.cashier), wantCode: http.StatusForbidden},
			{name: "unknown lesson file", path: "/api/uploads/lesson_files/missing.pdf", token: app.token(t, c.student), wantCode: http.StatusForbidden},
		})
	})
}
