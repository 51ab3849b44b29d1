package lesson

import (
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/academics"
)

func video(id, order int, lt academics.LessonType) Lesson {
	return Lesson{ID: id, SubjectID: 1, LessonType: lt, Order: order, VideoURL: "https://youtu.be/dQw4w9WgXcQ"}
}

func TestIsLocked(t *testing.T) {
	l1 := video(1, 1, academics.Lecture)
	l2 := video(2, 2, academics.Lecture)
	text := Lesson{ID: 3, SubjectID: 1, LessonType: academics.Lecture, Order: 3}
	l4 := video(4, 4, academics.Lecture)
	p1 := video(5, 1, academics.Practice)
	lessons := []Lesson{l1, l2, text, l4, p1}

	done := View{IsCompleted: true}
	tests := []struct {
		name   string
		lesson Lesson
		views  map[int]View
		want   bool
	}{
		{name: "first lesson", lesson: l1, want: false},
		{name: "previous not started", lesson: l2, want: true},
		{name: "previous in progress", lesson: l2, views: map[int]View{1: {AttentionChecksPassed: 2}}, want: true},
		{name: "previous completed", lesson: l2, views: map[int]View{1: done}, want: false},
		{name: "lessons without video never lock", lesson: text, want: false},
		{name: "text lessons do not block", lesson: l4, views: map[int]View{1: done, 2: done}, want: false},
		{name: "any earlier lesson blocks", lesson: l4, views: map[int]View{2: done}, want: true},
		{name: "sequences are per lesson type", lesson: p1, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsLocked(tt.lesson, lessons, tt.views))
		})
	}
}

func Test_nextVideoLesson(t *testing.T) {
	l1 := video(1, 1, academics.Lecture)
	text := Lesson{ID: 2, SubjectID: 1, LessonType: academics.Lecture, Order: 2}
	l3 := video(3, 5, academics.Lecture)
	l4 := video(4, 3, academics.Lecture)
	p1 := video(5, 2, academics.Practice)
	lessons := []Lesson{l1, text, l3, l4, p1}

	next := nextVideoLesson(l1, lessons)
	require.NotNil(t, next)
	assert.Equal(t, 4, next.ID)

	assert.Nil(t, nextVideoLesson(l3, lessons))
	assert.Nil(t, nextVideoLesson(p1, lessons))
}

func TestView_PassAttentionCheck(t *testing.T) {
	var v View
	assert.Equal(t, NotStarted, (*View)(nil).State())
	assert.Equal(t, InProgress, v.State())

	t0 := time.Date(2024, 10, 1, 9, 0, 0, 0, time.UTC)
	for i := 1; i < RequiredAttentionChecks; i++ {
		assert.False(t, v.PassAttentionCheck(t0))
		assert.Equal(t, i, v.AttentionChecksPassed)
		assert.Nil(t, v.CompletedAt)
	}

	assert.True(t, v.PassAttentionCheck(t0), "completing check")
	assert.True(t, v.IsCompleted)
	require.NotNil(t, v.CompletedAt)
	assert.Equal(t, t0, *v.CompletedAt)
	assert.Equal(t, Completed, v.State())

	// counting goes on; completion happens once
	t1 := t0.Add(time.Hour)
	assert.False(t, v.PassAttentionCheck(t1))
	assert.Equal(t, RequiredAttentionChecks+1, v.AttentionChecksPassed)
	assert.Equal(t, t0, *v.CompletedAt)
	assert.Equal(t, t1, v.UpdatedAt)
}

func TestView_RecordWatchTime(t *testing.T) {
	var v View
	now := time.Now().UTC()

	v.RecordWatchTime(120, now)
	assert.Equal(t, 120, v.WatchDuration)
	v.RecordWatchTime(60, now)
	assert.Equal(t, 120, v.WatchDuration, "shorter reports are ignored")
	v.RecordWatchTime(300, now)
	assert.Equal(t, 300, v.WatchDuration)
}

func TestLessonForm_Validate(t *testing.T) {
	validate := validator.New()
	translator := core.NewTranslator()
	academics.InitValidators(validate, translator)
	InitValidators(validate, translator)

	tests := []struct {
		name    string
		form    LessonForm
		wantErr bool
	}{
		{name: "title required", form: LessonForm{Title: "   "}, wantErr: true},
		{name: "bad lesson type", form: LessonForm{Title: "Intro", LessonType: "seminar"}, wantErr: true},
		{name: "not youtube", form: LessonForm{Title: "Intro", VideoURL: "https://vimeo.com/12345678"}, wantErr: true},
		{name: "youtube", form: LessonForm{Title: "Intro", VideoURL: "https://www.youtube.com/watch?v=dQw4w9WgXcQ"}},
		{name: "short link", form: LessonForm{Title: "Intro", VideoURL: "youtu.be/dQw4w9WgXcQ"}},
		{name: "duration too long", form: LessonForm{Title: "Intro", Duration: 601}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := tt.form
			err := form.Validate(validate)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, academics.Lecture, form.LessonType)
		})
	}
}
