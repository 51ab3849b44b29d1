package coursework

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/campus/core/academics"
)

func score(n int) *int { return &n }

const (
	lecturerID = 1
	tutorID    = 2
	strangerID = 3
)

func testClassifier(markers ...string) Classifier {
	return NewClassifier([]academics.TeacherAssignment{
		{TeacherID: lecturerID, LessonType: academics.Lecture},
		{TeacherID: tutorID, LessonType: academics.Practice},
	}, markers)
}

func TestClassifier_Classify(t *testing.T) {
	tests := []struct {
		name string
		c    Classifier
		a    Assignment
		want academics.LessonType
	}{
		{name: "lecture teacher", c: testClassifier("amaliy"), a: Assignment{CreatedBy: lecturerID, Title: "Amaliy 1"}, want: academics.Lecture},
		{name: "practice teacher", c: testClassifier(), a: Assignment{CreatedBy: tutorID, Title: "Homework"}, want: academics.Practice},
		{name: "title marker", c: testClassifier("amaliy"), a: Assignment{CreatedBy: strangerID, Title: "1-AMALIY ish"}, want: academics.Practice},
		{name: "blank markers are ignored", c: testClassifier("  "), a: Assignment{CreatedBy: strangerID, Title: "Essay"}, want: academics.Lecture},
		{name: "defaults to lecture", c: testClassifier("amaliy"), a: Assignment{CreatedBy: strangerID, Title: "Essay"}, want: academics.Lecture},
		{
			name: "teacher of both types",
			c: NewClassifier([]academics.TeacherAssignment{
				{TeacherID: lecturerID, LessonType: academics.Practice},
				{TeacherID: lecturerID, LessonType: academics.Lecture},
			}, nil),
			a:    Assignment{CreatedBy: lecturerID},
			want: academics.Lecture,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.c.Classify(tt.a))
		})
	}
}

func TestAggregate(t *testing.T) {
	assignments := []Assignment{
		{ID: 1, CreatedBy: lecturerID, Title: "HW1", MaxScore: 100},
		{ID: 2, CreatedBy: lecturerID, Title: "HW2", MaxScore: 100},
		{ID: 3, CreatedBy: tutorID, Title: "Lab", MaxScore: 50},
		{ID: 4, CreatedBy: tutorID, Title: "Lab 2", MaxScore: 50},
	}

	tests := []struct {
		name string
		subs map[int]Submission
		want Breakdown
	}{
		{
			name: "nothing submitted",
			want: Breakdown{Lecture: Bucket{Max: 200}, Practice: Bucket{Max: 100}, Total: Bucket{Max: 300}},
		},
		{
			name: "ungraded submissions score nothing",
			subs: map[int]Submission{1: {AssignmentID: 1}, 3: {AssignmentID: 3, Score: score(40)}},
			want: Breakdown{Lecture: Bucket{Max: 200}, Practice: Bucket{Score: 40, Max: 100}, Total: Bucket{Score: 40, Max: 300}},
		},
		{
			name: "all graded",
			subs: map[int]Submission{
				1: {AssignmentID: 1, Score: score(90)},
				2: {AssignmentID: 2, Score: score(80)},
				3: {AssignmentID: 3, Score: score(40)},
				4: {AssignmentID: 4, Score: score(0)},
			},
			want: Breakdown{Lecture: Bucket{Score: 170, Max: 200}, Practice: Bucket{Score: 40, Max: 100}, Total: Bucket{Score: 210, Max: 300}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Aggregate(testClassifier(), assignments, tt.subs)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got.Lecture.plus(got.Practice), got.Total)
		})
	}

	t.Run("one lecture and one practice assignment", func(t *testing.T) {
		two := []Assignment{
			{ID: 1, CreatedBy: lecturerID, Title: "Essay", MaxScore: 100},
			{ID: 2, CreatedBy: tutorID, Title: "Lab", MaxScore: 100},
		}
		subs := map[int]Submission{
			1: {AssignmentID: 1, Score: score(80)},
			2: {AssignmentID: 2, Score: score(90)},
		}
		want := Breakdown{
			Lecture:  Bucket{Score: 80, Max: 100},
			Practice: Bucket{Score: 90, Max: 100},
			Total:    Bucket{Score: 170, Max: 200},
		}
		assert.Equal(t, want, Aggregate(testClassifier(), two, subs))
	})

	t.Run("no assignments", func(t *testing.T) {
		assert.Equal(t, Breakdown{}, Aggregate(testClassifier(), nil, nil))
	})
}
