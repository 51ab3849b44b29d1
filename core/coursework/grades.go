package coursework

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/trezcool/campus/core/academics"
)

var fold = cases.Fold()

type Bucket struct {
	Score int `json:"score"`
	Max   int `json:"max"`
}

func (b Bucket) plus(o Bucket) Bucket {
	return Bucket{Score: b.Score + o.Score, Max: b.Max + o.Max}
}

// Breakdown holds the grades of one student in one subject. Total is always Lecture + Practice.
type Breakdown struct {
	Lecture  Bucket `json:"lecture"`
	Practice Bucket `json:"practice"`
	Total    Bucket `json:"total"`
}

// Classifier sorts the assignments of one (subject, group) into lecture and practice work.
type Classifier struct {
	lectureTeachers  map[int]bool
	practiceTeachers map[int]bool
	markers          []string
}

// NewClassifier is built from the teacher assignments of a single (subject, group)
// and the title markers of practice work.
func NewClassifier(tas []academics.TeacherAssignment, practiceMarkers []string) Classifier {
	c := Classifier{lectureTeachers: map[int]bool{}, practiceTeachers: map[int]bool{}}
	for _, ta := range tas {
		switch ta.LessonType {
		case academics.Lecture:
			c.lectureTeachers[ta.TeacherID] = true
		case academics.Practice:
			c.practiceTeachers[ta.TeacherID] = true
		}
	}
	for _, m := range practiceMarkers {
		if m = strings.TrimSpace(m); m != "" {
			c.markers = append(c.markers, fold.String(m))
		}
	}
	return c
}

// Classify: the lecture teacher's work first, then the practice teacher's, then the title markers.
func (c Classifier) Classify(a Assignment) academics.LessonType {
	switch {
	case c.lectureTeachers[a.CreatedBy]:
		return academics.Lecture
	case c.practiceTeachers[a.CreatedBy]:
		return academics.Practice
	}
	title := fold.String(a.Title)
	for _, m := range c.markers {
		if strings.Contains(title, m) {
			return academics.Practice
		}
	}
	return academics.Lecture
}

// Aggregate sums a student's scores. Every assignment counts toward its bucket's max;
// only graded submissions (keyed by assignment ID) add to the score.
func Aggregate(c Classifier, assignments []Assignment, subs map[int]Submission) Breakdown {
	var bd Breakdown
	for _, a := range assignments {
		b := Bucket{Max: a.MaxScore}
		if s, ok := subs[a.ID]; ok && s.Score != nil {
			b.Score = *s.Score
		}
		if c.Classify(a) == academics.Practice {
			bd.Practice = bd.Practice.plus(b)
		} else {
			bd.Lecture = bd.Lecture.plus(b)
		}
	}
	bd.Total = bd.Lecture.plus(bd.Practice)
	return bd
}

// StudentGrades is one row of a group's grade sheet.
type StudentGrades struct {
	StudentID   int       `json:"student_id"`
	Name        string    `json:"name"`
	StudentCode string    `json:"student_code,omitempty"`
	Grades      Breakdown `json:"grades"`
}

// SubjectGrades is one subject of a student's grade book.
type SubjectGrades struct {
	Subject     academics.Subject `json:"subject"`
	Grades      Breakdown         `json:"grades"`
	Assignments []GradedWork      `json:"assignments"`
}

type GradedWork struct {
	Assignment Assignment           `json:"assignment"`
	Category   academics.LessonType `json:"category"`
	Submission *Submission          `json:"submission"`
}
