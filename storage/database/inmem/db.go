// Package inmemdb keeps every table in process memory. It backs the tests and the `memory` database driver.
package inmemdb

import (
	"sort"
	"sync"

	"github.com/trezcool/campus/core/academics"
	"github.com/trezcool/campus/core/announcement"
	"github.com/trezcool/campus/core/coursework"
	"github.com/trezcool/campus/core/lesson"
	"github.com/trezcool/campus/core/messaging"
	"github.com/trezcool/campus/core/payment"
	"github.com/trezcool/campus/core/user"
)

type viewKey struct {
	lessonID, studentID int
}

// DB guards all tables with a single lock, so cross-table reads are consistent.
type DB struct {
	mu  sync.RWMutex
	seq map[string]int

	users         map[int]user.User
	faculties     map[int]academics.Faculty
	groups        map[int]academics.Group
	subjects      map[int]academics.Subject
	tas           map[int]academics.TeacherAssignment
	schedule      map[int]academics.ScheduleEntry
	lessons       map[int]lesson.Lesson
	views         map[viewKey]lesson.View
	assignments   map[int]coursework.Assignment
	submissions   map[int]coursework.Submission
	messages      map[int]messaging.Message
	announcements map[int]announcement.Announcement
	payments      map[int]payment.Payment
}

func Open() *DB {
	return &DB{
		seq:           make(map[string]int),
		users:         make(map[int]user.User),
		faculties:     make(map[int]academics.Faculty),
		groups:        make(map[int]academics.Group),
		subjects:      make(map[int]academics.Subject),
		tas:           make(map[int]academics.TeacherAssignment),
		schedule:      make(map[int]academics.ScheduleEntry),
		lessons:       make(map[int]lesson.Lesson),
		views:         make(map[viewKey]lesson.View),
		assignments:   make(map[int]coursework.Assignment),
		submissions:   make(map[int]coursework.Submission),
		messages:      make(map[int]messaging.Message),
		announcements: make(map[int]announcement.Announcement),
		payments:      make(map[int]payment.Payment),
	}
}

// nextID must be called with the write lock held.
func (db *DB) nextID(table string) int {
	db.seq[table]++
	return db.seq[table]
}

// values returns the rows of a table ordered by primary key.
func values[T any](table map[int]T) []T {
	ids := make([]int, 0, len(table))
	for id := range table {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	rows := make([]T, len(ids))
	for i, id := range ids {
		rows[i] = table[id]
	}
	return rows
}
