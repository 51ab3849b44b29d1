package announcement

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/user"
)

var ErrNotFound = core.NewNotFoundError("announcement not found")

type (
	Announcement struct {
		ID          int       `json:"id"`
		Title       string    `json:"title"`
		Content     string    `json:"content"`
		IsImportant bool      `json:"is_important"`
		TargetRoles []string  `json:"target_roles"` // empty: everyone
		AuthorID    int       `json:"author_id"`
		FacultyID   int       `json:"faculty_id,omitempty"` // dean authors
		CreatedAt   time.Time `json:"created_at"`
	}

	Form struct {
		Title       string   `json:"title" validate:"required,max=200"`
		Content     string   `json:"content" validate:"required"`
		IsImportant bool     `json:"is_important"`
		TargetRoles []string `json:"target_roles" validate:"omitempty,dive,role"`
	}

	Repository interface {
		CreateAnnouncement(ctx context.Context, a Announcement) (Announcement, error)
		GetAnnouncement(ctx context.Context, id int) (Announcement, error)
		DeleteAnnouncement(ctx context.Context, id int) error
		// QueryAnnouncements returns the announcements targeting `role` (all when empty),
		// important ones first, then newest first.
		QueryAnnouncements(ctx context.Context, role string) ([]Announcement, error)
	}

	Service struct {
		repo     Repository
		validate *validator.Validate
	}
)

// VisibleTo reports whether the announcement targets `role`.
func (a Announcement) VisibleTo(role string) bool {
	if len(a.TargetRoles) == 0 {
		return true
	}
	for _, r := range a.TargetRoles {
		if r == role {
			return true
		}
	}
	return false
}

func (f *Form) Validate(validate *validator.Validate) error {
	f.Title = core.CleanString(f.Title)
	f.Content = core.CleanString(f.Content)
	for i, r := range f.TargetRoles {
		f.TargetRoles[i] = core.CleanString(r, true /* lower */)
	}
	return validate.Struct(f)
}

func NewService(repo Repository, validate *validator.Validate) *Service {
	return &Service{repo: repo, validate: validate}
}

// Create publishes an announcement; only admins and deans may.
func (svc *Service) Create(ctx context.Context, actor user.User, form Form) (Announcement, error) {
	if !(actor.IsAdmin() || actor.IsDean()) {
		return Announcement{}, core.ErrPermissionDenied
	}
	if err := form.Validate(svc.validate); err != nil {
		return Announcement{}, err
	}
	a := Announcement{
		Title:       form.Title,
		Content:     form.Content,
		IsImportant: form.IsImportant,
		TargetRoles: form.TargetRoles,
		AuthorID:    actor.ID,
		CreatedAt:   time.Now().UTC(),
	}
	if a.TargetRoles == nil {
		a.TargetRoles = []string{}
	}
	if actor.IsDean() {
		a.FacultyID = actor.FacultyID
	}
	a, err := svc.repo.CreateAnnouncement(ctx, a)
	return a, errors.Wrap(err, "creating announcement")
}

// List returns what the actor should read; admins see everything.
func (svc *Service) List(ctx context.Context, actor user.User) ([]Announcement, error) {
	role := actor.Role
	if actor.IsAdmin() {
		role = ""
	}
	return svc.repo.QueryAnnouncements(ctx, role)
}

// Delete removes an announcement; deans may only delete their own.
func (svc *Service) Delete(ctx context.Context, actor user.User, id int) error {
	a, err := svc.repo.GetAnnouncement(ctx, id)
	if err != nil {
		return err
	}
	if !(actor.IsAdmin() || (actor.IsDean() && a.AuthorID == actor.ID)) {
		return core.ErrPermissionDenied
	}
	return errors.Wrap(svc.repo.DeleteAnnouncement(ctx, id), "deleting announcement")
}
