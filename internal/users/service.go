package users

import (
	"context"
	"errors"
	"mime/multipart"
	"time"

	"github.com/rs/zerolog/log"

	"absensi/internal/apperr"
	"absensi/internal/lock"
	"absensi/internal/metrics"
)

const (
	msgRegisterRequired = "username, kelas and image are required"
	msgUpdateRequired   = "username and kelas are required"
	msgUserNotFound     = "user not found"
	msgUsernameTaken    = "username already registered"
)

// ErrUsernameTaken is the conflict reported for a duplicate registration.
var ErrUsernameTaken = apperr.Conflict(msgUsernameTaken)

// Store is the persistence the service needs; *Repository implements it.
type Store interface {
	List(ctx context.Context) ([]User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	UsernameTaken(ctx context.Context, username string) (bool, error)
	Insert(ctx context.Context, u *User) error
	Update(ctx context.Context, id int64, username, kelas string, images *string) (int64, error)
	Delete(ctx context.Context, id int64) (int64, error)
}

// ImageStore persists an already validated upload and returns its public path.
type ImageStore interface {
	Save(fh *multipart.FileHeader) (string, error)
}

// RegisterInput is a registration request.
type RegisterInput struct {
	Username string
	Kelas    string
	Image    *multipart.FileHeader
}

// UpdateInput rewrites a user. Image is optional.
type UpdateInput struct {
	Username string
	Kelas    string
	Image    *multipart.FileHeader
}

// Service implements the user registry operations.
type Service struct {
	repo    Store
	images  ImageStore
	locker  lock.Locker
	lockTTL time.Duration
	metrics *metrics.Metrics
}

// NewService wires a registry service. A nil locker falls back to an
// in-process one.
func NewService(repo Store, images ImageStore, locker lock.Locker, m *metrics.Metrics) *Service {
	if locker == nil {
		locker = lock.NewInMemory()
	}
	return &Service{repo: repo, images: images, locker: locker, lockTTL: 30 * time.Second, metrics: m}
}

// List returns all users ordered by creation time, newest first.
func (s *Service) List(ctx context.Context) ([]User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperr.Internal(err, "failed to fetch users")
	}
	return users, nil
}

// Get looks a user up by exact username.
func (s *Service) Get(ctx context.Context, username string) (*User, error) {
	u, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return nil, apperr.Internal(err, "failed to fetch user")
	}
	if u == nil {
		return nil, apperr.NotFound(msgUserNotFound)
	}
	return u, nil
}

// Register enrolls a new user. The username is locked for the duration so
// concurrent registrations of the same name cannot both pass the pre-check;
// the unique index backs this up across lock expiry.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	if in.Username == "" || in.Kelas == "" || in.Image == nil {
		return nil, apperr.Validation(msgRegisterRequired)
	}

	release, err := s.locker.Acquire(ctx, "register:"+in.Username, s.lockTTL)
	if errors.Is(err, lock.ErrHeld) {
		s.metrics.ObserveRegistration("conflict")
		return nil, ErrUsernameTaken
	}
	if err != nil {
		s.metrics.ObserveRegistration("error")
		return nil, apperr.Internal(err, "failed to register user")
	}
	defer release()

	taken, err := s.repo.UsernameTaken(ctx, in.Username)
	if err != nil {
		s.metrics.ObserveRegistration("error")
		return nil, apperr.Internal(err, "failed to register user")
	}
	if taken {
		s.metrics.ObserveRegistration("conflict")
		return nil, ErrUsernameTaken
	}

	path, err := s.images.Save(in.Image)
	if err != nil {
		s.metrics.ObserveRegistration("error")
		return nil, apperr.Internal(err, "failed to register user")
	}

	u := &User{Username: in.Username, Images: path, Kelas: in.Kelas}
	if err := s.repo.Insert(ctx, u); err != nil {
		// The image stays on disk; there is no compensation step.
		if errors.Is(err, ErrDuplicate) {
			s.metrics.ObserveRegistration("conflict")
			return nil, ErrUsernameTaken
		}
		s.metrics.ObserveRegistration("error")
		return nil, apperr.Internal(err, "failed to register user")
	}

	s.metrics.ObserveRegistration("created")
	log.Info().Int64("user_id", u.ID).Str("username", u.Username).Msg("user registered")
	return u, nil
}

// Update rewrites username and kelas, and the image path only when a new
// file is supplied. Unknown ids affect no rows and still succeed.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) error {
	if in.Username == "" || in.Kelas == "" {
		return apperr.Validation(msgUpdateRequired)
	}

	var images *string
	if in.Image != nil {
		path, err := s.images.Save(in.Image)
		if err != nil {
			return apperr.Internal(err, "failed to update user")
		}
		images = &path
	}

	affected, err := s.repo.Update(ctx, id, in.Username, in.Kelas, images)
	if errors.Is(err, ErrDuplicate) {
		return ErrUsernameTaken
	}
	if err != nil {
		return apperr.Internal(err, "failed to update user")
	}
	log.Debug().Int64("user_id", id).Int64("affected", affected).Msg("user updated")
	return nil
}

// Delete removes a user by id. Deleting an unknown id succeeds.
func (s *Service) Delete(ctx context.Context, id int64) error {
	affected, err := s.repo.Delete(ctx, id)
	if err != nil {
		return apperr.Internal(err, "failed to delete user")
	}
	log.Debug().Int64("user_id", id).Int64("affected", affected).Msg("user deleted")
	return nil
}
