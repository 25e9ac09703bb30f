package application

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/sirupsen/logrus"

	"user-management-api/internal/domain/entity"
	repo "user-management-api/internal/domain/repository"
	"user-management-api/pkg/helpers"
	"user-management-api/pkg/mailer"
)

// Service enforces the identity and credential invariants before any write
// reaches storage: one user per email, and password hashes that are only ever
// rotated after the caller proves knowledge of the current password.
type Service struct {
	Repo         repo.UserRepository
	Logger       *logrus.Logger
	Publisher    *helpers.RabbitPublisher
	ES           *elasticsearch.Client
	ESUsersIndex string
}

func NewService(r repo.UserRepository, logger *logrus.Logger, pub *helpers.RabbitPublisher, es *elasticsearch.Client, esUsersIndex string) *Service {
	return &Service{
		Repo:         r,
		Logger:       logger,
		Publisher:    pub,
		ES:           es,
		ESUsersIndex: esUsersIndex,
	}
}

// Profile is the caller-facing projection of a user record.
// Credential material never appears here.
type Profile struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func profileOf(u *entity.User) *Profile {
	return &Profile{ID: u.ID, Name: u.Name, Email: u.Email}
}

type CreateUserInput struct {
	Name            string
	Email           string
	Password        string
	PasswordConfirm string
}

type ChangePasswordInput struct {
	OldPassword     string
	NewPassword     string
	PasswordConfirm string
}

// ListUsers returns projections for all users. An empty slice is a valid result.
func (s *Service) ListUsers(ctx context.Context) ([]*Profile, error) {
	users, err := s.Repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*Profile, 0, len(users))
	for _, u := range users {
		out = append(out, profileOf(u))
	}
	return out, nil
}

// GetUser returns the projection for id, or ErrUserNotFound.
func (s *Service) GetUser(ctx context.Context, id string) (*Profile, error) {
	u, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return profileOf(u), nil
}

// IsEmailTaken reports whether a user with exactly this email already exists.
func (s *Service) IsEmailTaken(ctx context.Context, email string) (bool, error) {
	_, err := s.Repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// CreateUser validates the password pair, checks email uniqueness, hashes the
// password and persists the new user. The users.email UNIQUE constraint backs
// the pre-check, so concurrent creates with the same email cannot both win;
// the losing insert surfaces as ErrEmailAlreadyTaken too.
func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (*Profile, error) {
	if in.Password == "" || in.Password != in.PasswordConfirm {
		return nil, ErrInvalidPassword
	}

	taken, err := s.IsEmailTaken(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrEmailAlreadyTaken
	}

	hash, err := helpers.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	u := &entity.User{Name: in.Name, Email: in.Email, PasswordHash: hash}
	if err := s.Repo.Create(ctx, u); err != nil {
		if errors.Is(err, repo.ErrDuplicateEmail) {
			return nil, ErrEmailAlreadyTaken
		}
		return nil, err
	}

	s.publishEmail(ctx, mailer.EmailJob{To: u.Email, Template: mailer.TemplateWelcome, Name: u.Name})
	s.indexUser(ctx, u)
	return profileOf(u), nil
}

// UpdateUser changes name/email for an existing user. The uniqueness check
// only runs when the email actually changes, so updating a user to their own
// current email never fails.
func (s *Service) UpdateUser(ctx context.Context, id, name, email string) (*Profile, error) {
	u, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if email != u.Email {
		taken, err := s.IsEmailTaken(ctx, email)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, ErrEmailAlreadyTaken
		}
	}

	u.Name = name
	u.Email = email
	if err := s.Repo.Update(ctx, u); err != nil {
		switch {
		case errors.Is(err, repo.ErrDuplicateEmail):
			return nil, ErrEmailAlreadyTaken
		case errors.Is(err, repo.ErrNotFound):
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	s.indexUser(ctx, u)
	return profileOf(u), nil
}

// DeleteUser removes the user record. Missing ids fail with ErrUserNotFound.
func (s *Service) DeleteUser(ctx context.Context, id string) error {
	if err := s.Repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	s.removeFromIndex(ctx, id)
	return nil
}

// ChangePassword rotates the stored hash after verifying the old password
// against it. Nothing is written on any failure path.
func (s *Service) ChangePassword(ctx context.Context, id string, in ChangePasswordInput) error {
	u, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	if !helpers.PasswordMatches(u.PasswordHash, in.OldPassword) {
		return ErrInvalidPassword
	}
	if in.NewPassword == "" || in.NewPassword != in.PasswordConfirm {
		return ErrInvalidPassword
	}

	hash, err := helpers.HashPassword(in.NewPassword)
	if err != nil {
		return err
	}
	if err := s.Repo.UpdatePassword(ctx, id, hash); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	s.publishEmail(ctx, mailer.EmailJob{To: u.Email, Template: mailer.TemplatePasswordChanged, Name: u.Name})
	return nil
}

// publishEmail enqueues a notification job. Failures are logged and swallowed;
// email delivery never blocks or fails a user operation.
func (s *Service) publishEmail(ctx context.Context, job mailer.EmailJob) {
	if s.Publisher == nil {
		return
	}
	if err := s.Publisher.PublishJSON(ctx, job); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithField("template", job.Template).Warn("publish email job failed")
	}
}

func (s *Service) indexUser(ctx context.Context, u *entity.User) {
	if s.ES == nil || s.ESUsersIndex == "" {
		return
	}
	doc := map[string]any{
		"id":    u.ID,
		"name":  u.Name,
		"email": u.Email,
	}
	b, _ := json.Marshal(doc)
	req := esapi.IndexRequest{Index: s.ESUsersIndex, DocumentID: u.ID, Body: strings.NewReader(string(b)), Refresh: "false"}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(c, s.ES)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", u.ID).Warn("es index failed")
		}
		return
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && s.Logger != nil {
		s.Logger.WithField("status", res.Status()).WithField("user_id", u.ID).Warn("es index response error")
	}
}

func (s *Service) removeFromIndex(ctx context.Context, id string) {
	if s.ES == nil || s.ESUsersIndex == "" {
		return
	}
	req := esapi.DeleteRequest{Index: s.ESUsersIndex, DocumentID: id}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(c, s.ES)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", id).Warn("es delete failed")
		}
		return
	}
	_ = res.Body.Close()
}

// SearchUsers performs a simple multi_match search on email and name.
func (s *Service) SearchUsers(ctx context.Context, q string, size int) ([]map[string]any, error) {
	if s.ES == nil || s.ESUsersIndex == "" {
		return []map[string]any{}, nil
	}
	if size <= 0 || size > 50 {
		size = 10
	}
	query := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": []string{"email^2", "name"},
			},
		},
		"size": size,
	}
	b, _ := json.Marshal(query)

	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := s.ES.Search(
		s.ES.Search.WithContext(c),
		s.ES.Search.WithIndex(s.ESUsersIndex),
		s.ES.Search.WithBody(strings.NewReader(string(b))),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID     string         `json:"_id"`
				Source map[string]any `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	out := make([]map[string]any, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}
