package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/kindergrid/kindergrid/internal/auth/domain"
	"github.com/kindergrid/kindergrid/internal/auth/store"
	"github.com/kindergrid/kindergrid/pkg/cryptox"
	"github.com/kindergrid/kindergrid/pkg/idx"
)

var (
	ErrUsernameTaken  = errors.New("username_taken")
	ErrInvalidRequest = errors.New("invalid_request")
)

// MinPasswordLen keeps trivial passwords out. Not a policy engine.
const MinPasswordLen = 8

// AccountService creates principals: guardian registration and dependent
// profiles. It never touches tokens.
type AccountService struct {
	Store store.Store
}

// RegisterGuardian creates a guardian account with an argon2id password
// hash.
func (s *AccountService) RegisterGuardian(ctx context.Context, username, displayName, password string) (domain.Guardian, error) {
	username = strings.TrimSpace(username)
	displayName = strings.TrimSpace(displayName)

	if username == "" || len(password) < MinPasswordLen {
		return domain.Guardian{}, ErrInvalidRequest
	}
	if displayName == "" {
		displayName = username
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return domain.Guardian{}, err
	}

	now := time.Now()
	g := domain.Guardian{
		ID:           idx.New().String(),
		Username:     username,
		DisplayName:  displayName,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.Store.Guardians().Create(ctx, g); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.Guardian{}, ErrUsernameTaken
		}
		return domain.Guardian{}, err
	}

	return g, nil
}

// CreateDependent creates a dependent profile under the given guardian. The
// guardian reference is fixed at creation.
func (s *AccountService) CreateDependent(ctx context.Context, guardianID, name string, band domain.AgeBand) (domain.Dependent, error) {
	name = strings.TrimSpace(name)
	if name == "" || !domain.KnownAgeBand(band) {
		return domain.Dependent{}, ErrInvalidRequest
	}

	if _, err := s.Store.Guardians().GetByID(ctx, guardianID); err != nil {
		return domain.Dependent{}, err
	}

	now := time.Now()
	d := domain.Dependent{
		ID:         idx.New().String(),
		GuardianID: guardianID,
		Name:       name,
		AgeBand:    band,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.Store.Dependents().Create(ctx, d); err != nil {
		return domain.Dependent{}, err
	}

	return d, nil
}

// ListDependents returns the guardian's dependent profiles.
func (s *AccountService) ListDependents(ctx context.Context, guardianID string) ([]domain.Dependent, error) {
	return s.Store.Dependents().ListByGuardian(ctx, guardianID)
}
