package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/prn-tf/ballotbox/internal/activity"
	"github.com/prn-tf/ballotbox/internal/domain"
	"github.com/prn-tf/ballotbox/internal/repository"
)

// UserService handles voter registration and login.
type UserService struct {
	state      *StateManager
	bcryptCost int
	logger     zerolog.Logger
}

// NewUserService creates a new UserService.
func NewUserService(state *StateManager, bcryptCost int, logger zerolog.Logger) *UserService {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &UserService{
		state:      state,
		bcryptCost: bcryptCost,
		logger:     logger.With().Str("service", "user").Logger(),
	}
}

// RegisterInput contains the data needed to register a voter.
type RegisterInput struct {
	FullName string
	NID      string
	Password string
}

// RegisterOutput contains the result of a registration.
type RegisterOutput struct {
	User      domain.User
	Persisted bool
}

// Register validates the input and adds a new voter.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (out *RegisterOutput, err error) {
	defer func() { s.state.Metrics().RecordRegistration(err) }()

	if err := s.validateRegisterInput(input); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.bcryptCost)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to hash password")
		return nil, fmt.Errorf("%w: failed to hash password", ErrInternalError)
	}

	user := domain.NewUser(input.FullName, input.NID, string(hash))

	persisted, err := s.state.Mutate(ctx, "register", func(dir repository.Directory) error {
		_, err := dir.AddUser(user)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.state.Record(activity.ActionUserRegistered, activity.ActorOf(user))
	s.logger.Info().Str("nid", user.NID).Bool("persisted", persisted).Msg("user registered")

	return &RegisterOutput{User: user, Persisted: persisted}, nil
}

// validateRegisterInput checks the fields in the order they are collected.
func (s *UserService) validateRegisterInput(input RegisterInput) error {
	if strings.TrimSpace(input.FullName) == "" {
		return domain.ErrEmptyFullName
	}
	if err := domain.CheckText("full name", input.FullName, domain.MaxFullNameLength); err != nil {
		return err
	}
	if !domain.ValidateNID(input.NID) {
		return domain.ErrInvalidNID
	}
	if _, exists := s.state.Directory().FindUserByIdentifier(input.NID); exists {
		return domain.NewDomainError(domain.ErrUserAlreadyExists, "registration rejected", input.NID)
	}
	if !domain.ValidatePassword(input.Password) {
		return domain.ErrWeakPassword
	}
	return nil
}

// Authenticate verifies a voter's NID and password and returns the user.
// Accounts still carrying a legacy checksum token are upgraded to bcrypt.
func (s *UserService) Authenticate(ctx context.Context, nid, password string) (user *domain.User, err error) {
	defer func() { s.state.Metrics().RecordLogin("voter", err) }()

	dir := s.state.Directory()
	idx, ok := dir.FindUserByIdentifier(nid)
	if !ok {
		// Don't reveal whether the NID exists.
		s.logger.Debug().Str("nid", nid).Msg("user not found during authentication")
		s.state.Record(activity.ActionFailedLogin, nil)
		return nil, domain.ErrInvalidCredentials
	}
	u, _ := dir.User(idx)

	match, legacy := verifyPassword(u.PasswordHash, password)
	if !match {
		s.logger.Debug().Str("nid", nid).Msg("invalid password during authentication")
		s.state.Record(activity.ActionFailedLogin, nil)
		return nil, domain.ErrInvalidCredentials
	}

	if legacy {
		s.upgradeHash(ctx, idx, u, password)
	}

	s.state.Record(activity.ActionUserLoggedIn, activity.ActorOf(u))
	s.logger.Info().Str("nid", u.NID).Msg("user authenticated")

	return &u, nil
}

// upgradeHash replaces a legacy token with a bcrypt hash. Failure leaves
// the legacy token in place and does not affect the login.
func (s *UserService) upgradeHash(ctx context.Context, idx int, u domain.User, password string) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		s.logger.Warn().Err(err).Str("nid", u.NID).Msg("failed to upgrade password hash")
		return
	}

	_, err = s.state.Mutate(ctx, "rehash", func(dir repository.Directory) error {
		return dir.Update(func(tx *repository.Tx) error {
			target := tx.User(idx)
			if target == nil || target.NID != u.NID {
				return domain.ErrUserNotFound
			}
			target.PasswordHash = string(hash)
			return nil
		})
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("nid", u.NID).Msg("failed to upgrade password hash")
		return
	}

	s.state.Record(activity.ActionPasswordRehashed, activity.ActorOf(u))
}

// verifyPassword compares password with a stored token. legacy reports a
// match against the old checksum format.
func verifyPassword(stored, password string) (match, legacy bool) {
	if strings.HasPrefix(stored, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil, false
	}
	if !strings.HasPrefix(stored, "H") {
		return false, false
	}
	ok := subtle.ConstantTimeCompare([]byte(stored), []byte(LegacyHash(password))) == 1
	return ok, ok
}

// LegacyHash computes the checksum token older data files store in place of
// a password hash: a base-31 rolling sum modulo 100000, prefixed with "H".
func LegacyHash(password string) string {
	hash := 0
	for i := 0; i < len(password); i++ {
		// Bytes are summed as signed chars.
		hash = (hash*31 + int(int8(password[i]))) % 100000
	}
	return "H" + strconv.Itoa(hash)
}
