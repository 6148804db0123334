package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/boxoffice/internal/domain"
)

// userSeenTTL limits directory writes to one per user per window.
const userSeenTTL = 10 * time.Minute

// UserUseCase maintains the directory of users seen through verified tokens.
type UserUseCase struct {
	userRepo UserRepository
	cache    Cache
	clock    Clock
	logger   zerolog.Logger
}

// NewUserUseCase creates a new user use case. cache may be nil.
func NewUserUseCase(userRepo UserRepository, cache Cache, logger zerolog.Logger) *UserUseCase {
	return &UserUseCase{
		userRepo: userRepo,
		cache:    cache,
		clock:    SystemClock,
		logger:   logger.With().Str("component", "users").Logger(),
	}
}

// Touch records the verified identity so other users can address it by email.
func (uc *UserUseCase) Touch(ctx context.Context, user *domain.User) error {
	if user == nil || user.ID == "" {
		return domain.ErrUnauthorized
	}

	key := "user:seen:" + user.ID
	if uc.cache != nil {
		if v, err := uc.cache.Get(ctx, key); err == nil && string(v) == strings.ToLower(user.Email) {
			return nil
		}
	}

	now := uc.clock.Now()
	record := *user
	record.Email = strings.ToLower(strings.TrimSpace(record.Email))
	if !record.Role.IsValid() {
		record.Role = domain.RoleCustomer
	}
	record.CreatedAt = now
	record.UpdatedAt = now

	if err := uc.userRepo.Upsert(ctx, &record); err != nil {
		return err
	}

	if uc.cache != nil {
		if err := uc.cache.Set(ctx, key, []byte(record.Email), userSeenTTL); err != nil {
			uc.logger.Warn().Err(err).Str("user_id", user.ID).Msg("failed to cache user directory entry")
		}
	}

	return nil
}

// GetUser retrieves a user by ID.
func (uc *UserUseCase) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return uc.userRepo.GetByID(ctx, id)
}

// ResolveUserID maps an email or a user id to the id of a user in the directory.
func (uc *UserUseCase) ResolveUserID(ctx context.Context, emailOrID string) (string, error) {
	return resolveUserID(ctx, uc.userRepo, emailOrID)
}

// resolveUserID only returns ids the directory knows, so a mistyped recipient
// fails instead of receiving a ticket or funds nobody can claim.
func resolveUserID(ctx context.Context, users UserRepository, emailOrID string) (string, error) {
	emailOrID = strings.TrimSpace(emailOrID)
	if emailOrID == "" || users == nil {
		return "", domain.ErrUserNotFound
	}

	var (
		user *domain.User
		err  error
	)
	if domain.IsEmail(emailOrID) {
		user, err = users.GetByEmail(ctx, strings.ToLower(emailOrID))
	} else {
		user, err = users.GetByID(ctx, emailOrID)
	}
	if err != nil {
		return "", err
	}

	return user.ID, nil
}
