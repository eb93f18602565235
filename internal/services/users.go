package services

import (
	"context"
	"strings"

	"github.com/dbuatti/danielebuatti-sub001/auth"
	"github.com/dbuatti/danielebuatti-sub001/internal/apperr"
	"github.com/dbuatti/danielebuatti-sub001/internal/models"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// Authenticate checks an email/password pair. Unknown email and wrong password are
// indistinguishable to the caller.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&u).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrap(err, "load user")
	}
	if err != nil || !auth.CheckPassword(password, u.Password) {
		return nil, errors.Wrap(apperr.ErrUnauthenticated, "invalid email or password")
	}
	return &u, nil
}

// Principal resolves a session user id. It is the auth.PrincipalResolver of the server.
func (s *UserService) Principal(ctx context.Context, uid uint) (auth.Principal, bool) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, uid).Error; err != nil {
		return auth.Principal{}, false
	}
	return auth.Principal{UserID: u.ID, Email: u.Email, Admin: u.IsAdmin}, true
}
