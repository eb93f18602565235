package db

import (
	"strings"

	"github.com/dbuatti/danielebuatti-sub001/auth"
	"github.com/dbuatti/danielebuatti-sub001/internal/models"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// EnsureAdmin creates the admin account, or resets its password and admin flag if it exists.
func EnsureAdmin(conn *gorm.DB, email, name, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, errors.New("email and password are required")
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}
	var u models.User
	err = conn.Where("email = ?", email).First(&u).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		u = models.User{Email: email, Name: name, Password: hash, IsAdmin: true}
		if err := conn.Create(&u).Error; err != nil {
			return nil, errors.Wrap(err, "create admin")
		}
	case err != nil:
		return nil, errors.Wrap(err, "load admin")
	default:
		u.Password = hash
		u.IsAdmin = true
		if name != "" {
			u.Name = name
		}
		if err := conn.Save(&u).Error; err != nil {
			return nil, errors.Wrap(err, "update admin")
		}
	}
	return &u, nil
}
