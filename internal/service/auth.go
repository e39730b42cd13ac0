package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"facility-inspect/internal/logger"
	"facility-inspect/internal/model"

	"gorm.io/gorm"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

const minPasswordLen = 8

// UserService owns the users table: login and admin account management.
type UserService struct{ db *gorm.DB }

func NewUserService(db *gorm.DB) *UserService { return &UserService{db: db} }

func (s *UserService) conn(ctx context.Context) (*gorm.DB, error) {
	if s.db == nil {
		return nil, ErrConnection
	}
	return s.db.WithContext(ctx), nil
}

func (s *UserService) Login(ctx context.Context, email, password string) (*model.User, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	var u model.User
	if err := db.Where("email = ?", normalizeEmail(email)).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, classifyDBError("find user", err)
	}
	if !u.CheckPassword(password) {
		return nil, ErrInvalidCredentials
	}
	return &u, nil
}

func (s *UserService) Get(ctx context.Context, email string) (*model.User, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	var u model.User
	if err := db.Where("email = ?", normalizeEmail(email)).First(&u).Error; err != nil {
		return nil, classifyDBError("get user", err)
	}
	return &u, nil
}

func (s *UserService) List(ctx context.Context) ([]model.User, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	var users []model.User
	if err := db.Order("email").Find(&users).Error; err != nil {
		return nil, classifyDBError("list users", err)
	}
	return users, nil
}

func (s *UserService) Create(ctx context.Context, in model.UserInput) (*model.User, error) {
	email := normalizeEmail(in.Email)
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return nil, validation("email", "a valid email is required")
	}
	if len(in.Password) < minPasswordLen {
		return nil, validation("password", fmt.Sprintf("password must be at least %d characters", minPasswordLen))
	}
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}

	u := &model.User{
		Email:     email,
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Position:  strings.TrimSpace(in.Position),
		IsAdmin:   in.IsAdmin,
	}
	if err := u.SetPassword(in.Password); err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	var n int64
	if err := db.Model(&model.User{}).Where("email = ?", email).Count(&n).Error; err != nil {
		return nil, classifyDBError("check user", err)
	}
	if n > 0 {
		return nil, validation("email", "user already exists: "+email)
	}
	if err := db.Create(u).Error; err != nil {
		return nil, classifyDBError("create user", err)
	}
	logger.Info("user.create", "email", email, "admin", u.IsAdmin)
	return u, nil
}

// Update changes profile fields and the admin flag. A non-empty password is re-hashed.
func (s *UserService) Update(ctx context.Context, email string, in model.UserInput) (*model.User, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	u, err := s.Get(ctx, email)
	if err != nil {
		return nil, err
	}

	u.FirstName = strings.TrimSpace(in.FirstName)
	u.LastName = strings.TrimSpace(in.LastName)
	u.Position = strings.TrimSpace(in.Position)
	u.IsAdmin = in.IsAdmin
	if in.Password != "" {
		if len(in.Password) < minPasswordLen {
			return nil, validation("password", fmt.Sprintf("password must be at least %d characters", minPasswordLen))
		}
		if err := u.SetPassword(in.Password); err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
	}

	err = db.Model(&model.User{}).Where("email = ?", u.Email).Updates(map[string]interface{}{
		"first_name":    u.FirstName,
		"last_name":     u.LastName,
		"position":      u.Position,
		"is_admin":      u.IsAdmin,
		"password_hash": u.PasswordHash,
	}).Error
	if err != nil {
		return nil, classifyDBError("update user", err)
	}
	logger.Info("user.update", "email", u.Email, "admin", u.IsAdmin, "password_changed", in.Password != "")
	return u, nil
}

func (s *UserService) Delete(ctx context.Context, email string) error {
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}
	res := db.Where("email = ?", normalizeEmail(email)).Delete(&model.User{})
	if res.Error != nil {
		return classifyDBError("delete user", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	logger.Info("user.delete", "email", email)
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
