package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/dealposter/internal/config"
	"github.com/dealposter/internal/model"
)

const adminID = "admin"

// ErrLoginDisabled is returned when no admin password is configured.
var ErrLoginDisabled = errors.New("admin login disabled")

// AdminStore holds the single operator account configured at startup.
type AdminStore struct {
	admin *model.Admin
}

// NewAdminStore builds the store from cfg. A plain password is hashed once;
// a preset bcrypt hash takes precedence.
func NewAdminStore(cfg config.AdminConfig) (*AdminStore, error) {
	hash := strings.TrimSpace(cfg.PasswordHash)
	if hash == "" && cfg.Password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(cfg.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash admin password: %w", err)
		}
		hash = string(hashed)
	}
	if hash == "" {
		return &AdminStore{}, nil
	}

	return &AdminStore{admin: &model.Admin{
		ID:           adminID,
		Email:        strings.ToLower(strings.TrimSpace(cfg.Email)),
		PasswordHash: hash,
		Role:         model.UserRoleAdmin,
	}}, nil
}

// Enabled reports whether password login is possible.
func (s *AdminStore) Enabled() bool {
	return s.admin != nil
}

// Authenticate returns the admin when email and password match.
func (s *AdminStore) Authenticate(ctx context.Context, email, password string) (*model.Admin, error) {
	if s.admin == nil {
		return nil, ErrLoginDisabled
	}
	if !strings.EqualFold(strings.TrimSpace(email), s.admin.Email) {
		return nil, nil
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.admin.PasswordHash), []byte(password)); err != nil {
		return nil, nil
	}
	admin := *s.admin
	return &admin, nil
}
