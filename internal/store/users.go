package store

import (
	"context"
	"fmt"

	"shoestore/internal/models"
)

const userSelect = `
	SELECT u.id, u.login, u.password_hash, u.full_name, u.role_id, r.name AS role_name
	FROM users u
	LEFT JOIN roles r ON r.id = u.role_id`

// GetUserByLogin retrieves a user and its role name by login
func (s *Store) GetUserByLogin(ctx context.Context, login string) (*models.User, error) {
	var user models.User
	if err := s.db.GetContext(ctx, &user, userSelect+"\n\tWHERE u.login = $1", login); err != nil {
		return nil, translate(err, fmt.Sprintf("user %q", login))
	}
	return &user, nil
}

// GetUserByID retrieves a user and its role name by ID
func (s *Store) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	if err := s.db.GetContext(ctx, &user, userSelect+"\n\tWHERE u.id = $1", id); err != nil {
		return nil, translate(err, fmt.Sprintf("user %d", id))
	}
	return &user, nil
}

// CreateUser inserts a user. An empty roleName leaves the role unset.
func (s *Store) CreateUser(ctx context.Context, user *models.User, roleName string) error {
	if roleName != "" {
		var roleID int64
		if err := s.db.GetContext(ctx, &roleID, "SELECT id FROM roles WHERE name = $1", roleName); err != nil {
			return translate(err, fmt.Sprintf("role %q", roleName))
		}
		user.RoleID = &roleID
		user.RoleName = &roleName
	}

	err := s.db.GetContext(ctx, &user.ID, `
		INSERT INTO users (login, password_hash, full_name, role_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		user.Login, user.PasswordHash, user.FullName, user.RoleID)
	return translate(err, fmt.Sprintf("create user %q", user.Login))
}

// ListRoles returns the known roles
func (s *Store) ListRoles(ctx context.Context) ([]models.Role, error) {
	out := []models.Role{}
	err := s.db.SelectContext(ctx, &out, "SELECT id, name FROM roles ORDER BY id")
	return out, translate(err, "list roles")
}
