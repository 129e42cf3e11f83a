package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/negotiation-hub/negotiation-hub/internal/domain/user"
)

const userColumns = `u.id, u.user_id, u.username, u.email, u.password_hash, u.role, u.status, u.created_at, u.updated_at,
	ARRAY(SELECT ur.resource_id FROM user_resources ur WHERE ur.user_id = u.user_id ORDER BY ur.resource_id)`

// UserRepository implements user.Repository.
type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users
		(user_id, username, email, password_hash, role, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING id
	`, u.UserID, u.Username, u.Email, u.PasswordHash, u.Role, u.Status, u.CreatedAt, u.UpdatedAt)
	return row.Scan(&u.ID)
}

func (r *UserRepository) Update(ctx context.Context, u *user.User) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE users
		SET username=$1, email=$2, password_hash=$3, role=$4, status=$5, updated_at=$6
		WHERE user_id=$7
	`, u.Username, u.Email, u.PasswordHash, u.Role, u.Status, u.UpdatedAt, u.UserID)
	return err
}

func (r *UserRepository) GetByID(ctx context.Context, userID uuid.UUID) (*user.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users u WHERE u.user_id=$1`, userID)
	return scanUser(row)
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users u WHERE u.username=$1`, username)
	return scanUser(row)
}

func (r *UserRepository) List(ctx context.Context, filter user.Filter, limit, offset int) ([]*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users u`
	args := []interface{}{}
	idx := 1
	if filter.Role != nil {
		query += " WHERE u.role=$" + itoa(idx)
		args = append(args, *filter.Role)
		idx++
	}
	if filter.Status != nil {
		query += addWhere(query) + " u.status=$" + itoa(idx)
		args = append(args, *filter.Status)
		idx++
	}
	if filter.Username != nil {
		query += addWhere(query) + " u.username=$" + itoa(idx)
		args = append(args, *filter.Username)
		idx++
	}
	if filter.Resource != nil {
		query += addWhere(query) + " EXISTS (SELECT 1 FROM user_resources f WHERE f.user_id = u.user_id AND f.resource_id=$" + itoa(idx) + ")"
		args = append(args, *filter.Resource)
		idx++
	}
	query += " ORDER BY u.created_at DESC LIMIT $" + itoa(idx) + " OFFSET $" + itoa(idx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	users := []*user.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *UserRepository) Count(ctx context.Context) (int, error) {
	row := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`)
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *UserRepository) SetResources(ctx context.Context, userID uuid.UUID, resourceIDs []string) error {
	return withTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM user_resources WHERE user_id=$1`, userID); err != nil {
			return err
		}
		for _, resourceID := range resourceIDs {
			if _, err := tx.Exec(ctx, `
				INSERT INTO user_resources (user_id, resource_id) VALUES ($1,$2)
				ON CONFLICT DO NOTHING
			`, userID, resourceID); err != nil {
				return err
			}
		}
		_, err := tx.Exec(ctx, `UPDATE users SET updated_at=now() WHERE user_id=$1`, userID)
		return err
	})
}

func scanUser(row pgx.Row) (*user.User, error) {
	var u user.User
	if err := row.Scan(&u.ID, &u.UserID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.Status, &u.CreatedAt, &u.UpdatedAt, &u.Resources); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	if len(u.Resources) == 0 {
		u.Resources = nil
	}
	return &u, nil
}
