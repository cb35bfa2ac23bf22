package database

import (
	"context"
)

const userColumns = `id, name, role, status, pin_hash, created_at, updated_at`

const getUserByID = `
SELECT ` + userColumns + `
FROM users
WHERE id = $1
`

func (q *Queries) GetUserByID(ctx context.Context, id int64) (User, error) {
	var u User
	err := q.db.QueryRow(ctx, getUserByID, id).Scan(
		&u.ID, &u.Name, &u.Role, &u.Status, &u.PinHash, &u.CreatedAt, &u.UpdatedAt,
	)
	return u, err
}

const listActiveUsers = `
SELECT ` + userColumns + `
FROM users
WHERE status = 'active'
ORDER BY id
`

// ListActiveUsers returns all active staff. PIN login scans these for a
// bcrypt match since PINs are not unique lookup keys.
func (q *Queries) ListActiveUsers(ctx context.Context) ([]User, error) {
	rows, err := q.db.Query(ctx, listActiveUsers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Name, &u.Role, &u.Status, &u.PinHash, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

const createUser = `
INSERT INTO users (name, role, status, pin_hash)
VALUES ($1, $2, $3, $4)
RETURNING ` + userColumns + `
`

type CreateUserParams struct {
	Name    string
	Role    string
	Status  string
	PinHash string
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	var u User
	err := q.db.QueryRow(ctx, createUser, arg.Name, arg.Role, arg.Status, arg.PinHash).Scan(
		&u.ID, &u.Name, &u.Role, &u.Status, &u.PinHash, &u.CreatedAt, &u.UpdatedAt,
	)
	return u, err
}
