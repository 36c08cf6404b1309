package userservice

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/sushihentaime/bloglist/internal/common"
)

// PostgresModel stores users in Postgres; the blog index lives in user_blogs.
type PostgresModel struct {
	db *sql.DB
}

func NewPostgresModel(db *sql.DB) *PostgresModel {
	return &PostgresModel{db: db}
}

func pqErrorCode(err error, code pq.ErrorCode, constraint string) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == code && (constraint == "" || pqErr.Constraint == constraint)
	}

	return false
}

func parseUUID(id string) (string, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return "", common.ErrInvalidID
	}

	return u.String(), nil
}

func (m *PostgresModel) Insert(ctx context.Context, u *User) error {
	query := `
		INSERT INTO users (username, name, email, password)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	args := []any{
		u.Username,
		u.Name,
		u.Email,
		u.Password.hash,
	}

	err := m.db.QueryRowContext(ctx, query, args...).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		switch {
		case pqErrorCode(err, "23505", "users_username_key"):
			return ErrDuplicateUsername
		default:
			return err
		}
	}

	if u.Blogs == nil {
		u.Blogs = []string{}
	}

	return nil
}

const selectUser = `
		SELECT u.id, u.username, u.name, u.email, u.password, u.created_at,
			ARRAY(SELECT ub.blog_id::text FROM user_blogs ub WHERE ub.user_id = u.id ORDER BY ub.created_at, ub.blog_id)
		FROM users u`

func scanUser(row interface{ Scan(...any) error }) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.Name, &u.Email, &u.Password.hash, &u.CreatedAt, pq.Array(&u.Blogs))
	if err != nil {
		return nil, err
	}

	if u.Blogs == nil {
		u.Blogs = []string{}
	}

	return &u, nil
}

func (m *PostgresModel) GetAll(ctx context.Context) ([]User, error) {
	rows, err := m.db.QueryContext(ctx, selectUser+` ORDER BY u.created_at, u.username`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return users, nil
}

func (m *PostgresModel) getOne(ctx context.Context, where string, arg any) (*User, error) {
	u, err := scanUser(m.db.QueryRowContext(ctx, selectUser+" WHERE "+where, arg))
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, common.ErrRecordNotFound
		default:
			return nil, err
		}
	}

	return u, nil
}

func (m *PostgresModel) GetByID(ctx context.Context, id string) (*User, error) {
	id, err := parseUUID(id)
	if err != nil {
		return nil, err
	}

	return m.getOne(ctx, "u.id = $1", id)
}

func (m *PostgresModel) GetByUsername(ctx context.Context, username string) (*User, error) {
	return m.getOne(ctx, "u.username = $1", username)
}

func (m *PostgresModel) AddBlog(ctx context.Context, userID, blogID string) error {
	userID, err := parseUUID(userID)
	if err != nil {
		return err
	}
	blogID, err = parseUUID(blogID)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO user_blogs (user_id, blog_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING`

	_, err = m.db.ExecContext(ctx, query, userID, blogID)
	if err != nil {
		switch {
		case pqErrorCode(err, "23503", "user_blogs_user_id_fkey"):
			return common.ErrRecordNotFound
		default:
			return err
		}
	}

	return nil
}

// RemoveBlog is idempotent: removing an id that is not listed is not an error.
func (m *PostgresModel) RemoveBlog(ctx context.Context, userID, blogID string) error {
	userID, err := parseUUID(userID)
	if err != nil {
		return err
	}
	blogID, err = parseUUID(blogID)
	if err != nil {
		return err
	}

	_, err = m.db.ExecContext(ctx, `DELETE FROM user_blogs WHERE user_id = $1 AND blog_id = $2`, userID, blogID)
	return err
}

func (m *PostgresModel) ReplaceBlogs(ctx context.Context, userID string, blogIDs []string) error {
	userID, err := parseUUID(userID)
	if err != nil {
		return err
	}

	ids := make([]string, 0, len(blogIDs))
	for _, id := range blogIDs {
		id, err := parseUUID(id)
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `DELETE FROM user_blogs WHERE user_id = $1`, userID)
	if err != nil {
		_ = tx.Rollback()
		return err
	}

	query := `
		INSERT INTO user_blogs (user_id, blog_id)
		SELECT $1, unnest($2::uuid[])
		ON CONFLICT DO NOTHING`

	_, err = tx.ExecContext(ctx, query, userID, pq.Array(ids))
	if err != nil {
		_ = tx.Rollback()
		switch {
		case pqErrorCode(err, "23503", "user_blogs_user_id_fkey"):
			return common.ErrRecordNotFound
		default:
			return err
		}
	}

	return tx.Commit()
}
