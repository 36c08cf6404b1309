package blogservice

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/sushihentaime/bloglist/internal/common"
)

type PostgresModel struct {
	db *sql.DB
}

func NewPostgresModel(db *sql.DB) *PostgresModel {
	return &PostgresModel{db: db}
}

// foreignKeyError reports whether err is a violation of the named foreign key.
func foreignKeyError(err error, name string) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if pqErr.Code == "23503" && pqErr.Constraint == name {
			return true
		}
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

func (m *PostgresModel) Insert(ctx context.Context, b *Blog) error {
	ownerID, err := parseUUID(b.OwnerID())
	if err != nil {
		return err
	}

	query := `
		INSERT INTO blogs (title, author, url, likes, user_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	args := []any{b.Title, b.Author, b.URL, b.Likes, ownerID}

	err = m.db.QueryRowContext(ctx, query, args...).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		switch {
		case foreignKeyError(err, "blogs_user_id_fkey"):
			return ErrUnauthenticated
		default:
			return err
		}
	}

	return nil
}

const selectBlog = `
		SELECT b.id, b.title, b.author, b.url, b.likes, b.created_at, b.updated_at, u.id, u.username, u.name
		FROM blogs b
		JOIN users u ON b.user_id = u.id`

func scanBlog(row interface{ Scan(...any) error }) (*Blog, error) {
	b := Blog{User: &Owner{}}
	err := row.Scan(&b.ID, &b.Title, &b.Author, &b.URL, &b.Likes, &b.CreatedAt, &b.UpdatedAt, &b.User.ID, &b.User.Username, &b.User.Name)
	if err != nil {
		return nil, err
	}

	return &b, nil
}

// GetAll returns the blogs in creation order.
func (m *PostgresModel) GetAll(ctx context.Context) ([]Blog, error) {
	rows, err := m.db.QueryContext(ctx, selectBlog+` ORDER BY b.created_at, b.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	blogs := []Blog{}
	for rows.Next() {
		b, err := scanBlog(rows)
		if err != nil {
			return nil, err
		}
		blogs = append(blogs, *b)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return blogs, nil
}

func (m *PostgresModel) Get(ctx context.Context, id string) (*Blog, error) {
	id, err := parseUUID(id)
	if err != nil {
		return nil, err
	}

	b, err := scanBlog(m.db.QueryRowContext(ctx, selectBlog+` WHERE b.id = $1`, id))
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, common.ErrRecordNotFound
		default:
			return nil, err
		}
	}

	return b, nil
}

// Update writes the mutable fields. The owner is never changed.
func (m *PostgresModel) Update(ctx context.Context, b *Blog) error {
	id, err := parseUUID(b.ID)
	if err != nil {
		return err
	}

	query := `
		UPDATE blogs
		SET title = $1, author = $2, url = $3, likes = $4, updated_at = NOW()
		WHERE id = $5
		RETURNING updated_at`

	err = m.db.QueryRowContext(ctx, query, b.Title, b.Author, b.URL, b.Likes, id).Scan(&b.UpdatedAt)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return common.ErrRecordNotFound
		default:
			return err
		}
	}

	return nil
}

func (m *PostgresModel) Delete(ctx context.Context, id string) error {
	id, err := parseUUID(id)
	if err != nil {
		return err
	}

	res, err := m.db.ExecContext(ctx, `DELETE FROM blogs WHERE id = $1`, id)
	if err != nil {
		return err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return common.ErrRecordNotFound
	}

	return nil
}
