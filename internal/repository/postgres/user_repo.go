package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/blindify/backend/internal/domain"
)

type UserRepo struct {
	DB *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{DB: db}
}

const userSelectFields = `id, spotify_id, username, access_token, refresh_token, created_at, updated_at`

// scanUser returns nil, nil when the row does not exist
func scanUser(row interface{ Scan(dest ...any) error }) (*domain.User, error) {
	var user domain.User
	err := row.Scan(
		&user.ID,
		&user.SpotifyID,
		&user.Username,
		&user.AccessToken,
		&user.RefreshToken,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UpsertUser creates or refreshes the row for a provider identity.
// An empty refresh token keeps the stored one.
func (r *UserRepo) UpsertUser(ctx context.Context, spotifyID, username, accessToken, refreshToken string) (*domain.User, error) {
	query := `
	INSERT INTO users (spotify_id, username, access_token, refresh_token)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (spotify_id) DO UPDATE SET
		username = EXCLUDED.username,
		access_token = EXCLUDED.access_token,
		refresh_token = COALESCE(NULLIF(EXCLUDED.refresh_token, ''), users.refresh_token),
		updated_at = NOW()
	RETURNING ` + userSelectFields + `;
	`
	user, err := scanUser(r.DB.QueryRowContext(ctx, query, spotifyID, username, accessToken, refreshToken))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %v", err)
	}
	return user, nil
}

// GetUserByAccessToken resolves a bearer token to its owner
func (r *UserRepo) GetUserByAccessToken(ctx context.Context, accessToken string) (*domain.User, error) {
	query := `SELECT ` + userSelectFields + ` FROM users WHERE access_token = $1;`
	user, err := scanUser(r.DB.QueryRowContext(ctx, query, accessToken))
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %v", err)
	}
	return user, nil
}

func (r *UserRepo) GetUserByRefreshToken(ctx context.Context, refreshToken string) (*domain.User, error) {
	query := `SELECT ` + userSelectFields + ` FROM users WHERE refresh_token = $1 LIMIT 1;`
	user, err := scanUser(r.DB.QueryRowContext(ctx, query, refreshToken))
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %v", err)
	}
	return user, nil
}

// UpdateTokens stores a refreshed pair. An empty refresh token keeps the old one.
func (r *UserRepo) UpdateTokens(ctx context.Context, userID int64, accessToken, refreshToken string) error {
	query := `
	UPDATE users
	SET access_token = $2,
	    refresh_token = COALESCE(NULLIF($3, ''), refresh_token),
	    updated_at = NOW()
	WHERE id = $1;
	`
	_, err := r.DB.ExecContext(ctx, query, userID, accessToken, refreshToken)
	if err != nil {
		return fmt.Errorf("failed to update tokens: %v", err)
	}
	return nil
}
