package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/blindify/backend/internal/domain"
	"github.com/lib/pq"
)

type TrackRepo struct {
	DB *sql.DB
}

func NewTrackRepo(db *sql.DB) *TrackRepo {
	return &TrackRepo{DB: db}
}

type CatalogCounts struct {
	Total       int `json:"total"`
	WithPreview int `json:"withPreview"`
	Played      int `json:"played"`
}

const trackSelectFields = `id, spotify_track_id, title, artist, COALESCE(preview_url, ''), COALESCE(album_cover, ''), user_id, played`

func scanTracks(rows *sql.Rows) ([]domain.Track, error) {
	defer rows.Close()

	tracks := make([]domain.Track, 0)
	for rows.Next() {
		var t domain.Track
		if err := rows.Scan(&t.ID, &t.SpotifyTrackID, &t.Title, &t.Artist, &t.PreviewURL, &t.AlbumCover, &t.UserID, &t.Played); err != nil {
			return nil, fmt.Errorf("failed to scan track row: %v", err)
		}
		tracks = append(tracks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate track rows: %v", err)
	}
	return tracks, nil
}

// UpsertTracks imports a batch of liked tracks for a user in one transaction.
// Existing rows keep their played flag.
func (r *TrackRepo) UpsertTracks(ctx context.Context, userID int64, tracks []domain.Track) (int, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO tracks (spotify_track_id, title, artist, preview_url, album_cover, user_id)
	VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6)
	ON CONFLICT (user_id, spotify_track_id) DO UPDATE SET
		title = EXCLUDED.title,
		artist = EXCLUDED.artist,
		preview_url = EXCLUDED.preview_url,
		album_cover = EXCLUDED.album_cover;
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare track upsert: %v", err)
	}
	defer stmt.Close()

	imported := 0
	for _, t := range tracks {
		if _, err := stmt.ExecContext(ctx, t.SpotifyTrackID, t.Title, t.Artist, t.PreviewURL, t.AlbumCover, userID); err != nil {
			return 0, fmt.Errorf("failed to upsert track %s: %v", t.SpotifyTrackID, err)
		}
		imported++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %v", err)
	}
	return imported, nil
}

// PickSessionTracks draws up to limit random playable tracks, unplayed first.
func (r *TrackRepo) PickSessionTracks(ctx context.Context, userID int64, limit int) ([]domain.Track, error) {
	query := `
	SELECT ` + trackSelectFields + `
	FROM tracks
	WHERE user_id = $1 AND preview_url IS NOT NULL
	ORDER BY played ASC, RANDOM()
	LIMIT $2;
	`
	rows, err := r.DB.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query session tracks: %v", err)
	}
	return scanTracks(rows)
}

// MarkPlayed flips the played flag on the given tracks owned by userID.
func (r *TrackRepo) MarkPlayed(ctx context.Context, userID int64, trackIDs []int64) (int64, error) {
	if len(trackIDs) == 0 {
		return 0, nil
	}
	query := `UPDATE tracks SET played = TRUE WHERE user_id = $1 AND id = ANY($2);`
	result, err := r.DB.ExecContext(ctx, query, userID, pq.Array(trackIDs))
	if err != nil {
		return 0, fmt.Errorf("failed to mark tracks played: %v", err)
	}
	return result.RowsAffected()
}

func (r *TrackRepo) CountTracks(ctx context.Context, userID int64) (CatalogCounts, error) {
	query := `
	SELECT COUNT(*),
	       COUNT(*) FILTER (WHERE preview_url IS NOT NULL),
	       COUNT(*) FILTER (WHERE played)
	FROM tracks
	WHERE user_id = $1;
	`
	var c CatalogCounts
	if err := r.DB.QueryRowContext(ctx, query, userID).Scan(&c.Total, &c.WithPreview, &c.Played); err != nil {
		return CatalogCounts{}, fmt.Errorf("failed to count tracks: %v", err)
	}
	return c, nil
}
