package catalog

import (
	"context"
	"log"
	"math/rand"

	"github.com/blindify/backend/internal/domain"
	"github.com/blindify/backend/internal/repository/postgres"
	"github.com/blindify/backend/internal/service/spotify"
)

const (
	// LikedSampleSize is how many tracks liked20 hands back
	LikedSampleSize = 20
	// likedSampleScan caps how much of the library liked20 reads
	likedSampleScan = 200
)

type TrackRepository interface {
	UpsertTracks(ctx context.Context, userID int64, tracks []domain.Track) (int, error)
	MarkPlayed(ctx context.Context, userID int64, trackIDs []int64) (int64, error)
	CountTracks(ctx context.Context, userID int64) (postgres.CatalogCounts, error)
}

// LibraryFetcher reads a user's liked tracks from the provider
type LibraryFetcher interface {
	SavedTracks(ctx context.Context, accessToken string, max int) ([]spotify.LikedTrack, error)
}

// ImportResult summarises one catalog import
type ImportResult struct {
	Fetched  int                    `json:"fetched"`
	Imported int                    `json:"imported"`
	Playable int                    `json:"playable"`
	Catalog  postgres.CatalogCounts `json:"catalog"`
}

type Service struct {
	tracks      TrackRepository
	library     LibraryFetcher
	importLimit int
	rng         *rand.Rand
}

func NewService(tracks TrackRepository, library LibraryFetcher, importLimit int) *Service {
	return &Service{tracks: tracks, library: library, importLimit: importLimit}
}

// WithRand pins the sampling source, for tests
func (s *Service) WithRand(rng *rand.Rand) *Service {
	s.rng = rng
	return s
}

// Import pulls the user's liked tracks into the catalog. Tracks without a
// preview are stored too but never picked for a session.
func (s *Service) Import(ctx context.Context, user *domain.User) (*ImportResult, error) {
	liked, err := s.library.SavedTracks(ctx, user.AccessToken, s.importLimit)
	if err != nil {
		return nil, err
	}

	rows := make([]domain.Track, 0, len(liked))
	playable := 0
	for _, t := range liked {
		row := t.ToDomain(user.ID)
		if row.HasPreview() {
			playable++
		}
		rows = append(rows, row)
	}

	imported, err := s.tracks.UpsertTracks(ctx, user.ID, rows)
	if err != nil {
		return nil, err
	}
	counts, err := s.tracks.CountTracks(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	log.Printf("[CATALOG] Imported %d tracks for user %d (%d playable)", imported, user.ID, playable)
	return &ImportResult{Fetched: len(liked), Imported: imported, Playable: playable, Catalog: counts}, nil
}

// RandomLiked samples liked tracks straight from the provider without
// touching the catalog.
func (s *Service) RandomLiked(ctx context.Context, accessToken string) ([]spotify.LikedTrack, error) {
	liked, err := s.library.SavedTracks(ctx, accessToken, likedSampleScan)
	if err != nil {
		return nil, err
	}
	if len(liked) == 0 {
		return nil, domain.ErrNoLikedTracks
	}

	swap := func(i, j int) { liked[i], liked[j] = liked[j], liked[i] }
	if s.rng != nil {
		s.rng.Shuffle(len(liked), swap)
	} else {
		rand.Shuffle(len(liked), swap)
	}
	if len(liked) > LikedSampleSize {
		liked = liked[:LikedSampleSize]
	}
	return liked, nil
}

// MarkPlayed flags tracks so later sessions prefer the rest of the catalog
func (s *Service) MarkPlayed(ctx context.Context, userID int64, trackIDs []int64) (int64, error) {
	return s.tracks.MarkPlayed(ctx, userID, trackIDs)
}
