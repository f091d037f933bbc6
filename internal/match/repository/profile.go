package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"codearena/internal/common/cache"
	"codearena/internal/common/db"
	"codearena/internal/match/model"
)

type ProfileRepository interface {
	GetByUsername(ctx context.Context, tx db.Transaction, username string) (*model.Profile, error)
	// EnsureExists creates the profile row with the default rating if the
	// user has never played.
	EnsureExists(ctx context.Context, tx db.Transaction, username string) error
	// ApplyMatchResult bumps matches played and, for the winner, rating and
	// win count. A missing profile row is created first with the default
	// rating.
	ApplyMatchResult(ctx context.Context, tx db.Transaction, username string, won bool) error
}

type MySQLProfileRepository struct {
	database db.Database
	cache    cache.Cache
	ttl      time.Duration
	emptyTTL time.Duration
}

const (
	profileKeyPrefix = "profile:rating:"

	defaultProfileCacheTTL      = 30 * time.Minute
	defaultProfileCacheEmptyTTL = 5 * time.Minute

	winnerRatingDelta = 10
)

func NewProfileRepository(database db.Database, cacheClient cache.Cache) ProfileRepository {
	return &MySQLProfileRepository{
		database: database,
		cache:    cacheClient,
		ttl:      defaultProfileCacheTTL,
		emptyTTL: defaultProfileCacheEmptyTTL,
	}
}

const profileColumns = "username, rating, matches_played, wins"

func (r *MySQLProfileRepository) GetByUsername(ctx context.Context, tx db.Transaction, username string) (*model.Profile, error) {
	if r.cache != nil && tx == nil {
		profile, err := cache.GetWithCached[*model.Profile](
			ctx,
			r.cache,
			profileKey(username),
			cache.JitterTTL(r.ttl),
			cache.JitterTTL(r.emptyTTL),
			func(profile *model.Profile) bool { return profile == nil },
			marshalProfile,
			unmarshalProfile,
			func(ctx context.Context) (*model.Profile, error) {
				profile, err := r.getByUsernameFromDB(ctx, nil, username)
				if err != nil {
					if errors.Is(err, ErrProfileNotFound) {
						return nil, nil
					}
					return nil, err
				}
				return profile, nil
			},
		)
		if err != nil {
			return nil, err
		}
		if profile == nil {
			return nil, ErrProfileNotFound
		}
		return profile, nil
	}
	return r.getByUsernameFromDB(ctx, tx, username)
}

func (r *MySQLProfileRepository) EnsureExists(ctx context.Context, tx db.Transaction, username string) error {
	query := "INSERT IGNORE INTO profiles (username, rating, matches_played, wins) VALUES (?, ?, 0, 0)"
	_, err := db.GetQuerier(r.database, tx).Exec(ctx, query, username, model.DefaultRating)
	return err
}

func (r *MySQLProfileRepository) ApplyMatchResult(ctx context.Context, tx db.Transaction, username string, won bool) error {
	querier := db.GetQuerier(r.database, tx)

	ratingDelta := 0
	winDelta := 0
	if won {
		ratingDelta = winnerRatingDelta
		winDelta = 1
	}

	query := `INSERT INTO profiles (username, rating, matches_played, wins)
VALUES (?, ?, 1, ?)
ON DUPLICATE KEY UPDATE
rating = rating + ?, matches_played = matches_played + 1, wins = wins + ?`
	_, err := querier.Exec(ctx, query,
		username, model.DefaultRating+ratingDelta, winDelta,
		ratingDelta, winDelta,
	)
	if err != nil {
		return err
	}
	if r.cache != nil {
		_ = r.cache.Del(ctx, profileKey(username))
	}
	return nil
}

func (r *MySQLProfileRepository) getByUsernameFromDB(ctx context.Context, tx db.Transaction, username string) (*model.Profile, error) {
	query := "SELECT " + profileColumns + " FROM profiles WHERE username = ?"
	row := db.GetQuerier(r.database, tx).QueryRow(ctx, query, username)

	var profile model.Profile
	err := row.Scan(&profile.Username, &profile.Rating, &profile.MatchesPlayed, &profile.Wins)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return &profile, nil
}

func profileKey(username string) string {
	return profileKeyPrefix + username
}

func marshalProfile(profile *model.Profile) string {
	payload, err := json.Marshal(profile)
	if err != nil {
		return ""
	}
	return string(payload)
}

func unmarshalProfile(data string) (*model.Profile, error) {
	if data == "" {
		return nil, nil
	}
	var profile model.Profile
	if err := json.Unmarshal([]byte(data), &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}
