package store

import (
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/cesargomez89/ytmanager/internal/domain"
)

const videoColumns = `id, subscription_id, provider_native_id, name, description, publish_date, thumbnail_url,
	uploader_name, playlist_index, downloaded_path, watched, is_new, views, rating, duration`

const videoInsert = `INSERT INTO videos (
		subscription_id, provider_native_id, name, description, publish_date, thumbnail_url,
		uploader_name, playlist_index, downloaded_path, watched, is_new, views, rating, duration
	) VALUES (
		:subscription_id, :provider_native_id, :name, :description, :publish_date, :thumbnail_url,
		:uploader_name, :playlist_index, :downloaded_path, :watched, :is_new, :views, :rating, :duration
	)`

func (db *DB) CreateVideo(v *domain.Video) (int64, error) {
	res, err := db.NamedExec(videoInsert, v)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	v.ID = id
	return id, nil
}

func (db *DB) GetVideo(id int64) (*domain.Video, error) {
	v := &domain.Video{}
	err := db.Get(v, `SELECT `+videoColumns+` FROM videos WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (db *DB) ListSubscriptionVideos(subscriptionID int64) ([]*domain.Video, error) {
	var videos []*domain.Video
	err := db.Select(&videos, `SELECT `+videoColumns+` FROM videos
		WHERE subscription_id = ? ORDER BY playlist_index ASC, id ASC`, subscriptionID)
	return videos, err
}

// ListDownloadCandidates returns videos that are neither downloaded nor
// watched, sorted by the given order.
func (db *DB) ListDownloadCandidates(subscriptionID int64, order domain.DownloadOrder) ([]*domain.Video, error) {
	var videos []*domain.Video
	err := db.Select(&videos, `SELECT `+videoColumns+` FROM videos
		WHERE subscription_id = ? AND downloaded_path IS NULL AND watched = 0
		ORDER BY `+order.OrderBy(), subscriptionID)
	return videos, err
}

func (db *DB) CountDownloadedForSubscription(subscriptionID int64) (int, error) {
	var n int
	err := db.Get(&n, `SELECT COUNT(*) FROM videos WHERE subscription_id = ? AND downloaded_path IS NOT NULL`, subscriptionID)
	return n, err
}

func (db *DB) CountDownloadedForUser(userID int64) (int, error) {
	var n int
	err := db.Get(&n, `SELECT COUNT(*) FROM videos v
		JOIN subscriptions s ON s.id = v.subscription_id
		WHERE s.user_id = ? AND v.downloaded_path IS NOT NULL`, userID)
	return n, err
}

// ExistingVideoKeys maps the provider ids of a subscription's videos to
// their playlist index.
func (db *DB) ExistingVideoKeys(subscriptionID int64) (map[string]int, error) {
	type row struct {
		NativeID string `db:"provider_native_id"`
		Index    int    `db:"playlist_index"`
	}
	var rows []row
	if err := db.Select(&rows, `SELECT provider_native_id, playlist_index FROM videos WHERE subscription_id = ?`, subscriptionID); err != nil {
		return nil, err
	}
	keys := make(map[string]int, len(rows))
	for _, r := range rows {
		keys[r.NativeID] = r.Index
	}
	return keys, nil
}

// ClearNewFlags resets is_new on every video of the subscription and
// returns how many were flagged.
func (db *DB) ClearNewFlags(subscriptionID int64) (int64, error) {
	res, err := db.Exec(`UPDATE videos SET is_new = 0 WHERE subscription_id = ? AND is_new = 1`, subscriptionID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (db *DB) SetDownloadedPath(id int64, path *string) error {
	_, err := db.Exec(`UPDATE videos SET downloaded_path = ? WHERE id = ?`, path, id)
	return err
}

func (db *DB) SetWatched(id int64, watched bool) error {
	_, err := db.Exec(`UPDATE videos SET watched = ? WHERE id = ?`, watched, id)
	return err
}

func (db *DB) SetVideoThumbnail(id int64, url string) error {
	_, err := db.Exec(`UPDATE videos SET thumbnail_url = ? WHERE id = ?`, url, id)
	return err
}

// UpdateVideoStats stores refreshed metadata and statistics for a batch of
// videos in one transaction.
func (db *DB) UpdateVideoStats(videos []*domain.Video) error {
	return db.RunInTx(func(tx *sqlx.Tx) error {
		query := `UPDATE videos SET name = :name, description = :description, views = :views,
			rating = :rating, duration = :duration, uploader_name = :uploader_name WHERE id = :id`
		for _, v := range videos {
			if _, err := tx.NamedExec(query, v); err != nil {
				return err
			}
		}
		return nil
	})
}
