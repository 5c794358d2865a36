package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/cesargomez89/ytmanager/internal/domain"
)

const subscriptionColumns = `id, name, provider_id, provider_native_id, description, thumbnail_url, channel_name,
	parent_folder_id, user_id, auto_download, download_limit, download_order, auto_delete_watched,
	rewrite_playlist_indices, last_synchronized, created_at`

func (db *DB) CreateSubscription(sub *domain.Subscription) (int64, error) {
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now()
	}

	query := `INSERT INTO subscriptions (
		name, provider_id, provider_native_id, description, thumbnail_url, channel_name,
		parent_folder_id, user_id, auto_download, download_limit, download_order, auto_delete_watched,
		rewrite_playlist_indices, last_synchronized, created_at
	) VALUES (
		:name, :provider_id, :provider_native_id, :description, :thumbnail_url, :channel_name,
		:parent_folder_id, :user_id, :auto_download, :download_limit, :download_order, :auto_delete_watched,
		:rewrite_playlist_indices, :last_synchronized, :created_at
	) RETURNING id`

	rows, err := db.NamedQuery(query, sub)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var id int64
	if rows.Next() {
		if err := rows.Scan(&id); err != nil {
			return 0, err
		}
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}
	sub.ID = id
	return id, nil
}

func (db *DB) GetSubscription(id int64) (*domain.Subscription, error) {
	sub := &domain.Subscription{}
	err := db.Get(sub, `SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (db *DB) ListSubscriptions() ([]*domain.Subscription, error) {
	var subs []*domain.Subscription
	err := db.Select(&subs, `SELECT `+subscriptionColumns+` FROM subscriptions ORDER BY user_id, id`)
	return subs, err
}

func (db *DB) ListUserSubscriptions(userID int64) ([]*domain.Subscription, error) {
	var subs []*domain.Subscription
	err := db.Select(&subs, `SELECT `+subscriptionColumns+` FROM subscriptions WHERE user_id = ? ORDER BY name COLLATE NOCASE`, userID)
	return subs, err
}

// ListFolderSubscriptions lists the subscriptions directly inside a folder.
// A nil folderID lists the root.
func (db *DB) ListFolderSubscriptions(userID int64, folderID *int64) ([]*domain.Subscription, error) {
	var subs []*domain.Subscription
	var err error
	if folderID == nil {
		err = db.Select(&subs, `SELECT `+subscriptionColumns+` FROM subscriptions
			WHERE user_id = ? AND parent_folder_id IS NULL ORDER BY name COLLATE NOCASE`, userID)
	} else {
		err = db.Select(&subs, `SELECT `+subscriptionColumns+` FROM subscriptions
			WHERE user_id = ? AND parent_folder_id = ? ORDER BY name COLLATE NOCASE`, userID, *folderID)
	}
	return subs, err
}

func (db *DB) FindSubscriptionByNativeID(userID int64, providerID, nativeID string) (*domain.Subscription, error) {
	sub := &domain.Subscription{}
	err := db.Get(sub, `SELECT `+subscriptionColumns+` FROM subscriptions
		WHERE user_id = ? AND provider_id = ? AND provider_native_id = ?`, userID, providerID, nativeID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (db *DB) UpdateSubscription(sub *domain.Subscription) error {
	query := `UPDATE subscriptions SET
		name = :name, description = :description, thumbnail_url = :thumbnail_url, channel_name = :channel_name,
		parent_folder_id = :parent_folder_id, auto_download = :auto_download, download_limit = :download_limit,
		download_order = :download_order, auto_delete_watched = :auto_delete_watched,
		rewrite_playlist_indices = :rewrite_playlist_indices
	WHERE id = :id`
	_, err := db.NamedExec(query, sub)
	return err
}

func (db *DB) SetSubscriptionThumbnail(id int64, url string) error {
	_, err := db.Exec(`UPDATE subscriptions SET thumbnail_url = ? WHERE id = ?`, url, id)
	return err
}

func (db *DB) MoveSubscription(id int64, folderID *int64) error {
	_, err := db.Exec(`UPDATE subscriptions SET parent_folder_id = ? WHERE id = ?`, folderID, id)
	return err
}

func (db *DB) MarkSubscriptionSynchronized(id int64, at time.Time) error {
	_, err := db.Exec(`UPDATE subscriptions SET last_synchronized = ? WHERE id = ?`, at, id)
	return err
}

// DeleteSubscription removes a subscription; its videos go with it.
func (db *DB) DeleteSubscription(id int64) error {
	_, err := db.Exec(`DELETE FROM subscriptions WHERE id = ?`, id)
	return err
}
