package store

import (
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/cesargomez89/ytmanager/internal/domain"
)

func (db *DB) CreateFolder(f *domain.SubscriptionFolder) (int64, error) {
	res, err := db.Exec(`INSERT INTO subscription_folders (name, parent_id, user_id) VALUES (?, ?, ?)`,
		f.Name, f.ParentID, f.UserID)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	f.ID = id
	return id, nil
}

func (db *DB) GetFolder(id int64) (*domain.SubscriptionFolder, error) {
	f := &domain.SubscriptionFolder{}
	err := db.Get(f, `SELECT id, name, parent_id, user_id FROM subscription_folders WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

// ListFolders returns every folder owned by a user.
func (db *DB) ListFolders(userID int64) ([]*domain.SubscriptionFolder, error) {
	var folders []*domain.SubscriptionFolder
	err := db.Select(&folders, `SELECT id, name, parent_id, user_id FROM subscription_folders
		WHERE user_id = ? ORDER BY name COLLATE NOCASE`, userID)
	return folders, err
}

func (db *DB) UpdateFolder(f *domain.SubscriptionFolder) error {
	_, err := db.Exec(`UPDATE subscription_folders SET name = ?, parent_id = ? WHERE id = ?`, f.Name, f.ParentID, f.ID)
	return err
}

// DeleteFolder removes the given folders. When keepSubscriptions is set the
// subscriptions inside them are moved to the root first; otherwise they are
// deleted along with the folders.
func (db *DB) DeleteFolder(folderIDs []int64, keepSubscriptions bool) error {
	if len(folderIDs) == 0 {
		return nil
	}
	return db.RunInTx(func(tx *sqlx.Tx) error {
		if keepSubscriptions {
			query, args, err := sqlx.In(`UPDATE subscriptions SET parent_folder_id = NULL WHERE parent_folder_id IN (?)`, folderIDs)
			if err != nil {
				return err
			}
			if _, err := tx.Exec(tx.Rebind(query), args...); err != nil {
				return err
			}
		}
		query, args, err := sqlx.In(`DELETE FROM subscription_folders WHERE id IN (?)`, folderIDs)
		if err != nil {
			return err
		}
		_, err = tx.Exec(tx.Rebind(query), args...)
		return err
	})
}
