package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cesargomez89/ytmanager/internal/domain"
	"github.com/cesargomez89/ytmanager/internal/logger"
	"github.com/cesargomez89/ytmanager/internal/store"
)

var (
	ErrFolderCycle         = errors.New("a folder cannot be moved into itself or one of its descendants")
	ErrDuplicateFolderName = errors.New("a folder with this name already exists here")
	ErrEmptyFolderName     = errors.New("folder name cannot be empty")
	ErrFolderOwner         = errors.New("folder belongs to another user")
)

type FolderRepository interface {
	CreateFolder(f *domain.SubscriptionFolder) (int64, error)
	GetFolder(id int64) (*domain.SubscriptionFolder, error)
	ListFolders(userID int64) ([]*domain.SubscriptionFolder, error)
	UpdateFolder(f *domain.SubscriptionFolder) error
	DeleteFolder(folderIDs []int64, keepSubscriptions bool) error
	ListFolderSubscriptions(userID int64, folderID *int64) ([]*domain.Subscription, error)
	MoveSubscription(id int64, folderID *int64) error
}

type FolderService struct {
	Repo   FolderRepository
	Logger *logger.Logger
}

func NewFolderService(repo FolderRepository, log *logger.Logger) *FolderService {
	if log == nil {
		log = logger.Default()
	}
	return &FolderService{Repo: repo, Logger: log.WithComponent("folders")}
}

// FolderNode is one folder of a user's tree with its direct contents.
type FolderNode struct {
	Folder        *domain.SubscriptionFolder `json:"folder"`
	Children      []*FolderNode              `json:"children"`
	Subscriptions []*domain.Subscription     `json:"subscriptions"`
}

func (s *FolderService) Create(userID int64, name string, parentID *int64) (*domain.SubscriptionFolder, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyFolderName
	}
	folders, err := s.Repo.ListFolders(userID)
	if err != nil {
		return nil, err
	}
	if err := checkParent(folders, userID, parentID); err != nil {
		return nil, err
	}
	if hasSibling(folders, parentID, name, 0) {
		return nil, ErrDuplicateFolderName
	}

	f := &domain.SubscriptionFolder{Name: name, ParentID: parentID, UserID: userID}
	if _, err := s.Repo.CreateFolder(f); err != nil {
		return nil, fmt.Errorf("failed to create folder: %w", err)
	}
	s.Logger.Info("Folder created", "folder_id", f.ID, "name", name)
	return f, nil
}

func (s *FolderService) Rename(folderID int64, name string) (*domain.SubscriptionFolder, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyFolderName
	}
	f, err := s.Repo.GetFolder(folderID)
	if err != nil {
		return nil, err
	}
	folders, err := s.Repo.ListFolders(f.UserID)
	if err != nil {
		return nil, err
	}
	if hasSibling(folders, f.ParentID, name, f.ID) {
		return nil, ErrDuplicateFolderName
	}

	f.Name = name
	if err := s.Repo.UpdateFolder(f); err != nil {
		return nil, fmt.Errorf("failed to rename folder: %w", err)
	}
	return f, nil
}

// Move re-parents a folder. Nothing is written when the move would create a
// cycle or a duplicate name.
func (s *FolderService) Move(folderID int64, newParentID *int64) (*domain.SubscriptionFolder, error) {
	f, err := s.Repo.GetFolder(folderID)
	if err != nil {
		return nil, err
	}
	folders, err := s.Repo.ListFolders(f.UserID)
	if err != nil {
		return nil, err
	}
	if err := checkParent(folders, f.UserID, newParentID); err != nil {
		return nil, err
	}
	if newParentID != nil && isAncestorOrSelf(folders, f.ID, *newParentID) {
		return nil, ErrFolderCycle
	}
	if hasSibling(folders, newParentID, f.Name, f.ID) {
		return nil, ErrDuplicateFolderName
	}

	f.ParentID = newParentID
	if err := s.Repo.UpdateFolder(f); err != nil {
		return nil, fmt.Errorf("failed to move folder: %w", err)
	}
	return f, nil
}

// Delete removes a folder and its descendants. With keepSubscriptions the
// contained subscriptions move to the root instead of being deleted.
func (s *FolderService) Delete(folderID int64, keepSubscriptions bool) error {
	f, err := s.Repo.GetFolder(folderID)
	if err != nil {
		return err
	}
	folders, err := s.Repo.ListFolders(f.UserID)
	if err != nil {
		return err
	}

	ids := descendants(folders, f.ID)
	if err := s.Repo.DeleteFolder(ids, keepSubscriptions); err != nil {
		return fmt.Errorf("failed to delete folder: %w", err)
	}
	s.Logger.Info("Folder deleted", "folder_id", f.ID, "folders", len(ids), "keep_subscriptions", keepSubscriptions)
	return nil
}

// MoveSubscription places a subscription in a folder, or at the root when
// folderID is nil.
func (s *FolderService) MoveSubscription(userID, subscriptionID int64, folderID *int64) error {
	folders, err := s.Repo.ListFolders(userID)
	if err != nil {
		return err
	}
	if err := checkParent(folders, userID, folderID); err != nil {
		return err
	}
	return s.Repo.MoveSubscription(subscriptionID, folderID)
}

// Tree returns the user's folders as a forest along with the subscriptions
// placed at the root.
func (s *FolderService) Tree(userID int64) (*FolderNode, error) {
	folders, err := s.Repo.ListFolders(userID)
	if err != nil {
		return nil, err
	}

	root := &FolderNode{}
	nodes := make(map[int64]*FolderNode, len(folders))
	for _, f := range folders {
		nodes[f.ID] = &FolderNode{Folder: f}
	}
	for _, f := range folders {
		parent := root
		if f.ParentID != nil {
			if p, ok := nodes[*f.ParentID]; ok {
				parent = p
			}
		}
		parent.Children = append(parent.Children, nodes[f.ID])
	}

	visited := make(map[int64]bool, len(nodes))
	var fill func(n *FolderNode) error
	fill = func(n *FolderNode) error {
		var folderID *int64
		if n.Folder != nil {
			if visited[n.Folder.ID] {
				return nil
			}
			visited[n.Folder.ID] = true
			folderID = &n.Folder.ID
		}
		subs, err := s.Repo.ListFolderSubscriptions(userID, folderID)
		if err != nil {
			return err
		}
		n.Subscriptions = subs
		for _, c := range n.Children {
			if err := fill(c); err != nil {
				return err
			}
		}
		return nil
	}
	if err := fill(root); err != nil {
		return nil, err
	}
	return root, nil
}

func checkParent(folders []*domain.SubscriptionFolder, userID int64, parentID *int64) error {
	if parentID == nil {
		return nil
	}
	for _, f := range folders {
		if f.ID == *parentID {
			if f.UserID != userID {
				return ErrFolderOwner
			}
			return nil
		}
	}
	return fmt.Errorf("parent folder %d: %w", *parentID, store.ErrNotFound)
}

func hasSibling(folders []*domain.SubscriptionFolder, parentID *int64, name string, excludeID int64) bool {
	for _, f := range folders {
		if f.ID == excludeID || !sameParent(f.ParentID, parentID) {
			continue
		}
		if strings.EqualFold(f.Name, name) {
			return true
		}
	}
	return false
}

func sameParent(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// isAncestorOrSelf walks up from nodeID and reports whether folderID is met.
func isAncestorOrSelf(folders []*domain.SubscriptionFolder, folderID, nodeID int64) bool {
	parents := make(map[int64]*int64, len(folders))
	for _, f := range folders {
		parents[f.ID] = f.ParentID
	}

	visited := make(map[int64]bool)
	for cur := &nodeID; cur != nil; cur = parents[*cur] {
		if *cur == folderID {
			return true
		}
		if visited[*cur] {
			return false
		}
		visited[*cur] = true
	}
	return false
}

// descendants returns folderID followed by every folder below it.
func descendants(folders []*domain.SubscriptionFolder, folderID int64) []int64 {
	children := make(map[int64][]int64)
	for _, f := range folders {
		if f.ParentID != nil {
			children[*f.ParentID] = append(children[*f.ParentID], f.ID)
		}
	}

	ids := []int64{folderID}
	visited := map[int64]bool{folderID: true}
	for i := 0; i < len(ids); i++ {
		for _, c := range children[ids[i]] {
			if !visited[c] {
				visited[c] = true
				ids = append(ids, c)
			}
		}
	}
	return ids
}
