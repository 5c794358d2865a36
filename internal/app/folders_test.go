package app

import (
	"errors"
	"testing"

	"github.com/cesargomez89/ytmanager/internal/store"
)

func TestFolderService_CreateRejectsDuplicates(t *testing.T) {
	svc, _ := newFolderService(t)

	music, err := svc.Create(1, "Music", nil)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := svc.Create(1, " music ", nil); !errors.Is(err, ErrDuplicateFolderName) {
		t.Errorf("expected ErrDuplicateFolderName, got %v", err)
	}
	if _, err := svc.Create(2, "Music", nil); err != nil {
		t.Errorf("same name for another user must be allowed: %v", err)
	}
	if _, err := svc.Create(1, "Music", &music.ID); err != nil {
		t.Errorf("same name under another parent must be allowed: %v", err)
	}
	if _, err := svc.Create(1, "  ", nil); !errors.Is(err, ErrEmptyFolderName) {
		t.Errorf("expected ErrEmptyFolderName, got %v", err)
	}
	missing := int64(999)
	if _, err := svc.Create(1, "X", &missing); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound for a missing parent, got %v", err)
	}
}

func TestFolderService_MoveRejectsCycles(t *testing.T) {
	svc, db := newFolderService(t)

	a, _ := svc.Create(1, "A", nil)
	b, _ := svc.Create(1, "B", &a.ID)
	c, _ := svc.Create(1, "C", &b.ID)

	tests := []struct {
		name    string
		folder  int64
		parent  *int64
		wantErr error
	}{
		{name: "into itself", folder: a.ID, parent: &a.ID, wantErr: ErrFolderCycle},
		{name: "into child", folder: a.ID, parent: &b.ID, wantErr: ErrFolderCycle},
		{name: "into grandchild", folder: a.ID, parent: &c.ID, wantErr: ErrFolderCycle},
		{name: "leaf to root", folder: c.ID, parent: nil},
		{name: "middle under leaf", folder: b.ID, parent: &c.ID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before, _ := db.GetFolder(tt.folder)
			_, err := svc.Move(tt.folder, tt.parent)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Move() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				after, _ := db.GetFolder(tt.folder)
				if !sameParent(before.ParentID, after.ParentID) {
					t.Errorf("rejected move must not write")
				}
			}
		})
	}
}

func TestFolderService_MoveRejectsDuplicateName(t *testing.T) {
	svc, _ := newFolderService(t)

	a, _ := svc.Create(1, "A", nil)
	_, _ = svc.Create(1, "Same", nil)
	inner, _ := svc.Create(1, "same", &a.ID)

	if _, err := svc.Move(inner.ID, nil); !errors.Is(err, ErrDuplicateFolderName) {
		t.Errorf("expected ErrDuplicateFolderName, got %v", err)
	}
	if _, err := svc.Rename(inner.ID, "Other"); err != nil {
		t.Fatalf("Rename failed: %v", err)
	}
	if _, err := svc.Move(inner.ID, nil); err != nil {
		t.Errorf("Move after rename failed: %v", err)
	}
}

func TestFolderService_Delete(t *testing.T) {
	tests := []struct {
		name string
		keep bool
	}{
		{name: "keep subscriptions", keep: true},
		{name: "cascade subscriptions", keep: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, db := newFolderService(t)
			parent, _ := svc.Create(1, "Parent", nil)
			child, _ := svc.Create(1, "Child", &parent.ID)
			inParent := createSubscription(t, db, 1, "p", &parent.ID)
			inChild := createSubscription(t, db, 1, "c", &child.ID)

			if err := svc.Delete(parent.ID, tt.keep); err != nil {
				t.Fatalf("Delete failed: %v", err)
			}

			if _, err := db.GetFolder(child.ID); !errors.Is(err, store.ErrNotFound) {
				t.Errorf("child folder should be deleted, got %v", err)
			}
			for _, id := range []int64{inParent.ID, inChild.ID} {
				sub, err := db.GetSubscription(id)
				if tt.keep {
					if err != nil || sub.ParentFolderID != nil {
						t.Errorf("subscription %d should be kept at the root: %+v, %v", id, sub, err)
					}
				} else if !errors.Is(err, store.ErrNotFound) {
					t.Errorf("subscription %d should be deleted, got %v", id, err)
				}
			}
		})
	}
}

func TestFolderService_Tree(t *testing.T) {
	svc, db := newFolderService(t)

	a, _ := svc.Create(1, "A", nil)
	b, _ := svc.Create(1, "B", &a.ID)
	createSubscription(t, db, 1, "root-sub", nil)
	createSubscription(t, db, 1, "b-sub", &b.ID)

	root, err := svc.Tree(1)
	if err != nil {
		t.Fatalf("Tree failed: %v", err)
	}
	if len(root.Subscriptions) != 1 || root.Subscriptions[0].Name != "root-sub" {
		t.Errorf("unexpected root subscriptions %+v", root.Subscriptions)
	}
	if len(root.Children) != 1 || root.Children[0].Folder.ID != a.ID {
		t.Fatalf("unexpected root children %+v", root.Children)
	}
	nodeB := root.Children[0].Children[0]
	if nodeB.Folder.ID != b.ID || len(nodeB.Subscriptions) != 1 {
		t.Errorf("unexpected node %+v", nodeB)
	}
}
