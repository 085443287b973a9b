package models

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/filesmanager/internal/common"
)

// NodeType is the closed set of file node kinds.
type NodeType string

const (
	NodeFolder NodeType = "folder"
	NodeFile   NodeType = "file"
	NodeImage  NodeType = "image"
)

// ParseNodeType accepts exactly "folder", "file" or "image".
func ParseNodeType(s string) (NodeType, error) {
	switch t := NodeType(s); t {
	case NodeFolder, NodeFile, NodeImage:
		return t, nil
	default:
		return "", fmt.Errorf("unknown node type %q", s)
	}
}

// HasContent reports whether nodes of this type carry stored bytes.
func (t NodeType) HasContent() bool {
	return t == NodeFile || t == NodeImage
}

// File is the metadata of a folder, file or image owned by a user.
//
// ParentID is common.RootParentID for top-level nodes. LocalPath is the blob
// location of the content and is empty for folders.
type File struct {
	ID        string
	UserID    string
	Name      string
	Type      NodeType
	ParentID  string
	IsPublic  bool
	LocalPath string
	CreatedAt time.Time
}

// IsRoot reports whether the node sits at the top of its owner's tree.
func (f *File) IsRoot() bool {
	return f.ParentID == "" || f.ParentID == common.RootParentID
}

// Validate checks the invariants every persisted node must satisfy.
func (f *File) Validate() error {
	if _, err := ParseNodeType(string(f.Type)); err != nil {
		return err
	}
	if f.Type == NodeFolder && f.LocalPath != "" {
		return fmt.Errorf("folder %q must not have content", f.Name)
	}
	if f.Type.HasContent() && f.LocalPath == "" {
		return fmt.Errorf("%s %q has no content path", f.Type, f.Name)
	}
	return nil
}

// ThumbnailPath is where the thumbnail of the given width is stored.
func ThumbnailPath(localPath string, width int) string {
	return fmt.Sprintf("%s_%d", localPath, width)
}
