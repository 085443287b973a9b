package rest

import (
	"encoding/json"
	"strconv"

	"github.com/dmitrijs2005/filesmanager/internal/server/models"
)

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func newUserResponse(u *models.User) userResponse {
	return userResponse{ID: u.ID, Email: u.Email}
}

type tokenResponse struct {
	Token string `json:"token"`
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// fileResponse renders a node. ParentID is the number 0 for top-level
// nodes and the parent id string otherwise.
type fileResponse struct {
	ID       string          `json:"id"`
	UserID   string          `json:"userId"`
	Name     string          `json:"name"`
	Type     models.NodeType `json:"type"`
	IsPublic bool            `json:"isPublic"`
	ParentID any             `json:"parentId"`
}

func newFileResponse(f *models.File) fileResponse {
	var parent any = f.ParentID
	if f.IsRoot() {
		parent = 0
	}
	return fileResponse{
		ID:       f.ID,
		UserID:   f.UserID,
		Name:     f.Name,
		Type:     f.Type,
		IsPublic: f.IsPublic,
		ParentID: parent,
	}
}

func newFileListResponse(nodes []*models.File) []fileResponse {
	out := make([]fileResponse, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, newFileResponse(n))
	}
	return out
}

type createFileRequest struct {
	Name     string    `json:"name"`
	Type     string    `json:"type"`
	ParentID parentRef `json:"parentId"`
	IsPublic bool      `json:"isPublic"`
	Data     string    `json:"data"`
}

// parentRef accepts a parent id given either as a string or as a number
// (clients send 0 for the root).
type parentRef string

func (p *parentRef) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*p = parentRef(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*p = parentRef(n.String())
	return nil
}

func parsePage(s string) int {
	page, err := strconv.Atoi(s)
	if err != nil || page < 0 {
		return 0
	}
	return page
}
