package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNodeType(t *testing.T) {
	for _, s := range []string{"folder", "file", "image"} {
		got, err := ParseNodeType(s)
		require.NoError(t, err)
		assert.Equal(t, NodeType(s), got)
	}

	for _, s := range []string{"", "Folder", "video", "img"} {
		_, err := ParseNodeType(s)
		assert.Error(t, err, "type %q must be rejected", s)
	}
}

func TestNodeType_HasContent(t *testing.T) {
	assert.False(t, NodeFolder.HasContent())
	assert.True(t, NodeFile.HasContent())
	assert.True(t, NodeImage.HasContent())
}

func TestFile_Validate(t *testing.T) {
	tests := []struct {
		name    string
		file    File
		wantErr bool
	}{
		{name: "folder", file: File{Name: "docs", Type: NodeFolder}},
		{name: "file", file: File{Name: "a.txt", Type: NodeFile, LocalPath: "/tmp/x"}},
		{name: "folder with content", file: File{Name: "docs", Type: NodeFolder, LocalPath: "/tmp/x"}, wantErr: true},
		{name: "image without content", file: File{Name: "a.png", Type: NodeImage}, wantErr: true},
		{name: "bad type", file: File{Name: "a", Type: "link"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.file.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFile_IsRoot(t *testing.T) {
	assert.True(t, (&File{ParentID: "0"}).IsRoot())
	assert.True(t, (&File{}).IsRoot())
	assert.False(t, (&File{ParentID: "5f1c"}).IsRoot())
}

func TestThumbnailPath(t *testing.T) {
	assert.Equal(t, "/tmp/files_manager/abc_250", ThumbnailPath("/tmp/files_manager/abc", 250))
}
