package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateFilePath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"relative path", "data/queue.db", false},
		{"absolute path", "/var/lib/bugrelay/queue.db", false},
		{"simple filename", "queue.db", false},
		{"empty path", "", true},
		{"traversal", "../../../etc/passwd", true},
		{"embedded traversal", "data/../../secret", true},
		{"nul byte", "queue\x00.db", true},
		{"dot slash prefix", "./queue.db", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFilePath(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateFilePathWithBase(t *testing.T) {
	assert.NoError(t, ValidateFilePathWithBase("queue.db", "/var/lib/bugrelay"))
	assert.NoError(t, ValidateFilePathWithBase("nested/queue.db", "/var/lib/bugrelay"))
	assert.Error(t, ValidateFilePathWithBase("../outside.db", "/var/lib/bugrelay"))
}
