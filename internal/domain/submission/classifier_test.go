package submission

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifier_Qualifies(t *testing.T) {
	c := NewClassifier([]string{"image"})

	tests := []struct {
		name        string
		attachments []Attachment
		want        bool
	}{
		{"no attachments", nil, false},
		{"empty content type", []Attachment{{Filename: "a.png"}}, false},
		{"png", []Attachment{{ContentType: "image/png"}}, true},
		{"upper case", []Attachment{{ContentType: "IMAGE/JPEG"}}, true},
		{"text only", []Attachment{{ContentType: "text/plain; charset=utf-8"}}, false},
		{"one of many", []Attachment{{ContentType: "video/mp4"}, {ContentType: "image/webp"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Qualifies(tt.attachments))
		})
	}
}

func TestNewClassifier_Defaults(t *testing.T) {
	c := NewClassifier([]string{" ", ""})
	assert.Equal(t, []string{"image"}, c.FileTypes())

	c = NewClassifier([]string{"Video", "image"})
	assert.Equal(t, []string{"video", "image"}, c.FileTypes())
	assert.True(t, c.Qualifies([]Attachment{{ContentType: "video/mp4"}}))
}
