// Package submission decides whether a message counts as a daily post.
package submission

import "strings"

// DefaultFileTypes are the content-type substrings tracked out of the box.
var DefaultFileTypes = []string{"image"}

// Attachment is the part of a chat attachment the classifier looks at.
type Attachment struct {
	Filename    string
	ContentType string
}

// Classifier matches attachment content types against tracked substrings.
type Classifier struct {
	fileTypes []string
}

// NewClassifier creates a classifier. Blank entries are ignored and matching
// is case-insensitive. With no usable entries DefaultFileTypes apply.
func NewClassifier(fileTypes []string) *Classifier {
	normalized := make([]string, 0, len(fileTypes))
	for _, ft := range fileTypes {
		ft = strings.ToLower(strings.TrimSpace(ft))
		if ft != "" {
			normalized = append(normalized, ft)
		}
	}
	if len(normalized) == 0 {
		normalized = append(normalized, DefaultFileTypes...)
	}
	return &Classifier{fileTypes: normalized}
}

// FileTypes returns the tracked substrings.
func (c *Classifier) FileTypes() []string {
	out := make([]string, len(c.fileTypes))
	copy(out, c.fileTypes)
	return out
}

// Qualifies reports whether at least one attachment has a tracked content type.
func (c *Classifier) Qualifies(attachments []Attachment) bool {
	for _, a := range attachments {
		if c.matches(a.ContentType) {
			return true
		}
	}
	return false
}

func (c *Classifier) matches(contentType string) bool {
	if contentType == "" {
		return false
	}
	ct := strings.ToLower(contentType)
	for _, ft := range c.fileTypes {
		if strings.Contains(ct, ft) {
			return true
		}
	}
	return false
}
