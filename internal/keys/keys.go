package keys

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Class identifies which derivative a key or URL refers to.
type Class string

const (
	// ClassOriginal is the bounded original derivative.
	ClassOriginal Class = "original"
	// ClassThumbnail is the thumbnail derivative.
	ClassThumbnail Class = "thumbnail"
)

// Scheme derives storage keys. The two prefixes are fixed per derivative
// class and must differ; previously stored assets depend on the exact
// key shape, so changing either prefix orphans them.
type Scheme struct {
	OriginalPrefix  string
	ThumbnailPrefix string
	DefaultFolder   string
}

// KeyPair is the two keys of one ingestion run.
type KeyPair struct {
	Original  string
	Thumbnail string
}

// Pair derives both keys from a folder, a coordinator-assigned timestamp
// and a fresh identifier. The keys differ only in their prefix segment.
func (s Scheme) Pair(folder string, t time.Time, id uuid.UUID, ext string) KeyPair {
	folder = s.SanitizeFolder(folder)
	tail := fmt.Sprintf("%s/%d-%s.%s", folder, t.UnixMilli(), id, ext)
	return KeyPair{
		Original:  s.OriginalPrefix + "/" + tail,
		Thumbnail: s.ThumbnailPrefix + "/" + tail,
	}
}

// Prefix returns the configured prefix token for a class.
func (s Scheme) Prefix(class Class) string {
	if class == ClassThumbnail {
		return s.ThumbnailPrefix
	}
	return s.OriginalPrefix
}

// SanitizeFolder normalizes a user-supplied folder name into a single
// path-safe segment, falling back to the default sentinel when nothing
// usable remains.
func (s Scheme) SanitizeFolder(folder string) string {
	folder = strings.TrimSpace(folder)
	folder = strings.Trim(folder, "/")

	var b strings.Builder
	for _, r := range folder {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_' || r == '.':
			b.WriteRune(r)
		case r == ' ' || r == '/':
			b.WriteRune('-')
		}
	}

	cleaned := strings.Trim(b.String(), "-.")
	if cleaned == "" {
		return s.DefaultFolder
	}
	return cleaned
}

// ExtForMIME maps a supported content type to its storage key extension.
func ExtForMIME(mimeType string) (string, bool) {
	switch mimeType {
	case "image/jpeg":
		return "jpg", true
	case "image/png":
		return "png", true
	case "image/gif":
		return "gif", true
	case "image/webp":
		return "webp", true
	}
	return "", false
}
