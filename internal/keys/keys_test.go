package keys

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func testScheme() Scheme {
	return Scheme{
		OriginalPrefix:  "originals",
		ThumbnailPrefix: "thumbnails",
		DefaultFolder:   "uploads",
	}
}

func TestPairDiffersOnlyInPrefix(t *testing.T) {
	s := testScheme()
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	ts := time.UnixMilli(1756500000000)

	pair := s.Pair("vacation", ts, id, "jpg")

	wantTail := "vacation/1756500000000-6ba7b810-9dad-11d1-80b4-00c04fd430c8.jpg"
	if pair.Original != "originals/"+wantTail {
		t.Errorf("Original key = %q, want %q", pair.Original, "originals/"+wantTail)
	}
	if pair.Thumbnail != "thumbnails/"+wantTail {
		t.Errorf("Thumbnail key = %q, want %q", pair.Thumbnail, "thumbnails/"+wantTail)
	}

	origTail := strings.TrimPrefix(pair.Original, "originals/")
	thumbTail := strings.TrimPrefix(pair.Thumbnail, "thumbnails/")
	if origTail != thumbTail {
		t.Errorf("Key tails differ: %q vs %q", origTail, thumbTail)
	}
}

func TestPairDeterministic(t *testing.T) {
	s := testScheme()
	id := uuid.New()
	ts := time.Now()

	a := s.Pair("trip", ts, id, "png")
	b := s.Pair("trip", ts, id, "png")
	if a != b {
		t.Errorf("Same inputs produced different pairs: %+v vs %+v", a, b)
	}
}

func TestSanitizeFolder(t *testing.T) {
	s := testScheme()

	tests := []struct {
		name   string
		folder string
		want   string
	}{
		{"Plain name", "vacation", "vacation"},
		{"Empty falls back", "", "uploads"},
		{"Whitespace only falls back", "   ", "uploads"},
		{"Spaces become dashes", "summer trip", "summer-trip"},
		{"Leading and trailing slashes stripped", "/photos/", "photos"},
		{"Interior slash becomes dash", "a/b", "a-b"},
		{"Hostile characters dropped", "..\\..\\etc", "etc"},
		{"Dots kept inside", "v1.2", "v1.2"},
		{"Only punctuation falls back", "!!!", "uploads"},
		{"Mixed case preserved", "MyAlbum_2", "MyAlbum_2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.SanitizeFolder(tt.folder); got != tt.want {
				t.Errorf("SanitizeFolder(%q) = %q, want %q", tt.folder, got, tt.want)
			}
		})
	}
}

func TestExtForMIME(t *testing.T) {
	tests := []struct {
		mime string
		ext  string
		ok   bool
	}{
		{"image/jpeg", "jpg", true},
		{"image/png", "png", true},
		{"image/gif", "gif", true},
		{"image/webp", "webp", true},
		{"image/tiff", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		ext, ok := ExtForMIME(tt.mime)
		if ext != tt.ext || ok != tt.ok {
			t.Errorf("ExtForMIME(%q) = (%q, %v), want (%q, %v)", tt.mime, ext, ok, tt.ext, tt.ok)
		}
	}
}
