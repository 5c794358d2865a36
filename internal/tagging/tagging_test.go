package tagging

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/bogem/id3v2/v2"

	"github.com/cesargomez89/ytmanager/internal/domain"
)

func TestMetadataFor(t *testing.T) {
	sub := &domain.Subscription{Name: "Mixes", ChannelName: "DJ"}
	video := &domain.Video{
		Name:          "Set 1",
		PlaylistIndex: 3,
		PublishDate:   time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC),
	}

	md := MetadataFor(sub, video, "https://example.com/v")
	if md.Artist != "DJ" {
		t.Errorf("Artist should fall back to the channel name, got %q", md.Artist)
	}
	if md.Album != "Mixes" || md.Year != 2023 || md.TrackNumber != 3 {
		t.Errorf("unexpected metadata %+v", md)
	}
}

func TestNewVorbisComment(t *testing.T) {
	md := &Metadata{
		Title:       "Test Title",
		Artist:      "Uploader",
		Album:       "Playlist",
		Year:        2023,
		TrackNumber: 5,
	}

	vc, err := newVorbisComment(md)
	if err != nil {
		t.Fatalf("newVorbisComment failed: %v", err)
	}

	for _, want := range []string{
		"TITLE=Test Title",
		"ARTIST=Uploader",
		"ALBUM=Playlist",
		"DATE=2023",
		"TRACKNUMBER=5",
	} {
		if !slices.Contains(vc.Comments, want) {
			t.Errorf("%s not found in %v", want, vc.Comments)
		}
	}
	for _, entry := range vc.Comments {
		if entry == "DESCRIPTION=" {
			t.Errorf("empty fields must be skipped")
		}
	}
}

func TestIsSupported(t *testing.T) {
	tests := map[string]bool{
		"a.mp3":  true,
		"a.FLAC": true,
		"a.m4a":  false,
		"a.mp4":  false,
	}
	for path, want := range tests {
		if got := IsSupported(path); got != want {
			t.Errorf("IsSupported(%s) = %v, want %v", path, got, want)
		}
	}
}

func TestTagMP3(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.mp3")
	if err := os.WriteFile(path, []byte("not really audio but enough bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	md := &Metadata{Title: "Song", Artist: "Someone", Album: "List", Year: 2020}
	if err := TagFile(path, md, nil); err != nil {
		t.Fatalf("TagFile failed: %v", err)
	}

	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer tag.Close()
	if tag.Title() != "Song" || tag.Artist() != "Someone" || tag.Album() != "List" || tag.Year() != "2020" {
		t.Errorf("tags not written: %q %q %q %q", tag.Title(), tag.Artist(), tag.Album(), tag.Year())
	}
}

func TestTagFileUnsupported(t *testing.T) {
	if err := TagFile("video.mp4", &Metadata{}, nil); err == nil {
		t.Error("expected error for unsupported format")
	}
}
