package storage

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/cesargomez89/ytmanager/internal/constants"
)

func Sanitize(s string) string {
	mapped := strings.Map(func(r rune) rune {
		if strings.ContainsRune(constants.InvalidPathChars, r) || r < 0x20 {
			return -1
		}
		return r
	}, s)

	return strings.TrimRight(strings.TrimSpace(mapped), ". ")
}

func EnsureDir(path string) error {
	return os.MkdirAll(path, constants.DirPermissions)
}

func WriteFile(path string, data []byte) error {
	return os.WriteFile(path, data, constants.FilePermissions)
}

func RemoveFile(path string) error {
	return os.Remove(path)
}

func DeleteFolderIfEmpty(dirPath string) error {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if len(entries) == 0 {
		return os.Remove(dirPath)
	}
	return nil
}

func IsNotExist(err error) bool {
	return os.IsNotExist(err)
}

// FindFiles lists the regular files named prefix or "<prefix>.*", i.e.
// "<prefix>.mp4", "<prefix>.en.vtt". A missing directory yields no files.
func FindFiles(prefix string) ([]string, error) {
	dir, base := filepath.Split(prefix)
	if dir == "" {
		dir = "."
	}
	if base == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !ownsFile(e.Name(), base) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

func ownsFile(name, base string) bool {
	return name == base || strings.HasPrefix(name, base+".")
}

var mediaExtensions = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/x-m4v",
	".mkv":  "video/x-matroska",
	".webm": "video/webm",
	".mov":  "video/quicktime",
	".avi":  "video/x-msvideo",
	".flv":  "video/x-flv",
	".ts":   "video/mp2t",
	".3gp":  "video/3gpp",
	".mp3":  constants.MimeTypeMP3,
	".m4a":  "audio/mp4",
	".flac": constants.MimeTypeFLAC,
	".opus": "audio/opus",
	".ogg":  "audio/ogg",
	".wav":  "audio/wav",
	".aac":  "audio/aac",
}

// MediaType returns the audio or video MIME type of a file, or "" when it
// is not a media file. Partial downloads never count as media.
func MediaType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if strings.HasPrefix(ext, constants.ExtPart) || ext == ".ytdl" {
		return ""
	}
	if mt, ok := mediaExtensions[ext]; ok {
		return mt
	}

	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return ""
	}
	if isMedia(mt.String()) {
		return mt.String()
	}
	return ""
}

func IsMediaFile(path string) bool {
	return MediaType(path) != ""
}

// IsAudioFile reports whether path holds audio only.
func IsAudioFile(path string) bool {
	return strings.HasPrefix(MediaType(path), "audio/")
}

func isMedia(mt string) bool {
	return strings.HasPrefix(mt, "video/") || strings.HasPrefix(mt, "audio/")
}

// ImageExtension picks a file extension for downloaded image data, trusting
// the declared content type first and sniffing the data otherwise.
func ImageExtension(contentType string, data []byte) string {
	if contentType != "" {
		if mt := mimetype.Lookup(strings.TrimSpace(strings.Split(contentType, ";")[0])); mt != nil && mt.Extension() != "" {
			return mt.Extension()
		}
	}
	if ext := mimetype.Detect(data).Extension(); ext != "" {
		return ext
	}
	return constants.ExtJPG
}
