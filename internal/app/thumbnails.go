package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cesargomez89/ytmanager/internal/httpclient"
	"github.com/cesargomez89/ytmanager/internal/logger"
	"github.com/cesargomez89/ytmanager/internal/storage"
)

const maxThumbnailSize = 10 << 20

// ThumbnailService re-hosts remote thumbnails under ThumbnailsDir and serves
// them from ThumbnailsURL.
type ThumbnailService struct {
	client  *httpclient.Client
	logger  *logger.Logger
	dir     string
	baseURL string
}

func NewThumbnailService(client *httpclient.Client, dir, baseURL string, log *logger.Logger) *ThumbnailService {
	if log == nil {
		log = logger.Default()
	}
	return &ThumbnailService{
		client:  client,
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  log.WithComponent("thumbnails"),
	}
}

// IsLocal reports whether url points at a re-hosted copy.
func (s *ThumbnailService) IsLocal(url string) bool {
	return strings.HasPrefix(url, s.baseURL+"/")
}

// NeedsFetch reports whether url is a remote image that has not been
// re-hosted yet.
func (s *ThumbnailService) NeedsFetch(url string) bool {
	if url == "" || s.IsLocal(url) {
		return false
	}
	return strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
}

// Fetch downloads remoteURL and stores it as <kind>/<id><ext>. It returns
// the local URL, or remoteURL together with the error when anything fails.
func (s *ThumbnailService) Fetch(ctx context.Context, kind string, id int64, remoteURL string) (string, error) {
	if !s.NeedsFetch(remoteURL) {
		return remoteURL, nil
	}

	data, contentType, err := s.client.GetBytes(ctx, remoteURL, maxThumbnailSize)
	if err != nil {
		return remoteURL, fmt.Errorf("failed to download thumbnail: %w", err)
	}

	name := strconv.FormatInt(id, 10) + storage.ImageExtension(contentType, data)
	kindDir := filepath.Join(s.dir, kind)
	if err := storage.EnsureDir(kindDir); err != nil {
		return remoteURL, fmt.Errorf("failed to create thumbnail directory: %w", err)
	}
	if err := storage.WriteFile(filepath.Join(kindDir, name), data); err != nil {
		return remoteURL, fmt.Errorf("failed to save thumbnail: %w", err)
	}

	s.logger.Debug("Thumbnail saved", "kind", kind, "id", id, "bytes", len(data))
	return s.baseURL + "/" + kind + "/" + name, nil
}

// ImageData returns the bytes behind a thumbnail URL, reading re-hosted
// copies from disk.
func (s *ThumbnailService) ImageData(ctx context.Context, url string) ([]byte, error) {
	if s.IsLocal(url) {
		rel := filepath.FromSlash(strings.TrimPrefix(url, s.baseURL+"/"))
		return os.ReadFile(filepath.Join(s.dir, filepath.Clean(rel)))
	}
	if !s.NeedsFetch(url) {
		return nil, fmt.Errorf("no image at %q", url)
	}
	data, _, err := s.client.GetBytes(ctx, url, maxThumbnailSize)
	return data, err
}

// Dir is the directory served under the thumbnails URL.
func (s *ThumbnailService) Dir() string {
	return s.dir
}

// Remove deletes every stored thumbnail of an object.
func (s *ThumbnailService) Remove(kind string, id int64) error {
	files, err := storage.FindFiles(filepath.Join(s.dir, kind, strconv.FormatInt(id, 10)+"."))
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := storage.RemoveFile(f); err != nil && !storage.IsNotExist(err) {
			return err
		}
	}
	return nil
}
