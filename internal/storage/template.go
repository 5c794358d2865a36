package storage

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/cesargomez89/ytmanager/internal/domain"
)

// PathTemplateData holds the data for path template execution
type PathTemplateData struct {
	Subscription string
	Channel      string
	Uploader     string
	Title        string
	ID           string
	Index        string
	Date         string
	Year         int
}

// BuildPath executes the template and returns the relative path (without extension)
func BuildPath(templateStr string, data *PathTemplateData) (string, error) {
	tmpl, err := template.New("path").Option("missingkey=error").Parse(templateStr)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}

// BuildPathTemplateData creates PathTemplateData from a video and its subscription
func BuildPathTemplateData(sub *domain.Subscription, video *domain.Video) *PathTemplateData {
	date := video.PublishDate
	if date.IsZero() {
		date = time.Now()
	}
	return &PathTemplateData{
		Subscription: Sanitize(sub.Name),
		Channel:      Sanitize(sub.ChannelName),
		Uploader:     Sanitize(video.UploaderName),
		Title:        Sanitize(video.Name),
		ID:           Sanitize(video.ProviderNativeID),
		Index:        FormatIndex(video.PlaylistIndex),
		Date:         date.Format("2006-01-02"),
		Year:         date.Year(),
	}
}

// BuildVideoPrefix returns the absolute download prefix of a video under
// downloadsDir. Templates that escape downloadsDir are rejected.
func BuildVideoPrefix(downloadsDir, templateStr string, data *PathTemplateData) (string, error) {
	relPath, err := BuildPath(templateStr, data)
	if err != nil {
		return "", err
	}
	relPath = strings.TrimSpace(relPath)
	if relPath == "" {
		return "", fmt.Errorf("template %q produced an empty path", templateStr)
	}

	root := filepath.Clean(downloadsDir)
	fullPath := filepath.Clean(filepath.Join(root, relPath))
	rel, err := filepath.Rel(root, fullPath)
	if err != nil || rel == "." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || rel == ".." {
		return "", fmt.Errorf("path %q escapes the downloads directory", relPath)
	}
	return fullPath, nil
}

// ValidateTemplate parses templateStr and executes it against sample data.
func ValidateTemplate(templateStr string) error {
	sample := &PathTemplateData{
		Subscription: "Subscription",
		Channel:      "Channel",
		Uploader:     "Uploader",
		Title:        "Title",
		ID:           "id",
		Index:        FormatIndex(1),
		Date:         "2000-01-01",
		Year:         2000,
	}
	_, err := BuildVideoPrefix(string(filepath.Separator)+"downloads", templateStr, sample)
	return err
}

// FormatIndex formats a playlist index with zero-padding
func FormatIndex(n int) string {
	return fmt.Sprintf("%03d", n)
}
