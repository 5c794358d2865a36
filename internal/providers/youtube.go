package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cesargomez89/ytmanager/internal/constants"
	"github.com/cesargomez89/ytmanager/internal/domain"
	"github.com/cesargomez89/ytmanager/internal/httpclient"
)

const (
	YouTubeProviderID = "youtube"
	YouTubeAPIBaseURL = "https://www.googleapis.com/youtube/v3"
)

type YouTubeSettings struct {
	APIKey string `json:"api_key"`
}

// YouTubeProvider talks to the YouTube Data API v3.
type YouTubeProvider struct {
	client  *httpclient.Client
	baseURL string
	apiKey  string
	mu      sync.RWMutex
}

func NewYouTubeProvider(client *httpclient.Client, baseURL string) *YouTubeProvider {
	if baseURL == "" {
		baseURL = YouTubeAPIBaseURL
	}
	return &YouTubeProvider{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (p *YouTubeProvider) ID() string { return YouTubeProviderID }

func (p *YouTubeProvider) DisplayName() string { return "YouTube API" }

func (p *YouTubeProvider) Configure(settings json.RawMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if settings == nil {
		p.apiKey = ""
		return nil
	}

	var s YouTubeSettings
	if err := json.Unmarshal(settings, &s); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProviderSetting, err)
	}
	if strings.TrimSpace(s.APIKey) == "" {
		return fmt.Errorf("%w: api_key is required", ErrInvalidProviderSetting)
	}
	p.apiKey = strings.TrimSpace(s.APIKey)
	return nil
}

func (p *YouTubeProvider) IsConfigured() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.apiKey != ""
}

type youtubeURLKind int

const (
	ytPlaylist youtubeURLKind = iota
	ytChannel
	ytUser
	ytHandle
)

type youtubeURL struct {
	id   string
	kind youtubeURLKind
}

func parseYouTubeURL(raw string) (youtubeURL, error) {
	raw = strings.TrimSpace(raw)
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return youtubeURL{}, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	host := strings.ToLower(u.Hostname())
	for _, prefix := range []string{"www.", "m.", "music."} {
		host = strings.TrimPrefix(host, prefix)
	}
	if host != "youtube.com" && host != "youtu.be" {
		return youtubeURL{}, fmt.Errorf("%w: %s is not a YouTube address", ErrInvalidURL, u.Hostname())
	}

	if list := u.Query().Get("list"); list != "" {
		return youtubeURL{kind: ytPlaylist, id: list}, nil
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	switch {
	case len(parts) >= 2 && parts[0] == "channel" && parts[1] != "":
		return youtubeURL{kind: ytChannel, id: parts[1]}, nil
	case len(parts) >= 2 && parts[0] == "user" && parts[1] != "":
		return youtubeURL{kind: ytUser, id: parts[1]}, nil
	case len(parts) >= 2 && parts[0] == "c" && parts[1] != "":
		return youtubeURL{kind: ytHandle, id: parts[1]}, nil
	case len(parts) >= 1 && strings.HasPrefix(parts[0], "@") && len(parts[0]) > 1:
		return youtubeURL{kind: ytHandle, id: parts[0]}, nil
	}
	return youtubeURL{}, fmt.Errorf("%w: the URL is not a channel or a playlist", ErrInvalidURL)
}

func (p *YouTubeProvider) ValidateURL(rawURL string) error {
	_, err := parseYouTubeURL(rawURL)
	return err
}

type ytThumbnail struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type ytThumbnails map[string]ytThumbnail

// best returns the largest thumbnail.
func (t ytThumbnails) best() string {
	var best ytThumbnail
	for _, th := range t {
		if best.URL == "" || th.Width*th.Height > best.Width*best.Height {
			best = th
		}
	}
	return best.URL
}

type ytSnippet struct {
	PublishedAt            time.Time    `json:"publishedAt"`
	Thumbnails             ytThumbnails `json:"thumbnails"`
	Title                  string       `json:"title"`
	Description            string       `json:"description"`
	ChannelID              string       `json:"channelId"`
	ChannelTitle           string       `json:"channelTitle"`
	VideoOwnerChannelTitle string       `json:"videoOwnerChannelTitle"`
	ResourceID             struct {
		VideoID string `json:"videoId"`
	} `json:"resourceId"`
	Position int `json:"position"`
}

func (p *YouTubeProvider) key() (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.apiKey == "" {
		return "", fmt.Errorf("%w: %s", ErrProviderNotConfigured, YouTubeProviderID)
	}
	return p.apiKey, nil
}

func (p *YouTubeProvider) get(ctx context.Context, resource string, params url.Values, out any) error {
	key, err := p.key()
	if err != nil {
		return err
	}
	params.Set("key", key)
	u := fmt.Sprintf("%s/%s?%s", p.baseURL, resource, params.Encode())

	if err := p.client.GetJSON(ctx, u, out); err != nil {
		if httpclient.IsNotFound(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, resource)
		}
		return fmt.Errorf("youtube %s request failed: %w", resource, err)
	}
	return nil
}

func (p *YouTubeProvider) FetchSubscription(ctx context.Context, rawURL string) (*domain.Subscription, error) {
	parsed, err := parseYouTubeURL(rawURL)
	if err != nil {
		return nil, err
	}

	sub := &domain.Subscription{ProviderID: YouTubeProviderID}

	if parsed.kind == ytPlaylist {
		var resp struct {
			Items []struct {
				ID      string    `json:"id"`
				Snippet ytSnippet `json:"snippet"`
			} `json:"items"`
		}
		params := url.Values{"part": {"snippet"}, "id": {parsed.id}}
		if err := p.get(ctx, "playlists", params, &resp); err != nil {
			return nil, err
		}
		if len(resp.Items) == 0 {
			return nil, fmt.Errorf("%w: playlist %s", ErrNotFound, parsed.id)
		}
		item := resp.Items[0]
		sub.ProviderNativeID = item.ID
		sub.Name = item.Snippet.Title
		sub.Description = item.Snippet.Description
		sub.ChannelName = item.Snippet.ChannelTitle
		sub.ThumbnailURL = item.Snippet.Thumbnails.best()
		return sub, nil
	}

	params := url.Values{"part": {"snippet,contentDetails"}}
	switch parsed.kind {
	case ytChannel:
		params.Set("id", parsed.id)
	case ytUser:
		params.Set("forUsername", parsed.id)
	default:
		params.Set("forHandle", parsed.id)
	}

	var resp struct {
		Items []struct {
			ID             string    `json:"id"`
			Snippet        ytSnippet `json:"snippet"`
			ContentDetails struct {
				RelatedPlaylists struct {
					Uploads string `json:"uploads"`
				} `json:"relatedPlaylists"`
			} `json:"contentDetails"`
		} `json:"items"`
	}
	if err := p.get(ctx, "channels", params, &resp); err != nil {
		return nil, err
	}
	if len(resp.Items) == 0 || resp.Items[0].ContentDetails.RelatedPlaylists.Uploads == "" {
		return nil, fmt.Errorf("%w: channel %s", ErrNotFound, parsed.id)
	}

	item := resp.Items[0]
	sub.ProviderNativeID = item.ContentDetails.RelatedPlaylists.Uploads
	sub.Name = item.Snippet.Title
	sub.Description = item.Snippet.Description
	sub.ChannelName = item.Snippet.Title
	sub.ThumbnailURL = item.Snippet.Thumbnails.best()
	// uploads playlists prepend new videos, so positions are not stable
	sub.RewritePlaylistIndices = true
	return sub, nil
}

func (p *YouTubeProvider) FetchVideos(ctx context.Context, sub *domain.Subscription) iter.Seq2[*domain.Video, error] {
	return func(yield func(*domain.Video, error) bool) {
		pageToken := ""
		for {
			params := url.Values{
				"part":       {"snippet"},
				"playlistId": {sub.ProviderNativeID},
				"maxResults": {"50"},
			}
			if pageToken != "" {
				params.Set("pageToken", pageToken)
			}

			var resp struct {
				NextPageToken string `json:"nextPageToken"`
				Items         []struct {
					Snippet ytSnippet `json:"snippet"`
				} `json:"items"`
			}
			if err := p.get(ctx, "playlistItems", params, &resp); err != nil {
				yield(nil, err)
				return
			}

			for _, item := range resp.Items {
				s := item.Snippet
				if s.ResourceID.VideoID == "" {
					continue
				}
				v := &domain.Video{
					SubscriptionID:   sub.ID,
					ProviderNativeID: s.ResourceID.VideoID,
					Name:             s.Title,
					Description:      s.Description,
					PublishDate:      s.PublishedAt,
					ThumbnailURL:     s.Thumbnails.best(),
					UploaderName:     s.VideoOwnerChannelTitle,
					PlaylistIndex:    s.Position,
					Rating:           0.5,
					IsNew:            true,
				}
				if !yield(v, nil) {
					return
				}
			}

			if resp.NextPageToken == "" {
				return
			}
			pageToken = resp.NextPageToken
		}
	}
}

func (p *YouTubeProvider) UpdateVideos(ctx context.Context, videos []*domain.Video, opts UpdateOptions) error {
	parts := []string{"id"}
	if opts.Metadata {
		parts = append(parts, "snippet", "contentDetails")
	}
	if opts.Stats {
		parts = append(parts, "statistics")
	}
	if len(parts) == 1 || len(videos) == 0 {
		return nil
	}

	byID := make(map[string][]*domain.Video, len(videos))
	ids := make([]string, 0, len(videos))
	for _, v := range videos {
		if _, ok := byID[v.ProviderNativeID]; !ok {
			ids = append(ids, v.ProviderNativeID)
		}
		byID[v.ProviderNativeID] = append(byID[v.ProviderNativeID], v)
	}

	for start := 0; start < len(ids); start += constants.ProviderStatsBatchSize {
		end := min(start+constants.ProviderStatsBatchSize, len(ids))

		var resp struct {
			Items []struct {
				ID             string    `json:"id"`
				Snippet        ytSnippet `json:"snippet"`
				ContentDetails struct {
					Duration string `json:"duration"`
				} `json:"contentDetails"`
				Statistics struct {
					ViewCount    string `json:"viewCount"`
					LikeCount    string `json:"likeCount"`
					DislikeCount string `json:"dislikeCount"`
				} `json:"statistics"`
			} `json:"items"`
		}
		params := url.Values{
			"part": {strings.Join(parts, ",")},
			"id":   {strings.Join(ids[start:end], ",")},
		}
		if err := p.get(ctx, "videos", params, &resp); err != nil {
			return err
		}

		for _, item := range resp.Items {
			for _, v := range byID[item.ID] {
				if opts.Metadata {
					v.Name = item.Snippet.Title
					v.Description = item.Snippet.Description
					if d, ok := parseISODuration(item.ContentDetails.Duration); ok {
						v.Duration = d
					}
				}
				if opts.Stats {
					if views, err := strconv.ParseInt(item.Statistics.ViewCount, 10, 64); err == nil {
						v.Views = views
					}
					likes, errL := strconv.ParseInt(item.Statistics.LikeCount, 10, 64)
					dislikes, errD := strconv.ParseInt(item.Statistics.DislikeCount, 10, 64)
					if errL == nil && errD == nil && likes+dislikes > 0 {
						v.Rating = float64(likes) / float64(likes+dislikes)
					}
				}
			}
		}
	}
	return nil
}

func (p *YouTubeProvider) VideoURL(video *domain.Video) string {
	return "https://www.youtube.com/watch?v=" + url.QueryEscape(video.ProviderNativeID)
}

func (p *YouTubeProvider) SubscriptionURL(sub *domain.Subscription) string {
	return "https://www.youtube.com/playlist?list=" + url.QueryEscape(sub.ProviderNativeID)
}

var isoDurationRe = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)

// parseISODuration converts durations such as PT1H2M3S to seconds.
func parseISODuration(s string) (int, bool) {
	m := isoDurationRe.FindStringSubmatch(s)
	if m == nil || s == "P" || s == "PT" {
		return 0, false
	}
	total := 0
	for i, mult := range []int{86400, 3600, 60, 1} {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return 0, false
		}
		total += n * mult
	}
	return total, true
}

var _ Provider = (*YouTubeProvider)(nil)
