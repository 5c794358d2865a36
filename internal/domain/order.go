package domain

import "fmt"

// DownloadOrder decides which candidates are downloaded first.
type DownloadOrder string

const (
	OrderNewest          DownloadOrder = "newest"
	OrderOldest          DownloadOrder = "oldest"
	OrderPlaylist        DownloadOrder = "playlist"
	OrderPlaylistReverse DownloadOrder = "playlist_reverse"
	OrderPopularity      DownloadOrder = "popularity"
	OrderRating          DownloadOrder = "rating"
)

var orderClauses = map[DownloadOrder]string{
	OrderNewest:          "publish_date DESC",
	OrderOldest:          "publish_date ASC",
	OrderPlaylist:        "playlist_index ASC",
	OrderPlaylistReverse: "playlist_index DESC",
	OrderPopularity:      "views DESC",
	OrderRating:          "rating DESC",
}

// ParseDownloadOrder validates s.
func ParseDownloadOrder(s string) (DownloadOrder, error) {
	o := DownloadOrder(s)
	if _, ok := orderClauses[o]; !ok {
		return "", fmt.Errorf("unknown download order %q", s)
	}
	return o, nil
}

// OrderBy returns the SQL ORDER BY expression for the order, with the row id
// as tiebreaker. Unknown orders sort by playlist index.
func (o DownloadOrder) OrderBy() string {
	clause, ok := orderClauses[o]
	if !ok {
		clause = orderClauses[OrderPlaylist]
	}
	return clause + ", id ASC"
}

// Less reports whether a sorts before b under the order.
func (o DownloadOrder) Less(a, b *Video) bool {
	switch o {
	case OrderNewest:
		if !a.PublishDate.Equal(b.PublishDate) {
			return a.PublishDate.After(b.PublishDate)
		}
	case OrderOldest:
		if !a.PublishDate.Equal(b.PublishDate) {
			return a.PublishDate.Before(b.PublishDate)
		}
	case OrderPlaylistReverse:
		if a.PlaylistIndex != b.PlaylistIndex {
			return a.PlaylistIndex > b.PlaylistIndex
		}
	case OrderPopularity:
		if a.Views != b.Views {
			return a.Views > b.Views
		}
	case OrderRating:
		if a.Rating != b.Rating {
			return a.Rating > b.Rating
		}
	default:
		if a.PlaylistIndex != b.PlaylistIndex {
			return a.PlaylistIndex < b.PlaylistIndex
		}
	}
	return a.ID < b.ID
}
