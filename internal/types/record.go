package types

import (
	"crypto/md5"
	"encoding/hex"
	"net/url"
	"time"

	"github.com/IshaanNene/newsgoat/internal/category"
)

// idLength is the number of hex characters kept from the URL digest.
const idLength = 10

// Record is one extracted news article.
type Record struct {
	ID          string            `json:"id"           bson:"_id"`
	Title       string            `json:"title"        bson:"title"`
	Description string            `json:"description"  bson:"description"`
	Content     string            `json:"content"      bson:"content"`
	Summary     string            `json:"summary"      bson:"summary"`
	URL         string            `json:"url"          bson:"url"`
	ImageURL    string            `json:"image_url"    bson:"image_url"`
	Provider    string            `json:"provider"     bson:"provider"`
	Category    category.Category `json:"category"     bson:"category"`
	CreatedAt   string            `json:"created_at"   bson:"created_at"`
	RelatedURLs []string          `json:"related_urls,omitempty" bson:"related_urls,omitempty"`
}

// ListingLink is an article link found on an index page.
type ListingLink struct {
	URL      string
	Title    string
	ImageURL string
}

// RecordID derives the stable identifier for an article URL from its path.
// Unparseable URLs are hashed whole.
func RecordID(rawURL string) string {
	key := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Scheme != "" && u.Host != "" {
		key = u.Path
		if key == "" {
			key = "/"
		}
	}
	return digest(key)
}

func digest(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])[:idLength]
}

// Published parses CreatedAt. Unparseable values yield the zero time.
func (r *Record) Published() time.Time {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, r.CreatedAt); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Clone returns a deep copy.
func (r *Record) Clone() *Record {
	c := *r
	if r.RelatedURLs != nil {
		c.RelatedURLs = append([]string(nil), r.RelatedURLs...)
	}
	return &c
}
