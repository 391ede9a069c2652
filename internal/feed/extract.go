package feed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/davet/jobdigest/internal/domain"
	"github.com/davet/jobdigest/internal/logger"
)

// GUID prefixes distinguishing derived identities from feed-supplied ones.
const (
	hashedGUIDPrefix    = "h:"
	syntheticGUIDPrefix = "s:"
)

var jobNumberRe = regexp.MustCompile(`(?i)(?:job|ref|vacancy|posting)[\s#:=_-]*([0-9]{4,})`)

// FetchMetadata fetches the feed and extracts queue-ready metadata. Every
// item gets a guid: the feed's own identifier when usable, otherwise a
// content hash of link and title so the same posting dedupes across
// invocations, and a random synthetic id only when no content identity
// exists at all.
func (c *Client) FetchMetadata(ctx context.Context) ([]domain.JobMetadata, error) {
	items, err := c.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	metas := ExtractMetadata(items)

	synthetic := 0
	for _, m := range metas {
		if m.Synthetic {
			synthetic++
		}
	}
	if synthetic > 0 {
		c.logger.WithField(logger.FieldCount, synthetic).Warn("Generated synthetic guids for items without identity")
	}
	return metas, nil
}

// ExtractMetadata converts parsed feed items into job metadata records.
func ExtractMetadata(items []Item) []domain.JobMetadata {
	metas := make([]domain.JobMetadata, 0, len(items))
	for _, item := range items {
		guid, synthetic := DeriveGUID(item)
		metas = append(metas, domain.JobMetadata{
			GUID:      guid,
			JobNumber: extractJobNumber(item),
			PubDate:   item.PubDate,
			ApplyURL:  item.Link,
			Synthetic: synthetic,
		})
	}
	return metas
}

// DeriveGUID returns a stable identity for a feed item and whether it had
// to be generated randomly. Precedence: feed guid, then a sha256 hash of
// link and title, then a fresh uuid flagged synthetic.
func DeriveGUID(item Item) (string, bool) {
	if g := strings.TrimSpace(item.GUID); g != "" {
		return g, false
	}
	if item.Link != "" || item.Title != "" {
		return hashedGUIDPrefix + contentHash(item.Link, item.Title), false
	}
	return syntheticGUIDPrefix + uuid.New().String(), true
}

func contentHash(link, title string) string {
	sum := sha256.Sum256([]byte(link + "\n" + title))
	return hex.EncodeToString(sum[:])
}

// extractJobNumber pulls a posting reference number out of the guid, link
// or title when one is present. Best effort; empty is fine.
func extractJobNumber(item Item) string {
	for _, candidate := range []string{item.GUID, item.Link, item.Title} {
		if m := jobNumberRe.FindStringSubmatch(candidate); m != nil {
			return m[1]
		}
	}
	return ""
}
