package feed

import (
	"context"
	"regexp"
	"strings"

	"github.com/davet/jobdigest/internal/domain"
	"github.com/davet/jobdigest/internal/logger"
)

// Field-guessing patterns for free-text descriptions. Quality here does
// not affect queue correctness; the fields are display-only.
var (
	salaryRe   = regexp.MustCompile(`(?i)(?:salary[\s:]*)?([£$€]\s?[0-9][0-9,.]*(?:k|\d)?(?:\s*[-–to]+\s*[£$€]?\s?[0-9][0-9,.]*(?:k|\d)?)?(?:\s*(?:per|/)\s*(?:year|annum|hour|month|pa))?)`)
	locationRe = regexp.MustCompile(`(?i)location[\s:]+([^<.\n|]{2,60})`)
	companyRe  = regexp.MustCompile(`(?i)(?:company|employer)[\s:]+([^<.\n|]{2,60})`)
	hoursRe    = regexp.MustCompile(`(?i)(full[- ]time|part[- ]time|[0-9]{1,2}(?:\.[0-9])?\s*hours?(?:\s*per\s*week)?)`)
	tagRe      = regexp.MustCompile(`<[^>]+>`)
)

// Hydrate re-fetches the feed and returns full detail records for the
// requested guids found in the current snapshot. Guids no longer present
// in the feed are omitted, not errored: postings can disappear between
// enqueue and send.
func (c *Client) Hydrate(ctx context.Context, guids []string) ([]domain.JobDetail, error) {
	items, err := c.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	wanted := make(map[string]struct{}, len(guids))
	for _, g := range guids {
		wanted[g] = struct{}{}
	}

	details := make([]domain.JobDetail, 0, len(guids))
	for _, item := range items {
		guid, synthetic := DeriveGUID(item)
		if synthetic {
			// A random guid can never match a previously queued one.
			continue
		}
		if _, ok := wanted[guid]; !ok {
			continue
		}
		details = append(details, buildDetail(guid, item))
	}

	if len(details) < len(guids) {
		c.logger.WithFields(logger.Fields{
			"requested": len(guids),
			"found":     len(details),
		}).Warn("Hydration shortfall: some guids no longer in feed")
	}
	return details, nil
}

// buildDetail assembles a JobDetail with best-effort field extraction from
// the description text.
func buildDetail(guid string, item Item) domain.JobDetail {
	text := stripTags(item.Description)
	return domain.JobDetail{
		GUID:        guid,
		JobNumber:   extractJobNumber(item),
		Title:       strings.TrimSpace(item.Title),
		Link:        item.Link,
		Description: text,
		PubDate:     item.PubDate,
		Company:     firstMatch(companyRe, text),
		Location:    firstMatch(locationRe, text),
		Salary:      firstMatch(salaryRe, text),
		Hours:       firstMatch(hoursRe, text),
	}
}

func firstMatch(re *regexp.Regexp, text string) string {
	if m := re.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

func stripTags(s string) string {
	return strings.TrimSpace(tagRe.ReplaceAllString(s, " "))
}
