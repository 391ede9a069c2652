package mailer

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davet/jobdigest/internal/domain"
)

func TestRenderDigest(t *testing.T) {
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	jobs := []domain.JobDetail{
		{
			GUID:        "a",
			Title:       "Backend Engineer",
			Link:        "https://jobs.example.com/a",
			Description: "Build services.",
			Company:     "Acme Ltd",
			Location:    "Leeds",
			Salary:      "£45,000 per annum",
			JobNumber:   "1001",
		},
		{
			GUID:  "b",
			Title: "Data Analyst",
			Link:  "https://jobs.example.com/b",
		},
	}

	subject, html, err := RenderDigest(jobs, now)
	require.NoError(t, err)

	assert.Equal(t, "2 new jobs, 1 Mar 2026", subject)
	assert.Contains(t, html, "Backend Engineer")
	assert.Contains(t, html, "https://jobs.example.com/a")
	assert.Contains(t, html, "Acme Ltd")
	assert.Contains(t, html, "Ref 1001")
	assert.Contains(t, html, "Data Analyst")
	assert.Contains(t, html, "2 new job postings")
}

func TestRenderDigest_SingularCount(t *testing.T) {
	subject, html, err := RenderDigest([]domain.JobDetail{
		{Title: "Only Job", Link: "https://jobs.example.com/x"},
	}, time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(subject, "1 new jobs"))
	assert.Contains(t, html, "1 new job posting in this digest")
}

func TestRenderDigest_EscapesMarkup(t *testing.T) {
	_, html, err := RenderDigest([]domain.JobDetail{
		{Title: "<script>alert(1)</script>", Link: "https://jobs.example.com/x"},
	}, time.Now())
	require.NoError(t, err)
	assert.NotContains(t, html, "<script>")
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("word ", 100)
	got := truncate(long, 80)
	assert.LessOrEqual(t, len(got), 84) // limit plus ellipsis rune
	assert.True(t, strings.HasSuffix(got, "…"))

	short := "short description"
	assert.Equal(t, short, truncate(short, 80))
}

func TestTruncate_KeepsMultiByteRunesIntact(t *testing.T) {
	// Three-byte runes: a byte-index cut at 80 would land mid-sequence.
	got := truncate(strings.Repeat("漢", 100), 80)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, 81, utf8.RuneCountInString(got)) // limit plus ellipsis
	assert.True(t, strings.HasSuffix(got, "…"))
}
