package feed

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveGUID_FeedGUIDWins(t *testing.T) {
	guid, synthetic := DeriveGUID(Item{
		GUID:  "feed-guid-123",
		Link:  "https://jobs.example.com/123",
		Title: "Engineer",
	})
	assert.Equal(t, "feed-guid-123", guid)
	assert.False(t, synthetic)
}

func TestDeriveGUID_ContentHashIsDeterministic(t *testing.T) {
	item := Item{Link: "https://jobs.example.com/123", Title: "Engineer"}

	guid1, synthetic1 := DeriveGUID(item)
	guid2, synthetic2 := DeriveGUID(item)

	assert.Equal(t, guid1, guid2, "same posting must dedupe across invocations")
	assert.True(t, strings.HasPrefix(guid1, "h:"))
	assert.False(t, synthetic1)
	assert.False(t, synthetic2)

	// Different content, different identity
	other, _ := DeriveGUID(Item{Link: "https://jobs.example.com/456", Title: "Engineer"})
	assert.NotEqual(t, guid1, other)
}

func TestDeriveGUID_SyntheticOnlyWithoutAnyIdentity(t *testing.T) {
	guid1, synthetic := DeriveGUID(Item{})
	require.True(t, synthetic)
	assert.True(t, strings.HasPrefix(guid1, "s:"))

	guid2, _ := DeriveGUID(Item{})
	assert.NotEqual(t, guid1, guid2, "synthetic guids are random")
}

func TestDeriveGUID_WhitespaceGUIDFallsBackToHash(t *testing.T) {
	guid, synthetic := DeriveGUID(Item{GUID: "  ", Link: "https://jobs.example.com/1", Title: "T"})
	assert.True(t, strings.HasPrefix(guid, "h:"))
	assert.False(t, synthetic)
}

func TestExtractMetadata(t *testing.T) {
	pub := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	items := []Item{
		{GUID: "g1", Link: "https://jobs.example.com/1", Title: "First", PubDate: pub},
		{Link: "https://jobs.example.com/2", Title: "Second", PubDate: pub.Add(time.Hour)},
	}

	metas := ExtractMetadata(items)
	require.Len(t, metas, 2)
	assert.Equal(t, "g1", metas[0].GUID)
	assert.Equal(t, "https://jobs.example.com/1", metas[0].ApplyURL)
	assert.Equal(t, pub, metas[0].PubDate)
	assert.True(t, strings.HasPrefix(metas[1].GUID, "h:"))
	assert.False(t, metas[1].Synthetic)
}

func TestExtractJobNumber(t *testing.T) {
	tests := []struct {
		name string
		item Item
		want string
	}{
		{
			name: "from guid",
			item: Item{GUID: "job-128734", Link: "https://jobs.example.com/x"},
			want: "128734",
		},
		{
			name: "from link",
			item: Item{Link: "https://jobs.example.com/vacancy=400291"},
			want: "400291",
		},
		{
			name: "from title",
			item: Item{Title: "Senior Engineer (Ref: 55023)"},
			want: "55023",
		},
		{
			name: "absent",
			item: Item{Title: "Engineer", Link: "https://jobs.example.com/x"},
			want: "",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, extractJobNumber(tc.item))
		})
	}
}

func TestParsePubDate(t *testing.T) {
	fallback := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{
			name:  "RFC1123Z",
			input: "Sun, 01 Mar 2026 09:30:00 +0000",
			want:  time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
		},
		{
			name:  "single digit day",
			input: "Sun, 1 Mar 2026 09:30:00 +0000",
			want:  time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
		},
		{
			name:  "ISO 8601",
			input: "2026-03-01T09:30:00Z",
			want:  time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
		},
		{
			name:  "garbage falls back",
			input: "not a date",
			want:  fallback,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := parsePubDate(tc.input, fallback)
			assert.True(t, tc.want.Equal(got), "want %s, got %s", tc.want, got)
		})
	}
}
