package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Example Jobs</title>
    <item>
      <title>Backend Engineer</title>
      <link>https://jobs.example.com/1001</link>
      <guid isPermaLink="false">job-1001</guid>
      <pubDate>Sun, 01 Mar 2026 09:00:00 +0000</pubDate>
      <description>&lt;p&gt;Company: Acme Ltd. Location: Leeds. Salary: £45,000 per annum. Full-time role.&lt;/p&gt;</description>
    </item>
    <item>
      <title>Data Analyst</title>
      <link>https://jobs.example.com/1002</link>
      <pubDate>Sun, 01 Mar 2026 10:00:00 +0000</pubDate>
      <description>Part-time position.</description>
    </item>
  </channel>
</rss>`

func newFeedServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetch_ParsesFeed(t *testing.T) {
	srv := newFeedServer(t, http.StatusOK, sampleFeed)
	client := NewClient(&Config{URL: srv.URL, Timeout: 5 * time.Second}, nil)

	items, err := client.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "Backend Engineer", items[0].Title)
	assert.Equal(t, "job-1001", items[0].GUID)
	assert.Equal(t, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC), items[0].PubDate)

	assert.Empty(t, items[1].GUID, "missing guid stays empty at parse level")
}

func TestFetch_NonOKStatusIsError(t *testing.T) {
	srv := newFeedServer(t, http.StatusServiceUnavailable, "down")
	client := NewClient(&Config{URL: srv.URL, Timeout: 5 * time.Second}, nil)

	_, err := client.Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestFetch_MalformedFeedIsError(t *testing.T) {
	srv := newFeedServer(t, http.StatusOK, "this is not xml <<")
	client := NewClient(&Config{URL: srv.URL, Timeout: 5 * time.Second}, nil)

	_, err := client.Fetch(context.Background())
	require.Error(t, err)
}

func TestHydrate_ReturnsOnlyRequestedGUIDs(t *testing.T) {
	srv := newFeedServer(t, http.StatusOK, sampleFeed)
	client := NewClient(&Config{URL: srv.URL, Timeout: 5 * time.Second}, nil)

	details, err := client.Hydrate(context.Background(), []string{"job-1001", "job-gone"})
	require.NoError(t, err)
	require.Len(t, details, 1, "guids not in the snapshot are omitted")

	d := details[0]
	assert.Equal(t, "job-1001", d.GUID)
	assert.Equal(t, "Backend Engineer", d.Title)
	assert.Equal(t, "1001", d.JobNumber)
	assert.Equal(t, "Acme Ltd", d.Company)
	assert.Equal(t, "Leeds", d.Location)
	assert.Contains(t, d.Salary, "£45,000")
	assert.Equal(t, "Full-time", d.Hours)
	assert.NotContains(t, d.Description, "<p>", "markup is stripped")
}

func TestHydrate_MatchesDerivedHashGUIDs(t *testing.T) {
	srv := newFeedServer(t, http.StatusOK, sampleFeed)
	client := NewClient(&Config{URL: srv.URL, Timeout: 5 * time.Second}, nil)

	// The second item has no feed guid; its queued identity is the
	// content hash, which must match on re-fetch.
	guid, synthetic := DeriveGUID(Item{Link: "https://jobs.example.com/1002", Title: "Data Analyst"})
	require.False(t, synthetic)

	details, err := client.Hydrate(context.Background(), []string{guid})
	require.NoError(t, err)
	require.Len(t, details, 1)
	assert.Equal(t, "Data Analyst", details[0].Title)
	assert.Equal(t, "Part-time", details[0].Hours)
}
