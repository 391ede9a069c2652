package mailer

import (
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/davet/jobdigest/internal/domain"
)

var digestTemplate = template.Must(template.New("digest").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; max-width: 640px; margin: 0 auto;">
  <h1 style="font-size: 20px;">{{.Heading}}</h1>
  <p>{{.Count}} new job posting{{if ne .Count 1}}s{{end}} in this digest.</p>
  {{range .Jobs}}
  <div style="border: 1px solid #ddd; border-radius: 6px; padding: 12px; margin-bottom: 12px;">
    <h2 style="font-size: 16px; margin: 0 0 6px 0;">
      <a href="{{.Link}}">{{.Title}}</a>
    </h2>
    <p style="margin: 0 0 6px 0; color: #555;">
      {{if .Company}}{{.Company}}{{end}}
      {{if .Location}} &middot; {{.Location}}{{end}}
      {{if .Salary}} &middot; {{.Salary}}{{end}}
      {{if .Hours}} &middot; {{.Hours}}{{end}}
    </p>
    <p style="margin: 0 0 6px 0;">{{.Summary}}</p>
    <p style="margin: 0;"><a href="{{.Link}}">Apply</a>
      {{if .JobNumber}}<span style="color: #999;"> &middot; Ref {{.JobNumber}}</span>{{end}}
    </p>
  </div>
  {{end}}
</body>
</html>`))

type digestData struct {
	Heading string
	Count   int
	Jobs    []digestJob
}

type digestJob struct {
	Title     string
	Link      string
	Company   string
	Location  string
	Salary    string
	Hours     string
	Summary   string
	JobNumber string
}

const summaryMaxLen = 280

// RenderDigest produces the campaign subject and HTML body for a set of
// hydrated job details.
func RenderDigest(jobs []domain.JobDetail, now time.Time) (subject, html string, err error) {
	data := digestData{
		Heading: fmt.Sprintf("Job Digest: %s", now.Format("2 January 2006")),
		Count:   len(jobs),
	}
	for _, j := range jobs {
		data.Jobs = append(data.Jobs, digestJob{
			Title:     j.Title,
			Link:      j.Link,
			Company:   j.Company,
			Location:  j.Location,
			Salary:    j.Salary,
			Hours:     j.Hours,
			Summary:   truncate(j.Description, summaryMaxLen),
			JobNumber: j.JobNumber,
		})
	}

	var sb strings.Builder
	if err := digestTemplate.Execute(&sb, data); err != nil {
		return "", "", fmt.Errorf("failed to render digest: %w", err)
	}

	subject = fmt.Sprintf("%d new jobs, %s", len(jobs), now.Format("2 Jan 2006"))
	return subject, sb.String(), nil
}

// truncate caps s at max runes, backing off to a word boundary. Slicing
// runes rather than bytes keeps multi-byte characters intact.
func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	cut := string(runes[:max])
	if idx := strings.LastIndex(cut, " "); idx > len(cut)/2 {
		cut = cut[:idx]
	}
	return cut + "…"
}
