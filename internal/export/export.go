// Package export writes stored postings as newline-delimited JSON for search
// indexing, split into fixed-size part files.
package export

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"jobcrawl-engine/internal/domain"
	"jobcrawl-engine/internal/logger"
)

const DefaultLinesPerFile = 2500

// Record is one JSONL line.
type Record struct {
	ID         string     `json:"id"`
	StructData StructData `json:"structData"`
	Content    string     `json:"content"`
}

type StructData struct {
	Title          string `json:"title"`
	Company        string `json:"company"`
	Location       string `json:"location"`
	Experience     string `json:"experience"`
	EmploymentType string `json:"employment_type"`
	PostedDate     string `json:"posted_date"`
	DeadlineDate   string `json:"deadline_date"`
	CrawledAt      string `json:"crawled_at"`
	Link           string `json:"link"`
	Platform       string `json:"platform"`
}

func NewRecord(p domain.JobPosting) Record {
	var crawled string
	if !p.CrawledAt.IsZero() {
		crawled = p.CrawledAt.UTC().Format(time.RFC3339)
	}
	return Record{
		ID: p.ExternalID,
		StructData: StructData{
			Title:          p.Title,
			Company:        p.Company,
			Location:       p.Location,
			Experience:     p.Experience,
			EmploymentType: p.EmploymentType,
			PostedDate:     p.PostedDate,
			DeadlineDate:   p.DeadlineDate,
			CrawledAt:      crawled,
			Link:           p.DetailLink,
			Platform:       p.Platform,
		},
		Content: p.Title + "\n\n" + p.Description,
	}
}

// Target opens a named part file for writing.
type Target interface {
	Create(ctx context.Context, name string) (io.WriteCloser, error)
	String() string
}

// Dir writes part files into a local directory.
type Dir string

func (d Dir) Create(_ context.Context, name string) (io.WriteCloser, error) {
	if err := os.MkdirAll(string(d), 0o755); err != nil {
		return nil, err
	}
	return os.Create(filepath.Join(string(d), name))
}

func (d Dir) String() string { return string(d) }

type Exporter struct {
	Target       Target
	LinesPerFile int
	Log          logger.Interface
}

type Result struct {
	Files   []string `json:"files"`
	Records int      `json:"records"`
}

func PartName(n int) string {
	return fmt.Sprintf("job_data_part_%d.jsonl", n)
}

// Export writes postings to job_data_part_1.jsonl, job_data_part_2.jsonl, ...
// Postings without an external id or without a description are skipped.
func (e *Exporter) Export(ctx context.Context, postings []domain.JobPosting) (Result, error) {
	per := e.LinesPerFile
	if per <= 0 {
		per = DefaultLinesPerFile
	}
	log := e.Log
	if log == nil {
		log = logger.NewNoOp()
	}

	var (
		res  Result
		w    io.WriteCloser
		bw   *bufio.Writer
		enc  *json.Encoder
		line int
	)
	closeCurrent := func() error {
		if w == nil {
			return nil
		}
		ferr := bw.Flush()
		cerr := w.Close()
		w = nil
		if ferr != nil {
			return ferr
		}
		return cerr
	}

	for _, p := range postings {
		if p.ExternalID == "" || strings.TrimSpace(p.Description) == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			_ = closeCurrent()
			return res, err
		}
		if w == nil || line == per {
			if err := closeCurrent(); err != nil {
				return res, fmt.Errorf("close %s: %w", res.Files[len(res.Files)-1], err)
			}
			name := PartName(len(res.Files) + 1)
			f, err := e.Target.Create(ctx, name)
			if err != nil {
				return res, fmt.Errorf("create %s in %s: %w", name, e.Target, err)
			}
			w, bw, line = f, bufio.NewWriter(f), 0
			enc = json.NewEncoder(bw)
			enc.SetEscapeHTML(false)
			res.Files = append(res.Files, name)
		}
		if err := enc.Encode(NewRecord(p)); err != nil {
			_ = closeCurrent()
			return res, err
		}
		line++
		res.Records++
	}
	if err := closeCurrent(); err != nil {
		return res, err
	}

	log.Info("export finished", "target", e.Target.String(), "files", len(res.Files), "records", res.Records)
	return res, nil
}
