// Package clause splits extracted contract text into numbered clauses.
package clause

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/dshills/contractpilot/internal/schema"
)

// IsMarkerFn reports whether a trimmed line opens a new clause.
type IsMarkerFn func(line string) bool

// DefaultMarkers are tried in order: article, numbered paragraph, item.
var DefaultMarkers = []IsMarkerFn{IsArticle, IsNumbered, IsItem}

// Segmenter splits contract text into clauses.
type Segmenter struct {
	Markers []IsMarkerFn // defaults to DefaultMarkers if empty
}

// Split is Segmenter{}.Split.
func Split(text string) []schema.Clause {
	return Segmenter{}.Split(text)
}

// ParseFile reads the file at path and segments it using s.
func (s Segmenter) ParseFile(path string) ([]schema.Clause, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("clause: open %s: %w", path, err)
	}
	defer f.Close()
	return s.ParseReader(f)
}

// ParseReader reads all lines from r and segments them using s.
func (s Segmenter) ParseReader(r io.Reader) ([]schema.Clause, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	// Extracted PDF text can put a whole page on one line.
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("clause: scan: %w", err)
	}
	return s.segment(lines), nil
}

// Split segments text. It never fails: text without any marker becomes a
// single clause numbered 0 with an empty title, and blank text yields no
// clauses.
func (s Segmenter) Split(text string) []schema.Clause {
	return s.segment(strings.Split(text, "\n"))
}

func (s Segmenter) markers() []IsMarkerFn {
	if len(s.Markers) == 0 {
		return DefaultMarkers
	}
	return s.Markers
}

func (s Segmenter) isMarker(trimmed string) bool {
	for _, m := range s.markers() {
		if m(trimmed) {
			return true
		}
	}
	return false
}

func (s Segmenter) segment(lines []string) []schema.Clause {
	var clauses []schema.Clause
	number := 0
	title := ""
	var buf strings.Builder

	flush := func() {
		content := strings.TrimSpace(buf.String())
		if content == "" {
			return
		}
		clauses = append(clauses, schema.Clause{
			Number:  number,
			Title:   title,
			Content: content,
		})
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if s.isMarker(trimmed) {
			// Text before the first marker is emitted as clause 0.
			flush()
			number++
			title = trimmed
			buf.Reset()
		}
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	flush()

	return clauses
}

// Digits and spaces are Unicode classes: extracted text carries fullwidth
// digits (제１조) and no-break spaces.
var (
	articleRe  = regexp.MustCompile(`^제[\s\p{Zs}]*\p{Nd}+[\s\p{Zs}]*조`)
	numberedRe = regexp.MustCompile(`^\p{Nd}+\.[\s\p{Zs}]+`)
	itemRe     = regexp.MustCompile(`^제[\s\p{Zs}]*\p{Nd}+[\s\p{Zs}]*항`)
)

// IsArticle matches "제N조" headings such as "제1조 목적" or "제 12 조(기간)".
func IsArticle(line string) bool {
	return articleRe.MatchString(strings.TrimSpace(line))
}

// IsNumbered matches "N. " paragraphs. A bare "1." with nothing after it is
// not a marker.
func IsNumbered(line string) bool {
	return numberedRe.MatchString(strings.TrimSpace(line))
}

// IsItem matches "제N항" sub-paragraph markers.
func IsItem(line string) bool {
	return itemRe.MatchString(strings.TrimSpace(line))
}
