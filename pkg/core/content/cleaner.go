package content

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DefaultMaxChars bounds the text one cleaned filing may contribute
// downstream. Korean filings routinely run past a megabyte of markup.
const DefaultMaxChars = 50000

// truncationMarker separates the head and tail of an over-long filing.
const truncationMarker = "\n\n... [중간 내용 생략] ...\n\n"

// Cleaner turns DART filing markup (XML or HTML) into plain text fit
// for prompting: scripts and styles dropped, tables flattened to
// pipe-delimited rows, entities unescaped, whitespace collapsed.
type Cleaner struct {
	maxChars int
}

func NewCleaner(maxChars int) *Cleaner {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	return &Cleaner{maxChars: maxChars}
}

// Clean extracts readable text from one filing part. Markup that
// goquery cannot parse degrades to a regex tag strip instead of
// failing.
func (c *Cleaner) Clean(markup string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		fmt.Printf("[WARNING] filing markup unparseable, stripping tags: %v\n", err)
		return c.finish(tagPattern.ReplaceAllString(markup, " "))
	}

	doc.Find("script, style").Remove()

	// Tables carry the numbers; flatten each row before the generic
	// text extraction flattens the structure away.
	doc.Find("table").Each(func(i int, table *goquery.Selection) {
		var rows []string
		table.Find("tr").Each(func(j int, tr *goquery.Selection) {
			var cells []string
			tr.Find("th, td").Each(func(k int, cell *goquery.Selection) {
				cells = append(cells, strings.TrimSpace(cell.Text()))
			})
			if len(cells) > 0 {
				rows = append(rows, strings.Join(cells, " | "))
			}
		})
		table.ReplaceWithHtml("\n" + html.EscapeString(strings.Join(rows, "\n")) + "\n")
	})

	body := doc.Find("body")
	text := body.Text()
	if strings.TrimSpace(text) == "" {
		text = doc.Text()
	}
	return c.finish(text)
}

var (
	tagPattern      = regexp.MustCompile(`<[^>]+>`)
	spacePattern    = regexp.MustCompile(`[ \t\r\x{00a0}]+`)
	newlinePattern  = regexp.MustCompile(`\n{3,}`)
	trailingPattern = regexp.MustCompile(`[ \t]+\n`)
)

// finish normalizes whitespace, unescapes entities, and trims to the
// length budget keeping both ends of the document.
func (c *Cleaner) finish(text string) string {
	text = html.UnescapeString(text)
	text = spacePattern.ReplaceAllString(text, " ")
	text = trailingPattern.ReplaceAllString(text, "\n")
	text = newlinePattern.ReplaceAllString(text, "\n\n")
	text = strings.TrimSpace(text)

	runes := []rune(text)
	if len(runes) <= c.maxChars {
		return text
	}

	// Keep the opening two thirds and the closing third: DART filings
	// put the decision summary up front and the schedules at the end.
	head := c.maxChars * 2 / 3
	tail := c.maxChars - head
	return strings.TrimSpace(string(runes[:head])) + truncationMarker + strings.TrimSpace(string(runes[len(runes)-tail:]))
}
