// downloader/archive_checker.go
package downloader

import (
	"log"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// discoverFromArchive scrapes the archive listing page for PDF links and
// downloads the first one whose filename carries the wanted period's
// reference date. Last-resort resolution: the page is slow and its markup
// has changed before, so the structured attempts always come first.
func (d *PDFDownloader) discoverFromArchive(year int, month time.Month) bool {
	if d.ArchivePage == "" {
		return false
	}

	resp, err := d.client.Get(d.ArchivePage)
	if err != nil {
		log.Printf("Archive page unreachable: %v", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		log.Printf("Archive page returned status %d", resp.StatusCode)
		return false
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		log.Printf("Failed to parse archive page: %v", err)
		return false
	}

	var foundHref string
	doc.Find("a[href]").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		href, _ := sel.Attr("href")
		if !strings.HasSuffix(strings.ToLower(href), ".pdf") {
			return true
		}
		if !strings.Contains(strings.ToLower(href), "cruscotto") {
			return true
		}

		date, err := ExtractDate(unescapedBasename(href))
		if err != nil {
			return true
		}
		if date.Year() == year && date.Month() == month {
			foundHref = href
			return false
		}
		return true
	})

	if foundHref == "" {
		return false
	}

	fullURL := foundHref
	if strings.HasPrefix(foundHref, "/") {
		fullURL = d.Domain + foundHref
	}

	log.Printf("Archive discovery found %s for %d-%02d", foundHref, year, month)
	return d.Download(fullURL, unescapedBasename(foundHref))
}
