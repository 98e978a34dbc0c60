package jobsps

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	log "github.com/sirupsen/logrus"
)

// listingRow is the partial record parsed from one listing-page job row,
// before detail enrichment.
type listingRow struct {
	Title    string
	Company  string
	Link     string
	Location string
	DateStr  string
}

// detailMetadata is what a detail page contributes on top of a listingRow.
type detailMetadata struct {
	PositionLevel string
	Location      string
	Deadline      string
	Experience    string
}

// parseTotalPages reads the pagination control's last page link. A missing
// or unparseable control means a single page.
func parseTotalPages(doc *goquery.Document) int {
	href, ok := doc.Find("ul.pagination li:last-child a").First().Attr("href")
	if !ok {
		return 1
	}

	_, param, found := strings.Cut(href, "page=")
	if !found {
		return 1
	}

	pages, err := strconv.Atoi(param)
	if err != nil {
		return 1
	}
	return pages
}

// parseListingRows extracts the partial job records from a listing page.
func parseListingRows(doc *goquery.Document) []listingRow {
	var rows []listingRow

	doc.Find("div.list-3--body a.list-3--row").Each(func(_ int, row *goquery.Selection) {
		title, hasTitle := row.Attr("title")
		href, hasHref := row.Attr("href")
		if !hasTitle || !hasHref || strings.TrimSpace(title) == "" || strings.TrimSpace(href) == "" {
			return
		}

		location, _ := row.Find("span.tooltip").First().Attr("title")
		if location == "" {
			location = strings.TrimSpace(row.Find("span.tooltip").First().Text())
		}

		rows = append(rows, listingRow{
			Title:    strings.TrimSpace(title),
			Company:  strings.TrimSpace(row.Find("div.list--cell--company").First().Text()),
			Link:     strings.TrimSpace(href),
			Location: location,
			DateStr:  strings.TrimSpace(row.Find("div.list-3--cell-4").First().Text()),
		})
	})

	return rows
}

// jsonLDPosting mirrors the schema.org JobPosting fields the detail pages
// embed as application/ld+json.
type jsonLDPosting struct {
	ValidThrough           string `json:"validThrough"`
	ExperienceRequirements string `json:"experienceRequirements"`
	JobLocation            []struct {
		Address struct {
			AddressLocality string `json:"addressLocality"`
		} `json:"address"`
	} `json:"jobLocation"`
}

// parseDetailMetadata extracts detail-page metadata, preferring the JSON-LD
// structured data block and falling back to the keyed detail panel for any
// field it omits. PositionLevel only exists in the panel.
func parseDetailMetadata(doc *goquery.Document) detailMetadata {
	var details detailMetadata

	if raw := doc.Find(`script[type="application/ld+json"]`).First().Text(); raw != "" {
		var ld jsonLDPosting
		if err := json.Unmarshal([]byte(raw), &ld); err != nil {
			log.Debugf("failed to parse JSON-LD block: %v", err)
		} else {
			details.Deadline = ld.ValidThrough
			details.Experience = ld.ExperienceRequirements
			if len(ld.JobLocation) > 0 {
				details.Location = ld.JobLocation[0].Address.AddressLocality
			}
		}
	}

	panel := parseDetailPanel(doc)

	details.PositionLevel = panel["Position Level"]
	if details.Location == "" {
		details.Location = panel["Location"]
	}
	if details.Deadline == "" {
		details.Deadline = panel["Deadline"]
	}
	if details.Experience == "" {
		details.Experience = panel["Experience"]
	}

	return details
}

// parseDetailPanel scans the detail page's metadata box for label/value
// span pairs.
func parseDetailPanel(doc *goquery.Document) map[string]string {
	result := map[string]string{}

	doc.Find("div.view--detail-custom div.view--detail-item").Each(func(_ int, item *goquery.Selection) {
		spans := item.ChildrenFiltered("span")
		if spans.Length() < 2 {
			return
		}
		label := strings.TrimSpace(spans.Eq(0).Text())
		value := strings.TrimSpace(spans.Eq(1).Text())
		if label != "" && value != "" {
			result[label] = value
		}
	})

	return result
}
