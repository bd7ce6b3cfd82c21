package crawler

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	maxLinksPerPage  = 50
	maxImagesPerPage = 10
)

// Processor deterministically extracts title, visible text, links and
// images from fetched markup, classifies the content type and computes
// a quality score and content hash.
type Processor struct {
	maxContentChars int
}

// Processed is the result of processing a single fetched page.
type Processed struct {
	Page   Page
	Links  []Link
	Images []Image
}

// NewProcessor creates a processor that truncates extracted text to
// maxContentChars characters.
func NewProcessor(maxContentChars int) *Processor {
	return &Processor{maxContentChars: maxContentChars}
}

// Process parses raw HTML into indexable page data. Byte-identical
// input for the same URL always produces an identical content hash and
// quality score.
func (p *Processor) Process(pageURL string, body []byte, statusCode int) (*Processed, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, &ProcessingError{URL: pageURL, Err: err}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &ProcessingError{URL: pageURL, Err: err}
	}

	title := extractTitle(doc)
	lang, _ := doc.Find("html").Attr("lang")
	metaDesc, _ := doc.Find(`meta[name="description"]`).Attr("content")

	// Boilerplate is stripped before text, link and image extraction so
	// navigation chrome never reaches the index or the link graph.
	doc.Find("script, style, nav, header, footer, aside").Remove()

	content := extractContent(doc, p.maxContentChars)
	hash := sha256.Sum256([]byte(content))

	links := extractLinks(doc, base)
	images := extractImages(doc, base)

	externalLinks := 0
	for _, l := range links {
		if l.LinkType == "external" {
			externalLinks++
		}
	}

	contentType := classify(classifyInput{
		url:     strings.ToLower(pageURL),
		title:   strings.ToLower(title),
		content: strings.ToLower(content),
		doc:     doc,
	})

	quality := qualityScore(qualityInput{
		contentLen:    len(content),
		headings:      doc.Find("h1, h2, h3").Length(),
		images:        len(images),
		externalLinks: externalLinks,
		hasStructure:  doc.Find("main, article").Length() > 0,
		hasMetaDesc:   strings.TrimSpace(metaDesc) != "",
		titleLen:      len(title),
		hasLang:       strings.TrimSpace(lang) != "",
	})

	page := Page{
		URL:           pageURL,
		Domain:        base.Host,
		Title:         title,
		Content:       content,
		HTML:          string(body),
		ContentHash:   fmt.Sprintf("%x", hash),
		ContentType:   contentType,
		Language:      strings.TrimSpace(lang),
		QualityScore:  quality,
		StatusCode:    statusCode,
		ContentLength: len(content),
		CrawledAt:     time.Now().UTC(),
	}

	return &Processed{Page: page, Links: links, Images: images}, nil
}

// extractTitle returns the first of: <title>, first h1-h3 heading, else empty.
func extractTitle(doc *goquery.Document) string {
	if t := strings.TrimSpace(doc.Find("title").First().Text()); t != "" {
		return t
	}
	return collapseWhitespace(doc.Find("h1, h2, h3").First().Text())
}

// extractContent returns the visible text of the main content area,
// whitespace-collapsed and truncated.
func extractContent(doc *goquery.Document, maxChars int) string {
	sel := doc.Find("main, article").First()
	if sel.Length() == 0 {
		sel = doc.Find("body")
	}
	if sel.Length() == 0 {
		sel = doc.Selection
	}

	text := collapseWhitespace(sel.Text())
	if runes := []rune(text); len(runes) > maxChars {
		text = string(runes[:maxChars])
	}
	return text
}

func extractLinks(doc *goquery.Document, base *url.URL) []Link {
	var links []Link

	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "mailto:") {
			return true
		}

		resolved := resolveURL(base, href)
		if resolved == nil {
			return true
		}

		linkType := "internal"
		if resolved.Host != base.Host {
			linkType = "external"
		}

		links = append(links, Link{
			ToURL:      resolved.String(),
			AnchorText: collapseWhitespace(s.Text()),
			LinkType:   linkType,
		})
		return len(links) < maxLinksPerPage
	})

	return links
}

func extractImages(doc *goquery.Document, base *url.URL) []Image {
	var images []Image

	doc.Find("img[src]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		src, _ := s.Attr("src")
		resolved := resolveURL(base, strings.TrimSpace(src))
		if resolved == nil {
			return true
		}

		img := Image{
			URL:     resolved.String(),
			AltText: strings.TrimSpace(s.AttrOr("alt", "")),
			Title:   strings.TrimSpace(s.AttrOr("title", "")),
		}
		if w, err := strconv.Atoi(s.AttrOr("width", "")); err == nil {
			img.Width = w
		}
		if h, err := strconv.Atoi(s.AttrOr("height", "")); err == nil {
			img.Height = h
		}

		images = append(images, img)
		return len(images) < maxImagesPerPage
	})

	return images
}

// resolveURL resolves href against base and keeps only http(s) results.
func resolveURL(base *url.URL, href string) *url.URL {
	if href == "" {
		return nil
	}
	u, err := url.Parse(href)
	if err != nil {
		return nil
	}
	resolved := base.ResolveReference(u)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return nil
	}
	return resolved
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
