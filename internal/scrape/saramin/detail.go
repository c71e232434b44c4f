package saramin

import (
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"jobcrawl-engine/internal/scrape/util"
)

// DetailErrorMarker prefixes the description of postings whose detail page
// could not be fetched.
const DetailErrorMarker = "[detail unavailable]"

var blockedImageHosts = map[string]bool{
	"drive.google.com": true,
}

func DetailErrorText(err error) string {
	return DetailErrorMarker + " " + err.Error()
}

func (s *Scraper) DetailURL(id string) string {
	return s.cfg.BaseURL + detailPath + "?rec_idx=" + url.QueryEscape(id)
}

// FetchDetail returns the normalized body text and candidate image URLs of
// one posting's detail page.
func (s *Scraper) FetchDetail(ctx context.Context, id string) (string, []string, error) {
	doc, err := s.getDocument(ctx, s.DetailURL(id), s.cfg.BaseURL+searchPath)
	if err != nil {
		return "", nil, err
	}
	text, images := ExtractDetail(doc, s.cfg.BaseURL)
	return text, images, nil
}

// ExtractDetail reads the main content region (.wrap_jv_cont, else body).
func ExtractDetail(doc *goquery.Document, baseURL string) (string, []string) {
	content := doc.Find(".wrap_jv_cont").First()
	if content.Length() == 0 {
		content = doc.Find("body").First()
	}
	if content.Length() == 0 {
		return "", nil
	}

	text := util.PreprocessText(visibleText(content))

	var images []string
	seen := map[string]bool{}
	content.Find("img").Each(func(_ int, img *goquery.Selection) {
		src := strings.TrimSpace(img.AttrOr("src", ""))
		if skipImageSrc(src) {
			return
		}
		abs := util.ResolveURL(baseURL, src)
		if abs == "" || blockedImageHosts[util.HostOf(abs)] || seen[abs] {
			return
		}
		seen[abs] = true
		images = append(images, abs)
	})
	return text, images
}

func skipImageSrc(src string) bool {
	if src == "" {
		return true
	}
	low := strings.ToLower(src)
	return strings.HasPrefix(low, "data:") ||
		strings.Contains(low, "logo") ||
		strings.Contains(low, "icon")
}

// visibleText joins the trimmed text nodes under sel with newlines,
// skipping script and style content.
func visibleText(sel *goquery.Selection) string {
	var parts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
			return
		case html.ElementNode:
			switch n.Data {
			case "script", "style", "noscript", "template":
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return strings.Join(parts, "\n")
}
