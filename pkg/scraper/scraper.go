package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mkh/insurebot/internal/models"
	"golang.org/x/time/rate"
)

// Source describes a listing page and the rules for picking article
// links off it.
type Source struct {
	Name          string
	URL           string
	LinkSelectors []string
	Include       []string
	Exclude       []string
	MaxArticles   int
}

type ScraperConfig struct {
	ContentSelectors []string
	RateLimit        float64 // requests per second
	Timeout          time.Duration
	UserAgent        string
	OnProgress       func(url string)
}

type Scraper struct {
	config  ScraperConfig
	client  *http.Client
	limiter *rate.Limiter
}

func NewWithConfig(config ScraperConfig) *Scraper {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = 2 // 2 requests per second by default
	}
	if len(config.ContentSelectors) == 0 {
		config.ContentSelectors = []string{
			"main",
			"article",
			"#main-content",
			".content",
			"#content",
		}
	}
	if config.UserAgent == "" {
		config.UserAgent = "insurebot/1.0"
	}

	return &Scraper{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
	}
}

func New() *Scraper {
	return NewWithConfig(ScraperConfig{})
}

// CollectLinks fetches a source's listing page and returns the article
// URLs that survive the source's selector and substring rules, capped
// at MaxArticles.
func (s *Scraper) CollectLinks(ctx context.Context, src Source) ([]string, error) {
	doc, err := s.fetch(ctx, src.URL)
	if err != nil {
		return nil, fmt.Errorf("fetching listing page: %w", err)
	}

	base, err := url.Parse(src.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing source URL: %w", err)
	}

	var links []string
	seen := make(map[string]bool)

	consider := func(_ int, anchor *goquery.Selection) {
		if src.MaxArticles > 0 && len(links) >= src.MaxArticles {
			return
		}

		href, exists := anchor.Attr("href")
		if !exists || strings.TrimSpace(anchor.Text()) == "" {
			return
		}

		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		absolute := base.ResolveReference(ref)
		if absolute.Scheme != "http" && absolute.Scheme != "https" {
			return
		}
		absolute.Fragment = ""

		urlStr := absolute.String()
		if seen[urlStr] || !s.keepURL(urlStr, src) {
			return
		}

		seen[urlStr] = true
		links = append(links, urlStr)
	}

	matched := 0
	for _, selector := range src.LinkSelectors {
		doc.Find(selector).Each(func(_ int, el *goquery.Selection) {
			matched++
			if el.Is("a") {
				consider(0, el)
				return
			}
			el.Find("a[href]").Each(consider)
		})
	}

	// List-item fallback when no selector matched anything.
	if matched == 0 {
		doc.Find("li a[href]").Each(consider)
	}

	return links, nil
}

func (s *Scraper) keepURL(urlStr string, src Source) bool {
	lowered := strings.ToLower(urlStr)

	if len(src.Include) > 0 {
		matched := false
		for _, substr := range src.Include {
			if strings.Contains(lowered, strings.ToLower(substr)) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	for _, substr := range src.Exclude {
		if substr != "" && strings.Contains(lowered, strings.ToLower(substr)) {
			return false
		}
	}

	return true
}

// FetchArticle pulls a single article page and extracts its title and
// body text.
func (s *Scraper) FetchArticle(ctx context.Context, urlStr, sourceName string) (models.Article, error) {
	doc, err := s.fetch(ctx, urlStr)
	if err != nil {
		return models.Article{}, err
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = strings.TrimSpace(doc.Find("h1").First().Text())
	}

	content := s.extractMainContent(doc)
	if content == "" {
		return models.Article{}, fmt.Errorf("no content extracted from %s", urlStr)
	}

	return models.Article{
		URL:       urlStr,
		Title:     title,
		Content:   content,
		Source:    sourceName,
		FetchedAt: time.Now(),
	}, nil
}

func (s *Scraper) fetch(ctx context.Context, urlStr string) (*goquery.Document, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", s.config.UserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("received status code %d for URL: %s", resp.StatusCode, urlStr)
	}

	if s.config.OnProgress != nil {
		s.config.OnProgress(urlStr)
	}

	return goquery.NewDocumentFromReader(resp.Body)
}

func (s *Scraper) extractMainContent(doc *goquery.Document) string {
	var content string
	for _, selector := range s.config.ContentSelectors {
		if selected := doc.Find(selector); selected.Length() > 0 {
			content = selected.Text()
			break
		}
	}

	// Fallback to body if no main content found
	if content == "" {
		content = doc.Find("body").Text()
	}

	return s.cleanContent(content)
}

func (s *Scraper) cleanContent(content string) string {
	// Remove extra whitespace
	content = strings.Join(strings.Fields(content), " ")

	// Remove common noise
	noisePatterns := []string{
		"Cookie Policy",
		"Accept Cookies",
		"Privacy Policy",
		"Terms of Service",
	}

	for _, pattern := range noisePatterns {
		content = strings.ReplaceAll(content, pattern, "")
	}

	return strings.TrimSpace(content)
}
