package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"tutor-ai/internal/apis/dtos"
	"tutor-ai/pkg/cache"
	"tutor-ai/pkg/logger"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/time/rate"
)

const (
	linkPreviewBodyLimit = 1 << 20
	linkPreviewTimeout   = 10 * time.Second
	linkPreviewUserAgent = "Mozilla/5.0 (compatible; tutor-ai/1.0)"
	linkPreviewMaxDesc   = 300
)

type LinkPreviewService interface {
	Preview(ctx context.Context, rawURL string) (*dtos.LinkPreviewResponse, uint32, error)
}

type linkPreviewService struct {
	cache      cache.Cache
	ttl        time.Duration
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewLinkPreviewService fetches at most ratePerSecond pages per second across all callers
func NewLinkPreviewService(c cache.Cache, ttl time.Duration, httpClient *http.Client, ratePerSecond float64) LinkPreviewService {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: linkPreviewTimeout}
	}
	burst := int(ratePerSecond)
	if burst < 1 {
		burst = 1
	}
	return &linkPreviewService{
		cache:      c,
		ttl:        ttl,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(ratePerSecond), burst),
	}
}

func linkPreviewKey(u string) string {
	return "link-preview:" + u
}

// Preview returns the page's favicon and description. Fetch failures are not
// errors: the response then carries only the conventional /favicon.ico.
func (s *linkPreviewService) Preview(ctx context.Context, rawURL string) (*dtos.LinkPreviewResponse, uint32, error) {
	target, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (target.Scheme != "http" && target.Scheme != "https") || target.Host == "" {
		return nil, http.StatusBadRequest, fmt.Errorf("url must be an absolute http(s) URL")
	}
	target.Fragment = ""
	key := linkPreviewKey(target.String())

	var cached dtos.LinkPreviewResponse
	if err := cache.GetJSON(ctx, s.cache, key, &cached); err == nil {
		return &cached, http.StatusOK, nil
	}

	preview, err := s.fetch(ctx, target)
	if err != nil {
		logger.Named("link-preview").Warn("preview fetch failed", zap.String("url", target.String()), zap.Error(err))
		return &dtos.LinkPreviewResponse{URL: target.String(), Favicon: defaultFavicon(target)}, http.StatusOK, nil
	}
	if err := cache.SetJSON(ctx, s.cache, key, preview, s.ttl); err != nil {
		logger.Named("link-preview").Warn("failed to cache preview", zap.String("url", target.String()), zap.Error(err))
	}
	return preview, http.StatusOK, nil
}

func (s *linkPreviewService) fetch(ctx context.Context, target *url.URL) (*dtos.LinkPreviewResponse, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", linkPreviewUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	doc, err := html.Parse(io.LimitReader(resp.Body, linkPreviewBodyLimit))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	base := resp.Request.URL
	if base == nil {
		base = target
	}
	return ExtractLinkPreview(doc, base), nil
}

// ExtractLinkPreview reads title, description and favicon from a parsed page
func ExtractLinkPreview(doc *html.Node, base *url.URL) *dtos.LinkPreviewResponse {
	preview := &dtos.LinkPreviewResponse{URL: base.String()}
	var ogDescription, icon, appleIcon string

	var walk func(n *html.Node, depth int)
	walk = func(n *html.Node, depth int) {
		if depth > 50 {
			return
		}
		if n.Type == html.ElementNode {
			switch n.Data {
			case "title":
				if preview.Title == "" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
					preview.Title = strings.TrimSpace(n.FirstChild.Data)
				}
			case "meta":
				name := strings.ToLower(getAttr(n, "name"))
				property := strings.ToLower(getAttr(n, "property"))
				content := strings.TrimSpace(getAttr(n, "content"))
				switch {
				case name == "description" && preview.Description == "":
					preview.Description = content
				case property == "og:description" && ogDescription == "":
					ogDescription = content
				}
			case "link":
				rels := strings.Fields(strings.ToLower(getAttr(n, "rel")))
				href := strings.TrimSpace(getAttr(n, "href"))
				for _, rel := range rels {
					switch {
					case rel == "icon" && icon == "":
						icon = href
					case rel == "apple-touch-icon" && appleIcon == "":
						appleIcon = href
					}
				}
			case "body":
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, depth+1)
		}
	}
	walk(doc, 0)

	if preview.Description == "" {
		preview.Description = ogDescription
	}
	if runes := []rune(preview.Description); len(runes) > linkPreviewMaxDesc {
		preview.Description = strings.TrimSpace(string(runes[:linkPreviewMaxDesc])) + "..."
	}

	href := icon
	if href == "" {
		href = appleIcon
	}
	if ref, err := url.Parse(href); href != "" && err == nil {
		preview.Favicon = base.ResolveReference(ref).String()
	} else {
		preview.Favicon = defaultFavicon(base)
	}
	return preview
}

func defaultFavicon(u *url.URL) string {
	return (&url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/favicon.ico"}).String()
}

func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
