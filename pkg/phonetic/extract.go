package phonetic

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"
	"golang.org/x/time/rate"
)

// maxBodySize limits fetched HTML to 10 MB.
const maxBodySize = 10 * 1024 * 1024

// Article is the text extracted from one page.
type Article struct {
	URL       string
	Title     string
	Sentences []string
}

// Extractor fetches pages and extracts their sentences.
type Extractor struct {
	Client  *http.Client
	Limiter *rate.Limiter
	// Logger is used for per-page status. nil means no logging.
	Logger *log.Logger
}

// NewExtractor returns an extractor that starts at most one fetch per
// interval. A non-positive interval disables rate limiting.
func NewExtractor(interval time.Duration) *Extractor {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Extractor{
		Client:  &http.Client{Timeout: 30 * time.Second},
		Limiter: rate.NewLimiter(limit, 1),
	}
}

// ExtractAll fetches every URL in order. The first failure aborts.
func (e *Extractor) ExtractAll(ctx context.Context, urls []string) ([]Article, error) {
	var out []Article
	for _, u := range urls {
		if err := e.Limiter.Wait(ctx); err != nil {
			return nil, err
		}
		a, err := e.Extract(ctx, u)
		if err != nil {
			return nil, fmt.Errorf("extract %s: %w", u, err)
		}
		if e.Logger != nil {
			e.Logger.Printf("%s: %q, %d sentences", u, a.Title, len(a.Sentences))
		}
		out = append(out, a)
	}
	return out, nil
}

// Extract fetches one page and returns its article sentences.
func (e *Extractor) Extract(ctx context.Context, rawURL string) (Article, error) {
	pageURL, err := url.Parse(rawURL)
	if err != nil {
		return Article{}, err
	}
	req, err := http.NewRequestWithContext(ctx, "GET", rawURL, nil)
	if err != nil {
		return Article{}, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "ja,en-US;q=0.9,en;q=0.8")

	resp, err := e.Client.Do(req)
	if err != nil {
		return Article{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Article{}, fmt.Errorf("got status code %d", resp.StatusCode)
	}
	if resp.ContentLength > int64(maxBodySize) {
		return Article{}, fmt.Errorf("content-length %d exceeds limit of %d bytes", resp.ContentLength, maxBodySize)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return Article{}, err
	}
	if len(body) >= maxBodySize {
		return Article{}, fmt.Errorf("response body exceeded maximum size limit of %d bytes", maxBodySize)
	}

	a, err := ExtractHTML(body, pageURL)
	if err != nil {
		return Article{}, err
	}
	a.URL = rawURL
	return a, nil
}

// ExtractHTML runs readability over an HTML document.
func ExtractHTML(body []byte, pageURL *url.URL) (Article, error) {
	article, err := readability.FromReader(bytes.NewReader(SanitizeRuby(body)), pageURL)
	if err != nil {
		return Article{}, fmt.Errorf("failed to extract article: %w", err)
	}
	return Article{
		Title:     article.Title,
		Sentences: SplitSentences(article.TextContent),
	}, nil
}

// SplitSentences splits text on Japanese sentence delimiters and newlines
// and returns the trimmed, non-empty pieces.
func SplitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			sentences = append(sentences, s)
		}
		current.Reset()
	}
	for _, r := range text {
		if r == '\n' || r == '\r' {
			flush()
			continue
		}
		current.WriteRune(r)
		// 。(3002), ！(FF01), ？(FF1F)
		if r == '。' || r == '！' || r == '？' {
			flush()
		}
	}
	flush()
	return sentences
}

var (
	// (?s) allows dot to match newlines
	// (?i) makes it case-insensitive
	reRT = regexp.MustCompile(`(?si)<rt\b[^>]*>.*?</rt>`)
	reRP = regexp.MustCompile(`(?si)<rp\b[^>]*>.*?</rp>`)
)

// SanitizeRuby removes ruby text (<rt>...</rt>) and ruby parentheses
// (<rp>...</rp>) so furigana does not end up duplicated in the sentences.
func SanitizeRuby(content []byte) []byte {
	cleaned := reRT.ReplaceAll(content, []byte{})
	cleaned = reRP.ReplaceAll(cleaned, []byte{})
	return cleaned
}
