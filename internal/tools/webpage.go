package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/set-night/mindchat/internal/config"
)

// WebPage fetches a page and returns its readable text.
type WebPage struct {
	httpClient *http.Client
}

func NewWebPage(httpClient *http.Client) *WebPage {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.ToolHTTPTimeout}
	}
	return &WebPage{httpClient: httpClient}
}

func (w *WebPage) Name() string { return "readWebPage" }

func (w *WebPage) Description() string {
	return "Fetch a web page by URL and return its title and text content"
}

func (w *WebPage) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{"type": "string", "description": "Absolute http or https URL"},
		},
		"required": []string{"url"},
	}
}

type webPageOutput struct {
	URL       string `json:"url"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	Truncated bool   `json:"truncated"`
}

func (w *WebPage) Execute(ctx context.Context, _ Env, input json.RawMessage) (any, error) {
	var in struct {
		URL string `json:"url"`
	}
	if err := decodeInput(input, &in); err != nil {
		return nil, err
	}

	u, err := url.Parse(strings.TrimSpace(in.URL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, errors.New("url must be an absolute http or https URL")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "mindchat/1.0")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch page: status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, config.WebPageMaxBodySize))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	doc.Find("script, style, noscript, svg, iframe").Remove()

	out := webPageOutput{
		URL:   u.String(),
		Title: strings.TrimSpace(doc.Find("title").First().Text()),
	}
	out.Content, out.Truncated = truncateRunes(strings.Join(strings.Fields(doc.Find("body").Text()), " "), config.WebPageMaxChars)
	return out, nil
}

func truncateRunes(s string, max int) (string, bool) {
	if utf8.RuneCountInString(s) <= max {
		return s, false
	}
	r := []rune(s)
	return string(r[:max]), true
}
