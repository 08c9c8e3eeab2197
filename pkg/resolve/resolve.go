package resolve

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
)

var (
	// ErrNoMedia is returned when a page has no element pointing at playable media
	ErrNoMedia = errors.New("no media found on page")

	// ErrUnexpectedContent is returned when a page is neither media nor HTML
	ErrUnexpectedContent = errors.New("unexpected content type")
)

// mediaSelectors are tried in order. The first element with a non-empty attribute wins
var mediaSelectors = []struct {
	selector  string
	attribute string
}{
	{"video[src]", "src"},
	{"video source[src]", "src"},
	{"audio[src]", "src"},
	{"audio source[src]", "src"},
	{`meta[property="og:video"]`, "content"},
	{`meta[property="og:video:url"]`, "content"},
	{`meta[property="og:audio"]`, "content"},
}

// Resolver turns the URI of a web page embedding media into the URI of the media itself
type Resolver struct {
	// client is the HTTP client used to make requests. This defaults to http.DefaultClient
	client *http.Client
}

// Option is an alias for a function that modifies a Resolver. An Option is used to override the default values of Resolver
type Option func(*Resolver) error

// WithHTTPClient allows overriding the default HTTP client used to make requests
func WithHTTPClient(client *http.Client) Option {
	return func(r *Resolver) error {
		if client == nil {
			return errors.New("client cannot be nil")
		}

		r.client = client
		return nil
	}
}

// NewResolver creates a new Resolver object that is configured with a list of Options
func NewResolver(options ...Option) (*Resolver, error) {
	resolver := &Resolver{
		client: http.DefaultClient,
	}

	for _, option := range options {
		if err := option(resolver); err != nil {
			return nil, fmt.Errorf("failed to create resolver: %w", err)
		}
	}

	return resolver, nil
}

// Resolve returns the media URI for uri. URIs that are not http(s) and responses that already are media are returned
// unchanged. Only the page is fetched, never the media
func (r *Resolver) Resolve(ctx context.Context, uri string) (string, error) {
	page, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("failed to parse URI: %w", err)
	}

	if page.Scheme != "http" && page.Scheme != "https" {
		return uri, nil
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request to get page: %w", err)
	}

	response, err := r.client.Do(request)
	if err != nil {
		return "", fmt.Errorf("failed to get response when getting page: %w", err)
	}

	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		return "", fmt.Errorf("expected status code %d when getting page but got %d instead", http.StatusOK, response.StatusCode)
	}

	contentType := response.Header.Get("Content-Type")
	mediaType, _, _ := mime.ParseMediaType(contentType)
	switch {
	case strings.HasPrefix(mediaType, "audio/"), strings.HasPrefix(mediaType, "video/"):
		return uri, nil
	case mediaType != "" && mediaType != "text/html" && mediaType != "application/xhtml+xml":
		return "", fmt.Errorf("%w: %s", ErrUnexpectedContent, mediaType)
	}

	body, err := charset.NewReader(response.Body, contentType)
	if err != nil {
		return "", fmt.Errorf("failed to decode page: %w", err)
	}

	document, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return "", fmt.Errorf("failed to create parser when getting page: %w", err)
	}

	media, err := parseMediaURL(document)
	if err != nil {
		return "", err
	}

	return page.ResolveReference(media).String(), nil
}

func parseMediaURL(document *goquery.Document) (*url.URL, error) {
	for _, candidate := range mediaSelectors {
		var found string
		document.Find(candidate.selector).EachWithBreak(func(_ int, selection *goquery.Selection) bool {
			found = strings.TrimSpace(selection.AttrOr(candidate.attribute, ""))
			return found == ""
		})

		if found == "" {
			continue
		}

		media, err := url.Parse(found)
		if err != nil {
			return nil, fmt.Errorf("failed to parse media URL %q: %w", found, err)
		}

		return media, nil
	}

	return nil, ErrNoMedia
}
