package dndbeyond

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/cory-johannsen/lorekeeper/internal/config"
)

// ErrBadURL is returned when no character id can be parsed from a URL.
// This is fatal to an import; there is no fallback for an unrecognized URL.
var ErrBadURL = errors.New("unrecognized character URL")

// ErrUnavailable is returned when a fetch path fails for any reason: network
// error, timeout, non-2xx status, or missing expected markup. The importer
// recovers by falling back to the next acquisition strategy.
var ErrUnavailable = errors.New("character data unavailable")

// The character service rejects requests with Go's default User-Agent.
const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

// characterNameClass is the CSS class of the name element on a public
// character sheet. It is the only field recoverable without running the
// page's scripts.
const characterNameClass = "ddbc-character-name"

var characterIDPattern = regexp.MustCompile(`/characters/(\d+)`)

// Client fetches character documents from D&D Beyond, either through the
// authenticated character service or the public sheet page. Each fetch issues
// exactly one request bounded by the configured timeout; failures are never
// retried.
type Client struct {
	httpClient          *http.Client
	characterServiceURL string
}

// NewClient creates a Client from the given configuration.
//
// Precondition: cfg.CharacterServiceURL must be non-empty and cfg.FetchTimeout positive.
// Postcondition: Returns a Client ready to fetch.
func NewClient(cfg config.DndBeyondConfig) *Client {
	return &Client{
		httpClient:          &http.Client{Timeout: cfg.FetchTimeout},
		characterServiceURL: strings.TrimRight(cfg.CharacterServiceURL, "/"),
	}
}

// NewClientWithHTTP creates a Client using the provided http.Client. The
// caller owns the client's timeout; used by tests against httptest servers.
func NewClientWithHTTP(httpClient *http.Client, characterServiceURL string) *Client {
	return &Client{
		httpClient:          httpClient,
		characterServiceURL: strings.TrimRight(characterServiceURL, "/"),
	}
}

// ResolveCharacterID extracts the numeric character id from a sheet URL.
// It is a pure function of the URL string.
//
// Postcondition: Returns the id digits, or ErrBadURL when the URL has no
// /characters/<id> segment.
func (c *Client) ResolveCharacterID(url string) (string, error) {
	m := characterIDPattern.FindStringSubmatch(url)
	if m == nil {
		return "", fmt.Errorf("%w: no /characters/<id> segment in %q", ErrBadURL, url)
	}
	return m[1], nil
}

// FetchCharacter retrieves the full character document from the authenticated
// character service.
//
// Precondition: cobaltToken must be non-empty; id must be a resolved character id.
// Postcondition: Returns the decoded document, or an error wrapping
// ErrUnavailable on any transport, status, or decode failure.
func (c *Client) FetchCharacter(ctx context.Context, id, cobaltToken string) (Document, error) {
	if cobaltToken == "" {
		return nil, fmt.Errorf("%w: no Cobalt session token", ErrUnavailable)
	}

	url := c.characterServiceURL + "/" + id
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building character request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Cookie", "CobaltSession="+cobaltToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching character %s: %v", ErrUnavailable, id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: character service returned %d for character %s", ErrUnavailable, resp.StatusCode, id)
	}

	var doc Document
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: decoding character %s: %v", ErrUnavailable, id, err)
	}
	return doc, nil
}

// FetchPublicName retrieves a public character sheet page and extracts the
// visible character name. The rest of the sheet is populated by scripts the
// client does not execute, so the name is all this path can recover.
//
// Postcondition: Returns a non-empty name, or an error wrapping ErrUnavailable
// when the page cannot be fetched or carries no name element.
func (c *Client) FetchPublicName(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("building sheet request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: fetching sheet: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: sheet returned %d", ErrUnavailable, resp.StatusCode)
	}

	root, err := html.Parse(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: parsing sheet: %v", ErrUnavailable, err)
	}

	name := strings.TrimSpace(findElementText(root, "div", characterNameClass))
	if name == "" {
		return "", fmt.Errorf("%w: sheet has no %s element", ErrUnavailable, characterNameClass)
	}
	return name, nil
}

// findElementText returns the concatenated text of the first element with the
// given tag carrying class among its class list, or "" when none exists.
func findElementText(n *html.Node, tag, class string) string {
	if n.Type == html.ElementNode && n.Data == tag {
		for _, attr := range n.Attr {
			if attr.Key == "class" && hasClass(attr.Val, class) {
				return nodeText(n)
			}
		}
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if text := findElementText(child, tag, class); text != "" {
			return text
		}
	}
	return ""
}

func hasClass(classAttr, class string) bool {
	for _, c := range strings.Fields(classAttr) {
		if c == class {
			return true
		}
	}
	return false
}

func nodeText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		b.WriteString(nodeText(child))
	}
	return b.String()
}
