// Package jobpost downloads a job posting and reduces it to plain text.
package jobpost

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/spigell/resume-analyzer/internal/apperr"
)

const (
	userAgent       = "spigell/resume-analyzer"
	contentEncoding = "gzip"
	maxBodyBytes    = 2 << 20
	field           = "job_url"
	fetchTimeout    = 15 * time.Second
	dialTimeout     = 5 * time.Second
)

var errBlockedAddress = errors.New("address is not publicly routable")

var noiseSelector = "script, style, noscript, nav, footer, header, iframe, svg, form, .cookie-banner, .advertisement"

var contentSelectors = []string{
	".job-description",
	"#job-description",
	"[data-testid='job-description']",
	".posting-content",
	".job-details",
	"main",
	"article",
}

type Client struct {
	logger       *zap.Logger
	HTTPClient   *http.Client
	UserAgent    string
	allowPrivate bool
}

type Option func(*Client)

// WithPrivateNetworks lets the client fetch loopback, private and
// link-local addresses. Only for callers that already run with the user's
// own network access, such as the CLI.
func WithPrivateNetworks() Option {
	return func(c *Client) {
		c.allowPrivate = true
	}
}

func New(logger *zap.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		logger:    logger,
		UserAgent: userAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.HTTPClient = &http.Client{
		Timeout:   fetchTimeout,
		Transport: c.transport(),
	}
	return c
}

// transport checks every dialed address, so redirects are covered too.
func (c *Client) transport() *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	dialer := &net.Dialer{Timeout: dialTimeout}
	if !c.allowPrivate {
		dialer.Control = publicOnly
		// A proxy would be the only dialed address.
		t.Proxy = nil
	}
	t.DialContext = dialer.DialContext
	return t
}

func publicOnly(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	ip := net.ParseIP(host)
	if ip == nil || blocked(ip) {
		return fmt.Errorf("%w: %s", errBlockedAddress, host)
	}
	return nil
}

func blocked(ip net.IP) bool {
	return ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsMulticast() ||
		ip.IsUnspecified()
}

// Fetch returns the visible text of the posting at rawURL. Failures are
// reported as validation errors on the job_url field.
func (c *Client) Fetch(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", apperr.NewValidation(field, "The job posting URL must be an absolute http(s) URL.")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("build job posting request: %w", err)
	}
	req = c.setHeaders(req)

	c.logger.Debug("make request", zap.String("url", u.String()))
	resp, err := c.HTTPClient.Do(req)
	if errors.Is(err, errBlockedAddress) {
		c.logger.Info("job posting url rejected", zap.String("url", u.String()), zap.Error(err))
		return "", apperr.NewValidation(field, "The job posting URL must point to a public address.")
	}
	if err != nil {
		return "", apperr.NewValidation(field, fmt.Sprintf("Could not fetch the job posting: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", apperr.NewValidation(field, fmt.Sprintf("Could not fetch the job posting: bad status: %s", resp.Status))
	}

	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return "", apperr.NewValidation(field, fmt.Sprintf("Could not read the job posting: %v", err))
		}
		defer gzipReader.Close()
		reader = gzipReader
	}

	data, err := io.ReadAll(io.LimitReader(reader, maxBodyBytes))
	if err != nil {
		return "", apperr.NewValidation(field, fmt.Sprintf("Could not read the job posting: %v", err))
	}

	var text string
	if isHTML(resp.Header.Get("Content-Type")) {
		text, err = ExtractText(string(data))
		if err != nil {
			return "", apperr.NewValidation(field, err.Error())
		}
	} else {
		text = cleanWhitespace(string(data))
	}

	if text == "" {
		return "", apperr.NewValidation(field, "The job posting page does not contain any text.")
	}

	c.logger.Debug("job posting fetched", zap.String("url", u.String()), zap.Int("length", len(text)))
	return text, nil
}

func (c *Client) setHeaders(req *http.Request) *http.Request {
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", "text/html,text/plain;q=0.9,*/*;q=0.5")
	req.Header.Set("Accept-Encoding", contentEncoding)

	return req
}

func isHTML(contentType string) bool {
	if contentType == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return true
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}

// ExtractText strips markup and page chrome and returns the posting body.
func ExtractText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse job posting html: %w", err)
	}

	doc.Find(noiseSelector).Remove()

	content := doc.Find("body")
	for _, selector := range contentSelectors {
		if sel := doc.Find(selector); sel.Length() > 0 {
			content = sel.First()
			break
		}
	}

	// Block elements would otherwise glue words from adjacent lines.
	content.Find("p, li, br, div, h1, h2, h3, h4, tr").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})

	return cleanWhitespace(content.Text()), nil
}

func cleanWhitespace(text string) string {
	lines := strings.Split(text, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			cleaned = append(cleaned, line)
		}
	}
	return strings.Join(cleaned, "\n")
}
