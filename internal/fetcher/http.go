package fetcher

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/IshaanNene/listgoat/internal/config"
	"github.com/IshaanNene/listgoat/internal/types"
)

// StaticClient fetches server-rendered HTML with a plain GET.
type StaticClient struct {
	client *http.Client
	cfg    config.RenderConfig
	logger *slog.Logger
}

// NewStaticClient creates a static client from the render configuration.
func NewStaticClient(cfg config.RenderConfig, logger *slog.Logger) (*StaticClient, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		DisableCompression:  true, // decoded below, including brotli
	}

	return &StaticClient{
		client: &http.Client{
			Transport: transport,
			Jar:       jar,
			Timeout:   cfg.StaticTimeout,
		},
		cfg:    cfg,
		logger: logger.With("component", "static_client"),
	}, nil
}

// Load implements PageLoader.
func (c *StaticClient) Load(ctx context.Context, req types.RenderRequest) (*Page, error) {
	body, finalURL, err := c.Get(ctx, req.URL)
	if err != nil {
		return nil, err
	}
	return &Page{URL: finalURL, HTML: body}, nil
}

// Get fetches rawURL and returns the decoded body and the URL after
// redirects. Non-2xx responses are errors.
func (c *StaticClient) Get(ctx context.Context, rawURL string) (string, string, error) {
	fail := func(status int, err error) (string, string, error) {
		return "", "", &types.RenderError{URL: rawURL, Mode: types.ModeStatic, StatusCode: status, Err: err}
	}

	if c.cfg.StaticTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.StaticTimeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fail(0, err)
	}
	ua := c.cfg.UserAgent
	if ua == "" {
		ua = config.DefaultUserAgent
	}
	httpReq.Header.Set("User-Agent", ua)
	httpReq.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	httpReq.Header.Set("Accept-Language", "vi-VN,vi;q=0.9,en-US;q=0.8,en;q=0.7")
	httpReq.Header.Set("Accept-Encoding", "gzip, deflate, br")

	start := time.Now()
	resp, err := c.client.Do(httpReq)
	if err != nil {
		return fail(0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fail(resp.StatusCode, fmt.Errorf("HTTP %d", resp.StatusCode))
	}

	var reader io.Reader = resp.Body
	reader, err = decompressReader(resp, reader)
	if err != nil {
		return fail(resp.StatusCode, err)
	}
	if c.cfg.MaxBodySize > 0 {
		reader = io.LimitReader(reader, c.cfg.MaxBodySize)
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return fail(resp.StatusCode, err)
	}

	c.logger.Debug("static fetch complete",
		"url", rawURL,
		"status", resp.StatusCode,
		"size", len(body),
		"duration", time.Since(start),
	)
	return string(body), resp.Request.URL.String(), nil
}

// Close releases idle connections.
func (c *StaticClient) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

// decompressReader wraps a reader with the decompressor named by the
// response's Content-Encoding: gzip, deflate or br.
func decompressReader(resp *http.Response, reader io.Reader) (io.Reader, error) {
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		return gzip.NewReader(reader)
	case "deflate":
		return flate.NewReader(reader), nil
	case "br":
		return brotli.NewReader(reader), nil
	default:
		return reader, nil
	}
}
