package tiles

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// maxZoom bounds accepted tile requests. Upstreams reject deeper zooms
// anyway; failing early keeps junk out of the cache.
const maxZoom = 22

// Proxy fetches basemap raster tiles from an upstream tile server (OSM,
// Stadia, ...) with a shared cache and an upstream rate limit.
type Proxy struct {
	baseURL string
	format  string
	client  *http.Client
	cache   *Cache
	limiter *rate.Limiter
}

// ProxyOption configures a Proxy.
type ProxyOption func(*Proxy)

// WithUpstreamRate caps upstream requests per second. Cached tiles are not
// limited.
func WithUpstreamRate(rps float64) ProxyOption {
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return func(p *Proxy) { p.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

// WithClient overrides the HTTP client.
func WithClient(c *http.Client) ProxyOption {
	return func(p *Proxy) { p.client = c }
}

// NewProxy creates a basemap tile proxy. cache may be nil to disable caching.
func NewProxy(baseURL, format string, cache *Cache, opts ...ProxyOption) *Proxy {
	p := &Proxy{
		baseURL: baseURL,
		format:  format,
		client:  &http.Client{Timeout: 30 * time.Second},
		cache:   cache,
		limiter: rate.NewLimiter(20, 20),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ErrInvalidTile is returned for tile coordinates outside the accepted range.
var ErrInvalidTile = eris.New("tiles: invalid tile coordinates")

// Fetch retrieves one tile from the cache or the upstream server.
func (p *Proxy) Fetch(ctx context.Context, z, x, y int) ([]byte, string, error) {
	if z < 0 || z > maxZoom || x < 0 || y < 0 {
		return nil, "", eris.Wrapf(ErrInvalidTile, "tiles: %d/%d/%d", z, x, y)
	}

	if p.cache != nil {
		if cached := p.cache.Get(z, x, y); cached != nil {
			return cached, p.contentType(), nil
		}
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, "", eris.Wrap(err, "tiles: upstream rate wait")
	}

	url := fmt.Sprintf("%s/%d/%d/%d.%s", p.baseURL, z, x, y, p.format)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", eris.Wrap(err, "tiles: create request")
	}
	req.Header.Set("User-Agent", "mapboard/1.0")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, "", eris.Wrap(err, "tiles: fetch tile")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, "", eris.Errorf("tiles: upstream returned %d for %s", resp.StatusCode, url)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", eris.Wrap(err, "tiles: read tile body")
	}

	if p.cache != nil {
		p.cache.Put(z, x, y, data)
	}

	zap.L().Debug("tiles: fetched tile", zap.String("url", url), zap.Int("bytes", len(data)))
	return data, p.contentType(), nil
}

func (p *Proxy) contentType() string {
	switch p.format {
	case "png":
		return "image/png"
	case "jpg", "jpeg":
		return "image/jpeg"
	case "webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}

// ServeHTTP serves tiles at /{z}/{x}/{y}.{format}.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var z, x, y int
	var ext string
	if _, err := fmt.Sscanf(r.URL.Path, "/%d/%d/%d.%s", &z, &x, &y, &ext); err != nil {
		http.Error(w, "invalid tile path", http.StatusBadRequest)
		return
	}

	data, ct, err := p.Fetch(r.Context(), z, x, y)
	if err != nil {
		if eris.Is(err, ErrInvalidTile) {
			http.Error(w, "invalid tile coordinates", http.StatusBadRequest)
			return
		}
		zap.L().Error("tiles: fetch failed", zap.Error(err))
		http.Error(w, "upstream fetch failed", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", ct)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(data)
}
