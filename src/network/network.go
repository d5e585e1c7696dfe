package network

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"market-aggregator/src/helpers"
	"market-aggregator/src/logger"
	"market-aggregator/src/models"
)

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// -----------------------------------------------------------------------------
// NetworkManager performs provider GETs with retries, backoff and optional
// proxy rotation.
// -----------------------------------------------------------------------------

type NetworkManager struct {
	Config  models.MProviderConfig
	Client  *http.Client
	Logger  *logger.Logger
	Backoff time.Duration // base delay, squared per attempt

	proxies  []string
	proxyIdx int
	mu       sync.Mutex
}

// -----------------------------------------------------------------------------

func NewNetworkManager(cfg models.MProviderConfig, log *logger.Logger) *NetworkManager {
	if log == nil {
		log = logger.NewLogger(nil, "NetworkManager")
	}

	nm := &NetworkManager{
		Config:  cfg,
		Logger:  log,
		Backoff: time.Second,
		proxies: cfg.Proxies,
	}
	nm.Client = nm.createClient()
	return nm
}

// -----------------------------------------------------------------------------

func (nm *NetworkManager) createClient() *http.Client {
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{},
	}

	if len(nm.proxies) > 0 {
		proxyURL, err := url.Parse(nm.proxies[nm.proxyIdx])
		if err == nil {
			transport.Proxy = http.ProxyURL(proxyURL)
		} else {
			nm.Logger.Warning("Ignoring invalid proxy %q: %v", nm.proxies[nm.proxyIdx], err)
		}
	}

	timeout := time.Duration(nm.Config.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

// -----------------------------------------------------------------------------

func (nm *NetworkManager) rotateProxy() {
	if len(nm.proxies) < 2 {
		return
	}

	nm.proxyIdx = (nm.proxyIdx + 1) % len(nm.proxies)
	nm.Client = nm.createClient()
	nm.Logger.Debug("Rotated to proxy %d/%d", nm.proxyIdx+1, len(nm.proxies))
}

// -----------------------------------------------------------------------------

// Get performs a GET request with retries and proxy rotation. Client errors
// other than 403/429 are returned at once.
func (nm *NetworkManager) Get(ctx context.Context, urlStr string, params map[string]string) ([]byte, error) {
	nm.mu.Lock()
	defer nm.mu.Unlock()

	reqURL, err := url.Parse(urlStr)
	if err != nil {
		return nil, err
	}

	q := reqURL.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	reqURL.RawQuery = q.Encode()
	finalURL := reqURL.String()

	userAgent := nm.Config.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	maxRetries := nm.Config.MaxRetries
	var lastErr error

	for i := 0; i <= maxRetries; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(i*i) * nm.Backoff):
			}
			nm.rotateProxy()
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, finalURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", userAgent)

		body, status, err := nm.do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			nm.Logger.Debug("Request failed (attempt %d/%d): %v", i+1, maxRetries+1, err)
			continue
		}

		switch {
		case status == http.StatusOK:
			return body, nil
		case status == http.StatusTooManyRequests || status == http.StatusForbidden:
			lastErr = fmt.Errorf("blocked (status %d)", status)
			nm.Logger.Warning("Request blocked (%d), rotating proxy", status)
		case status >= 400 && status < 500:
			return nil, helpers.NewDataSourceError(nil, "bad status %d for %s", status, reqURL.Path)
		default:
			lastErr = fmt.Errorf("bad status: %d", status)
			nm.Logger.Debug("Bad status %d", status)
		}
	}

	return nil, helpers.NewDataSourceError(lastErr, "max retries exceeded for %s", reqURL.Path)
}

// -----------------------------------------------------------------------------

func (nm *NetworkManager) do(req *http.Request) ([]byte, int, error) {
	resp, err := nm.Client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}
