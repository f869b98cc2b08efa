package upstream

import (
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog/log"
)

const (
	clientCacheSize = 10
	clientTTL       = 2 * time.Hour
)

// TransportOptions are shared by every pooled client.
type TransportOptions struct {
	// ProxyURL routes outbound calls through an egress proxy when set.
	ProxyURL string
	// ResponseHeaderTimeout bounds the wait for upstream headers.
	ResponseHeaderTimeout time.Duration
}

// ClientCache keeps one pooled HTTP client per provider name, capped at
// clientCacheSize entries with LRU eviction and a TTL measured from
// insertion. Expiry is evaluated at lookup, not by a sweeper.
//
// Concurrent cold lookups for the same name may both construct a client;
// the last insert wins. Clients are stateless connection factories, so
// the duplicate only wastes a handshake.
type ClientCache struct {
	clients *expirable.LRU[string, *http.Client]
	opts    TransportOptions
}

func NewClientCache(opts TransportOptions) *ClientCache {
	return &ClientCache{
		clients: expirable.NewLRU[string, *http.Client](clientCacheSize, nil, clientTTL),
		opts:    opts,
	}
}

// Get returns the live pooled client for a provider name, constructing
// and inserting one when missing or expired.
func (c *ClientCache) Get(name string) *http.Client {
	if client, ok := c.clients.Get(name); ok {
		return client
	}

	client := c.build()
	c.clients.Add(name, client)

	log.Debug().Str("provider", name).Msg("created pooled upstream client")

	return client
}

func (c *ClientCache) build() *http.Client {
	transport := &http.Transport{
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   20,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: c.opts.ResponseHeaderTimeout,
		// gzip buffering breaks SSE delivery; decompression is handled
		// after the fact by the dispatcher.
		DisableCompression: true,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}

	if c.opts.ProxyURL != "" {
		if proxyURL, err := url.Parse(c.opts.ProxyURL); err == nil {
			transport.Proxy = http.ProxyURL(proxyURL)
		} else {
			log.Warn().Str("proxy_url", c.opts.ProxyURL).Err(err).Msg("ignoring invalid proxy URL")
		}
	}

	// No client-level timeout: streaming responses outlive any sane
	// value, cancellation comes from the request context.
	return &http.Client{Transport: transport}
}
