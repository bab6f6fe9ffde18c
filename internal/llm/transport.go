package llm

import (
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/http/httpproxy"
)

// newProxyFunc resolves proxies from the environment, with explicit
// settings taking precedence. NO_PROXY rules apply to both.
func newProxyFunc(httpProxy, httpsProxy, noProxy string) func(*http.Request) (*url.URL, error) {
	cfg := httpproxy.FromEnvironment()
	if httpProxy != "" {
		cfg.HTTPProxy = httpProxy
	}
	if httpsProxy != "" {
		cfg.HTTPSProxy = httpsProxy
	}
	if noProxy != "" {
		cfg.NoProxy = noProxy
	}

	proxyFunc := cfg.ProxyFunc()
	return func(req *http.Request) (*url.URL, error) {
		return proxyFunc(req.URL)
	}
}

// newHTTPClient builds the client shared by the raw-HTTP providers.
func newHTTPClient(config Config, fallbackTimeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: config.timeout(fallbackTimeout),
		Transport: &http.Transport{
			Proxy:               newProxyFunc(config.HTTPProxy, config.HTTPSProxy, config.NoProxy),
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}
