package proxy

import (
	"net/http"
	"net/url"
)

// Transport returns an HTTP transport that asks the supplier for a proxy on every request.
// A nil supplier, or one without working proxies, connects directly.
func Transport(supplier ProxySupplier) *http.Transport {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = func(*http.Request) (*url.URL, error) {
		if supplier == nil {
			return nil, nil
		}
		proxyURL := supplier.Get()
		if proxyURL == "" {
			return nil, nil
		}
		return url.Parse(proxyURL)
	}
	return transport
}
