package chromedp_browser

import (
	"math/rand"
	"sync"
	"time"
)

var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
}

// Identity picks the proxy and user agent each browser session presents.
type Identity struct {
	proxies    []string
	userAgents []string

	mu         sync.Mutex
	proxyIndex int
	rnd        *rand.Rand
}

// NewIdentity falls back to a built-in user agent list when none is given.
func NewIdentity(proxies, userAgents []string) *Identity {
	if len(userAgents) == 0 {
		userAgents = defaultUserAgents
	}
	return &Identity{
		proxies:    proxies,
		userAgents: userAgents,
		rnd:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Proxy returns a proxy URL from the list, rotating sequentially.
func (m *Identity) Proxy() string {
	if len(m.proxies) == 0 {
		return "" // No proxy
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	proxy := m.proxies[m.proxyIndex]
	m.proxyIndex = (m.proxyIndex + 1) % len(m.proxies)
	return proxy
}

// UserAgent returns a random user agent string.
func (m *Identity) UserAgent() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.userAgents[m.rnd.Intn(len(m.userAgents))]
}
