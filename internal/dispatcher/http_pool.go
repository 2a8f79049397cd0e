package dispatcher

import (
	"crypto/tls"
	"sync/atomic"
	"time"

	"github.com/valyala/fasthttp"
)

// HTTPPool round-robins over pre-warmed fasthttp clients so penalty
// requests never pay connection setup on the critical path.
type HTTPPool struct {
	clients []*fasthttp.Client
	index   uint32
}

func NewHTTPPool(size int) *HTTPPool {
	if size < 1 {
		size = 1
	}

	tlsConfig := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		ClientSessionCache: tls.NewLRUClientSessionCache(64),
	}

	clients := make([]*fasthttp.Client, size)
	for i := range clients {
		clients[i] = &fasthttp.Client{
			MaxConnsPerHost:     256,
			MaxIdleConnDuration: 180 * time.Second,
			ReadTimeout:         2 * time.Second,
			WriteTimeout:        2 * time.Second,
			TLSConfig:           tlsConfig,
		}
	}

	return &HTTPPool{clients: clients}
}

func (p *HTTPPool) GetClient() *fasthttp.Client {
	i := atomic.AddUint32(&p.index, 1)
	return p.clients[i%uint32(len(p.clients))]
}
