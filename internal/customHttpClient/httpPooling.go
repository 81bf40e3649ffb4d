package customHttpClient

import (
	"net/http"
	"time"

	"github.com/akolanti/AuditRAG/internal/config"
)

// shared pooled transport so vendor HTTP clients reuse connections
var customTransport = &http.Transport{
	MaxIdleConns:        config.MaxIdleConns,
	MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
	IdleConnTimeout:     config.IdleConnTimeout,
}

func New(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: customTransport,
		Timeout:   timeout,
	}
}
