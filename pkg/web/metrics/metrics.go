package metrics

import (
	"github.com/lk2023060901/xdooria-lobby/pkg/prometheus"
)

// HTTPMetrics HTTP 请求指标
type HTTPMetrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// NewHTTPMetrics 在客户端的 Registry 上注册 HTTP 指标
func NewHTTPMetrics(client *prometheus.Client) (*HTTPMetrics, error) {
	total, err := client.NewCounter("http_requests_total", "Total number of HTTP requests.", []string{"path", "method", "status"})
	if err != nil {
		return nil, err
	}
	duration, err := client.NewHistogram("http_request_duration_seconds", "HTTP request latency in seconds.", []string{"path", "method"}, nil)
	if err != nil {
		return nil, err
	}
	return &HTTPMetrics{RequestsTotal: total, RequestDuration: duration}, nil
}
