package httputils

import (
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"
)

type rateLimitedTransport struct {
	limiter ratelimit.Limiter
	inner   http.RoundTripper
}

func (t *rateLimitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.limiter.Take()
	return t.inner.RoundTrip(req)
}

// NewRetryableHttpClient returns a standard http client that retries
// transient failures with backoff and paces requests through the given
// rate limiter.
func NewRetryableHttpClient(timeout time.Duration, rl ratelimit.Limiter, log *logrus.Entry) *http.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 3
	retryClient.RetryWaitMin = 1 * time.Second
	retryClient.RetryWaitMax = 10 * time.Second
	retryClient.HTTPClient.Timeout = timeout
	retryClient.Logger = log

	httpClient := retryClient.StandardClient()
	httpClient.Timeout = timeout
	httpClient.Transport = &rateLimitedTransport{
		limiter: rl,
		inner:   httpClient.Transport,
	}

	return httpClient
}
