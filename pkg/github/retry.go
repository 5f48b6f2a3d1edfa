// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package github

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

const (
	retryMaxAttempts = 4 // initial attempt + 3 retries
	retryBaseDelay   = 500 * time.Millisecond
	retryMaxDelay    = 10 * time.Second
)

// doWithRetry executes req, retrying transient failures (gateway errors,
// throttling, network timeouts) with exponential backoff. Anything else
// fails immediately.
func (c *Client) doWithRetry(ctx context.Context, req *http.Request) (*http.Response, error) {
	logger := zerolog.Ctx(ctx)

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = retryBaseDelay
	expBackoff.MaxInterval = retryMaxDelay

	operation := func() (*http.Response, error) {
		resp, err := c.httpClient.Do(req.Clone(ctx))
		if err != nil {
			if isRetryable(err) {
				return nil, err
			}
			return nil, backoff.Permanent(err)
		}

		if isRetryableStatus(resp.StatusCode) {
			resp.Body.Close()
			return nil, errors.Errorf("retryable status: %s", http.StatusText(resp.StatusCode))
		}

		return resp, nil
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(expBackoff),
		backoff.WithMaxTries(retryMaxAttempts),
		backoff.WithNotify(func(err error, delay time.Duration) {
			logger.Debug().Err(err).Dur("delay", delay).Str("url", req.URL.String()).Msg("retrying request")
		}),
	)
}

func isRetryable(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	var opErr *net.OpError
	return errors.As(err, &opErr)
}

func isRetryableStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}
