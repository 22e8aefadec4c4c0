package router

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/bnema/zerowrap"

	"github.com/bnema/spaceport/internal/domain"
)

// maxDrainBytes bounds how much of a discarded response is read so the
// connection can go back to the pool.
const maxDrainBytes = 64 << 10

// attemptFunc observes the outcome of every upstream attempt.
type attemptFunc func(ctx context.Context, attempt int, resp *http.Response, err error)

// retryTransport replays a request against the upstream according to the
// route's retry policy. When attempts run out the last response or error is
// returned as is.
type retryTransport struct {
	base      http.RoundTripper
	policy    domain.RetryPolicy
	onAttempt attemptFunc
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if !t.policy.Enabled() {
		resp, err := t.base.RoundTrip(req)
		t.observe(req.Context(), 1, resp, err)
		return resp, err
	}

	ctx := req.Context()
	log := zerowrap.FromCtx(ctx)
	start := time.Now()

	body, replayable, err := bufferBody(req, t.policy.MaxBodyBytes)
	if err != nil {
		return nil, err
	}
	maxAttempts := t.policy.Attempts
	if !replayable {
		log.Debug().Msg("request body exceeds replay buffer, retries disabled")
		maxAttempts = 1
	}

	for attempt := 1; ; attempt++ {
		outreq := req
		if attempt > 1 || body != nil {
			outreq = req.Clone(ctx)
		}
		if body != nil {
			outreq.Body = io.NopCloser(bytes.NewReader(body))
			outreq.GetBody = func() (io.ReadCloser, error) {
				return io.NopCloser(bytes.NewReader(body)), nil
			}
		}

		resp, err := t.base.RoundTrip(outreq)
		t.observe(ctx, attempt, resp, err)

		reason, retry := t.retryable(req.Method, resp, err)
		if !retry || attempt >= maxAttempts || ctx.Err() != nil {
			return resp, err
		}
		if elapsed := time.Since(start); t.policy.Budget > 0 && elapsed+t.policy.Backoff >= t.policy.Budget {
			log.Debug().
				Dur("elapsed", elapsed).
				Int("attempt", attempt).
				Msg("retry budget exhausted")
			return resp, err
		}

		if resp != nil {
			discard(resp)
		}
		log.Debug().
			Int("attempt", attempt).
			Str("reason", reason).
			Msg("retrying upstream")

		if t.policy.Backoff > 0 {
			timer := time.NewTimer(t.policy.Backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}
	}
}

func (t *retryTransport) observe(ctx context.Context, attempt int, resp *http.Response, err error) {
	if t.onAttempt != nil {
		t.onAttempt(ctx, attempt, resp, err)
	}
}

// retryable classifies an attempt outcome against the policy. Requests that
// may have reached the upstream are only replayed for idempotent methods
// unless the policy opts in.
func (t *retryTransport) retryable(method string, resp *http.Response, err error) (string, bool) {
	replayable := t.policy.NonIdempotent || domain.IsIdempotent(method)

	if err != nil {
		if errors.Is(err, context.Canceled) {
			return "", false
		}
		cond := domain.RetryOnError
		if isTimeout(err) {
			cond = domain.RetryOnTimeout
		}
		if !t.policy.RetriesOn(cond) {
			return "", false
		}
		if !replayable && !isDialError(err) {
			return "", false
		}
		return string(cond), true
	}

	if replayable && t.policy.RetriesStatus(resp.StatusCode) {
		return "http_" + strconv.Itoa(resp.StatusCode), true
	}
	return "", false
}

// bufferBody reads the request body into memory so it can be replayed. It
// reports false when the body is larger than limit; the request then keeps an
// equivalent body for a single attempt.
func bufferBody(req *http.Request, limit int64) ([]byte, bool, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, true, nil
	}
	if limit <= 0 || req.ContentLength > limit {
		return nil, false, nil
	}

	buf, err := io.ReadAll(io.LimitReader(req.Body, limit+1))
	if err != nil {
		return nil, false, err
	}
	if int64(len(buf)) > limit {
		req.Body = struct {
			io.Reader
			io.Closer
		}{io.MultiReader(bytes.NewReader(buf), req.Body), req.Body}
		return nil, false, nil
	}
	_ = req.Body.Close()
	return buf, true, nil
}

func discard(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))
	_ = resp.Body.Close()
}
