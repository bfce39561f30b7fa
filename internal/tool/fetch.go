package tool

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/stupiduntilnot/toolguard/internal/netguard"
)

const fetchUserAgent = "toolguard-fetch/1.0"

// RedirectHop records one followed redirect: the status that triggered it
// and the absolute URL it pointed at.
type RedirectHop struct {
	Status int    `json:"status"`
	URL    string `json:"url"`
}

// FetchOutcome is the structured result of a completed fetch.
type FetchOutcome struct {
	URL        string            `json:"url"`
	Status     int               `json:"status"`
	StatusText string            `json:"statusText"`
	OK         bool              `json:"ok"`
	Headers    map[string]string `json:"headers"`
	Body       string            `json:"body"`
	Truncated  bool              `json:"truncated"`
	BytesRead  int               `json:"bytesRead"`
	Redirects  []RedirectHop     `json:"redirects"`
}

// Fetch performs SSRF-guarded GET requests. Redirects are never delegated to
// the transport: each hop comes back to this loop so the target is
// re-validated before it is followed. A redirect is attacker-influenced
// content and must not bypass the network policy.
type Fetch struct {
	client          *http.Client
	checkURL        func(ctx context.Context, raw string) (*url.URL, error)
	defaultTimeout  time.Duration
	defaultMaxBytes int
	defaultMaxHops  int
}

// NewFetch creates the fetch tool. Zero defaults fall back to the documented
// ones; everything is clamped to the hard maxima.
func NewFetch(defaultTimeout time.Duration, defaultMaxBytes, defaultMaxRedirects int) *Fetch {
	return &Fetch{
		client: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		checkURL:        netguard.CheckURL,
		defaultTimeout:  clampDuration(defaultTimeout, DefaultFetchTimeout, MaxFetchTimeout),
		defaultMaxBytes: clampInt(defaultMaxBytes, DefaultFetchBodyBytes, MaxFetchBodyBytes),
		defaultMaxHops:  defaultRedirects(defaultMaxRedirects),
	}
}

// defaultRedirects treats non-positive values as unset, matching clampInt. A
// zero-hop budget can still be requested per call via maxRedirects.
func defaultRedirects(v int) int {
	if v <= 0 {
		return DefaultFetchRedirects
	}
	if v > MaxFetchRedirects {
		return MaxFetchRedirects
	}
	return v
}

func (t *Fetch) Name() string { return "fetch" }

func (t *Fetch) Execute(ctx context.Context, raw json.RawMessage) (any, error) {
	req, err := parseFetchRequest(raw, t.defaultTimeout, t.defaultMaxBytes, t.defaultMaxHops)
	if err != nil {
		return nil, err
	}
	return t.fetch(ctx, req)
}

func (t *Fetch) fetch(parent context.Context, req FetchRequest) (any, error) {
	ctx, cancel := context.WithTimeout(parent, req.Timeout)
	defer cancel()

	hops := []RedirectHop{}
	current := req.URL

	for hop := 0; hop <= req.MaxRedirects; hop++ {
		// Every iteration validates the current target, including the
		// initial URL and every redirect after it.
		target, err := t.checkURL(ctx, current)
		if err != nil {
			return nil, policyFailure(err, hops)
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
		if err != nil {
			return nil, Failf(KindFetchFailed, "bad request for %s: %v", current, err)
		}
		httpReq.Header.Set("User-Agent", fetchUserAgent)

		resp, err := t.client.Do(httpReq)
		if err != nil {
			if parent.Err() != nil {
				return nil, Failf(KindAborted, "fetch aborted: %v", parent.Err())
			}
			return nil, Failf(KindFetchFailed, "request to %s failed: %v", current, err)
		}

		if isRedirectStatus(resp.StatusCode) {
			location := resp.Header.Get("Location")
			drainAndClose(resp.Body)
			if location == "" {
				return nil, FailDetail(KindFetchFailed,
					"redirect from "+current+" has no Location header",
					map[string]any{"redirects": hops})
			}
			next, err := target.Parse(location)
			if err != nil {
				return nil, Failf(KindFetchFailed,
					"unparseable Location %q from %s: %v", location, current, err)
			}
			hops = append(hops, RedirectHop{Status: resp.StatusCode, URL: next.String()})
			current = next.String()
			continue
		}

		body, truncated, err := readBodyCapped(resp.Body, req.MaxBytes)
		resp.Body.Close()
		if err != nil {
			if parent.Err() != nil {
				return nil, Failf(KindAborted, "fetch aborted: %v", parent.Err())
			}
			return nil, Failf(KindFetchFailed, "reading body of %s failed: %v", current, err)
		}

		return FetchOutcome{
			URL:        target.String(),
			Status:     resp.StatusCode,
			StatusText: http.StatusText(resp.StatusCode),
			OK:         resp.StatusCode >= 200 && resp.StatusCode < 300,
			Headers:    foldHeaders(resp.Header),
			Body:       string(body),
			Truncated:  truncated,
			BytesRead:  len(body),
			Redirects:  hops,
		}, nil
	}

	return nil, FailDetail(KindTooManyRedirects,
		"redirect budget of "+strconv.Itoa(req.MaxRedirects)+" exceeded",
		map[string]any{"redirects": hops})
}

func isRedirectStatus(status int) bool {
	switch status {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

// readBodyCapped reads at most max bytes and reports whether the body was
// longer. Bytes already read are always kept; only the excess is dropped.
func readBodyCapped(r io.Reader, max int) ([]byte, bool, error) {
	body, err := io.ReadAll(io.LimitReader(r, int64(max)+1))
	if err != nil {
		return nil, false, err
	}
	if len(body) > max {
		return body[:max], true, nil
	}
	return body, false, nil
}

// foldHeaders lowers header names into a flat map; on duplicates the last
// value wins.
func foldHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for name, values := range h {
		if len(values) == 0 {
			continue
		}
		out[strings.ToLower(name)] = values[len(values)-1]
	}
	return out
}

// policyFailure converts a netguard rejection into a Failure, carrying the
// redirect history when the rejection happened mid-chain.
func policyFailure(err error, hops []RedirectHop) *Failure {
	var ne *netguard.Error
	if errors.As(err, &ne) {
		f := Failf(ne.Code, "%s", ne.Message)
		if len(hops) > 0 {
			f.Details = map[string]any{"redirects": hops}
		}
		return f
	}
	return Classify(err)
}

// drainAndClose discards a bounded amount of the body before closing so the
// connection stays reusable for the next hop.
func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 4096))
	body.Close()
}
