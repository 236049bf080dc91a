package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"golang.org/x/sync/errgroup"
)

// Fetcher is the network capability: raw bytes for a GET or POST.
type Fetcher interface {
	Get(ctx context.Context, rawURL string, params url.Values) ([]byte, error)
	Post(ctx context.Context, rawURL string, body []byte) ([]byte, error)
}

// Request describes one call to a Fetcher.
type Request struct {
	Method string
	URL    string
	Params url.Values
	Body   []byte
}

func Get(rawURL string, params url.Values) Request {
	return Request{Method: http.MethodGet, URL: rawURL, Params: params}
}

func Post(rawURL string, body []byte) Request {
	return Request{Method: http.MethodPost, URL: rawURL, Body: body}
}

func (r Request) String() string {
	if len(r.Params) == 0 {
		return r.Method + " " + r.URL
	}
	return r.Method + " " + r.URL + "?" + r.Params.Encode()
}

// Do dispatches req to f. An empty method means GET.
func Do(ctx context.Context, f Fetcher, req Request) ([]byte, error) {
	switch req.Method {
	case "", http.MethodGet:
		return f.Get(ctx, req.URL, req.Params)
	case http.MethodPost:
		return f.Post(ctx, req.URL, req.Body)
	default:
		return nil, fmt.Errorf("unsupported method: %s", req.Method)
	}
}

// Response pairs a batched request with its result.
type Response struct {
	Request Request
	Body    []byte
	Err     error
}

// Batch fetches every request with at most limit in flight and returns the
// responses in request order. One failing request does not stop the others.
// It makes a single attempt per request; the Orchestrator runs its own
// leaf pool because leaves retry empty payloads and cancel on decode errors.
func Batch(ctx context.Context, f Fetcher, reqs []Request, limit int) []Response {
	out := make([]Response, len(reqs))

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, req := range reqs {
		g.Go(func() error {
			body, err := Do(ctx, f, req)
			out[i] = Response{Request: req, Body: body, Err: err}
			return nil
		})
	}
	g.Wait()

	return out
}
