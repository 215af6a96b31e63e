package httpds

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// Remote is a data source that fetches a single URL with the package client.
// It adapts Client.Get to the datasource Open contract so HTTP endpoints can
// be used anywhere a local file can.
type Remote struct {
	URL    string
	Client *Client
}

// NewRemote returns a Remote bound to url, using the provided client. A nil
// client gets the package defaults.
func NewRemote(url string, client *Client) *Remote {
	if client == nil {
		client = NewClient(Config{})
	}
	return &Remote{URL: url, Client: client}
}

// Open issues the GET and hands the response body to the caller, who owns
// closing it. Any status other than 200 closes the body and is reported as
// an error; retry and backoff happen inside the client before Open returns.
func (r *Remote) Open(ctx context.Context) (io.ReadCloser, error) {
	resp, err := r.Client.Get(ctx, r.URL, nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("httpds: unexpected status %s from %s", resp.Status, r.URL)
	}
	return resp.Body, nil
}
