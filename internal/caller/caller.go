// Package caller relays a request to the inference backend and reads back its reply.
package caller

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/UKHomeOffice/voiceinsight/internal/client"
)

// maxReply bounds the upstream body kept in memory, API Gateway rejects anything larger anyway
const maxReply = 6 << 20

// Reply is the upstream response
type Reply struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Call forwards r to the inference backend below the same path
func Call(ctx context.Context, c *client.Client, r *http.Request) (*Reply, error) {

	req, err := c.NewRequest(ctx, r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("Content-Type"), r.Body)
	if err != nil {
		return nil, fmt.Errorf("could not make request: %w", err)
	}

	res, err := c.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not call inference backend: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxReply+1))
	if err != nil {
		return nil, fmt.Errorf("could not read inference response body: %w", err)
	}
	if len(body) > maxReply {
		return nil, fmt.Errorf("inference response body exceeds %d bytes", maxReply)
	}

	return &Reply{
		StatusCode:  res.StatusCode,
		ContentType: res.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}
