package avail

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/airchains-network/da-dispatcher/da/daerr"
)

// httpRequest sends one request and returns the response body and status code.
func httpRequest(ctx context.Context, client *http.Client, method, uri string, body []byte, headers map[string]string) ([]byte, int, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, uri, reader)
	if err != nil {
		return nil, 0, daerr.Terminal(uri, fmt.Errorf("error creating %s request: %w", method, err))
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, daerr.Retriable(uri, fmt.Errorf("error making HTTP request: %w", err))
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, daerr.Retriable(uri, fmt.Errorf("error reading response body: %w", err))
	}
	return bodyBytes, resp.StatusCode, nil
}

func statusError(op string, code int, body []byte) error {
	const limit = 256
	if len(body) > limit {
		body = body[:limit]
	}
	return daerr.Wrap(op, &daerr.StatusError{Code: code, Body: string(body)})
}

func isSuccess(code int) bool {
	return code >= http.StatusOK && code < http.StatusMultipleChoices
}
