package sink

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/dgallion1/docsplit/internal/doctree"
)

// DefaultPathstorePrefix is the key namespace records are written under.
const DefaultPathstorePrefix = "docsplit/files"

// Pathstore writes records to a pathstore KV server. Each file owns the key
// subtree <prefix>/<sha256 of file path>: a meta node plus one node per
// record under records/<index>.
type Pathstore struct {
	baseURL    string
	apiKey     string
	prefix     string
	httpClient *http.Client
}

func NewPathstore(baseURL, apiKey string) *Pathstore {
	return &Pathstore{
		baseURL: baseURL,
		apiKey:  apiKey,
		prefix:  DefaultPathstorePrefix,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// nodeRequest is the body for PUT /kv/{key}.
type nodeRequest struct {
	Value  any    `json:"value"`
	Source string `json:"source,omitempty"`
}

// FileKey returns the key subtree holding file's records.
func (p *Pathstore) FileKey(file string) string {
	return p.prefix + "/" + pathHash(file)
}

// Write replaces the file's subtree: the old one is deleted recursively, then
// the meta node and every record are put in order.
func (p *Pathstore) Write(ctx context.Context, file string, records []doctree.Record) error {
	key := p.FileKey(file)
	source := "docsplit:" + file

	if err := p.deleteNode(ctx, key, true); err != nil {
		return err
	}

	err := p.putNode(ctx, key+"/meta", nodeRequest{
		Value: map[string]any{
			"file":    file,
			"records": len(records),
			"indexed": time.Now().UTC().Format(time.RFC3339),
		},
		Source: source,
	})
	if err != nil {
		return err
	}

	for i, r := range records {
		if err := p.putNode(ctx, key+"/records/"+strconv.Itoa(i), nodeRequest{Value: r, Source: source}); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pathstore) putNode(ctx context.Context, key string, req nodeRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal node: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPut, p.baseURL+"/kv/"+key, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.do(httpReq)
	if err != nil {
		return fmt.Errorf("put node %s: %w", key, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return statusError("put node "+key, resp)
	}
	return nil
}

// deleteNode deletes a node and optionally its children. A missing node is
// not an error.
func (p *Pathstore) deleteNode(ctx context.Context, key string, recursive bool) error {
	u := p.baseURL + "/kv/" + key
	if recursive {
		u += "?children=true"
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.do(httpReq)
	if err != nil {
		return fmt.Errorf("delete node %s: %w", key, err)
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent, http.StatusNotFound:
		return nil
	}
	return statusError("delete node "+key, resp)
}

// do sends req. Transport failures are retryable unless the context ended.
func (p *Pathstore) do(req *http.Request) (*http.Response, error) {
	resp, err := p.httpClient.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &RetryableError{Err: err}
	}
	return resp, nil
}

func statusError(op string, resp *http.Response) error {
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	err := fmt.Errorf("%s: status %d: %s", op, resp.StatusCode, string(respBody))
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return &RetryableError{StatusCode: resp.StatusCode, Err: err}
	}
	return err
}

func (p *Pathstore) Close() error {
	p.httpClient.CloseIdleConnections()
	return nil
}

// pathHash computes the SHA-256 of a file path as a hex string.
func pathHash(file string) string {
	h := sha256.Sum256([]byte(file))
	return fmt.Sprintf("%x", h[:])
}
