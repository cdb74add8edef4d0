// Package casclient is the thin adapter to the content-addressed store's
// HTTP API (component A): add-with-pin, unpin, pin-list, repo stats, repo
// GC, node identity, key management, mutable-name publish, and pub/sub.
//
// Every operation round-trips over POST /api/v0/<action> with query
// parameters and multipart bodies for uploads, matching the store's actual
// wire contract, and surfaces failures as NetworkError, RemoteError, or
// DecodeError per the spec's error table.
package casclient

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/ipfs/go-cid"
	"github.com/meshcast/meshcast/internal/multibase"
)

// Per-call timeouts per §5.
const (
	TimeoutIdentity = 5 * time.Second
	TimeoutAdd      = 30 * time.Second
	TimeoutPublish  = 30 * time.Second
	TimeoutGC       = 120 * time.Second
)

// Client is a thin, stateless adapter around one CAS node's HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
	log     *slog.Logger
}

// New constructs a Client targeting baseURL (e.g. http://127.0.0.1:5001).
func New(baseURL string, log *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{},
		log:     log,
	}
}

func (c *Client) do(ctx context.Context, op, action string, query url.Values, body io.Reader, contentType string) (*http.Response, error) {
	u := c.baseURL + "/api/v0/" + action
	if query != nil {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, body)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		return nil, &RemoteError{Op: op, Status: resp.StatusCode, Body: string(b)}
	}
	return resp, nil
}

func decodeJSON[T any](op string, resp *http.Response) (T, error) {
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		return v, &DecodeError{Op: op, Err: err}
	}
	return v, nil
}

// Identity confirms the store is up; used as a readiness probe.
func (c *Client) Identity(ctx context.Context) (Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, TimeoutIdentity)
	defer cancel()
	resp, err := c.do(ctx, "identity", "id", nil, nil, "")
	if err != nil {
		return Identity{}, err
	}
	return decodeJSON[Identity]("identity", resp)
}

// Add uploads one blob and returns its CID, pinned recursively unless pin is
// false.
func (c *Client) Add(ctx context.Context, data []byte, filename string, pin bool) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, TimeoutAdd)
	defer cancel()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return "", &NetworkError{Op: "add", Err: err}
	}
	if _, err := part.Write(data); err != nil {
		return "", &NetworkError{Op: "add", Err: err}
	}
	if err := w.Close(); err != nil {
		return "", &NetworkError{Op: "add", Err: err}
	}

	q := url.Values{"pin": {strconv.FormatBool(pin)}, "quiet": {"true"}}
	resp, err := c.do(ctx, "add", "add", q, &buf, w.FormDataContentType())
	if err != nil {
		return "", err
	}
	type addResp struct {
		Hash string `json:"Hash"`
	}
	ar, err := decodeJSON[addResp]("add", resp)
	if err != nil {
		return "", err
	}
	if _, err := cid.Decode(ar.Hash); err != nil {
		return "", &DecodeError{Op: "add", Err: fmt.Errorf("invalid CID %q: %w", ar.Hash, err)}
	}
	return ar.Hash, nil
}

// PinList returns the set of recursively-pinned CIDs.
func (c *Client) PinList(ctx context.Context) (map[string]struct{}, error) {
	resp, err := c.do(ctx, "pin_list", "pin/ls", url.Values{"type": {"recursive"}}, nil, "")
	if err != nil {
		return nil, err
	}
	type pinLsResp struct {
		Keys map[string]struct {
			Type string `json:"Type"`
		} `json:"Keys"`
	}
	pr, err := decodeJSON[pinLsResp]("pin_list", resp)
	if err != nil {
		return nil, err
	}
	out := make(map[string]struct{}, len(pr.Keys))
	for k := range pr.Keys {
		out[k] = struct{}{}
	}
	return out, nil
}

// Unpin removes the pin on a CID.
func (c *Client) Unpin(ctx context.Context, cidStr string) error {
	resp, err := c.do(ctx, "unpin", "pin/rm", url.Values{"arg": {cidStr}}, nil, "")
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// RepoStat returns repo size, storage cap, and object count.
func (c *Client) RepoStat(ctx context.Context) (RepoStat, error) {
	resp, err := c.do(ctx, "repo_stat", "repo/stat", nil, nil, "")
	if err != nil {
		return RepoStat{}, err
	}
	return decodeJSON[RepoStat]("repo_stat", resp)
}

// RepoGC triggers garbage collection and returns the stream of events,
// surfacing any per-line errors as warnings via the logger rather than
// failing the call.
func (c *Client) RepoGC(ctx context.Context) ([]GCEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, TimeoutGC)
	defer cancel()
	resp, err := c.do(ctx, "repo_gc", "repo/gc", nil, nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var events []GCEvent
	dec := json.NewDecoder(resp.Body)
	for dec.More() {
		var ev GCEvent
		if err := dec.Decode(&ev); err != nil {
			return events, &DecodeError{Op: "repo_gc", Err: err}
		}
		if ev.Error != "" && c.log != nil {
			c.log.Warn("repo gc event error", "error", ev.Error)
		}
		events = append(events, ev)
	}
	return events, nil
}

// KeyList lists all IPNS-style keys known to the node.
func (c *Client) KeyList(ctx context.Context) ([]KeyInfo, error) {
	resp, err := c.do(ctx, "key_list", "key/list", nil, nil, "")
	if err != nil {
		return nil, err
	}
	type keyListResp struct {
		Keys []KeyInfo `json:"Keys"`
	}
	kr, err := decodeJSON[keyListResp]("key_list", resp)
	if err != nil {
		return nil, err
	}
	return kr.Keys, nil
}

// KeyGen creates a new key of the given type (default ed25519).
func (c *Client) KeyGen(ctx context.Context, name, keyType string) (string, error) {
	if keyType == "" {
		keyType = "ed25519"
	}
	q := url.Values{"arg": {name}, "type": {keyType}}
	resp, err := c.do(ctx, "key_gen", "key/gen", q, nil, "")
	if err != nil {
		return "", err
	}
	ki, err := decodeJSON[KeyInfo]("key_gen", resp)
	if err != nil {
		return "", err
	}
	return ki.ID, nil
}

// KeyRename renames a key from old to new.
func (c *Client) KeyRename(ctx context.Context, oldName, newName string) error {
	q := url.Values{"arg": {oldName}, "arg2": {newName}}
	resp, err := c.do(ctx, "key_rename", "key/rename", q, nil, "")
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// NamePublish binds key's mutable name to cidStr with the given lifetime and
// TTL, returning the published name.
func (c *Client) NamePublish(ctx context.Context, key, cidStr, lifetime, ttl string, allowOffline bool) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, TimeoutPublish)
	defer cancel()
	q := url.Values{
		"arg":           {cidStr},
		"key":           {key},
		"lifetime":      {lifetime},
		"ttl":           {ttl},
		"resolve":       {"true"},
		"allow-offline": {strconv.FormatBool(allowOffline)},
	}
	resp, err := c.do(ctx, "name_publish", "name/publish", q, nil, "")
	if err != nil {
		return "", err
	}
	pr, err := decodeJSON[PublishResult]("name_publish", resp)
	if err != nil {
		return "", err
	}
	return pr.Name, nil
}

// PubSubPub publishes payload (raw UTF-8 bytes, sent unencoded as the
// multipart `data` field) to topic, which is multibase-encoded here.
func (c *Client) PubSubPub(ctx context.Context, topic string, payload []byte) error {
	encTopic, err := multibase.EncodeTopic(topic)
	if err != nil {
		return &DecodeError{Op: "pubsub_pub", Err: err}
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormField("data")
	if err != nil {
		return &NetworkError{Op: "pubsub_pub", Err: err}
	}
	if _, err := part.Write(payload); err != nil {
		return &NetworkError{Op: "pubsub_pub", Err: err}
	}
	if err := w.Close(); err != nil {
		return &NetworkError{Op: "pubsub_pub", Err: err}
	}

	resp, err := c.do(ctx, "pubsub_pub", "pubsub/pub", url.Values{"arg": {encTopic}}, &buf, w.FormDataContentType())
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// PubSubSub opens a long-lived subscription to topic and returns an
// unbuffered channel carrying the open-ended stream of raw messages. The
// channel is closed, and errCh
// receives one error, when the underlying stream ends (including on ctx
// cancellation). Callers are expected to consume with backpressure by
// dropping messages if they fall behind.
func (c *Client) PubSubSub(ctx context.Context, topic string) (<-chan PubSubMessage, <-chan error, error) {
	encTopic, err := multibase.EncodeTopic(topic)
	if err != nil {
		return nil, nil, &DecodeError{Op: "pubsub_sub", Err: err}
	}

	u := c.baseURL + "/api/v0/pubsub/sub?" + url.Values{"arg": {encTopic}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, nil)
	if err != nil {
		return nil, nil, &NetworkError{Op: "pubsub_sub", Err: err}
	}
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, &NetworkError{Op: "pubsub_sub", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		return nil, nil, &RemoteError{Op: "pubsub_sub", Status: resp.StatusCode, Body: string(b)}
	}

	msgCh := make(chan PubSubMessage)
	errCh := make(chan error, 1)

	go func() {
		defer resp.Body.Close()
		defer close(msgCh)
		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}
			var msg PubSubMessage
			if err := json.Unmarshal(line, &msg); err != nil {
				if c.log != nil {
					c.log.Warn("pubsub_sub: malformed message", "error", err)
				}
				continue
			}
			select {
			case msgCh <- msg:
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			}
		}
		if err := scanner.Err(); err != nil {
			errCh <- err
		} else {
			errCh <- io.EOF
		}
	}()

	return msgCh, errCh, nil
}
