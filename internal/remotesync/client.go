package remotesync

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	log "github.com/sirupsen/logrus"
)

var (
	ErrRemoteFileNotFound = errors.New("remote file not found")
	ErrRemoteRejected     = errors.New("remote rejected the update")
	ErrRemoteUnreachable  = errors.New("remote unreachable")
)

// FileMeta is the remote file metadata: the content SHA doubles as the
// optimistic concurrency token required for an overwrite.
type FileMeta struct {
	Path        string `json:"path"`
	SHA         string `json:"sha"`
	Size        int    `json:"size"`
	DownloadURL string `json:"download_url"`
}

type PushResult struct {
	SHA     string
	Created bool
}

// Client talks to a contents-style file hosting API: GET file metadata,
// PUT content replace keyed by the previous content SHA.
type Client struct {
	baseURL    string
	repoOwner  string
	repoName   string
	branch     string
	authToken  string
	httpClient *http.Client
}

func NewClient(
	baseURL, repoOwner, repoName, branch, authToken string,
	httpClient *http.Client,
) *Client {
	return &Client{
		baseURL:    baseURL,
		repoOwner:  repoOwner,
		repoName:   repoName,
		branch:     branch,
		authToken:  authToken,
		httpClient: httpClient,
	}
}

func (c *Client) contentsURL(path string) string {
	return fmt.Sprintf(
		"%s/repos/%s/%s/contents/%s",
		c.baseURL, c.repoOwner, c.repoName, url.PathEscape(path),
	)
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+c.authToken)
}

// FetchMeta returns the current metadata of the remote file.
func (c *Client) FetchMeta(ctx context.Context, path string) (*FileMeta, error) {
	metaURL := c.contentsURL(path) + "?ref=" + url.QueryEscape(c.branch)
	log.Debugf("remote sync: fetching file meta: %s", metaURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, metaURL, nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrRemoteUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrRemoteFileNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch remote file meta, unexpected status: %s", resp.Status)
	}

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read remote file meta response: %w", err)
	}

	var meta FileMeta
	if err := json.Unmarshal(respBytes, &meta); err != nil {
		return nil, fmt.Errorf("unmarshal remote file meta: %w", err)
	}

	return &meta, nil
}

// Push overwrites the remote file with the given content, tagged with the
// current remote content SHA. A stale SHA is rejected by the remote and
// surfaces as ErrRemoteRejected - no retry, the local file stays as is.
func (c *Client) Push(ctx context.Context, path string, content []byte, message string) (*PushResult, error) {
	sha := ""
	meta, err := c.FetchMeta(ctx, path)
	switch {
	case errors.Is(err, ErrRemoteFileNotFound):
		// no remote file yet, the push will create it
		log.Debugf("remote sync: file [%s] not found remotely, will be created", path)
	case err != nil:
		return nil, fmt.Errorf("fetch current remote meta: %w", err)
	default:
		sha = meta.SHA
	}

	type pushRequest struct {
		Message string `json:"message"`
		Branch  string `json:"branch"`
		Content string `json:"content"`
		SHA     string `json:"sha,omitempty"`
	}

	reqBodyJson, err := json.Marshal(pushRequest{
		Message: message,
		Branch:  c.branch,
		Content: base64.StdEncoding.EncodeToString(content),
		SHA:     sha,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal push request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPut, c.contentsURL(path), bytes.NewReader(reqBodyJson),
	)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrRemoteUnreachable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		// fallthrough to response decoding
	case http.StatusConflict, http.StatusUnprocessableEntity:
		// someone else updated the remote file first
		return nil, fmt.Errorf("%w: content sha [%s] is stale", ErrRemoteRejected, sha)
	default:
		return nil, fmt.Errorf("push remote file, unexpected status: %s", resp.Status)
	}

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read push response: %w", err)
	}

	type pushResponse struct {
		Content struct {
			SHA string `json:"sha"`
		} `json:"content"`
	}
	var pushResp pushResponse
	if err := json.Unmarshal(respBytes, &pushResp); err != nil {
		return nil, fmt.Errorf("unmarshal push response: %w", err)
	}

	log.Debugf("remote sync: file [%s] pushed, new sha: %s", path, pushResp.Content.SHA)

	return &PushResult{
		SHA:     pushResp.Content.SHA,
		Created: resp.StatusCode == http.StatusCreated,
	}, nil
}
