package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"SpotiFM/model"
)

// ErrPlaylistNotFound 服务端对未知专辑返回 null
var ErrPlaylistNotFound = errors.New("playlist not found")

// Client 内容服务器的 HTTP 客户端
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// NewClient 创建新的API客户端，baseURL 例如 http://localhost:8080/
func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base url %q: unsupported scheme", baseURL)
	}
	return &Client{
		baseURL: u,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// BaseURL returns the server root the client talks to.
func (c *Client) BaseURL() *url.URL {
	u := *c.baseURL
	return &u
}

// ResolveMedia 把歌曲的 src（通常是相对路径 songs/x.mp3）解析为绝对地址
func (c *Client) ResolveMedia(src string) string {
	ref, err := url.Parse(src)
	if err != nil {
		return src
	}
	return c.baseURL.ResolveReference(ref).String()
}

// GetHomeFeed GET feed
func (c *Client) GetHomeFeed(ctx context.Context) ([]model.Section, error) {
	body, err := c.get(ctx, "feed")
	if err != nil {
		return nil, err
	}
	var sections []model.Section
	if err := json.Unmarshal(body, &sections); err != nil {
		return nil, fmt.Errorf("decode feed: %w", err)
	}
	return sections, nil
}

// GetPlaylist GET playlist/{id}
func (c *Client) GetPlaylist(ctx context.Context, id int) (*model.Playlist, error) {
	body, err := c.get(ctx, "playlist/"+strconv.Itoa(id))
	if err != nil {
		return nil, err
	}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || string(trimmed) == "null" || string(trimmed) == `"null"` {
		return nil, fmt.Errorf("album %d: %w", id, ErrPlaylistNotFound)
	}
	var playlist model.Playlist
	if err := json.Unmarshal(trimmed, &playlist); err != nil {
		return nil, fmt.Errorf("decode playlist %d: %w", id, err)
	}
	return &playlist, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return nil, err
	}
	endpoint := c.baseURL.ResolveReference(ref).String()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: unexpected status %d", path, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return body, nil
}
