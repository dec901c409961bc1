package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sortedstorage/sortedstorage-cli/internal/client/identity"
	"github.com/sortedstorage/sortedstorage-cli/internal/client/models"
	"github.com/sortedstorage/sortedstorage-cli/internal/common"
)

// DefaultTimeout applies when no request timeout is configured.
const DefaultTimeout = 60 * time.Second

// RESTClient talks JSON over HTTP to the sortedstorage backend and attaches
// the persisted bearer token to every request.
type RESTClient struct {
	baseURL    string
	httpClient *http.Client
	tokens     identity.TokenSource
}

func NewRESTClient(baseURL string, timeout time.Duration, tokens identity.TokenSource) *RESTClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &RESTClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		tokens:     tokens,
	}
}

var _ StorageAPI = (*RESTClient)(nil)
var _ AuthAPI = (*RESTClient)(nil)

type apiError struct {
	Error string `json:"error"`
}

func (c *RESTClient) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if c.tokens != nil {
		if token, err := c.tokens.Token(ctx); err == nil && token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	return req, nil
}

// doJSON sends a request with an optional JSON body and decodes the JSON
// response into out (when out is non-nil).
func (c *RESTClient) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// checkStatus maps HTTP errors to the shared sentinels, preserving the
// server-provided message where one exists.
func (c *RESTClient) checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	msg := resp.Status
	var ae apiError
	if data, err := io.ReadAll(io.LimitReader(resp.Body, 4096)); err == nil {
		if json.Unmarshal(data, &ae) == nil && ae.Error != "" {
			msg = ae.Error
		}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s", common.ErrorUnauthorized, msg)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", common.ErrorNotFound, msg)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: %s", common.ErrUnavailable, msg)
	default:
		return fmt.Errorf("request failed: %s", msg)
	}
}

type listResponse struct {
	Items []models.Item `json:"items"`
}

func (c *RESTClient) List(ctx context.Context, opts ListOptions) ([]models.Item, error) {
	q := url.Values{}
	if opts.ParentID != "" {
		q.Set("parent_id", opts.ParentID)
	} else {
		q.Set("path", opts.Path)
	}
	if opts.SortBy != "" {
		q.Set("sort_by", opts.SortBy)
	}
	if opts.SortOrder != "" {
		q.Set("sort_order", opts.SortOrder)
	}

	var resp listResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/storage/list?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// progressReader reports consumption of a fixed-size body as a percentage.
type progressReader struct {
	r          io.Reader
	total      int64
	read       int64
	onProgress func(int)
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.r.Read(buf)
	if n > 0 && p.onProgress != nil && p.total > 0 {
		p.read += int64(n)
		pct := int(p.read * 100 / p.total)
		if pct > 100 {
			pct = 100
		}
		p.onProgress(pct)
	}
	return n, err
}

func (c *RESTClient) Upload(ctx context.Context, upload UploadRequest) (*models.Item, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		var err error
		defer func() { pw.CloseWithError(err) }()

		if upload.Path != "" {
			if err = mw.WriteField("path", upload.Path); err != nil {
				return
			}
		}
		if upload.ParentID != "" {
			if err = mw.WriteField("parent_id", upload.ParentID); err != nil {
				return
			}
		}
		var part io.Writer
		if part, err = mw.CreateFormFile("file", upload.Name); err != nil {
			return
		}
		body := &progressReader{r: upload.Content, total: upload.Size, onProgress: upload.OnProgress}
		if _, err = io.Copy(part, body); err != nil {
			return
		}
		err = mw.Close()
	}()

	req, err := c.newRequest(ctx, http.MethodPost, "/api/storage/upload", pr)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp); err != nil {
		return nil, err
	}

	var item models.Item
	if err := json.NewDecoder(resp.Body).Decode(&item); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if upload.OnProgress != nil {
		upload.OnProgress(100)
	}
	return &item, nil
}

func (c *RESTClient) Delete(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/storage/items/"+url.PathEscape(id), nil, nil)
}

func (c *RESTClient) DeleteMultiple(ctx context.Context, ids []string) error {
	in := map[string]any{"ids": ids}
	return c.doJSON(ctx, http.MethodPost, "/api/storage/items/delete", in, nil)
}

func (c *RESTClient) CreateFolder(ctx context.Context, name, path, parentID string) (*models.Item, error) {
	in := map[string]any{"name": name, "path": path}
	if parentID != "" {
		in["parent_id"] = parentID
	}
	var item models.Item
	if err := c.doJSON(ctx, http.MethodPost, "/api/storage/folders", in, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *RESTClient) Rename(ctx context.Context, id, name string) (*models.Item, error) {
	in := map[string]any{"name": name}
	var item models.Item
	if err := c.doJSON(ctx, http.MethodPatch, "/api/storage/items/"+url.PathEscape(id), in, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *RESTClient) MoveMultiple(ctx context.Context, ids []string, targetPath string) error {
	in := map[string]any{"ids": ids, "target_path": targetPath}
	return c.doJSON(ctx, http.MethodPost, "/api/storage/items/move", in, nil)
}

func (c *RESTClient) CopyMultiple(ctx context.Context, ids []string, targetPath string) ([]models.Item, error) {
	in := map[string]any{"ids": ids, "target_path": targetPath}
	var resp listResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/storage/items/copy", in, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

func (c *RESTClient) Download(ctx context.Context, id string, w io.Writer, onProgress func(int)) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/storage/items/"+url.PathEscape(id)+"/download", nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp); err != nil {
		return err
	}

	body := &progressReader{r: resp.Body, total: resp.ContentLength, onProgress: onProgress}
	if _, err := io.Copy(w, body); err != nil {
		return fmt.Errorf("downloading file: %w", err)
	}
	if onProgress != nil {
		onProgress(100)
	}
	return nil
}

func (c *RESTClient) Quota(ctx context.Context) (*models.StorageQuota, error) {
	var quota models.StorageQuota
	if err := c.doJSON(ctx, http.MethodGet, "/api/storage/quota", nil, &quota); err != nil {
		return nil, err
	}
	return &quota, nil
}

type authResponse struct {
	User  models.User `json:"user"`
	Token string      `json:"token"`
}

func (c *RESTClient) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	in := map[string]string{"email": email, "password": password}
	var resp authResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/login", in, &resp); err != nil {
		return nil, "", err
	}
	return &resp.User, resp.Token, nil
}

func (c *RESTClient) Register(ctx context.Context, name, email, password string) (*models.User, string, error) {
	in := map[string]string{"name": name, "email": email, "password": password}
	var resp authResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/register", in, &resp); err != nil {
		return nil, "", err
	}
	return &resp.User, resp.Token, nil
}

func (c *RESTClient) Logout(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
}

func (c *RESTClient) Me(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := c.doJSON(ctx, http.MethodGet, "/api/auth/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
