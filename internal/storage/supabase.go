package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// SupabaseStorage talks to the Supabase storage object API with a service key.
type SupabaseStorage struct {
	baseURL    string
	serviceKey string
	httpClient *http.Client
}

func NewSupabaseStorage(supabaseURL, serviceKey string) *SupabaseStorage {
	return &SupabaseStorage{
		baseURL:    strings.TrimRight(supabaseURL, "/") + "/storage/v1",
		serviceKey: serviceKey,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
	}
}

// objectURL escapes each path segment; uploaded filenames may contain spaces.
func (s *SupabaseStorage) objectURL(bucket, p string) string {
	segs := strings.Split(strings.TrimLeft(p, "/"), "/")
	for i, seg := range segs {
		segs[i] = url.PathEscape(seg)
	}
	return fmt.Sprintf("%s/object/%s/%s", s.baseURL, url.PathEscape(bucket), strings.Join(segs, "/"))
}

// do sends an authenticated request. Callers close the body of non-nil responses.
func (s *SupabaseStorage) do(ctx context.Context, method, bucket, p string, body io.Reader, header http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, s.objectURL(bucket, p), body)
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", strings.ToLower(method), err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", strings.ToLower(method), p, err)
	}
	return resp, nil
}

func statusError(op, p string, resp *http.Response) error {
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s %s: %w", op, p, ErrNotFound)
	}
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("%s %s failed (%d): %s", op, p, resp.StatusCode, strings.TrimSpace(string(msg)))
}

func (s *SupabaseStorage) Upload(ctx context.Context, bucket, p string, data io.Reader, contentType string) error {
	// the object API wants a Content-Length, so the upload is buffered
	buf, err := io.ReadAll(data)
	if err != nil {
		return fmt.Errorf("read upload data: %w", err)
	}

	header := http.Header{}
	header.Set("Content-Type", contentType)
	header.Set("x-upsert", "true")

	resp, err := s.do(ctx, http.MethodPost, bucket, p, bytes.NewReader(buf), header)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return statusError("upload", p, resp)
	}
	return nil
}

func (s *SupabaseStorage) Download(ctx context.Context, bucket, p string) (io.ReadCloser, error) {
	resp, err := s.do(ctx, http.MethodGet, bucket, p, nil, nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		return nil, statusError("download", p, resp)
	}
	return resp.Body, nil
}

// Delete removes an object. A missing object is not an error.
func (s *SupabaseStorage) Delete(ctx context.Context, bucket, p string) error {
	resp, err := s.do(ctx, http.MethodDelete, bucket, p, nil, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode >= 400 {
		return statusError("delete", p, resp)
	}
	return nil
}
