package blob

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/exposure-tracker/internal/common"
)

func exercise(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	info, err := s.Put(ctx, "exports/acme/samples.xlsx", bytes.NewReader([]byte("workbook")), "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	require.NoError(t, err)
	assert.Equal(t, int64(8), info.Size)

	_, err = s.Put(ctx, "exports/acme/samples.xlsx", bytes.NewReader([]byte("workbook v2")), "")
	require.NoError(t, err)

	rc, got, err := s.Get(ctx, "exports/acme/samples.xlsx")
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "workbook v2", string(body))
	assert.Equal(t, int64(11), got.Size)

	require.NoError(t, s.Delete(ctx, "exports/acme/samples.xlsx"))
	_, _, err = s.Get(ctx, "exports/acme/samples.xlsx")
	require.ErrorIs(t, err, common.ErrNotFound)

	for _, bad := range []string{"", "/abs", "../escape", "a/../../b"} {
		_, err := s.Put(ctx, bad, strings.NewReader("x"), "")
		assert.ErrorIs(t, err, common.ErrInvalidInput, bad)
	}
}

func TestFS(t *testing.T) {
	s, err := NewFS(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, DriverFilesystem, s.Driver())
	exercise(t, s)
	require.ErrorIs(t, s.Delete(context.Background(), "missing.txt"), common.ErrNotFound)
}

// fakeS3 is a path-style in-memory S3 endpoint covering Put/Head/Get/Delete.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]fakeObject
}

type fakeObject struct {
	body        []byte
	contentType string
}

func (f *fakeS3) RoundTrip(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	parts := strings.SplitN(strings.TrimPrefix(req.URL.Path, "/"), "/", 2)
	key := ""
	if len(parts) == 2 {
		key = parts[1]
	}
	empty := func(code int) *http.Response {
		return &http.Response{StatusCode: code, Body: io.NopCloser(bytes.NewReader(nil)), Header: http.Header{}, Request: req}
	}
	headers := func(o fakeObject) http.Header {
		return http.Header{
			"Content-Length": {strconv.Itoa(len(o.body))},
			"Content-Type":   {o.contentType},
			"Last-Modified":  {time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Format(http.TimeFormat)},
			"Etag":           {`"etag"`},
		}
	}

	switch req.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(req.Body)
		if strings.Contains(req.Header.Get("Content-Encoding"), "aws-chunked") {
			body = decodeChunk(body)
		}
		f.objects[key] = fakeObject{body: body, contentType: req.Header.Get("Content-Type")}
		r := empty(http.StatusOK)
		r.Header.Set("Etag", `"etag"`)
		return r, nil
	case http.MethodHead:
		o, ok := f.objects[key]
		if !ok {
			return empty(http.StatusNotFound), nil
		}
		r := empty(http.StatusOK)
		r.Header = headers(o)
		r.ContentLength = int64(len(o.body))
		return r, nil
	case http.MethodGet:
		o, ok := f.objects[key]
		if !ok {
			r := empty(http.StatusNotFound)
			r.Header.Set("Content-Type", "application/xml")
			r.Body = io.NopCloser(strings.NewReader(`<?xml version="1.0"?><Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`))
			return r, nil
		}
		return &http.Response{
			StatusCode:    http.StatusOK,
			Header:        headers(o),
			Body:          io.NopCloser(bytes.NewReader(o.body)),
			ContentLength: int64(len(o.body)),
			Request:       req,
		}, nil
	case http.MethodDelete:
		delete(f.objects, key)
		return empty(http.StatusNoContent), nil
	}
	return empty(http.StatusNotImplemented), nil
}

// decodeChunk unwraps a single aws-chunked frame: <hex size>[;ext]\r\n<data>\r\n...
func decodeChunk(b []byte) []byte {
	i := bytes.Index(b, []byte("\r\n"))
	if i < 0 {
		return b
	}
	sizeField := string(b[:i])
	if j := strings.IndexByte(sizeField, ';'); j >= 0 {
		sizeField = sizeField[:j]
	}
	n, err := strconv.ParseInt(sizeField, 16, 64)
	if err != nil || int(n) > len(b)-i-2 {
		return b
	}
	return b[i+2 : i+2+int(n)]
}

func TestS3(t *testing.T) {
	s, err := NewS3(context.Background(), S3Config{
		Bucket:          "exports",
		Region:          "us-east-1",
		Endpoint:        "https://mock.s3.local",
		PathStyle:       true,
		AccessKeyID:     "AKIA",
		SecretAccessKey: "SECRET",
		HTTPClient:      &http.Client{Transport: &fakeS3{objects: map[string]fakeObject{}}},
	})
	require.NoError(t, err)
	assert.Equal(t, DriverS3, s.Driver())
	exercise(t, s)
}

func TestOpen(t *testing.T) {
	s, err := Open(context.Background(), common.BlobConfig{})
	require.NoError(t, err)
	assert.Nil(t, s)

	s, err = Open(context.Background(), common.BlobConfig{Driver: "fs", Dir: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, DriverFilesystem, s.Driver())

	_, err = Open(context.Background(), common.BlobConfig{Driver: "s3"})
	require.ErrorIs(t, err, common.ErrInvalidInput)

	_, err = Open(context.Background(), common.BlobConfig{Driver: "ftp"})
	require.Error(t, err)
}
