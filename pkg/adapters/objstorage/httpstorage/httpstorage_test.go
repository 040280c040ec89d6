package httpstorage_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/jademcosta/courier/pkg/adapters/objstorage/httpstorage"
	"github.com/jademcosta/courier/pkg/domain"
	"github.com/jademcosta/courier/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var llog = logger.NewDummy()

type receivedRequest struct {
	method   string
	path     string
	body     string
	encoding string
	length   int64
}

type recordingServer struct {
	mu       sync.Mutex
	requests []receivedRequest
}

func (rs *recordingServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	rs.mu.Lock()
	rs.requests = append(rs.requests, receivedRequest{
		method:   r.Method,
		path:     r.URL.Path,
		body:     string(b),
		encoding: r.Header.Get("Content-Encoding"),
		length:   r.ContentLength,
	})
	rs.mu.Unlock()

	w.WriteHeader(http.StatusOK)
}

func (rs *recordingServer) received() []receivedRequest {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return append([]receivedRequest(nil), rs.requests...)
}

func TestParseConfig(t *testing.T) {
	conf, err := httpstorage.ParseConfig([]byte("url: http://somewhere/%s\ntimeout_milliseconds: 300\n"))
	require.NoError(t, err)

	assert.Equal(t, "http://somewhere/%s", conf.URL)
	assert.Equal(t, int64(300), conf.TimeoutInMillis)
}

func TestURLFormat(t *testing.T) {
	type testCase struct {
		url         string
		shouldError bool
	}

	testCases := []testCase{
		{"without-http-start.com/something", true},
		{"without-http-start", true},
		{"httpwithout-separator.com", true},
		{"http://with-correct-start/%s%s", true},
		{"http://with-correct-start/%s/%s/", true},
		{"http://with-correct-start%s", true},
		{"http://with-correct-start.com/something", false},
		{"http://with-correct-start.com", false},
		{"https://with-correct-start.com/", false},
		{"http://with-correct-start/%s", false},
		{"http://with-correct-start/something/%s", false},
	}

	for _, tc := range testCases {
		_, err := httpstorage.NewHTTPStorage(llog, &httpstorage.Config{URL: tc.url})
		if tc.shouldError {
			assert.Errorf(t, err, "should return error when URL %s is used", tc.url)
		} else {
			assert.NoErrorf(t, err, "should NOT return error when URL %s is used", tc.url)
		}
	}
}

func TestUploadStreamsTheBodyWithPUT(t *testing.T) {
	recorder := &recordingServer{}
	externalServer := httptest.NewServer(recorder)
	defer externalServer.Close()

	sut, err := httpstorage.NewHTTPStorage(llog, &httpstorage.Config{
		URL: fmt.Sprintf("%s/something-to-upload", externalServer.URL)})
	require.NoError(t, err, "should not error on storage creation")

	result, err := sut.Upload(context.Background(), &domain.WorkUnit{
		Key:  "some/key",
		Body: strings.NewReader("some-data"),
		Size: 9,
	})
	require.NoError(t, err, "the upload should return no error")

	require.Len(t, recorder.received(), 1)
	req := recorder.received()[0]
	assert.Equal(t, http.MethodPut, req.method, "the method used to send should be PUT")
	assert.Equal(t, "/something-to-upload", req.path, "the path should NOT vary when the URL doesn't have %s")
	assert.Equal(t, "some-data", req.body, "the data should be sent to the external server")
	assert.Equal(t, int64(9), req.length, "the content length should be sent when known")
	assert.Empty(t, result.Path, "no path when the URL has no placeholder")
}

func TestUploadFillsThePlaceholder(t *testing.T) {
	recorder := &recordingServer{}
	externalServer := httptest.NewServer(recorder)
	defer externalServer.Close()

	sut, err := httpstorage.NewHTTPStorage(llog, &httpstorage.Config{
		URL: fmt.Sprintf("%s/something-to-upload/%%s", externalServer.URL)})
	require.NoError(t, err, "should not error on storage creation")

	result, err := sut.Upload(context.Background(), &domain.WorkUnit{
		Key:  "/some-prefix/some-filename.zstd",
		Body: strings.NewReader("compressed"),
		Size: -1,
	})
	require.NoError(t, err, "the upload should return no error")

	req := recorder.received()[0]
	assert.Equal(t, "/something-to-upload/some-prefix/some-filename.zstd", req.path)
	assert.Equal(t, "zstd", req.encoding, "the content encoding should follow the key extension")
	assert.Equal(t, "some-prefix/some-filename.zstd", result.Path)
	assert.Equal(t, fmt.Sprintf("%s/something-to-upload/some-prefix/some-filename.zstd", externalServer.URL), result.URL)
	assert.Equal(t, "httpstorage", result.Bucket)
}

func TestUploadErrors(t *testing.T) {
	type testCase struct {
		statusCode  int
		shouldError bool
	}

	testCases := []testCase{
		{200, false},
		{201, false},
		{204, false},
		{304, true},
		{400, true},
		{404, true},
		{500, true},
		{503, true},
	}

	for _, tc := range testCases {
		externalServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(tc.statusCode)
		}))

		sut, err := httpstorage.NewHTTPStorage(llog, &httpstorage.Config{
			URL: fmt.Sprintf("%s/something-to-upload/%%s", externalServer.URL)})
		require.NoError(t, err, "should not error on storage creation")

		_, err = sut.Upload(context.Background(), &domain.WorkUnit{
			Key:  "some-key",
			Body: strings.NewReader("some-data"),
			Size: 9,
		})

		if tc.shouldError {
			assert.Errorf(t, err, "upload should return error when status code from external server is %d", tc.statusCode)
		} else {
			assert.NoErrorf(t, err, "upload should NOT return error when status code from external server is %d", tc.statusCode)
		}

		externalServer.Close()
	}
}

func TestUploadHonorsCancelledContext(t *testing.T) {
	recorder := &recordingServer{}
	externalServer := httptest.NewServer(recorder)
	defer externalServer.Close()

	sut, err := httpstorage.NewHTTPStorage(llog, &httpstorage.Config{URL: externalServer.URL})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = sut.Upload(ctx, &domain.WorkUnit{Key: "k", Body: strings.NewReader("x"), Size: 1})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, recorder.received(), "no request should reach the server")
}
