package ocr

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-docverify/internal/infrastructure/staging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- fakes ---

type fakeObject struct {
	path string
	url  string
	data string
}

func (o *fakeObject) Path() string   { return o.path }
func (o *fakeObject) Format() string { return "png" }
func (o *fakeObject) Open(context.Context) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(o.data)), nil
}
func (o *fakeObject) URL(context.Context) (string, error) {
	if o.url == "" {
		return "", staging.ErrNoURL
	}
	return o.url, nil
}
func (o *fakeObject) Release(context.Context) error { return nil }

type stubRunner struct {
	name   string
	args   []string
	stdout string
	stderr string
	err    error
}

func (r *stubRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	r.name, r.args = name, args
	return []byte(r.stdout), []byte(r.stderr), r.err
}

type funcEngine func(ctx context.Context, img staging.Object) (string, error)

func (f funcEngine) Name() string { return "func" }
func (f funcEngine) Recognize(ctx context.Context, img staging.Object) (string, error) {
	return f(ctx, img)
}

// --- Normalize ---

func TestNormalize(t *testing.T) {
	in := "GOVERNMENT OF INDIA  \r\n-----\r\n\r\n\r\n\r\nJOHN SMITH\r\n1234 5678 9012\t\n"
	assert.Equal(t, "GOVERNMENT OF INDIA\n\nJOHN SMITH\n1234 5678 9012", Normalize(in))
}

// --- Tesseract ---

func TestTesseract_BuildsCommand(t *testing.T) {
	r := &stubRunner{stdout: "1234 5678 9012\r\nJOHN SMITH\r\n"}
	eng := NewTesseract(TesseractConfig{TessdataDir: "/usr/share/tessdata"})
	eng.runner = r

	text, err := eng.Recognize(context.Background(), &fakeObject{path: "/tmp/upload.png"})
	require.NoError(t, err)
	assert.Equal(t, "1234 5678 9012\nJOHN SMITH", text)
	assert.Equal(t, "tesseract", r.name)
	assert.Equal(t, []string{"/tmp/upload.png", "stdout", "-l", "eng", "--tessdata-dir", "/usr/share/tessdata"}, r.args)
}

func TestTesseract_RunnerErrorIncludesStderr(t *testing.T) {
	r := &stubRunner{err: errors.New("exit status 1"), stderr: "Error opening data file"}
	eng := NewTesseract(TesseractConfig{})
	eng.runner = r

	_, err := eng.Recognize(context.Background(), &fakeObject{path: "/tmp/x.png"})
	assert.ErrorContains(t, err, "Error opening data file")
}

func TestTesseract_RequiresLocalFile(t *testing.T) {
	_, err := NewTesseract(TesseractConfig{}).Recognize(context.Background(), &fakeObject{url: "https://x"})
	assert.ErrorContains(t, err, "not staged locally")
}

// --- HTTP ---

func TestHTTP_InlinesLocalImage(t *testing.T) {
	var got recognizeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(recognizeResponse{RawAnswerText: "ABCDE1234F\r\nRAVI KUMAR", Confidence: 0.9})
	}))
	defer srv.Close()

	text, err := NewHTTP(srv.URL, "en-US", time.Second).Recognize(context.Background(), &fakeObject{path: "/tmp/a.png", data: "PNGDATA"})
	require.NoError(t, err)
	assert.Equal(t, "ABCDE1234F\nRAVI KUMAR", text)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("PNGDATA")), got.Image)
	assert.Empty(t, got.ImageURL)
	assert.Equal(t, "en-US", got.Locale)
}

func TestHTTP_PassesPresignedURL(t *testing.T) {
	var got recognizeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(recognizeResponse{RawAnswerText: "text"})
	}))
	defer srv.Close()

	_, err := NewHTTP(srv.URL, "", time.Second).Recognize(context.Background(), &fakeObject{url: "https://bucket/signed"})
	require.NoError(t, err)
	assert.Equal(t, "https://bucket/signed", got.ImageURL)
	assert.Empty(t, got.Image)
}

func TestHTTP_Non200IsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewHTTP(srv.URL, "", time.Second).Recognize(context.Background(), &fakeObject{data: "x"})
	assert.ErrorContains(t, err, "unexpected status 502")
}

// --- Pool ---

func TestPool_BoundsConcurrency(t *testing.T) {
	var running, peak int32
	eng := funcEngine(func(ctx context.Context, _ staging.Object) (string, error) {
		n := atomic.AddInt32(&running, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		return "ok", nil
	})
	pool := NewPool(eng, 2, time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			text, err := pool.Recognize(context.Background(), &fakeObject{})
			assert.NoError(t, err)
			assert.Equal(t, "ok", text)
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestPool_TimeoutAbandonsSlowEngine(t *testing.T) {
	release := make(chan struct{})
	eng := funcEngine(func(ctx context.Context, _ staging.Object) (string, error) {
		<-release
		return "late", nil
	})
	pool := NewPool(eng, 1, 30*time.Millisecond)

	_, err := pool.Recognize(context.Background(), &fakeObject{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	close(release)
}

func TestPool_PropagatesEngineError(t *testing.T) {
	boom := errors.New("engine crashed")
	pool := NewPool(funcEngine(func(context.Context, staging.Object) (string, error) { return "", boom }), 1, time.Second)
	_, err := pool.Recognize(context.Background(), &fakeObject{})
	assert.ErrorIs(t, err, boom)
}
