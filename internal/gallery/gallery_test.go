package gallery

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := New(server.URL, Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client
}

func stubSleep(t *testing.T) *int {
	t.Helper()
	orig := gallerySleep
	calls := 0
	gallerySleep = func(time.Duration) { calls++ }
	t.Cleanup(func() { gallerySleep = orig })
	return &calls
}

func TestNewValidatesBaseURL(t *testing.T) {
	if _, err := New("  ", Options{}); err == nil {
		t.Fatal("expected error for empty base URL")
	}
	client, err := New("https://example.com/feed/", Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if client.BaseURL() != "https://example.com/feed" {
		t.Fatalf("BaseURL = %q, want trailing slash trimmed", client.BaseURL())
	}
}

func TestVersionsSortsAndSkipsPrerelease(t *testing.T) {
	var gotPath string
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"versions":["13.2.1","12.0.0","13.3.0-preview4","13.0.0.20829"]}`))
	}))

	versions, err := client.Versions(context.Background(), "VMware.PowerCLI")
	if err != nil {
		t.Fatalf("Versions: %v", err)
	}
	if gotPath != "/vmware.powercli/index.json" {
		t.Fatalf("request path = %q, want lowercase flat-container path", gotPath)
	}
	want := []string{"12.0.0", "13.0.0.20829", "13.2.1"}
	if len(versions) != len(want) {
		t.Fatalf("versions = %v, want %v", versions, want)
	}
	for i := range want {
		if versions[i] != want[i] {
			t.Fatalf("versions[%d] = %q, want %q", i, versions[i], want[i])
		}
	}
}

func TestVersionsUnknownPackage(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := client.Versions(context.Background(), "No.Such.Module")
	if err == nil {
		t.Fatal("expected error for unknown package")
	}
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound in chain", err)
	}
}

func TestVersionsRateLimited(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))

	_, err := client.Versions(context.Background(), "VMware.PowerCLI")
	if err == nil {
		t.Fatal("expected error for rate limit")
	}
	if !IsRateLimitError(err) {
		t.Fatalf("expected rate limit error, got %T: %v", err, err)
	}
	var rl *RateLimitError
	if !errors.As(err, &rl) || rl.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected RateLimitError with 429, got %#v", rl)
	}
}

func TestVersionsAllPrerelease(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"versions":["13.3.0-preview4","14.0.0-rc1"]}`))
	}))

	if _, err := client.Versions(context.Background(), "VMware.PowerCLI"); err == nil {
		t.Fatal("expected error when no stable versions are listed")
	}
}

func TestVersionsDecodeError(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("{"))
	}))

	if _, err := client.Versions(context.Background(), "VMware.PowerCLI"); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestVersionsEmptyName(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	if _, err := client.Versions(context.Background(), "  "); err == nil {
		t.Fatal("expected error for empty package name")
	}
}

func TestResolveVersion(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"versions":["12.0.0","13.2.1","13.2.0"]}`))
	}))

	latest, err := client.ResolveVersion(context.Background(), "VMware.PowerCLI", "")
	if err != nil {
		t.Fatalf("ResolveVersion latest: %v", err)
	}
	if latest != "13.2.1" {
		t.Fatalf("latest = %q, want 13.2.1", latest)
	}

	exact, err := client.ResolveVersion(context.Background(), "VMware.PowerCLI", "v13.2.0")
	if err != nil {
		t.Fatalf("ResolveVersion exact: %v", err)
	}
	if exact != "13.2.0" {
		t.Fatalf("exact = %q, want 13.2.0", exact)
	}

	_, err = client.ResolveVersion(context.Background(), "VMware.PowerCLI", "99.0.0")
	if err == nil {
		t.Fatal("expected error for unpublished version")
	}
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound in chain", err)
	}

	if _, err := client.ResolveVersion(context.Background(), "VMware.PowerCLI", "not-a-version"); err == nil {
		t.Fatal("expected error for malformed requested version")
	}
}

func TestLatest(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"versions":["1.0.0","2.5.0","2.4.9"]}`))
	}))

	latest, err := client.Latest(context.Background(), "VMware.PowerCLI")
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if latest != "2.5.0" {
		t.Fatalf("Latest = %q, want 2.5.0", latest)
	}
}

func TestDownloadWritesCanonicalAsset(t *testing.T) {
	payload := []byte("nupkg-bytes")
	var gotPath string
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write(payload)
	}))
	destDir := t.TempDir()

	path, err := client.Download(context.Background(), "VMware.PowerCLI", "13.2.1", destDir)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if gotPath != "/vmware.powercli/13.2.1/vmware.powercli.13.2.1.nupkg" {
		t.Fatalf("request path = %q", gotPath)
	}
	if path != filepath.Join(destDir, "vmware.powercli.13.2.1.nupkg") {
		t.Fatalf("path = %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read downloaded file: %v", err)
	}
	if string(data) != string(payload) {
		t.Fatalf("content = %q, want %q", data, payload)
	}

	entries, err := os.ReadDir(destDir)
	if err != nil {
		t.Fatalf("read dest dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("dest dir has %d entries, want only the committed nupkg", len(entries))
	}
}

func TestDownloadNotFoundLeavesNothing(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	destDir := t.TempDir()

	_, err := client.Download(context.Background(), "VMware.PowerCLI", "99.0.0", destDir)
	if err == nil {
		t.Fatal("expected error for missing package")
	}
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound in chain", err)
	}
	entries, err := os.ReadDir(destDir)
	if err != nil {
		t.Fatalf("read dest dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("dest dir has %d entries after failed download, want 0", len(entries))
	}
}

func TestDownloadTooLarge(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 64)))
	}))
	t.Cleanup(server.Close)
	client, err := New(server.URL, Options{MaxBytes: 16})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	destDir := t.TempDir()

	_, err = client.Download(context.Background(), "VMware.PowerCLI", "13.2.1", destDir)
	if err == nil {
		t.Fatal("expected error for oversized download")
	}
	entries, readErr := os.ReadDir(destDir)
	if readErr != nil {
		t.Fatalf("read dest dir: %v", readErr)
	}
	if len(entries) != 0 {
		t.Fatalf("dest dir has %d entries after oversized download, want 0", len(entries))
	}
}

func TestGetRetriesOnServerError(t *testing.T) {
	sleeps := stubSleep(t)
	attempts := 0
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"versions":["1.0.0"]}`))
	}))

	versions, err := client.Versions(context.Background(), "VMware.PowerCLI")
	if err != nil {
		t.Fatalf("expected success after retry, got %v", err)
	}
	if len(versions) != 1 || versions[0] != "1.0.0" {
		t.Fatalf("versions = %v", versions)
	}
	if attempts != 2 {
		t.Fatalf("attempts = %d, want 2", attempts)
	}
	if *sleeps != 1 {
		t.Fatalf("retry sleeps = %d, want 1", *sleeps)
	}
}

func TestGetRetriesOnTransientNetworkError(t *testing.T) {
	stubSleep(t)
	client, err := New("https://example.com", Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	attempts := 0
	client.http = &http.Client{
		Transport: roundTripperFunc(func(*http.Request) (*http.Response, error) {
			attempts++
			if attempts == 1 {
				return nil, &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("temporary")}
			}
			return &http.Response{
				StatusCode: http.StatusOK,
				Status:     "200 OK",
				Header:     make(http.Header),
				Body:       http.NoBody,
			}, nil
		}),
	}

	resp, err := client.get(context.Background(), "https://example.com/x", "pkg")
	if err != nil {
		t.Fatalf("expected success after retry, got %v", err)
	}
	_ = resp.Body.Close()
	if attempts != 2 {
		t.Fatalf("attempts = %d, want 2", attempts)
	}
}

func TestGetDoesNotRetryCanceledContext(t *testing.T) {
	sleeps := stubSleep(t)
	client, err := New("https://example.com", Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := client.get(ctx, "https://example.com/x", "pkg"); err == nil {
		t.Fatal("expected error for canceled context")
	}
	if *sleeps != 0 {
		t.Fatalf("retry sleeps = %d, want 0 after cancellation", *sleeps)
	}
}

func TestPing(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
		if err := client.Ping(context.Background()); err != nil {
			t.Fatalf("Ping: %v", err)
		}
	})

	t.Run("not found still counts as reachable", func(t *testing.T) {
		client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		if err := client.Ping(context.Background()); err != nil {
			t.Fatalf("Ping: %v", err)
		}
	})

	t.Run("server error", func(t *testing.T) {
		client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		if err := client.Ping(context.Background()); err == nil {
			t.Fatal("expected error for 5xx")
		}
	})

	t.Run("unreachable", func(t *testing.T) {
		client, err := New("https://example.com", Options{})
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		client.http = &http.Client{
			Transport: roundTripperFunc(func(*http.Request) (*http.Response, error) {
				return nil, errors.New("no route to host")
			}),
		}
		if err := client.Ping(context.Background()); err == nil {
			t.Fatal("expected error for unreachable feed")
		}
	})
}
