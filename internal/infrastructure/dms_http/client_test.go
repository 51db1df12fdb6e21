package dms_http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/davarch/deploy-pilot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePackage(t *testing.T) domain.CreatedPackage {
	t.Helper()
	path := filepath.Join(t.TempDir(), "app.1.0.0.zip")
	require.NoError(t, os.WriteFile(path, []byte("PK-fake"), 0o644))
	return domain.CreatedPackage{Path: path, Name: "app", ContentType: "application/zip", Version: "1.0.0"}
}

func TestUploadPackage_SendsPackageAndCatalog(t *testing.T) {
	var gotCatalog domain.CatalogData
	var gotFile []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/packages", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("X-Api-Key"))
		assert.NotEmpty(t, r.Header.Get("X-Request-Id"))

		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f, hdr, err := r.FormFile("package")
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		assert.Equal(t, "app.1.0.0.zip", hdr.Filename)
		gotFile, _ = io.ReadAll(f)
		assert.NoError(t, json.Unmarshal([]byte(r.FormValue("catalog")), &gotCatalog))

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"artifactId":"art-9"}`))
	}))
	defer srv.Close()

	c := New(srv.URL+"/", 5*time.Second)
	catalog := domain.CatalogData{Version: "1.0.0", Name: "app", Branch: "main"}

	up, err := c.UploadPackage(context.Background(), writePackage(t), "key", catalog)

	require.NoError(t, err)
	assert.Equal(t, "art-9", up.ArtifactID)
	assert.Equal(t, catalog, gotCatalog)
	assert.Equal(t, "PK-fake", string(gotFile))
}

func TestUploadPackage_ErrorMapping(t *testing.T) {
	cases := map[int]error{
		http.StatusUnauthorized:        domain.ErrUnauthorized,
		http.StatusForbidden:           domain.ErrUnauthorized,
		http.StatusInternalServerError: domain.ErrPackageUploadFailed,
		http.StatusServiceUnavailable:  domain.ErrPackageUploadFailed,
	}
	for code, want := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.Copy(io.Discard, r.Body)
			w.WriteHeader(code)
		}))

		_, err := New(srv.URL, 5*time.Second).UploadPackage(context.Background(), writePackage(t), "key", domain.CatalogData{})
		assert.ErrorIs(t, err, want, "status %d", code)
		srv.Close()
	}
}

func TestUploadPackage_MissingFile(t *testing.T) {
	_, err := New("http://127.0.0.1:0", time.Second).UploadPackage(context.Background(),
		domain.CreatedPackage{Path: "/does/not/exist.zip"}, "key", domain.CatalogData{})
	assert.ErrorIs(t, err, domain.ErrPackageUploadFailed)
}

func TestDeployPackage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/packages/art%201/deployments", r.URL.EscapedPath())
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"deploymentId":"dep-3"}`))
	}))
	defer srv.Close()

	dep, err := New(srv.URL, 5*time.Second).DeployPackage(context.Background(), domain.UploadedPackage{ArtifactID: "art 1"}, "key")

	require.NoError(t, err)
	assert.Equal(t, domain.DeployingPackage{ArtifactID: "art 1", DeploymentID: "dep-3"}, dep)
}

func TestDeployPackage_ErrorMapping(t *testing.T) {
	cases := map[int]error{
		http.StatusUnauthorized:        domain.ErrUnauthorized,
		http.StatusServiceUnavailable:  domain.ErrRemoteSystemUnavailable,
		http.StatusBadGateway:          domain.ErrRemoteSystemUnavailable,
		http.StatusConflict:            domain.ErrDeploymentStartFailed,
		http.StatusInternalServerError: domain.ErrDeploymentStartFailed,
	}
	for code, want := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(code)
		}))

		_, err := New(srv.URL, 5*time.Second).DeployPackage(context.Background(), domain.UploadedPackage{ArtifactID: "a"}, "key")
		assert.ErrorIs(t, err, want, "status %d", code)
		srv.Close()
	}
}

func TestDeployPackage_UnreachableServer(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url, time.Second).DeployPackage(context.Background(), domain.UploadedPackage{ArtifactID: "a"}, "key")
	assert.ErrorIs(t, err, domain.ErrRemoteSystemUnavailable)
}

func TestGetDeploymentStatus(t *testing.T) {
	bodies := []string{`{"status":null}`, `{"status":"Succeeded"}`}
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/packages/a/deployments/d", r.URL.Path)
		_, _ = w.Write([]byte(bodies[calls]))
		calls++
	}))
	defer srv.Close()

	c := New(srv.URL, 5*time.Second)
	pkg := domain.DeployingPackage{ArtifactID: "a", DeploymentID: "d"}

	st, err := c.GetDeploymentStatus(context.Background(), pkg, "key")
	require.NoError(t, err)
	assert.False(t, st.Finished())

	st, err = c.GetDeploymentStatus(context.Background(), pkg, "key")
	require.NoError(t, err)
	assert.True(t, st.Succeeded())
	assert.Equal(t, "d", st.DeploymentID)
}

func TestGetDeploymentStatus_ErrorMapping(t *testing.T) {
	cases := map[int]error{
		http.StatusUnauthorized:       domain.ErrUnauthorized,
		http.StatusTooManyRequests:    domain.ErrDeploymentStatusFetchFailed,
		http.StatusServiceUnavailable: domain.ErrDeploymentStatusFetchFailed,
		http.StatusNotFound:           domain.ErrDeploymentStatusFetchFailed,
	}
	for code, want := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(code)
		}))

		_, err := New(srv.URL, 5*time.Second).GetDeploymentStatus(context.Background(), domain.DeployingPackage{ArtifactID: "a", DeploymentID: "d"}, "key")
		assert.ErrorIs(t, err, want, "status %d", code)
		srv.Close()
	}
}

func TestGetDeploymentStatus_BadBodyIsSoft(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, 5*time.Second).GetDeploymentStatus(context.Background(), domain.DeployingPackage{ArtifactID: "a", DeploymentID: "d"}, "key")
	assert.ErrorIs(t, err, domain.ErrDeploymentStatusFetchFailed)
}

func TestCancelledContextPassesThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(srv.URL, 5*time.Second).GetDeploymentStatus(ctx, domain.DeployingPackage{ArtifactID: "a", DeploymentID: "d"}, "key")
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, domain.ErrDeploymentStatusFetchFailed)
}

func TestUnconfiguredClientFailsEveryCall(t *testing.T) {
	c := New("", time.Second)
	ctx := context.Background()

	_, err := c.UploadPackage(ctx, writePackage(t), "key", domain.CatalogData{})
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = c.DeployPackage(ctx, domain.UploadedPackage{ArtifactID: "a"}, "key")
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.Equal(t, domain.KindUnknown, domain.KindOf(err))

	_, err = c.GetDeploymentStatus(ctx, domain.DeployingPackage{ArtifactID: "a", DeploymentID: "d"}, "key")
	assert.ErrorIs(t, err, ErrNotConfigured)
}
