package sync

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"jsoncache/core/cacheerr"
	"jsoncache/core/loader"
	"jsoncache/core/storage/mocks"

	"github.com/gofiber/fiber/v2"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T, client *mocks.Client) (*fiber.App, *Service) {
	t.Helper()
	svc := newTestService(t, client)

	mgr := loader.NewManager()
	mgr.Register(NewFeature(svc, nil))

	app := fiber.New()
	require.NoError(t, mgr.LoadAll(app))
	return app, svc
}

func do(t *testing.T, app *fiber.App, method, target, body string) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func TestHandler_StageApplyRead(t *testing.T) {
	app, _ := newTestApp(t, nil)

	status, body := do(t, app, http.MethodPost, "/cache/stage/Album", `{"name": "Assemblage", "band": "Japan", "description": "Singles"}`)
	assert.Equal(t, http.StatusAccepted, status)
	assert.JSONEq(t, `{"entity": "Album", "staged": 1}`, string(body))

	status, _ = do(t, app, http.MethodPost, "/cache/stage/Band", `[{"name": "Japan", "formed": 1974}]`)
	assert.Equal(t, http.StatusAccepted, status)

	status, body = do(t, app, http.MethodGet, "/cache/pending", "")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"Album": 1, "Band": 1}`, string(body))

	status, body = do(t, app, http.MethodPost, "/cache/apply", "")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"entities": 2, "objects": 2, "relationships": 1}`, string(body))

	status, body = do(t, app, http.MethodGet, "/cache/Album/Assemblage", "")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"name": "Assemblage", "band": "Japan", "description": "Singles"}`, string(body))

	status, body = do(t, app, http.MethodGet, "/cache/Band/Japan/albums", "")
	assert.Equal(t, http.StatusOK, status)
	var albums []map[string]any
	require.NoError(t, json.Unmarshal(body, &albums))
	require.Len(t, albums, 1)
	assert.Equal(t, "Assemblage", albums[0]["name"])
}

func TestHandler_Errors(t *testing.T) {
	app, _ := newTestApp(t, nil)

	tests := []struct {
		name   string
		method string
		target string
		body   string
		want   int
	}{
		{"Invalid Body", http.MethodPost, "/cache/stage/Band", `{"name":`, http.StatusBadRequest},
		{"Scalar Body", http.MethodPost, "/cache/stage/Band", `42`, http.StatusBadRequest},
		{"Array Of Scalars", http.MethodPost, "/cache/stage/Band", `[1, 2]`, http.StatusBadRequest},
		{"Unknown Entity", http.MethodPost, "/cache/stage/Orchestra", `{"name": "LSO"}`, http.StatusNotFound},
		{"Missing Object", http.MethodGet, "/cache/Band/Nobody", "", http.StatusNotFound},
		{"Related Of Missing Object", http.MethodGet, "/cache/Band/Nobody/albums", "", http.StatusNotFound},
		{"Import Without Object", http.MethodPost, "/cache/import", `{"mapping": {"Band": "bands"}}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _ := do(t, app, tt.method, tt.target, tt.body)
			assert.Equal(t, tt.want, status)
		})
	}
}

func TestHandler_ApplyFailureKeepsStaging(t *testing.T) {
	app, svc := newTestApp(t, nil)

	// formed is required on Band.
	status, _ := do(t, app, http.MethodPost, "/cache/stage/Band", `{"name": "Japan"}`)
	require.Equal(t, http.StatusAccepted, status)

	status, body := do(t, app, http.MethodPost, "/cache/apply", "")
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Contains(t, string(body), "formed")
	assert.Equal(t, map[string]int{"Band": 1}, svc.Pending())

	status, body = do(t, app, http.MethodDelete, "/cache/pending", "")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"Band": 1}`, string(body))
	assert.Empty(t, svc.Pending())
}

func TestHandler_ApplyAsync(t *testing.T) {
	app, _ := newTestApp(t, nil)
	status, body := do(t, app, http.MethodPost, "/cache/apply?async=true", "")
	assert.Equal(t, http.StatusAccepted, status)
	assert.JSONEq(t, `{"status": "started"}`, string(body))
}

func TestHandler_ExportAndSnapshots(t *testing.T) {
	client := new(mocks.Client)
	app, svc := newTestApp(t, client)
	seed(t, svc)

	client.On("BucketExists", mock.Anything, "cache").Return(true, nil)
	client.On("PutObject", mock.Anything, "cache", "exports/bands.json", mock.Anything, mock.Anything, mock.Anything).
		Return(minio.UploadInfo{}, nil)

	status, body := do(t, app, http.MethodPost, "/cache/export/Band?object=exports/bands.json", "")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"object": "exports/bands.json", "objects": 1}`, string(body))

	ch := make(chan minio.ObjectInfo, 1)
	ch <- minio.ObjectInfo{Key: "snapshots/Album.json"}
	close(ch)
	client.On("ListObjects", mock.Anything, "cache", minio.ListObjectsOptions{Prefix: SnapshotPrefix, Recursive: true}).
		Return((<-chan minio.ObjectInfo)(ch))

	status, body = do(t, app, http.MethodGet, "/cache/snapshots", "")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `["snapshots/Album.json"]`, string(body))
}

func TestHandler_Drift(t *testing.T) {
	client := new(mocks.Client)
	app, svc := newTestApp(t, client)
	seed(t, svc)

	client.On("GetObject", mock.Anything, "cache", "snapshots/Band.json", minio.GetObjectOptions{}).
		Return(io.NopCloser(strings.NewReader(`[{"name": "Japan", "formed": 1974, "other_names": "Rain Tree Crow"}, {"name": "Can"}]`)), nil)

	status, body := do(t, app, http.MethodGet, "/cache/drift/Band?drifted=true", "")
	assert.Equal(t, http.StatusOK, status)

	var report struct {
		Results []struct {
			ID           string `json:"id"`
			StorePresent bool   `json:"store_present"`
		} `json:"results"`
		Summary map[string]int `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(body, &report))
	require.Len(t, report.Results, 1)
	assert.Equal(t, "Can", report.Results[0].ID)
	assert.False(t, report.Results[0].StorePresent)
	assert.Equal(t, 1, report.Summary["in_sync"])

	status, _ = do(t, app, http.MethodGet, "/cache/drift/Orchestra", "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, fiber.StatusNotFound, statusFor(ErrObjectNotFound))
	assert.Equal(t, fiber.StatusNotFound, statusFor(cacheerr.NoSuchEntity("Orchestra")))
	assert.Equal(t, fiber.StatusUnprocessableEntity, statusFor(cacheerr.BadState("Band", "missing identifier")))
	assert.Equal(t, fiber.StatusServiceUnavailable, statusFor(cacheerr.StoreUnavailable()))
	assert.Equal(t, fiber.StatusInternalServerError, statusFor(cacheerr.Store("Band", io.EOF)))
}
