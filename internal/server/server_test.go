package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/whiskeyshelf/apiserver/config"
	"github.com/whiskeyshelf/apiserver/internal/services"
	"github.com/whiskeyshelf/apiserver/internal/storage"
	"github.com/whiskeyshelf/apiserver/internal/store/memstore"
)

const testSecret = "test-secret"

type testAPI struct {
	t       *testing.T
	handler http.Handler
	images  *storage.MemoryBackend
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	return newTestAPIWithConfig(t, config.Config{JWTSecret: testSecret})
}

func newTestAPIWithConfig(t *testing.T, cfg config.Config) *testAPI {
	t.Helper()
	s := memstore.New()
	images := storage.NewMemoryBackend("test")
	deps := &Deps{
		Users:    services.NewUserService(s.Users()),
		Tags:     services.NewAttributeService(s.Tags()),
		Places:   services.NewAttributeService(s.Places()),
		Whiskeys: services.NewWhiskeyService(s.Whiskeys(), s.Tags(), s.Places(), storage.NewStorage(images), nil),
	}
	return &testAPI{t: t, handler: NewRouter(deps, cfg), images: images}
}

func (a *testAPI) do(method, path, token string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) upload(path, token, filename string, data []byte) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if data != nil {
		part, err := mw.CreateFormFile("image", filename)
		require.NoError(a.t, err)
		_, err = part.Write(data)
		require.NoError(a.t, err)
	}
	require.NoError(a.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) register(username string) string {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/auth/register", "", map[string]string{
		"username": username,
		"name":     strings.ToUpper(username),
		"password": "secret",
	})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp struct {
		Token string `json:"token"`
	}
	decode(a.t, rec, &resp)
	require.NotEmpty(a.t, resp.Token)
	return resp.Token
}

func (a *testAPI) createAttribute(kind, token, name string) int {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/"+kind, token, map[string]string{"name": name})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp struct {
		ID int `json:"id"`
	}
	decode(a.t, rec, &resp)
	return resp.ID
}

func (a *testAPI) createWhiskey(token string, body map[string]any) int {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/whiskeys", token, body)
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp struct {
		ID int `json:"id"`
	}
	decode(a.t, rec, &resp)
	return resp.ID
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

type namedItem struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type whiskeyItem struct {
	ID     int    `json:"id"`
	Brand  string `json:"brand"`
	Tags   []int  `json:"tags"`
	Places []int  `json:"places"`
}

func names(items []namedItem) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.Name)
	}
	return out
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 1, 1))))
	return buf.Bytes()
}

func TestHealthz(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	api := newTestAPI(t)

	for _, path := range []string{"/tags", "/places", "/whiskeys", "/whiskeys/1", "/auth/me"} {
		rec := api.do(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)

		rec = api.do(http.MethodGet, path, "not-a-jwt", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}

	rec := api.do(http.MethodPost, "/tags", "", map[string]string{"name": "Smoky"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"unauthorized"}`, rec.Body.String())
}

func TestAuthFlow(t *testing.T) {
	api := newTestAPI(t)
	token := api.register("alice")

	rec := api.do(http.MethodPost, "/auth/register", "", map[string]string{"username": "alice", "password": "secret"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = api.do(http.MethodPost, "/auth/register", "", map[string]string{"username": "bob", "password": "abc"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var verr struct {
		Fields map[string]string `json:"fields"`
	}
	decode(t, rec, &verr)
	assert.Contains(t, verr.Fields, "password")

	rec = api.do(http.MethodPost, "/auth/login", "", map[string]string{"username": "alice", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(http.MethodPost, "/auth/login", "", map[string]string{"username": "alice", "password": "secret"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = api.do(http.MethodPatch, "/auth/me", token, map[string]string{"name": "Alice L."})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = api.do(http.MethodGet, "/auth/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me struct {
		Username string `json:"username"`
		Name     string `json:"name"`
	}
	decode(t, rec, &me)
	assert.Equal(t, "alice", me.Username)
	assert.Equal(t, "Alice L.", me.Name)
}

func TestTwoUsersSeeOnlyTheirOwnRecords(t *testing.T) {
	api := newTestAPI(t)
	u1 := api.register("u1")
	u2 := api.register("u2")

	smoky := api.createAttribute("tags", u1, "Smoky")
	api.createAttribute("tags", u2, "Sweet")
	lagavulin := api.createWhiskey(u1, map[string]any{"brand": "Lagavulin", "style": "Islay", "tags": []int{smoky}})

	var tags []namedItem
	rec := api.do(http.MethodGet, "/tags", u1, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &tags)
	assert.Equal(t, []string{"Smoky"}, names(tags))

	rec = api.do(http.MethodGet, "/tags", u2, nil)
	decode(t, rec, &tags)
	assert.Equal(t, []string{"Sweet"}, names(tags))

	rec = api.do(http.MethodGet, "/tags?assigned_only=1", u1, nil)
	decode(t, rec, &tags)
	assert.Equal(t, []string{"Smoky"}, names(tags))

	rec = api.do(http.MethodGet, "/tags?assigned_only=1", u2, nil)
	decode(t, rec, &tags)
	assert.Empty(t, tags)

	var whiskeys []whiskeyItem
	rec = api.do(http.MethodGet, fmt.Sprintf("/whiskeys?tags=%d", smoky), u1, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &whiskeys)
	require.Len(t, whiskeys, 1)
	assert.Equal(t, "Lagavulin", whiskeys[0].Brand)
	assert.Equal(t, []int{smoky}, whiskeys[0].Tags)

	rec = api.do(http.MethodGet, fmt.Sprintf("/whiskeys?tags=%d", smoky), u2, nil)
	decode(t, rec, &whiskeys)
	assert.Empty(t, whiskeys)

	rec = api.do(http.MethodGet, fmt.Sprintf("/whiskeys/%d", lagavulin), u2, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(http.MethodDelete, fmt.Sprintf("/whiskeys/%d", lagavulin), u2, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAttributesOrderedByNameDescending(t *testing.T) {
	api := newTestAPI(t)
	token := api.register("alice")

	for _, name := range []string{"Bar", "Home", "Airport"} {
		api.createAttribute("places", token, name)
	}

	var places []namedItem
	rec := api.do(http.MethodGet, "/places", token, nil)
	decode(t, rec, &places)
	assert.Equal(t, []string{"Home", "Bar", "Airport"}, names(places))

	rec = api.do(http.MethodGet, "/places?assigned_only=yes", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodGet, "/places?assigned_only=0", token, nil)
	decode(t, rec, &places)
	assert.Len(t, places, 3)
}

func TestCreateStampsCallerAsOwner(t *testing.T) {
	api := newTestAPI(t)
	u1 := api.register("u1")
	u2 := api.register("u2")

	// Owner fields in the payload are ignored.
	id := api.createWhiskey(u1, map[string]any{"brand": "Ardbeg", "style": "Islay", "user": 2, "user_id": 2})
	tag := api.createAttribute("tags", u1, "Peaty")

	rec := api.do(http.MethodGet, fmt.Sprintf("/whiskeys/%d", id), u1, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = api.do(http.MethodGet, fmt.Sprintf("/whiskeys/%d", id), u2, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Another user's tag cannot be attached.
	rec = api.do(http.MethodPost, "/whiskeys", u2, map[string]any{"brand": "Talisker", "style": "Skye", "tags": []int{tag}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMalformedIdentifierListIsRejected(t *testing.T) {
	api := newTestAPI(t)
	token := api.register("alice")

	rec := api.do(http.MethodGet, "/whiskeys?tags=1,x", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var resp struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	decode(t, rec, &resp)
	assert.Equal(t, "invalid identifier list", resp.Error)
	assert.Contains(t, resp.Fields, "tags")

	rec = api.do(http.MethodGet, "/whiskeys?places=2,,3", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWhiskeyLifecycle(t *testing.T) {
	api := newTestAPI(t)
	token := api.register("alice")
	tag := api.createAttribute("tags", token, "Smoky")
	place := api.createAttribute("places", token, "Home")

	id := api.createWhiskey(token, map[string]any{"brand": "Lagavulin", "style": "Islay", "year": "2001"})
	path := fmt.Sprintf("/whiskeys/%d", id)

	rec := api.do(http.MethodPut, path, token, map[string]any{
		"brand": "Lagavulin 16", "style": "Islay", "tags": []int{tag}, "places": []int{place},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var listShape whiskeyItem
	decode(t, rec, &listShape)
	assert.Equal(t, []int{tag}, listShape.Tags)
	assert.Equal(t, []int{place}, listShape.Places)

	rec = api.do(http.MethodPatch, path, token, map[string]any{"price": "89"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = api.do(http.MethodGet, path, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var detail struct {
		Brand  string      `json:"brand"`
		Year   string      `json:"year"`
		Price  string      `json:"price"`
		Tags   []namedItem `json:"tags"`
		Places []namedItem `json:"places"`
		Image  string      `json:"image"`
	}
	decode(t, rec, &detail)
	assert.Equal(t, "Lagavulin 16", detail.Brand)
	assert.Empty(t, detail.Year)
	assert.Equal(t, "89", detail.Price)
	assert.Equal(t, []namedItem{{ID: tag, Name: "Smoky"}}, detail.Tags)
	assert.Equal(t, []namedItem{{ID: place, Name: "Home"}}, detail.Places)
	assert.Empty(t, detail.Image)

	rec = api.do(http.MethodPut, path, token, map[string]any{"style": "Islay"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodDelete, path, token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = api.do(http.MethodGet, path, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(http.MethodGet, "/whiskeys/abc", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUploadImage(t *testing.T) {
	api := newTestAPI(t)
	token := api.register("alice")
	other := api.register("bob")
	id := api.createWhiskey(token, map[string]any{"brand": "Lagavulin", "style": "Islay"})
	path := fmt.Sprintf("/whiskeys/%d/upload-image", id)

	rec := api.upload(path, token, "bottle.png", pngBytes(t))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		ID    int    `json:"id"`
		Image string `json:"image"`
	}
	decode(t, rec, &resp)
	assert.Equal(t, id, resp.ID)
	assert.True(t, strings.HasPrefix(resp.Image, storage.WhiskeyImagePrefix))
	stored := resp.Image

	rec = api.upload(path, token, "notes.txt", []byte("not an image"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.upload(path, token, "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.upload(path, token, "truncated.png", pngBytes(t)[:33])
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	rec = api.upload(path, other, "bottle.png", pngBytes(t))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(http.MethodGet, fmt.Sprintf("/whiskeys/%d", id), token, nil)
	var detail struct {
		Image string `json:"image"`
	}
	decode(t, rec, &detail)
	assert.Equal(t, stored, detail.Image)
	assert.Equal(t, []string{stored}, api.images.Keys())
}

func TestLoginIsRateLimited(t *testing.T) {
	api := newTestAPIWithConfig(t, config.Config{
		JWTSecret: testSecret,
		HTTP:      config.HTTPConfig{AuthRateLimit: 0.001, AuthRateBurst: 2},
	})

	creds := map[string]string{"username": "nobody", "password": "secret"}
	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodPost, "/auth/login", "", creds).Code)
	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodPost, "/auth/login", "", creds).Code)

	rec := api.do(http.MethodPost, "/auth/login", "", creds)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	// Other routes are not throttled.
	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/healthz", "", nil).Code)
}

func TestCORSPreflight(t *testing.T) {
	api := newTestAPIWithConfig(t, config.Config{
		JWTSecret: testSecret,
		HTTP:      config.HTTPConfig{AllowedOrigins: []string{"https://shelf.example"}},
	})

	req := httptest.NewRequest(http.MethodOptions, "/whiskeys", nil)
	req.Header.Set("Origin", "https://shelf.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	api.handler.ServeHTTP(rec, req)

	assert.Equal(t, "https://shelf.example", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/whiskeys", nil)
	req.Header.Set("Origin", "https://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec = httptest.NewRecorder()
	api.handler.ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
