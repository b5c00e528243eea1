package dataroom

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/Laisky/dataroom/library/log"
)

var ginModeOnce sync.Once

func setupGinTestMode() {
	ginModeOnce.Do(func() {
		gin.SetMode(gin.TestMode)
	})
}

type apiClient struct {
	t      *testing.T
	router *gin.Engine
	token  string
}

func newAPIClient(t *testing.T, env *testEnv) *apiClient {
	setupGinTestMode()
	router := gin.New()
	router.ContextWithFallback = true
	NewHTTPHandler(env.svc, env.auth, log.Logger.Named("test_http")).Register(router)
	return &apiClient{t: t, router: router}
}

func (c *apiClient) do(method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	return c.send(req)
}

func (c *apiClient) send(req *http.Request) *httptest.ResponseRecorder {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, req)
	return w
}

func (c *apiClient) upload(folderID int64, filename string, content []byte) *httptest.ResponseRecorder {
	c.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(c.t, err)
	_, err = part.Write(content)
	require.NoError(c.t, err)
	require.NoError(c.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/folders/%d/files", folderID), &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.send(req)
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (c *apiClient) login(email, password string) {
	c.t.Helper()
	w := c.do(http.MethodPost, "/api/auth/register", credentialsRequest{Email: email, Password: password})
	require.Equal(c.t, http.StatusOK, w.Code, w.Body.String())
	w = c.do(http.MethodPost, "/api/auth/login", credentialsRequest{Email: email, Password: password})
	require.Equal(c.t, http.StatusOK, w.Code, w.Body.String())
	c.token = decodeBody[AccessToken](c.t, w).AccessToken
}

func TestHTTPDataroomFlow(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, DefaultSettings(), "Due diligence checklist")
	api := newAPIClient(t, env)

	w := api.do(http.MethodGet, "/api/datarooms", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "UNAUTHENTICATED", decodeBody[map[string]string](t, w)["code"])

	api.login("alice@example.com", "s3cret")

	w = api.do(http.MethodPost, "/api/datarooms", nameRequest{Name: "Deal"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	room := decodeBody[DataroomItem](t, w)
	require.NotNil(t, room.RootFolderID)

	w = api.do(http.MethodPost, fmt.Sprintf("/api/datarooms/%d/folders", room.ID),
		map[string]any{"name": "Reports", "parent_id": *room.RootFolderID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	folder := decodeBody[FolderItem](t, w)
	require.Equal(t, "Reports", folder.Name)

	w = api.do(http.MethodPost, fmt.Sprintf("/api/datarooms/%d/folders", room.ID), map[string]any{"name": "x"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = api.upload(folder.ID, "check list.pdf", samplePDF)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	uploaded := decodeBody[UploadResult](t, w)
	require.False(t, uploaded.Renamed)

	w = api.upload(folder.ID, "check list.pdf", samplePDF)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.Equal(t, "check list (1).pdf", decodeBody[UploadResult](t, w).Name)

	w = api.upload(folder.ID, "notes.txt", []byte("plain"))
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "UNSUPPORTED_MEDIA", decodeBody[map[string]string](t, w)["code"])

	w = api.do(http.MethodGet, fmt.Sprintf("/api/folders/%d/children?limit_files=1", folder.ID), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	children := decodeBody[Children](t, w)
	require.Len(t, children.Files, 1)
	require.NotNil(t, children.NextCursorFiles)
	require.Empty(t, children.Folders)

	w = api.do(http.MethodGet, fmt.Sprintf("/api/files/%d/stream", uploaded.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	require.Equal(t, `inline; filename="check list.pdf"`, w.Header().Get("Content-Disposition"))
	require.Equal(t, samplePDF, w.Body.Bytes())

	w = api.do(http.MethodGet, "/api/search/content?q=diligence", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	hits := decodeBody[ListResponse[ContentHit]](t, w)
	require.Len(t, hits.Items, 2)
	require.Contains(t, hits.Items[0].Snippet, "<b>diligence</b>")

	w = api.do(http.MethodGet, "/api/search/meta?name=LIST%20(1)", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Len(t, decodeBody[ListResponse[FileItem]](t, w).Items, 1)

	w = api.do(http.MethodGet, "/api/search/meta?date_from=yesterday", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(http.MethodGet, "/api/datarooms?cursor=bogus", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "INVALID_CURSOR", decodeBody[map[string]string](t, w)["code"])

	w = api.do(http.MethodPut, fmt.Sprintf("/api/files/%d", uploaded.ID), nameRequest{Name: "final.pdf"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Equal(t, "final.pdf", decodeBody[map[string]any](t, w)["name"])

	w = api.do(http.MethodPut, "/api/me/theme", map[string]string{"theme": "dark"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = api.do(http.MethodGet, "/api/auth/me", nil)
	require.Equal(t, ThemeDark, decodeBody[UserItem](t, w).Theme)

	w = api.do(http.MethodDelete, fmt.Sprintf("/api/folders/%d", folder.ID), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = api.do(http.MethodGet, fmt.Sprintf("/api/files/%d", uploaded.ID), nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = api.do(http.MethodDelete, fmt.Sprintf("/api/datarooms/%d", room.ID), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestHTTPOwnershipIsUniform(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, DefaultSettings(), "")
	alice := newAPIClient(t, env)
	alice.login("alice@example.com", "s3cret")
	bob := newAPIClient(t, env)
	bob.login("bob@example.com", "s3cret")

	w := alice.do(http.MethodPost, "/api/datarooms", nameRequest{Name: "Private"})
	require.Equal(t, http.StatusCreated, w.Code)
	room := decodeBody[DataroomItem](t, w)

	w = alice.upload(*room.RootFolderID, "secret.pdf", samplePDF)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	file := decodeBody[UploadResult](t, w)

	for _, tc := range []struct {
		foreignPath string
		missingPath string
	}{
		{fmt.Sprintf("/api/datarooms/%d", room.ID), "/api/datarooms/987654"},
		{fmt.Sprintf("/api/folders/%d", *room.RootFolderID), "/api/folders/987654"},
		{fmt.Sprintf("/api/folders/%d/children", *room.RootFolderID), "/api/folders/987654/children"},
		{fmt.Sprintf("/api/files/%d", file.ID), "/api/files/987654"},
		{fmt.Sprintf("/api/files/%d/stream", file.ID), "/api/files/987654/stream"},
	} {
		foreign := bob.do(http.MethodGet, tc.foreignPath, nil)
		missing := bob.do(http.MethodGet, tc.missingPath, nil)
		require.Equal(t, http.StatusNotFound, foreign.Code, tc.foreignPath)
		require.Equal(t, missing.Code, foreign.Code, tc.foreignPath)
		require.Equal(t, missing.Body.String(), foreign.Body.String(), tc.foreignPath)
	}

	w = alice.do(http.MethodGet, fmt.Sprintf("/api/files/%d", file.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = bob.upload(*room.RootFolderID, "x.pdf", samplePDF)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = bob.do(http.MethodGet, "/api/datarooms/abc", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHTTPUploadTooLarge(t *testing.T) {
	t.Parallel()

	settings := DefaultSettings()
	settings.MaxUploadBytes = 128
	env := newTestEnv(t, settings, "")
	api := newAPIClient(t, env)
	api.login("alice@example.com", "s3cret")

	w := api.do(http.MethodPost, "/api/datarooms", nameRequest{Name: "Deal"})
	room := decodeBody[DataroomItem](t, w)

	big := append([]byte("%PDF-1.4\n"), []byte(strings.Repeat("x", 512))...)
	w = api.upload(*room.RootFolderID, "big.pdf", big)
	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code, w.Body.String())
	require.Equal(t, "PAYLOAD_TOO_LARGE", decodeBody[map[string]string](t, w)["code"])
}

func TestContentDisposition(t *testing.T) {
	t.Parallel()

	require.Equal(t, `inline; filename=report.pdf`, contentDisposition("report.pdf"))
	require.Equal(t, `inline; filename*=utf-8''%C3%BCber.pdf`, contentDisposition("über.pdf"))
}
