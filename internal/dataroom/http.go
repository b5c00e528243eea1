package dataroom

import (
	"context"
	"mime"
	"net/http"
	"strconv"
	"strings"

	errors "github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v7"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"

	"github.com/Laisky/dataroom/library/log"
)

const (
	ctxKeyUserID = "dataroom_user_id"
	// multipartOverhead covers multipart boundaries and headers around the file part
	multipartOverhead = 1 << 20
)

// HTTPHandler exposes the dataroom API under /api.
type HTTPHandler struct {
	svc    *Service
	auth   *AuthService
	logger logSDK.Logger
}

// NewHTTPHandler constructs the API handler.
func NewHTTPHandler(svc *Service, auth *AuthService, logger logSDK.Logger) *HTTPHandler {
	if logger == nil {
		logger = log.Logger.Named("dataroom_http")
	}
	return &HTTPHandler{svc: svc, auth: auth, logger: logger}
}

// Register mounts every route on router.
func (h *HTTPHandler) Register(router gin.IRouter) {
	api := router.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.POST("/register", h.handleRegister)
	authGroup.POST("/login", h.handleLogin)
	authGroup.GET("/me", h.requireUser, h.handleMe)

	protected := api.Group("", h.requireUser)
	protected.PUT("/me/theme", h.handleUpdateTheme)

	protected.GET("/datarooms", h.handleListDatarooms)
	protected.POST("/datarooms", h.handleCreateDataroom)
	protected.GET("/datarooms/:rid", h.handleGetDataroom)
	protected.PUT("/datarooms/:rid", h.handleRenameDataroom)
	protected.DELETE("/datarooms/:rid", h.handleDeleteDataroom)
	protected.POST("/datarooms/:rid/folders", h.handleCreateFolder)

	protected.GET("/folders/:fid", h.handleGetFolder)
	protected.GET("/folders/:fid/children", h.handleListChildren)
	protected.PUT("/folders/:fid", h.handleRenameFolder)
	protected.DELETE("/folders/:fid", h.handleDeleteFolder)
	protected.POST("/folders/:fid/files", h.handleUpload)

	protected.GET("/files/:id", h.handleGetFile)
	protected.GET("/files/:id/stream", h.handleStreamFile)
	protected.PUT("/files/:id", h.handleRenameFile)
	protected.DELETE("/files/:id", h.handleDeleteFile)

	protected.GET("/search/meta", h.handleSearchMeta)
	protected.GET("/search/content", h.handleSearchContent)
}

func (h *HTTPHandler) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c, h.svc.settings.RequestTimeout)
}

func (h *HTTPHandler) log(c *gin.Context) logSDK.Logger {
	if logger := gmw.GetLogger(c); logger != nil {
		return logger
	}
	return h.logger
}

// writeError maps typed errors to their status. Anything else is logged
// and returned as a generic 500.
func (h *HTTPHandler) writeError(c *gin.Context, err error) {
	if typed, ok := AsError(err); ok {
		status := typed.Code.HTTPStatus()
		if status >= http.StatusInternalServerError {
			h.log(c).Error("dataroom request failed", zap.Error(err), zap.String("code", string(typed.Code)))
		}
		c.AbortWithStatusJSON(status, gin.H{"error": typed.Message, "code": typed.Code})
		return
	}

	h.log(c).Error("dataroom request failed", zap.Error(err))
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error", "code": "INTERNAL"})
}

func (h *HTTPHandler) reportSideEffects(c *gin.Context, effects SideEffects) {
	if failed := effects.Failed(); len(failed) > 0 {
		h.log(c).Info("request finished with incomplete storage side effects",
			zap.Int("failed", len(failed)), zap.String("path", c.FullPath()))
	}
}

// requireUser verifies the bearer token and stores the user id.
func (h *HTTPHandler) requireUser(c *gin.Context) {
	header := c.GetHeader("Authorization")
	token := ""
	if len(header) > len("bearer ") && strings.EqualFold(header[:len("bearer ")], "bearer ") {
		token = header[len("bearer "):]
	}

	uid, err := h.auth.Authenticate(token)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.Set(ctxKeyUserID, uid)
	c.Next()
}

func userID(c *gin.Context) int64 {
	return c.GetInt64(ctxKeyUserID)
}

func pathID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidArgument("invalid " + name)
	}
	return id, nil
}

type nameRequest struct {
	Name string `json:"name"`
}

func bindName(c *gin.Context) (string, error) {
	var req nameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return "", errInvalidArgument("invalid JSON payload")
	}
	return req.Name, nil
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *HTTPHandler) handleRegister(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, errInvalidArgument("invalid JSON payload"))
		return
	}
	ctx, cancel := h.requestContext(c)
	defer cancel()

	user, err := h.auth.Register(ctx, req.Email, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *HTTPHandler) handleLogin(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, errInvalidArgument("invalid JSON payload"))
		return
	}
	ctx, cancel := h.requestContext(c)
	defer cancel()

	token, err := h.auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, token)
}

func (h *HTTPHandler) handleMe(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	user, err := h.auth.Me(ctx, userID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *HTTPHandler) handleUpdateTheme(c *gin.Context) {
	var req struct {
		Theme string `json:"theme"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, errInvalidArgument("invalid JSON payload"))
		return
	}
	ctx, cancel := h.requestContext(c)
	defer cancel()

	theme, err := h.auth.UpdateTheme(ctx, userID(c), req.Theme)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "theme": theme})
}

func (h *HTTPHandler) handleListDatarooms(c *gin.Context) {
	limit, err := parseLimit(c.Query("limit"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	ctx, cancel := h.requestContext(c)
	defer cancel()

	resp, err := h.svc.ListDatarooms(ctx, userID(c), limit, c.Query("cursor"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *HTTPHandler) handleCreateDataroom(c *gin.Context) {
	name, err := bindName(c)
	if err != nil {
		h.writeError(c, err)
		return
	}
	ctx, cancel := h.requestContext(c)
	defer cancel()

	room, effects, err := h.svc.CreateDataroom(ctx, userID(c), name)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.reportSideEffects(c, effects)
	c.JSON(http.StatusCreated, room)
}

func (h *HTTPHandler) handleGetDataroom(c *gin.Context) {
	rid, err := pathID(c, "rid")
	if err != nil {
		h.writeError(c, err)
		return
	}
	ctx, cancel := h.requestContext(c)
	defer cancel()

	room, err := h.svc.GetDataroom(ctx, userID(c), rid)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

func (h *HTTPHandler) handleRenameDataroom(c *gin.Context) {
	rid, err := pathID(c, "rid")
	if err != nil {
		h.writeError(c, err)
		return
	}
	name, err := bindName(c)
	if err != nil {
		h.writeError(c, err)
		return
	}
	ctx, cancel := h.requestContext(c)
	defer cancel()

	room, err := h.svc.RenameDataroom(ctx, userID(c), rid, name)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "name": room.Name})
}

func (h *HTTPHandler) handleDeleteDataroom(c *gin.Context) {
	rid, err := pathID(c, "rid")
	if err != nil {
		h.writeError(c, err)
		return
	}
	ctx, cancel := h.requestContext(c)
	defer cancel()

	effects, err := h.svc.DeleteDataroom(ctx, userID(c), rid)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.reportSideEffects(c, effects)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *HTTPHandler) handleCreateFolder(c *gin.Context) {
	rid, err := pathID(c, "rid")
	if err != nil {
		h.writeError(c, err)
		return
	}
	var req struct {
		Name     string `json:"name"`
		ParentID *int64 `json:"parent_id"`
	}
	if err = c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, errInvalidArgument("invalid JSON payload"))
		return
	}
	if strings.TrimSpace(req.Name) == "" || req.ParentID == nil {
		h.writeError(c, errInvalidArgument("name and parent_id required"))
		return
	}
	ctx, cancel := h.requestContext(c)
	defer cancel()

	folder, effects, err := h.svc.CreateFolder(ctx, userID(c), rid, *req.ParentID, req.Name)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.reportSideEffects(c, effects)
	c.JSON(http.StatusCreated, folder)
}

func (h *HTTPHandler) handleGetFolder(c *gin.Context) {
	fid, err := pathID(c, "fid")
	if err != nil {
		h.writeError(c, err)
		return
	}
	ctx, cancel := h.requestContext(c)
	defer cancel()

	folder, err := h.svc.GetFolder(ctx, userID(c), fid)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, folder)
}

func (h *HTTPHandler) handleListChildren(c *gin.Context) {
	fid, err := pathID(c, "fid")
	if err != nil {
		h.writeError(c, err)
		return
	}
	q := ChildrenQuery{
		CursorFolders: c.Query("cursor_folders"),
		CursorFiles:   c.Query("cursor_files"),
	}
	if q.LimitFolders, err = parseLimit(c.Query("limit_folders")); err != nil {
		h.writeError(c, err)
		return
	}
	if q.LimitFiles, err = parseLimit(c.Query("limit_files")); err != nil {
		h.writeError(c, err)
		return
	}
	ctx, cancel := h.requestContext(c)
	defer cancel()

	children, err := h.svc.ListChildren(ctx, userID(c), fid, q)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, children)
}

func (h *HTTPHandler) handleRenameFolder(c *gin.Context) {
	fid, err := pathID(c, "fid")
	if err != nil {
		h.writeError(c, err)
		return
	}
	name, err := bindName(c)
	if err != nil {
		h.writeError(c, err)
		return
	}
	ctx, cancel := h.requestContext(c)
	defer cancel()

	folder, err := h.svc.RenameFolder(ctx, userID(c), fid, name)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "name": folder.Name})
}

func (h *HTTPHandler) handleDeleteFolder(c *gin.Context) {
	fid, err := pathID(c, "fid")
	if err != nil {
		h.writeError(c, err)
		return
	}
	ctx, cancel := h.requestContext(c)
	defer cancel()

	effects, err := h.svc.DeleteFolder(ctx, userID(c), fid)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.reportSideEffects(c, effects)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *HTTPHandler) handleUpload(c *gin.Context) {
	fid, err := pathID(c, "fid")
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.svc.settings.MaxUploadBytes+multipartOverhead)
	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			h.writeError(c, errors.WithStack(NewError(ErrCodePayloadTooLarge, "file is too large", false)))
			return
		}
		h.writeError(c, errInvalidArgument("file is required"))
		return
	}
	if header.Size > h.svc.settings.MaxUploadBytes {
		h.writeError(c, errors.WithStack(NewError(ErrCodePayloadTooLarge, "file is too large", false)))
		return
	}

	src, err := header.Open()
	if err != nil {
		h.writeError(c, errors.Wrap(err, "open multipart file"))
		return
	}
	defer src.Close() //nolint:errcheck

	ctx, cancel := h.requestContext(c)
	defer cancel()

	result, effects, err := h.svc.UploadFile(ctx, userID(c), fid, header.Filename, src)
	h.reportSideEffects(c, effects)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *HTTPHandler) handleGetFile(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.writeError(c, err)
		return
	}
	ctx, cancel := h.requestContext(c)
	defer cancel()

	file, err := h.svc.GetFile(ctx, userID(c), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, file)
}

func (h *HTTPHandler) handleStreamFile(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.writeError(c, err)
		return
	}

	// the response body outlives the request timeout
	content, err := h.svc.OpenFile(c, userID(c), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	defer content.Body.Close() //nolint:errcheck

	c.DataFromReader(http.StatusOK, content.Length, content.Item.MimeType, content.Body, map[string]string{
		"Content-Disposition": contentDisposition(content.Item.Name),
	})
}

// contentDisposition renders an inline disposition, RFC 2231 encoding
// non-ASCII names.
func contentDisposition(filename string) string {
	if v := mime.FormatMediaType("inline", map[string]string{"filename": filename}); v != "" {
		return v
	}
	return "inline"
}

func (h *HTTPHandler) handleRenameFile(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.writeError(c, err)
		return
	}
	name, err := bindName(c)
	if err != nil {
		h.writeError(c, err)
		return
	}
	ctx, cancel := h.requestContext(c)
	defer cancel()

	file, err := h.svc.RenameFile(ctx, userID(c), id, name)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "name": file.Name})
}

func (h *HTTPHandler) handleDeleteFile(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.writeError(c, err)
		return
	}
	ctx, cancel := h.requestContext(c)
	defer cancel()

	effects, err := h.svc.DeleteFile(ctx, userID(c), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.reportSideEffects(c, effects)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *HTTPHandler) handleSearchMeta(c *gin.Context) {
	q, err := ParseMetaQuery(c.Query)
	if err != nil {
		h.writeError(c, err)
		return
	}
	ctx, cancel := h.requestContext(c)
	defer cancel()

	resp, err := h.svc.SearchMeta(ctx, userID(c), q)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *HTTPHandler) handleSearchContent(c *gin.Context) {
	limit, err := parseLimit(c.Query("limit"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	ctx, cancel := h.requestContext(c)
	defer cancel()

	resp, err := h.svc.SearchContent(ctx, userID(c), c.Query("q"), limit, c.Query("cursor"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
