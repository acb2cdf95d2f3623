package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/OmarCodes2/Slop-Block/app/cfg"
	"github.com/OmarCodes2/Slop-Block/app/database"
	"github.com/OmarCodes2/Slop-Block/app/engine"
	"github.com/OmarCodes2/Slop-Block/app/feed"
	"github.com/OmarCodes2/Slop-Block/app/tasks"
	"github.com/gin-gonic/gin"
)

const (
	settleTimeout = 30 * time.Second
	importTimeout = 30 * time.Second
	maxImportSize = 10 << 20
)

func NewHandler(sessions *SessionManager, settingsRepo database.SettingsRepository) *Handler {
	return &Handler{
		sessions:     sessions,
		settingsRepo: settingsRepo,
		parser:       feed.NewParser(),
		generator:    feed.NewGenerator(),
		httpClient:   &http.Client{},
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"sessions":  h.sessions.Count(),
		"version":   cfg.Get().Version,
	}

	if updatedAt, err := h.settingsRepo.GetLastUpdated(); err == nil && updatedAt != nil {
		health["settings_updated_at"] = updatedAt.In(time.Local).Format(time.RFC3339)
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) APICreateSession(c *gin.Context) {
	session := h.sessions.Create()

	info, err := session.Info(c.Request.Context())
	if err != nil {
		h.sessionError(c, session.ID, "info", err)
		return
	}

	c.JSON(http.StatusCreated, info)
}

func (h *Handler) APIListSessions(c *gin.Context) {
	sessions := h.sessions.List()

	infos := make([]engine.SessionInfo, 0, len(sessions))
	for _, session := range sessions {
		info, err := session.Info(c.Request.Context())
		if err != nil {
			continue
		}
		infos = append(infos, info)
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"sessions": infos,
		"total":    len(infos),
	})
}

func (h *Handler) APIGetSession(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	info, err := session.Info(c.Request.Context())
	if err != nil {
		h.sessionError(c, session.ID, "info", err)
		return
	}

	c.JSON(http.StatusOK, info)
}

func (h *Handler) APIDeleteSession(c *gin.Context) {
	id := c.Param("id")
	if err := h.sessions.Delete(id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) APILoadDocument(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var req documentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	if err := session.LoadPage(c.Request.Context(), req.URL, req.HTML); err != nil {
		h.sessionError(c, session.ID, "load_page", err)
		return
	}

	if !h.settle(c, session) {
		return
	}

	h.respondInfo(c, session)
}

func (h *Handler) APIGetDocument(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	if !h.settle(c, session) {
		return
	}

	doc, err := session.Document(c.Request.Context())
	if err != nil {
		h.sessionError(c, session.ID, "document", err)
		return
	}

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.String(http.StatusOK, doc)
}

func (h *Handler) APIMutate(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var req mutationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	if err := session.Mutate(c.Request.Context(), req.Ops); err != nil {
		h.sessionError(c, session.ID, "mutate", err)
		return
	}

	if !h.settle(c, session) {
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "applied": len(req.Ops)})
}

func (h *Handler) APINavigate(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var req navigateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	action, err := session.Navigate(c.Request.Context(), req.URL)
	if err != nil {
		h.sessionError(c, session.ID, "navigate", err)
		return
	}

	if !h.settle(c, session) {
		return
	}

	c.JSON(http.StatusOK, gin.H{"action": action, "url": req.URL})
}

func (h *Handler) APIReveal(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var req revealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	revealed, err := session.Reveal(c.Request.Context(), req.Key)
	if err != nil {
		h.sessionError(c, session.ID, "reveal", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"key": req.Key, "revealed": revealed})
}

func (h *Handler) APIListPosts(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	if !h.settle(c, session) {
		return
	}

	posts, err := session.Snapshot(c.Request.Context())
	if err != nil {
		h.sessionError(c, session.ID, "snapshot", err)
		return
	}

	occluded := 0
	for _, post := range posts {
		if post.Occluded {
			occluded++
		}
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"posts":    posts,
		"total":    len(posts),
		"occluded": occluded,
	})
}

// APIImport renders the items of an RSS/Atom/JSON feed as posts. The body is
// either the feed itself or {"url": ...} naming a feed to fetch.
func (h *Handler) APIImport(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxImportSize))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read request body", "details": err.Error()})
		return
	}

	if strings.HasPrefix(c.ContentType(), gin.MIMEJSON) {
		// JSON Feed documents are posted as application/json too; they carry no url.
		var req importRequest
		if err := json.Unmarshal(data, &req); err == nil && req.URL != "" {
			data, err = h.fetchFeed(c.Request.Context(), req.URL)
			if err != nil {
				slog.Error("Feed fetch error", "session", session.ID, "url", req.URL, "error", err)
				c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to fetch feed", "details": err.Error()})
				return
			}
		}
	}

	metadata, items, err := h.parser.Run(data)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Failed to parse feed", "details": err.Error()})
		return
	}

	imported, err := session.Import(c.Request.Context(), items)
	if err != nil {
		h.sessionError(c, session.ID, "import", err)
		return
	}

	if !h.settle(c, session) {
		return
	}

	slog.Info("Feed imported", "session", session.ID, "title", metadata.Title, "items", len(items), "imported", imported)

	c.JSON(http.StatusOK, gin.H{
		"title":    metadata.Title,
		"items":    len(items),
		"imported": imported,
	})
}

func (h *Handler) APIGetFeed(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	if !h.settle(c, session) {
		return
	}

	info, err := session.Info(c.Request.Context())
	if err != nil {
		h.sessionError(c, session.ID, "info", err)
		return
	}

	posts, err := session.ExportPosts(c.Request.Context())
	if err != nil {
		h.sessionError(c, session.ID, "export", err)
		return
	}

	rss, err := h.generator.Run(feed.Channel{
		Title:    "Slop Block feed",
		Link:     info.URL,
		SelfLink: feed.SelfLink(session.ID),
	}, posts)
	if err != nil {
		slog.Error("RSS generation error", "session", session.ID, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.Header("X-Feed-Items", strconv.Itoa(len(posts)))
	c.Header("X-Session-ID", session.ID)

	c.String(http.StatusOK, rss)
}

func (h *Handler) APIGetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"settings": h.sessions.Settings()})
}

// APIUpdateSettings replaces the settings with a full record. Toggles missing
// from the record hide their category.
func (h *Handler) APIUpdateSettings(c *gin.Context) {
	var rec map[string]bool
	if err := c.ShouldBindJSON(&rec); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	if err := feed.ValidateRecord(rec); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid settings", "details": err.Error()})
		return
	}

	settings := feed.SettingsFromRecord(rec, feed.HiddenSettings())

	if err := h.settingsRepo.SaveSettings(settings.Record()); err != nil {
		slog.Error("Database error", "operation", "save_settings", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if err := h.sessions.Broadcast(c.Request.Context(), settings); err != nil {
		slog.Warn("Failed to apply settings to every session", "error", err)
	}

	c.JSON(http.StatusOK, gin.H{"settings": settings, "sessions": h.sessions.Count()})
}

func (h *Handler) session(c *gin.Context) (*engine.Session, bool) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing session id parameter"})
		return nil, false
	}

	session, err := h.sessions.Get(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return nil, false
	}
	return session, true
}

// settle waits for pending scans and escalations when ?wait=true.
func (h *Handler) settle(c *gin.Context, session *engine.Session) bool {
	if wait, _ := strconv.ParseBool(c.Query("wait")); !wait {
		return true
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), settleTimeout)
	defer cancel()

	if err := session.Settle(ctx); err != nil {
		h.sessionError(c, session.ID, "settle", err)
		return false
	}
	return true
}

func (h *Handler) respondInfo(c *gin.Context, session *engine.Session) {
	info, err := session.Info(c.Request.Context())
	if err != nil {
		h.sessionError(c, session.ID, "info", err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (h *Handler) sessionError(c *gin.Context, sessionID, operation string, err error) {
	switch {
	case errors.Is(err, tasks.ErrStopped):
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
	case errors.Is(err, engine.ErrNoDocument), errors.Is(err, engine.ErrContainerNotFound):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Session busy", "details": err.Error()})
	default:
		slog.Warn("Session operation failed", "session", sessionID, "operation", operation, "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Operation failed", "details": err.Error()})
	}
}

func (h *Handler) fetchFeed(ctx context.Context, url string) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, importTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", cfg.Get().UserAgent)

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImportSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}
