package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"chefai/internal/i18n"
	"chefai/internal/platform/pexels"
	"chefai/internal/scan"
	"chefai/internal/session"
)

// RecipeGenerator defines the interface for the generative model client.
type RecipeGenerator interface {
	Generate(ctx context.Context, imageData []byte, format, language, units string) (string, error)
}

// ImageSearcher defines the interface for the stock-photo search client.
type ImageSearcher interface {
	FindImage(ctx context.Context, query string) pexels.Result
}

// UserStore defines the interface for credential and scan-history operations.
type UserStore interface {
	RegisterOrLogin(ctx context.Context, username, password string) (string, bool, error)
	SaveScan(ctx context.Context, username string, recipes []scan.Recipe) (string, error)
	GetScans(ctx context.Context, username string) ([]scan.ScanSummary, error)
	GetScan(ctx context.Context, username, scanID string) (*scan.Scan, error)
}

const (
	sessionCookie   = "chefai_session"
	generateTimeout = 45 * time.Second
	storeTimeout    = 5 * time.Second
)

var allowedExtensions = map[string]bool{
	".jpeg": true,
	".jpg":  true,
	".png":  true,
}

// Handler handles HTTP requests.
type Handler struct {
	Generator RecipeGenerator
	Searcher  ImageSearcher
	Store     UserStore
	Sessions  *session.Manager
}

// NewHandler creates a new Handler.
func NewHandler(generator RecipeGenerator, searcher ImageSearcher, store UserStore, sessions *session.Manager) *Handler {
	return &Handler{Generator: generator, Searcher: searcher, Store: store, Sessions: sessions}
}

// sessionToken returns the caller's session token, issuing and setting a new
// cookie when none is present.
func (h *Handler) sessionToken(c *gin.Context) string {
	if token, err := c.Cookie(sessionCookie); err == nil && token != "" {
		return token
	}
	token := h.Sessions.NewToken()
	c.SetCookie(sessionCookie, token, int((30 * 24 * time.Hour).Seconds()), "/", "", false, true)
	return token
}

// Analyze handles an ingredient-photo upload: it asks the generative model
// for recipes, resolves a stock photo per recipe and, for authenticated
// callers, persists the result to their scan history.
func (h *Handler) Analyze(c *gin.Context) {
	file, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No image uploaded"})
		return
	}
	if file.Filename == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file selected"})
		return
	}

	extension := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedExtensions[extension] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid file type. Only JPEG, JPG, and PNG images are allowed."})
		return
	}

	language := c.PostForm("language")
	if language == "" {
		language = session.LangEnglish
	}
	if language != session.LangEnglish && language != session.LangBulgarian {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported language"})
		return
	}

	units := c.PostForm("units")
	if units == "" {
		units = "Metric"
	}
	if units != "Metric" && units != "Imperial" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported unit system"})
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("open file err: %s", err.Error())})
		return
	}
	defer src.Close()

	imageData, err := io.ReadAll(src)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("read image err: %s", err.Error())})
		return
	}

	imageData, format := prepareImage(imageData, extension)

	ctx, cancel := context.WithTimeout(c.Request.Context(), generateTimeout)
	defer cancel()

	raw, err := h.Generator.Generate(ctx, imageData, format, language, units)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			c.JSON(http.StatusGatewayTimeout, gin.H{"error": "Recipe generation timed out"})
			return
		}
		slog.Error("recipe generation failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Recipe generation failed. Check the API credentials and image format."})
		return
	}

	recipes, err := scan.ParseRecipes(raw)
	if err != nil {
		// The raw text stays in server logs only.
		slog.Error("malformed model output", "error", err, "raw", raw)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "The model returned an unexpected response. Please try again."})
		return
	}
	if len(recipes) != 2 {
		slog.Warn("model returned unexpected recipe count", "count", len(recipes))
	}

	// Search queries stay in the recipe's own language as generated.
	for i := range recipes {
		result := h.Searcher.FindImage(ctx, recipes[i].Title+" food dish")
		recipes[i].ImageURL = result.URL
	}

	var scanID *string
	sess := h.Sessions.Current(h.sessionToken(c))
	if sess.LoggedIn {
		id, err := h.Store.SaveScan(ctx, sess.Username, recipes)
		if err != nil {
			// Persistence silently declines; the analysis still succeeds.
			slog.Warn("scan not persisted", "username", sess.Username, "error", err)
		} else {
			scanID = &id
		}
	}

	c.JSON(http.StatusOK, gin.H{"recipes": recipes, "scan_id": scanID})
}

// LoginOrRegister registers the username if unseen, otherwise authenticates.
// All failures re-render the login page with one shared message that does not
// reveal whether the username exists.
func (h *Handler) LoginOrRegister(c *gin.Context) {
	username := c.PostForm("username")
	password := c.PostForm("password")

	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	token := h.sessionToken(c)
	sess := h.Sessions.Current(token)

	_, created, err := h.Store.RegisterOrLogin(ctx, username, password)
	if err != nil {
		if !errors.Is(err, scan.ErrInvalidCredentials) && !errors.Is(err, scan.ErrMissingField) {
			slog.Error("login failed", "error", err)
		}
		c.HTML(http.StatusOK, "login.html", gin.H{
			"T":       i18n.Strings(sess.Language),
			"Session": sess,
			"Error":   true,
		})
		return
	}

	if created {
		slog.Info("user registered", "username", username)
	}
	h.Sessions.Login(token, username)
	c.Redirect(http.StatusSeeOther, "/account")
}

// Logout clears the caller's authentication state.
func (h *Handler) Logout(c *gin.Context) {
	if token, err := c.Cookie(sessionCookie); err == nil {
		h.Sessions.Logout(token)
	}
	c.Redirect(http.StatusSeeOther, "/")
}

// Index renders the upload page.
func (h *Handler) Index(c *gin.Context) {
	sess := h.Sessions.Current(h.sessionToken(c))
	c.HTML(http.StatusOK, "index.html", gin.H{
		"T":       i18n.Strings(sess.Language),
		"Session": sess,
	})
}

// LoginPage renders the login/registration form.
func (h *Handler) LoginPage(c *gin.Context) {
	sess := h.Sessions.Current(h.sessionToken(c))
	c.HTML(http.StatusOK, "login.html", gin.H{
		"T":       i18n.Strings(sess.Language),
		"Session": sess,
	})
}

// Account renders the caller's scan history, newest first.
func (h *Handler) Account(c *gin.Context) {
	sess := h.Sessions.Current(h.sessionToken(c))
	if !sess.LoggedIn {
		c.Redirect(http.StatusSeeOther, "/login")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	scans, err := h.Store.GetScans(ctx, sess.Username)
	if err != nil {
		slog.Error("failed to load scans", "username", sess.Username, "error", err)
		scans = nil
	}

	c.HTML(http.StatusOK, "account.html", gin.H{
		"T":       i18n.Strings(sess.Language),
		"Session": sess,
		"Scans":   scans,
	})
}

// ScanDetails renders one scan. Ids belonging to other users render the same
// not-found page as unknown ids.
func (h *Handler) ScanDetails(c *gin.Context) {
	sess := h.Sessions.Current(h.sessionToken(c))
	tr := i18n.Strings(sess.Language)

	notFound := func() {
		c.HTML(http.StatusNotFound, "scan_details.html", gin.H{
			"T":        tr,
			"Session":  sess,
			"NotFound": true,
		})
	}

	if !sess.LoggedIn {
		notFound()
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	sc, err := h.Store.GetScan(ctx, sess.Username, c.Param("scan_id"))
	if err != nil {
		if !errors.Is(err, scan.ErrScanNotFound) {
			slog.Error("failed to load scan", "error", err)
		}
		notFound()
		return
	}

	c.HTML(http.StatusOK, "scan_details.html", gin.H{
		"T":       tr,
		"Session": sess,
		"Scan":    sc,
	})
}

// SettingsPage renders the preference form.
func (h *Handler) SettingsPage(c *gin.Context) {
	sess := h.Sessions.Current(h.sessionToken(c))
	c.HTML(http.StatusOK, "settings.html", gin.H{
		"T":       i18n.Strings(sess.Language),
		"Session": sess,
	})
}

// SaveSettings stores the caller's UI preferences on the session.
func (h *Handler) SaveSettings(c *gin.Context) {
	token := h.sessionToken(c)
	err := h.Sessions.SetPreferences(token, c.PostForm("mode"), c.PostForm("language"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.Redirect(http.StatusSeeOther, "/settings")
}
