package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"chefai/internal/platform/pexels"
	"chefai/internal/scan"
	"chefai/internal/session"
)

const sampleModelOutput = `[
	{"title": "Shopska Salad", "description": "Classic salad.", "ingredients": ["tomato", "cucumber", "sirene"], "instructions": ["Chop", "Mix"], "time_minutes": 10, "skill_level": "Easy", "image_url": "placeholder"},
	{"title": "Tomato Soup", "description": "Simple soup.", "ingredients": ["tomato", "onion"], "instructions": ["Chop", "Simmer"], "time_minutes": 30, "skill_level": "Medium", "image_url": "placeholder"}
]`

// mockGenerator is a mock of the recipe-generation client.
type mockGenerator struct {
	raw              string
	returnError      error
	calls            int
	receivedLanguage string
	receivedUnits    string
}

func (m *mockGenerator) Generate(ctx context.Context, imageData []byte, format, language, units string) (string, error) {
	m.calls++
	m.receivedLanguage = language
	m.receivedUnits = units
	if m.returnError != nil {
		return "", m.returnError
	}
	return m.raw, nil
}

// mockSearcher is a mock of the image-search client.
type mockSearcher struct {
	queries []string
}

func (m *mockSearcher) FindImage(ctx context.Context, query string) pexels.Result {
	m.queries = append(m.queries, query)
	return pexels.Result{URL: fmt.Sprintf("https://images.example.com/%d.jpg", len(m.queries)), Found: true}
}

type testEnv struct {
	router    *gin.Engine
	generator *mockGenerator
	searcher  *mockSearcher
	store     *scan.MemoryStore
	sessions  *session.Manager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	env := &testEnv{
		generator: &mockGenerator{raw: sampleModelOutput},
		searcher:  &mockSearcher{},
		store:     scan.NewMemoryStore(),
		sessions:  session.NewManager(),
	}
	handler := NewHandler(env.generator, env.searcher, env.store, env.sessions)

	r := gin.New()
	r.LoadHTMLGlob("../../templates/*.html")
	r.GET("/", handler.Index)
	r.GET("/login", handler.LoginPage)
	r.GET("/logout", handler.Logout)
	r.GET("/account", handler.Account)
	r.GET("/scan_details/:scan_id", handler.ScanDetails)
	r.GET("/settings", handler.SettingsPage)
	r.POST("/settings", handler.SaveSettings)
	r.POST("/analyze", handler.Analyze)
	r.POST("/login-or-register", handler.LoginOrRegister)
	env.router = r
	return env
}

// uploadRequest builds a multipart /analyze request carrying an image part.
func uploadRequest(t *testing.T, filename string, fields map[string]string) *http.Request {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename="%s"`, filename))
	header.Set("Content-Type", "application/octet-stream")
	part, err := writer.CreatePart(header)
	assert.NoError(t, err)
	_, err = part.Write([]byte("fake image bytes"))
	assert.NoError(t, err)

	for key, value := range fields {
		assert.NoError(t, writer.WriteField(key, value))
	}
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/analyze", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

type analyzeResponse struct {
	Recipes []scan.Recipe `json:"recipes"`
	ScanID  *string       `json:"scan_id"`
}

func (e *testEnv) loginCookie(t *testing.T, username string) *http.Cookie {
	t.Helper()
	_, _, err := e.store.RegisterOrLogin(context.Background(), username, "secret")
	assert.NoError(t, err)
	token := e.sessions.NewToken()
	e.sessions.Login(token, username)
	return &http.Cookie{Name: sessionCookie, Value: token}
}

func TestAnalyze_Success(t *testing.T) {
	env := newTestEnv(t)

	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, uploadRequest(t, "food.png", nil))

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp analyzeResponse
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Len(t, resp.Recipes, 2)
	assert.Nil(t, resp.ScanID)

	// Placeholder image URLs must be overwritten with search results.
	assert.Equal(t, "https://images.example.com/1.jpg", resp.Recipes[0].ImageURL)
	assert.Equal(t, "https://images.example.com/2.jpg", resp.Recipes[1].ImageURL)
	assert.Equal(t, []string{"Shopska Salad food dish", "Tomato Soup food dish"}, env.searcher.queries)

	// Defaults apply when the form omits language and units.
	assert.Equal(t, "English", env.generator.receivedLanguage)
	assert.Equal(t, "Metric", env.generator.receivedUnits)

	assert.Equal(t, 10, resp.Recipes[0].TimeMinutes)
	assert.Equal(t, scan.SkillEasy, resp.Recipes[0].SkillLevel)
}

func TestAnalyze_MissingFile(t *testing.T) {
	env := newTestEnv(t)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/analyze", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	// The generation model must not be called on a rejected upload.
	assert.Equal(t, 0, env.generator.calls)
}

func TestAnalyze_EmptyFilename(t *testing.T) {
	env := newTestEnv(t)

	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, uploadRequest(t, "", nil))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, 0, env.generator.calls)
}

func TestAnalyze_BadExtension(t *testing.T) {
	env := newTestEnv(t)

	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, uploadRequest(t, "notes.txt", nil))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, 0, env.generator.calls)
}

func TestAnalyze_BulgarianImperial(t *testing.T) {
	env := newTestEnv(t)

	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, uploadRequest(t, "food.jpg", map[string]string{
		"language": "Bulgarian",
		"units":    "Imperial",
	}))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Bulgarian", env.generator.receivedLanguage)
	assert.Equal(t, "Imperial", env.generator.receivedUnits)
}

func TestAnalyze_UnsupportedLanguage(t *testing.T) {
	env := newTestEnv(t)

	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, uploadRequest(t, "food.jpg", map[string]string{"language": "French"}))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, 0, env.generator.calls)
}

func TestAnalyze_UpstreamError(t *testing.T) {
	env := newTestEnv(t)
	env.generator.returnError = fmt.Errorf("quota exceeded")

	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, uploadRequest(t, "food.png", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), "error")
}

func TestAnalyze_Timeout(t *testing.T) {
	env := newTestEnv(t)
	env.generator.returnError = context.DeadlineExceeded

	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, uploadRequest(t, "food.png", nil))

	assert.Equal(t, http.StatusGatewayTimeout, rr.Code)
}

func TestAnalyze_MalformedOutput(t *testing.T) {
	env := newTestEnv(t)
	env.generator.raw = "Sorry, I cannot identify any ingredients here."

	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, uploadRequest(t, "food.png", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	// The raw model text must never reach the client.
	assert.NotContains(t, rr.Body.String(), "cannot identify")
}

func TestAnalyze_AuthenticatedSave(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.loginCookie(t, "alice")

	req := uploadRequest(t, "food.png", nil)
	req.AddCookie(cookie)

	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp analyzeResponse
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.NotNil(t, resp.ScanID)

	summaries, err := env.store.GetScans(context.Background(), "alice")
	assert.NoError(t, err)
	assert.Len(t, summaries, 1)
	assert.Equal(t, *resp.ScanID, summaries[0].ID)
	assert.Equal(t, "Shopska Salad", summaries[0].Title)
}

func TestLoginOrRegister_Redirects(t *testing.T) {
	env := newTestEnv(t)

	form := strings.NewReader("username=alice&password=secret")
	req := httptest.NewRequest(http.MethodPost, "/login-or-register", form)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/account", rr.Header().Get("Location"))

	// A session cookie must be issued and authenticated.
	cookies := rr.Result().Cookies()
	assert.NotEmpty(t, cookies)
	sess := env.sessions.Current(cookies[0].Value)
	assert.True(t, sess.LoggedIn)
	assert.Equal(t, "alice", sess.Username)
}

func TestLoginOrRegister_WrongPassword(t *testing.T) {
	env := newTestEnv(t)
	_, _, err := env.store.RegisterOrLogin(context.Background(), "alice", "secret")
	assert.NoError(t, err)

	form := strings.NewReader("username=alice&password=wrong")
	req := httptest.NewRequest(http.MethodPost, "/login-or-register", form)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)

	// The form re-renders with the shared generic message.
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Invalid username or password")
}

func TestLoginOrRegister_MissingFields(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/login-or-register", strings.NewReader("username=&password="))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Invalid username or password")
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.loginCookie(t, "alice")

	req := httptest.NewRequest(http.MethodGet, "/logout", nil)
	req.AddCookie(cookie)

	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/", rr.Header().Get("Location"))
	assert.False(t, env.sessions.Current(cookie.Value).LoggedIn)
}

func TestAccount_RequiresLogin(t *testing.T) {
	env := newTestEnv(t)

	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/account", nil))

	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/login", rr.Header().Get("Location"))
}

func TestScanDetails_OwnershipIsolation(t *testing.T) {
	env := newTestEnv(t)
	aliceCookie := env.loginCookie(t, "alice")
	env.loginCookie(t, "bob")

	bobScan, err := env.store.SaveScan(context.Background(), "bob", []scan.Recipe{
		{Title: "Bob's Stew", Description: "private", ImageURL: "http://img"},
	})
	assert.NoError(t, err)

	// Alice requesting Bob's scan id gets the not-found page.
	req := httptest.NewRequest(http.MethodGet, "/scan_details/"+bobScan, nil)
	req.AddCookie(aliceCookie)
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.NotContains(t, rr.Body.String(), "Bob's Stew")
}

func TestScanDetails_Owner(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.loginCookie(t, "alice")

	scanID, err := env.store.SaveScan(context.Background(), "alice", []scan.Recipe{
		{Title: "Banitsa", Description: "flaky", Ingredients: []string{"filo", "sirene"}, Instructions: []string{"Layer", "Bake"}, TimeMinutes: 60, SkillLevel: scan.SkillMedium, ImageURL: "http://img"},
	})
	assert.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/scan_details/"+scanID, nil)
	req.AddCookie(cookie)
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Banitsa")
}

func TestSaveSettings(t *testing.T) {
	env := newTestEnv(t)
	token := env.sessions.NewToken()

	req := httptest.NewRequest(http.MethodPost, "/settings", strings.NewReader("mode=dark&language=Bulgarian"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: token})

	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusSeeOther, rr.Code)
	sess := env.sessions.Current(token)
	assert.Equal(t, session.ModeDark, sess.Mode)
	assert.Equal(t, session.LangBulgarian, sess.Language)
}

func TestSaveSettings_Invalid(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/settings", strings.NewReader("mode=sepia"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestIndex_BulgarianStrings(t *testing.T) {
	env := newTestEnv(t)
	token := env.sessions.NewToken()
	assert.NoError(t, env.sessions.SetPreferences(token, "", session.LangBulgarian))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: token})

	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Снимай продуктите")
}

func TestRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/limited", RateLimit(1, 1), func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/limited", nil)
	req.RemoteAddr = "10.0.0.1:1234"

	first := httptest.NewRecorder()
	r.ServeHTTP(first, req)
	assert.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	r.ServeHTTP(second, req)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}
