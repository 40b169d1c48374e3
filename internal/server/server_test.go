package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nightlife-storefront/internal/backend"
	"nightlife-storefront/internal/config"
	"nightlife-storefront/internal/middleware"
	"nightlife-storefront/internal/models"
	"nightlife-storefront/internal/session"
)

// fakeBackend is an in-memory version of the nightlife API.
type fakeBackend struct {
	mu          sync.Mutex
	lines       []map[string]any
	next        int
	clears      int
	filterCalls int
}

func (f *fakeBackend) routes() http.Handler {
	club := map[string]any{
		"id":         "c1",
		"name":       "Baum",
		"city":       "Bogota",
		"musicType":  "techno,house",
		"googleMaps": "https://maps.app.goo.gl/abc",
	}
	user := map[string]any{"id": "u1", "email": "ana@example.com", "firstName": "Ana"}

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Get("/clubs", func(w http.ResponseWriter, r *http.Request) {
			writeJSONBody(w, http.StatusOK, map[string]any{"data": []any{club}})
		})
		r.Get("/clubs/filter", func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query().Get("q")
			if q == "limited" {
				w.Header().Set("Retry-After", "30")
				writeJSONBody(w, http.StatusTooManyRequests, map[string]any{"message": "slow down"})
				return
			}
			f.mu.Lock()
			f.filterCalls++
			f.mu.Unlock()
			if q != "" && !strings.Contains("baum", strings.ToLower(q)) {
				writeJSONBody(w, http.StatusOK, []any{})
				return
			}
			writeJSONBody(w, http.StatusOK, []any{club})
		})
		r.Get("/clubs/{id}", func(w http.ResponseWriter, r *http.Request) {
			if chi.URLParam(r, "id") != "c1" {
				writeJSONBody(w, http.StatusNotFound, map[string]any{"message": "Club not found"})
				return
			}
			writeJSONBody(w, http.StatusOK, club)
		})
		r.Get("/events/club/{id}", func(w http.ResponseWriter, r *http.Request) {
			writeJSONBody(w, http.StatusOK, []any{map[string]any{"id": "e1", "name": "Techno Night", "date": "2024-06-01"}})
		})
		r.Get("/tickets/club/{id}", func(w http.ResponseWriter, r *http.Request) {
			writeJSONBody(w, http.StatusOK, []any{
				map[string]any{"id": "t1", "name": "Early bird", "price": 50000, "available": 10},
				map[string]any{"id": "t2", "name": "VIP table", "price": 300000, "available": 0},
			})
		})
		r.Get("/tickets/calendar/{id}", func(w http.ResponseWriter, r *http.Request) {
			writeJSONBody(w, http.StatusOK, map[string]any{"dates": []any{map[string]any{"date": "2024-06-01", "hasEvent": true}}})
		})
		r.Get("/menu/club/{id}", func(w http.ResponseWriter, r *http.Request) {
			writeJSONBody(w, http.StatusOK, []any{map[string]any{"id": "m1", "name": "Gin", "price": 120000, "category": "Bottles"}})
		})
		r.Get("/tickets/club/{id}/available", func(w http.ResponseWriter, r *http.Request) {
			writeJSONBody(w, http.StatusOK, map[string]any{
				"generalTickets": []any{map[string]any{"id": "t1", "name": "Early bird", "price": 50000, "available": 10}},
			})
		})
		r.Get("/ads", func(w http.ResponseWriter, r *http.Request) {
			writeJSONBody(w, http.StatusOK, []any{})
		})

		r.Get("/unified-cart", func(w http.ResponseWriter, r *http.Request) {
			f.mu.Lock()
			defer f.mu.Unlock()
			writeJSONBody(w, http.StatusOK, map[string]any{"items": f.lines})
		})
		r.Get("/unified-cart/summary", func(w http.ResponseWriter, r *http.Request) {
			f.mu.Lock()
			defer f.mu.Unlock()
			total := 0
			for _, l := range f.lines {
				total += 50000 * l["quantity"].(int)
			}
			writeJSONBody(w, http.StatusOK, map[string]any{"subtotal": total, "total": total})
		})
		r.Post("/unified-cart/add", func(w http.ResponseWriter, r *http.Request) {
			var req models.AddToCartRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeJSONBody(w, http.StatusBadRequest, map[string]any{"message": "bad body"})
				return
			}
			f.mu.Lock()
			defer f.mu.Unlock()
			f.next++
			f.lines = append(f.lines, map[string]any{
				"id":        fmt.Sprintf("l%d", f.next),
				"itemType":  string(req.ItemType),
				"quantity":  req.Quantity,
				"date":      req.Date,
				"clubId":    "c1",
				"unitPrice": 50000,
				"ticket":    map[string]any{"id": req.TicketID, "name": "Early bird"},
			})
			writeJSONBody(w, http.StatusOK, map[string]any{"ok": true})
		})
		r.Patch("/unified-cart/line/{id}", func(w http.ResponseWriter, r *http.Request) {
			var body struct {
				Quantity int `json:"quantity"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			f.mu.Lock()
			defer f.mu.Unlock()
			for _, l := range f.lines {
				if l["id"] == chi.URLParam(r, "id") {
					l["quantity"] = body.Quantity
				}
			}
			writeJSONBody(w, http.StatusOK, map[string]any{"ok": true})
		})
		r.Delete("/unified-cart/line/{id}", func(w http.ResponseWriter, r *http.Request) {
			f.mu.Lock()
			defer f.mu.Unlock()
			kept := f.lines[:0]
			for _, l := range f.lines {
				if l["id"] != chi.URLParam(r, "id") {
					kept = append(kept, l)
				}
			}
			f.lines = kept
			writeJSONBody(w, http.StatusOK, map[string]any{"ok": true})
		})
		r.Delete("/unified-cart/clear", func(w http.ResponseWriter, r *http.Request) {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.clears++
			f.lines = nil
			writeJSONBody(w, http.StatusOK, map[string]any{"ok": true})
		})

		r.Post("/checkout/unified/initiate", func(w http.ResponseWriter, r *http.Request) {
			writeJSONBody(w, http.StatusOK, map[string]any{"transactionId": "tx-1", "status": "PENDING", "amount": 50000})
		})
		r.Get("/checkout/unified/status/{id}", func(w http.ResponseWriter, r *http.Request) {
			writeJSONBody(w, http.StatusOK, map[string]any{"transactionId": chi.URLParam(r, "id"), "status": "APPROVED", "reference": "REF-1"})
		})
		r.Get("/checkout/unified/status/{id}/stream", func(w http.ResponseWriter, r *http.Request) {
			writeJSONBody(w, http.StatusServiceUnavailable, map[string]any{"message": "streaming disabled"})
		})

		r.Post("/auth/login", func(w http.ResponseWriter, r *http.Request) {
			var req models.LoginRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			if req.Password != "secret12" {
				writeJSONBody(w, http.StatusUnauthorized, map[string]any{"message": "Invalid credentials"})
				return
			}
			http.SetCookie(w, &http.Cookie{Name: "bk", Value: "1", Path: "/"})
			writeJSONBody(w, http.StatusOK, map[string]any{"user": user})
		})
		r.Get("/auth/me", func(w http.ResponseWriter, r *http.Request) {
			if c, err := r.Cookie("bk"); err != nil || c.Value != "1" {
				writeJSONBody(w, http.StatusUnauthorized, map[string]any{"message": "Not authenticated"})
				return
			}
			writeJSONBody(w, http.StatusOK, user)
		})
		r.Post("/auth/logout", func(w http.ResponseWriter, r *http.Request) {
			http.SetCookie(w, &http.Cookie{Name: "bk", Value: "", Path: "/", MaxAge: -1})
			writeJSONBody(w, http.StatusOK, map[string]any{"ok": true})
		})
	})
	return r
}

func (f *fakeBackend) lineCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.lines)
}

func (f *fakeBackend) filterCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.filterCalls
}

func writeJSONBody(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newTestRouter(t *testing.T) (http.Handler, *fakeBackend) {
	t.Helper()
	fake := &fakeBackend{}
	srv := httptest.NewServer(fake.routes())
	t.Cleanup(srv.Close)

	cfg := &config.Config{}
	cfg.Backend.Timeout = 2 * time.Second
	cfg.Session.IdleTimeout = time.Hour
	cfg.Availability.Debounce = 10 * time.Millisecond
	cfg.Checkout.StatusWait = 2 * time.Second
	cfg.Checkout.CallbackURL = "http://localhost/checkout/processing"

	client, err := backend.NewClient(backend.Config{BaseURL: srv.URL + "/api/", Timeout: 2 * time.Second}, nil)
	require.NoError(t, err)

	store := sessions.NewCookieStore([]byte("0123456789abcdef0123456789abcdef"))
	manager := session.NewManager(store, client, session.Options{Config: cfg, Logger: zerolog.Nop()})
	t.Cleanup(manager.Close)

	return NewRouter(Deps{
		Config:      cfg,
		Sessions:    manager,
		RateLimiter: middleware.NewLoginRateLimiter(5, time.Minute, nil),
		Logger:      zerolog.Nop(),
	}), fake
}

var csrfMeta = regexp.MustCompile(`<meta name="csrf-token" content="([0-9a-f]+)">`)

// browser carries cookies and the csrf token between requests.
type browser struct {
	t       *testing.T
	h       http.Handler
	cookies map[string]*http.Cookie
	csrf    string
}

func newBrowser(t *testing.T, h http.Handler) *browser {
	b := &browser{t: t, h: h, cookies: map[string]*http.Cookie{}}
	w := b.get("/", false)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, b.csrf)
	return b
}

func (b *browser) do(req *http.Request, htmx bool) *httptest.ResponseRecorder {
	for _, c := range b.cookies {
		req.AddCookie(c)
	}
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	w := httptest.NewRecorder()
	b.h.ServeHTTP(w, req)
	for _, c := range w.Result().Cookies() {
		b.cookies[c.Name] = c
	}
	if m := csrfMeta.FindStringSubmatch(w.Body.String()); m != nil {
		b.csrf = m[1]
	}
	return w
}

func (b *browser) get(path string, htmx bool) *httptest.ResponseRecorder {
	return b.do(httptest.NewRequest(http.MethodGet, path, nil), htmx)
}

func (b *browser) post(path string, form url.Values, htmx bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-CSRF-Token", b.csrf)
	return b.do(req, htmx)
}

func ticketForm(date string) url.Values {
	return url.Values{
		"item_type": {"ticket"},
		"ticket_id": {"t1"},
		"club_id":   {"c1"},
		"date":      {date},
		"quantity":  {"2"},
	}
}

func TestHealth(t *testing.T) {
	h, _ := newTestRouter(t)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestHomeAndSearch(t *testing.T) {
	h, fake := newTestRouter(t)
	b := newBrowser(t, h)

	w := b.get("/", false)
	assert.Contains(t, w.Body.String(), "Baum")
	assert.Contains(t, w.Body.String(), "techno, house")

	w = b.get("/clubs?q=baum", true)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "<html")
	assert.Contains(t, w.Body.String(), `href="/clubs/c1"`)

	// cached: no second backend call
	calls := fake.filterCount()
	b.get("/clubs?q=BAUM", true)
	assert.Equal(t, calls, fake.filterCount())

	w = b.get("/clubs?q=nothing", true)
	assert.Contains(t, w.Body.String(), "No clubs match your search.")

	w = b.get("/clubs?q=limited", true)
	assert.Contains(t, w.Body.String(), "Too many searches. Try again in 30s.")
}

func TestClubPage(t *testing.T) {
	h, _ := newTestRouter(t)
	b := newBrowser(t, h)

	w := b.get("/clubs/c1?date=2024-06-01", false)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "<h1>Baum</h1>")
	assert.Contains(t, body, "Techno Night")
	assert.Contains(t, body, `href="https://maps.app.goo.gl/abc"`)
	assert.Contains(t, body, "Bottles")
	assert.Contains(t, body, `value="2024-06-01"`)
	assert.Contains(t, body, "Tickets at Baum")
	assert.Contains(t, body, "VIP table")
	assert.Contains(t, body, "$300,000")
	assert.Contains(t, body, "Sold out")

	w = b.get("/clubs/missing", false)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Club not found")
}

func TestAvailability(t *testing.T) {
	h, _ := newTestRouter(t)
	b := newBrowser(t, h)

	w := b.get("/clubs/c1/availability?date=2024-06-01", true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Early bird")
	assert.Contains(t, w.Body.String(), "$50,000")

	w = b.get("/clubs/c1/availability?date=June", true)
	assert.Contains(t, w.Body.String(), "Please pick a valid date")
}

func TestCartFlow(t *testing.T) {
	h, fake := newTestRouter(t)
	b := newBrowser(t, h)

	w := b.post("/cart/add", ticketForm("2024-06-01"), true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Added to your cart.")
	assert.Equal(t, "cart-updated", w.Header().Get("HX-Trigger"))

	w = b.get("/cart", false)
	assert.Contains(t, w.Body.String(), "Early bird")
	assert.Contains(t, w.Body.String(), `id="cart-count">2<`)

	// another date asks before replacing the cart
	w = b.post("/cart/add", ticketForm("2024-06-02"), true)
	assert.Contains(t, w.Body.String(), `name="confirm_replace" value="1"`)
	assert.Equal(t, 1, fake.lineCount())

	form := ticketForm("2024-06-02")
	form.Set("confirm_replace", "1")
	w = b.post("/cart/add", form, true)
	assert.Contains(t, w.Body.String(), "Added to your cart.")
	fake.mu.Lock()
	assert.Equal(t, 1, fake.clears)
	fake.mu.Unlock()
	assert.Equal(t, 1, fake.lineCount())

	w = b.post("/cart/items/l2", url.Values{"quantity": {"3"}}, true)
	assert.Contains(t, w.Body.String(), "<span>3</span>")
	assert.Contains(t, w.Body.String(), "$150,000")

	w = b.post("/cart/items/l2/remove", nil, true)
	assert.Contains(t, w.Body.String(), "Your cart is empty.")
	assert.Equal(t, 0, fake.lineCount())
}

func TestAddToCartValidation(t *testing.T) {
	h, _ := newTestRouter(t)
	b := newBrowser(t, h)

	form := ticketForm("someday")
	w := b.post("/cart/add", form, true)
	assert.Contains(t, w.Body.String(), "Date: Please pick a valid date")
}

func TestPostWithoutCSRFToken(t *testing.T) {
	h, _ := newTestRouter(t)
	b := newBrowser(t, h)
	b.csrf = "forged"

	w := b.post("/cart/clear", nil, false)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCheckoutFlow(t *testing.T) {
	h, fake := newTestRouter(t)
	b := newBrowser(t, h)

	w := b.get("/checkout", false)
	assert.Equal(t, http.StatusSeeOther, w.Code, "empty cart goes back to the cart")

	b.post("/cart/add", ticketForm("2024-06-01"), true)

	w = b.post("/checkout", url.Values{"email": {"not-an-email"}, "fullName": {"Ana Gomez"}}, false)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "Please enter a valid email address")

	w = b.post("/checkout", url.Values{"email": {"ana@example.com"}, "fullName": {"Ana Gomez"}}, false)
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/checkout/processing/tx-1", w.Header().Get("Location"))

	w = b.get("/checkout/processing/tx-1", false)
	assert.Contains(t, w.Body.String(), `hx-get="/checkout/processing/tx-1/status"`)

	w = b.get("/checkout/processing/tx-1/status", true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "/checkout/success", w.Header().Get("HX-Redirect"))
	assert.Equal(t, 0, fake.lineCount(), "approved payment clears the cart")

	w = b.get("/checkout/success", false)
	body := w.Body.String()
	assert.Contains(t, body, "ana@example.com")
	assert.Contains(t, body, "REF-1")

	w = b.get("/checkout/bogus", false)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCheckoutCallbackForwards(t *testing.T) {
	h, _ := newTestRouter(t)
	b := newBrowser(t, h)

	w := b.get("/checkout/processing?id=tx-9", false)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/checkout/processing/tx-9", w.Header().Get("Location"))
}

func TestLoginFlow(t *testing.T) {
	h, _ := newTestRouter(t)
	b := newBrowser(t, h)

	w := b.post("/auth/login", url.Values{"email": {"ana@example.com"}, "password": {"wrongpass"}}, false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid email or password")

	w = b.post("/auth/login", url.Values{"email": {"ana@example.com"}, "password": {"secret12"}, "next": {"//evil.example"}}, false)
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	w = b.get("/", false)
	assert.Contains(t, w.Body.String(), `<span class="user">Ana</span>`)

	w = b.get("/auth/me", false)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ana@example.com")

	w = b.post("/auth/logout", nil, false)
	assert.Equal(t, http.StatusSeeOther, w.Code)

	w = b.get("/", false)
	assert.NotContains(t, w.Body.String(), `<span class="user">`)
	assert.Contains(t, w.Body.String(), "Sign in")

	w = b.get("/auth/me", false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginThrottled(t *testing.T) {
	h, _ := newTestRouter(t)
	b := newBrowser(t, h)

	for i := 0; i < 5; i++ {
		b.post("/auth/login", url.Values{"email": {"ana@example.com"}, "password": {"wrongpass"}}, false)
	}
	w := b.post("/auth/login", url.Values{"email": {"ana@example.com"}, "password": {"secret12"}}, false)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}
