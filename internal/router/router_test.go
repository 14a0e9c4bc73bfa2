package router

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"storefront/internal/apiclient"
	"storefront/internal/handler"
	"storefront/internal/notify"
	"storefront/internal/session"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

// fakeShop is an in-memory stand-in for the remote shop API.
type fakeShop struct {
	mu    sync.Mutex
	calls   map[string]int
	cart    []map[string]any
	updates []url.Values
}

func newFakeShop() *fakeShop {
	return &fakeShop{
		calls: map[string]int{},
		cart: []map[string]any{{
			"id":       5,
			"quantity": 2,
			"Product":  map[string]any{"id": 1, "name": "Trail Runner", "price": "50", "quantity": 10},
		}},
	}
}

func (f *fakeShop) count(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

func (f *fakeShop) handler() http.Handler {
	users := map[string]string{
		"customer@example.com": "customer",
		"staff@example.com":    "staff",
		"admin@example.com":    "admin",
	}
	products := []map[string]any{
		{"id": 1, "name": "Trail Runner", "price": "50", "quantity": 10, "category": "Shoes"},
		{"id": 2, "name": "Rain Jacket", "price": "80", "finalPrice": "60", "quantity": 3, "category": "Outerwear", "promotionId": 9,
			"promotion": map[string]any{"id": 9, "title": "Spring", "discount": 25}},
	}

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			f.mu.Lock()
			f.calls[req.Method+" "+req.URL.Path]++
			f.mu.Unlock()
			next.ServeHTTP(w, req)
		})
	})
	authed := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, req *http.Request) {
			if !strings.HasPrefix(req.Header.Get("Authorization"), "Bearer tok-") {
				writeTestJSON(w, http.StatusUnauthorized, map[string]string{"message": "Unauthorized"})
				return
			}
			next(w, req)
		}
	}

	r.Post("/api/auth/login", func(w http.ResponseWriter, req *http.Request) {
		var creds struct{ Email, Password string }
		_ = json.NewDecoder(req.Body).Decode(&creds)
		role, ok := users[creds.Email]
		if !ok || creds.Password != "secret" {
			writeTestJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid credentials"})
			return
		}
		writeTestJSON(w, http.StatusOK, map[string]any{
			"token": "tok-" + role,
			"user":  map[string]any{"id": 7, "name": "Test " + role, "email": creds.Email, "role": role},
		})
	})
	r.Get("/api/auth/me", authed(func(w http.ResponseWriter, req *http.Request) {
		writeTestJSON(w, http.StatusOK, map[string]string{"name": "Test customer", "email": "customer@example.com"})
	}))
	r.Get("/api/categories", func(w http.ResponseWriter, req *http.Request) {
		writeTestJSON(w, http.StatusOK, []map[string]any{{"id": 1, "name": "Shoes"}, {"id": 2, "name": "Outerwear"}})
	})
	r.Get("/api/products", func(w http.ResponseWriter, req *http.Request) {
		writeTestJSON(w, http.StatusOK, products)
	})
	r.Get("/api/products/{id}", func(w http.ResponseWriter, req *http.Request) {
		for _, p := range products {
			if chi.URLParam(req, "id") == jsonString(p["id"]) {
				writeTestJSON(w, http.StatusOK, p)
				return
			}
		}
		writeTestJSON(w, http.StatusNotFound, map[string]string{"message": "Product not found"})
	})
	r.Put("/api/products/{id}", authed(func(w http.ResponseWriter, req *http.Request) {
		if err := req.ParseMultipartForm(1 << 20); err != nil {
			writeTestJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
			return
		}
		f.mu.Lock()
		f.updates = append(f.updates, url.Values(req.MultipartForm.Value))
		f.mu.Unlock()
		writeTestJSON(w, http.StatusOK, map[string]string{"message": "ok"})
	}))
	r.Get("/api/promotions", authed(func(w http.ResponseWriter, req *http.Request) {
		writeTestJSON(w, http.StatusOK, []map[string]any{})
	}))
	r.Get("/api/cart", authed(func(w http.ResponseWriter, req *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		writeTestJSON(w, http.StatusOK, map[string]any{"items": f.cart})
	}))
	r.Post("/api/cart", authed(func(w http.ResponseWriter, req *http.Request) {
		writeTestJSON(w, http.StatusCreated, map[string]string{"message": "ok"})
	}))
	r.Put("/api/cart/{id}", authed(func(w http.ResponseWriter, req *http.Request) {
		writeTestJSON(w, http.StatusOK, map[string]string{"message": "ok"})
	}))
	r.Get("/api/userAddress", authed(func(w http.ResponseWriter, req *http.Request) {
		writeTestJSON(w, http.StatusOK, []map[string]any{
			{"id": 1, "phone": "0900000001", "province": "North", "district": "Central", "ward": "Ward 1", "detailAddress": "1 Main St", "isDefault": true},
		})
	}))
	r.Post("/api/orders", authed(func(w http.ResponseWriter, req *http.Request) {
		f.mu.Lock()
		f.cart = nil
		f.mu.Unlock()
		writeTestJSON(w, http.StatusCreated, map[string]any{"id": 42, "status": "pending", "paymentMethod": "cod", "totalAmount": "100"})
	}))
	r.Get("/api/orders/my", authed(func(w http.ResponseWriter, req *http.Request) {
		writeTestJSON(w, http.StatusOK, []map[string]any{})
	}))
	return r
}

func writeTestJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonString(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}

type testClient struct {
	t      *testing.T
	base   string
	client *http.Client
}

func setup(t *testing.T) (*testClient, *fakeShop) {
	t.Helper()
	logger := zerolog.Nop()

	shop := newFakeShop()
	apiServer := httptest.NewServer(shop.handler())
	t.Cleanup(apiServer.Close)

	api, err := apiclient.New(apiServer.URL+"/api", apiServer.Client(), logger)
	require.NoError(t, err)

	templates := handler.NewTemplateCache("http://images.test")
	require.NoError(t, templates.Load())

	handlers := NewHandlers(handler.Deps{
		Templates:     templates,
		CheckoutDelay: 2 * time.Second,
	}, logger)
	store := session.NewCookieStore(testKey, session.Options{MaxAge: 3600})
	composer := handler.NewComposer(store, "test-session", api, notify.SystemClock, logger)

	srv := httptest.NewServer(New(handlers, composer, Options{
		CSRFKey:      testKey,
		MetricsToken: "metrics-secret",
	}, logger))
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &testClient{
		t:    t,
		base: srv.URL,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}, shop
}

func (c *testClient) get(path string) (*http.Response, string) {
	c.t.Helper()
	resp, err := c.client.Get(c.base + path)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	return resp, string(body)
}

var csrfField = regexp.MustCompile(`name="gorilla.csrf.Token" value="([^"]+)"`)

// post submits form with the CSRF token of the page at from.
func (c *testClient) post(from, path string, form url.Values) (*http.Response, string) {
	c.t.Helper()
	_, page := c.get(from)
	m := csrfField.FindStringSubmatch(page)
	require.Len(c.t, m, 2, "no CSRF token on %s", from)
	if form == nil {
		form = url.Values{}
	}
	form.Set("gorilla.csrf.Token", m[1])

	resp, err := c.client.PostForm(c.base+path, form)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	return resp, string(body)
}

func (c *testClient) login(email string) *http.Response {
	c.t.Helper()
	resp, _ := c.post("/login", "/login", url.Values{"email": {email}, "password": {"secret"}})
	return resp
}

func TestRouter_Health(t *testing.T) {
	c, _ := setup(t)
	resp, body := c.get("/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status": "healthy"}`, body)
}

func TestRouter_MetricsRequiresToken(t *testing.T) {
	c, _ := setup(t)
	resp, _ := c.get("/metrics")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, c.base+"/metrics", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer metrics-secret")
	ok, err := c.client.Do(req)
	require.NoError(t, err)
	ok.Body.Close()
	assert.Equal(t, http.StatusOK, ok.StatusCode)
}

func TestRouter_HomeRendersCatalogue(t *testing.T) {
	c, _ := setup(t)
	resp, body := c.get("/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Rain Jacket")
	assert.Contains(t, body, "-25%")
	assert.Contains(t, body, "/collections?category=Shoes")
	assert.Contains(t, resp.Header.Get("Content-Security-Policy"), "default-src 'self'")
}

func TestRouter_CollectionsFilterIgnoresCase(t *testing.T) {
	c, _ := setup(t)
	_, body := c.get("/collections?category=shoes")
	assert.Contains(t, body, "Trail Runner")
	assert.NotContains(t, body, `alt="Rain Jacket"`)
}

func TestRouter_UnknownProductIs404(t *testing.T) {
	c, _ := setup(t)
	resp, _ := c.get("/products/999")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = c.get("/no/such/page")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRouter_GuardRedirectsAnonymous(t *testing.T) {
	tests := []struct {
		path     string
		location string
	}{
		{"/checkout", "/login?next=%2Fcheckout"},
		{"/orders/my", "/login?next=%2Forders%2Fmy"},
		{"/admin/dashboard", "/login?next=%2Fadmin%2Fdashboard"},
		{"/manage/products", "/login?next=%2Fmanage%2Fproducts"},
	}

	c, _ := setup(t)
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, _ := c.get(tt.path)
			assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
			assert.Equal(t, tt.location, resp.Header.Get("Location"))
		})
	}
}

func TestRouter_RoleRedirects(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		path     string
		location string
		status   int
	}{
		{"customer denied admin", "customer@example.com", "/admin/dashboard", "/", http.StatusSeeOther},
		{"customer denied management", "customer@example.com", "/manage/orders", "/", http.StatusSeeOther},
		{"staff denied admin", "staff@example.com", "/admin/promotions", "/staff/dashboard", http.StatusSeeOther},
		{"admin denied nothing", "admin@example.com", "/staff/dashboard", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := setup(t)
			require.Equal(t, http.StatusSeeOther, c.login(tt.email).StatusCode)

			resp, _ := c.get(tt.path)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.location, resp.Header.Get("Location"))
		})
	}
}

func TestRouter_LoginLandsOnRoleHome(t *testing.T) {
	tests := map[string]string{
		"customer@example.com": "/",
		"staff@example.com":    "/staff/dashboard",
		"admin@example.com":    "/admin/dashboard",
	}
	for email, landing := range tests {
		t.Run(email, func(t *testing.T) {
			c, _ := setup(t)
			resp := c.login(email)
			assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
			assert.Equal(t, landing, resp.Header.Get("Location"))
		})
	}
}

func TestRouter_LoginReturnsToNext(t *testing.T) {
	c, _ := setup(t)
	resp, _ := c.post("/login?next=/checkout", "/login", url.Values{
		"email":    {"customer@example.com"},
		"password": {"secret"},
		"next":     {"/checkout"},
	})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/checkout", resp.Header.Get("Location"))
}

func TestRouter_LoginFailureShowsServerMessage(t *testing.T) {
	c, _ := setup(t)
	resp, body := c.post("/login", "/login", url.Values{
		"email":    {"customer@example.com"},
		"password": {"wrong"},
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, body, "Invalid credentials")
}

func TestRouter_PostWithoutCSRFTokenIsForbidden(t *testing.T) {
	c, shop := setup(t)
	resp, err := c.client.PostForm(c.base+"/login", url.Values{
		"email":    {"customer@example.com"},
		"password": {"secret"},
	})
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Zero(t, shop.count("POST /api/auth/login"))
}

func TestRouter_CartQuantityBelowOneIsRejectedLocally(t *testing.T) {
	c, shop := setup(t)
	c.login("customer@example.com")

	resp, _ := c.post("/cart", "/cart/5/quantity", url.Values{"quantity": {"0"}})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/cart", resp.Header.Get("Location"))
	assert.Zero(t, shop.count("PUT /api/cart/5"))

	// The notification survives the redirect.
	_, body := c.get("/cart")
	assert.Contains(t, body, "Quantity must be at least 1")
}

func TestRouter_AddToCartRequiresLogin(t *testing.T) {
	c, shop := setup(t)
	resp, _ := c.post("/products/1", "/products/1/cart", url.Values{"quantity": {"1"}})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login?next=%2Fproducts%2F1", resp.Header.Get("Location"))
	assert.Zero(t, shop.count("POST /api/cart"))
}

func TestRouter_BuyNowGoesToCart(t *testing.T) {
	c, shop := setup(t)
	c.login("customer@example.com")

	resp, _ := c.post("/products/1", "/products/1/cart", url.Values{"quantity": {"2"}, "buy_now": {"1"}})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/cart", resp.Header.Get("Location"))
	assert.Equal(t, 1, shop.count("POST /api/cart"))
}

func TestRouter_Checkout(t *testing.T) {
	c, shop := setup(t)
	c.login("customer@example.com")

	resp, body := c.get("/checkout")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `value="0900000001"`)
	assert.Contains(t, body, `value="Test customer"`)
	assert.Contains(t, body, "Trail Runner")

	form := url.Values{
		"name":          {"Test customer"},
		"email":         {"customer@example.com"},
		"phone":         {"0900000001"},
		"province":      {"North"},
		"district":      {"Central"},
		"ward":          {"Ward 1"},
		"detailAddress": {"1 Main St"},
	}

	// No payment method: rejected before any order call.
	resp, body = c.post("/checkout", "/checkout", form)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body, "Please choose a payment method")
	assert.Zero(t, shop.count("POST /api/orders"))

	form.Set("paymentMethod", "cod")
	resp, body = c.post("/checkout", "/checkout", form)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, shop.count("POST /api/orders"))
	assert.Contains(t, body, "url=/orders/my")
	assert.Contains(t, body, "Order placed successfully")
	assert.Contains(t, body, "Cart (0)")
}

func TestRouter_LogoutEndsSession(t *testing.T) {
	c, _ := setup(t)
	c.login("customer@example.com")

	resp, _ := c.get("/orders/my")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = c.post("/", "/logout", nil)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	resp, _ = c.get("/orders/my")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
}

func TestRouter_ProductUpdatePromotion(t *testing.T) {
	tests := []struct {
		name      string
		email     string
		submitted string
		want      string
	}{
		{"admin detaches promotion", "admin@example.com", "", ""},
		{"admin assigns promotion", "admin@example.com", "3", "3"},
		{"staff keeps current promotion", "staff@example.com", "", "9"},
		{"staff cannot change promotion", "staff@example.com", "3", "9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, shop := setup(t)
			c.login(tt.email)

			resp, _ := c.post("/manage/products/2/edit", "/manage/products/2", url.Values{
				"name":        {"Rain Jacket"},
				"price":       {"80"},
				"quantity":    {"3"},
				"category":    {"Outerwear"},
				"promotionId": {tt.submitted},
			})
			assert.Equal(t, http.StatusSeeOther, resp.StatusCode)

			shop.mu.Lock()
			defer shop.mu.Unlock()
			require.Len(t, shop.updates, 1)
			got, sent := shop.updates[0]["promotionId"]
			require.True(t, sent, "promotionId must always be sent")
			assert.Equal(t, []string{tt.want}, got)
		})
	}
}
