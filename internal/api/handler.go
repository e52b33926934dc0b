package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"pharmadesk/m/domain"
	"pharmadesk/m/internal/store"
)

// Handler bundles dependencies for HTTP handlers.
type Handler struct {
	allocator *store.SerialAllocator
	catalog   *store.ProductCatalog
	ledger    *store.SalesLedger
	billing   *store.BillingEngine
	settings  *store.Settings
	secret    string
	logger    zerolog.Logger
}

// New constructs a Handler.
func New(
	allocator *store.SerialAllocator,
	catalog *store.ProductCatalog,
	ledger *store.SalesLedger,
	billing *store.BillingEngine,
	settings *store.Settings,
	secret string,
	logger zerolog.Logger,
) *Handler {
	return &Handler{
		allocator: allocator,
		catalog:   catalog,
		ledger:    ledger,
		billing:   billing,
		settings:  settings,
		secret:    secret,
		logger:    logger.With().Str("component", "api").Logger(),
	}
}

// Router wires up the HTTP API.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}))
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.health)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.login)
		r.Group(func(protected chi.Router) {
			protected.Use(h.authMiddleware)
			protected.Post("/password", h.changePassword)
		})
	})

	r.Group(func(pr chi.Router) {
		pr.Use(h.authMiddleware)

		pr.Post("/serials", h.allocateSerial)

		pr.Route("/products", func(r chi.Router) {
			r.Get("/", h.listProducts)
			r.Post("/", h.addProduct)
			r.Get("/duplicates", h.findDuplicates)
			r.Get("/expiry-alert", h.expiryAlerts)
			r.Get("/expired", h.expiredProducts)
			r.Get("/companies", h.listCompanies)
			r.Get("/distributors", h.listDistributors)
			r.Get("/{serial}", h.getProduct)
			r.Put("/{serial}", h.updateProduct)
			r.Post("/{serial}/stock", h.updateStock)
		})

		pr.Post("/bills", h.recordBill)
		pr.Get("/sales", h.listSales)

		pr.Route("/reports", func(r chi.Router) {
			r.Get("/sales/today", h.todaySummary)
			r.Get("/sales/monthly", h.monthlyTotals)
			r.Get("/sales/top", h.topSelling)
		})

		pr.Route("/settings", func(r chi.Router) {
			r.Get("/theme", h.getTheme)
			r.Put("/theme", h.setTheme)
		})
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Authentication

type authClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func (h *Handler) generateToken() (string, error) {
	claims := authClaims{
		Role: "owner",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.secret))
}

func (h *Handler) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			respondError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		tokenString := strings.TrimSpace(header[len("Bearer "):])
		token, err := jwt.ParseWithClaims(tokenString, &authClaims{}, func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwt.SigningMethodHS256 {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(h.secret), nil
		})
		if err != nil || !token.Valid {
			respondError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type loginRequest struct {
	Password string `json:"password"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	ok, err := h.settings.VerifyPassword(r.Context(), req.Password)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to verify password")
		return
	}
	if !ok {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	token, err := h.generateToken()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to generate token")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		NewPassword string `json:"new_password"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.settings.UpdatePassword(r.Context(), payload.NewPassword); err != nil {
		h.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "password updated"})
}

// Serial allocation

func (h *Handler) allocateSerial(w http.ResponseWriter, r *http.Request) {
	serial, err := h.allocator.Next(r.Context())
	if err != nil {
		h.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]int64{"serial": serial})
}

// Product handlers

func serialParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "serial"), 10, 64)
}

func (h *Handler) addProduct(w http.ResponseWriter, r *http.Request) {
	var p domain.Product
	if err := decodeJSON(r, &p); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.catalog.Add(r.Context(), &p); err != nil {
		h.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, p)
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	serial, err := serialParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid product serial")
		return
	}
	var p domain.Product
	if err := decodeJSON(r, &p); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	p.Serial = serial
	if err := h.catalog.Update(r.Context(), &p); err != nil {
		h.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	serial, err := serialParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid product serial")
		return
	}
	p, err := h.catalog.GetBySerial(r.Context(), serial)
	if err != nil {
		h.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.ListAll(r.Context())
	if err != nil {
		h.respondStoreError(w, err)
		return
	}
	if products == nil {
		products = []domain.Product{}
	}
	respondJSON(w, http.StatusOK, products)
}

func (h *Handler) updateStock(w http.ResponseWriter, r *http.Request) {
	serial, err := serialParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid product serial")
		return
	}
	var payload struct {
		Quantity int64 `json:"quantity"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.catalog.UpdateQuantity(r.Context(), serial, payload.Quantity); err != nil {
		h.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "stock updated"})
}

func (h *Handler) findDuplicates(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	batch := strings.TrimSpace(r.URL.Query().Get("batch"))
	if name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}
	products, err := h.catalog.FindDuplicates(r.Context(), name, batch)
	if err != nil {
		h.respondStoreError(w, err)
		return
	}
	if products == nil {
		products = []domain.Product{}
	}
	respondJSON(w, http.StatusOK, products)
}

func (h *Handler) expiryAlerts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.ExpiringSoon(r.Context(), domain.Today())
	if err != nil {
		h.respondStoreError(w, err)
		return
	}
	if products == nil {
		products = []domain.Product{}
	}
	respondJSON(w, http.StatusOK, products)
}

func (h *Handler) expiredProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.Expired(r.Context(), domain.Today())
	if err != nil {
		h.respondStoreError(w, err)
		return
	}
	if products == nil {
		products = []domain.Product{}
	}
	respondJSON(w, http.StatusOK, products)
}

func (h *Handler) listCompanies(w http.ResponseWriter, r *http.Request) {
	values, err := h.catalog.DistinctCompanies(r.Context())
	if err != nil {
		h.respondStoreError(w, err)
		return
	}
	if values == nil {
		values = []string{}
	}
	respondJSON(w, http.StatusOK, values)
}

func (h *Handler) listDistributors(w http.ResponseWriter, r *http.Request) {
	values, err := h.catalog.DistinctDistributors(r.Context())
	if err != nil {
		h.respondStoreError(w, err)
		return
	}
	if values == nil {
		values = []string{}
	}
	respondJSON(w, http.StatusOK, values)
}

// Billing

type billRequest struct {
	SaleDate domain.Date       `json:"sale_date"`
	Lines    []domain.BillLine `json:"lines"`
}

func (h *Handler) recordBill(w http.ResponseWriter, r *http.Request) {
	var req billRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.SaleDate.IsZero() {
		req.SaleDate = domain.Today()
	}
	result, err := h.billing.RecordBill(r.Context(), req.SaleDate, req.Lines)
	if err != nil {
		h.respondStoreError(w, err)
		return
	}
	if result.Warnings == nil {
		result.Warnings = []domain.LowStockWarning{}
	}
	respondJSON(w, http.StatusCreated, result)
}

// Sales and reports

func (h *Handler) listSales(w http.ResponseWriter, r *http.Request) {
	sales, err := h.ledger.GetAll(r.Context())
	if err != nil {
		h.respondStoreError(w, err)
		return
	}
	if sales == nil {
		sales = []domain.Sale{}
	}
	respondJSON(w, http.StatusOK, sales)
}

func (h *Handler) todaySummary(w http.ResponseWriter, r *http.Request) {
	date := domain.Today()
	if raw := strings.TrimSpace(r.URL.Query().Get("date")); raw != "" {
		parsed, err := domain.ParseDate(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "date must be in YYYY-MM-DD format")
			return
		}
		date = parsed
	}
	summary, err := h.ledger.TodaySummary(r.Context(), date)
	if err != nil {
		h.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

func (h *Handler) monthlyTotals(w http.ResponseWriter, r *http.Request) {
	totals, err := h.ledger.MonthlyTotals(r.Context())
	if err != nil {
		h.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"totals": totals})
}

func (h *Handler) topSelling(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 5
	}
	sellers, err := h.ledger.TopSelling(r.Context(), limit)
	if err != nil {
		h.respondStoreError(w, err)
		return
	}
	if sellers == nil {
		sellers = []domain.TopSeller{}
	}
	respondJSON(w, http.StatusOK, sellers)
}

// Settings

func (h *Handler) getTheme(w http.ResponseWriter, r *http.Request) {
	theme, err := h.settings.Theme(r.Context())
	if err != nil {
		h.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"theme": theme})
}

func (h *Handler) setTheme(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Theme string `json:"theme"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.settings.SetTheme(r.Context(), payload.Theme); err != nil {
		h.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"theme": payload.Theme})
}

// respondStoreError maps engine errors onto HTTP statuses: validation
// 400, unknown serial 404, stock and duplicate-serial conflicts 409,
// everything else an opaque 500.
func (h *Handler) respondStoreError(w http.ResponseWriter, err error) {
	var (
		validationErr  *store.ValidationError
		outOfStock     *store.OutOfStockError
		notEnoughStock *store.InsufficientStockError
	)
	switch {
	case errors.As(err, &validationErr), errors.Is(err, store.ErrEmptyBill):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrProductNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &outOfStock), errors.As(err, &notEnoughStock):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, store.ErrDuplicateSerial):
		respondError(w, http.StatusConflict, "serial number conflict: edit the existing product instead")
	default:
		h.logger.Error().Err(err).Msg("storage error")
		respondError(w, http.StatusInternalServerError, "internal storage error")
	}
}

// Helpers

func decodeJSON(r *http.Request, dest interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	_ = encoder.Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
