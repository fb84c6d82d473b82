package apitest

import (
	"encoding/json"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/aussiebroadwan/storefront/pkg/commerce"
	"github.com/aussiebroadwan/storefront/pkg/jwtx"
	"github.com/go-chi/chi/v5"
)

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.record)

	r.Route("/api", func(r chi.Router) {
		// Public
		r.Post("/users/login/", s.handleLogin)
		r.Post("/users/signup/", s.handleSignup)
		r.Post("/users/google/auth/", s.handleGoogleAuth)
		r.Post("/users/token/refresh/", s.handleRefresh)
		r.Get("/products/", s.handleProducts)
		r.Get("/products/{id}/", s.handleProduct)
		r.Get("/shipping/zones/", s.handleZones)

		// Guest checkout
		r.With(s.authenticate(true)).Post("/orders/", s.handleCreateOrder)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate(false))

			r.Get("/users/me/", s.handleMe)
			r.Get("/orders/", s.handleListOrders)
			r.Get("/wishlist/", s.handleWishlist)
			r.Post("/wishlist/add/{id}/", s.handleWishlistAdd)
			r.Delete("/wishlist/remove/{id}/", s.handleWishlistRemove)
			r.Get("/wishlist/check/{id}/", s.handleWishlistCheck)
		})
	})

	return r
}

func (s *Server) authPayload(u User) map[string]any {
	access, refresh := s.issueLocked(u.ID)
	return map[string]any{
		"user": userJSON(u),
		"tokens": map[string]string{
			"access":  access,
			"refresh": refresh,
		},
	}
}

func userJSON(u User) map[string]any {
	id, _ := strconv.Atoi(u.ID)
	return map[string]any{
		"id":       id,
		"username": u.Username,
		"nom_cli":  u.Name,
		"email":    u.Email,
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"nom_cli"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "malformed body"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[req.Name]
	if !ok || u.Password != req.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Invalid credentials"})
		return
	}
	writeJSON(w, http.StatusOK, s.authPayload(u))
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"nom_cli"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "malformed body"})
		return
	}
	if req.Email == "" {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"email": {"This field is required."}})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[req.Name]; exists {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"nom_cli": {"A user with that name already exists."}})
		return
	}
	u := User{
		ID:       strconv.Itoa(len(s.users) + 1),
		Name:     req.Name,
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	}
	s.users[u.Name] = u
	writeJSON(w, http.StatusCreated, s.authPayload(u))
}

func (s *Server) handleGoogleAuth(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Credential string `json:"credential"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Credential == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing Google credential"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == req.Credential {
			writeJSON(w, http.StatusOK, s.authPayload(u))
			return
		}
	}
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid Google token"})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Refresh string `json:"refresh"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	s.mu.Lock()
	s.refreshCalls++
	delay, fail := s.refreshDelay, s.refreshFail
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	claims, err := jwtx.VerifyHS256(req.Refresh, s.secret)
	if fail || err != nil || claims.ValidateTokenType(jwtx.TokenTypeRefresh) != nil {
		writeTokenError(w, "Token is invalid or expired")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.revoked[req.Refresh] {
		writeTokenError(w, "Token is blacklisted")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"access": s.mintAccessLocked(claims)})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	id := userIDFrom(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID == id {
			writeJSON(w, http.StatusOK, userJSON(u))
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
}

func (s *Server) findProduct(id commerce.ID) (commerce.Product, bool) {
	for _, p := range s.products {
		if p.ID == id {
			return p, true
		}
	}
	return commerce.Product{}, false
}

func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(s.products),
		"results": s.products,
	})
}

func (s *Server) handleProduct(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.findProduct(commerce.ID(chi.URLParam(r, "id")))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleZones(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, []map[string]any{
		{"id": 1, "name": "Dakar", "cities": []string{"Dakar", "Pikine"}, "shipping_fee": "2000.00", "delivery_days": 1},
		{"id": 2, "name": "Regions", "cities": []string{"Thies", "Saint-Louis"}, "shipping_fee": "3500.00", "delivery_days": 3},
	})
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req map[string]any
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "malformed body"})
		return
	}
	if items, _ := req["items"].([]any); len(items) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"items": {"This list may not be empty."}})
		return
	}
	req["user"] = userIDFrom(r)

	s.mu.Lock()
	s.orders = append(s.orders, req)
	id := len(s.orders)
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":           id,
		"status":       "pending",
		"total_amount": "0.00",
		"created_at":   time.Now().UTC(),
	})
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	id := userIDFrom(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	out := []map[string]any{}
	for i, o := range s.orders {
		if o["user"] == id {
			out = append(out, map[string]any{"id": i + 1, "status": "pending", "total_amount": "0.00"})
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleWishlist(w http.ResponseWriter, r *http.Request) {
	id := userIDFrom(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	out := []commerce.Product{}
	for _, pid := range s.wishlists[id] {
		if p, ok := s.findProduct(pid); ok {
			out = append(out, p)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleWishlistAdd(w http.ResponseWriter, r *http.Request) {
	id := userIDFrom(r)
	pid := commerce.ID(chi.URLParam(r, "id"))

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.findProduct(pid); !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	if !slices.Contains(s.wishlists[id], pid) {
		s.wishlists[id] = append(s.wishlists[id], pid)
	}
	writeJSON(w, http.StatusCreated, map[string]string{"message": "Product added to wishlist"})
}

func (s *Server) handleWishlistRemove(w http.ResponseWriter, r *http.Request) {
	id := userIDFrom(r)
	pid := commerce.ID(chi.URLParam(r, "id"))

	s.mu.Lock()
	defer s.mu.Unlock()
	s.wishlists[id] = slices.DeleteFunc(s.wishlists[id], func(v commerce.ID) bool { return v == pid })
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleWishlistCheck(w http.ResponseWriter, r *http.Request) {
	id := userIDFrom(r)
	pid := commerce.ID(chi.URLParam(r, "id"))

	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]bool{"in_wishlist": slices.Contains(s.wishlists[id], pid)})
}
