package httpserver

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"nextflow/internal/auth"
	"nextflow/internal/dashboard"
	"nextflow/internal/messaging"
	"nextflow/internal/panel"
	"nextflow/internal/repo"
)

type resourceOpts struct {
	// itemRoutes enables GET/PUT/DELETE on /{entity}/{id}.
	itemRoutes bool
	// filters maps accepted query parameters to filterable fields.
	filters []string
}

func (s *Server) routes(api *mux.Router) {
	// Supplementary routes first so /messages/send is not read as an id.
	api.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)
	api.HandleFunc("/auth/register", s.handleRegister).Methods(http.MethodPost)
	api.HandleFunc("/dashboard", s.handleDashboard).Methods(http.MethodGet)
	api.HandleFunc("/messages/send", s.handleSendMessages).Methods(http.MethodPost)
	api.HandleFunc("/servers/{id}/panel/{action}", s.handlePanel).Methods(http.MethodPost)

	store := s.deps.Store
	if store == nil {
		return
	}
	mount(s, api, "users", store.Users(), resourceOpts{itemRoutes: true, filters: []string{"email", "role", "status"}})
	mount(s, api, "plans", store.Plans(), resourceOpts{itemRoutes: true, filters: []string{"status"}})
	mount(s, api, "clients", store.Clients(), resourceOpts{itemRoutes: true, filters: []string{"status", "planId"}})
	mount(s, api, "invoices", store.Invoices(), resourceOpts{itemRoutes: true, filters: []string{"status", "clientId"}})
	mount(s, api, "servers", store.Servers(), resourceOpts{itemRoutes: true, filters: []string{"type", "status"}})
	mount(s, api, "templates", store.Templates(), resourceOpts{itemRoutes: true, filters: []string{"category"}})
	mount(s, api, "messages", store.Messages(), resourceOpts{filters: []string{"clientId", "status"}})
	mount(s, api, "transactions", store.Transactions(), resourceOpts{filters: []string{"type"}})
}

// mount registers the CRUD routes for one entity.
func mount[T any](s *Server, api *mux.Router, entity string, access repo.Access[T], opts resourceOpts) {
	collection := "/" + entity
	item := collection + "/{id}"

	api.HandleFunc(collection, func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		for _, field := range opts.filters {
			if value := query.Get(field); value != "" {
				rows, err := access.Filter(r.Context(), field, value)
				if err != nil {
					s.fail(w, err)
					return
				}
				writeJSON(w, http.StatusOK, rows)
				return
			}
		}
		rows, err := access.GetAll(r.Context())
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rows)
	}).Methods(http.MethodGet)

	api.HandleFunc(collection, func(w http.ResponseWriter, r *http.Request) {
		fields, err := decodeFields(r)
		if err != nil {
			s.fail(w, err)
			return
		}
		id, err := access.Create(r.Context(), fields)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"success": true, "id": id})
	}).Methods(http.MethodPost)

	if !opts.itemRoutes {
		return
	}

	api.HandleFunc(item, func(w http.ResponseWriter, r *http.Request) {
		row, err := access.GetByID(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, row)
	}).Methods(http.MethodGet)

	api.HandleFunc(item, func(w http.ResponseWriter, r *http.Request) {
		fields, err := decodeFields(r)
		if err != nil {
			s.fail(w, err)
			return
		}
		if err := access.Update(r.Context(), mux.Vars(r)["id"], fields); err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}).Methods(http.MethodPut)

	api.HandleFunc(item, func(w http.ResponseWriter, r *http.Request) {
		if err := access.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}).Methods(http.MethodDelete)
}

// fail reports err as a 500 with its message, the router's single error shape.
func (s *Server) fail(w http.ResponseWriter, err error) {
	s.logger.Warn("request failed", "error", err)
	if s.metrics != nil {
		s.metrics.Errors.WithLabelValues("http").Inc()
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

// decodeFields reads the whole body as one JSON object. An empty body is {}.
func decodeFields(r *http.Request) (repo.Fields, error) {
	fields := repo.Fields{}
	if err := decodeBody(r, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

func decodeBody(r *http.Request, dest any) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(dest); err != nil {
		return fmt.Errorf("malformed request body: %w", err)
	}
	if dec.More() {
		return errors.New("malformed request body: trailing data")
	}
	return nil
}

type publicUser struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	Status    string `json:"status"`
	CreatedAt string `json:"createdAt"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.deps.Auth == nil {
		writeError(w, http.StatusServiceUnavailable, "auth unavailable")
		return
	}
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, err)
		return
	}
	user, err := s.deps.Auth.Login(r.Context(), req.Email, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, publicUser{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Role:      user.Role,
		Status:    user.Status,
		CreatedAt: user.CreatedAt,
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if s.deps.Auth == nil {
		writeError(w, http.StatusServiceUnavailable, "auth unavailable")
		return
	}
	var req auth.RegisterRequest
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, err)
		return
	}
	id, err := s.deps.Auth.Register(r.Context(), req)
	switch {
	case errors.Is(err, auth.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrEmailTaken):
		writeError(w, http.StatusConflict, err.Error())
	case err != nil:
		s.fail(w, err)
	default:
		writeJSON(w, http.StatusCreated, map[string]any{"success": true, "id": id})
	}
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if s.deps.Store == nil {
		writeError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	summary, err := dashboard.Summarize(r.Context(), s.deps.Store)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleSendMessages(w http.ResponseWriter, r *http.Request) {
	if s.deps.Messaging == nil {
		writeError(w, http.StatusServiceUnavailable, "messaging unavailable")
		return
	}
	var req messaging.Request
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, err)
		return
	}
	results, err := s.deps.Messaging.Send(r.Context(), req)
	switch {
	case errors.Is(err, messaging.ErrNoRecipients), errors.Is(err, messaging.ErrEmptyMessage):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, messaging.ErrTemplateNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case err != nil:
		s.fail(w, err)
	default:
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "results": results})
	}
}

// handlePanel forwards an action to the subscriber panel using the server row's credentials.
func (s *Server) handlePanel(w http.ResponseWriter, r *http.Request) {
	if s.deps.Panel == nil || s.deps.Store == nil {
		writeError(w, http.StatusServiceUnavailable, "panel integration unavailable")
		return
	}
	vars := mux.Vars(r)
	server, err := s.deps.Store.Servers().GetByID(r.Context(), vars["id"])
	if err != nil {
		s.fail(w, err)
		return
	}
	if server == nil {
		writeError(w, http.StatusNotFound, "server not found")
		return
	}

	payload := map[string]any{}
	if err := decodeBody(r, &payload); err != nil {
		s.fail(w, err)
		return
	}

	creds := panel.Credentials{Token: server.Token, Secret: server.Secret}
	if server.URL != nil {
		creds.BaseURL = *server.URL
	}
	data, err := s.deps.Panel.Do(r.Context(), creds, vars["action"], payload)
	switch {
	case errors.Is(err, panel.ErrUnknownOperation):
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error(), "operations": panel.Operations()})
	case err != nil:
		s.logger.Warn("panel call failed", "server_id", server.ID, "action", vars["action"], "error", err)
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": data})
	}
}
