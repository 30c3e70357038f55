package settings

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
)

// Store is the persistence the handler and local fetcher sit on.
type Store interface {
	UserSettings(token string) (map[string]string, error)
	SetUserSetting(token, key, value string) error
}

// Handler serves the collaborator interface locally: GET lists the caller's
// pairs, PUT upserts them. Tokens scope the data; there is no user model
// beyond that here.
type Handler struct {
	store  Store
	logger *log.Logger
}

// NewHandler creates a settings handler over the given store.
func NewHandler(store Store, logger *log.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		http.Error(w, "missing bearer token", http.StatusUnauthorized)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.list(w, token)
	case http.MethodPut, http.MethodPost:
		h.upsert(w, r, token)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) list(w http.ResponseWriter, token string) {
	values, err := h.store.UserSettings(token)
	if err != nil {
		h.logger.Error("settings lookup failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	pairs := make([]Pair, 0, len(values))
	for k, v := range values {
		pairs = append(pairs, Pair{Key: k, Value: v})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Key < pairs[j].Key })

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(pairs); err != nil {
		h.logger.Error("settings encode failed", "error", err)
	}
}

func (h *Handler) upsert(w http.ResponseWriter, r *http.Request, token string) {
	var pairs []Pair
	if err := json.NewDecoder(r.Body).Decode(&pairs); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	for _, p := range pairs {
		if p.Key == "" {
			http.Error(w, "empty key", http.StatusBadRequest)
			return
		}
		if err := h.store.SetUserSetting(token, p.Key, p.Value); err != nil {
			h.logger.Error("settings save failed", "key", p.Key, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func bearerToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

// StoreFetcher resolves preferences straight from local storage, skipping
// the HTTP hop when the collaborator lives in the same process.
type StoreFetcher struct {
	store Store
}

// NewStoreFetcher creates a fetcher over the given store.
func NewStoreFetcher(store Store) *StoreFetcher {
	return &StoreFetcher{store: store}
}

// Fetch returns the stored preferences for the token.
func (f *StoreFetcher) Fetch(_ context.Context, token string) (Preferences, error) {
	values, err := f.store.UserSettings(token)
	if err != nil {
		return Preferences{}, err
	}
	pairs := make([]Pair, 0, len(values))
	for k, v := range values {
		pairs = append(pairs, Pair{Key: k, Value: v})
	}
	return fromPairs(pairs), nil
}
