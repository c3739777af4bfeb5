package www

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
)

const customerCookie = "fuelninja_customer"

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"ok": false, "error": msg})
}

func readJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// customerID returns the anonymous customer identity from the request
// cookie. When assign is true and no cookie exists, a new identity is
// minted and set on the response.
func customerID(w http.ResponseWriter, r *http.Request, assign bool) string {
	if c, err := r.Cookie(customerCookie); err == nil && c.Value != "" {
		return c.Value
	}
	if !assign {
		return ""
	}
	id := uuid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     customerCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   365 * 24 * 3600,
	})
	return id
}
