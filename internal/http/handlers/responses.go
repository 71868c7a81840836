package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/hongminglow/parkshare/internal/apperr"
)

const maxBodyBytes = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.Validation(apperr.ReasonInvalidRequest, "invalid JSON payload")
	}
	return nil
}

func pathID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation(apperr.ReasonInvalidRequest, fmt.Sprintf("invalid spot id %q", raw))
	}
	return id, nil
}

// queryInt returns def when key is absent.
func queryInt(r *http.Request, key string, def int, reason string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.Validation(reason, fmt.Sprintf("%s must be an integer", key))
	}
	return n, nil
}

// queryFloat returns nil when key is absent.
func queryFloat(r *http.Request, key, reason string) (*float64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, apperr.Validation(reason, fmt.Sprintf("%s must be a number", key))
	}
	return &f, nil
}
