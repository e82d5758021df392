package transferhttp

import (
	"encoding/json"
	"net/http"
)

// health возвращает агрегированную статистику по сохранённым артефактам.
func (a *Server) health(w http.ResponseWriter, r *http.Request) {
	stats, err := a.svc.Health(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err = json.NewEncoder(w).Encode(stats); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}
