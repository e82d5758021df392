package transferhttp

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/sir_venger/resumable_lite/internal/storage"
	"github.com/sir_venger/resumable_lite/pkg/httperrors"
	"github.com/sir_venger/resumable_lite/pkg/transferproto"
)

// requireArtifactName валидирует имя из пути и пишет 400, если оно недопустимо.
func (a *Server) requireArtifactName(w http.ResponseWriter, r *http.Request) (string, bool) {
	name, err := artifactName(r)
	if err != nil {
		httperrors.Write(w, err)
		return "", false
	}

	return name, true
}

// artifactName достаёт имя артефакта из path-параметра Chi и декодирует percent-escaping.
// Chi матчит по RawPath, если он есть, поэтому декодируем только в этом случае.
func artifactName(r *http.Request) (string, error) {
	name := chi.URLParam(r, "name")
	if r.URL.RawPath != "" {
		decoded, err := url.PathUnescape(name)
		if err != nil {
			return "", fmt.Errorf("%w: %v", transferproto.ErrInvalidName, err)
		}
		name = decoded
	}

	if err := storage.ValidateName(name); err != nil {
		return "", err
	}
	return name, nil
}
