package transferhttp

import (
	"net/http"
	"strconv"

	"github.com/sir_venger/resumable_lite/pkg/httperrors"
	"github.com/sir_venger/resumable_lite/pkg/transferproto"
)

// inspectUpload отвечает на HEAD сохранённым размером, по которому клиент продолжает загрузку.
func (a *Server) inspectUpload(w http.ResponseWriter, r *http.Request) {
	name, ok := a.requireArtifactName(w, r)
	if !ok {
		return
	}

	info, err := a.svc.Stat(r.Context(), name)
	if err != nil {
		httperrors.Write(w, err)
		return
	}

	size := strconv.FormatInt(info.Size, 10)
	w.Header().Set("Content-Length", size)
	w.Header().Set(transferproto.HeaderStoredSize, size)
	w.Header().Set(transferproto.HeaderAcceptRanges, transferproto.RangeUnitBytes)
	w.WriteHeader(http.StatusOK)
}
