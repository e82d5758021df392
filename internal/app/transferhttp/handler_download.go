package transferhttp

import (
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/sir_venger/resumable_lite/pkg/httperrors"
	"github.com/sir_venger/resumable_lite/pkg/transferproto"
)

// download обслуживает GET/HEAD: целиком (200) или диапазон из Range (206).
func (a *Server) download(w http.ResponseWriter, r *http.Request) {
	name, ok := a.requireArtifactName(w, r)
	if !ok {
		return
	}

	var rng *transferproto.RangeSpec
	if h := r.Header.Get(transferproto.HeaderRange); h != "" {
		spec, err := transferproto.ParseRange(h)
		if err != nil {
			httperrors.Write(w, err)
			return
		}
		rng = &spec
	}

	res, err := a.svc.Open(r.Context(), name, rng)
	if err != nil {
		a.logFailure("open artifact", name, err)
		httperrors.Write(w, err)
		return
	}
	defer res.Body.Close()

	h := w.Header()
	h.Set("Content-Type", transferproto.ContentTypeOctetStream)
	h.Set("Content-Length", strconv.FormatInt(res.Length(), 10))
	h.Set(transferproto.HeaderAcceptRanges, transferproto.RangeUnitBytes)

	status := http.StatusOK
	if res.Partial {
		h.Set(transferproto.HeaderContentRange, transferproto.FormatServedRange(res.Start, res.End, res.Size))
		status = http.StatusPartialContent
	}
	w.WriteHeader(status)

	if r.Method == http.MethodHead {
		return
	}
	if _, err = io.Copy(w, res.Body); err != nil {
		a.logger.Warn("download interrupted", zap.String("name", name), zap.Error(err))
	}
}
