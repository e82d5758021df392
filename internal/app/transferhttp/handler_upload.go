package transferhttp

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/sir_venger/resumable_lite/internal/models"
	"github.com/sir_venger/resumable_lite/pkg/httperrors"
	"github.com/sir_venger/resumable_lite/pkg/transferproto"
)

// uploadChunk принимает PUT с одним чанком. Тело читается целиком до захвата замка
// имени: оборванный клиентом чанк не доходит до хранилища.
func (a *Server) uploadChunk(w http.ResponseWriter, r *http.Request) {
	name, ok := a.requireArtifactName(w, r)
	if !ok {
		return
	}

	cr, err := transferproto.ParseContentRange(r.Header.Get(transferproto.HeaderContentRange))
	if err != nil {
		httperrors.Write(w, err)
		return
	}
	if cr.Size() > a.maxChunkSize {
		httperrors.Write(w, fmt.Errorf("%w: %d bytes, limit %d", transferproto.ErrChunkTooLarge, cr.Size(), a.maxChunkSize))
		return
	}
	if r.ContentLength >= 0 && r.ContentLength != cr.Size() {
		httperrors.Write(w, fmt.Errorf("%w: Content-Length %d, range %s", transferproto.ErrMalformedRequest, r.ContentLength, cr))
		return
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, cr.Size()+1))
	if err != nil {
		if r.Context().Err() != nil {
			a.logger.Info("chunk aborted by client", zap.String("name", name), zap.Stringer("range", cr))
			return
		}
		httperrors.Write(w, fmt.Errorf("%w: read body: %v", transferproto.ErrMalformedRequest, err))
		return
	}

	res, err := a.svc.Append(r.Context(), models.AppendRequest{
		Name:    name,
		Range:   cr,
		Session: r.Header.Get(transferproto.HeaderSession),
		Payload: payload,
	})
	if err != nil {
		a.logFailure("append chunk", name, err)
		httperrors.Write(w, err)
		return
	}

	w.Header().Set(transferproto.HeaderStoredSize, strconv.FormatInt(res.StoredSize, 10))
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "Chunk uploaded successfully")
}

func (a *Server) logFailure(op, name string, err error) {
	if httperrors.Status(err) >= http.StatusInternalServerError {
		a.logger.Error(op, zap.String("name", name), zap.Error(err))
		return
	}
	a.logger.Debug(op, zap.String("name", name), zap.Error(err))
}
