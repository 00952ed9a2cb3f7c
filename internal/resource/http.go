package resource

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/eventhub/internal/middleware"
	"github.com/hitoshi/eventhub/internal/model"
)

// maxBodyBytes はリクエストボディの上限サイズ。
const maxBodyBytes = 1 << 20

// HandleList は GET <base>/ を処理する。
func (d *Dispatcher[T]) HandleList(w http.ResponseWriter, r *http.Request) {
	recs, err := d.List(r.Context(), middleware.IdentityFromContext(r.Context()))
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	var data any = recs
	if expand := d.opts.Hooks.ExpandList; expand != nil {
		if data, err = expand(r.Context(), recs); err != nil {
			middleware.WriteError(w, r, err)
			return
		}
	}
	middleware.WriteSuccess(w, http.StatusOK, "", data)
}

// HandleGet は GET <base>/{id} を処理する。
func (d *Dispatcher[T]) HandleGet(w http.ResponseWriter, r *http.Request) {
	rec, err := d.Get(r.Context(), middleware.IdentityFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	var data any = rec
	if expand := d.opts.Hooks.ExpandGet; expand != nil {
		if data, err = expand(r.Context(), rec); err != nil {
			middleware.WriteError(w, r, err)
			return
		}
	}
	middleware.WriteSuccess(w, http.StatusOK, "", data)
}

// HandleCreate は POST <base>/ を処理する。
func (d *Dispatcher[T]) HandleCreate(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	rec, err := d.Create(r.Context(), middleware.IdentityFromContext(r.Context()), body)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	middleware.WriteSuccess(w, http.StatusCreated, d.opts.Label+" created successfully.", rec)
}

// HandleUpdate は PUT <base>/{id} を処理する。
func (d *Dispatcher[T]) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	rec, err := d.Update(r.Context(), middleware.IdentityFromContext(r.Context()), chi.URLParam(r, "id"), body)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	middleware.WriteSuccess(w, http.StatusOK, d.opts.Label+" updated successfully.", rec)
}

// HandleDelete は DELETE <base>/{id} を処理する。
func (d *Dispatcher[T]) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := d.Delete(r.Context(), middleware.IdentityFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	middleware.WriteSuccess(w, http.StatusOK, d.opts.Label+" deleted successfully.", nil)
}

// readBody はサイズ上限付きでリクエストボディを読み込む。
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, model.NewValidationError("Request body is too large.")
		}
		return nil, err
	}
	return body, nil
}
