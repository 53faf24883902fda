package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/sushantdkl/SneakHead-sub001/internal/domain/apperr"
	"github.com/sushantdkl/SneakHead-sub001/internal/domain/cart"
	"github.com/sushantdkl/SneakHead-sub001/internal/domain/order"
)

const maxBodyBytes = 1 << 20

var errMalformedBody = apperr.New(apperr.KindValidation, "malformed_body", "request body is not valid JSON")

// writeData writes the success envelope. data may be nil.
func writeData(w http.ResponseWriter, status int, message string, data func(e *jx.Encoder)) {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("success", func(e *jx.Encoder) { e.Bool(true) })
		e.Field("message", func(e *jx.Encoder) { e.Str(message) })
		if data != nil {
			e.Field("data", data)
		}
	})
	writeJSON(w, status, e.Bytes())
}

// writeError maps err to a status and writes the error envelope. Unclassified
// errors are logged and hidden behind a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, kind, code, msg := http.StatusInternalServerError, apperr.KindInternal.String(), "internal", "internal server error"
	if c, ok := apperr.As(err); ok && c.ErrorKind() != apperr.KindInternal {
		status = statusFor(c)
		kind, code, msg = c.ErrorKind().String(), c.ErrorCode(), c.Error()
	} else {
		zctx.From(r.Context()).Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}

	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("success", func(e *jx.Encoder) { e.Bool(false) })
		e.Field("message", func(e *jx.Encoder) { e.Str(msg) })
		e.Field("error", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				e.Field("kind", func(e *jx.Encoder) { e.Str(kind) })
				e.Field("code", func(e *jx.Encoder) { e.Str(code) })
			})
		})
	})
	writeJSON(w, status, e.Bytes())
}

func statusFor(c apperr.Classified) int {
	switch c.ErrorKind() {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		if errors.Is(c, order.ErrCommitInProgress) || errors.Is(c, cart.ErrLineConflict) {
			return http.StatusConflict
		}
		return http.StatusBadRequest
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// decode reads a JSON body into v. An empty body leaves v untouched.
func decode(r *http.Request, v any) error {
	d := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := d.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return errMalformedBody
	}
	return nil
}
