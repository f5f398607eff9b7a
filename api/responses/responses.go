// Package responses writes the JSON envelopes. Success payloads go under
// "data"; failures map through the error-code metadata so only declared
// messages and details reach clients.
package responses

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	pkgerrors "github.com/stockflowhq/stockflow-backend/pkg/errors"
	"github.com/stockflowhq/stockflow-backend/pkg/logger"
	"github.com/stockflowhq/stockflow-backend/pkg/types"
)

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, types.SuccessEnvelope{Data: data})
}

// Codes whose caller-supplied message is safe to show clients. Everything
// else gets the metadata's public message.
var clientMessageCodes = map[pkgerrors.Code]bool{
	pkgerrors.CodeValidation:             true,
	pkgerrors.CodeNotFound:               true,
	pkgerrors.CodeConflict:               true,
	pkgerrors.CodeModificationNotAllowed: true,
	pkgerrors.CodeInsufficientStock:      true,
	pkgerrors.CodeIdempotency:            true,
}

func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}
	meta := pkgerrors.MetadataFor(typed.Code())

	msg := meta.PublicMessage
	if clientMessageCodes[typed.Code()] && typed.Message() != "" {
		msg = typed.Message()
	}

	envelope := types.ErrorEnvelope{
		Error: types.APIError{Code: string(typed.Code()), Message: msg},
	}
	if meta.DetailsAllowed {
		envelope.Error.Details = typed.Details()
	}

	logRequestError(ctx, logg, err)
	writeJSON(w, meta.HTTPStatus, envelope)
}

func logRequestError(ctx context.Context, logg *logger.Logger, err error) {
	if logg == nil {
		return
	}
	dump := pkgerrors.Dump(err)
	ctx = logg.WithFields(ctx, map[string]any{
		"error":         dump.TopMessage,
		"error_code":    dump.Code,
		"error_chain":   dump.Chain,
		"pg_code":       dump.PGCode,
		"pg_detail":     dump.PGDetail,
		"pg_message":    dump.PGMessage,
		"pg_table":      dump.PGTable,
		"pg_column":     dump.PGColumn,
		"pg_constraint": dump.PGConstraint,
	})
	logg.Error(ctx, "request.error", err)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf(`{"level":"error","msg":"failed to encode response","err":"%v"}`, err)
	}
}
