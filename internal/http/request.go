package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"finboard/internal/auth"
	"finboard/internal/core"
)

// maxBodyBytes bounds request bodies; a bulk create of a few thousand rows fits.
const maxBodyBytes = 1 << 20

// idsBody is the body of the bulk-delete endpoints.
type idsBody struct {
	IDs []string `json:"ids"`
}

// idBody is the data of single delete responses.
type idBody struct {
	ID string `json:"id"`
}

// decodeJSON reads one JSON value from the body into dst. Unknown fields are
// ignored, so a client-supplied userId or id never reaches the domain.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return bodyError(err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return core.FieldError("body", "must contain a single JSON value")
	}
	return nil
}

// decodeTransactionInputs reads a bulk-create array. Each element is decoded on
// its own so a malformed element is reported as "[i].field".
func decodeTransactionInputs(w http.ResponseWriter, r *http.Request) ([]core.TransactionInput, error) {
	var raw []json.RawMessage
	if err := decodeJSON(w, r, &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, core.FieldError("body", "must be an array of transactions")
	}
	verr := core.NewValidationError()
	in := make([]core.TransactionInput, len(raw))
	for i, elem := range raw {
		if err := json.Unmarshal(elem, &in[i]); err != nil {
			verr.Merge(fmt.Sprintf("[%d].", i), bodyError(err))
		}
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	return in, nil
}

func bodyError(err error) *core.ValidationError {
	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
		maxErr    *http.MaxBytesError
	)
	switch {
	case errors.Is(err, io.EOF):
		return core.FieldError("body", "is required")
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		return core.FieldError("body", "is not valid JSON")
	case errors.As(err, &typeErr):
		field := typeErr.Field
		if field == "" {
			field = "body"
		}
		return core.FieldError(field, fmt.Sprintf("must be %s", jsonKind(typeErr.Type.Kind().String())))
	case errors.As(err, &maxErr):
		return core.FieldError("body", "is too large")
	case errors.Is(err, core.ErrInvalidDate):
		return core.FieldError("date", err.Error())
	default:
		return core.FieldError("body", "is not valid JSON")
	}
}

func jsonKind(goKind string) string {
	switch goKind {
	case "int", "int64", "int32":
		return "an integer"
	case "string":
		return "a string"
	case "slice":
		return "an array"
	case "struct", "map":
		return "an object"
	default:
		return "a " + goKind
	}
}

// decodeIDs reads a bulk-delete body. Blank ids are dropped.
func decodeIDs(w http.ResponseWriter, r *http.Request) ([]string, error) {
	var body idsBody
	if err := decodeJSON(w, r, &body); err != nil {
		return nil, err
	}
	if body.IDs == nil {
		return nil, core.FieldError("ids", "is required")
	}
	ids := make([]string, 0, len(body.IDs))
	for _, id := range body.IDs {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// pathID returns the {id} URL parameter.
func pathID(r *http.Request) (string, error) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		return "", fmt.Errorf("id: %w", core.ErrMissingParameter)
	}
	return id, nil
}

// parseFilter reads from, to and accountId from the query string.
func parseFilter(r *http.Request, now time.Time) (core.TransactionFilter, error) {
	q := r.URL.Query()
	rng, err := core.ResolveDateRange(q.Get("from"), q.Get("to"), now)
	if err != nil {
		return core.TransactionFilter{}, err
	}
	return core.TransactionFilter{
		Range:     rng,
		AccountID: strings.TrimSpace(q.Get("accountId")),
	}, nil
}

// requestUser returns the authenticated user id.
func requestUser(r *http.Request) (string, error) {
	return auth.UserID(r.Context())
}
