package http

import (
	"bytes"
	"net/http"

	"finboard/internal/core"
	"finboard/internal/export"
)

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	filter, err := parseFilter(r, s.now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	rows, err := s.ledger.ListTransactions(r.Context(), userID, filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse(rows).Write(w)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	t, err := s.ledger.GetTransaction(r.Context(), userID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse(t).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in core.TransactionInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	t, cs, err := s.ledger.CreateTransaction(r.Context(), userID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse(t).Status(http.StatusCreated).Affected(cs).Write(w)
}

func (s *Server) handleBulkCreateTransactions(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	in, err := decodeTransactionInputs(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	created, cs, err := s.ledger.BulkCreateTransactions(r.Context(), userID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse(created).Status(http.StatusCreated).Affected(cs).Write(w)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in core.TransactionInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	t, cs, err := s.ledger.UpdateTransaction(r.Context(), userID, id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse(t).Affected(cs).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	deleted, cs, err := s.ledger.DeleteTransaction(r.Context(), userID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse(idBody{ID: deleted}).Affected(cs).Write(w)
}

func (s *Server) handleBulkDeleteTransactions(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ids, err := decodeIDs(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	deleted, cs, err := s.ledger.BulkDeleteTransactions(r.Context(), userID, ids)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse(idList(deleted)).Affected(cs).Write(w)
}

// handleExportTransactions renders the same rows as the listing as a file.
// The file is built in memory so a failure can still become a JSON error.
func (s *Server) handleExportTransactions(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	filter, err := parseFilter(r, s.now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	rows, err := s.ledger.ListTransactions(r.Context(), userID, filter)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, format, rows); err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+format.Filename(filter.Range)+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	filter, err := parseFilter(r, s.now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	summary, err := s.ledger.Summary(r.Context(), userID, filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse(summary).Write(w)
}
