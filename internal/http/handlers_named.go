package http

import (
	"context"
	"net/http"

	"finboard/internal/core"
	"finboard/internal/services"
)

// namedHandlers serves a resource made of an id and a name owned directly by
// the user. Accounts and categories differ only in the service calls.
type namedHandlers[T any] struct {
	list       func(ctx context.Context, userID string) ([]T, error)
	get        func(ctx context.Context, userID, id string) (T, error)
	create     func(ctx context.Context, userID string, in core.NameInput) (T, core.ChangeSet, error)
	update     func(ctx context.Context, userID, id string, in core.NameInput) (T, core.ChangeSet, error)
	remove     func(ctx context.Context, userID, id string) (string, core.ChangeSet, error)
	bulkDelete func(ctx context.Context, userID string, ids []string) ([]string, core.ChangeSet, error)
}

func accountHandlers(l *services.LedgerService) namedHandlers[core.Account] {
	return namedHandlers[core.Account]{
		list:       l.ListAccounts,
		get:        l.GetAccount,
		create:     l.CreateAccount,
		update:     l.UpdateAccount,
		remove:     l.DeleteAccount,
		bulkDelete: l.BulkDeleteAccounts,
	}
}

func categoryHandlers(l *services.LedgerService) namedHandlers[core.Category] {
	return namedHandlers[core.Category]{
		list:       l.ListCategories,
		get:        l.GetCategory,
		create:     l.CreateCategory,
		update:     l.UpdateCategory,
		remove:     l.DeleteCategory,
		bulkDelete: l.BulkDeleteCategories,
	}
}

func (h namedHandlers[T]) handleList(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	items, err := h.list(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse(items).Write(w)
}

func (h namedHandlers[T]) handleGet(w http.ResponseWriter, r *http.Request) {
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
	item, err := h.get(r.Context(), userID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse(item).Write(w)
}

func (h namedHandlers[T]) handleCreate(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in core.NameInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	item, cs, err := h.create(r.Context(), userID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse(item).Status(http.StatusCreated).Affected(cs).Write(w)
}

func (h namedHandlers[T]) handleUpdate(w http.ResponseWriter, r *http.Request) {
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
	var in core.NameInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	item, cs, err := h.update(r.Context(), userID, id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse(item).Affected(cs).Write(w)
}

func (h namedHandlers[T]) handleDelete(w http.ResponseWriter, r *http.Request) {
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
	deleted, cs, err := h.remove(r.Context(), userID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse(idBody{ID: deleted}).Affected(cs).Write(w)
}

func (h namedHandlers[T]) handleBulkDelete(w http.ResponseWriter, r *http.Request) {
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
	deleted, cs, err := h.bulkDelete(r.Context(), userID, ids)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse(idList(deleted)).Affected(cs).Write(w)
}

func idList(ids []string) []idBody {
	out := make([]idBody, len(ids))
	for i, id := range ids {
		out[i] = idBody{ID: id}
	}
	return out
}
