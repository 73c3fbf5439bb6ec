package google

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	goption "google.golang.org/api/option"

	"finboard/internal/core"
	ports "finboard/internal/sheets"
)

// fakeSheets answers the three Values calls the client makes.
type fakeSheets struct {
	mu        sync.Mutex
	hasHeader bool
	gets      int
	updates   [][]any
	appends   [][]any
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	var body struct {
		Values [][]any `json:"values"`
	}
	switch {
	case strings.HasSuffix(r.URL.Path, ":append"):
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.appends = append(f.appends, body.Values...)
		row := len(f.appends) + 1
		_ = json.NewEncoder(w).Encode(map[string]any{
			"spreadsheetId": "sheet-id",
			"updates":       map[string]any{"updatedRange": fmt.Sprintf("Activity!A%d:F%d", row, row), "updatedRows": 1},
		})
	case r.Method == http.MethodPut:
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.updates = append(f.updates, body.Values...)
		f.hasHeader = true
		_ = json.NewEncoder(w).Encode(map[string]any{"updatedRange": "Activity!A1:F1"})
	case r.Method == http.MethodGet:
		f.gets++
		resp := map[string]any{"range": "Activity!A1:F1", "majorDimension": "ROWS"}
		if f.hasHeader {
			resp["values"] = [][]string{ports.Header}
		}
		_ = json.NewEncoder(w).Encode(resp)
	default:
		http.Error(w, "unexpected call", http.StatusBadRequest)
	}
}

func newTestClient(t *testing.T, fake *fakeSheets) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	c, err := New(context.Background(), Options{
		SpreadsheetID: "sheet-id",
		ClientOptions: []goption.ClientOption{
			goption.WithEndpoint(srv.URL + "/"),
			goption.WithoutAuthentication(),
		},
	})
	require.NoError(t, err)
	return c
}

func TestNewRequiresSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Options{SheetName: "Activity"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing spreadsheet id")
}

func TestNewDefaultsSheetName(t *testing.T) {
	c := newTestClient(t, &fakeSheets{})
	assert.Equal(t, DefaultSheetName, c.sheetName)
}

func TestNewFailsOnMissingCredentialsFile(t *testing.T) {
	_, err := New(context.Background(), Options{
		SpreadsheetID:   "sheet-id",
		CredentialsFile: "/non/existent/file.json",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read service account file")
}

func TestAppendWritesHeaderOnceThenRows(t *testing.T) {
	fake := &fakeSheets{}
	c := newTestClient(t, fake)
	at := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

	ref, err := c.Append(context.Background(), ports.Activity{
		At:     at,
		Change: core.NewChangeSet(core.ResourceTransactions, core.ActionDeleted, "user_1", "t1", "t2"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Activity!A2:F2", ref)

	ref, err = c.Append(context.Background(), ports.Activity{
		At:     at,
		Change: core.NewChangeSet(core.ResourceAccounts, core.ActionCreated, "user_1", "a1"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Activity!A3:F3", ref)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, 1, fake.gets, "header is checked once per client")
	require.Len(t, fake.updates, 1)
	assert.Equal(t, "Timestamp", fake.updates[0][0])
	require.Len(t, fake.appends, 2)
	assert.Equal(t, []any{"2025-03-01T09:30:00Z", "user_1", "transactions", "deleted", float64(2), "t1,t2"}, fake.appends[0])
}

func TestAppendKeepsExistingHeader(t *testing.T) {
	fake := &fakeSheets{hasHeader: true}
	c := newTestClient(t, fake)

	_, err := c.Append(context.Background(), ports.Activity{
		At:     time.Now(),
		Change: core.NewChangeSet(core.ResourceCategories, core.ActionUpdated, "user_2", "c1"),
	})
	require.NoError(t, err)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Empty(t, fake.updates)
	assert.Len(t, fake.appends, 1)
}

func TestAppendWithoutService(t *testing.T) {
	c := &Client{spreadsheetID: "sheet-id", sheetName: DefaultSheetName}
	_, err := c.Append(context.Background(), ports.Activity{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not initialized")
}
