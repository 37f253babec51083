package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/tinoosan/tripledger/internal/ingest"
	"github.com/tinoosan/tripledger/internal/ledger"
	"github.com/tinoosan/tripledger/internal/storage/memory"
)

var _ Store = (*memory.Store)(nil)

func newTestServer(t *testing.T, narrator ingest.Summarizer) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := New(memory.New(), nil, narrator, logger)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, []byte) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, rd)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	b, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, b
}

func decode[T any](t *testing.T, b []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		t.Fatalf("unmarshal %s: %v", string(b), err)
	}
	return v
}

func registerUser(t *testing.T, base, handle string) userResponse {
	t.Helper()
	resp, b := doJSON(t, http.MethodPost, base+"/v1/users", map[string]any{
		"handle": handle, "name": handle, "password": "secret1",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register %s: status %d body %s", handle, resp.StatusCode, b)
	}
	return decode[userResponse](t, b)
}

func createTrip(t *testing.T, base string, creator uuid.UUID, currency string) tripResponse {
	t.Helper()
	resp, b := doJSON(t, http.MethodPost, base+"/v1/trips", map[string]any{
		"name": "Cartagena", "currency": currency, "created_by": creator,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create trip: status %d body %s", resp.StatusCode, b)
	}
	return decode[tripResponse](t, b)
}

func addMember(t *testing.T, base string, tripID, actor uuid.UUID, handle string) {
	t.Helper()
	resp, b := doJSON(t, http.MethodPost, fmt.Sprintf("%s/v1/trips/%s/members", base, tripID), map[string]any{
		"actor_id": actor, "handle": handle,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("add member %s: status %d body %s", handle, resp.StatusCode, b)
	}
}

func postExpense(t *testing.T, base string, body map[string]any) expenseResponse {
	t.Helper()
	resp, b := doJSON(t, http.MethodPost, base+"/v1/expenses", body)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("post expense: status %d body %s", resp.StatusCode, b)
	}
	return decode[expenseResponse](t, b)
}

func TestUsersAndLogin(t *testing.T) {
	ts := newTestServer(t, nil)
	ana := registerUser(t, ts.URL, "ana")

	// Duplicate handle conflicts.
	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/v1/users", map[string]any{
		"handle": "ana", "name": "Other Ana", "password": "secret1",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}

	resp, b := doJSON(t, http.MethodPost, ts.URL+"/v1/login", map[string]any{
		"handle": "ana", "password": "secret1",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login: status %d body %s", resp.StatusCode, b)
	}
	if got := decode[userResponse](t, b); got.ID != ana.ID {
		t.Fatalf("login returned wrong user: %+v", got)
	}

	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/v1/login", map[string]any{
		"handle": "ana", "password": "wrong",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}

	resp, b = doJSON(t, http.MethodGet, ts.URL+"/v1/users?handle=ana", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("find by handle: status %d body %s", resp.StatusCode, b)
	}
}

func TestTripLifecycle(t *testing.T) {
	ts := newTestServer(t, nil)
	ana := registerUser(t, ts.URL, "ana")
	registerUser(t, ts.URL, "beto")

	tr := createTrip(t, ts.URL, ana.ID, "COP")
	addMember(t, ts.URL, tr.ID, ana.ID, "beto")

	resp, b := doJSON(t, http.MethodGet, fmt.Sprintf("%s/v1/trips/%s/members", ts.URL, tr.ID), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("members: status %d", resp.StatusCode)
	}
	if members := decode[[]userResponse](t, b); len(members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(members))
	}

	resp, b = doJSON(t, http.MethodGet, fmt.Sprintf("%s/v1/trips/%s/categories", ts.URL, tr.ID), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("categories: status %d", resp.StatusCode)
	}
	if cats := decode[[]categoryResponse](t, b); len(cats) != 10 {
		t.Fatalf("expected 10 starter categories, got %d", len(cats))
	}

	// Unknown trip is a 404.
	resp, _ = doJSON(t, http.MethodGet, fmt.Sprintf("%s/v1/trips/%s", ts.URL, uuid.New()), nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestExpenseFlowAndDebts(t *testing.T) {
	ts := newTestServer(t, nil)
	ana := registerUser(t, ts.URL, "ana")
	beto := registerUser(t, ts.URL, "beto")
	tr := createTrip(t, ts.URL, ana.ID, "COP")
	addMember(t, ts.URL, tr.ID, ana.ID, "beto")

	// Ana fronts 100000, Beto fronts 40000, both split equally.
	postExpense(t, ts.URL, map[string]any{
		"trip_id": tr.ID, "payer_id": ana.ID, "concept": "hotel", "amount_minor": 100000,
	})
	postExpense(t, ts.URL, map[string]any{
		"trip_id": tr.ID, "payer_id": beto.ID, "concept": "gas", "amount_minor": 40000,
	})

	resp, b := doJSON(t, http.MethodGet, fmt.Sprintf("%s/v1/trips/%s/debts", ts.URL, tr.ID), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("debts: status %d body %s", resp.StatusCode, b)
	}
	debts := decode[[]netDebtResponse](t, b)
	if len(debts) != 1 {
		t.Fatalf("expected 1 net debt, got %d: %s", len(debts), b)
	}
	d := debts[0]
	if d.DebtorID != beto.ID || d.CreditorID != ana.ID || d.AmountMinor != 30000 {
		t.Fatalf("unexpected net debt: %+v", d)
	}
	if len(d.Concepts) != 2 || d.Concepts[1].Concept != "(-) gas" {
		t.Fatalf("unexpected concepts: %+v", d.Concepts)
	}

	resp, b = doJSON(t, http.MethodGet, fmt.Sprintf("%s/v1/trips/%s/summaries", ts.URL, tr.ID), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("summaries: status %d", resp.StatusCode)
	}
	sums := decode[[]summaryResponse](t, b)
	if len(sums) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(sums))
	}
	var total int64
	for _, sum := range sums {
		total += sum.BalanceMinor
		switch sum.UserID {
		case ana.ID:
			if sum.BalanceMinor != 30000 {
				t.Fatalf("ana balance: %d", sum.BalanceMinor)
			}
		case beto.ID:
			if sum.BalanceMinor != -30000 {
				t.Fatalf("beto balance: %d", sum.BalanceMinor)
			}
		}
	}
	if total != 0 {
		t.Fatalf("balances sum to %d", total)
	}

	resp, b = doJSON(t, http.MethodGet, fmt.Sprintf("%s/v1/trips/%s/summary?user_id=%s", ts.URL, tr.ID, ana.ID), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("summary: status %d", resp.StatusCode)
	}
	if sum := decode[summaryResponse](t, b); sum.PaidMinor != 100000 || sum.OwedMinor != 70000 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
}

func TestExpenseEditRecomputesAndDebtsFollow(t *testing.T) {
	ts := newTestServer(t, nil)
	ana := registerUser(t, ts.URL, "ana")
	beto := registerUser(t, ts.URL, "beto")
	tr := createTrip(t, ts.URL, ana.ID, "COP")
	addMember(t, ts.URL, tr.ID, ana.ID, "beto")

	e := postExpense(t, ts.URL, map[string]any{
		"trip_id": tr.ID, "payer_id": ana.ID, "concept": "dinner", "amount_minor": 40000,
	})

	resp, b := doJSON(t, http.MethodPatch, fmt.Sprintf("%s/v1/expenses/%s", ts.URL, e.ID), map[string]any{
		"actor_id": beto.ID, "amount_minor": 60000,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("patch: status %d body %s", resp.StatusCode, b)
	}
	patched := decode[expenseResponse](t, b)
	if patched.AmountMinor != 60000 {
		t.Fatalf("amount not updated: %d", patched.AmountMinor)
	}
	var sum int64
	for _, sp := range patched.Splits {
		sum += sp.AmountMinor
	}
	if sum != 60000 {
		t.Fatalf("splits sum to %d after edit", sum)
	}

	resp, b = doJSON(t, http.MethodGet, fmt.Sprintf("%s/v1/trips/%s/debts", ts.URL, tr.ID), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("debts: status %d", resp.StatusCode)
	}
	debts := decode[[]netDebtResponse](t, b)
	if len(debts) != 1 || debts[0].AmountMinor != 30000 {
		t.Fatalf("debts did not follow the edit: %s", b)
	}

	// Delete settles everything.
	resp, _ = doJSON(t, http.MethodDelete, fmt.Sprintf("%s/v1/expenses/%s?actor_id=%s", ts.URL, e.ID, ana.ID), nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete: status %d", resp.StatusCode)
	}
	resp, b = doJSON(t, http.MethodGet, fmt.Sprintf("%s/v1/trips/%s/debts", ts.URL, tr.ID), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("debts after delete: status %d", resp.StatusCode)
	}
	if debts := decode[[]netDebtResponse](t, b); len(debts) != 0 {
		t.Fatalf("expected no debts after delete, got %s", b)
	}
}

func TestPutSplitsValidation(t *testing.T) {
	ts := newTestServer(t, nil)
	ana := registerUser(t, ts.URL, "ana")
	beto := registerUser(t, ts.URL, "beto")
	tr := createTrip(t, ts.URL, ana.ID, "COP")
	addMember(t, ts.URL, tr.ID, ana.ID, "beto")

	e := postExpense(t, ts.URL, map[string]any{
		"trip_id": tr.ID, "payer_id": ana.ID, "concept": "tour", "amount_minor": 90000,
	})

	// Shares not totalling 100% are rejected with 422.
	resp, _ := doJSON(t, http.MethodPut, fmt.Sprintf("%s/v1/expenses/%s/splits", ts.URL, e.ID), map[string]any{
		"actor_id": ana.ID,
		"shares":   []map[string]any{{"participant_id": beto.ID, "share_bp": 6000}},
	})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}

	resp, b := doJSON(t, http.MethodPut, fmt.Sprintf("%s/v1/expenses/%s/splits", ts.URL, e.ID), map[string]any{
		"actor_id": ana.ID,
		"shares": []map[string]any{
			{"participant_id": ana.ID, "share_bp": 2500},
			{"participant_id": beto.ID, "share_bp": 7500},
		},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("put splits: status %d body %s", resp.StatusCode, b)
	}
	splits := decode[[]splitResponse](t, b)
	if len(splits) != 2 {
		t.Fatalf("expected 2 splits, got %d", len(splits))
	}
}

func TestSplitPreview(t *testing.T) {
	ts := newTestServer(t, nil)
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}

	resp, b := doJSON(t, http.MethodPost, ts.URL+"/v1/split/preview", map[string]any{
		"amount_minor": 100000, "currency": "COP", "participant_ids": ids,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("preview: status %d body %s", resp.StatusCode, b)
	}
	preview := decode[splitPreviewResponse](t, b)
	var sum int64
	var bp int32
	for _, sp := range preview.Splits {
		sum += sp.AmountMinor
		bp += sp.ShareBP
	}
	if sum != 100000 || bp != 10000 {
		t.Fatalf("preview does not conserve: sum=%d bp=%d", sum, bp)
	}

	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/v1/split/preview", map[string]any{
		"amount_minor": 100000, "currency": "COP",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestOutsiderExpenseForbidden(t *testing.T) {
	ts := newTestServer(t, nil)
	ana := registerUser(t, ts.URL, "ana")
	carla := registerUser(t, ts.URL, "carla")
	tr := createTrip(t, ts.URL, ana.ID, "COP")

	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/v1/expenses", map[string]any{
		"trip_id": tr.ID, "payer_id": carla.ID, "concept": "sneaky", "amount_minor": 1000,
	})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

func TestCategoryEndpoints(t *testing.T) {
	ts := newTestServer(t, nil)
	ana := registerUser(t, ts.URL, "ana")
	tr := createTrip(t, ts.URL, ana.ID, "COP")

	resp, b := doJSON(t, http.MethodPost, fmt.Sprintf("%s/v1/trips/%s/categories", ts.URL, tr.ID), map[string]any{
		"actor_id": ana.ID, "name": "Surf", "icon": "🏄", "color": "#0ea5e9",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create category: status %d body %s", resp.StatusCode, b)
	}
	cat := decode[categoryResponse](t, b)

	postExpense(t, ts.URL, map[string]any{
		"trip_id": tr.ID, "payer_id": ana.ID, "category_id": cat.ID,
		"concept": "lesson", "amount_minor": 50000,
	})

	resp, b = doJSON(t, http.MethodGet, fmt.Sprintf("%s/v1/trips/%s/categories/totals", ts.URL, tr.ID), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("totals: status %d", resp.StatusCode)
	}
	totals := decode[[]categoryTotalResponse](t, b)
	if len(totals) != 1 || totals[0].TotalMinor != 50000 {
		t.Fatalf("unexpected totals: %s", b)
	}

	resp, _ = doJSON(t, http.MethodDelete, fmt.Sprintf("%s/v1/categories/%s?actor_id=%s", ts.URL, cat.ID, ana.ID), nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete category: status %d", resp.StatusCode)
	}
	// The expense survives, uncategorized.
	resp, b = doJSON(t, http.MethodGet, fmt.Sprintf("%s/v1/trips/%s/expenses", ts.URL, tr.ID), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expenses: status %d", resp.StatusCode)
	}
	expenses := decode[[]expenseResponse](t, b)
	if len(expenses) != 1 || expenses[0].CategoryID != nil {
		t.Fatalf("expected detached expense, got %s", b)
	}
}

type fixedNarrator struct{ text string }

func (f fixedNarrator) Narrative(_ context.Context, _ ledger.Trip, _ []ledger.Expense, _ []ledger.Summary) (string, error) {
	return f.text, nil
}

func TestIngestEndpoints(t *testing.T) {
	ts := newTestServer(t, fixedNarrator{text: "a fine trip"})
	ana := registerUser(t, ts.URL, "ana")
	tr := createTrip(t, ts.URL, ana.ID, "COP")

	// No extractor wired: drafts are unavailable.
	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/v1/expenses/draft", map[string]any{
		"trip_id": tr.ID, "text": "dinner 45k",
	})
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}

	resp, b := doJSON(t, http.MethodGet, fmt.Sprintf("%s/v1/trips/%s/narrative", ts.URL, tr.ID), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("narrative: status %d body %s", resp.StatusCode, b)
	}
	if n := decode[narrativeResponse](t, b); n.Narrative != "a fine trip" {
		t.Fatalf("unexpected narrative: %+v", n)
	}
}

func TestHealthAndContentType(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, _ := doJSON(t, http.MethodGet, ts.URL+"/healthz", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz: %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/readyz", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("readyz: %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/metrics", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics: %d", resp.StatusCode)
	}

	// POST without JSON content type is rejected.
	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/v1/login", bytes.NewReader([]byte("{}")))
	resp2, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415, got %d", resp2.StatusCode)
	}
}

func TestInputValidationReturnsBadRequest(t *testing.T) {
	ts := newTestServer(t, nil)
	defer ts.Close()
	ana := registerUser(t, ts.URL, "ana")

	// Malformed and unknown currency codes are client errors at creation time.
	for _, currency := range []string{"US", "ZZQ"} {
		resp, b := doJSON(t, http.MethodPost, ts.URL+"/v1/trips", map[string]any{
			"name": "Trip", "currency": currency, "created_by": ana.ID,
		})
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("currency %q: expected 400, got %d: %s", currency, resp.StatusCode, b)
		}
	}

	tr := createTrip(t, ts.URL, ana.ID, "COP")

	// A blank concept is a client error, not a server fault.
	resp, b := doJSON(t, http.MethodPost, ts.URL+"/v1/expenses", map[string]any{
		"trip_id": tr.ID, "payer_id": ana.ID, "concept": "  ", "amount_minor": 1000,
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("blank concept: expected 400, got %d: %s", resp.StatusCode, b)
	}
}
