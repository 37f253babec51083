// Package ingest is the boundary to the media extraction collaborator. It
// turns receipts, voice notes or free-form messages into expense drafts and
// produces trip narratives. Everything returned here is untrusted,
// user-editable input and is never written to the store directly.
package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tinoosan/tripledger/internal/ledger"
)

// Draft is a pre-filled expense proposal extracted from media. The user
// reviews and edits it before anything is persisted.
type Draft struct {
	Concept     string `json:"concept"`
	AmountMinor int64  `json:"amount_minor"`
}

// Input describes the media to extract a draft from. Text carries a typed
// message; FileType/FilePath reference an uploaded attachment.
type Input struct {
	Text     string `json:"text,omitempty"`
	FileType string `json:"file_type,omitempty"`
	FilePath string `json:"file_path,omitempty"`
	Currency string `json:"currency"`
}

// Extractor turns media into an expense draft.
type Extractor interface {
	ExtractDraft(ctx context.Context, in Input) (Draft, error)
}

// Summarizer produces a readable account of the trip's spending.
type Summarizer interface {
	Narrative(ctx context.Context, trip ledger.Trip, expenses []ledger.Expense, summaries []ledger.Summary) (string, error)
}

// Client calls a remote extraction service over HTTP. It implements both
// Extractor and Summarizer.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a client against the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// FromEnv returns a client configured from EXTRACTOR_URL, or nil when the
// variable is unset.
func FromEnv() *Client {
	url := strings.TrimSpace(os.Getenv("EXTRACTOR_URL"))
	if url == "" {
		return nil
	}
	return NewClient(url)
}

// ExtractDraft implements Extractor.
func (c *Client) ExtractDraft(ctx context.Context, in Input) (Draft, error) {
	var out Draft
	if err := c.post(ctx, "/extract", in, &out); err != nil {
		return Draft{}, err
	}
	return out, nil
}

type narrativeRequest struct {
	TripName  string             `json:"trip_name"`
	Currency  string             `json:"currency"`
	Expenses  []narrativeExpense `json:"expenses"`
	Summaries []narrativeSummary `json:"summaries"`
}

type narrativeExpense struct {
	Concept     string    `json:"concept"`
	AmountMinor int64     `json:"amount_minor"`
	Date        time.Time `json:"date"`
}

type narrativeSummary struct {
	UserID       uuid.UUID `json:"user_id"`
	PaidMinor    int64     `json:"paid_minor"`
	OwedMinor    int64     `json:"owed_minor"`
	BalanceMinor int64     `json:"balance_minor"`
}

type narrativeResponse struct {
	Narrative string `json:"narrative"`
}

// Narrative implements Summarizer.
func (c *Client) Narrative(ctx context.Context, trip ledger.Trip, expenses []ledger.Expense, summaries []ledger.Summary) (string, error) {
	req := narrativeRequest{TripName: trip.Name, Currency: trip.Currency}
	for _, e := range expenses {
		req.Expenses = append(req.Expenses, narrativeExpense{
			Concept:     e.Concept,
			AmountMinor: ledger.MinorUnits(e.Amount),
			Date:        e.Date,
		})
	}
	for _, s := range summaries {
		req.Summaries = append(req.Summaries, narrativeSummary{
			UserID:       s.UserID,
			PaidMinor:    ledger.MinorUnits(s.TotalPaid),
			OwedMinor:    ledger.MinorUnits(s.TotalOwed),
			BalanceMinor: ledger.MinorUnits(s.Balance),
		})
	}
	var out narrativeResponse
	if err := c.post(ctx, "/narrative", req, &out); err != nil {
		return "", err
	}
	return out.Narrative, nil
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("extractor: unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type memoEntry struct {
	expenseCount int
	text         string
}

// Memo caches narratives per trip, keyed by the trip's expense count. The
// narrative only needs regenerating when an expense is added or removed.
type Memo struct {
	next Summarizer

	mu    sync.Mutex
	cache map[uuid.UUID]memoEntry
}

// NewMemo wraps a Summarizer with the per-trip cache.
func NewMemo(next Summarizer) *Memo {
	return &Memo{next: next, cache: make(map[uuid.UUID]memoEntry)}
}

// Narrative returns the cached text when the trip's expense count is
// unchanged, otherwise regenerates and stores it.
func (m *Memo) Narrative(ctx context.Context, trip ledger.Trip, expenses []ledger.Expense, summaries []ledger.Summary) (string, error) {
	m.mu.Lock()
	if e, ok := m.cache[trip.ID]; ok && e.expenseCount == len(expenses) {
		m.mu.Unlock()
		return e.text, nil
	}
	m.mu.Unlock()

	text, err := m.next.Narrative(ctx, trip, expenses, summaries)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	m.cache[trip.ID] = memoEntry{expenseCount: len(expenses), text: text}
	m.mu.Unlock()
	return text, nil
}
