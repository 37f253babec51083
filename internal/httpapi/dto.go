package httpapi

import (
	"time"

	"github.com/google/uuid"

	"github.com/tinoosan/tripledger/internal/ledger"
)

// Users

type postUserRequest struct {
	Handle   string  `json:"handle"`
	Name     string  `json:"name"`
	Email    *string `json:"email,omitempty"`
	Password string  `json:"password"`
}

type loginRequest struct {
	Handle   string `json:"handle"`
	Password string `json:"password"`
}

type userResponse struct {
	ID        uuid.UUID `json:"id"`
	Handle    string    `json:"handle"`
	Name      string    `json:"name"`
	Email     *string   `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserResponse(u ledger.User) userResponse {
	return userResponse{ID: u.ID, Handle: u.Handle, Name: u.Name, Email: u.Email, CreatedAt: u.CreatedAt}
}

// Trips

type postTripRequest struct {
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Currency    string    `json:"currency"`
	CreatedBy   uuid.UUID `json:"created_by"`
}

type tripResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Currency    string    `json:"currency"`
	CreatedBy   uuid.UUID `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

func toTripResponse(t ledger.Trip) tripResponse {
	return tripResponse{ID: t.ID, Name: t.Name, Description: t.Description, Currency: t.Currency, CreatedBy: t.CreatedBy, CreatedAt: t.CreatedAt}
}

type postMemberRequest struct {
	ActorID uuid.UUID `json:"actor_id"`
	Handle  string    `json:"handle"`
}

// Categories

type postCategoryRequest struct {
	ActorID uuid.UUID `json:"actor_id"`
	Name    string    `json:"name"`
	Icon    string    `json:"icon,omitempty"`
	Color   string    `json:"color,omitempty"`
}

type categoryResponse struct {
	ID     uuid.UUID `json:"id"`
	TripID uuid.UUID `json:"trip_id"`
	Name   string    `json:"name"`
	Icon   string    `json:"icon"`
	Color  string    `json:"color"`
}

func toCategoryResponse(c ledger.Category) categoryResponse {
	return categoryResponse{ID: c.ID, TripID: c.TripID, Name: c.Name, Icon: c.Icon, Color: c.Color}
}

type categoryTotalResponse struct {
	Category   categoryResponse `json:"category"`
	Count      int              `json:"count"`
	TotalMinor int64            `json:"total_minor"`
}

// Expenses

type shareRequest struct {
	ParticipantID uuid.UUID `json:"participant_id"`
	ShareBP       int32     `json:"share_bp"`
}

type postExpenseRequest struct {
	TripID      uuid.UUID         `json:"trip_id"`
	PayerID     uuid.UUID         `json:"payer_id"`
	CategoryID  *uuid.UUID        `json:"category_id,omitempty"`
	Concept     string            `json:"concept"`
	AmountMinor int64             `json:"amount_minor"`
	Date        time.Time         `json:"date,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Shares      []shareRequest    `json:"shares,omitempty"`
}

type patchExpenseRequest struct {
	ActorID     uuid.UUID  `json:"actor_id"`
	Concept     *string    `json:"concept,omitempty"`
	AmountMinor *int64     `json:"amount_minor,omitempty"`
	Date        *time.Time `json:"date,omitempty"`
}

type putSplitsRequest struct {
	ActorID uuid.UUID      `json:"actor_id"`
	Shares  []shareRequest `json:"shares"`
}

type splitResponse struct {
	ParticipantID uuid.UUID `json:"participant_id"`
	ShareBP       int32     `json:"share_bp"`
	AmountMinor   int64     `json:"amount_minor"`
}

type expenseResponse struct {
	ID          uuid.UUID         `json:"id"`
	TripID      uuid.UUID         `json:"trip_id"`
	PayerID     uuid.UUID         `json:"payer_id"`
	CategoryID  *uuid.UUID        `json:"category_id,omitempty"`
	Concept     string            `json:"concept"`
	AmountMinor int64             `json:"amount_minor"`
	Currency    string            `json:"currency"`
	Date        time.Time         `json:"date"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Splits      []splitResponse   `json:"splits,omitempty"`
}

func toExpenseResponse(e ledger.Expense, splits []ledger.Split) expenseResponse {
	resp := expenseResponse{
		ID:          e.ID,
		TripID:      e.TripID,
		PayerID:     e.PayerID,
		CategoryID:  e.CategoryID,
		Concept:     e.Concept,
		AmountMinor: ledger.MinorUnits(e.Amount),
		Currency:    e.Amount.Curr().Code(),
		Date:        e.Date,
		Metadata:    e.Metadata,
	}
	for _, sp := range splits {
		resp.Splits = append(resp.Splits, splitResponse{
			ParticipantID: sp.ParticipantID,
			ShareBP:       sp.ShareBP,
			AmountMinor:   ledger.MinorUnits(sp.Amount),
		})
	}
	return resp
}

// Split preview

type splitPreviewRequest struct {
	AmountMinor    int64          `json:"amount_minor"`
	Currency       string         `json:"currency"`
	ParticipantIDs []uuid.UUID    `json:"participant_ids,omitempty"`
	Shares         []shareRequest `json:"shares,omitempty"`
}

type splitPreviewResponse struct {
	Splits []splitResponse `json:"splits"`
}

// Debts and summaries

type conceptAmountResponse struct {
	Concept     string `json:"concept"`
	AmountMinor int64  `json:"amount_minor"`
}

type netDebtResponse struct {
	DebtorID    uuid.UUID               `json:"debtor_id"`
	CreditorID  uuid.UUID               `json:"creditor_id"`
	AmountMinor int64                   `json:"amount_minor"`
	Concepts    []conceptAmountResponse `json:"concepts"`
}

func toNetDebtResponse(d ledger.NetDebt) netDebtResponse {
	resp := netDebtResponse{
		DebtorID:    d.DebtorID,
		CreditorID:  d.CreditorID,
		AmountMinor: ledger.MinorUnits(d.Amount),
	}
	for _, c := range d.Concepts {
		resp.Concepts = append(resp.Concepts, conceptAmountResponse{Concept: c.Concept, AmountMinor: ledger.MinorUnits(c.Amount)})
	}
	return resp
}

type summaryResponse struct {
	UserID       uuid.UUID `json:"user_id"`
	TripID       uuid.UUID `json:"trip_id"`
	PaidMinor    int64     `json:"paid_minor"`
	OwedMinor    int64     `json:"owed_minor"`
	BalanceMinor int64     `json:"balance_minor"`
}

func toSummaryResponse(s ledger.Summary) summaryResponse {
	return summaryResponse{
		UserID:       s.UserID,
		TripID:       s.TripID,
		PaidMinor:    ledger.MinorUnits(s.TotalPaid),
		OwedMinor:    ledger.MinorUnits(s.TotalOwed),
		BalanceMinor: ledger.MinorUnits(s.Balance),
	}
}

// Ingestion

type postDraftRequest struct {
	TripID   uuid.UUID `json:"trip_id"`
	Text     string    `json:"text,omitempty"`
	FileType string    `json:"file_type,omitempty"`
	FilePath string    `json:"file_path,omitempty"`
}

type draftResponse struct {
	Concept     string `json:"concept"`
	AmountMinor int64  `json:"amount_minor"`
	Currency    string `json:"currency"`
}

type narrativeResponse struct {
	TripID    uuid.UUID `json:"trip_id"`
	Narrative string    `json:"narrative"`
}
