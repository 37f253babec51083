package httpapi

import (
	"github.com/tinoosan/tripledger/internal/service/debt"
	"github.com/tinoosan/tripledger/internal/service/expense"
	"github.com/tinoosan/tripledger/internal/service/trip"
	"github.com/tinoosan/tripledger/internal/service/user"
)

// Store is the combined read/write surface the HTTP layer needs from a
// storage backend. Both the memory and postgres stores satisfy it.
type Store interface {
	user.Repo
	user.Writer
	trip.Repo
	trip.Writer
	expense.Repo
	expense.Writer
	debt.Repo
}
