package postgres

import (
	"github.com/tinoosan/tripledger/internal/service/debt"
	"github.com/tinoosan/tripledger/internal/service/expense"
	"github.com/tinoosan/tripledger/internal/service/trip"
	"github.com/tinoosan/tripledger/internal/service/user"
)

// Compile-time interface assertions documenting which interfaces Store satisfies.
var (
	_ user.Repo      = (*Store)(nil)
	_ user.Writer    = (*Store)(nil)
	_ trip.Repo      = (*Store)(nil)
	_ trip.Writer    = (*Store)(nil)
	_ expense.Repo   = (*Store)(nil)
	_ expense.Writer = (*Store)(nil)
	_ debt.Repo      = (*Store)(nil)
)
