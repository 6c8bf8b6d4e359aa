package gatedvoting

import (
	"log/slog"
	"time"

	httpadapter "slothsafe/contexts/governance/gated-voting/adapters/http"
	"slothsafe/contexts/governance/gated-voting/adapters/memory"
	"slothsafe/contexts/governance/gated-voting/application/commands"
	"slothsafe/contexts/governance/gated-voting/application/queries"
	"slothsafe/contexts/governance/gated-voting/domain/entities"
	"slothsafe/contexts/governance/gated-voting/domain/services"
	"slothsafe/contexts/governance/gated-voting/ports"
)

const DefaultTokenDecimals = 8

type Module struct {
	Handler  httpadapter.Handler
	Sessions commands.SessionUseCase
	Verifier queries.PaymentVerifier
	Store    *memory.Store
}

type Dependencies struct {
	Polls               []entities.Poll
	Ledger              ports.VoteLedger
	Sessions            ports.SessionStore
	Transactions        ports.TransactionSource
	Outbox              ports.OutboxWriter
	Grants              ports.GrantRecorder
	Progress            ports.ProgressNotifier
	Clock               ports.Clock
	IDGen               ports.IDGenerator
	Terms               entities.PaymentTerms
	GroupID             int64
	TokenDecimals       int
	VerificationWindow  int
	VerificationTimeout time.Duration
	Logger              *slog.Logger
}

// NewModule wires the voting flow. It fails only when the poll catalog is
// invalid.
func NewModule(deps Dependencies) (Module, error) {
	catalog, err := services.NewPollCatalog(deps.Polls)
	if err != nil {
		return Module{}, err
	}
	verifier := queries.PaymentVerifier{
		Transactions:  deps.Transactions,
		TokenDecimals: deps.TokenDecimals,
		WindowSize:    deps.VerificationWindow,
		Timeout:       deps.VerificationTimeout,
		Logger:        deps.Logger,
	}
	sessions := commands.SessionUseCase{
		Catalog:  catalog,
		Sessions: deps.Sessions,
		Ledger:   deps.Ledger,
		Verifier: verifier,
		Outbox:   deps.Outbox,
		Grants:   deps.Grants,
		Progress: deps.Progress,
		Clock:    deps.Clock,
		IDGen:    deps.IDGen,
		Terms:    deps.Terms,
		GroupID:  deps.GroupID,
		Logger:   deps.Logger,
	}
	return Module{
		Handler: httpadapter.Handler{
			Sessions: sessions,
			Polls: queries.PollQueryUseCase{
				Catalog: catalog,
				Ledger:  deps.Ledger,
			},
			Logger: deps.Logger,
		},
		Sessions: sessions,
		Verifier: verifier,
	}, nil
}

// NewInMemoryModule keeps credentials, sessions and the outbox in one memory
// store; transactions still come from the given source.
func NewInMemoryModule(
	polls []entities.Poll,
	terms entities.PaymentTerms,
	transactions ports.TransactionSource,
	logger *slog.Logger,
) (Module, error) {
	store := memory.NewStore(nil)
	module, err := NewModule(Dependencies{
		Polls:              polls,
		Ledger:             store,
		Sessions:           store,
		Transactions:       transactions,
		Outbox:             store,
		Grants:             store,
		Clock:              store,
		IDGen:              store,
		Terms:              terms,
		TokenDecimals:      DefaultTokenDecimals,
		VerificationWindow: queries.DefaultVerificationWindow,
		Logger:             logger,
	})
	if err != nil {
		return Module{}, err
	}
	module.Store = store
	return module, nil
}
