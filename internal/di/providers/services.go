package providers

import (
	"github.com/samber/do/v2"

	"github.com/listenupapp/lending-server/internal/config"
	"github.com/listenupapp/lending-server/internal/logger"
	"github.com/listenupapp/lending-server/internal/service"
)

// ProvideBookService provides the book catalog service.
func ProvideBookService(i do.Injector) (*service.BookService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewBookService(storeHandle.Store, log.Logger), nil
}

// ProvideLoanService provides the loan service with the configured overdue policy.
func ProvideLoanService(i do.Injector) (*service.LoanService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	policy := service.LoanPolicy{OverdueDays: cfg.Loans.OverdueDays}
	return service.NewLoanService(storeHandle.Store, policy, log.Logger), nil
}

// ProvideLateLoanNotifier provides the late-loan notifier. Notices go to the log.
func ProvideLateLoanNotifier(i do.Injector) (*service.LateLoanNotifier, error) {
	cfg := do.MustInvoke[*config.Config](i)
	loanService := do.MustInvoke[*service.LoanService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewLateLoanNotifier(
		loanService,
		service.NewLogNotifier(log.Logger),
		cfg.Loans.LateLoanMessage,
		log.Logger,
	), nil
}
