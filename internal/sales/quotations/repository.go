package quotations

import "context"

// Repository is the store of record for quotes. Quotes live in the CRM
// backend; crmapi.Client is the production implementation.
type Repository interface {
	Get(ctx context.Context, id string) (*Quote, error)
	List(ctx context.Context, req ListQuotesRequest) ([]Quote, error)
	Create(ctx context.Context, quote Quote) (*Quote, error)
	Update(ctx context.Context, quote Quote) (*Quote, error)
	Delete(ctx context.Context, id string) error
	UpdateStatus(ctx context.Context, id string, status Status) (*Quote, error)
	GeneratePDF(ctx context.Context, id string) (string, error)
}

// Directory resolves the company and contacts a quote refers to.
type Directory interface {
	GetCompany(ctx context.Context, id string) (*Company, error)
	GetContact(ctx context.Context, id string) (*Contact, error)
}

// StatusMachine guards operator-initiated status changes.
type StatusMachine interface {
	Apply(q *Quote, to Status) error
}
