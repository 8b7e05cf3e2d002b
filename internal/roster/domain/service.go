package domain

import "context"

type Service interface {
	// Preview classifies rows without writing anything.
	Preview(ctx context.Context, rows []Row) (Plan, error)
	// Apply resolves every row into a member in one transaction. With
	// Commit=false the transaction is rolled back after counting.
	Apply(ctx context.Context, rows []Row, opts ApplyOptions) (ApplyResult, error)
}
