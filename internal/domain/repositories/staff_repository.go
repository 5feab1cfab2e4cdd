package repositories

import (
	"context"

	"github.com/zatekoja/carematch/backend/internal/domain/entities"
)

// StaffDirectory defines read access to provider staff and their specialty profiles
type StaffDirectory interface {
	// ListClinicalStaff retrieves staff with a clinical role (owner or doctor) for
	// each provider, keyed by provider ID. Providers without staff are absent.
	ListClinicalStaff(ctx context.Context, providerIDs []string) (map[string][]*entities.StaffMember, error)
}

// StaffWriter is used by tooling that loads staff records
type StaffWriter interface {
	Upsert(ctx context.Context, member *entities.StaffMember) error
}
