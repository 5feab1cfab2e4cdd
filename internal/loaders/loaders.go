package loaders

import (
	"context"
	"time"

	"github.com/graph-gophers/dataloader/v7"
	"github.com/zatekoja/carematch/backend/internal/domain/entities"
	"github.com/zatekoja/carematch/backend/internal/domain/repositories"
)

// Loaders contains the per-request dataloaders used while ranking
type Loaders struct {
	StaffLoader *dataloader.Loader[string, []*entities.StaffMember]
}

// NewLoaders creates a fresh set of loaders. Loaders cache results for their whole
// lifetime, so create one set per request.
func NewLoaders(staffRepo repositories.StaffDirectory, wait time.Duration, batchCapacity int) *Loaders {
	opts := []dataloader.Option[string, []*entities.StaffMember]{
		dataloader.WithWait[string, []*entities.StaffMember](wait),
	}
	if batchCapacity > 0 {
		opts = append(opts, dataloader.WithBatchCapacity[string, []*entities.StaffMember](batchCapacity))
	}

	return &Loaders{
		StaffLoader: dataloader.NewBatchedLoader(func(ctx context.Context, keys []string) []*dataloader.Result[[]*entities.StaffMember] {
			results := make([]*dataloader.Result[[]*entities.StaffMember], len(keys))
			staff, err := staffRepo.ListClinicalStaff(ctx, keys)

			for i, key := range keys {
				if err != nil {
					results[i] = &dataloader.Result[[]*entities.StaffMember]{Error: err}
				} else {
					// providers without clinical staff get an empty list, not an error
					results[i] = &dataloader.Result[[]*entities.StaffMember]{Data: staff[key]}
				}
			}
			return results
		}, opts...),
	}
}

// LoadStaff returns the clinical staff of one provider, batched with concurrent calls
func (l *Loaders) LoadStaff(ctx context.Context, providerID string) ([]*entities.StaffMember, error) {
	return l.StaffLoader.Load(ctx, providerID)()
}
