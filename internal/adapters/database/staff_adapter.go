package database

import (
	"context"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/lib/pq"
	"github.com/zatekoja/carematch/backend/internal/domain/entities"
	"github.com/zatekoja/carematch/backend/internal/domain/repositories"
	"github.com/zatekoja/carematch/backend/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/carematch/backend/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/carematch/backend/pkg/errors"
)

const (
	staffMembersTable      = "staff_members"
	specialtyProfilesTable = "specialty_profiles"
)

// StaffAdapter implements StaffDirectory and StaffWriter on Postgres
type StaffAdapter struct {
	client  *postgres.Client
	db      *goqu.Database
	metrics *observability.Metrics
}

var (
	_ repositories.StaffDirectory = (*StaffAdapter)(nil)
	_ repositories.StaffWriter    = (*StaffAdapter)(nil)
)

// NewStaffAdapter creates a new staff adapter
func NewStaffAdapter(client *postgres.Client, metrics *observability.Metrics) *StaffAdapter {
	return &StaffAdapter{
		client:  client,
		db:      goqu.New("postgres", client.DB()),
		metrics: metrics,
	}
}

// ListClinicalStaff retrieves owners and doctors of the given providers with their
// specialty profiles, in one query
func (a *StaffAdapter) ListClinicalStaff(ctx context.Context, providerIDs []string) (map[string][]*entities.StaffMember, error) {
	staff := make(map[string][]*entities.StaffMember)
	if len(providerIDs) == 0 {
		return staff, nil
	}

	start := time.Now()
	defer func() { observability.RecordDBMetric(ctx, a.metrics, "staff.list_clinical", time.Since(start)) }()

	roles := make([]string, len(entities.ClinicalRoles))
	for i, role := range entities.ClinicalRoles {
		roles[i] = string(role)
	}

	query, _, err := a.db.Select(
		goqu.I("sm.id"),
		goqu.I("sm.provider_id"),
		goqu.I("sm.user_id"),
		goqu.I("sm.role"),
		goqu.I("sp.specialties"),
	).
		From(goqu.T(staffMembersTable).As("sm")).
		LeftJoin(
			goqu.T(specialtyProfilesTable).As("sp"),
			goqu.On(goqu.Ex{"sp.user_id": goqu.I("sm.user_id")}),
		).
		Where(goqu.Ex{
			"sm.provider_id": providerIDs,
			"sm.role":        roles,
		}).
		Order(goqu.I("sm.provider_id").Asc(), goqu.I("sm.id").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build staff query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.NewDataUnavailableError("failed to list staff", err)
	}
	defer rows.Close()

	for rows.Next() {
		member := &entities.StaffMember{}
		var role string
		var specialties pq.StringArray
		if err := rows.Scan(&member.ID, &member.ProviderID, &member.UserID, &role, &specialties); err != nil {
			return nil, apperrors.NewDataUnavailableError("failed to scan staff member", err)
		}
		member.Role = entities.StaffRole(role)
		member.Specialties = []string(specialties)
		staff[member.ProviderID] = append(staff[member.ProviderID], member)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDataUnavailableError("failed to iterate staff", err)
	}

	return staff, nil
}

// Upsert writes a staff membership and the member's specialty profile
func (a *StaffAdapter) Upsert(ctx context.Context, member *entities.StaffMember) error {
	memberQuery, _, err := a.db.Insert(staffMembersTable).
		Rows(goqu.Record{
			"id":          member.ID,
			"provider_id": member.ProviderID,
			"user_id":     member.UserID,
			"role":        string(member.Role),
		}).
		OnConflict(goqu.DoUpdate("id", goqu.Record{
			"provider_id": goqu.L("EXCLUDED.provider_id"),
			"user_id":     goqu.L("EXCLUDED.user_id"),
			"role":        goqu.L("EXCLUDED.role"),
		})).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build staff upsert query", err)
	}

	profileQuery, _, err := a.db.Insert(specialtyProfilesTable).
		Rows(goqu.Record{
			"user_id":     member.UserID,
			"specialties": pq.Array(nonNil(member.Specialties)),
		}).
		OnConflict(goqu.DoUpdate("user_id", goqu.Record{
			"specialties": goqu.L("EXCLUDED.specialties"),
		})).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build profile upsert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, memberQuery); err != nil {
		return apperrors.NewInternalError("failed to upsert staff member", err)
	}
	if _, err := a.client.DB().ExecContext(ctx, profileQuery); err != nil {
		return apperrors.NewInternalError("failed to upsert specialty profile", err)
	}
	return nil
}
