package database

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/carematch/backend/internal/domain/entities"
	apperrors "github.com/zatekoja/carematch/backend/pkg/errors"
)

func TestStaffAdapter_ListClinicalStaff(t *testing.T) {
	client, mock := setupMockClient(t)
	adapter := NewStaffAdapter(client, nil)

	mock.ExpectQuery(`FROM "staff_members" AS "sm" LEFT JOIN "specialty_profiles" AS "sp" ON .*"sm"\."provider_id" IN \('p1', 'p2'\).*"sm"\."role" IN \('owner', 'doctor'\)`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "provider_id", "user_id", "role", "specialties"}).
			AddRow("s1", "p1", "u1", "owner", "{Orthopedics}").
			AddRow("s2", "p1", "u2", "doctor", nil).
			AddRow("s3", "p2", "u3", "doctor", "{Cardiology,\"Interventional Cardiology\"}"))

	staff, err := adapter.ListClinicalStaff(context.Background(), []string{"p1", "p2"})
	require.NoError(t, err)
	require.Len(t, staff["p1"], 2)
	assert.Equal(t, entities.StaffRoleOwner, staff["p1"][0].Role)
	assert.Equal(t, []string{"Orthopedics"}, staff["p1"][0].Specialties)
	assert.Empty(t, staff["p1"][1].Specialties)
	assert.Equal(t, []string{"Cardiology", "Interventional Cardiology"}, staff["p2"][0].Specialties)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStaffAdapter_ListClinicalStaff_Empty(t *testing.T) {
	client, mock := setupMockClient(t)
	adapter := NewStaffAdapter(client, nil)

	staff, err := adapter.ListClinicalStaff(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, staff)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStaffAdapter_ListClinicalStaff_StoreFailure(t *testing.T) {
	client, mock := setupMockClient(t)
	adapter := NewStaffAdapter(client, nil)

	mock.ExpectQuery(`FROM "staff_members"`).WillReturnError(errors.New("boom"))

	_, err := adapter.ListClinicalStaff(context.Background(), []string{"p1"})
	assert.True(t, apperrors.IsDataUnavailable(err))
}

func TestStaffAdapter_Upsert(t *testing.T) {
	client, mock := setupMockClient(t)
	adapter := NewStaffAdapter(client, nil)

	mock.ExpectExec(`INSERT INTO "staff_members"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO "specialty_profiles" .* ON CONFLICT \(user_id\)`).WillReturnResult(sqlmock.NewResult(0, 1))

	err := adapter.Upsert(context.Background(), &entities.StaffMember{
		ID: "s1", ProviderID: "p1", UserID: "u1", Role: entities.StaffRoleDoctor, Specialties: []string{"Fertility"},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
