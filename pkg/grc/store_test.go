package grc

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cisoworks/asset-intelligence/pkg/entity"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, NewStore(db).AutoMigrate())
	return db
}

func strPtr(s string) *string { return &s }

func TestCreateRiskUniquePerOrg(t *testing.T) {
	store := NewStore(setupTestDB(t))

	require.NoError(t, store.CreateRisk(&Risk{OrgID: strPtr("org-1"), ShortDescription: "Unpatched servers"}))

	// Same description in the same org is rejected with the typed error so
	// the API layer can map it to a conflict.
	err := store.CreateRisk(&Risk{OrgID: strPtr("org-1"), ShortDescription: "Unpatched servers"})
	var dup *entity.UniquenessViolation
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "Unpatched servers", dup.Key)

	err = store.CreateControl(&Control{OrgID: strPtr("org-1"), ShortDescription: "MFA everywhere"})
	require.NoError(t, err)
	err = store.CreateControl(&Control{OrgID: strPtr("org-1"), ShortDescription: "MFA everywhere"})
	require.ErrorAs(t, err, &dup)

	// The same description is fine in another org, and unscoped.
	require.NoError(t, store.CreateRisk(&Risk{OrgID: strPtr("org-2"), ShortDescription: "Unpatched servers"}))
	require.NoError(t, store.CreateRisk(&Risk{ShortDescription: "Unpatched servers"}))
}

func TestListRisksScoping(t *testing.T) {
	store := NewStore(setupTestDB(t))

	require.NoError(t, store.CreateRisk(&Risk{OrgID: strPtr("org-1"), ShortDescription: "Shadow IT"}))
	require.NoError(t, store.CreateRisk(&Risk{OrgID: strPtr("org-2"), ShortDescription: "Stale accounts"}))
	require.NoError(t, store.CreateRisk(&Risk{ShortDescription: "Global baseline"}))

	out, err := store.ListRisks(strPtr("org-1"))
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Shadow IT", out[0].ShortDescription)

	out, err = store.ListRisks(nil)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Global baseline", out[0].ShortDescription)
}

func TestControlStatusValidation(t *testing.T) {
	store := NewStore(setupTestDB(t))

	c := &Control{ShortDescription: "Quarterly access review"}
	require.NoError(t, store.CreateControl(c))
	assert.Equal(t, ControlEffective, c.Status)

	err := store.CreateControl(&Control{ShortDescription: "Bad one", Status: "Perfect"})
	var bad *entity.InvalidEnumValue
	require.ErrorAs(t, err, &bad)
	assert.Equal(t, "status", bad.Field)
}

func TestLinkAndUnlinkControl(t *testing.T) {
	store := NewStore(setupTestDB(t))

	risk := &Risk{OrgID: strPtr("org-1"), ShortDescription: "Stale accounts"}
	require.NoError(t, store.CreateRisk(risk))
	ctrl := &Control{OrgID: strPtr("org-1"), ShortDescription: "Quarterly access review", Status: ControlNeedsImprovement}
	require.NoError(t, store.CreateControl(ctrl))

	require.NoError(t, store.LinkControl(risk.ID, ctrl.ID))

	got, err := store.GetRisk(risk.ID)
	require.NoError(t, err)
	require.Len(t, got.Controls, 1)
	assert.Equal(t, ctrl.ID, got.Controls[0].ID)

	require.NoError(t, store.UnlinkControl(risk.ID, ctrl.ID))

	got, err = store.GetRisk(risk.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Controls)
}

func TestGetRiskNotFound(t *testing.T) {
	store := NewStore(setupTestDB(t))

	_, err := store.GetRisk("no-such-risk")
	assert.ErrorIs(t, err, entity.ErrNotFound)
}
