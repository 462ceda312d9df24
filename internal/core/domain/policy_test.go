package domain

import (
	"testing"

	"biblio-reserve/internal/adapters/persistence/models"

	"github.com/stretchr/testify/assert"
)

func TestCanActOwner(t *testing.T) {
	// Owners act on their own resources without any permission
	assert.True(t, CanAct(7, nil, ActionReadReservations, 7))
	assert.True(t, CanAct(7, nil, ActionReturnReservations, 7))
	assert.True(t, CanAct(7, nil, ActionDeleteReservations, 7))

	// A different owner needs the permission
	assert.False(t, CanAct(7, nil, ActionReadReservations, 8))
	assert.True(t, CanAct(7, models.PermissionList{PermReadReservations}, ActionReadReservations, 8))
}

func TestCanActNoOwner(t *testing.T) {
	// ownerID 0 means the resource has no owner: the permission is mandatory
	assert.False(t, CanAct(7, nil, ActionCreateBooks, 0))
	assert.True(t, CanAct(7, models.PermissionList{PermCreateBooks}, ActionCreateBooks, 0))
}

func TestCanActReturnUsesUpdatePermission(t *testing.T) {
	perms := models.PermissionList{PermUpdateReservations}
	assert.True(t, CanAct(1, perms, ActionReturnReservations, 2))
	assert.True(t, CanAct(1, perms, ActionUpdateReservations, 2))
	assert.False(t, CanAct(1, perms, ActionDeleteReservations, 2))
}

func TestCanActUnknownAction(t *testing.T) {
	assert.False(t, CanAct(1, AllPermissions(), Action("nonsense"), 2))
}

func TestAllPermissionsCoversEveryAction(t *testing.T) {
	all := AllPermissions()
	for action, required := range requiredPermission {
		assert.True(t, all.Has(required), "missing permission for %s", action)
	}
}
