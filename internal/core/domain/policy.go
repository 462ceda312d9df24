package domain

import "biblio-reserve/internal/adapters/persistence/models"

// Action enumerates the operations gated by the access policy
type Action string

const (
	ActionReadReservations   Action = "reservations:read"
	ActionCreateReservations Action = "reservations:create"
	ActionUpdateReservations Action = "reservations:update"
	ActionReturnReservations Action = "reservations:return"
	ActionDeleteReservations Action = "reservations:delete"

	ActionCreateBooks Action = "books:create"
	ActionUpdateBooks Action = "books:update"
	ActionDeleteBooks Action = "books:delete"

	ActionReadUsers   Action = "users:read"
	ActionUpdateUsers Action = "users:update"
	ActionDeleteUsers Action = "users:delete"
)

// Permission strings as stored on user records
const (
	PermReadReservations   = "readReservations"
	PermCreateReservations = "createReservations"
	PermUpdateReservations = "updateReservations"
	PermDeleteReservations = "deleteReservations"

	PermCreateBooks = "createBooks"
	PermUpdateBooks = "updateBooks"
	PermDeleteBooks = "deleteBooks"

	PermReadUsers   = "readUsers"
	PermUpdateUsers = "updateUsers"
	PermDeleteUsers = "deleteUsers"
)

// requiredPermission maps each action to the permission that grants it when
// the caller is not the resource owner. Returning a book is modelled as an
// update of the reservation record.
var requiredPermission = map[Action]string{
	ActionReadReservations:   PermReadReservations,
	ActionCreateReservations: PermCreateReservations,
	ActionUpdateReservations: PermUpdateReservations,
	ActionReturnReservations: PermUpdateReservations,
	ActionDeleteReservations: PermDeleteReservations,

	ActionCreateBooks: PermCreateBooks,
	ActionUpdateBooks: PermUpdateBooks,
	ActionDeleteBooks: PermDeleteBooks,

	ActionReadUsers:   PermReadUsers,
	ActionUpdateUsers: PermUpdateUsers,
	ActionDeleteUsers: PermDeleteUsers,
}

// AllPermissions returns the full permission set (used by the admin seeder)
func AllPermissions() models.PermissionList {
	return models.PermissionList{
		PermReadReservations,
		PermCreateReservations,
		PermUpdateReservations,
		PermDeleteReservations,
		PermCreateBooks,
		PermUpdateBooks,
		PermDeleteBooks,
		PermReadUsers,
		PermUpdateUsers,
		PermDeleteUsers,
	}
}

// CanAct is the single policy check: a caller may act on a resource iff they
// own it or hold the action's permission. Pass ownerID=0 for resources with
// no owner (e.g. books), which makes the permission mandatory.
func CanAct(callerID uint, perms models.PermissionList, action Action, ownerID uint) bool {
	if ownerID != 0 && callerID == ownerID {
		return true
	}

	required, ok := requiredPermission[action]
	if !ok {
		return false
	}
	return perms.Has(required)
}
