package models

type Permission string

const (
	PermOrderCreate     Permission = "order:create"
	PermOrderViewAll    Permission = "order:view_all"
	PermOrderFulfill    Permission = "order:fulfill"
	PermOrderCancelAny  Permission = "order:cancel_any"
	PermOrderCancelOwn  Permission = "order:cancel_own"
	PermBeverageView    Permission = "beverage:view"
	PermBeverageManage  Permission = "beverage:manage"
	PermInventoryManage Permission = "inventory:manage"
	PermUserManage      Permission = "user:manage"
	PermReportView      Permission = "report:view"
	PermRate            Permission = "rating:write"
	PermFavorite        Permission = "favorite:write"
)

// RolePermissions is the complete authorization table. A role holds exactly
// the permissions listed here.
var RolePermissions = map[UserRole][]Permission{
	RoleAdmin: {
		PermOrderCreate, PermOrderViewAll, PermOrderFulfill, PermOrderCancelAny, PermOrderCancelOwn,
		PermBeverageView, PermBeverageManage, PermInventoryManage,
		PermUserManage, PermReportView, PermRate, PermFavorite,
	},
	RoleOfficeBoy: {
		PermOrderCreate, PermOrderViewAll, PermOrderFulfill, PermOrderCancelAny, PermOrderCancelOwn,
		PermBeverageView, PermRate, PermFavorite,
	},
	RoleEmployee: {
		PermOrderCreate, PermOrderCancelOwn,
		PermBeverageView, PermRate, PermFavorite,
	},
}

func Can(role UserRole, perm Permission) bool {
	for _, p := range RolePermissions[role] {
		if p == perm {
			return true
		}
	}
	return false
}
