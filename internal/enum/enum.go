package enum

// ── Order lifecycle (CHECK constrained in DB) ──

const (
	OrderStatusPending  = "pending"
	OrderStatusPaid     = "paid"
	OrderStatusCanceled = "canceled"
)

// IsValidOrderStatus reports whether s is one of the three order statuses.
func IsValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusPending, OrderStatusPaid, OrderStatusCanceled:
		return true
	}
	return false
}

// ── Staff roles (CHECK constrained in DB) ──

const (
	RoleServer    = "server"
	RoleManager   = "manager"
	RoleOwner     = "owner"
	RoleBartender = "bartender"
	RoleChef      = "chef"
)

// IsValidRole reports whether s is a known staff role.
func IsValidRole(s string) bool {
	switch s {
	case RoleServer, RoleManager, RoleOwner, RoleBartender, RoleChef:
		return true
	}
	return false
}

const (
	UserStatusActive   = "active"
	UserStatusInactive = "inactive"
)

// ── Analytics date presets (no DB constraint) ──

const (
	PresetLast7Days     = "7d"
	PresetLast30Days    = "30d"
	PresetQuarterToDate = "qtd"
	PresetYearToDate    = "ytd"
)
