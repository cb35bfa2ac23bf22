package service

import (
	"github.com/fume-lounge/api/internal/enum"
)

// AllowedStatuses returns the set of order statuses a caller may assign,
// given their role and whether they own the order. Managers and owners
// may set any status on any order; servers only on their own orders.
// Other roles (bartender, chef) never transition orders.
//
// This is authorization only: it deliberately imposes no transition
// graph, so an authorized caller may move paid back to pending.
func AllowedStatuses(role string, isOwner bool) map[string]bool {
	switch role {
	case enum.RoleManager, enum.RoleOwner:
		return map[string]bool{
			enum.OrderStatusPending:  true,
			enum.OrderStatusPaid:     true,
			enum.OrderStatusCanceled: true,
		}
	case enum.RoleServer:
		if !isOwner {
			return nil
		}
		return map[string]bool{
			enum.OrderStatusPending:  true,
			enum.OrderStatusPaid:     true,
			enum.OrderStatusCanceled: true,
		}
	}
	return nil
}

// CanTransition reports whether the caller may set the order to newStatus.
func CanTransition(role string, isOwner bool, newStatus string) bool {
	return AllowedStatuses(role, isOwner)[newStatus]
}
