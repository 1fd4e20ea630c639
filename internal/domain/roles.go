package domain

import "strings"

// UserRole описывает роль Postgres, под которой выполняется запрос пользователя.
type UserRole string

const (
	UserRoleAnon          UserRole = "anon"
	UserRoleAuthenticated UserRole = "authenticated"
	UserRoleService       UserRole = "service_role"
)

var knownRoles = map[UserRole]struct{}{
	UserRoleAnon:          {},
	UserRoleAuthenticated: {},
	UserRoleService:       {},
}

// ParseUserRole приводит claim role к известной роли. Неизвестные значения считаются anon.
func ParseUserRole(raw string) UserRole {
	role := UserRole(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := knownRoles[role]; ok {
		return role
	}
	return UserRoleAnon
}

// CanWrite сообщает, может ли роль вызывать пишущие процедуры.
func (r UserRole) CanWrite() bool {
	return r == UserRoleAuthenticated || r == UserRoleService
}

// Throttled сообщает, применяется ли к роли лимит записей.
func (r UserRole) Throttled() bool {
	return r != UserRoleService
}

// PostgresRole возвращает роль для SET LOCAL ROLE.
func (r UserRole) PostgresRole() string {
	if r.CanWrite() {
		return string(UserRoleAuthenticated)
	}
	return string(UserRoleAnon)
}
