// Package model はドメインモデルを定義する。
package model

import "fmt"

// Role はユーザーの権限区分を表す。
type Role string

const (
	// RoleAdmin はすべてのリソースを操作できる管理者。
	RoleAdmin Role = "admin"
	// RoleOrganizer はイベントや会場を管理する主催者。
	RoleOrganizer Role = "organizer"
	// RoleAttendee はイベントに申し込む参加者。
	RoleAttendee Role = "attendee"
)

// AllRoles は定義済みの全ロールを返す。
func AllRoles() []Role {
	return []Role{RoleAdmin, RoleOrganizer, RoleAttendee}
}

// Valid はロールが定義済みの値かどうかを返す。
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleOrganizer, RoleAttendee:
		return true
	default:
		return false
	}
}

// ParseRole は文字列をRoleに変換する。未定義の値はエラーになる。
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role: %q", s)
	}
	return r, nil
}
