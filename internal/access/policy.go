// Package access はロールゲートとリソース単位のアクセスポリシーを提供する。
package access

import (
	"slices"
	"strings"

	"github.com/hitoshi/eventhub/internal/model"
)

// Action はリソースに対する操作種別。
type Action string

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// RoleSet は許可ロールの集合。nilは「未設定」を表し、空集合とは区別される。
type RoleSet []model.Role

// Roles は指定ロールからなるRoleSetを生成する。
func Roles(roles ...model.Role) RoleSet {
	set := make(RoleSet, 0, len(roles))
	for _, r := range roles {
		if !set.Contains(r) {
			set = append(set, r)
		}
	}
	return set
}

// Configured はロール集合が設定されているかどうかを返す。
func (s RoleSet) Configured() bool {
	return s != nil
}

// Contains はロールが集合に含まれるかどうかを返す。
func (s RoleSet) Contains(role model.Role) bool {
	return slices.Contains(s, role)
}

// String はカンマ区切りのロール一覧を返す。
func (s RoleSet) String() string {
	names := make([]string, len(s))
	for i, r := range s {
		names[i] = string(r)
	}
	return strings.Join(names, ", ")
}

// ResourceConfig はリソース種別ごとの公開範囲と認可ルールを表す。
type ResourceConfig struct {
	Name        string
	CreateRoles RoleSet
	UpdateRoles RoleSet
	DeleteRoles RoleSet
	ReadRoles   RoleSet
	PublicRead  bool
	OwnerField  string
}

// EffectiveReadRoles は参照に必要なロール集合を返す。
// ReadRoles未設定時はUpdateRolesにadminを加えた集合、両方未設定ならadminのみ。
func (c ResourceConfig) EffectiveReadRoles() RoleSet {
	if c.ReadRoles.Configured() {
		return c.ReadRoles
	}
	roles := append(RoleSet{model.RoleAdmin}, c.UpdateRoles...)
	return Roles(roles...)
}

// RolesFor は操作に対応するロール集合を返す。
func (c ResourceConfig) RolesFor(action Action) RoleSet {
	switch action {
	case ActionCreate:
		return c.CreateRoles
	case ActionUpdate:
		return c.UpdateRoles
	case ActionDelete:
		return c.DeleteRoles
	case ActionRead:
		return c.EffectiveReadRoles()
	default:
		return nil
	}
}

// Target は所有判定が可能な対象レコード。
type Target interface {
	OwnedBy(identity *model.Identity) bool
}

// TargetFunc は関数をTargetとして扱うアダプター。
type TargetFunc func(identity *model.Identity) bool

func (f TargetFunc) OwnedBy(identity *model.Identity) bool { return f(identity) }

// Allow はidentityのロールがrolesに含まれるかを判定する。identityがnilなら常に拒否する。
func Allow(identity *model.Identity, roles RoleSet) bool {
	if identity == nil {
		return false
	}
	return roles.Contains(identity.Role)
}

// CheckAccess はidentityがcfgのリソースに対してactionを実行できるかを判定する。
// 許可時はnil、未認証なら*model.APIError(UNAUTHENTICATED)、権限不足ならFORBIDDENを返す。
// targetは所有判定の対象で、対象レコードがない場合はnilを渡す。
func CheckAccess(identity *model.Identity, cfg ResourceConfig, action Action, target Target) error {
	if action == ActionRead && cfg.PublicRead {
		return nil
	}
	if identity == nil {
		return model.NewUnauthenticatedError("Not authorized, no token")
	}
	if identity.IsAdmin() {
		return nil
	}
	if cfg.OwnerField != "" && target != nil {
		if target.OwnedBy(identity) {
			return nil
		}
		return model.NewForbiddenError("Forbidden: You do not own this resource")
	}
	roles := cfg.RolesFor(action)
	if Allow(identity, roles) {
		return nil
	}
	return model.NewForbiddenError(RoleDeniedMessage(roles))
}

// RoleDeniedMessage はロール不足時のメッセージを生成する。
func RoleDeniedMessage(roles RoleSet) string {
	return "Forbidden: Requires one of the following roles: " + roles.String()
}
