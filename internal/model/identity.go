package model

// Identity は検証済みトークンから得られる認証主体。
// 1リクエストの間だけ存在し、永続化されない。
type Identity struct {
	ID   string
	Role Role
}

// IsAdmin は管理者かどうかを返す。nilの場合はfalse。
func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == RoleAdmin
}
