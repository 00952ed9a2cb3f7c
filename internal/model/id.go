package model

import "github.com/google/uuid"

// ValidID はidがハイフン区切り36文字のUUID表記かどうかを返す。
// urn:uuid:接頭辞や波括弧付きの表記はPostgreSQLのuuid列との比較に使えないため無効とする。
func ValidID(id string) bool {
	if len(id) != 36 {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}
