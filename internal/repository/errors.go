package repository

import (
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/eventhub/internal/model"
)

// translateError はPostgreSQLの制約違反をクライアント向けのAPIErrorに変換する。
// 制約違反以外のエラーはそのまま返す。
func translateError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}

	switch {
	case pqErr.Code.Name() == "unique_violation":
		return model.NewConflictError("Resource already exists.", constraintDetail(pqErr))
	case pqErr.Code.Class() == "23":
		return model.NewValidationError("Validation error.", constraintDetail(pqErr))
	case pqErr.Code.Class() == "22":
		return model.NewValidationError("Invalid input data.", pqErr.Message)
	default:
		return err
	}
}

func constraintDetail(pqErr *pq.Error) string {
	if pqErr.Detail != "" {
		return pqErr.Detail
	}
	if pqErr.Constraint != "" {
		return fmt.Sprintf("%s (%s)", pqErr.Message, pqErr.Constraint)
	}
	return pqErr.Message
}
