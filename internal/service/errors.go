package service

import (
	"errors"
	"fmt"
)

// ErrNotFound 是所有“记录不存在”错误的基础哨兵。
// 访问其他用户的数据同样返回该错误，避免泄露记录是否存在。
var ErrNotFound = errors.New("record not found")

var (
	// ErrHabitNotFound 在指定习惯不存在或不属于当前用户时返回
	ErrHabitNotFound = fmt.Errorf("habit %w", ErrNotFound)
	// ErrActivityNotFound 在活动记录不存在时返回
	ErrActivityNotFound = fmt.Errorf("activity %w", ErrNotFound)
	// ErrMoodNotFound 在情绪记录不存在时返回
	ErrMoodNotFound = fmt.Errorf("mood %w", ErrNotFound)
	// ErrNutritionNotFound 在饮食记录不存在时返回
	ErrNutritionNotFound = fmt.Errorf("nutrition %w", ErrNotFound)
	// ErrUserNotFound 在用户不存在时返回
	ErrUserNotFound = fmt.Errorf("user %w", ErrNotFound)
)

// ValidationError 描述输入字段校验失败。
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IsValidationError 判断错误链中是否包含 ValidationError。
func IsValidationError(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}
