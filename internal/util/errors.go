package util

import "errors"

var (
	ErrUserNotFound          = errors.New("user not found")
	ErrAttemptNotFound       = errors.New("attempt not found")
	ErrSkillProgressNotFound = errors.New("skill progress not found")
	ErrSkillNotFound         = errors.New("skill not found")
	ErrNoSkillAttempts       = errors.New("no recorded attempts for skill")
)

// IsNotFound 判断是否为未找到类错误
func IsNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrAttemptNotFound) ||
		errors.Is(err, ErrSkillProgressNotFound) ||
		errors.Is(err, ErrSkillNotFound) ||
		errors.Is(err, ErrNoSkillAttempts)
}
