package model

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"
)

// fieldErrors はバリデーションエラーを蓄積する。
type fieldErrors []string

func (f *fieldErrors) required(field, value string) {
	if strings.TrimSpace(value) == "" {
		*f = append(*f, fmt.Sprintf("%s is required", field))
	}
}

func (f *fieldErrors) maxLen(field, value string, n int) {
	if utf8.RuneCountInString(value) > n {
		*f = append(*f, fmt.Sprintf("%s must be at most %d characters", field, n))
	}
}

func (f *fieldErrors) email(field, value string) {
	if value == "" {
		return
	}
	if _, err := mail.ParseAddress(value); err != nil {
		*f = append(*f, fmt.Sprintf("%s must be a valid email address", field))
	}
}

func (f *fieldErrors) check(ok bool, msg string) {
	if !ok {
		*f = append(*f, msg)
	}
}
