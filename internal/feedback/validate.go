package feedback

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

var ErrValidation = errors.New("表单校验失败")

// ValidationError 字段级校验失败，Message 可直接展示给用户
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Validator 本地表单约束校验
type Validator interface {
	Validate(values url.Values) error
}

// FieldValidator 对应页面上的原生约束：必填、邮箱格式、留言长度
type FieldValidator struct {
	required      []string
	maxMessageLen int
	validate      *validator.Validate
}

func NewFieldValidator() *FieldValidator {
	return &FieldValidator{
		required:      []string{"Name", "Email"},
		maxMessageLen: 4000,
		validate:      validator.New(),
	}
}

func (v *FieldValidator) Validate(values url.Values) error {
	for _, name := range v.required {
		if strings.TrimSpace(values.Get(name)) == "" {
			return &ValidationError{Field: name, Message: fmt.Sprintf("Please fill in the %s field.", name)}
		}
	}

	if email := strings.TrimSpace(values.Get("Email")); email != "" {
		if err := v.validate.Var(email, "email"); err != nil {
			return &ValidationError{Field: "Email", Message: "Please enter a valid email address."}
		}
	}

	if utf8.RuneCountInString(values.Get("Message")) > v.maxMessageLen {
		return &ValidationError{
			Field:   "Message",
			Message: fmt.Sprintf("Please keep your message under %d characters.", v.maxMessageLen),
		}
	}
	return nil
}
