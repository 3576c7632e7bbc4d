// Package input 入参校验与纯文本清洗，各 feature 共用
package input

import (
	"errors"
	"html"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"

	"eco-haat/internal/domain"
)

var (
	validate = newValidator()
	// 用户输入的文本一律按纯文本存储
	strict = bluemonday.StrictPolicy()
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(JSONName)
	return v
}

// JSONName 校验错误里的字段名使用 json tag
func JSONName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	return name
}

// Text 去掉 HTML 标签并还原实体
func Text(s string) string {
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(strings.TrimSpace(s))))
}

// Struct 按 validate tag 校验，失败时返回第一个字段的 *domain.ValidationError
func Struct(v any) error {
	if err := validate.Struct(v); err != nil {
		return toValidation(err)
	}
	return nil
}

// FromError 把 validator 的错误转成 *domain.ValidationError；其它错误原样包成无字段的校验错误
func FromError(err error) error { return toValidation(err) }

func toValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return domain.Invalid("", err.Error())
	}
	fe := verrs[0]
	field := fe.Field()
	if i := strings.IndexByte(field, '['); i > 0 {
		field = field[:i]
	}
	return domain.Invalid(field, message(fe))
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		if fe.Kind() == reflect.Slice {
			return "at most " + fe.Param() + " entries allowed"
		}
		return "must be at most " + fe.Param() + " characters"
	case "http_url":
		return "must be an http(s) URL"
	}
	return "is invalid"
}
