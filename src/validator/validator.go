package validator

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// CustomValidator は拡張バリデーション機能を提供
type CustomValidator struct {
	validator  *validator.Validate
	keyPattern *regexp.Regexp
}

// ValidationError はバリデーションエラーの詳細情報
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
	Value   any    `json:"value,omitempty"`
}

// ValidationErrors は複数のバリデーションエラー
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (ve ValidationErrors) Error() string {
	return fmt.Sprintf("validation failed: %d errors", len(ve.Errors))
}

// HasField 指定フィールドのエラーが含まれるか
func (ve ValidationErrors) HasField(field string) bool {
	for _, e := range ve.Errors {
		if e.Field == field {
			return true
		}
	}
	return false
}

// NewCustomValidator creates a new custom validator instance
func NewCustomValidator() *CustomValidator {
	v := validator.New()
	cv := &CustomValidator{
		validator: v,
		// オブジェクトキーに使えない制御文字を除外
		keyPattern: regexp.MustCompile(`^[^\x00-\x1f\x7f\\]+$`),
	}

	v.RegisterValidation("safe_text", cv.validateSafeText)
	v.RegisterValidation("safe_key", cv.validateSafeKey)

	return cv
}

// Validate validates a struct and returns detailed error information
func (cv *CustomValidator) Validate(s interface{}) error {
	if err := cv.validator.Struct(s); err != nil {
		fieldErrors, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}

		var validationErrors []ValidationError
		for _, err := range fieldErrors {
			validationErrors = append(validationErrors, ValidationError{
				Field:   err.Field(),
				Tag:     err.Tag(),
				Value:   err.Value(),
				Message: cv.generateErrorMessage(err),
			})
		}

		return ValidationErrors{Errors: validationErrors}
	}
	return nil
}

// カスタムバリデーション関数

func (cv *CustomValidator) validateSafeText(fl validator.FieldLevel) bool {
	for _, r := range fl.Field().String() {
		if r < 32 && r != 9 && r != 10 && r != 13 { // タブ、改行、復帰以外の制御文字を拒否
			return false
		}
	}
	return true
}

func (cv *CustomValidator) validateSafeKey(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	if !cv.keyPattern.MatchString(value) {
		return false
	}
	// パスとして解釈されるファイル名は拒否
	if strings.Contains(value, "/") || value == "." || value == ".." {
		return false
	}
	return path.Base(value) == value
}

// generateErrorMessage generates user-friendly error messages
func (cv *CustomValidator) generateErrorMessage(err validator.FieldError) string {
	field := err.Field()

	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s は必須項目です", field)
	case "max":
		return fmt.Sprintf("%s は %s 文字以下で入力してください", field, err.Param())
	case "safe_text":
		return fmt.Sprintf("%s に不正な文字が含まれています", field)
	case "safe_key":
		return fmt.Sprintf("%s はファイル名として使用できません", field)
	default:
		return fmt.Sprintf("%s が無効です (値: %v)", field, err.Value())
	}
}
