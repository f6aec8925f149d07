// Package forms разбирает и проверяет формы входа и регистрации.
package forms

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// SpecialChars спецсимволы, один из которых обязателен в пароле.
// Дефис спецсимволом не считается.
const SpecialChars = "!?.@#$%^&*()+"

// LoginForm форма входа
type LoginForm struct {
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"required,min=8,pwdigit,pwlower,pwupper,pwspecial"`
}

// RegisterForm форма регистрации
type RegisterForm struct {
	Username  string `form:"username" validate:"required,min=2,max=15"`
	Email     string `form:"email" validate:"required,email"`
	Password  string `form:"password" validate:"required,min=8,pwdigit,pwlower,pwupper,pwspecial"`
	Password2 string `form:"password2" validate:"required,min=8,eqfield=Password"`
}

// FieldErrors ошибки по имени поля формы
type FieldErrors map[string]string

func (e FieldErrors) Has(field string) bool {
	_, ok := e[field]
	return ok
}

// messages текст ошибки по полю и тегу; "*" подходит к любому полю
var messages = map[string]map[string]string{
	"email": {
		"required": "Email is required",
		"email":    "Invalid Email",
	},
	"password": {
		"required":  "No password provided",
		"min":       "Password is too short - should be 8 chars minimum",
		"pwdigit":   "Password must have a number",
		"pwlower":   "Password must have a lowercase",
		"pwupper":   "Password must have a uppercase",
		"pwspecial": "Password must have a special char",
	},
	"password2": {
		"required": "No password provided",
		"min":      "Password is too short - should be 8 chars minimum",
		"eqfield":  "Passwords must match",
	},
	"username": {
		"required": "Display name is required",
		"min":      "Too short",
		"max":      "Must be 15 char or less",
	},
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// в ошибках имя поля берём из тега form
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// только ASCII: буквы вне латиницы не засчитываются
	_ = v.RegisterValidation("pwdigit", hasRune(func(r rune) bool { return r >= '0' && r <= '9' }))
	_ = v.RegisterValidation("pwlower", hasRune(func(r rune) bool { return r >= 'a' && r <= 'z' }))
	_ = v.RegisterValidation("pwupper", hasRune(func(r rune) bool { return r >= 'A' && r <= 'Z' }))
	_ = v.RegisterValidation("pwspecial", hasRune(func(r rune) bool {
		return strings.ContainsRune(SpecialChars, r)
	}))
	return v
}

func hasRune(pred func(rune) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return strings.IndexFunc(fl.Field().String(), pred) >= 0
	}
}

// ParseLogin читает форму входа из запроса
func ParseLogin(r *http.Request) (LoginForm, error) {
	if err := r.ParseForm(); err != nil {
		return LoginForm{}, err
	}
	return LoginForm{
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Password: r.PostFormValue("password"),
	}, nil
}

// ParseRegister читает форму регистрации из запроса
func ParseRegister(r *http.Request) (RegisterForm, error) {
	if err := r.ParseForm(); err != nil {
		return RegisterForm{}, err
	}
	return RegisterForm{
		Username:  strings.TrimSpace(r.PostFormValue("username")),
		Email:     strings.TrimSpace(r.PostFormValue("email")),
		Password:  r.PostFormValue("password"),
		Password2: r.PostFormValue("password2"),
	}, nil
}

// Validate проверяет форму и возвращает первую ошибку каждого поля.
// Пустой результат - форма корректна.
func Validate(form interface{}) FieldErrors {
	errs := FieldErrors{}

	err := validate.Struct(form)
	if err == nil {
		return errs
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		errs[""] = err.Error()
		return errs
	}
	for _, fe := range verrs {
		field := fe.Field()
		if errs.Has(field) {
			continue
		}
		errs[field] = message(field, fe.Tag())
	}
	return errs
}

func message(field, tag string) string {
	if m, ok := messages[field][tag]; ok {
		return m
	}
	return "Invalid value"
}
