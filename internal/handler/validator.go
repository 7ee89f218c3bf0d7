package handler

import (
    "errors"
    "fmt"
    "reflect"
    "strings"

    "github.com/go-playground/validator/v10"
)

// RequestValidator adapts go-playground/validator to echo.Validator.
// Field names in messages use the json tag.
type RequestValidator struct {
    v *validator.Validate
}

func NewRequestValidator() *RequestValidator {
    v := validator.New(validator.WithRequiredStructEnabled())
    v.RegisterTagNameFunc(func(f reflect.StructField) string {
        name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
        if name == "-" {
            return ""
        }
        return name
    })
    return &RequestValidator{v: v}
}

func (rv *RequestValidator) Validate(i interface{}) error {
    return rv.v.Struct(i)
}

// validationMessage flattens validator errors into one line such as
// "password: min=8; password2: eqfield=Password".
func validationMessage(err error) string {
    var verrs validator.ValidationErrors
    if !errors.As(err, &verrs) {
        return "invalid body"
    }
    parts := make([]string, 0, len(verrs))
    for _, fe := range verrs {
        tag := fe.Tag()
        if fe.Param() != "" {
            tag += "=" + fe.Param()
        }
        parts = append(parts, fmt.Sprintf("%s: %s", fe.Field(), tag))
    }
    return strings.Join(parts, "; ")
}
