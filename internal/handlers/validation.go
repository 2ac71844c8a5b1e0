package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"task-tracker/backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
	registerOnce    sync.Once
)

// FieldError describes one rejected request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type validationResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Errors  []FieldError `json:"errors"`
}

// RegisterValidators installs the custom tags on gin's shared validator.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}

		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return field.Name
			}
			return name
		})

		_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
			return usernamePattern.MatchString(fl.Field().String())
		})

		// bcrypt only reads the first 72 bytes of a password.
		_ = v.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
			limit, err := strconv.Atoi(fl.Param())
			if err != nil {
				return false
			}
			return len(fl.Field().String()) <= limit
		})

		v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
			opt, ok := field.Interface().(models.Optional[string])
			if !ok || opt.Value == nil {
				return ""
			}
			return *opt.Value
		}, models.Optional[string]{})
	})
}

// bindJSON decodes the body into req and writes the 400 response on failure.
func bindJSON(c *gin.Context, req interface{}) bool {
	err := c.ShouldBindJSON(req)
	if err == nil {
		return true
	}

	var fieldErrors []FieldError
	var verrs validator.ValidationErrors
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &verrs):
		for _, fe := range verrs {
			fieldErrors = append(fieldErrors, FieldError{Field: fe.Field(), Message: fieldMessage(fe)})
		}
	case errors.As(err, &typeErr) && typeErr.Field != "":
		fieldErrors = []FieldError{{Field: typeErr.Field, Message: fmt.Sprintf("%s has an invalid type", displayName(typeErr.Field))}}
	default:
		fieldErrors = []FieldError{{Field: "body", Message: "Request body must be valid JSON"}}
	}

	c.JSON(http.StatusBadRequest, validationResponse{
		Success: false,
		Message: "Validation failed",
		Errors:  fieldErrors,
	})
	return false
}

func fieldMessage(fe validator.FieldError) string {
	name := displayName(fe.Field())
	switch fe.Tag() {
	case "required":
		return name + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", name, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", name, fe.Param())
	case "maxbytes":
		return fmt.Sprintf("%s must be at most %s bytes", name, fe.Param())
	case "username":
		return name + " can only contain letters, numbers, and underscores"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", name, strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return name + " is invalid"
	}
}

func displayName(field string) string {
	if field == "" {
		return field
	}
	return strings.ToUpper(field[:1]) + field[1:]
}
