// Package handlers contains the HTTP handlers of the REST API. A handler
// binds the request into a command or query DTO, hands it to a use case and
// writes the result; all policy lives below this layer.
package handlers

import (
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/Haleralex/walletledger/internal/adapters/http/common"
)

var setupOnce sync.Once

// SetupValidator registers the custom binding validations the DTO tags use.
// Safe to call from every constructor; only the first call does work.
func SetupValidator() {
	setupOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}

		// Report field names by their json tag, not the Go identifier.
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})

		_ = v.RegisterValidation("currency_code", validateCurrencyCode)
		_ = v.RegisterValidation("money_amount", validateMoneyAmount)
		_ = v.RegisterValidation("recipient", validateRecipient)
	})
}

// validateCurrencyCode accepts a 3-letter uppercase code. Whether the code is
// actually supported is decided by the application layer.
func validateCurrencyCode(fl validator.FieldLevel) bool {
	code := fl.Field().String()
	if len(code) != 3 {
		return false
	}
	for _, c := range code {
		if c < 'A' || c > 'Z' {
			return false
		}
	}
	return true
}

// moneyPattern matches canonical decimal amounts: "5", "5.00", "0.01".
var moneyPattern = regexp.MustCompile(`^\d+(\.\d{1,8})?$`)

func validateMoneyAmount(fl validator.FieldLevel) bool {
	return moneyPattern.MatchString(fl.Field().String())
}

// validateRecipient checks the shape of a recipient reference: a wallet
// UUID, an "@handle" or "ext:provider:id". Existence is resolved later.
func validateRecipient(fl validator.FieldLevel) bool {
	ref := strings.TrimSpace(fl.Field().String())
	switch {
	case ref == "":
		return false
	case strings.HasPrefix(ref, "@"):
		return len(ref) >= 2
	case strings.HasPrefix(ref, "ext:"):
		parts := strings.SplitN(ref, ":", 3)
		return len(parts) == 3 && parts[1] != "" && parts[2] != ""
	default:
		_, err := uuid.Parse(ref)
		return err == nil
	}
}

// HandleValidationErrors turns a binding failure into the shared error
// envelope with per-field details.
func HandleValidationErrors(c *gin.Context, err error) {
	var fieldErrors []common.FieldError

	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		for _, fieldErr := range validationErrors {
			fieldErrors = append(fieldErrors, common.FieldError{
				Field:   fieldErr.Field(),
				Message: validationMessage(fieldErr),
				Code:    fieldErr.Tag(),
			})
		}
	}

	common.RespondValidationErrors(c, fieldErrors)
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "uuid":
		return "invalid UUID format"
	case "min":
		return "value is below the minimum (" + fe.Param() + ")"
	case "max":
		return "value is above the maximum (" + fe.Param() + ")"
	case "oneof":
		return "value must be one of: " + fe.Param()
	case "currency_code":
		return "invalid currency code (3 uppercase letters)"
	case "money_amount":
		return "invalid amount format (use a decimal string like '100.50')"
	case "recipient":
		return "recipient must be a wallet id, an @handle or ext:provider:id"
	default:
		return "invalid value"
	}
}

// BindJSON binds the JSON body; on failure the error response has already
// been written and the handler must return.
func BindJSON[T any](c *gin.Context, req *T) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		HandleValidationErrors(c, err)
		return false
	}
	return true
}

// BindQuery binds query parameters.
func BindQuery[T any](c *gin.Context, req *T) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		HandleValidationErrors(c, err)
		return false
	}
	return true
}

// BindURI binds path parameters.
func BindURI[T any](c *gin.Context, req *T) bool {
	if err := c.ShouldBindUri(req); err != nil {
		HandleValidationErrors(c, err)
		return false
	}
	return true
}
