// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"slices"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"budgetly/internal/models"
)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("expense_category", validateExpenseCategory)
		_ = v.RegisterValidation("payment_method", validatePaymentMethod)
	}
}

// validateExpenseCategory accepts any letter case and surrounding spaces;
// handlers normalize the value with models.ParseCategory.
func validateExpenseCategory(fl validator.FieldLevel) bool {
	_, err := models.ParseCategory(fl.Field().String())
	return err == nil
}

func validatePaymentMethod(fl validator.FieldLevel) bool {
	return slices.Contains(models.PaymentMethods, fl.Field().String())
}
