package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validator exposes the shared validator instance.
func Validator() *validator.Validate {
	return validate
}

// BindQuery binds query parameters into v and validates them. On failure it
// writes a 400 JSON response and returns false.
func BindQuery(c *gin.Context, v interface{}) bool {
	if err := c.ShouldBindQuery(v); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid query",
			"details": describeValidation(err),
		})
		return false
	}
	if err := validate.Struct(v); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":   "Validation failed",
			"details": describeValidation(err),
		})
		return false
	}
	return true
}

// BindJSON is the JSON body counterpart of BindQuery.
func BindJSON(c *gin.Context, v interface{}) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid JSON format",
			"details": describeValidation(err),
		})
		return false
	}
	if err := validate.Struct(v); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":   "Validation failed",
			"details": describeValidation(err),
		})
		return false
	}
	return true
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s must satisfy %s=%s", field, fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s is %s", field, fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}
