package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"hospital-portal/internal/middleware"
	"hospital-portal/internal/service"
	"hospital-portal/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

func init() {
	// report json field names in validation errors
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
	}
}

// bind decodes the request body into obj. On failure it writes a 400 with
// per-field messages and the submitted input, and returns false.
func bind(c *gin.Context, obj interface{}) bool {
	err := c.ShouldBind(obj)
	if err == nil {
		return true
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fieldMessage(fe)
		}
		utils.ValidationErrorResponse(c, fields, echoInput(obj))
		return false
	}

	utils.ValidationErrorResponse(c, map[string]string{"body": "malformed request body"}, nil)
	return false
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	default:
		return "is invalid"
	}
}

// echoInput returns the submitted form without secrets
func echoInput(obj interface{}) map[string]interface{} {
	raw, err := json.Marshal(obj)
	if err != nil {
		return nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	delete(m, "password")
	return m
}

// respondError maps service errors to HTTP responses. input is echoed back on validation failures.
func respondError(c *gin.Context, err error, input interface{}) {
	var (
		notFound   *service.NotFoundError
		validation *service.ValidationError
		rendering  *service.RenderingError
	)

	switch {
	case errors.As(err, &notFound):
		utils.ErrorResponse(c, http.StatusNotFound, notFound.Error())
	case errors.As(err, &validation):
		utils.ValidationErrorResponse(c, validation.Fields, echoIfSet(input))
	case errors.As(err, &rendering):
		_ = c.Error(err)
		utils.ErrorResponse(c, http.StatusBadRequest, "Rendering Error")
	case errors.Is(err, service.ErrInvalidCredentials):
		utils.ErrorResponse(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrUsernameTaken):
		utils.ValidationErrorResponse(c, map[string]string{"username": err.Error()}, echoIfSet(input))
	default:
		_ = c.Error(err)
		utils.ErrorResponse(c, http.StatusInternalServerError, "internal server error")
	}
}

func echoIfSet(input interface{}) interface{} {
	if input == nil {
		return nil
	}
	return echoInput(input)
}

// parseID reads a positive numeric path parameter, writing 400 when it is not one
func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// principal returns the acting principal set by the auth middleware
func principal(c *gin.Context) service.Principal {
	p, _ := middleware.GetPrincipal(c)
	return p
}
