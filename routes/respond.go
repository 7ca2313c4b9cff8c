package routes

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"rental-platform-server/services"
	"rental-platform-server/types"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

var registerTagNames sync.Once

// useJSONFieldNames makes validator errors report the json name of a field
func useJSONFieldNames() {
	registerTagNames.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
}

// respondError maps service errors onto HTTP statuses
func respondError(c *gin.Context, err error) {
	var validationErr *types.ValidationError
	var permissionErr *types.PermissionError
	var conflictErr *types.ConflictError
	var notFoundErr *types.NotFoundError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Validation failed",
			"field":   validationErr.Field,
			"message": validationErr.Message,
		})
	case errors.As(err, &permissionErr):
		c.JSON(http.StatusForbidden, gin.H{
			"error":   "Permission denied",
			"message": permissionErr.Message,
		})
	case errors.As(err, &conflictErr):
		c.JSON(http.StatusConflict, gin.H{
			"error":   "Conflict",
			"message": conflictErr.Message,
		})
	case errors.As(err, &notFoundErr):
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Not found",
			"message": notFoundErr.Error(),
		})
	case errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrAccountInactive),
		errors.Is(err, services.ErrRefreshTokenNotFound),
		errors.Is(err, services.ErrRefreshTokenInvalid):
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "Authentication failed",
			"message": err.Error(),
		})
	case errors.Is(err, services.ErrImageStorageDisabled):
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "Image storage unavailable",
			"message": err.Error(),
		})
	default:
		log.Printf("❌ %s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal server error",
			"message": "Something went wrong, please try again later",
		})
	}
}

// respondBindError reports a body binding failure as a validation error on the first bad field
func respondBindError(c *gin.Context, err error) {
	var fieldErrs validator.ValidationErrors
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError

	switch {
	case errors.As(err, &fieldErrs) && len(fieldErrs) > 0:
		fe := fieldErrs[0]
		respondError(c, types.NewValidationError(fe.Field(), "%s", describeFieldError(fe)))
	case errors.As(err, &typeErr):
		respondError(c, types.NewValidationError(typeErr.Field, "must be of type %s", typeErr.Type.String()))
	case errors.As(err, &syntaxErr), errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		respondError(c, types.NewValidationError("", "request body must be valid JSON"))
	default:
		respondError(c, types.NewValidationError("", "%s", err.Error()))
	}
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "enter a valid email address"
	case "min":
		return "must be at least " + fe.Param() + " characters long"
	case "max":
		return "cannot exceed " + fe.Param() + " characters"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "gt", "gte", "lt", "lte":
		return "value is out of range (" + fe.Tag() + " " + fe.Param() + ")"
	}
	return "failed on the " + fe.Tag() + " rule"
}

// parseID reads a positive numeric path parameter, answering 400 when it is malformed
func parseID(c *gin.Context, param string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(param), 10, 64)
	if err != nil || id == 0 {
		respondError(c, types.NewValidationError(param, "must be a positive integer"))
		return 0, false
	}
	return uint(id), true
}

// paginationFrom reads ?page= and ?page_size= (or ?limit=)
func paginationFrom(c *gin.Context) services.Pagination {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size := c.Query("page_size")
	if size == "" {
		size = c.Query("limit")
	}
	limit, _ := strconv.Atoi(size)
	return services.NewPagination(page, limit, defaultPageSize, maxPageSize)
}

// respondPage writes a paginated list envelope
func respondPage(c *gin.Context, items interface{}, total int64, p services.Pagination) {
	c.JSON(http.StatusOK, gin.H{
		"data": items,
		"pagination": gin.H{
			"page":        p.Page,
			"page_size":   p.Limit,
			"total":       total,
			"total_pages": p.Pages(total),
		},
	})
}
