package utils

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type APIResponse struct {
	Status    string      `json:"status"`
	Message   string      `json:"message,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	Meta      *Meta       `json:"meta,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

type APIError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

type Meta struct {
	Pagination *PaginationMeta `json:"pagination,omitempty"`
	Total      int64           `json:"total,omitempty"`
	Count      int             `json:"count,omitempty"`
}

func SuccessResponse(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{
		Status:    StatusSuccess,
		Message:   message,
		Data:      data,
		Timestamp: time.Now(),
	})
}

func SuccessResponseWithMeta(c *gin.Context, message string, data interface{}, meta *Meta) {
	c.JSON(http.StatusOK, APIResponse{
		Status:    StatusSuccess,
		Message:   message,
		Data:      data,
		Meta:      meta,
		Timestamp: time.Now(),
	})
}

func CreatedResponse(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusCreated, APIResponse{
		Status:    StatusSuccess,
		Message:   message,
		Data:      data,
		Timestamp: time.Now(),
	})
}

func ErrorResponse(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, APIResponse{
		Status: StatusError,
		Error: &APIError{
			Code:    code,
			Message: message,
		},
		Timestamp: time.Now(),
	})
}

func ErrorResponseWithDetails(c *gin.Context, statusCode int, code, message string, details map[string]string) {
	c.JSON(statusCode, APIResponse{
		Status: StatusError,
		Error: &APIError{
			Code:    code,
			Message: message,
			Details: details,
		},
		Timestamp: time.Now(),
	})
}

func ValidationErrorResponse(c *gin.Context, details map[string]string) {
	ErrorResponseWithDetails(c, http.StatusBadRequest, CodeValidationError, MsgValidationFailed, details)
}

func InternalServerErrorResponse(c *gin.Context) {
	ErrorResponse(c, http.StatusInternalServerError, CodeInternalError, MsgInternalServer)
}

func UnauthorizedResponse(c *gin.Context) {
	ErrorResponse(c, http.StatusUnauthorized, CodeUnauthorized, MsgUnauthorized)
}

func ForbiddenResponse(c *gin.Context) {
	ErrorResponse(c, http.StatusForbidden, CodeForbidden, MsgForbidden)
}

func NotFoundResponse(c *gin.Context, resource string) {
	ErrorResponse(c, http.StatusNotFound, CodeNotFound, resource+" not found")
}

func BadRequestResponse(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusBadRequest, CodeInvalidInput, message)
}

// ServiceErrorResponse maps a domain error to its status and error code.
// Store failures never leak driver messages to clients.
func ServiceErrorResponse(c *gin.Context, err error) {
	status, code := ErrorStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError || status == http.StatusServiceUnavailable {
		message = MsgInternalServer
	}
	ErrorResponse(c, status, code, message)
}

// ErrorStatus returns the HTTP status and envelope code for err.
func ErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest, CodeInvalidInput
	case errors.Is(err, ErrUnknownCode):
		return http.StatusNotFound, CodeUnknownCode
	case errors.Is(err, ErrReferralNotFound),
		errors.Is(err, ErrStatsNotFound),
		errors.Is(err, ErrCouponNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, ErrAlreadyCompleted):
		return http.StatusConflict, CodeAlreadyCompleted
	case errors.Is(err, ErrAlreadyCustomized):
		return http.StatusConflict, CodeAlreadyCustomized
	case errors.Is(err, ErrCodeTaken):
		return http.StatusConflict, CodeCodeTaken
	case errors.Is(err, ErrCouponExists),
		errors.Is(err, ErrStatsExists),
		errors.Is(err, ErrReferralExists):
		return http.StatusConflict, CodeAlreadyExists
	case errors.Is(err, ErrInvalidTransition):
		return http.StatusConflict, CodeInvalidTransition
	case errors.Is(err, ErrStore):
		return http.StatusServiceUnavailable, CodeStoreError
	default:
		return http.StatusInternalServerError, CodeInternalError
	}
}
