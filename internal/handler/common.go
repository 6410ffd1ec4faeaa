package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"llmapp/internal/model"
	"llmapp/internal/service"
)

// 业务错误码
const (
	CodeInvalidBody   = 40001
	CodeInvalidParams = 40002
	CodeNotFound      = 40401
	CodeAppendFailed  = 42201
	CodeInternal      = 50001
)

// respondError 将 service 错误映射为状态码和错误体
func respondError(c *gin.Context, err error) {
	status, code, message := http.StatusInternalServerError, CodeInternal, "Internal server error"

	switch {
	case errors.Is(err, service.ErrNotFound):
		status, code, message = http.StatusNotFound, CodeNotFound, "Resource not found"
	case errors.Is(err, service.ErrInvalidInput):
		status, code, message = http.StatusBadRequest, CodeInvalidParams, "Invalid params"
	case errors.Is(err, service.ErrAppendFailed):
		status, code, message = http.StatusUnprocessableEntity, CodeAppendFailed, "Unable to create resource"
	}

	c.JSON(status, model.ErrorResponse{
		Code:    code,
		Message: message,
		Detail:  err.Error(),
	})
}

func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, model.ErrorResponse{
		Code:    CodeInvalidBody,
		Message: "Invalid request body",
		Detail:  err.Error(),
	})
}
