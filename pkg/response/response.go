package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response is the uniform API envelope. Failures always carry
// success=false and a human readable error.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// AppError is an error that already knows how it should be rendered.
type AppError struct {
	HTTPStatus int
	Message    string
}

func (e *AppError) Error() string {
	return e.Message
}

func NewBadRequest(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusBadRequest, Message: msg}
}

func NewUnauthorized(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusUnauthorized, Message: msg}
}

func NewForbidden(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusForbidden, Message: msg}
}

func NewNotFound(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusNotFound, Message: msg}
}

func NewConflict(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusConflict, Message: msg}
}

func NewBadGateway(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusBadGateway, Message: msg}
}

func NewServerError(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusInternalServerError, Message: msg}
}

// Success sends 200 with data.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

// Created sends 201 with data.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{Success: true, Data: data})
}

// OK sends a bare {"success":true}.
func OK(c *gin.Context) {
	c.JSON(http.StatusOK, Response{Success: true})
}

// Error renders err. *AppError keeps its status; anything else is a 500.
func Error(c *gin.Context, err error) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		Fail(c, appErr.HTTPStatus, appErr.Message)
		return
	}
	Fail(c, http.StatusInternalServerError, err.Error())
}

// Fail sends {"success":false,"error":msg} with the given status.
func Fail(c *gin.Context, status int, msg string) {
	c.JSON(status, Response{Success: false, Error: msg})
}

func BadRequest(c *gin.Context, msg string) {
	Fail(c, http.StatusBadRequest, msg)
}

func Unauthorized(c *gin.Context, msg string) {
	Fail(c, http.StatusUnauthorized, msg)
}

func Forbidden(c *gin.Context, msg string) {
	Fail(c, http.StatusForbidden, msg)
}

func NotFound(c *gin.Context, msg string) {
	Fail(c, http.StatusNotFound, msg)
}

func ServerError(c *gin.Context, msg string) {
	Fail(c, http.StatusInternalServerError, msg)
}
