package utils

import (
	"net/http"

	"github.com/crewcal-dev/crewcal/internal/types"
	"github.com/gin-gonic/gin"
)

func RespondError(ctx *gin.Context, status int, kind, message string) {
	ctx.JSON(status, types.ErrorResponse{Error: kind, Message: message})
}

// RespondValidationError returns a 400 with field-level detail outside
// production. In production the detail is withheld to avoid leaking schema
// internals.
func RespondValidationError(ctx *gin.Context, err error) {
	body := types.ErrorResponse{
		Error:   types.ErrValidation,
		Message: "Invalid request",
	}

	if err != nil && !types.IsProduction() {
		body.Details = err.Error()
	}

	ctx.JSON(http.StatusBadRequest, body)
}

func RespondInternalError(ctx *gin.Context) {
	RespondError(ctx, http.StatusInternalServerError, types.ErrInternal, "Internal server error")
}

func RespondNotFound(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusNotFound, types.ErrNotFound, message)
}
