package utils

import (
	"encoding/json"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

// BindStrictJSON decodes the request body into obj, rejecting unknown fields,
// then runs the standard binding validators. Unknown fields are rejected so
// clients cannot smuggle server-controlled columns into a payload.
func BindStrictJSON(ctx *gin.Context, obj interface{}) error {
	decoder := json.NewDecoder(ctx.Request.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(obj); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}

	if binding.Validator == nil {
		return nil
	}

	return binding.Validator.ValidateStruct(obj)
}
