package httpapi

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/vmihailenco/msgpack/v5"
)

// Validator is an object that can be validated.
type Validator interface {
	Validate() error
}

// bindBody decodes a json or msgpack request body into v and validates it.
// Large matrices are considerably smaller as msgpack.
func bindBody(c *gin.Context, v Validator) error {
	switch c.ContentType() {
	case "application/msgpack":
		dec := msgpack.NewDecoder(c.Request.Body)
		// This allows the message pack decoder to use the json struct tags.
		dec.SetCustomStructTag("json")
		if err := dec.Decode(v); err != nil {
			return fmt.Errorf("decode msgpack: %w", err)
		}
	default:
		if err := c.ShouldBindJSON(v); err != nil {
			return fmt.Errorf("decode json: %w", err)
		}
	}
	// ---------------------------
	if err := v.Validate(); err != nil {
		return fmt.Errorf("validation error: %w", err)
	}
	return nil
}
