package dashboard

import (
	"strings"

	"github.com/frahmantamala/paylink/internal/core/common/validation"
)

// LoginRequest is the body of POST /api/v1/dashboard/login.
type LoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

func (r *LoginRequest) Validate() error {
	v := validation.NewValidator()
	v.Field("identifier", strings.TrimSpace(r.Identifier)).Required()
	v.Field("password", r.Password).Required()
	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

type RevokeResponse struct {
	Revoked int64 `json:"revoked"`
}
