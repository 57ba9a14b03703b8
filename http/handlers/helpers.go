package handlers

import (
	"fmt"
	"net/http"

	apperrors "admissions-crm/errors"
	"admissions-crm/http/middleware"
	"admissions-crm/http/response"
	"admissions-crm/utils"
)

// allowMethod writes 405 and returns false when r.Method is not method.
func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		response.ErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return false
	}
	return true
}

// decodeAndValidate reads a JSON body into v and runs its validate tags.
func decodeAndValidate(r *http.Request, v interface{}) error {
	if err := utils.DecodeJSONRequest(r, v); err != nil {
		return apperrors.E(apperrors.Invalid, "Invalid request: "+err.Error())
	}
	if err := utils.ValidateStruct(v); err != nil {
		return apperrors.E(apperrors.Invalid, err.Error())
	}
	return nil
}

// actingCounselor resolves whose presence a request changes. Counselors act
// for themselves; admins must name a counselor.
func actingCounselor(r *http.Request, requested int64) (int64, error) {
	claims, ok := middleware.ClaimsFrom(r.Context())
	if ok && claims.Role == middleware.RoleCounselor {
		if claims.CounselorID <= 0 {
			return 0, apperrors.E(apperrors.Forbidden, "token has no counselor_id")
		}
		if requested != 0 && requested != claims.CounselorID {
			return 0, apperrors.E(apperrors.Forbidden, "counselors can only update their own presence")
		}
		return claims.CounselorID, nil
	}
	if requested <= 0 {
		return 0, apperrors.E(apperrors.Invalid, "counselor_id is required")
	}
	return requested, nil
}

func invalid(err error) error {
	return apperrors.E(apperrors.Invalid, err.Error())
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
