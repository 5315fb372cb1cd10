package handler

import (
	"github.com/vitaltrack/health-tracker/internal/api/middleware"
	"github.com/vitaltrack/health-tracker/internal/core/domain"
)

type listUsersRequest struct {
	Page   int    `query:"page"`
	Limit  int    `query:"limit"`
	Search string `query:"search"`
}

type userListResponse struct {
	Users []*domain.User `json:"users"`
	Total int64          `json:"total"`
	Page  int            `json:"page"`
}

type pageRequest struct {
	Page  int `query:"page"`
	Limit int `query:"limit"`
}

type ownedRecordListResponse struct {
	Records []*domain.OwnedRecord `json:"records"`
	Total   int64                 `json:"total"`
	Page    int                   `json:"page"`
}

type createUserRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Name     string `json:"name"     validate:"required,min=2,max=255"`
	Role     string `json:"role"     validate:"omitempty,oneof=customer admin"`
}

type resetPasswordRequest struct {
	Password string `json:"password" validate:"required,min=6"`
}

type impersonationRequest struct {
	TargetUserID string `json:"target_user_id" validate:"required"`
}

// impersonationResponse tells the client how to carry the impersonation on
// later requests.
type impersonationResponse struct {
	Target     *domain.User `json:"target"`
	Header     string       `json:"header"`
	QueryParam string       `json:"query_param"`
}

func newImpersonationResponse(target *domain.User) impersonationResponse {
	return impersonationResponse{
		Target:     target,
		Header:     middleware.ImpersonationHeader,
		QueryParam: middleware.ImpersonationQueryParam,
	}
}
