package job

import "github.com/cobrancalabs/analytics-api/internal/apperror"

var errRunNotFound = apperror.New(apperror.NotFound, "job run not found")

type GetRunRequest struct {
	ID             int64
	OrganizationID int64
}

func (r GetRunRequest) Validate() *apperror.AppError {
	if r.ID <= 0 {
		return apperror.New(apperror.BadRequest, "invalid job run id")
	}
	if r.OrganizationID <= 0 {
		return apperror.New(apperror.BadRequest, "missing tenant id")
	}
	return nil
}

type ListRunsRequest struct {
	OrganizationID int64
	Limit          int
}

func (r ListRunsRequest) Validate() *apperror.AppError {
	if r.OrganizationID <= 0 {
		return apperror.New(apperror.BadRequest, "missing tenant id")
	}
	return nil
}
