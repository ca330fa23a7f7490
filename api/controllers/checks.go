package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/gestion-ambientes/ambientes-backend/api/responses"
	"github.com/gestion-ambientes/ambientes-backend/api/validators"
	"github.com/gestion-ambientes/ambientes-backend/internal/checks"
	"github.com/gestion-ambientes/ambientes-backend/pkg/auth"
	"github.com/gestion-ambientes/ambientes-backend/pkg/enums"
	pkgerrors "github.com/gestion-ambientes/ambientes-backend/pkg/errors"
	"github.com/gestion-ambientes/ambientes-backend/pkg/logger"
	"github.com/gestion-ambientes/ambientes-backend/pkg/pagination"
	"github.com/gestion-ambientes/ambientes-backend/pkg/types"
)

const checkIDParam = "checkId"

type initiateFunc func(ctx context.Context, actor auth.Actor, req checks.InitiateRequest) (*checks.InitiateResult, error)

func checksUnavailable(w http.ResponseWriter, r *http.Request, logg *logger.Logger) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory checks service unavailable"))
}

// InitiateCheck creates today's check and rejects duplicates with 409.
func InitiateCheck(svc checks.Service, logg *logger.Logger) http.HandlerFunc {
	return initiateHandler(svc, logg, func(s checks.Service) initiateFunc { return s.InitiateStrict })
}

// InitiateCheckBySchedule creates or advances today's check of a schedule.
func InitiateCheckBySchedule(svc checks.Service, logg *logger.Logger) http.HandlerFunc {
	return initiateHandler(svc, logg, func(s checks.Service) initiateFunc { return s.InitiateBySchedule })
}

func initiateHandler(svc checks.Service, logg *logger.Logger, pick func(checks.Service) initiateFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			checksUnavailable(w, r, logg)
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		var req checks.InitiateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := pick(svc)(r.Context(), actor, req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status := http.StatusOK
		if result.Created {
			status = http.StatusCreated
		}
		responses.WriteSuccessStatus(w, status, result)
	}
}

// ConfirmCheck records the instructor pass.
func ConfirmCheck(svc checks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			checksUnavailable(w, r, logg)
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		checkID, err := validators.ParsePathUUID(r, checkIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req checks.ConfirmRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.Confirm(r.Context(), actor, checkID, req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

// AssignCheckRole moves a check back to a review stage.
func AssignCheckRole(svc checks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			checksUnavailable(w, r, logg)
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		checkID, err := validators.ParsePathUUID(r, checkIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req checks.AssignRoleRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.AssignRole(r.Context(), actor, checkID, req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

// SupervisorApproveCheck closes a check with the supervisor decision.
func SupervisorApproveCheck(svc checks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			checksUnavailable(w, r, logg)
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		checkID, err := validators.ParsePathUUID(r, checkIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req checks.ApproveRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.Approve(r.Context(), actor, checkID, req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

// ListChecks returns the caller's visible checks, newest first.
func ListChecks(svc checks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			checksUnavailable(w, r, logg)
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		filter, err := parseListFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.List(r.Context(), actor, filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func parseListFilter(r *http.Request) (checks.ListFilter, error) {
	var filter checks.ListFilter
	var err error

	if filter.Limit, err = validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit); err != nil {
		return filter, err
	}
	filter.Cursor = strings.TrimSpace(r.URL.Query().Get("cursor"))
	if filter.EnvironmentID, err = validators.ParseQueryUUID(r, "environment_id"); err != nil {
		return filter, err
	}
	if filter.Date, err = validators.ParseQueryDate(r, "date"); err != nil {
		return filter, err
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("shift")); raw != "" {
		shift, perr := enums.ParseShift(raw)
		if perr != nil {
			return filter, pkgerrors.Wrap(pkgerrors.CodeValidation, perr, "invalid shift")
		}
		filter.Shift = &shift
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status, perr := enums.ParseInventoryCheckStatus(raw)
		if perr != nil {
			return filter, pkgerrors.Wrap(pkgerrors.CodeValidation, perr, "invalid status")
		}
		filter.Status = &status
	}
	return filter, nil
}

// GetCheck returns one check when the caller may see it.
func GetCheck(svc checks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			checksUnavailable(w, r, logg)
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		checkID, err := validators.ParsePathUUID(r, checkIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.Get(r.Context(), actor, checkID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

// ListCheckReviews returns the supervisor decisions of a check.
func ListCheckReviews(svc checks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			checksUnavailable(w, r, logg)
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		checkID, err := validators.ParsePathUUID(r, checkIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		history, err := svc.Reviews(r.Context(), actor, checkID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": history})
	}
}

// CheckStats returns the verification dashboard.
func CheckStats(svc checks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			checksUnavailable(w, r, logg)
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		var filter checks.StatsFilter
		var err error
		if filter.EnvironmentID, err = validators.ParseQueryUUID(r, "environment_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if filter.StartDate, err = validators.ParseQueryDate(r, "start_date"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if filter.EndDate, err = validators.ParseQueryDate(r, "end_date"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		stats, err := svc.Stats(r.Context(), actor, filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}

// ChecksBySchedule pairs each of the day's schedules with its check.
func ChecksBySchedule(svc checks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			checksUnavailable(w, r, logg)
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		envID, day, err := parseBoardQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.BySchedule(r.Context(), actor, envID, day)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// CheckScheduleStats counts the day's schedule coverage.
func CheckScheduleStats(svc checks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			checksUnavailable(w, r, logg)
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		envID, day, err := parseBoardQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		stats, err := svc.ScheduleStats(r.Context(), actor, envID, day)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}

func parseBoardQuery(r *http.Request) (uuid.UUID, *types.Date, error) {
	envID, err := validators.ParseQueryUUID(r, "environment_id")
	if err != nil {
		return uuid.Nil, nil, err
	}
	if envID == nil {
		return uuid.Nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "environment_id is required")
	}
	day, err := validators.ParseQueryDate(r, "date")
	if err != nil {
		return uuid.Nil, nil, err
	}
	return *envID, day, nil
}
