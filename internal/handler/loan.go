package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/kreditlab/loan-engine/internal/domain"
	"github.com/kreditlab/loan-engine/internal/service"
	customError "github.com/kreditlab/loan-engine/pkg/errors"
	"github.com/kreditlab/loan-engine/pkg/response"
)

type LoanHandler struct {
	service   service.Service
	validator *validator.Validate
}

func NewLoanHandler(svc service.Service) *LoanHandler {
	v := validator.New()
	// let numeric rules (gt=0 etc.) apply to decimal fields
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	return &LoanHandler{
		service:   svc,
		validator: v,
	}
}

// CreateLoan handles POST /api/v1/users/{userId}/loans
func (h *LoanHandler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]

	var request domain.CreateLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "Invalid request body", err)
		return
	}

	if err := h.validator.Struct(&request); err != nil {
		response.BadRequest(w, "Invalid loan data", err)
		return
	}

	result, err := h.service.CreateLoan(r.Context(), userID, &request)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Created(w, result)
}

// GetLoan handles GET /api/v1/loans/{loanId}
func (h *LoanHandler) GetLoan(w http.ResponseWriter, r *http.Request) {
	loanID, err := uuid.Parse(mux.Vars(r)["loanId"])
	if err != nil {
		response.BadRequest(w, "Invalid loan id", err)
		return
	}

	details, err := h.service.GetLoan(r.Context(), loanID)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, details)
}

// ListLoans handles GET /api/v1/loans
func (h *LoanHandler) ListLoans(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.service.ListLoans(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, summaries)
}

// ListUserLoans handles GET /api/v1/users/{userId}/loans
func (h *LoanHandler) ListUserLoans(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]

	summaries, err := h.service.ListUserLoans(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, summaries)
}

// UpdateStatus handles PATCH /api/v1/loans/{loanId}/status
func (h *LoanHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	loanID, err := uuid.Parse(mux.Vars(r)["loanId"])
	if err != nil {
		response.BadRequest(w, "Invalid loan id", err)
		return
	}

	var request domain.UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "Invalid request body", err)
		return
	}

	if err := h.validator.Struct(&request); err != nil {
		response.BadRequest(w, "Invalid status data", err)
		return
	}

	if err := h.service.UpdateStatus(r.Context(), loanID, request.Status); err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, map[string]string{"message": "Loan status updated successfully"})
}

// RecordRepayment handles POST /api/v1/loans/{loanId}/repayments
func (h *LoanHandler) RecordRepayment(w http.ResponseWriter, r *http.Request) {
	loanID, err := uuid.Parse(mux.Vars(r)["loanId"])
	if err != nil {
		response.BadRequest(w, "Invalid loan id", err)
		return
	}

	var request domain.RepaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "Invalid request body", err)
		return
	}

	result, err := h.service.RecordRepayment(r.Context(), loanID, request.Amount)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, result)
}

func writeError(w http.ResponseWriter, err error) {
	var businessErr *customError.BusinessError
	if !errors.As(err, &businessErr) {
		response.InternalServerError(w, "Internal server error", err)
		return
	}

	switch businessErr.Code {
	case customError.ErrCodeLoanNotFound, customError.ErrCodeUserNotFound:
		response.NotFound(w, businessErr.Message)
	case customError.ErrCodeInvalidLoanParameters,
		customError.ErrCodeInvalidPaymentAmount,
		customError.ErrCodeInvalidStatusValue,
		customError.ErrCodeLoanAlreadyPaid:
		response.BadRequest(w, businessErr.Message, businessErr.Err)
	case customError.ErrCodeLoanBusy:
		response.Conflict(w, businessErr.Message, businessErr.Err)
	default:
		response.InternalServerError(w, businessErr.Message, businessErr.Err)
	}
}
