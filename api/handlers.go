/*
handlers.go - HTTP API handlers for the fee ledger

PURPOSE:
  Exposes the fee collection engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Bills:
    POST   /api/bills                   Create bill
    GET    /api/bills                   List bills (filters)
    GET    /api/bills/outstanding       Outstanding bills for a unit
    GET    /api/bills/{id}              Get one bill
    POST   /api/bills/{id}/payment      Apply payment to one bill
    POST   /api/bills/{id}/reverse      Offsetting reversal entry

  Settlements:
    POST   /api/settlements             Settle a selection (cash|wallet)

  Wallet:
    GET    /api/wallet/{unitID}                 Balance
    GET    /api/wallet/{unitID}/transactions    Wallet log
    POST   /api/wallet/{unitID}/recharge        Add funds

  Waivers:
    POST   /api/waivers                 Submit request
    GET    /api/waivers/pending         Pending queue
    POST   /api/waivers/{id}/approve    Approve (re-validates arrears)
    POST   /api/waivers/{id}/reject     Reject

  Imports / export:
    POST   /api/import/reconciliation   JSON arrears batch
    POST   /api/import/onboarding       JSON current-year batch
    POST   /api/import/workbook         xlsx upload (arrears layout)
    GET    /api/export/ledger.xlsx      Workbook download

  Master data / audit:
    GET    /api/units
    GET    /api/audit

ERROR HANDLING:
  Domain errors map to HTTP status via statusFor:
  - 400: Validation errors, unparsable amounts, invalid rows
  - 404: Unit / bill / waiver not found
  - 409: Invalid state transitions, unit mismatch
  - 422: Amount exceeds what the operation allows
  - 500: Aborted batches, storage failures

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/centuryview/feeledger/ledger"
	"github.com/centuryview/feeledger/money"
	"github.com/centuryview/feeledger/spreadsheet"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store       ledger.TxStore
	Bills       *ledger.BillService
	Wallet      *ledger.WalletService
	Settlements *ledger.SettlementEngine
	Waivers     *ledger.WaiverService
	Importer    *ledger.Importer
}

// NewHandler creates a new handler over the given store.
func NewHandler(store ledger.TxStore) *Handler {
	return &Handler{
		Store:       store,
		Bills:       ledger.NewBillService(store),
		Wallet:      ledger.NewWalletService(store),
		Settlements: ledger.NewSettlementEngine(store),
		Waivers:     ledger.NewWaiverService(store),
		Importer:    ledger.NewImporter(store),
	}
}

// =============================================================================
// BILL ENDPOINTS
// =============================================================================

// CreateBill handles POST /api/bills
func (h *Handler) CreateBill(w http.ResponseWriter, r *http.Request) {
	var req CreateBillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	receivable, err := money.Parse(req.Receivable)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid receivable amount", err)
		return
	}

	var chargeDate *time.Time
	if req.ChargeDate != "" {
		t, err := time.Parse("2006-01-02", req.ChargeDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid charge_date format (use YYYY-MM-DD)", err)
			return
		}
		chargeDate = &t
	}

	bill, err := h.Bills.CreateBill(r.Context(), ledger.CreateBillParams{
		UnitID:     req.UnitID,
		FeeType:    req.FeeType,
		Receivable: receivable,
		Period:     req.Period,
		Source:     ledger.SourceManual,
		ChargeDate: chargeDate,
		ReceiptNo:  req.ReceiptNo,
		Remark:     req.Remark,
		Operator:   req.Operator,
	})
	if err != nil {
		writeError(w, statusFor(err), "Failed to create bill", err)
		return
	}

	writeJSON(w, http.StatusCreated, toBillDTO(*bill))
}

// ListBills handles GET /api/bills
func (h *Handler) ListBills(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ledger.BillFilter{
		UnitID:    q.Get("unit_id"),
		FeeType:   q.Get("fee_type"),
		Status:    ledger.BillStatus(q.Get("status")),
		ReceiptNo: q.Get("receipt_no"),
		Operator:  q.Get("operator"),
	}

	bills, err := h.Bills.ListAll(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list bills", err)
		return
	}

	writeJSON(w, http.StatusOK, toBillDTOs(bills))
}

// ListOutstanding handles GET /api/bills/outstanding?unit_id=
func (h *Handler) ListOutstanding(w http.ResponseWriter, r *http.Request) {
	unitID := r.URL.Query().Get("unit_id")
	if unitID == "" {
		writeError(w, http.StatusBadRequest, "unit_id query parameter is required", nil)
		return
	}

	bills, err := h.Bills.ListOutstanding(r.Context(), unitID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list outstanding bills", err)
		return
	}

	writeJSON(w, http.StatusOK, toBillDTOs(bills))
}

// GetBill handles GET /api/bills/{id}
func (h *Handler) GetBill(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	bill, err := h.Store.GetBill(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get bill", err)
		return
	}
	if bill == nil {
		writeError(w, http.StatusNotFound, "Bill not found", nil)
		return
	}

	writeJSON(w, http.StatusOK, toBillDTO(*bill))
}

// ApplyPayment handles POST /api/bills/{id}/payment
func (h *Handler) ApplyPayment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req PaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	amount, err := money.Parse(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid payment amount", err)
		return
	}

	bill, err := h.Bills.ApplyPayment(r.Context(), id, amount, req.Operator, req.ReceiptNo)
	if err != nil {
		writeError(w, statusFor(err), "Failed to apply payment", err)
		return
	}

	writeJSON(w, http.StatusOK, toBillDTO(*bill))
}

// ReverseBill handles POST /api/bills/{id}/reverse
func (h *Handler) ReverseBill(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req ReverseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	reversal, err := h.Bills.Reverse(r.Context(), id, req.Operator, req.Remark)
	if err != nil {
		writeError(w, statusFor(err), "Failed to reverse bill", err)
		return
	}

	writeJSON(w, http.StatusCreated, toBillDTO(*reversal))
}

// =============================================================================
// SETTLEMENT ENDPOINTS
// =============================================================================

// Settle handles POST /api/settlements
func (h *Handler) Settle(w http.ResponseWriter, r *http.Request) {
	var req SettleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	amount, err := money.Parse(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid payment amount", err)
		return
	}

	result, err := h.Settlements.Settle(r.Context(), ledger.SettleParams{
		UnitID:    req.UnitID,
		BillIDs:   req.BillIDs,
		Amount:    amount,
		Source:    ledger.PaymentSource(req.Source),
		Operator:  req.Operator,
		ReceiptNo: req.ReceiptNo,
		Remark:    req.Remark,
	})
	if err != nil {
		writeError(w, statusFor(err), "Failed to settle bills", err)
		return
	}

	writeJSON(w, http.StatusOK, toSettlementDTO(result))
}

// =============================================================================
// WALLET ENDPOINTS
// =============================================================================

// GetWalletBalance handles GET /api/wallet/{unitID}
func (h *Handler) GetWalletBalance(w http.ResponseWriter, r *http.Request) {
	unitID := chi.URLParam(r, "unitID")

	balance, err := h.Wallet.GetBalance(r.Context(), unitID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get wallet balance", err)
		return
	}

	writeJSON(w, http.StatusOK, WalletBalanceDTO{
		UnitID:  unitID,
		Balance: balance.String(),
	})
}

// ListWalletTransactions handles GET /api/wallet/{unitID}/transactions
func (h *Handler) ListWalletTransactions(w http.ResponseWriter, r *http.Request) {
	unitID := chi.URLParam(r, "unitID")

	txs, err := h.Wallet.ListTransactions(r.Context(), unitID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list wallet transactions", err)
		return
	}

	dtos := make([]WalletTransactionDTO, 0, len(txs))
	for _, t := range txs {
		dtos = append(dtos, toWalletTransactionDTO(t))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// Recharge handles POST /api/wallet/{unitID}/recharge
func (h *Handler) Recharge(w http.ResponseWriter, r *http.Request) {
	unitID := chi.URLParam(r, "unitID")

	var req RechargeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	amount, err := money.Parse(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid recharge amount", err)
		return
	}

	tx, err := h.Wallet.Recharge(r.Context(), unitID, amount, req.Remark, req.Operator)
	if err != nil {
		writeError(w, statusFor(err), "Failed to recharge wallet", err)
		return
	}

	writeJSON(w, http.StatusCreated, toWalletTransactionDTO(*tx))
}

// =============================================================================
// WAIVER ENDPOINTS
// =============================================================================

// SubmitWaiver handles POST /api/waivers
func (h *Handler) SubmitWaiver(w http.ResponseWriter, r *http.Request) {
	var req SubmitWaiverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	amount, err := money.Parse(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid waiver amount", err)
		return
	}

	waiver, err := h.Waivers.Submit(r.Context(), req.UnitID, req.BillID, amount, req.Reason, req.Applicant)
	if err != nil {
		writeError(w, statusFor(err), "Failed to submit waiver request", err)
		return
	}

	writeJSON(w, http.StatusCreated, toWaiverDTO(*waiver))
}

// ListPendingWaivers handles GET /api/waivers/pending
func (h *Handler) ListPendingWaivers(w http.ResponseWriter, r *http.Request) {
	waivers, err := h.Waivers.ListPending(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list pending waivers", err)
		return
	}

	dtos := make([]WaiverDTO, 0, len(waivers))
	for _, wr := range waivers {
		dtos = append(dtos, toWaiverDTO(wr))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ApproveWaiver handles POST /api/waivers/{id}/approve
func (h *Handler) ApproveWaiver(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req DecideWaiverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	waiver, err := h.Waivers.Approve(r.Context(), id, req.Approver, req.Opinion)
	if err != nil {
		writeError(w, statusFor(err), "Failed to approve waiver", err)
		return
	}

	writeJSON(w, http.StatusOK, toWaiverDTO(*waiver))
}

// RejectWaiver handles POST /api/waivers/{id}/reject
func (h *Handler) RejectWaiver(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req DecideWaiverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	waiver, err := h.Waivers.Reject(r.Context(), id, req.Approver, req.Opinion)
	if err != nil {
		writeError(w, statusFor(err), "Failed to reject waiver", err)
		return
	}

	writeJSON(w, http.StatusOK, toWaiverDTO(*waiver))
}

// =============================================================================
// IMPORT / EXPORT ENDPOINTS
// =============================================================================

// ImportReconciliation handles POST /api/import/reconciliation
func (h *Handler) ImportReconciliation(w http.ResponseWriter, r *http.Request) {
	var req ImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	rows := make([]ledger.ImportRow, 0, len(req.Rows))
	for _, rd := range req.Rows {
		row := ledger.ImportRow{
			UnitID:    strings.TrimSpace(rd.UnitID),
			OwnerName: strings.TrimSpace(rd.OwnerName),
		}
		for _, sd := range rd.Slots {
			row.Slots = append(row.Slots, ledger.ImportSlot{
				FeeType:       sd.FeeType,
				Owed:          parseOrZero(sd.Owed),
				OwedPeriod:    sd.OwedPeriod,
				Prepaid:       parseOrZero(sd.Prepaid),
				PrepaidPeriod: sd.PrepaidPeriod,
			})
		}
		rows = append(rows, row)
	}

	result, err := h.Importer.BulkImport(r.Context(), rows, req.Operator)
	if err != nil {
		writeError(w, statusFor(err), "Import batch failed", err)
		return
	}

	writeJSON(w, http.StatusOK, toImportResultDTO(result))
}

// ImportOnboarding handles POST /api/import/onboarding
func (h *Handler) ImportOnboarding(w http.ResponseWriter, r *http.Request) {
	var req OnboardingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	rows := make([]ledger.OnboardingRow, 0, len(req.Rows))
	for _, rd := range req.Rows {
		row := ledger.OnboardingRow{
			UnitID:    strings.TrimSpace(rd.UnitID),
			OwnerName: strings.TrimSpace(rd.OwnerName),
			Standards: []ledger.FeeStandard{
				{FeeType: ledger.FeeTypeProperty, Amount: parseOrZero(rd.PropertyStandard)},
				{FeeType: ledger.FeeTypeElevator, Amount: parseOrZero(rd.ElevatorStandard)},
			},
			Period:    rd.Period,
			ReceiptNo: rd.ReceiptNo,
			TotalPaid: parseOrZero(rd.TotalPaid),
		}
		if rd.PayDate != "" {
			if t, err := time.Parse("2006-01-02", rd.PayDate); err == nil {
				row.PayDate = &t
			}
		}
		rows = append(rows, row)
	}

	result, err := h.Importer.BulkOnboard(r.Context(), rows, req.Operator)
	if err != nil {
		writeError(w, statusFor(err), "Onboarding batch failed", err)
		return
	}

	writeJSON(w, http.StatusOK, toImportResultDTO(result))
}

// ImportWorkbook handles POST /api/import/workbook
// The body is the raw xlsx; ?layout= selects the sheet layout,
// "arrears" (default) or "onboarding".
func (h *Handler) ImportWorkbook(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	operator := q.Get("operator")

	var result *ledger.ImportResult
	switch q.Get("layout") {
	case "", "arrears":
		rows, err := spreadsheet.ReadArrearsRows(r.Body)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Failed to parse workbook", err)
			return
		}
		result, err = h.Importer.BulkImport(r.Context(), rows, operator)
		if err != nil {
			writeError(w, statusFor(err), "Import batch failed", err)
			return
		}
	case "onboarding":
		rows, err := spreadsheet.ReadOnboardingRows(r.Body)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Failed to parse workbook", err)
			return
		}
		result, err = h.Importer.BulkOnboard(r.Context(), rows, operator)
		if err != nil {
			writeError(w, statusFor(err), "Onboarding batch failed", err)
			return
		}
	default:
		writeError(w, http.StatusBadRequest, "Unknown workbook layout", nil)
		return
	}

	writeJSON(w, http.StatusOK, toImportResultDTO(result))
}

// ExportLedger handles GET /api/export/ledger.xlsx
func (h *Handler) ExportLedger(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	bills, err := h.Bills.ListAll(r.Context(), ledger.BillFilter{
		UnitID:  q.Get("unit_id"),
		FeeType: q.Get("fee_type"),
		Status:  ledger.BillStatus(q.Get("status")),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load ledger", err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="ledger.xlsx"`)
	if err := spreadsheet.WriteLedgerXLSX(w, bills); err != nil {
		// Headers are already gone; nothing more to send.
		return
	}
}

// =============================================================================
// MASTER DATA / AUDIT ENDPOINTS
// =============================================================================

// ListUnits handles GET /api/units
func (h *Handler) ListUnits(w http.ResponseWriter, r *http.Request) {
	units, err := h.Store.ListUnits(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list units", err)
		return
	}

	dtos := make([]UnitDTO, 0, len(units))
	for _, u := range units {
		dtos = append(dtos, UnitDTO{
			ID:        u.ID,
			OwnerName: u.OwnerName,
			CreatedAt: u.CreatedAt.Format(wireTime),
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListAudit handles GET /api/audit
func (h *Handler) ListAudit(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		fmt.Sscanf(v, "%d", &limit)
	}

	entries, err := h.Store.ListAudit(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list audit log", err)
		return
	}

	dtos := make([]AuditEntryDTO, 0, len(entries))
	for _, e := range entries {
		dtos = append(dtos, AuditEntryDTO{
			ID:       e.ID,
			At:       e.At.Format(wireTime),
			Operator: e.Operator,
			Action:   e.Action,
			Detail:   e.Detail,
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// HELPERS
// =============================================================================

// statusFor maps domain errors to HTTP status codes. Conflict and
// insufficiency kinds are picked out first; ledger.IsClientError then
// catches the remaining validation kinds (bad amounts, invalid rows).
func statusFor(err error) int {
	switch {
	case ledger.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrInvalidState),
		errors.Is(err, ledger.ErrUnitMismatch):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrInsufficientBalance),
		errors.Is(err, ledger.ErrPaymentExceedsArrears),
		errors.Is(err, ledger.ErrPaymentExceedsSelection),
		errors.Is(err, ledger.ErrWaiverExceedsArrears):
		return http.StatusUnprocessableEntity
	case ledger.IsClientError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// parseOrZero mirrors the importer's cell policy for JSON batches:
// malformed amounts become zero, the row itself survives.
func parseOrZero(s string) money.Money {
	if strings.TrimSpace(s) == "" {
		return money.Zero()
	}
	m, err := money.Parse(s)
	if err != nil {
		return money.Zero()
	}
	return m
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
