package http

import (
	"net/http"

	"cuotas/internal/core"
	"cuotas/internal/log"
	"cuotas/internal/storage"

	"github.com/shopspring/decimal"
)

type purchaseResponse struct {
	ID                int64           `json:"id"`
	RegisteredDate    string          `json:"registered_date"`
	Concept           string          `json:"concept"`
	Category          core.Category   `json:"category"`
	TotalInstallments int             `json:"total_installments"`
	InstallmentAmount decimal.Decimal `json:"installment_amount"`
	Active            bool            `json:"active"`
}

type installmentResponse struct {
	InstallmentNumber int             `json:"installment_number"`
	DueMonth          core.YearMonth  `json:"due_month"`
	Amount            decimal.Decimal `json:"amount"`
}

type planResponse struct {
	Purchase     purchaseResponse      `json:"purchase"`
	Installments []installmentResponse `json:"installments"`
}

type rejectedResponse struct {
	Index   int    `json:"index"`
	Concept string `json:"concept"`
	Error   string `json:"error"`
}

type batchResponse struct {
	Saved      int                `json:"saved"`
	Duplicates int                `json:"duplicates"`
	IDs        []int64            `json:"ids"`
	Rejected   []rejectedResponse `json:"rejected"`
}

type batchRequest struct {
	ReferenceDate string           `json:"reference_date"`
	Candidates    []core.Candidate `json:"candidates"`
}

type manualRequest struct {
	Date              string          `json:"date"`
	Concept           string          `json:"concept"`
	Category          core.Category   `json:"category"`
	TotalInstallments int             `json:"total_installments"`
	Amount            decimal.Decimal `json:"amount"`
}

func toPurchaseResponse(p core.Purchase) purchaseResponse {
	return purchaseResponse{
		ID:                p.ID,
		RegisteredDate:    p.RegisteredDate.String(),
		Concept:           p.Concept,
		Category:          p.Category,
		TotalInstallments: p.TotalInstallments,
		InstallmentAmount: p.InstallmentAmount,
		Active:            p.Active,
	}
}

func toBatchResponse(res storage.BatchResult) batchResponse {
	out := batchResponse{
		Saved:      res.Saved,
		Duplicates: res.Duplicates,
		IDs:        res.SavedIDs,
		Rejected:   make([]rejectedResponse, 0, len(res.Rejected)),
	}
	if out.IDs == nil {
		out.IDs = []int64{}
	}
	for _, rc := range res.Rejected {
		out.Rejected = append(out.Rejected, rejectedResponse{Index: rc.Index, Concept: rc.Concept, Error: rc.Err.Error()})
	}
	return out
}

func (s *Server) handleListPurchases(w http.ResponseWriter, r *http.Request) {
	purchases, err := s.purchases.List(r.Context())
	if err != nil {
		fail(w, r, log.OpList, err)
		return
	}
	out := make([]purchaseResponse, 0, len(purchases))
	for _, p := range purchases {
		out = append(out, toPurchaseResponse(p))
	}
	writeJSON(w, http.StatusOK, out)
}

// handleCreatePurchase registers a single purchase entered by hand. Its plan
// starts at installment 1 on the given date, today when omitted.
func (s *Server) handleCreatePurchase(w http.ResponseWriter, r *http.Request) {
	var req manualRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, log.OpCreate, err)
		return
	}
	date, err := parseDateValue(req.Date, s.now())
	if err != nil {
		invalid(w, r, err)
		return
	}

	c := core.Candidate{
		Concept:            sanitizeInput(req.Concept),
		Category:           req.Category,
		TotalInstallments:  req.TotalInstallments,
		CurrentInstallment: 1,
		Amount:             req.Amount,
	}
	if err := c.Validate(); err != nil {
		invalid(w, r, err)
		return
	}

	res, err := s.purchases.AddManual(r.Context(), c, date)
	if err != nil {
		fail(w, r, log.OpCreate, err)
		return
	}
	status := http.StatusCreated
	if res.Saved == 0 {
		status = http.StatusOK
	}
	writeJSON(w, status, toBatchResponse(res))
}

// handleAddBatch stores reviewed candidates, typically from a statement
// extraction. Invalid candidates are reported, not stored.
func (s *Server) handleAddBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, log.OpCreate, err)
		return
	}
	date, err := parseDateValue(req.ReferenceDate, s.now())
	if err != nil {
		invalid(w, r, err)
		return
	}
	for i := range req.Candidates {
		req.Candidates[i].Concept = sanitizeInput(req.Candidates[i].Concept)
	}

	res, err := s.purchases.AddBatch(r.Context(), req.Candidates, date)
	if err != nil {
		fail(w, r, log.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusOK, toBatchResponse(res))
}

// handleUpdatePurchase replaces the purchase fields and regenerates its plan.
func (s *Server) handleUpdatePurchase(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		fail(w, r, log.OpUpdate, err)
		return
	}
	var u core.PurchaseUpdate
	if err := decodeJSON(w, r, &u); err != nil {
		fail(w, r, log.OpUpdate, err)
		return
	}
	u.Concept = sanitizeInput(u.Concept)
	if err := u.Validate(); err != nil {
		invalid(w, r, err)
		return
	}

	if err := s.purchases.Update(r.Context(), id, u); err != nil {
		fail(w, r, log.OpUpdate, err)
		return
	}
	s.writePlan(w, r, id)
}

func (s *Server) handleDeletePurchase(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		fail(w, r, log.OpDelete, err)
		return
	}
	if err := s.purchases.Delete(r.Context(), id); err != nil {
		fail(w, r, log.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		fail(w, r, log.OpList, err)
		return
	}
	s.writePlan(w, r, id)
}

func (s *Server) writePlan(w http.ResponseWriter, r *http.Request, id int64) {
	p, rows, err := s.purchases.Plan(r.Context(), id)
	if err != nil {
		fail(w, r, log.OpList, err)
		return
	}
	out := planResponse{
		Purchase:     toPurchaseResponse(p),
		Installments: make([]installmentResponse, 0, len(rows)),
	}
	for _, row := range rows {
		out.Installments = append(out.Installments, installmentResponse{
			InstallmentNumber: row.InstallmentNumber,
			DueMonth:          row.DueMonth,
			Amount:            row.Amount,
		})
	}
	writeJSON(w, http.StatusOK, out)
}
