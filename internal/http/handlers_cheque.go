package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"khata/internal/core"
)

func (s *Server) handleCreateCheque(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountID    uuid.UUID       `json:"account_id"`
		ObligationID *uuid.UUID      `json:"obligation_id"`
		Number       string          `json:"number"`
		Bank         string          `json:"bank"`
		Amount       decimal.Decimal `json:"amount"`
		IssueDate    string          `json:"issue_date"`
		DueDate      string          `json:"due_date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	issueDate, err := parseDate(req.IssueDate)
	if err != nil {
		badRequest(w, fmt.Sprintf("invalid issue_date %q", req.IssueDate))
		return
	}
	dueDate, err := parseDate(req.DueDate)
	if err != nil {
		badRequest(w, fmt.Sprintf("invalid due_date %q", req.DueDate))
		return
	}

	cheque, err := s.ledger.CreateCheque(r.Context(), core.Cheque{
		AccountID:    req.AccountID,
		ObligationID: req.ObligationID,
		Number:       req.Number,
		Bank:         req.Bank,
		Amount:       req.Amount,
		IssueDate:    issueDate,
		DueDate:      dueDate,
		Status:       core.ChequePending,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newChequeView(cheque))
}

func (s *Server) handleListCheques(w http.ResponseWriter, r *http.Request) {
	status := core.ChequeStatus(r.URL.Query().Get("status"))
	switch status {
	case "", core.ChequePending, core.ChequeDue, core.ChequeCleared, core.ChequeBounced:
	default:
		badRequest(w, fmt.Sprintf("unknown cheque status %q", status))
		return
	}

	cheques, err := s.ledger.ListCheques(r.Context(), status)
	if err != nil {
		writeError(w, r, err)
		return
	}

	views := make([]chequeView, 0, len(cheques))
	for _, c := range cheques {
		views = append(views, newChequeView(c))
	}
	writeJSON(w, http.StatusOK, views)
}

// chequeActionDate reads the optional {"date": "YYYY-MM-DD"} body used by the
// clear and bounce endpoints, defaulting to today.
func chequeActionDate(r *http.Request) (time.Time, error) {
	var req struct {
		Date string `json:"date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return time.Time{}, fmt.Errorf("invalid JSON body")
	}
	if req.Date == "" {
		return time.Now().UTC(), nil
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", req.Date)
	}
	return date, nil
}

func (s *Server) handleClearCheque(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	date, err := chequeActionDate(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	cheque, err := s.ledger.ClearCheque(r.Context(), id, date)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newChequeView(cheque))
}

func (s *Server) handleBounceCheque(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	date, err := chequeActionDate(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	cheque, err := s.ledger.BounceCheque(r.Context(), id, date)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newChequeView(cheque))
}
