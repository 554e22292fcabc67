package rpc

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"

	"github.com/tonkeeper/tongo/boc"
	"github.com/tonkeeper/tongo/ton"

	coreerrors "tonaffiliate/core/errors"
	"tonaffiliate/core/ledger"
	"tonaffiliate/core/wire"
)

// handleSubmit queues a wallet message, runs the ledger to quiescence and
// returns the receipts of every delivery it caused.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if !s.allowSubmit(r) {
		writeError(w, http.StatusTooManyRequests, codeRateLimited, "submit rate exceeded")
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidParams, "failed to read request body")
		return
	}
	if len(body) > maxRequestBytes {
		writeError(w, http.StatusRequestEntityTooLarge, codeInvalidParams, "request body too large")
		return
	}
	var req SubmitRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidParams, fmt.Sprintf("invalid request: %v", err))
		return
	}
	msg, err := req.message()
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidParams, err.Error())
		return
	}

	s.submitMu.Lock()
	defer s.submitMu.Unlock()

	var last uint64
	if receipts := s.ledger.Receipts(); len(receipts) > 0 {
		last = receipts[len(receipts)-1].Seq
	}
	if err := s.ledger.Submit(msg); err != nil {
		status := http.StatusUnprocessableEntity
		if errors.Is(err, ledger.ErrAccountNotFound) {
			status = http.StatusNotFound
		}
		writeError(w, status, codeRejected, err.Error())
		return
	}
	if err := s.ledger.Run(r.Context()); err != nil {
		s.logger.Error("ledger run failed", "error", err)
		writeError(w, http.StatusInternalServerError, codeServerError, err.Error())
		return
	}

	out := SubmitResult{Receipts: []ReceiptResult{}}
	for _, rc := range s.ledger.Receipts() {
		if rc.Seq > last {
			out.Receipts = append(out.Receipts, receiptResult(rc))
		}
	}
	writeResult(w, out)
}

func (req *SubmitRequest) message() (*ledger.Message, error) {
	from, err := ton.ParseAccountID(strings.TrimSpace(req.From))
	if err != nil {
		return nil, fmt.Errorf("invalid from: %w", err)
	}
	to, err := ton.ParseAccountID(strings.TrimSpace(req.To))
	if err != nil {
		return nil, fmt.Errorf("invalid to: %w", err)
	}
	value := new(big.Int)
	if raw := strings.TrimSpace(req.Value); raw != "" {
		if _, ok := value.SetString(raw, 10); !ok || value.Sign() < 0 {
			return nil, fmt.Errorf("invalid value %q: %w", req.Value, coreerrors.ErrInvalidAmount)
		}
	}
	msg := &ledger.Message{From: from, To: to, Value: value, Bounce: true}
	if req.Bounce != nil {
		msg.Bounce = *req.Bounce
	}
	if msg.Body, err = decodeCell(req.Body); err != nil {
		return nil, fmt.Errorf("invalid body: %w", err)
	}
	if req.StateInit != nil {
		code, err := decodeCell(req.StateInit.Code)
		if err != nil {
			return nil, fmt.Errorf("invalid stateInit.code: %w", err)
		}
		data, err := decodeCell(req.StateInit.Data)
		if err != nil {
			return nil, fmt.Errorf("invalid stateInit.data: %w", err)
		}
		if code == nil || data == nil {
			return nil, errors.New("stateInit needs code and data")
		}
		msg.StateInit = &ledger.StateInit{Code: code, Data: data}
	}
	return msg, nil
}

// decodeCell parses a base64 BoC. An empty string is an empty body.
func decodeCell(raw string) (*boc.Cell, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, err
	}
	return wire.FromBoc(data)
}
