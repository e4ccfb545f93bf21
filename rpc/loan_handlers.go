package rpc

import (
	"encoding/json"

	"nftlend/crypto"
	"nftlend/native/listings"
)

type loanInitParams struct {
	Mint        string `json:"mint"`
	Amount      string `json:"amount"`
	BasisPoints uint32 `json:"basisPoints"`
	Duration    int64  `json:"duration"`
}

type loanRefParams struct {
	Mint     string `json:"mint"`
	Borrower string `json:"borrower,omitempty"`
}

type statusResult struct {
	Status string `json:"status"`
}

func (s *Server) handleLoanInit(caller crypto.Address, raw []json.RawMessage) (interface{}, error) {
	var params loanInitParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	mint, err := parseAddress("mint", params.Mint)
	if err != nil {
		return nil, err
	}
	amount, err := parseLamports("amount", params.Amount)
	if err != nil {
		return nil, err
	}
	terms := listings.LoanTerms{Amount: amount, BasisPoints: params.BasisPoints, Duration: params.Duration}
	loan, err := s.protocol.InitLoan(caller, mint, terms)
	if err != nil {
		return nil, err
	}
	return loanResult(s.protocol.Listings(), loan), nil
}

func (s *Server) handleLoanGive(caller crypto.Address, raw []json.RawMessage) (interface{}, error) {
	var params loanRefParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	pair, err := parsePair("mint", params.Mint, "borrower", params.Borrower)
	if err != nil {
		return nil, err
	}
	loan, err := s.protocol.GiveLoan(caller, pair.mint, pair.other)
	if err != nil {
		return nil, err
	}
	return loanResult(s.protocol.Listings(), loan), nil
}

func (s *Server) handleLoanRepay(caller crypto.Address, raw []json.RawMessage) (interface{}, error) {
	var params loanRefParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	mint, err := parseAddress("mint", params.Mint)
	if err != nil {
		return nil, err
	}
	repayment, err := s.protocol.RepayLoan(caller, mint)
	if err != nil {
		return nil, err
	}
	return repaymentResult(repayment), nil
}

func (s *Server) handleLoanRepossess(caller crypto.Address, raw []json.RawMessage) (interface{}, error) {
	var params loanRefParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	pair, err := parsePair("mint", params.Mint, "borrower", params.Borrower)
	if err != nil {
		return nil, err
	}
	loan, err := s.protocol.Repossess(caller, pair.mint, pair.other)
	if err != nil {
		return nil, err
	}
	return loanResult(s.protocol.Listings(), loan), nil
}

func (s *Server) handleLoanClose(caller crypto.Address, raw []json.RawMessage) (interface{}, error) {
	var params loanRefParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	mint, err := parseAddress("mint", params.Mint)
	if err != nil {
		return nil, err
	}
	if err := s.protocol.CloseLoan(caller, mint); err != nil {
		return nil, err
	}
	return statusResult{Status: "closed"}, nil
}

func (s *Server) handleLoanGet(_ crypto.Address, raw []json.RawMessage) (interface{}, error) {
	var params loanRefParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	pair, err := parsePair("mint", params.Mint, "borrower", params.Borrower)
	if err != nil {
		return nil, err
	}
	loan, err := s.protocol.GetLoan(pair.mint, pair.other)
	if err != nil {
		return nil, err
	}
	return loanResult(s.protocol.Listings(), loan), nil
}

func (s *Server) handleLoanQuote(_ crypto.Address, raw []json.RawMessage) (interface{}, error) {
	var params loanRefParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	pair, err := parsePair("mint", params.Mint, "borrower", params.Borrower)
	if err != nil {
		return nil, err
	}
	repayment, err := s.protocol.QuoteRepayment(pair.mint, pair.other)
	if err != nil {
		return nil, err
	}
	return repaymentResult(repayment), nil
}
