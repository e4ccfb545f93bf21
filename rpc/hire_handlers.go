package rpc

import (
	"encoding/json"

	"nftlend/crypto"
	"nftlend/native/listings"
)

type hireInitParams struct {
	Mint     string `json:"mint"`
	Amount   string `json:"amount"`
	Expiry   int64  `json:"expiry"`
	Borrower string `json:"borrower,omitempty"`
}

type hireTakeParams struct {
	Mint   string `json:"mint"`
	Lender string `json:"lender"`
	Days   uint16 `json:"days"`
}

type hireRefParams struct {
	Mint   string `json:"mint"`
	Lender string `json:"lender,omitempty"`
}

type withdrawResult struct {
	Withdrawn string `json:"withdrawn"`
}

type withdrawableResult struct {
	Withdrawable string `json:"withdrawable"`
}

func (s *Server) handleHireInit(caller crypto.Address, raw []json.RawMessage) (interface{}, error) {
	var params hireInitParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	mint, err := parseAddress("mint", params.Mint)
	if err != nil {
		return nil, err
	}
	daily, err := parseLamports("amount", params.Amount)
	if err != nil {
		return nil, err
	}
	borrower, err := parseOptionalAddress("borrower", params.Borrower)
	if err != nil {
		return nil, err
	}
	terms := listings.HireTerms{Amount: daily, Expiry: params.Expiry, Borrower: borrower}
	hire, err := s.protocol.InitHire(caller, mint, terms)
	if err != nil {
		return nil, err
	}
	return hireResult(s.protocol.Listings(), hire), nil
}

func (s *Server) handleHireTake(caller crypto.Address, raw []json.RawMessage) (interface{}, error) {
	var params hireTakeParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	pair, err := parsePair("mint", params.Mint, "lender", params.Lender)
	if err != nil {
		return nil, err
	}
	hire, err := s.protocol.TakeHire(caller, pair.mint, pair.other, params.Days)
	if err != nil {
		return nil, err
	}
	return hireResult(s.protocol.Listings(), hire), nil
}

func (s *Server) handleHireExtend(caller crypto.Address, raw []json.RawMessage) (interface{}, error) {
	var params hireTakeParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	pair, err := parsePair("mint", params.Mint, "lender", params.Lender)
	if err != nil {
		return nil, err
	}
	hire, err := s.protocol.ExtendHire(caller, pair.mint, pair.other, params.Days)
	if err != nil {
		return nil, err
	}
	return hireResult(s.protocol.Listings(), hire), nil
}

func (s *Server) handleHireRecover(caller crypto.Address, raw []json.RawMessage) (interface{}, error) {
	var params hireRefParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	mint, err := parseAddress("mint", params.Mint)
	if err != nil {
		return nil, err
	}
	hire, err := s.protocol.RecoverHire(caller, mint)
	if err != nil {
		return nil, err
	}
	return hireResult(s.protocol.Listings(), hire), nil
}

func (s *Server) handleHireWithdraw(caller crypto.Address, raw []json.RawMessage) (interface{}, error) {
	var params hireRefParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	mint, err := parseAddress("mint", params.Mint)
	if err != nil {
		return nil, err
	}
	amount, err := s.protocol.WithdrawFromHireEscrow(caller, mint)
	if err != nil {
		return nil, err
	}
	return withdrawResult{Withdrawn: formatLamports(amount)}, nil
}

func (s *Server) handleHireClose(caller crypto.Address, raw []json.RawMessage) (interface{}, error) {
	var params hireRefParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	mint, err := parseAddress("mint", params.Mint)
	if err != nil {
		return nil, err
	}
	if err := s.protocol.CloseHire(caller, mint); err != nil {
		return nil, err
	}
	return statusResult{Status: "closed"}, nil
}

func (s *Server) handleHireGet(_ crypto.Address, raw []json.RawMessage) (interface{}, error) {
	var params hireRefParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	pair, err := parsePair("mint", params.Mint, "lender", params.Lender)
	if err != nil {
		return nil, err
	}
	hire, err := s.protocol.GetHire(pair.mint, pair.other)
	if err != nil {
		return nil, err
	}
	return hireResult(s.protocol.Listings(), hire), nil
}

func (s *Server) handleHireWithdrawable(_ crypto.Address, raw []json.RawMessage) (interface{}, error) {
	var params hireRefParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	pair, err := parsePair("mint", params.Mint, "lender", params.Lender)
	if err != nil {
		return nil, err
	}
	amount, err := s.protocol.EscrowWithdrawable(pair.mint, pair.other)
	if err != nil {
		return nil, err
	}
	return withdrawableResult{Withdrawable: formatLamports(amount)}, nil
}
