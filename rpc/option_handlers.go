package rpc

import (
	"encoding/json"

	"nftlend/crypto"
	"nftlend/native/listings"
)

type optionInitParams struct {
	Mint        string `json:"mint"`
	Amount      string `json:"amount"`
	StrikePrice string `json:"strikePrice"`
	Expiry      int64  `json:"expiry"`
}

type optionRefParams struct {
	Mint   string `json:"mint"`
	Seller string `json:"seller,omitempty"`
}

func (s *Server) handleOptionInit(caller crypto.Address, raw []json.RawMessage) (interface{}, error) {
	var params optionInitParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	mint, err := parseAddress("mint", params.Mint)
	if err != nil {
		return nil, err
	}
	premium, err := parseLamports("amount", params.Amount)
	if err != nil {
		return nil, err
	}
	strike, err := parseLamports("strikePrice", params.StrikePrice)
	if err != nil {
		return nil, err
	}
	terms := listings.CallOptionTerms{Amount: premium, StrikePrice: strike, Expiry: params.Expiry}
	option, err := s.protocol.InitCallOption(caller, mint, terms)
	if err != nil {
		return nil, err
	}
	return callOptionResult(s.protocol.Listings(), option), nil
}

func (s *Server) handleOptionBuy(caller crypto.Address, raw []json.RawMessage) (interface{}, error) {
	var params optionRefParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	pair, err := parsePair("mint", params.Mint, "seller", params.Seller)
	if err != nil {
		return nil, err
	}
	option, err := s.protocol.BuyCallOption(caller, pair.mint, pair.other)
	if err != nil {
		return nil, err
	}
	return callOptionResult(s.protocol.Listings(), option), nil
}

func (s *Server) handleOptionExercise(caller crypto.Address, raw []json.RawMessage) (interface{}, error) {
	var params optionRefParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	pair, err := parsePair("mint", params.Mint, "seller", params.Seller)
	if err != nil {
		return nil, err
	}
	split, err := s.protocol.ExerciseCallOption(caller, pair.mint, pair.other)
	if err != nil {
		return nil, err
	}
	return exerciseResult(split), nil
}

func (s *Server) handleOptionClose(caller crypto.Address, raw []json.RawMessage) (interface{}, error) {
	var params optionRefParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	mint, err := parseAddress("mint", params.Mint)
	if err != nil {
		return nil, err
	}
	if err := s.protocol.CloseCallOption(caller, mint); err != nil {
		return nil, err
	}
	return statusResult{Status: "closed"}, nil
}

func (s *Server) handleOptionGet(_ crypto.Address, raw []json.RawMessage) (interface{}, error) {
	var params optionRefParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	pair, err := parsePair("mint", params.Mint, "seller", params.Seller)
	if err != nil {
		return nil, err
	}
	option, err := s.protocol.GetCallOption(pair.mint, pair.other)
	if err != nil {
		return nil, err
	}
	return callOptionResult(s.protocol.Listings(), option), nil
}
