package rpc

import (
	"encoding/json"

	"nftlend/crypto"
	"nftlend/native/pools"
)

type collectionParams struct {
	Collection string `json:"collection"`
}

type poolCreateParams struct {
	Collection  string `json:"collection"`
	FloorPrice  string `json:"floorPrice"`
	BasisPoints uint32 `json:"basisPoints"`
	Duration    int64  `json:"duration"`
}

type poolAmountParams struct {
	Collection string `json:"collection"`
	Amount     string `json:"amount"`
}

type poolBorrowParams struct {
	Mint       string `json:"mint"`
	Authority  string `json:"authority"`
	Collection string `json:"collection"`
}

type poolRepossessParams struct {
	Collection string `json:"collection"`
	Mint       string `json:"mint"`
	Borrower   string `json:"borrower"`
}

type poolRefParams struct {
	Collection string `json:"collection"`
	Authority  string `json:"authority"`
}

type vaultResult struct {
	VaultBalance string `json:"vaultBalance"`
}

func (s *Server) handleCollectionInit(caller crypto.Address, raw []json.RawMessage) (interface{}, error) {
	var params collectionParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	collection, err := parseAddress("collection", params.Collection)
	if err != nil {
		return nil, err
	}
	record, err := s.protocol.InitCollection(caller, collection)
	if err != nil {
		return nil, err
	}
	return collectionResult(record), nil
}

func (s *Server) handleCollectionGet(_ crypto.Address, raw []json.RawMessage) (interface{}, error) {
	var params collectionParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	collection, err := parseAddress("collection", params.Collection)
	if err != nil {
		return nil, err
	}
	record, err := s.protocol.GetCollection(collection)
	if err != nil {
		return nil, err
	}
	return collectionResult(record), nil
}

func (s *Server) handlePoolCreate(caller crypto.Address, raw []json.RawMessage) (interface{}, error) {
	var params poolCreateParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	collection, err := parseAddress("collection", params.Collection)
	if err != nil {
		return nil, err
	}
	floor, err := parseLamports("floorPrice", params.FloorPrice)
	if err != nil {
		return nil, err
	}
	terms := pools.PoolTerms{FloorPrice: floor, BasisPoints: params.BasisPoints, Duration: params.Duration}
	pool, err := s.protocol.CreatePool(caller, collection, terms)
	if err != nil {
		return nil, err
	}
	return poolResult(s.protocol.Pools(), pool), nil
}

func (s *Server) handlePoolDeposit(caller crypto.Address, raw []json.RawMessage) (interface{}, error) {
	return s.moveVaultFunds(caller, raw, s.protocol.Deposit)
}

func (s *Server) handlePoolWithdraw(caller crypto.Address, raw []json.RawMessage) (interface{}, error) {
	return s.moveVaultFunds(caller, raw, s.protocol.Withdraw)
}

func (s *Server) moveVaultFunds(caller crypto.Address, raw []json.RawMessage, move func(authority, collection crypto.Address, amount uint64) (uint64, error)) (interface{}, error) {
	var params poolAmountParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	collection, err := parseAddress("collection", params.Collection)
	if err != nil {
		return nil, err
	}
	amount, err := parseLamports("amount", params.Amount)
	if err != nil {
		return nil, err
	}
	balance, err := move(caller, collection, amount)
	if err != nil {
		return nil, err
	}
	return vaultResult{VaultBalance: formatLamports(balance)}, nil
}

func (s *Server) handlePoolBorrow(caller crypto.Address, raw []json.RawMessage) (interface{}, error) {
	var params poolBorrowParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	mint, err := parseAddress("mint", params.Mint)
	if err != nil {
		return nil, err
	}
	pool, err := parsePair("collection", params.Collection, "authority", params.Authority)
	if err != nil {
		return nil, err
	}
	loan, err := s.protocol.BorrowFromPool(caller, mint, pool.other, pool.mint)
	if err != nil {
		return nil, err
	}
	return loanResult(s.protocol.Listings(), loan), nil
}

func (s *Server) handlePoolRepossess(caller crypto.Address, raw []json.RawMessage) (interface{}, error) {
	var params poolRepossessParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	collection, err := parseAddress("collection", params.Collection)
	if err != nil {
		return nil, err
	}
	pair, err := parsePair("mint", params.Mint, "borrower", params.Borrower)
	if err != nil {
		return nil, err
	}
	loan, err := s.protocol.RepossessFromPool(caller, collection, pair.mint, pair.other)
	if err != nil {
		return nil, err
	}
	return loanResult(s.protocol.Listings(), loan), nil
}

func (s *Server) handlePoolClose(caller crypto.Address, raw []json.RawMessage) (interface{}, error) {
	var params collectionParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	collection, err := parseAddress("collection", params.Collection)
	if err != nil {
		return nil, err
	}
	if err := s.protocol.ClosePool(caller, collection); err != nil {
		return nil, err
	}
	return statusResult{Status: "closed"}, nil
}

func (s *Server) handlePoolGet(_ crypto.Address, raw []json.RawMessage) (interface{}, error) {
	var params poolRefParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	ref, err := parsePair("collection", params.Collection, "authority", params.Authority)
	if err != nil {
		return nil, err
	}
	pool, vault, err := s.protocol.GetPool(ref.mint, ref.other)
	if err != nil {
		return nil, err
	}
	res := poolResult(s.protocol.Pools(), pool)
	res.VaultBalance = formatLamports(vault)
	return res, nil
}
