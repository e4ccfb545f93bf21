package rpc

import (
	"encoding/json"

	"nftlend/crypto"
	"nftlend/indexer"
)

type tokenManagerParams struct {
	Mint   string `json:"mint"`
	Issuer string `json:"issuer"`
}

type balanceParams struct {
	Address string `json:"address"`
}

type tokenOwnerParams struct {
	Mint string `json:"mint"`
}

type eventsListParams struct {
	Type   string `json:"type,omitempty"`
	Module string `json:"module,omitempty"`
	Mint   string `json:"mint,omitempty"`
	After  uint64 `json:"after,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}

type balanceResult struct {
	Address string `json:"address"`
	Balance string `json:"balance"`
}

type tokenOwnerResult struct {
	Mint  string `json:"mint"`
	Owner string `json:"owner"`
}

func (s *Server) handleTokenManagerGet(_ crypto.Address, raw []json.RawMessage) (interface{}, error) {
	var params tokenManagerParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	pair, err := parsePair("mint", params.Mint, "issuer", params.Issuer)
	if err != nil {
		return nil, err
	}
	tm, err := s.protocol.GetTokenManager(pair.mint, pair.other)
	if err != nil {
		return nil, err
	}
	return tokenManagerResult(s.protocol.Listings(), tm), nil
}

func (s *Server) handleBalanceGet(_ crypto.Address, raw []json.RawMessage) (interface{}, error) {
	var params balanceParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	addr, err := parseAddress("address", params.Address)
	if err != nil {
		return nil, err
	}
	balance, err := s.protocol.Balance(addr)
	if err != nil {
		return nil, err
	}
	return balanceResult{Address: addr.String(), Balance: formatLamports(balance)}, nil
}

func (s *Server) handleTokenOwner(_ crypto.Address, raw []json.RawMessage) (interface{}, error) {
	var params tokenOwnerParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	mint, err := parseAddress("mint", params.Mint)
	if err != nil {
		return nil, err
	}
	owner, err := s.protocol.TokenOwner(mint)
	if err != nil {
		return nil, err
	}
	return tokenOwnerResult{Mint: mint.String(), Owner: owner.String()}, nil
}

func (s *Server) handleEventsList(_ crypto.Address, raw []json.RawMessage) (interface{}, error) {
	if s.events == nil {
		return nil, &RPCError{Code: codeServerError, Message: "event history not configured"}
	}
	var params eventsListParams
	if len(raw) > 0 {
		if err := decodeParams(raw, &params); err != nil {
			return nil, err
		}
	}
	if params.Mint != "" {
		if _, err := parseAddress("mint", params.Mint); err != nil {
			return nil, err
		}
	}
	records, err := s.events.List(indexer.Filter{
		Type:   params.Type,
		Module: params.Module,
		Mint:   params.Mint,
		After:  params.After,
		Limit:  params.Limit,
	})
	if err != nil {
		return nil, err
	}
	out := make([]EventResult, 0, len(records))
	for _, record := range records {
		res, err := eventResult(record)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}
