package rpc

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"nftlend/crypto"
)

// decodeParams decodes the single parameter object of a request.
func decodeParams(params []json.RawMessage, out interface{}) error {
	if len(params) != 1 {
		return invalidParams("parameter object required")
	}
	dec := json.NewDecoder(bytes.NewReader(params[0]))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return invalidParams("invalid parameter object: %v", err)
	}
	return nil
}

func parseAddress(field, value string) (crypto.Address, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return crypto.ZeroAddress, invalidParams("%s is required", field)
	}
	addr, err := crypto.ParseAddress(trimmed)
	if err != nil {
		return crypto.ZeroAddress, invalidParams("invalid %s: %v", field, err)
	}
	return addr, nil
}

func parseOptionalAddress(field, value string) (crypto.Address, error) {
	if strings.TrimSpace(value) == "" {
		return crypto.ZeroAddress, nil
	}
	return parseAddress(field, value)
}

// parseLamports reads a decimal lamport amount. Amounts travel as strings so
// that values above 2^53 survive JSON clients.
func parseLamports(field, value string) (uint64, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, invalidParams("%s is required", field)
	}
	amount, err := strconv.ParseUint(trimmed, 10, 64)
	if err != nil {
		return 0, invalidParams("invalid %s: %v", field, err)
	}
	return amount, nil
}

func formatLamports(v uint64) string { return strconv.FormatUint(v, 10) }

// addressPair resolves a mint and the counterparty identifying a claim.
type addressPair struct {
	mint, other crypto.Address
}

func parsePair(mintField, mint, otherField, other string) (addressPair, error) {
	m, err := parseAddress(mintField, mint)
	if err != nil {
		return addressPair{}, err
	}
	o, err := parseAddress(otherField, other)
	if err != nil {
		return addressPair{}, err
	}
	return addressPair{mint: m, other: o}, nil
}
