package state

var (
	loanPrefix         = []byte("listings/loan/")
	callOptionPrefix   = []byte("listings/call_option/")
	hirePrefix         = []byte("listings/hire/")
	tokenManagerPrefix = []byte("listings/token_manager/")
	collectionPrefix   = []byte("pools/collection/")
	poolPrefix         = []byte("pools/pool/")
	balancePrefix      = []byte("ledger/balance/")
	tokenPrefix        = []byte("ledger/token/")
	metadataPrefix     = []byte("registry/metadata/")
)
