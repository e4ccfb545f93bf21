package listings

import (
	"nftlend/crypto"
	"nftlend/native/fees"
	"nftlend/native/tokenmanager"
)

// InitCallOption writes a covered call against the seller's collateral and
// locks it. With a hire lock held the seller must be the lender of a taken
// hire; the option then layers on the hire.
func (e *Engine) InitCallOption(seller, mint crypto.Address, terms CallOptionTerms) (*CallOption, error) {
	if err := e.ready(ModuleOptions); err != nil {
		return nil, err
	}
	if terms.Expiry <= e.now() {
		return nil, ErrInvalidExpiry
	}
	if terms.StrikePrice == 0 {
		return nil, ErrInvalidAmount
	}
	if _, exists, err := e.state.CallOptionGet(mint, seller); err != nil {
		return nil, err
	} else if exists {
		return nil, ErrCallOptionExists
	}
	tm, err := e.tokenManager(mint, seller)
	if err != nil {
		return nil, err
	}
	if tm.CallOption {
		return nil, ErrCallOptionLocked
	}
	if tm.Loan {
		return nil, ErrLoanLocked
	}
	if tm.Hire {
		if err := e.requireHired(mint, seller); err != nil {
			return nil, err
		}
	} else if err := e.requireOwner(mint, seller); err != nil {
		return nil, err
	}
	_, bump, err := e.derive(CallOptionPrefix, mint, seller)
	if err != nil {
		return nil, err
	}
	if err := e.tokens.Acquire(tm, tokenmanager.KindCallOption); err != nil {
		return nil, err
	}
	option := &CallOption{
		State:       CallOptionListed,
		Amount:      terms.Amount,
		Seller:      seller,
		Expiry:      terms.Expiry,
		StrikePrice: terms.StrikePrice,
		Mint:        mint,
		Bump:        bump,
	}
	if err := e.state.TokenManagerPut(tm); err != nil {
		return nil, err
	}
	if err := e.state.CallOptionPut(option); err != nil {
		return nil, err
	}
	e.emit(CallOptionEvent(EventTypeCallOptionListed, option))
	return option.Clone(), nil
}

// BuyCallOption pays the premium to the seller and activates the option.
func (e *Engine) BuyCallOption(buyer, mint, seller crypto.Address) (*CallOption, error) {
	if err := e.ready(ModuleOptions); err != nil {
		return nil, err
	}
	option, err := e.loadCallOption(mint, seller)
	if err != nil {
		return nil, err
	}
	if option.State != CallOptionListed {
		return nil, ErrInvalidState
	}
	if buyer.Equals(option.Seller) {
		return nil, ErrSelfDealing
	}
	if e.now() > option.Expiry {
		return nil, ErrOptionExpired
	}
	if err := e.funds.Transfer(buyer, option.Seller, option.Amount); err != nil {
		return nil, err
	}
	option.State = CallOptionActive
	option.Buyer = buyer
	if err := e.state.CallOptionPut(option); err != nil {
		return nil, err
	}
	e.emit(CallOptionEvent(EventTypeCallOptionBought, option))
	return option.Clone(), nil
}

// ExerciseCallOption buys the collateral at the strike price. Creator
// royalties are paid out of the strike and the remainder goes to the seller.
// A hire layered on the collateral is settled and closed before the token is
// delivered to the buyer.
func (e *Engine) ExerciseCallOption(buyer, mint, seller crypto.Address) (fees.RoyaltySplit, error) {
	if err := e.ready(ModuleOptions); err != nil {
		return fees.RoyaltySplit{}, err
	}
	if e.registry == nil {
		return fees.RoyaltySplit{}, errNilRegistry
	}
	option, err := e.loadCallOption(mint, seller)
	if err != nil {
		return fees.RoyaltySplit{}, err
	}
	if option.State != CallOptionActive {
		return fees.RoyaltySplit{}, ErrInvalidState
	}
	if !option.Buyer.Equals(buyer) {
		return fees.RoyaltySplit{}, ErrUnauthorized
	}
	if e.now() > option.Expiry {
		return fees.RoyaltySplit{}, ErrOptionExpired
	}
	meta, err := e.registry.Lookup(mint)
	if err != nil {
		return fees.RoyaltySplit{}, err
	}
	if !meta.Mint.Equals(mint) {
		return fees.RoyaltySplit{}, ErrInvalidMetadata
	}
	split, err := fees.SplitRoyalties(option.StrikePrice, meta.SellerFeeBasisPoints, meta.Creators)
	if err != nil {
		return fees.RoyaltySplit{}, err
	}
	for _, payout := range split.Payouts {
		if err := e.funds.Transfer(buyer, payout.Address, payout.Amount); err != nil {
			return fees.RoyaltySplit{}, err
		}
	}
	if err := e.funds.Transfer(buyer, option.Seller, split.SellerProceeds()); err != nil {
		return fees.RoyaltySplit{}, err
	}

	tm, err := e.tokenManager(mint, seller)
	if err != nil {
		return fees.RoyaltySplit{}, err
	}
	kinds := []tokenmanager.Kind{tokenmanager.KindCallOption}
	closedHire, err := e.closeHireForTransfer(tm, mint, seller)
	if err != nil {
		return fees.RoyaltySplit{}, err
	}
	if closedHire {
		kinds = append(kinds, tokenmanager.KindHire)
	}
	if err := e.tokens.ReleaseAndTransfer(tm, buyer, kinds...); err != nil {
		return fees.RoyaltySplit{}, err
	}
	option.State = CallOptionExercised
	if err := e.state.TokenManagerPut(tm); err != nil {
		return fees.RoyaltySplit{}, err
	}
	if err := e.state.CallOptionPut(option); err != nil {
		return fees.RoyaltySplit{}, err
	}
	e.emit(CallOptionExercisedEvent(option, split))
	return split, nil
}

// CloseCallOption removes an option that was never bought, has expired
// unexercised, or has been exercised. The collateral stays frozen while a
// hire lock remains.
func (e *Engine) CloseCallOption(seller, mint crypto.Address) error {
	if err := e.ready(ModuleOptions); err != nil {
		return err
	}
	option, err := e.loadCallOption(mint, seller)
	if err != nil {
		return err
	}
	if option.State == CallOptionActive && option.Expiry >= e.now() {
		return ErrOptionNotExpired
	}
	tm, err := e.tokenManager(mint, seller)
	if err != nil {
		return err
	}
	if option.State != CallOptionExercised && tm.CallOption {
		if err := e.tokens.Release(tm, tokenmanager.KindCallOption); err != nil {
			return err
		}
		if err := e.state.TokenManagerPut(tm); err != nil {
			return err
		}
	}
	if err := e.state.CallOptionDelete(mint, seller); err != nil {
		return err
	}
	e.emit(CallOptionEvent(EventTypeCallOptionClosed, option))
	return nil
}

func (e *Engine) loadCallOption(mint, seller crypto.Address) (*CallOption, error) {
	option, ok, err := e.state.CallOptionGet(mint, seller)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrCallOptionNotFound
	}
	return option, nil
}
