package rpc

func (s *Server) methodTable() map[string]method {
	return map[string]method{
		"loan_init":      {module: "loans", mutates: true, handle: s.handleLoanInit},
		"loan_give":      {module: "loans", mutates: true, handle: s.handleLoanGive},
		"loan_repay":     {module: "loans", mutates: true, handle: s.handleLoanRepay},
		"loan_repossess": {module: "loans", mutates: true, handle: s.handleLoanRepossess},
		"loan_close":     {module: "loans", mutates: true, handle: s.handleLoanClose},
		"loan_get":       {module: "loans", handle: s.handleLoanGet},
		"loan_quote":     {module: "loans", handle: s.handleLoanQuote},

		"option_init":     {module: "options", mutates: true, handle: s.handleOptionInit},
		"option_buy":      {module: "options", mutates: true, handle: s.handleOptionBuy},
		"option_exercise": {module: "options", mutates: true, handle: s.handleOptionExercise},
		"option_close":    {module: "options", mutates: true, handle: s.handleOptionClose},
		"option_get":      {module: "options", handle: s.handleOptionGet},

		"hire_init":         {module: "hires", mutates: true, handle: s.handleHireInit},
		"hire_take":         {module: "hires", mutates: true, handle: s.handleHireTake},
		"hire_extend":       {module: "hires", mutates: true, handle: s.handleHireExtend},
		"hire_recover":      {module: "hires", mutates: true, handle: s.handleHireRecover},
		"hire_withdraw":     {module: "hires", mutates: true, handle: s.handleHireWithdraw},
		"hire_close":        {module: "hires", mutates: true, handle: s.handleHireClose},
		"hire_get":          {module: "hires", handle: s.handleHireGet},
		"hire_withdrawable": {module: "hires", handle: s.handleHireWithdrawable},

		"collection_init": {module: "pools", mutates: true, handle: s.handleCollectionInit},
		"collection_get":  {module: "pools", handle: s.handleCollectionGet},
		"pool_create":     {module: "pools", mutates: true, handle: s.handlePoolCreate},
		"pool_deposit":    {module: "pools", mutates: true, handle: s.handlePoolDeposit},
		"pool_withdraw":   {module: "pools", mutates: true, handle: s.handlePoolWithdraw},
		"pool_borrow":     {module: "pools", mutates: true, handle: s.handlePoolBorrow},
		"pool_repossess":  {module: "pools", mutates: true, handle: s.handlePoolRepossess},
		"pool_close":      {module: "pools", mutates: true, handle: s.handlePoolClose},
		"pool_get":        {module: "pools", handle: s.handlePoolGet},

		"tokenManager_get": {module: "ledger", handle: s.handleTokenManagerGet},
		"balance_get":      {module: "ledger", handle: s.handleBalanceGet},
		"token_owner":      {module: "ledger", handle: s.handleTokenOwner},
		"events_list":      {module: "events", handle: s.handleEventsList},
	}
}
