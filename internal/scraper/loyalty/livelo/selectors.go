package livelo

import "fmt"

// CSS Selectors for the Livelo web portal
const (
	// Header / login
	SelectorLoginEntry    = "#l-header__button_login"
	SelectorUserInput     = "#username"
	SelectorPasswordInput = "#password"
	SelectorSubmitButton  = "#btn-submit"

	// Header / logged in
	SelectorUserProfile = ".l-header__user-profile"
	SelectorLedgerLink  = `a.l-header__dropdown-menu-list-item[href="https://www.livelo.com.br/extrato"]`

	// Ledger page
	SelectorBalance         = "#balancePoints"
	SelectorEmptyState      = `[data-testid="emptyState"]`
	SelectorTransactionRows = `[data-testid^="div_Grid_Row"].table_transactions`

	// Pager
	SelectorPager       = `[data-testid="div_Pagination"]`
	SelectorPagerLabels = `[data-testid="div_Pagination"] [data-testid^="button_Pagination_Page_"] div[data-testid="Text_Typography"]`
	SelectorNextPage    = `[data-testid="div_Pagination_NextPage"] button:not([disabled])`
)

// DefaultBaseURL is the site root the session is reset to.
const DefaultBaseURL = "https://www.livelo.com.br/"

// fieldSelector addresses one cell of a ledger row, e.g.
// [data-testid='transactionPoints3'].
func fieldSelector(f Field, row int) string {
	return fmt.Sprintf("[data-testid='transaction%s%d']", f.testID(), row)
}
