package livelo

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grez-lucas/livelo-scraper/internal/scraper/loyalty/testutil"
)

// ledgerFixtures pins what the selectors must find on each captured ledger.
var ledgerFixtures = []struct {
	name      string
	html      string
	balance   float64
	rows      int
	lastPage  int
	hasNext   bool
	emptyView bool
}{
	{"ledger_page1", testutil.MustLoadFixture("livelo", "ledger_page1"), 12345, 4, 2, true, false},
	{"ledger_page2", testutil.MustLoadFixture("livelo", "ledger_page2"), 12345, 3, 2, false, false},
	{"ledger_single", testutil.MustLoadFixture("livelo", "ledger_single"), 800, 3, 1, false, false},
	{"ledger_empty", testutil.MustLoadFixture("livelo", "ledger_empty"), 1500, 0, 1, false, true},
	{"ledger_zero", testutil.MustLoadFixture("livelo", "ledger_zero"), 0, 0, 1, false, true},
}

func TestSelectors_LedgerFixtures(t *testing.T) {
	for _, tc := range ledgerFixtures {
		t.Run(tc.name, func(t *testing.T) {
			doc, err := goquery.NewDocumentFromReader(strings.NewReader(tc.html))
			require.NoError(t, err)

			balance, err := ParseBalance(doc.Find(SelectorBalance).Text())
			require.NoError(t, err)
			assert.Equal(t, tc.balance, balance)

			assert.Equal(t, tc.rows, doc.Find(SelectorTransactionRows).Length())
			assert.Equal(t, tc.hasNext, doc.Find(SelectorNextPage).Length() > 0)
			assert.Equal(t, tc.emptyView, doc.Find(SelectorEmptyState).Length() > 0)

			var labels []string
			doc.Find(SelectorPagerLabels).Each(func(_ int, s *goquery.Selection) {
				labels = append(labels, strings.TrimSpace(s.Text()))
			})
			assert.Equal(t, tc.lastPage, maxPageLabel(labels))
		})
	}
}

func TestSelectors_FirstDataRow(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(testutil.MustLoadFixture("livelo", "ledger_page1")))
	require.NoError(t, err)

	got := make(map[Field]string)
	for _, f := range Fields() {
		got[f] = strings.TrimSpace(doc.Find(fieldSelector(f, 0)).Text())
	}

	assert.Equal(t, "10/03/2025", got[FieldDate])
	assert.Equal(t, "+1.200", got[FieldPoints])
	assert.Equal(t, 1200.0, ParsePoints(got[FieldPoints]))
}
