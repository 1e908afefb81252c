package livelo

import (
	"context"
	"fmt"

	"github.com/grez-lucas/livelo-scraper/internal/scraper/browser"
	"github.com/grez-lucas/livelo-scraper/internal/scraper/loyalty"
)

// PageCeiling stops pagination once the page index reaches it, whatever
// the pager claims.
const PageCeiling = 20

// extractTransactions walks the ledger pages and collects every dated row.
// Rows collected before a failure are returned along with the error.
func (r *run) extractTransactions(ctx context.Context, order int) ([]loyalty.Transaction, int, error) {
	const stage = loyalty.StageExtractTransactions

	order = r.append(order, stage, "Iniciando extração de transações")

	total, order := r.totalPages(ctx, order)

	txns, order, err := r.paginate(ctx, total, order)
	if err != nil {
		order = r.appendf(order, stage, "Erro ao extrair transações: %v", err)
		r.stageFailed(stage, err)
		r.screenshot(ctx, "error-extract-transactions")
		return txns, order, err
	}

	return txns, r.appendf(order, stage, "Extração concluída: %d transações coletadas", len(txns)), nil
}

// totalPages reads the highest page number offered by the pager. A failed page
// count yields 0, which still lets the first page be read.
func (r *run) totalPages(ctx context.Context, order int) (int, int) {
	const stage = loyalty.StageExtractTransactions

	total, err := r.countPages(ctx)
	if err != nil {
		order = r.appendf(order, stage, "Erro ao capturar total de páginas: %v", err)
		r.logger.Warn("page count unavailable", "error", err)
		r.screenshot(ctx, "error-total-pages")
		return 0, order
	}

	return total, r.appendf(order, stage, "Total de páginas identificadas: %d", total)
}

func (r *run) countPages(ctx context.Context) (int, error) {
	_, err := r.session.WaitFor(ctx, SelectorPager, browser.WaitOptions{
		Visible: true,
		Timeout: r.timeouts.Pager,
	})
	if err != nil {
		return 0, err
	}

	labels, err := r.queryAll(ctx, SelectorPagerLabels)
	if err != nil {
		return 0, err
	}

	texts := make([]string, 0, len(labels))
	for _, l := range labels {
		text, err := r.text(ctx, l)
		if err != nil {
			return 0, fmt.Errorf("page label: %w", err)
		}
		texts = append(texts, text)
	}
	return maxPageLabel(texts), nil
}

func (r *run) paginate(ctx context.Context, total, order int) ([]loyalty.Transaction, int, error) {
	const stage = loyalty.StageExtractTransactions

	txns := []loyalty.Transaction{}

	for page := 1; ; page++ {
		empty, err := r.query(ctx, SelectorEmptyState)
		if err != nil {
			return txns, order, fmt.Errorf("page %d: %w", page, err)
		}
		if empty != nil {
			return txns, r.append(order, stage, "Nenhuma transação encontrada - extrato vazio"), nil
		}

		rows, err := r.queryAll(ctx, SelectorTransactionRows)
		if err != nil {
			return txns, order, fmt.Errorf("page %d: %w", page, err)
		}
		order = r.appendf(order, stage, "Extraindo página %d - %d transações encontradas", page, len(rows))

		// The first row of page 1 is a summary row without a testid index.
		skip := 0
		if page == 1 {
			skip = 1
		}
		for i := skip; i < len(rows); i++ {
			txn, err := r.readRow(ctx, i-skip)
			if err != nil {
				return txns, order, fmt.Errorf("page %d: %w", page, err)
			}
			if txn.Date != "" {
				txns = append(txns, txn)
			}
		}

		next, err := r.query(ctx, SelectorNextPage)
		if err != nil {
			return txns, order, fmt.Errorf("page %d: %w", page, err)
		}
		if next == nil {
			return txns, r.append(order, stage, "Última página atingida - finalizando extração"), nil
		}

		if page+1 > total || page+1 >= PageCeiling {
			r.logger.Info("pagination bound reached", "page", page, "total_pages", total)
			return txns, r.append(order, stage, "Limite de páginas atingido - finalizando extração"), nil
		}

		err = r.session.Click(ctx, next, browser.ClickOptions{
			Delay:   r.pacing.ClickPress,
			Timeout: r.timeouts.NextPage,
		})
		if err != nil {
			return txns, order, fmt.Errorf("next page after %d: %w", page, err)
		}
		if err := r.pacing.PageSettle.Sleep(ctx); err != nil {
			return txns, order, err
		}
	}
}

// readRow reads the five cells of the row addressed by index. Missing cells
// read as empty.
func (r *run) readRow(ctx context.Context, index int) (loyalty.Transaction, error) {
	var txn loyalty.Transaction

	for _, f := range Fields() {
		el, err := r.query(ctx, fieldSelector(f, index))
		if err != nil {
			return txn, fmt.Errorf("row %d %s: %w", index, f, err)
		}
		if el == nil {
			continue
		}

		value, err := r.text(ctx, el)
		if err != nil {
			return txn, fmt.Errorf("row %d %s: %w", index, f, err)
		}
		f.assign(&txn, value)
	}

	return txn, nil
}
