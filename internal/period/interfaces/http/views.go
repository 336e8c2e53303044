package periodhttp

import (
	"time"

	period "settlement-periods/internal/period/domain"
)

type periodJSON struct {
	ID         int64  `json:"id"`
	Number     string `json:"number"`
	DateFrom   string `json:"date_from"`
	DateTo     string `json:"date_to"`
	FullPeriod string `json:"full_period"`
	Status     string `json:"status"`
	IsClosed   bool   `json:"is_closed"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

func toPeriodJSON(p *period.Period) periodJSON {
	return periodJSON{
		ID:         p.ID,
		Number:     p.Number,
		DateFrom:   p.DateFrom.UTC().Format(dateLayout),
		DateTo:     p.DateTo.UTC().Format(dateLayout),
		FullPeriod: p.FullPeriod(),
		Status:     string(p.Status),
		IsClosed:   p.IsClosed(),
		CreatedAt:  formatTime(p.CreatedAt),
		UpdatedAt:  formatTime(p.UpdatedAt),
	}
}

type statusLogJSON struct {
	ID         int64  `json:"id"`
	StatusFrom string `json:"status_from"`
	StatusTo   string `json:"status_to"`
	UserID     *int64 `json:"user_id"`
	CreatedAt  string `json:"created_at"`
}

func toStatusLogJSON(logs []period.StatusLog) []statusLogJSON {
	result := make([]statusLogJSON, 0, len(logs))
	for _, entry := range logs {
		result = append(result, statusLogJSON{
			ID:         entry.ID,
			StatusFrom: string(entry.StatusFrom),
			StatusTo:   string(entry.StatusTo),
			UserID:     entry.UserID,
			CreatedAt:  formatTime(entry.CreatedAt),
		})
	}
	return result
}

type transactionJSON struct {
	ID        int64   `json:"id"`
	PeriodID  int64   `json:"period_id"`
	AccountID int64   `json:"account_id"`
	Kind      string  `json:"kind"`
	Amount    float64 `json:"amount"`
	CreatedAt string  `json:"created_at"`
}

func toTransactionJSON(txs []period.Transaction) []transactionJSON {
	result := make([]transactionJSON, 0, len(txs))
	for _, tx := range txs {
		result = append(result, transactionJSON{
			ID: tx.ID, PeriodID: tx.PeriodID, AccountID: tx.AccountID,
			Kind: tx.Kind, Amount: tx.Amount, CreatedAt: formatTime(tx.CreatedAt),
		})
	}
	return result
}

func toTempTransactionJSON(txs []period.TempTransaction) []transactionJSON {
	result := make([]transactionJSON, 0, len(txs))
	for _, tx := range txs {
		result = append(result, transactionJSON{
			ID: tx.ID, PeriodID: tx.PeriodID, AccountID: tx.AccountID,
			Kind: tx.Kind, Amount: tx.Amount, CreatedAt: formatTime(tx.CreatedAt),
		})
	}
	return result
}

type propertyJSON struct {
	ID        int64   `json:"id,omitempty"`
	PeriodID  int64   `json:"period_id,omitempty"`
	AccountID int64   `json:"account_id"`
	Alias     string  `json:"alias"`
	Value     float64 `json:"value"`
	CreatedAt string  `json:"created_at,omitempty"`
}

func toPropertyJSON(props []period.Property) []propertyJSON {
	result := make([]propertyJSON, 0, len(props))
	for _, prop := range props {
		result = append(result, propertyJSON{
			ID: prop.ID, PeriodID: prop.PeriodID, AccountID: prop.AccountID,
			Alias: prop.Alias, Value: prop.Value, CreatedAt: formatTime(prop.CreatedAt),
		})
	}
	return result
}

func toTempPropertyJSON(props []period.TempProperty) []propertyJSON {
	result := make([]propertyJSON, 0, len(props))
	for _, prop := range props {
		result = append(result, propertyJSON{
			ID: prop.ID, PeriodID: prop.PeriodID, AccountID: prop.AccountID,
			Alias: prop.Alias, Value: prop.Value, CreatedAt: formatTime(prop.CreatedAt),
		})
	}
	return result
}

func toAccountPropertyJSON(props []period.AccountProperty) []propertyJSON {
	result := make([]propertyJSON, 0, len(props))
	for _, prop := range props {
		result = append(result, propertyJSON{
			AccountID: prop.AccountID, Alias: prop.Alias, Value: prop.Value,
		})
	}
	return result
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.UTC().Format(timeLayout)
}
