package metrics

import (
	"database/sql"
	"log"

	"github.com/prometheus/client_golang/prometheus"
)

func registerDBMetrics(db *sql.DB, logger *log.Logger) {
	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "periods_active",
			Help: "Periods currently neither closed nor error",
		},
		func() float64 {
			return queryCount(db, logger, "SELECT COUNT(*) FROM periods WHERE status NOT IN ('closed','error')")
		},
	))

	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "temp_transactions_staged",
			Help: "Staged temp transactions awaiting review",
		},
		func() float64 {
			return queryCount(db, logger, "SELECT COUNT(*) FROM temp_transactions")
		},
	))
}

func queryCount(db *sql.DB, logger *log.Logger, query string) float64 {
	if db == nil {
		return 0
	}
	var count int64
	if err := db.QueryRow(query).Scan(&count); err != nil {
		if logger != nil {
			logger.Printf("metrics query failed: %v", err)
		}
		return 0
	}
	if count < 0 {
		return 0
	}
	return float64(count)
}
