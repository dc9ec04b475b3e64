package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/batiprix/batiprix/internal/platform/httpx"
)

// DashboardStats summarises the referential for the landing view.
type DashboardStats struct {
	TotalProducts   int            `json:"total_produits"`
	TotalSuppliers  int            `json:"total_fournisseurs"`
	TotalCategories int            `json:"total_categories"`
	AveragePriceHT  float64        `json:"prix_moyen_ht"`
	RecentChanges   []RecentChange `json:"modifications_recentes"`
}

// RecentChange is one line of the latest price-history entries shown on the
// dashboard.
type RecentChange struct {
	ProductName string    `json:"nom_produit"`
	Supplier    string    `json:"fournisseur"`
	OldPriceHT  *float64  `json:"prix_ht_ancien"`
	NewPriceHT  float64   `json:"prix_ht_nouveau"`
	ChangedBy   *string   `json:"modifie_par"`
	ChangedAt   time.Time `json:"date_modification"`
}

// DashboardHandler serves aggregate counts over the referential plus the most
// recent price-history entries.
func DashboardHandler(logger *slog.Logger, pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var stats DashboardStats
		err := pool.QueryRow(r.Context(), `SELECT
			(SELECT COUNT(*) FROM referentiel.produits_master WHERE actif = TRUE),
			(SELECT COUNT(*) FROM prix.fournisseurs WHERE actif = TRUE),
			(SELECT COUNT(*) FROM referentiel.categories),
			COALESCE((SELECT AVG(prix_ht) FROM prix.prix_fournisseurs WHERE actif = TRUE), 0)`).
			Scan(&stats.TotalProducts, &stats.TotalSuppliers, &stats.TotalCategories, &stats.AveragePriceHT)
		if err != nil {
			logger.Error("dashboard stats failed", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, httpx.CodeStorage, "Internal Error", "")
			return
		}

		rows, err := pool.Query(r.Context(), `SELECT pm.nom, f.nom, h.prix_ht_ancien, h.prix_ht_nouveau, h.modifie_par, h.date_modification
			FROM prix.historique_prix h
			JOIN prix.prix_fournisseurs pf ON pf.id = h.prix_fournisseur_id
			JOIN referentiel.produits_master pm ON pm.id = pf.produit_master_id
			JOIN prix.fournisseurs f ON f.id = pf.fournisseur_id
			ORDER BY h.date_modification DESC
			LIMIT 10`)
		if err != nil {
			logger.Error("dashboard recent changes failed", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, httpx.CodeStorage, "Internal Error", "")
			return
		}
		defer rows.Close()

		stats.RecentChanges = []RecentChange{}
		for rows.Next() {
			var c RecentChange
			if err := rows.Scan(&c.ProductName, &c.Supplier, &c.OldPriceHT, &c.NewPriceHT, &c.ChangedBy, &c.ChangedAt); err != nil {
				logger.Error("dashboard recent changes failed", slog.Any("error", err))
				httpx.Problem(w, http.StatusInternalServerError, httpx.CodeStorage, "Internal Error", "")
				return
			}
			stats.RecentChanges = append(stats.RecentChanges, c)
		}
		if err := rows.Err(); err != nil {
			logger.Error("dashboard recent changes failed", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, httpx.CodeStorage, "Internal Error", "")
			return
		}
		httpx.JSON(w, http.StatusOK, stats)
	}
}
