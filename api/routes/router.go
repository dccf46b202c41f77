package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/partstrack-backend/api/controllers"
	"github.com/angelmondragon/partstrack-backend/api/middleware"
	"github.com/angelmondragon/partstrack-backend/internal/app"
	"github.com/angelmondragon/partstrack-backend/pkg/config"
	"github.com/angelmondragon/partstrack-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/partstrack-backend/pkg/redis"
)

// Deps are the infrastructure handles the router needs. Redis and Gatherer
// are optional.
type Deps struct {
	DB          controllers.Pinger
	Redis       controllers.Pinger
	Idempotency pkgredis.IdempotencyStore
	Gatherer    prometheus.Gatherer
	Clock       controllers.Clock
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Deps, svc *app.Services) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis))
	})
	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	maxUpload := cfg.Import.MaxUploadBytes()

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Actor(logg))
		r.Use(middleware.Idempotency(deps.Idempotency, logg))

		r.Route("/serials", func(r chi.Router) {
			r.Post("/", controllers.SerialCreate(svc.Serials, logg))
			r.Post("/bulk", controllers.SerialBulkCreate(svc.Serials, logg))
			r.Post("/generate", controllers.SerialGenerate(svc.Serials, logg))
			r.Get("/search", controllers.SerialSearch(svc.Serials, logg))
			r.Get("/number/{serialNumber}", controllers.SerialGetByNumber(svc.Serials, logg))
			r.Get("/exists/{serialNumber}", controllers.SerialExists(svc.Serials, logg))
			r.Get("/category/{category}", controllers.SerialsByCategory(svc.Serials, logg))
			r.Get("/{serialId}", controllers.SerialGet(svc.Serials, logg))
			r.Delete("/{serialId}", controllers.SerialDelete(svc.Serials, logg))
			r.Get("/{serialId}/history", controllers.SerialHistory(svc.Movements, logg))
			r.Patch("/{serialId}/payment", controllers.SerialUpdatePayment(svc.Categorization, logg))
			r.Patch("/{serialId}/context", controllers.SerialUpdateContext(svc.Categorization, logg))
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", controllers.CategoryList())
			r.Get("/schemas", controllers.CategorySchemas())
			r.Get("/summary", controllers.CategorySummary(svc.Categorization, logg))
			r.Post("/categorize", controllers.Categorize(svc.Categorization, logg))
			r.Post("/bulk", controllers.BulkCategorize(svc.Categorization, logg))
		})

		r.Route("/import", func(r chi.Router) {
			r.Post("/parse", controllers.ImportParse(svc.Ingestion, maxUpload, logg))
			r.Post("/validate", controllers.ImportValidate(svc.Ingestion, maxUpload, logg))
			r.Post("/excel", controllers.ImportExcel(svc.Ingestion, maxUpload, logg))
		})

		r.Route("/bills", func(r chi.Router) {
			r.Get("/", controllers.BillList(svc.Bills, logg))
			r.Post("/", controllers.BillCreate(svc.Bills, logg))
			r.Get("/voucher/{voucherNumber}", controllers.BillGetByVoucher(svc.Bills, logg))
			r.Get("/{billId}", controllers.BillGet(svc.Bills, logg))
			r.Delete("/{billId}", controllers.BillDelete(svc.Bills, logg))
			r.Get("/{billId}/serials", controllers.SerialsByBill(svc.Serials, logg))
			r.Post("/{billId}/recompute-total", controllers.BillRecomputeTotal(svc.Bills, logg))
		})

		r.Route("/master", func(r chi.Router) {
			r.Route("/parts", func(r chi.Router) {
				r.Get("/", controllers.PartList(svc.Parts, logg))
				r.Post("/", controllers.PartCreate(svc.Parts, logg))
				r.Get("/{partId}", controllers.PartGet(svc.Parts, logg))
				r.Patch("/{partId}", controllers.PartUpdate(svc.Parts, logg))
				r.Delete("/{partId}", controllers.PartDelete(svc.Parts, logg))
			})

			r.Route("/customers", func(r chi.Router) {
				r.Get("/", controllers.CustomerList(svc.Customers, logg))
				r.Post("/", controllers.CustomerCreate(svc.Customers, logg))
				r.Get("/lookup", controllers.CustomerLookup(svc.Customers, logg))
				r.Get("/{customerId}", controllers.CustomerGet(svc.Customers, logg))
			})

			r.Get("/suppliers", controllers.SupplierList(svc.Suppliers, logg))
		})

		r.Route("/reports", func(r chi.Router) {
			r.Get("/summary", controllers.ReportCategorySummary(svc.Reports, logg))
			r.Get("/in-stock", controllers.ReportInStock(svc.Reports, logg))
			r.Get("/spu", controllers.ReportSPU(svc.Reports, logg))
			r.Get("/valuation", controllers.ReportValuation(svc.Reports, logg))
		})

		r.Route("/dashboard", func(r chi.Router) {
			r.Get("/summary", controllers.DashboardSummary(svc.Reports, deps.Clock, logg))
			r.Get("/alerts", controllers.DashboardAlerts(svc.Reports, deps.Clock, logg))
			r.Get("/stats", controllers.DashboardStats(svc.Reports, deps.Clock, logg))
		})
	})

	return r
}
