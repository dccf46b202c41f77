// Package app wires repositories and services from infrastructure clients.
// The API server and the importer CLI share it.
package app

import (
	"errors"
	"fmt"

	"github.com/angelmondragon/partstrack-backend/internal/bills"
	"github.com/angelmondragon/partstrack-backend/internal/categorization"
	"github.com/angelmondragon/partstrack-backend/internal/customers"
	"github.com/angelmondragon/partstrack-backend/internal/ingestion"
	"github.com/angelmondragon/partstrack-backend/internal/movements"
	"github.com/angelmondragon/partstrack-backend/internal/parts"
	"github.com/angelmondragon/partstrack-backend/internal/reports"
	"github.com/angelmondragon/partstrack-backend/internal/serials"
	"github.com/angelmondragon/partstrack-backend/internal/suppliers"
	"github.com/angelmondragon/partstrack-backend/pkg/config"
	"github.com/angelmondragon/partstrack-backend/pkg/db"
	"github.com/angelmondragon/partstrack-backend/pkg/logger"
	"github.com/angelmondragon/partstrack-backend/pkg/metrics"
	"github.com/angelmondragon/partstrack-backend/pkg/redis"
)

type ServiceParams struct {
	Config  *config.Config
	Logger  *logger.Logger
	DB      *db.Client
	Locker  redis.Locker
	Metrics *metrics.InventoryMetrics
}

// Services is the full set of domain services.
type Services struct {
	Serials        serials.Service
	Movements      movements.Service
	Categorization categorization.Service
	Ingestion      ingestion.Service
	Bills          bills.Service
	Parts          parts.Service
	Customers      customers.Service
	Suppliers      suppliers.Service
	Reports        reports.Service
}

func NewServices(params ServiceParams) (*Services, error) {
	if params.Config == nil {
		return nil, errors.New("config is required")
	}
	if params.DB == nil {
		return nil, errors.New("database client is required")
	}
	if params.Logger == nil {
		params.Logger = logger.Nop()
	}
	if params.Locker == nil {
		params.Locker = redis.NopLocker{}
	}

	conn := params.DB.DB()
	billRepo := bills.NewRepository(conn)
	supplierRepo := suppliers.NewRepository(conn)
	partRepo := parts.NewRepository(conn)
	customerRepo := customers.NewRepository(conn)
	serialRepo := serials.NewRepository(conn)
	ledgerRepo := movements.NewRepository(conn)

	out := &Services{}
	var err error
	if out.Movements, err = movements.NewService(ledgerRepo, params.Logger); err != nil {
		return nil, fmt.Errorf("movements service: %w", err)
	}
	if out.Suppliers, err = suppliers.NewService(supplierRepo); err != nil {
		return nil, fmt.Errorf("suppliers service: %w", err)
	}
	if out.Parts, err = parts.NewService(partRepo); err != nil {
		return nil, fmt.Errorf("parts service: %w", err)
	}
	if out.Customers, err = customers.NewService(customerRepo); err != nil {
		return nil, fmt.Errorf("customers service: %w", err)
	}
	if out.Bills, err = bills.NewService(params.DB, billRepo, supplierRepo); err != nil {
		return nil, fmt.Errorf("bills service: %w", err)
	}
	if out.Serials, err = serials.NewService(params.DB, serialRepo, ledgerRepo, partRepo, billRepo, params.Metrics, params.Logger); err != nil {
		return nil, fmt.Errorf("serials service: %w", err)
	}
	if out.Categorization, err = categorization.NewService(params.DB, serialRepo, ledgerRepo, params.Metrics, params.Logger); err != nil {
		return nil, fmt.Errorf("categorization service: %w", err)
	}
	out.Ingestion, err = ingestion.NewService(ingestion.Deps{
		Tx:        params.DB,
		Bills:     billRepo,
		Suppliers: supplierRepo,
		Parts:     partRepo,
		Serials:   serialRepo,
		Movements: ledgerRepo,
		Locker:    params.Locker,
		LockTTL:   params.Config.Import.LockTTL,
		Parser:    ingestion.Parser{SheetIndex: params.Config.Import.SheetIndex},
		Metrics:   params.Metrics,
		Logger:    params.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("ingestion service: %w", err)
	}
	if out.Reports, err = reports.NewService(reports.NewRepository(conn), serialRepo, params.Config.Alerts, params.Logger); err != nil {
		return nil, fmt.Errorf("reports service: %w", err)
	}
	return out, nil
}
