package service

import (
	"context"

	"go-gearstore/internal/model"
	"go-gearstore/internal/repository"
)

// LowStockThreshold marks active products with fewer available units.
const LowStockThreshold = 5

type DashboardStats struct {
	TotalProducts  int64                       `json:"total_products"`
	LowStock       int64                       `json:"low_stock_products"`
	AvailableUnits int64                       `json:"available_units"`
	SoldUnits      int64                       `json:"sold_units"`
	OrdersByStatus map[model.OrderStatus]int64 `json:"orders_by_status"`
	VerifiedCodes  int64                       `json:"verified_codes"`
}

type DashboardService interface {
	GetDashboardStats(ctx context.Context) (*DashboardStats, error)
}

type dashboardService struct {
	productRepo repository.ProductRepository
	unitRepo    repository.UnitRepository
	orderRepo   repository.OrderRepository
	codeRepo    repository.AuthCodeRepository
}

func NewDashboardService(
	productRepo repository.ProductRepository,
	unitRepo repository.UnitRepository,
	orderRepo repository.OrderRepository,
	codeRepo repository.AuthCodeRepository,
) DashboardService {
	return &dashboardService{
		productRepo: productRepo,
		unitRepo:    unitRepo,
		orderRepo:   orderRepo,
		codeRepo:    codeRepo,
	}
}

func (s *dashboardService) GetDashboardStats(ctx context.Context) (*DashboardStats, error) {
	var (
		stats DashboardStats
		err   error
	)

	if stats.TotalProducts, err = s.productRepo.Count(ctx); err != nil {
		return nil, storageError("count products", err)
	}
	if stats.LowStock, err = s.productRepo.CountLowStock(ctx, LowStockThreshold); err != nil {
		return nil, storageError("count low stock", err)
	}
	if stats.AvailableUnits, err = s.unitRepo.CountByStatus(ctx, model.UnitAvailable); err != nil {
		return nil, storageError("count units", err)
	}
	if stats.SoldUnits, err = s.unitRepo.CountByStatus(ctx, model.UnitSold); err != nil {
		return nil, storageError("count units", err)
	}
	if stats.OrdersByStatus, err = s.orderRepo.CountByStatus(ctx); err != nil {
		return nil, storageError("count orders", err)
	}
	if stats.VerifiedCodes, err = s.codeRepo.CountVerified(ctx); err != nil {
		return nil, storageError("count codes", err)
	}
	return &stats, nil
}
