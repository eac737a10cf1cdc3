package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go-gearstore/internal/model"
	"go-gearstore/internal/repository"
	"go-gearstore/internal/ws"
	"go-gearstore/pkg/validator"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// claimBatch is how many oldest available units are tried per round when
// claiming one for an order line.
const claimBatch = 5

// maxClaimRounds bounds the rounds spent on one order line before it is
// treated as out of stock.
const maxClaimRounds = 3

// Actor identifies who performs an admin action.
type Actor struct {
	ID    string
	Name  string
	Email string
}

type InventoryService interface {
	CreateUnit(ctx context.Context, req *CreateUnitRequest, actor Actor) (*model.InventoryUnit, error)
	ListUnits(ctx context.Context, filter repository.UnitFilter) ([]model.InventoryUnit, error)
	GetUnit(ctx context.Context, id uuid.UUID) (*model.InventoryUnit, error)
	ListOrderUnits(ctx context.Context, orderID uuid.UUID) ([]model.InventoryUnit, error)
	AssignUnit(ctx context.Context, tx *gorm.DB, productID, orderID uuid.UUID) (*model.InventoryUnit, error)
	UpdateUnitStatus(ctx context.Context, unitID uuid.UUID, req *UpdateUnitStatusRequest, actor Actor) (*model.InventoryUnit, error)
	PublishStock(ctx context.Context, productID uuid.UUID, action string, actor *Actor)
}

type CreateUnitRequest struct {
	ProductID         uuid.UUID `json:"product_id" validate:"uuid_required"`
	SerialNumber      string    `json:"serial_number" validate:"required,max=120"`
	SecurityCodeImage string    `json:"security_code_image" validate:"omitempty,url"`
	CertificateURL    string    `json:"certificate_url" validate:"omitempty,url"`
}

type UpdateUnitStatusRequest struct {
	Status  model.UnitStatus `json:"status" validate:"required"`
	OrderID *uuid.UUID       `json:"order_id"`
}

type inventoryService struct {
	productRepo repository.ProductRepository
	unitRepo    repository.UnitRepository
	db          *gorm.DB
	cache       *ProductCache
	wsHub       *ws.Hub
}

func NewInventoryService(pRepo repository.ProductRepository, uRepo repository.UnitRepository, db *gorm.DB, cache *ProductCache, hub *ws.Hub) InventoryService {
	return &inventoryService{
		productRepo: pRepo,
		unitRepo:    uRepo,
		db:          db,
		cache:       cache,
		wsHub:       hub,
	}
}

func (s *inventoryService) CreateUnit(ctx context.Context, req *CreateUnitRequest, actor Actor) (*model.InventoryUnit, error) {
	req.SerialNumber = strings.TrimSpace(req.SerialNumber)
	if err := validator.First(req); err != nil {
		return nil, validationError("%v", err)
	}

	var unit *model.InventoryUnit
	err := s.db.Transaction(func(tx *gorm.DB) error {
		// The product row lock serializes sequence numbers per product.
		product, err := s.productRepo.LockByID(ctx, tx, req.ProductID)
		if err != nil {
			return storageError("product", err)
		}

		exists, err := s.unitRepo.SerialExists(ctx, tx, req.SerialNumber)
		if err != nil {
			return storageError("check serial", err)
		}
		if exists {
			return validationError("serial number %q already exists", req.SerialNumber)
		}

		count, err := s.unitRepo.CountByProduct(ctx, tx, product.ID)
		if err != nil {
			return storageError("count units", err)
		}
		seq := int(count) + 1

		unit = &model.InventoryUnit{
			UnitCode:          fmt.Sprintf("%s_%d", product.UnitPrefix(), seq),
			Sequence:          seq,
			ProductID:         product.ID,
			SerialNumber:      req.SerialNumber,
			SecurityCodeImage: req.SecurityCodeImage,
			CertificateURL:    req.CertificateURL,
			Status:            model.UnitAvailable,
		}
		unit.CreatedBy = actor.ID
		unit.UpdatedBy = actor.ID

		if err := s.unitRepo.Create(ctx, tx, unit); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return validationError("serial number %q already exists", req.SerialNumber)
			}
			return storageError("create unit", err)
		}

		if _, err := s.productRepo.RecomputeStock(ctx, tx, product.ID); err != nil {
			return storageError("recompute stock", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.PublishStock(ctx, unit.ProductID, "unit_created", &actor)
	return unit, nil
}

func (s *inventoryService) ListUnits(ctx context.Context, filter repository.UnitFilter) ([]model.InventoryUnit, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, validationError("unknown unit status %q", *filter.Status)
	}
	units, err := s.unitRepo.List(ctx, filter)
	if err != nil {
		return nil, storageError("list units", err)
	}
	return units, nil
}

func (s *inventoryService) GetUnit(ctx context.Context, id uuid.UUID) (*model.InventoryUnit, error) {
	unit, err := s.unitRepo.FindByID(ctx, id)
	if err != nil {
		return nil, storageError("unit", err)
	}
	return unit, nil
}

// ListOrderUnits returns the units sold against an order, in sale order.
func (s *inventoryService) ListOrderUnits(ctx context.Context, orderID uuid.UUID) ([]model.InventoryUnit, error) {
	units, err := s.unitRepo.FindByOrder(ctx, orderID)
	if err != nil {
		return nil, storageError("list order units", err)
	}
	return units, nil
}

// AssignUnit claims the oldest available unit of a product for an order.
// Each claim is a conditional update, so two concurrent callers can never
// sell the same unit; a caller that loses a race moves on to the next unit
// and gives up with ErrOutOfStock after maxClaimRounds rounds.
// With a nil tx the claim runs in its own transaction and the stock change
// is published on commit. Otherwise publishing is left to the caller.
func (s *inventoryService) AssignUnit(ctx context.Context, tx *gorm.DB, productID, orderID uuid.UUID) (*model.InventoryUnit, error) {
	if tx == nil {
		var unit *model.InventoryUnit
		err := s.db.Transaction(func(tx *gorm.DB) error {
			var err error
			unit, err = s.assign(ctx, tx, productID, orderID)
			return err
		})
		if err != nil {
			return nil, err
		}
		s.PublishStock(ctx, productID, "unit_sold", nil)
		return unit, nil
	}
	return s.assign(ctx, tx, productID, orderID)
}

func (s *inventoryService) assign(ctx context.Context, tx *gorm.DB, productID, orderID uuid.UUID) (*model.InventoryUnit, error) {
	for round := 0; round < maxClaimRounds; round++ {
		candidates, err := s.unitRepo.OldestAvailable(ctx, tx, productID, claimBatch)
		if err != nil {
			return nil, storageError("find available unit", err)
		}
		if len(candidates) == 0 {
			return nil, ErrOutOfStock
		}

		now := time.Now()
		for i := range candidates {
			claimed, err := s.unitRepo.Claim(ctx, tx, candidates[i].ID, orderID, now)
			if err != nil {
				return nil, storageError("claim unit", err)
			}
			if !claimed {
				continue
			}

			if _, err := s.productRepo.RecomputeStock(ctx, tx, productID); err != nil {
				return nil, storageError("recompute stock", err)
			}

			unit := candidates[i]
			unit.Status = model.UnitSold
			unit.OrderID = &orderID
			unit.SoldAt = &now
			return &unit, nil
		}
	}
	return nil, ErrOutOfStock
}

func (s *inventoryService) UpdateUnitStatus(ctx context.Context, unitID uuid.UUID, req *UpdateUnitStatusRequest, actor Actor) (*model.InventoryUnit, error) {
	if !req.Status.Valid() {
		return nil, validationError("unknown unit status %q", req.Status)
	}
	if req.OrderID != nil && req.Status != model.UnitSold {
		return nil, validationError("order_id can only be set when a unit is sold")
	}

	var unit *model.InventoryUnit
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		unit, err = s.unitRepo.LockByID(ctx, tx, unitID)
		if err != nil {
			return storageError("unit", err)
		}

		if !unit.Status.CanBecome(req.Status) {
			return fmt.Errorf("%w: unit %s is %s and cannot become %s", ErrInvalidTransition, unit.UnitCode, unit.Status, req.Status)
		}
		if req.OrderID != nil && unit.OrderID != nil && *unit.OrderID != *req.OrderID {
			return fmt.Errorf("%w: unit %s already belongs to another order", ErrInvalidTransition, unit.UnitCode)
		}

		ok, err := s.unitRepo.Transition(ctx, tx, unit, req.Status, req.OrderID)
		if err != nil {
			return storageError("update unit status", err)
		}
		if !ok {
			return fmt.Errorf("%w: unit %s changed concurrently", ErrInvalidTransition, unit.UnitCode)
		}

		if _, err := s.productRepo.RecomputeStock(ctx, tx, unit.ProductID); err != nil {
			return storageError("recompute stock", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.PublishStock(ctx, unit.ProductID, "unit_status_changed", &actor)
	return s.GetUnit(ctx, unitID)
}

// PublishStock drops the cached product and tells connected clients about its
// current stock. Failures are logged only.
func (s *inventoryService) PublishStock(ctx context.Context, productID uuid.UUID, action string, actor *Actor) {
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return
	}
	s.cache.Invalidate(ctx, product.Slug)

	payload := map[string]interface{}{
		"type":   "stock_update",
		"action": action,
		"product": map[string]interface{}{
			"id":    product.ID,
			"slug":  product.Slug,
			"name":  product.Name,
			"stock": product.Stock,
		},
	}
	if actor != nil {
		payload["user"] = map[string]interface{}{
			"id":    actor.ID,
			"name":  actor.Name,
			"email": actor.Email,
		}
		payload["message"] = fmt.Sprintf("%s: %s now has %d in stock", actor.Name, product.Name, product.Stock)
	}
	s.wsHub.BroadcastJSON(payload)
}
