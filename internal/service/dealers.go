package service

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"sales-backend/internal/models"
)

// DealerService is reference-data CRUD. The only rule it owns is
// protect-on-delete while orders reference the dealer.
type DealerService struct {
	db *gorm.DB
}

func NewDealerService(db *gorm.DB) *DealerService {
	return &DealerService{db: db}
}

type DealerInput struct {
	Name    string
	Email   string
	Phone   string
	Address string
}

func (s *DealerService) Create(ctx context.Context, input DealerInput) (*models.Dealer, error) {
	if err := validateDealerInput(input); err != nil {
		return nil, err
	}

	dealer := models.Dealer{
		Name:    input.Name,
		Email:   input.Email,
		Phone:   input.Phone,
		Address: input.Address,
	}
	if err := s.db.WithContext(ctx).Create(&dealer).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, &ValidationError{Field: "email", Message: "must be unique"}
		}
		return nil, err
	}
	return &dealer, nil
}

func (s *DealerService) Get(ctx context.Context, id uint) (*models.Dealer, error) {
	var dealer models.Dealer
	err := s.db.WithContext(ctx).First(&dealer, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &dealer, nil
}

func (s *DealerService) List(ctx context.Context) ([]models.Dealer, error) {
	var dealers []models.Dealer
	if err := s.db.WithContext(ctx).Order("id").Find(&dealers).Error; err != nil {
		return nil, err
	}
	return dealers, nil
}

func (s *DealerService) Update(ctx context.Context, id uint, input DealerInput) (*models.Dealer, error) {
	if err := validateDealerInput(input); err != nil {
		return nil, err
	}

	dealer, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	dealer.Name = input.Name
	dealer.Email = input.Email
	dealer.Phone = input.Phone
	dealer.Address = input.Address

	if err := s.db.WithContext(ctx).Save(dealer).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, &ValidationError{Field: "email", Message: "must be unique"}
		}
		return nil, err
	}
	return dealer, nil
}

func (s *DealerService) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var dealer models.Dealer
		if err := tx.First(&dealer, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		var orders int64
		if err := tx.Model(&models.Order{}).Where("dealer_id = ?", id).Count(&orders).Error; err != nil {
			return err
		}
		if orders > 0 {
			return ErrProtectedReference
		}

		return tx.Delete(&dealer).Error
	})
}

func validateDealerInput(input DealerInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return &ValidationError{Field: "name", Message: "is required"}
	}
	if !strings.Contains(input.Email, "@") {
		return &ValidationError{Field: "email", Message: "must be a valid email address"}
	}
	return nil
}
