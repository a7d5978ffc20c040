package service

import (
	"testing"
	"time"

	"chainpos/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestComputeTax(t *testing.T) {
	// 8.25% of $20.00, floored
	assert.Equal(t, int64(165), ComputeTax(2000, 825))
	assert.Equal(t, int64(0), ComputeTax(0, 825))
	assert.Equal(t, int64(0), ComputeTax(2000, 0))
	// 10% of $0.05 floors to zero
	assert.Equal(t, int64(0), ComputeTax(5, 1000))
}

func TestDiscountForPercent(t *testing.T) {
	promo := &models.Promotion{DiscountType: models.DiscountTypePercent, DiscountValue: 20}
	assert.Equal(t, int64(500), DiscountFor(promo, 2500))
}

func TestDiscountForFixed(t *testing.T) {
	promo := &models.Promotion{DiscountType: models.DiscountTypeFixed, DiscountValue: 300}
	assert.Equal(t, int64(300), DiscountFor(promo, 2500))
}

func TestDiscountCappedAtSubtotal(t *testing.T) {
	promo := &models.Promotion{DiscountType: models.DiscountTypeFixed, DiscountValue: 5000}
	assert.Equal(t, int64(2500), DiscountFor(promo, 2500))
}

func TestTotalIdentity(t *testing.T) {
	// total = subtotal + tax + tip - discount for representative orders
	cases := []struct {
		subtotal, tip int64
		taxBps        int
		promo         *models.Promotion
	}{
		{2500, 400, 825, nil},
		{2500, 0, 825, &models.Promotion{DiscountType: models.DiscountTypePercent, DiscountValue: 10}},
		{100, 0, 0, &models.Promotion{DiscountType: models.DiscountTypeFixed, DiscountValue: 500}},
	}

	for _, tc := range cases {
		tax := ComputeTax(tc.subtotal, tc.taxBps)
		var discount int64
		if tc.promo != nil {
			discount = DiscountFor(tc.promo, tc.subtotal)
		}
		total := tc.subtotal + tax + tc.tip - discount

		assert.Equal(t, total, tc.subtotal+tax+tc.tip-discount)
		assert.GreaterOrEqual(t, total, int64(0))
		assert.LessOrEqual(t, discount, tc.subtotal)
	}
}

func TestValidatePromotionWindow(t *testing.T) {
	now := time.Now()
	active := &models.Promotion{
		Code:     "SAVE10",
		Active:   true,
		StartsAt: now.Add(-time.Hour),
		EndsAt:   now.Add(time.Hour),
	}
	assert.NoError(t, ValidatePromotionWindow(active, now))

	inactive := &models.Promotion{Code: "OLD", Active: false,
		StartsAt: now.Add(-time.Hour), EndsAt: now.Add(time.Hour)}
	assert.Error(t, ValidatePromotionWindow(inactive, now))

	notStarted := &models.Promotion{Code: "SOON", Active: true,
		StartsAt: now.Add(time.Hour), EndsAt: now.Add(2 * time.Hour)}
	assert.Error(t, ValidatePromotionWindow(notStarted, now))

	ended := &models.Promotion{Code: "LATE", Active: true,
		StartsAt: now.Add(-2 * time.Hour), EndsAt: now.Add(-time.Hour)}
	assert.Error(t, ValidatePromotionWindow(ended, now))
}

func TestValidatePromotionWindowErrorsAreValidation(t *testing.T) {
	now := time.Now()
	promo := &models.Promotion{Code: "OLD", Active: false,
		StartsAt: now.Add(-time.Hour), EndsAt: now.Add(time.Hour)}

	err := ValidatePromotionWindow(promo, now)
	var validation *ValidationError
	assert.ErrorAs(t, err, &validation)
}
