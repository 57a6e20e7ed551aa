package repository

import (
	"context"

	"parts-finder/internal/domain"

	"github.com/google/uuid"
)

// DemoItems returns the demonstration inventory shown on first start
func DemoItems() []domain.InventoryItem {
	return []domain.InventoryItem{
		{
			ID:          uuid.NewString(),
			PartNumber:  "58101-2S000",
			Name:        "فحمات فرامل أمامية",
			Origin:      domain.OriginKorean,
			Price:       120,
			Quantity:    15,
			Description: "تناسب هيونداي توسان 2011-2015",
		},
		{
			ID:          uuid.NewString(),
			PartNumber:  "12341-RCA-A00",
			Name:        "وجه غطاء بلوف",
			Origin:      domain.OriginAmerican,
			Price:       45,
			Quantity:    4,
			Description: "جودة عالية مطابقة للأصل",
		},
		{
			ID:          uuid.NewString(),
			PartNumber:  "CN-LIGHT-22",
			Name:        "شمعة أمامية يمين",
			Origin:      domain.OriginChinese,
			Price:       450,
			Quantity:    2,
			Description: "جيلي كولراي 2023 - ليد كامل",
		},
		{
			ID:          uuid.NewString(),
			PartNumber:  "AC-FILT-99",
			Name:        "فلتر مكيف",
			Origin:      domain.OriginKorean,
			Price:       35,
			Quantity:    100,
			Description: "كيا سبورتاج / هيونداي النترا",
		},
	}
}

// SeedDemo fills an empty repository with the demonstration inventory
func SeedDemo(ctx context.Context, repo InventoryRepository) error {
	count, err := repo.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	_, err = repo.Append(ctx, DemoItems())
	return err
}
