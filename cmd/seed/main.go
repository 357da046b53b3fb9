package main

import (
	"context"

	"github.com/bullion-next/internal/config"
	"github.com/bullion-next/internal/constants"
	"github.com/bullion-next/internal/logger"
	"github.com/bullion-next/internal/models"
	"github.com/bullion-next/internal/provider"
	"github.com/bullion-next/internal/service"

	"github.com/shopspring/decimal"
)

type seedBatch struct {
	ProductName string
	ProductLine string
	Prefix      string
	Quantity    int
	UnitWeight  string
}

// 演示数据：一个克重批次（单码）与一个常规批次（逐件）
var seedBatches = []seedBatch{
	{ProductName: "1g 金条", ProductLine: constants.ProductLineGram, Prefix: "DG", Quantity: 20, UnitWeight: "1"},
	{ProductName: "100g 金条", ProductLine: constants.ProductLineStandard, Prefix: "DS", Quantity: 3, UnitWeight: "100"},
}

var seedProducts = []service.CreateProductInput{
	{Name: "1oz 熊猫金币", Code: "DEMOCOIN01"},
	{Name: "1kg 银砖", Prefix: "DK"},
}

func main() {
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	container, err := provider.NewContainer(cfg)
	if err != nil {
		stdLog.Fatalf("Failed to build container: %v", err)
	}
	defer container.Close()

	ctx := context.Background()
	weights := map[string]string{"DEMOCOIN01": "31.103", "DK": "1000"}

	for _, batch := range seedBatches {
		state, err := container.SerialAllocator.State(ctx, batch.Prefix)
		if err != nil {
			stdLog.Printf("Failed to load state for %s: %v", batch.Prefix, err)
			continue
		}
		if state.TotalExisting > 0 {
			stdLog.Printf("Batch prefix already seeded: %s", batch.Prefix)
			continue
		}
		result, err := container.ProductService.CreateBatch(ctx, service.CreateBatchInput{
			ProductName: batch.ProductName,
			ProductLine: batch.ProductLine,
			Prefix:      batch.Prefix,
			Quantity:    batch.Quantity,
			UnitWeight:  decimal.RequireFromString(batch.UnitWeight),
		})
		if err != nil && result == nil {
			stdLog.Printf("Failed to create batch %s: %v", batch.Prefix, err)
			continue
		}
		if err != nil {
			stdLog.Printf("Batch %s created with artifact errors: %v", result.Batch.BatchNo, err)
			continue
		}
		stdLog.Printf("Created batch %s (%s - %s)", result.Batch.BatchNo, result.Batch.FirstSerial, result.Batch.LastSerial)
	}

	for _, input := range seedProducts {
		key := input.Code
		if key == "" {
			key = input.Prefix
		}
		if input.Code != "" {
			if _, err := container.ProductService.GetBySerial(input.Code); err == nil {
				stdLog.Printf("Product already exists: %s", input.Code)
				continue
			}
		} else if state, err := container.SerialAllocator.State(ctx, input.Prefix); err == nil && state.TotalExisting > 0 {
			stdLog.Printf("Product prefix already seeded: %s", input.Prefix)
			continue
		}
		input.WeightGrams = decimal.RequireFromString(weights[key])
		result, err := container.ProductService.CreateProduct(ctx, input)
		if err != nil && result == nil {
			stdLog.Printf("Failed to create product %s: %v", key, err)
			continue
		}
		if err != nil {
			stdLog.Printf("Product %s created with artifact error: %v", result.Product.SerialCode, err)
			continue
		}
		stdLog.Printf("Created product: %s", result.Product.SerialCode)
	}

	stdLog.Printf("Seed finished")
}
