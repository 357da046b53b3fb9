package repository

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/bullion-next/internal/constants"
	"github.com/bullion-next/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := models.Migrate(db); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	return db
}

func createSerialProduct(t *testing.T, repo *GormProductRepository, code, prefix string, number int) *models.Product {
	t.Helper()
	product := &models.Product{
		Name:         "1oz Gold Bar",
		ProductLine:  constants.ProductLineStandard,
		SerialCode:   code,
		Prefix:       prefix,
		SerialNumber: number,
		WeightGrams:  models.NewWeight(decimal.RequireFromString("31.103")),
		UnitCount:    1,
	}
	if err := repo.Create(product); err != nil {
		t.Fatalf("create product %s failed: %v", code, err)
	}
	return product
}

func TestScanSerialPrefix(t *testing.T) {
	repo := NewProductRepository(openTestDB(t))
	createSerialProduct(t, repo, "SKN000001", "SKN", 1)
	createSerialProduct(t, repo, "SKN000003", "SKN", 3)
	createSerialProduct(t, repo, "skn000009", "", 0)
	createSerialProduct(t, repo, "SKA000001", "SKA", 1)
	createSerialProduct(t, repo, "SKN000012", "", 0)
	createSerialProduct(t, repo, "SKNX00001", "", 0)
	createSerialProduct(t, repo, "000777", "", 0)

	scan, err := repo.ScanSerialPrefix("SKN")
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if scan.MaxNumber != 3 || scan.Count != 2 {
		t.Fatalf("want aggregate max 3 count 2 got %+v", scan)
	}
	if len(scan.Candidates) != 1 || scan.Candidates[0] != "SKN000012" {
		t.Fatalf("want candidates [SKN000012] got %v", scan.Candidates)
	}

	empty, err := repo.ScanSerialPrefix("")
	if err != nil {
		t.Fatalf("scan empty prefix failed: %v", err)
	}
	if empty.Count != 0 || len(empty.Candidates) != 1 || empty.Candidates[0] != "000777" {
		t.Fatalf("empty prefix should only consider digit codes, got %+v", empty)
	}
}

func TestCreateDuplicateSerialReturnsDuplicatedKey(t *testing.T) {
	repo := NewProductRepository(openTestDB(t))
	createSerialProduct(t, repo, "SKA000001", "SKA", 1)
	err := repo.Create(&models.Product{
		Name:        "dup",
		ProductLine: constants.ProductLineStandard,
		SerialCode:  "SKA000001",
	})
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Fatalf("want gorm.ErrDuplicatedKey got %v", err)
	}
}

func TestDeleteBySerialIsHardDelete(t *testing.T) {
	repo := NewProductRepository(openTestDB(t))
	createSerialProduct(t, repo, "SKA000001", "SKA", 1)

	affected, err := repo.DeleteBySerial("SKA000001")
	if err != nil || affected != 1 {
		t.Fatalf("delete failed: affected=%d err=%v", affected, err)
	}
	exists, err := repo.ExistsSerial("SKA000001")
	if err != nil || exists {
		t.Fatalf("serial should be free after delete, exists=%v err=%v", exists, err)
	}
	createSerialProduct(t, repo, "SKA000001", "SKA", 1)
}

func TestGetBySerialMissingReturnsNil(t *testing.T) {
	repo := NewProductRepository(openTestDB(t))
	product, err := repo.GetBySerial("NOPE01")
	if err != nil || product != nil {
		t.Fatalf("want nil,nil got %v,%v", product, err)
	}
}

func TestListByBatchAndUpdateQR(t *testing.T) {
	db := openTestDB(t)
	repo := NewProductRepository(db)
	batchRepo := NewProductBatchRepository(db)

	batch := &models.ProductBatch{
		BatchNo:     "B-1",
		ProductName: "Kilo Bar",
		ProductLine: constants.ProductLineStandard,
		Prefix:      "KB",
		Quantity:    2,
		UnitWeight:  models.NewWeight(decimal.NewFromInt(1000)),
		QRMode:      constants.QRModePerUnit,
	}
	if err := batchRepo.Create(batch); err != nil {
		t.Fatalf("create batch failed: %v", err)
	}
	products := []models.Product{
		{Name: "Kilo Bar", ProductLine: constants.ProductLineStandard, SerialCode: "KB000002", Prefix: "KB", SerialNumber: 2, BatchID: &batch.ID},
		{Name: "Kilo Bar", ProductLine: constants.ProductLineStandard, SerialCode: "KB000001", Prefix: "KB", SerialNumber: 1, BatchID: &batch.ID},
	}
	if err := repo.CreateInBatches(products); err != nil {
		t.Fatalf("create in batches failed: %v", err)
	}
	batches, batchTotal, err := batchRepo.List(BatchListFilter{Prefix: "KB", Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("list batches failed: %v", err)
	}
	if batchTotal != 1 || len(batches) != 1 || batches[0].ID != batch.ID {
		t.Fatalf("want one KB batch got total=%d rows=%+v", batchTotal, batches)
	}

	listed, err := repo.ListByBatch(batch.ID)
	if err != nil {
		t.Fatalf("list by batch failed: %v", err)
	}
	if len(listed) != 2 || listed[0].SerialCode != "KB000001" {
		t.Fatalf("unexpected batch products: %+v", listed)
	}

	if err := repo.UpdateQR(listed[0].ID, "/qr/KB000001.png", constants.StorageModeLocal); err != nil {
		t.Fatalf("update qr failed: %v", err)
	}
	got, err := repo.GetBySerial("KB000001")
	if err != nil || got == nil {
		t.Fatalf("reload product failed: %v", err)
	}
	if got.QRImageURL != "/qr/KB000001.png" || got.QRStorageMode != constants.StorageModeLocal {
		t.Fatalf("qr fields not updated: %+v", got)
	}

	page, total, err := repo.List(ProductListFilter{BatchID: batch.ID, Page: 2, PageSize: 1})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 2 || len(page) != 1 || page[0].SerialCode != "KB000002" {
		t.Fatalf("unexpected page: total=%d items=%+v", total, page)
	}

	reloaded, err := batchRepo.GetByID(batch.ID)
	if err != nil || reloaded == nil {
		t.Fatalf("reload batch failed: %v", err)
	}
	if reloaded.FirstSerial != "KB000001" || reloaded.LastSerial != "KB000002" {
		t.Fatalf("unexpected serial range: %+v", reloaded)
	}
}
