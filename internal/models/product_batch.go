package models

import "time"

// ProductBatch 批次表，qr_mode 在创建时确定且不再修改
type ProductBatch struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	BatchNo     string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"batch_no"`
	ProductName string    `gorm:"type:varchar(255);not null" json:"product_name"`
	ProductLine string    `gorm:"type:varchar(32);not null" json:"product_line"`
	Prefix      string    `gorm:"type:varchar(8);index" json:"prefix"`
	Quantity    int       `gorm:"not null" json:"quantity"`
	UnitWeight  Weight    `gorm:"type:decimal(20,3);not null;default:0" json:"unit_weight"`
	QRMode      string    `gorm:"type:varchar(16);not null" json:"qr_mode"`
	FirstSerial string    `gorm:"type:varchar(64)" json:"first_serial"`
	LastSerial  string    `gorm:"type:varchar(64)" json:"last_serial"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Products []Product `gorm:"foreignKey:BatchID" json:"products,omitempty"`
}

// TableName 指定表名
func (ProductBatch) TableName() string {
	return "product_batches"
}
