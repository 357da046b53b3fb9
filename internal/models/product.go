package models

import (
	"time"
)

// Product 实物商品表（一个序列号一行）。
// 硬删除：删除后同一序列号可以重新建档。
type Product struct {
	ID            uint      `gorm:"primarykey" json:"id"`                                      // 主键
	Name          string    `gorm:"type:varchar(255);not null" json:"name"`                    // 商品名称
	ProductLine   string    `gorm:"type:varchar(32);not null;index" json:"product_line"`       // 产品线
	SerialCode    string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"serial_code"`  // 序列号
	Prefix        string    `gorm:"type:varchar(8);index" json:"prefix"`                       // 序列号前缀（显式序列号为空）
	SerialNumber  int       `gorm:"not null;default:0" json:"serial_number"`                   // 前缀之后的序号
	WeightGrams   Weight    `gorm:"type:decimal(20,3);not null;default:0" json:"weight_grams"` // 单位重量（克）
	UnitCount     int       `gorm:"not null;default:1" json:"unit_count"`                      // 该序列号覆盖的实物数量
	BatchID       *uint     `gorm:"index" json:"batch_id,omitempty"`                           // 所属批次
	VerifyURL     string    `gorm:"type:varchar(512)" json:"verify_url"`                       // 二维码内容
	QRImageURL    string    `gorm:"type:varchar(512)" json:"qr_image_url"`                     // 二维码图片地址
	QRStorageMode string    `gorm:"type:varchar(20)" json:"qr_storage_mode"`                   // LOCAL / OBJECT_STORE，空表示尚未存储成功
	CreatedAt     time.Time `gorm:"index" json:"created_at"`                                   // 创建时间
	UpdatedAt     time.Time `json:"updated_at"`                                                // 更新时间
}

// TableName 指定表名
func (Product) TableName() string {
	return "products"
}
