package repository

// ProductListFilter 查询商品列表的过滤条件
type ProductListFilter struct {
	Page        int
	PageSize    int
	BatchID     uint
	Prefix      string
	ProductLine string
}

// BatchListFilter 查询批次列表的过滤条件
type BatchListFilter struct {
	Page     int
	PageSize int
	Prefix   string
}
