package model

// ==================== 内部菜单目录 ====================

// MenuCategory 菜单分类
// 菜单编辑器属于外围系统，核心只读这两张表用于向平台推送
type MenuCategory struct {
	BaseModel
	RestaurantID int64  `gorm:"index;not null"`
	Name         string `gorm:"size:255;not null"`
	Description  string `gorm:"type:text"`
	Rank         int    `gorm:"default:0"`
	IsActive     bool   `gorm:"default:true;index"`

	Products []MenuProduct `gorm:"foreignKey:CategoryID"`
}

func (MenuCategory) TableName() string {
	return "menu_categories"
}

// MenuProduct 菜单商品
type MenuProduct struct {
	BaseModel
	RestaurantID int64  `gorm:"index;not null"`
	CategoryID   int64  `gorm:"index;not null"`
	Name         string `gorm:"size:255;not null"`
	Description  string `gorm:"type:text"`
	ImageURL     string `gorm:"size:500"`

	// 价格（分为单位存储）
	PriceAmount int64
	Currency    string `gorm:"size:10;default:TRY"`

	// 售卖状态
	IsAvailable bool `gorm:"default:true;index"`
	IsActive    bool `gorm:"default:true;index"`
}

func (MenuProduct) TableName() string {
	return "menu_products"
}

// GetPrice 获取价格（元）
func (p *MenuProduct) GetPrice() float64 {
	return float64(p.PriceAmount) / 100
}
