package readmodel

// ProductReadModel is a catalog product with its live stock
type ProductReadModel struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	EnglishName string `json:"englishName,omitempty"`
	KoreanName  string `json:"koreanName,omitempty"`
	Description string `json:"description"`
	Price       int    `json:"price"`
	Image       string `json:"image"`
	Category    string `json:"category"`
	CharacterID string `json:"characterId,omitempty"`
	Featured    bool   `json:"featured"`
	Stock       int    `json:"stock"`
	InStock     bool   `json:"inStock"`
	LowStock    bool   `json:"lowStock"`
}

// InventoryReadModel is one row of the admin inventory view
type InventoryReadModel struct {
	ProductID  string `json:"productId"`
	Name       string `json:"name"`
	Stock      int    `json:"stock"`
	LowStock   bool   `json:"lowStock"`
	OutOfStock bool   `json:"outOfStock"`
}

type Overview struct {
	TotalUsers        int     `json:"totalUsers"`
	ChannelAddedUsers int     `json:"channelAddedUsers"`
	ChannelAddRate    float64 `json:"channelAddRate"`
	TodayUsers        int     `json:"todayUsers"`
}

// CouponStats covers issued coupons only; catalog coupons are excluded
type CouponStats struct {
	Total     int     `json:"total"`
	Used      int     `json:"used"`
	Unused    int     `json:"unused"`
	UsageRate float64 `json:"usageRate"`
}

type Referrer struct {
	ID            string `json:"id" db:"id"`
	Name          string `json:"name" db:"name"`
	ReferralCount int    `json:"referralCount" db:"referral_count"`
	ProfileImage  string `json:"profileImage,omitempty" db:"profile_image"`
}

type ReferralStats struct {
	Total        int        `json:"total"`
	TopReferrers []Referrer `json:"topReferrers"`
}

type DailySignup struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type OrderStatusTotal struct {
	Status  string `json:"status" db:"status"`
	Count   int    `json:"count" db:"order_count"`
	Revenue int    `json:"revenue" db:"revenue"`
}

type OrderStats struct {
	Count    int                `json:"count"`
	Revenue  int                `json:"revenue"`
	ByStatus []OrderStatusTotal `json:"byStatus"`
}

// AdminStats is the admin dashboard payload
type AdminStats struct {
	Overview     Overview      `json:"overview"`
	Coupons      CouponStats   `json:"coupons"`
	Referrals    ReferralStats `json:"referrals"`
	DailySignups []DailySignup `json:"dailySignups"`
	Orders       OrderStats    `json:"orders"`
}
