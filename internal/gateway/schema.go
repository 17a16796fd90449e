package gateway

// LoginRequest はログインのリクエストボディ。JSONとフォームのどちらも受け付ける。
// 必須項目はキーの存在だけを確認し、空文字列はそのまま教育サーバーに渡す。
type LoginRequest struct {
	Username *string `json:"username" form:"username" binding:"required"`
	Password *string `json:"password" form:"password" binding:"required"`
}

// CropYearCreate は作物年度の作成リクエスト。
type CropYearCreate struct {
	CropYearName *string `json:"crop_year_name" binding:"required"`
}

// ProvinceCreate は州の作成リクエスト。
type ProvinceCreate struct {
	Province *string `json:"province" binding:"required"`
}

// FarmerCreate は農家の作成リクエスト。
type FarmerCreate struct {
	NationalID *string `json:"national_id" binding:"required"`
	FarmerUpdate
}

// FarmerUpdate は農家の更新リクエスト。国民IDはパスで指定する。
// 各項目はnullを受け付けないが、空文字列は受け付けて転送する。
type FarmerUpdate struct {
	FirstName    *string `json:"first_name" binding:"required"`
	LastName     *string `json:"last_name" binding:"required"`
	FullName     *string `json:"full_name" binding:"required"`
	FatherName   *string `json:"father_name" binding:"required"`
	PhoneNumber  *string `json:"phone_number" binding:"required"`
	ShebaNumber1 *string `json:"sheba_number_1" binding:"required"`
	ShebaNumber2 *string `json:"sheba_number_2" binding:"required"`
	CardNumber   *string `json:"card_number" binding:"required"`
	Address      *string `json:"address" binding:"required"`
}

// UserCreate は管理者によるユーザー作成リクエスト。
type UserCreate struct {
	Username    string  `json:"username" binding:"required,min=3,max=50"`
	Password    string  `json:"password" binding:"required,min=6"`
	Fullname    string  `json:"fullname" binding:"required,min=2"`
	Email       string  `json:"email" binding:"required,email"`
	Disabled    bool    `json:"disabled"`
	RoleID      int     `json:"role_id"`
	PhoneNumber *string `json:"phone_number"`
}

// UserUpdate はユーザーの部分更新リクエスト。指定されなかったフィールドは送信しない。
type UserUpdate struct {
	Username    *string `json:"username,omitempty" binding:"omitempty,min=3,max=50"`
	Password    *string `json:"password,omitempty" binding:"omitempty,min=6"`
	Fullname    *string `json:"fullname,omitempty" binding:"omitempty,min=2"`
	Email       *string `json:"email,omitempty" binding:"omitempty,email"`
	PhoneNumber *string `json:"phone_number,omitempty"`
	RoleID      *int    `json:"role_id,omitempty"`
	Disabled    *bool   `json:"disabled,omitempty"`
}

// UserListQuery はユーザー一覧のページング指定。
type UserListQuery struct {
	Page int `form:"page,default=1" binding:"min=1"`
	Size int `form:"size,default=50" binding:"min=1"`
}
