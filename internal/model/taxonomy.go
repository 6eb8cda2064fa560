package model

type Genre struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:64;not null;uniqueIndex" json:"name"`
}

func (Genre) TableName() string {
	return "genres"
}

// EndingType is a reference value such as "Twist" or "Cliffhanger".
type EndingType struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:64;not null;uniqueIndex" json:"name"`
}

func (EndingType) TableName() string {
	return "types"
}
