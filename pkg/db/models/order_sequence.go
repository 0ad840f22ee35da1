package models

// OrderSequence is the per-year counter behind human-facing order numbers.
type OrderSequence struct {
	Year      int   `gorm:"column:year;primaryKey;autoIncrement:false"`
	LastValue int64 `gorm:"column:last_value;not null;default:0"`
}
