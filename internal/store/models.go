package store

import "time"

// ReportRecord is one stored report.
type ReportRecord struct {
	ID          string    `gorm:"primaryKey;type:text"`
	Name        string    `gorm:"index;not null"`
	Format      string    `gorm:"not null"`
	RegionCount uint32    `gorm:"not null"`
	CreatedAt   time.Time `gorm:"index"`

	Regions []RegionRecord `gorm:"foreignKey:ReportID;constraint:OnDelete:CASCADE"`
}

// TableName pins the table name.
func (ReportRecord) TableName() string { return "reports" }

// RegionRecord is one region of a stored report. Seq keeps the original order.
type RegionRecord struct {
	ID         uint   `gorm:"primaryKey"`
	ReportID   string `gorm:"index:idx_region_order,priority:1;not null"`
	Seq        uint32 `gorm:"index:idx_region_order,priority:2;not null"`
	File       string `gorm:"not null"`
	FromLine   uint32
	FromColumn uint32
	ToLine     uint32
	ToColumn   uint32
	Statements uint32
	Executions uint32
}

// TableName pins the table name.
func (RegionRecord) TableName() string { return "regions" }
