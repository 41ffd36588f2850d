package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// JobPosting 职位库主表
type JobPosting struct {
	JobID               string         `gorm:"type:char(36);primaryKey"`
	Title               string         `gorm:"type:varchar(255);not null"`
	Company             string         `gorm:"type:varchar(255);index:idx_job_postings_company"`
	Location            string         `gorm:"type:varchar(255)"`
	Remote              bool           `gorm:"default:false"`
	DescriptionText     string         `gorm:"type:text;not null"`
	RequiredSkillsJSON  datatypes.JSON `gorm:"type:json"` // string[]
	PreferredSkillsJSON datatypes.JSON `gorm:"type:json"` // string[]
	MinYears            int            `gorm:"default:0"`
	Education           string         `gorm:"type:varchar(100)"`
	SalaryMin           int            `gorm:"default:0"`
	SalaryMax           int            `gorm:"default:0"`
	Status              string         `gorm:"type:varchar(50);default:'ACTIVE';index:idx_job_postings_status"`
	CreatedAt           time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt           time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`
}

func (JobPosting) TableName() string {
	return "job_postings"
}

// RequiredSkills 反序列化必备技能清单，JSON损坏时返回空
func (j *JobPosting) RequiredSkills() []string {
	return unmarshalStrings(j.RequiredSkillsJSON)
}

// PreferredSkills 反序列化加分技能清单
func (j *JobPosting) PreferredSkills() []string {
	return unmarshalStrings(j.PreferredSkillsJSON)
}

func unmarshalStrings(data datatypes.JSON) []string {
	if len(data) == 0 {
		return nil
	}
	var out []string
	_ = json.Unmarshal(data, &out)
	return out
}

// ApplicationEvent 用户求职行为事件表，仪表盘聚合的数据源
type ApplicationEvent struct {
	EventID    uint64         `gorm:"primaryKey;autoIncrement"`
	UserID     string         `gorm:"type:varchar(64);not null;index:idx_app_events_user_created,priority:1"`
	JobID      *string        `gorm:"type:char(36);index:idx_app_events_job_id"`
	EventType  string         `gorm:"type:varchar(50);not null;index:idx_app_events_type"` // applied/interview/offer/rejected/viewed
	Source     string         `gorm:"type:varchar(100)"`
	DetailJSON datatypes.JSON `gorm:"type:json"`
	CreatedAt  time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);index:idx_app_events_user_created,priority:2"`

	Job *JobPosting `gorm:"foreignKey:JobID;references:JobID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
}

func (ApplicationEvent) TableName() string {
	return "application_events"
}

// 申请事件类型
const (
	EventApplied   = "applied"
	EventInterview = "interview"
	EventOffer     = "offer"
	EventRejected  = "rejected"
	EventViewed    = "viewed"
)
