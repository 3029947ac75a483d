package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type Status string

const (
	StatusWaiting Status = "waiting"
	StatusGrading Status = "grading"
	StatusAccept  Status = "accept"
	StatusReject  Status = "reject"
)

// IntList stores per-subtask scores as a JSON array.
type IntList []int

func (l IntList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]int(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *IntList) Scan(value interface{}) error {
	var bytes []byte
	switch v := value.(type) {
	case nil:
		*l = IntList{}
		return nil
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(bytes, (*[]int)(l))
}

type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"-"`
	UpdatedAt time.Time      `json:"-"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Username  string `gorm:"uniqueIndex" json:"username"`
	Nickname  string `json:"nickname"`
	AvatarURL string `json:"avatar_url"`
	Role      Role   `gorm:"default:user" json:"role"`
}

type Contest struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`

	Name             string    `json:"name"`
	Description      string    `json:"description"`
	Mode             string    `json:"mode"`
	GradingMode      string    `json:"grading_mode"`
	ScoreboardPolicy string    `json:"scoreboard_policy"`
	StartTime        time.Time `json:"start_time"`
	EndTime          time.Time `json:"end_time"`
}

type Problem struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`

	Name string `json:"name"`
}

// ContestProblem links a problem into a contest. Disabled links keep their
// scores but drop out of the problem set.
type ContestProblem struct {
	ContestID uint `gorm:"primaryKey;autoIncrement:false" json:"contest_id"`
	ProblemID uint `gorm:"primaryKey;autoIncrement:false" json:"problem_id"`
	Position  int  `json:"position"`
	Enabled   bool `gorm:"not null" json:"enabled"`

	Problem Problem `gorm:"foreignKey:ProblemID" json:"problem"`
}

type Submission struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID    uint  `gorm:"index" json:"user_id"`
	User      User  `json:"-"`
	ProblemID uint  `gorm:"index" json:"problem_id"`
	ContestID *uint `gorm:"index" json:"contest_id"`

	Status        Status  `gorm:"index" json:"status"`
	Score         int     `json:"score"`
	SubtaskScores IntList `gorm:"type:text" json:"subtask_scores"`
}

// ContestScore is the materialized best score of one (contest, user, problem).
type ContestScore struct {
	ID                   uint `gorm:"primaryKey"`
	ContestID            uint `gorm:"uniqueIndex:idx_contest_user_problem"`
	UserID               uint `gorm:"uniqueIndex:idx_contest_user_problem"`
	ProblemID            uint `gorm:"uniqueIndex:idx_contest_user_problem"`
	SubmissionID         uint
	Score                int
	LatestSubmissionTime time.Time
}

// UserContestEntry is a user's participation record in a contest.
type UserContestEntry struct {
	ID                uint      `gorm:"primaryKey" json:"-"`
	CreatedAt         time.Time `json:"-"`
	UpdatedAt         time.Time `json:"-"`
	ContestID         uint      `gorm:"uniqueIndex:idx_contest_user" json:"contest_id"`
	UserID            uint      `gorm:"uniqueIndex:idx_contest_user" json:"user_id"`
	Rank              *int      `json:"rank"`
	RatingAfterUpdate *int      `json:"rating_after_update"`
}
