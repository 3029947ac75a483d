package scoreboard

import "time"

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type Mode string

const (
	ModeRated   Mode = "rated"
	ModeUnrated Mode = "unrated"
)

type GradingMode string

const (
	GradingACM     GradingMode = "acm"
	GradingClassic GradingMode = "classic"
)

// Policy controls when non-admin callers may see standings.
type Policy string

const (
	PolicyAlways        Policy = "always"
	PolicyDuringContest Policy = "during-contest"
	PolicyAfterContest  Policy = "after-contest"
)

type Status string

const (
	StatusWaiting Status = "waiting"
	StatusGrading Status = "grading"
	StatusAccept  Status = "accept"
	StatusReject  Status = "reject"
)

// Graded reports whether the submission carries a final result.
func (s Status) Graded() bool {
	return s == StatusAccept || s == StatusReject
}

type Contest struct {
	ID               uint        `json:"id"`
	Name             string      `json:"name"`
	Mode             Mode        `json:"mode"`
	GradingMode      GradingMode `json:"grading_mode"`
	ScoreboardPolicy Policy      `json:"scoreboard_policy"`
	StartTime        time.Time   `json:"start_time"`
	EndTime          time.Time   `json:"end_time"`
}

// Finished reports whether the contest window has closed at now.
func (c *Contest) Finished(now time.Time) bool {
	return !now.Before(c.EndTime)
}

// Running reports whether now falls inside [StartTime, EndTime).
func (c *Contest) Running(now time.Time) bool {
	return !now.Before(c.StartTime) && now.Before(c.EndTime)
}

type ProblemRef struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

type UserRef struct {
	ID        uint   `json:"id"`
	Username  string `json:"username"`
	Nickname  string `json:"nickname"`
	AvatarURL string `json:"avatar_url,omitempty"`
	Role      Role   `json:"-"`
}

type Submission struct {
	ID            uint      `json:"id"`
	UserID        uint      `json:"user_id"`
	ProblemID     uint      `json:"problem_id"`
	ContestID     *uint     `json:"contest_id,omitempty"`
	Status        Status    `json:"status"`
	Score         int       `json:"score"`
	SubtaskScores []int     `json:"subtask_scores"`
	CreatedAt     time.Time `json:"created_at"`

	// UserRole is the submitter's role at read time.
	UserRole Role `json:"-"`
}

// ContestScore is the best score a user reached on one contest problem and
// the time of the submission that reached it.
type ContestScore struct {
	ContestID            uint      `json:"contest_id"`
	UserID               uint      `json:"user_id"`
	ProblemID            uint      `json:"problem_id"`
	SubmissionID         uint      `json:"submission_id"`
	Score                int       `json:"score"`
	LatestSubmissionTime time.Time `json:"latest_submission_time"`
}

type Row struct {
	User       UserRef        `json:"user"`
	Scores     []ContestScore `json:"scores"`
	TotalScore int            `json:"total_score"`
	MaxPenalty int64          `json:"max_penalty"`
	Rank       int            `json:"rank"`
}

type Scoreboard struct {
	Contest  Contest      `json:"contest"`
	Problems []ProblemRef `json:"problems"`
	Rows     []Row        `json:"rows"`
}

type HistoryEvent struct {
	SubmissionID  uint      `json:"submission_id"`
	CreatedAt     time.Time `json:"created_at"`
	Status        Status    `json:"status"`
	Score         int       `json:"score"`
	SubtaskScores []int     `json:"subtask_scores"`
	Improved      bool      `json:"improved"`
	BestAfter     int       `json:"best_after"`
}

type ProblemHistory struct {
	ProblemID uint           `json:"problem_id"`
	Events    []HistoryEvent `json:"events"`
}

type ScoreHistory struct {
	ContestID  uint             `json:"contest_id"`
	UserID     uint             `json:"user_id"`
	PerProblem []ProblemHistory `json:"per_problem"`
}

// TimelinePoint is the user's contest total right after a score change.
type TimelinePoint struct {
	Time         time.Time `json:"time"`
	SubmissionID uint      `json:"submission_id"`
	ProblemID    uint      `json:"problem_id"`
	Total        int       `json:"total"`
}

type Achievements struct {
	FirstBlood  []Submission `json:"first_blood"`
	OneManSolve []Submission `json:"one_man_solve"`
}

// Caller identifies who is asking for standings data.
type Caller struct {
	UserID uint
	Role   Role
}

func (c Caller) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// SubmissionFilter narrows a ledger read. Zero fields match everything.
type SubmissionFilter struct {
	UserID    uint
	ProblemID uint
	Status    Status
}
