package scoreboard

import (
	"sort"
	"time"
)

// IsRankedParticipant is the single staff filter shared by ranking and
// achievements.
func IsRankedParticipant(u UserRef) bool {
	return u.Role != RoleAdmin
}

// Penalty is the whole number of seconds from contest start to t, clamped at
// zero. A zero t means nothing was scored.
func Penalty(contest Contest, t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	d := t.Sub(contest.StartTime)
	if d <= 0 {
		return 0
	}
	return int64(d / time.Second)
}

// Rank builds the ordered standings for the ranked participants. Score rows
// of users outside the participant set are ignored; rows for problems that
// left the contest still count.
func Rank(contest Contest, problems []ProblemRef, participants []UserRef, scores []ContestScore) []Row {
	table := NewScoreTable(contest.ID, scores)

	rows := make([]Row, 0, len(participants))
	for _, user := range participants {
		if !IsRankedParticipant(user) {
			continue
		}
		row := Row{User: user, Scores: table.Rows(user.ID, problems)}
		for _, s := range row.Scores {
			row.TotalScore += s.Score
			if p := Penalty(contest, s.LatestSubmissionTime); p > row.MaxPenalty {
				row.MaxPenalty = p
			}
		}
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].TotalScore != rows[j].TotalScore {
			return rows[i].TotalScore > rows[j].TotalScore
		}
		return rows[i].MaxPenalty < rows[j].MaxPenalty
	})

	for i := range rows {
		if i > 0 && rows[i].TotalScore == rows[i-1].TotalScore && rows[i].MaxPenalty == rows[i-1].MaxPenalty {
			rows[i].Rank = rows[i-1].Rank
			continue
		}
		rows[i].Rank = i + 1
	}
	return rows
}
