package scoreboard

import "sort"

// BestScore reduces the graded submissions of one (contest, user, problem)
// triple to its ContestScore. Submissions are replayed in id order and the
// slot only moves on a strict improvement, so the timestamp is the earliest
// time the best score was reached. Score and timestamp always come from the
// same submission.
func BestScore(contestID uint, subs []Submission) (ContestScore, bool) {
	ordered := sortedByID(subs)

	var best ContestScore
	found := false
	for _, sub := range ordered {
		if !sub.Status.Graded() {
			continue
		}
		if found && sub.Score <= best.Score {
			continue
		}
		best = ContestScore{
			ContestID:            contestID,
			UserID:               sub.UserID,
			ProblemID:            sub.ProblemID,
			SubmissionID:         sub.ID,
			Score:                sub.Score,
			LatestSubmissionTime: sub.CreatedAt,
		}
		found = true
	}
	return best, found
}

// ScoreTable indexes ContestScore rows by user and problem.
type ScoreTable struct {
	contestID uint
	byUser    map[uint]map[uint]ContestScore
	order     map[uint][]uint
}

// NewScoreTable builds a table from materialized rows. When the same triple
// shows up twice the later row wins.
func NewScoreTable(contestID uint, scores []ContestScore) *ScoreTable {
	t := &ScoreTable{
		contestID: contestID,
		byUser:    make(map[uint]map[uint]ContestScore),
		order:     make(map[uint][]uint),
	}
	for _, s := range scores {
		problems, ok := t.byUser[s.UserID]
		if !ok {
			problems = make(map[uint]ContestScore)
			t.byUser[s.UserID] = problems
		}
		if _, seen := problems[s.ProblemID]; !seen {
			t.order[s.UserID] = append(t.order[s.UserID], s.ProblemID)
		}
		problems[s.ProblemID] = s
	}
	return t
}

// ScoreOf never fails: an unattempted problem is a zero score with no
// timestamp, which yields a zero penalty.
func (t *ScoreTable) ScoreOf(userID, problemID uint) ContestScore {
	if s, ok := t.byUser[userID][problemID]; ok {
		return s
	}
	return ContestScore{ContestID: t.contestID, UserID: userID, ProblemID: problemID}
}

// Rows returns the materialized rows of one user, contest problems first in
// contest order, then any problem no longer in the contest by id.
func (t *ScoreTable) Rows(userID uint, problems []ProblemRef) []ContestScore {
	problemIDs := t.order[userID]
	if len(problemIDs) == 0 {
		return []ContestScore{}
	}

	position := make(map[uint]int, len(problems))
	for i, p := range problems {
		position[p.ID] = i
	}

	ids := append([]uint(nil), problemIDs...)
	sort.SliceStable(ids, func(i, j int) bool {
		pi, iKnown := position[ids[i]]
		pj, jKnown := position[ids[j]]
		switch {
		case iKnown && jKnown:
			return pi < pj
		case iKnown != jKnown:
			return iKnown
		default:
			return ids[i] < ids[j]
		}
	})

	rows := make([]ContestScore, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, t.byUser[userID][id])
	}
	return rows
}

func sortedByID(subs []Submission) []Submission {
	ordered := append([]Submission(nil), subs...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].ID < ordered[j].ID
	})
	return ordered
}
