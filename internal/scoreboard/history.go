package scoreboard

import "sort"

// ReconstructHistory replays a user's graded submissions in a contest, one
// list per problem, in submission id order. Every graded submission shows up,
// including the ones that did not improve the score.
func ReconstructHistory(contestID, userID uint, problems []ProblemRef, subs []Submission) ScoreHistory {
	history := ScoreHistory{ContestID: contestID, UserID: userID, PerProblem: []ProblemHistory{}}

	events := make(map[uint][]HistoryEvent)
	best := make(map[uint]int)
	for _, sub := range sortedByID(subs) {
		if sub.UserID != userID || !inContest(sub, contestID) || !sub.Status.Graded() {
			continue
		}
		prev, attempted := best[sub.ProblemID]
		improved := !attempted || sub.Score > prev
		if improved {
			best[sub.ProblemID] = sub.Score
		}
		events[sub.ProblemID] = append(events[sub.ProblemID], HistoryEvent{
			SubmissionID:  sub.ID,
			CreatedAt:     sub.CreatedAt,
			Status:        sub.Status,
			Score:         sub.Score,
			SubtaskScores: append([]int{}, sub.SubtaskScores...),
			Improved:      improved,
			BestAfter:     best[sub.ProblemID],
		})
	}

	seen := make(map[uint]bool, len(problems))
	for _, p := range problems {
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		list := events[p.ID]
		if list == nil {
			list = []HistoryEvent{}
		}
		history.PerProblem = append(history.PerProblem, ProblemHistory{ProblemID: p.ID, Events: list})
	}

	// Problems dropped from the contest after being attempted.
	var extra []uint
	for problemID := range events {
		if !seen[problemID] {
			extra = append(extra, problemID)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	for _, problemID := range extra {
		history.PerProblem = append(history.PerProblem, ProblemHistory{ProblemID: problemID, Events: events[problemID]})
	}

	return history
}

// Timeline folds a history into the running contest total, one point per
// improving submission.
func Timeline(history ScoreHistory) []TimelinePoint {
	var improving []struct {
		problemID uint
		event     HistoryEvent
	}
	for _, ph := range history.PerProblem {
		for _, ev := range ph.Events {
			if ev.Improved {
				improving = append(improving, struct {
					problemID uint
					event     HistoryEvent
				}{ph.ProblemID, ev})
			}
		}
	}
	sort.Slice(improving, func(i, j int) bool {
		return improving[i].event.SubmissionID < improving[j].event.SubmissionID
	})

	points := make([]TimelinePoint, 0, len(improving))
	best := make(map[uint]int)
	total := 0
	for _, item := range improving {
		total += item.event.BestAfter - best[item.problemID]
		best[item.problemID] = item.event.BestAfter
		points = append(points, TimelinePoint{
			Time:         item.event.CreatedAt,
			SubmissionID: item.event.SubmissionID,
			ProblemID:    item.problemID,
			Total:        total,
		})
	}
	return points
}

func inContest(sub Submission, contestID uint) bool {
	return sub.ContestID != nil && *sub.ContestID == contestID
}
