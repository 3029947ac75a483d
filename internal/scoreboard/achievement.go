package scoreboard

import "sort"

// CalculateAchievements derives first-blood and one-man-solve badges from
// the accepted submissions of non-staff users. Submission id is the only
// ordering key, so equal timestamps never matter.
func CalculateAchievements(contestID uint, subs []Submission) Achievements {
	firstBlood := make(map[uint]Submission)
	firstByUser := make(map[uint]map[uint]Submission)

	for _, sub := range subs {
		if sub.Status != StatusAccept || !inContest(sub, contestID) {
			continue
		}
		if !IsRankedParticipant(UserRef{ID: sub.UserID, Role: sub.UserRole}) {
			continue
		}

		if cur, ok := firstBlood[sub.ProblemID]; !ok || sub.ID < cur.ID {
			firstBlood[sub.ProblemID] = sub
		}

		solvers, ok := firstByUser[sub.ProblemID]
		if !ok {
			solvers = make(map[uint]Submission)
			firstByUser[sub.ProblemID] = solvers
		}
		if cur, ok := solvers[sub.UserID]; !ok || sub.ID < cur.ID {
			solvers[sub.UserID] = sub
		}
	}

	out := Achievements{FirstBlood: []Submission{}, OneManSolve: []Submission{}}
	for _, sub := range firstBlood {
		out.FirstBlood = append(out.FirstBlood, sub)
	}
	for _, solvers := range firstByUser {
		if len(solvers) != 1 {
			continue
		}
		for _, sub := range solvers {
			out.OneManSolve = append(out.OneManSolve, sub)
		}
	}

	byProblem := func(list []Submission) func(i, j int) bool {
		return func(i, j int) bool { return list[i].ProblemID < list[j].ProblemID }
	}
	sort.Slice(out.FirstBlood, byProblem(out.FirstBlood))
	sort.Slice(out.OneManSolve, byProblem(out.OneManSolve))
	return out
}
