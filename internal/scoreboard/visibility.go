package scoreboard

import "time"

// CanView decides whether caller may see the scoreboard or score history of
// contest at now. Admins always can; everyone else depends on the contest's
// scoreboard policy.
func CanView(contest Contest, caller Caller, now time.Time) bool {
	if caller.IsAdmin() {
		return true
	}
	switch contest.ScoreboardPolicy {
	case PolicyAfterContest:
		return !now.Before(contest.EndTime)
	case PolicyDuringContest:
		return !now.Before(contest.StartTime)
	case PolicyAlways:
		return true
	default:
		return false
	}
}
