package user

import (
	"net/http"

	"github.com/ZJUSCT/CSOJ-scoreboard/internal/api"
	"github.com/ZJUSCT/CSOJ-scoreboard/internal/database"
	"github.com/ZJUSCT/CSOJ-scoreboard/internal/database/models"
	"github.com/ZJUSCT/CSOJ-scoreboard/internal/scoreboard"
	"github.com/ZJUSCT/CSOJ-scoreboard/internal/util"
	"github.com/gin-gonic/gin"
)

type contestView struct {
	models.Contest
	Problems []scoreboard.ProblemRef `json:"problems"`
}

func (h *Handler) getAllContests(c *gin.Context) {
	contests, err := database.ListContests(h.db.WithContext(c.Request.Context()))
	if err != nil {
		util.Fail(c, err)
		return
	}
	if contests == nil {
		contests = []models.Contest{}
	}
	util.Success(c, contests, "Contests loaded")
}

func (h *Handler) getContest(c *gin.Context) {
	contestID, err := scoreboard.ParseID(c.Param("id"))
	if err != nil {
		util.Fail(c, err)
		return
	}
	contest, err := database.GetContest(h.db.WithContext(c.Request.Context()), contestID)
	if err != nil {
		util.Fail(c, err)
		return
	}

	view := contestView{Contest: *contest, Problems: []scoreboard.ProblemRef{}}
	// For contests that haven't started, hide the problem list.
	if h.svc.Now().Before(contest.StartTime) && !api.CallerFrom(c).IsAdmin() {
		util.Success(c, view, "Contest found, but is not currently active")
		return
	}

	problems, err := database.NewStore(h.db).GetContestProblems(c.Request.Context(), contestID)
	if err != nil {
		util.Fail(c, err)
		return
	}
	view.Problems = problems
	util.Success(c, view, "Contest found")
}

func (h *Handler) registerForContest(c *gin.Context) {
	contestID, err := scoreboard.ParseID(c.Param("id"))
	if err != nil {
		util.Fail(c, err)
		return
	}
	caller := api.CallerFrom(c)
	if caller.UserID == 0 {
		util.Error(c, http.StatusUnauthorized, "login required")
		return
	}

	ctx := c.Request.Context()
	if err := database.RegisterForContest(h.db.WithContext(ctx), contestID, caller.UserID, h.svc.Now()); err != nil {
		util.Fail(c, err)
		return
	}
	// A new entrant appears on the board with zero points.
	h.svc.Invalidate(ctx, contestID)
	util.Success(c, nil, "Successfully registered for contest")
}

func (h *Handler) getUserRatings(c *gin.Context) {
	userID, err := scoreboard.ParseID(c.Param("id"))
	if err != nil {
		util.Fail(c, err)
		return
	}
	db := h.db.WithContext(c.Request.Context())
	if _, err := database.GetUserByID(db, userID); err != nil {
		util.Fail(c, err)
		return
	}
	entries, err := database.GetRatedEntries(db, userID)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, entries, "Rating history retrieved")
}
