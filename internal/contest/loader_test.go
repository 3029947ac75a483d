package contest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ZJUSCT/CSOJ-scoreboard/internal/database"
	"github.com/ZJUSCT/CSOJ-scoreboard/internal/scoreboard"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func writeTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	writeFile(t, filepath.Join(root, "spring", "contest.yaml"), `
id: 1
name: Spring Cup
mode: rated
grading_mode: acm
scoreboard_policy: after-contest
starttime: 2025-03-01T09:00:00Z
endtime: 2025-03-01T14:00:00Z
problems: [hello, sum, missing]
`)
	writeFile(t, filepath.Join(root, "spring", "index.md"), "# Spring Cup\n")
	writeFile(t, filepath.Join(root, "spring", "hello", "problem.yaml"), "id: 10\nname: Hello\n")
	writeFile(t, filepath.Join(root, "spring", "sum", "problem.yaml"), "id: 11\nname: Sum\n")

	writeFile(t, filepath.Join(root, "summer", "contest.yaml"), `
id: 2
name: Summer Cup
starttime: 2025-07-01T09:00:00Z
endtime: 2025-07-01T12:00:00Z
problems: [sum]
`)
	writeFile(t, filepath.Join(root, "summer", "sum", "problem.yaml"), "id: 11\nname: Sum\n")

	writeFile(t, filepath.Join(root, "broken", "contest.yaml"), `
id: 3
name: Broken
starttime: 2025-07-01T09:00:00Z
endtime: 2025-06-01T09:00:00Z
`)
	writeFile(t, filepath.Join(root, "README.md"), "not a contest")
	return root
}

func TestLoadAll(t *testing.T) {
	root := writeTree(t)
	dirs, err := FindContestDirs(root)
	require.NoError(t, err)
	require.Len(t, dirs, 3)

	contests, problems := LoadAll(dirs)
	require.Len(t, contests, 2, "the contest ending before it starts is skipped")
	require.Len(t, problems, 2)

	spring := contests[1]
	require.Equal(t, "Spring Cup", spring.Name)
	require.Equal(t, "after-contest", spring.ScoreboardPolicy)
	require.Equal(t, []uint{10, 11}, spring.ProblemIDs)
	require.Equal(t, "# Spring Cup\n", spring.Description)

	summer := contests[2]
	require.Equal(t, "unrated", summer.Mode)
	require.Equal(t, "classic", summer.GradingMode)
	require.Equal(t, "during-contest", summer.ScoreboardPolicy)
}

func TestFindContestDirsWithoutRoot(t *testing.T) {
	dirs, err := FindContestDirs("")
	require.NoError(t, err)
	require.Empty(t, dirs)

	_, err = FindContestDirs(filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)
}

func TestSyncWritesStore(t *testing.T) {
	db, err := database.Init("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	root := writeTree(t)
	during := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	ids, err := Sync(db, root, during)
	require.NoError(t, err)
	require.Equal(t, []uint{1, 2}, ids)

	store := database.NewStore(db)
	c, err := store.GetContest(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, scoreboard.PolicyAfterContest, c.ScoreboardPolicy)
	require.Equal(t, 5*time.Hour, c.EndTime.Sub(c.StartTime))

	problems, err := store.GetContestProblems(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, []scoreboard.ProblemRef{{ID: 10, Name: "Hello"}, {ID: 11, Name: "Sum"}}, problems)

	// Dropping a problem from contest.yaml removes it on the next sync.
	writeFile(t, filepath.Join(root, "spring", "contest.yaml"), `
id: 1
name: Spring Cup
starttime: 2025-03-01T09:00:00Z
endtime: 2025-03-01T14:00:00Z
problems: [sum]
`)
	_, err = Sync(db, root, during)
	require.NoError(t, err)
	problems, err = store.GetContestProblems(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, []scoreboard.ProblemRef{{ID: 11, Name: "Sum"}}, problems)
}

func TestSyncKeepsProblemSetOfFinishedContest(t *testing.T) {
	db, err := database.Init("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	// A fresh store still learns the problem set of a finished contest.
	after := time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)
	root := writeTree(t)
	_, err = Sync(db, root, after)
	require.NoError(t, err)

	store := database.NewStore(db)
	problems, err := store.GetContestProblems(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, []scoreboard.ProblemRef{{ID: 10, Name: "Hello"}, {ID: 11, Name: "Sum"}}, problems)

	writeFile(t, filepath.Join(root, "spring", "contest.yaml"), `
id: 1
name: Spring Cup Final
starttime: 2025-03-01T09:00:00Z
endtime: 2025-03-01T14:00:00Z
problems: [sum]
`)
	_, err = Sync(db, root, after)
	require.NoError(t, err)

	problems, err = store.GetContestProblems(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, []scoreboard.ProblemRef{{ID: 10, Name: "Hello"}, {ID: 11, Name: "Sum"}}, problems)
	c, err := store.GetContest(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, "Spring Cup Final", c.Name)
}
