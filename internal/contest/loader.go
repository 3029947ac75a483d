package contest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Contest is one contest.yaml definition.
type Contest struct {
	ID               uint      `yaml:"id" validate:"required"`
	Name             string    `yaml:"name" validate:"required"`
	Mode             string    `yaml:"mode" validate:"oneof=rated unrated"`
	GradingMode      string    `yaml:"grading_mode" validate:"oneof=acm classic"`
	ScoreboardPolicy string    `yaml:"scoreboard_policy" validate:"oneof=always during-contest after-contest"`
	StartTime        time.Time `yaml:"starttime" validate:"required"`
	EndTime          time.Time `yaml:"endtime" validate:"required,gtfield=StartTime"`
	ProblemDirs      []string  `yaml:"problems"`
	ProblemIDs       []uint    `yaml:"-"`
	Description      string    `yaml:"-"`
	BasePath         string    `yaml:"-"`
}

type Problem struct {
	ID       uint   `yaml:"id" validate:"required"`
	Name     string `yaml:"name" validate:"required"`
	BasePath string `yaml:"-"`
}

var validate = validator.New()

// FindContestDirs scans a root directory and returns a slice of all its immediate subdirectories.
func FindContestDirs(rootPath string) ([]string, error) {
	if rootPath == "" {
		zap.S().Warn("contests_root is not configured. No contests will be loaded.")
		return []string{}, nil
	}

	entries, err := os.ReadDir(rootPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read contests_root directory '%s': %w", rootPath, err)
	}

	var dirs []string
	for _, entry := range entries {
		if entry.IsDir() {
			dirs = append(dirs, filepath.Join(rootPath, entry.Name()))
		}
	}
	sort.Strings(dirs)
	return dirs, nil
}

// LoadAll reads every contest directory. Broken contests and problems are
// logged and skipped.
func LoadAll(contestDirs []string) (map[uint]*Contest, map[uint]*Problem) {
	contests := make(map[uint]*Contest)
	problems := make(map[uint]*Problem)

	for _, dir := range contestDirs {
		c, contestProblems, err := loadContest(dir)
		if err != nil {
			zap.S().Warnf("failed to load contest from %s: %v", dir, err)
			continue
		}
		if _, exists := contests[c.ID]; exists {
			zap.S().Warnf("duplicate contest ID %d found in %s, skipping", c.ID, dir)
			continue
		}
		contests[c.ID] = c

		for _, p := range contestProblems {
			if _, exists := problems[p.ID]; exists {
				zap.S().Warnf("duplicate problem ID %d found, overwriting", p.ID)
			}
			problems[p.ID] = p
		}
	}
	return contests, problems
}

func loadContest(dir string) (*Contest, []*Problem, error) {
	data, err := os.ReadFile(filepath.Join(dir, "contest.yaml"))
	if err != nil {
		return nil, nil, err
	}
	c := Contest{
		Mode:             "unrated",
		GradingMode:      "classic",
		ScoreboardPolicy: "during-contest",
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, nil, err
	}
	if err := validate.Struct(&c); err != nil {
		return nil, nil, err
	}
	c.BasePath = dir

	desc, _ := os.ReadFile(filepath.Join(dir, "index.md"))
	c.Description = string(desc)

	var loaded []*Problem
	for _, problemDirName := range c.ProblemDirs {
		p, err := loadProblem(filepath.Join(dir, problemDirName))
		if err != nil {
			zap.S().Warnf("failed to load problem %s in contest %d: %v", problemDirName, c.ID, err)
			continue
		}
		c.ProblemIDs = append(c.ProblemIDs, p.ID)
		loaded = append(loaded, p)
	}
	return &c, loaded, nil
}

func loadProblem(dir string) (*Problem, error) {
	data, err := os.ReadFile(filepath.Join(dir, "problem.yaml"))
	if err != nil {
		return nil, err
	}
	var p Problem
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	if err := validate.Struct(&p); err != nil {
		return nil, err
	}
	p.BasePath = dir
	return &p, nil
}
