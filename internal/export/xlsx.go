package export

import (
	"bytes"
	"fmt"

	"github.com/ZJUSCT/CSOJ-scoreboard/internal/scoreboard"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Scoreboard"

// ScoreboardXLSX renders standings as a workbook with one row per
// participant: rank, user, per-problem scores, total and penalty.
func ScoreboardXLSX(sb *scoreboard.Scoreboard) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), sheetName); err != nil {
		return nil, err
	}

	header := []interface{}{"Rank", "Username", "Nickname"}
	for _, p := range sb.Problems {
		header = append(header, p.Name)
	}
	header = append(header, "Total", "Penalty (s)")
	if err := setRow(f, 1, header); err != nil {
		return nil, err
	}

	for i, row := range sb.Rows {
		byProblem := make(map[uint]int, len(row.Scores))
		for _, s := range row.Scores {
			byProblem[s.ProblemID] = s.Score
		}

		cells := []interface{}{row.Rank, row.User.Username, row.User.Nickname}
		for _, p := range sb.Problems {
			cells = append(cells, byProblem[p.ID])
		}
		cells = append(cells, row.TotalScore, row.MaxPenalty)
		if err := setRow(f, i+2, cells); err != nil {
			return nil, err
		}
	}

	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func setRow(f *excelize.File, n int, cells []interface{}) error {
	axis, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheetName, axis, &cells)
}
