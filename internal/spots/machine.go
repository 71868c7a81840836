package spots

import (
	"fmt"

	"github.com/hongminglow/parkshare/internal/apperr"
	"github.com/hongminglow/parkshare/internal/models"
)

// Action is something a caller or the reaper can do to a spot.
type Action string

const (
	ActionSubmit Action = "submit"
	ActionChoose Action = "choose"
	ActionOccupy Action = "occupy"
	ActionReport Action = "report"
)

// transitions is the complete lifecycle table. A missing (status, action)
// pair is rejected. Report stays in place here; crossing the report
// threshold is decided by applyReport.
var transitions = map[models.SpotStatus]map[Action]models.SpotStatus{
	models.SpotNew: {
		ActionChoose: models.SpotChosen,
		ActionOccupy: models.SpotOccupied,
		ActionReport: models.SpotNew,
	},
	models.SpotChosen: {
		ActionOccupy: models.SpotOccupied,
		ActionReport: models.SpotChosen,
	},
	models.SpotOccupied: {
		ActionOccupy: models.SpotOccupied,
		ActionReport: models.SpotOccupied,
	},
	models.SpotDisabled: {
		ActionReport: models.SpotDisabled,
	},
}

// Next returns the status reached by applying action to a spot in from.
func Next(from models.SpotStatus, action Action) (models.SpotStatus, error) {
	if to, ok := transitions[from][action]; ok {
		return to, nil
	}
	if action == ActionChoose {
		return "", apperr.Guard(apperr.ReasonSpotUnavailable,
			fmt.Sprintf("spot is %s, only new spots can be chosen", from))
	}
	return "", apperr.Guard(apperr.ReasonInvalidTransition,
		fmt.Sprintf("cannot %s a %s spot", action, from))
}

// applyReport increments the report counter and disables the spot once the
// counter reaches threshold. The returned flag says whether the submitter
// should be penalized. Reports on an already disabled spot penalize again.
func applyReport(spot models.Spot, threshold int) (models.Spot, bool) {
	spot.Reports++
	if spot.Reports >= threshold {
		spot.Status = models.SpotDisabled
		return spot, true
	}
	return spot, false
}
