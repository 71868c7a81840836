package spots

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/parkshare/internal/apperr"
	"github.com/hongminglow/parkshare/internal/models"
)

func TestTransitionTable(t *testing.T) {
	tests := []struct {
		from   models.SpotStatus
		action Action
		to     models.SpotStatus
		reason string
	}{
		{models.SpotNew, ActionChoose, models.SpotChosen, ""},
		{models.SpotNew, ActionOccupy, models.SpotOccupied, ""},
		{models.SpotNew, ActionReport, models.SpotNew, ""},
		{models.SpotChosen, ActionChoose, "", apperr.ReasonSpotUnavailable},
		{models.SpotChosen, ActionOccupy, models.SpotOccupied, ""},
		{models.SpotChosen, ActionReport, models.SpotChosen, ""},
		{models.SpotOccupied, ActionChoose, "", apperr.ReasonSpotUnavailable},
		{models.SpotOccupied, ActionOccupy, models.SpotOccupied, ""},
		{models.SpotOccupied, ActionReport, models.SpotOccupied, ""},
		{models.SpotDisabled, ActionChoose, "", apperr.ReasonSpotUnavailable},
		{models.SpotDisabled, ActionOccupy, "", apperr.ReasonInvalidTransition},
		{models.SpotDisabled, ActionReport, models.SpotDisabled, ""},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"/"+string(tt.action), func(t *testing.T) {
			to, err := Next(tt.from, tt.action)
			if tt.reason != "" {
				require.Error(t, err)
				assert.Equal(t, apperr.KindGuard, apperr.KindOf(err))
				assert.Equal(t, tt.reason, apperr.ReasonOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.to, to)
		})
	}
}

func TestEveryStatusHasTransitions(t *testing.T) {
	for _, s := range models.SpotStatuses {
		assert.NotEmpty(t, transitions[s], "status %s", s)
	}
	_, err := Next(models.SpotNew, ActionSubmit)
	assert.Equal(t, apperr.ReasonInvalidTransition, apperr.ReasonOf(err))
}

func TestApplyReport(t *testing.T) {
	spot := models.Spot{Status: models.SpotNew, Reports: 1}

	spot, penalize := applyReport(spot, 3)
	assert.False(t, penalize)
	assert.Equal(t, 2, spot.Reports)
	assert.Equal(t, models.SpotNew, spot.Status)

	spot, penalize = applyReport(spot, 3)
	assert.True(t, penalize)
	assert.Equal(t, models.SpotDisabled, spot.Status)

	spot, penalize = applyReport(spot, 3)
	assert.True(t, penalize)
	assert.Equal(t, 4, spot.Reports)
}
