package options

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var jan2024 = time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

func TestSitewide_Defaults(t *testing.T) {
	d := Sitewide(jan2024).Defaults()
	assert.Equal(t, Values{
		KeyYear:           "2024",
		KeyMonth:          MonthAll,
		KeyMeasuringPoint: MeasuringPointDelivered,
		KeyModel:          "Reell",
	}, d)

	assert.Equal(t, "2023", Sitewide(time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)).Defaults()[KeyYear])
	assert.Equal(t, "2024", Sitewide(time.Date(2031, 6, 1, 0, 0, 0, 0, time.UTC)).Defaults()[KeyYear],
		"falls back to the newest selectable year")
}

func TestCatalog_Validate(t *testing.T) {
	c := ForPage("accumulated-balance", jan2024)

	tests := []struct {
		name  string
		v     Values
		valid bool
	}{
		{"empty", Values{}, true},
		{"unset value", Values{KeyMonth: "", "colour": ""}, true},
		{"all sitewide", Values{KeyYear: "2023", KeyMonth: "07", KeyMeasuringPoint: "delivered", KeyModel: "TEK17"}, true},
		{"toggle", Values{KeyShowAsCO2: "true"}, true},
		{"unknown key", Values{"colour": "red"}, false},
		{"unknown year", Values{KeyYear: "2022"}, false},
		{"bad toggle", Values{KeyShowAsCO2: "maybe"}, false},
		{"numeric toggle", Values{KeyShowAsCO2: "1"}, false},
		{"upper-case toggle", Values{KeyShowAsCO2: "TRUE"}, false},
		{"short toggle", Values{KeyShowAsCO2: "t"}, false},
		{"toggle off", Values{KeyShowAsCO2: "false"}, true},
		{"other page toggle", Values{KeyShowElProductionDetails: "true"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.Validate(tt.v)
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			var invalid *InvalidOptionError
			assert.True(t, errors.As(err, &invalid))
		})
	}
}

func TestRequire(t *testing.T) {
	assert.NoError(t, Require(Values{KeyYear: "2024"}, KeyYear))

	err := Require(Values{KeyYear: "2024", KeyMonth: ""}, KeyYear, KeyMonth, KeyModel)
	var notSet *OptionsNotSetError
	require.True(t, errors.As(err, &notSet))
	assert.Equal(t, []string{KeyMonth, KeyModel}, notSet.Missing)
	assert.Equal(t, "options not set: month, model", err.Error())
}

func TestIsDomainError(t *testing.T) {
	assert.True(t, IsDomainError(NoData()))
	assert.True(t, IsDomainError(fmt.Errorf("page: %w", InvalidOption("bad %s", "month"))))
	assert.True(t, IsDomainError(&OptionsNotSetError{Missing: []string{KeyYear}}))
	assert.False(t, IsDomainError(errors.New("boom")))
	assert.False(t, IsDomainError(nil))
	assert.Equal(t, NoDataMessage, NoData().Error())
}

func TestValues(t *testing.T) {
	v := Values{KeyShowAsCO2: "true", KeyShowElProductionDetails: "no"}
	assert.True(t, v.Bool(KeyShowAsCO2))
	assert.False(t, v.Bool(KeyShowElProductionDetails))
	assert.False(t, v.Bool("missing"))
	assert.False(t, Values{KeyShowAsCO2: "1"}.Bool(KeyShowAsCO2))

	c := v.Clone(Values{KeyShowAsCO2: "false"})
	assert.Equal(t, "false", c[KeyShowAsCO2])
	assert.Equal(t, "true", v[KeyShowAsCO2])
}

func TestPermutations(t *testing.T) {
	c := Catalog{
		{Key: "a", Type: TypeSelect, Items: []Item{{Value: "1"}, {Value: "2"}, {Value: "3", Disabled: true}}},
		{Key: "off", Type: TypeSelect, Disabled: true, Items: []Item{{Value: "x"}}},
		{Key: "t", Type: TypeToggle},
		{Key: "b", Type: TypeSelect, Items: []Item{{Value: "x"}, {Value: "y"}}},
	}

	assert.Equal(t, []Values{
		{"a": "1", "b": "x"},
		{"a": "1", "b": "y"},
		{"a": "2", "b": "x"},
		{"a": "2", "b": "y"},
	}, Permutations(c))

	assert.Len(t, Permutations(Sitewide(jan2024)), 2*13*2*2)
}

func TestValidOptions(t *testing.T) {
	perms := []Values{{"m": "ok"}, {"m": "invalid"}, {"m": "broken"}}
	valid, invalid := ValidOptions(context.Background(), perms, func(_ context.Context, v Values) error {
		switch v["m"] {
		case "invalid":
			return NoData()
		case "broken":
			return errors.New("upstream down")
		}
		return nil
	}, nil)

	assert.Equal(t, []Values{{"m": "ok"}}, valid)
	assert.Equal(t, []Values{{"m": "invalid"}, {"m": "broken"}}, invalid)
}

func TestValidateSitewide(t *testing.T) {
	assert.NoError(t, ValidateSitewide(Values{KeyMonth: "03", KeyModel: "TEK17"}))

	var invalid *InvalidOptionError
	assert.ErrorAs(t, ValidateSitewide(Values{KeyShowAsCO2: "true"}), &invalid, "page options are not sitewide")
	assert.ErrorAs(t, ValidateSitewide(Values{KeyMeasuringPoint: "meter"}), &invalid)
}
