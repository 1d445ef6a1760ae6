package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AaronL1011/mechmate-sub000/internal/model"
	"github.com/AaronL1011/mechmate-sub000/internal/service"
)

func TestPrintReport(t *testing.T) {
	due := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	at := 61000.0
	report := service.DueReport{
		Today:      model.MustParseDate("2024-01-15"),
		WindowDays: 14,
		Overdue: []service.TaskView{{
			Task:          model.Task{ID: 2, Title: "Oil change", NextDueDate: &due, NextDueUsageValue: &at},
			EquipmentName: "Civic",
			UsageUnit:     "km",
		}},
	}

	var out bytes.Buffer
	require.NoError(t, printReport(&out, report))

	text := out.String()
	assert.Contains(t, text, "Maintenance report for 2024-01-15")
	assert.Contains(t, text, "#2")
	assert.Contains(t, text, "2024-01-10")
	assert.Contains(t, text, "61000 km")
	assert.Contains(t, text, "Due in the next 14 days\n  (none)")
}
