package main

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/dairyfeed/internal/domain/models"
	"github.com/mamadbah2/dairyfeed/internal/service/monitor"
)

func TestPrintSweep(t *testing.T) {
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)

	printSweep(cmd, &monitor.SweepResult{
		Checked:        4,
		BelowThreshold: 1,
		Created:        1,
		Notifications:  []models.Notification{{Message: "Stok Rumput tinggal 15kg, silahkan tambah stok"}},
	})
	assert.Equal(t, "Checked 4 feeds, 1 at or below minimum, 1 new notifications\n  Stok Rumput tinggal 15kg, silahkan tambah stok\n", out.String())

	out.Reset()
	printSweep(cmd, &monitor.SweepResult{Skipped: true})
	assert.Equal(t, "Another sweep is running, skipped\n", out.String())
}

func TestRecomputeNeedsExactlyOneTarget(t *testing.T) {
	for _, args := range [][]string{
		{"recompute"},
		{"recompute", "3", "--all"},
	} {
		var out bytes.Buffer
		rootCmd.SetOut(&out)
		rootCmd.SetErr(&out)
		rootCmd.SetArgs(args)

		err := rootCmd.Execute()
		require.Error(t, err, args)
		assert.Contains(t, err.Error(), "either a daily feed id or --all")

		require.NoError(t, recomputeCmd.Flags().Set("all", "false"))
	}
}
