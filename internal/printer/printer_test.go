package printer

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T) (*bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var out, errOut bytes.Buffer
	oldOut, oldErr, oldNoColor := Stdout, Stderr, color.NoColor
	Stdout, Stderr, color.NoColor = &out, &errOut, true
	t.Cleanup(func() { Stdout, Stderr, color.NoColor = oldOut, oldErr, oldNoColor })
	return &out, &errOut
}

func TestError(t *testing.T) {
	t.Run("returns error with title", func(t *testing.T) {
		_, errOut := capture(t)
		err := Error("Config invalid", "TIMEZONE is not an IANA zone", nil)
		require.EqualError(t, err, "Config invalid")
		require.Contains(t, errOut.String(), "TIMEZONE is not an IANA zone")
	})

	t.Run("numbers multiple suggestions", func(t *testing.T) {
		_, errOut := capture(t)
		err := Error("Display not found", "", []string{"Enable SPI", "Set DISPLAY_SINK=noop"})
		require.EqualError(t, err, "Display not found")
		require.Contains(t, errOut.String(), "  1. Enable SPI")
		require.Contains(t, errOut.String(), "  2. Set DISPLAY_SINK=noop")
	})
}

func TestCheck(t *testing.T) {
	out, _ := capture(t)
	Check("weather", true, false, "openweather 18°C")
	Check("calendar", false, true, "disabled: no calendar url configured")
	Check("transit", false, false, "failed: 503")

	require.Equal(t,
		"✓ weather    openweather 18°C\n"+
			"- calendar   disabled: no calendar url configured\n"+
			"✗ transit    failed: 503\n",
		out.String())
}

func TestSuccessPrefix(t *testing.T) {
	out, _ := capture(t)
	Success("frame written\n")
	Success("✓ already prefixed\n")
	require.Equal(t, "✓ frame written\n✓ already prefixed\n", out.String())
}
