// Copyright 2020-2022 The OS-NVR Authors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; either version 2 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"cursorsmooth/pkg/log"
)

func TestParseAppliesDefaults(t *testing.T) {
	c, err := Parse([]byte(``))
	require.NoError(t, err)
	require.Equal(t, 0.5, c.SmoothingAlpha)
	require.Equal(t, 0.5, c.Responsiveness)
	require.Equal(t, 60.0, c.FrameRate)
	require.Equal(t, log.LevelInfo, c.LogLevel)
}

func TestParseOverridesProvidedFields(t *testing.T) {
	c, err := Parse([]byte(`
responsiveness: 0.9
smoothness: 0.2
frame_rate: 30
log_level: trace
`))
	require.NoError(t, err)
	require.Equal(t, 0.9, c.Responsiveness)
	require.Equal(t, 0.2, c.Smoothness)
	require.Equal(t, 30.0, c.FrameRate)
	require.Equal(t, log.LevelTrace, c.LogLevel)
}

func TestParseRejectsOutOfRangeFields(t *testing.T) {
	_, err := Parse([]byte(`responsiveness: 1.5`))
	require.Error(t, err)

	_, err = Parse([]byte(`frame_rate: -1`))
	require.Error(t, err)

	_, err = Parse([]byte(`smoothing_alpha: 2`))
	require.Error(t, err)
}

func TestParseRejectsMalformedYAML(t *testing.T) {
	_, err := Parse([]byte(`not: [valid yaml`))
	require.Error(t, err)
}

func TestLoadReadsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("frame_rate: 24\n"), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 24.0, c.FrameRate)
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	require.Error(t, err)
}

func TestValidateRejectsNonPositiveFrameRate(t *testing.T) {
	c := Default()
	c.FrameRate = 0
	require.Error(t, c.Validate())
}
