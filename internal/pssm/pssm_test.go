package pssm

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/peppi/internal/runner"
)

const samplePSSM = `
Last position-specific scoring matrix computed, weighted observed percentages rounded down, information per position, and relative weight of gapless real matches to pseudocounts
            A   R   N   D   C   Q   E   G   H   I   L   K   M   F   P   S   T   W   Y   V   A   R   N   D   C   Q   E   G   H   I   L   K   M   F   P   S   T   W   Y   V
    1 M    -1  -2  -3  -4  -2   0  -2  -3  -2   1   2  -2   6   0  -3  -2  -1  -2  -1   1    0   0   0   0   0   0   0   0   0   0   0   0 100   0   0   0   0   0   0   0  1.45 0.09
    2 K    -1   2   0  -1  -4   1   1  -2  -1  -3  -3   5  -2  -4  -1   0  -1  -3  -2  -3    0   0   0   0   0   0   0   0   0   0   0 100   0   0   0   0   0   0   0   0  1.10 0.09
    3 W    -3  -3  -4  -5  -3  -2  -3  -3  -2  -3  -2  -3  -2   1  -4  -3  -3  12   2  -3    0   0   0   0   0   0   0   0   0   0   0   0   0   0   0   0   0 100   0   0  3.30 0.09

                      K         Lambda
Standard Ungapped    0.1338     0.3168
`

func TestParse(t *testing.T) {
	p, err := Parse(strings.NewReader(samplePSSM), 3)
	require.NoError(t, err)

	assert.Equal(t, 3, p.Len())
	assert.Equal(t, []byte("MKW"), p.Symbols)
	assert.Equal(t, -1.0, p.Scores[0][0])
	assert.Equal(t, 6.0, p.Scores[0][strings.IndexByte(Alphabet, 'M')])
	assert.Equal(t, 12.0, p.Scores[2][strings.IndexByte(Alphabet, 'W')])
	assert.True(t, p.Complete(3))
	assert.False(t, p.Complete(4))
}

func TestParse_TakesAtMostN(t *testing.T) {
	p, err := Parse(strings.NewReader(samplePSSM), 2)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Len())
	assert.Equal(t, []byte("MK"), p.Symbols)
}

func TestParse_ShortProfileIsIncomplete(t *testing.T) {
	p, err := Parse(strings.NewReader(samplePSSM), 10)
	require.NoError(t, err)
	assert.Equal(t, 3, p.Len())
	assert.False(t, p.Complete(10))
}

func TestParse_MissingScores(t *testing.T) {
	in := "\nheader\ncolumns\n    1 M    -1  -2  x\n"
	p, err := Parse(strings.NewReader(in), 1)
	require.NoError(t, err)
	assert.Equal(t, -1.0, p.Scores[0][0])
	assert.True(t, math.IsNaN(p.Scores[0][2]))
	assert.True(t, math.IsNaN(p.Scores[0][19]))
	assert.False(t, p.Complete(1))
}

func TestParse_Empty(t *testing.T) {
	_, err := Parse(strings.NewReader(""), 5)
	assert.ErrorIs(t, err, ErrEmptyProfile)
}

func TestProfile_Matrix(t *testing.T) {
	p, err := Parse(strings.NewReader(samplePSSM), 3)
	require.NoError(t, err)

	m := p.Matrix()
	r, c := m.Dims()
	assert.Equal(t, 20, r)
	assert.Equal(t, 3, c)
	assert.Equal(t, 5.0, m.At(strings.IndexByte(Alphabet, 'K'), 1))

	var empty *Profile
	assert.Nil(t, empty.Matrix())
	assert.False(t, empty.Complete(0))
}

func fakePsiblast(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "psiblast")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0755))
	return path
}

func TestBuilder_Build(t *testing.T) {
	fixture := filepath.Join(t.TempDir(), "fixture.pssm")
	require.NoError(t, os.WriteFile(fixture, []byte(samplePSSM), 0644))
	argsLog := filepath.Join(t.TempDir(), "args")

	// Arguments: -query f -db d -num_iterations 3 -evalue 0.001 -out_ascii_pssm p
	script := fmt.Sprintf("echo \"$@\" > %q\ngrep -q '^MKW$' \"$2\" || exit 3\ncp %q \"${10}\"\n", argsLog, fixture)
	scratchDir := t.TempDir()

	b := NewBuilder(fakePsiblast(t, script), "/db/swissprot", runner.New(time.Minute))
	b.TempDir = scratchDir

	p, err := b.Build(context.Background(), "MKW")
	require.NoError(t, err)
	assert.True(t, p.Complete(3))

	args, err := os.ReadFile(argsLog)
	require.NoError(t, err)
	assert.Contains(t, string(args), "-db /db/swissprot -num_iterations 3 -evalue 0.001 -out_ascii_pssm")

	entries, err := os.ReadDir(scratchDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "query and matrix files are removed")
}

func TestBuilder_ToolFailure(t *testing.T) {
	scratchDir := t.TempDir()
	b := NewBuilder(fakePsiblast(t, "echo 'BLAST Database error' >&2\nexit 1\n"), "/db/swissprot", runner.New(time.Minute))
	b.TempDir = scratchDir

	_, err := b.Build(context.Background(), "MKW")
	var te *runner.ToolError
	require.ErrorAs(t, err, &te)

	entries, err := os.ReadDir(scratchDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestBuilder_NoHits(t *testing.T) {
	b := NewBuilder(fakePsiblast(t, "exit 0\n"), "/db/swissprot", runner.New(time.Minute))
	b.TempDir = t.TempDir()

	_, err := b.Build(context.Background(), "MKW")
	assert.ErrorIs(t, err, ErrEmptyProfile)
}

func TestBuilder_EmptySequence(t *testing.T) {
	b := NewBuilder("psiblast", "/db", runner.New(time.Minute))
	_, err := b.Build(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyProfile)
}
