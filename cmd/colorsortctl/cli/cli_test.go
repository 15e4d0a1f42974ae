package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(args ...string) (string, error) {
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCommand_Subcommands(t *testing.T) {
	cmd := NewRootCommand()

	var names []string
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"migrate", "clear", "compute", "sweep"})
}

func TestRootCommand_InvalidFormat(t *testing.T) {
	_, err := run("--format", "yaml", "clear")
	assert.ErrorContains(t, err, "invalid format")
}

func TestClear_RequiresConfirmation(t *testing.T) {
	_, err := run("clear")
	assert.ErrorContains(t, err, "--yes")
}

func TestCompute_ArgumentValidation(t *testing.T) {
	_, err := run("compute", "abc", "BADA55")
	assert.ErrorContains(t, err, "invalid volume id")

	_, err = run("compute", "1", "#BADA55")
	assert.ErrorContains(t, err, "hexadecimal")

	_, err = run("compute", "1")
	assert.Error(t, err)
}

func TestParseComputeArgs(t *testing.T) {
	id, color, err := parseComputeArgs([]string{"12", "bada55"})
	require.NoError(t, err)
	assert.Equal(t, int64(12), id)
	assert.Equal(t, "BADA55", color)
}

func TestWriteComputeResult(t *testing.T) {
	res := ComputeResult{VolumeID: 1, Color: "BADA55", Sequence: []int64{2, 1, 3}, DurationMS: 7}

	var text bytes.Buffer
	require.NoError(t, writeComputeResult(&text, "text", res))
	assert.Equal(t, "volume 1, color BADA55: 3 images in 7ms\n2 1 3\n", text.String())

	var js bytes.Buffer
	require.NoError(t, writeComputeResult(&js, "json", res))
	assert.JSONEq(t, `{"volume_id":1,"color":"BADA55","sequence":[2,1,3],"duration_ms":7}`, js.String())
}

func TestSweep_RejectsNegativeAge(t *testing.T) {
	_, err := run("sweep", "--older-than", "-5m")
	assert.ErrorContains(t, err, "--older-than")
}
