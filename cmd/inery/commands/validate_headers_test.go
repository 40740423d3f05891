package commands

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inery/inery/config"
	"github.com/inery/inery/internal/state"
	"github.com/inery/inery/privval"
	"github.com/inery/inery/types"
)

// makeChain signs n consecutive headers with fm. Headers listed in changes
// carry the schedule change extension for the given schedule.
func makeChain(
	t *testing.T,
	fm *privval.FileMaster,
	n int,
	changes map[uint32]*types.MasterAuthoritySchedule,
) []*types.SignedBlockHeader {
	t.Helper()
	headers := make([]*types.SignedBlockHeader, 0, n)
	var prev types.BlockID
	for i := 0; i < n; i++ {
		sh := &types.SignedBlockHeader{BlockHeader: types.MakeHeader(prev, fm.Key.MasterName, 0)}
		if s, ok := changes[sh.BlockNum()]; ok {
			require.NoError(t, sh.EmplaceExtension(types.NewMasterScheduleChangeExtension(s)))
		}
		require.NoError(t, fm.SignHeader(sh))
		headers = append(headers, sh)
		prev = sh.ID()
	}
	return headers
}

func writeHeaders(t *testing.T, headers []*types.SignedBlockHeader) string {
	t.Helper()
	bz, err := json.Marshal(headers)
	require.NoError(t, err)
	file := filepath.Join(t.TempDir(), "headers.json")
	require.NoError(t, os.WriteFile(file, bz, 0600))
	return file
}

func initRoot(ctx context.Context, t *testing.T, lag uint32) (*config.Config, *privval.FileMaster) {
	t.Helper()
	root := t.TempDir()
	conf := clearConfig(t, root)

	_, err := runCmd(ctx, t, conf, []string{"init", "--home", root}, nil)
	require.NoError(t, err)
	conf.Chain.IrreversibilityLag = lag
	require.NoError(t, config.WriteConfigFile(root, conf))

	// the chain is signed with a copy of the key, so the key's sign state
	// in root is left alone
	fm, err := privval.LoadFileMaster(conf.MasterKeyFile(), filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, err)
	return conf, fm
}

func TestValidateHeadersProposesSchedule(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	conf, fm := initRoot(ctx, t, 100)
	next := types.NewMasterAuthoritySchedule(1, fm.Authority())
	file := writeHeaders(t, makeChain(t, fm, 5, map[uint32]*types.MasterAuthoritySchedule{2: next}))

	out, err := runCmd(ctx, t, conf, []string{"validate-headers", file, "--home", conf.RootDir}, nil)
	require.NoError(t, err)

	var summary validateSummaryJSON
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, 5, summary.Headers)
	assert.Equal(t, 5, summary.Applied)
	assert.EqualValues(t, 0, summary.ActiveVersion)
	require.NotNil(t, summary.PendingVersion)
	assert.EqualValues(t, 1, *summary.PendingVersion)

	out, err = runCmd(ctx, t, conf, []string{"show-schedule", "--home", conf.RootDir}, nil)
	require.NoError(t, err)
	var status scheduleStatusJSON
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	require.NotNil(t, status.Pending)
	assert.EqualValues(t, 2, status.Pending.BlockNum)
	assert.True(t, status.Pending.Schedule.Equal(next))
}

func TestValidateHeadersPromotesSchedule(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	conf, fm := initRoot(ctx, t, 2)
	next := types.NewMasterAuthoritySchedule(1, fm.Authority())
	file := writeHeaders(t, makeChain(t, fm, 6, map[uint32]*types.MasterAuthoritySchedule{2: next}))

	out, err := runCmd(ctx, t, conf, []string{"validate-headers", file, "--home", conf.RootDir, "--batch-size", "3"}, nil)
	require.NoError(t, err)

	var summary validateSummaryJSON
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, 6, summary.Applied)
	assert.EqualValues(t, 1, summary.ActiveVersion)
	assert.Nil(t, summary.PendingVersion)

	out, err = runCmd(ctx, t, conf, []string{"show-schedule", "--home", conf.RootDir}, nil)
	require.NoError(t, err)
	var status scheduleStatusJSON
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	assert.True(t, status.Active.Equal(next))
	assert.Equal(t, []uint32{0, 1}, status.Versions)
}

func TestValidateHeadersRejectsUnknownSigner(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	conf, fm := initRoot(ctx, t, 100)
	headers := makeChain(t, fm, 3, nil)

	stranger, err := privval.GenFileMaster(fm.Key.MasterName, "", filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, err)
	bad := &types.SignedBlockHeader{BlockHeader: types.MakeHeader(headers[2].ID(), fm.Key.MasterName, 0)}
	require.NoError(t, stranger.SignHeader(bad))
	headers = append(headers, bad)

	args := []string{"validate-headers", writeHeaders(t, headers), "--home", conf.RootDir, "--batch-size", "1"}
	out, err := runCmd(ctx, t, conf, args, nil)
	require.ErrorIs(t, err, state.ErrIrrelevantSignature)

	var summary validateSummaryJSON
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, 4, summary.Headers)
	assert.Equal(t, 3, summary.Applied)
}

func TestValidateHeadersBadFile(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	conf, _ := initRoot(ctx, t, 100)
	file := filepath.Join(t.TempDir(), "headers.json")
	require.NoError(t, os.WriteFile(file, []byte(`{"not": "a list"}`), 0600))

	_, err := runCmd(ctx, t, conf, []string{"validate-headers", file, "--home", conf.RootDir}, nil)
	require.Error(t, err)

	_, err = runCmd(ctx, t, conf, []string{"validate-headers", "--home", conf.RootDir}, nil)
	require.Error(t, err)
}
