package types

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenesisBad(t *testing.T) {
	testCases := [][]byte{
		{},                 // empty
		{1, 1, 1, 1, 1},    // junk
		[]byte(`{}`),       // neither key nor schedule
		[]byte(`{"initial_key":"INEnope"}`),
		[]byte(`{"initial_master":"BAD","initial_key":"` + testPubKey(1).String() + `"}`),
		[]byte(`{"initial_schedule":{"version":0,"masters":[]}}`),
		[]byte(`{"initial_timestamp":"1999-12-31T23:59:59.000","initial_key":"` + testPubKey(1).String() + `"}`),
	}
	for i, tc := range testCases {
		_, err := GenesisDocFromJSON(tc)
		assert.Error(t, err, "test case %d: %s", i, tc)
	}
}

func TestGenesisLegacyUpgrade(t *testing.T) {
	genDoc, err := GenesisDocFromJSON([]byte(`{
		"initial_timestamp": "2024-03-01T12:00:00.000",
		"initial_key": "` + testPubKey(7).String() + `"
	}`))
	require.NoError(t, err)
	assert.Equal(t, DefaultInitialMaster, genDoc.InitialMaster)
	assert.Equal(t, "2024-03-01T12:00:00.000", genDoc.InitialTimestamp.String())

	s := genDoc.InitialMasterSchedule()
	want := NewMasterAuthorityScheduleFromLegacy(LegacyMasterSchedule{
		Masters: []LegacyMasterKey{{MasterName: MustAccountName("inery"), BlockSigningKey: testPubKey(7)}},
	})
	assert.True(t, want.Equal(s), "got %v", s)
	assert.EqualValues(t, 0, s.Version)
}

func TestGenesisExplicitSchedule(t *testing.T) {
	explicit := NewMasterAuthoritySchedule(3, singleKeyMaster("mastera", 1), singleKeyMaster("masterb", 2))
	genDoc := &GenesisDoc{InitialSchedule: explicit}
	require.NoError(t, genDoc.ValidateAndComplete())
	assert.NotZero(t, genDoc.InitialTimestamp)

	s := genDoc.InitialMasterSchedule()
	assert.True(t, explicit.Equal(s))
	assert.NotSame(t, explicit, s)
}

func TestGenesisSaveAs(t *testing.T) {
	file := filepath.Join(t.TempDir(), "genesis.json")

	genDoc := &GenesisDoc{
		InitialTimestamp: 100,
		InitialKey:       testPubKey(1),
		InitialSchedule:  NewMasterAuthoritySchedule(1, singleKeyMaster("mastera", 1)),
	}
	require.NoError(t, genDoc.ValidateAndComplete())
	require.NoError(t, genDoc.SaveAs(file))

	genDoc2, err := GenesisDocFromFile(file)
	require.NoError(t, err)
	assert.Equal(t, genDoc.InitialTimestamp, genDoc2.InitialTimestamp)
	assert.Equal(t, genDoc.InitialKey, genDoc2.InitialKey)
	assert.Equal(t, genDoc.InitialMaster, genDoc2.InitialMaster)
	assert.True(t, genDoc.InitialMasterSchedule().Equal(genDoc2.InitialMasterSchedule()))

	_, err = GenesisDocFromFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
