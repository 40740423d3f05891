package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/inery/inery/crypto"
	tmos "github.com/inery/inery/libs/os"
)

// DefaultInitialMaster is the master of the initial schedule when the
// genesis file names none.
var DefaultInitialMaster = MustAccountName("inery")

// GenesisDoc defines the initial conditions of a chain, in particular its
// initial master schedule.
type GenesisDoc struct {
	InitialTimestamp BlockTimestamp `json:"initial_timestamp"`
	InitialKey       crypto.PubKey  `json:"initial_key"`
	InitialMaster    AccountName    `json:"initial_master,omitempty"`

	// InitialSchedule overrides the single-key schedule built from
	// InitialMaster and InitialKey.
	InitialSchedule *MasterAuthoritySchedule `json:"initial_schedule,omitempty"`
}

// SaveAs is a utility method for saving GenesisDoc as a JSON file.
func (genDoc *GenesisDoc) SaveAs(file string) error {
	genDocBytes, err := json.MarshalIndent(genDoc, "", "  ")
	if err != nil {
		return err
	}
	return tmos.WriteFileAtomic(file, genDocBytes, 0644)
}

// ValidateAndComplete checks that all necessary fields are present
// and fills in defaults for optional fields left empty.
func (genDoc *GenesisDoc) ValidateAndComplete() error {
	if genDoc.InitialMaster.IsEmpty() {
		genDoc.InitialMaster = DefaultInitialMaster
	}

	if genDoc.InitialSchedule != nil {
		if err := genDoc.InitialSchedule.ValidateBasic(); err != nil {
			return fmt.Errorf("invalid initial_schedule: %w", err)
		}
	} else if genDoc.InitialKey.IsZero() {
		return errors.New("genesis doc must include initial_key or initial_schedule")
	}

	if genDoc.InitialTimestamp == 0 {
		ts, err := NewBlockTimestamp(time.Now())
		if err != nil {
			return err
		}
		genDoc.InitialTimestamp = ts
	}
	return nil
}

// InitialMasterSchedule returns the schedule the chain starts with: the
// explicit initial schedule if there is one, otherwise the upgrade of the
// legacy schedule {0, [{InitialMaster, InitialKey}]}.
func (genDoc *GenesisDoc) InitialMasterSchedule() *MasterAuthoritySchedule {
	if genDoc.InitialSchedule != nil {
		return NewMasterAuthoritySchedule(genDoc.InitialSchedule.Version, genDoc.InitialSchedule.Masters...)
	}
	return NewMasterAuthorityScheduleFromLegacy(LegacyMasterSchedule{
		Version: 0,
		Masters: []LegacyMasterKey{{
			MasterName:      genDoc.InitialMaster,
			BlockSigningKey: genDoc.InitialKey,
		}},
	})
}

//------------------------------------------------------------
// Make genesis state from file

// GenesisDocFromJSON unmarshalls JSON data into a GenesisDoc.
func GenesisDocFromJSON(jsonBlob []byte) (*GenesisDoc, error) {
	genDoc := GenesisDoc{}
	if err := json.Unmarshal(jsonBlob, &genDoc); err != nil {
		return nil, err
	}

	if err := genDoc.ValidateAndComplete(); err != nil {
		return nil, err
	}

	return &genDoc, nil
}

// GenesisDocFromFile reads JSON data from a file and unmarshalls it into a GenesisDoc.
func GenesisDocFromFile(genDocFile string) (*GenesisDoc, error) {
	jsonBlob, err := os.ReadFile(genDocFile)
	if err != nil {
		return nil, fmt.Errorf("couldn't read GenesisDoc file: %w", err)
	}
	genDoc, err := GenesisDocFromJSON(jsonBlob)
	if err != nil {
		return nil, fmt.Errorf("error reading GenesisDoc at %s: %w", genDocFile, err)
	}
	return genDoc, nil
}
