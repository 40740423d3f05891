package privval

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/inery/inery/crypto"
	tmos "github.com/inery/inery/libs/os"
	"github.com/inery/inery/types"
)

var (
	// ErrDoubleSign is returned when asked to sign a block at or below the
	// last signed block.
	ErrDoubleSign = errors.New("block was already signed")
	// ErrWrongMaster is returned when asked to sign a header produced by
	// another master.
	ErrWrongMaster = errors.New("header names a different master")
)

//-------------------------------------------------------------------------------

// FileMasterKey stores the immutable part of FileMaster.
type FileMasterKey struct {
	MasterName types.AccountName
	PubKey     crypto.PubKey
	PrivKey    crypto.PrivKey

	filePath string
}

type fileMasterKeyJSON struct {
	MasterName types.AccountName `json:"master_name"`
	PubKey     crypto.PubKey     `json:"pub_key"`
	PrivKey    string            `json:"priv_key"`
}

func (key FileMasterKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(fileMasterKeyJSON{
		MasterName: key.MasterName,
		PubKey:     key.PubKey,
		PrivKey:    key.PrivKey.String(),
	})
}

func (key *FileMasterKey) UnmarshalJSON(data []byte) error {
	var raw fileMasterKeyJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	priv, err := crypto.PrivKeyFromString(raw.PrivKey)
	if err != nil {
		return fmt.Errorf("decoding priv_key: %w", err)
	}
	if priv.PubKey() != raw.PubKey {
		return fmt.Errorf("pub_key %v does not match priv_key", raw.PubKey)
	}
	key.MasterName = raw.MasterName
	key.PubKey = raw.PubKey
	key.PrivKey = priv
	return nil
}

// Save persists the FileMasterKey to its filePath.
func (key FileMasterKey) Save() error {
	if key.filePath == "" {
		return errors.New("cannot save master key: filePath not set")
	}
	data, err := json.MarshalIndent(key, "", "  ")
	if err != nil {
		return err
	}
	return tmos.WriteFileAtomic(key.filePath, data, 0600)
}

//-------------------------------------------------------------------------------

// FileMasterLastSignState stores the mutable part of FileMaster.
type FileMasterLastSignState struct {
	BlockNum  uint32           `json:"block_num"`
	BlockID   types.BlockID    `json:"block_id"`
	Signature crypto.Signature `json:"signature"`

	filePath string
}

// checkBlockNum returns ErrDoubleSign unless blockNum is past the last
// signed block.
func (lss *FileMasterLastSignState) checkBlockNum(blockNum uint32) error {
	if blockNum <= lss.BlockNum {
		return fmt.Errorf("%w: block %d, last signed %d", ErrDoubleSign, blockNum, lss.BlockNum)
	}
	return nil
}

// Save persists the FileMasterLastSignState to its filePath.
func (lss *FileMasterLastSignState) Save() error {
	if lss.filePath == "" {
		return errors.New("cannot save master sign state: filePath not set")
	}
	data, err := json.MarshalIndent(lss, "", "  ")
	if err != nil {
		return err
	}
	return tmos.WriteFileAtomic(lss.filePath, data, 0600)
}

//-------------------------------------------------------------------------------

// FileMaster signs block headers for one master and persists the last
// signed block so that no block number is signed twice.
type FileMaster struct {
	Key           FileMasterKey
	LastSignState FileMasterLastSignState
}

// NewFileMaster returns a FileMaster for name holding privKey. Nothing is
// written until Save.
func NewFileMaster(name types.AccountName, privKey crypto.PrivKey, keyFilePath, stateFilePath string) *FileMaster {
	return &FileMaster{
		Key: FileMasterKey{
			MasterName: name,
			PubKey:     privKey.PubKey(),
			PrivKey:    privKey,
			filePath:   keyFilePath,
		},
		LastSignState: FileMasterLastSignState{filePath: stateFilePath},
	}
}

// GenFileMaster generates a new key for name.
func GenFileMaster(name types.AccountName, keyFilePath, stateFilePath string) (*FileMaster, error) {
	privKey, err := crypto.GenPrivKey()
	if err != nil {
		return nil, err
	}
	return NewFileMaster(name, privKey, keyFilePath, stateFilePath), nil
}

// LoadFileMaster loads the key file and, if it exists, the state file.
func LoadFileMaster(keyFilePath, stateFilePath string) (*FileMaster, error) {
	keyJSONBytes, err := os.ReadFile(keyFilePath)
	if err != nil {
		return nil, err
	}
	var key FileMasterKey
	if err := json.Unmarshal(keyJSONBytes, &key); err != nil {
		return nil, fmt.Errorf("error reading master key from %v: %w", keyFilePath, err)
	}
	key.filePath = keyFilePath

	state := FileMasterLastSignState{filePath: stateFilePath}
	if tmos.FileExists(stateFilePath) {
		stateJSONBytes, err := os.ReadFile(stateFilePath)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(stateJSONBytes, &state); err != nil {
			return nil, fmt.Errorf("error reading master sign state from %v: %w", stateFilePath, err)
		}
		state.filePath = stateFilePath
	}

	return &FileMaster{Key: key, LastSignState: state}, nil
}

// LoadOrGenFileMaster loads a FileMaster from the given paths, or generates
// and saves a new one for name if the key file does not exist.
func LoadOrGenFileMaster(name types.AccountName, keyFilePath, stateFilePath string) (*FileMaster, error) {
	if tmos.FileExists(keyFilePath) {
		return LoadFileMaster(keyFilePath, stateFilePath)
	}
	fm, err := GenFileMaster(name, keyFilePath, stateFilePath)
	if err != nil {
		return nil, err
	}
	if err := fm.Save(); err != nil {
		return nil, err
	}
	return fm, nil
}

// Authority returns the single-key authority of the master.
func (fm *FileMaster) Authority() types.MasterAuthority {
	return types.MasterAuthority{
		MasterName: fm.Key.MasterName,
		Authority:  types.NewBlockSigningAuthorityV0(1, types.KeyWeight{Key: fm.Key.PubKey, Weight: 1}),
	}
}

// SignHeader signs sh, which must name the key's master, and records the
// block as signed. The in-memory state changes only once the new state is
// on disk.
func (fm *FileMaster) SignHeader(sh *types.SignedBlockHeader) error {
	if sh.Master != fm.Key.MasterName {
		return fmt.Errorf("%w: header names %v, key belongs to %v", ErrWrongMaster, sh.Master, fm.Key.MasterName)
	}
	blockNum := sh.BlockNum()
	if err := fm.LastSignState.checkBlockNum(blockNum); err != nil {
		return err
	}

	signed := *sh
	if err := signed.Sign(fm.Key.PrivKey); err != nil {
		return err
	}

	next := fm.LastSignState
	next.BlockNum = blockNum
	next.BlockID = signed.ID()
	next.Signature = signed.MasterSignature
	if err := next.Save(); err != nil {
		return err
	}

	fm.LastSignState = next
	sh.MasterSignature = signed.MasterSignature
	return nil
}

// Save persists the FileMaster to disk.
func (fm *FileMaster) Save() error {
	if err := fm.Key.Save(); err != nil {
		return err
	}
	return fm.LastSignState.Save()
}

// Reset clears the last signed block and saves the state.
func (fm *FileMaster) Reset() error {
	fm.LastSignState.BlockNum = 0
	fm.LastSignState.BlockID = types.BlockID{}
	fm.LastSignState.Signature = crypto.Signature{}
	return fm.Save()
}

// String returns a string representation of the FileMaster.
func (fm *FileMaster) String() string {
	return fmt.Sprintf("FileMaster{%v %v LB:%v}", fm.Key.MasterName, fm.Key.PubKey, fm.LastSignState.BlockNum)
}
