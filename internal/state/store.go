package state

import (
	"errors"
	"fmt"

	"github.com/gogo/protobuf/proto"
	"github.com/google/orderedcode"
	dbm "github.com/tendermint/tm-db"

	"github.com/inery/inery/libs/arena"
	chainproto "github.com/inery/inery/proto/inery/chain"
	"github.com/inery/inery/types"
)

const (
	// persistent key prefixes of the store
	prefixActiveSchedule  = int64(1)
	prefixPendingSchedule = int64(2)
	prefixScheduleHistory = int64(3)
)

// ErrScheduleNotFound is returned when no schedule was saved under a
// version.
var ErrScheduleNotFound = errors.New("schedule not found")

func activeScheduleKey() []byte {
	key, err := orderedcode.Append(nil, prefixActiveSchedule)
	if err != nil {
		panic(err)
	}
	return key
}

func pendingScheduleKey() []byte {
	key, err := orderedcode.Append(nil, prefixPendingSchedule)
	if err != nil {
		panic(err)
	}
	return key
}

func scheduleHistoryKey(version uint32) []byte {
	key, err := orderedcode.Append(nil, prefixScheduleHistory, int64(version))
	if err != nil {
		panic(err)
	}
	return key
}

func decodeScheduleHistoryKey(key []byte) (uint32, error) {
	var prefix, version int64
	remaining, err := orderedcode.Parse(string(key), &prefix, &version)
	if err != nil {
		return 0, err
	}
	if len(remaining) != 0 {
		return 0, fmt.Errorf("expected complete key but got remainder: %s", remaining)
	}
	if prefix != prefixScheduleHistory {
		return 0, fmt.Errorf("unexpected key prefix %d", prefix)
	}
	return uint32(version), nil
}

// PendingSchedule is a proposed schedule and the block that proposed it.
type PendingSchedule struct {
	BlockNum uint32
	Schedule *types.MasterAuthoritySchedule
}

// Store persists the active schedule, the pending schedule and every schedule
// that was ever active, keyed by version.
//
// Schedules are kept in their shared form, allocated from the store's arena.
// Shared values returned by the store are valid until Close.
type Store interface {
	// LoadActive returns the active schedule, or nil if none was saved.
	LoadActive() (*types.MasterAuthoritySchedule, error)
	// LoadActiveShared returns the shared form of the active schedule, or
	// nil if none was saved.
	LoadActiveShared() (*types.SharedMasterAuthoritySchedule, error)
	// LoadPending returns the pending schedule, or nil if there is none.
	LoadPending() (*PendingSchedule, error)
	// LoadSchedule returns the schedule that was active at version.
	LoadSchedule(version uint32) (*types.MasterAuthoritySchedule, error)
	// ScheduleVersions returns every saved version in increasing order.
	ScheduleVersions() ([]uint32, error)

	// Bootstrap saves the initial active schedule.
	Bootstrap(*types.MasterAuthoritySchedule) error
	// SavePending replaces the pending schedule.
	SavePending(PendingSchedule) error
	// Promote makes s the active schedule, records it in the history and
	// drops the pending schedule, in one batch.
	Promote(s *types.MasterAuthoritySchedule) error

	// Close releases the store's arena and closes the database.
	Close() error
}

type dbStore struct {
	db    dbm.DB
	arena *arena.Arena
}

var _ Store = (*dbStore)(nil)

// NewStore creates the dbStore of the state pkg.
func NewStore(db dbm.DB) Store {
	return &dbStore{db: db, arena: arena.New()}
}

func (store *dbStore) encode(s *types.MasterAuthoritySchedule) ([]byte, error) {
	return proto.Marshal(s.ToShared(store.arena.Allocator()).ToProto())
}

func (store *dbStore) loadShared(key []byte) (*types.SharedMasterAuthoritySchedule, error) {
	bz, err := store.db.Get(key)
	if err != nil {
		return nil, err
	}
	if len(bz) == 0 {
		return nil, nil
	}
	pb := new(chainproto.MasterAuthoritySchedule)
	if err := proto.Unmarshal(bz, pb); err != nil {
		return nil, fmt.Errorf("unmarshal to chainproto.MasterAuthoritySchedule: %w", err)
	}
	return types.SharedMasterAuthorityScheduleFromProto(store.arena.Allocator(), pb)
}

func (store *dbStore) load(key []byte) (*types.MasterAuthoritySchedule, error) {
	shared, err := store.loadShared(key)
	if err != nil || shared == nil {
		return nil, err
	}
	return types.MasterAuthorityScheduleFromShared(shared), nil
}

func (store *dbStore) LoadActive() (*types.MasterAuthoritySchedule, error) {
	return store.load(activeScheduleKey())
}

func (store *dbStore) LoadActiveShared() (*types.SharedMasterAuthoritySchedule, error) {
	return store.loadShared(activeScheduleKey())
}

func (store *dbStore) LoadSchedule(version uint32) (*types.MasterAuthoritySchedule, error) {
	s, err := store.load(scheduleHistoryKey(version))
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, fmt.Errorf("%w: version %d", ErrScheduleNotFound, version)
	}
	return s, nil
}

func (store *dbStore) LoadPending() (*PendingSchedule, error) {
	bz, err := store.db.Get(pendingScheduleKey())
	if err != nil {
		return nil, err
	}
	if len(bz) == 0 {
		return nil, nil
	}
	pb := new(chainproto.PendingSchedule)
	if err := proto.Unmarshal(bz, pb); err != nil {
		return nil, fmt.Errorf("unmarshal to chainproto.PendingSchedule: %w", err)
	}
	shared, err := types.SharedMasterAuthorityScheduleFromProto(store.arena.Allocator(), pb.Schedule)
	if err != nil {
		return nil, err
	}
	return &PendingSchedule{
		BlockNum: pb.BlockNum,
		Schedule: types.MasterAuthorityScheduleFromShared(shared),
	}, nil
}

func (store *dbStore) ScheduleVersions() ([]uint32, error) {
	end, err := orderedcode.Append(nil, prefixScheduleHistory+1)
	if err != nil {
		return nil, err
	}
	iter, err := store.db.Iterator(scheduleHistoryKey(0), end)
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var versions []uint32
	for ; iter.Valid(); iter.Next() {
		version, err := decodeScheduleHistoryKey(iter.Key())
		if err != nil {
			return nil, err
		}
		versions = append(versions, version)
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	return versions, nil
}

func (store *dbStore) Bootstrap(s *types.MasterAuthoritySchedule) error {
	return store.Promote(s)
}

func (store *dbStore) SavePending(p PendingSchedule) error {
	pb := &chainproto.PendingSchedule{
		BlockNum: p.BlockNum,
		Schedule: p.Schedule.ToShared(store.arena.Allocator()).ToProto(),
	}
	bz, err := proto.Marshal(pb)
	if err != nil {
		return err
	}
	return store.db.SetSync(pendingScheduleKey(), bz)
}

func (store *dbStore) Promote(s *types.MasterAuthoritySchedule) error {
	bz, err := store.encode(s)
	if err != nil {
		return err
	}

	batch := store.db.NewBatch()
	defer batch.Close()

	if err := batch.Set(activeScheduleKey(), bz); err != nil {
		return err
	}
	if err := batch.Set(scheduleHistoryKey(s.Version), bz); err != nil {
		return err
	}
	if err := batch.Delete(pendingScheduleKey()); err != nil {
		return err
	}
	return batch.WriteSync()
}

func (store *dbStore) Close() error {
	store.arena.Release()
	return store.db.Close()
}
