// Package chain holds the protobuf messages of types.proto. The messages are
// marshaled by gogo/protobuf through their struct tags.
package chain

import (
	proto "github.com/gogo/protobuf/proto"
)

type KeyWeight struct {
	Key    []byte `protobuf:"bytes,1,opt,name=key,proto3" json:"key,omitempty"`
	Weight uint32 `protobuf:"varint,2,opt,name=weight,proto3" json:"weight,omitempty"`
}

func (m *KeyWeight) Reset()         { *m = KeyWeight{} }
func (m *KeyWeight) String() string { return proto.CompactTextString(m) }
func (*KeyWeight) ProtoMessage()    {}

func (m *KeyWeight) GetKey() []byte {
	if m != nil {
		return m.Key
	}
	return nil
}

func (m *KeyWeight) GetWeight() uint32 {
	if m != nil {
		return m.Weight
	}
	return 0
}

type BlockSigningAuthorityV0 struct {
	Threshold uint32       `protobuf:"varint,1,opt,name=threshold,proto3" json:"threshold,omitempty"`
	Keys      []*KeyWeight `protobuf:"bytes,2,rep,name=keys,proto3" json:"keys,omitempty"`
}

func (m *BlockSigningAuthorityV0) Reset()         { *m = BlockSigningAuthorityV0{} }
func (m *BlockSigningAuthorityV0) String() string { return proto.CompactTextString(m) }
func (*BlockSigningAuthorityV0) ProtoMessage()    {}

func (m *BlockSigningAuthorityV0) GetThreshold() uint32 {
	if m != nil {
		return m.Threshold
	}
	return 0
}

func (m *BlockSigningAuthorityV0) GetKeys() []*KeyWeight {
	if m != nil {
		return m.Keys
	}
	return nil
}

type BlockSigningAuthority struct {
	V0 *BlockSigningAuthorityV0 `protobuf:"bytes,1,opt,name=v0,proto3" json:"v0,omitempty"`
}

func (m *BlockSigningAuthority) Reset()         { *m = BlockSigningAuthority{} }
func (m *BlockSigningAuthority) String() string { return proto.CompactTextString(m) }
func (*BlockSigningAuthority) ProtoMessage()    {}

func (m *BlockSigningAuthority) GetV0() *BlockSigningAuthorityV0 {
	if m != nil {
		return m.V0
	}
	return nil
}

type MasterAuthority struct {
	MasterName uint64                 `protobuf:"varint,1,opt,name=master_name,json=masterName,proto3" json:"master_name,omitempty"`
	Authority  *BlockSigningAuthority `protobuf:"bytes,2,opt,name=authority,proto3" json:"authority,omitempty"`
}

func (m *MasterAuthority) Reset()         { *m = MasterAuthority{} }
func (m *MasterAuthority) String() string { return proto.CompactTextString(m) }
func (*MasterAuthority) ProtoMessage()    {}

func (m *MasterAuthority) GetMasterName() uint64 {
	if m != nil {
		return m.MasterName
	}
	return 0
}

func (m *MasterAuthority) GetAuthority() *BlockSigningAuthority {
	if m != nil {
		return m.Authority
	}
	return nil
}

type MasterAuthoritySchedule struct {
	Version uint32             `protobuf:"varint,1,opt,name=version,proto3" json:"version,omitempty"`
	Masters []*MasterAuthority `protobuf:"bytes,2,rep,name=masters,proto3" json:"masters,omitempty"`
}

func (m *MasterAuthoritySchedule) Reset()         { *m = MasterAuthoritySchedule{} }
func (m *MasterAuthoritySchedule) String() string { return proto.CompactTextString(m) }
func (*MasterAuthoritySchedule) ProtoMessage()    {}

func (m *MasterAuthoritySchedule) GetVersion() uint32 {
	if m != nil {
		return m.Version
	}
	return 0
}

func (m *MasterAuthoritySchedule) GetMasters() []*MasterAuthority {
	if m != nil {
		return m.Masters
	}
	return nil
}

type PendingSchedule struct {
	BlockNum uint32                   `protobuf:"varint,1,opt,name=block_num,json=blockNum,proto3" json:"block_num,omitempty"`
	Schedule *MasterAuthoritySchedule `protobuf:"bytes,2,opt,name=schedule,proto3" json:"schedule,omitempty"`
}

func (m *PendingSchedule) Reset()         { *m = PendingSchedule{} }
func (m *PendingSchedule) String() string { return proto.CompactTextString(m) }
func (*PendingSchedule) ProtoMessage()    {}

func (m *PendingSchedule) GetBlockNum() uint32 {
	if m != nil {
		return m.BlockNum
	}
	return 0
}

func (m *PendingSchedule) GetSchedule() *MasterAuthoritySchedule {
	if m != nil {
		return m.Schedule
	}
	return nil
}

func init() {
	proto.RegisterType((*KeyWeight)(nil), "inery.chain.KeyWeight")
	proto.RegisterType((*BlockSigningAuthorityV0)(nil), "inery.chain.BlockSigningAuthorityV0")
	proto.RegisterType((*BlockSigningAuthority)(nil), "inery.chain.BlockSigningAuthority")
	proto.RegisterType((*MasterAuthority)(nil), "inery.chain.MasterAuthority")
	proto.RegisterType((*MasterAuthoritySchedule)(nil), "inery.chain.MasterAuthoritySchedule")
	proto.RegisterType((*PendingSchedule)(nil), "inery.chain.PendingSchedule")
}
