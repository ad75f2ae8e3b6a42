package splitter

import (
	"encoding/binary"
	"fmt"
	"math"
)

const (
	stateVersion    = 1
	stateHeaderSize = 1 + 4*20 + NumTiers*8 + 8 + 1 + 2 // version + roles + prices + retained + flags + asset_len

	flagSubAdminApproved     = 0x01
	flagContentAdminApproved = 0x02
)

// EncodeState serializes s to its fixed binary layout.
func EncodeState(s *State) ([]byte, error) {
	if len(s.Asset) > math.MaxUint16 {
		return nil, fmt.Errorf("%w: asset id too long (%d bytes)", ErrInvalidState, len(s.Asset))
	}
	buf := make([]byte, stateHeaderSize+len(s.Asset))
	offset := 0

	buf[offset] = stateVersion
	offset++

	for _, addr := range [][20]byte{s.Roles.PayerAdmin, s.Roles.ContentAdmin, s.Roles.ContentSubAdmin, s.Roles.RevenueShareWallet} {
		copy(buf[offset:offset+20], addr[:])
		offset += 20
	}

	for _, price := range s.Prices {
		binary.BigEndian.PutUint64(buf[offset:offset+8], price)
		offset += 8
	}

	binary.BigEndian.PutUint64(buf[offset:offset+8], s.Escrow.Retained)
	offset += 8

	var flags byte
	if s.Escrow.SubAdminApproved {
		flags |= flagSubAdminApproved
	}
	if s.Escrow.ContentAdminApproved {
		flags |= flagContentAdminApproved
	}
	buf[offset] = flags
	offset++

	binary.BigEndian.PutUint16(buf[offset:offset+2], uint16(len(s.Asset)))
	offset += 2
	copy(buf[offset:], s.Asset)
	return buf, nil
}

// DecodeState deserializes data produced by EncodeState.
func DecodeState(data []byte) (*State, error) {
	if len(data) < stateHeaderSize {
		return nil, fmt.Errorf("%w: too short (%d bytes)", ErrInvalidState, len(data))
	}
	if data[0] != stateVersion {
		return nil, fmt.Errorf("%w: unknown version %d", ErrInvalidState, data[0])
	}
	offset := 1

	s := &State{}
	for _, addr := range []*[20]byte{
		(*[20]byte)(&s.Roles.PayerAdmin),
		(*[20]byte)(&s.Roles.ContentAdmin),
		(*[20]byte)(&s.Roles.ContentSubAdmin),
		(*[20]byte)(&s.Roles.RevenueShareWallet),
	} {
		copy(addr[:], data[offset:offset+20])
		offset += 20
	}

	for i := range s.Prices {
		s.Prices[i] = binary.BigEndian.Uint64(data[offset : offset+8])
		offset += 8
	}

	s.Escrow.Retained = binary.BigEndian.Uint64(data[offset : offset+8])
	offset += 8

	flags := data[offset]
	offset++
	if flags&^(flagSubAdminApproved|flagContentAdminApproved) != 0 {
		return nil, fmt.Errorf("%w: unknown flag bits 0x%02x", ErrInvalidState, flags)
	}
	s.Escrow.SubAdminApproved = flags&flagSubAdminApproved != 0
	s.Escrow.ContentAdminApproved = flags&flagContentAdminApproved != 0

	assetLen := int(binary.BigEndian.Uint16(data[offset : offset+2]))
	offset += 2
	if len(data) != offset+assetLen {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidState, offset+assetLen, len(data))
	}
	s.Asset = string(data[offset:])
	return s, nil
}
