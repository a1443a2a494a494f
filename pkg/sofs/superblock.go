package sofs

import "github.com/google/uuid"

// Magic values. MagicFormatting is written first and deliberately cannot
// equal MagicValid: if Format is interrupted before it finishes, Mount will
// see the wrong magic and refuse the volume instead of trusting a
// half-initialized superblock.
const (
	MagicFormatting uint32 = 0xFFFFFFFF
	MagicValid      uint32 = 0x53304653 // "S0FS"
)

// Mount-status flags, used to detect a dirty (not cleanly unmounted) volume.
const (
	statusClean uint32 = 0
	statusDirty uint32 = 1
)

// Superblock is the fixed-layout record occupying block 0 of every SOFS
// volume. It carries the volume's geometry, the free-inode list head/tail,
// the free-cluster general repository head/tail, and the two free-cluster
// caches.
type Superblock struct {
	Magic uint32

	VolumeName [16]byte
	UUID       uuid.UUID

	NTotal      uint32
	MountStatus uint32

	ITableStart int64
	ITableSize  uint32
	ITotal      uint32
	IFree       uint32
	IHead       uint32
	ITail       uint32

	DZoneStart int64
	DZoneTotal uint32
	DZoneFree  uint32

	RetrievalIdx   uint32
	RetrievalCache [DZC]uint32
	InsertionIdx   uint32
	InsertionCache [DZC]uint32

	DHead uint32
	DTail uint32
}

// IsDirty reports whether the volume was not cleanly unmounted last time.
func (sb Superblock) IsDirty() bool {
	return sb.MountStatus == statusDirty
}

func (sb Superblock) marshal() [BlockSize]byte {
	var buf [BlockSize]byte
	putLE32(buf[0:], sb.Magic)
	copy(buf[4:20], sb.VolumeName[:])
	copy(buf[20:36], sb.UUID[:])
	putLE32(buf[36:], sb.NTotal)
	putLE32(buf[40:], sb.MountStatus)
	putLE32(buf[44:], uint32(sb.ITableStart))
	putLE32(buf[48:], sb.ITableSize)
	putLE32(buf[52:], sb.ITotal)
	putLE32(buf[56:], sb.IFree)
	putLE32(buf[60:], sb.IHead)
	putLE32(buf[64:], sb.ITail)
	putLE32(buf[68:], uint32(sb.DZoneStart))
	putLE32(buf[72:], sb.DZoneTotal)
	putLE32(buf[76:], sb.DZoneFree)
	putLE32(buf[80:], sb.RetrievalIdx)
	off := 84
	for i := 0; i < DZC; i++ {
		putLE32(buf[off+i*4:], sb.RetrievalCache[i])
	}
	off += DZC * 4
	putLE32(buf[off:], sb.InsertionIdx)
	off += 4
	for i := 0; i < DZC; i++ {
		putLE32(buf[off+i*4:], sb.InsertionCache[i])
	}
	off += DZC * 4
	putLE32(buf[off:], sb.DHead)
	putLE32(buf[off+4:], sb.DTail)
	return buf
}

func (sb *Superblock) unmarshal(buf []byte) error {
	if len(buf) < BlockSize {
		return ErrIO
	}
	sb.Magic = le32(buf[0:])
	copy(sb.VolumeName[:], buf[4:20])
	copy(sb.UUID[:], buf[20:36])
	sb.NTotal = le32(buf[36:])
	sb.MountStatus = le32(buf[40:])
	sb.ITableStart = int64(le32(buf[44:]))
	sb.ITableSize = le32(buf[48:])
	sb.ITotal = le32(buf[52:])
	sb.IFree = le32(buf[56:])
	sb.IHead = le32(buf[60:])
	sb.ITail = le32(buf[64:])
	sb.DZoneStart = int64(le32(buf[68:]))
	sb.DZoneTotal = le32(buf[72:])
	sb.DZoneFree = le32(buf[76:])
	sb.RetrievalIdx = le32(buf[80:])
	off := 84
	for i := 0; i < DZC; i++ {
		sb.RetrievalCache[i] = le32(buf[off+i*4:])
	}
	off += DZC * 4
	sb.InsertionIdx = le32(buf[off:])
	off += 4
	for i := 0; i < DZC; i++ {
		sb.InsertionCache[i] = le32(buf[off+i*4:])
	}
	off += DZC * 4
	sb.DHead = le32(buf[off:])
	sb.DTail = le32(buf[off+4:])
	return nil
}
