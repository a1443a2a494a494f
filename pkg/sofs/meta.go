package sofs

// slot is a typed scratch area that must be loaded before it can be read
// (get) or written back (set), discarding whatever it held before.
type slot[T any] struct {
	loaded bool
	index  int64
	value  T
}

func (s *slot[T]) discard(index int64, v T) {
	s.loaded = true
	s.index = index
	s.value = v
}

func (s *slot[T]) get() (T, error) {
	var zero T
	if !s.loaded {
		return zero, errNotLoaded
	}
	return s.value, nil
}

func (s *slot[T]) set(v T) error {
	if !s.loaded {
		return errNotLoaded
	}
	s.value = v
	return nil
}

// MetadataSession owns the mounted file system's three scratch slots and
// the block cache they are read from and written through. Every operation
// in pkg/sofs that touches the superblock, an inode-table block, or a
// reference cluster does so via one MetadataSession instance rather than
// package-level statics.
type MetadataSession struct {
	cache *BlockCache

	sb   slot[Superblock]
	itab slot[inodeTableBlock]
	ref  slot[refCluster]
}

type inodeTableBlock [IPB]Inode

// refCluster is a reference cluster reinterpreted as an array of logical
// cluster references (used for both single- and double-indirect pages).
type refCluster [RPC]uint32

func newMetadataSession(cache *BlockCache) *MetadataSession {
	return &MetadataSession{cache: cache}
}

// --- superblock slot ---

// LoadSuperblock reads block 0 into the superblock slot.
func (m *MetadataSession) LoadSuperblock() error {
	var buf [BlockSize]byte
	buf, err := m.cache.Read(0)
	if err != nil {
		return err
	}
	var sb Superblock
	if err := sb.unmarshal(buf[:]); err != nil {
		return err
	}
	m.sb.discard(0, sb)
	return nil
}

// Superblock returns the currently loaded superblock.
func (m *MetadataSession) Superblock() (Superblock, error) {
	return m.sb.get()
}

// StoreSuperblock writes sb into block 0 through the block cache and
// updates the slot.
func (m *MetadataSession) StoreSuperblock(sb Superblock) error {
	buf := sb.marshal()
	if err := m.cache.Write(0, buf); err != nil {
		return err
	}
	return m.sb.set(sb)
}

// --- inode-table slot ---

func inodeAddress(n uint32) (block int64, offset int) {
	block = int64(n) / IPB
	offset = int(n) % IPB
	return
}

// LoadInodeTableBlock loads the inode-table block holding inode n.
func (m *MetadataSession) LoadInodeTableBlock(sb Superblock, n uint32) error {
	rel, _ := inodeAddress(n)
	phys := sb.ITableStart + rel
	buf, err := m.cache.Read(phys)
	if err != nil {
		return err
	}
	var block inodeTableBlock
	for i := 0; i < IPB; i++ {
		block[i].unmarshal(buf[i*InodeSize : (i+1)*InodeSize])
	}
	m.itab.discard(rel, block)
	return nil
}

// Inode returns inode n out of the currently loaded inode-table block.
// The caller must have loaded the block containing n first.
func (m *MetadataSession) Inode(n uint32) (Inode, error) {
	rel, off := inodeAddress(n)
	block, err := m.itab.get()
	if err != nil {
		return Inode{}, err
	}
	if m.itab.index != rel {
		return Inode{}, errInvalidIndex
	}
	return block[off], nil
}

// SetInode updates inode n in the loaded block, without writing through.
func (m *MetadataSession) SetInode(n uint32, ino Inode) error {
	rel, off := inodeAddress(n)
	block, err := m.itab.get()
	if err != nil {
		return err
	}
	if m.itab.index != rel {
		return errInvalidIndex
	}
	block[off] = ino
	return m.itab.set(block)
}

// StoreInodeTableBlock writes the currently loaded inode-table block
// through the block cache.
func (m *MetadataSession) StoreInodeTableBlock(sb Superblock) error {
	block, err := m.itab.get()
	if err != nil {
		return err
	}
	var buf [BlockSize]byte
	for i := 0; i < IPB; i++ {
		copy(buf[i*InodeSize:(i+1)*InodeSize], block[i].marshal())
	}
	return m.cache.Write(sb.ITableStart+m.itab.index, buf)
}

// --- reference-cluster slot ---

func physicalFirstBlock(sb Superblock, cluster uint32) int64 {
	return sb.DZoneStart + int64(cluster)*BlocksPerCluster
}

// LoadRefCluster loads cluster (a single- or double-indirect reference
// page) into the reference-cluster slot.
func (m *MetadataSession) LoadRefCluster(sb Superblock, cluster uint32) error {
	var buf [ClusterSize]byte
	if err := m.readRawCluster(sb, cluster, buf[:]); err != nil {
		return err
	}
	var rc refCluster
	for i := 0; i < RPC; i++ {
		rc[i] = le32(buf[ClusterHeaderSize+i*4:])
	}
	m.ref.discard(int64(cluster), rc)
	return nil
}

// RefCluster returns the currently loaded reference-cluster body.
func (m *MetadataSession) RefCluster() (refCluster, error) {
	return m.ref.get()
}

// SetRefEntry updates entry i of the loaded reference cluster in memory.
func (m *MetadataSession) SetRefEntry(i int, v uint32) error {
	rc, err := m.ref.get()
	if err != nil {
		return err
	}
	rc[i] = v
	return m.ref.set(rc)
}

// StoreRefCluster writes the currently loaded reference cluster through the
// block cache, preserving its existing header.
func (m *MetadataSession) StoreRefCluster(sb Superblock) error {
	rc, err := m.ref.get()
	if err != nil {
		return err
	}
	cluster := uint32(m.ref.index)
	hdr, err := m.readClusterHeader(sb, cluster)
	if err != nil {
		return err
	}
	var buf [ClusterSize]byte
	hdr.marshalInto(buf[:])
	for i := 0; i < RPC; i++ {
		putLE32(buf[ClusterHeaderSize+i*4:], rc[i])
	}
	return m.writeRawCluster(sb, cluster, buf[:])
}

// --- raw cluster helpers shared by every layer above this one ---

func (m *MetadataSession) readRawCluster(sb Superblock, cluster uint32, buf []byte) error {
	first := physicalFirstBlock(sb, cluster)
	for i := 0; i < BlocksPerCluster; i++ {
		b, err := m.cache.Read(first + int64(i))
		if err != nil {
			return err
		}
		copy(buf[i*BlockSize:(i+1)*BlockSize], b[:])
	}
	return nil
}

func (m *MetadataSession) writeRawCluster(sb Superblock, cluster uint32, buf []byte) error {
	first := physicalFirstBlock(sb, cluster)
	for i := 0; i < BlocksPerCluster; i++ {
		var b [BlockSize]byte
		copy(b[:], buf[i*BlockSize:(i+1)*BlockSize])
		if err := m.cache.Write(first+int64(i), b); err != nil {
			return err
		}
	}
	return nil
}

type clusterHeader struct {
	prev uint32
	next uint32
	stat uint32
}

func (h clusterHeader) marshalInto(buf []byte) {
	putLE32(buf[0:], h.prev)
	putLE32(buf[4:], h.next)
	putLE32(buf[8:], h.stat)
}

func (m *MetadataSession) readClusterHeader(sb Superblock, cluster uint32) (clusterHeader, error) {
	var buf [ClusterHeaderSize]byte
	first := physicalFirstBlock(sb, cluster)
	b, err := m.cache.Read(first)
	if err != nil {
		return clusterHeader{}, err
	}
	copy(buf[:], b[:ClusterHeaderSize])
	return clusterHeader{
		prev: le32(buf[0:]),
		next: le32(buf[4:]),
		stat: le32(buf[8:]),
	}, nil
}

func (m *MetadataSession) writeClusterHeader(sb Superblock, cluster uint32, h clusterHeader) error {
	first := physicalFirstBlock(sb, cluster)
	b, err := m.cache.Read(first)
	if err != nil {
		return err
	}
	h.marshalInto(b[:ClusterHeaderSize])
	return m.cache.Write(first, b)
}

// ReadBody copies a data cluster's BSLPC-byte body (everything past the
// header) into dst.
func (m *MetadataSession) ReadBody(sb Superblock, cluster uint32, dst []byte) error {
	var buf [ClusterSize]byte
	if err := m.readRawCluster(sb, cluster, buf[:]); err != nil {
		return err
	}
	copy(dst, buf[ClusterHeaderSize:])
	return nil
}

// WriteBody overwrites part of a data cluster's body starting at offset,
// preserving the cluster's existing header.
func (m *MetadataSession) WriteBody(sb Superblock, cluster uint32, offset int, src []byte) error {
	hdr, err := m.readClusterHeader(sb, cluster)
	if err != nil {
		return err
	}
	var buf [ClusterSize]byte
	if err := m.readRawCluster(sb, cluster, buf[:]); err != nil {
		return err
	}
	hdr.marshalInto(buf[:])
	copy(buf[ClusterHeaderSize+offset:], src)
	return m.writeRawCluster(sb, cluster, buf[:])
}

// byte position p of a file -> (logical cluster index, offset within the
// cluster's body).
func filePosition(p int64) (index int64, offset int) {
	index = p / BSLPC
	offset = int(p % BSLPC)
	return
}

func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func putLE32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func le16(b []byte) uint16 {
	return uint16(b[0]) | uint16(b[1])<<8
}

func putLE16(b []byte, v uint16) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
}
