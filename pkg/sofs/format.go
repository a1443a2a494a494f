package sofs

import "github.com/google/uuid"

// FormatOptions controls Format's layout decisions.
type FormatOptions struct {
	SizeBytes   int64
	TotalInodes uint32
	VolumeName  string
}

const defaultTotalInodes = 1024

// Format creates path as a host file of opts.SizeBytes bytes and writes a
// fresh SOFS volume into it: an inode table with every inode but the root
// threaded onto the free-inode list, a data zone with every cluster but
// cluster 0 threaded onto the free-cluster repository, and a root directory
// occupying cluster 0 with "." and ".." entries pointing at itself. The
// superblock's magic is written as MagicFormatting before anything else and
// only flipped to MagicValid once every other structure has been
// committed, so an interrupted format is never mistaken for a valid
// volume.
func Format(path string, opts FormatOptions) error {

	if opts.TotalInodes == 0 {
		opts.TotalInodes = defaultTotalInodes
	}

	dev, err := CreateDevice(path, opts.SizeBytes)
	if err != nil {
		return err
	}
	defer dev.Close()

	cache := NewBlockCache(dev, 0)
	meta := newMetadataSession(cache)

	totalBlocks := dev.TotalBlocks()

	iTableStart := int64(1)
	iTableSize := divide(int64(opts.TotalInodes)*InodeSize, BlockSize)
	dZoneStartBlock := divide(iTableStart+iTableSize, BlocksPerCluster) * BlocksPerCluster
	if dZoneStartBlock >= totalBlocks {
		return ErrNoSpaceOnDevice
	}
	dZoneTotal := (totalBlocks - dZoneStartBlock) / BlocksPerCluster
	if dZoneTotal < 1 {
		return ErrNoSpaceOnDevice
	}

	sb := Superblock{
		Magic:       MagicFormatting,
		UUID:        uuid.New(),
		NTotal:      uint32(totalBlocks),
		MountStatus: statusClean,
		ITableStart: iTableStart,
		ITableSize:  uint32(iTableSize),
		ITotal:      opts.TotalInodes,
		DZoneStart:  dZoneStartBlock,
		DZoneTotal:  uint32(dZoneTotal),
	}
	copy(sb.VolumeName[:], opts.VolumeName)

	if err := meta.StoreSuperblock(sb); err != nil {
		return err
	}

	// Inode table: every inode free except the root, threaded prev/next.
	for n := uint32(0); n < opts.TotalInodes; n++ {
		var ino Inode
		if n == RootInode {
			ino = newInUseInode(TypeDirectory, 0755, 0, 0)
			ino.Links = 2
			ino.Direct[0] = 0
			ino.CluCount = 1
			ino.Size = BSLPC
		} else {
			prev := n - 1
			if n == 1 {
				prev = NullInode
			}
			next := n + 1
			if next >= opts.TotalInodes {
				next = NullInode
			}
			ino = freedInode(newInUseInode(TypeRegular, 0, 0, 0), prev, next)
		}
		if err := meta.LoadInodeTableBlock(sb, n); err != nil {
			return err
		}
		if err := meta.SetInode(n, ino); err != nil {
			return err
		}
		if err := meta.StoreInodeTableBlock(sb); err != nil {
			return err
		}
	}

	if opts.TotalInodes > 1 {
		sb.IHead = 1
		sb.ITail = opts.TotalInodes - 1
		sb.IFree = opts.TotalInodes - 1
	} else {
		sb.IHead = NullInode
		sb.ITail = NullInode
		sb.IFree = 0
	}

	// Data zone: cluster 0 holds the root directory already; every other
	// cluster is threaded onto the free-cluster repository.
	if err := meta.writeClusterHeader(sb, 0, clusterHeader{prev: NullCluster, next: NullCluster, stat: RootInode}); err != nil {
		return err
	}

	var rootBody [BSLPC]byte
	empty := makeDirEntry("", NullInode).marshal()
	for slot := 0; slot < DPC; slot++ {
		copy(rootBody[slot*dirEntrySize:], empty[:])
	}
	dot := makeDirEntry(".", RootInode).marshal()
	dotdot := makeDirEntry("..", RootInode).marshal()
	copy(rootBody[0:], dot[:])
	copy(rootBody[dirEntrySize:], dotdot[:])
	if err := meta.WriteBody(sb, 0, 0, rootBody[:]); err != nil {
		return err
	}

	for c := uint32(1); c < uint32(dZoneTotal); c++ {
		prev := c - 1
		if c == 1 {
			prev = NullCluster
		}
		next := c + 1
		if next >= uint32(dZoneTotal) {
			next = NullCluster
		}
		hdr := clusterHeader{prev: prev, next: next, stat: NullInode}
		if err := meta.writeClusterHeader(sb, c, hdr); err != nil {
			return err
		}
	}

	if dZoneTotal > 1 {
		sb.DHead = 1
		sb.DTail = uint32(dZoneTotal) - 1
		sb.DZoneFree = uint32(dZoneTotal) - 1
	} else {
		sb.DHead = NullCluster
		sb.DTail = NullCluster
		sb.DZoneFree = 0
	}
	sb.RetrievalIdx = 0
	sb.InsertionIdx = 0

	sb.Magic = MagicValid
	if err := meta.StoreSuperblock(sb); err != nil {
		return err
	}

	return cache.Close()

}
